package ollama

import (
	"fmt"
	"strings"

	"github.com/jvanleeuwen/regelrag/internal/core/domain"
)

func buildAnswerPrompt(question string, sources []domain.RankedResult) string {
	var contextBuilder strings.Builder
	for idx, source := range sources {
		label := source.Chunk.Filename
		if source.Chunk.Article != nil {
			label = source.Chunk.Article.Label
		}
		fmt.Fprintf(&contextBuilder, "[%d] %s (score %.3f)\n%s\n\n",
			idx+1,
			label,
			source.Combined,
			source.Chunk.Text,
		)
	}

	return fmt.Sprintf(`Je bent een assistent voor bouwregelgeving. Beantwoord de vraag
uitsluitend op basis van de onderstaande bronnen. Verwijs naar artikelen met hun
nummer, bijvoorbeeld [1] of Artikel 4.21. Als de bronnen onvoldoende zijn, zeg
dat dan direct.

Vraag:
%s

Bronnen:
%s`, question, contextBuilder.String())
}
