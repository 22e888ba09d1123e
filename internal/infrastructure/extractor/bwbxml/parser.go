package bwbxml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/jvanleeuwen/regelrag/internal/core/domain"
)

type parser struct {
	stack []string // open structural elements: hoofdstuk, afdeling, artikel

	chapterNumber, chapterTitle string
	sectionNumber, sectionTitle string

	current   *domain.Article
	paragraph *domain.Paragraph
	capture   *strings.Builder

	articles []domain.Article
}

// Parse walks the XML token stream and collects every artikel with its
// hoofdstuk and afdeling ancestry. Envelope elements around that hierarchy
// need no mapping; they are simply ignored.
func Parse(r io.Reader) ([]domain.Article, error) {
	decoder := xml.NewDecoder(r)
	p := &parser{}

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode xml: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			p.startElement(t.Name.Local)
		case xml.CharData:
			if p.capture != nil {
				p.capture.Write(t)
			}
		case xml.EndElement:
			p.endElement(t.Name.Local)
		}
	}
	return p.articles, nil
}

func (p *parser) startElement(name string) {
	switch name {
	case "hoofdstuk":
		p.stack = append(p.stack, name)
		p.chapterNumber, p.chapterTitle = "", ""
		p.sectionNumber, p.sectionTitle = "", ""
	case "afdeling":
		p.stack = append(p.stack, name)
		p.sectionNumber, p.sectionTitle = "", ""
	case "artikel":
		p.stack = append(p.stack, name)
		p.current = &domain.Article{
			ChapterNumber: p.chapterNumber,
			ChapterTitle:  p.chapterTitle,
			SectionNumber: p.sectionNumber,
			SectionTitle:  p.sectionTitle,
		}
	case "nr", "titel", "lidnr", "al":
		p.capture = &strings.Builder{}
	case "lid":
		p.flushParagraph()
		p.paragraph = &domain.Paragraph{}
	}
}

func (p *parser) endElement(name string) {
	switch name {
	case "nr":
		p.setNumber(p.takeText())
	case "titel":
		p.setTitle(p.takeText())
	case "lidnr":
		if p.paragraph != nil {
			p.paragraph.Number = p.takeText()
		} else {
			p.capture = nil
		}
	case "al":
		p.appendBody(p.takeText())
	case "lid":
		p.flushParagraph()
	case "artikel":
		p.flushParagraph()
		if p.current != nil && p.current.Number != "" {
			p.articles = append(p.articles, *p.current)
		}
		p.current = nil
		p.pop(name)
	case "hoofdstuk", "afdeling":
		p.pop(name)
	}
}

// owner is the innermost open structural element, the one a nr or titel
// inside a kop describes.
func (p *parser) owner() string {
	if len(p.stack) == 0 {
		return ""
	}
	return p.stack[len(p.stack)-1]
}

func (p *parser) pop(name string) {
	if len(p.stack) > 0 && p.stack[len(p.stack)-1] == name {
		p.stack = p.stack[:len(p.stack)-1]
	}
}

func (p *parser) setNumber(text string) {
	if text == "" {
		return
	}
	switch p.owner() {
	case "artikel":
		if p.current != nil && p.current.Number == "" {
			p.current.Number = text
		}
	case "afdeling":
		if p.sectionNumber == "" {
			p.sectionNumber = text
		}
	case "hoofdstuk":
		if p.chapterNumber == "" {
			p.chapterNumber = text
		}
	}
}

func (p *parser) setTitle(text string) {
	if text == "" {
		return
	}
	switch p.owner() {
	case "artikel":
		if p.current != nil && p.current.Title == "" {
			p.current.Title = text
		}
	case "afdeling":
		if p.sectionTitle == "" {
			p.sectionTitle = text
		}
	case "hoofdstuk":
		if p.chapterTitle == "" {
			p.chapterTitle = text
		}
	}
}

// appendBody adds running text to the open lid, or to an implicit paragraph
// for articles written without lid structure.
func (p *parser) appendBody(text string) {
	if text == "" || p.current == nil {
		return
	}
	if p.paragraph == nil {
		p.paragraph = &domain.Paragraph{}
	}
	if p.paragraph.Text != "" {
		p.paragraph.Text += " "
	}
	p.paragraph.Text += text
}

func (p *parser) flushParagraph() {
	if p.current == nil || p.paragraph == nil {
		p.paragraph = nil
		return
	}
	p.paragraph.Text = normalizeSpace(p.paragraph.Text)
	if p.paragraph.Text != "" {
		p.current.Paragraphs = append(p.current.Paragraphs, *p.paragraph)
	}
	p.paragraph = nil
}

func (p *parser) takeText() string {
	if p.capture == nil {
		return ""
	}
	text := normalizeSpace(p.capture.String())
	p.capture = nil
	return text
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
