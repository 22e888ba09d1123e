package analyzer

import (
	"regexp"
	"sort"

	"github.com/jvanleeuwen/regelrag/internal/core/domain"
)

// categorySynonyms maps colloquial words to the usage class they imply.
// Matching is word-boundary-safe over the lowercased query.
var categorySynonyms = map[string]domain.Category{
	"woning":      domain.CategoryResidential,
	"huis":        domain.CategoryResidential,
	"appartement": domain.CategoryResidential,
	"flat":        domain.CategoryResidential,
	"wonen":       domain.CategoryResidential,

	"kantoor":       domain.CategoryOffice,
	"kantoren":      domain.CategoryOffice,
	"kantoorgebouw": domain.CategoryOffice,
	"werkplek":      domain.CategoryOffice,

	"winkel":  domain.CategoryRetail,
	"winkels": domain.CategoryRetail,
	"retail":  domain.CategoryRetail,
	"verkoop": domain.CategoryRetail,

	"school":     domain.CategoryEducation,
	"onderwijs":  domain.CategoryEducation,
	"klaslokaal": domain.CategoryEducation,

	"ziekenhuis": domain.CategoryHealthcare,
	"kliniek":    domain.CategoryHealthcare,
	"medisch":    domain.CategoryHealthcare,

	"sport":     domain.CategorySports,
	"sporthal":  domain.CategorySports,
	"sportzaal": domain.CategorySports,
	"fitness":   domain.CategorySports,

	"hotel":    domain.CategoryLodging,
	"logies":   domain.CategoryLodging,
	"verblijf": domain.CategoryLodging,

	"gevangenis": domain.CategoryDetention,
	"cel":        domain.CategoryDetention,
	"detentie":   domain.CategoryDetention,

	"bijeenkomst": domain.CategoryAssembly,
	"theater":     domain.CategoryAssembly,
	"zaal":        domain.CategoryAssembly,
	"evenement":   domain.CategoryAssembly,

	"fabriek":   domain.CategoryIndustrial,
	"industrie": domain.CategoryIndustrial,
	"productie": domain.CategoryIndustrial,
}

// topicTerms maps each topic to the query words that suggest it. The slice
// order matters: the first terms double as enhancement synonyms.
var topicTerms = map[domain.Topic][]string{
	"brandveiligheid":  {"brand", "brandweer", "brandwerendheid", "vluchtroute", "vluchten"},
	"ventilatie":       {"ventileren", "lucht", "luchtkwaliteit", "verse lucht", "co2"},
	"constructie":      {"stabiliteit", "draagconstructie", "sterkte", "fundering"},
	"energieprestatie": {"energie", "epc", "warmte", "energiezuinig", "mpg"},
	"geluid":           {"geluidsisolatie", "akoestiek", "geluidsoverlast", "geluidswering"},
	"toegankelijkheid": {"rolstoel", "mindervalide", "bereikbaarheid", "drempels"},
	"installaties":     {"elektra", "riolering", "leidingen", "drinkwater"},
	"daglicht":         {"belichting", "ramen", "daglichttoetreding", "lichtinval"},
}

// topicOrder fixes the tie-break order for topic scoring.
var topicOrder = []domain.Topic{
	"brandveiligheid",
	"ventilatie",
	"constructie",
	"energieprestatie",
	"geluid",
	"toegankelijkheid",
	"installaties",
	"daglicht",
}

var newConstructionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bnieuwbouw\b`),
	regexp.MustCompile(`\bnieuwe? bouw\b`),
	regexp.MustCompile(`\bnieuwe? gebouwen?\b`),
	regexp.MustCompile(`\bte bouwen\b`),
	regexp.MustCompile(`\bnog te bouwen\b`),
}

var existingStructurePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bbestaande? bouw\b`),
	regexp.MustCompile(`\bbestaande? gebouwen?\b`),
	regexp.MustCompile(`\breeds bestaand\b`),
	regexp.MustCompile(`\bverbouwing\b`),
	regexp.MustCompile(`\brenovatie\b`),
	regexp.MustCompile(`\bbestaand(?:e)?\b`),
}

var articleNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`artikel\s+(\d+\.?\d*)`),
	regexp.MustCompile(`art\.?\s+(\d+\.?\d*)`),
	regexp.MustCompile(`\b(\d+\.\d+)\b`),
}

var chapterNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`hoofdstuk\s+(\d+)`),
	regexp.MustCompile(`hfst\.?\s+(\d+)`),
}

func sortedSynonyms() []string {
	synonyms := make([]string, 0, len(categorySynonyms))
	for synonym := range categorySynonyms {
		synonyms = append(synonyms, synonym)
	}
	sort.Strings(synonyms)
	return synonyms
}
