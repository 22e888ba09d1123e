package chunking

import (
	"strings"

	"github.com/jvanleeuwen/regelrag/internal/core/domain"
)

// FacetEnricher derives the filterable metadata of an article chunk from its
// headings and body: usage-class scope, document state, and topics.
type FacetEnricher struct{}

func NewFacetEnricher() *FacetEnricher {
	return &FacetEnricher{}
}

// chunkTopicTerms assigns topics by substring over the article's combined
// text. Topic names here match the query analyzer's vocabulary plus the
// related labels the reranker knows about.
var chunkTopicTerms = map[domain.Topic][]string{
	"brandveiligheid":  {"brand", "vluchtroute", "rookmelder", "blusmiddel"},
	"constructie":      {"constructie", "fundering", "draagkracht", "sterkte", "stabiliteit"},
	"ventilatie":       {"ventilatie", "luchtverversing", "luchtkwaliteit", "spuivoorziening"},
	"daglicht":         {"daglicht", "lichtinval", "raamoppervlak"},
	"energieprestatie": {"energieprestatie", "energiezuinig", "epc", "warmtepomp"},
	"isolatie":         {"isolatie", "warmteweerstand", "thermisch"},
	"geluid":           {"geluid", "geluidwering", "geluidsisolatie"},
	"akoestiek":        {"akoestiek", "nagalm"},
	"toegankelijkheid": {"toegankelijkheid", "rolstoel", "drempel", "hellingbaan"},
	"installaties":     {"installatie", "riolering", "drinkwater", "elektriciteitsvoorziening"},
}

// chunkTopicOrder keeps the derived topic list deterministic.
var chunkTopicOrder = []domain.Topic{
	"brandveiligheid",
	"constructie",
	"ventilatie",
	"daglicht",
	"energieprestatie",
	"isolatie",
	"geluid",
	"akoestiek",
	"toegankelijkheid",
	"installaties",
}

// generalChapters are the chapters whose articles apply regardless of usage
// class: general provisions, procedures, and transitional law.
var generalChapters = map[string]bool{"1": true, "2": true, "3": true, "4": true}

// chapterCategories maps the function-specific chapters 5 through 16 to the
// usage class each chapter regulates.
var chapterCategories = map[string]domain.Category{
	"5":  domain.CategoryResidential,
	"6":  domain.CategoryAssembly,
	"7":  domain.CategoryDetention,
	"8":  domain.CategoryHealthcare,
	"9":  domain.CategoryIndustrial,
	"10": domain.CategoryOffice,
	"11": domain.CategoryLodging,
	"12": domain.CategoryEducation,
	"13": domain.CategorySports,
	"14": domain.CategoryRetail,
	"15": domain.CategoryOther,
	"16": domain.CategoryNonBuilding,
}

// categorySynonymTerms tags usage classes named indirectly in the clause
// body, e.g. an article about "kantoren" scopes to Kantoorfunctie. Terms
// match on a word prefix, so "biosco" covers bioscoop and bioscopen.
var categorySynonymTerms = []struct {
	term     string
	category domain.Category
}{
	{"woning", domain.CategoryResidential},
	{"woongebouw", domain.CategoryResidential},
	{"kantoor", domain.CategoryOffice},
	{"kantoren", domain.CategoryOffice},
	{"winkel", domain.CategoryRetail},
	{"verkoopruimte", domain.CategoryRetail},
	{"school", domain.CategoryEducation},
	{"scholen", domain.CategoryEducation},
	{"onderwijsgebouw", domain.CategoryEducation},
	{"ziekenhuis", domain.CategoryHealthcare},
	{"kliniek", domain.CategoryHealthcare},
	{"zorginstelling", domain.CategoryHealthcare},
	{"sporthal", domain.CategorySports},
	{"sportzaal", domain.CategorySports},
	{"sportaccommodatie", domain.CategorySports},
	{"hotel", domain.CategoryLodging},
	{"logiesgebouw", domain.CategoryLodging},
	{"gevangenis", domain.CategoryDetention},
	{"celgebouw", domain.CategoryDetention},
	{"detentie", domain.CategoryDetention},
	{"theater", domain.CategoryAssembly},
	{"biosco", domain.CategoryAssembly},
	{"evenementenhal", domain.CategoryAssembly},
	{"fabriek", domain.CategoryIndustrial},
	{"industriegebouw", domain.CategoryIndustrial},
}

func (e *FacetEnricher) Enrich(article domain.Article, meta *domain.ArticleMeta) {
	combined := strings.ToLower(articleText(article))
	headings := strings.ToLower(article.Title + " " + article.SectionTitle + " " + article.ChapterTitle)

	meta.Scope = e.scope(article.ChapterNumber, headings, combined)
	meta.State = e.state(headings, combined)
	meta.Topics = e.topics(combined)
}

// scope derives the usage classes an article applies to: the class of its
// function-specific chapter, every class named literally in a heading or the
// body, and every class a body synonym implies.
func (e *FacetEnricher) scope(chapterNumber, headings, combined string) domain.Scope {
	if generalChapters[chapterNumber] {
		return domain.GeneralScope()
	}

	var found []domain.Category
	add := func(category domain.Category) {
		for _, have := range found {
			if have == category {
				return
			}
		}
		found = append(found, category)
	}

	if category, ok := chapterCategories[chapterNumber]; ok {
		add(category)
	}
	for _, category := range domain.Categories {
		name := strings.ToLower(string(category))
		if strings.Contains(headings, name) || strings.Contains(combined, name) {
			add(category)
		}
	}
	for _, synonym := range categorySynonymTerms {
		if hasWordPrefix(combined, synonym.term) {
			add(synonym.category)
		}
	}

	if len(found) == 0 {
		return domain.GeneralScope()
	}
	return domain.SpecificScope(found...)
}

// hasWordPrefix reports whether term occurs in haystack starting at a word
// boundary. The end is unconstrained so a stem matches its inflections.
func hasWordPrefix(haystack, term string) bool {
	idx := 0
	for {
		found := strings.Index(haystack[idx:], term)
		if found < 0 {
			return false
		}
		start := idx + found
		if start == 0 || !isWordByte(haystack[start-1]) {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b >= 0x80
}

var newConstructionTerms = []string{"nieuwbouw", "te bouwen"}

var existingConstructionTerms = []string{
	"bestaande bouw",
	"bestaand bouwwerk",
	"bestaand gebouw",
	"bestaande gebouw",
	"reeds bestaand",
}

// state applies a fixed precedence: a new-construction mention decides the
// regime even when the article also names existing construction, since such
// articles state the new-construction requirement and refer back to the
// existing stock.
func (e *FacetEnricher) state(headings, combined string) domain.DocumentState {
	text := headings + " " + combined
	for _, term := range newConstructionTerms {
		if strings.Contains(text, term) {
			return domain.StateNewConstruction
		}
	}
	for _, term := range existingConstructionTerms {
		if strings.Contains(text, term) {
			return domain.StateExisting
		}
	}
	return domain.StateUnspecified
}

func (e *FacetEnricher) topics(combined string) []domain.Topic {
	var topics []domain.Topic
	for _, topic := range chunkTopicOrder {
		for _, term := range chunkTopicTerms[topic] {
			if strings.Contains(combined, term) {
				topics = append(topics, topic)
				break
			}
		}
	}
	return topics
}

func articleText(article domain.Article) string {
	parts := []string{article.Title, article.SectionTitle, article.ChapterTitle}
	for _, paragraph := range article.Paragraphs {
		parts = append(parts, paragraph.Text)
	}
	return strings.Join(parts, " ")
}
