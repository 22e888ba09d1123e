package domain

import "time"

// Category is a usage-class label a regulation article applies to,
// e.g. "Woonfunctie" or "Kantoorfunctie".
type Category string

const (
	CategoryResidential Category = "Woonfunctie"
	CategoryAssembly    Category = "Bijeenkomstfunctie"
	CategoryDetention   Category = "Celfunctie"
	CategoryHealthcare  Category = "Gezondheidszorgfunctie"
	CategoryIndustrial  Category = "Industriefunctie"
	CategoryOffice      Category = "Kantoorfunctie"
	CategoryLodging     Category = "Logiesfunctie"
	CategoryEducation   Category = "Onderwijsfunctie"
	CategorySports      Category = "Sportfunctie"
	CategoryRetail      Category = "Winkelfunctie"
	CategoryOther       Category = "Overige gebruiksfunctie"
	CategoryNonBuilding Category = "Bouwwerk geen gebouw zijnde"
)

// Categories lists all known usage classes in a fixed order.
var Categories = []Category{
	CategoryResidential,
	CategoryAssembly,
	CategoryDetention,
	CategoryHealthcare,
	CategoryIndustrial,
	CategoryOffice,
	CategoryLodging,
	CategoryEducation,
	CategorySports,
	CategoryRetail,
	CategoryOther,
	CategoryNonBuilding,
}

// GeneralScopeMarker is the payload value stored for articles that apply to
// every usage class. It exists only on the wire; in-process code uses Scope.
const GeneralScopeMarker = "Algemeen"

// Scope says which usage classes an article applies to. General scope means
// the article applies regardless of usage class (chapters 1-4 of the source
// regulation); a specific scope carries the matched categories.
type Scope struct {
	General    bool       `json:"general"`
	Categories []Category `json:"categories,omitempty"`
}

func GeneralScope() Scope {
	return Scope{General: true}
}

func SpecificScope(categories ...Category) Scope {
	return Scope{Categories: categories}
}

func (s Scope) Contains(c Category) bool {
	if s.General {
		return true
	}
	for _, have := range s.Categories {
		if have == c {
			return true
		}
	}
	return false
}

// DocumentState distinguishes articles that apply to newly constructed
// structures from those that apply to pre-existing ones. The zero value means
// the article applies to both.
type DocumentState string

const (
	StateUnspecified     DocumentState = ""
	StateNewConstruction DocumentState = "Nieuwbouw"
	StateExisting        DocumentState = "Bestaande bouw"
)

// Topic is a thematic label assigned by keyword matching,
// e.g. "brandveiligheid" or "ventilatie".
type Topic string

// Chunk is a retrieval unit: a bounded piece of text plus the metadata the
// hybrid retriever filters and ranks on. For hierarchical documents one chunk
// holds exactly one article and Article is non-nil.
type Chunk struct {
	Text       string    `json:"text"`
	DocumentID string    `json:"document_id"`
	OwnerID    int64     `json:"owner_id"`
	Index      int       `json:"chunk_index"`
	Filename   string    `json:"filename"`
	UploadedAt time.Time `json:"uploaded_at"`

	Article *ArticleMeta `json:"article,omitempty"`
}

// ArticleMeta carries the ancestry and facets of a hierarchical chunk.
type ArticleMeta struct {
	Number         string `json:"number"`
	Label          string `json:"label"`
	Title          string `json:"title,omitempty"`
	ChapterNumber  string `json:"chapter_number"`
	ChapterTitle   string `json:"chapter_title"`
	SectionNumber  string `json:"section_number,omitempty"`
	SectionTitle   string `json:"section_title,omitempty"`
	ParagraphCount int    `json:"paragraph_count"`
	Citation       string `json:"citation"`

	Scope  Scope         `json:"scope"`
	State  DocumentState `json:"state,omitempty"`
	Topics []Topic       `json:"topics,omitempty"`
}

// Article is the structured unit produced by the hierarchical extractor:
// one numbered article with its paragraphs and its chapter/section ancestry.
type Article struct {
	Number        string
	Title         string
	Paragraphs    []Paragraph
	ChapterNumber string
	ChapterTitle  string
	SectionNumber string
	SectionTitle  string
}

// Paragraph is a numbered sub-item ("lid") of an article.
type Paragraph struct {
	Number string
	Text   string
}

// Label renders the citable article label, e.g. "Artikel 4.101".
func (a Article) Label() string {
	return "Artikel " + a.Number
}

// Citation renders the full hierarchical source reference.
func (a Article) Citation() string {
	citation := "Hoofdstuk " + a.ChapterNumber + ". " + a.ChapterTitle
	if a.SectionNumber != "" && a.SectionTitle != "" {
		citation += ", Afdeling " + a.SectionNumber + ". " + a.SectionTitle
	}
	return citation
}
