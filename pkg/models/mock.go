package models

import (
	"strings"
	"time"
)

// DocumentType is the detected kind of an uploaded source document.
type DocumentType string

const (
	DocumentPDF  DocumentType = "pdf"
	DocumentDOCX DocumentType = "docx"
)

// SourceDocument is a user-uploaded file persisted in the request working directory.
type SourceDocument struct {
	Path string       // Absolute or work-dir relative path
	Name string       // Original upload name
	Type DocumentType // Detected from the extension
}

// TextSource records where an extracted page's text came from.
type TextSource string

const (
	SourceNative TextSource = "native"
	SourceOCR    TextSource = "ocr"
	SourceDOCX   TextSource = "docx"
)

// BoundingBox is an axis-aligned box in image pixel coordinates.
type BoundingBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// RecognizedToken is one unit of text returned by an OCR engine.
type RecognizedToken struct {
	Box        BoundingBox `json:"bounding_box"`
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence"` // 0.0 to 1.0
}

// ExtractedPage is one page's text and provenance.
type ExtractedPage struct {
	Number  int               // 1-based page number within its document
	Source  TextSource        // native text layer, OCR or DOCX paragraphs
	Text    string            // Page text in reading order
	Tokens  []RecognizedToken // Filtered, sorted tokens for OCR pages
	Warning string            // Set when the page degraded to empty text
}

// ExtractedDocument groups the pages of one source document.
type ExtractedDocument struct {
	Document SourceDocument
	Pages    []ExtractedPage
}

// Text joins the document's page text in page order.
func (d ExtractedDocument) Text() string {
	parts := make([]string, 0, len(d.Pages))
	for _, p := range d.Pages {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, "\n")
}

// ReferenceText is the concatenated extraction across all uploads, in upload order.
type ReferenceText struct {
	Text      string
	Documents []ExtractedDocument
	TextPath  string // reference_concat.txt, set once written
	HTMLPath  string // reference_concat.html, set once written
}

// QuestionType distinguishes free-response from multiple-choice questions.
type QuestionType string

const (
	QuestionFree QuestionType = "free"
	QuestionMCQ  QuestionType = "mcq"
)

// Question is one question of a generated mock paper.
type Question struct {
	ID      string       `json:"id"`
	Type    QuestionType `json:"type"`
	Marks   int          `json:"marks,omitempty"`
	Text    string       `json:"text"`
	Options []string     `json:"options,omitempty"`
	Correct any          `json:"correct,omitempty"` // letter label or numeric index as returned by the model
}

// IsMCQ reports whether the question should be laid out with an option block.
func (q Question) IsMCQ() bool {
	return q.Type == QuestionMCQ && len(q.Options) > 0
}

// Section is an ordered group of questions.
type Section struct {
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// AnswerItem is the answer-key entry for one question.
type AnswerItem struct {
	ID       string `json:"id"`
	Answer   string `json:"answer"`
	Workings string `json:"workings,omitempty"`
}

// Asset is a figure the generated paper refers to.
type Asset struct {
	QuestionID string `json:"question_id"`
	Kind       string `json:"kind"`
	Prompt     string `json:"prompt"`
}

// MockSpec is the validated structured form of one generated mock paper.
type MockSpec struct {
	Title        string       `json:"title"`
	Instructions string       `json:"instructions,omitempty"`
	Sections     []Section    `json:"sections"`
	AnswerKey    []AnswerItem `json:"answer_key"`
	Assets       []Asset      `json:"assets,omitempty"`
}

// QuestionIDs returns every question id in section order.
func (m *MockSpec) QuestionIDs() []string {
	var ids []string
	for _, s := range m.Sections {
		for _, q := range s.Questions {
			ids = append(ids, q.ID)
		}
	}
	return ids
}

// Variant is one generated mock: the structured spec when available and the
// (question-text, answer-text) pair both generation paths converge on.
type Variant struct {
	Spec       *MockSpec
	PaperText  string
	AnswerText string
}

// DocumentRole is the logical role of a rendered PDF.
type DocumentRole string

const (
	RoleQuestionPaper DocumentRole = "question_paper"
	RoleAnswerKey     DocumentRole = "answer_key"
)

// RenderedDocument is a PDF written by the renderer.
type RenderedDocument struct {
	Path      string       `json:"path"`
	Role      DocumentRole `json:"role"`
	Variant   int          `json:"variant"` // 1-based
	Backend   string       `json:"backend"`
	CreatedAt time.Time    `json:"created_at"`
}
