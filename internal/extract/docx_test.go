package extract

import (
	"reflect"
	"strings"
	"testing"
)

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

func TestParseDocumentXML(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "runs joined",
			body: `<w:p><w:r><w:t>Q1 Find </w:t></w:r><w:r><w:t>x.</w:t></w:r></w:p>`,
			want: []string{"Q1 Find x."},
		},
		{
			name: "tabs and breaks kept",
			body: `<w:p><w:r><w:t>a</w:t><w:tab/><w:t>b</w:t><w:br/><w:t>c</w:t></w:r></w:p>`,
			want: []string{"a\tb\nc"},
		},
		{
			name: "empty paragraphs skipped",
			body: `<w:p></w:p><w:p><w:r><w:t>  </w:t></w:r></w:p><w:p><w:r><w:t>Q2</w:t></w:r></w:p>`,
			want: []string{"Q2"},
		},
		{
			name: "text box paragraph keeps outer text",
			body: `<w:p><w:r><w:t>Q1 Find x.</w:t></w:r>` +
				`<w:r><w:pict><w:txbxContent><w:p><w:r><w:t>Figure 1</w:t></w:r></w:p></w:txbxContent></w:pict></w:r>` +
				`<w:r><w:t xml:space="preserve"> Show working.</w:t></w:r></w:p>`,
			want: []string{"Figure 1", "Q1 Find x. Show working."},
		},
		{
			name: "text outside runs ignored",
			body: `<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Section A</w:t></w:r></w:p>`,
			want: []string{"Section A"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := `<w:document ` + wordNS + `><w:body>` + tt.body + `</w:body></w:document>`
			got, err := parseDocumentXML(strings.NewReader(doc))
			if err != nil {
				t.Fatalf("parseDocumentXML: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("paragraphs = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseDocumentXMLMalformed(t *testing.T) {
	if _, err := parseDocumentXML(strings.NewReader(`<w:document ` + wordNS + `><w:p>`)); err == nil {
		t.Error("expected an error for truncated XML")
	}
}
