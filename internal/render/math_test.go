package render

import (
	"reflect"
	"testing"
)

func TestStitchMath(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "display bracket across lines",
			in:   []string{`Energy \[`, `E = mc^2`, `\] done`, "next"},
			want: []string{`Energy \[ E = mc^2 \] done`, "next"},
		},
		{
			name: "double dollar block",
			in:   []string{"$$", "x^2", "$$"},
			want: []string{"$$ x^2 $$"},
		},
		{
			name: "only the math span is joined",
			in:   []string{"  keep  ", `\(x`, `\)`, "after"},
			want: []string{"  keep  ", `\(x \)`, "after"},
		},
		{
			name: "never closed stays untouched",
			in:   []string{`a \(`, "b", "c"},
			want: []string{`a \(`, "b", "c"},
		},
		{
			name: "closed on the same line",
			in:   []string{`Let \(x = 1\).`, "Then"},
			want: []string{`Let \(x = 1\).`, "Then"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StitchMath(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("StitchMath = %q, want %q", got, tt.want)
			}
			if again := StitchMath(got); !reflect.DeepEqual(again, got) {
				t.Errorf("StitchMath is not idempotent: %q then %q", got, again)
			}
		})
	}
}

func TestSplitMath(t *testing.T) {
	tests := []struct {
		in   string
		want []Segment
	}{
		{
			in: `Area \(\pi r^2\) units`,
			want: []Segment{
				{Text: "Area "},
				{Text: `\pi r^2`, Math: true},
				{Text: " units"},
			},
		},
		{
			in:   "$$E=mc^2$$",
			want: []Segment{{Text: "E=mc^2", Math: true, Display: true}},
		},
		{
			in:   "$x$",
			want: []Segment{{Text: "x", Math: true}},
		},
		{
			in:   "Costs $5 and $10",
			want: []Segment{{Text: "Costs $5 and $10"}},
		},
		{
			in:   `open \(x`,
			want: []Segment{{Text: `open \(x`}},
		},
	}
	for _, tt := range tests {
		if got := SplitMath(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitMath(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestASCIIMath(t *testing.T) {
	tests := map[string]string{
		`\frac{1}{2} m v^{2}`: "1/2 m v^2",
		`\sqrt{x+1}`:          "sqrt(x+1)",
		`\frac{a+b}{c}`:       "(a+b)/c",
		`x \leq 3 \cdot y`:    "x <= 3 * y",
		`\pi r^2`:             "pi r^2",
		`\alpha + \beta`:      "alpha + beta",
	}
	for in, want := range tests {
		if got := ASCIIMath(in); got != want {
			t.Errorf("ASCIIMath(%q) = %q, want %q", in, got, want)
		}
	}

	if got := PlainText(`Area \(\pi r^{2}\) and θ`); got != "Area pi r^2 and theta" {
		t.Errorf("PlainText = %q", got)
	}
}
