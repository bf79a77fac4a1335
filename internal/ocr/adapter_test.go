package ocr

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"

	"mockpaper/pkg/models"
)

func testPage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	// A dark bar standing in for a line of text.
	for y := 20; y < 26; y++ {
		for x := 10; x < w-10; x++ {
			img.Set(x, y, color.Black)
		}
	}
	return img
}

func newFakeAdapter(cfg Config, engine *fakeEngine) *Adapter {
	cache := NewEngineCache(func(ctx context.Context, key EngineKey) (Engine, error) {
		return engine, nil
	})
	return NewAdapterWithCache(cfg, cache)
}

func TestAdapterRecognizeFiltersNormalizesAndSorts(t *testing.T) {
	engine := &fakeEngine{tokens: []models.RecognizedToken{
		{Text: "a.  Four", Confidence: 0.9, Box: models.BoundingBox{Left: 10, Top: 80}},
		{Text: "smudge", Confidence: 0.1, Box: models.BoundingBox{Left: 10, Top: 5}},
		{Text: "Q2. Which is  2 × 2?", Confidence: 0.8, Box: models.BoundingBox{Left: 10, Top: 40}},
		{Text: "   ", Confidence: 0.99, Box: models.BoundingBox{Left: 0, Top: 0}},
	}}
	cfg := DefaultConfig()
	a := newFakeAdapter(cfg, engine)

	tokens, err := a.Recognize(context.Background(), testPage(120, 100), "en")
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	got := JoinTokens(tokens)
	want := "Q2. Which is 2 x 2?\na. Four"
	if got != want {
		t.Fatalf("text = %q, want %q", got, want)
	}
}

func TestAdapterRescalesMagnifiedBoxes(t *testing.T) {
	engine := &fakeEngine{tokens: []models.RecognizedToken{
		{Text: "x", Confidence: 1, Box: models.BoundingBox{Left: 20, Top: 40, Right: 60, Bottom: 80}},
	}}
	cfg := DefaultConfig()
	cfg.MagRatio = 2
	a := newFakeAdapter(cfg, engine)

	tokens, err := a.Recognize(context.Background(), testPage(100, 50), "en")
	if err != nil {
		t.Fatal(err)
	}
	if engine.seen.Dx() != 200 || engine.seen.Dy() != 100 {
		t.Fatalf("engine saw %v, want magnified 200x100", engine.seen)
	}
	if b := tokens[0].Box; b.Left != 10 || b.Top != 20 || b.Right != 30 || b.Bottom != 40 {
		t.Fatalf("box not rescaled: %+v", b)
	}
}

func TestAdapterRecognizeErrors(t *testing.T) {
	a := newFakeAdapter(DefaultConfig(), &fakeEngine{err: errors.New("boom")})
	if _, err := a.Recognize(context.Background(), testPage(50, 50), "en"); err == nil {
		t.Fatal("expected engine error")
	}
	if _, err := a.Recognize(context.Background(), nil, "en"); !errors.Is(err, ErrEmptyImage) {
		t.Fatalf("err = %v, want ErrEmptyImage", err)
	}
}

func TestAdapterKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModelDir = "/srv/tessdata"
	cfg.Device = "gpu"
	a := NewAdapterWithCache(cfg, NewEngineCache(nil))
	key := a.Key("en+fr")
	if key.Backend != BackendTesseract || key.Languages != "en+fr" || key.Device != "cpu" || key.StoragePath != "/srv/tessdata" {
		t.Fatalf("unexpected key %+v", key)
	}

	cfg.Backend = BackendVision
	if key := NewAdapterWithCache(cfg, NewEngineCache(nil)).Key("en"); key.Device != "remote" || key.StoragePath != "" {
		t.Fatalf("unexpected cloud key %+v", key)
	}
}

func TestPreprocessBinarizes(t *testing.T) {
	out := Preprocess(testPage(80, 60), PreprocessOptions{MagRatio: 1})
	if out.Bounds().Dx() != 80 || out.Bounds().Dy() != 60 {
		t.Fatalf("bounds = %v", out.Bounds())
	}
	for _, p := range out.Pix {
		if p != 0 && p != 255 {
			t.Fatalf("pixel %d is not binary", p)
		}
	}
	if out.GrayAt(40, 22).Y != 0 {
		t.Errorf("text bar should stay black")
	}
	if out.GrayAt(40, 50).Y != 255 {
		t.Errorf("background should be white")
	}
}

func TestPreprocessRemovesSpeckles(t *testing.T) {
	page := testPage(80, 60)
	page.Set(40, 45, color.Black)
	page.Set(60, 10, color.Black)

	out := Preprocess(page, PreprocessOptions{MagRatio: 1})

	tests := []struct {
		name string
		x, y int
		want uint8
	}{
		{"speckle below text", 40, 45, 255},
		{"speckle above text", 60, 10, 255},
		{"text bar", 40, 22, 0},
		{"text bar edge row", 40, 21, 0},
	}
	for _, tt := range tests {
		if got := out.GrayAt(tt.x, tt.y).Y; got != tt.want {
			t.Errorf("%s: pixel (%d,%d) = %d, want %d", tt.name, tt.x, tt.y, got, tt.want)
		}
	}
}

func TestPreprocessMagnifies(t *testing.T) {
	out := Preprocess(testPage(80, 60), PreprocessOptions{MagRatio: 2})
	if out.Bounds() != image.Rect(0, 0, 160, 120) {
		t.Fatalf("bounds = %v", out.Bounds())
	}
	if out.GrayAt(80, 45).Y != 0 || out.GrayAt(80, 100).Y != 255 {
		t.Errorf("magnified page lost its text bar or background")
	}
}

func TestVisionTokens(t *testing.T) {
	annotation := &visionpb.TextAnnotation{
		Pages: []*visionpb.Page{{
			Blocks: []*visionpb.Block{{
				Paragraphs: []*visionpb.Paragraph{{
					Confidence: 0.87,
					BoundingBox: &visionpb.BoundingPoly{Vertices: []*visionpb.Vertex{
						{X: 10, Y: 30}, {X: 90, Y: 30}, {X: 90, Y: 45}, {X: 10, Y: 45},
					}},
					Words: []*visionpb.Word{
						{Symbols: []*visionpb.Symbol{{Text: "Q"}, {Text: "1"}}},
						{Symbols: []*visionpb.Symbol{{Text: "Solve"}}},
					},
				}},
			}},
		}},
	}
	tokens := visionTokens(annotation)
	if len(tokens) != 1 || tokens[0].Text != "Q1 Solve" {
		t.Fatalf("tokens = %+v", tokens)
	}
	if b := tokens[0].Box; b.Left != 10 || b.Top != 30 || b.Right != 90 || b.Bottom != 45 {
		t.Fatalf("box = %+v", b)
	}
}

func TestDocumentTokens(t *testing.T) {
	doc := &documentaipb.Document{
		Text: "Q1. Solve\nb. Two\n",
		Pages: []*documentaipb.Document_Page{{
			Paragraphs: []*documentaipb.Document_Page_Paragraph{{
				Layout: &documentaipb.Document_Page_Layout{
					TextAnchor: &documentaipb.Document_TextAnchor{
						TextSegments: []*documentaipb.Document_TextAnchor_TextSegment{{StartIndex: 10, EndIndex: 16}},
					},
					Confidence: 0.9,
					BoundingPoly: &documentaipb.BoundingPoly{NormalizedVertices: []*documentaipb.NormalizedVertex{
						{X: 0.1, Y: 0.5}, {X: 0.5, Y: 0.5}, {X: 0.5, Y: 0.6}, {X: 0.1, Y: 0.6},
					}},
				},
			}},
		}},
	}
	tokens := documentTokens(doc, 200, 100)
	if len(tokens) != 1 || tokens[0].Text != "b. Two" {
		t.Fatalf("tokens = %+v", tokens)
	}
	if b := tokens[0].Box; b.Left < 19.9 || b.Left > 20.1 || b.Top < 49.9 || b.Top > 50.1 {
		t.Fatalf("box = %+v", b)
	}
}
