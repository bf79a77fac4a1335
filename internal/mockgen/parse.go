package mockgen

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"mockpaper/pkg/models"
)

// DefaultTitle is used when a generated mock has no title.
const DefaultTitle = "Mock Exam Paper"

// ParseOutcome is the result of parsing a structured generation response.
// It is exactly one of ValidatedSpecs, RecoverableParseFailure or FatalParseFailure.
type ParseOutcome interface {
	parseOutcome()
}

// ValidatedSpecs holds mock specs that passed validation and repair.
type ValidatedSpecs struct {
	Specs []*models.MockSpec
}

// RecoverableParseFailure means the reply was JSON but did not describe mock
// papers. Note is a correction to send with a retry.
type RecoverableParseFailure struct {
	Err  error
	Note string
}

// FatalParseFailure means the reply held no usable JSON object at all.
type FatalParseFailure struct {
	Err error
}

func (ValidatedSpecs) parseOutcome()          {}
func (RecoverableParseFailure) parseOutcome() {}
func (FatalParseFailure) parseOutcome()       {}

// ParseResponse parses a raw structured-generation reply. It strips code
// fences, takes the first balanced JSON object, tolerates trailing commas and
// validates the payload against the mock paper schema, repairing what it can.
func ParseResponse(raw string) ParseOutcome {
	body := stripFences(raw)
	obj, ok := firstBalancedObject(body)
	if !ok {
		return FatalParseFailure{Err: ErrNoJSONObject}
	}

	set, err := decodeSet(obj)
	if err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return FatalParseFailure{Err: fmt.Errorf("invalid JSON: %w", err)}
		}
		return RecoverableParseFailure{
			Err:  fmt.Errorf("%w: %v", ErrSchemaMismatch, err),
			Note: schemaNote(err.Error()),
		}
	}

	specs, err := validateSet(set)
	if err != nil {
		return RecoverableParseFailure{Err: err, Note: schemaNote(err.Error())}
	}
	return ValidatedSpecs{Specs: specs}
}

func schemaNote(problem string) string {
	return fmt.Sprintf("Your previous reply did not match the required schema (%s). "+
		"Return one JSON object with a non-empty \"mocks\" array. Each mock needs a "+
		"\"sections\" array whose questions have \"id\", \"type\" and \"text\", and an "+
		"\"answer_key\" entry for every question id.", problem)
}

// stripFences removes a surrounding Markdown code fence.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimLeft(s, "`")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// firstBalancedObject returns the first {...} substring whose braces balance,
// ignoring braces inside JSON strings.
func firstBalancedObject(s string) (string, bool) {
	for start := strings.IndexByte(s, '{'); start >= 0; {
		depth := 0
		inString, escaped := false, false
		for i := start; i < len(s); i++ {
			c := s[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case c == '\\':
					escaped = true
				case c == '"':
					inString = false
				}
				continue
			}
			switch c {
			case '"':
				inString = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// removeTrailingCommas drops commas that directly precede a closing bracket,
// leaving string contents untouched.
func removeTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			b.WriteByte(c)
			continue
		}
		if c == '"' {
			inString = true
		}
		if c == ',' {
			j := i + 1
			for j < len(s) && strings.IndexByte(" \t\r\n", s[j]) >= 0 {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

type rawSet struct {
	Mocks []rawSpec `json:"mocks"`
}

type rawSpec struct {
	Title        flexString   `json:"title"`
	Instructions flexString   `json:"instructions"`
	Sections     []rawSection `json:"sections"`
	AnswerKey    []rawAnswer  `json:"answer_key"`
	Assets       []rawAsset   `json:"assets"`
}

type rawSection struct {
	Title     flexString    `json:"title"`
	Questions []rawQuestion `json:"questions"`
}

type rawQuestion struct {
	ID      flexString   `json:"id"`
	Type    flexString   `json:"type"`
	Marks   flexInt      `json:"marks"`
	Text    flexString   `json:"text"`
	Options []flexString `json:"options"`
	Correct any          `json:"correct"`
	Assets  []rawAsset   `json:"assets"`
}

type rawAnswer struct {
	ID       flexString `json:"id"`
	Answer   flexString `json:"answer"`
	Workings flexString `json:"workings"`
}

type rawAsset struct {
	QuestionID flexString `json:"question_id"`
	Kind       flexString `json:"kind"`
	Prompt     flexString `json:"prompt"`
}

// decodeSet decodes obj, retrying once without trailing commas on a syntax error.
// A bare mock object without the "mocks" wrapper is accepted as a single mock.
func decodeSet(obj string) (rawSet, error) {
	var set rawSet
	err := json.Unmarshal([]byte(obj), &set)
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		obj = removeTrailingCommas(obj)
		set = rawSet{}
		err = json.Unmarshal([]byte(obj), &set)
	}
	if err != nil {
		return rawSet{}, err
	}

	if len(set.Mocks) == 0 {
		var single rawSpec
		if json.Unmarshal([]byte(obj), &single) == nil && len(single.Sections) > 0 {
			set.Mocks = []rawSpec{single}
		}
	}
	return set, nil
}

func validateSet(set rawSet) ([]*models.MockSpec, error) {
	if len(set.Mocks) == 0 {
		return nil, fmt.Errorf("%w: \"mocks\" is missing or empty", ErrSchemaMismatch)
	}
	specs := make([]*models.MockSpec, 0, len(set.Mocks))
	for i, raw := range set.Mocks {
		spec, err := validateSpec(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: mock %d: %v", ErrSchemaMismatch, i+1, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func validateSpec(raw rawSpec) (*models.MockSpec, error) {
	spec := &models.MockSpec{
		Title:        strings.TrimSpace(string(raw.Title)),
		Instructions: strings.TrimSpace(string(raw.Instructions)),
	}
	if spec.Title == "" {
		spec.Title = DefaultTitle
	}
	if len(raw.Sections) == 0 {
		return nil, errors.New("no sections")
	}

	seen := make(map[string]bool)
	ordinal := 0
	var assets []rawAsset
	for si, rs := range raw.Sections {
		section := models.Section{Title: strings.TrimSpace(string(rs.Title))}
		if section.Title == "" {
			section.Title = fmt.Sprintf("Section %d", si+1)
		}
		for _, rq := range rs.Questions {
			text := strings.TrimSpace(string(rq.Text))
			if text == "" {
				continue
			}
			ordinal++
			id := strings.TrimSpace(string(rq.ID))
			if id == "" || seen[id] {
				n := ordinal
				id = fmt.Sprintf("q%d", n)
				for seen[id] {
					n++
					id = fmt.Sprintf("q%d", n)
				}
			}
			seen[id] = true

			q := models.Question{
				ID:      id,
				Type:    normalizeQuestionType(string(rq.Type)),
				Marks:   int(rq.Marks),
				Text:    text,
				Correct: rq.Correct,
			}
			for _, opt := range rq.Options {
				if o := strings.TrimSpace(string(opt)); o != "" {
					q.Options = append(q.Options, o)
				}
			}
			switch {
			case q.Type == models.QuestionMCQ && len(q.Options) == 0:
				q.Type = models.QuestionFree
			case q.Type == models.QuestionFree && len(q.Options) > 0:
				q.Type = models.QuestionMCQ
			}
			section.Questions = append(section.Questions, q)

			for _, a := range rq.Assets {
				if strings.TrimSpace(string(a.QuestionID)) == "" {
					a.QuestionID = flexString(id)
				}
				assets = append(assets, a)
			}
		}
		spec.Sections = append(spec.Sections, section)
	}
	if ordinal == 0 {
		return nil, errors.New("no questions with text")
	}

	answered := make(map[string]bool)
	for _, ra := range raw.AnswerKey {
		id := strings.TrimSpace(string(ra.ID))
		if !seen[id] || answered[id] {
			continue
		}
		answered[id] = true
		spec.AnswerKey = append(spec.AnswerKey, models.AnswerItem{
			ID:       id,
			Answer:   strings.TrimSpace(string(ra.Answer)),
			Workings: strings.TrimSpace(string(ra.Workings)),
		})
	}

	for _, a := range append(raw.Assets, assets...) {
		qid := strings.TrimSpace(string(a.QuestionID))
		prompt := strings.TrimSpace(string(a.Prompt))
		if !seen[qid] || prompt == "" {
			continue
		}
		kind := strings.TrimSpace(string(a.Kind))
		if kind == "" {
			kind = "image"
		}
		spec.Assets = append(spec.Assets, models.Asset{QuestionID: qid, Kind: kind, Prompt: prompt})
	}

	return spec, nil
}

func normalizeQuestionType(t string) models.QuestionType {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "mcq", "multiple_choice", "multiple-choice", "multiple choice", "multiplechoice", "choice":
		return models.QuestionMCQ
	default:
		return models.QuestionFree
	}
}

// flexString accepts a JSON string, number, bool, null or array of strings.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	s, err := stringValue(v)
	if err != nil {
		return err
	}
	*f = flexString(s)
	return nil
}

func stringValue(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(x), nil
	case []any:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			s, err := stringValue(item)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, "\n"), nil
	default:
		return "", fmt.Errorf("expected text, got a JSON object")
	}
}

// flexInt accepts a JSON number or a string starting with digits ("5", "5 marks").
// Anything else decodes as 0.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case float64:
		*f = flexInt(math.Round(x))
	case string:
		s := strings.TrimSpace(x)
		end := 0
		for end < len(s) && s[end] >= '0' && s[end] <= '9' {
			end++
		}
		n, _ := strconv.Atoi(s[:end])
		*f = flexInt(n)
	default:
		*f = 0
	}
	return nil
}
