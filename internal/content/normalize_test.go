package content

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wellFormed = `{
  "title": "Prompting 101",
  "sections": [
    {"type": "text", "heading": "Intro", "text": "Bienvenue"},
    {"type": "list", "items": ["a", "b"]},
    {"type": "code", "language": "python", "code": "print(1)"},
    {"type": "callout", "variant": "tip", "text": "Astuce"}
  ],
  "references": ["https://a.example", "https://b.example"],
  "quiz": [{"question": "Q?", "options": ["A", "B"], "answer": "B"}],
  "meta": {"continuations": 2, "maxContinuations": 5}
}`

func TestParse_WellFormed(t *testing.T) {
	doc, ok := Parse(wellFormed)
	require.True(t, ok)

	assert.Equal(t, "Prompting 101", doc.Title)
	require.Len(t, doc.Sections, 4)
	assert.Equal(t, TextSection{Heading: "Intro", Text: "Bienvenue"}, doc.Sections[0])
	assert.Equal(t, ListSection{Items: []string{"a", "b"}}, doc.Sections[1])
	assert.Equal(t, CodeSection{Language: "python", Code: "print(1)"}, doc.Sections[2])
	assert.Equal(t, CalloutSection{Variant: VariantTip, Text: "Astuce"}, doc.Sections[3])
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, doc.References)
	require.Len(t, doc.Quiz, 1)
	assert.Equal(t, "B", doc.Quiz[0].Answer)
	assert.Equal(t, Meta{Continuations: 2, MaxContinuations: 5}, doc.Meta)
}

func TestParse_RoundTripKeepsCounts(t *testing.T) {
	doc, ok := Parse(wellFormed)
	require.True(t, ok)

	out, err := json.Marshal(doc)
	require.NoError(t, err)

	again, ok := Parse(string(out))
	require.True(t, ok)
	assert.Len(t, again.Sections, 4)
	assert.Len(t, again.References, 2)
	assert.Len(t, again.Quiz, 1)
	assert.Equal(t, doc, again)
}

func TestParse_NoDocument(t *testing.T) {
	cases := map[string]string{
		"plain text":       "Intro",
		"empty":            "",
		"array":            `[{"sections": []}]`,
		"no sections":      `{"title": "x"}`,
		"sections object":  `{"sections": {"type": "text"}}`,
		"sections string":  `{"sections": "text"}`,
		"broken json":      `{"sections": [`,
		"trailing garbage": `{"sections": []} and more`,
		"number":           `42`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			doc, ok := Parse(raw)
			assert.False(t, ok)
			assert.Nil(t, doc)
		})
	}
}

func TestParse_EmptySectionsIsStillADocument(t *testing.T) {
	doc, ok := Parse(`  {"sections": []}  `)
	require.True(t, ok)
	assert.Empty(t, doc.Sections)
	assert.Equal(t, DefaultMaxContinuations, doc.Meta.MaxContinuations)
}

func TestNormalize_MalformedSectionsAreCoercedOrDropped(t *testing.T) {
	raw := `{"sections": [
		"not an object",
		null,
		42,
		{"type": "video", "url": "x"},
		{"heading": "no type"},
		{"type": "text", "text": {"nested": true}, "heading": 7},
		{"type": "text"},
		{"type": "list", "items": ["ok", 3, null, "", {"k": "v"}]},
		{"type": "list", "items": "not an array"},
		{"type": "code", "code": ["a"], "language": 12},
		{"type": "callout", "variant": "danger", "text": "careful"},
		{"type": ["text"]}
	]}`

	doc, ok := Parse(raw)
	require.True(t, ok)

	require.Len(t, doc.Sections, 6)
	assert.Equal(t, TextSection{Text: `{"nested":true}`}, doc.Sections[0])
	assert.Equal(t, TextSection{Text: ""}, doc.Sections[1])
	assert.Equal(t, ListSection{Items: []string{"ok", "3", `{"k":"v"}`}}, doc.Sections[2])
	assert.Equal(t, ListSection{Items: []string{}}, doc.Sections[3])
	assert.Equal(t, CodeSection{Language: DefaultCodeLanguage, Code: `["a"]`}, doc.Sections[4])
	assert.Equal(t, CalloutSection{Variant: VariantNote, Text: "careful"}, doc.Sections[5])
}

func TestNormalize_OutputNeverLongerThanInput(t *testing.T) {
	inputs := []string{
		`{"sections": [1, 2, 3]}`,
		`{"sections": [{"type": "text", "text": "a"}, {"type": "x"}]}`,
		`{"sections": [{"type": "list"}, {"type": "code"}, {"type": "callout"}, {"type": "text"}]}`,
	}
	for _, raw := range inputs {
		var v map[string]any
		require.NoError(t, json.Unmarshal([]byte(raw), &v))
		doc, ok := Normalize(v)
		require.True(t, ok)
		assert.LessOrEqual(t, len(doc.Sections), len(v["sections"].([]any)))
		for _, s := range doc.Sections {
			switch s.(type) {
			case TextSection, ListSection, CodeSection, CalloutSection:
			default:
				t.Fatalf("unexpected section type %T", s)
			}
		}
	}
}

func TestNormalize_References(t *testing.T) {
	doc, ok := Parse(`{"sections": [], "references": ["https://x", 1, null, {"url": "y"}, "z"]}`)
	require.True(t, ok)
	assert.Equal(t, []string{"https://x", "z"}, doc.References)

	doc, ok = Parse(`{"sections": [], "references": "https://x"}`)
	require.True(t, ok)
	assert.Empty(t, doc.References)
}

func TestNormalizeQuiz(t *testing.T) {
	var raw any
	require.NoError(t, json.Unmarshal([]byte(`[
		{"question": "Q1", "options": ["A", "B"], "answer": "B", "id": "q1"},
		{"question": "Q2", "options": ["A", "A", "", 5]},
		{"question": "Q3", "options": [], "answer": "A"},
		{"question": "", "options": ["A"]},
		{"options": ["A"]},
		{"question": "Q6", "options": ["A", "B"], "answer": 2, "id": 17, "orderIndex": 3},
		"nope"
	]`), &raw))

	qs := NormalizeQuiz(raw)
	require.Len(t, qs, 3)

	assert.Equal(t, "q1", qs[0].ID)
	assert.Equal(t, "B", qs[0].Answer)

	assert.Equal(t, []string{"A", "5"}, qs[1].Options)
	assert.Equal(t, "A", qs[1].Answer, "missing answer defaults to first option")

	assert.Equal(t, "17", qs[2].ID)
	assert.Equal(t, "A", qs[2].Answer, "non-string answer defaults to first option")
	require.NotNil(t, qs[2].OrderIndex)
	assert.Equal(t, 3, *qs[2].OrderIndex)

	assert.Nil(t, NormalizeQuiz("not a list"))
}

func TestNormalizeMeta(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Meta
	}{
		{"absent", `{"sections": []}`, Meta{0, 10}},
		{"non numeric", `{"sections": [], "meta": {"continuations": "3", "maxContinuations": true}}`, Meta{0, 10}},
		{"negative", `{"sections": [], "meta": {"continuations": -2, "maxContinuations": -1}}`, Meta{0, 10}},
		{"zero max", `{"sections": [], "meta": {"continuations": 1, "maxContinuations": 0}}`, Meta{1, 10}},
		{"fractional", `{"sections": [], "meta": {"continuations": 2.7, "maxContinuations": 4.2}}`, Meta{2, 4}},
		{"over cap", `{"sections": [], "meta": {"continuations": 12, "maxContinuations": 10}}`, Meta{10, 10}},
		{"meta not object", `{"sections": [], "meta": [1, 2]}`, Meta{0, 10}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc, ok := Parse(tc.raw)
			require.True(t, ok)
			assert.Equal(t, tc.want, doc.Meta)
		})
	}
}

func TestMeta_CapReached(t *testing.T) {
	assert.False(t, Meta{9, 10}.CapReached())
	assert.True(t, Meta{10, 10}.CapReached())
	assert.True(t, Meta{12, 10}.CapReached())
}
