package quiz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parcours/internal/content"
)

func threeQuestions() []content.QuizQuestion {
	return []content.QuizQuestion{
		{Question: "Q1", Options: []string{"A", "X"}, Answer: "A"},
		{Question: "Q2", Options: []string{"B", "X"}, Answer: "B"},
		{Question: "Q3", Options: []string{"C", "X"}, Answer: "C"},
	}
}

func keysOf(e *Engine) []string {
	var keys []string
	for _, st := range e.State() {
		keys = append(keys, st.Key)
	}
	return keys
}

func TestEngine_Scoring(t *testing.T) {
	e := NewEngine(threeQuestions())
	require.Equal(t, []string{"0", "1", "2"}, keysOf(e))

	for key, opt := range map[string]string{"0": "A", "1": "X", "2": "C"} {
		require.True(t, e.Select(key, opt))
		require.True(t, e.Validate(key))
	}

	assert.Equal(t, Score{Correct: 2, Total: 3}, e.Score())
}

func TestEngine_OnlyValidatedAnswersCount(t *testing.T) {
	e := NewEngine(threeQuestions())
	require.True(t, e.Select("0", "A"))
	assert.Equal(t, Score{Correct: 0, Total: 3}, e.Score())

	require.True(t, e.Validate("0"))
	assert.Equal(t, Score{Correct: 1, Total: 3}, e.Score())
}

func TestEngine_ValidateIsTerminal(t *testing.T) {
	e := NewEngine(threeQuestions())
	require.True(t, e.Select("1", "B"))
	require.True(t, e.Validate("1"))
	before := e.Score()

	assert.False(t, e.Validate("1"), "second validate is a no-op")
	assert.Equal(t, before, e.Score())

	assert.False(t, e.Select("1", "X"), "no answer change after validation")
	assert.Equal(t, before, e.Score())
}

func TestEngine_Preconditions(t *testing.T) {
	e := NewEngine(threeQuestions())

	assert.False(t, e.Validate("0"), "nothing selected")
	assert.False(t, e.Select("0", "Z"), "unknown option")
	assert.False(t, e.Select("9", "A"), "unknown key")
	assert.False(t, e.Validate("9"))

	require.True(t, e.Select("0", "X"))
	require.True(t, e.Select("0", "A"), "selection may be overwritten before validation")
	require.True(t, e.Validate("0"))
	assert.Equal(t, 1, e.Score().Correct)
}

func TestEngine_KeysPreferIDThenOrderIndex(t *testing.T) {
	two := 2
	e := NewEngine([]content.QuizQuestion{
		{ID: "q-a", Question: "a", Options: []string{"1"}, Answer: "1"},
		{OrderIndex: &two, Question: "b", Options: []string{"1"}, Answer: "1"},
		{Question: "c", Options: []string{"1"}, Answer: "1"},
		{ID: "q-a", Question: "dup", Options: []string{"1"}, Answer: "1"},
	})
	assert.Equal(t, []string{"q-a", "2", "#2", "#3"}, keysOf(e), "duplicates fall back to a positional key")
}

func TestEngine_FallbackKeyCollidesWithID(t *testing.T) {
	e := NewEngine([]content.QuizQuestion{
		{ID: "#1", Question: "a", Options: []string{"A", "X"}, Answer: "A"},
		{ID: "#1", Question: "b", Options: []string{"B", "X"}, Answer: "B"},
	})
	keys := keysOf(e)
	require.Len(t, keys, 2)
	assert.Equal(t, "#1", keys[0])
	assert.NotEqual(t, keys[0], keys[1])

	require.True(t, e.Select(keys[0], "A"))
	require.True(t, e.Validate(keys[0]))
	require.True(t, e.Select(keys[1], "X"))
	require.True(t, e.Validate(keys[1]))
	assert.Equal(t, Score{Correct: 1, Total: 2}, e.Score())
}

func TestEngine_State(t *testing.T) {
	e := NewEngine(threeQuestions())
	require.True(t, e.Select("0", "X"))
	require.True(t, e.Validate("0"))
	require.True(t, e.Select("1", "B"))

	st := e.State()
	require.Len(t, st, 3)

	require.NotNil(t, st[0].Selected)
	assert.Equal(t, "X", *st[0].Selected)
	require.NotNil(t, st[0].Correct)
	assert.False(t, *st[0].Correct)
	assert.Equal(t, "A", st[0].Answer)

	assert.False(t, st[1].Validated)
	assert.Nil(t, st[1].Correct)
	assert.Empty(t, st[1].Answer, "answer hidden until validated")

	assert.Nil(t, st[2].Selected)
}

func TestStore_ScopedPerSession(t *testing.T) {
	s := NewStore()
	qs := threeQuestions()

	a := s.Reset("s1", ScopeModule, "m1", qs)
	b := s.Reset("s2", ScopeModule, "m1", qs)
	require.True(t, a.Select("0", "A"))
	require.True(t, a.Validate("0"))

	assert.Equal(t, 1, s.Get("s1", ScopeModule, "m1").Score().Correct)
	assert.Equal(t, 0, b.Score().Correct)
	assert.Nil(t, s.Get("s1", ScopeLesson, "m1"))

	s.DropSession("s1")
	assert.Nil(t, s.Get("s1", ScopeModule, "m1"))
	assert.NotNil(t, s.Get("s2", ScopeModule, "m1"))

	_, ok := ParseScope("lesson")
	assert.True(t, ok)
	_, ok = ParseScope("course")
	assert.False(t, ok)
}
