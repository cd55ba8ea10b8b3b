package editor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cowrite/internal/document"
	"cowrite/internal/model"
)

func suggestion(id, original, suggested string) model.Suggestion {
	return model.Suggestion{ID: id, OriginalText: original, SuggestedText: suggested}
}

func TestResolve_FirstMatchInDocumentOrder(t *testing.T) {
	nodes := TextNodes(document.KindText, "The cat sat. The dog ran.")

	assert.Equal(t, Anchor{Start: 13, End: 25}, Resolve(nodes, "The dog ran."))
	assert.Equal(t, Anchor{Start: 0, End: 3}, Resolve(nodes, "The"))
}

func TestResolve_MissingTextIsDegenerate(t *testing.T) {
	nodes := TextNodes(document.KindText, "The cat sat.")

	assert.Equal(t, Anchor{}, Resolve(nodes, "The bird flew."))
	assert.Equal(t, Anchor{}, Resolve(nodes, ""))
	assert.Equal(t, Anchor{}, Resolve(nil, "anything"))
}

func TestTextNodes_MarkdownOffsets(t *testing.T) {
	content := "# Title\n\nHello world."
	nodes := TextNodes(document.KindText, content)
	require.Len(t, nodes, 2)
	assert.Equal(t, TextNode{Text: "Title", Pos: 2}, nodes[0])
	assert.Equal(t, TextNode{Text: "Hello world.", Pos: 9}, nodes[1])

	a := Resolve(nodes, "world")
	assert.Equal(t, "world", content[a.Start:a.End])
}

func TestResolve_CharacterOffsets(t *testing.T) {
	content := "Café au lait. The dog ran."
	nodes := TextNodes(document.KindText, content)

	a := Resolve(nodes, "The dog ran.")
	assert.Equal(t, Anchor{Start: 14, End: 26}, a)
	assert.Equal(t, "The dog ran.", string([]rune(content)[a.Start:a.End]))

	list := Project(document.KindCode, "// naïve\nx := 1", []model.Suggestion{suggestion("a", "x", "y")})
	assert.Equal(t, 9, list[0].SelectionStart)
	assert.Equal(t, 10, list[0].SelectionEnd)
}

func TestTextNodes_SoftLineBreakJoinsParagraph(t *testing.T) {
	content := "The cat\nsat. The dog ran.\n\nNext paragraph."
	nodes := TextNodes(document.KindText, content)
	require.Len(t, nodes, 2)
	assert.Equal(t, "The cat sat. The dog ran.", nodes[0].Text)
	assert.Equal(t, 0, nodes[0].Pos)
	assert.Equal(t, "Next paragraph.", nodes[1].Text)

	assert.Equal(t, Anchor{Start: 0, End: 12}, Resolve(nodes, "The cat sat."))
	assert.Equal(t, Anchor{Start: 27, End: 31}, Resolve(nodes, "Next"))
}

func TestTextNodes_CodeIsOneNode(t *testing.T) {
	content := "# not a heading\nprint(1)\n"
	nodes := TextNodes(document.KindCode, content)
	require.Len(t, nodes, 1)
	assert.Equal(t, content, nodes[0].Text)
}

func TestProject(t *testing.T) {
	list := Project(document.KindText, "The cat sat. The dog ran.", []model.Suggestion{
		suggestion("a", "cat", "kitten"),
		suggestion("b", "bird", "parrot"),
	})
	require.Len(t, list, 2)
	assert.Equal(t, 4, list[0].SelectionStart)
	assert.Equal(t, 7, list[0].SelectionEnd)
	assert.Equal(t, 0, list[1].SelectionStart)
	assert.Equal(t, 0, list[1].SelectionEnd)
}

func TestApply_MetaReplacesState(t *testing.T) {
	prev := State{Decorations: []Decoration{{ID: "a", From: 1, To: 2}}, Selected: "a"}
	meta := State{}

	next := Apply(prev, Transaction{Meta: &meta, Steps: []Step{{From: 0, To: 0, Text: "x"}}})
	assert.Empty(t, next.Decorations)
	assert.Empty(t, next.Selected)
	assert.Len(t, prev.Decorations, 1)
}

func TestApply_MapsDecorationsThroughEdits(t *testing.T) {
	prev := State{Decorations: []Decoration{{ID: "a", From: 17, To: 20}}, Selected: "a"}

	next := Apply(prev, Transaction{Steps: []Step{{From: 0, To: 0, Text: "Big "}}})
	assert.Equal(t, 21, next.Decorations[0].From)
	assert.Equal(t, 24, next.Decorations[0].To)
	assert.Equal(t, "a", next.Selected)

	// an insertion right at the widget moves it along
	next = Apply(prev, Transaction{Steps: []Step{{From: 20, To: 20, Text: "!"}}})
	assert.Equal(t, 21, next.Decorations[0].To)

	// edits after the span leave it alone
	next = Apply(prev, Transaction{Steps: []Step{{From: 22, To: 25, Text: ""}}})
	assert.Equal(t, 17, next.Decorations[0].From)
	assert.Equal(t, 20, next.Decorations[0].To)
}

func TestEditor_AcceptReplacesExactlyTheSpan(t *testing.T) {
	var saved []string
	resolved := make(chan string, 1)
	ed := New(document.KindText, "The cat sat. The dog ran.", Options{
		OnSave: func(content string) error {
			saved = append(saved, content)
			return nil
		},
		OnResolve: func(id string, accepted bool) {
			assert.True(t, accepted)
			resolved <- id
		},
	})
	ed.SetSuggestions([]model.Suggestion{
		suggestion("a", "dog", "fox"),
		suggestion("b", "cat", "kitten"),
	})

	require.NoError(t, ed.Accept("a"))
	assert.Equal(t, "The cat sat. The fox ran.", ed.Content())
	assert.Equal(t, []string{"The cat sat. The fox ran."}, saved)

	st := ed.State()
	require.Len(t, st.Decorations, 1)
	assert.Equal(t, "b", st.Decorations[0].ID)

	select {
	case id := <-resolved:
		assert.Equal(t, "a", id)
	case <-time.After(time.Second):
		t.Fatal("resolve callback not called")
	}
}

func TestEditor_AcceptUsesMappedSpan(t *testing.T) {
	ed := New(document.KindText, "The cat sat. The dog ran.", Options{Debounce: time.Hour})
	ed.SetSuggestions([]model.Suggestion{suggestion("a", "dog", "fox")})

	require.NoError(t, ed.Dispatch(Transaction{Steps: []Step{{From: 0, To: 0, Text: "Look! "}}}))
	require.NoError(t, ed.Accept("a"))
	assert.Equal(t, "Look! The cat sat. The fox ran.", ed.Content())
}

func TestEditor_AcceptAfterNonASCIIText(t *testing.T) {
	ed := New(document.KindText, "Café au lait. The dog ran.", Options{})
	ed.SetSuggestions([]model.Suggestion{suggestion("a", "dog", "fox")})

	require.NoError(t, ed.Accept("a"))
	assert.Equal(t, "Café au lait. The fox ran.", ed.Content())
}

func TestEditor_FailedAcceptKeepsDecoration(t *testing.T) {
	resolved := make(chan string, 1)
	ed := New(document.KindText, "short", Options{
		OnResolve: func(id string, _ bool) { resolved <- id },
	})
	stale := State{Decorations: []Decoration{{ID: "a", From: 2, To: 40}}}
	require.NoError(t, ed.Dispatch(Transaction{Meta: &stale}))

	assert.ErrorIs(t, ed.Accept("a"), ErrInvalidStep)
	assert.Equal(t, "short", ed.Content())
	_, ok := ed.State().Find("a")
	assert.True(t, ok)

	select {
	case id := <-resolved:
		t.Fatalf("suggestion %s resolved after a failed accept", id)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestApply_ResolvedDropsAfterMapping(t *testing.T) {
	prev := State{Decorations: []Decoration{{ID: "a", From: 4, To: 7}, {ID: "b", From: 17, To: 20}}, Selected: "a"}

	next := Apply(prev, Transaction{Steps: []Step{{From: 4, To: 7, Text: "kitten"}}, Resolved: "a"})
	require.Len(t, next.Decorations, 1)
	assert.Equal(t, Decoration{ID: "b", From: 20, To: 23}, next.Decorations[0])
	assert.Empty(t, next.Selected)
}

func TestEditor_DeclineLeavesContentUntouched(t *testing.T) {
	content := "The cat sat. The dog ran."
	saves := 0
	ed := New(document.KindText, content, Options{
		OnSave: func(string) error { saves++; return nil },
	})
	ed.SetSuggestions([]model.Suggestion{suggestion("a", "dog", "fox")})

	require.NoError(t, ed.Decline("a"))
	assert.Equal(t, content, ed.Content())
	assert.Empty(t, ed.State().Decorations)
	assert.Zero(t, saves)
}

func TestEditor_UnknownSuggestion(t *testing.T) {
	ed := New(document.KindText, "text", Options{})
	assert.ErrorIs(t, ed.Accept("missing"), ErrSuggestionNotFound)
	assert.ErrorIs(t, ed.Decline("missing"), ErrSuggestionNotFound)
}

func TestEditor_DuplicateIDLastRegisteredWins(t *testing.T) {
	ed := New(document.KindText, "one two", Options{})
	ed.SetSuggestions([]model.Suggestion{
		suggestion("a", "one", "1"),
		suggestion("a", "two", "2"),
	})

	require.NoError(t, ed.Accept("a"))
	assert.Equal(t, "one 2", ed.Content())
}

func TestEditor_DebouncedSaveCoalescesEdits(t *testing.T) {
	var mu sync.Mutex
	var saved []string
	ed := New(document.KindText, "", Options{
		Debounce: 20 * time.Millisecond,
		OnSave: func(content string) error {
			mu.Lock()
			defer mu.Unlock()
			saved = append(saved, content)
			return nil
		},
	})

	require.NoError(t, ed.Dispatch(Transaction{Steps: []Step{{From: 0, To: 0, Text: "a"}}}))
	require.NoError(t, ed.Dispatch(Transaction{Steps: []Step{{From: 1, To: 1, Text: "b"}}}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(saved) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []string{"ab"}, saved)
	mu.Unlock()
}

func TestEditor_RejectsOutOfRangeStep(t *testing.T) {
	ed := New(document.KindText, "abc", Options{})
	err := ed.Dispatch(Transaction{Steps: []Step{{From: 2, To: 9, Text: "x"}}})
	assert.ErrorIs(t, err, ErrInvalidStep)
	assert.Equal(t, "abc", ed.Content())
}
