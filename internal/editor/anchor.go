package editor

import (
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"cowrite/internal/document"
	"cowrite/internal/model"
)

// TextNode is a run of document text as a reader sees it. Pos is the
// character offset of the run in the document source; a soft line break
// inside a paragraph reads as a single space.
type TextNode struct {
	Text string
	Pos  int
	// offsets holds the source character offset of every rune of Text when
	// the run is not contiguous in the source.
	offsets []int
}

func (n TextNode) offset(i int) int {
	if n.offsets == nil {
		return n.Pos + i
	}
	return n.offsets[i]
}

// Anchor is a half-open character range [Start, End) of the document source.
type Anchor struct {
	Start int
	End   int
}

// UISuggestion is a stored suggestion with its live anchor.
type UISuggestion struct {
	model.Suggestion
	SelectionStart int `json:"selectionStart"`
	SelectionEnd   int `json:"selectionEnd"`
}

var markdown = goldmark.New()

// TextNodes lists the text runs of a document in document order. Markdown
// documents are parsed and each inline text run or code line becomes a node;
// code documents are a single node.
func TextNodes(kind document.Kind, content string) []TextNode {
	if content == "" {
		return nil
	}
	if kind == document.KindCode {
		return []TextNode{{Text: content, Pos: 0}}
	}

	source := []byte(content)
	root := markdown.Parser().Parse(text.NewReader(source))

	// chars[b] is the character offset of byte b.
	chars := make([]int, len(source)+1)
	count := 0
	for b := range content {
		chars[b] = count
		count++
	}
	chars[len(source)] = count

	var nodes []*nodeBuilder
	joinNext := false
	add := func(start, stop int, softBreak bool) {
		var cur *nodeBuilder
		if k := len(nodes); k > 0 && (joinNext || (start < stop && nodes[k-1].end() == chars[start])) {
			cur = nodes[k-1]
		} else if start < stop {
			cur = &nodeBuilder{}
			nodes = append(nodes, cur)
		}
		if cur == nil {
			return
		}
		for b, r := range content[start:stop] {
			cur.push(r, chars[start+b])
		}
		joinNext = softBreak
		if softBreak {
			cur.push(' ', chars[stop])
		}
	}

	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			add(node.Segment.Start, node.Segment.Stop, node.SoftLineBreak())
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			joinNext = false
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				add(seg.Start, seg.Stop, false)
			}
			return ast.WalkSkipChildren, nil
		default:
			if node.Type() == ast.TypeBlock {
				joinNext = false
			}
		}
		return ast.WalkContinue, nil
	})

	out := make([]TextNode, 0, len(nodes))
	for _, b := range nodes {
		out = append(out, b.node())
	}
	return out
}

type nodeBuilder struct {
	text    strings.Builder
	offsets []int
}

func (b *nodeBuilder) push(r rune, offset int) {
	b.text.WriteRune(r)
	b.offsets = append(b.offsets, offset)
}

// end is the source offset just past the last rune.
func (b *nodeBuilder) end() int {
	return b.offsets[len(b.offsets)-1] + 1
}

func (b *nodeBuilder) node() TextNode {
	n := TextNode{Text: b.text.String(), Pos: b.offsets[0]}
	for i, off := range b.offsets {
		if off != n.Pos+i {
			n.offsets = b.offsets
			break
		}
	}
	return n
}

// Resolve scans nodes in order and anchors originalText at its first literal
// occurrence. A missing or empty text yields the degenerate anchor [0, 0).
func Resolve(nodes []TextNode, originalText string) Anchor {
	if originalText == "" {
		return Anchor{}
	}
	length := utf8.RuneCountInString(originalText)
	for _, node := range nodes {
		if idx := strings.Index(node.Text, originalText); idx >= 0 {
			first := utf8.RuneCountInString(node.Text[:idx])
			return Anchor{Start: node.offset(first), End: node.offset(first+length-1) + 1}
		}
	}
	return Anchor{}
}

// Project anchors every suggestion against the current content.
func Project(kind document.Kind, content string, suggestions []model.Suggestion) []UISuggestion {
	nodes := TextNodes(kind, content)
	out := make([]UISuggestion, 0, len(suggestions))
	for _, s := range suggestions {
		a := Resolve(nodes, s.OriginalText)
		out = append(out, UISuggestion{Suggestion: s, SelectionStart: a.Start, SelectionEnd: a.End})
	}
	return out
}
