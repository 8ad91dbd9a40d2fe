// Package phrase flattens a constituency parse tree into the multi-token
// phrases it contains.
package phrase

import (
	"fmt"
	"strings"
)

// Tree is a constituency parse node. Leaves carry the terminal word in Label
// and have no children.
type Tree struct {
	Label    string
	Children []*Tree
}

// IsLeaf reports whether t is a terminal.
func (t *Tree) IsLeaf() bool { return len(t.Children) == 0 }

// String renders the tree in bracketed notation.
func (t *Tree) String() string {
	if t == nil {
		return ""
	}
	if t.IsLeaf() {
		return t.Label
	}
	var sb strings.Builder
	sb.WriteString("(")
	sb.WriteString(t.Label)
	for _, c := range t.Children {
		sb.WriteString(" ")
		sb.WriteString(c.String())
	}
	sb.WriteString(")")
	return sb.String()
}

// Phrase is the yield of a non-terminal covering at least two tokens.
type Phrase struct {
	Text     string `json:"text"`
	Function string `json:"function"`
	Depth    int    `json:"depth"`
}

func (p Phrase) String() string {
	return fmt.Sprintf("%s > %s [%d]", p.Text, p.Function, p.Depth)
}

// Collect walks the tree post-order and returns every non-terminal whose
// yield has two or more tokens, labelled with its grammatical function and
// its depth from the root (root = 0). A nil tree yields no phrases.
func Collect(tree *Tree) []Phrase {
	var out []Phrase
	if tree != nil {
		collect(tree, 0, &out)
	}
	return out
}

func collect(node *Tree, depth int, out *[]Phrase) string {
	if node.IsLeaf() {
		return node.Label + " "
	}
	var sb strings.Builder
	for _, child := range node.Children {
		sb.WriteString(collect(child, depth+1, out))
	}
	text := sb.String()
	if len(strings.Fields(text)) > 1 {
		*out = append(*out, Phrase{
			Text:     strings.TrimSpace(text),
			Function: node.Label,
			Depth:    depth,
		})
	}
	return text
}

// MaxDepth returns the deepest phrase depth, 0 for none.
func MaxDepth(phrases []Phrase) int {
	depth := 0
	for _, p := range phrases {
		if p.Depth > depth {
			depth = p.Depth
		}
	}
	return depth
}
