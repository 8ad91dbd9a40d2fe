package phrase

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrEmptyTree is returned by Parse for blank input.
var ErrEmptyTree = errors.New("empty tree")

// Parse reads a tree in Penn Treebank bracketed notation, e.g.
//
//	(ROOT (S (NP (DT El) (NN gasto)) (VP (VBZ es) (ADJP (JJ alto)))))
//
// as printed by CoreNLP, Stanza and most constituency parsers. An unlabelled
// outer bracket "( (S ...))" is accepted.
func Parse(s string) (*Tree, error) {
	toks := lex(s)
	if len(toks) == 0 {
		return nil, ErrEmptyTree
	}
	p := &parser{toks: toks}
	t, err := p.node()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, fmt.Errorf("unexpected %q after tree at token %d", p.toks[p.pos], p.pos)
	}
	// drop the anonymous wrapper
	if t.Label == "" && len(t.Children) == 1 {
		t = t.Children[0]
	}
	return t, nil
}

func lex(s string) []string {
	var toks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '(' || r == ')':
			flush()
			toks = append(toks, string(r))
		case unicode.IsSpace(r):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return toks
}

type parser struct {
	toks []string
	pos  int
}

func (p *parser) node() (*Tree, error) {
	if p.pos >= len(p.toks) {
		return nil, errors.New("unexpected end of tree")
	}
	tok := p.toks[p.pos]
	if tok == ")" {
		return nil, fmt.Errorf("unexpected ')' at token %d", p.pos)
	}
	p.pos++
	if tok != "(" {
		return &Tree{Label: tok}, nil
	}

	t := &Tree{}
	if p.pos < len(p.toks) && p.toks[p.pos] != "(" && p.toks[p.pos] != ")" {
		t.Label = p.toks[p.pos]
		p.pos++
	}
	for {
		if p.pos >= len(p.toks) {
			return nil, errors.New("unbalanced brackets")
		}
		if p.toks[p.pos] == ")" {
			p.pos++
			return t, nil
		}
		child, err := p.node()
		if err != nil {
			return nil, err
		}
		t.Children = append(t.Children, child)
	}
}
