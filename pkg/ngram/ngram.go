// Package ngram builds the sequence features of a sentence: boundary-marked
// n-grams, unordered word couples and the argumentative linkers it uses.
package ngram

import (
	"strings"

	"github.com/japaniel/argfeat/pkg/lexicon"
)

// Synthetic boundary markers placed before the first and after the last token.
const (
	Init = "$init$"
	End  = "$end$"
)

// Join concatenates parts with the n-gram delimiter.
func Join(parts ...string) string {
	return strings.Join(parts, lexicon.Delimiter)
}

// Bigrams returns the boundary-marked bigrams of tokens:
// $init$-t0, t0-t1, ..., tN-1-$end$. N tokens yield N+1 bigrams; an empty
// input yields none.
func Bigrams(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}
	out := make([]string, 0, len(tokens)+1)
	prev := Init
	for _, t := range tokens {
		out = append(out, Join(prev, t))
		prev = t
	}
	return append(out, Join(prev, End))
}

// Trigrams returns the boundary-marked trigrams of tokens, one ending at each
// bigram: $init$-$init$-t0, $init$-t0-t1, ..., tN-2-tN-1-$end$. N tokens
// yield N+1 trigrams.
func Trigrams(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}
	padded := make([]string, 0, len(tokens)+3)
	padded = append(padded, Init, Init)
	padded = append(padded, tokens...)
	padded = append(padded, End)

	out := make([]string, 0, len(tokens)+1)
	for i := 2; i < len(padded); i++ {
		out = append(out, Join(padded[i-2], padded[i-1], padded[i]))
	}
	return out
}

// WordCouples returns every pair tokens[i]-tokens[j] with i < j, without
// duplicates, in first-seen order. This is O(n²) in sentence length; that is
// fine for sentences of a few dozen tokens but should not be fed whole
// documents.
func WordCouples(tokens []string) []string {
	if len(tokens) < 2 {
		return nil
	}
	seen := make(map[string]struct{}, len(tokens)*(len(tokens)-1)/2)
	var out []string
	for i := 0; i < len(tokens)-1; i++ {
		for j := i + 1; j < len(tokens); j++ {
			pair := Join(tokens[i], tokens[j])
			if _, ok := seen[pair]; ok {
				continue
			}
			seen[pair] = struct{}{}
			out = append(out, pair)
		}
	}
	return out
}

// MatchLinkers scans tokens left to right and returns the surface forms of
// the lexicon entries found, each at most once, in first-seen order.
//
// At every position the entries are tried in the order given and the first
// match wins; the scan then resumes after the matched span. Callers must pass
// the lexicon longest-first (Taxonomy.Lexicon(true)) to get greedy
// longest-match, otherwise "sin" may win over "sin embargo".
func MatchLinkers(tokens []string, lex []lexicon.Entry) []string {
	if len(tokens) == 0 || len(lex) == 0 {
		return nil
	}
	keys := make([]string, len(lex))
	for j, e := range lex {
		keys[j] = e.Key()
	}

	var found []string
	seen := make(map[string]struct{})
	// window keys of the current position, by length
	windows := make(map[int]string)

	for i := 0; i < len(tokens); i++ {
		clear(windows)
		for j, e := range lex {
			if e.Tokens == 0 || i+e.Tokens > len(tokens) {
				continue
			}
			w, ok := windows[e.Tokens]
			if !ok {
				w = lexicon.NormalizeKey(tokens[i : i+e.Tokens])
				windows[e.Tokens] = w
			}
			if w != keys[j] {
				continue
			}
			if _, dup := seen[e.Linker]; !dup {
				seen[e.Linker] = struct{}{}
				found = append(found, e.Linker)
			}
			i += e.Tokens - 1
			break
		}
	}
	return found
}
