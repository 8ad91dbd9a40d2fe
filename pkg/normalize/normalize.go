// Package normalize decides what each raw token becomes before feature
// extraction: a punctuation mark, a (possibly rewritten) content word, or
// nothing at all.
package normalize

import (
	"regexp"
	"strings"
	"time"
	"unicode"
)

// Placeholders that replace numbers, dates and times in the content stream.
const (
	NumberToken = "$number$"
	DateToken   = "$date$"
	TimeToken   = "$time$"
)

// SpecialPunct lists characters that make a token punctuation whatever its tag.
const SpecialPunct = "¡!¿?'%:"

// Universal POS tags the extractor cares about.
const (
	TagPunct = "PUNCT"
	TagVerb  = "VERB"
	TagAdv   = "ADV"
	TagAux   = "AUX"
	TagNoun  = "NOUN"
)

const timeLayout = "15:04"

// Kind is the outcome of classifying a token.
type Kind int

const (
	Discarded Kind = iota
	Punctuation
	Content
)

func (k Kind) String() string {
	switch k {
	case Punctuation:
		return "punctuation"
	case Content:
		return "content"
	default:
		return "discarded"
	}
}

// Result is a classified token.
type Result struct {
	Kind Kind
	Text string
}

var numericRE = regexp.MustCompile(`^[+-]?\d+([.,]\d+)*$`)

// DefaultBlacklist holds markup leftovers that are never content words.
var DefaultBlacklist = []string{"_", "nbsp", "&nbsp;", "&amp;", "&quot;", "&lt;", "&gt;"}

// Normalizer classifies tokens for one language. It holds no per-sentence
// state and is safe for concurrent use.
type Normalizer struct {
	language   string
	dateLayout string
	blacklist  map[string]struct{}
}

// New returns a Normalizer for the language code (e.g. "es", "en"). The
// blacklist defaults to DefaultBlacklist when nil.
func New(language string, blacklist []string) *Normalizer {
	if blacklist == nil {
		blacklist = DefaultBlacklist
	}
	bl := make(map[string]struct{}, len(blacklist))
	for _, w := range blacklist {
		bl[strings.ToLower(w)] = struct{}{}
	}
	return &Normalizer{
		language:   language,
		dateLayout: DateLayout(language),
		blacklist:  bl,
	}
}

// Language returns the language code the normalizer was built for.
func (n *Normalizer) Language() string { return n.language }

// DateLayout returns the date layout for a language: month first for
// English, day first for everything else.
func DateLayout(language string) string {
	if language == "en" {
		return "1/2/2006"
	}
	return "2/1/2006"
}

// Classify routes one token. Punctuation is cleaned and never enters the
// content stream; numbers, dates and times are replaced by placeholders;
// what survives the validity filter is content.
func (n *Normalizer) Classify(word, pos string) Result {
	if IsPunctuation(word, pos) {
		return Result{Kind: Punctuation, Text: CleanPunctuation(word)}
	}

	switch {
	case IsNumeric(word):
		word = NumberToken
	case IsDateTime(word, n.dateLayout):
		word = DateToken
	case IsDateTime(word, timeLayout):
		word = TimeToken
	}

	if !n.IsValidToken(word) {
		return Result{Kind: Discarded, Text: word}
	}
	return Result{Kind: Content, Text: word}
}

// IsPunctuation reports whether a token is routed to the punctuation list.
// Abbreviations such as "etc." keep their word status even when tagged PUNCT.
func IsPunctuation(word, pos string) bool {
	if word == "" {
		return false
	}
	if pos == TagPunct && !strings.HasPrefix(strings.ToLower(word), "etc") {
		return true
	}
	first := []rune(word)[0]
	return strings.ContainsRune(SpecialPunct, first)
}

// IsNumeric reports whether word is a plain number, with optional sign and
// "." or "," separators.
func IsNumeric(word string) bool {
	return numericRE.MatchString(word)
}

// IsDateTime reports whether word parses strictly with the given layout.
func IsDateTime(word, layout string) bool {
	if word == "" || !strings.ContainsAny(word, "/:") {
		return false
	}
	_, err := time.Parse(layout, word)
	return err == nil
}

// IsValidToken rejects empty, blacklisted and symbol-only tokens.
func (n *Normalizer) IsValidToken(word string) bool {
	w := strings.TrimSpace(word)
	if w == "" {
		return false
	}
	if _, ok := n.blacklist[strings.ToLower(w)]; ok {
		return false
	}
	if w == NumberToken || w == DateToken || w == TimeToken {
		return true
	}
	for _, r := range w {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// treebank escapes produced by constituency parsers and tokenizers
var punctEscapes = map[string]string{
	"-LRB-": "(", "-RRB-": ")",
	"-LSB-": "[", "-RSB-": "]",
	"-LCB-": "{", "-RCB-": "}",
	"``": "\"", "''": "\"",
}

const enclosingQuotes = "\"“”«»"

// CleanPunctuation undoes treebank escapes and strips quote characters
// wrapped around a punctuation mark (e.g. `"¿"` becomes `¿`). A mark that is
// itself only quotes is returned as a single quote.
func CleanPunctuation(mark string) string {
	mark = strings.TrimSpace(mark)
	if v, ok := punctEscapes[strings.ToUpper(mark)]; ok {
		return v
	}
	trimmed := strings.Trim(mark, enclosingQuotes)
	if trimmed == "" {
		if mark == "" {
			return ""
		}
		return "\""
	}
	return trimmed
}

// Bucket names the POS-specific list a content word joins, or "" for none.
type Bucket string

const (
	NoBucket   Bucket = ""
	VerbBucket Bucket = "verbs"
	AdvBucket  Bucket = "adverbs"
	AuxBucket  Bucket = "modal_auxs"
	NounBucket Bucket = "nouns"
)

// POSBucket assigns a content word to a POS bucket. Verbs need at least two
// characters so clitics split off by the tokenizer do not count.
func POSBucket(word, pos string) Bucket {
	switch pos {
	case TagVerb:
		if len([]rune(word)) > 1 {
			return VerbBucket
		}
	case TagAdv:
		return AdvBucket
	case TagAux:
		return AuxBucket
	case TagNoun:
		return NounBucket
	}
	return NoBucket
}
