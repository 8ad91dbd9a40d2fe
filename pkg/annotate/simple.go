package annotate

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/japaniel/argfeat/pkg/normalize"
)

// tokenRE splits words (with inner apostrophes and hyphens), numbers with
// separators, and any other non-space rune as a single mark.
var tokenRE = regexp.MustCompile(`[\p{L}\p{M}]+(?:['’-][\p{L}\p{M}]+)*\.?|\d+(?:[.,/:]\d+)*|[^\s\p{L}\p{M}\d]`)

var sentenceEndRE = regexp.MustCompile(`[.!?…]+["”»)]*\s+|\n+`)

// Simple is a rule-based annotator for Spanish and English: a regexp
// tokenizer, a closed-class POS lexicon and suffix rules. It has no parser;
// entities are guessed from capitalization. Good enough for smoke runs and
// tests, not for real corpora.
//
// Simple holds no mutable state and is safe for concurrent use.
type Simple struct {
	language string
	closed   map[string]string
}

// NewSimple returns a Simple annotator; unknown languages get the English
// closed-class lexicon.
func NewSimple(language string) *Simple {
	closed, ok := closedClass[language]
	if !ok {
		closed = closedClass["en"]
	}
	return &Simple{language: language, closed: closed}
}

// Language implements Annotator.
func (s *Simple) Language() string { return s.language }

// Annotate implements Annotator.
func (s *Simple) Annotate(ctx context.Context, text string) (*Annotation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	words := Tokenize(text)
	ann := &Annotation{Tokens: make([]Token, 0, len(words))}
	for _, w := range words {
		ann.Tokens = append(ann.Tokens, Token{Word: w, POS: s.tag(w)})
	}
	ann.Entities = guessEntities(ann.Tokens)
	return ann, nil
}

// SplitSentences implements Annotator.
func (s *Simple) SplitSentences(ctx context.Context, text string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []string
	last := 0
	for _, loc := range sentenceEndRE.FindAllStringIndex(text, -1) {
		if sent := strings.TrimSpace(text[last:loc[1]]); sent != "" {
			out = append(out, sent)
		}
		last = loc[1]
	}
	if sent := strings.TrimSpace(text[last:]); sent != "" {
		out = append(out, sent)
	}
	return out, nil
}

// Tokenize splits text the way Simple does. A trailing period stays on a
// word only for known abbreviations such as "etc.".
func Tokenize(text string) []string {
	var out []string
	for _, tok := range tokenRE.FindAllString(text, -1) {
		if strings.HasSuffix(tok, ".") && len(tok) > 1 && !isAbbreviation(tok) {
			out = append(out, strings.TrimSuffix(tok, "."), ".")
			continue
		}
		out = append(out, tok)
	}
	return out
}

var abbreviations = map[string]struct{}{
	"etc.": {}, "sr.": {}, "sra.": {}, "dr.": {}, "dra.": {}, "mr.": {}, "mrs.": {}, "vs.": {}, "pág.": {},
}

func isAbbreviation(tok string) bool {
	_, ok := abbreviations[strings.ToLower(tok)]
	return ok
}

func (s *Simple) tag(w string) string {
	first := []rune(w)[0]
	switch {
	case isAbbreviation(w):
		return "X"
	case unicode.IsDigit(first):
		return "NUM"
	case !unicode.IsLetter(first):
		return "PUNCT"
	}
	lower := strings.ToLower(w)
	if pos, ok := s.closed[lower]; ok {
		return pos
	}
	switch s.language {
	case "es":
		if strings.HasSuffix(lower, "mente") && len(lower) > 6 {
			return "ADV"
		}
		for _, suf := range []string{"ar", "er", "ir", "ando", "iendo", "ado", "ido"} {
			if strings.HasSuffix(lower, suf) && len(lower) > len(suf)+2 {
				return "VERB"
			}
		}
	default:
		if strings.HasSuffix(lower, "ly") && len(lower) > 4 {
			return "ADV"
		}
		for _, suf := range []string{"ing", "ed"} {
			if strings.HasSuffix(lower, suf) && len(lower) > len(suf)+2 {
				return "VERB"
			}
		}
	}
	if unicode.IsUpper(first) {
		return "PROPN"
	}
	return "NOUN"
}

// guessEntities reports runs of capitalized tokens. The first token of the
// sentence only counts when it is all caps; all-caps runs are organizations.
func guessEntities(tokens []Token) []normalize.Entity {
	var out []normalize.Entity
	var run []string
	allCaps := true
	flush := func() {
		if len(run) > 0 {
			kind := "MISC"
			if allCaps {
				kind = "ORGANIZATION"
			}
			out = append(out, normalize.Entity{Text: strings.Join(run, " "), Type: kind})
		}
		run, allCaps = nil, true
	}
	for i, t := range tokens {
		r := []rune(t.Word)
		if t.POS == "PUNCT" || t.POS == "NUM" || !unicode.IsUpper(r[0]) {
			flush()
			continue
		}
		caps := len(r) > 1 && strings.ToUpper(t.Word) == t.Word
		if i == 0 && !caps {
			continue
		}
		run = append(run, t.Word)
		allCaps = allCaps && caps
	}
	flush()
	return out
}

var closedClass = map[string]map[string]string{
	"es": {
		"el": "DET", "la": "DET", "los": "DET", "las": "DET", "un": "DET", "una": "DET",
		"unos": "DET", "unas": "DET", "este": "DET", "esta": "DET", "estos": "DET", "estas": "DET",
		"ese": "DET", "esa": "DET", "su": "DET", "sus": "DET", "mi": "DET", "tu": "DET",
		"a": "ADP", "al": "ADP", "ante": "ADP", "con": "ADP", "contra": "ADP", "de": "ADP",
		"del": "ADP", "desde": "ADP", "en": "ADP", "entre": "ADP", "hacia": "ADP", "hasta": "ADP",
		"para": "ADP", "por": "ADP", "según": "ADP", "sin": "ADP", "sobre": "ADP", "tras": "ADP",
		"y": "CCONJ", "e": "CCONJ", "o": "CCONJ", "u": "CCONJ", "ni": "CCONJ", "pero": "CCONJ",
		"sino": "CCONJ", "que": "SCONJ", "porque": "SCONJ", "aunque": "SCONJ", "si": "SCONJ",
		"cuando": "SCONJ", "como": "SCONJ", "pues": "SCONJ",
		"yo": "PRON", "tú": "PRON", "él": "PRON", "ella": "PRON", "nosotros": "PRON", "ellos": "PRON",
		"ellas": "PRON", "se": "PRON", "lo": "PRON", "le": "PRON", "les": "PRON", "me": "PRON",
		"te": "PRON", "nos": "PRON", "esto": "PRON", "eso": "PRON",
		"es": "AUX", "son": "AUX", "era": "AUX", "fue": "AUX", "ser": "AUX", "está": "AUX",
		"están": "AUX", "estar": "AUX", "ha": "AUX", "han": "AUX", "he": "AUX", "hemos": "AUX",
		"haber": "AUX", "puede": "AUX", "pueden": "AUX", "debe": "AUX", "deben": "AUX",
		"debería": "AUX", "podría": "AUX", "sería": "AUX",
		"no": "ADV", "muy": "ADV", "más": "ADV", "menos": "ADV", "también": "ADV", "ya": "ADV",
		"siempre": "ADV", "nunca": "ADV", "además": "ADV", "embargo": "NOUN", "aquí": "ADV",
		"hay": "VERB",
	},
	"en": {
		"the": "DET", "a": "DET", "an": "DET", "this": "DET", "that": "DET", "these": "DET",
		"those": "DET", "his": "DET", "her": "DET", "its": "DET", "their": "DET", "our": "DET",
		"of": "ADP", "in": "ADP", "on": "ADP", "at": "ADP", "by": "ADP", "for": "ADP", "with": "ADP",
		"from": "ADP", "to": "ADP", "into": "ADP", "about": "ADP", "against": "ADP", "without": "ADP",
		"and": "CCONJ", "or": "CCONJ", "but": "CCONJ", "nor": "CCONJ",
		"because": "SCONJ", "although": "SCONJ", "if": "SCONJ", "since": "SCONJ", "while": "SCONJ",
		"whereas": "SCONJ", "therefore": "ADV", "however": "ADV",
		"i": "PRON", "you": "PRON", "he": "PRON", "she": "PRON", "it": "PRON", "we": "PRON",
		"they": "PRON", "them": "PRON", "us": "PRON",
		"is": "AUX", "are": "AUX", "was": "AUX", "were": "AUX", "be": "AUX", "been": "AUX",
		"has": "AUX", "have": "AUX", "had": "AUX", "do": "AUX", "does": "AUX", "did": "AUX",
		"can": "AUX", "could": "AUX", "should": "AUX", "would": "AUX", "will": "AUX", "must": "AUX",
		"may": "AUX", "might": "AUX",
		"not": "ADV", "very": "ADV", "also": "ADV", "too": "ADV", "never": "ADV", "always": "ADV",
	},
}
