// Package feature turns one annotated sentence into a FeatureRecord for the
// argument-mining classifiers.
package feature

import (
	"strconv"
	"strings"
)

// MinLength is the shortest text, in characters, worth annotating.
const MinLength = 3

// State is the lifecycle of a record: Pending until extraction runs, then
// Valid or Invalid for good.
type State int

const (
	Pending State = iota
	Valid
	Invalid
)

func (s State) String() string {
	switch s {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	default:
		return "pending"
	}
}

// Record holds the features of one sentence. Field names in JSON follow the
// format the downstream classifiers were trained on.
type Record struct {
	ID string `json:"id"`

	// lexical
	BowUnigrams []string `json:"bow_unigrams"`
	BowBigrams  []string `json:"bow_bigrams"`
	BowTrigrams []string `json:"bow_trigrams"`
	PosUnigrams []string `json:"pos_unigrams"`
	PosBigrams  []string `json:"pos_bigrams"`
	WordCouples []string `json:"word_couples"`
	Entities    []string `json:"entities"`
	Adverbs     []string `json:"adverbs"`
	Verbs       []string `json:"verbs"`
	Nouns       []string `json:"nouns"`
	ModalAuxs   []string `json:"modal_auxs"`
	Punctuation []string `json:"punctuation"`
	KeyWords    []string `json:"key_words"`

	// structural
	TextLength      int `json:"text_length"`
	TextPosition    int `json:"text_position"`
	TokenCount      int `json:"token_count"`
	AvgWordLength   int `json:"avg_word_length"`
	PunctMarksCount int `json:"punct_marks_count"`

	// syntactic
	ParseTreeDepth  int `json:"parse_tree_depth"`
	SubClausesCount int `json:"sub_clauses_count"`

	State State `json:"-"`
}

// Valid reports whether the record may be serialized.
func (r *Record) Valid() bool { return r != nil && r.State == Valid }

// SentencePosition extracts the sentence ordinal from an identifier of the
// form "<proposal>-<sentence>". Identifiers without a numeric last segment
// have position 0.
func SentencePosition(id string) int {
	i := strings.LastIndex(id, "-")
	if i < 0 || i == len(id)-1 {
		return 0
	}
	n, err := strconv.Atoi(id[i+1:])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// fill replaces nil lists so that empty groups serialize as [] instead of null.
func (r *Record) fill() {
	for _, p := range []*[]string{
		&r.BowUnigrams, &r.BowBigrams, &r.BowTrigrams, &r.PosUnigrams, &r.PosBigrams,
		&r.WordCouples, &r.Entities, &r.Adverbs, &r.Verbs, &r.Nouns, &r.ModalAuxs,
		&r.Punctuation, &r.KeyWords,
	} {
		if *p == nil {
			*p = []string{}
		}
	}
}
