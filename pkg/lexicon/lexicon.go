package lexicon

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Delimiter joins the tokens of a multi-word linker or n-gram.
const Delimiter = "-"

// fold lower-cases s. A cases.Caser keeps state, so each call gets its own.
func fold(s string) string {
	return cases.Lower(language.Und).String(s)
}

// Entry is a single argumentative linker (e.g. "sin embargo") and its place in the taxonomy.
type Entry struct {
	Category     string `json:"category" yaml:"category"`
	SubCategory  string `json:"subCategory" yaml:"subCategory"`
	RelationType string `json:"relationType" yaml:"relationType"`
	Linker       string `json:"linker" yaml:"linker"`
	// Tokens is the number of whitespace separated tokens in Linker.
	Tokens int `json:"-" yaml:"-"`
}

// NewEntry builds an Entry, deriving its token count from the surface form.
func NewEntry(category, subCategory, relationType, linker string) Entry {
	return Entry{
		Category:     category,
		SubCategory:  subCategory,
		RelationType: relationType,
		Linker:       linker,
		Tokens:       len(strings.Fields(linker)),
	}
}

// Key returns the case-folded, hyphen joined form used for matching.
func (e Entry) Key() string {
	return NormalizeKey(strings.Fields(e.Linker))
}

func (e Entry) String() string {
	return fmt.Sprintf("%s > %s > %s [%s]", e.Category, e.SubCategory, e.Linker, e.RelationType)
}

// NormalizeKey lower-cases and hyphen-joins a token sequence.
func NormalizeKey(tokens []string) string {
	return fold(strings.Join(tokens, Delimiter))
}

// Taxonomy maps category -> sub-category -> linkers. It is filled once at load
// time and only read afterwards, so it is safe to share between goroutines
// once Load (or the last AddLinker call) has returned.
type Taxonomy struct {
	buckets map[string]map[string][]Entry
	// insertion order of categories and their sub-categories
	categories []string
	subs       map[string][]string
	size       int
}

// NewTaxonomy returns an empty taxonomy.
func NewTaxonomy() *Taxonomy {
	return &Taxonomy{
		buckets: make(map[string]map[string][]Entry),
		subs:    make(map[string][]string),
	}
}

// AddLinker appends a linker to its (category, subCategory) bucket.
// Duplicates are kept: loading accumulates rows, it does not build a set.
func (t *Taxonomy) AddLinker(category, subCategory, relationType, linker string) {
	sub, ok := t.buckets[category]
	if !ok {
		sub = make(map[string][]Entry)
		t.buckets[category] = sub
		t.categories = append(t.categories, category)
	}
	if _, ok := sub[subCategory]; !ok {
		t.subs[category] = append(t.subs[category], subCategory)
	}
	sub[subCategory] = append(sub[subCategory], NewEntry(category, subCategory, relationType, linker))
	t.size++
}

// Len returns the total number of entries across all buckets.
func (t *Taxonomy) Len() int { return t.size }

// Categories returns the categories in insertion order.
func (t *Taxonomy) Categories() []string {
	return append([]string(nil), t.categories...)
}

// SubCategories returns the sub-categories of category in insertion order.
func (t *Taxonomy) SubCategories(category string) []string {
	return append([]string(nil), t.subs[category]...)
}

// Entries returns a copy of the bucket for (category, subCategory).
func (t *Taxonomy) Entries(category, subCategory string) []Entry {
	return append([]Entry(nil), t.buckets[category][subCategory]...)
}

// Lexicon flattens the taxonomy. With longestFirst the entries are ordered by
// descending token count so greedy matching prefers multi-token linkers; the
// sort is stable, so ties keep taxonomy order.
func (t *Taxonomy) Lexicon(longestFirst bool) []Entry {
	out := make([]Entry, 0, t.size)
	for _, c := range t.categories {
		for _, s := range t.subs[c] {
			out = append(out, t.buckets[c][s]...)
		}
	}
	if longestFirst {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Tokens > out[j].Tokens
		})
	}
	return out
}
