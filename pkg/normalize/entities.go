package normalize

import "strings"

// Entity is a named-entity mention reported by the annotator.
type Entity struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

// entityTypes maps the labels emitted by common NER models to the canonical
// allowlist; anything not listed is dropped.
var entityTypes = map[string]string{
	"PERSON":       "PERSON",
	"PER":          "PERSON",
	"ORGANIZATION": "ORGANIZATION",
	"ORG":          "ORGANIZATION",
	"LOCATION":     "LOCATION",
	"LOC":          "LOCATION",
	"GPE":          "LOCATION",
	"MISC":         "MISC",
}

// Stopwords is a case-insensitive word set.
type Stopwords map[string]struct{}

// NewStopwords builds a set from words.
func NewStopwords(words ...string) Stopwords {
	s := make(Stopwords, len(words))
	s.Add(words...)
	return s
}

// Add inserts words into the set.
func (s Stopwords) Add(words ...string) {
	for _, w := range words {
		s[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
}

// Contains reports whether word is a stopword.
func (s Stopwords) Contains(word string) bool {
	_, ok := s[strings.ToLower(strings.TrimSpace(word))]
	return ok
}

// StopwordsFor returns the built-in list for a language plus extra words.
func StopwordsFor(language string, extra ...string) Stopwords {
	s := NewStopwords(builtinStopwords[language]...)
	s.Add(extra...)
	return s
}

// FilterEntities keeps the mentions worth a feature: organizations always,
// MISC mentions longer than two characters, and other allowed types unless
// the mention is a stopword. Unknown types are dropped and repeated mentions
// count once.
func FilterEntities(entities []Entity, stopwords Stopwords) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, e := range entities {
		text := strings.TrimSpace(e.Text)
		if text == "" {
			continue
		}
		kind, ok := entityTypes[strings.ToUpper(e.Type)]
		if !ok {
			continue
		}

		keep := false
		switch kind {
		case "ORGANIZATION":
			keep = true
		case "MISC":
			keep = len([]rune(text)) > 2
		default:
			keep = !stopwords.Contains(text)
		}
		if !keep {
			continue
		}
		if _, dup := seen[text]; dup {
			continue
		}
		seen[text] = struct{}{}
		out = append(out, text)
	}
	return out
}

var builtinStopwords = map[string][]string{
	"es": {
		"a", "al", "algo", "ante", "como", "con", "contra", "cual", "de", "del",
		"desde", "donde", "durante", "e", "el", "ella", "ellas", "ellos", "en",
		"entre", "era", "es", "esa", "ese", "eso", "esta", "este", "esto", "fue",
		"ha", "hay", "la", "las", "le", "les", "lo", "los", "mas", "más", "me",
		"mi", "muy", "nada", "ni", "no", "nos", "o", "para", "pero", "por",
		"que", "qué", "se", "ser", "si", "sí", "sin", "sobre", "su", "sus",
		"también", "te", "todo", "tu", "un", "una", "uno", "y", "ya", "yo",
	},
	"en": {
		"a", "about", "all", "an", "and", "any", "are", "as", "at", "be", "but",
		"by", "for", "from", "had", "has", "have", "he", "her", "his", "i", "if",
		"in", "is", "it", "its", "me", "my", "no", "not", "of", "on", "or",
		"our", "she", "so", "that", "the", "their", "them", "there", "they",
		"this", "to", "was", "we", "were", "what", "which", "who", "will",
		"with", "you", "your",
	},
}
