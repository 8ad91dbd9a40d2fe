package feature

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/argfeat/pkg/annotate"
	"github.com/japaniel/argfeat/pkg/lexicon"
	"github.com/japaniel/argfeat/pkg/normalize"
	"github.com/japaniel/argfeat/pkg/phrase"
)

// fakeAnnotator returns canned annotations and counts calls.
type fakeAnnotator struct {
	byText map[string]*annotate.Annotation
	err    error
	calls  int
}

func (f *fakeAnnotator) Language() string { return "es" }

func (f *fakeAnnotator) Annotate(ctx context.Context, text string) (*annotate.Annotation, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.byText[text], nil
}

func (f *fakeAnnotator) SplitSentences(ctx context.Context, text string) ([]string, error) {
	return []string{text}, nil
}

func tagged(pairs ...string) []annotate.Token {
	out := make([]annotate.Token, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, annotate.Token{Word: pairs[i], POS: pairs[i+1]})
	}
	return out
}

func testLexicon() []lexicon.Entry {
	tax := lexicon.NewTaxonomy()
	tax.AddLinker("contraste", "concesión", "OPPOSITION", "sin")
	tax.AddLinker("contraste", "concesión", "OPPOSITION", "embargo")
	tax.AddLinker("contraste", "concesión", "OPPOSITION", "sin embargo")
	tax.AddLinker("causa", "consecuencia", "CAUSE", "por lo tanto")
	return tax.Lexicon(true)
}

const sentence = "El aumento del gasto sin embargo es alto"

func newDetection(t *testing.T, fa *fakeAnnotator) Strategy {
	t.Helper()
	s, err := NewStrategy(ModeDetection, Deps{Annotator: fa})
	require.NoError(t, err)
	return s
}

func TestDetectionExtract(t *testing.T) {
	tree, err := phrase.Parse(`(ROOT (S (NP (DT El) (NN gasto)) (VP (VBZ es) (ADJP (JJ alto)))))`)
	require.NoError(t, err)

	fa := &fakeAnnotator{byText: map[string]*annotate.Annotation{
		sentence: {
			Tokens: tagged("El", "DET", "aumento", "NOUN", "del", "ADP", "gasto", "NOUN",
				"sin", "ADP", "embargo", "NOUN", "es", "AUX", "alto", "ADJ"),
			Tree: tree,
			Entities: []normalize.Entity{
				{Text: "ONU", Type: "ORG"},
				{Text: "el", Type: "PERSON"},
			},
		},
	}}

	rec, err := newDetection(t, fa).Extract(context.Background(), Input{ID: "12-3", Text: sentence, Lexicon: testLexicon()})
	require.NoError(t, err)
	require.True(t, rec.Valid())

	assert.Equal(t, []string{"sin embargo"}, rec.KeyWords)
	assert.Equal(t, []string{"El", "aumento", "del", "gasto", "sin", "embargo", "es", "alto"}, rec.BowUnigrams)
	assert.Len(t, rec.BowBigrams, 9)
	assert.Len(t, rec.BowTrigrams, 9)
	assert.Equal(t, "$init$-El", rec.BowBigrams[0])
	assert.Equal(t, "alto-$end$", rec.BowBigrams[8])
	assert.Equal(t, "es-alto-$end$", rec.BowTrigrams[8])
	assert.Equal(t, []string{"DET", "NOUN", "ADP", "NOUN", "ADP", "NOUN", "AUX", "ADJ"}, rec.PosUnigrams)
	assert.Len(t, rec.PosBigrams, 9)
	assert.Equal(t, "$init$-DET", rec.PosBigrams[0])
	assert.Len(t, rec.WordCouples, 28)
	assert.Equal(t, []string{"aumento", "gasto", "embargo"}, rec.Nouns)
	assert.Equal(t, []string{"es"}, rec.ModalAuxs)
	assert.Empty(t, rec.Verbs)
	assert.NotNil(t, rec.Verbs)
	assert.Equal(t, []string{"ONU"}, rec.Entities)

	assert.Equal(t, 40, rec.TextLength)
	assert.Equal(t, 3, rec.TextPosition)
	assert.Equal(t, 8, rec.TokenCount)
	assert.Equal(t, 4, rec.AvgWordLength) // 33/8 truncated
	assert.Equal(t, 0, rec.PunctMarksCount)
	assert.Equal(t, 2, rec.ParseTreeDepth)
	assert.Equal(t, 4, rec.SubClausesCount)
}

func TestDetectionNormalizesTokens(t *testing.T) {
	text := "Costó 25 el 12/05/2020 a las 10:30, etc."
	fa := &fakeAnnotator{byText: map[string]*annotate.Annotation{
		text: {Tokens: tagged("Costó", "VERB", "25", "NUM", "el", "DET", "12/05/2020", "NUM",
			"a", "ADP", "las", "DET", "10:30", "NUM", ",", "PUNCT", "etc.", "PUNCT", "¿", "X")},
	}}

	rec, err := newDetection(t, fa).Extract(context.Background(), Input{ID: "1-1", Text: text})
	require.NoError(t, err)
	require.True(t, rec.Valid())

	assert.Equal(t, []string{"Costó", "$number$", "el", "$date$", "a", "las", "$time$", "etc."}, rec.BowUnigrams)
	assert.Equal(t, []string{"Costó"}, rec.Verbs)
	assert.Equal(t, []string{",", "¿"}, rec.Punctuation)
	assert.Equal(t, 2, rec.PunctMarksCount)
	assert.Equal(t, 10, rec.TokenCount)
	assert.Empty(t, rec.KeyWords)
	assert.Zero(t, rec.ParseTreeDepth)
	assert.Zero(t, rec.SubClausesCount)
}

func TestDetectionPunctuationOnlyIsInvalid(t *testing.T) {
	text := "¡¿!?..."
	fa := &fakeAnnotator{byText: map[string]*annotate.Annotation{
		text: {Tokens: tagged("¡", "PUNCT", "¿", "PUNCT", "!", "PUNCT", "?", "PUNCT", "...", "PUNCT")},
	}}

	rec, err := newDetection(t, fa).Extract(context.Background(), Input{ID: "1-1", Text: text})
	require.NoError(t, err)
	assert.False(t, rec.Valid())
	assert.Equal(t, Invalid, rec.State)
}

func TestDetectionShortTextSkipsAnnotator(t *testing.T) {
	fa := &fakeAnnotator{}
	s := newDetection(t, fa)

	for _, text := range []string{"", "a", "sí"} {
		rec, err := s.Extract(context.Background(), Input{ID: "1-1", Text: text})
		require.NoError(t, err)
		assert.Equal(t, Invalid, rec.State, text)
	}
	assert.Zero(t, fa.calls)
}

func TestDetectionNilAnnotationIsInvalid(t *testing.T) {
	fa := &fakeAnnotator{byText: map[string]*annotate.Annotation{}}
	rec, err := newDetection(t, fa).Extract(context.Background(), Input{ID: "1-1", Text: "nada que ver"})
	require.NoError(t, err)
	assert.Equal(t, Invalid, rec.State)
}

func TestDetectionAnnotatorErrorPropagates(t *testing.T) {
	boom := errors.New("parser crashed")
	fa := &fakeAnnotator{err: boom}
	rec, err := newDetection(t, fa).Extract(context.Background(), Input{ID: "4-2", Text: "una frase"})
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "4-2")
}

func TestClassificationNotImplemented(t *testing.T) {
	s, err := NewStrategy(ModeClassification, Deps{Annotator: &fakeAnnotator{}})
	require.NoError(t, err)
	assert.Equal(t, ModeClassification, s.Mode())

	_, err = s.Extract(context.Background(), Input{ID: "1-1", Text: "texto largo"})
	assert.ErrorIs(t, err, ErrNotImplemented)
}

func TestNewStrategyErrors(t *testing.T) {
	_, err := NewStrategy(ModeDetection, Deps{})
	assert.Error(t, err)

	_, err = NewStrategy(Mode("ARG_XYZ"), Deps{Annotator: &fakeAnnotator{}})
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode(" arg_det ")
	require.NoError(t, err)
	assert.Equal(t, ModeDetection, m)

	m, err = ParseMode("ARG_CLF")
	require.NoError(t, err)
	assert.Equal(t, ModeClassification, m)

	_, err = ParseMode("detect")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestSentencePosition(t *testing.T) {
	cases := map[string]int{
		"12-3":    3,
		"1-2-15":  15,
		"7":       0,
		"a-b":     0,
		"5-":      0,
		"":        0,
		"101-010": 10,
	}
	for id, want := range cases {
		assert.Equal(t, want, SentencePosition(id), id)
	}
}

func TestWriteJSONRoundTrip(t *testing.T) {
	first := &Record{
		ID: "2-1", BowUnigrams: []string{"gasto", "\"alto\""}, KeyWords: []string{"sin embargo"},
		TextLength: 40, TextPosition: 1, TokenCount: 8, AvgWordLength: 4,
		PunctMarksCount: 1, ParseTreeDepth: 2, SubClausesCount: 4, State: Valid,
	}
	skipped := &Record{ID: "9-9", State: Invalid}
	second := &Record{ID: "1-1", TextLength: 3, TokenCount: 1, AvgWordLength: 3, State: Valid}

	var buf bytes.Buffer
	n, err := WriteJSON(&buf, []*Record{first, skipped, nil, second})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, json.Valid(buf.Bytes()), buf.String())
	assert.NotContains(t, buf.String(), "9-9")
	assert.NotContains(t, buf.String(), "null")

	got, err := ReadJSON(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2-1", got[0].ID)
	assert.Equal(t, "1-1", got[1].ID)

	for i, want := range []*Record{first, second} {
		assert.Equal(t, want.TextLength, got[i].TextLength)
		assert.Equal(t, want.TextPosition, got[i].TextPosition)
		assert.Equal(t, want.TokenCount, got[i].TokenCount)
		assert.Equal(t, want.AvgWordLength, got[i].AvgWordLength)
		assert.Equal(t, want.PunctMarksCount, got[i].PunctMarksCount)
		assert.Equal(t, want.ParseTreeDepth, got[i].ParseTreeDepth)
		assert.Equal(t, want.SubClausesCount, got[i].SubClausesCount)
		assert.True(t, got[i].Valid())
	}
	assert.Equal(t, first.BowUnigrams, got[0].BowUnigrams)
}

func TestWriteJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	n, err := WriteJSON(&buf, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, "{}\n", buf.String())

	got, err := ReadJSON(&buf)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWriteJSONSkipsRepeatedIDs(t *testing.T) {
	records := []*Record{
		{ID: "3-1", TextLength: 10, State: Valid},
		{ID: "3-2", TextLength: 20, State: Valid},
		{ID: "3-1", TextLength: 30, State: Valid},
	}
	var buf bytes.Buffer
	n, err := WriteJSON(&buf, records)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, strings.Count(buf.String(), `"3-1":`))

	got, err := ReadJSON(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "3-1", got[0].ID)
	assert.Equal(t, 10, got[0].TextLength)
	assert.Equal(t, "3-2", got[1].ID)
}

func TestReadJSONRejectsArrays(t *testing.T) {
	_, err := ReadJSON(strings.NewReader(`[1,2]`))
	assert.Error(t, err)
}
