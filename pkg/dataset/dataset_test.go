package dataset

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/argfeat/pkg/annotate"
	"github.com/japaniel/argfeat/pkg/lexicon"
)

const datasetCSV = `proposal_id,sentence_id,text,linker_value,category,sub_category
12,1,"El gasto es alto, sin embargo es necesario.",sin embargo,contraste,concesión
12,2,Texto sin comillas, con coma y más,-,-,-
x,3,"id no numérico",-,-,-
13,1,corta
13,2,"Una frase ""citada"" aquí.",-,-,-
`

func TestReadCSV(t *testing.T) {
	props, err := ReadCSV(strings.NewReader(datasetCSV), nil)
	require.NoError(t, err)
	require.Len(t, props, 3)

	assert.Equal(t, "12-1", props[0].ID())
	assert.Equal(t, "El gasto es alto, sin embargo es necesario.", props[0].Text)
	assert.Equal(t, "sin embargo", props[0].Linker.Linker)
	assert.Equal(t, 2, props[0].Linker.Tokens)
	assert.Equal(t, "contraste", props[0].Linker.Category)
	assert.Equal(t, "concesión", props[0].Linker.SubCategory)

	assert.Equal(t, "Texto sin comillas, con coma y más", props[1].Text)
	assert.Equal(t, Placeholder, props[1].Linker.Linker)

	assert.Equal(t, "13-2", props[2].ID())
	assert.Equal(t, `Una frase "citada" aquí.`, props[2].Text)
}

func TestWriteCSVRoundTrip(t *testing.T) {
	props := []Proposition{
		{ProposalID: 1, SentenceID: 1, Text: `Dijo "no", y se fue.`, Linker: lexicon.NewEntry("causa", "razón", "", "porque")},
		{ProposalID: 1, SentenceID: 2, Text: "Sin etiqueta"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, props))
	assert.True(t, strings.HasPrefix(buf.String(), "proposal_id,sentence_id,text,linker_value,category,sub_category\n"))

	got, err := ReadCSV(&buf, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, props[0].Text, got[0].Text)
	assert.Equal(t, "porque", got[0].Linker.Linker)
	assert.Equal(t, Placeholder, got[1].Linker.Linker)
	assert.Equal(t, Placeholder, got[1].Linker.Category)
}

func TestWriteCSVRoundTripKeepsEdgeQuotes(t *testing.T) {
	props := []Proposition{
		{ProposalID: 4, SentenceID: 1, Text: `"Más parques", dijo el vecino`},
		{ProposalID: 4, SentenceID: 2, Text: `Lo llamó "abusivo"`},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, props))

	got, err := ReadCSV(&buf, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, props[0].Text, got[0].Text)
	assert.Equal(t, props[1].Text, got[1].Text)
}

func TestReadCSVUnquotedCommasTrimStrayQuotes(t *testing.T) {
	in := "proposal_id,sentence_id,text,linker_value,category,sub_category\n" +
		"5,1,\"Uno, dos\",-,-,-\n" +
		"5,2,Tres, cuatro y cinco\",-,-,-\n"
	got, err := ReadCSV(strings.NewReader(in), nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Uno, dos", got[0].Text)
	assert.Equal(t, "Tres, cuatro y cinco", got[1].Text)
}

func TestReadCSVSkipsDuplicateIDs(t *testing.T) {
	in := "proposal_id,sentence_id,text,linker_value,category,sub_category\n" +
		"7,1,Primera versión,-,-,-\n" +
		"7,2,Otra frase,-,-,-\n" +
		"7,1,Segunda versión,-,-,-\n"
	got, err := ReadCSV(strings.NewReader(in), nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "7-1", got[0].ID())
	assert.Equal(t, "Primera versión", got[0].Text)
	assert.Equal(t, "7-2", got[1].ID())
}

func TestSaveAndLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.csv")
	props := []Proposition{{ProposalID: 3, SentenceID: 1, Text: "Hola mundo.", Linker: Unlabelled()}}
	require.NoError(t, SaveCSV(path, props))

	got, err := LoadCSV(path, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "3-1", got[0].ID())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

func TestLoadCSVMissingFile(t *testing.T) {
	got, err := LoadCSV(filepath.Join(t.TempDir(), "nope.csv"), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWriteFileAtomicKeepsOldFileOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	boom := errors.New("boom")
	err := WriteFileAtomic(path, func(w io.Writer) error {
		w.Write([]byte("partial"))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestParseArgumentID(t *testing.T) {
	id, err := ParseArgumentID("12-3-4")
	require.NoError(t, err)
	assert.Equal(t, ArgumentID{Proposal: 12, Comment: 3, Sequence: 4}, id)
	assert.Equal(t, "12-3-4", id.String())

	for _, bad := range []string{"", "12-3", "a-b-c", "1-2-3-4"} {
		_, err := ParseArgumentID(bad)
		assert.Error(t, err, bad)
	}
}

const labelsJSONL = `{"argumentId":"12-1","linker":{"category":"contraste","subCategory":"concesión","relationType":"OPPOSITION","linker":"sin embargo"}}
{"argumentId":"12-3-1","linker":{"linker":"porque"}}
garbage
{"argumentId":"x-1","linker":{"linker":"pero"}}

{"argumentId":"14-2","linker":{"category":"causa","subCategory":"razón","linker":"porque"}}
`

func TestReadLabels(t *testing.T) {
	labels, err := ReadLabels(strings.NewReader(labelsJSONL), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, labels.Len())

	e, ok := labels.Get(12, 1)
	require.True(t, ok)
	assert.Equal(t, "sin embargo", e.Linker)
	assert.Equal(t, 2, e.Tokens)

	_, ok = labels.Get(12, 2)
	assert.False(t, ok)
	_, ok = labels.Get(99, 1)
	assert.False(t, ok)
}

func TestAssemblerBuild(t *testing.T) {
	labels := Labels{}
	labels.Add(12, 2, lexicon.NewEntry("contraste", "concesión", "", "sin embargo"))

	proposals := []Proposal{
		{ID: 14, Summary: "Más parques. Menos coches."},
		{ID: 12, Summary: "El gasto es alto. Sin embargo es necesario. Votad."},
		{ID: 13, Summary: "   "},
	}

	asm := NewAssembler(annotate.NewSimple("es"), nil)
	props, err := asm.Build(context.Background(), proposals, labels)
	require.NoError(t, err)

	var ids []string
	for _, p := range props {
		ids = append(ids, p.ID())
	}
	assert.Equal(t, []string{"12-1", "12-2", "12-3", "14-1", "14-2"}, ids)
	assert.Equal(t, "Sin embargo es necesario.", props[1].Text)
	assert.Equal(t, "sin embargo", props[1].Linker.Linker)
	assert.Equal(t, Unlabelled(), props[0].Linker)
}

func TestAssemblerBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewAssembler(annotate.NewSimple("es"), nil).Build(ctx, []Proposal{{ID: 1, Summary: "Hola."}}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

const articleHTML = `<!DOCTYPE html>
<html><head><title>Presupuestos participativos</title></head>
<body>
<nav><a href="/">Inicio</a> <a href="/propuestas">Propuestas</a></nav>
<article>
<h1>Presupuestos participativos</h1>
<p>El aumento del gasto en transporte público es alto, sin embargo la ciudadanía lo considera necesario para reducir la contaminación del centro.</p>
<p>Por lo tanto, la propuesta plantea ampliar los carriles bus y mejorar la frecuencia de las líneas nocturnas durante los fines de semana.</p>
<p>Además, el <ruby>漢字<rt>かんじ</rt></ruby> de la señalización se revisará para los visitantes que no hablan español ni inglés con fluidez.</p>
</article>
<footer>Ayuntamiento</footer>
</body></html>`

func TestFromHTML(t *testing.T) {
	p, err := FromHTML(7, strings.NewReader(articleHTML), "http://localhost/propuesta/7")
	require.NoError(t, err)
	assert.Equal(t, 7, p.ID)
	assert.Contains(t, p.Summary, "sin embargo la ciudadanía")
	assert.Contains(t, p.Summary, "漢字")
	assert.NotContains(t, p.Summary, "かんじ")
}

func TestFromHTMLTooLarge(t *testing.T) {
	big := strings.NewReader(strings.Repeat("a", MaxBodySize+1))
	_, err := FromHTML(1, big, "")
	assert.Error(t, err)
}

func TestSanitizeRuby(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Simple Ruby", "<ruby>漢字<rt>かんじ</rt></ruby>", "<ruby>漢字</ruby>"},
		{"Ruby with RP", "<ruby>漢字<rp>(</rp><rt>かんじ</rt><rp>)</rp></ruby>", "<ruby>漢字</ruby>"},
		{"Attributes in tags", "<ruby class='test'>漢字<rt class='reading'>かんじ</rt></ruby>", "<ruby class='test'>漢字</ruby>"},
		{"Upper case", "<RUBY>猫<RT>ねこ</RT></RUBY>", "<RUBY>猫</RUBY>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(SanitizeRuby([]byte(tt.input))))
		})
	}
}

func TestFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ok" {
			http.NotFound(w, r)
			return
		}
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	f := NewFetcher()
	p, err := f.Fetch(context.Background(), 3, srv.URL+"/ok")
	require.NoError(t, err)
	assert.Equal(t, 3, p.ID)
	assert.Contains(t, p.Summary, "carriles bus")

	_, err = f.Fetch(context.Background(), 4, srv.URL+"/missing")
	assert.Error(t, err)
}
