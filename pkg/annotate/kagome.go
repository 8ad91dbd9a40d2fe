package annotate

import (
	"context"
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// Kagome annotates Japanese text with the kagome morphological analyzer and
// the IPA dictionary. It produces tokens and POS tags only: no parse tree and
// no entities, so tree-derived features degrade to zero.
type Kagome struct {
	t *tokenizer.Tokenizer
}

// NewKagome loads the IPA dictionary and builds the tokenizer.
func NewKagome() (*Kagome, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &Kagome{t: t}, nil
}

// Language implements Annotator.
func (k *Kagome) Language() string { return "ja" }

// Annotate implements Annotator.
func (k *Kagome) Annotate(ctx context.Context, text string) (*Annotation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out Annotation
	for _, token := range k.t.Tokenize(text) {
		if token.Class == tokenizer.DUMMY {
			continue
		}
		if strings.TrimSpace(token.Surface) == "" {
			continue
		}
		// IPA features: 0 POS, 1-3 sub-POS, 4-5 conjugation, 6 base form, 7-8 reading
		out.Tokens = append(out.Tokens, Token{
			Word: token.Surface,
			POS:  ipaToUniversal(token.Features()),
		})
	}
	return &out, nil
}

// SplitSentences implements Annotator.
func (k *Kagome) SplitSentences(ctx context.Context, text string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return splitJapanese(text), nil
}

func splitJapanese(text string) []string {
	var sentences []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}
	for _, r := range text {
		current.WriteRune(r)
		// 。(3002), ！(FF01), ？(FF1F)
		if r == '。' || r == '！' || r == '？' || r == '\n' {
			flush()
		}
	}
	flush()
	return sentences
}

// ipaToUniversal maps IPA dictionary POS labels to Universal POS tags.
func ipaToUniversal(features []string) string {
	if len(features) == 0 {
		return "X"
	}
	sub := ""
	if len(features) > 1 {
		sub = features[1]
	}
	switch features[0] {
	case "名詞":
		switch sub {
		case "数":
			return "NUM"
		case "固有名詞":
			return "PROPN"
		case "代名詞":
			return "PRON"
		}
		return "NOUN"
	case "動詞":
		return "VERB"
	case "形容詞":
		return "ADJ"
	case "副詞":
		return "ADV"
	case "助動詞":
		return "AUX"
	case "助詞":
		if sub == "接続助詞" {
			return "SCONJ"
		}
		return "ADP"
	case "接続詞":
		return "CCONJ"
	case "連体詞":
		return "DET"
	case "感動詞", "フィラー":
		return "INTJ"
	case "記号":
		if sub == "数" {
			return "NUM"
		}
		return "PUNCT"
	}
	return "X"
}
