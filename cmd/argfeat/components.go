package main

import (
	"fmt"

	"github.com/japaniel/argfeat/pkg/annotate"
	"github.com/japaniel/argfeat/pkg/feature"
	"github.com/japaniel/argfeat/pkg/lexicon"
	"github.com/japaniel/argfeat/pkg/normalize"
)

func (a *app) loadTaxonomy() (*lexicon.Taxonomy, error) {
	return lexicon.Load(lexicon.LoadConfig{
		Path:     a.cfg.Lexicon.Path,
		Language: a.cfg.Language,
		Valid:    a.cfg.Lexicon.Valid,
		Invalid:  a.cfg.Lexicon.Invalid,
	}, a.logger)
}

// newAnnotator builds the configured backend for up to workers concurrent
// callers, each call bounded by the extraction timeout.
func (a *app) newAnnotator(workers int) (annotate.Annotator, error) {
	var ann annotate.Annotator
	switch a.cfg.Annotator.Kind {
	case "simple":
		ann = annotate.NewSimple(a.cfg.Language)
	case "kagome":
		if a.cfg.Language != "ja" {
			a.logger.Warn("kagome annotator only handles Japanese; language tag ignored")
		}
		pool, err := annotate.NewPoolFunc(workers, func() (annotate.Annotator, error) {
			k, err := annotate.NewKagome()
			if err != nil {
				return nil, err
			}
			return k, nil
		})
		if err != nil {
			return nil, fmt.Errorf("kagome: %w", err)
		}
		ann = pool
	case "precomputed":
		p, err := annotate.LoadPrecomputed(a.cfg.Annotator.Path, a.cfg.Language, annotate.NewSimple(a.cfg.Language), a.logger)
		if err != nil {
			return nil, err
		}
		ann = p
	default:
		return nil, fmt.Errorf("unknown annotator %q", a.cfg.Annotator.Kind)
	}
	return annotate.WithTimeout(ann, a.cfg.Extract.Timeout), nil
}

func (a *app) newStrategy(mode feature.Mode, ann annotate.Annotator) (feature.Strategy, error) {
	return feature.NewStrategy(mode, feature.Deps{
		Annotator:  ann,
		Normalizer: normalize.New(a.cfg.Language, nil),
		Stopwords:  normalize.StopwordsFor(a.cfg.Language, a.cfg.Stopwords.Extra...),
	})
}
