package lexicon

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// LoadConfig tells Load where the lexicon lives and which linkers to keep.
type LoadConfig struct {
	// Path of the lexicon CSV. A "{}" placeholder is replaced by Language.
	Path     string
	Language string
	// Valid, when non-empty, is the only set of linkers kept.
	Valid []string
	// Invalid linkers are always dropped (e.g. "y", "o" in Spanish).
	Invalid []string
}

// ResolvedPath returns Path with the language placeholder filled in.
func (c LoadConfig) ResolvedPath() string {
	return strings.ReplaceAll(c.Path, "{}", c.Language)
}

func (c LoadConfig) accepts(linker string) bool {
	for _, l := range c.Invalid {
		if l == linker {
			return false
		}
	}
	if len(c.Valid) == 0 {
		return true
	}
	for _, l := range c.Valid {
		if l == linker {
			return true
		}
	}
	return false
}

// Load reads the linker taxonomy from the CSV file named by cfg. A missing
// file is not fatal: the caller gets an empty taxonomy and can still run
// with zero known linkers.
func Load(cfg LoadConfig, logger *zap.Logger) (*Taxonomy, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	path := cfg.ResolvedPath()

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn("lexicon file not found, continuing with an empty taxonomy", zap.String("path", path))
		return NewTaxonomy(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open lexicon: %w", err)
	}
	defer f.Close()

	tax, err := Read(f, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("read lexicon %s: %w", path, err)
	}
	logger.Info("lexicon loaded",
		zap.String("path", path),
		zap.Int("categories", len(tax.Categories())),
		zap.Int("linkers", tax.Len()))
	return tax, nil
}

// Read parses lexicon rows from r. The first row is a header. Rows carry
// either 6 columns (id, language, category, sub-category, relation type,
// linker) or 4 (category, sub-category, relation type, linker); anything
// else is skipped.
func Read(r io.Reader, cfg LoadConfig, logger *zap.Logger) (*Taxonomy, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	tax := NewTaxonomy()
	if _, err := cr.Read(); err != nil {
		if err == io.EOF {
			return tax, nil
		}
		return nil, err
	}

	line := 1
	for {
		row, err := cr.Read()
		line++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				logger.Warn("skipping malformed lexicon row", zap.Int("line", line), zap.Error(err))
				continue
			}
			return nil, fmt.Errorf("read lexicon: %w", err)
		}

		var category, subCategory, relationType, linker string
		switch len(row) {
		case 6:
			category, subCategory, relationType, linker = row[2], row[3], row[4], row[5]
		case 4:
			category, subCategory, relationType, linker = row[0], row[1], row[2], row[3]
		default:
			logger.Warn("skipping lexicon row with unexpected column count",
				zap.Int("line", line), zap.Int("columns", len(row)))
			continue
		}

		linker = strings.TrimSpace(linker)
		if linker == "" || !cfg.accepts(linker) {
			continue
		}
		tax.AddLinker(category, subCategory, relationType, linker)
	}
	return tax, nil
}

type yamlSubCategory struct {
	Name    string   `yaml:"name"`
	Linkers []string `yaml:"linkers"`
}

type yamlCategory struct {
	Category      string            `yaml:"category"`
	SubCategories []yamlSubCategory `yaml:"subCategories"`
}

// WriteYAML dumps the taxonomy in insertion order.
func WriteYAML(w io.Writer, t *Taxonomy) error {
	doc := make([]yamlCategory, 0, len(t.categories))
	for _, c := range t.categories {
		yc := yamlCategory{Category: c}
		for _, s := range t.subs[c] {
			ys := yamlSubCategory{Name: s}
			for _, e := range t.buckets[c][s] {
				ys.Linkers = append(ys.Linkers, e.Linker)
			}
			yc.SubCategories = append(yc.SubCategories, ys)
		}
		doc = append(doc, yc)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode taxonomy: %w", err)
	}
	return enc.Close()
}
