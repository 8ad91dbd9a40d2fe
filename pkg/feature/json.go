package feature

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// WriteJSON writes the valid records as a single JSON object keyed by record
// ID, in input order, one entry per line. Invalid records are skipped, and so
// is any record whose ID was already written. It returns the number of
// records written.
func WriteJSON(w io.Writer, records []*Record) (int, error) {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("{"); err != nil {
		return 0, err
	}
	n := 0
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if !r.Valid() {
			continue
		}
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		r.fill()
		key, err := json.Marshal(r.ID)
		if err != nil {
			return n, err
		}
		val, err := json.Marshal(r)
		if err != nil {
			return n, fmt.Errorf("marshal %s: %w", r.ID, err)
		}
		if n > 0 {
			bw.WriteString(",")
		}
		bw.WriteString("\n  ")
		bw.Write(key)
		bw.WriteString(": ")
		bw.Write(val)
		n++
	}
	if n > 0 {
		bw.WriteString("\n")
	}
	bw.WriteString("}\n")
	return n, bw.Flush()
}

// ReadJSON reads a document written by WriteJSON, preserving entry order.
// Every record read back is Valid.
func ReadJSON(r io.Reader) ([]*Record, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("feature: expected object, got %v", tok)
	}

	var out []*Record
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("feature: expected key, got %v", tok)
		}
		rec := &Record{}
		if err := dec.Decode(rec); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		if rec.ID == "" {
			rec.ID = key
		}
		rec.fill()
		rec.State = Valid
		out = append(out, rec)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}
