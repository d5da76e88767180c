package table

import "fmt"

// Schema is the result of probing a table's header once: required columns
// are guaranteed present, optional ones can be checked with Has.
type Schema struct {
	idx map[string]int
}

// Probe resolves the header of t and fails with ErrMissingColumn when any of
// required is absent.
func Probe(t *Table, required ...string) (Schema, error) {
	s := Schema{idx: make(map[string]int, len(t.Header))}
	for i, h := range t.Header {
		if _, dup := s.idx[h]; !dup {
			s.idx[h] = i
		}
	}
	for _, r := range required {
		if _, ok := s.idx[r]; !ok {
			return Schema{}, fmt.Errorf("%w: %q", ErrMissingColumn, r)
		}
	}
	return s, nil
}

func (s Schema) Has(name string) bool {
	_, ok := s.idx[name]
	return ok
}

// Index returns the column position of name or -1.
func (s Schema) Index(name string) int {
	if i, ok := s.idx[name]; ok {
		return i
	}
	return -1
}
