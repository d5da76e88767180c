package table

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDuplicateKey is returned by InnerJoin under FailOnDuplicate when a key
// repeats on either side.
var ErrDuplicateKey = errors.New("duplicate join key")

// DuplicateKeys selects what InnerJoin does when a key repeats on either side.
type DuplicateKeys int

const (
	// AllowCrossProduct emits every left/right pairing for a repeated key.
	AllowCrossProduct DuplicateKeys = iota
	// FailOnDuplicate rejects inputs whose key column is not unique.
	FailOnDuplicate
)

func (d DuplicateKeys) String() string {
	switch d {
	case AllowCrossProduct:
		return "allow"
	case FailOnDuplicate:
		return "fail"
	}
	return fmt.Sprintf("DuplicateKeys(%d)", int(d))
}

// ParseDuplicateKeys accepts "allow" or "fail". Empty means allow.
func ParseDuplicateKeys(s string) (DuplicateKeys, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "allow":
		return AllowCrossProduct, nil
	case "fail":
		return FailOnDuplicate, nil
	}
	return 0, fmt.Errorf("unknown duplicate key mode %q (want allow or fail)", s)
}

// JoinOptions configures InnerJoin.
type JoinOptions struct {
	On         string
	Duplicates DuplicateKeys
	// Suffixes are appended to non-key columns present on both sides.
	// Defaults to "_x" and "_y".
	Suffixes [2]string
}

// InnerJoin keeps the pairs of rows whose On column is equal on both sides.
// Output rows follow left order, and for each left row the matching right
// rows in right order. Columns are the left columns followed by the right
// columns minus the key. Rows with an empty key never match.
func InnerJoin(left, right *Table, opts JoinOptions) (*Table, error) {
	if opts.Suffixes == [2]string{} {
		opts.Suffixes = [2]string{"_x", "_y"}
	}
	ls, err := Probe(left, opts.On)
	if err != nil {
		return nil, fmt.Errorf("left: %w", err)
	}
	rs, err := Probe(right, opts.On)
	if err != nil {
		return nil, fmt.Errorf("right: %w", err)
	}
	li, ri := ls.Index(opts.On), rs.Index(opts.On)

	if opts.Duplicates == FailOnDuplicate {
		if k, dup := firstDuplicate(left, li); dup {
			return nil, fmt.Errorf("left: %w: %s=%s", ErrDuplicateKey, opts.On, k)
		}
		if k, dup := firstDuplicate(right, ri); dup {
			return nil, fmt.Errorf("right: %w: %s=%s", ErrDuplicateKey, opts.On, k)
		}
	}

	rightCols := make([]int, 0, len(right.Header))
	for i := range right.Header {
		if i != ri {
			rightCols = append(rightCols, i)
		}
	}

	out := &Table{Header: joinHeader(left, right, li, rightCols, opts.Suffixes)}

	byKey := map[string][]int{}
	for r, row := range right.Rows {
		k := Key(row[ri])
		if k == "" {
			continue
		}
		byKey[k] = append(byKey[k], r)
	}

	for _, lrow := range left.Rows {
		k := Key(lrow[li])
		if k == "" {
			continue
		}
		for _, r := range byKey[k] {
			rrow := right.Rows[r]
			row := make([]string, 0, len(out.Header))
			row = append(row, lrow...)
			for _, c := range rightCols {
				row = append(row, rrow[c])
			}
			out.Rows = append(out.Rows, row)
		}
	}
	return out, nil
}

func joinHeader(left, right *Table, li int, rightCols []int, suffixes [2]string) []string {
	inLeft := map[string]bool{}
	for i, h := range left.Header {
		if i != li {
			inLeft[h] = true
		}
	}
	inRight := map[string]bool{}
	for _, c := range rightCols {
		inRight[right.Header[c]] = true
	}

	header := make([]string, 0, len(left.Header)+len(rightCols))
	for i, h := range left.Header {
		if i != li && inRight[h] {
			h += suffixes[0]
		}
		header = append(header, h)
	}
	for _, c := range rightCols {
		h := right.Header[c]
		if inLeft[h] {
			h += suffixes[1]
		}
		header = append(header, h)
	}
	return header
}

func firstDuplicate(t *Table, col int) (string, bool) {
	seen := map[string]bool{}
	for _, row := range t.Rows {
		k := Key(row[col])
		if k == "" {
			continue
		}
		if seen[k] {
			return row[col], true
		}
		seen[k] = true
	}
	return "", false
}
