package table

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// naTokens are the cell spellings a numeric reader treats as a missing value.
var naTokens = map[string]bool{
	"": true, "#N/A": true, "#N/A N/A": true, "#NA": true, "-1.#IND": true,
	"-1.#QNAN": true, "-NaN": true, "-nan": true, "1.#IND": true, "1.#QNAN": true,
	"<NA>": true, "N/A": true, "NA": true, "NULL": true, "NaN": true, "None": true,
	"n/a": true, "nan": true, "null": true,
}

// Missing reports whether s is an empty cell or one of the NA spellings.
func Missing(s string) bool {
	return naTokens[strings.TrimSpace(s)]
}

// maxExactInt is the largest magnitude below which every integer has an
// exact float64.
const maxExactInt = 1 << 53

func integer(s string) (int64, bool) {
	i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return i, err == nil
}

func number(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// Key canonicalises a join key: surrounding space is ignored and numeric keys
// compare by value, so "1" and "1.0" are the same grid point. Integers are
// compared exactly, never through float64. Missing values map to "".
func Key(s string) string {
	s = strings.TrimSpace(s)
	if Missing(s) {
		return ""
	}
	if i, ok := integer(s); ok {
		return strconv.FormatInt(i, 10)
	}
	if f, ok := number(s); ok {
		if f == math.Trunc(f) && math.Abs(f) < maxExactInt {
			return strconv.FormatInt(int64(f), 10)
		}
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return s
}

// compare orders two numeric cells. ok is false when either is not a number.
func compare(a, b string) (c int, ok bool) {
	if ia, okA := integer(a); okA {
		if ib, okB := integer(b); okB {
			switch {
			case ia < ib:
				return -1, true
			case ia > ib:
				return 1, true
			}
			return 0, true
		}
	}
	fa, okA := number(a)
	fb, okB := number(b)
	if !okA || !okB {
		return 0, false
	}
	switch {
	case fa < fb:
		return -1, true
	case fa > fb:
		return 1, true
	}
	return 0, true
}

// Equal compares two cells the way a numeric column would: by value when both
// are numbers, otherwise as text. Missing cells never equal anything.
func Equal(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if Missing(a) || Missing(b) {
		return false
	}
	if c, ok := compare(a, b); ok {
		return c == 0
	}
	return a == b
}

// SortKeys orders keys numerically when all of them are numbers and
// lexically otherwise.
func SortKeys(keys []string) {
	for _, k := range keys {
		if _, ok := number(k); !ok {
			sort.Strings(keys)
			return
		}
	}
	sort.SliceStable(keys, func(i, j int) bool {
		c, _ := compare(keys[i], keys[j])
		return c < 0
	})
}

// FormatFloat renders f with at least one decimal place, e.g. 50 -> "50.0".
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}
