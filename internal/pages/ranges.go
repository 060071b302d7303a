// Package pages parses page selections like "1-3,7-9" into the ranges sent
// to the printer.
package pages

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Range is an inclusive interval of page numbers.
type Range struct {
	Start int
	End   int
}

func (r Range) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// ParseError is returned when a term of a page selection is not an integer.
// Term holds the piece of input that failed to parse.
type ParseError struct {
	Term string
	Err  error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("range parsing error: %v in %q", e.Err, e.Term)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Merge parses input into ascending, disjoint ranges. An empty or blank input
// yields no ranges, which callers treat as "all pages".
//
// Only ranges whose end is greater than their start are kept, so a bare page
// such as "5" or a range like "5-5" is dropped without an error.
//
// Overlapping or touching ranges are joined and keep the larger end, so a
// range never shrinks an earlier one that contains it: "1-10,2-3" gives 1-10,
// not 1-3.
func Merge(input string) ([]Range, error) {
	if strings.TrimSpace(input) == "" {
		return []Range{}, nil
	}

	var ranges []Range
	for _, term := range strings.Split(input, ",") {
		r, err := parseTerm(strings.TrimSpace(term))
		if err != nil {
			return nil, err
		}
		if r.End > r.Start {
			ranges = append(ranges, r)
		}
	}

	sort.SliceStable(ranges, func(i, j int) bool {
		return ranges[i].Start < ranges[j].Start
	})

	merged := make([]Range, 0, len(ranges))
	for _, r := range ranges {
		if n := len(merged); n > 0 && merged[n-1].End >= r.Start {
			if r.End > merged[n-1].End {
				merged[n-1].End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}

	return merged, nil
}

// Format renders ranges back into the textual form accepted by Merge.
func Format(ranges []Range) string {
	terms := make([]string, len(ranges))
	for i, r := range ranges {
		terms[i] = r.String()
	}
	return strings.Join(terms, ",")
}

func parseTerm(term string) (Range, error) {
	start, end, ok := strings.Cut(term, "-")
	if !ok {
		end = start
	}

	s, err := parsePage(start)
	if err != nil {
		return Range{}, err
	}
	e, err := parsePage(end)
	if err != nil {
		return Range{}, err
	}

	return Range{Start: s, End: e}, nil
}

func parsePage(s string) (int, error) {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, &ParseError{Term: s, Err: err}
	}
	return int(n), nil
}
