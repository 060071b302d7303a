package printing

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Sides selects one or two sided printing.
type Sides int

const (
	OneSided Sides = iota
	TwoSidedLongEdge
	TwoSidedShortEdge
)

var sidesKeywords = map[Sides]string{
	OneSided:          "one-sided",
	TwoSidedLongEdge:  "two-sided-long-edge",
	TwoSidedShortEdge: "two-sided-short-edge",
}

// Keyword returns the IPP "sides" keyword.
func (s Sides) Keyword() string { return sidesKeywords[s] }

// ColorMode selects grayscale or color output.
type ColorMode int

const (
	Grayscale ColorMode = iota
	Color
)

var colorModeKeywords = map[ColorMode]string{
	Grayscale: "grayscale",
	Color:     "color",
}

// Keyword returns the IPP "print-color-mode" keyword.
func (c ColorMode) Keyword() string { return colorModeKeywords[c] }

// Options are the print settings a caller chose for one job.
type Options struct {
	Sides     Sides
	ColorMode ColorMode
	// Pages is the raw page selection, see pages.Merge.
	Pages  string
	Copies int
	Title  string
}

// OptionError reports a query parameter that could not be used.
type OptionError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e OptionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// MaxTitleLength is the longest job title accepted, the limit of an IPP name
// value.
const MaxTitleLength = 255

// ParseOptions reads Options from the query of a print request. sides,
// colorMode and copies are required; pages and title may be omitted.
func ParseOptions(q url.Values) (Options, error) {
	var (
		o   Options
		err error
	)

	if o.Sides, err = lookup("sides", q.Get("sides"), sidesKeywords); err != nil {
		return Options{}, err
	}
	if o.ColorMode, err = lookup("colorMode", q.Get("colorMode"), colorModeKeywords); err != nil {
		return Options{}, err
	}

	copies := q.Get("copies")
	if copies == "" {
		return Options{}, OptionError{Field: "copies", Reason: "is required"}
	}
	n, err := strconv.ParseUint(copies, 10, 31)
	if err != nil {
		return Options{}, OptionError{Field: "copies", Reason: "must be a non-negative integer"}
	}
	o.Copies = int(n)

	o.Pages = q.Get("pages")
	o.Title = q.Get("title")
	if len(o.Title) > MaxTitleLength {
		return Options{}, OptionError{Field: "title", Reason: fmt.Sprintf("must be at most %d bytes", MaxTitleLength)}
	}
	return o, nil
}

func lookup[T comparable](field, value string, keywords map[T]string) (T, error) {
	var zero T
	if value == "" {
		return zero, OptionError{Field: field, Reason: "is required"}
	}
	for k, kw := range keywords {
		if kw == value {
			return k, nil
		}
	}

	allowed := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		allowed = append(allowed, kw)
	}
	sort.Strings(allowed)
	return zero, OptionError{Field: field, Reason: fmt.Sprintf("must be one of %s", strings.Join(allowed, ", "))}
}
