package envelope

import (
	"net/url"
	"strconv"
	"strings"
)

// Pagination bounds.
const (
	DefaultPage     = 1
	DefaultPageSize = 25
	MaxPageSize     = 100
)

// Page is a parsed pagination request.
type Page struct {
	Number int
	Size   int
}

// Offset returns the zero-based item offset for this page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// ParsePage reads "page" and "pageSize" query parameters. page defaults to 1
// and is floored at 1; pageSize defaults to 25 and is clamped to [1,100].
// Non-numeric input falls back to the default rather than erroring.
func ParsePage(query url.Values) Page {
	page := parseIntDefault(query.Get("page"), DefaultPage)
	if page < 1 {
		page = DefaultPage
	}

	size := parseIntDefault(query.Get("pageSize"), DefaultPageSize)
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	return Page{Number: page, Size: size}
}

// Sort is a parsed sort request. A zero Sort means unsorted.
type Sort struct {
	Field string
	Desc  bool
}

// ParseSort reads the "sort" query parameter in "field:asc|desc" form.
// Unrecognized fields or malformed values are ignored (unsorted), not errors.
func ParseSort(query url.Values, allowed []string) Sort {
	raw := query.Get("sort")
	if raw == "" {
		return Sort{}
	}

	field, dir, _ := strings.Cut(raw, ":")
	ok := false
	for _, a := range allowed {
		if a == field {
			ok = true
			break
		}
	}
	if !ok {
		return Sort{}
	}

	switch dir {
	case "desc":
		return Sort{Field: field, Desc: true}
	case "asc", "":
		return Sort{Field: field}
	default:
		return Sort{}
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
