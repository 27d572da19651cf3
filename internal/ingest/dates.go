package ingest

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Date layouts accepted in extract files, in match order.
var dateLayouts = []string{
	time.DateOnly, // 2006-01-02
	"01/02/2006",
	"1/2/2006",
	"2006-01-02 15:04:05", // datetime columns exported from the warehouse
}

// ParseDate parses a date cell. Empty strings and the literal NULL
// markers warehouse exports produce return nil, not an error.
func ParseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") || s == `\N` {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d, nil
		}
	}
	return nil, eris.Errorf("ingest: unparseable date %q", s)
}
