package tool

import (
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/trademind/agent/contract"
)

var ErrDateFormat = errors.New("unrecognized date format")

// dayLayouts are tried in order after the MM/YYYY form. Day and month may
// be written with one or two digits.
var dayLayouts = []string{
	"2006-1-2",
	"2/1/2006",
	"2006/1/2",
	"2-1-2006",
}

// ParseDate accepts MM/YYYY (first of the month), YYYY-MM-DD, DD/MM/YYYY,
// YYYY/MM/DD and DD-MM-YYYY.
func ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if strings.Count(s, "/") == 1 {
		t, err := time.Parse("1/2006", s)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrDateFormat, raw)
		}
		return contractx.Date(t), nil
	}
	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return contractx.Date(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrDateFormat, raw)
}
