package retro

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
)

// Window is an inclusive reporting date range. Both bounds take part in
// the decision-date containment test.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewWindow builds a window from inclusive bounds, normalized to
// midnight UTC so containment checks compare calendar days only.
func NewWindow(start, end time.Time) (Window, error) {
	w := Window{Start: dateOnly(start), End: dateOnly(end)}
	if w.End.Before(w.Start) {
		return Window{}, eris.Errorf("retro: window end %s before start %s",
			w.End.Format(time.DateOnly), w.Start.Format(time.DateOnly))
	}
	return w, nil
}

// Contains reports whether t falls inside the window, inclusive on both ends.
// A nil date is never contained.
func (w Window) Contains(t *time.Time) bool {
	if t == nil {
		return false
	}
	d := dateOnly(*t)
	return !d.Before(w.Start) && !d.After(w.End)
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s]", w.Start.Format(time.DateOnly), w.End.Format(time.DateOnly))
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
