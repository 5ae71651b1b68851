package signup

import (
	"fmt"
	"strings"
	"time"

	"github.com/AlexTLDR/charter/internal/student"
)

// SophomoreWindow selects which start date governs sophomores (and every
// class two or more years below the seniors).
type SophomoreWindow string

const (
	// SophomoreUsesJunior reuses the junior start date. This is how the club's
	// signups have always behaved even though events carry a sophomore date.
	SophomoreUsesJunior SophomoreWindow = "junior"
	// SophomoreUsesSophomore reads the event's own sophomore start date.
	SophomoreUsesSophomore SophomoreWindow = "sophomore"
)

// ParseSophomoreWindow validates a configured mapping name.
func ParseSophomoreWindow(s string) (SophomoreWindow, error) {
	switch w := SophomoreWindow(strings.ToLower(strings.TrimSpace(s))); w {
	case "":
		return SophomoreUsesJunior, nil
	case SophomoreUsesJunior, SophomoreUsesSophomore:
		return w, nil
	}
	return "", fmt.Errorf("unknown sophomore window %q (want %q or %q)", s, SophomoreUsesJunior, SophomoreUsesSophomore)
}

const windowLayout = "Mon Jan 02, 2006 03:04 PM"

// Window is the [Open, Close] interval in which a variant may sign up.
type Window struct {
	Label string
	Open  time.Time
	Close time.Time
}

// Check rejects now if it falls outside the window.
func (w Window) Check(now time.Time) error {
	if now.Before(w.Open) {
		return reject(KindWindow, "%s start signing up at %s", w.Label, w.Open.Format(windowLayout))
	}
	if now.After(w.Close) {
		return reject(KindWindow, "Signup closed at %s", w.Close.Format(windowLayout))
	}
	return nil
}

// at combines a calendar date with the time of day of tod in loc.
func at(day, tod time.Time, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), tod.Hour(), tod.Minute(), tod.Second(), 0, loc)
}

// signupStart returns the start date field that governs the variant.
func (e *Event) signupStart(v student.Variant, policy SophomoreWindow) time.Time {
	switch v {
	case student.VariantSenior:
		return e.SeniorSignupStart
	case student.VariantJunior:
		return e.JuniorSignupStart
	case student.VariantSophomore:
		if policy == SophomoreUsesSophomore {
			return e.SophomoreSignupStart
		}
		return e.JuniorSignupStart
	default:
		return e.ProspectiveSignupStart
	}
}

// WindowFor resolves the signup window of a variant for the event.
func WindowFor(e *Event, v student.Variant, policy SophomoreWindow, loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}
	return Window{
		Label: v.Label(),
		Open:  at(e.signupStart(v, policy), e.SignupTime, loc),
		Close: at(e.SignupEnd, e.SignupTime, loc),
	}
}

// CheckWindows rejects an event whose signup close precedes any signup open.
// The dates are edited independently, so this runs on every request.
func (e *Event) CheckWindows(loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	closeAt := at(e.SignupEnd, e.SignupTime, loc)
	starts := []struct {
		label string
		day   time.Time
	}{
		{"senior", e.SeniorSignupStart},
		{"junior", e.JuniorSignupStart},
		{"sophomore", e.SophomoreSignupStart},
		{"prospective", e.ProspectiveSignupStart},
	}
	for _, s := range starts {
		if openAt := at(s.day, e.SignupTime, loc); closeAt.Before(openAt) {
			return reject(KindWindow, "Signups for %q are misconfigured: the %s signup opens at %s but signups close at %s",
				e.Title, s.label, openAt.Format(windowLayout), closeAt.Format(windowLayout))
		}
	}
	return nil
}
