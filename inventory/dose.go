package inventory

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/giygas/medsafe-api/entities"
)

// DoseWindow is the state of one scheduled dose time relative to now
type DoseWindow struct {
	Time      string    `json:"time"`
	Scheduled time.Time `json:"scheduled"`
	Parsed    bool      `json:"parsed"`
	IsPast    bool      `json:"isPast"`
	IsCurrent bool      `json:"isCurrent"`
	IsLocked  bool      `json:"isLocked"`
	IsOverdue bool      `json:"isOverdue"`
}

// BlockReason says why a dose cannot be logged
type BlockReason int

const (
	ReasonNone BlockReason = iota
	ReasonExpired
	ReasonOutOfStock
	ReasonLocked
)

var reasonNames = [...]string{"", "expired", "out_of_stock", "locked"}

func (r BlockReason) String() string {
	if r < 0 || int(r) >= len(reasonNames) {
		return fmt.Sprintf("BlockReason(%d)", int(r))
	}
	return reasonNames[r]
}

// MarshalText renders the reason by name in JSON payloads
func (r BlockReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// DoseDecision is the outcome of CanLogDose
type DoseDecision struct {
	Allowed bool        `json:"allowed"`
	Reason  BlockReason `json:"reason,omitempty"`
	Window  DoseWindow  `json:"window"`
}

// ParseScheduleTime reads "HH:MM" on now's date. A trailing AM/PM marker and
// stray characters around the digits are tolerated; "0930" is read as 09:30,
// "10:30:00" drops the seconds and "8 PM" needs no minutes.
func ParseScheduleTime(s string, now time.Time) (time.Time, bool) {
	lower := strings.ToLower(s)
	pm := strings.Contains(lower, "pm") || strings.Contains(lower, "p.m")
	am := !pm && (strings.Contains(lower, "am") || strings.Contains(lower, "a.m"))

	hourStr, minStr, ok := splitClock(digitGroups(lower), am || pm)
	if !ok {
		return time.Time{}, false
	}
	hour, err1 := strconv.Atoi(hourStr)
	minute, err2 := strconv.Atoi(minStr)
	if err1 != nil || err2 != nil || minute > 59 {
		return time.Time{}, false
	}

	switch {
	case am || pm:
		if hour < 1 || hour > 12 {
			return time.Time{}, false
		}
		if pm && hour < 12 {
			hour += 12
		}
		if am && hour == 12 {
			hour = 0
		}
	case hour > 23:
		return time.Time{}, false
	}

	y, m, d := now.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, now.Location()), true
}

// digitGroups returns the runs of digits in s, in order
func digitGroups(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r < '0' || r > '9'
	})
}

// splitClock reads hour and minute from "H:MM", "HH:MM", "HMM" or "HHMM".
// Groups after the minutes are seconds and ignored. A bare hour is only
// accepted next to an AM/PM marker.
func splitClock(groups []string, marker bool) (string, string, bool) {
	switch {
	case len(groups) >= 2:
		h, m := groups[0], groups[1]
		if len(h) < 1 || len(h) > 2 || len(m) != 2 {
			return "", "", false
		}
		return h, m, true
	case len(groups) == 1:
		g := groups[0]
		switch {
		case len(g) == 3 || len(g) == 4:
			return g[:len(g)-2], g[len(g)-2:], true
		case marker && (len(g) == 1 || len(g) == 2):
			return g, "00", true
		}
	}
	return "", "", false
}

// EvaluateDose computes the window of a scheduled time for today. An
// unparseable time yields an unlocked window with Parsed false.
func (m *Machine) EvaluateDose(scheduled string, logged bool) DoseWindow {
	return evaluateDose(m.policy, scheduled, m.clock(), logged)
}

func evaluateDose(p Policy, scheduled string, now time.Time, logged bool) DoseWindow {
	w := DoseWindow{Time: scheduled}

	at, ok := ParseScheduleTime(scheduled, now)
	if !ok {
		return w
	}

	diff := at.Sub(now)
	w.Scheduled = at
	w.Parsed = true
	w.IsPast = at.Before(now)
	w.IsCurrent = diff.Abs() < p.CurrentWindow
	w.IsLocked = !logged && !w.IsPast && diff >= p.UnlockLead
	w.IsOverdue = w.IsPast && !logged
	return w
}

// IsDoseLocked reports whether a dose scheduled at the given time cannot be
// logged yet, using the default policy. Unparseable times are unlocked.
func IsDoseLocked(scheduled string, now time.Time, logged bool) bool {
	return evaluateDose(DefaultPolicy(), scheduled, now, logged).IsLocked
}

// CanLogDose decides whether a dose of med may be logged for the scheduled
// time. Expiry is checked first, then stock, then the time lock.
func (m *Machine) CanLogDose(med entities.OwnedMedicine, scheduled string, logged bool) DoseDecision {
	w := m.EvaluateDose(scheduled, logged)

	switch {
	case m.ShouldBlockDoseMarking(med):
		return DoseDecision{Reason: ReasonExpired, Window: w}
	case med.TabletCount <= 0:
		return DoseDecision{Reason: ReasonOutOfStock, Window: w}
	case w.IsLocked:
		return DoseDecision{Reason: ReasonLocked, Window: w}
	}
	return DoseDecision{Allowed: true, Window: w}
}

// DoseWindows evaluates every scheduled time of med for today. None are
// treated as logged, so a past slot stays overdue after a dose is recorded.
func (m *Machine) DoseWindows(med entities.OwnedMedicine) []DoseWindow {
	windows := make([]DoseWindow, 0, len(med.ScheduleTimes))
	for _, s := range med.ScheduleTimes {
		windows = append(windows, m.EvaluateDose(s, false))
	}
	return windows
}
