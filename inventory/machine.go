// Package inventory derives time-dependent states for the medicines in a
// user's cabinet: expiry alerts, low stock, dose-time windows and the
// cabinet summary. The Machine only reads; writes go through a CabinetStore.
package inventory

import (
	"fmt"
	"time"

	"github.com/giygas/medsafe-api/entities"
)

// Policy holds the thresholds the machine applies
type Policy struct {
	ExpiringSoonDays  int           // expiry within this many days is "expiring soon"
	LowStockThreshold int           // fewer tablets than this is low stock
	UnlockLead        time.Duration // dose logging opens this long before the scheduled time
	CurrentWindow     time.Duration // half-width of the "current dose" window
}

// DefaultPolicy returns the thresholds used when nothing is configured
func DefaultPolicy() Policy {
	return Policy{
		ExpiringSoonDays:  30,
		LowStockThreshold: 5,
		UnlockLead:        60 * time.Minute,
		CurrentWindow:     30 * time.Minute,
	}
}

// Clock supplies the current time
type Clock func() time.Time

// ExpiryStatus is the alert level of a medicine's expiry date
type ExpiryStatus int

const (
	ExpiryNone ExpiryStatus = iota // no date recorded
	ExpirySafe
	ExpiringSoon
	ExpiryExpired
)

var expiryNames = [...]string{"none", "safe", "expiringSoon", "expired"}

func (s ExpiryStatus) String() string {
	if s < 0 || int(s) >= len(expiryNames) {
		return fmt.Sprintf("ExpiryStatus(%d)", int(s))
	}
	return expiryNames[s]
}

// MarshalText renders the status by name in JSON payloads
func (s ExpiryStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CabinetStatus summarizes a cabinet. It is recomputed from the full list on
// every call.
type CabinetStatus struct {
	TotalMedicines    int  `json:"totalMedicines"`
	ExpiredCount      int  `json:"expiredCount"`
	ExpiringSoonCount int  `json:"expiringSoonCount"`
	LowStockCount     int  `json:"lowStockCount"`
	NeedsAttention    bool `json:"needsAttention"`
}

// Machine evaluates cabinet states against a policy and a clock
type Machine struct {
	policy Policy
	clock  Clock
}

// New creates a machine. A nil clock uses time.Now.
func New(policy Policy, clock Clock) *Machine {
	if clock == nil {
		clock = time.Now
	}
	return &Machine{policy: policy, clock: clock}
}

// Policy returns the thresholds in use
func (m *Machine) Policy() Policy {
	return m.policy
}

// Now returns the machine's current time
func (m *Machine) Now() time.Time {
	return m.clock()
}

// DaysUntilExpiry counts calendar days from now to expiry in the local zone.
// Negative means the date has passed; 0 is today.
func DaysUntilExpiry(expiry, now time.Time) int {
	ey, em, ed := expiry.In(time.Local).Date()
	ny, nm, nd := now.In(time.Local).Date()
	// UTC midnights keep every day 24h long
	e := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	n := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	return int(e.Sub(n).Hours() / 24)
}

// CheckExpiryStatus classifies an expiry date. A nil date is ExpiryNone,
// never ExpirySafe.
func (m *Machine) CheckExpiryStatus(expiry *time.Time) ExpiryStatus {
	if expiry == nil {
		return ExpiryNone
	}
	days := DaysUntilExpiry(*expiry, m.clock())
	switch {
	case days < 0:
		return ExpiryExpired
	case days <= m.policy.ExpiringSoonDays:
		return ExpiringSoon
	default:
		return ExpirySafe
	}
}

// IsExpired reports whether the medicine's expiry date has passed
func (m *Machine) IsExpired(med entities.OwnedMedicine) bool {
	return m.CheckExpiryStatus(med.ExpiryDate) == ExpiryExpired
}

// ShouldShowBlockingModal reports whether the expired-medicine modal must be
// shown. It stays up until the alert is recorded as shown for this expiry.
func (m *Machine) ShouldShowBlockingModal(med entities.OwnedMedicine) bool {
	return m.IsExpired(med) && !med.ExpiryAlertShown
}

// ShouldBlockDoseMarking reports whether doses of med cannot be logged.
// Dismissing the modal does not lift the block.
func (m *Machine) ShouldBlockDoseMarking(med entities.OwnedMedicine) bool {
	return m.IsExpired(med)
}

// IsLowStock reports a tablet count under the policy threshold
func (m *Machine) IsLowStock(med entities.OwnedMedicine) bool {
	return med.TabletCount < m.policy.LowStockThreshold
}

// PendingExpiryAlerts returns the medicines whose blocking modal must show on
// this activation, in input order
func (m *Machine) PendingExpiryAlerts(meds []entities.OwnedMedicine) []entities.OwnedMedicine {
	pending := []entities.OwnedMedicine{}
	for _, med := range meds {
		if m.ShouldShowBlockingModal(med) {
			pending = append(pending, med)
		}
	}
	return pending
}

// ComputeCabinetStatus counts expiry and stock states over meds
func (m *Machine) ComputeCabinetStatus(meds []entities.OwnedMedicine) CabinetStatus {
	status := CabinetStatus{TotalMedicines: len(meds)}
	for _, med := range meds {
		switch m.CheckExpiryStatus(med.ExpiryDate) {
		case ExpiryExpired:
			status.ExpiredCount++
		case ExpiringSoon:
			status.ExpiringSoonCount++
		}
		if m.IsLowStock(med) {
			status.LowStockCount++
		}
	}
	status.NeedsAttention = status.ExpiredCount > 0 || status.ExpiringSoonCount > 0
	return status
}
