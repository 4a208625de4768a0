package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OwnedMedicine is a drug the user keeps in their cabinet.
type OwnedMedicine struct {
	ID               string     `json:"id"`
	DrugID           string     `json:"drugId"`
	MedicineName     string     `json:"medicineName"`
	Category         string     `json:"category"`
	ExpiryDate       *time.Time `json:"expiryDate,omitempty"`
	TabletCount      int        `json:"tabletCount"`
	ScheduleTimes    []string   `json:"scheduleTimes"`
	ExpiryAlertShown bool       `json:"expiryAlertShown"`
}

// OwnedMedicineParams are the caller-supplied fields of a new cabinet entry.
type OwnedMedicineParams struct {
	DrugID        string
	MedicineName  string
	Category      string
	ExpiryDate    *time.Time
	TabletCount   int
	ScheduleTimes []string
}

// NewOwnedMedicine validates params and returns a fresh cabinet entry with a
// generated id. The expiry alert flag always starts unset.
func NewOwnedMedicine(p OwnedMedicineParams) (OwnedMedicine, error) {
	if strings.TrimSpace(p.MedicineName) == "" {
		return OwnedMedicine{}, fmt.Errorf("medicine name cannot be empty")
	}
	if p.TabletCount < 0 {
		return OwnedMedicine{}, fmt.Errorf("tablet count cannot be negative, got %d", p.TabletCount)
	}

	times := make([]string, 0, len(p.ScheduleTimes))
	for _, t := range p.ScheduleTimes {
		if t = strings.TrimSpace(t); t != "" {
			times = append(times, t)
		}
	}

	var expiry *time.Time
	if p.ExpiryDate != nil {
		e := *p.ExpiryDate
		expiry = &e
	}

	return OwnedMedicine{
		ID:            uuid.NewString(),
		DrugID:        p.DrugID,
		MedicineName:  strings.TrimSpace(p.MedicineName),
		Category:      p.Category,
		ExpiryDate:    expiry,
		TabletCount:   p.TabletCount,
		ScheduleTimes: times,
	}, nil
}

// Clone returns a deep copy so callers cannot alias store-owned slices.
func (m OwnedMedicine) Clone() OwnedMedicine {
	c := m
	if m.ExpiryDate != nil {
		e := *m.ExpiryDate
		c.ExpiryDate = &e
	}
	if m.ScheduleTimes != nil {
		c.ScheduleTimes = append([]string(nil), m.ScheduleTimes...)
	}
	return c
}
