package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/giygas/medsafe-api/data"
	"github.com/giygas/medsafe-api/entities"
	"github.com/giygas/medsafe-api/interfaces"
	"github.com/giygas/medsafe-api/logging"
)

// ErrUnknownDrug is returned when a cabinet entry names a drug the catalog
// does not hold.
var ErrUnknownDrug = errors.New("drug not in catalog")

// DoseBlockedError is returned by LogDose when a dose may not be recorded.
type DoseBlockedError struct {
	Reason BlockReason
}

func (e *DoseBlockedError) Error() string {
	return fmt.Sprintf("dose cannot be logged: %s", e.Reason)
}

// ItemView is one cabinet entry with its derived states. The cabinet keeps no
// per-day dose log, so every dose window is computed as not yet logged:
// IsOverdue means the scheduled time has passed, not that the dose was
// missed.
type ItemView struct {
	Medicine          entities.OwnedMedicine `json:"medicine"`
	ExpiryStatus      ExpiryStatus           `json:"expiryStatus"`
	DaysUntilExpiry   *int                   `json:"daysUntilExpiry,omitempty"`
	LowStock          bool                   `json:"lowStock"`
	ShowBlockingModal bool                   `json:"showBlockingModal"`
	DoseBlocked       bool                   `json:"doseBlocked"`
	Doses             []DoseWindow           `json:"doses"`
}

// DoseResult reports a recorded dose
type DoseResult struct {
	Decision  DoseDecision `json:"decision"`
	Remaining int          `json:"remaining"`
	LowStock  bool         `json:"lowStock"`
}

// AddParams are the user-supplied fields when adding a catalog drug
type AddParams struct {
	ExpiryDate    *time.Time
	TabletCount   int
	ScheduleTimes []string
}

// SweepResult totals cabinet states across every user
type SweepResult struct {
	Users        int
	Medicines    int
	Expired      int
	ExpiringSoon int
	LowStock     int
}

// Service applies the machine's rules to the medicines held in a store
type Service struct {
	store    interfaces.CabinetStore
	catalogs interfaces.CatalogStore
	machine  *Machine
}

// NewService wires a cabinet store, the catalog container and a machine
func NewService(store interfaces.CabinetStore, catalogs interfaces.CatalogStore, machine *Machine) *Service {
	return &Service{store: store, catalogs: catalogs, machine: machine}
}

// Machine returns the rules engine in use
func (s *Service) Machine() *Machine {
	return s.machine
}

func (s *Service) view(med entities.OwnedMedicine) ItemView {
	v := ItemView{
		Medicine:          med,
		ExpiryStatus:      s.machine.CheckExpiryStatus(med.ExpiryDate),
		LowStock:          s.machine.IsLowStock(med),
		ShowBlockingModal: s.machine.ShouldShowBlockingModal(med),
		DoseBlocked:       s.machine.ShouldBlockDoseMarking(med),
		Doses:             s.machine.DoseWindows(med),
	}
	if med.ExpiryDate != nil {
		days := DaysUntilExpiry(*med.ExpiryDate, s.machine.Now())
		v.DaysUntilExpiry = &days
	}
	for _, d := range v.Doses {
		if !d.Parsed {
			logging.Warn("Unparseable schedule time", "medicine_id", med.ID, "time", d.Time)
		}
	}
	return v
}

// View returns every medicine of the user with its derived states
func (s *Service) View(userID string) []ItemView {
	meds := s.store.List(userID)
	views := make([]ItemView, 0, len(meds))
	for _, med := range meds {
		views = append(views, s.view(med))
	}
	return views
}

// Item returns one medicine with its derived states
func (s *Service) Item(userID, medicineID string) (ItemView, error) {
	med, err := s.store.Get(userID, medicineID)
	if err != nil {
		return ItemView{}, err
	}
	return s.view(med), nil
}

// Status summarizes the user's cabinet
func (s *Service) Status(userID string) CabinetStatus {
	return s.machine.ComputeCabinetStatus(s.store.List(userID))
}

// PendingAlerts returns the expired medicines whose modal has not been
// dismissed yet
func (s *Service) PendingAlerts(userID string) []entities.OwnedMedicine {
	return s.machine.PendingExpiryAlerts(s.store.List(userID))
}

// DismissExpiryAlert records that the blocking modal was shown. Dose logging
// stays blocked while the medicine is expired.
func (s *Service) DismissExpiryAlert(userID, medicineID string) error {
	if err := s.store.MarkExpiryAlertShown(userID, medicineID); err != nil {
		return fmt.Errorf("failed to dismiss expiry alert: %w", err)
	}
	return nil
}

// LogDose records one tablet taken for the given schedule time. A refused
// dose returns a *DoseBlockedError; the stock is only touched when allowed.
func (s *Service) LogDose(userID, medicineID, scheduled string) (DoseResult, error) {
	med, err := s.store.Get(userID, medicineID)
	if err != nil {
		return DoseResult{}, err
	}

	decision := s.machine.CanLogDose(med, scheduled, false)
	if !decision.Allowed {
		return DoseResult{Decision: decision}, &DoseBlockedError{Reason: decision.Reason}
	}

	remaining, err := s.store.DecrementTablets(userID, medicineID)
	if err != nil {
		if errors.Is(err, data.ErrOutOfStock) {
			decision = DoseDecision{Reason: ReasonOutOfStock, Window: decision.Window}
			return DoseResult{Decision: decision}, &DoseBlockedError{Reason: ReasonOutOfStock}
		}
		return DoseResult{}, fmt.Errorf("failed to record dose: %w", err)
	}

	return DoseResult{
		Decision:  decision,
		Remaining: remaining,
		LowStock:  remaining < s.machine.Policy().LowStockThreshold,
	}, nil
}

// Restock adds tablets and optionally a new expiry date. A changed date
// starts a new expiry cycle.
func (s *Service) Restock(userID, medicineID string, tablets int, expiry *time.Time) (ItemView, error) {
	med, err := s.store.Restock(userID, medicineID, tablets, expiry)
	if err != nil {
		return ItemView{}, fmt.Errorf("failed to restock: %w", err)
	}
	return s.view(med), nil
}

// AddFromCatalog adds a catalog drug to the user's cabinet. Name and
// category are copied from the catalog record.
func (s *Service) AddFromCatalog(userID, drugID string, p AddParams) (ItemView, error) {
	drug, ok := s.catalogs.GetCatalog().ByID(drugID)
	if !ok {
		return ItemView{}, fmt.Errorf("%w: %s", ErrUnknownDrug, drugID)
	}

	med, err := entities.NewOwnedMedicine(entities.OwnedMedicineParams{
		DrugID:        drug.ID,
		MedicineName:  drug.DisplayName,
		Category:      drug.Category,
		ExpiryDate:    p.ExpiryDate,
		TabletCount:   p.TabletCount,
		ScheduleTimes: p.ScheduleTimes,
	})
	if err != nil {
		return ItemView{}, err
	}
	if err := s.store.Add(userID, med); err != nil {
		return ItemView{}, fmt.Errorf("failed to add medicine: %w", err)
	}

	logging.Debug("Medicine added to cabinet", "user_id", userID, "drug_id", drug.ID, "medicine_id", med.ID)
	return s.view(med), nil
}

// Remove deletes a medicine from the user's cabinet
func (s *Service) Remove(userID, medicineID string) error {
	return s.store.Remove(userID, medicineID)
}

// Sweep recomputes the status of every cabinet
func (s *Service) Sweep() SweepResult {
	var r SweepResult
	for _, user := range s.store.Users() {
		st := s.Status(user)
		r.Users++
		r.Medicines += st.TotalMedicines
		r.Expired += st.ExpiredCount
		r.ExpiringSoon += st.ExpiringSoonCount
		r.LowStock += st.LowStockCount
	}
	return r
}
