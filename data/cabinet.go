package data

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/giygas/medsafe-api/entities"
	"github.com/giygas/medsafe-api/interfaces"
)

var (
	ErrMedicineNotFound = errors.New("medicine not found")
	ErrMedicineExists   = errors.New("medicine already exists")
	ErrOutOfStock       = errors.New("no tablets left")
)

// Compile-time check to ensure CabinetStore implements CabinetStore
var _ interfaces.CabinetStore = (*CabinetStore)(nil)

type userCabinet struct {
	order []string // medicine ids in insertion order
	items map[string]*entities.OwnedMedicine
}

// CabinetStore keeps every user's owned medicines in memory. Every method
// takes the store lock, so each mutation is atomic per record. Values handed
// out are copies.
type CabinetStore struct {
	mu    sync.RWMutex
	users map[string]*userCabinet
}

// NewCabinetStore creates an empty store
func NewCabinetStore() *CabinetStore {
	return &CabinetStore{users: make(map[string]*userCabinet)}
}

// Add stores med under userID. The medicine id must be set and unused.
func (s *CabinetStore) Add(userID string, med entities.OwnedMedicine) error {
	if med.ID == "" {
		return fmt.Errorf("medicine id cannot be empty")
	}
	if med.TabletCount < 0 {
		return fmt.Errorf("tablet count cannot be negative, got %d", med.TabletCount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.users[userID]
	if !ok {
		c = &userCabinet{items: make(map[string]*entities.OwnedMedicine)}
		s.users[userID] = c
	}
	if _, exists := c.items[med.ID]; exists {
		return fmt.Errorf("%w: %s", ErrMedicineExists, med.ID)
	}

	stored := med.Clone()
	c.items[med.ID] = &stored
	c.order = append(c.order, med.ID)
	return nil
}

// Get returns a copy of one medicine
func (s *CabinetStore) Get(userID, medicineID string) (entities.OwnedMedicine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, err := s.lookup(userID, medicineID)
	if err != nil {
		return entities.OwnedMedicine{}, err
	}
	return m.Clone(), nil
}

// List returns copies of a user's medicines in the order they were added.
// An unknown user has an empty cabinet.
func (s *CabinetStore) List(userID string) []entities.OwnedMedicine {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.users[userID]
	if !ok {
		return []entities.OwnedMedicine{}
	}

	out := make([]entities.OwnedMedicine, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.items[id].Clone())
	}
	return out
}

// Remove deletes one medicine. The user entry goes away with its last item.
func (s *CabinetStore) Remove(userID, medicineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookup(userID, medicineID); err != nil {
		return err
	}

	c := s.users[userID]
	delete(c.items, medicineID)
	for i, id := range c.order {
		if id == medicineID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	if len(c.items) == 0 {
		delete(s.users, userID)
	}
	return nil
}

// Users returns the ids of users with at least one medicine, sorted
func (s *CabinetStore) Users() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.users))
	for id := range s.users {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// DecrementTablets implements interfaces.CabinetStore
func (s *CabinetStore) DecrementTablets(userID, medicineID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.lookup(userID, medicineID)
	if err != nil {
		return 0, err
	}
	if m.TabletCount <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrOutOfStock, medicineID)
	}
	m.TabletCount--
	return m.TabletCount, nil
}

// Restock implements interfaces.CabinetStore
func (s *CabinetStore) Restock(userID, medicineID string, tablets int, expiry *time.Time) (entities.OwnedMedicine, error) {
	if tablets < 0 {
		return entities.OwnedMedicine{}, fmt.Errorf("tablets to add cannot be negative, got %d", tablets)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.lookup(userID, medicineID)
	if err != nil {
		return entities.OwnedMedicine{}, err
	}

	m.TabletCount += tablets
	if expiry != nil && (m.ExpiryDate == nil || !m.ExpiryDate.Equal(*expiry)) {
		e := *expiry
		m.ExpiryDate = &e
		m.ExpiryAlertShown = false
	}
	return m.Clone(), nil
}

// MarkExpiryAlertShown records that the blocking expiry modal was dismissed
// for the current expiry cycle
func (s *CabinetStore) MarkExpiryAlertShown(userID, medicineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.lookup(userID, medicineID)
	if err != nil {
		return err
	}
	m.ExpiryAlertShown = true
	return nil
}

// lookup returns the stored record. Caller must hold mu.
func (s *CabinetStore) lookup(userID, medicineID string) (*entities.OwnedMedicine, error) {
	c, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMedicineNotFound, medicineID)
	}
	m, ok := c.items[medicineID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMedicineNotFound, medicineID)
	}
	return m, nil
}
