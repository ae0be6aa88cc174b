package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// JournalRepository implements usecase.JournalRepository.
type JournalRepository struct {
	store *Store
}

// NewJournalRepository creates a new JournalRepository.
func NewJournalRepository(store *Store) *JournalRepository {
	return &JournalRepository{store: store}
}

func keyTaken(s *state, orgID string, key *string, keyOf func(*domain.JournalEntry) *string) bool {
	if key == nil {
		return false
	}
	for _, e := range s.entries {
		if e.OrganizationID == orgID && keyOf(e) != nil && *keyOf(e) == *key {
			return true
		}
	}
	return false
}

func closingKey(e *domain.JournalEntry) *string { return e.ClosingKey }
func openingKey(e *domain.JournalEntry) *string { return e.OpeningKey }

// Create inserts an entry with its lines.
func (r *JournalRepository) Create(_ context.Context, tx usecase.Transaction, entry *domain.JournalEntry) error {
	return r.store.write(tx, func(s *state) error {
		if _, ok := s.entries[entry.ID]; ok {
			return fmt.Errorf("%w: duplicate entry id %s", domain.ErrValidation, entry.ID)
		}
		if keyTaken(s, entry.OrganizationID, entry.ClosingKey, closingKey) {
			return fmt.Errorf("%w: %s", domain.ErrAlreadyClosed, *entry.ClosingKey)
		}
		if keyTaken(s, entry.OrganizationID, entry.OpeningKey, openingKey) {
			return fmt.Errorf("%w: %s", domain.ErrAlreadyOpened, *entry.OpeningKey)
		}
		s.entries[entry.ID] = copyEntry(entry)
		return nil
	})
}

func (r *JournalRepository) get(tx usecase.Transaction, orgID, id string) (*domain.JournalEntry, error) {
	var out *domain.JournalEntry
	err := r.store.read(tx, func(s *state) error {
		e, ok := s.entries[id]
		if !ok || e.OrganizationID != orgID || e.DeletedAt != nil {
			return domain.ErrEntryNotFound
		}
		out = copyEntry(e)
		return nil
	})
	return out, err
}

// GetByID retrieves an entry with its lines.
func (r *JournalRepository) GetByID(_ context.Context, tx usecase.Transaction, orgID, id string) (*domain.JournalEntry, error) {
	return r.get(tx, orgID, id)
}

// GetByIDForUpdate retrieves an entry with its lines. Transactions are already exclusive.
func (r *JournalRepository) GetByIDForUpdate(_ context.Context, tx usecase.Transaction, orgID, id string) (*domain.JournalEntry, error) {
	return r.get(tx, orgID, id)
}

// UpdateHeader stores every field of the entry except its lines.
func (r *JournalRepository) UpdateHeader(_ context.Context, tx usecase.Transaction, entry *domain.JournalEntry) error {
	return r.store.write(tx, func(s *state) error {
		cur, ok := s.entries[entry.ID]
		if !ok || cur.OrganizationID != entry.OrganizationID {
			return domain.ErrEntryNotFound
		}
		updated := copyEntry(entry)
		updated.Lines = cur.Lines
		s.entries[entry.ID] = updated
		return nil
	})
}

// ReplaceLines swaps the stored lines for entry.Lines.
func (r *JournalRepository) ReplaceLines(_ context.Context, tx usecase.Transaction, entry *domain.JournalEntry) error {
	return r.store.write(tx, func(s *state) error {
		cur, ok := s.entries[entry.ID]
		if !ok || cur.OrganizationID != entry.OrganizationID {
			return domain.ErrEntryNotFound
		}
		cur.Lines = append([]domain.JournalLine(nil), entry.Lines...)
		return nil
	})
}

func (r *JournalRepository) find(tx usecase.Transaction, orgID string, match func(*domain.JournalEntry) bool) (*domain.JournalEntry, error) {
	var out *domain.JournalEntry
	err := r.store.read(tx, func(s *state) error {
		for _, e := range s.entries {
			if e.OrganizationID == orgID && e.DeletedAt == nil && e.Status != domain.EntryStatusVoid && match(e) {
				out = copyEntry(e)
				return nil
			}
		}
		return domain.ErrEntryNotFound
	})
	return out, err
}

// FindReversal returns the live reversal of originalID.
func (r *JournalRepository) FindReversal(_ context.Context, tx usecase.Transaction, orgID, originalID string) (*domain.JournalEntry, error) {
	return r.find(tx, orgID, func(e *domain.JournalEntry) bool {
		return e.ReversalOfID != nil && *e.ReversalOfID == originalID
	})
}

// FindByClosingKey returns the closing entry with key.
func (r *JournalRepository) FindByClosingKey(_ context.Context, tx usecase.Transaction, orgID, key string) (*domain.JournalEntry, error) {
	return r.find(tx, orgID, func(e *domain.JournalEntry) bool {
		return e.ClosingKey != nil && *e.ClosingKey == key
	})
}

// FindByOpeningKey returns the opening entry with key.
func (r *JournalRepository) FindByOpeningKey(_ context.Context, tx usecase.Transaction, orgID, key string) (*domain.JournalEntry, error) {
	return r.find(tx, orgID, func(e *domain.JournalEntry) bool {
		return e.OpeningKey != nil && *e.OpeningKey == key
	})
}

// List lists entry headers, newest first.
func (r *JournalRepository) List(_ context.Context, tx usecase.Transaction, orgID string, filter domain.EntryFilter) ([]*domain.JournalEntry, error) {
	search := strings.ToLower(filter.Search)
	var out []*domain.JournalEntry
	err := r.store.read(tx, func(s *state) error {
		for _, e := range s.entries {
			if e.OrganizationID != orgID || e.DeletedAt != nil {
				continue
			}
			if filter.From != nil && e.Date.Before(*filter.From) {
				continue
			}
			if filter.To != nil && e.Date.After(*filter.To) {
				continue
			}
			if filter.Status != "" && e.Status != filter.Status {
				continue
			}
			if filter.EntryType != nil && e.EntryType != *filter.EntryType {
				continue
			}
			if search != "" && !strings.Contains(strings.ToLower(e.Memo), search) {
				continue
			}
			header := copyEntry(e)
			header.Lines = nil
			out = append(out, header)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return page(out, filter.Limit, filter.Offset), nil
}
