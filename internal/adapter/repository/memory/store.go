// Package memory implements the ledger ports in process memory. A transaction
// holds the store's write lock for its lifetime and restores a snapshot on
// rollback, so transactions are fully serialized.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// ErrTxDone is returned when a finished transaction is used again.
var ErrTxDone = errors.New("memory: transaction already finished")

type state struct {
	accounts    map[string]*domain.Account
	partners    map[string]*domain.BusinessPartner
	entries     map[string]*domain.JournalEntry
	locks       map[string]*domain.PeriodLock
	idempotency map[string]*domain.IdempotencyRecord
	audit       []*domain.AuditLog
}

func newState() *state {
	return &state{
		accounts:    make(map[string]*domain.Account),
		partners:    make(map[string]*domain.BusinessPartner),
		entries:     make(map[string]*domain.JournalEntry),
		locks:       make(map[string]*domain.PeriodLock),
		idempotency: make(map[string]*domain.IdempotencyRecord),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.accounts {
		c.accounts[k] = copyAccount(v)
	}
	for k, v := range s.partners {
		c.partners[k] = copyPartner(v)
	}
	for k, v := range s.entries {
		c.entries[k] = copyEntry(v)
	}
	for k, v := range s.locks {
		lock := *v
		c.locks[k] = &lock
	}
	for k, v := range s.idempotency {
		c.idempotency[k] = copyRecord(v)
	}
	c.audit = append(c.audit, s.audit...)
	return c
}

// Store is the shared in-memory state behind the repositories.
type Store struct {
	mu   sync.RWMutex
	data *state
}

// New creates an empty store.
func New() *Store {
	return &Store{data: newState()}
}

// read runs fn against the state. Without a transaction it takes the read
// lock; inside one the write lock is already held.
func (s *Store) read(tx usecase.Transaction, fn func(*state) error) error {
	if tx == nil {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return fn(s.data)
	}
	if err := checkTx(s, tx); err != nil {
		return err
	}
	return fn(s.data)
}

// write runs fn against the state, taking the write lock when tx is nil.
func (s *Store) write(tx usecase.Transaction, fn func(*state) error) error {
	if tx == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		return fn(s.data)
	}
	if err := checkTx(s, tx); err != nil {
		return err
	}
	return fn(s.data)
}

func checkTx(s *Store, tx usecase.Transaction) error {
	t, ok := tx.(*Tx)
	if !ok || t.store != s {
		return errors.New("memory: foreign transaction")
	}
	if t.done {
		return ErrTxDone
	}
	return nil
}

// TxManager implements usecase.TransactionManager.
type TxManager struct {
	store *Store
}

// NewTxManager creates a new TxManager.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// Begin takes the store's write lock until Commit or Rollback.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.store.mu.Lock()
	return &Tx{store: m.store, snapshot: m.store.data.clone()}, nil
}

// Tx is an in-memory transaction.
type Tx struct {
	store    *Store
	snapshot *state
	done     bool
}

// Commit keeps the changes and releases the lock.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	if err := ctx.Err(); err != nil {
		t.store.data = t.snapshot
		t.store.mu.Unlock()
		return err
	}
	t.store.mu.Unlock()
	return nil
}

// Rollback restores the snapshot. It is a no-op after Commit.
func (t *Tx) Rollback(context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.data = t.snapshot
	t.store.mu.Unlock()
	return nil
}

func copyAccount(a *domain.Account) *domain.Account {
	c := *a
	return &c
}

func copyPartner(p *domain.BusinessPartner) *domain.BusinessPartner {
	c := *p
	return &c
}

func copyEntry(e *domain.JournalEntry) *domain.JournalEntry {
	c := *e
	c.Lines = append([]domain.JournalLine(nil), e.Lines...)
	return &c
}

func copyRecord(r *domain.IdempotencyRecord) *domain.IdempotencyRecord {
	c := *r
	c.ResponseBody = append([]byte(nil), r.ResponseBody...)
	return &c
}

func page[T any](items []T, limit, offset int) []T {
	start := min(offset, len(items))
	end := len(items)
	if limit > 0 {
		end = min(start+limit, len(items))
	}
	return items[start:end]
}
