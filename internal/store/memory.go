package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory keeps everything in process. Used for local runs and tests.
type Memory struct {
	mu       sync.RWMutex
	accounts map[string]Account
	byName   map[string]string
	wagers   map[string]Wager
	entries  []LedgerEntry
	now      func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		accounts: map[string]Account{},
		byName:   map[string]string{},
		wagers:   map[string]Wager{},
		now:      time.Now,
	}
}

func (m *Memory) CreateAccount(_ context.Context, acc Account, entry *LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byName[acc.DisplayName]; ok {
		return ErrDuplicate
	}
	if _, ok := m.accounts[acc.ID]; ok {
		return ErrDuplicate
	}
	m.accounts[acc.ID] = acc
	m.byName[acc.DisplayName] = acc.ID
	if entry != nil {
		m.entries = append(m.entries, *entry)
	}
	return nil
}

func (m *Memory) GetAccount(_ context.Context, id string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acc, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &acc, nil
}

func (m *Memory) GetAccountByName(_ context.Context, displayName string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byName[displayName]
	if !ok {
		return nil, ErrNotFound
	}
	acc := m.accounts[id]
	return &acc, nil
}

func (m *Memory) ListAccounts(_ context.Context, limit, offset int) ([]Account, error) {
	m.mu.RLock()
	out := make([]Account, 0, len(m.accounts))
	for _, acc := range m.accounts {
		out = append(out, acc)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	start, end := page(len(out), limit, offset)
	return out[start:end], nil
}

func (m *Memory) SaveAccount(_ context.Context, acc Account, entry *LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.casAccountLocked(acc); err != nil {
		return err
	}
	if entry != nil {
		m.entries = append(m.entries, *entry)
	}
	return nil
}

func (m *Memory) casAccountLocked(acc Account) error {
	cur, ok := m.accounts[acc.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != acc.Version {
		return ErrConflict
	}
	if acc.Balance < 0 {
		return ErrCorrupt
	}
	cur.Balance = acc.Balance
	cur.Version++
	cur.UpdatedAt = m.now().UTC()
	m.accounts[acc.ID] = cur
	return nil
}

func (m *Memory) DeleteAccount(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.accounts, id)
	delete(m.byName, acc.DisplayName)
	for wid, w := range m.wagers {
		if w.AccountID == id {
			delete(m.wagers, wid)
		}
	}
	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.AccountID != id {
			kept = append(kept, e)
		}
	}
	m.entries = kept
	return nil
}

func (m *Memory) GetWager(_ context.Context, id string) (*Wager, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.wagers[id]
	if !ok {
		return nil, ErrNotFound
	}
	w = copyWager(w)
	return &w, nil
}

func (m *Memory) ListWagers(_ context.Context, f WagerFilter, limit, offset int) ([]Wager, error) {
	m.mu.RLock()
	out := make([]Wager, 0)
	for _, w := range m.wagers {
		if f.match(w) {
			out = append(out, copyWager(w))
		}
	}
	m.mu.RUnlock()
	sortWagers(out)
	start, end := page(len(out), limit, offset)
	return out[start:end], nil
}

func (m *Memory) PlaceWagers(_ context.Context, acc Account, wagers []Wager, entries []LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range wagers {
		if _, ok := m.wagers[w.ID]; ok {
			return ErrDuplicate
		}
	}
	if err := m.casAccountLocked(acc); err != nil {
		return err
	}
	for _, w := range wagers {
		m.wagers[w.ID] = copyWager(w)
	}
	m.entries = append(m.entries, entries...)
	return nil
}

func (m *Memory) SettleWager(_ context.Context, w Wager, acc *Account, entry *LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.wagers[w.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Status != WagerPending {
		return ErrConflict
	}
	if acc != nil {
		if err := m.casAccountLocked(*acc); err != nil {
			return err
		}
	}
	cur.Status = w.Status
	cur.SettledAt = w.SettledAt
	m.wagers[w.ID] = copyWager(cur)
	if entry != nil {
		m.entries = append(m.entries, *entry)
	}
	return nil
}

func (m *Memory) ListLedgerEntries(_ context.Context, f LedgerFilter, limit, offset int) ([]LedgerEntry, error) {
	m.mu.RLock()
	out := make([]LedgerEntry, 0)
	for _, e := range m.entries {
		if f.match(e) {
			out = append(out, e)
		}
	}
	m.mu.RUnlock()
	sortEntries(out)
	start, end := page(len(out), limit, offset)
	return out[start:end], nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

// sortWagers orders newest first, ties broken by id.
func sortWagers(ws []Wager) {
	sort.Slice(ws, func(i, j int) bool {
		if ws[i].PlacedAt.Equal(ws[j].PlacedAt) {
			return ws[i].ID > ws[j].ID
		}
		return ws[i].PlacedAt.After(ws[j].PlacedAt)
	})
}

func sortEntries(es []LedgerEntry) {
	sort.Slice(es, func(i, j int) bool {
		if es[i].CreatedAt.Equal(es[j].CreatedAt) {
			return es[i].ID > es[j].ID
		}
		return es[i].CreatedAt.After(es[j].CreatedAt)
	})
}
