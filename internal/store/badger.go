package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

const (
	keyAccount      = "acct/"
	keyAccountName  = "name/"
	keyWager        = "wager/"
	keyAccountWager = "acwg/"
	keyEntry        = "entry/"
)

// Badger is the embedded Store for single-node and offline runs. Values are
// JSON documents; secondary keys index accounts by name and wagers and journal
// entries by account.
type Badger struct {
	db  *badger.DB
	now func() time.Time
}

type BadgerOptions struct {
	Path     string
	InMemory bool
}

func OpenBadger(opts BadgerOptions) (*Badger, error) {
	if strings.TrimSpace(opts.Path) == "" && !opts.InMemory {
		return nil, errors.New("badger store: path is required")
	}
	bopts := badger.DefaultOptions(opts.Path).WithLogger(nil)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, err
	}
	return &Badger{db: db, now: time.Now}, nil
}

func (s *Badger) update(fn func(txn *badger.Txn) error) error {
	err := s.db.Update(fn)
	if errors.Is(err, badger.ErrConflict) {
		return ErrConflict
	}
	return err
}

func getJSON(txn *badger.Txn, key string, dst any) error {
	item, err := txn.Get([]byte(key))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	return item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, dst); err != nil {
			return fmt.Errorf("decode %s: %v: %w", key, err, ErrCorrupt)
		}
		return nil
	})
}

func setJSON(txn *badger.Txn, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set([]byte(key), raw)
}

func exists(txn *badger.Txn, key string) (bool, error) {
	_, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

func scanPrefix(txn *badger.Txn, prefix string, values bool, fn func(key string, item *badger.Item) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	opts.PrefetchValues = values
	it := txn.NewIterator(opts)
	defer it.Close()
	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		if err := fn(string(item.KeyCopy(nil)), item); err != nil {
			return err
		}
	}
	return nil
}

func decodeItem(item *badger.Item, dst any) error {
	return item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, dst); err != nil {
			return fmt.Errorf("decode %s: %v: %w", item.Key(), err, ErrCorrupt)
		}
		return nil
	})
}

func (s *Badger) CreateAccount(_ context.Context, acc Account, entry *LedgerEntry) error {
	return s.update(func(txn *badger.Txn) error {
		taken, err := exists(txn, keyAccountName+acc.DisplayName)
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicate
		}
		if err := setJSON(txn, keyAccount+acc.ID, acc); err != nil {
			return err
		}
		if err := txn.Set([]byte(keyAccountName+acc.DisplayName), []byte(acc.ID)); err != nil {
			return err
		}
		if entry != nil {
			return setJSON(txn, keyEntry+entry.AccountID+"/"+entry.ID, entry)
		}
		return nil
	})
}

func (s *Badger) GetAccount(_ context.Context, id string) (*Account, error) {
	var acc Account
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, keyAccount+id, &acc)
	})
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (s *Badger) GetAccountByName(_ context.Context, displayName string) (*Account, error) {
	var acc Account
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyAccountName + displayName))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return getJSON(txn, keyAccount+string(id), &acc)
	})
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (s *Badger) ListAccounts(_ context.Context, limit, offset int) ([]Account, error) {
	out := []Account{}
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, keyAccount, true, func(_ string, item *badger.Item) error {
			var acc Account
			if err := decodeItem(item, &acc); err != nil {
				return err
			}
			out = append(out, acc)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	start, end := page(len(out), limit, offset)
	return out[start:end], nil
}

func (s *Badger) casAccount(txn *badger.Txn, acc Account) error {
	var cur Account
	if err := getJSON(txn, keyAccount+acc.ID, &cur); err != nil {
		return err
	}
	if cur.Version != acc.Version {
		return ErrConflict
	}
	if acc.Balance < 0 {
		return fmt.Errorf("account %s balance %s: %w", acc.ID, acc.Balance, ErrCorrupt)
	}
	cur.Balance = acc.Balance
	cur.Version++
	cur.UpdatedAt = s.now().UTC()
	return setJSON(txn, keyAccount+acc.ID, cur)
}

func (s *Badger) SaveAccount(_ context.Context, acc Account, entry *LedgerEntry) error {
	return s.update(func(txn *badger.Txn) error {
		if err := s.casAccount(txn, acc); err != nil {
			return err
		}
		if entry != nil {
			return setJSON(txn, keyEntry+entry.AccountID+"/"+entry.ID, entry)
		}
		return nil
	})
}

func (s *Badger) DeleteAccount(_ context.Context, id string) error {
	return s.update(func(txn *badger.Txn) error {
		var acc Account
		if err := getJSON(txn, keyAccount+id, &acc); err != nil {
			return err
		}
		var doomed []string
		err := scanPrefix(txn, keyAccountWager+id+"/", false, func(key string, _ *badger.Item) error {
			wagerID := strings.TrimPrefix(key, keyAccountWager+id+"/")
			doomed = append(doomed, key, keyWager+wagerID)
			return nil
		})
		if err != nil {
			return err
		}
		err = scanPrefix(txn, keyEntry+id+"/", false, func(key string, _ *badger.Item) error {
			doomed = append(doomed, key)
			return nil
		})
		if err != nil {
			return err
		}
		doomed = append(doomed, keyAccountName+acc.DisplayName, keyAccount+id)
		for _, k := range doomed {
			if err := txn.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Badger) GetWager(_ context.Context, id string) (*Wager, error) {
	var w Wager
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, keyWager+id, &w)
	})
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *Badger) ListWagers(_ context.Context, f WagerFilter, limit, offset int) ([]Wager, error) {
	out := []Wager{}
	err := s.db.View(func(txn *badger.Txn) error {
		collect := func(w Wager) {
			if f.match(w) {
				out = append(out, w)
			}
		}
		if f.AccountID != "" {
			prefix := keyAccountWager + f.AccountID + "/"
			return scanPrefix(txn, prefix, false, func(key string, _ *badger.Item) error {
				var w Wager
				if err := getJSON(txn, keyWager+strings.TrimPrefix(key, prefix), &w); err != nil {
					return err
				}
				collect(w)
				return nil
			})
		}
		return scanPrefix(txn, keyWager, true, func(_ string, item *badger.Item) error {
			var w Wager
			if err := decodeItem(item, &w); err != nil {
				return err
			}
			collect(w)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortWagers(out)
	start, end := page(len(out), limit, offset)
	return out[start:end], nil
}

func (s *Badger) PlaceWagers(_ context.Context, acc Account, wagers []Wager, entries []LedgerEntry) error {
	return s.update(func(txn *badger.Txn) error {
		if err := s.casAccount(txn, acc); err != nil {
			return err
		}
		for _, w := range wagers {
			taken, err := exists(txn, keyWager+w.ID)
			if err != nil {
				return err
			}
			if taken {
				return ErrDuplicate
			}
			if err := setJSON(txn, keyWager+w.ID, w); err != nil {
				return err
			}
			if err := txn.Set([]byte(keyAccountWager+w.AccountID+"/"+w.ID), nil); err != nil {
				return err
			}
		}
		for _, e := range entries {
			if err := setJSON(txn, keyEntry+e.AccountID+"/"+e.ID, e); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Badger) SettleWager(_ context.Context, w Wager, acc *Account, entry *LedgerEntry) error {
	return s.update(func(txn *badger.Txn) error {
		var cur Wager
		if err := getJSON(txn, keyWager+w.ID, &cur); err != nil {
			return err
		}
		if cur.Status != WagerPending {
			return ErrConflict
		}
		if acc != nil {
			if err := s.casAccount(txn, *acc); err != nil {
				return err
			}
		}
		cur.Status = w.Status
		cur.SettledAt = w.SettledAt
		if err := setJSON(txn, keyWager+w.ID, cur); err != nil {
			return err
		}
		if entry != nil {
			return setJSON(txn, keyEntry+entry.AccountID+"/"+entry.ID, entry)
		}
		return nil
	})
}

func (s *Badger) ListLedgerEntries(_ context.Context, f LedgerFilter, limit, offset int) ([]LedgerEntry, error) {
	prefix := keyEntry
	if f.AccountID != "" {
		prefix += f.AccountID + "/"
	}
	out := []LedgerEntry{}
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, prefix, true, func(_ string, item *badger.Item) error {
			var e LedgerEntry
			if err := decodeItem(item, &e); err != nil {
				return err
			}
			if f.match(e) {
				out = append(out, e)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortEntries(out)
	start, end := page(len(out), limit, offset)
	return out[start:end], nil
}

func (s *Badger) Ping(context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger store closed")
	}
	return nil
}

func (s *Badger) Close() error {
	return s.db.Close()
}
