package lock

import (
	"context"
	"sync"
)

// Locker serializes work per key. The returned unlock func is idempotent.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type keyedEntry struct {
	ch   chan struct{}
	refs int
}

// KeyedMutex is an in-process Locker. Entries are dropped once no caller
// holds or waits on them.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: map[string]*keyedEntry{}}
}

func (k *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	e := k.entries[key]
	if e == nil {
		e = &keyedEntry{ch: make(chan struct{}, 1)}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			k.release(key, e)
		})
	}, nil
}

func (k *KeyedMutex) release(key string, e *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}

func (k *KeyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
