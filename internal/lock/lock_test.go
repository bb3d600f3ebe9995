package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()
	var (
		mu      sync.Mutex
		active  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := km.Lock(context.Background(), "account:a1")
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Fatalf("max concurrent holders = %d, want 1", maxSeen)
	}
	if n := km.size(); n != 0 {
		t.Fatalf("entries left = %d, want 0", n)
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	km := NewKeyedMutex()
	unlockA, err := km.Lock(context.Background(), "a")
	if err != nil {
		t.Fatalf("lock a: %v", err)
	}
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	unlockB, err := km.Lock(ctx, "b")
	if err != nil {
		t.Fatalf("lock b while a held: %v", err)
	}
	unlockB()
}

func TestKeyedMutexHonoursContext(t *testing.T) {
	km := NewKeyedMutex()
	unlock, err := km.Lock(context.Background(), "a")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := km.Lock(ctx, "a"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	unlock()
	unlock()
	if n := km.size(); n != 0 {
		t.Fatalf("entries left = %d, want 0", n)
	}
}

func TestRedisLockAcquireAndRelease(t *testing.T) {
	client, mock := redismock.NewClientMock()
	r := NewRedis(client, RedisOptions{TTL: time.Second, Retry: time.Millisecond})
	r.newToken = func() string { return "tok" }

	mock.ExpectSetNX("betpro:lock:account:a1", "tok", time.Second).SetVal(false)
	mock.ExpectSetNX("betpro:lock:account:a1", "tok", time.Second).SetVal(true)
	mock.ExpectEval(releaseScript, []string{"betpro:lock:account:a1"}, "tok").SetVal(int64(1))

	unlock, err := r.Lock(context.Background(), "account:a1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	unlock()
	unlock()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("redis expectations: %v", err)
	}
}

func TestRedisLockTimesOut(t *testing.T) {
	client, mock := redismock.NewClientMock()
	r := NewRedis(client, RedisOptions{TTL: time.Second, Retry: 30 * time.Millisecond})
	r.newToken = func() string { return "tok" }
	mock.ExpectSetNX("betpro:lock:k", "tok", time.Second).SetVal(false)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := r.Lock(ctx, "k"); !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("err = %v, want %v", err, ErrLockTimeout)
	}
}

func TestRedisLockSurfacesClientError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	r := NewRedis(client, RedisOptions{})
	r.newToken = func() string { return "tok" }
	mock.ExpectSetNX("betpro:lock:k", "tok", 5*time.Second).SetErr(errors.New("connection refused"))

	if _, err := r.Lock(context.Background(), "k"); err == nil {
		t.Fatal("expected error")
	}
}
