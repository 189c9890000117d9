package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/flowgraph/pkg/adapters/memory"
	"github.com/aretw0/flowgraph/pkg/adapters/redis"
	"github.com/aretw0/flowgraph/pkg/domain"
	"github.com/aretw0/flowgraph/pkg/session"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	*memory.Store
}

func (s SlowStore) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	time.Sleep(5 * time.Millisecond)
	return s.Store.GetSession(ctx, id)
}

func (s SlowStore) SaveSession(ctx context.Context, session *domain.Session) error {
	time.Sleep(5 * time.Millisecond)
	return s.Store.SaveSession(ctx, session)
}

func incrementCounter(s *domain.Session) error {
	n, _ := s.Passport.Data["counter"].(int)
	s.Passport.Data["counter"] = n + 1
	return nil
}

func TestManager_UpdateIsSerialised(t *testing.T) {
	store := SlowStore{memory.NewStore()}
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "race-test"

	_, err := manager.LoadOrStart(ctx, id, "flow", 1)
	require.NoError(t, err)

	var wg sync.WaitGroup
	const writers = 10
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := manager.Update(ctx, id, incrementCounter)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	loaded, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, writers, loaded.Passport.Data["counter"], "no update may be lost")
}

func TestManager_LoadOrStart(t *testing.T) {
	store := SlowStore{memory.NewStore()}
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "atomic-init"

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := manager.LoadOrStart(ctx, id, "flow-1", 4)
			assert.NoError(t, err)
			assert.NotNil(t, s)
		}()
	}
	wg.Wait()

	s, err := manager.Load(ctx, id)
	assert.NoError(t, err)
	assert.Equal(t, "flow-1", s.FlowID)
	assert.Equal(t, 4, s.FlowVersion)

	ids, err := manager.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{id}, ids)
}

func TestManager_UpdateErrorDoesNotWrite(t *testing.T) {
	store := memory.NewStore()
	manager := session.NewManager(store)
	ctx := context.Background()

	_, err := manager.LoadOrStart(ctx, "s", "flow", 1)
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = manager.Update(ctx, "s", func(s *domain.Session) error {
		s.FlowVersion = 99
		return boom
	})
	assert.ErrorIs(t, err, boom)

	loaded, err := store.GetSession(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.FlowVersion)

	_, err = manager.Update(ctx, "missing", incrementCounter)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_SetLocked(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()

	_, err := manager.LoadOrStart(ctx, "pay", "flow", 1)
	require.NoError(t, err)

	locked, err := manager.SetLocked(ctx, "pay", true)
	require.NoError(t, err)
	require.NotNil(t, locked.LockedAt)
	first := *locked.LockedAt

	again, err := manager.SetLocked(ctx, "pay", true)
	require.NoError(t, err)
	assert.Equal(t, first, *again.LockedAt, "relocking keeps the original timestamp")

	unlocked, err := manager.SetLocked(ctx, "pay", false)
	require.NoError(t, err)
	assert.Nil(t, unlocked.LockedAt)
}

func TestManager_DistributedLock(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	defer client.Close()

	locker := redis.NewLocker(client, "flowgraph:")
	manager := session.NewManager(memory.NewStore(),
		session.WithLocker(locker),
		session.WithLockTTL(5*time.Second),
	)
	ctx := context.Background()

	err = manager.WithLock(ctx, "s1", func(ctx context.Context) error {
		assert.True(t, mr.Exists("flowgraph:lock:s1"), "distributed lock held inside the critical section")
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists("flowgraph:lock:s1"), "distributed lock released afterwards")

	// A lock held elsewhere blocks until the context gives up.
	unlock, err := locker.Lock(ctx, "s2", 5*time.Second)
	require.NoError(t, err)
	defer unlock(ctx)

	short, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
	defer cancel()
	err = manager.WithLock(short, "s2", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
