package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swimteam/backend/internal/domain/filter"
	"github.com/swimteam/backend/internal/domain/form"
	"github.com/swimteam/backend/internal/domain/shared"
	"github.com/swimteam/backend/internal/infrastructure/cache"
	"github.com/swimteam/backend/internal/infrastructure/persistence"
)

type brokenSnapshots struct{}

func (brokenSnapshots) Load(context.Context, string) ([]byte, error) {
	return nil, errors.New("redis down")
}
func (brokenSnapshots) Save(context.Context, string, []byte) error { return errors.New("redis down") }
func (brokenSnapshots) Clear(context.Context, string) error        { return errors.New("redis down") }

func TestNormaliseID(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", DefaultID, false},
		{"coach-7", "coach-7", false},
		{"a.b_c", "a.b_c", false},
		{"has space", "", true},
		{"colon:key", "", true},
		{strings.Repeat("x", MaxIDLength+1), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormaliseID(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, shared.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegistry_GetReusesSession(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(cache.NewInMemorySnapshotStore(0), persistence.NewMemoryRecordStore())

	a, err := reg.Get(ctx, "")
	require.NoError(t, err)
	b, err := reg.Get(ctx, DefaultID)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, filter.StorageKey+":default", a.Filter.Key())

	other, err := reg.Get(ctx, "coach")
	require.NoError(t, err)
	assert.NotSame(t, a, other)
	assert.Equal(t, 2, reg.Len())
}

func TestRegistry_RestoresSelection(t *testing.T) {
	ctx := context.Background()
	snapshots := cache.NewInMemorySnapshotStore(0)
	records := persistence.NewMemoryRecordStore()

	first, err := NewRegistry(snapshots, records).Get(ctx, "coach")
	require.NoError(t, err)
	_, err = first.Filter.Toggle(ctx, shared.ItemTypeTeam, "t1")
	require.NoError(t, err)

	restored, err := NewRegistry(snapshots, records).Get(ctx, "coach")
	require.NoError(t, err)
	assert.True(t, restored.Filter.State().IsSelected(shared.ItemTypeTeam, "t1"))

	fresh, err := NewRegistry(snapshots, records).Get(ctx, "parent")
	require.NoError(t, err)
	assert.True(t, fresh.Filter.State().IsEmpty())
}

func TestRegistry_FormPrefillsFromSessionSelection(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(cache.NewInMemorySnapshotStore(0), persistence.NewMemoryRecordStore())
	s, err := reg.Get(ctx, "coach")
	require.NoError(t, err)

	_, err = s.Filter.Toggle(ctx, shared.ItemTypeTeam, "t1")
	require.NoError(t, err)
	_, err = s.Filter.Toggle(ctx, shared.ItemTypeTeam, "t1")
	require.NoError(t, err)

	state, err := s.Form.Select(ctx, shared.ItemTypeSeason, "", form.ModeAdd)
	require.NoError(t, err)
	assert.Equal(t, "t1", state.FormData["team"])
}

func TestRegistry_UnreadableSnapshotStartsEmpty(t *testing.T) {
	reg := NewRegistry(brokenSnapshots{}, persistence.NewMemoryRecordStore())
	s, err := reg.Get(context.Background(), "coach")
	require.NoError(t, err)
	assert.True(t, s.Filter.State().IsEmpty())
}

func TestRegistry_RejectsBadID(t *testing.T) {
	reg := NewRegistry(cache.NewInMemorySnapshotStore(0), persistence.NewMemoryRecordStore())
	_, err := reg.Get(context.Background(), "bad id")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	assert.Equal(t, 0, reg.Len())
}

// slowSnapshots blocks Load for one key until release is closed
type slowSnapshots struct {
	*cache.InMemorySnapshotStore
	slowKey string
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *slowSnapshots) Load(ctx context.Context, key string) ([]byte, error) {
	if key == s.slowKey {
		s.once.Do(func() { close(s.entered) })
		<-s.release
	}
	return s.InMemorySnapshotStore.Load(ctx, key)
}

func TestRegistry_SlowSnapshotDoesNotBlockOtherSessions(t *testing.T) {
	ctx := context.Background()
	snapshots := &slowSnapshots{
		InMemorySnapshotStore: cache.NewInMemorySnapshotStore(0),
		slowKey:               filter.StorageKey + ":slow",
		entered:               make(chan struct{}),
		release:               make(chan struct{}),
	}
	reg := NewRegistry(snapshots, persistence.NewMemoryRecordStore())
	coach, err := reg.Get(ctx, "coach")
	require.NoError(t, err)

	slowDone := make(chan *Session)
	go func() {
		s, _ := reg.Get(ctx, "slow")
		slowDone <- s
	}()
	<-snapshots.entered

	got := make(chan *Session)
	go func() {
		s, _ := reg.Get(ctx, "coach")
		got <- s
	}()
	select {
	case s := <-got:
		assert.Same(t, coach, s)
	case <-time.After(time.Second):
		t.Fatal("lookup of an existing session waited on another session's snapshot read")
	}

	close(snapshots.release)
	slow := <-slowDone
	require.NotNil(t, slow)
	again, err := reg.Get(ctx, "slow")
	require.NoError(t, err)
	assert.Same(t, slow, again)
}

func TestRegistry_IdleSessionsExpire(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	snapshots := cache.NewInMemorySnapshotStore(0)
	reg := NewRegistry(snapshots, persistence.NewMemoryRecordStore(), WithIdleTTL(time.Hour))
	reg.now = func() time.Time { return now }

	first, err := reg.Get(ctx, "coach")
	require.NoError(t, err)
	_, err = first.Filter.Toggle(ctx, shared.ItemTypeTeam, "t1")
	require.NoError(t, err)
	_, err = reg.Get(ctx, "parent")
	require.NoError(t, err)

	now = now.Add(30 * time.Minute)
	same, err := reg.Get(ctx, "coach")
	require.NoError(t, err)
	assert.Same(t, first, same, "use within the ttl keeps the session")

	now = now.Add(61 * time.Minute)
	fresh, err := reg.Get(ctx, "coach")
	require.NoError(t, err)
	assert.NotSame(t, first, fresh)
	assert.True(t, fresh.Filter.State().IsSelected(shared.ItemTypeTeam, "t1"), "selection is restored from the snapshot")
	assert.Equal(t, 1, reg.Len(), "the idle parent session was swept")
}

func TestRegistry_MaxSessionsEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	reg := NewRegistry(cache.NewInMemorySnapshotStore(0), persistence.NewMemoryRecordStore(), WithMaxSessions(2))
	reg.now = func() time.Time { return now }

	a, err := reg.Get(ctx, "a")
	require.NoError(t, err)
	now = now.Add(time.Second)
	_, err = reg.Get(ctx, "b")
	require.NoError(t, err)
	now = now.Add(time.Second)
	_, err = reg.Get(ctx, "a")
	require.NoError(t, err)
	now = now.Add(time.Second)
	_, err = reg.Get(ctx, "c")
	require.NoError(t, err)

	assert.Equal(t, 2, reg.Len())
	stillA, err := reg.Get(ctx, "a")
	require.NoError(t, err)
	assert.Same(t, a, stillA, "b was the least recently used")
}
