package filter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/swimteam/backend/internal/domain/filter"
	"github.com/swimteam/backend/internal/domain/shared"
	"github.com/swimteam/backend/internal/infrastructure/cache"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type mockSnapshotStore struct {
	mock.Mock
}

func (m *mockSnapshotStore) Load(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	blob, _ := args.Get(0).([]byte)
	return blob, args.Error(1)
}

func (m *mockSnapshotStore) Save(ctx context.Context, key string, blob []byte) error {
	return m.Called(ctx, key, blob).Error(0)
}

func (m *mockSnapshotStore) Clear(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

// gatedSnapshotStore holds the first Save until release is closed
type gatedSnapshotStore struct {
	*cache.InMemorySnapshotStore
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedSnapshotStore) Save(ctx context.Context, key string, blob []byte) error {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.InMemorySnapshotStore.Save(ctx, key, blob)
}

func TestService_ToggleIsPersisted(t *testing.T) {
	ctx := context.Background()
	store := cache.NewInMemorySnapshotStore(0)
	svc := NewService(store, "appFilterState-v1:s1", nil)

	state, err := svc.Toggle(ctx, shared.ItemTypeTeam, "t1")
	require.NoError(t, err)
	assert.True(t, state.IsSelected(shared.ItemTypeTeam, "t1"))

	state, err = svc.Toggle(ctx, shared.ItemTypeTeam, "t1")
	require.NoError(t, err)
	assert.True(t, state.IsSuperSelected(shared.ItemTypeTeam, "t1"))

	restored := NewService(store, "appFilterState-v1:s1", nil)
	loaded, err := restored.Load(ctx)
	require.NoError(t, err)
	assert.True(t, loaded.IsSuperSelected(shared.ItemTypeTeam, "t1"))
	assert.Equal(t, filter.SuperSelected, restored.SelectionOf(shared.ItemTypeTeam, "t1"))
}

func TestService_ClearAllRemovesSnapshot(t *testing.T) {
	ctx := context.Background()
	store := cache.NewInMemorySnapshotStore(0)
	svc := NewService(store, "k", nil)

	_, err := svc.Toggle(ctx, shared.ItemTypeMeet, "m1")
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())

	state, err := svc.ClearAll(ctx)
	require.NoError(t, err)
	assert.True(t, state.IsEmpty())
	assert.Equal(t, 0, store.Len())
}

func TestService_ClearCommands(t *testing.T) {
	ctx := context.Background()
	svc := NewService(cache.NewInMemorySnapshotStore(0), "", nil)
	assert.Equal(t, filter.StorageKey, svc.Key())

	_, _ = svc.Toggle(ctx, shared.ItemTypeSeason, "s1")
	_, _ = svc.Toggle(ctx, shared.ItemTypeSeason, "s1")
	_, _ = svc.Toggle(ctx, shared.ItemTypeSeason, "s2")

	state, err := svc.ClearSuperSelected(ctx, shared.ItemTypeSeason)
	require.NoError(t, err)
	assert.False(t, state.HasSuperSelection(shared.ItemTypeSeason))
	assert.ElementsMatch(t, []string{"s1", "s2"}, state.SelectedIDs(shared.ItemTypeSeason))

	state, err = svc.ClearAllType(ctx, shared.ItemTypeSeason)
	require.NoError(t, err)
	assert.False(t, state.HasSelection(shared.ItemTypeSeason))

	_, _ = svc.Toggle(ctx, shared.ItemTypeTeam, "t1")
	state, err = svc.ClearSelected(ctx, shared.ItemTypeTeam)
	require.NoError(t, err)
	assert.False(t, state.HasSelection(shared.ItemTypeTeam))
}

func TestService_StateIsACopy(t *testing.T) {
	svc := NewService(cache.NewInMemorySnapshotStore(0), "k", nil)
	_, _ = svc.Toggle(context.Background(), shared.ItemTypeTeam, "t1")

	state := svc.State()
	state.Selected[shared.ItemTypeTeam] = nil

	assert.True(t, svc.State().IsSelected(shared.ItemTypeTeam, "t1"))
}

func TestService_LoadMissingAndMalformed(t *testing.T) {
	ctx := context.Background()

	t.Run("missing snapshot gives default state", func(t *testing.T) {
		svc := NewService(cache.NewInMemorySnapshotStore(0), "k", nil)
		state, err := svc.Load(ctx)
		require.NoError(t, err)
		assert.True(t, state.IsEmpty())
	})

	t.Run("malformed snapshot is discarded with a warning", func(t *testing.T) {
		store := cache.NewInMemorySnapshotStore(0)
		require.NoError(t, store.Save(ctx, "k", []byte("{not json")))

		core, logs := observer.New(zap.WarnLevel)
		svc := NewService(store, "k", zap.New(core))
		state, err := svc.Load(ctx)
		require.NoError(t, err)
		assert.True(t, state.IsEmpty())
		assert.Equal(t, 1, logs.FilterMessage("discarding unreadable selection snapshot").Len())
	})

	t.Run("store failure is returned", func(t *testing.T) {
		store := new(mockSnapshotStore)
		store.On("Load", mock.Anything, "k").Return(nil, errors.New("redis down"))

		svc := NewService(store, "k", nil)
		_, err := svc.Load(ctx)
		assert.Error(t, err)
	})
}

func TestService_PersistFailureKeepsState(t *testing.T) {
	store := new(mockSnapshotStore)
	store.On("Save", mock.Anything, "k", mock.Anything).Return(errors.New("redis down"))

	svc := NewService(store, "k", nil)
	state, err := svc.Toggle(context.Background(), shared.ItemTypeEvent, "e1")
	assert.Error(t, err)
	assert.True(t, state.IsSelected(shared.ItemTypeEvent, "e1"))
	assert.True(t, svc.State().IsSelected(shared.ItemTypeEvent, "e1"))
	store.AssertExpectations(t)
}

func TestService_OverlappingDispatchesPersistLatestState(t *testing.T) {
	ctx := context.Background()
	store := &gatedSnapshotStore{
		InMemorySnapshotStore: cache.NewInMemorySnapshotStore(0),
		entered:               make(chan struct{}),
		release:               make(chan struct{}),
	}
	svc := NewService(store, "k", nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = svc.Toggle(ctx, shared.ItemTypeTeam, "a")
	}()
	<-store.entered
	go func() {
		defer wg.Done()
		_, _ = svc.Toggle(ctx, shared.ItemTypeTeam, "b")
	}()
	time.Sleep(20 * time.Millisecond)
	close(store.release)
	wg.Wait()

	restored := NewService(store.InMemorySnapshotStore, "k", nil)
	loaded, err := restored.Load(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, loaded.SelectedIDs(shared.ItemTypeTeam))
	assert.ElementsMatch(t, svc.State().SelectedIDs(shared.ItemTypeTeam), loaded.SelectedIDs(shared.ItemTypeTeam))
}
