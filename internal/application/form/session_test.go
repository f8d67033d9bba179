package form

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
	"github.com/swimteam/backend/internal/domain/form"
	"github.com/swimteam/backend/internal/domain/shared"
	"github.com/swimteam/backend/internal/infrastructure/persistence"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*shared.RecordChangedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range events {
		if rc, ok := e.(*shared.RecordChangedEvent); ok {
			p.events = append(p.events, rc)
		}
	}
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType()+":"+e.Collection+"/"+e.RecordID)
	}
	return out
}

type mockRecordStore struct {
	mock.Mock
}

func (m *mockRecordStore) FetchByID(ctx context.Context, collection, id string) (shared.Record, error) {
	args := m.Called(ctx, collection, id)
	rec, _ := args.Get(0).(shared.Record)
	return rec, args.Error(1)
}

func (m *mockRecordStore) FetchByFilter(ctx context.Context, collection string, q shared.Query) ([]shared.Record, error) {
	args := m.Called(ctx, collection, q)
	recs, _ := args.Get(0).([]shared.Record)
	return recs, args.Error(1)
}

func (m *mockRecordStore) Create(ctx context.Context, collection string, data shared.Record) (string, error) {
	args := m.Called(ctx, collection, data)
	return args.String(0), args.Error(1)
}

func (m *mockRecordStore) Update(ctx context.Context, collection, id string, data shared.Record) error {
	return m.Called(ctx, collection, id, data).Error(0)
}

func (m *mockRecordStore) Delete(ctx context.Context, collection, id string) error {
	return m.Called(ctx, collection, id).Error(0)
}

// gatedStore holds FetchByID for one id until release is closed
type gatedStore struct {
	shared.RecordStore
	gatedID string
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) FetchByID(ctx context.Context, collection, id string) (shared.Record, error) {
	if id == g.gatedID {
		close(g.entered)
		<-g.release
	}
	return g.RecordStore.FetchByID(ctx, collection, id)
}

type staticSelection struct {
	state filter.State
}

func (s staticSelection) State() filter.State { return s.state }

func newTestSession(t *testing.T, opts ...SessionOption) (*Session, *persistence.MemoryRecordStore) {
	t.Helper()
	store := seededStore(t)
	require.NoError(t, store.Put("teams", "t2", shared.Record{"code": "DOL", "name_short": "Dolphins"}))
	return NewSession(store, opts...), store
}

func TestSession_SelectLoadsRecord(t *testing.T) {
	ctx := context.Background()
	session, _ := newTestSession(t)

	state, err := session.Select(ctx, shared.ItemTypeTeam, "t1", form.ModeView)
	require.NoError(t, err)

	assert.False(t, state.IsLoading)
	assert.Equal(t, form.SelectedItem{ID: "t1", Type: shared.ItemTypeTeam, Mode: form.ModeView}, state.SelectedItem)
	assert.Equal(t, "Sharks", state.FormData.String("name_short"))
	assert.Equal(t, state.FormData, state.OriginalFormData)
	assert.Nil(t, state.Error)
}

func TestSession_SelectMissingRecord(t *testing.T) {
	session, _ := newTestSession(t)

	state, err := session.Select(context.Background(), shared.ItemTypeTeam, "ghost", form.ModeView)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Equal(t, msgLoadNotFound, state.ErrorMessage())
	assert.Nil(t, state.FormData)
	assert.False(t, state.IsLoading)
}

func TestSession_SelectRejectsUnknownTypeAndMode(t *testing.T) {
	session, _ := newTestSession(t)

	_, err := session.Select(context.Background(), shared.ItemType("coach"), "c1", form.ModeView)
	assert.ErrorIs(t, err, shared.ErrUnknownItemType)

	_, err = session.Select(context.Background(), shared.ItemTypeTeam, "t1", form.Mode("delete"))
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	assert.Equal(t, form.NewState(), session.State())
}

func TestSession_ModeFlipKeepsEdits(t *testing.T) {
	ctx := context.Background()
	store := &mockRecordStore{}
	store.On("FetchByID", mock.Anything, "teams", "t1").
		Return(shared.Record{"id": "t1", "code": "SHK", "name_short": "Sharks"}, nil).Once()
	session := NewSession(store)

	_, err := session.Select(ctx, shared.ItemTypeTeam, "t1", form.ModeView)
	require.NoError(t, err)
	_, err = session.Select(ctx, shared.ItemTypeTeam, "t1", form.ModeEdit)
	require.NoError(t, err)
	session.UpdateField("name_short", "Big Sharks")

	state, err := session.Select(ctx, shared.ItemTypeTeam, "t1", form.ModeView)
	require.NoError(t, err)
	assert.Equal(t, "Big Sharks", state.FormData.String("name_short"))
	assert.Equal(t, "Sharks", state.OriginalFormData.String("name_short"))
	store.AssertNumberOfCalls(t, "FetchByID", 1)
}

func TestSession_StaleLoadIsDiscarded(t *testing.T) {
	ctx := context.Background()
	mem := seededStore(t)
	require.NoError(t, mem.Put("teams", "t2", shared.Record{"code": "DOL", "name_short": "Dolphins"}))
	gated := &gatedStore{
		RecordStore: mem,
		gatedID:     "t1",
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	session := NewSession(gated)

	slow := make(chan form.State, 1)
	go func() {
		state, _ := session.Select(ctx, shared.ItemTypeTeam, "t1", form.ModeView)
		slow <- state
	}()

	select {
	case <-gated.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first load never started")
	}

	state, err := session.Select(ctx, shared.ItemTypeTeam, "t2", form.ModeView)
	require.NoError(t, err)
	assert.Equal(t, "Dolphins", state.FormData.String("name_short"))

	close(gated.release)
	stale := <-slow

	assert.Equal(t, "t2", stale.SelectedItem.ID)
	assert.Equal(t, "Dolphins", stale.FormData.String("name_short"))
	assert.Equal(t, "Dolphins", session.State().FormData.String("name_short"))
}

func TestSession_RevertAndClear(t *testing.T) {
	ctx := context.Background()
	session, _ := newTestSession(t)

	_, err := session.Select(ctx, shared.ItemTypeTeam, "t1", form.ModeEdit)
	require.NoError(t, err)
	state := session.UpdateField("name_short", "Changed")
	assert.True(t, state.IsDirty())

	state = session.Revert()
	assert.False(t, state.IsDirty())
	assert.Equal(t, "Sharks", state.FormData.String("name_short"))

	assert.Equal(t, form.NewState(), session.Clear())
}

func TestSession_SaveAddCreatesAndReselects(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewMemoryRecordStore(persistence.WithIDGenerator(func() string { return "new-1" }))
	pub := &recordingPublisher{}
	session := NewSession(store, WithPublisher(pub))

	_, err := session.Select(ctx, shared.ItemTypeTeam, "", form.ModeAdd)
	require.NoError(t, err)
	session.UpdateField("code", "SHK")
	session.UpdateField("name_short", "Sharks")
	session.UpdateField("id", "client-supplied")

	state, err := session.Save(ctx)
	require.NoError(t, err)

	assert.Equal(t, form.SelectedItem{ID: "new-1", Type: shared.ItemTypeTeam, Mode: form.ModeView}, state.SelectedItem)
	assert.Equal(t, "Sharks", state.FormData.String("name_short"))
	assert.False(t, state.IsSaving)
	assert.Nil(t, state.Error)

	stored, err := store.FetchByID(ctx, "teams", "new-1")
	require.NoError(t, err)
	assert.Equal(t, "SHK", stored.String("code"))
	assert.IsType(t, time.Time{}, stored[shared.FieldCreatedAt])
	assert.Equal(t, 1, store.Len("teams"))
	assert.Equal(t, []string{"RecordCreated:teams/new-1"}, pub.types())
}

func TestSession_SaveEditOverwrites(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	session, store := newTestSession(t, WithPublisher(pub))

	_, err := session.Select(ctx, shared.ItemTypeTeam, "t1", form.ModeEdit)
	require.NoError(t, err)
	session.UpdateField("name_short", "Big Sharks")

	state, err := session.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, form.ModeView, state.SelectedItem.Mode)
	assert.False(t, state.IsDirty())
	assert.Equal(t, "Big Sharks", state.OriginalFormData.String("name_short"))

	stored, err := store.FetchByID(ctx, "teams", "t1")
	require.NoError(t, err)
	assert.Equal(t, "Big Sharks", stored.String("name_short"))
	assert.Equal(t, []string{"RecordUpdated:teams/t1"}, pub.types())
}

func TestSession_SaveGuards(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing selected", func(t *testing.T) {
		session := NewSession(&mockRecordStore{})
		state, err := session.Save(ctx)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
		assert.Equal(t, msgNothingToSave, state.ErrorMessage())
	})

	t.Run("view mode", func(t *testing.T) {
		session, _ := newTestSession(t)
		_, err := session.Select(ctx, shared.ItemTypeTeam, "t1", form.ModeView)
		require.NoError(t, err)

		state, err := session.Save(ctx)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
		assert.Equal(t, `Invalid mode "view" for saving item type "team".`, state.ErrorMessage())
	})

	t.Run("validation failure skips the store", func(t *testing.T) {
		store := &mockRecordStore{}
		session := NewSession(store)
		_, err := session.Select(ctx, shared.ItemTypeTeam, "", form.ModeAdd)
		require.NoError(t, err)
		session.UpdateField("code", "SHK")

		state, err := session.Save(ctx)
		assert.ErrorIs(t, err, shared.ErrValidation)
		assert.Equal(t, msgTeamRequired, state.ErrorMessage())
		assert.False(t, state.IsSaving)
		assert.Equal(t, form.ModeAdd, state.SelectedItem.Mode)
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("store failure", func(t *testing.T) {
		store := &mockRecordStore{}
		store.On("Create", mock.Anything, "teams", mock.Anything).Return("", errors.New("disk full"))
		pub := &recordingPublisher{}
		session := NewSession(store, WithPublisher(pub))
		_, err := session.Select(ctx, shared.ItemTypeTeam, "", form.ModeAdd)
		require.NoError(t, err)
		session.UpdateField("code", "SHK")
		session.UpdateField("name_short", "Sharks")

		state, err := session.Save(ctx)
		assert.EqualError(t, err, "disk full")
		assert.Equal(t, msgSaveFailed, state.ErrorMessage())
		assert.False(t, state.IsSaving)
		assert.Equal(t, "Sharks", state.FormData.String("name_short"))
		assert.Empty(t, pub.types())
	})
}

func TestSession_SaveStampsTimestamps(t *testing.T) {
	ctx := context.Background()
	store := &mockRecordStore{}
	store.On("FetchByID", mock.Anything, "teams", "t1").
		Return(shared.Record{"id": "t1", "code": "SHK", "name_short": "Sharks", "created_at": time.Unix(0, 0)}, nil)
	store.On("Update", mock.Anything, "teams", "t1", mock.MatchedBy(func(data shared.Record) bool {
		_, hasID := data[shared.FieldID]
		_, hasCreated := data[shared.FieldCreatedAt]
		return !hasID && !hasCreated && data[shared.FieldUpdatedAt] == shared.ServerTimestamp
	})).Return(nil).Once()
	session := NewSession(store)

	_, err := session.Select(ctx, shared.ItemTypeTeam, "t1", form.ModeEdit)
	require.NoError(t, err)
	_, err = session.Save(ctx)
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestSession_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("refused", func(t *testing.T) {
		session, store := newTestSession(t)
		before, err := session.Select(ctx, shared.ItemTypeTeam, "t1", form.ModeView)
		require.NoError(t, err)

		state, err := session.Delete(ctx, NeverConfirm)
		assert.ErrorIs(t, err, shared.ErrConfirmationRequired)
		assert.Equal(t, before, state)
		_, err = store.FetchByID(ctx, "teams", "t1")
		assert.NoError(t, err)
	})

	t.Run("confirmed", func(t *testing.T) {
		pub := &recordingPublisher{}
		session, store := newTestSession(t, WithPublisher(pub))
		_, err := session.Select(ctx, shared.ItemTypeTeam, "t1", form.ModeView)
		require.NoError(t, err)

		var label string
		state, err := session.Delete(ctx, ConfirmFunc(func(_ context.Context, item form.SelectedItem, l string) bool {
			label = l
			return item.ID == "t1"
		}))
		require.NoError(t, err)
		assert.Equal(t, "SHK", label)
		assert.Equal(t, form.NewState(), state)
		_, err = store.FetchByID(ctx, "teams", "t1")
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.Equal(t, []string{"RecordDeleted:teams/t1"}, pub.types())
	})

	t.Run("nothing selected", func(t *testing.T) {
		session, _ := newTestSession(t)
		_, err := session.Delete(ctx, AlwaysConfirm)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("store failure", func(t *testing.T) {
		store := &mockRecordStore{}
		store.On("FetchByID", mock.Anything, "teams", "t1").Return(shared.Record{"id": "t1"}, nil)
		store.On("Delete", mock.Anything, "teams", "t1").Return(errors.New("locked"))
		session := NewSession(store)
		_, err := session.Select(ctx, shared.ItemTypeTeam, "t1", form.ModeView)
		require.NoError(t, err)

		state, err := session.Delete(ctx, AlwaysConfirm)
		assert.Error(t, err)
		assert.Equal(t, msgDeleteFailed, state.ErrorMessage())
		assert.Equal(t, "t1", state.SelectedItem.ID)
	})
}

func TestSession_AddPrefillsSingleParent(t *testing.T) {
	ctx := context.Background()
	selection := filter.NewState()
	selection.SuperSelected[shared.ItemTypeSeason] = []string{"s1"}
	selection.SuperSelected[shared.ItemTypeTeam] = []string{"t1", "t2"}
	session, _ := newTestSession(t, WithSelectionSource(staticSelection{state: selection}))

	state, err := session.Select(ctx, shared.ItemTypeMeet, "", form.ModeAdd)
	require.NoError(t, err)
	assert.Equal(t, "s1", state.FormData["season"])
	assert.NotContains(t, state.FormData, "team")

	state, err = session.Select(ctx, shared.ItemTypeTeam, "", form.ModeAdd)
	require.NoError(t, err)
	assert.Nil(t, state.FormData)
}

func TestDeletePrompt(t *testing.T) {
	state := form.State{
		SelectedItem: form.SelectedItem{ID: "p1", Type: shared.ItemTypePerson, Mode: form.ModeView},
		FormData:     shared.Record{"first_name": "Ann"},
	}
	assert.Equal(t, "Are you sure you want to delete this person (p1)? This action cannot be undone.", DeletePrompt(state))

	state.FormData["code"] = "ANN"
	assert.Equal(t, "ANN", DeleteLabel(state))
}
