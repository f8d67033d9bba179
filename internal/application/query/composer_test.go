package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/swimteam/backend/internal/domain/filter"
	"github.com/swimteam/backend/internal/domain/shared"
	"github.com/swimteam/backend/internal/infrastructure/persistence"
)

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

func superSelect(state filter.State, itemType shared.ItemType, ids ...string) filter.State {
	state.SuperSelected[itemType] = ids
	return state
}

func selectIDs(state filter.State, itemType shared.ItemType, ids ...string) filter.State {
	state.Selected[itemType] = ids
	return state
}

func swimStore(t *testing.T, opts ...persistence.MemoryRecordStoreOption) *persistence.MemoryRecordStore {
	t.Helper()
	store := persistence.NewMemoryRecordStore(opts...)
	put := func(collection, id string, data shared.Record) {
		require.NoError(t, store.Put(collection, id, data))
	}
	put("teams", "t1", shared.Record{"code": "SHK", "name_short": "Sharks"})
	put("teams", "t2", shared.Record{"code": "dol", "name_short": "Dolphins"})
	put("teams", "t3", shared.Record{"code": "Ang", "name_short": "Anglers"})

	put("seasons", "s1", shared.Record{"team": "t1", "end_date": "2023-08-01"})
	put("seasons", "s2", shared.Record{"team": "t1", "end_date": "2024-08-01"})
	put("seasons", "s3", shared.Record{"team": "t2", "end_date": "2024-07-01"})

	put("meets", "m1", shared.Record{"season": "s1", "team": "t1", "date": "2023-06-10"})
	put("meets", "m2", shared.Record{"season": "s2", "team": "t1", "date": "2024-06-10"})
	put("meets", "m3", shared.Record{"season": "s3", "team": "t2", "date": "2024-06-12"})

	put("people", "p1", shared.Record{"first_name": "Émile", "last_name": "zola"})
	put("people", "p2", shared.Record{"first_name": "Ann", "last_name": "Lee"})
	put("people", "p3", shared.Record{"first_name": "Bob", "last_name": "Lee"})

	put("athletes", "a1", shared.Record{"person": "p1", "season": "s2", "team": "t1"})
	put("athletes", "a2", shared.Record{"person": "p2", "season": "s2", "team": "t1"})
	put("athletes", "a3", shared.Record{"person": "p3", "season": "s3", "team": "t2"})

	put("events", "e1", shared.Record{"stroke": "free", "distance": 100})
	put("events", "e2", shared.Record{"stroke": "free", "distance": 50})
	put("events", "e3", shared.Record{"stroke": "back", "distance": 50})

	put("results", "r1", shared.Record{"meet": "m2", "season": "s2", "team": "t1", "event": "e1", "athletes": []string{"a1"}, "result": 6530})
	put("results", "r2", shared.Record{"meet": "m2", "season": "s2", "team": "t1", "event": "e2", "athletes": []string{"a2"}, "result": 2810})
	put("results", "r3", shared.Record{"meet": "m3", "season": "s3", "team": "t2", "event": "e2", "athletes": []string{"a3"}, "result": 3005})
	put("results", "r4", shared.Record{"meet": "m2", "season": "s2", "team": "t1", "event": "e2", "athletes": []string{"a1"}, "dq": true})
	return store
}

func ids(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Record.ID())
	}
	return out
}

func TestBuildPlan(t *testing.T) {
	empty := filter.NewState()

	tests := []struct {
		name         string
		itemType     shared.ItemType
		state        filter.State
		wantStore    []shared.Constraint
		wantInMemory []shared.Constraint
		disabled     bool
	}{
		{"teams unconstrained", shared.ItemTypeTeam, superSelect(filter.NewState(), shared.ItemTypeTeam, "t1"), nil, nil, false},
		{"seasons by team", shared.ItemTypeSeason, superSelect(filter.NewState(), shared.ItemTypeTeam, "t1"),
			[]shared.Constraint{shared.In("team", []string{"t1"})}, nil, false},
		{"meets prefer season over team", shared.ItemTypeMeet,
			superSelect(superSelect(filter.NewState(), shared.ItemTypeTeam, "t1"), shared.ItemTypeSeason, "s2"),
			[]shared.Constraint{shared.In("season", []string{"s2"})}, nil, false},
		{"meets narrowed to super-selected meets", shared.ItemTypeMeet, superSelect(filter.NewState(), shared.ItemTypeMeet, "m1"),
			nil, []shared.Constraint{shared.In(shared.FieldID, []string{"m1"})}, false},
		{"athletes by team", shared.ItemTypeAthlete, superSelect(filter.NewState(), shared.ItemTypeTeam, "t2"),
			[]shared.Constraint{shared.In("team", []string{"t2"})}, nil, false},
		{"results disabled without scope", shared.ItemTypeResult, superSelect(filter.NewState(), shared.ItemTypeAthlete, "a1"),
			nil, nil, true},
		{"results meet wins", shared.ItemTypeResult,
			superSelect(superSelect(superSelect(filter.NewState(), shared.ItemTypeTeam, "t1"), shared.ItemTypeEvent, "e2"), shared.ItemTypeMeet, "m2"),
			[]shared.Constraint{shared.In("meet", []string{"m2"})},
			[]shared.Constraint{shared.In("event", []string{"e2"}), shared.In("team", []string{"t1"})}, false},
		{"results event over team", shared.ItemTypeResult,
			superSelect(superSelect(filter.NewState(), shared.ItemTypeTeam, "t1"), shared.ItemTypeEvent, "e2"),
			[]shared.Constraint{shared.In("event", []string{"e2"})},
			[]shared.Constraint{shared.In("team", []string{"t1"})}, false},
		{"people ignore selections", shared.ItemTypePerson, selectIDs(empty.Clone(), shared.ItemTypeTeam, "t1"), nil, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := BuildPlan(tt.itemType, tt.state, 30)
			require.NoError(t, err)
			assert.Equal(t, tt.disabled, plan.Disabled)
			if tt.disabled {
				assert.Empty(t, plan.Queries)
				return
			}
			require.Len(t, plan.Queries, 1)
			assert.Equal(t, tt.wantStore, plan.Queries[0].Constraints)
			assert.Equal(t, tt.wantInMemory, plan.InMemory)
			assert.LessOrEqual(t, len(plan.Queries[0].InConstraints()), 1)
		})
	}
}

func TestBuildPlan_ChunksLongIDLists(t *testing.T) {
	state := superSelect(filter.NewState(), shared.ItemTypeTeam, "a", "b", "c", "d", "e")
	plan, err := BuildPlan(shared.ItemTypeSeason, state, 2)
	require.NoError(t, err)

	require.Len(t, plan.Queries, 3)
	assert.Equal(t, []string{"a", "b"}, plan.Queries[0].Constraints[0].Values)
	assert.Equal(t, []string{"c", "d"}, plan.Queries[1].Constraints[0].Values)
	assert.Equal(t, []string{"e"}, plan.Queries[2].Constraints[0].Values)
}

func TestBuildPlan_UnknownType(t *testing.T) {
	_, err := BuildPlan(shared.ItemType("coach"), filter.NewState(), 30)
	assert.ErrorIs(t, err, shared.ErrUnknownItemType)
}

func TestComposer_Orderings(t *testing.T) {
	ctx := context.Background()
	c := NewComposer(swimStore(t))
	state := filter.NewState()

	tests := []struct {
		itemType shared.ItemType
		want     []string
	}{
		{shared.ItemTypeTeam, []string{"t3", "t2", "t1"}},
		{shared.ItemTypeSeason, []string{"s2", "s3", "s1"}},
		{shared.ItemTypeMeet, []string{"m3", "m2", "m1"}},
		{shared.ItemTypePerson, []string{"p2", "p3", "p1"}},
		{shared.ItemTypeEvent, []string{"e3", "e2", "e1"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.itemType), func(t *testing.T) {
			items, err := c.List(ctx, tt.itemType, state)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(items))
		})
	}
}

func TestComposer_SuperSelectionScopes(t *testing.T) {
	ctx := context.Background()
	c := NewComposer(swimStore(t))

	seasons, err := c.List(ctx, shared.ItemTypeSeason, superSelect(filter.NewState(), shared.ItemTypeTeam, "t1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"s2", "s1"}, ids(seasons))

	meets, err := c.List(ctx, shared.ItemTypeMeet, superSelect(filter.NewState(), shared.ItemTypeMeet, "m1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, ids(meets))
	assert.True(t, meets[0].SuperSelected)

	athletes, err := c.List(ctx, shared.ItemTypeAthlete, superSelect(filter.NewState(), shared.ItemTypeSeason, "s3"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a3"}, ids(athletes))
}

func TestComposer_Results(t *testing.T) {
	ctx := context.Background()
	c := NewComposer(swimStore(t))

	t.Run("disabled without scope", func(t *testing.T) {
		store := &mockRecordStore{}
		items, err := NewComposer(store).List(ctx, shared.ItemTypeResult, superSelect(filter.NewState(), shared.ItemTypePerson, "p1"))
		require.NoError(t, err)
		assert.Empty(t, items)
		store.AssertNotCalled(t, "FetchByFilter", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ordered by time with missing times last", func(t *testing.T) {
		items, err := c.List(ctx, shared.ItemTypeResult, superSelect(filter.NewState(), shared.ItemTypeMeet, "m2"))
		require.NoError(t, err)
		assert.Equal(t, []string{"r2", "r1", "r4"}, ids(items))
	})

	t.Run("secondary scopes in memory", func(t *testing.T) {
		state := superSelect(superSelect(filter.NewState(), shared.ItemTypeTeam, "t1", "t2"), shared.ItemTypeEvent, "e2")
		items, err := c.List(ctx, shared.ItemTypeResult, state)
		require.NoError(t, err)
		assert.Equal(t, []string{"r2", "r3", "r4"}, ids(items))
	})

	t.Run("athlete super-selection", func(t *testing.T) {
		state := superSelect(superSelect(filter.NewState(), shared.ItemTypeTeam, "t1"), shared.ItemTypeAthlete, "a1")
		items, err := c.List(ctx, shared.ItemTypeResult, state)
		require.NoError(t, err)
		assert.Equal(t, []string{"r1", "r4"}, ids(items))
	})

	t.Run("person super-selection resolves athletes", func(t *testing.T) {
		state := superSelect(superSelect(filter.NewState(), shared.ItemTypeTeam, "t1", "t2"), shared.ItemTypePerson, "p3")
		items, err := c.List(ctx, shared.ItemTypeResult, state)
		require.NoError(t, err)
		assert.Equal(t, []string{"r3"}, ids(items))
	})

	t.Run("plain selections fade", func(t *testing.T) {
		state := superSelect(filter.NewState(), shared.ItemTypeMeet, "m2")
		state = selectIDs(state, shared.ItemTypeEvent, "e1")
		state = selectIDs(state, shared.ItemTypeResult, "r2")
		items, err := c.List(ctx, shared.ItemTypeResult, state)
		require.NoError(t, err)
		require.Len(t, items, 3)

		byID := map[string]Item{}
		for _, it := range items {
			byID[it.Record.ID()] = it
		}
		assert.False(t, byID["r1"].Faded)
		assert.True(t, byID["r1"].Clickable)
		assert.False(t, byID["r2"].Faded, "selected records never fade")
		assert.True(t, byID["r2"].Selected)
		assert.True(t, byID["r4"].Faded)
		assert.False(t, byID["r4"].Clickable)
	})

	t.Run("person selection fades via athletes", func(t *testing.T) {
		state := superSelect(filter.NewState(), shared.ItemTypeMeet, "m2")
		state = selectIDs(state, shared.ItemTypePerson, "p2")
		items, err := c.List(ctx, shared.ItemTypeResult, state)
		require.NoError(t, err)
		for _, it := range items {
			assert.Equal(t, it.Record.ID() != "r2", it.Faded, it.Record.ID())
		}
	})
}

func TestComposer_ChunkedResultsMerge(t *testing.T) {
	ctx := context.Background()
	store := swimStore(t, persistence.WithInLimit(1))
	c := NewComposer(store, WithInLimit(1))

	items, err := c.List(ctx, shared.ItemTypeResult, superSelect(filter.NewState(), shared.ItemTypeMeet, "m2", "m3"))
	require.NoError(t, err)
	assert.Equal(t, []string{"r2", "r3", "r1", "r4"}, ids(items))
}

func TestComposer_CascadingFade(t *testing.T) {
	ctx := context.Background()
	c := NewComposer(swimStore(t))

	state := selectIDs(filter.NewState(), shared.ItemTypeTeam, "t2")
	meets, err := c.List(ctx, shared.ItemTypeMeet, state)
	require.NoError(t, err)
	for _, m := range meets {
		assert.Equal(t, m.Record.ID() != "m3", m.Faded, m.Record.ID())
	}

	// a season selection takes over from the team selection
	state = selectIDs(state, shared.ItemTypeSeason, "s1")
	meets, err = c.List(ctx, shared.ItemTypeMeet, state)
	require.NoError(t, err)
	for _, m := range meets {
		assert.Equal(t, m.Record.ID() != "m1", m.Faded, m.Record.ID())
	}

	state = selectIDs(filter.NewState(), shared.ItemTypeTeam, "t1")
	seasons, err := c.List(ctx, shared.ItemTypeSeason, state)
	require.NoError(t, err)
	for _, s := range seasons {
		assert.Equal(t, s.Record.ID() == "s3", s.Faded, s.Record.ID())
	}
}

func TestComposer_StoreErrorIsWrapped(t *testing.T) {
	store := &mockRecordStore{}
	store.On("FetchByFilter", mock.Anything, "teams", mock.Anything).Return(nil, errors.New("offline"))

	_, err := NewComposer(store).List(context.Background(), shared.ItemTypeTeam, filter.NewState())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "offline")
}
