package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/swimteam/backend/internal/domain/shared"
)

func TestFaded_SeasonsUnderPlainTeamSelection(t *testing.T) {
	s := NewState()
	s = Apply(s, ToggleSelection{ItemType: shared.ItemTypeTeam, ID: "cvs"})

	assert.False(t, Faded(s, Rel(shared.ItemTypeTeam, "cvs")))
	assert.True(t, Faded(s, Rel(shared.ItemTypeTeam, "other")))
	assert.True(t, Faded(s, Rel(shared.ItemTypeTeam)))

	// super-selecting the team moves it to query scope; nothing is faded
	s = Apply(s, ToggleSelection{ItemType: shared.ItemTypeTeam, ID: "cvs"})
	assert.False(t, Faded(s, Rel(shared.ItemTypeTeam, "other")))
	assert.True(t, Excluded(s, Rel(shared.ItemTypeTeam, "other")))
	assert.False(t, Excluded(s, Rel(shared.ItemTypeTeam, "cvs")))
}

func TestFaded_Cascade(t *testing.T) {
	meet := func(season, team string) []Relation {
		return []Relation{Rel(shared.ItemTypeSeason, season), Rel(shared.ItemTypeTeam, team)}
	}

	t.Run("no selection", func(t *testing.T) {
		assert.False(t, Faded(NewState(), meet("s1", "t1")...))
	})

	t.Run("team only", func(t *testing.T) {
		s := Apply(NewState(), ToggleSelection{ItemType: shared.ItemTypeTeam, ID: "t1"})
		assert.False(t, Faded(s, meet("s1", "t1")...))
		assert.True(t, Faded(s, meet("s2", "t2")...))
	})

	t.Run("season selection wins over team", func(t *testing.T) {
		s := Apply(NewState(), ToggleSelection{ItemType: shared.ItemTypeTeam, ID: "t1"})
		s = Apply(s, ToggleSelection{ItemType: shared.ItemTypeSeason, ID: "s2"})
		assert.True(t, Faded(s, meet("s1", "t1")...))
		assert.False(t, Faded(s, meet("s2", "t2")...))
	})

	t.Run("season super-selection stops the cascade", func(t *testing.T) {
		s := Apply(NewState(), ToggleSelection{ItemType: shared.ItemTypeTeam, ID: "t1"})
		s = Apply(s, ToggleSelection{ItemType: shared.ItemTypeSeason, ID: "s2"})
		s = Apply(s, ToggleSelection{ItemType: shared.ItemTypeSeason, ID: "s2"})
		assert.False(t, Faded(s, meet("s2", "t2")...))
	})
}

func TestFadedAny(t *testing.T) {
	s := Apply(NewState(), ToggleSelection{ItemType: shared.ItemTypeTeam, ID: "t1"})
	s = Apply(s, ToggleSelection{ItemType: shared.ItemTypeEvent, ID: "e1"})

	assert.False(t, FadedAny(s, Rel(shared.ItemTypeTeam, "t1"), Rel(shared.ItemTypeEvent, "e1")))
	assert.True(t, FadedAny(s, Rel(shared.ItemTypeTeam, "t1"), Rel(shared.ItemTypeEvent, "e2")))
	assert.True(t, FadedAny(s, Rel(shared.ItemTypeTeam, "t2"), Rel(shared.ItemTypeEvent, "e1")))

	// list relations match on any element
	s = Apply(s, ToggleSelection{ItemType: shared.ItemTypeAthlete, ID: "a2"})
	assert.False(t, FadedAny(s, Rel(shared.ItemTypeTeam, "t1"), Rel(shared.ItemTypeEvent, "e1"), Rel(shared.ItemTypeAthlete, "a1", "a2")))
}

func TestDecorate(t *testing.T) {
	s := Apply(NewState(), ToggleSelection{ItemType: shared.ItemTypeMeet, ID: "m1"})
	s = Apply(s, ToggleSelection{ItemType: shared.ItemTypeMeet, ID: "m2"})
	s = Apply(s, ToggleSelection{ItemType: shared.ItemTypeMeet, ID: "m2"})

	assert.Equal(t, Decoration{Selected: true, Faded: false, Clickable: true}, Decorate(s, shared.ItemTypeMeet, "m1", true))
	assert.Equal(t, Decoration{Selected: true, SuperSelected: true, Clickable: true}, Decorate(s, shared.ItemTypeMeet, "m2", true))
	assert.Equal(t, Decoration{Faded: true, Clickable: false}, Decorate(s, shared.ItemTypeMeet, "m3", true))
	assert.Equal(t, Decoration{Clickable: true}, Decorate(s, shared.ItemTypeMeet, "m3", false))
}
