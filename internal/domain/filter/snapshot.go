package filter

import (
	"encoding/json"
	"fmt"

	"github.com/swimteam/backend/internal/domain/shared"
)

// StorageKey is the snapshot key prefix for persisted filter state
const StorageKey = "appFilterState-v1"

type snapshot struct {
	Selected      map[string][]string `json:"selected"`
	SuperSelected map[string][]string `json:"superSelected"`
}

// MarshalSnapshot encodes the state as an opaque blob
func MarshalSnapshot(state State) ([]byte, error) {
	snap := snapshot{
		Selected:      make(map[string][]string, len(shared.AllItemTypes)),
		SuperSelected: make(map[string][]string, len(shared.AllItemTypes)),
	}
	for _, t := range shared.AllItemTypes {
		snap.Selected[t.String()] = nonNil(state.Selected[t])
		snap.SuperSelected[t.String()] = nonNil(state.SuperSelected[t])
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal filter snapshot: %w", err)
	}
	return data, nil
}

// UnmarshalSnapshot decodes a blob and merges it over the default state.
// Types missing from the blob stay empty and unknown type keys are ignored,
// so blobs written before a type existed still load. A blob without both
// the selected and superSelected sections decodes to the default state.
func UnmarshalSnapshot(data []byte) (State, error) {
	state := NewState()
	if len(data) == 0 {
		return state, nil
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return state, fmt.Errorf("unmarshal filter snapshot: %w", err)
	}
	if snap.Selected == nil || snap.SuperSelected == nil {
		return state, nil
	}

	for key, ids := range snap.Selected {
		if t := shared.ItemType(key); t.IsValid() {
			state.Selected[t] = dedupe(ids)
		}
	}
	for key, ids := range snap.SuperSelected {
		t := shared.ItemType(key)
		if !t.IsValid() {
			continue
		}
		state.SuperSelected[t] = dedupe(ids)
		// a super-selected id is always also selected
		for _, id := range state.SuperSelected[t] {
			if !state.IsSelected(t, id) {
				state.Selected[t] = append(state.Selected[t], id)
			}
		}
	}
	return state, nil
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
