package shared

import "strings"

// ItemType is the closed set of selectable record types
type ItemType string

const (
	ItemTypeTeam    ItemType = "team"
	ItemTypeSeason  ItemType = "season"
	ItemTypeMeet    ItemType = "meet"
	ItemTypeAthlete ItemType = "athlete"
	ItemTypePerson  ItemType = "person"
	ItemTypeEvent   ItemType = "event"
	ItemTypeResult  ItemType = "result"
)

// AllItemTypes lists every selectable type in display order
var AllItemTypes = []ItemType{
	ItemTypeTeam,
	ItemTypeSeason,
	ItemTypeMeet,
	ItemTypeAthlete,
	ItemTypePerson,
	ItemTypeEvent,
	ItemTypeResult,
}

var collectionNames = map[ItemType]string{
	ItemTypeTeam:    "teams",
	ItemTypeSeason:  "seasons",
	ItemTypeMeet:    "meets",
	ItemTypeAthlete: "athletes",
	ItemTypePerson:  "people",
	ItemTypeResult:  "results",
	ItemTypeEvent:   "events",
}

// Collection returns the storage collection name for the type.
// ok is false for types outside the closed set.
func (t ItemType) Collection() (string, bool) {
	name, ok := collectionNames[t]
	return name, ok
}

// IsValid reports whether t is one of the known item types
func (t ItemType) IsValid() bool {
	_, ok := collectionNames[t]
	return ok
}

// String returns the type tag
func (t ItemType) String() string {
	return string(t)
}

// ParseItemType parses a type tag, case-insensitively
func ParseItemType(s string) (ItemType, error) {
	t := ItemType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", NewUnknownItemTypeError(s)
	}
	return t, nil
}

// ItemTypeForCollection maps a collection name back to its item type
func ItemTypeForCollection(collection string) (ItemType, bool) {
	for t, name := range collectionNames {
		if name == collection {
			return t, true
		}
	}
	return "", false
}
