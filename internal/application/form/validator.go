package form

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/swimteam/backend/internal/domain/shared"
	"github.com/swimteam/backend/internal/domain/shared/valueobject"
)

const dateLayout = "2006-01-02"

// Validation messages shown to the user
const (
	msgTeamRequired        = "Team Code and Short Name are required."
	msgSeasonTeamRequired  = "A Team must be selected."
	msgDateFormat          = "Dates must use the YYYY-MM-DD format."
	msgSeasonDateOrder     = "End Date cannot be before Start Date."
	msgMeetRequired        = "Please fill in all required fields (Short Name, Long Name, Team, Season, Date)."
	msgSeasonNotFound      = "The selected Season could not be found."
	msgSeasonMissingTeam   = "The selected Season does not have associated Team information. Please re-select the Season."
	msgMeetTeamMismatch    = "The selected Team does not match the Season's Team."
	msgAthleteRequired     = "A Person and Season must be selected."
	msgGradeRange          = "Grade must be a whole number between 0 and 12."
	msgLaneRange           = "Lane must be a whole number between 1 and 8."
	msgPersonRequired      = "Please fill in all required fields (First Name, Last Name)."
	msgInvalidEmail        = "Invalid email format."
	msgDuplicateEmail      = "Email already exists."
	msgDistancePositive    = "Field 'distance' must be a positive number."
	msgDistanceMultiple    = "Distance must be a positive multiple of 25."
	msgInvalidResultTime   = "Invalid result time format. Use MM:SS.HH or SS.HH."
	msgMeetRequiredResult  = "Meet is required."
	msgMeetNotFound        = "The selected Meet could not be found."
	msgMeetMissingSeason   = "Selected Meet is missing Season information."
	msgMeetMissingTeam     = "Selected Meet is missing Team information (via Season)."
	msgEventRequired       = "Event is required."
	msgResultTimeRequired  = "Result Time is required if not a DQ."
	msgAthleteCountPattern = "Requires exactly %d athlete(s) selected. Found %d."
)

// FieldResultTime is the form-only input holding a typed race time.
// It is converted to the stored hundredths field "result" on save.
const FieldResultTime = "result_time"

var eventRequiredFields = []string{"code", "name_short", "name_long", "course", "distance", "stroke"}

// Validator checks and normalises a record before it is written.
// The returned record is what gets stored.
type Validator interface {
	Validate(ctx context.Context, itemType shared.ItemType, data shared.Record) (shared.Record, error)
}

// RecordValidator applies the per-type rules. Rules that depend on a
// referenced record read it through the store.
type RecordValidator struct {
	store    shared.RecordStore
	validate *validator.Validate
}

// NewRecordValidator creates a validator reading references from store
func NewRecordValidator(store shared.RecordStore) *RecordValidator {
	return &RecordValidator{
		store:    store,
		validate: validator.New(),
	}
}

// Validate returns a normalised copy of data or a validation error whose
// message is suitable for display
func (v *RecordValidator) Validate(ctx context.Context, itemType shared.ItemType, data shared.Record) (shared.Record, error) {
	out := data.Clone()
	if out == nil {
		out = shared.Record{}
	}
	var err error
	switch itemType {
	case shared.ItemTypeTeam:
		err = v.team(out)
	case shared.ItemTypeSeason:
		err = v.season(out)
	case shared.ItemTypeMeet:
		err = v.meet(ctx, out)
	case shared.ItemTypeAthlete:
		err = v.athlete(ctx, out)
	case shared.ItemTypePerson:
		err = v.person(out)
	case shared.ItemTypeEvent:
		err = v.event(out)
	case shared.ItemTypeResult:
		err = v.result(ctx, out)
	default:
		return nil, shared.NewUnknownItemTypeError(string(itemType))
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (v *RecordValidator) team(r shared.Record) error {
	if !v.present(r, "code", "name_short") {
		return shared.NewValidationError(msgTeamRequired)
	}
	return nil
}

func (v *RecordValidator) season(r shared.Record) error {
	if !v.present(r, "team") {
		return shared.NewValidationError(msgSeasonTeamRequired)
	}
	start, err := v.optionalDate(r, "start_date")
	if err != nil {
		return err
	}
	end, err := v.optionalDate(r, "end_date")
	if err != nil {
		return err
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return shared.NewValidationError(msgSeasonDateOrder)
	}
	return nil
}

func (v *RecordValidator) meet(ctx context.Context, r shared.Record) error {
	if !v.present(r, "name_short", "name_long", "season", "date") {
		return shared.NewValidationError(msgMeetRequired)
	}
	if _, err := v.optionalDate(r, "date"); err != nil {
		return err
	}
	team, err := v.seasonTeam(ctx, r.TrimmedString("season"))
	if err != nil {
		return err
	}
	if current := r.TrimmedString("team"); current != "" && current != team {
		return shared.NewValidationError(msgMeetTeamMismatch)
	}
	r["team"] = team
	return nil
}

func (v *RecordValidator) athlete(ctx context.Context, r shared.Record) error {
	if !v.present(r, "person", "season") {
		return shared.NewValidationError(msgAthleteRequired)
	}
	team, err := v.seasonTeam(ctx, r.TrimmedString("season"))
	if err != nil {
		return err
	}
	r["team"] = team
	if err := v.optionalRange(r, "grade", "min=0,max=12", msgGradeRange); err != nil {
		return err
	}
	return v.optionalRange(r, "lane", "min=1,max=8", msgLaneRange)
}

func (v *RecordValidator) person(r shared.Record) error {
	if !v.present(r, "first_name", "last_name") {
		return shared.NewValidationError(msgPersonRequired)
	}
	if email := r.TrimmedString("email"); email != "" {
		if v.validate.Var(email, "email") != nil {
			return shared.NewValidationError(msgInvalidEmail)
		}
		r["email"] = email
	}
	if !r.Has("emails") {
		return nil
	}
	seen := make(map[string]struct{})
	emails := make([]string, 0)
	for _, raw := range r.Strings("emails") {
		email := strings.TrimSpace(raw)
		if email == "" {
			continue
		}
		if v.validate.Var(email, "email") != nil {
			return shared.NewValidationError(msgInvalidEmail)
		}
		key := strings.ToLower(email)
		if _, dup := seen[key]; dup {
			return shared.NewValidationError(msgDuplicateEmail)
		}
		seen[key] = struct{}{}
		emails = append(emails, email)
	}
	r["emails"] = emails
	return nil
}

func (v *RecordValidator) event(r shared.Record) error {
	for _, field := range eventRequiredFields {
		if !v.present(r, field) {
			return shared.NewValidationError(fmt.Sprintf("Field '%s' is required.", field))
		}
	}
	distance, ok := r.Int("distance")
	if !ok || distance <= 0 {
		return shared.NewValidationError(msgDistancePositive)
	}
	if distance%25 != 0 {
		return shared.NewValidationError(msgDistanceMultiple)
	}
	r["distance"] = distance
	return nil
}

func (v *RecordValidator) result(ctx context.Context, r shared.Record) error {
	var (
		parsed    valueobject.RaceTime
		hasParsed bool
	)
	if input := r.TrimmedString(FieldResultTime); input != "" {
		parsed, hasParsed = valueobject.ParseRaceTime(input)
		if !hasParsed {
			return shared.NewValidationError(msgInvalidResultTime)
		}
	}

	meetID := r.TrimmedString("meet")
	if meetID == "" {
		return shared.NewValidationError(msgMeetRequiredResult)
	}
	meet, err := v.fetch(ctx, "meets", meetID, msgMeetNotFound)
	if err != nil {
		return err
	}
	season := meet.TrimmedString("season")
	if season == "" {
		return shared.NewValidationError(msgMeetMissingSeason)
	}
	team := meet.TrimmedString("team")
	if team == "" {
		team, err = v.seasonTeam(ctx, season)
		if errors.Is(err, shared.ErrValidation) {
			return shared.NewValidationError(msgMeetMissingTeam)
		}
		if err != nil {
			return err
		}
	}

	if !v.present(r, "event") {
		return shared.NewValidationError(msgEventRequired)
	}

	dq := r.Bool("dq")
	switch {
	case hasParsed:
		r["result"] = parsed.Hundredths()
	case r.Has(FieldResultTime):
		// an explicitly blanked time input clears the stored time
		r["result"] = nil
	}
	if stored, ok := r.Int("result"); !dq && (!ok || stored < 0) {
		return shared.NewValidationError(msgResultTimeRequired)
	}

	want := 1
	if r.Bool("relay") {
		want = 4
	}
	athletes := nonEmpty(r.Strings("athletes"))
	if len(athletes) != want {
		return shared.NewValidationError(fmt.Sprintf(msgAthleteCountPattern, want, len(athletes)))
	}

	r["athletes"] = athletes
	r["season"] = season
	r["team"] = team
	r["dq"] = dq
	delete(r, FieldResultTime)
	return nil
}

// seasonTeam returns the team of a season or a validation error when the
// season is missing or carries no team
func (v *RecordValidator) seasonTeam(ctx context.Context, seasonID string) (string, error) {
	season, err := v.fetch(ctx, "seasons", seasonID, msgSeasonNotFound)
	if err != nil {
		return "", err
	}
	team := season.TrimmedString("team")
	if team == "" {
		return "", shared.NewValidationError(msgSeasonMissingTeam)
	}
	return team, nil
}

func (v *RecordValidator) fetch(ctx context.Context, collection, id, notFound string) (shared.Record, error) {
	rec, err := v.store.FetchByID(ctx, collection, id)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.NewValidationError(notFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s/%s: %w", collection, id, err)
	}
	return rec, nil
}

// present reports whether every field holds a non-blank value
func (v *RecordValidator) present(r shared.Record, fields ...string) bool {
	for _, field := range fields {
		if !r.Has(field) || v.validate.Var(r.TrimmedString(field), "required") != nil {
			return false
		}
	}
	return true
}

func (v *RecordValidator) optionalDate(r shared.Record, field string) (time.Time, error) {
	s := r.TrimmedString(field)
	if s == "" {
		return time.Time{}, nil
	}
	if v.validate.Var(s, "datetime="+dateLayout) != nil {
		return time.Time{}, shared.NewValidationError(msgDateFormat)
	}
	t, _ := time.Parse(dateLayout, s)
	r[field] = s
	return t, nil
}

func (v *RecordValidator) optionalRange(r shared.Record, field, rule, msg string) error {
	if !r.Has(field) || r.TrimmedString(field) == "" {
		r[field] = nil
		return nil
	}
	n, ok := r.Int(field)
	if !ok || v.validate.Var(n, rule) != nil {
		return shared.NewValidationError(msg)
	}
	r[field] = n
	return nil
}

func nonEmpty(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
