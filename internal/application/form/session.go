package form

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/swimteam/backend/internal/domain/filter"
	"github.com/swimteam/backend/internal/domain/form"
	"github.com/swimteam/backend/internal/domain/shared"
	"github.com/swimteam/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Messages written to the form when a save or delete cannot proceed
const (
	msgNothingToSave = "Cannot save: No item selected or form data missing."
	msgSaveFailed    = "Failed to save data."
	msgDeleteFailed  = "Failed to delete item."
	msgLoadNotFound  = "Item not found."
	msgLoadFailed    = "Failed to load item."
)

// Confirmer approves destructive actions. label names the record for the prompt.
type Confirmer interface {
	Confirm(ctx context.Context, item form.SelectedItem, label string) bool
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(ctx context.Context, item form.SelectedItem, label string) bool

// Confirm calls f
func (f ConfirmFunc) Confirm(ctx context.Context, item form.SelectedItem, label string) bool {
	return f(ctx, item, label)
}

// Preset confirmers
var (
	AlwaysConfirm Confirmer = ConfirmFunc(func(context.Context, form.SelectedItem, string) bool { return true })
	NeverConfirm  Confirmer = ConfirmFunc(func(context.Context, form.SelectedItem, string) bool { return false })
)

// SelectionSource exposes the current selection state for add-mode prefill
type SelectionSource interface {
	State() filter.State
}

// parentFields lists the references pre-populated when adding a record
// under a single super-selected parent
var parentFields = map[shared.ItemType][]shared.ItemType{
	shared.ItemTypeSeason:  {shared.ItemTypeTeam},
	shared.ItemTypeMeet:    {shared.ItemTypeSeason, shared.ItemTypeTeam},
	shared.ItemTypeAthlete: {shared.ItemTypeSeason, shared.ItemTypeTeam},
	shared.ItemTypeResult:  {shared.ItemTypeMeet, shared.ItemTypeSeason, shared.ItemTypeTeam},
}

// Session is one user's single-record edit session. The form state moves
// only through form.Apply; store calls happen outside the state lock and
// their outcomes are applied only if the form still points at the same
// record and load generation.
type Session struct {
	mu         sync.Mutex
	state      form.State
	generation uint64

	// serialises Save and Delete
	writeMu sync.Mutex

	store     shared.RecordStore
	validator Validator
	publisher shared.EventPublisher
	selection SelectionSource
	logger    *zap.Logger
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithValidator replaces the default record validator
func WithValidator(v Validator) SessionOption {
	return func(s *Session) {
		s.validator = v
	}
}

// WithPublisher sets the publisher for record change events
func WithPublisher(p shared.EventPublisher) SessionOption {
	return func(s *Session) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithSelectionSource enables add-mode prefill from the selection state
func WithSelectionSource(src SelectionSource) SessionOption {
	return func(s *Session) {
		s.selection = src
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSession creates an idle form session over store
func NewSession(store shared.RecordStore, opts ...SessionOption) *Session {
	s := &Session{
		state:     form.NewState(),
		store:     store,
		publisher: shared.NopPublisher{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.validator == nil {
		s.validator = NewRecordValidator(store)
	}
	return s
}

// State returns a copy of the current form state
func (s *Session) State() form.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *Session) apply(cmd form.Command) form.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = form.Apply(s.state, cmd)
	return s.state.Clone()
}

// Select binds the form to a record and mode. When the selection needs
// data the record is fetched before Select returns; a response that
// arrives after a newer selection is discarded.
func (s *Session) Select(ctx context.Context, itemType shared.ItemType, id string, mode form.Mode) (form.State, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "form", "Select",
		telemetry.SpanAttrItemType, string(itemType), telemetry.SpanAttrRecordID, id, telemetry.SpanAttrFormMode, string(mode))
	defer span.End()

	if !itemType.IsValid() {
		err := shared.NewUnknownItemTypeError(string(itemType))
		telemetry.RecordError(span, err)
		return s.State(), err
	}
	if !mode.IsValid() {
		err := shared.NewDomainError(shared.CodeInvalidInput, "unknown form mode: "+string(mode))
		return s.State(), err
	}

	s.mu.Lock()
	prev := s.state
	next := form.Apply(prev, form.SelectItemForForm{Type: itemType, ID: id, Mode: mode})
	if mode == form.ModeAdd && !prev.SelectedItem.SameRecord(next.SelectedItem) {
		next = s.prefill(next)
	}
	s.state = next
	var gen uint64
	if next.IsLoading {
		s.generation++
		gen = s.generation
	}
	target := next.SelectedItem
	s.mu.Unlock()

	if !next.IsLoading {
		return next.Clone(), nil
	}
	return s.load(ctx, target, gen)
}

func (s *Session) prefill(state form.State) form.State {
	if s.selection == nil {
		return state
	}
	parents, ok := parentFields[state.SelectedItem.Type]
	if !ok {
		return state
	}
	selection := s.selection.State()
	for _, parent := range parents {
		ids := selection.SuperSelectedIDs(parent)
		if len(ids) != 1 {
			continue
		}
		state = form.Apply(state, form.UpdateFormData{Field: string(parent), Value: ids[0]})
	}
	return state
}

func (s *Session) load(ctx context.Context, target form.SelectedItem, gen uint64) (form.State, error) {
	collection, _ := target.Type.Collection()
	rec, err := s.store.FetchByID(ctx, collection, target.ID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || !s.state.SelectedItem.SameRecord(target) {
		s.logger.Debug("discarding stale form load",
			zap.String("item_type", string(target.Type)),
			zap.String("record_id", target.ID))
		return s.state.Clone(), nil
	}

	switch {
	case errors.Is(err, shared.ErrNotFound):
		s.state = form.Apply(s.state, form.LoadFormDataError{Message: msgLoadNotFound})
	case err != nil:
		s.logger.Error("failed to load form record",
			zap.String("collection", collection),
			zap.String("record_id", target.ID),
			zap.Error(err))
		s.state = form.Apply(s.state, form.LoadFormDataError{Message: msgLoadFailed})
	default:
		s.state = form.Apply(s.state, form.LoadFormDataSuccess{Data: rec})
	}
	if err != nil {
		return s.state.Clone(), fmt.Errorf("load %s/%s: %w", collection, target.ID, err)
	}
	return s.state.Clone(), nil
}

// UpdateField sets one field of the working copy
func (s *Session) UpdateField(field string, value any) form.State {
	return s.apply(form.UpdateFormData{Field: field, Value: value})
}

// Revert restores the working copy from the last loaded or saved data
func (s *Session) Revert() form.State {
	return s.apply(form.RevertFormData{})
}

// Clear resets the form to idle
func (s *Session) Clear() form.State {
	return s.apply(form.ClearForm{})
}

// Save validates and writes the working copy. Add mode creates a record
// and reselects it in view mode; edit mode overwrites the stored record.
// Every failure is also written to the form's error message.
func (s *Session) Save(ctx context.Context) (form.State, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current := s.State()
	item := current.SelectedItem
	ctx, span := telemetry.StartServiceSpan(ctx, "form", "Save",
		telemetry.SpanAttrItemType, string(item.Type), telemetry.SpanAttrRecordID, item.ID, telemetry.SpanAttrFormMode, string(item.Mode))
	defer span.End()

	if item.Type == "" || current.FormData == nil {
		return s.fail(span, shared.NewDomainError(shared.CodeInvalidState, msgNothingToSave), msgNothingToSave)
	}
	collection, ok := item.Type.Collection()
	if !ok {
		err := shared.NewUnknownItemTypeError(string(item.Type))
		return s.fail(span, err, err.Message)
	}
	if item.Mode != form.ModeAdd && !(item.Mode == form.ModeEdit && item.ID != "") {
		msg := fmt.Sprintf("Invalid mode %q for saving item type %q.", string(item.Mode), string(item.Type))
		return s.fail(span, shared.NewDomainError(shared.CodeInvalidState, msg), msg)
	}

	data, err := s.validator.Validate(ctx, item.Type, current.FormData)
	if err != nil {
		return s.fail(span, err, displayMessage(err, msgSaveFailed))
	}

	s.apply(form.SetSaving{Saving: true})
	data = data.Without(shared.FieldID, shared.FieldCreatedAt, shared.FieldUpdatedAt)
	data[shared.FieldUpdatedAt] = shared.ServerTimestamp

	if item.Mode == form.ModeAdd {
		data[shared.FieldCreatedAt] = shared.ServerTimestamp
		newID, err := s.store.Create(ctx, collection, data)
		if err != nil {
			s.logger.Error("failed to create record", zap.String("collection", collection), zap.Error(err))
			return s.fail(span, err, msgSaveFailed)
		}
		s.logger.Info("record created", zap.String("collection", collection), zap.String("record_id", newID))
		s.publish(ctx, shared.EventTypeRecordCreated, collection, newID)
		if !s.applyIfCurrent(item, form.SaveSuccess{}) {
			return s.State(), nil
		}
		return s.Select(ctx, item.Type, newID, form.ModeView)
	}

	if err := s.store.Update(ctx, collection, item.ID, data); err != nil {
		s.logger.Error("failed to update record",
			zap.String("collection", collection), zap.String("record_id", item.ID), zap.Error(err))
		return s.fail(span, err, displayMessage(err, msgSaveFailed))
	}
	s.logger.Info("record updated", zap.String("collection", collection), zap.String("record_id", item.ID))
	s.publish(ctx, shared.EventTypeRecordUpdated, collection, item.ID)
	s.applyIfCurrent(item, form.SaveSuccess{})
	return s.State(), nil
}

// Delete removes the selected record once confirmer approves. A refusal
// leaves the form untouched and returns ErrConfirmationRequired.
func (s *Session) Delete(ctx context.Context, confirmer Confirmer) (form.State, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current := s.State()
	item := current.SelectedItem
	ctx, span := telemetry.StartServiceSpan(ctx, "form", "Delete",
		telemetry.SpanAttrItemType, string(item.Type), telemetry.SpanAttrRecordID, item.ID)
	defer span.End()

	if item.Type == "" || item.ID == "" {
		s.logger.Warn("delete called without a selected record")
		return current, shared.ErrInvalidState
	}
	collection, ok := item.Type.Collection()
	if !ok {
		err := shared.NewUnknownItemTypeError(string(item.Type))
		return s.fail(span, err, err.Message)
	}

	if confirmer == nil || !confirmer.Confirm(ctx, item, DeleteLabel(current)) {
		return current, shared.ErrConfirmationRequired
	}

	s.apply(form.SetSaving{Saving: true})
	if err := s.store.Delete(ctx, collection, item.ID); err != nil {
		s.logger.Error("failed to delete record",
			zap.String("collection", collection), zap.String("record_id", item.ID), zap.Error(err))
		return s.fail(span, err, displayMessage(err, msgDeleteFailed))
	}
	s.logger.Info("record deleted", zap.String("collection", collection), zap.String("record_id", item.ID))
	s.publish(ctx, shared.EventTypeRecordDeleted, collection, item.ID)
	s.applyIfCurrent(item, form.DeleteSuccess{})
	return s.State(), nil
}

// DeleteLabel names the bound record for a confirmation prompt
func DeleteLabel(state form.State) string {
	for _, field := range []string{"code", "name_short", "name"} {
		if v := state.FormData.TrimmedString(field); v != "" {
			return v
		}
	}
	return state.SelectedItem.ID
}

// DeletePrompt is the confirmation text for deleting the bound record
func DeletePrompt(state form.State) string {
	return fmt.Sprintf("Are you sure you want to delete this %s (%s)? This action cannot be undone.",
		state.SelectedItem.Type, DeleteLabel(state))
}

// applyIfCurrent applies cmd only while the form is still bound to item
func (s *Session) applyIfCurrent(item form.SelectedItem, cmd form.Command) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.SelectedItem.SameRecord(item) {
		s.logger.Debug("form moved on before write completed",
			zap.String("command", form.CommandName(cmd)))
		return false
	}
	s.state = form.Apply(s.state, cmd)
	return true
}

func (s *Session) fail(span trace.Span, err error, msg string) (form.State, error) {
	telemetry.RecordError(span, err)
	return s.apply(form.Errorf(msg)), err
}

func (s *Session) publish(ctx context.Context, eventType, collection, id string) {
	event := shared.NewRecordChangedEvent(eventType, collection, id)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish record change",
			zap.String("event_type", eventType),
			zap.String("collection", collection),
			zap.Error(err))
	}
}

// displayMessage returns a domain error's own message for validation and
// not-found errors and fallback for everything else
func displayMessage(err error, fallback string) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		switch de.Code {
		case shared.CodeValidation, shared.CodeNotFound, shared.CodeUnknownItemType, shared.CodeInvalidState:
			return de.Message
		}
	}
	return fallback
}
