package filter

import (
	"context"
	"fmt"
	"sync"

	"github.com/swimteam/backend/internal/domain/filter"
	"github.com/swimteam/backend/internal/domain/shared"
	"github.com/swimteam/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Service owns one session's selection state and keeps it persisted.
// Every dispatched command is applied through filter.Apply and the
// resulting state is written to the snapshot store; ClearAll removes
// the snapshot instead.
type Service struct {
	// writeMu serialises apply and persist so the stored snapshot always
	// matches the latest applied state; mu guards state for readers.
	writeMu sync.Mutex
	mu      sync.Mutex
	state   filter.State
	store   shared.SnapshotStore
	key     string
	logger  *zap.Logger
}

// NewService creates a selection service persisting under key
func NewService(store shared.SnapshotStore, key string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if key == "" {
		key = filter.StorageKey
	}
	return &Service{
		state:  filter.NewState(),
		store:  store,
		key:    key,
		logger: logger.With(zap.String("snapshot_key", key)),
	}
}

// Key returns the snapshot key
func (s *Service) Key() string {
	return s.key
}

// Load restores the persisted state. A missing snapshot leaves the default
// state; an unreadable one is logged and replaced by the default state.
func (s *Service) Load(ctx context.Context) (filter.State, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "filter", "Load")
	defer span.End()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	blob, err := s.store.Load(ctx, s.key)
	if err != nil {
		telemetry.RecordError(span, err)
		return s.State(), fmt.Errorf("load selection snapshot: %w", err)
	}

	state := filter.NewState()
	if blob != nil {
		decoded, err := filter.UnmarshalSnapshot(blob)
		if err != nil {
			s.logger.Warn("discarding unreadable selection snapshot", zap.Error(err))
		}
		state = decoded
	}

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	return state.Clone(), nil
}

// State returns a copy of the current state
func (s *Service) State() filter.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Dispatch applies cmd and persists the result. The new state is returned
// even when persisting fails. Concurrent dispatches are applied and
// persisted one at a time, in order.
func (s *Service) Dispatch(ctx context.Context, cmd filter.Command) (filter.State, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "filter", "Dispatch", "command", filter.CommandName(cmd))
	defer span.End()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	next := filter.Apply(s.state, cmd)
	s.state = next
	snapshot := next.Clone()
	s.mu.Unlock()

	s.logger.Debug("selection changed", zap.String("command", filter.CommandName(cmd)))

	var err error
	if _, isClearAll := cmd.(filter.ClearAll); isClearAll {
		err = s.store.Clear(ctx, s.key)
	} else {
		err = s.persist(ctx, snapshot)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Warn("failed to persist selection", zap.Error(err))
		return snapshot, fmt.Errorf("persist selection: %w", err)
	}
	return snapshot, nil
}

func (s *Service) persist(ctx context.Context, state filter.State) error {
	blob, err := filter.MarshalSnapshot(state)
	if err != nil {
		return err
	}
	return s.store.Save(ctx, s.key, blob)
}

// Toggle cycles the selection level of one record
func (s *Service) Toggle(ctx context.Context, itemType shared.ItemType, id string) (filter.State, error) {
	return s.Dispatch(ctx, filter.ToggleSelection{ItemType: itemType, ID: id})
}

// ClearSelected clears one type's selections
func (s *Service) ClearSelected(ctx context.Context, itemType shared.ItemType) (filter.State, error) {
	return s.Dispatch(ctx, filter.ClearSelected{ItemType: itemType})
}

// ClearSuperSelected clears one type's super-selections only
func (s *Service) ClearSuperSelected(ctx context.Context, itemType shared.ItemType) (filter.State, error) {
	return s.Dispatch(ctx, filter.ClearSuperSelected{ItemType: itemType})
}

// ClearAllType clears both selection sets of one type
func (s *Service) ClearAllType(ctx context.Context, itemType shared.ItemType) (filter.State, error) {
	return s.Dispatch(ctx, filter.ClearAllType{ItemType: itemType})
}

// ClearAll resets every type and discards the snapshot
func (s *Service) ClearAll(ctx context.Context) (filter.State, error) {
	return s.Dispatch(ctx, filter.ClearAll{})
}

// SelectionOf reports the selection level of one record
func (s *Service) SelectionOf(itemType shared.ItemType, id string) filter.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SelectionOf(itemType, id)
}
