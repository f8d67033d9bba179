package session

import (
	"context"
	"regexp"
	"sync"
	"time"

	filterapp "github.com/swimteam/backend/internal/application/filter"
	formapp "github.com/swimteam/backend/internal/application/form"
	"github.com/swimteam/backend/internal/domain/filter"
	"github.com/swimteam/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultID is used when a client sends no session id
const DefaultID = "default"

// MaxIDLength bounds client supplied session ids
const MaxIDLength = 64

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Session is one client's selection state and edit form
type Session struct {
	ID     string
	Filter *filterapp.Service
	Form   *formapp.Session
}

type entry struct {
	session  *Session
	lastUsed time.Time
}

// Registry creates sessions on first use and keeps them in memory while
// they are used. The selection state of a new session is restored from the
// snapshot store, so an evicted session comes back with its selection but
// without an unsaved form.
//
// Sessions idle for longer than idleTTL are dropped, and once maxSessions
// is reached the least recently used one is evicted.
type Registry struct {
	mu          sync.Mutex
	sessions    map[string]*entry
	idleTTL     time.Duration
	maxSessions int
	now         func() time.Time
	snapshots   shared.SnapshotStore
	records     shared.RecordStore
	validator   formapp.Validator
	publisher   shared.EventPublisher
	keyPrefix   string
	logger      *zap.Logger
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithKeyPrefix sets the snapshot key prefix
func WithKeyPrefix(prefix string) RegistryOption {
	return func(r *Registry) {
		if prefix != "" {
			r.keyPrefix = prefix
		}
	}
}

// WithPublisher sets the publisher handed to every form session
func WithPublisher(p shared.EventPublisher) RegistryOption {
	return func(r *Registry) {
		if p != nil {
			r.publisher = p
		}
	}
}

// WithValidator replaces the record validator shared by all sessions
func WithValidator(v formapp.Validator) RegistryOption {
	return func(r *Registry) {
		if v != nil {
			r.validator = v
		}
	}
}

// WithIdleTTL drops sessions unused for d; 0 keeps them until evicted
func WithIdleTTL(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.idleTTL = d
		}
	}
}

// WithMaxSessions caps the sessions held in memory; 0 means unbounded
func WithMaxSessions(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.maxSessions = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty registry
func NewRegistry(snapshots shared.SnapshotStore, records shared.RecordStore, opts ...RegistryOption) *Registry {
	r := &Registry{
		sessions:  make(map[string]*entry),
		now:       time.Now,
		snapshots: snapshots,
		records:   records,
		publisher: shared.NopPublisher{},
		keyPrefix: filter.StorageKey,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.validator == nil {
		r.validator = formapp.NewRecordValidator(records)
	}
	return r
}

// NormaliseID maps "" to DefaultID and rejects ids that cannot be used in a
// snapshot key
func NormaliseID(id string) (string, error) {
	if id == "" {
		return DefaultID, nil
	}
	if len(id) > MaxIDLength || !idPattern.MatchString(id) {
		return "", shared.NewDomainError(shared.CodeInvalidInput, "Invalid session id")
	}
	return id, nil
}

// Get returns the session for id, creating it on first use. A snapshot
// that cannot be read is logged and the session starts empty.
func (r *Registry) Get(ctx context.Context, id string) (*Session, error) {
	id, err := NormaliseID(id)
	if err != nil {
		return nil, err
	}

	if s, ok := r.lookup(id); ok {
		return s, nil
	}

	// the snapshot read happens outside the lock; a racing Get for the same
	// id keeps whichever session was inserted first
	logger := r.logger.With(zap.String("session_id", id))
	selection := filterapp.NewService(r.snapshots, r.keyPrefix+":"+id, logger)
	if _, err := selection.Load(ctx); err != nil {
		logger.Warn("starting session without stored selection", zap.Error(err))
	}
	created := &Session{
		ID:     id,
		Filter: selection,
		Form: formapp.NewSession(r.records,
			formapp.WithValidator(r.validator),
			formapp.WithPublisher(r.publisher),
			formapp.WithSelectionSource(selection),
			formapp.WithLogger(logger),
		),
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if e, ok := r.sessions[id]; ok && !r.expired(e, now) {
		e.lastUsed = now
		return e.session, nil
	}
	r.sweep(now)
	for r.maxSessions > 0 && len(r.sessions) >= r.maxSessions {
		r.evictOldest()
	}
	r.sessions[id] = &entry{session: created, lastUsed: now}
	logger.Debug("session created")
	return created, nil
}

func (r *Registry) lookup(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	now := r.now()
	if r.expired(e, now) {
		delete(r.sessions, id)
		return nil, false
	}
	e.lastUsed = now
	return e.session, true
}

func (r *Registry) expired(e *entry, now time.Time) bool {
	return r.idleTTL > 0 && now.Sub(e.lastUsed) > r.idleTTL
}

// sweep drops idle sessions; callers hold mu
func (r *Registry) sweep(now time.Time) {
	if r.idleTTL <= 0 {
		return
	}
	for id, e := range r.sessions {
		if r.expired(e, now) {
			delete(r.sessions, id)
		}
	}
}

// evictOldest drops the least recently used session; callers hold mu
func (r *Registry) evictOldest() {
	var oldestID string
	var oldest time.Time
	for id, e := range r.sessions {
		if oldestID == "" || e.lastUsed.Before(oldest) {
			oldestID, oldest = id, e.lastUsed
		}
	}
	if oldestID != "" {
		delete(r.sessions, oldestID)
		r.logger.Debug("session evicted", zap.String("session_id", oldestID))
	}
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
