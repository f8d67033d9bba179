package persistence

import (
	"context"
	"database/sql/driver"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/swimteam/backend/internal/domain/shared"
)

// MemoryRecordStore is an in-process shared.RecordStore. It applies the same
// schema and inclusion-query checks as the GORM store and is used for the
// memory database driver and in tests.
type MemoryRecordStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]shared.Record
	inLimit     int
	newID       func() string
	now         func() time.Time
}

// MemoryRecordStoreOption configures a MemoryRecordStore
type MemoryRecordStoreOption func(*MemoryRecordStore)

// WithInLimit overrides the largest id list one inclusion predicate may carry
func WithInLimit(limit int) MemoryRecordStoreOption {
	return func(s *MemoryRecordStore) {
		if limit > 0 {
			s.inLimit = limit
		}
	}
}

// WithIDGenerator overrides record id generation
func WithIDGenerator(fn func() string) MemoryRecordStoreOption {
	return func(s *MemoryRecordStore) {
		s.newID = fn
	}
}

// WithClock overrides the clock used to resolve server timestamps
func WithClock(fn func() time.Time) MemoryRecordStoreOption {
	return func(s *MemoryRecordStore) {
		s.now = fn
	}
}

// NewMemoryRecordStore creates an empty in-memory record store
func NewMemoryRecordStore(opts ...MemoryRecordStoreOption) *MemoryRecordStore {
	s := &MemoryRecordStore{
		collections: make(map[string]map[string]shared.Record),
		inLimit:     shared.DefaultInQueryLimit,
		newID:       uuid.NewString,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ shared.RecordStore = (*MemoryRecordStore)(nil)

// Put stores a record under an explicit id, replacing any existing one
func (s *MemoryRecordStore) Put(collection, id string, data shared.Record) error {
	cs, err := SchemaFor(collection)
	if err != nil {
		return err
	}
	rec, err := s.normalise(cs, data)
	if err != nil {
		return err
	}
	rec[shared.FieldID] = id

	s.mu.Lock()
	defer s.mu.Unlock()
	s.table(collection)[id] = rec
	return nil
}

// Len returns the number of records in a collection
func (s *MemoryRecordStore) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

// FetchByID loads one record; ErrNotFound when it does not exist
func (s *MemoryRecordStore) FetchByID(ctx context.Context, collection, id string) (shared.Record, error) {
	if _, err := SchemaFor(collection); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.collections[collection][id]
	if !ok {
		return nil, shared.NewNotFoundError(collection, id)
	}
	return rec.Clone(), nil
}

// FetchByFilter returns the records matching every constraint
func (s *MemoryRecordStore) FetchByFilter(ctx context.Context, collection string, q shared.Query) ([]shared.Record, error) {
	cs, err := SchemaFor(collection)
	if err != nil {
		return nil, err
	}
	if err := checkQuery(cs, q, s.inLimit); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]shared.Record, 0, len(s.collections[collection]))
	for _, rec := range s.collections[collection] {
		if matchesAll(rec, q.Constraints) {
			out = append(out, rec.Clone())
		}
	}
	s.mu.RUnlock()

	sortRecords(out, q.OrderBy, cs)
	return out, nil
}

// Create inserts a record with a generated id and returns the id
func (s *MemoryRecordStore) Create(ctx context.Context, collection string, data shared.Record) (string, error) {
	cs, err := SchemaFor(collection)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rec, err := s.normalise(cs, data)
	if err != nil {
		return "", err
	}
	id := s.newID()
	rec[shared.FieldID] = id
	now := s.now()
	if !rec.Has(shared.FieldCreatedAt) {
		rec[shared.FieldCreatedAt] = now
	}
	if !rec.Has(shared.FieldUpdatedAt) {
		rec[shared.FieldUpdatedAt] = now
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.table(collection)[id] = rec
	return id, nil
}

// Update overwrites the given fields of an existing record
func (s *MemoryRecordStore) Update(ctx context.Context, collection, id string, data shared.Record) error {
	cs, err := SchemaFor(collection)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	patch, err := s.normalise(cs, data)
	if err != nil {
		return err
	}
	delete(patch, shared.FieldCreatedAt)
	if !patch.Has(shared.FieldUpdatedAt) {
		patch[shared.FieldUpdatedAt] = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.collections[collection][id]
	if !ok {
		return shared.NewNotFoundError(collection, id)
	}
	for k, v := range patch {
		rec[k] = v
	}
	return nil
}

// Delete removes a record
func (s *MemoryRecordStore) Delete(ctx context.Context, collection, id string) error {
	if _, err := SchemaFor(collection); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[collection][id]; !ok {
		return shared.NewNotFoundError(collection, id)
	}
	delete(s.collections[collection], id)
	return nil
}

func (s *MemoryRecordStore) table(collection string) map[string]shared.Record {
	t, ok := s.collections[collection]
	if !ok {
		t = make(map[string]shared.Record)
		s.collections[collection] = t
	}
	return t
}

func (s *MemoryRecordStore) normalise(cs *CollectionSchema, data shared.Record) (shared.Record, error) {
	rec := make(shared.Record, len(data))
	for field, v := range data {
		if field == shared.FieldID {
			continue
		}
		kind, ok := cs.Kind(field)
		if !ok {
			return nil, unknownField(cs.Collection, field)
		}
		if isServerTimestamp(v) {
			rec[field] = s.now()
			continue
		}
		converted, err := writeValue(field, kind, v)
		if err != nil {
			return nil, err
		}
		rec[field] = readValue(kind, stored(converted))
	}
	return rec, nil
}

// stored returns the value as it would come back from a driver
func stored(v any) any {
	if valuer, ok := v.(driver.Valuer); ok {
		out, err := valuer.Value()
		if err != nil {
			return nil
		}
		return out
	}
	return v
}

func sortRecords(recs []shared.Record, order []shared.OrderBy, cs *CollectionSchema) {
	if len(order) == 0 {
		sort.SliceStable(recs, func(i, j int) bool {
			return recs[i].ID() < recs[j].ID()
		})
		return
	}
	allowed := cs.SortFields()
	sort.SliceStable(recs, func(i, j int) bool {
		for _, o := range order {
			field := ValidateSortField(o.Field, allowed, "")
			if field == "" {
				continue
			}
			c := compareValues(recs[i][field], recs[j][field])
			if c == 0 {
				continue
			}
			if ValidateSortOrder(string(o.Direction)) == string(shared.SortDesc) {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// compareValues orders nil first, then by natural order of the value type
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch x := a.(type) {
	case int64:
		if y, ok := b.(int64); ok {
			return cmpOrdered(x, y)
		}
	case float64:
		if y, ok := b.(float64); ok {
			return cmpOrdered(x, y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			return cmpOrdered(boolRank(x), boolRank(y))
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	}
	return cmpOrdered(fmt.Sprint(a), fmt.Sprint(b))
}

func cmpOrdered[T int64 | float64 | int | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}
