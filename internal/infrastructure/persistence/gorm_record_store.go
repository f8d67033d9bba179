package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/swimteam/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRecordStore implements shared.RecordStore on top of GORM.
// Records are read as column maps and normalised using the collection schema.
type GormRecordStore struct {
	db      *gorm.DB
	inLimit int
	newID   func() string
	now     func() time.Time
}

// GormRecordStoreOption configures a GormRecordStore
type GormRecordStoreOption func(*GormRecordStore)

// WithGormInLimit overrides the largest id list one inclusion predicate may carry
func WithGormInLimit(limit int) GormRecordStoreOption {
	return func(s *GormRecordStore) {
		if limit > 0 {
			s.inLimit = limit
		}
	}
}

// WithGormIDGenerator overrides record id generation
func WithGormIDGenerator(fn func() string) GormRecordStoreOption {
	return func(s *GormRecordStore) {
		s.newID = fn
	}
}

// WithGormClock overrides the clock used for created_at and updated_at
func WithGormClock(fn func() time.Time) GormRecordStoreOption {
	return func(s *GormRecordStore) {
		s.now = fn
	}
}

// NewGormRecordStore creates a new GORM-backed record store
func NewGormRecordStore(db *gorm.DB, opts ...GormRecordStoreOption) *GormRecordStore {
	s := &GormRecordStore{
		db:      db,
		inLimit: shared.DefaultInQueryLimit,
		newID:   uuid.NewString,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ shared.RecordStore = (*GormRecordStore)(nil)

// FetchByID loads one record; ErrNotFound when it does not exist
func (s *GormRecordStore) FetchByID(ctx context.Context, collection, id string) (shared.Record, error) {
	cs, err := SchemaFor(collection)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, shared.NewNotFoundError(collection, id)
	}

	var rows []map[string]any
	if err := s.db.WithContext(ctx).
		Table(cs.Table).
		Where(clause.Eq{Column: clause.Column{Name: shared.FieldID}, Value: id}).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("fetch %s/%s: %w", collection, id, err)
	}
	if len(rows) == 0 {
		return nil, shared.NewNotFoundError(collection, id)
	}
	return toRecord(cs, rows[0]), nil
}

// FetchByFilter returns the records matching every constraint
func (s *GormRecordStore) FetchByFilter(ctx context.Context, collection string, q shared.Query) ([]shared.Record, error) {
	cs, err := SchemaFor(collection)
	if err != nil {
		return nil, err
	}
	if err := checkQuery(cs, q, s.inLimit); err != nil {
		return nil, err
	}

	tx := s.db.WithContext(ctx).Table(cs.Table)
	var inMemory []shared.Constraint
	for _, c := range q.Constraints {
		if kind, _ := cs.Kind(c.Field); kind == KindList {
			// the LIKE narrows on the stored JSON text; the exact
			// element match still runs on the decoded rows
			expr, ok, err := listContains(c)
			if err != nil {
				return nil, err
			}
			if !ok {
				return []shared.Record{}, nil
			}
			tx = tx.Where(expr)
			inMemory = append(inMemory, c)
			continue
		}
		col := clause.Column{Name: c.Field}
		switch c.Op {
		case shared.OpEqual:
			v, err := writeValue(c.Field, mustKind(cs, c.Field), c.Value)
			if err != nil {
				return nil, err
			}
			tx = tx.Where(clause.Eq{Column: col, Value: v})
		case shared.OpIn:
			if len(c.Values) == 0 {
				return []shared.Record{}, nil
			}
			values := make([]any, len(c.Values))
			for i, v := range c.Values {
				values[i] = v
			}
			tx = tx.Where(clause.IN{Column: col, Values: values})
		}
	}
	for _, o := range q.OrderBy {
		field := ValidateSortField(o.Field, cs.SortFields(), "")
		if field == "" {
			continue
		}
		tx = tx.Order(clause.OrderByColumn{
			Column: clause.Column{Name: field},
			Desc:   ValidateSortOrder(string(o.Direction)) == string(shared.SortDesc),
		})
	}

	var rows []map[string]any
	if err := tx.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}

	out := make([]shared.Record, 0, len(rows))
	for _, row := range rows {
		rec := toRecord(cs, row)
		if matchesAll(rec, inMemory) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Create inserts a record with a generated id and returns the id
func (s *GormRecordStore) Create(ctx context.Context, collection string, data shared.Record) (string, error) {
	cs, err := SchemaFor(collection)
	if err != nil {
		return "", err
	}
	values, err := s.columnValues(cs, data)
	if err != nil {
		return "", err
	}
	id := s.newID()
	values[shared.FieldID] = id
	now := s.now()
	if _, ok := values[shared.FieldCreatedAt]; !ok {
		values[shared.FieldCreatedAt] = now
	}
	if _, ok := values[shared.FieldUpdatedAt]; !ok {
		values[shared.FieldUpdatedAt] = now
	}

	if err := s.db.WithContext(ctx).Model(cs.newModel()).Create(values).Error; err != nil {
		return "", fmt.Errorf("create %s: %w", collection, err)
	}
	return id, nil
}

// Update overwrites the given fields of an existing record
func (s *GormRecordStore) Update(ctx context.Context, collection, id string, data shared.Record) error {
	cs, err := SchemaFor(collection)
	if err != nil {
		return err
	}
	values, err := s.columnValues(cs, data)
	if err != nil {
		return err
	}
	if _, ok := values[shared.FieldUpdatedAt]; !ok {
		values[shared.FieldUpdatedAt] = s.now()
	}
	delete(values, shared.FieldCreatedAt)

	result := s.db.WithContext(ctx).
		Model(cs.newModel()).
		Where(clause.Eq{Column: clause.Column{Name: shared.FieldID}, Value: id}).
		Updates(values)
	if result.Error != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError(collection, id)
	}
	return nil
}

// Delete removes a record
func (s *GormRecordStore) Delete(ctx context.Context, collection, id string) error {
	cs, err := SchemaFor(collection)
	if err != nil {
		return err
	}
	result := s.db.WithContext(ctx).
		Where(clause.Eq{Column: clause.Column{Name: shared.FieldID}, Value: id}).
		Delete(cs.newModel())
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return shared.NewNotFoundError(collection, id)
		}
		return fmt.Errorf("delete %s/%s: %w", collection, id, result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError(collection, id)
	}
	return nil
}

// columnValues validates record fields against the schema and converts them
func (s *GormRecordStore) columnValues(cs *CollectionSchema, data shared.Record) (map[string]any, error) {
	values := make(map[string]any, len(data))
	for field, v := range data {
		if field == shared.FieldID {
			continue
		}
		kind, ok := cs.Kind(field)
		if !ok {
			return nil, unknownField(cs.Collection, field)
		}
		if isServerTimestamp(v) {
			values[field] = gorm.Expr("CURRENT_TIMESTAMP")
			continue
		}
		converted, err := writeValue(field, kind, v)
		if err != nil {
			return nil, err
		}
		values[field] = converted
	}
	return values, nil
}

// checkQuery enforces the field whitelist and the inclusion-query limits
func checkQuery(cs *CollectionSchema, q shared.Query, inLimit int) error {
	ins := q.InConstraints()
	if len(ins) > 1 {
		return shared.NewDomainError(shared.CodeInvalidInput, "a query may carry at most one inclusion constraint")
	}
	for _, c := range ins {
		if len(c.Values) > inLimit {
			return shared.NewDomainError(shared.CodeInvalidInput,
				fmt.Sprintf("inclusion constraint on %s has %d values, limit is %d", c.Field, len(c.Values), inLimit))
		}
	}
	for _, c := range q.Constraints {
		if _, ok := cs.Kind(c.Field); !ok {
			return unknownField(cs.Collection, c.Field)
		}
		if c.Op != shared.OpEqual && c.Op != shared.OpIn {
			return shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("unsupported operator %q", c.Op))
		}
	}
	return nil
}

func mustKind(cs *CollectionSchema, field string) FieldKind {
	k, _ := cs.Kind(field)
	return k
}

func matchesAll(rec shared.Record, constraints []shared.Constraint) bool {
	for _, c := range constraints {
		if !c.Matches(rec) {
			return false
		}
	}
	return true
}

func toRecord(cs *CollectionSchema, row map[string]any) shared.Record {
	rec := make(shared.Record, len(row))
	for col, raw := range row {
		kind, ok := cs.Kind(col)
		if !ok {
			kind = KindString
		}
		rec[col] = readValue(kind, raw)
	}
	return rec
}
