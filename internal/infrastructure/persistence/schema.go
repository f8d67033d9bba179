package persistence

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/swimteam/backend/internal/domain/shared"
	"github.com/swimteam/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm/schema"
)

// FieldKind is the storage kind of a collection field
type FieldKind string

const (
	KindString FieldKind = "string"
	KindInt    FieldKind = "int"
	KindFloat  FieldKind = "float"
	KindBool   FieldKind = "bool"
	KindList   FieldKind = "list"
	KindTime   FieldKind = "time"
)

// CollectionSchema describes the fields of one collection
type CollectionSchema struct {
	Collection string
	Table      string
	fields     map[string]FieldKind
	newModel   func() any
}

// Kind returns the kind of a field; ok is false for unknown fields
func (s *CollectionSchema) Kind(field string) (FieldKind, bool) {
	k, ok := s.fields[field]
	return k, ok
}

// Fields returns the field names in sorted order
func (s *CollectionSchema) Fields() []string {
	out := make([]string, 0, len(s.fields))
	for f := range s.fields {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// SortFields returns the whitelist of sortable fields. List fields are excluded.
func (s *CollectionSchema) SortFields() map[string]bool {
	out := make(map[string]bool, len(s.fields))
	for f, k := range s.fields {
		if k != KindList {
			out[f] = true
		}
	}
	return out
}

var (
	schemaOnce sync.Once
	schemas    map[string]*CollectionSchema
	schemaErr  error
)

var (
	stringListType = reflect.TypeOf(models.StringList{})
	timeType       = reflect.TypeOf(time.Time{})
)

// SchemaFor returns the schema for a collection name
func SchemaFor(collection string) (*CollectionSchema, error) {
	schemaOnce.Do(func() {
		schemas, schemaErr = buildSchemas()
	})
	if schemaErr != nil {
		return nil, schemaErr
	}
	s, ok := schemas[collection]
	if !ok {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("unknown collection: %s", collection))
	}
	return s, nil
}

func buildSchemas() (map[string]*CollectionSchema, error) {
	cache := &sync.Map{}
	out := make(map[string]*CollectionSchema)
	for _, m := range models.All() {
		parsed, err := schema.Parse(m, cache, schema.NamingStrategy{})
		if err != nil {
			return nil, fmt.Errorf("parse model %T: %w", m, err)
		}
		cs := &CollectionSchema{
			Collection: parsed.Table,
			Table:      parsed.Table,
			fields:     make(map[string]FieldKind, len(parsed.Fields)),
			newModel:   modelFactory(m),
		}
		for _, f := range parsed.Fields {
			if f.DBName == "" {
				continue
			}
			cs.fields[f.DBName] = kindOf(f.FieldType)
		}
		out[cs.Collection] = cs
	}
	return out, nil
}

func modelFactory(m any) func() any {
	t := reflect.TypeOf(m).Elem()
	return func() any {
		return reflect.New(t).Interface()
	}
}

func kindOf(t reflect.Type) FieldKind {
	if t == stringListType {
		return KindList
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == timeType {
		return KindTime
	}
	switch t.Kind() {
	case reflect.Bool:
		return KindBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindInt
	case reflect.Float32, reflect.Float64:
		return KindFloat
	default:
		return KindString
	}
}
