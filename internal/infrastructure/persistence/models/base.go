package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// BaseModel provides the id and timestamp columns every collection carries
type BaseModel struct {
	ID        string    `gorm:"type:varchar(64);primaryKey"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// StringList is a list of ids stored as a JSON array in a text column
type StringList []string

// Value implements driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (l *StringList) Scan(src any) error {
	list, err := ParseStringList(src)
	if err != nil {
		return err
	}
	*l = list
	return nil
}

// GormDataType declares the column type for migrations
func (StringList) GormDataType() string {
	return "text"
}

// ParseStringList decodes a list column value as returned by a driver
func ParseStringList(src any) (StringList, error) {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return StringList{}, nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	case []string:
		return StringList(append([]string{}, v...)), nil
	default:
		return nil, fmt.Errorf("unsupported list column type %T", src)
	}
	if len(raw) == 0 {
		return StringList{}, nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode list column: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	return StringList(out), nil
}
