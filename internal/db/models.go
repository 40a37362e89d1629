package db

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"gorm.io/gorm"
)

// ItemsTable is the table backing the Item model
const ItemsTable = "items"

// Column bounds, counted in characters
const (
	MaxNameLength        = 50
	MaxDescriptionLength = 50
)

// ErrFieldTooLong is matched by every FieldError
var ErrFieldTooLong = errors.New("field exceeds maximum length")

// FieldError reports a text field longer than its declared bound
type FieldError struct {
	Field  string
	Length int
	Max    int
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s is %d characters long, maximum is %d", e.Field, e.Length, e.Max)
}

func (e *FieldError) Unwrap() error {
	return ErrFieldTooLong
}

// Item represents a named, described record in the items table
type Item struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"type:varchar(50);not null;index:idx_items_name" json:"name"`
	Description string `gorm:"type:varchar(50);not null" json:"description"`
}

// TableName specifies the table name for Item model
func (Item) TableName() string {
	return ItemsTable
}

// IsPersisted reports whether storage has assigned an id to the item
func (i *Item) IsPersisted() bool {
	return i.ID != 0
}

// Validate checks the declared length bounds
func (i *Item) Validate() error {
	if err := checkLength("name", i.Name, MaxNameLength); err != nil {
		return err
	}
	return checkLength("description", i.Description, MaxDescriptionLength)
}

// BeforeSave hook rejects overlength fields on create and save
func (i *Item) BeforeSave(tx *gorm.DB) error {
	return i.Validate()
}

// ValidateField checks a single named field value against its bound
func ValidateField(field, value string) error {
	switch field {
	case "name":
		return checkLength(field, value, MaxNameLength)
	case "description":
		return checkLength(field, value, MaxDescriptionLength)
	}
	return nil
}

func checkLength(field, value string, max int) error {
	if n := utf8.RuneCountInString(value); n > max {
		return &FieldError{Field: field, Length: n, Max: max}
	}
	return nil
}
