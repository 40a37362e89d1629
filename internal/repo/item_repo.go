package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/itemstore/services/items/internal/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrItemNotFound is returned when no item has the requested id
	ErrItemNotFound = errors.New("item not found")

	// ErrIDAssigned is returned when creating an item that already carries an id
	ErrIDAssigned = errors.New("item id is assigned by storage")

	// ErrUnknownField is returned for update field names the item does not have
	ErrUnknownField = errors.New("unknown item field")
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// ItemFields lists the mutable fields of an item
var ItemFields = []string{"name", "description"}

// ItemRepository handles item persistence
type ItemRepository struct {
	db  *db.DB
	log *zap.Logger
}

// NewItemRepository creates a new item repository
func NewItemRepository(database *db.DB, logger *zap.Logger) *ItemRepository {
	return &ItemRepository{
		db:  database,
		log: logger,
	}
}

// NormalizePage clamps pagination input to sane values
func NormalizePage(page, pageSize int32) (int32, int32) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}
	return page, pageSize
}

// ListItems returns a page of items ordered by id, optionally filtered by name
func (r *ItemRepository) ListItems(ctx context.Context, page, pageSize int32, nameContains string) ([]*db.Item, int64, error) {
	page, pageSize = NormalizePage(page, pageSize)

	query := r.db.WithContext(ctx).Model(&db.Item{})
	if nameContains != "" {
		pattern := "%" + escapeLike(r.foldCase(nameContains)) + "%"
		query = query.Where(`LOWER(name) LIKE ? ESCAPE '\'`, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		r.log.Error("Failed to count items", zap.Error(err))
		return nil, 0, err
	}

	offset := int64(page-1) * int64(pageSize)
	var items []*db.Item
	if err := query.Offset(int(offset)).Limit(int(pageSize)).Order("id ASC").Find(&items).Error; err != nil {
		r.log.Error("Failed to list items", zap.Error(err))
		return nil, 0, err
	}

	return items, total, nil
}

// GetItem retrieves an item by id
func (r *ItemRepository) GetItem(ctx context.Context, id int64) (*db.Item, error) {
	var item db.Item
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		r.log.Error("Failed to get item", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	return &item, nil
}

// CreateItem inserts a new item, storage assigns its id
func (r *ItemRepository) CreateItem(ctx context.Context, item *db.Item) error {
	if item.IsPersisted() {
		return ErrIDAssigned
	}

	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		if !errors.Is(err, db.ErrFieldTooLong) {
			r.log.Error("Failed to create item", zap.String("name", item.Name), zap.Error(err))
		}
		return err
	}

	r.log.Info("Item created", zap.Int64("id", item.ID), zap.String("name", item.Name))
	return nil
}

// SaveItem creates an unsaved item or writes the in-memory fields of a persisted one
func (r *ItemRepository) SaveItem(ctx context.Context, item *db.Item) ([]string, error) {
	if !item.IsPersisted() {
		return nil, r.CreateItem(ctx, item)
	}
	return r.UpdateItem(ctx, item, nil)
}

// UpdateItem writes the changed fields among the given ones, all fields when none are given
func (r *ItemRepository) UpdateItem(ctx context.Context, item *db.Item, fields []string) ([]string, error) {
	fields, err := uniqueFields(fields)
	if err != nil {
		return nil, err
	}

	existing, err := r.GetItem(ctx, item.ID)
	if err != nil {
		return nil, err
	}

	fieldsChanged := getChangedFields(existing, item, fields)
	if len(fieldsChanged) == 0 {
		r.log.Debug("No fields changed", zap.Int64("id", item.ID))
		return fieldsChanged, nil
	}

	// BeforeSave only sees the empty Model(&db.Item{}) here, so the bound is checked on the values
	updates := make(map[string]interface{}, len(fieldsChanged))
	for _, field := range fieldsChanged {
		value := fieldValue(item, field)
		if err := db.ValidateField(field, value); err != nil {
			return nil, err
		}
		updates[field] = value
	}

	result := r.db.WithContext(ctx).Model(&db.Item{}).Where("id = ?", item.ID).Updates(updates)
	if result.Error != nil {
		r.log.Error("Failed to update item", zap.Int64("id", item.ID), zap.Error(result.Error))
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrItemNotFound
	}

	r.log.Info("Item updated", zap.Int64("id", item.ID), zap.Strings("fields_changed", fieldsChanged))
	return fieldsChanged, nil
}

// DeleteItem removes an item
func (r *ItemRepository) DeleteItem(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&db.Item{})
	if result.Error != nil {
		r.log.Error("Failed to delete item", zap.Int64("id", id), zap.Error(result.Error))
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrItemNotFound
	}

	r.log.Info("Item deleted", zap.Int64("id", id))
	return nil
}

// CountItems returns the number of stored items
func (r *ItemRepository) CountItems(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&db.Item{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return total, nil
}

// uniqueFields rejects unknown field names and drops repeats, keeping first-seen order
func uniqueFields(fields []string) ([]string, error) {
	var unique []string
	for _, field := range fields {
		if !isItemField(field) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownField, field)
		}
		if !containsField(unique, field) {
			unique = append(unique, field)
		}
	}
	return unique, nil
}

func containsField(fields []string, field string) bool {
	for _, f := range fields {
		if f == field {
			return true
		}
	}
	return false
}

func isItemField(field string) bool {
	for _, f := range ItemFields {
		if f == field {
			return true
		}
	}
	return false
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// escapeLike makes s match literally inside a LIKE pattern escaped with '\'
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// foldCase lowercases the filter the same way the database's LOWER does.
// SQLite's LOWER only folds ASCII letters.
func (r *ItemRepository) foldCase(s string) string {
	if r.db.Dialector.Name() != db.DriverSQLite {
		return strings.ToLower(s)
	}
	return strings.Map(func(c rune) rune {
		if 'A' <= c && c <= 'Z' {
			return c + ('a' - 'A')
		}
		return c
	}, s)
}

func fieldValue(item *db.Item, field string) string {
	switch field {
	case "name":
		return item.Name
	case "description":
		return item.Description
	}
	return ""
}

// getChangedFields compares old and new item and returns list of changed fields
func getChangedFields(old, new *db.Item, fields []string) []string {
	checkFields := fields
	if len(checkFields) == 0 {
		checkFields = ItemFields
	}

	var changed []string
	for _, field := range checkFields {
		if fieldValue(old, field) != fieldValue(new, field) {
			changed = append(changed, field)
		}
	}
	return changed
}
