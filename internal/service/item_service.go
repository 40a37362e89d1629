package service

import (
	"context"
	"sync"
	"time"

	"github.com/itemstore/services/items/internal/db"
	"github.com/itemstore/services/items/internal/events"
	"github.com/itemstore/services/items/internal/metrics"
	"github.com/itemstore/services/items/internal/repo"
	"go.uber.org/zap"
)

const publishTimeout = 10 * time.Second

// Publisher emits item lifecycle events
type Publisher interface {
	PublishItemCreated(ctx context.Context, id int64, name, description string) error
	PublishItemUpdated(ctx context.Context, id int64, fieldsChanged []string, updates map[string]interface{}) error
	PublishItemDeleted(ctx context.Context, id int64) error
}

// ItemService runs item lifecycle operations and announces their effects
type ItemService struct {
	repo      *repo.ItemRepository
	publisher Publisher
	metrics   *metrics.Metrics
	log       *zap.Logger

	inflight sync.WaitGroup
}

// NewItemService creates a new item service
func NewItemService(repository *repo.ItemRepository, publisher Publisher, m *metrics.Metrics, log *zap.Logger) *ItemService {
	return &ItemService{
		repo:      repository,
		publisher: publisher,
		metrics:   m,
		log:       log,
	}
}

// Create stores a new item
func (s *ItemService) Create(ctx context.Context, name, description string) (item *db.Item, err error) {
	defer s.observe("create", time.Now(), &err)

	item = &db.Item{Name: name, Description: description}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, err
	}

	s.publishCreated(ctx, item)
	return item, nil
}

// Get returns the item with the given id
func (s *ItemService) Get(ctx context.Context, id int64) (item *db.Item, err error) {
	defer s.observe("get", time.Now(), &err)

	return s.repo.GetItem(ctx, id)
}

// List returns a page of items and the total number of matches
func (s *ItemService) List(ctx context.Context, page, pageSize int32, nameContains string) (items []*db.Item, total int64, err error) {
	defer s.observe("list", time.Now(), &err)

	return s.repo.ListItems(ctx, page, pageSize, nameContains)
}

// Save persists the in-memory state of item, creating it when unsaved
func (s *ItemService) Save(ctx context.Context, item *db.Item) (fieldsChanged []string, err error) {
	defer s.observe("save", time.Now(), &err)

	created := !item.IsPersisted()
	fieldsChanged, err = s.repo.SaveItem(ctx, item)
	if err != nil {
		return nil, err
	}

	if created {
		s.publishCreated(ctx, item)
	} else {
		s.publishUpdated(ctx, item, fieldsChanged)
	}
	return fieldsChanged, nil
}

// Update writes the given fields of item, all of them when none are given
func (s *ItemService) Update(ctx context.Context, item *db.Item, fields []string) (fieldsChanged []string, err error) {
	defer s.observe("update", time.Now(), &err)

	fieldsChanged, err = s.repo.UpdateItem(ctx, item, fields)
	if err != nil {
		return nil, err
	}

	s.publishUpdated(ctx, item, fieldsChanged)
	return fieldsChanged, nil
}

// Delete removes the item with the given id
func (s *ItemService) Delete(ctx context.Context, id int64) (err error) {
	defer s.observe("delete", time.Now(), &err)

	if err := s.repo.DeleteItem(ctx, id); err != nil {
		return err
	}

	s.publish(ctx, events.EventTypeItemDeleted, id, func(ctx context.Context) error {
		return s.publisher.PublishItemDeleted(ctx, id)
	})
	return nil
}

// Wait blocks until every pending event publication has finished
func (s *ItemService) Wait() {
	s.inflight.Wait()
}

func (s *ItemService) publishCreated(ctx context.Context, item *db.Item) {
	id, name, description := item.ID, item.Name, item.Description
	s.publish(ctx, events.EventTypeItemCreated, id, func(ctx context.Context) error {
		return s.publisher.PublishItemCreated(ctx, id, name, description)
	})
}

func (s *ItemService) publishUpdated(ctx context.Context, item *db.Item, fieldsChanged []string) {
	if len(fieldsChanged) == 0 {
		return
	}

	id := item.ID
	updates := buildUpdatePayload(item, fieldsChanged)
	s.publish(ctx, events.EventTypeItemUpdated, id, func(ctx context.Context) error {
		return s.publisher.PublishItemUpdated(ctx, id, fieldsChanged, updates)
	})
}

// publish runs fn in the background, detached from the caller's cancellation
func (s *ItemService) publish(ctx context.Context, eventType string, id int64, fn func(ctx context.Context) error) {
	eventCtx := context.Background()
	if corrID := events.CorrelationID(ctx); corrID != "" {
		eventCtx = events.WithCorrelationID(eventCtx, corrID)
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		eventCtx, cancel := context.WithTimeout(eventCtx, publishTimeout)
		defer cancel()

		err := fn(eventCtx)
		if s.metrics != nil {
			s.metrics.ObserveEvent(eventType, err)
		}
		if err != nil {
			s.log.Error("Failed to publish item event",
				zap.String("event_type", eventType),
				zap.Int64("id", id),
				zap.Error(err),
			)
		}
	}()
}

func (s *ItemService) observe(operation string, start time.Time, err *error) {
	if s.metrics != nil {
		s.metrics.ObserveOperation(operation, start, *err)
	}
}

func buildUpdatePayload(item *db.Item, fieldsChanged []string) map[string]interface{} {
	payload := make(map[string]interface{}, len(fieldsChanged))
	for _, field := range fieldsChanged {
		switch field {
		case "name":
			payload["name"] = item.Name
		case "description":
			payload["description"] = item.Description
		}
	}
	return payload
}
