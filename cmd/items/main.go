package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/itemstore/services/items/internal/config"
	"github.com/itemstore/services/items/internal/db"
	"github.com/itemstore/services/items/internal/events"
	"github.com/itemstore/services/items/internal/metrics"
	"github.com/itemstore/services/items/internal/repo"
	"github.com/itemstore/services/items/internal/service"
	"github.com/itemstore/services/items/pkg/logger"
	"go.uber.org/zap"
)

const usage = `usage: items <command> [flags]

commands:
  migrate                                   create or update the items table
  create -name N -description D             store a new item
  get ID                                    print an item
  list [-page P] [-page-size S] [-name Q]   print a page of items
  update ID [-name N] [-description D]      change fields of an item
  delete ID                                 delete an item
  serve                                     run the health and metrics server`

var errUsage = errors.New(usage)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log := logger.NewLogger(cfg.ServiceName, cfg.LogLevel)

	err := run(context.Background(), cfg, log, os.Args[1:], os.Stdout)
	log.Sync()
	if err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
		} else {
			log.Error("Command failed", zap.Error(err))
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	command, args := args[0], args[1:]

	switch command {
	case "serve":
		return serve(cfg, log)
	case "migrate":
		return withApp(cfg, log, false, func(a *app) error {
			if err := db.RunMigrations(a.db); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info("Migrations applied")
			return nil
		})
	case "get", "list":
		return withApp(cfg, log, false, func(a *app) error {
			return runItemCommand(ctx, a, command, args, out)
		})
	case "create", "update", "delete":
		ctx = events.WithCorrelationID(ctx, uuid.New().String())
		return withApp(cfg, log, true, func(a *app) error {
			return runItemCommand(ctx, a, command, args, out)
		})
	}
	return errUsage
}

// app bundles the dependencies the commands share
type app struct {
	db        *db.DB
	items     *service.ItemService
	publisher publisherCloser
	metrics   *metrics.Metrics
}

type publisherCloser interface {
	service.Publisher
	IsHealthy() bool
	Close() error
}

func openApp(cfg *config.Config, log *zap.Logger, withEvents bool) (*app, error) {
	database, err := db.Connect(cfg.DBDriver, cfg.DBDSN, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	var publisher publisherCloser = events.NopPublisher{}
	if withEvents && cfg.EventsEnabled {
		p, err := events.NewPublisher(cfg.RabbitMQURL, log)
		if err != nil {
			database.Close()
			return nil, err
		}
		publisher = p
	}

	m := metrics.New()
	itemRepo := repo.NewItemRepository(database, log)
	m.RegisterStoredItems(itemRepo.CountItems)

	return &app{
		db:        database,
		items:     service.NewItemService(itemRepo, publisher, m, log),
		publisher: publisher,
		metrics:   m,
	}, nil
}

// Close waits for pending events and releases connections
func (a *app) Close() {
	a.items.Wait()
	a.publisher.Close()
	a.db.Close()
}

func withApp(cfg *config.Config, log *zap.Logger, withEvents bool, fn func(a *app) error) error {
	a, err := openApp(cfg, log, withEvents)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
