package health

import (
	"errors"
	"net/http"

	"go.uber.org/zap"
)

var (
	errDatabase  = errors.New("database connection failed")
	errPublisher = errors.New("rabbitmq connection failed")
)

// Pinger is satisfied by *db.DB
type Pinger interface {
	Ping() error
}

// PublisherHealth is satisfied by events.Publisher and events.NopPublisher
type PublisherHealth interface {
	IsHealthy() bool
}

// Checker verifies the dependencies the service needs to operate
type Checker struct {
	db        Pinger
	publisher PublisherHealth
	log       *zap.Logger
}

// NewChecker creates a new dependency checker
func NewChecker(database Pinger, publisher PublisherHealth, log *zap.Logger) *Checker {
	return &Checker{
		db:        database,
		publisher: publisher,
		log:       log,
	}
}

// Check returns nil when the database and the event publisher are reachable
func (c *Checker) Check() error {
	if err := c.db.Ping(); err != nil {
		c.log.Error("Database health check failed", zap.Error(err))
		return errDatabase
	}

	if !c.publisher.IsHealthy() {
		c.log.Error("RabbitMQ health check failed")
		return errPublisher
	}

	return nil
}

// LivenessHandler serves /healthz
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := c.Check(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("unhealthy: " + err.Error()))
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	}
}

// ReadinessHandler serves /readyz
func ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
