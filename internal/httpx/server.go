package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/errandops/fulfillment/internal/errs"
	"github.com/errandops/fulfillment/internal/events"
	"github.com/errandops/fulfillment/internal/kafka"
)

func NewRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// EventPublisher is the fire-and-forget side of kafka.Producer.
type EventPublisher interface {
	Publish(topic string, key, value []byte, headers ...kafkago.Header)
}

// publish wraps a payload in the event envelope. Called only after the
// mutation committed; a lost event never fails the request.
func publish(p EventPublisher, service, topic, eventType, traceID string, entityID int64, payload any) {
	if p == nil {
		return
	}
	ev := events.Envelope{
		EventID:       newEventID(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      service,
		TraceID:       traceID,
		CorrelationID: string(events.PartitionKey(entityID)),
		Payload:       kafka.MustMarshal(payload),
	}
	p.Publish(topic, events.PartitionKey(entityID), kafka.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

// decode reads the JSON body into v and runs struct validation. Missing or
// malformed fields surface as Validation before anything is touched.
func decode(r *http.Request, validate *validator.Validate, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errs.Validation("invalid json")
	}
	if err := validate.Struct(v); err != nil {
		return errs.Validation("%s", err.Error())
	}
	return nil
}

func newEventID() string { return uuid.NewString() }

func parseID(s, name string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.Validation("invalid %s", name)
	}
	return id, nil
}
