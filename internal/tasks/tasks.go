// Package tasks carries catalog change notifications to the worker, which
// invalidates cached quotes by bumping the offer-set version.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pricing/internal/catalog"
	"github.com/noah-isme/backend-pricing/internal/obs"
)

// TypeOffersChanged is the asynq task type for catalog offer changes.
const TypeOffersChanged = "offers:changed"

// Queue is the asynq queue pricing tasks are placed on.
const Queue = "pricing"

// OffersChangedPayload describes what changed.
type OffersChangedPayload struct {
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// NewOffersChangedTask builds an offers:changed task.
func NewOffersChangedTask(reason string, at time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(OffersChangedPayload{Reason: reason, At: at.UTC()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeOffersChanged, payload, asynq.Queue(Queue), asynq.MaxRetry(5), asynq.Timeout(10*time.Second)), nil
}

// Enqueuer publishes tasks through an asynq client.
type Enqueuer struct {
	Client *asynq.Client
	Now    func() time.Time
}

// OffersChanged enqueues an offers:changed task.
func (e Enqueuer) OffersChanged(ctx context.Context, reason string) error {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	task, err := NewOffersChangedTask(reason, now())
	if err != nil {
		return err
	}
	if _, err := e.Client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue %s: %w", TypeOffersChanged, err)
	}
	return nil
}

// Bumper advances the offer-set version.
type Bumper interface {
	Bump(ctx context.Context) (int64, error)
}

var _ Bumper = (*catalog.Versioner)(nil)

// Handler processes pricing tasks.
type Handler struct {
	Versions Bumper
	Logger   zerolog.Logger
}

// HandleOffersChanged bumps the offer-set version so stale quotes stop being served.
func (h Handler) HandleOffersChanged(ctx context.Context, t *asynq.Task) error {
	var payload OffersChangedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", TypeOffersChanged, err, asynq.SkipRetry)
	}
	version, err := h.Versions.Bump(ctx)
	if err != nil {
		return fmt.Errorf("bump offer-set version: %w", err)
	}
	obs.ObserveInvalidation()
	h.Logger.Info().
		Str("reason", payload.Reason).
		Time("changed_at", payload.At).
		Int64("version", version).
		Msg("offer set invalidated")
	return nil
}

// NewMux routes task types to h.
func NewMux(h Handler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeOffersChanged, h.HandleOffersChanged)
	return mux
}
