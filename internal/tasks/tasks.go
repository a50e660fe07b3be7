// Package tasks defines the background jobs of the admin backend and their
// asynq handlers.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-admin/internal/common"
)

// TypeInvoiceRender renders an invoice PDF and mails it to the customer.
const TypeInvoiceRender = "invoice:render"

const (
	renderMaxRetry = 10
	renderTimeout  = 2 * time.Minute
)

// InvoiceRenderPayload is the body of a TypeInvoiceRender task.
type InvoiceRenderPayload struct {
	InvoiceID string `json:"invoiceId"`
}

// NewInvoiceRenderTask builds a render task for an invoice. The task id is
// derived from the invoice so repeated enqueues collapse into one.
func NewInvoiceRenderTask(invoiceID string) (*asynq.Task, error) {
	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return nil, errors.New("tasks: invoice id is required")
	}
	payload, err := json.Marshal(InvoiceRenderPayload{InvoiceID: invoiceID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeInvoiceRender, payload,
		asynq.TaskID(TypeInvoiceRender+":"+invoiceID),
		asynq.MaxRetry(renderMaxRetry),
		asynq.Timeout(renderTimeout),
	), nil
}

// Enqueuer publishes invoice tasks through an asynq client.
type Enqueuer struct {
	Client *asynq.Client
	Queue  string
}

// EnqueueRender schedules rendering of invoiceID. A render already queued for
// the same invoice is not an error.
func (e Enqueuer) EnqueueRender(ctx context.Context, invoiceID string) error {
	if e.Client == nil {
		return errors.New("tasks: asynq client not configured")
	}
	task, err := NewInvoiceRenderTask(invoiceID)
	if err != nil {
		return err
	}
	var opts []asynq.Option
	if e.Queue != "" {
		opts = append(opts, asynq.Queue(e.Queue))
	}
	info, err := e.Client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		return fmt.Errorf("enqueue %s: %w", TypeInvoiceRender, err)
	}
	zerolog.Ctx(ctx).Debug().Str("task_id", info.ID).Str("queue", info.Queue).Msg("invoice render enqueued")
	return nil
}

// Deliverer renders and sends a persisted invoice.
type Deliverer interface {
	Deliver(ctx context.Context, invoiceID string) error
}

// RenderHandler processes TypeInvoiceRender tasks.
type RenderHandler struct {
	Invoices Deliverer
}

// ProcessTask implements asynq.Handler. Malformed payloads and client errors
// such as a missing invoice are not retried.
func (h RenderHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload InvoiceRenderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	if strings.TrimSpace(payload.InvoiceID) == "" {
		return fmt.Errorf("%s payload without invoice id: %w", t.Type(), asynq.SkipRetry)
	}
	if err := h.Invoices.Deliver(ctx, payload.InvoiceID); err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) && appErr.HTTPStatus < http.StatusInternalServerError {
			return fmt.Errorf("invoice %s: %v: %w", payload.InvoiceID, err, asynq.SkipRetry)
		}
		return err
	}
	return nil
}

// NewServeMux routes every task type to its handler.
func NewServeMux(logger zerolog.Logger, render RenderHandler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Use(Logging(logger))
	mux.Handle(TypeInvoiceRender, render)
	return mux
}

// Logging attaches logger to the task context and logs each task outcome.
func Logging(logger zerolog.Logger) asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
			start := time.Now()
			taskID, _ := asynq.GetTaskID(ctx)
			retry, _ := asynq.GetRetryCount(ctx)
			l := logger.With().Str("task_type", t.Type()).Str("task_id", taskID).Int("retry", retry).Logger()
			ctx = l.WithContext(ctx)

			err := next.ProcessTask(ctx, t)
			event := l.Info()
			if err != nil {
				event = l.Error().Err(err)
				if errors.Is(err, asynq.SkipRetry) {
					event = l.Warn().Err(err)
				}
			}
			event.Dur("duration", time.Since(start)).Msg("task processed")
			return err
		})
	}
}
