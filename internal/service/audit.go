package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/iliyamo/meeting-room-reservation/internal/metrics"
	"github.com/iliyamo/meeting-room-reservation/internal/model"
	"github.com/iliyamo/meeting-room-reservation/internal/service/ports"
)

const defaultAuditTimeout = 3 * time.Second

// AuditRecorder appends history entries on behalf of the service.  A
// failed write never reaches the caller: the entry is handed to the
// outbox for a later retry, or logged and dropped when that fails too.
type AuditRecorder struct {
	store   ports.HistoryStore
	outbox  ports.AuditOutbox // optional
	timeout time.Duration
	log     *slog.Logger
}

// NewAuditRecorder builds a recorder.  outbox may be nil.  A zero
// timeout selects the default of three seconds.
func NewAuditRecorder(store ports.HistoryStore, outbox ports.AuditOutbox, timeout time.Duration, log *slog.Logger) *AuditRecorder {
	if store == nil {
		panic("audit recorder requires a history store")
	}
	if timeout <= 0 {
		timeout = defaultAuditTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &AuditRecorder{store: store, outbox: outbox, timeout: timeout, log: log}
}

// Record persists e.  The write runs under its own deadline detached
// from ctx, so a client hanging up after the mutation committed does not
// lose the entry.
func (a *AuditRecorder) Record(ctx context.Context, e model.HistoryEntry) {
	base := context.WithoutCancel(ctx)

	storeCtx, cancel := context.WithTimeout(base, a.timeout)
	err := a.store.AppendHistory(storeCtx, &e)
	cancel()
	if err == nil {
		return
	}

	metrics.IncAuditFailure("store")
	attrs := []any{
		slog.String("event_id", e.EventID),
		slog.Uint64("reservation_id", e.ReservationID),
		slog.String("action", string(e.Action)),
	}
	a.log.Warn("audit write failed", append(attrs, slog.Any("error", err))...)

	if a.outbox == nil {
		a.log.Error("audit entry dropped: no outbox configured", attrs...)
		return
	}

	outCtx, cancel := context.WithTimeout(base, a.timeout)
	defer cancel()
	if err := a.outbox.EnqueueHistory(outCtx, e); err != nil {
		metrics.IncAuditFailure("outbox")
		a.log.Error("audit entry dropped", append(attrs, slog.Any("error", err))...)
		return
	}
	a.log.Info("audit entry queued for retry", attrs...)
}
