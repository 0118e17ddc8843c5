package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
)

type reservationCompleter interface {
	CompleteElapsed(ctx context.Context) ([]model.Reservation, error)
}

// Sweeper periodically moves confirmed reservations whose end time has
// passed to completed.
type Sweeper struct {
	service  reservationCompleter
	interval time.Duration
	logger   *slog.Logger
}

func New(service reservationCompleter, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		service:  service,
		interval: interval,
		logger:   logger,
	}
}

// Start blocks until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("sweeper started", slog.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	completed, err := s.service.CompleteElapsed(ctx)
	if err != nil {
		s.logger.Error("failed to complete elapsed reservations", slog.Any("error", err))
		return
	}

	for _, r := range completed {
		s.logger.Info("reservation completed",
			slog.Uint64("reservation_id", r.ID),
			slog.Uint64("room_id", r.RoomID),
			slog.String("date", r.Date.String()),
		)
	}
}
