package contacts

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"klaviyo-sync/core/klaviyo"
	"klaviyo-sync/core/logger"
	"klaviyo-sync/core/reconcile"
)

// ErrUnsupportedStream is returned for streams that do not carry contacts.
var ErrUnsupportedStream = errors.New("contacts: unsupported stream")

// Processor reconciles a single record.
type Processor interface {
	Process(ctx context.Context, rec reconcile.Record) reconcile.Result
}

// Service routes contact records to the reconciliation engine and journals
// the outcome.
type Service struct {
	engine  Processor
	journal *Journal
	state   *klaviyo.SyncState
	logger  *zap.Logger
}

// NewService creates a service. journal may be nil.
func NewService(engine Processor, journal *Journal, state *klaviyo.SyncState, log *zap.Logger) *Service {
	return &Service{
		engine:  engine,
		journal: journal,
		state:   state,
		logger:  logger.OrNop(log),
	}
}

// Process reconciles rec if stream is a contact stream. Record failures are in
// the Result; the error is reserved for unsupported streams.
func (s *Service) Process(ctx context.Context, stream string, rec reconcile.Record) (reconcile.Result, error) {
	if !IsContactStream(stream) {
		return reconcile.Result{}, fmt.Errorf("%w: %q", ErrUnsupportedStream, stream)
	}

	res := s.engine.Process(ctx, rec)

	if err := s.journal.Record(ctx, stream, res); err != nil {
		s.logger.Warn("Failed to journal result", zap.Error(err))
	}
	return res, nil
}

// State returns a copy of the shared sync state.
func (s *Service) State() map[string]string {
	if s.state == nil {
		return map[string]string{}
	}
	return s.state.Snapshot()
}
