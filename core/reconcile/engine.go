package reconcile

import (
	"context"

	"go.uber.org/zap"

	"klaviyo-sync/core/klaviyo"
	"klaviyo-sync/core/logger"
	"klaviyo-sync/core/metrics"
)

// Engine reconciles records against the remote profile store.
// It is safe for concurrent use when its collaborators are.
type Engine struct {
	mapper     Mapper
	api        ProfileAPI
	subscriber Subscriber
	opts       Options
	logger     *zap.Logger
}

// NewEngine creates an engine. A nil subscriber disables list subscriptions.
func NewEngine(mapper Mapper, api ProfileAPI, subscriber Subscriber, opts Options, log *zap.Logger) *Engine {
	return &Engine{
		mapper:     mapper,
		api:        api,
		subscriber: subscriber,
		opts:       opts,
		logger:     logger.OrNop(log),
	}
}

// Process drives one record through
// NEW -> SEARCHING -> {FOUND -> UPDATING, NOT_FOUND -> CREATING} -> DONE | FAILED.
// Failures are returned in the Result; the caller decides whether to go on.
func (e *Engine) Process(ctx context.Context, rec Record) Result {
	res := Result{RecordKey: rec.Key(), State: StateNew, DryRun: e.opts.DryRun}
	log := e.logger.With(zap.String("record", res.RecordKey))

	payload := e.mapper.Map(rec)

	res.State = StateSearching
	action, err := e.Plan(ctx, payload)
	if err != nil {
		return e.fail(log, res, err)
	}
	res.Action = action.Type
	res.ProfileID = action.ProfileID

	if action.Type == ActionUpdate {
		res.State = StateFound
	} else {
		res.State = StateNotFound
	}
	if action.Matches > 1 {
		log.Warn("Multiple profiles match email, using the first",
			zap.Int("matches", action.Matches),
			zap.String("profile_id", action.ProfileID),
		)
	}

	if e.opts.DryRun {
		log.Info("Dry run, skipping write", zap.String("action", string(action.Type)))
		res.State = StateDone
		res.Success = true
		metrics.RecordsProcessed.WithLabelValues("dry_run_"+string(action.Type), "success").Inc()
		return res
	}

	if action.Type == ActionUpdate {
		res.State = StateUpdating
	} else {
		res.State = StateCreating
	}
	profile, err := e.Apply(ctx, action, payload)
	if err != nil {
		return e.fail(log, res, err)
	}

	res.ProfileID = profile.ID
	res.State = StateDone
	res.Success = true
	metrics.RecordsProcessed.WithLabelValues(string(action.Type), "success").Inc()
	log.Debug("Profile written",
		zap.String("action", string(action.Type)),
		zap.String("profile_id", profile.ID),
	)

	status := ParseSubscribeStatus(rec.String("subscribe_status"))
	if e.subscriber != nil && status != SubscribeNone {
		if err := e.subscriber.Apply(ctx, profile.ID, payload, status); err != nil {
			res.SubscriptionErr = err
			log.Error("List subscription failed",
				zap.String("status", status.String()),
				zap.String("profile_id", profile.ID),
				zap.Error(err),
			)
		}
	}

	return res
}

func (e *Engine) fail(log *zap.Logger, res Result, err error) Result {
	action := string(res.Action)
	if action == "" {
		action = "search"
	}
	metrics.RecordsProcessed.WithLabelValues(action, "failure").Inc()
	log.Error("Record failed",
		zap.String("state", string(res.State)),
		zap.Bool("fatal", klaviyo.IsFatal(err)),
		zap.Error(err),
	)
	res.Err = err
	res.State = StateFailed
	res.Success = false
	return res
}
