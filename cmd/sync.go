package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"klaviyo-sync/core/config"
	"klaviyo-sync/core/klaviyo"
	"klaviyo-sync/core/reconcile"
	"klaviyo-sync/core/singer"
	"klaviyo-sync/feature/contacts"
)

var (
	// Flags for the sync command
	syncInput   string
	syncWorkers int
	syncDryRun  bool
)

// syncCmd reads Singer messages and reconciles every contact record.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync Singer RECORD messages into Klaviyo profiles",
	Long: `Reads Singer messages (one JSON object per line) from stdin or a file and
reconciles every RECORD of the customers, customer, contacts or contact streams.

Per-record failures are logged and counted; authentication or credential
persistence failures stop the run.

Examples:
  # Pipe a tap into the sync
  tap-shopify | klaviyo-sync sync --config config.json

  # Replay a gzipped capture without writing anything
  klaviyo-sync sync --config config.json --input capture.jsonl.gz --dry-run`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVarP(&syncInput, "input", "i", "-", "Input file (.gz supported); - for stdin")
	syncCmd.Flags().IntVarP(&syncWorkers, "workers", "w", 0, "Records processed concurrently (default from config)")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Search and plan only, no writes")

	RootCmd.AddCommand(syncCmd)
}

// syncSummary counts record outcomes.
type syncSummary struct {
	Processed     atomic.Int64
	Created       atomic.Int64
	Updated       atomic.Int64
	Failed        atomic.Int64
	SubscribeFail atomic.Int64
	Skipped       atomic.Int64
}

func (s *syncSummary) add(res reconcile.Result) {
	s.Processed.Add(1)
	switch {
	case !res.Success:
		s.Failed.Add(1)
	case res.Action == reconcile.ActionCreate:
		s.Created.Add(1)
	case res.Action == reconcile.ActionUpdate:
		s.Updated.Add(1)
	}
	if res.SubscriptionErr != nil {
		s.SubscribeFail.Add(1)
	}
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap(ctx, bootstrapOptions{
		journal: true,
		override: func(cfg *config.Config) {
			if syncWorkers > 0 {
				cfg.Sync.Workers = syncWorkers
			}
			if syncDryRun {
				cfg.Sync.DryRun = true
			}
		},
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	input, err := singer.Open(syncInput)
	if err != nil {
		return err
	}
	defer input.Close()

	svc := contacts.NewService(rt.engine, rt.journal, rt.state, rt.logger)
	summary := &syncSummary{}

	err = processStream(ctx, singer.NewReader(input), svc, rt.cfg.Sync.Workers, summary, rt.logger)

	rt.logger.Info("Sync finished",
		zap.Int64("processed", summary.Processed.Load()),
		zap.Int64("created", summary.Created.Load()),
		zap.Int64("updated", summary.Updated.Load()),
		zap.Int64("failed", summary.Failed.Load()),
		zap.Int64("subscription_failed", summary.SubscribeFail.Load()),
		zap.Int64("skipped", summary.Skipped.Load()),
		zap.Bool("dry_run", rt.cfg.Sync.DryRun),
	)
	if err != nil {
		if body, ok := rt.state.Get(klaviyo.AuthErrorResponseKey); ok {
			rt.logger.Error("Last token refresh response", zap.String(klaviyo.AuthErrorResponseKey, body))
		}
		return err
	}
	if failed := summary.Failed.Load(); failed > 0 {
		return fmt.Errorf("%d of %d records failed", failed, summary.Processed.Load())
	}
	return nil
}

// recordProcessor is the part of contacts.Service the driver needs.
type recordProcessor interface {
	Process(ctx context.Context, stream string, rec reconcile.Record) (reconcile.Result, error)
}

// processStream fans RECORD messages out to at most workers goroutines. It
// stops early on a fatal result and otherwise runs to the end of input.
func processStream(ctx context.Context, reader *singer.Reader, svc recordProcessor, workers int, summary *syncSummary, logg *zap.Logger) error {
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var warned sync.Map

	for gctx.Err() == nil {
		msg, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			_ = g.Wait()
			return fmt.Errorf("failed to read input: %w", err)
		}
		if msg.Type != singer.TypeRecord {
			continue
		}
		if !contacts.IsContactStream(msg.Stream) {
			summary.Skipped.Add(1)
			if _, seen := warned.LoadOrStore(msg.Stream, struct{}{}); !seen {
				logg.Warn("Skipping unsupported stream", zap.String("stream", msg.Stream))
			}
			continue
		}

		stream, rec := msg.Stream, reconcile.Record(msg.Record)
		g.Go(func() error {
			res, err := svc.Process(gctx, stream, rec)
			if err != nil {
				return err
			}
			summary.add(res)
			if res.Err != nil && klaviyo.IsFatal(res.Err) {
				return res.Err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
