package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"klaviyo-sync/core/klaviyo"
)

// checkCmd verifies configuration and API access without touching profiles.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify configuration and Klaviyo credentials",
	Long: `Validates the configuration, obtains an authorization header (refreshing
and persisting OAuth tokens if needed) and issues a minimal profiles read.`,
	RunE: runCheck,
}

func init() {
	RootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	rt, err := bootstrap(ctx, bootstrapOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	if p, ok := rt.persist.(*klaviyo.ObjectPersister); ok {
		if err := p.Check(ctx); err != nil {
			return fmt.Errorf("credential storage check failed: %w", err)
		}
	}

	if err := rt.client.Check(ctx); err != nil {
		return fmt.Errorf("klaviyo check failed: %w", err)
	}

	rt.logger.Info("Klaviyo connection OK",
		zap.String("auth_mode", string(rt.store.Current().Mode())),
		zap.String("base_url", rt.cfg.Klaviyo.BaseURL),
	)
	return nil
}
