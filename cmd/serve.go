package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"klaviyo-sync/core/loader"
	"klaviyo-sync/core/logger"
	"klaviyo-sync/core/middleware/auth"
	"klaviyo-sync/core/middleware/rayid"
	"klaviyo-sync/feature/contacts"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the record ingestion server",
	Long:  `Starts the HTTP server that accepts records one at a time and reconciles them.`,
	RunE:  runServe,
}

func init() {
	RootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap(ctx, bootstrapOptions{journal: true})
	if err != nil {
		return err
	}
	defer rt.Close()
	logg := rt.logger

	app := newServer(rt)

	errCh := make(chan error, 1)
	go func() {
		logg.Info("Starting server", zap.String("port", rt.cfg.Server.Port))
		errCh <- app.Listen(rt.cfg.Server.Address())
	}()

	// Graceful Shutdown
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logg.Info("Shutting down server...")
	return app.ShutdownWithTimeout(10 * time.Second)
}

// newServer builds the fiber app with middleware and features.
func newServer(rt *runtime) *fiber.App {
	logg := rt.logger

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true, // We will log our own startup message
		BodyLimit:             rt.cfg.Server.BodyLimitBytes,
	})

	// 1. RayID (Must be first to trace everything)
	app.Use(rayid.New())

	// 2. Logging Middleware (Zap + RayID)
	app.Use(func(c *fiber.Ctx) error {
		l := logger.WithRayID(logg, c)
		start := time.Now()
		err := c.Next()
		if err != nil {
			l.Error("Request error", zap.Error(err))
		}
		l.Info("Request handled",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("duration", time.Since(start)),
			zap.String("ip", c.IP()),
		)
		return err
	})

	// 3. Auth (Protect API, health and metrics stay public)
	app.Use(auth.New(auth.Config{
		ApiKey: rt.cfg.Server.ApiKey,
		Skip:   []string{"/health", "/metrics"},
	}))

	// 4. Operational endpoints
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// 5. Load Features
	mgr := loader.NewManager(logg)
	mgr.Register(contacts.NewFeature(rt.engine, rt.journal, rt.state, logg))
	if err := mgr.LoadAll(app); err != nil {
		logg.Fatal("Failed to load features", zap.Error(err))
	}

	return app
}
