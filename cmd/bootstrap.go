package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"klaviyo-sync/core/config"
	"klaviyo-sync/core/database"
	"klaviyo-sync/core/klaviyo"
	"klaviyo-sync/core/logger"
	"klaviyo-sync/core/reconcile"
	"klaviyo-sync/core/storage"
	"klaviyo-sync/feature/contacts"
)

// runtime is the wired application shared by all commands.
type runtime struct {
	cfg     *config.Config
	logger  *zap.Logger
	state   *klaviyo.SyncState
	store   *klaviyo.CredentialStore
	persist klaviyo.Persister
	auth    klaviyo.Authenticator
	client  *klaviyo.Client
	engine  *reconcile.Engine
	journal *contacts.Journal
	db      *gorm.DB
}

// bootstrapOptions lets commands adjust config before wiring.
type bootstrapOptions struct {
	journal  bool
	override func(*config.Config)
}

func bootstrap(ctx context.Context, opts bootstrapOptions) (*runtime, error) {
	// 1. Load Configuration
	cfg, err := config.LoadConfig(".", configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.override != nil {
		opts.override(cfg)
	}

	// 2. Initialize Logger
	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	// 3. Credential persistence
	persister, err := newPersister(ctx, cfg, logg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	creds, err := klaviyo.NewCredentials(cfg.CredentialsConfig)
	if err != nil {
		return nil, err
	}
	if creds.Mode() == klaviyo.ModeStaticKey && cfg.HasOAuthFields() {
		logg.Warn("Both api_private_key and OAuth credentials configured, using the API key")
	}
	if creds.Mode() == klaviyo.ModeOAuth && persister == nil {
		logg.Warn("No credentials document configured, refreshed tokens will not survive a restart")
	}

	rt := &runtime{
		cfg:    cfg,
		logger: logg,
		state:  klaviyo.NewSyncState(),
	}
	rt.persist = persister
	rt.store = klaviyo.NewCredentialStore(creds, persister)

	// 4. Klaviyo client
	rt.auth, err = klaviyo.NewAuthenticator(rt.store, rt.state, logg, klaviyo.WithTokenURL(cfg.Klaviyo.TokenURL))
	if err != nil {
		return nil, err
	}
	rt.client = klaviyo.NewClient(cfg.Klaviyo, rt.auth, logg)

	// 5. Result journal (Optional)
	if opts.journal && cfg.Database.Enabled {
		if conn, err := database.Connect(cfg.Database); err != nil {
			logg.Warn("Optional database connection failed, results will not be journaled", zap.Error(err))
		} else {
			rt.db = conn
			rt.journal = contacts.NewJournal(conn, uuid.NewString())
			if err := rt.journal.Migrate(); err != nil {
				return nil, err
			}
			logg.Info("Journaling results", zap.String("run_id", rt.journal.RunID()))
		}
	}

	// 6. Reconciliation engine
	var subscriber reconcile.Subscriber
	if cfg.ListID != "" {
		subscriber = contacts.NewSubscriptionManager(rt.client, cfg.ListID, logg)
	}
	rt.engine = reconcile.NewEngine(
		contacts.NewMapper(cfg.Klaviyo.DefaultRegion, logg),
		rt.client,
		subscriber,
		reconcile.Options{DryRun: cfg.Sync.DryRun},
		logg,
	)

	logg.Info("Initialized",
		zap.String("auth_mode", string(creds.Mode())),
		zap.Bool("subscriptions", subscriber != nil),
		zap.Bool("dry_run", cfg.Sync.DryRun),
	)
	return rt, nil
}

// newPersister picks where refreshed credentials go. Object persistence also
// overlays the stored document onto cfg so the latest tokens are used.
func newPersister(ctx context.Context, cfg *config.Config, logg *zap.Logger) (klaviyo.Persister, error) {
	switch cfg.Sync.Persist {
	case config.PersistObject:
		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return nil, err
		}
		p := &klaviyo.ObjectPersister{
			Client: client,
			Bucket: cfg.Storage.Bucket,
			Object: cfg.Sync.CredentialsObject,
		}
		doc, err := p.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load stored credentials: %w", err)
		}
		if err := cfg.MergeCredentials(doc); err != nil {
			return nil, err
		}
		logg.Debug("Loaded credentials from object storage",
			zap.String("bucket", p.Bucket),
			zap.String("object", p.Object),
		)
		return p, nil
	default:
		if cfg.File == "" {
			return nil, nil
		}
		return &klaviyo.FilePersister{Path: cfg.File}, nil
	}
}

// Close releases the runtime's resources.
func (rt *runtime) Close() {
	if rt.db != nil {
		if sqlDB, err := rt.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = rt.logger.Sync()
}
