package contacts

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"klaviyo-sync/core/klaviyo"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates a new contacts feature.
func NewFeature(engine Processor, journal *Journal, state *klaviyo.SyncState, logger *zap.Logger) *Feature {
	svc := NewService(engine, journal, state, logger)
	h := NewHandler(svc)
	return &Feature{service: svc, handler: h}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "contacts"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return true
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}

// Service returns the feature's service.
func (f *Feature) Service() *Service {
	return f.service
}
