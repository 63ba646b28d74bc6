package contacts

import (
	"errors"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"klaviyo-sync/core/klaviyo"
	"klaviyo-sync/core/logger"
	"klaviyo-sync/core/reconcile"
)

// DefaultStream is used when a request names no stream.
const DefaultStream = "contacts"

// Handler handles HTTP requests for contact records.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the contacts routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/contacts")
	group.Post("/records", h.HandleProcessRecord)
	group.Get("/state", h.HandleGetState)
}

// ResultResponse is the JSON form of a reconcile.Result.
type ResultResponse struct {
	reconcile.Result
	Error             string `json:"error,omitempty"`
	SubscriptionError string `json:"subscription_error,omitempty"`
}

func newResultResponse(res reconcile.Result) ResultResponse {
	out := ResultResponse{Result: res}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	if res.SubscriptionErr != nil {
		out.SubscriptionError = res.SubscriptionErr.Error()
	}
	return out
}

// HandleProcessRecord reconciles one record.
// @Summary Process Record
// @Description Search, create or update the profile for one record, then apply its list subscription.
// @Tags contacts
// @Accept json
// @Produce json
// @Param stream query string false "Source stream name (default contacts)"
// @Success 200 {object} ResultResponse "Record processed"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 401 {object} ResultResponse "Klaviyo authentication failed"
// @Failure 500 {object} ResultResponse "Refreshed credentials could not be stored"
// @Failure 502 {object} ResultResponse "Klaviyo rejected the record"
// @Router /contacts/records [post]
func (h *Handler) HandleProcessRecord(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var rec reconcile.Record
	if err := json.Unmarshal(c.Body(), &rec); err != nil || rec == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "body must be a JSON object",
		})
	}

	stream := c.Query("stream", DefaultStream)
	res, err := h.service.Process(c.UserContext(), stream, rec)
	if err != nil {
		if errors.Is(err, ErrUnsupportedStream) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		l.Error("Record processing failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	body := newResultResponse(res)
	switch {
	case res.Err == nil:
		return c.JSON(body)
	case errors.As(res.Err, new(*klaviyo.PersistenceError)):
		l.Error("Credential persistence failed", zap.Error(res.Err))
		return c.Status(fiber.StatusInternalServerError).JSON(body)
	case klaviyo.IsFatal(res.Err):
		l.Error("Klaviyo authentication failed", zap.Error(res.Err))
		return c.Status(fiber.StatusUnauthorized).JSON(body)
	default:
		l.Warn("Record rejected", zap.String("record", res.RecordKey), zap.Error(res.Err))
		return c.Status(fiber.StatusBadGateway).JSON(body)
	}
}

// HandleGetState returns the sync state map.
// @Summary Get Sync State
// @Description Returns the shared sync state, including the last rejected token refresh response.
// @Tags contacts
// @Produce json
// @Success 200 {object} map[string]string "Sync state"
// @Router /contacts/state [get]
func (h *Handler) HandleGetState(c *fiber.Ctx) error {
	return c.JSON(h.service.State())
}
