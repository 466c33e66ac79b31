package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/ozfantasy/trade-window/internal/platform/logging"
	"github.com/ozfantasy/trade-window/internal/usecase"
)

type Handler struct {
	tradeService    *usecase.TradeService
	rolloverService *usecase.RolloverService
	logger          *logging.Logger
	validator       *validator.Validate

	rolloverWorkerLimit int
}

func NewHandler(
	tradeService *usecase.TradeService,
	rolloverService *usecase.RolloverService,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		tradeService:    tradeService,
		rolloverService: rolloverService,
		logger:          logger,
		validator:       validator.New(),
	}
}

// SetRolloverWorkerLimit sets the operator-configured worker count for the
// apply-due-trades job. It is the default when a request names no worker count
// and the upper bound when it does.
func (h *Handler) SetRolloverWorkerLimit(n int) {
	if n > 0 {
		h.rolloverWorkerLimit = n
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}
