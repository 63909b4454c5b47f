package api

import (
	"errors"
	"math"
	"net/http"

	"github.com/labstack/echo/v4"

	"marketpulse/internal/domain/models"
	drepo "marketpulse/internal/domain/repository"
	"marketpulse/internal/service/history"
	"marketpulse/internal/state"
	"marketpulse/internal/usecase"
	xhttp "marketpulse/pkg/http"
	xlogger "marketpulse/pkg/logger"
)

// SignalsEchoHandler exposes the signal pipeline and the live state store
// over HTTP.
type SignalsEchoHandler struct {
	logger   *xlogger.Logger
	pipeline *usecase.SignalPipeline
	store    *state.Store
	streams  []drepo.MarketStream
}

func NewSignalsEchoHandler(logger *xlogger.Logger, pipeline *usecase.SignalPipeline, store *state.Store, streams []drepo.MarketStream) *SignalsEchoHandler {
	return &SignalsEchoHandler{logger: logger, pipeline: pipeline, store: store, streams: streams}
}

func (h *SignalsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/signal", h.Signal)
	g.GET("/state/:symbol", h.State)
	e.GET("/healthz", h.Health)
}

// Signal computes a fresh trade signal from historical bars.
func (h *SignalsEchoHandler) Signal(c echo.Context) error {
	req := &models.SignalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := drepo.NormalizeTimeframe(req.TF)

	sig, err := h.pipeline.Compute(c.Request().Context(), req.Symbol, tf, req.Limit)
	if err != nil {
		return h.signalError(c, err)
	}
	return xhttp.SuccessResponse(c, sig)
}

func (h *SignalsEchoHandler) signalError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, usecase.ErrInsufficientBars):
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("not enough bars: %v", err))
	case errors.Is(err, history.ErrSourcesExhausted):
		h.logger.Error("all historical sources failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c,
			xhttp.NewAppError("ERR_UPSTREAM", "", "historical sources unavailable", http.StatusBadGateway).WithError(err))
	default:
		h.logger.Error("signal compute failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
}

// State returns the live microstructure snapshot for one symbol.
func (h *SignalsEchoHandler) State(c echo.Context) error {
	req := &models.StateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	snap, ok := h.store.Snapshot(req.Symbol)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no state for symbol %s", req.Symbol))
	}
	return xhttp.SuccessResponse(c, stateView(snap))
}

// Health reports stream connectivity. Degraded streams do not fail the
// check; they show up in the payload.
func (h *SignalsEchoHandler) Health(c echo.Context) error {
	streams := make(map[string]bool, len(h.streams))
	for _, s := range h.streams {
		streams[s.Name()] = s.IsConnected()
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"status":  "ok",
		"streams": streams,
		"symbols": h.store.Symbols(),
	})
}

// stateView replaces NaN mids with nulls so the snapshot stays valid JSON.
func stateView(s models.StateSnapshot) map[string]interface{} {
	return map[string]interface{}{
		"symbol":        s.Symbol,
		"spotCvd":       s.SpotCVD,
		"spotDelta1s":   s.SpotDelta1s,
		"perpCvd":       s.PerpCVD,
		"perpDelta1s":   s.PerpDelta1s,
		"spotMid":       nanToNil(s.SpotMid),
		"perpMid":       nanToNil(s.PerpMid),
		"premium":       nanToNil(s.Premium),
		"imbalanceSpot": s.ImbalanceSpot,
		"imbalancePerp": s.ImbalancePerp,
		"liquidations":  s.Liquidations,
		"updatedAt":     s.UpdatedAt,
	}
}

func nanToNil(f float64) interface{} {
	if math.IsNaN(f) {
		return nil
	}
	return f
}
