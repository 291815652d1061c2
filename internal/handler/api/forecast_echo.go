package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"FinCast/internal/domain/models"
	"FinCast/internal/service/metrics"
	"FinCast/internal/service/ratelimit"
	"FinCast/internal/usecase"
	xhttp "FinCast/pkg/http"
	xlogger "FinCast/pkg/logger"

	"github.com/labstack/echo/v4"
)

var _ xhttp.Handler = (*ForecastEchoHandler)(nil)

// ForecastEchoHandler exposes forecasting and backtesting over HTTP.
type ForecastEchoHandler struct {
	logger *xlogger.Logger
	svc    *usecase.ForecastService
	jobs   *usecase.BacktestJobHandler
	rl     *ratelimit.Limiter
}

func NewForecastEchoHandler(logger *xlogger.Logger, svc *usecase.ForecastService, jobs *usecase.BacktestJobHandler, rl *ratelimit.Limiter) *ForecastEchoHandler {
	metrics.Register()
	if logger == nil {
		logger = xlogger.NewNop()
	}
	return &ForecastEchoHandler{logger: logger, svc: svc, jobs: jobs, rl: rl}
}

func (h *ForecastEchoHandler) RegisterRoutes(e *echo.Echo) {
	var heavy []echo.MiddlewareFunc
	if h.rl != nil {
		heavy = append(heavy, h.rl.Middleware())
	}

	e.GET("/health", h.Health)

	g := e.Group("/api")
	g.POST("/train", h.Train, heavy...)
	g.GET("/predictions/:symbol", h.Predictions)
	g.GET("/models/performance/:symbol", h.Performance)
	g.GET("/models/:symbol", h.Models)
	g.PUT("/models/:symbol/weights", h.UpdateWeights)
	g.POST("/backtest", h.Backtest, heavy...)
	g.POST("/predict-future", h.PredictFuture, heavy...)
	g.GET("/latest/:symbol", h.Latest)
	if h.jobs != nil {
		g.POST("/backtest/jobs", h.SubmitBacktest, heavy...)
		g.GET("/backtest/jobs/:id", h.BacktestStatus)
	}
}

func (h *ForecastEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "healthy", "service": "fincast"})
}

func (h *ForecastEchoHandler) Train(c echo.Context) error {
	defer h.observe("train", time.Now())
	req := &models.TrainRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, to := req.Range()
	res, err := h.svc.Train(c.Request().Context(), req.Symbol, from, to)
	if err != nil {
		return h.fail(c, "train", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ForecastEchoHandler) Predictions(c echo.Context) error {
	defer h.observe("predictions", time.Now())
	req := &models.PredictionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	preds, err := h.svc.Predictions(c.Request().Context(), req.Symbol, req.Labels())
	if err != nil {
		return h.fail(c, "predictions", err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"symbol":      normalize(req.Symbol),
		"predictions": preds,
	})
}

func (h *ForecastEchoHandler) Performance(c echo.Context) error {
	defer h.observe("performance", time.Now())
	req := &models.SymbolRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ranked, err := h.svc.Performance(c.Request().Context(), req.Symbol)
	if err != nil {
		return h.fail(c, "performance", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"symbol":      normalize(req.Symbol),
		"performance": ranked,
	})
}

func (h *ForecastEchoHandler) Models(c echo.Context) error {
	req := &models.SymbolRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	infos, err := h.svc.Models(req.Symbol)
	if err != nil {
		return h.fail(c, "models", err)
	}
	return xhttp.SuccessResponse(c, infos)
}

func (h *ForecastEchoHandler) UpdateWeights(c echo.Context) error {
	req := &models.WeightsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	w, err := h.svc.UpdateWeights(c.Request().Context(), req.Symbol, req.Weights)
	if err != nil {
		return h.fail(c, "weights", err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"symbol":  normalize(req.Symbol),
		"weights": w,
	})
}

func (h *ForecastEchoHandler) Backtest(c echo.Context) error {
	defer h.observe("backtest", time.Now())
	req := &models.BacktestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	cmp, err := h.svc.Backtest(c.Request().Context(), req.Symbol, req.Configs())
	if err != nil {
		return h.fail(c, "backtest", err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"symbol":  normalize(req.Symbol),
		"results": cmp,
	})
}

func (h *ForecastEchoHandler) SubmitBacktest(c echo.Context) error {
	req := &models.BacktestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	st, err := h.jobs.Submit(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "backtest_submit", err)
	}
	c.Response().Header().Set(echo.HeaderLocation, "/api/backtest/jobs/"+st.ID)
	return xhttp.AcceptedResponse(c, st)
}

func (h *ForecastEchoHandler) BacktestStatus(c echo.Context) error {
	req := &models.JobRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	st, err := h.jobs.Status(c.Request().Context(), req.ID)
	if err != nil {
		return h.fail(c, "backtest_status", err)
	}
	return xhttp.SuccessResponse(c, st)
}

func (h *ForecastEchoHandler) PredictFuture(c echo.Context) error {
	defer h.observe("predict_future", time.Now())
	req := &models.PredictFutureRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.svc.PredictFuture(c.Request().Context(), req.Symbol, req.Config(), req.Horizon)
	if err != nil {
		return h.fail(c, "predict_future", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ForecastEchoHandler) Latest(c echo.Context) error {
	req := &models.SymbolRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	bar, err := h.svc.LatestPrice(c.Request().Context(), req.Symbol)
	if err != nil {
		return h.fail(c, "latest", err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"symbol": normalize(req.Symbol),
		"date":   models.FormatDate(bar.Date),
		"close":  bar.Close,
		"volume": bar.Volume,
	})
}

func (h *ForecastEchoHandler) fail(c echo.Context, endpoint string, err error) error {
	appErr := toAppError(err)
	metrics.EndpointErrors.WithLabelValues(endpoint, strconv.Itoa(appErr.Status)).Inc()
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(endpoint+" usecase error", xlogger.Error(err))
	} else {
		h.logger.Warn(endpoint+" rejected", xlogger.Error(err), xlogger.Int("status", appErr.Status))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func (h *ForecastEchoHandler) observe(endpoint string, start time.Time) {
	metrics.EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// toAppError maps domain errors to client-facing statuses.
func toAppError(err error) *xhttp.AppError {
	msg := err.Error()
	var appErr *xhttp.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, models.ErrInsufficientData), errors.Is(err, models.ErrUnknownHorizon):
		appErr = xhttp.UnprocessableError(msg)
	case errors.Is(err, models.ErrUnknownModel), errors.Is(err, models.ErrUnknownSymbol), errors.Is(err, models.ErrJobNotFound):
		appErr = xhttp.NotFoundError(msg)
	case errors.Is(err, models.ErrNoSuccessfulModels), errors.Is(err, models.ErrNoTrainedModels), errors.Is(err, models.ErrSymbolBusy):
		appErr = xhttp.ConflictError(msg)
	case errors.Is(err, models.ErrEmptyConfigurationSet), errors.Is(err, models.ErrInvalidConfig):
		appErr = xhttp.BadRequestError(msg)
	default:
		appErr = xhttp.InternalError("forecasting failed")
	}
	return appErr.WithError(err)
}

func normalize(symbol string) string {
	return usecase.NormalizeSymbol(symbol)
}
