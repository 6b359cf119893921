package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"

	models "Jyotish/internal/domain/models"
	"Jyotish/internal/domain/service"
	"Jyotish/internal/services/vedic"
	"Jyotish/internal/usecase"
	xhttp "Jyotish/pkg/http"
	xlogger "Jyotish/pkg/logger"
	"Jyotish/pkg/util"
)

const (
	defaultPanchangHour = 12.0
	defaultDashaHour    = 12
)

// CalculationHandler serves the calculation endpoints.
type CalculationHandler struct {
	logger  *xlogger.Logger
	calc    *usecase.Calculator
	history *usecase.EventRecorder
}

func NewCalculationHandler(logger *xlogger.Logger, calc *usecase.Calculator, history *usecase.EventRecorder) *CalculationHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &CalculationHandler{logger: logger, calc: calc, history: history}
}

func (h *CalculationHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/panchang", h.Panchang)
	g.GET("/dasha", h.Dasha)
	g.GET("/match", h.Match)
	g.GET("/locate", h.Locate)
	g.GET("/position", h.Position)
	g.GET("/history", h.History)
}

// Panchang computes from sun_lon/moon_lon when either is given, otherwise from the
// instant: at, or year/month/day/hour (UTC), or now when neither is present.
func (h *CalculationHandler) Panchang(c echo.Context) error {
	req := &models.PanchangRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()

	if xhttp.QueryHasAny(c, "sun_lon", "moon_lon") {
		return xhttp.SuccessResponse(c, h.calc.PanchangFromLongitudes(ctx, req.SunLon, req.MoonLon))
	}

	if !xhttp.QueryHas(c, "hour") {
		req.Hour = defaultPanchangHour
	}
	instant, aerr := h.instant(c, req.At, req.Year, req.Month, req.Day, req.Hour)
	if aerr != nil {
		return xhttp.AppErrorResponse(c, aerr)
	}

	res, err := h.calc.PanchangAt(ctx, instant)
	if err != nil {
		return h.fail(c, "panchang", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *CalculationHandler) Dasha(c echo.Context) error {
	req := &models.DashaRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !xhttp.QueryHas(c, "hour") {
		req.Hour = defaultDashaHour
	}
	if !util.ValidDate(req.Year, req.Month, req.Day) {
		return xhttp.AppErrorResponse(c, invalidDate(req.Year, req.Month, req.Day))
	}

	birth := time.Date(req.Year, time.Month(req.Month), req.Day, req.Hour, req.Minute, 0, 0, time.UTC)
	return xhttp.SuccessResponse(c, h.calc.Dasha(c.Request().Context(), req.MoonLon, birth))
}

func (h *CalculationHandler) Match(c echo.Context) error {
	req := &models.MatchRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.calc.Match(c.Request().Context(), req.BoyMoonLon, req.GirlMoonLon)
	if err != nil {
		return h.fail(c, "match", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *CalculationHandler) Locate(c echo.Context) error {
	req := &models.LocateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, h.calc.Locate(req.Lon))
}

// Position reports where a graha stands at an instant, defaulting to the Sun now.
func (h *CalculationHandler) Position(c echo.Context) error {
	req := &models.PositionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !xhttp.QueryHas(c, "hour") {
		req.Hour = defaultPanchangHour
	}
	instant, aerr := h.instant(c, req.At, req.Year, req.Month, req.Day, req.Hour)
	if aerr != nil {
		return xhttp.AppErrorResponse(c, aerr)
	}

	res, err := h.calc.PositionAt(c.Request().Context(), models.Body(req.Body), instant)
	if err != nil {
		return h.fail(c, "position", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *CalculationHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.history == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("history is not enabled"))
	}

	rows, err := h.history.History(c.Request().Context(), models.CalculationKind(req.Kind), req.Limit)
	if err != nil {
		h.logger.Error("history query failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("ERR_HISTORY_UNAVAILABLE", "history storage unavailable").WithError(err))
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *CalculationHandler) instant(c echo.Context, at string, year, month, day int, hour float64) (time.Time, *xhttp.AppError) {
	if xhttp.QueryHas(c, "at") {
		t, ok := util.ParseTime(at)
		if !ok {
			return time.Time{}, xhttp.FieldError("at", fmt.Sprintf("at must be RFC3339 or unix seconds, got %q", at))
		}
		return t.UTC(), nil
	}
	if !xhttp.QueryHas(c, "year") {
		return h.calc.Now().UTC(), nil
	}
	if !util.ValidDate(year, month, day) {
		return time.Time{}, invalidDate(year, month, day)
	}
	return util.DecimalHourUTC(year, month, day, hour), nil
}

func invalidDate(year, month, day int) *xhttp.AppError {
	return xhttp.FieldError("day", fmt.Sprintf("%04d-%02d-%02d is not a calendar date", year, month, day)).
		WithParam("year", year).
		WithParam("month", month)
}

// fail maps usecase errors onto the envelope.
func (h *CalculationHandler) fail(c echo.Context, op string, err error) error {
	switch {
	case errors.Is(err, vedic.ErrInvalidReference):
		h.logger.Error(op+": reference table invalid", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.ConfigInvalidError("nakshatra reference data is invalid").WithError(err))
	case errors.Is(err, service.ErrEphemerisUnavailable):
		h.logger.Warn(op+": ephemeris unavailable", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("ERR_EPHEMERIS_UNAVAILABLE", "planetary positions are unavailable").WithError(err))
	default:
		h.logger.Error(op+" usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
}
