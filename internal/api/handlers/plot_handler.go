package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mexer-app/backend/internal/access"
	"github.com/mexer-app/backend/internal/cache/redis"
	"github.com/mexer-app/backend/internal/history"
	"github.com/mexer-app/backend/internal/matrix"
	"github.com/mexer-app/backend/internal/metrics"
	"github.com/mexer-app/backend/internal/plots"
	"github.com/mexer-app/backend/internal/query"
	"github.com/mexer-app/backend/internal/sankey"
	"github.com/mexer-app/backend/pkg/circuitbreaker"
	"github.com/mexer-app/backend/pkg/logger"
	"github.com/mexer-app/backend/pkg/utils"
)

const historyCookie = "user_history"

// plotPayload is what goes over the wire (and into the cache) for a
// successful plot. Exactly one of the data fields is set; NoData marks
// the zero-rows outcome, which is not an error.
type plotPayload struct {
	ID       string          `json:"id"`
	PlotType string          `json:"plot_type"`
	NoData   bool            `json:"no_data,omitempty"`
	Sankey   *sankey.Diagram `json:"sankey,omitempty"`
	Matrix   *matrix.COO     `json:"matrix,omitempty"`
	XY       *plots.Series   `json:"xy,omitempty"`
}

type PlotHandler struct {
	normalizer *query.Normalizer
	assembler  *matrix.Assembler
	sankey     *sankey.Builder
	xy         *plots.XY

	cache      *redis.Client
	cacheTTL   time.Duration
	breaker    *circuitbreaker.CircuitBreaker
	historyMax int
}

func NewPlotHandler(
	normalizer *query.Normalizer,
	assembler *matrix.Assembler,
	sankeyBuilder *sankey.Builder,
	xy *plots.XY,
	cache *redis.Client,
	cacheTTL time.Duration,
	historyMax int,
) *PlotHandler {
	return &PlotHandler{
		normalizer: normalizer,
		assembler:  assembler,
		sankey:     sankeyBuilder,
		xy:         xy,
		cache:      cache,
		cacheTTL:   cacheTTL,
		breaker: circuitbreaker.New("plot-cache", circuitbreaker.Config{
			Timeout:          30 * time.Second,
			FailureThreshold: 3,
			Logger:           logger.Log,
		}),
		historyMax: historyMax,
	}
}

func (h *PlotHandler) HandlePlot(c *fiber.Ctx) error {
	started := time.Now()

	raw := formValues(c)
	sub, err := h.normalizer.Shape(raw)
	if err != nil {
		return plotError(c, "", err)
	}
	fields := sub.Fields
	plotType := fields["plot_type"]

	if !access.IsAuthorized(requesterFrom(c), fields) {
		metrics.AccessDenied.Inc()
		metrics.PlotTotal.WithLabelValues(plotType, "denied").Inc()
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You are not authorized to view this data. IEA data requires an account with IEA access.",
		})
	}

	cacheKey := utils.HashFields(fields)
	if cached := h.cachedPayload(c, cacheKey); cached != nil {
		metrics.PlotTotal.WithLabelValues(plotType, "cached").Inc()
		return h.respond(c, fields, cached)
	}

	normalized, err := h.normalizer.Normalize(c.Context(), sub)
	if err != nil {
		metrics.PlotTotal.WithLabelValues(plotType, "invalid").Inc()
		return plotError(c, plotType, err)
	}

	payload := &plotPayload{
		ID:       uuid.New().String(),
		PlotType: plotType,
	}

	switch plotType {
	case "sankey":
		diagram, err := h.sankey.Build(c.Context(), normalized.Target, normalized.Predicates)
		if err != nil {
			metrics.PlotTotal.WithLabelValues(plotType, "error").Inc()
			return plotError(c, plotType, err)
		}
		if diagram == nil {
			payload.NoData = true
		} else {
			payload.Sankey = diagram
			metrics.SankeyLinks.Observe(float64(len(diagram.Links)))
		}

	case "matrices":
		var m *matrix.COO
		if fields["coloring_method"] == "ruvy" || fields["matname"] == "RUVY" {
			m, err = h.assembler.GetRUVY(c.Context(), normalized.Target, normalized.Predicates)
		} else {
			m, err = h.assembler.Get(c.Context(), normalized.Target, normalized.Predicates)
		}
		if err != nil {
			metrics.PlotTotal.WithLabelValues(plotType, "error").Inc()
			return plotError(c, plotType, err)
		}
		if m == nil {
			payload.NoData = true
		} else {
			payload.Matrix = m
			metrics.TriplesFetched.WithLabelValues(string(normalized.Target.Table)).Observe(float64(m.NNZ()))
		}

	case "xy_plot":
		series, err := h.xy.Get(c.Context(), fields["efficiency"], normalized.Target, normalized.Predicates)
		if err != nil {
			metrics.PlotTotal.WithLabelValues(plotType, "error").Inc()
			return plotError(c, plotType, err)
		}
		if series == nil {
			payload.NoData = true
		} else {
			payload.XY = series
		}

	default:
		metrics.PlotTotal.WithLabelValues(plotType, "invalid").Inc()
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown plot type",
		})
	}

	h.storePayload(c, cacheKey, payload)

	metrics.PlotDuration.WithLabelValues(plotType).Observe(time.Since(started).Seconds())
	metrics.PlotTotal.WithLabelValues(plotType, "ok").Inc()

	logger.Info("Plot assembled",
		zap.String("plot_id", payload.ID),
		zap.String("plot_type", plotType),
		zap.Bool("no_data", payload.NoData),
		zap.Duration("elapsed", time.Since(started)),
	)

	return h.respond(c, fields, payload)
}

// respond records the submission in the history cookie and writes the
// payload. No-data results are not remembered; replotting them is never
// what the user wants.
func (h *PlotHandler) respond(c *fiber.Ctx, fields map[string]string, payload *plotPayload) error {
	if !payload.NoData {
		list := history.Decode(c.Cookies(historyCookie))
		list = history.Record(list, payload.PlotType, fields, h.historyMax)
		if blob, err := history.Encode(list); err == nil {
			c.Cookie(&fiber.Cookie{
				Name:     historyCookie,
				Value:    blob,
				HTTPOnly: true,
				SameSite: "Lax",
			})
		}
	}

	return c.JSON(payload)
}

// cachedPayload consults the plot cache behind the circuit breaker: a
// down redis degrades to uncached plotting instead of failing requests.
func (h *PlotHandler) cachedPayload(c *fiber.Ctx, key string) *plotPayload {
	if h.cache == nil {
		return nil
	}

	var payload plotPayload
	var hit bool
	err := h.breaker.Execute(c.Context(), func() error {
		var err error
		hit, err = h.cache.GetPlot(c.Context(), key, &payload)
		return err
	})
	if err != nil {
		if !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
			logger.Warn("Plot cache read failed", zap.Error(err))
		}
		return nil
	}

	if !hit {
		metrics.CacheMisses.WithLabelValues("plot").Inc()
		return nil
	}
	metrics.CacheHits.WithLabelValues("plot").Inc()
	return &payload
}

func (h *PlotHandler) storePayload(c *fiber.Ctx, key string, payload *plotPayload) {
	if h.cache == nil || payload.NoData {
		return
	}

	err := h.breaker.Execute(c.Context(), func() error {
		return h.cache.SetPlot(c.Context(), key, payload, h.cacheTTL)
	})
	if err != nil && !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		logger.Warn("Plot cache write failed", zap.Error(err))
	}
}

// plotError maps the error taxonomy onto status codes: bad submissions
// and unknown backends are the client's problem, everything else is ours.
func plotError(c *fiber.Ctx, plotType string, err error) error {
	switch {
	case errors.Is(err, query.ErrValidation), errors.Is(err, query.ErrUnknownBackend):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	default:
		logger.Error("Plot request failed",
			zap.String("plot_type", plotType),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to assemble plot",
		})
	}
}
