package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/mexer-app/backend/internal/access"
	"github.com/mexer-app/backend/internal/export"
	"github.com/mexer-app/backend/internal/metrics"
	"github.com/mexer-app/backend/internal/query"
	"github.com/mexer-app/backend/pkg/logger"
)

type ExportHandler struct {
	normalizer *query.Normalizer
	exporter   *export.Exporter
}

func NewExportHandler(normalizer *query.Normalizer, exporter *export.Exporter) *ExportHandler {
	return &ExportHandler{normalizer: normalizer, exporter: exporter}
}

// HandleCSV streams the translated rows of a query as a CSV download.
// The same access gate guards it: exports must not leak what plots
// would not show.
func (h *ExportHandler) HandleCSV(c *fiber.Ctx) error {
	raw := formValues(c)
	sub, err := h.normalizer.Shape(raw)
	if err != nil {
		return exportError(c, err)
	}

	if !access.IsAuthorized(requesterFrom(c), sub.Fields) {
		metrics.AccessDenied.Inc()
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "You are not authorized to export this data.",
		})
	}

	normalized, err := h.normalizer.Normalize(c.Context(), sub)
	if err != nil {
		return exportError(c, err)
	}

	data, err := h.exporter.CSV(c.Context(), normalized.Target, normalized.Predicates)
	if err != nil {
		return exportError(c, err)
	}
	if data == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No data matched the query",
		})
	}

	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", `attachment; filename="mexer_export.csv"`)
	return c.Send(data)
}

func exportError(c *fiber.Ctx, err error) error {
	if errors.Is(err, query.ErrValidation) || errors.Is(err, query.ErrUnknownBackend) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	logger.Error("Export failed", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Failed to export data",
	})
}
