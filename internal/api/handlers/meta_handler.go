package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/mexer-app/backend/internal/storage/models"
	"github.com/mexer-app/backend/internal/translator"
	"github.com/mexer-app/backend/pkg/logger"
)

// MetaHandler serves the category vocabularies the UI builds its filter
// form from.
type MetaHandler struct {
	translators map[string]*translator.Translator
	defaultName string
}

func NewMetaHandler(translators map[string]*translator.Translator, defaultName string) *MetaHandler {
	return &MetaHandler{translators: translators, defaultName: defaultName}
}

// metaDimensions maps URL segments onto dimensions.
var metaDimensions = map[string]models.Dimension{
	"dataset":     models.DimDataset,
	"version":     models.DimVersion,
	"country":     models.DimCountry,
	"method":      models.DimMethod,
	"energy_type": models.DimEnergyType,
	"last_stage":  models.DimLastStage,
	"ieamw":       models.DimIEAMW,
	"matname":     models.DimMatname,
	"agglevel":    models.DimAggLevel,
	"grossnet":    models.DimGrossNet,
	"index":       models.DimIndex,
}

func (h *MetaHandler) GetLabels(c *fiber.Ctx) error {
	name := c.Query("store", h.defaultName)
	tr, ok := h.translators[name]
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown store",
		})
	}

	dimName := c.Params("dimension")
	dim, ok := metaDimensions[dimName]
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown dimension",
		})
	}

	labels, err := tr.AllLabels(c.Context(), dim)
	if err != nil {
		logger.Error("Failed to load dimension labels",
			zap.String("dimension", dimName),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load labels",
		})
	}

	return c.JSON(fiber.Map{
		"dimension": dimName,
		"labels":    labels,
	})
}

// GetPublicDatasets lists the datasets visible without any authorization.
func (h *MetaHandler) GetPublicDatasets(c *fiber.Ctx) error {
	tr, ok := h.translators[h.defaultName]
	if !ok {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Default store not configured",
		})
	}

	labels, err := tr.PublicDatasets(c.Context())
	if err != nil {
		logger.Error("Failed to load public datasets", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load public datasets",
		})
	}

	return c.JSON(fiber.Map{
		"datasets": labels,
	})
}
