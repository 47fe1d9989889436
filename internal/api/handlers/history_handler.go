package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/mexer-app/backend/internal/history"
)

// HistoryHandler exposes the cookie-backed plot history: list it, delete
// one entry. Recording happens on the plot path.
type HistoryHandler struct{}

func NewHistoryHandler() *HistoryHandler {
	return &HistoryHandler{}
}

func (h *HistoryHandler) GetHistory(c *fiber.Ctx) error {
	list := history.Decode(c.Cookies(historyCookie))
	if list == nil {
		list = []history.Entry{}
	}
	return c.JSON(fiber.Map{
		"history": list,
	})
}

func (h *HistoryHandler) DeleteEntry(c *fiber.Ctx) error {
	index, err := strconv.Atoi(c.FormValue("index"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "index must be an integer",
		})
	}

	list := history.Decode(c.Cookies(historyCookie))
	list, err = history.Delete(list, index)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	blob, err := history.Encode(list)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to encode history",
		})
	}

	c.Cookie(&fiber.Cookie{
		Name:     historyCookie,
		Value:    blob,
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return c.JSON(fiber.Map{
		"history": list,
	})
}
