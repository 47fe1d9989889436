package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/mexer-app/backend/internal/storage/models"
)

// formValues collects the submitted fields with their multiplicity
// preserved: checkbox groups legitimately repeat a key.
func formValues(c *fiber.Ctx) map[string][]string {
	raw := make(map[string][]string)
	c.Request().PostArgs().VisitAll(func(key, value []byte) {
		k := string(key)
		raw[k] = append(raw[k], string(value))
	})
	return raw
}

// requesterFrom reads the identity the fronting auth layer attached.
// Session mechanics live outside this service; it only trusts the
// forwarded claims.
func requesterFrom(c *fiber.Ctx) models.Requester {
	r := models.Requester{
		Authenticated: c.Get("X-User-Authenticated") == "true",
		Claims:        make(map[string]bool),
	}
	for _, claim := range strings.Split(c.Get("X-User-Claims"), ",") {
		claim = strings.TrimSpace(claim)
		if claim != "" {
			r.Claims[claim] = true
		}
	}
	return r
}
