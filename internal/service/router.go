package service

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(app *fiber.App, h *Handler) {
	api := app.Group("/api")

	api.Get("/lps", h.ListLPs)
	api.Get("/lp/:short_name", h.LPDetails)
	api.Get("/lp/:short_name/irr-cash-flows", h.IRRCashFlows)

	data := api.Group("/data")
	data.Post("/export-all", h.ExportAll)
	data.Post("/export/:entity", h.ExportTable)
	data.Get("/:entity", h.List)
	data.Get("/:entity/:id", h.GetByID)
	data.Post("/:entity", h.Create)
	data.Put("/:entity/:id", h.Update)
	data.Delete("/:entity/:id", h.Delete)
}
