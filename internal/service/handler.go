package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"lptrack/internal/export"
	"lptrack/internal/schema"
	"lptrack/internal/store"
)

// Handler serves the generic record API. One set of handlers covers all
// four tables; the schema registry supplies columns, identifiers and
// required fields per entity.
type Handler struct {
	store    *store.Store
	exporter *export.Exporter
	log      zerolog.Logger
}

func NewHandler(s *store.Store, ex *export.Exporter, log zerolog.Logger) *Handler {
	return &Handler{store: s, exporter: ex, log: log}
}

// notFoundLabel names the entity the way error bodies spell it.
var notFoundLabel = map[schema.EntityType]string{
	schema.LPLookup:    "LP not found",
	schema.LPFund:      "LP Fund not found",
	schema.PCAPEntry:   "PCAP entry not found",
	schema.LedgerEntry: "Ledger entry not found",
}

func (h *Handler) resolveEntity(c *fiber.Ctx) (schema.EntityType, *APIError) {
	name := c.Params("entity")
	t, err := schema.Parse(name)
	if err != nil {
		return 0, NotFound(fmt.Sprintf("Unknown entity: %s", name))
	}
	return t, nil
}

// List handles GET /api/data/:entity
func (h *Handler) List(c *fiber.Ctx) error {
	t, apiErr := h.resolveEntity(c)
	if apiErr != nil {
		return respondError(c, apiErr)
	}
	def := schema.Lookup(t)

	sqlStr := fmt.Sprintf(`SELECT * FROM %s ORDER BY %s`,
		quote(def.Type.TableName()), quote(def.Identifier))
	rows, err := store.QueryRows(c.Context(), h.store.DB, sqlStr)
	if err != nil {
		return fmt.Errorf("list %s: %w", t, err)
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return c.JSON(rows)
}

// GetByID handles GET /api/data/:entity/:id
func (h *Handler) GetByID(c *fiber.Ctx) error {
	t, apiErr := h.resolveEntity(c)
	if apiErr != nil {
		return respondError(c, apiErr)
	}

	row, err := h.fetch(c.Context(), t, c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, NotFound(notFoundLabel[t]))
		}
		return fmt.Errorf("get %s/%s: %w", t, c.Params("id"), err)
	}
	return c.JSON(row)
}

// Create handles POST /api/data/:entity
func (h *Handler) Create(c *fiber.Ctx) error {
	t, apiErr := h.resolveEntity(c)
	if apiErr != nil {
		return respondError(c, apiErr)
	}
	def := schema.Lookup(t)

	body, apiErr := parseBody(c)
	if apiErr != nil {
		return respondError(c, apiErr)
	}
	if apiErr := validateRequired(def, body); apiErr != nil {
		return respondError(c, apiErr)
	}
	if apiErr := h.checkLPReference(c.Context(), t, body); apiErr != nil {
		return respondError(c, apiErr)
	}

	cols := writableColumns(def)
	pb := h.store.Dialect.NewParamBuilder()
	placeholders := make([]string, len(cols))
	for i, col := range cols {
		placeholders[i] = pb.Add(body[col])
	}
	sqlStr := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING *`,
		quote(def.Type.TableName()), joinQuoted(cols), strings.Join(placeholders, ", "))

	row, err := store.QueryRow(c.Context(), h.store.DB, sqlStr, pb.Params()...)
	if err != nil {
		if apiErr := h.mapWriteError(t, body, err); apiErr != nil {
			return respondError(c, apiErr)
		}
		return fmt.Errorf("create %s: %w", t, err)
	}
	h.log.Info().Str("entity", t.String()).Msg("record created")
	return c.JSON(row)
}

// Update handles PUT /api/data/:entity/:id
func (h *Handler) Update(c *fiber.Ctx) error {
	t, apiErr := h.resolveEntity(c)
	if apiErr != nil {
		return respondError(c, apiErr)
	}
	def := schema.Lookup(t)
	id := c.Params("id")

	if _, err := h.fetch(c.Context(), t, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, NotFound(notFoundLabel[t]))
		}
		return fmt.Errorf("update %s/%s: %w", t, id, err)
	}

	body, apiErr := parseBody(c)
	if apiErr != nil {
		return respondError(c, apiErr)
	}
	if apiErr := validateRequired(def, body); apiErr != nil {
		return respondError(c, apiErr)
	}
	if apiErr := h.checkLPReference(c.Context(), t, body); apiErr != nil {
		return respondError(c, apiErr)
	}

	cols := writableColumns(def)
	pb := h.store.Dialect.NewParamBuilder()
	sets := make([]string, len(cols))
	for i, col := range cols {
		sets[i] = fmt.Sprintf("%s = %s", quote(col), pb.Add(body[col]))
	}
	sqlStr := fmt.Sprintf(`UPDATE %s SET %s WHERE %s = %s RETURNING *`,
		quote(def.Type.TableName()), strings.Join(sets, ", "),
		quote(def.Identifier), pb.Add(id))

	row, err := store.QueryRow(c.Context(), h.store.DB, sqlStr, pb.Params()...)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, NotFound(notFoundLabel[t]))
		}
		if apiErr := h.mapWriteError(t, body, err); apiErr != nil {
			return respondError(c, apiErr)
		}
		return fmt.Errorf("update %s/%s: %w", t, id, err)
	}
	h.log.Info().Str("entity", t.String()).Str("id", id).Msg("record updated")
	return c.JSON(row)
}

// Delete handles DELETE /api/data/:entity/:id
func (h *Handler) Delete(c *fiber.Ctx) error {
	t, apiErr := h.resolveEntity(c)
	if apiErr != nil {
		return respondError(c, apiErr)
	}
	def := schema.Lookup(t)
	id := c.Params("id")

	if _, err := h.fetch(c.Context(), t, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, NotFound(notFoundLabel[t]))
		}
		return fmt.Errorf("delete %s/%s: %w", t, id, err)
	}

	pb := h.store.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf(`DELETE FROM %s WHERE %s = %s`,
		quote(def.Type.TableName()), quote(def.Identifier), pb.Add(id))
	if _, err := store.Exec(c.Context(), h.store.DB, sqlStr, pb.Params()...); err != nil {
		mapped := store.MapError(h.store.Dialect, err)
		if errors.Is(mapped, store.ErrForeignKey) {
			return respondError(c, BadRequest("LP has dependent records and cannot be deleted"))
		}
		return fmt.Errorf("delete %s/%s: %w", t, id, err)
	}
	h.log.Info().Str("entity", t.String()).Str("id", id).Msg("record deleted")
	return c.SendStatus(fiber.StatusNoContent)
}

// ExportTable handles POST /api/data/export/:entity
func (h *Handler) ExportTable(c *fiber.Ctx) error {
	t, err := schema.Parse(c.Params("entity"))
	if err != nil {
		return respondError(c, BadRequest("Invalid table name"))
	}
	if _, err := h.exporter.ExportTable(c.Context(), t); err != nil {
		return fmt.Errorf("export %s: %w", t, err)
	}
	return c.JSON(fiber.Map{"message": fmt.Sprintf("Successfully exported %s to CSV", t)})
}

// ExportAll handles POST /api/data/export-all
func (h *Handler) ExportAll(c *fiber.Ctx) error {
	if _, err := h.exporter.ExportAll(c.Context()); err != nil {
		return fmt.Errorf("export all: %w", err)
	}
	return c.JSON(fiber.Map{"message": "Successfully exported all tables to CSV"})
}

func (h *Handler) fetch(ctx context.Context, t schema.EntityType, id string) (map[string]any, error) {
	def := schema.Lookup(t)
	pb := h.store.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf(`SELECT * FROM %s WHERE %s = %s`,
		quote(def.Type.TableName()), quote(def.Identifier), pb.Add(id))
	return store.QueryRow(ctx, h.store.DB, sqlStr, pb.Params()...)
}

// mapWriteError translates constraint violations into readable 400 details.
func (h *Handler) mapWriteError(t schema.EntityType, body map[string]any, err error) *APIError {
	mapped := store.MapError(h.store.Dialect, err)
	if errors.Is(mapped, store.ErrUniqueViolation) {
		return BadRequest("LP with this short_name already exists")
	}
	if errors.Is(mapped, store.ErrForeignKey) {
		name, _ := body["lp_short_name"].(string)
		return BadRequest(fmt.Sprintf("LP with short_name '%s' does not exist", name))
	}
	return nil
}

// checkLPReference verifies the referenced LP exists before writing a
// dependent row, so the caller gets a readable detail instead of a raw
// constraint error.
func (h *Handler) checkLPReference(ctx context.Context, t schema.EntityType, body map[string]any) *APIError {
	if t != schema.LPFund && t != schema.PCAPEntry {
		return nil
	}
	name, _ := body["lp_short_name"].(string)
	if name == "" {
		return BadRequest("Field 'lp_short_name' is required")
	}
	pb := h.store.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf(`SELECT short_name FROM %s WHERE short_name = %s`,
		quote(schema.LPLookup.TableName()), pb.Add(name))
	if _, err := store.QueryRow(ctx, h.store.DB, sqlStr, pb.Params()...); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return BadRequest(fmt.Sprintf("LP with short_name '%s' does not exist", name))
		}
		return BadRequest(err.Error())
	}
	return nil
}

func parseBody(c *fiber.Ctx) (map[string]any, *APIError) {
	body := map[string]any{}
	if err := c.BodyParser(&body); err != nil {
		return nil, BadRequest("Invalid request body")
	}
	return body, nil
}

// validateRequired rejects payloads whose required fields are absent or
// null. Empty strings pass; the normalizing client never sends them for
// required text fields anyway.
func validateRequired(def *schema.Definition, body map[string]any) *APIError {
	for _, field := range writableColumns(def) {
		if !schema.Required(field) {
			continue
		}
		if v, ok := body[field]; !ok || v == nil {
			return BadRequest(fmt.Sprintf("Field '%s' is required", field))
		}
	}
	return nil
}

// writableColumns is the schema field order minus the server-assigned id.
func writableColumns(def *schema.Definition) []string {
	cols := make([]string, 0, len(def.Fields))
	for _, f := range def.Fields {
		if f == "id" {
			continue
		}
		cols = append(cols, f)
	}
	return cols
}

func quote(ident string) string {
	return `"` + ident + `"`
}

func joinQuoted(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quote(c)
	}
	return strings.Join(quoted, ", ")
}
