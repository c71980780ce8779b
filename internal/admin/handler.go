package admin

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"sentinel-backend/internal/engine"
	"sentinel-backend/internal/metadata"
	"sentinel-backend/internal/store"
)

// Handler manages entity validation specs at runtime.
type Handler struct {
	store    *store.Store
	registry *metadata.Registry
}

func NewHandler(s *store.Store, reg *metadata.Registry) *Handler {
	return &Handler{store: s, registry: reg}
}

type validationRow struct {
	Name       string          `json:"name"`
	Table      string          `json:"table"`
	Definition json.RawMessage `json:"definition"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// List handles GET /api/admin/validations.
func (h *Handler) List(c *fiber.Ctx) error {
	rows, err := h.store.Pool.Query(c.Context(),
		"SELECT name, table_name, definition, updated_at FROM _entity_validations ORDER BY name")
	if err != nil {
		return fmt.Errorf("list validations: %w", err)
	}
	defer rows.Close()

	out := []validationRow{}
	for rows.Next() {
		var row validationRow
		if err := rows.Scan(&row.Name, &row.Table, &row.Definition, &row.UpdatedAt); err != nil {
			return fmt.Errorf("scan validation row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("list validations: %w", err)
	}

	return c.JSON(fiber.Map{"data": out})
}

// Get handles GET /api/admin/validations/:name.
func (h *Handler) Get(c *fiber.Ctx) error {
	name := c.Params("name")

	var row validationRow
	err := h.store.Pool.QueryRow(c.Context(),
		"SELECT name, table_name, definition, updated_at FROM _entity_validations WHERE name = $1",
		name).Scan(&row.Name, &row.Table, &row.Definition, &row.UpdatedAt)
	if err != nil {
		return engine.UnknownEntityError(name)
	}

	return c.JSON(fiber.Map{"data": row})
}

// Upsert handles PUT /api/admin/validations/:name. The definition is decoded
// and its predicates compiled before anything is persisted, so a broken spec
// never reaches the registry.
func (h *Handler) Upsert(c *fiber.Ctx) error {
	name := c.Params("name")

	var body struct {
		Table      string          `json:"table"`
		Definition json.RawMessage `json:"definition"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.NewAppError("INVALID_PAYLOAD", 400, "Invalid request body")
	}
	if len(body.Definition) == 0 {
		return engine.NewAppError("INVALID_PAYLOAD", 400, "Definition is required")
	}

	var ev metadata.EntityValidations
	if err := json.Unmarshal(body.Definition, &ev); err != nil {
		return engine.NewAppError("INVALID_DEFINITION", 400,
			fmt.Sprintf("Invalid validation definition: %v", err))
	}
	ev.Entity = name
	if err := ev.CompilePredicates(); err != nil {
		return engine.NewAppError("INVALID_DEFINITION", 400,
			fmt.Sprintf("Invalid predicate expression: %v", err))
	}

	table := body.Table
	if table == "" {
		table = name
	}

	_, err := h.store.Pool.Exec(c.Context(),
		`INSERT INTO _entity_validations (name, table_name, definition)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (name) DO UPDATE
		 SET table_name = EXCLUDED.table_name,
		     definition = EXCLUDED.definition,
		     updated_at = NOW()`,
		name, table, body.Definition)
	if err != nil {
		return fmt.Errorf("upsert validation %s: %w", name, err)
	}

	if err := metadata.Reload(c.Context(), h.store.Pool, h.registry); err != nil {
		return fmt.Errorf("reload after upsert: %w", err)
	}

	return c.JSON(fiber.Map{"data": fiber.Map{"name": name, "table": table}})
}

// Delete handles DELETE /api/admin/validations/:name.
func (h *Handler) Delete(c *fiber.Ctx) error {
	name := c.Params("name")

	tag, err := h.store.Pool.Exec(c.Context(),
		"DELETE FROM _entity_validations WHERE name = $1", name)
	if err != nil {
		return fmt.Errorf("delete validation %s: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return engine.UnknownEntityError(name)
	}

	if err := metadata.Reload(c.Context(), h.store.Pool, h.registry); err != nil {
		return fmt.Errorf("reload after delete: %w", err)
	}

	return c.JSON(fiber.Map{"message": "Deleted"})
}

// Reload handles POST /api/admin/validations/reload.
func (h *Handler) Reload(c *fiber.Ctx) error {
	if err := metadata.Reload(c.Context(), h.store.Pool, h.registry); err != nil {
		return fmt.Errorf("reload validations: %w", err)
	}
	return c.JSON(fiber.Map{"message": "Reloaded", "count": len(h.registry.All())})
}

// nameParamValidation guards the :name path parameter on admin routes. The
// admin API validates its own requests with the same engine it manages.
func nameParamValidation() *engine.HTTPValidations {
	return &engine.HTTPValidations{
		Param: metadata.CheckMap{
			"name": metadata.Checks{
				metadata.CheckRequired: {Value: true},
				metadata.CheckPattern:  {Value: "^[a-zA-Z_][a-zA-Z0-9_]*$"},
				metadata.CheckMaxLength: {
					Value:   64,
					Message: "Entity names are limited to {validationValue} characters",
				},
			},
		},
	}
}

// RegisterRoutes registers admin routes on the given Fiber app.
func RegisterRoutes(app *fiber.App, h *Handler, v *engine.Validator, middleware ...fiber.Handler) {
	grp := app.Group("/api/admin/validations", middleware...)

	nameGuard := engine.RequestValidation(v, nameParamValidation())

	grp.Get("/", h.List)
	grp.Post("/reload", h.Reload)
	grp.Get("/:name", nameGuard, h.Get)
	grp.Put("/:name", nameGuard, h.Upsert)
	grp.Delete("/:name", nameGuard, h.Delete)
}
