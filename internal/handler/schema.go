package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dbforge/schema-designer/internal/middleware"
	"github.com/dbforge/schema-designer/internal/model"
	"github.com/dbforge/schema-designer/internal/queue"
	"github.com/dbforge/schema-designer/internal/repository"
)

// SchemaHandler exposes the schema CRUD endpoints.  Cache and Events may be
// nil; event publishing is best-effort and never fails a request.
type SchemaHandler struct {
	Schemas SchemaStore
	Cache   *middleware.SchemaCache
	Events  EventPublisher
}

func NewSchemaHandler(schemas SchemaStore, cache *middleware.SchemaCache, events EventPublisher) *SchemaHandler {
	return &SchemaHandler{Schemas: schemas, Cache: cache, Events: events}
}

// ----- response shapes -----

type schemaJSON struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type schemaSummaryJSON struct {
	schemaJSON
	TablesCount int `json:"tablesCount"`
}

type fieldJSON struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	IsPrimaryKey bool    `json:"isPrimaryKey"`
	IsNullable   bool    `json:"isNullable"`
	IsUnique     bool    `json:"isUnique"`
	DefaultValue *string `json:"defaultValue"`
	Position     int     `json:"position"`
}

type tableJSON struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	PositionX string            `json:"positionX"`
	PositionY string            `json:"positionY"`
	Config    model.TableConfig `json:"config"`
	Fields    []fieldJSON       `json:"fields"`
}

type relationshipJSON struct {
	ID          string                   `json:"id"`
	FromTableID string                   `json:"fromTableId"`
	FromFieldID *string                  `json:"fromFieldId"`
	ToTableID   string                   `json:"toTableId"`
	ToFieldID   *string                  `json:"toFieldId"`
	Type        string                   `json:"type"`
	Config      model.RelationshipConfig `json:"config"`
}

type schemaDetailsJSON struct {
	schemaJSON
	Tables        []tableJSON        `json:"tables"`
	Relationships []relationshipJSON `json:"relationships"`
}

func toSchemaJSON(s model.Schema) schemaJSON {
	out := schemaJSON{ID: s.ID, Name: s.Name, CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt}
	if s.Description.Valid {
		out.Description = &s.Description.String
	}
	return out
}

func toDetailsJSON(d *model.SchemaDetails) schemaDetailsJSON {
	out := schemaDetailsJSON{
		schemaJSON:    toSchemaJSON(d.Schema),
		Tables:        make([]tableJSON, 0, len(d.Tables)),
		Relationships: make([]relationshipJSON, 0, len(d.Relationships)),
	}
	for _, t := range d.Tables {
		tj := tableJSON{
			ID:        t.ID,
			Name:      t.Name,
			PositionX: t.PositionX,
			PositionY: t.PositionY,
			Config:    t.Config,
			Fields:    make([]fieldJSON, 0, len(t.Fields)),
		}
		for _, f := range t.Fields {
			fj := fieldJSON{
				ID:           f.ID,
				Name:         f.Name,
				Type:         f.Type,
				IsPrimaryKey: f.IsPrimaryKey,
				IsNullable:   f.IsNullable,
				IsUnique:     f.IsUnique,
				Position:     f.Position,
			}
			if f.DefaultValue.Valid {
				fj.DefaultValue = &f.DefaultValue.String
			}
			tj.Fields = append(tj.Fields, fj)
		}
		out.Tables = append(out.Tables, tj)
	}
	for _, r := range d.Relationships {
		rj := relationshipJSON{
			ID:          r.ID,
			FromTableID: r.FromTableID,
			ToTableID:   r.ToTableID,
			Type:        r.Type,
			Config:      r.Config,
		}
		if r.FromFieldID.Valid {
			rj.FromFieldID = &r.FromFieldID.String
		}
		if r.ToFieldID.Valid {
			rj.ToFieldID = &r.ToFieldID.String
		}
		out.Relationships = append(out.Relationships, rj)
	}
	return out
}

// ----- endpoints -----

// List returns the caller's schemas, most recently updated first, each with
// its table count.
func (h *SchemaHandler) List(c echo.Context) error {
	uid, err := currentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or missing token"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	summaries, err := h.Schemas.List(ctx, uid)
	if err != nil {
		log.Printf("schemas: list for %s: %v", uid, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
	out := make([]schemaSummaryJSON, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, schemaSummaryJSON{schemaJSON: toSchemaJSON(s.Schema), TablesCount: s.TablesCount})
	}
	return c.JSON(http.StatusOK, out)
}

type createSchemaReq struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// Create makes a new empty schema owned by the caller.
func (h *SchemaHandler) Create(c echo.Context) error {
	uid, err := currentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or missing token"})
	}
	var req createSchemaReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Schemas.Create(ctx, uid, req.Name, req.Description)
	if err != nil {
		if errors.Is(err, repository.ErrNameRequired) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "schema name is required"})
		}
		log.Printf("schemas: create for %s: %v", uid, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
	h.afterMutation(ctx, uid, queue.ActionCreated, s)
	return c.JSON(http.StatusCreated, toSchemaJSON(s))
}

// Get returns one schema with its tables, fields and relationships.
func (h *SchemaHandler) Get(c echo.Context) error {
	uid, err := currentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or missing token"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	details, err := h.Schemas.GetDetails(ctx, uid, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "schema not found"})
		}
		log.Printf("schemas: details %s for %s: %v", c.Param("id"), uid, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
	return c.JSON(http.StatusOK, toDetailsJSON(details))
}

// Update applies a partial update; supplied tables/relationships sections
// replace the existing ones wholesale.
func (h *SchemaHandler) Update(c echo.Context) error {
	uid, err := currentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or missing token"})
	}
	var patch model.SchemaPatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Schemas.Update(ctx, uid, c.Param("id"), patch)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "schema not found"})
		case errors.Is(err, repository.ErrBadRelationshipType):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown relationship type"})
		}
		log.Printf("schemas: update %s for %s: %v", c.Param("id"), uid, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
	h.afterMutation(ctx, uid, queue.ActionUpdated, s)
	return c.JSON(http.StatusOK, toSchemaJSON(s))
}

// Delete removes a schema with all of its tables, fields and relationships.
func (h *SchemaHandler) Delete(c echo.Context) error {
	uid, err := currentUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or missing token"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id := c.Param("id")
	if err := h.Schemas.Delete(ctx, uid, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "schema not found"})
		}
		log.Printf("schemas: delete %s for %s: %v", id, uid, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
	h.afterMutation(ctx, uid, queue.ActionDeleted, model.Schema{ID: id, UserID: uid})
	return c.JSON(http.StatusOK, echo.Map{"message": "schema deleted successfully"})
}

// afterMutation drops the user's cached reads and publishes an audit event.
// Both are best-effort: failures are logged inside and never surface to the
// client.
func (h *SchemaHandler) afterMutation(ctx context.Context, uid, action string, s model.Schema) {
	h.Cache.Invalidate(ctx, uid)
	if h.Events == nil {
		return
	}
	_ = h.Events.PublishSchemaChanged(ctx, queue.SchemaChangedEvent{
		Action:     action,
		SchemaID:   s.ID,
		UserID:     uid,
		SchemaName: s.Name,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	})
}
