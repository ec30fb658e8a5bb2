package handler

import (
	"context"

	"github.com/dbforge/schema-designer/internal/model"
	"github.com/dbforge/schema-designer/internal/queue"
)

// The handler layer talks to storage through these interfaces.  The concrete
// repositories in internal/repository satisfy them; tests substitute fakes.

// UserStore persists and looks up users.
type UserStore interface {
	Create(ctx context.Context, email, password, name string, cost int) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
}

// TokenStore tracks issued refresh tokens.
type TokenStore interface {
	Save(ctx context.Context, userID, rawToken string) (model.RefreshToken, error)
	IsValid(ctx context.Context, rawToken string) (bool, error)
	Delete(ctx context.Context, rawToken string) error
	DeleteAllForUser(ctx context.Context, userID string) error
}

// EventPublisher emits schema lifecycle events to the message broker.
type EventPublisher interface {
	PublishSchemaChanged(ctx context.Context, event queue.SchemaChangedEvent) error
}

// SchemaStore owns the schema/table/field/relationship hierarchy.
type SchemaStore interface {
	List(ctx context.Context, ownerID string) ([]model.SchemaSummary, error)
	Create(ctx context.Context, ownerID, name string, description *string) (model.Schema, error)
	GetDetails(ctx context.Context, ownerID, schemaID string) (*model.SchemaDetails, error)
	Update(ctx context.Context, ownerID, schemaID string, patch model.SchemaPatch) (model.Schema, error)
	Delete(ctx context.Context, ownerID, schemaID string) error
}
