package model

import (
	"database/sql"
	"time"
)

// Relationship cardinalities accepted by the API.
const (
	RelOneToOne   = "one-to-one"
	RelOneToMany  = "one-to-many"
	RelManyToMany = "many-to-many"
)

// ValidRelationshipType reports whether t is one of the known cardinalities.
func ValidRelationshipType(t string) bool {
	switch t {
	case RelOneToOne, RelOneToMany, RelManyToMany:
		return true
	}
	return false
}

// Schema is a user-owned container describing one database design.  All child
// entities (tables, fields, relationships) are reachable only through it.
type Schema struct {
	ID          string         // schemas.id
	UserID      string         // schemas.user_id (owner)
	Name        string         // schemas.name
	Description sql.NullString // schemas.description
	CreatedAt   time.Time      // schemas.created_at
	UpdatedAt   time.Time      // schemas.updated_at
}

// SchemaSummary is a Schema annotated with its table count, as returned by
// the list endpoint.
type SchemaSummary struct {
	Schema
	TablesCount int
}

// Table is a designed table placed on the schema canvas.  Positions are kept
// as strings exactly as clients send them; the server never does arithmetic
// on them.
type Table struct {
	ID        string      // tables.id
	SchemaID  string      // tables.schema_id
	Name      string      // tables.name
	PositionX string      // tables.position_x
	PositionY string      // tables.position_y
	Config    TableConfig // tables.config (JSON text column)
	CreatedAt time.Time   // tables.created_at
	UpdatedAt time.Time   // tables.updated_at
	Fields    []Field     // child fields ordered by position
}

// Field is a column definition inside a designed table.
type Field struct {
	ID           string         // fields.id
	TableID      string         // fields.table_id
	Name         string         // fields.name
	Type         string         // fields.type (free-form type tag: int, varchar, ...)
	IsPrimaryKey bool           // fields.is_primary_key
	IsNullable   bool           // fields.is_nullable
	IsUnique     bool           // fields.is_unique
	DefaultValue sql.NullString // fields.default_value
	Position     int            // fields.position (display order)
}

// Relationship links two tables (and optionally two fields) within the same
// schema.  No cycle restriction is enforced.
type Relationship struct {
	ID          string             // relationships.id
	FromTableID string             // relationships.from_table_id
	FromFieldID sql.NullString     // relationships.from_field_id
	ToTableID   string             // relationships.to_table_id
	ToFieldID   sql.NullString     // relationships.to_field_id
	Type        string             // relationships.type
	Config      RelationshipConfig // relationships.config (JSON text column)
}

// SchemaDetails is the fully assembled schema returned by the details
// endpoint: the schema row plus its tables (each with ordered fields) and
// relationships.
type SchemaDetails struct {
	Schema
	Tables        []Table
	Relationships []Relationship
}

// TableConfig is the closed set of presentation options a client may attach
// to a table.  Unknown keys are dropped on decode rather than stored blindly.
type TableConfig struct {
	Color     *string `json:"color,omitempty"`
	Width     *int    `json:"width,omitempty"`
	Height    *int    `json:"height,omitempty"`
	Collapsed *bool   `json:"collapsed,omitempty"`
}

// IsZero reports whether no option is set, letting callers store NULL instead
// of an empty object.
func (c TableConfig) IsZero() bool {
	return c.Color == nil && c.Width == nil && c.Height == nil && c.Collapsed == nil
}

// RelationshipConfig is the closed option set for a relationship edge.
type RelationshipConfig struct {
	Label    *string `json:"label,omitempty"`
	OnDelete *string `json:"onDelete,omitempty"`
	OnUpdate *string `json:"onUpdate,omitempty"`
}

// IsZero reports whether no option is set.
func (c RelationshipConfig) IsZero() bool {
	return c.Label == nil && c.OnDelete == nil && c.OnUpdate == nil
}
