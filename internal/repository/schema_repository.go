// This file implements persistence for the schema/tables/fields hierarchy
// plus schema-scoped relationships.  The update path follows the product's
// replace-all contract: a supplied tables (or relationships) section discards
// every existing child row and reinserts the payload verbatim, trusting
// client-supplied ids.  Every multi-table mutation runs in one transaction so
// a failure mid-way leaves no partial structural change visible.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/dbforge/schema-designer/internal/model"
)

// SchemaRepo encapsulates all database access for designed schemas.
type SchemaRepo struct {
	db *sql.DB
}

func NewSchemaRepo(db *sql.DB) *SchemaRepo {
	return &SchemaRepo{db: db}
}

// List returns every schema owned by ownerID, each annotated with its table
// count, most recently updated first.
func (r *SchemaRepo) List(ctx context.Context, ownerID string) ([]model.SchemaSummary, error) {
	const q = "SELECT s.id, s.user_id, s.name, s.description, s.created_at, s.updated_at, COUNT(t.id)" +
		" FROM schemas s LEFT JOIN `tables` t ON t.schema_id = s.id" +
		" WHERE s.user_id = ? GROUP BY s.id ORDER BY s.updated_at DESC"
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.SchemaSummary{}
	for rows.Next() {
		var s model.SchemaSummary
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.Description, &s.CreatedAt, &s.UpdatedAt, &s.TablesCount); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Create inserts an empty schema for the owner.  Name is required.
func (r *SchemaRepo) Create(ctx context.Context, ownerID, name string, description *string) (model.Schema, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Schema{}, ErrNameRequired
	}
	id := uuid.NewString()
	var desc sql.NullString
	if description != nil {
		desc = sql.NullString{String: *description, Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO schemas (id, user_id, name, description) VALUES (?,?,?,?)",
		id, ownerID, name, desc)
	if err != nil {
		return model.Schema{}, err
	}
	return r.getSchema(ctx, r.db, ownerID, id)
}

// GetDetails assembles a schema with its tables (fields ordered by position)
// and relationships.  A schema that does not exist and a schema owned by
// someone else both yield ErrNotFound.
func (r *SchemaRepo) GetDetails(ctx context.Context, ownerID, schemaID string) (*model.SchemaDetails, error) {
	s, err := r.getSchema(ctx, r.db, ownerID, schemaID)
	if err != nil {
		return nil, err
	}
	details := &model.SchemaDetails{Schema: s, Tables: []model.Table{}, Relationships: []model.Relationship{}}

	const qTables = "SELECT id, schema_id, name, position_x, position_y, config, created_at, updated_at" +
		" FROM `tables` WHERE schema_id = ? ORDER BY created_at, id"
	rows, err := r.db.QueryContext(ctx, qTables, schemaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	index := map[string]int{} // table id -> position in details.Tables
	for rows.Next() {
		var t model.Table
		var rawCfg sql.NullString
		if err := rows.Scan(&t.ID, &t.SchemaID, &t.Name, &t.PositionX, &t.PositionY, &rawCfg, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		if rawCfg.Valid && rawCfg.String != "" {
			// Unknown keys in stored config are dropped silently.
			_ = json.Unmarshal([]byte(rawCfg.String), &t.Config)
		}
		t.Fields = []model.Field{}
		index[t.ID] = len(details.Tables)
		details.Tables = append(details.Tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const qFields = "SELECT f.id, f.table_id, f.name, f.type, f.is_primary_key, f.is_nullable, f.is_unique, f.default_value, f.position" +
		" FROM fields f JOIN `tables` t ON t.id = f.table_id" +
		" WHERE t.schema_id = ? ORDER BY f.table_id, f.position, f.id"
	frows, err := r.db.QueryContext(ctx, qFields, schemaID)
	if err != nil {
		return nil, err
	}
	defer frows.Close()
	for frows.Next() {
		var f model.Field
		if err := frows.Scan(&f.ID, &f.TableID, &f.Name, &f.Type, &f.IsPrimaryKey, &f.IsNullable, &f.IsUnique, &f.DefaultValue, &f.Position); err != nil {
			return nil, err
		}
		if i, ok := index[f.TableID]; ok {
			details.Tables[i].Fields = append(details.Tables[i].Fields, f)
		}
	}
	if err := frows.Err(); err != nil {
		return nil, err
	}

	const qRels = "SELECT r.id, r.from_table_id, r.from_field_id, r.to_table_id, r.to_field_id, r.type, r.config" +
		" FROM relationships r JOIN `tables` t ON t.id = r.from_table_id" +
		" WHERE t.schema_id = ?"
	rrows, err := r.db.QueryContext(ctx, qRels, schemaID)
	if err != nil {
		return nil, err
	}
	defer rrows.Close()
	for rrows.Next() {
		var rel model.Relationship
		var rawCfg sql.NullString
		if err := rrows.Scan(&rel.ID, &rel.FromTableID, &rel.FromFieldID, &rel.ToTableID, &rel.ToFieldID, &rel.Type, &rawCfg); err != nil {
			return nil, err
		}
		if rawCfg.Valid && rawCfg.String != "" {
			_ = json.Unmarshal([]byte(rawCfg.String), &rel.Config)
		}
		details.Relationships = append(details.Relationships, rel)
	}
	return details, rrows.Err()
}

// Update applies a schema patch.  Scalar fields are set only when supplied;
// an explicit null description clears the column.  A supplied tables section
// replaces every existing table and field; a supplied relationships section
// replaces every relationship scoped to the schema's tables.  All of it
// happens in a single transaction.
func (r *SchemaRepo) Update(ctx context.Context, ownerID, schemaID string, patch model.SchemaPatch) (updated model.Schema, err error) {
	if patch.Relationships != nil {
		for _, rel := range *patch.Relationships {
			if !model.ValidRelationshipType(rel.Type) {
				return model.Schema{}, ErrBadRelationshipType
			}
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Schema{}, err
	}
	// err is a named return so a failed commit surfaces to the caller.
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	existing, err := r.getSchema(ctx, tx, ownerID, schemaID)
	if err != nil {
		return model.Schema{}, err
	}

	name := existing.Name
	if trimmed := strings.TrimSpace(patch.Name); trimmed != "" {
		name = trimmed
	}
	desc := existing.Description
	if patch.Description.Present {
		desc = sql.NullString{String: patch.Description.Value, Valid: patch.Description.Valid}
	}
	if _, err = tx.ExecContext(ctx,
		"UPDATE schemas SET name=?, description=?, updated_at=CURRENT_TIMESTAMP WHERE id=?",
		name, desc, schemaID); err != nil {
		return model.Schema{}, err
	}

	if patch.Tables != nil {
		if err = r.replaceTables(ctx, tx, schemaID, *patch.Tables); err != nil {
			return model.Schema{}, err
		}
	}
	if patch.Relationships != nil {
		if err = r.replaceRelationships(ctx, tx, schemaID, *patch.Relationships); err != nil {
			return model.Schema{}, err
		}
	}

	updated, err = r.getSchema(ctx, tx, ownerID, schemaID)
	if err != nil {
		return model.Schema{}, err
	}
	return updated, nil
}

// replaceTables drops every child row under the schema and reinserts the
// payload.  Relationships hang off tables, so they go first, then fields,
// then the tables themselves.
func (r *SchemaRepo) replaceTables(ctx context.Context, tx *sql.Tx, schemaID string, tables []model.TableInput) error {
	if _, err := tx.ExecContext(ctx,
		"DELETE r FROM relationships r JOIN `tables` t ON t.id = r.from_table_id WHERE t.schema_id = ?",
		schemaID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE f FROM fields f JOIN `tables` t ON t.id = f.table_id WHERE t.schema_id = ?",
		schemaID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM `tables` WHERE schema_id = ?", schemaID); err != nil {
		return err
	}

	for _, t := range tables {
		id := t.ID
		if id == "" {
			id = uuid.NewString()
		}
		cfg, err := marshalConfig(t.Config.IsZero(), t.Config)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO `tables` (id, schema_id, name, position_x, position_y, config) VALUES (?,?,?,?,?,?)",
			id, schemaID, t.Name, t.PositionX.String(), t.PositionY.String(), cfg); err != nil {
			return err
		}
		for i, f := range t.Fields {
			fid := f.ID
			if fid == "" {
				fid = uuid.NewString()
			}
			var def sql.NullString
			if f.DefaultValue != nil {
				def = sql.NullString{String: *f.DefaultValue, Valid: true}
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO fields (id, table_id, name, type, is_primary_key, is_nullable, is_unique, default_value, position) VALUES (?,?,?,?,?,?,?,?,?)",
				fid, id, f.Name, f.Type, f.IsPrimaryKey, f.IsNullable, f.IsUnique, def, model.FieldPosition(f, i)); err != nil {
				return err
			}
		}
	}
	return nil
}

// replaceRelationships swaps the schema-scoped relationship set for the
// payload, ids taken verbatim when present.
func (r *SchemaRepo) replaceRelationships(ctx context.Context, tx *sql.Tx, schemaID string, rels []model.RelationshipInput) error {
	if _, err := tx.ExecContext(ctx,
		"DELETE r FROM relationships r JOIN `tables` t ON t.id = r.from_table_id WHERE t.schema_id = ?",
		schemaID); err != nil {
		return err
	}
	for _, rel := range rels {
		id := rel.ID
		if id == "" {
			id = uuid.NewString()
		}
		cfg, err := marshalConfig(rel.Config.IsZero(), rel.Config)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO relationships (id, from_table_id, from_field_id, to_table_id, to_field_id, type, config) VALUES (?,?,?,?,?,?,?)",
			id, rel.FromTableID, nullable(rel.FromFieldID), rel.ToTableID, nullable(rel.ToFieldID), rel.Type, cfg); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a schema owned by ownerID along with all dependent rows.
// The explicit child deletes mirror the storage-level cascade so the
// transaction does not depend on foreign keys being enforced.
func (r *SchemaRepo) Delete(ctx context.Context, ownerID, schemaID string) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	if _, err = r.getSchema(ctx, tx, ownerID, schemaID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx,
		"DELETE r FROM relationships r JOIN `tables` t ON t.id = r.from_table_id WHERE t.schema_id = ?",
		schemaID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx,
		"DELETE f FROM fields f JOIN `tables` t ON t.id = f.table_id WHERE t.schema_id = ?",
		schemaID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM `tables` WHERE schema_id = ?", schemaID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM schemas WHERE id = ?", schemaID); err != nil {
		return err
	}
	return nil
}

// querier lets getSchema run against either the pool or an open transaction.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// getSchema fetches the schema row scoped to its owner.  Nonexistence and
// foreign ownership are indistinguishable on purpose.
func (r *SchemaRepo) getSchema(ctx context.Context, q querier, ownerID, schemaID string) (model.Schema, error) {
	var s model.Schema
	err := q.QueryRowContext(ctx,
		"SELECT id, user_id, name, description, created_at, updated_at FROM schemas WHERE id = ? AND user_id = ?",
		schemaID, ownerID).
		Scan(&s.ID, &s.UserID, &s.Name, &s.Description, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Schema{}, ErrNotFound
	}
	return s, err
}

func marshalConfig(zero bool, v any) (sql.NullString, error) {
	if zero {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
