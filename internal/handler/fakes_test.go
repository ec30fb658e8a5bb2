package handler

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dbforge/schema-designer/internal/auth"
	"github.com/dbforge/schema-designer/internal/model"
	"github.com/dbforge/schema-designer/internal/queue"
	"github.com/dbforge/schema-designer/internal/repository"
)

// In-memory stand-ins for the repository layer.  They reproduce the sentinel
// error contract the handlers rely on; the SQL implementations have their own
// integration tests.

type fakeUsers struct {
	byID map[string]model.User
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byID: map[string]model.User{}} }

func (f *fakeUsers) Create(_ context.Context, email, password, name string, cost int) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range f.byID {
		if u.Email == email {
			return model.User{}, repository.ErrEmailExists
		}
	}
	hash, err := auth.HashPassword(password, cost)
	if err != nil {
		return model.User{}, err
	}
	u := model.User{ID: uuid.NewString(), Email: email, PasswordHash: hash, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if name != "" {
		u.Name = sql.NullString{String: name, Valid: true}
	}
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (model.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return model.User{}, repository.ErrNotFound
}

type fakeTokens struct {
	codec *auth.TokenCodec
	rows  map[string]model.RefreshToken // keyed by token hash
}

func newFakeTokens(codec *auth.TokenCodec) *fakeTokens {
	return &fakeTokens{codec: codec, rows: map[string]model.RefreshToken{}}
}

func (f *fakeTokens) Save(_ context.Context, userID, rawToken string) (model.RefreshToken, error) {
	exp, err := f.codec.PeekExpiry(rawToken)
	if err != nil {
		return model.RefreshToken{}, auth.ErrInvalidToken
	}
	rec := model.RefreshToken{ID: uuid.NewString(), UserID: userID, TokenHash: auth.HashToken(rawToken), ExpiresAt: exp}
	f.rows[rec.TokenHash] = rec
	return rec, nil
}

func (f *fakeTokens) IsValid(_ context.Context, rawToken string) (bool, error) {
	rec, ok := f.rows[auth.HashToken(rawToken)]
	if !ok {
		return false, nil
	}
	return time.Now().UTC().Before(rec.ExpiresAt), nil
}

func (f *fakeTokens) Delete(_ context.Context, rawToken string) error {
	delete(f.rows, auth.HashToken(rawToken))
	return nil
}

func (f *fakeTokens) DeleteAllForUser(_ context.Context, userID string) error {
	for h, rec := range f.rows {
		if rec.UserID == userID {
			delete(f.rows, h)
		}
	}
	return nil
}

func (f *fakeTokens) countFor(userID string) int {
	n := 0
	for _, rec := range f.rows {
		if rec.UserID == userID {
			n++
		}
	}
	return n
}

type fakeSchemas struct {
	byID map[string]*model.SchemaDetails
}

func newFakeSchemas() *fakeSchemas { return &fakeSchemas{byID: map[string]*model.SchemaDetails{}} }

func (f *fakeSchemas) List(_ context.Context, ownerID string) ([]model.SchemaSummary, error) {
	out := []model.SchemaSummary{}
	for _, d := range f.byID {
		if d.UserID == ownerID {
			out = append(out, model.SchemaSummary{Schema: d.Schema, TablesCount: len(d.Tables)})
		}
	}
	// Most recently updated first, like the SQL implementation.
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (f *fakeSchemas) Create(_ context.Context, ownerID, name string, description *string) (model.Schema, error) {
	if strings.TrimSpace(name) == "" {
		return model.Schema{}, repository.ErrNameRequired
	}
	s := model.Schema{ID: uuid.NewString(), UserID: ownerID, Name: strings.TrimSpace(name), CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if description != nil {
		s.Description = sql.NullString{String: *description, Valid: true}
	}
	f.byID[s.ID] = &model.SchemaDetails{Schema: s, Tables: []model.Table{}, Relationships: []model.Relationship{}}
	return s, nil
}

func (f *fakeSchemas) GetDetails(_ context.Context, ownerID, schemaID string) (*model.SchemaDetails, error) {
	d, ok := f.byID[schemaID]
	if !ok || d.UserID != ownerID {
		return nil, repository.ErrNotFound
	}
	return d, nil
}

func (f *fakeSchemas) Update(_ context.Context, ownerID, schemaID string, patch model.SchemaPatch) (model.Schema, error) {
	d, ok := f.byID[schemaID]
	if !ok || d.UserID != ownerID {
		return model.Schema{}, repository.ErrNotFound
	}
	if patch.Relationships != nil {
		for _, rel := range *patch.Relationships {
			if !model.ValidRelationshipType(rel.Type) {
				return model.Schema{}, repository.ErrBadRelationshipType
			}
		}
	}
	if name := strings.TrimSpace(patch.Name); name != "" {
		d.Name = name
	}
	if patch.Description.Present {
		d.Description = sql.NullString{String: patch.Description.Value, Valid: patch.Description.Valid}
	}
	if patch.Tables != nil {
		d.Tables = nil
		for _, t := range *patch.Tables {
			tbl := model.Table{ID: t.ID, SchemaID: schemaID, Name: t.Name,
				PositionX: t.PositionX.String(), PositionY: t.PositionY.String(), Config: t.Config}
			for i, fin := range t.Fields {
				fld := model.Field{ID: fin.ID, TableID: t.ID, Name: fin.Name, Type: fin.Type,
					IsPrimaryKey: fin.IsPrimaryKey, IsNullable: fin.IsNullable, IsUnique: fin.IsUnique,
					Position: model.FieldPosition(fin, i)}
				if fin.DefaultValue != nil {
					fld.DefaultValue = sql.NullString{String: *fin.DefaultValue, Valid: true}
				}
				tbl.Fields = append(tbl.Fields, fld)
			}
			d.Tables = append(d.Tables, tbl)
		}
		d.Relationships = nil
	}
	if patch.Relationships != nil {
		d.Relationships = nil
		for _, rel := range *patch.Relationships {
			d.Relationships = append(d.Relationships, model.Relationship{
				ID: rel.ID, FromTableID: rel.FromTableID, ToTableID: rel.ToTableID, Type: rel.Type, Config: rel.Config,
			})
		}
	}
	d.UpdatedAt = time.Now()
	return d.Schema, nil
}

func (f *fakeSchemas) Delete(_ context.Context, ownerID, schemaID string) error {
	d, ok := f.byID[schemaID]
	if !ok || d.UserID != ownerID {
		return repository.ErrNotFound
	}
	delete(f.byID, schemaID)
	return nil
}

type fakeEvents struct {
	published []queue.SchemaChangedEvent
}

func (f *fakeEvents) PublishSchemaChanged(_ context.Context, ev queue.SchemaChangedEvent) error {
	f.published = append(f.published, ev)
	return nil
}
