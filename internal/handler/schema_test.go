package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func newSchemaHarness() (*SchemaHandler, *fakeSchemas) {
	schemas := newFakeSchemas()
	return NewSchemaHandler(schemas, nil, &fakeEvents{}), schemas
}

// doSchema invokes h as the given user, optionally binding a :id path param.
func doSchema(h echo.HandlerFunc, userID, method, path, schemaID, body string) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(r, rec)
	c.Set(CtxUserID, userID)
	if schemaID != "" {
		c.SetParamNames("id")
		c.SetParamValues(schemaID)
	}
	return rec, h(c)
}

func mustCreateSchema(t *testing.T, h *SchemaHandler, userID, body string) schemaJSON {
	t.Helper()
	rec, err := doSchema(h.Create, userID, http.MethodPost, "/schemas", "", body)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, rec.Code)
	var out schemaJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestCreateSchema(t *testing.T) {
	req := require.New(t)
	h, _ := newSchemaHarness()

	s := mustCreateSchema(t, h, "u1", `{"name":"shop","description":"order tracking"}`)
	req.NotEmpty(s.ID)
	req.Equal("shop", s.Name)
	req.NotNil(s.Description)
	req.Equal("order tracking", *s.Description)

	// A freshly created schema has no tables or relationships.
	rec, err := doSchema(h.Get, "u1", http.MethodGet, "/schemas/"+s.ID, s.ID, "")
	req.NoError(err)
	req.Equal(http.StatusOK, rec.Code)
	var d schemaDetailsJSON
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &d))
	req.Empty(d.Tables)
	req.Empty(d.Relationships)
}

func TestCreateSchemaRequiresName(t *testing.T) {
	h, _ := newSchemaHarness()
	for _, body := range []string{`{}`, `{"name":"   "}`} {
		rec, err := doSchema(h.Create, "u1", http.MethodPost, "/schemas", "", body)
		require.NoError(t, err)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestListSchemasScopedToOwner(t *testing.T) {
	req := require.New(t)
	h, _ := newSchemaHarness()

	mustCreateSchema(t, h, "u1", `{"name":"one"}`)
	mustCreateSchema(t, h, "u1", `{"name":"two"}`)
	mustCreateSchema(t, h, "u2", `{"name":"other"}`)

	rec, err := doSchema(h.List, "u1", http.MethodGet, "/schemas", "", "")
	req.NoError(err)
	req.Equal(http.StatusOK, rec.Code)
	var out []schemaSummaryJSON
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &out))
	req.Len(out, 2)
	for _, s := range out {
		req.Zero(s.TablesCount)
	}

	rec, err = doSchema(h.List, "u3", http.MethodGet, "/schemas", "", "")
	req.NoError(err)
	req.Equal(http.StatusOK, rec.Code)
	req.JSONEq(`[]`, rec.Body.String())
}

func TestListSchemasMostRecentlyUpdatedFirst(t *testing.T) {
	req := require.New(t)
	h, _ := newSchemaHarness()

	alpha := mustCreateSchema(t, h, "u1", `{"name":"alpha"}`)
	mustCreateSchema(t, h, "u1", `{"name":"beta"}`)

	// Touching alpha moves it back to the front of the list.
	rec, err := doSchema(h.Update, "u1", http.MethodPut, "/schemas/"+alpha.ID, alpha.ID, `{"name":"alpha2"}`)
	req.NoError(err)
	req.Equal(http.StatusOK, rec.Code)

	rec, err = doSchema(h.List, "u1", http.MethodGet, "/schemas", "", "")
	req.NoError(err)
	req.Equal(http.StatusOK, rec.Code)
	var out []schemaSummaryJSON
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &out))
	req.Len(out, 2)
	req.Equal("alpha2", out[0].Name)
	req.Equal("beta", out[1].Name)
}

func TestSchemaMutationsPublishEvents(t *testing.T) {
	req := require.New(t)
	schemas := newFakeSchemas()
	events := &fakeEvents{}
	h := NewSchemaHandler(schemas, nil, events)

	s := mustCreateSchema(t, h, "u1", `{"name":"shop"}`)
	rec, err := doSchema(h.Update, "u1", http.MethodPut, "/schemas/"+s.ID, s.ID, `{"name":"storefront"}`)
	req.NoError(err)
	req.Equal(http.StatusOK, rec.Code)
	rec, err = doSchema(h.Delete, "u1", http.MethodDelete, "/schemas/"+s.ID, s.ID, "")
	req.NoError(err)
	req.Equal(http.StatusOK, rec.Code)

	req.Len(events.published, 3)
	for i, action := range []string{"created", "updated", "deleted"} {
		req.Equal(action, events.published[i].Action)
		req.Equal(s.ID, events.published[i].SchemaID)
		req.Equal("u1", events.published[i].UserID)
	}

	// A failed mutation publishes nothing.
	rec, err = doSchema(h.Update, "u1", http.MethodPut, "/schemas/"+s.ID, s.ID, `{"name":"ghost"}`)
	req.NoError(err)
	req.Equal(http.StatusNotFound, rec.Code)
	req.Len(events.published, 3)
}

func TestGetSchemaOwnershipIsNotFound(t *testing.T) {
	req := require.New(t)
	h, _ := newSchemaHarness()

	s := mustCreateSchema(t, h, "u1", `{"name":"mine"}`)

	// Another user probing the same id learns nothing beyond 404.
	rec, err := doSchema(h.Get, "u2", http.MethodGet, "/schemas/"+s.ID, s.ID, "")
	req.NoError(err)
	req.Equal(http.StatusNotFound, rec.Code)

	rec, err = doSchema(h.Get, "u1", http.MethodGet, "/schemas/does-not-exist", "does-not-exist", "")
	req.NoError(err)
	req.Equal(http.StatusNotFound, rec.Code)
}

func TestUpdateSchemaReplacesTables(t *testing.T) {
	req := require.New(t)
	h, _ := newSchemaHarness()

	s := mustCreateSchema(t, h, "u1", `{"name":"shop"}`)

	body := `{
		"name": "storefront",
		"tables": [
			{"id": "t1", "name": "users", "positionX": 10, "positionY": "20.5",
			 "config": {"color": "#ff0000"},
			 "fields": [
				{"id": "f1", "name": "id", "type": "uuid", "isPrimaryKey": true},
				{"id": "f2", "name": "email", "type": "varchar", "isUnique": true}
			 ]},
			{"id": "t2", "name": "orders", "fields": []}
		],
		"relationships": [
			{"id": "r1", "fromTableId": "t2", "toTableId": "t1", "type": "many-to-many"}
		]
	}`
	rec, err := doSchema(h.Update, "u1", http.MethodPut, "/schemas/"+s.ID, s.ID, body)
	req.NoError(err)
	req.Equal(http.StatusOK, rec.Code)
	var updated schemaJSON
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &updated))
	req.Equal("storefront", updated.Name)

	rec, err = doSchema(h.Get, "u1", http.MethodGet, "/schemas/"+s.ID, s.ID, "")
	req.NoError(err)
	var d schemaDetailsJSON
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &d))
	req.Len(d.Tables, 2)
	req.Equal("users", d.Tables[0].Name)
	req.Equal("10", d.Tables[0].PositionX)
	req.Equal("20.5", d.Tables[0].PositionY)
	req.Len(d.Tables[0].Fields, 2)
	req.True(d.Tables[0].Fields[0].IsPrimaryKey)
	req.Equal(1, d.Tables[0].Fields[1].Position)
	req.Len(d.Relationships, 1)
	req.Equal("many-to-many", d.Relationships[0].Type)

	// Sending a smaller tables section wipes what it does not mention.
	rec, err = doSchema(h.Update, "u1", http.MethodPut, "/schemas/"+s.ID, s.ID,
		`{"tables":[{"id":"t3","name":"products","fields":[]}],"relationships":[]}`)
	req.NoError(err)
	req.Equal(http.StatusOK, rec.Code)

	rec, err = doSchema(h.Get, "u1", http.MethodGet, "/schemas/"+s.ID, s.ID, "")
	req.NoError(err)
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &d))
	req.Len(d.Tables, 1)
	req.Equal("products", d.Tables[0].Name)
	req.Empty(d.Relationships)
	req.Equal("storefront", d.Name) // untouched sections survive
}

func TestUpdateSchemaDescriptionTriState(t *testing.T) {
	req := require.New(t)
	h, _ := newSchemaHarness()

	s := mustCreateSchema(t, h, "u1", `{"name":"shop","description":"keep me"}`)

	// Omitting description leaves it alone.
	rec, err := doSchema(h.Update, "u1", http.MethodPut, "/schemas/"+s.ID, s.ID, `{"name":"renamed"}`)
	req.NoError(err)
	req.Equal(http.StatusOK, rec.Code)
	var updated schemaJSON
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &updated))
	req.NotNil(updated.Description)
	req.Equal("keep me", *updated.Description)

	// An explicit null clears it.
	rec, err = doSchema(h.Update, "u1", http.MethodPut, "/schemas/"+s.ID, s.ID, `{"description":null}`)
	req.NoError(err)
	req.Equal(http.StatusOK, rec.Code)
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &updated))
	req.Nil(updated.Description)
}

func TestUpdateSchemaRejectsBadRelationshipType(t *testing.T) {
	req := require.New(t)
	h, _ := newSchemaHarness()

	s := mustCreateSchema(t, h, "u1", `{"name":"shop"}`)

	rec, err := doSchema(h.Update, "u1", http.MethodPut, "/schemas/"+s.ID, s.ID,
		`{"relationships":[{"id":"r1","fromTableId":"a","toTableId":"b","type":"sideways"}]}`)
	req.NoError(err)
	req.Equal(http.StatusBadRequest, rec.Code)
}

func TestUpdateSchemaOwnership(t *testing.T) {
	req := require.New(t)
	h, _ := newSchemaHarness()

	s := mustCreateSchema(t, h, "u1", `{"name":"shop"}`)

	rec, err := doSchema(h.Update, "u2", http.MethodPut, "/schemas/"+s.ID, s.ID, `{"name":"hijacked"}`)
	req.NoError(err)
	req.Equal(http.StatusNotFound, rec.Code)

	rec, err = doSchema(h.Get, "u1", http.MethodGet, "/schemas/"+s.ID, s.ID, "")
	req.NoError(err)
	var d schemaDetailsJSON
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &d))
	req.Equal("shop", d.Name)
}

func TestDeleteSchema(t *testing.T) {
	req := require.New(t)
	h, _ := newSchemaHarness()

	s := mustCreateSchema(t, h, "u1", `{"name":"shop"}`)

	rec, err := doSchema(h.Delete, "u2", http.MethodDelete, "/schemas/"+s.ID, s.ID, "")
	req.NoError(err)
	req.Equal(http.StatusNotFound, rec.Code)

	rec, err = doSchema(h.Delete, "u1", http.MethodDelete, "/schemas/"+s.ID, s.ID, "")
	req.NoError(err)
	req.Equal(http.StatusOK, rec.Code)

	rec, err = doSchema(h.Get, "u1", http.MethodGet, "/schemas/"+s.ID, s.ID, "")
	req.NoError(err)
	req.Equal(http.StatusNotFound, rec.Code)

	// Deleting twice reports the schema gone.
	rec, err = doSchema(h.Delete, "u1", http.MethodDelete, "/schemas/"+s.ID, s.ID, "")
	req.NoError(err)
	req.Equal(http.StatusNotFound, rec.Code)
}
