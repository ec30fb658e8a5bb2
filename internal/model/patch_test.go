package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNullableStringTriState(t *testing.T) {
	req := require.New(t)

	var p SchemaPatch
	req.NoError(json.Unmarshal([]byte(`{"name":"x"}`), &p))
	req.False(p.Description.Present)

	p = SchemaPatch{}
	req.NoError(json.Unmarshal([]byte(`{"description":null}`), &p))
	req.True(p.Description.Present)
	req.False(p.Description.Valid)

	p = SchemaPatch{}
	req.NoError(json.Unmarshal([]byte(`{"description":"shop db"}`), &p))
	req.True(p.Description.Present)
	req.True(p.Description.Valid)
	req.Equal("shop db", p.Description.Value)
}

func TestPatchSectionsAbsentVsEmpty(t *testing.T) {
	req := require.New(t)

	var p SchemaPatch
	req.NoError(json.Unmarshal([]byte(`{"name":"x"}`), &p))
	req.Nil(p.Tables)
	req.Nil(p.Relationships)

	p = SchemaPatch{}
	req.NoError(json.Unmarshal([]byte(`{"tables":[],"relationships":[]}`), &p))
	req.NotNil(p.Tables)
	req.Empty(*p.Tables)
	req.NotNil(p.Relationships)
	req.Empty(*p.Relationships)
}

func TestCoordinateAcceptsNumberAndString(t *testing.T) {
	req := require.New(t)

	var tbl TableInput
	req.NoError(json.Unmarshal([]byte(`{"id":"t1","name":"users","positionX":120.5,"positionY":"40"}`), &tbl))
	req.Equal("120.5", tbl.PositionX.String())
	req.Equal("40", tbl.PositionY.String())

	var empty Coordinate
	req.Equal("0", empty.String())
}

func TestTableConfigDropsUnknownKeys(t *testing.T) {
	req := require.New(t)

	var cfg TableConfig
	req.NoError(json.Unmarshal([]byte(`{"color":"#fff","sneaky":"ignored"}`), &cfg))
	req.NotNil(cfg.Color)
	req.Equal("#fff", *cfg.Color)
	req.False(cfg.IsZero())

	b, err := json.Marshal(cfg)
	req.NoError(err)
	req.NotContains(string(b), "sneaky")

	req.True(TableConfig{}.IsZero())
	req.True(RelationshipConfig{}.IsZero())
}

func TestFieldPosition(t *testing.T) {
	req := require.New(t)

	three := 3
	req.Equal(3, FieldPosition(FieldInput{Position: &three}, 0))
	req.Equal(7, FieldPosition(FieldInput{}, 7))
}

func TestValidRelationshipType(t *testing.T) {
	req := require.New(t)
	req.True(ValidRelationshipType(RelOneToOne))
	req.True(ValidRelationshipType(RelOneToMany))
	req.True(ValidRelationshipType(RelManyToMany))
	req.False(ValidRelationshipType("many-to-one"))
	req.False(ValidRelationshipType(""))
}
