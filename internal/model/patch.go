package model

import (
	"encoding/json"
)

// NullableString distinguishes the three states a JSON string field can be
// in: absent, explicitly null, and set to a value.  The update endpoint needs
// this for description, where null clears the column but an absent key leaves
// it untouched.
type NullableString struct {
	Present bool   // the key appeared in the payload
	Valid   bool   // the value was non-null
	Value   string // the decoded value when Valid
}

// UnmarshalJSON records presence before decoding; encoding/json only calls it
// when the key exists.
func (n *NullableString) UnmarshalJSON(b []byte) error {
	n.Present = true
	if string(b) == "null" {
		return nil
	}
	if err := json.Unmarshal(b, &n.Value); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

// Coordinate accepts either a JSON number or a JSON string and keeps the
// textual form.  Canvas clients send positions as numbers; they are stored
// verbatim as strings to avoid float round-tripping.
type Coordinate string

func (c *Coordinate) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = Coordinate(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return err
	}
	*c = Coordinate(num.String())
	return nil
}

func (c Coordinate) String() string {
	if c == "" {
		return "0"
	}
	return string(c)
}

// TableInput is one table object of a replace-all update payload.  Ids are
// client-supplied and inserted verbatim; missing ids are minted server-side.
type TableInput struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	PositionX Coordinate   `json:"positionX"`
	PositionY Coordinate   `json:"positionY"`
	Config    TableConfig  `json:"config"`
	Fields    []FieldInput `json:"fields"`
}

// FieldInput is one field object nested in a TableInput.
type FieldInput struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	IsPrimaryKey bool    `json:"isPrimaryKey"`
	IsNullable   bool    `json:"isNullable"`
	IsUnique     bool    `json:"isUnique"`
	DefaultValue *string `json:"defaultValue"`
	Position     *int    `json:"position"`
}

// RelationshipInput is one relationship object of a replace-all update payload.
type RelationshipInput struct {
	ID          string             `json:"id"`
	FromTableID string             `json:"fromTableId"`
	FromFieldID *string            `json:"fromFieldId"`
	ToTableID   string             `json:"toTableId"`
	ToFieldID   *string            `json:"toFieldId"`
	Type        string             `json:"type"`
	Config      RelationshipConfig `json:"config"`
}

// SchemaPatch is the decoded body of a schema update.  The slice sections are
// pointers so an absent key (nil) leaves existing rows untouched while a
// present empty array wipes the section.
type SchemaPatch struct {
	Name          string               `json:"name"`
	Description   NullableString       `json:"description"`
	Tables        *[]TableInput        `json:"tables"`
	Relationships *[]RelationshipInput `json:"relationships"`
}

// FieldPosition returns the explicit ordinal when present, the slice index
// otherwise, so display order stays stable either way.
func FieldPosition(f FieldInput, idx int) int {
	if f.Position != nil {
		return *f.Position
	}
	return idx
}
