// Package repository contains the data access layer.  Sentinel errors defined
// here let handlers translate failures into HTTP statuses without inspecting
// driver errors.  Ownership failures deliberately surface as ErrNotFound so a
// caller probing another user's schema ids cannot learn whether they exist.
package repository

import "errors"

// ErrNotFound is returned when a row does not exist or is not owned by the
// caller.  Handlers translate it into HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when registration hits the unique email index.
// Handlers translate it into HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrNameRequired is returned when a schema is created or renamed with an
// empty name.  Handlers translate it into HTTP 400.
var ErrNameRequired = errors.New("schema name is required")

// ErrBadRelationshipType is returned when an update payload carries a
// relationship whose type is outside the known cardinality set.  Handlers
// translate it into HTTP 400.
var ErrBadRelationshipType = errors.New("unknown relationship type")
