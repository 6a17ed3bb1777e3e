package storage

import "github.com/agromitra/agromitra/apperr"

// ErrNotFound is returned when an entity is absent. It carries the
// not_found kind so domain packages can classify it through apperr
// without depending on this package.
var ErrNotFound = apperr.NotFound("entity not found")
