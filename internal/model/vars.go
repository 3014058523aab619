package model

import "github.com/zeromicro/go-zero/core/stores/sqlc"

// ErrNotFound is returned when a queried row does not exist.
var ErrNotFound = sqlc.ErrNotFound
