// Package repository contains data access layer abstractions.
// Implementations live in subpackages (e.g., postgres) inside this directory.
package repository

import "errors"

// ErrUniqueViolation is returned when a write conflicts with a uniqueness constraint.
// Lookups that find nothing return sql.ErrNoRows.
var ErrUniqueViolation = errors.New("unique constraint violation")
