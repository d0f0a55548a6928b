// Package repository holds the MySQL data access for the ticketing core.
// Methods suffixed with Tx run on a caller-owned transaction and never
// commit or roll back themselves; the caller decides the unit of work.
package repository

import "errors"

// ErrNotFound is returned when a lookup by primary key matches no row.
// Services translate it into a resource-specific not-found error.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned by CustomerRepo.Create on a duplicate email.
var ErrEmailExists = errors.New("email already exists")
