// Package entity provides base types shared by catalog rows.
package entity

import (
	"context"
	"time"

	"mise/internal/core/apperror"
	"mise/internal/core/id"
)

// Validatable is implemented by entities that support self-validation.
// Validation checks internal invariants (without database access).
type Validatable interface {
	// Validate checks entity invariants.
	// Returns nil if valid, AppError with details otherwise.
	Validate(ctx context.Context) error
}

// Catalog is the base type for reference data: units of measure, locations,
// items and their variants. Catalog maintenance itself lives outside the
// ledger core; the core only resolves and reads these rows.
type Catalog struct {
	// ID is the primary key (UUIDv7)
	ID id.ID `db:"id" json:"id"`

	// Code is a human-readable identifier, unique per catalog
	Code string `db:"code" json:"code"`

	// Name is the display name
	Name string `db:"name" json:"name"`

	// IsActive is false for retired rows; the core never resolves inactive rows
	IsActive bool `db:"is_active" json:"isActive"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewCatalog creates a new Catalog with generated ID.
func NewCatalog(code, name string) Catalog {
	now := time.Now().UTC()
	return Catalog{
		ID:        id.New(),
		Code:      code,
		Name:      name,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate implements Validatable.
func (c *Catalog) Validate(ctx context.Context) error {
	if c.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	return nil
}

// Touch updates the UpdatedAt timestamp.
func (c *Catalog) Touch() {
	c.UpdatedAt = time.Now().UTC()
}
