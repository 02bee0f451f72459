// Package profile stores the singleton user profile.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/aclio/aclio/models"
	"github.com/aclio/aclio/store"
)

const maxNameLength = 50

var (
	ErrNoProfile      = errors.New("profile not set")
	ErrInvalidProfile = errors.New("invalid profile")
)

// Repository reads and writes the profile under store.KeyProfile.
type Repository struct {
	store store.Store
}

func NewRepository(s store.Store) *Repository {
	return &Repository{store: s}
}

// Load returns ErrNoProfile before onboarding has saved one.
func (r *Repository) Load(ctx context.Context) (models.UserProfile, error) {
	var p models.UserProfile
	found, err := store.GetJSON(ctx, r.store, store.KeyProfile, &p)
	if err != nil {
		return models.UserProfile{}, fmt.Errorf("load profile: %w", err)
	}
	if !found {
		return models.UserProfile{}, ErrNoProfile
	}
	return p, nil
}

// Save validates and persists p.
func (r *Repository) Save(ctx context.Context, p models.UserProfile) (models.UserProfile, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Age = strings.TrimSpace(p.Age)
	if p.Name == "" {
		return models.UserProfile{}, fmt.Errorf("%w: name is required", ErrInvalidProfile)
	}
	if utf8.RuneCountInString(p.Name) > maxNameLength {
		return models.UserProfile{}, fmt.Errorf("%w: name exceeds %d characters", ErrInvalidProfile, maxNameLength)
	}
	if !p.Gender.Valid() {
		return models.UserProfile{}, fmt.Errorf("%w: unknown gender %q", ErrInvalidProfile, p.Gender)
	}
	if err := store.SetJSON(ctx, r.store, store.KeyProfile, p); err != nil {
		return models.UserProfile{}, fmt.Errorf("save profile: %w", err)
	}
	return p, nil
}
