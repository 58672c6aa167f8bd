// Package accounts stores account records. Three interchangeable backends
// are provided: PostgreSQL, Redis and an in-process map.
package accounts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Patch lists the mutable fields to change. Nil pointers are left alone.
// SetReset and ClearReset are mutually exclusive; SetReset wins if both
// are given.
type Patch struct {
	PasswordHash *string
	RefreshToken *string
	SetReset     *models.ResetToken
	ClearReset   bool
	UpdatedAt    time.Time
}

// Precondition guards an Update. Every non-nil field must match the stored
// value at the moment the patch is applied.
type Precondition struct {
	RefreshToken   *string
	ResetTokenHash *string
}

// Repository is the account store.
//
// Lookups return common.ErrorNotFound when nothing matches. Insert returns
// common.ErrDuplicateKey when the email is taken. Update returns
// common.ErrorNotFound for an unknown id and common.ErrPreconditionFailed
// when a precondition does not hold; in both cases nothing is written.
type Repository interface {
	Insert(ctx context.Context, account *models.Account) (*models.Account, error)
	FindByID(ctx context.Context, id string) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByResetTokenHash(ctx context.Context, hash string) (*models.Account, error)
	Update(ctx context.Context, id string, patch Patch, pre Precondition) (*models.Account, error)
}

func (pre Precondition) holds(a *models.Account) bool {
	if pre.RefreshToken != nil && a.RefreshToken != *pre.RefreshToken {
		return false
	}
	if pre.ResetTokenHash != nil && (a.Reset == nil || a.Reset.Hash != *pre.ResetTokenHash) {
		return false
	}
	return true
}

func (p Patch) apply(a *models.Account) {
	if p.PasswordHash != nil {
		a.PasswordHash = *p.PasswordHash
	}
	if p.RefreshToken != nil {
		a.RefreshToken = *p.RefreshToken
	}
	switch {
	case p.SetReset != nil:
		r := *p.SetReset
		a.Reset = &r
	case p.ClearReset:
		a.Reset = nil
	}
	if !p.UpdatedAt.IsZero() {
		a.UpdatedAt = p.UpdatedAt
	}
}

func clone(a *models.Account) *models.Account {
	c := *a
	if a.Reset != nil {
		r := *a.Reset
		c.Reset = &r
	}
	return &c
}
