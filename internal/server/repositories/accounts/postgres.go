package accounts

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

const accountColumns = `id, name, email, role, password_hash, refresh_token,
		 reset_token_hash, reset_token_expires_at, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository binds the repository to db. When db is a *sql.DB,
// Update opens its own transaction; when it is a transaction already,
// Update joins it.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, a *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO accounts (id, name, email, role, password_hash, refresh_token, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 `

	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.Name, a.Email, a.Role, a.PasswordHash, a.RefreshToken, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, oops.Code("ACCOUNT_DUPLICATE").
				With("email", a.Email).
				Wrap(common.ErrDuplicateKey)
		}
		return nil, oops.Code("ACCOUNT_INSERT_FAILED").
			With("email", a.Email).
			Wrap(err)
	}

	return clone(a), nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts
		 WHERE id = $1
		 `
	a, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, lookupError(err, "id", id)
	}
	return a, nil
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts
		 WHERE email = $1
		 `
	a, err := scanAccount(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, lookupError(err, "email", email)
	}
	return a, nil
}

func (r *PostgresRepository) FindByResetTokenHash(ctx context.Context, hash string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts
		 WHERE reset_token_hash = $1
		 `
	a, err := scanAccount(r.db.QueryRowContext(ctx, query, hash))
	if err != nil {
		// the digest itself is not logged
		return nil, lookupError(err, "by", "reset_token_hash")
	}
	return a, nil
}

// Update locks the row, checks pre against it and writes the patched row
// back within one transaction.
func (r *PostgresRepository) Update(ctx context.Context, id string, patch Patch, pre Precondition) (*models.Account, error) {
	var out *models.Account

	err := r.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		query := `SELECT ` + accountColumns + ` FROM accounts
		 WHERE id = $1
		 FOR UPDATE
		 `
		a, err := scanAccount(tx.QueryRowContext(ctx, query, id))
		if err != nil {
			return lookupError(err, "id", id)
		}

		if !pre.holds(a) {
			return oops.Code("ACCOUNT_PRECONDITION_FAILED").
				With("account_id", id).
				Wrap(common.ErrPreconditionFailed)
		}

		patch.apply(a)

		var resetHash sql.NullString
		var resetExpires sql.NullTime
		if a.Reset != nil {
			resetHash = sql.NullString{String: a.Reset.Hash, Valid: true}
			resetExpires = sql.NullTime{Time: a.Reset.ExpiresAt, Valid: true}
		}

		update :=
			`UPDATE accounts
			 SET password_hash = $2, refresh_token = $3,
			     reset_token_hash = $4, reset_token_expires_at = $5, updated_at = $6
			 WHERE id = $1
			 `
		if _, err := tx.ExecContext(ctx, update,
			a.ID, a.PasswordHash, a.RefreshToken, resetHash, resetExpires, a.UpdatedAt); err != nil {
			return oops.Code("ACCOUNT_UPDATE_FAILED").
				With("account_id", id).
				Wrap(err)
		}

		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *PostgresRepository) inTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	if db, ok := r.db.(*sql.DB); ok {
		return dbx.WithTx(ctx, db, nil, fn)
	}
	return fn(ctx, r.db)
}

func scanAccount(row *sql.Row) (*models.Account, error) {
	a := &models.Account{}
	var resetHash sql.NullString
	var resetExpires sql.NullTime

	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.Role, &a.PasswordHash, &a.RefreshToken,
		&resetHash, &resetExpires, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if resetHash.Valid && resetExpires.Valid {
		a.Reset = &models.ResetToken{Hash: resetHash.String, ExpiresAt: resetExpires.Time.UTC()}
	}
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()

	return a, nil
}

func lookupError(err error, key string, value any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With(key, value).
			Wrap(common.ErrorNotFound)
	}
	return oops.Code("ACCOUNT_LOOKUP_FAILED").
		With(key, value).
		Wrap(err)
}
