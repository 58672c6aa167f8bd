package accounts

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

var accountCols = []string{
	"id", "name", "email", "role", "password_hash", "refresh_token",
	"reset_token_hash", "reset_token_expires_at", "created_at", "updated_at",
}

const (
	qInsert     = `(?s)^INSERT\s+INTO\s+accounts\s*\(id,\s*name,\s*email,\s*role,\s*password_hash,\s*refresh_token,\s*created_at,\s*updated_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6,\s*\$7,\s*\$8\)\s*$`
	qByID       = `(?s)^SELECT\s+id,.*FROM\s+accounts\s+WHERE\s+id\s*=\s*\$1\s*$`
	qByEmail    = `(?s)^SELECT\s+id,.*FROM\s+accounts\s+WHERE\s+email\s*=\s*\$1\s*$`
	qByReset    = `(?s)^SELECT\s+id,.*FROM\s+accounts\s+WHERE\s+reset_token_hash\s*=\s*\$1\s*$`
	qLockByID   = `(?s)^SELECT\s+id,.*FROM\s+accounts\s+WHERE\s+id\s*=\s*\$1\s+FOR\s+UPDATE\s*$`
	qUpdateFull = `(?s)^UPDATE\s+accounts\s+SET\s+password_hash\s*=\s*\$2,\s*refresh_token\s*=\s*\$3,\s*reset_token_hash\s*=\s*\$4,\s*reset_token_expires_at\s*=\s*\$5,\s*updated_at\s*=\s*\$6\s+WHERE\s+id\s*=\s*\$1\s*$`
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func accountRow(a *models.Account) *sqlmock.Rows {
	var hash, expires any
	if a.Reset != nil {
		hash, expires = a.Reset.Hash, a.Reset.ExpiresAt
	}
	return sqlmock.NewRows(accountCols).AddRow(
		a.ID, a.Name, a.Email, a.Role, a.PasswordHash, a.RefreshToken,
		hash, expires, a.CreatedAt, a.UpdatedAt)
}

func TestPostgresInsert_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	a := newAccount("ann@example.com")
	mock.ExpectExec(qInsert).
		WithArgs(a.ID, a.Name, a.Email, a.Role, a.PasswordHash, "", a.CreatedAt, a.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := repo.Insert(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, a, got)
	assert.NotSame(t, a, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsert_UniqueViolation(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(qInsert).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "accounts_email_key"})

	_, err := repo.Insert(context.Background(), newAccount("ann@example.com"))
	assert.ErrorIs(t, err, common.ErrDuplicateKey)
}

func TestPostgresInsert_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(qInsert).WillReturnError(errors.New("db down"))

	_, err := repo.Insert(context.Background(), newAccount("ann@example.com"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrDuplicateKey)
	assert.Contains(t, err.Error(), "db down")
}

func TestPostgresFind(t *testing.T) {
	a := newAccount("ann@example.com")
	a.Reset = &models.ResetToken{Hash: "digest", ExpiresAt: testNow.Add(time.Hour)}

	tests := []struct {
		name  string
		query string
		arg   string
		call  func(r *PostgresRepository) (*models.Account, error)
	}{
		{"by id", qByID, a.ID, func(r *PostgresRepository) (*models.Account, error) {
			return r.FindByID(context.Background(), a.ID)
		}},
		{"by email", qByEmail, a.Email, func(r *PostgresRepository) (*models.Account, error) {
			return r.FindByEmail(context.Background(), a.Email)
		}},
		{"by reset hash", qByReset, "digest", func(r *PostgresRepository) (*models.Account, error) {
			return r.FindByResetTokenHash(context.Background(), "digest")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name+" found", func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()

			mock.ExpectQuery(tt.query).WithArgs(tt.arg).WillReturnRows(accountRow(a))

			got, err := tt.call(repo)
			require.NoError(t, err)
			assert.Equal(t, a, got)
		})

		t.Run(tt.name+" not found", func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()

			mock.ExpectQuery(tt.query).WithArgs(tt.arg).WillReturnError(sql.ErrNoRows)

			_, err := tt.call(repo)
			assert.ErrorIs(t, err, common.ErrorNotFound)
		})

		t.Run(tt.name+" db error", func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()

			mock.ExpectQuery(tt.query).WithArgs(tt.arg).WillReturnError(errors.New("conn reset"))

			_, err := tt.call(repo)
			require.Error(t, err)
			assert.NotErrorIs(t, err, common.ErrorNotFound)
		})
	}
}

func TestPostgresUpdate_RotatesUnderLock(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	a := newAccount("ann@example.com")
	a.RefreshToken = "r0"
	later := testNow.Add(time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery(qLockByID).WithArgs(a.ID).WillReturnRows(accountRow(a))
	mock.ExpectExec(qUpdateFull).
		WithArgs(a.ID, a.PasswordHash, "r1", sql.NullString{}, sql.NullTime{}, later).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	got, err := repo.Update(context.Background(), a.ID,
		Patch{RefreshToken: strptr("r1"), UpdatedAt: later},
		Precondition{RefreshToken: strptr("r0")})
	require.NoError(t, err)
	assert.Equal(t, "r1", got.RefreshToken)
	assert.Equal(t, later, got.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdate_SetsResetPair(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	a := newAccount("ann@example.com")
	reset := &models.ResetToken{Hash: "digest", ExpiresAt: testNow.Add(time.Hour)}

	mock.ExpectBegin()
	mock.ExpectQuery(qLockByID).WithArgs(a.ID).WillReturnRows(accountRow(a))
	mock.ExpectExec(qUpdateFull).
		WithArgs(a.ID, a.PasswordHash, "",
			sql.NullString{String: "digest", Valid: true},
			sql.NullTime{Time: reset.ExpiresAt, Valid: true},
			a.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	got, err := repo.Update(context.Background(), a.ID, Patch{SetReset: reset}, Precondition{})
	require.NoError(t, err)
	assert.Equal(t, reset, got.Reset)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdate_PreconditionFailedRollsBack(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	a := newAccount("ann@example.com")
	a.RefreshToken = "current"

	mock.ExpectBegin()
	mock.ExpectQuery(qLockByID).WithArgs(a.ID).WillReturnRows(accountRow(a))
	mock.ExpectRollback()

	_, err := repo.Update(context.Background(), a.ID,
		Patch{RefreshToken: strptr("r1")},
		Precondition{RefreshToken: strptr("stale")})
	assert.ErrorIs(t, err, common.ErrPreconditionFailed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdate_NotFoundRollsBack(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(qLockByID).WithArgs("missing").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Update(context.Background(), "missing", Patch{RefreshToken: strptr("")}, Precondition{})
	assert.ErrorIs(t, err, common.ErrorNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdate_JoinsCallerTransaction(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	a := newAccount("ann@example.com")

	mock.ExpectBegin()
	mock.ExpectQuery(qLockByID).WithArgs(a.ID).WillReturnRows(accountRow(a))
	mock.ExpectExec(qUpdateFull).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)

	_, err = NewPostgresRepository(tx).Update(context.Background(), a.ID, Patch{ClearReset: true}, Precondition{})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}
