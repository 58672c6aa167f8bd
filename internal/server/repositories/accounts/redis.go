package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

const (
	redisAccountPrefix = "gophauth:account:"
	redisEmailPrefix   = "gophauth:account-email:"
	redisResetPrefix   = "gophauth:account-reset:"

	// optimistic transactions give up after this many conflicting writers
	redisMaxTxAttempts = 16
)

// RedisRepository stores each account as a JSON document with secondary
// keys mapping email and reset digest to the account id. Writes use
// WATCH/MULTI so concurrent updates of one account serialize.
type RedisRepository struct {
	rdb redis.UniversalClient
}

func NewRedisRepository(rdb redis.UniversalClient) *RedisRepository {
	return &RedisRepository{rdb: rdb}
}

type redisReset struct {
	Hash      string    `json:"hash"`
	ExpiresAt time.Time `json:"expires_at"`
}

type redisAccount struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	Role         string      `json:"role"`
	PasswordHash string      `json:"password_hash"`
	RefreshToken string      `json:"refresh_token"`
	Reset        *redisReset `json:"reset,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func toRedis(a *models.Account) redisAccount {
	ra := redisAccount{
		ID:           a.ID,
		Name:         a.Name,
		Email:        a.Email,
		Role:         a.Role,
		PasswordHash: a.PasswordHash,
		RefreshToken: a.RefreshToken,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
	if a.Reset != nil {
		ra.Reset = &redisReset{Hash: a.Reset.Hash, ExpiresAt: a.Reset.ExpiresAt}
	}
	return ra
}

func (ra redisAccount) model() *models.Account {
	a := &models.Account{
		ID:           ra.ID,
		Name:         ra.Name,
		Email:        ra.Email,
		Role:         ra.Role,
		PasswordHash: ra.PasswordHash,
		RefreshToken: ra.RefreshToken,
		CreatedAt:    ra.CreatedAt.UTC(),
		UpdatedAt:    ra.UpdatedAt.UTC(),
	}
	if ra.Reset != nil {
		a.Reset = &models.ResetToken{Hash: ra.Reset.Hash, ExpiresAt: ra.Reset.ExpiresAt.UTC()}
	}
	return a
}

func (r *RedisRepository) Insert(ctx context.Context, a *models.Account) (*models.Account, error) {
	emailKey := redisEmailPrefix + a.Email
	accountKey := redisAccountPrefix + a.ID

	doc, err := json.Marshal(toRedis(a))
	if err != nil {
		return nil, oops.Code("ACCOUNT_INSERT_FAILED").With("email", a.Email).Wrap(err)
	}

	txf := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, emailKey, accountKey).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return common.ErrDuplicateKey
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, accountKey, doc, 0)
			pipe.Set(ctx, emailKey, a.ID, 0)
			return nil
		})
		return err
	}

	if err := r.watch(ctx, txf, emailKey, accountKey); err != nil {
		if errors.Is(err, common.ErrDuplicateKey) {
			return nil, oops.Code("ACCOUNT_DUPLICATE").With("email", a.Email).Wrap(err)
		}
		return nil, oops.Code("ACCOUNT_INSERT_FAILED").With("email", a.Email).Wrap(err)
	}

	return clone(a), nil
}

func (r *RedisRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	a, err := r.get(ctx, r.rdb, id)
	if err != nil {
		return nil, redisLookupError(err, "id", id)
	}
	return a, nil
}

func (r *RedisRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.findVia(ctx, redisEmailPrefix+email, "email", email)
}

func (r *RedisRepository) FindByResetTokenHash(ctx context.Context, hash string) (*models.Account, error) {
	return r.findVia(ctx, redisResetPrefix+hash, "by", "reset_token_hash")
}

func (r *RedisRepository) findVia(ctx context.Context, indexKey string, key string, value any) (*models.Account, error) {
	id, err := r.rdb.Get(ctx, indexKey).Result()
	if err != nil {
		return nil, redisLookupError(err, key, value)
	}

	a, err := r.get(ctx, r.rdb, id)
	if err != nil {
		return nil, redisLookupError(err, key, value)
	}
	return a, nil
}

func (r *RedisRepository) Update(ctx context.Context, id string, patch Patch, pre Precondition) (*models.Account, error) {
	accountKey := redisAccountPrefix + id
	var out *models.Account

	txf := func(tx *redis.Tx) error {
		a, err := r.get(ctx, tx, id)
		if err != nil {
			return err
		}
		if !pre.holds(a) {
			return common.ErrPreconditionFailed
		}

		var oldReset string
		if a.Reset != nil {
			oldReset = a.Reset.Hash
		}

		patch.apply(a)

		doc, err := json.Marshal(toRedis(a))
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, accountKey, doc, 0)
			if oldReset != "" && (a.Reset == nil || a.Reset.Hash != oldReset) {
				pipe.Del(ctx, redisResetPrefix+oldReset)
			}
			if a.Reset != nil {
				pipe.Set(ctx, redisResetPrefix+a.Reset.Hash, a.ID, 0)
			}
			return nil
		})
		if err != nil {
			return err
		}

		out = a
		return nil
	}

	err := r.watch(ctx, txf, accountKey)
	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, redis.Nil), errors.Is(err, common.ErrorNotFound):
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("id", id).Wrap(common.ErrorNotFound)
	case errors.Is(err, common.ErrPreconditionFailed):
		return nil, oops.Code("ACCOUNT_PRECONDITION_FAILED").With("account_id", id).Wrap(err)
	default:
		return nil, oops.Code("ACCOUNT_UPDATE_FAILED").With("account_id", id).Wrap(err)
	}
}

// watch runs fn as an optimistic transaction over keys, retrying when another
// client modified a watched key in between.
func (r *RedisRepository) watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	var err error
	for i := 0; i < redisMaxTxAttempts; i++ {
		err = r.rdb.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return err
}

// getter is satisfied by both the client and a watched transaction.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *RedisRepository) get(ctx context.Context, c getter, id string) (*models.Account, error) {
	raw, err := c.Get(ctx, redisAccountPrefix+id).Bytes()
	if err != nil {
		return nil, err
	}

	var ra redisAccount
	if err := json.Unmarshal(raw, &ra); err != nil {
		return nil, err
	}
	return ra.model(), nil
}

func redisLookupError(err error, key string, value any) error {
	if errors.Is(err, redis.Nil) {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With(key, value).
			Wrap(common.ErrorNotFound)
	}
	return oops.Code("ACCOUNT_LOOKUP_FAILED").
		With(key, value).
		Wrap(err)
}
