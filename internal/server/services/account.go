// Package services contains server-side business logic. AccountService
// owns the credential and token lifecycle: registration, login, logout,
// refresh rotation, password change and password reset by email.
package services

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/gophauth/internal/apperr"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/mail"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// AccountService is stateless apart from its collaborators; it is safe for
// concurrent use.
type AccountService struct {
	accounts accounts.Repository
	hasher   *auth.Hasher
	minter   *auth.Minter
	resets   *auth.ResetGenerator
	mailer   mail.Sender
	now      timex.Clock
	logger   logging.Logger

	resetURLBase         string
	resetValidity        string
	maskResetEnumeration bool
	revokeSessions       bool
}

// NewAccountService builds the service from server config. clock may be nil
// to use the system clock.
func NewAccountService(repo accounts.Repository, cfg *config.Config, mailer mail.Sender, logger logging.Logger, clock timex.Clock) *AccountService {
	if clock == nil {
		clock = timex.SystemClock
	}
	return &AccountService{
		accounts: repo,
		hasher:   auth.NewHasher(cfg.PasswordHashCost),
		minter: auth.NewMinter(auth.MinterConfig{
			AccessSecret:  []byte(cfg.AccessTokenSecret),
			RefreshSecret: []byte(cfg.RefreshTokenSecret),
			AccessTTL:     cfg.AccessTokenValidityDuration,
			RefreshTTL:    cfg.RefreshTokenValidityDuration,
		}, clock),
		resets:               auth.NewResetGenerator(cfg.ResetTokenValidityDuration, clock),
		mailer:               mailer,
		now:                  clock,
		logger:               logger.With("module", "accounts"),
		resetURLBase:         cfg.ResetURLBase,
		resetValidity:        cfg.ResetTokenValidityDuration.String(),
		maskResetEnumeration: cfg.MaskResetEnumeration,
		revokeSessions:       cfg.RevokeSessionsOnPasswordChange,
	}
}

// Register creates an account with the default role.
func (s *AccountService) Register(ctx context.Context, name, email, password string) (*Result[RegisterData], error) {
	name = strings.TrimSpace(name)
	email = common.NormalizeEmail(email)

	if name == "" || email == "" || password == "" {
		return nil, missing("name, email and password are required")
	}

	switch _, err := s.accounts.FindByEmail(ctx, email); {
	case err == nil:
		return nil, apperr.New(apperr.CodeEmailInUse)
	case !errors.Is(err, common.ErrorNotFound):
		s.logger.Error(ctx, "register lookup failed", "email", email, "err", err)
		return nil, apperr.Wrap(apperr.CodeStoreUnavailable, err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	account := &models.Account{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		Role:         common.DefaultRole,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := s.accounts.Insert(ctx, account); err != nil {
		if errors.Is(err, common.ErrDuplicateKey) {
			return nil, apperr.Wrap(apperr.CodeEmailInUse, err)
		}
		s.logger.Error(ctx, "register insert failed", "email", email, "err", err)
		return nil, apperr.Wrap(apperr.CodeStoreUnavailable, err)
	}

	s.logger.Info(ctx, "account registered", "account_id", account.ID)

	return &Result[RegisterData]{
		StatusCode: http.StatusCreated,
		Message:    "User created successfully",
		Data:       RegisterData{Name: account.Name, Email: account.Email},
	}, nil
}

// Login verifies credentials and starts a new session, replacing any
// previous refresh token.
func (s *AccountService) Login(ctx context.Context, email, password string) (*Result[LoginData], error) {
	email = common.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, missing("email and password are required")
	}

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, s.storeErr(ctx, "login lookup", err, "email", email)
	}

	ok, err := s.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		s.logger.Error(ctx, "stored digest unreadable", "account_id", account.ID, "err", err)
		return nil, err
	}
	if !ok {
		s.logger.Warn(ctx, "login rejected", "email", email)
		return nil, apperr.New(apperr.CodeInvalidCredentials)
	}

	pair, err := s.issuePair(account)
	if err != nil {
		return nil, err
	}

	updated, err := s.accounts.Update(ctx, account.ID,
		accounts.Patch{RefreshToken: &pair.RefreshToken, UpdatedAt: s.now()},
		accounts.Precondition{})
	if err != nil {
		return nil, s.storeErr(ctx, "login session", err, "account_id", account.ID)
	}

	return &Result[LoginData]{
		StatusCode: http.StatusOK,
		Message:    "User logged in successfully",
		Data: LoginData{
			Account:      updated.Public(),
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
		},
	}, nil
}

// Logout ends the account's session. Calling it without a session is fine.
func (s *AccountService) Logout(ctx context.Context, accountID string) (*Result[Empty], error) {
	if accountID == "" {
		return nil, apperr.New(apperr.CodeUnauthenticated)
	}

	empty := ""
	if _, err := s.accounts.Update(ctx, accountID,
		accounts.Patch{RefreshToken: &empty, UpdatedAt: s.now()},
		accounts.Precondition{}); err != nil {
		return nil, s.storeErr(ctx, "logout", err, "account_id", accountID)
	}

	return &Result[Empty]{StatusCode: http.StatusOK, Message: "User logged out successfully"}, nil
}

// RefreshSession exchanges the current refresh token for a new pair. The
// swap is conditional on the stored token, so a token can be used once.
func (s *AccountService) RefreshSession(ctx context.Context, refreshToken string) (*Result[models.TokenPair], error) {
	if refreshToken == "" {
		return nil, apperr.New(apperr.CodeUnauthenticated)
	}

	claims, err := s.minter.Verify(refreshToken, auth.RefreshToken)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.FindByID(ctx, claims.AccountID())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, apperr.Wrap(apperr.CodeTokenInvalid, err)
		}
		return nil, s.storeErr(ctx, "refresh lookup", err, "account_id", claims.AccountID())
	}

	if account.RefreshToken != refreshToken {
		s.logger.Warn(ctx, "stale refresh token presented", "account_id", account.ID)
		return nil, apperr.New(apperr.CodeSessionSuperseded)
	}

	pair, err := s.issuePair(account)
	if err != nil {
		return nil, err
	}

	_, err = s.accounts.Update(ctx, account.ID,
		accounts.Patch{RefreshToken: &pair.RefreshToken, UpdatedAt: s.now()},
		accounts.Precondition{RefreshToken: &refreshToken})
	if err != nil {
		if errors.Is(err, common.ErrPreconditionFailed) {
			s.logger.Warn(ctx, "refresh lost rotation race", "account_id", account.ID)
			return nil, apperr.Wrap(apperr.CodeSessionSuperseded, err)
		}
		return nil, s.storeErr(ctx, "refresh rotate", err, "account_id", account.ID)
	}

	return &Result[models.TokenPair]{
		StatusCode: http.StatusOK,
		Message:    "Access token refreshed",
		Data:       *pair,
	}, nil
}

// ChangePassword replaces the password of an authenticated account.
func (s *AccountService) ChangePassword(ctx context.Context, accountID, current, next, confirmation string) (*Result[Empty], error) {
	if current == "" || next == "" || confirmation == "" {
		return nil, missing("current, new and confirmation passwords are required")
	}
	if next != confirmation {
		return nil, apperr.New(apperr.CodePasswordMismatch)
	}

	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, s.storeErr(ctx, "change password lookup", err, "account_id", accountID)
	}

	ok, err := s.hasher.Verify(current, account.PasswordHash)
	if err != nil {
		s.logger.Error(ctx, "stored digest unreadable", "account_id", account.ID, "err", err)
		return nil, err
	}
	if !ok {
		return nil, apperr.New(apperr.CodeCurrentPasswordIncorrect)
	}
	if next == current {
		return nil, apperr.New(apperr.CodePasswordUnchanged)
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return nil, err
	}

	patch := accounts.Patch{PasswordHash: &hash, UpdatedAt: s.now()}
	if s.revokeSessions {
		empty := ""
		patch.RefreshToken = &empty
	}

	if _, err := s.accounts.Update(ctx, account.ID, patch, accounts.Precondition{}); err != nil {
		return nil, s.storeErr(ctx, "change password", err, "account_id", account.ID)
	}

	s.logger.Info(ctx, "password changed", "account_id", account.ID)

	return &Result[Empty]{StatusCode: http.StatusOK, Message: "Password changed successfully"}, nil
}

// RequestPasswordReset stores a fresh reset digest and mails the secret to
// the account owner as a link. A previous pending reset is replaced.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) (*Result[Empty], error) {
	email = common.NormalizeEmail(email)
	if email == "" {
		return nil, missing("email is required")
	}

	sent := &Result[Empty]{StatusCode: http.StatusOK, Message: "Password reset email sent"}

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if s.maskResetEnumeration && errors.Is(err, common.ErrorNotFound) {
			s.logger.Info(ctx, "reset requested for unknown email", "email", email)
			return sent, nil
		}
		return nil, s.storeErr(ctx, "reset lookup", err, "email", email)
	}

	token, err := s.resets.Generate()
	if err != nil {
		return nil, err
	}

	if _, err := s.accounts.Update(ctx, account.ID,
		accounts.Patch{
			SetReset:  &models.ResetToken{Hash: token.Digest, ExpiresAt: token.ExpiresAt},
			UpdatedAt: s.now(),
		},
		accounts.Precondition{}); err != nil {
		return nil, s.storeErr(ctx, "reset store", err, "account_id", account.ID)
	}

	body, err := mail.RenderReset(mail.ResetMessage{
		Name:     account.Name,
		Link:     mail.ResetLink(s.resetURLBase, token.Secret),
		Validity: s.resetValidity,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err)
	}

	// the stored digest stays in place when delivery fails; a new request
	// replaces it
	if err := s.mailer.Send(ctx, account.Email, mail.ResetSubject, body); err != nil {
		s.logger.Error(ctx, "reset email delivery failed", "email", account.Email, "err", err)
		return nil, apperr.Wrap(apperr.CodeDeliveryFailed, err)
	}

	s.logger.Info(ctx, "reset email sent", "account_id", account.ID)

	return sent, nil
}

// RedeemPasswordReset sets a new password using a mailed reset secret. The
// digest is cleared in the same conditional write, so a secret works once.
func (s *AccountService) RedeemPasswordReset(ctx context.Context, secret, newPassword string) (*Result[Empty], error) {
	if secret == "" || newPassword == "" {
		return nil, missing("reset token and new password are required")
	}

	digest := auth.DigestOf(secret)

	account, err := s.accounts.FindByResetTokenHash(ctx, digest)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, apperr.Wrap(apperr.CodeResetTokenNotFound, err)
		}
		return nil, s.storeErr(ctx, "reset redeem lookup", err)
	}

	if account.Reset == nil {
		return nil, apperr.New(apperr.CodeResetTokenNotFound)
	}
	if s.now().After(account.Reset.ExpiresAt) {
		return nil, apperr.New(apperr.CodeResetTokenExpired)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, err
	}

	patch := accounts.Patch{PasswordHash: &hash, ClearReset: true, UpdatedAt: s.now()}
	if s.revokeSessions {
		empty := ""
		patch.RefreshToken = &empty
	}

	_, err = s.accounts.Update(ctx, account.ID, patch, accounts.Precondition{ResetTokenHash: &digest})
	if err != nil {
		if errors.Is(err, common.ErrPreconditionFailed) || errors.Is(err, common.ErrorNotFound) {
			return nil, apperr.Wrap(apperr.CodeResetTokenNotFound, err)
		}
		return nil, s.storeErr(ctx, "reset redeem", err, "account_id", account.ID)
	}

	s.logger.Info(ctx, "password reset", "account_id", account.ID)

	return &Result[Empty]{StatusCode: http.StatusOK, Message: "Password reset successfully"}, nil
}

// Authenticate resolves an access token to its claims. The account must
// still exist.
func (s *AccountService) Authenticate(ctx context.Context, accessToken string) (*auth.Claims, error) {
	if accessToken == "" {
		return nil, apperr.New(apperr.CodeUnauthenticated)
	}

	claims, err := s.minter.Verify(accessToken, auth.AccessToken)
	if err != nil {
		return nil, err
	}

	if _, err := s.accounts.FindByID(ctx, claims.AccountID()); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, apperr.Wrap(apperr.CodeTokenInvalid, err)
		}
		return nil, s.storeErr(ctx, "authenticate lookup", err, "account_id", claims.AccountID())
	}

	return claims, nil
}

// Me returns the public view of an authenticated account.
func (s *AccountService) Me(ctx context.Context, accountID string) (*Result[models.PublicAccount], error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, s.storeErr(ctx, "me lookup", err, "account_id", accountID)
	}

	return &Result[models.PublicAccount]{
		StatusCode: http.StatusOK,
		Message:    "Current account",
		Data:       account.Public(),
	}, nil
}

func (s *AccountService) issuePair(account *models.Account) (*models.TokenPair, error) {
	access, err := s.minter.IssueAccessToken(account.ID, account.Email, account.Name)
	if err != nil {
		return nil, err
	}
	refresh, err := s.minter.IssueRefreshToken(account.ID)
	if err != nil {
		return nil, err
	}
	return &models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// storeErr maps repository failures onto the taxonomy. Only lookups by id or
// email reach here, so ErrorNotFound always means an unknown account.
func (s *AccountService) storeErr(ctx context.Context, op string, err error, args ...any) error {
	if errors.Is(err, common.ErrorNotFound) {
		return apperr.Wrap(apperr.CodeAccountNotFound, err)
	}
	s.logger.Error(ctx, op+" failed", append(args, "err", err)...)
	return apperr.Wrap(apperr.CodeStoreUnavailable, err)
}

func missing(msg string) error {
	return &apperr.Error{Code: apperr.CodeMissingInput, Message: msg}
}
