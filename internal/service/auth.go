package service

import (
	"context"
	"errors"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"registrar/internal/auth"
	"registrar/internal/config"
	"registrar/internal/crypto"
	"registrar/internal/model"
	"registrar/internal/repository"
)

const defaultRole = "User"

type CredentialStore interface {
	GetCredentialByEmail(ctx context.Context, email string) (model.Credential, error)
	GetCredentialByID(ctx context.Context, id string) (model.Credential, error)
	CreateCredential(ctx context.Context, cred model.Credential) error
}

type SessionStore interface {
	CreateSession(ctx context.Context, session model.RefreshSession) error
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (model.RefreshSession, error)
	RevokeSession(ctx context.Context, sessionID string, revokedAt time.Time) (bool, error)
	RevokeSessionsByCredential(ctx context.Context, credentialID string, revokedAt time.Time) error
}

type AuthStore interface {
	CredentialStore
	SessionStore
}

// Auth orchestrates the register/login/refresh/logout flows against the
// credential hasher, the token issuer and the session store.
type Auth struct {
	cfg   config.Config
	store AuthStore
}

func NewAuth(cfg config.Config, store AuthStore) *Auth {
	return &Auth{cfg: cfg, store: store}
}

type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      string
}

// SessionMeta is recorded alongside each refresh session for audit.
type SessionMeta struct {
	UserAgent string
	IPAddress string
}

// TokenPair is the result of every successful auth flow.
type TokenPair struct {
	UserID                string
	Email                 string
	Role                  string
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
}

func (a *Auth) Register(ctx context.Context, in RegisterInput, meta SessionMeta) (TokenPair, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if !validEmail(email) {
		return TokenPair{}, invalid("email", "email must be well-formed and at most 255 characters")
	}
	if len(in.Password) < 6 {
		return TokenPair{}, invalid("password", "password must be at least 6 characters")
	}
	if strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" {
		return TokenPair{}, invalid("name", "firstName and lastName are required")
	}

	// Duplicate check happens before hashing so a colliding registration
	// never pays for key derivation.
	_, err := a.store.GetCredentialByEmail(ctx, email)
	switch {
	case err == nil:
		return TokenPair{}, ErrEmailTaken
	case !errors.Is(err, repository.ErrNotFound):
		return TokenPair{}, err
	}

	hash, err := crypto.HashPassword(in.Password)
	if err != nil {
		return TokenPair{}, err
	}

	role := strings.TrimSpace(in.Role)
	if role == "" {
		role = defaultRole
	}

	now := time.Now().UTC()
	cred := model.Credential{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.CreateCredential(ctx, cred); err != nil {
		return TokenPair{}, err
	}

	return a.issueTokens(ctx, cred, meta)
}

func (a *Auth) Login(ctx context.Context, email, password string, meta SessionMeta) (TokenPair, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return TokenPair{}, ErrInvalidCredentials
	}

	cred, err := a.store.GetCredentialByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, err
	}

	if !crypto.CheckPassword(cred.PasswordHash, password) {
		return TokenPair{}, ErrInvalidCredentials
	}
	if !cred.Active {
		// Same signal as a bad password, but kept apart in the logs.
		log.Printf("login rejected: credential %s is inactive", cred.ID)
		return TokenPair{}, ErrInvalidCredentials
	}

	return a.issueTokens(ctx, cred, meta)
}

func (a *Auth) Refresh(ctx context.Context, rawToken string, meta SessionMeta) (TokenPair, error) {
	if rawToken == "" {
		return TokenPair{}, ErrSessionInvalid
	}

	session, err := a.store.GetSessionByTokenHash(ctx, crypto.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TokenPair{}, ErrSessionInvalid
		}
		return TokenPair{}, err
	}

	now := time.Now().UTC()
	if session.Revoked() || session.Expired(now) {
		return TokenPair{}, ErrSessionInvalid
	}

	// Rotation: claim the presented session before minting anything.
	// RevokeSession only succeeds for one caller per token, so a
	// concurrent refresh with the same token loses here.
	won, err := a.store.RevokeSession(ctx, session.ID, now)
	if err != nil {
		return TokenPair{}, err
	}
	if !won {
		return TokenPair{}, ErrSessionInvalid
	}

	cred, err := a.store.GetCredentialByID(ctx, session.CredentialID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TokenPair{}, ErrSessionInvalid
		}
		return TokenPair{}, err
	}
	if !cred.Active {
		log.Printf("refresh rejected: credential %s is inactive", cred.ID)
		return TokenPair{}, ErrSessionInvalid
	}

	return a.issueTokens(ctx, cred, meta)
}

// Logout revokes the session behind the presented token. Unknown or
// missing tokens are tolerated; revoking twice is a no-op.
func (a *Auth) Logout(ctx context.Context, rawToken string) error {
	if strings.TrimSpace(rawToken) == "" {
		return nil
	}
	session, err := a.store.GetSessionByTokenHash(ctx, crypto.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	_, err = a.store.RevokeSession(ctx, session.ID, time.Now().UTC())
	return err
}

// LogoutAll revokes every outstanding session of the credential.
func (a *Auth) LogoutAll(ctx context.Context, credentialID string) error {
	return a.store.RevokeSessionsByCredential(ctx, credentialID, time.Now().UTC())
}

func (a *Auth) issueTokens(ctx context.Context, cred model.Credential, meta SessionMeta) (TokenPair, error) {
	accessToken, accessExpiresAt, err := auth.NewAccessToken(a.cfg.JWTSecret, a.cfg.JWTIssuer, a.cfg.AccessTokenTTL, auth.Claims{
		UserID: cred.ID,
		Email:  cred.Email,
		Role:   cred.Role,
	})
	if err != nil {
		return TokenPair{}, err
	}

	refreshToken, err := crypto.NewRefreshToken()
	if err != nil {
		return TokenPair{}, err
	}

	now := time.Now().UTC()
	session := model.RefreshSession{
		ID:           uuid.NewString(),
		CredentialID: cred.ID,
		TokenHash:    crypto.HashToken(refreshToken),
		CreatedAt:    now,
		ExpiresAt:    now.Add(a.cfg.RefreshTokenTTL),
	}
	if meta.UserAgent != "" {
		session.UserAgent = &meta.UserAgent
	}
	if meta.IPAddress != "" {
		session.IPAddress = &meta.IPAddress
	}
	if err := a.store.CreateSession(ctx, session); err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		UserID:                cred.ID,
		Email:                 cred.Email,
		Role:                  cred.Role,
		AccessToken:           accessToken,
		AccessTokenExpiresAt:  accessExpiresAt,
		RefreshToken:          refreshToken,
		RefreshTokenExpiresAt: session.ExpiresAt,
	}, nil
}

func validEmail(email string) bool {
	if email == "" || len(email) > 255 {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
