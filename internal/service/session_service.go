package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"tasktracker/internal/domain"
	"tasktracker/internal/repository"
)

// Session es el resultado de resolver un token: la identidad y el token renovado.
type Session struct {
	Identity  domain.Identity
	Token     string
	ExpiresAt time.Time
}

// SessionManager valida y rota el token de sesion en cada request.
// No hay tabla de sesiones: el token firmado es la unica fuente.
type SessionManager struct {
	identities repository.IdentityRepository
	tokens     *JWTService
}

func NewSessionManager(identities repository.IdentityRepository, tokens *JWTService) *SessionManager {
	return &SessionManager{identities: identities, tokens: tokens}
}

func (m *SessionManager) TTL() time.Duration {
	return m.tokens.TTL()
}

// Resolve valida rawToken, carga la identidad por el email del token y emite
// un token nuevo. Con una identidad sin verificar devuelve ErrVerificationRequired
// junto con la identidad, salvo que allowUnverified sea true.
func (m *SessionManager) Resolve(ctx context.Context, rawToken string, allowUnverified bool) (Session, error) {
	claims, err := m.tokens.Parse(rawToken)
	if err != nil {
		return Session{}, err
	}

	identity, err := m.identities.GetByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrUserGone
		}
		return Session{}, err
	}

	if !identity.Verified && !allowUnverified {
		return Session{Identity: identity}, ErrVerificationRequired
	}

	return m.Issue(identity)
}

// Issue firma un token nuevo para identity.
func (m *SessionManager) Issue(identity domain.Identity) (Session, error) {
	token, expiresAt, err := m.tokens.Sign(identity.Email)
	if err != nil {
		return Session{}, err
	}
	return Session{Identity: identity, Token: token, ExpiresAt: expiresAt}, nil
}
