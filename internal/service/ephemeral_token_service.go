package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"tasktracker/internal/domain"
	"tasktracker/internal/repository"
)

const defaultEphemeralTTL = 72 * time.Hour

// EphemeralTokenService emite y consume tokens de un solo uso.
// Los de verificacion viven en un VerifyTokenStore; el de reset se persiste
// como hash en la propia identidad (uno vigente por identidad).
type EphemeralTokenService struct {
	identities repository.IdentityRepository
	verify     VerifyTokenStore
	ttl        time.Duration
	now        func() time.Time
}

func NewEphemeralTokenService(identities repository.IdentityRepository, verify VerifyTokenStore, ttl time.Duration) *EphemeralTokenService {
	if verify == nil {
		verify = NewMemoryVerifyTokenStore()
	}
	if ttl <= 0 {
		ttl = defaultEphemeralTTL
	}
	return &EphemeralTokenService{
		identities: identities,
		verify:     verify,
		ttl:        ttl,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *EphemeralTokenService) IssueVerify(ctx context.Context, identityID string) (string, error) {
	secret, err := newSecret()
	if err != nil {
		return "", err
	}
	err = s.verify.Issue(ctx, domain.EphemeralToken{
		Token:      secret,
		IdentityID: identityID,
		CreatedAt:  s.now(),
		Kind:       domain.TokenKindVerify,
	})
	if err != nil {
		return "", err
	}
	return secret, nil
}

// ConsumeVerify devuelve el id de la identidad del token y lo invalida.
func (s *EphemeralTokenService) ConsumeVerify(ctx context.Context, token string) (string, error) {
	entry, err := s.verify.Consume(ctx, token, s.now(), s.ttl)
	if err != nil {
		return "", err
	}
	return entry.IdentityID, nil
}

// SweepVerify descarta tokens vencidos.
func (s *EphemeralTokenService) SweepVerify(ctx context.Context) (int, error) {
	return s.verify.Sweep(ctx, s.now(), s.ttl)
}

// IssueReset reemplaza el token de reset vigente de la identidad.
func (s *EphemeralTokenService) IssueReset(ctx context.Context, identityID string) (string, error) {
	secret, err := newSecret()
	if err != nil {
		return "", err
	}
	issuedAt := s.now()
	if err := s.identities.SetResetToken(ctx, identityID, hashSecret(secret), &issuedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return secret, nil
}

// ConsumeReset compara token con el hash persistido y, si coincide, lo borra.
func (s *EphemeralTokenService) ConsumeReset(ctx context.Context, identityID, token string) (bool, error) {
	identity, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	if identity.ResetTokenHash == "" || identity.ResetIssuedAt == nil || token == "" {
		return false, nil
	}
	if s.now().Sub(*identity.ResetIssuedAt) > s.ttl {
		return false, nil
	}
	if subtle.ConstantTimeCompare([]byte(hashSecret(token)), []byte(identity.ResetTokenHash)) != 1 {
		return false, nil
	}
	if err := s.identities.SetResetToken(ctx, identityID, "", nil); err != nil {
		return false, err
	}
	return true, nil
}

func newSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func hashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
