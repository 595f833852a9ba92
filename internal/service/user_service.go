package service

import (
	"context"
	"errors"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"tasktracker/internal/domain"
	"tasktracker/internal/email"
	"tasktracker/internal/repository"
)

// UserService coordina registro, login, verificacion y reset de contrasenia.
type UserService struct {
	logger      *zap.Logger
	identities  repository.IdentityRepository
	credentials CredentialStore
	tokens      *EphemeralTokenService
	emailSender email.Sender
	baseURL     string
}

func NewUserService(
	logger *zap.Logger,
	identities repository.IdentityRepository,
	credentials CredentialStore,
	tokens *EphemeralTokenService,
	emailSender email.Sender,
	baseURL string,
) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if credentials == nil {
		credentials = NewBcryptCredentialStore(0)
	}
	return &UserService{
		logger:      logger,
		identities:  identities,
		credentials: credentials,
		tokens:      tokens,
		emailSender: emailSender,
		baseURL:     strings.TrimRight(baseURL, "/"),
	}
}

type RegisterInput struct {
	Email       string
	DisplayName string
	Password    string
}

// Register crea una identidad sin verificar y envia el link de verificacion.
// Un fallo de envio no revierte el registro: se puede reenviar con ResendVerification.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (domain.Identity, error) {
	emailAddr, err := validateEmail(input.Email)
	if err != nil {
		return domain.Identity{}, err
	}
	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		return domain.Identity{}, newValidationError("displayName", "The Name field is required.")
	}
	if strings.TrimSpace(input.Password) == "" {
		return domain.Identity{}, newValidationError("password", "The Password field is required.")
	}

	_, err = s.identities.GetByEmail(ctx, emailAddr)
	if err == nil {
		return domain.Identity{}, ErrEmailInUse
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Identity{}, err
	}

	hash, err := s.credentials.Hash(input.Password)
	if err != nil {
		return domain.Identity{}, err
	}

	identity := domain.Identity{
		ID:            uuid.NewString(),
		Email:         emailAddr,
		DisplayName:   displayName,
		PasswordHash:  hash,
		Relationships: domain.Relationships{},
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.identities.Create(ctx, identity); err != nil {
		return domain.Identity{}, err
	}

	if err := s.sendVerification(ctx, identity); err != nil {
		s.logger.Warn("send verification failed", zap.Error(err), zap.String("identity_id", identity.ID))
	}
	return identity, nil
}

func (s *UserService) Authenticate(ctx context.Context, emailAddr, password string) (domain.Identity, error) {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return domain.Identity{}, newValidationError("email", "The \"Email\" field cannot be empty.")
	}
	if password == "" {
		return domain.Identity{}, ErrInvalidCredentials
	}
	identity, err := s.identities.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Identity{}, ErrInvalidCredentials
		}
		return domain.Identity{}, err
	}
	if identity.PasswordHash == "" {
		return domain.Identity{}, ErrInvalidCredentials
	}
	if err := s.credentials.Compare(identity.PasswordHash, password); err != nil {
		return domain.Identity{}, ErrInvalidCredentials
	}
	return identity, nil
}

// ResendVerification emite un token nuevo y lo envia por email.
func (s *UserService) ResendVerification(ctx context.Context, identity domain.Identity) error {
	if identity.Verified {
		return nil
	}
	if err := s.sendVerification(ctx, identity); err != nil {
		s.logger.Warn("send verification failed", zap.Error(err), zap.String("identity_id", identity.ID))
		return ErrEmailSendFailure
	}
	return nil
}

// Verify consume el token y marca verificada a la identidad dueña del token.
func (s *UserService) Verify(ctx context.Context, token string) (domain.Identity, error) {
	identityID, err := s.tokens.ConsumeVerify(ctx, strings.TrimSpace(token))
	if err != nil {
		return domain.Identity{}, err
	}
	if err := s.identities.SetVerified(ctx, identityID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Identity{}, ErrNotFound
		}
		return domain.Identity{}, err
	}
	identity, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Identity{}, ErrNotFound
		}
		return domain.Identity{}, err
	}
	return identity, nil
}

// RequestPasswordReset no informa si el email existe.
func (s *UserService) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	emailAddr, err := validateEmail(emailAddr)
	if err != nil {
		return err
	}
	identity, err := s.identities.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}

	token, err := s.tokens.IssueReset(ctx, identity.ID)
	if err != nil {
		return err
	}
	link := s.baseURL + "/reset/" + url.PathEscape(token) + "?email=" + url.QueryEscape(identity.Email)
	sendErr := ErrEmailSendFailure
	if s.emailSender != nil {
		sendErr = s.emailSender.SendPasswordReset(ctx, identity.Email, link)
	}
	if sendErr != nil {
		// La respuesta es la misma que para un email desconocido; el token que
		// nadie recibio se descarta.
		s.logger.Warn("send password reset failed", zap.Error(sendErr), zap.String("identity_id", identity.ID))
		if err := s.identities.SetResetToken(ctx, identity.ID, "", nil); err != nil {
			s.logger.Error("discard unsent reset token failed", zap.Error(err), zap.String("identity_id", identity.ID))
		}
	}
	return nil
}

// ResetPassword consume el token de reset y guarda la nueva contrasenia.
func (s *UserService) ResetPassword(ctx context.Context, emailAddr, token, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return newValidationError("password", "The Password field is required.")
	}
	emailAddr = normalizeEmail(emailAddr)
	identity, err := s.identities.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTokenNotFound
		}
		return err
	}
	ok, err := s.tokens.ConsumeReset(ctx, identity.ID, token)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTokenNotFound
	}
	hash, err := s.credentials.Hash(newPassword)
	if err != nil {
		return err
	}
	return s.identities.UpdatePassword(ctx, identity.ID, hash)
}

func (s *UserService) sendVerification(ctx context.Context, identity domain.Identity) error {
	token, err := s.tokens.IssueVerify(ctx, identity.ID)
	if err != nil {
		return err
	}
	if s.emailSender == nil {
		return ErrEmailSendFailure
	}
	link := s.baseURL + "/verify/" + url.PathEscape(token)
	return s.emailSender.SendVerification(ctx, identity.Email, link)
}

func validateEmail(raw string) (string, error) {
	emailAddr := normalizeEmail(raw)
	if emailAddr == "" {
		return "", newValidationError("email", "The \"Email\" field cannot be empty.")
	}
	addr, err := mail.ParseAddress(emailAddr)
	if err != nil || addr.Address != emailAddr {
		return "", ErrInvalidEmail
	}
	return emailAddr, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
