package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultSessionTTL = 7 * 24 * time.Hour

// JWTService firma y valida el token de sesion. El unico dato de identidad
// que viaja en el token es el email.
type JWTService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func NewJWTService(secret string, ttl time.Duration) *JWTService {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &JWTService{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: "tasktracker",
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *JWTService) TTL() time.Duration {
	return s.ttl
}

// Sign emite un token nuevo para email con vencimiento deslizante.
// Cada token lleva un jti distinto, por lo que dos emisiones nunca coinciden.
func (s *JWTService) Sign(email string) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, ErrSessionInvalid
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return "", time.Time{}, ErrSessionInvalid
	}
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Parse valida firma y vencimiento.
func (s *JWTService) Parse(tokenString string) (Claims, error) {
	if len(s.secret) == 0 {
		return Claims{}, ErrSessionInvalid
	}
	if strings.TrimSpace(tokenString) == "" {
		return Claims{}, ErrSessionMissing
	}
	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrSessionExpired
		}
		return Claims{}, ErrSessionInvalid
	}
	if strings.TrimSpace(claims.Email) == "" {
		return Claims{}, ErrSessionInvalid
	}
	return claims, nil
}
