package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"tasktracker/internal/domain"
)

// VerifyTokenStore guarda tokens de verificacion de email pendientes.
type VerifyTokenStore interface {
	Issue(ctx context.Context, token domain.EphemeralToken) error
	Consume(ctx context.Context, token string, now time.Time, ttl time.Duration) (domain.EphemeralToken, error)
	Sweep(ctx context.Context, now time.Time, ttl time.Duration) (int, error)
}

// memoryVerifyTokenStore es una lista en memoria del proceso. No se comparte
// entre instancias: un token emitido en un proceso no se puede consumir en otro.
type memoryVerifyTokenStore struct {
	mu      sync.Mutex
	entries []domain.EphemeralToken
}

func NewMemoryVerifyTokenStore() VerifyTokenStore {
	return &memoryVerifyTokenStore{}
}

func (s *memoryVerifyTokenStore) Issue(_ context.Context, token domain.EphemeralToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, token)
	return nil
}

// Consume recorre la lista descartando entradas vencidas y elimina el token encontrado.
func (s *memoryVerifyTokenStore) Consume(_ context.Context, token string, now time.Time, ttl time.Duration) (domain.EphemeralToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		found   domain.EphemeralToken
		matched bool
		expired bool
	)
	kept := s.entries[:0]
	for _, entry := range s.entries {
		isMatch := !matched && entry.Token == token
		if entry.Expired(now, ttl) {
			if isMatch {
				expired = true
				matched = true
			}
			continue
		}
		if isMatch {
			found = entry
			matched = true
			continue
		}
		kept = append(kept, entry)
	}
	s.entries = kept

	switch {
	case expired:
		return domain.EphemeralToken{}, ErrTokenExpired
	case !matched:
		return domain.EphemeralToken{}, ErrTokenNotFound
	}
	return found, nil
}

func (s *memoryVerifyTokenStore) Sweep(_ context.Context, now time.Time, ttl time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0]
	removed := 0
	for _, entry := range s.entries {
		if entry.Expired(now, ttl) {
			removed++
			continue
		}
		kept = append(kept, entry)
	}
	s.entries = kept
	return removed, nil
}

type redisKV interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	GetDel(ctx context.Context, key string) *redis.StringCmd
}

// redisVerifyTokenStore comparte los tokens entre procesos. El vencimiento
// lo aplica redis con el TTL de la clave; GETDEL garantiza un solo uso.
type redisVerifyTokenStore struct {
	client redisKV
	prefix string
	ttl    time.Duration
}

func NewRedisVerifyTokenStore(client *redis.Client, ttl time.Duration) VerifyTokenStore {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultEphemeralTTL
	}
	return &redisVerifyTokenStore{
		client: client,
		prefix: "verify:",
		ttl:    ttl,
	}
}

func (s *redisVerifyTokenStore) Issue(ctx context.Context, token domain.EphemeralToken) error {
	key := strings.TrimSpace(token.Token)
	if key == "" {
		return ErrTokenNotFound
	}
	payload, err := json.Marshal(token)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return s.client.Set(ctx, s.prefix+key, payload, s.ttl).Err()
}

func (s *redisVerifyTokenStore) Consume(ctx context.Context, token string, now time.Time, ttl time.Duration) (domain.EphemeralToken, error) {
	key := strings.TrimSpace(token)
	if key == "" {
		return domain.EphemeralToken{}, ErrTokenNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	raw, err := s.client.GetDel(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.EphemeralToken{}, ErrTokenNotFound
		}
		return domain.EphemeralToken{}, err
	}
	var entry domain.EphemeralToken
	if err := json.Unmarshal(raw, &entry); err != nil {
		return domain.EphemeralToken{}, err
	}
	if entry.Expired(now, ttl) {
		return domain.EphemeralToken{}, ErrTokenExpired
	}
	return entry, nil
}

// Sweep no hace nada: redis expira las claves solo.
func (s *redisVerifyTokenStore) Sweep(context.Context, time.Time, time.Duration) (int, error) {
	return 0, nil
}
