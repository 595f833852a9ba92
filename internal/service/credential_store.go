package service

import "golang.org/x/crypto/bcrypt"

// CredentialStore hashea y compara contrasenias.
type CredentialStore interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type bcryptCredentialStore struct {
	cost int
}

func NewBcryptCredentialStore(cost int) CredentialStore {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &bcryptCredentialStore{cost: cost}
}

func (s *bcryptCredentialStore) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *bcryptCredentialStore) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
