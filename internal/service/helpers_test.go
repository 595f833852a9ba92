package service

import (
	"context"
	"testing"
	"time"

	"tasktracker/internal/domain"
	"tasktracker/internal/repository"
)

func seedIdentity(t *testing.T, repo *repository.MemoryIdentityRepository, id, email, name string) domain.Identity {
	t.Helper()
	identity := domain.Identity{
		ID:            id,
		Email:         email,
		DisplayName:   name,
		Verified:      true,
		Relationships: domain.Relationships{},
		CreatedAt:     time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), identity); err != nil {
		t.Fatalf("seed identity %s: %v", id, err)
	}
	return identity
}

func mustGet(t *testing.T, repo *repository.MemoryIdentityRepository, id string) domain.Identity {
	t.Helper()
	identity, err := repo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get identity %s: %v", id, err)
	}
	return identity
}

func fixedClock(now time.Time) func() time.Time {
	return func() time.Time { return now }
}
