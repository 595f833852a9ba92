package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"tasktracker/internal/domain"
)

// MemoryIdentityRepository guarda identidades en memoria. Devuelve copias
// para reproducir la semantica de leer-modificar-escribir de un almacen de documentos.
type MemoryIdentityRepository struct {
	mu      sync.Mutex
	byID    map[string]domain.Identity
	byEmail map[string]string
}

func NewMemoryIdentityRepository() *MemoryIdentityRepository {
	return &MemoryIdentityRepository{
		byID:    make(map[string]domain.Identity),
		byEmail: make(map[string]string),
	}
}

func (m *MemoryIdentityRepository) Create(_ context.Context, identity domain.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[identity.ID] = copyIdentity(identity)
	m.byEmail[identity.Email] = identity.ID
	return nil
}

func (m *MemoryIdentityRepository) GetByID(_ context.Context, id string) (domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	identity, ok := m.byID[id]
	if !ok {
		return domain.Identity{}, pgx.ErrNoRows
	}
	return copyIdentity(identity), nil
}

func (m *MemoryIdentityRepository) GetByEmail(ctx context.Context, email string) (domain.Identity, error) {
	m.mu.Lock()
	id, ok := m.byEmail[email]
	m.mu.Unlock()
	if !ok {
		return domain.Identity{}, pgx.ErrNoRows
	}
	return m.GetByID(ctx, id)
}

func (m *MemoryIdentityRepository) ListIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.byID))
	for id := range m.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MemoryIdentityRepository) UpdateRelationships(_ context.Context, id string, rels domain.Relationships) error {
	return m.update(id, func(i *domain.Identity) {
		i.Relationships = rels.Clone()
	})
}

func (m *MemoryIdentityRepository) SetVerified(_ context.Context, id string) error {
	return m.update(id, func(i *domain.Identity) {
		i.Verified = true
	})
}

func (m *MemoryIdentityRepository) SetResetToken(_ context.Context, id, tokenHash string, issuedAt *time.Time) error {
	return m.update(id, func(i *domain.Identity) {
		i.ResetTokenHash = tokenHash
		i.ResetIssuedAt = issuedAt
	})
}

func (m *MemoryIdentityRepository) UpdatePassword(_ context.Context, id, passwordHash string) error {
	return m.update(id, func(i *domain.Identity) {
		i.PasswordHash = passwordHash
	})
}

// Delete elimina el documento; solo lo usan pruebas y tareas administrativas.
func (m *MemoryIdentityRepository) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if identity, ok := m.byID[id]; ok {
		delete(m.byEmail, identity.Email)
		delete(m.byID, id)
	}
}

func (m *MemoryIdentityRepository) update(id string, fn func(*domain.Identity)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	identity, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	fn(&identity)
	m.byID[id] = identity
	return nil
}

func copyIdentity(i domain.Identity) domain.Identity {
	i.Relationships = i.Relationships.Clone()
	if i.ResetIssuedAt != nil {
		at := *i.ResetIssuedAt
		i.ResetIssuedAt = &at
	}
	return i
}

// MemoryTaskRepository guarda tareas en memoria.
type MemoryTaskRepository struct {
	mu    sync.Mutex
	tasks map[string]domain.Task
}

func NewMemoryTaskRepository() *MemoryTaskRepository {
	return &MemoryTaskRepository{tasks: make(map[string]domain.Task)}
}

func (m *MemoryTaskRepository) Save(_ context.Context, task domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	task.Participants = append([]string(nil), task.Participants...)
	m.tasks[task.ID] = task
	return nil
}

func (m *MemoryTaskRepository) GetByID(_ context.Context, id string) (domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return domain.Task{}, pgx.ErrNoRows
	}
	task.Participants = append([]string(nil), task.Participants...)
	return task, nil
}

func (m *MemoryTaskRepository) ListByParticipant(_ context.Context, identityID string) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Task
	for _, task := range m.tasks {
		if task.HasParticipant(identityID) {
			task.Participants = append([]string(nil), task.Participants...)
			out = append(out, task)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndDate.Before(out[j].EndDate) })
	return out, nil
}

func (m *MemoryTaskRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, id)
	return nil
}

func (m *MemoryTaskRepository) DeleteVacant(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, task := range m.tasks {
		if len(task.Participants) == 0 {
			delete(m.tasks, id)
			n++
		}
	}
	return n, nil
}
