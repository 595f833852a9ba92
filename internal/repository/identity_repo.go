package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tasktracker/internal/domain"
)

// IdentityRepository define el contrato de persistencia para identidades.
// Cada identidad es un documento independiente: no hay transacciones entre documentos.
type IdentityRepository interface {
	Create(ctx context.Context, identity domain.Identity) error
	GetByID(ctx context.Context, id string) (domain.Identity, error)
	GetByEmail(ctx context.Context, email string) (domain.Identity, error)
	ListIDs(ctx context.Context) ([]string, error)
	UpdateRelationships(ctx context.Context, id string, rels domain.Relationships) error
	SetVerified(ctx context.Context, id string) error
	SetResetToken(ctx context.Context, id, tokenHash string, issuedAt *time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// PgIdentityRepository implementa IdentityRepository usando pgxpool.
// El mapa de relaciones vive en una columna JSONB y se reescribe completo.
type PgIdentityRepository struct {
	pool *pgxpool.Pool
}

func NewPgIdentityRepository(pool *pgxpool.Pool) *PgIdentityRepository {
	return &PgIdentityRepository{pool: pool}
}

const identityColumns = `id, email, display_name, password_hash, verified,
		COALESCE(reset_token_hash, ''), reset_issued_at, relationships, created_at`

func (r *PgIdentityRepository) Create(ctx context.Context, identity domain.Identity) error {
	const query = `
		INSERT INTO identities (id, email, display_name, password_hash, verified, relationships, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	rels := identity.Relationships
	if rels == nil {
		rels = domain.Relationships{}
	}
	_, err := r.pool.Exec(ctx, query,
		identity.ID,
		identity.Email,
		identity.DisplayName,
		identity.PasswordHash,
		identity.Verified,
		rels,
		identity.CreatedAt,
	)
	return err
}

func (r *PgIdentityRepository) GetByID(ctx context.Context, id string) (domain.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE id = $1`
	return scanIdentity(r.pool.QueryRow(ctx, query, id))
}

func (r *PgIdentityRepository) GetByEmail(ctx context.Context, email string) (domain.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE email = $1`
	return scanIdentity(r.pool.QueryRow(ctx, query, email))
}

func (r *PgIdentityRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM identities ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *PgIdentityRepository) UpdateRelationships(ctx context.Context, id string, rels domain.Relationships) error {
	if rels == nil {
		rels = domain.Relationships{}
	}
	return r.exec(ctx, `UPDATE identities SET relationships = $2 WHERE id = $1`, id, rels)
}

func (r *PgIdentityRepository) SetVerified(ctx context.Context, id string) error {
	return r.exec(ctx, `UPDATE identities SET verified = TRUE WHERE id = $1`, id)
}

func (r *PgIdentityRepository) SetResetToken(ctx context.Context, id, tokenHash string, issuedAt *time.Time) error {
	var hash *string
	if tokenHash != "" {
		hash = &tokenHash
	}
	return r.exec(ctx, `UPDATE identities SET reset_token_hash = $2, reset_issued_at = $3 WHERE id = $1`, id, hash, issuedAt)
}

func (r *PgIdentityRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.exec(ctx, `UPDATE identities SET password_hash = $2 WHERE id = $1`, id, passwordHash)
}

func (r *PgIdentityRepository) exec(ctx context.Context, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanIdentity(row pgx.Row) (domain.Identity, error) {
	var i domain.Identity
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.DisplayName,
		&i.PasswordHash,
		&i.Verified,
		&i.ResetTokenHash,
		&i.ResetIssuedAt,
		&i.Relationships,
		&i.CreatedAt,
	)
	if err != nil {
		return domain.Identity{}, err
	}
	if i.Relationships == nil {
		i.Relationships = domain.Relationships{}
	}
	return i, nil
}
