package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"tasktracker/internal/domain"
	"tasktracker/internal/repository"
)

// RelationshipGraph administra las relaciones entre identidades. Cada relacion
// se guarda dos veces, una en cada documento, y se escribe sin transaccion:
// si la segunda escritura falla la relacion queda asimetrica. Audit la detecta.
type RelationshipGraph struct {
	logger     *zap.Logger
	identities repository.IdentityRepository
}

func NewRelationshipGraph(logger *zap.Logger, identities repository.IdentityRepository) *RelationshipGraph {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RelationshipGraph{logger: logger, identities: identities}
}

// Invite conecta al solicitante con la identidad de targetEmail. El solicitante
// permite compartir con el invitado; el invitado arranca sin permitirlo.
func (g *RelationshipGraph) Invite(ctx context.Context, requesterID, targetEmail string) (domain.Identity, error) {
	targetEmail = normalizeEmail(targetEmail)
	if targetEmail == "" {
		return domain.Identity{}, newValidationError("email", "The \"Email\" field cannot be empty.")
	}

	requester, err := g.load(ctx, requesterID)
	if err != nil {
		return domain.Identity{}, err
	}
	if requester.Email == targetEmail {
		return domain.Identity{}, ErrInvalidSelf
	}

	target, err := g.identities.GetByEmail(ctx, targetEmail)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Identity{}, ErrNotFound
		}
		return domain.Identity{}, err
	}

	if _, ok := requester.Relationship(target.ID); ok {
		return domain.Identity{}, ErrDuplicate
	}
	if _, ok := target.Relationship(requester.ID); ok {
		return domain.Identity{}, ErrDuplicate
	}

	requesterRels := requester.Relationships.Clone()
	requesterRels[target.ID] = domain.PeerRelationship{CanShare: true}
	if err := g.identities.UpdateRelationships(ctx, requester.ID, requesterRels); err != nil {
		return domain.Identity{}, err
	}

	targetRels := target.Relationships.Clone()
	targetRels[requester.ID] = domain.PeerRelationship{CanShare: false}
	if err := g.identities.UpdateRelationships(ctx, target.ID, targetRels); err != nil {
		g.logger.Error("relationship dual-write incomplete",
			zap.String("owner_id", requester.ID),
			zap.String("peer_id", target.ID),
			zap.Error(err),
		)
		return domain.Identity{}, err
	}

	return target, nil
}

// SetSharePermission modifica solo la copia del duenio.
func (g *RelationshipGraph) SetSharePermission(ctx context.Context, ownerID, peerID string, canShare bool) error {
	owner, err := g.load(ctx, ownerID)
	if err != nil {
		return err
	}
	rel, ok := owner.Relationship(peerID)
	if !ok {
		return ErrNotFound
	}
	if rel.CanShare == canShare {
		return nil
	}
	rels := owner.Relationships.Clone()
	rels[peerID] = domain.PeerRelationship{CanShare: canShare}
	return g.identities.UpdateRelationships(ctx, owner.ID, rels)
}

// Revoke borra la relacion de ambos lados. Si el documento del par ya no
// existe se considera revocada de ese lado.
func (g *RelationshipGraph) Revoke(ctx context.Context, ownerID, peerID string) error {
	owner, err := g.load(ctx, ownerID)
	if err != nil {
		return err
	}
	if _, ok := owner.Relationship(peerID); ok {
		rels := owner.Relationships.Clone()
		delete(rels, peerID)
		if err := g.identities.UpdateRelationships(ctx, owner.ID, rels); err != nil {
			return err
		}
	}

	peer, err := g.identities.GetByID(ctx, peerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	if _, ok := peer.Relationship(owner.ID); !ok {
		return nil
	}
	rels := peer.Relationships.Clone()
	delete(rels, owner.ID)
	if err := g.identities.UpdateRelationships(ctx, peer.ID, rels); err != nil {
		g.logger.Error("relationship dual-write incomplete",
			zap.String("owner_id", owner.ID),
			zap.String("peer_id", peer.ID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// List devuelve los pares del duenio. CanBeSharedWith se lee de la copia del par.
func (g *RelationshipGraph) List(ctx context.Context, ownerID string) ([]domain.Peer, error) {
	owner, err := g.load(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	peers := make([]domain.Peer, 0, len(owner.Relationships))
	for peerID, rel := range owner.Relationships {
		peer, err := g.identities.GetByID(ctx, peerID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				g.logger.Warn("relationship points to missing identity",
					zap.String("owner_id", owner.ID),
					zap.String("peer_id", peerID),
				)
				continue
			}
			return nil, err
		}
		back, _ := peer.Relationship(owner.ID)
		peers = append(peers, domain.Peer{
			ID:              peer.ID,
			DisplayName:     peer.DisplayName,
			Email:           peer.Email,
			CanShare:        rel.CanShare,
			CanBeSharedWith: back.CanShare,
		})
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i].Email < peers[j].Email })
	return peers, nil
}

// Backfill agrega una relacion por defecto (sin permiso) con cada participante
// que el duenio todavia no conoce. Es idempotente: no pisa entradas existentes.
func (g *RelationshipGraph) Backfill(ctx context.Context, ownerID string, participantIDs []string) error {
	owner, err := g.load(ctx, ownerID)
	if err != nil {
		return err
	}

	rels := owner.Relationships.Clone()
	added := 0
	var peersWritten []string
	for _, id := range participantIDs {
		if id == "" || id == owner.ID {
			continue
		}
		if _, ok := rels[id]; ok {
			continue
		}
		peer, err := g.identities.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return err
		}
		if _, ok := peer.Relationship(owner.ID); !ok {
			peerRels := peer.Relationships.Clone()
			peerRels[owner.ID] = domain.PeerRelationship{CanShare: false}
			if err := g.identities.UpdateRelationships(ctx, peer.ID, peerRels); err != nil {
				return err
			}
			peersWritten = append(peersWritten, peer.ID)
		}
		rels[id] = domain.PeerRelationship{CanShare: false}
		added++
	}

	if added == 0 {
		return nil
	}
	if err := g.identities.UpdateRelationships(ctx, owner.ID, rels); err != nil {
		if len(peersWritten) > 0 {
			g.logger.Error("relationship dual-write incomplete",
				zap.String("owner_id", owner.ID),
				zap.Strings("peer_ids", peersWritten),
				zap.Error(err),
			)
		}
		return err
	}
	return nil
}

// AsymmetricRelationship es una relacion presente en un solo documento.
type AsymmetricRelationship struct {
	OwnerID     string
	PeerID      string
	PeerMissing bool
}

func (a AsymmetricRelationship) String() string {
	if a.PeerMissing {
		return fmt.Sprintf("%s -> %s (peer identity missing)", a.OwnerID, a.PeerID)
	}
	return fmt.Sprintf("%s -> %s (no entry back)", a.OwnerID, a.PeerID)
}

// Audit recorre todas las identidades y reporta relaciones asimetricas. No repara nada.
func (g *RelationshipGraph) Audit(ctx context.Context) ([]AsymmetricRelationship, error) {
	ids, err := g.identities.ListIDs(ctx)
	if err != nil {
		return nil, err
	}

	cache := make(map[string]domain.Identity, len(ids))
	get := func(id string) (domain.Identity, bool, error) {
		if identity, ok := cache[id]; ok {
			return identity, true, nil
		}
		identity, err := g.identities.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.Identity{}, false, nil
			}
			return domain.Identity{}, false, err
		}
		cache[id] = identity
		return identity, true, nil
	}

	var out []AsymmetricRelationship
	for _, id := range ids {
		owner, ok, err := get(id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		peerIDs := make([]string, 0, len(owner.Relationships))
		for peerID := range owner.Relationships {
			peerIDs = append(peerIDs, peerID)
		}
		sort.Strings(peerIDs)
		for _, peerID := range peerIDs {
			peer, ok, err := get(peerID)
			if err != nil {
				return nil, err
			}
			if !ok {
				out = append(out, AsymmetricRelationship{OwnerID: owner.ID, PeerID: peerID, PeerMissing: true})
				continue
			}
			if _, back := peer.Relationship(owner.ID); !back {
				out = append(out, AsymmetricRelationship{OwnerID: owner.ID, PeerID: peerID})
			}
		}
	}
	return out, nil
}

func (g *RelationshipGraph) load(ctx context.Context, id string) (domain.Identity, error) {
	identity, err := g.identities.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Identity{}, ErrNotFound
		}
		return domain.Identity{}, err
	}
	return identity, nil
}
