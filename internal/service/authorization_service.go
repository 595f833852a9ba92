package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"tasktracker/internal/repository"
)

// AuthorizationGate decide si un solicitante puede agregar participantes a una tarea.
type AuthorizationGate struct {
	identities repository.IdentityRepository
}

func NewAuthorizationGate(identities repository.IdentityRepository) *AuthorizationGate {
	return &AuthorizationGate{identities: identities}
}

// AuthorizeParticipants solo controla las altas: los ids que ya estaban en
// existing (o el propio solicitante) no requieren permiso. Para el resto, la
// copia de la relacion del participante hacia el solicitante debe tener CanShare.
func (g *AuthorizationGate) AuthorizeParticipants(ctx context.Context, requesterID string, existing, requested []string) error {
	current := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		current[id] = struct{}{}
	}

	checked := make(map[string]struct{}, len(requested))
	for _, id := range requested {
		if id == requesterID {
			continue
		}
		if _, ok := current[id]; ok {
			continue
		}
		if _, ok := checked[id]; ok {
			continue
		}
		checked[id] = struct{}{}

		peer, err := g.identities.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("participant %s: %w", id, ErrNotFound)
			}
			return err
		}
		rel, ok := peer.Relationship(requesterID)
		if !ok || !rel.CanShare {
			return &UnauthorizedPeerError{PeerID: peer.ID, DisplayName: peer.DisplayName}
		}
	}
	return nil
}
