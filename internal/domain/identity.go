package domain

import "time"

// PeerRelationship es la copia propia de una relacion con otra identidad.
// CanShare indica si el duenio permite que ese par lo agregue a sus tareas.
type PeerRelationship struct {
	CanShare bool `json:"canShare"`
}

// Relationships mapea id de par -> relacion.
type Relationships map[string]PeerRelationship

type Identity struct {
	ID             string        `json:"id"`
	Email          string        `json:"email"`
	DisplayName    string        `json:"display_name"`
	PasswordHash   string        `json:"-"`
	Verified       bool          `json:"verified"`
	ResetTokenHash string        `json:"-"`
	ResetIssuedAt  *time.Time    `json:"-"`
	Relationships  Relationships `json:"relationships"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Relationship devuelve la copia propia de la relacion con peerID.
func (i Identity) Relationship(peerID string) (PeerRelationship, bool) {
	if i.Relationships == nil {
		return PeerRelationship{}, false
	}
	rel, ok := i.Relationships[peerID]
	return rel, ok
}

// Clone copia el mapa de relaciones para poder mutarlo sin afectar al original.
func (r Relationships) Clone() Relationships {
	out := make(Relationships, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
