package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tasktracker/internal/domain"
	"tasktracker/internal/service"
)

// PeopleHandler expone el grafo de relaciones de la identidad en sesion.
type PeopleHandler struct {
	logger *zap.Logger
	graph  *service.RelationshipGraph
}

func NewPeopleHandler(logger *zap.Logger, graph *service.RelationshipGraph) *PeopleHandler {
	return &PeopleHandler{logger: logger, graph: graph}
}

type peerRequest struct {
	ID       string `json:"id"`
	CanShare *bool  `json:"canShare"`
}

// List maneja GET /people. Separa los pedidos pendientes del resto.
func (h *PeopleHandler) List(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	peers, err := h.graph.List(c.Request.Context(), identity.ID)
	if err != nil {
		respondError(c, h.logger, "list people", err)
		return
	}

	people := make([]domain.Peer, 0, len(peers))
	pending := make([]domain.Peer, 0)
	for _, peer := range peers {
		if peer.Pending() {
			pending = append(pending, peer)
			continue
		}
		people = append(people, peer)
	}
	c.JSON(http.StatusOK, gin.H{"people": people, "pending": pending})
}

// Invite maneja POST /people. Una invitacion repetida no es un error.
func (h *PeopleHandler) Invite(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "The request body is not valid JSON.")
		return
	}

	target, err := h.graph.Invite(c.Request.Context(), identity.ID, req.Email)
	if errors.Is(err, service.ErrDuplicate) {
		c.Status(http.StatusOK)
		return
	}
	if err != nil {
		respondError(c, h.logger, "invite", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": target.ID, "email": target.Email, "display_name": target.DisplayName})
}

// SetPermission maneja PATCH /people.
func (h *PeopleHandler) SetPermission(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	var req peerRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ID == "" || req.CanShare == nil {
		badRequest(c, "The \"id\" and \"canShare\" fields are required.")
		return
	}
	if err := h.graph.SetSharePermission(c.Request.Context(), identity.ID, req.ID, *req.CanShare); err != nil {
		respondError(c, h.logger, "set share permission", err)
		return
	}
	c.Status(http.StatusOK)
}

// Approve maneja POST /people/approve.
func (h *PeopleHandler) Approve(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	var req peerRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ID == "" {
		badRequest(c, "The \"id\" field is required.")
		return
	}
	if err := h.graph.SetSharePermission(c.Request.Context(), identity.ID, req.ID, true); err != nil {
		respondError(c, h.logger, "approve", err)
		return
	}
	c.Status(http.StatusOK)
}

// Remove maneja DELETE /people y DELETE /people/pending.
func (h *PeopleHandler) Remove(c *gin.Context) {
	identity, ok := mustIdentity(c)
	if !ok {
		return
	}
	var req peerRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ID == "" {
		badRequest(c, "The \"id\" field is required.")
		return
	}
	if err := h.graph.Revoke(c.Request.Context(), identity.ID, req.ID); err != nil {
		respondError(c, h.logger, "revoke", err)
		return
	}
	c.Status(http.StatusOK)
}
