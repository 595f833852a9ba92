package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap"

	"tasktracker/internal/domain"
	"tasktracker/internal/repository"
	"tasktracker/internal/service"
)

func seedAuditRepo(t *testing.T) *repository.MemoryIdentityRepository {
	t.Helper()
	repo := repository.NewMemoryIdentityRepository()
	ctx := context.Background()
	identities := []domain.Identity{
		{ID: "alice", Email: "alice@x.com", Relationships: domain.Relationships{"bob": {CanShare: true}}},
		{ID: "bob", Email: "bob@x.com", Relationships: domain.Relationships{}},
	}
	for _, identity := range identities {
		if err := repo.Create(ctx, identity); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return repo
}

func TestRunAudit_Text(t *testing.T) {
	graph := service.NewRelationshipGraph(zap.NewNop(), seedAuditRepo(t))

	var out bytes.Buffer
	if err := runAudit(context.Background(), graph, &out, false); err != nil {
		t.Fatalf("audit: %v", err)
	}
	if !strings.Contains(out.String(), "alice") || !strings.Contains(out.String(), "1 asymmetric relationships") {
		t.Fatalf("unexpected output: %s", out.String())
	}
}

func TestRunAudit_JSON(t *testing.T) {
	graph := service.NewRelationshipGraph(zap.NewNop(), seedAuditRepo(t))

	var out bytes.Buffer
	if err := runAudit(context.Background(), graph, &out, true); err != nil {
		t.Fatalf("audit: %v", err)
	}
	var rows []auditFinding
	if err := json.Unmarshal(out.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 1 || rows[0].OwnerID != "alice" || rows[0].PeerID != "bob" || rows[0].PeerMissing {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestRunAudit_Clean(t *testing.T) {
	graph := service.NewRelationshipGraph(zap.NewNop(), repository.NewMemoryIdentityRepository())

	var out bytes.Buffer
	if err := runAudit(context.Background(), graph, &out, false); err != nil {
		t.Fatalf("audit: %v", err)
	}
	if !strings.Contains(out.String(), "no asymmetric relationships") {
		t.Fatalf("unexpected output: %s", out.String())
	}
}
