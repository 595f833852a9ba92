package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"tasktracker/internal/domain"
	"tasktracker/internal/repository"
)

func newGraphFixture(t *testing.T) (*repository.MemoryIdentityRepository, *RelationshipGraph) {
	t.Helper()
	repo := repository.NewMemoryIdentityRepository()
	seedIdentity(t, repo, "alice", "alice@x.com", "Alice")
	seedIdentity(t, repo, "bob", "bob@x.com", "Bob")
	seedIdentity(t, repo, "carol", "carol@x.com", "Carol")
	return repo, NewRelationshipGraph(zap.NewNop(), repo)
}

func TestRelationshipGraph_InviteIsDirectional(t *testing.T) {
	repo, graph := newGraphFixture(t)
	ctx := context.Background()

	target, err := graph.Invite(ctx, "alice", " Bob@X.com ")
	require.NoError(t, err)
	require.Equal(t, "bob", target.ID)

	alice := mustGet(t, repo, "alice")
	bob := mustGet(t, repo, "bob")
	require.Equal(t, domain.PeerRelationship{CanShare: true}, alice.Relationships["bob"])
	require.Equal(t, domain.PeerRelationship{CanShare: false}, bob.Relationships["alice"])
}

func TestRelationshipGraph_InviteErrors(t *testing.T) {
	repo, graph := newGraphFixture(t)
	ctx := context.Background()

	_, err := graph.Invite(ctx, "alice", "ALICE@x.com")
	require.ErrorIs(t, err, ErrInvalidSelf)

	_, err = graph.Invite(ctx, "alice", "nobody@x.com")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = graph.Invite(ctx, "alice", "")
	require.ErrorIs(t, err, ErrValidation)

	_, err = graph.Invite(ctx, "alice", "bob@x.com")
	require.NoError(t, err)

	_, err = graph.Invite(ctx, "alice", "bob@x.com")
	require.ErrorIs(t, err, ErrDuplicate)

	_, err = graph.Invite(ctx, "bob", "alice@x.com")
	require.ErrorIs(t, err, ErrDuplicate)

	require.Len(t, mustGet(t, repo, "alice").Relationships, 1)
	require.Len(t, mustGet(t, repo, "bob").Relationships, 1)
}

func TestRelationshipGraph_SetSharePermissionOnlyTouchesOwner(t *testing.T) {
	repo, graph := newGraphFixture(t)
	ctx := context.Background()

	_, err := graph.Invite(ctx, "alice", "bob@x.com")
	require.NoError(t, err)

	require.NoError(t, graph.SetSharePermission(ctx, "bob", "alice", true))
	require.True(t, mustGet(t, repo, "bob").Relationships["alice"].CanShare)
	require.True(t, mustGet(t, repo, "alice").Relationships["bob"].CanShare)

	require.NoError(t, graph.SetSharePermission(ctx, "alice", "bob", false))
	require.False(t, mustGet(t, repo, "alice").Relationships["bob"].CanShare)
	require.True(t, mustGet(t, repo, "bob").Relationships["alice"].CanShare)

	require.ErrorIs(t, graph.SetSharePermission(ctx, "alice", "carol", true), ErrNotFound)
}

func TestRelationshipGraph_RevokeThenList(t *testing.T) {
	repo, graph := newGraphFixture(t)
	ctx := context.Background()

	_, err := graph.Invite(ctx, "alice", "bob@x.com")
	require.NoError(t, err)
	_, err = graph.Invite(ctx, "alice", "carol@x.com")
	require.NoError(t, err)

	require.NoError(t, graph.Revoke(ctx, "alice", "bob"))

	peers, err := graph.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, peers, 1)
	require.Equal(t, "carol", peers[0].ID)
	require.NotContains(t, mustGet(t, repo, "bob").Relationships, "alice")
}

func TestRelationshipGraph_RevokeToleratesMissingPeer(t *testing.T) {
	repo, graph := newGraphFixture(t)
	ctx := context.Background()

	_, err := graph.Invite(ctx, "alice", "bob@x.com")
	require.NoError(t, err)
	repo.Delete("bob")

	require.NoError(t, graph.Revoke(ctx, "alice", "bob"))
	require.Empty(t, mustGet(t, repo, "alice").Relationships)
}

func TestRelationshipGraph_ListReadsPeerCopy(t *testing.T) {
	_, graph := newGraphFixture(t)
	ctx := context.Background()

	_, err := graph.Invite(ctx, "alice", "bob@x.com")
	require.NoError(t, err)

	peers, err := graph.List(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, peers, 1)
	require.Equal(t, domain.Peer{
		ID:              "alice",
		DisplayName:     "Alice",
		Email:           "alice@x.com",
		CanShare:        false,
		CanBeSharedWith: true,
	}, peers[0])
	require.True(t, peers[0].Pending())

	peers, err = graph.List(ctx, "alice")
	require.NoError(t, err)
	require.False(t, peers[0].CanBeSharedWith)
	require.False(t, peers[0].Pending())
}

func TestRelationshipGraph_BackfillIsIdempotent(t *testing.T) {
	repo, graph := newGraphFixture(t)
	ctx := context.Background()

	participants := []string{"alice", "bob", "carol", "ghost"}
	require.NoError(t, graph.Backfill(ctx, "alice", participants))
	require.NoError(t, graph.Backfill(ctx, "alice", participants))

	alice := mustGet(t, repo, "alice")
	require.Len(t, alice.Relationships, 2)
	require.False(t, alice.Relationships["bob"].CanShare)
	require.False(t, alice.Relationships["carol"].CanShare)
	require.NotContains(t, alice.Relationships, "ghost")
	require.Contains(t, mustGet(t, repo, "bob").Relationships, "alice")
	require.Contains(t, mustGet(t, repo, "carol").Relationships, "alice")
}

func TestRelationshipGraph_BackfillKeepsExistingPermissions(t *testing.T) {
	repo, graph := newGraphFixture(t)
	ctx := context.Background()

	_, err := graph.Invite(ctx, "alice", "bob@x.com")
	require.NoError(t, err)
	require.NoError(t, graph.SetSharePermission(ctx, "bob", "alice", true))

	require.NoError(t, graph.Backfill(ctx, "alice", []string{"bob"}))
	require.True(t, mustGet(t, repo, "alice").Relationships["bob"].CanShare)
	require.True(t, mustGet(t, repo, "bob").Relationships["alice"].CanShare)
}

func TestRelationshipGraph_AuditReportsAsymmetricPairs(t *testing.T) {
	repo, graph := newGraphFixture(t)
	ctx := context.Background()

	_, err := graph.Invite(ctx, "alice", "bob@x.com")
	require.NoError(t, err)

	findings, err := graph.Audit(ctx)
	require.NoError(t, err)
	require.Empty(t, findings)

	require.NoError(t, repo.UpdateRelationships(ctx, "carol", domain.Relationships{
		"alice": {CanShare: true},
		"ghost": {CanShare: false},
	}))

	findings, err = graph.Audit(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []AsymmetricRelationship{
		{OwnerID: "carol", PeerID: "alice"},
		{OwnerID: "carol", PeerID: "ghost", PeerMissing: true},
	}, findings)
}

func TestRelationshipGraph_UnknownOwner(t *testing.T) {
	_, graph := newGraphFixture(t)

	_, err := graph.List(context.Background(), "ghost")
	require.True(t, errors.Is(err, ErrNotFound))
}

var errWriteFailed = errors.New("write failed")

// failingRelationshipsRepo falla UpdateRelationships solo para failID.
type failingRelationshipsRepo struct {
	*repository.MemoryIdentityRepository
	failID string
}

func (r *failingRelationshipsRepo) UpdateRelationships(ctx context.Context, id string, rels domain.Relationships) error {
	if id == r.failID {
		return errWriteFailed
	}
	return r.MemoryIdentityRepository.UpdateRelationships(ctx, id, rels)
}

func TestRelationshipGraph_SecondWriteFailure(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(t *testing.T, graph *RelationshipGraph)
		failID     string
		run        func(ctx context.Context, graph *RelationshipGraph) error
		ownerHas   bool
		peerHas    bool
		asymmetric AsymmetricRelationship
		logFields  map[string]interface{}
	}{
		{
			name:   "invite",
			failID: "bob",
			run: func(ctx context.Context, graph *RelationshipGraph) error {
				_, err := graph.Invite(ctx, "alice", "bob@x.com")
				return err
			},
			ownerHas:   true,
			peerHas:    false,
			asymmetric: AsymmetricRelationship{OwnerID: "alice", PeerID: "bob"},
			logFields:  map[string]interface{}{"owner_id": "alice", "peer_id": "bob"},
		},
		{
			name: "revoke",
			setup: func(t *testing.T, graph *RelationshipGraph) {
				_, err := graph.Invite(context.Background(), "alice", "bob@x.com")
				require.NoError(t, err)
			},
			failID: "bob",
			run: func(ctx context.Context, graph *RelationshipGraph) error {
				return graph.Revoke(ctx, "alice", "bob")
			},
			ownerHas:   false,
			peerHas:    true,
			asymmetric: AsymmetricRelationship{OwnerID: "bob", PeerID: "alice"},
			logFields:  map[string]interface{}{"owner_id": "alice", "peer_id": "bob"},
		},
		{
			// Backfill escribe primero los pares y al final al duenio.
			name:   "backfill",
			failID: "alice",
			run: func(ctx context.Context, graph *RelationshipGraph) error {
				return graph.Backfill(ctx, "alice", []string{"bob"})
			},
			ownerHas:   false,
			peerHas:    true,
			asymmetric: AsymmetricRelationship{OwnerID: "bob", PeerID: "alice"},
			logFields:  map[string]interface{}{"owner_id": "alice", "peer_ids": []interface{}{"bob"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			repo, healthy := newGraphFixture(t)
			if tt.setup != nil {
				tt.setup(t, healthy)
			}

			core, logs := observer.New(zap.ErrorLevel)
			failing := &failingRelationshipsRepo{MemoryIdentityRepository: repo, failID: tt.failID}
			graph := NewRelationshipGraph(zap.New(core), failing)

			err := tt.run(ctx, graph)
			require.ErrorIs(t, err, errWriteFailed)

			alice := mustGet(t, repo, "alice")
			bob := mustGet(t, repo, "bob")
			_, ownerHas := alice.Relationships["bob"]
			_, peerHas := bob.Relationships["alice"]
			require.Equal(t, tt.ownerHas, ownerHas)
			require.Equal(t, tt.peerHas, peerHas)

			report, err := healthy.Audit(ctx)
			require.NoError(t, err)
			require.Equal(t, []AsymmetricRelationship{tt.asymmetric}, report)

			entries := logs.FilterMessage("relationship dual-write incomplete").All()
			require.Len(t, entries, 1)
			fields := entries[0].ContextMap()
			for key, want := range tt.logFields {
				require.Equal(t, want, fields[key], key)
			}
		})
	}
}

func TestRelationshipGraph_ConcurrentBackfill(t *testing.T) {
	repo, graph := newGraphFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = graph.Backfill(ctx, "alice", []string{"carol"})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	alice := mustGet(t, repo, "alice")
	carol := mustGet(t, repo, "carol")
	require.Len(t, alice.Relationships, 1)
	require.Len(t, carol.Relationships, 1)
	require.Equal(t, domain.PeerRelationship{CanShare: false}, alice.Relationships["carol"])
	require.Equal(t, domain.PeerRelationship{CanShare: false}, carol.Relationships["alice"])
}
