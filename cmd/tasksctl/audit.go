package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"tasktracker/internal/service"
)

type auditFinding struct {
	OwnerID     string `json:"owner_id"`
	PeerID      string `json:"peer_id"`
	PeerMissing bool   `json:"peer_missing"`
}

func runAudit(ctx context.Context, graph *service.RelationshipGraph, out io.Writer, asJSON bool) error {
	findings, err := graph.Audit(ctx)
	if err != nil {
		return err
	}

	if asJSON {
		rows := make([]auditFinding, 0, len(findings))
		for _, f := range findings {
			rows = append(rows, auditFinding{OwnerID: f.OwnerID, PeerID: f.PeerID, PeerMissing: f.PeerMissing})
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(findings) == 0 {
		fmt.Fprintln(out, "no asymmetric relationships found")
		return nil
	}
	for _, f := range findings {
		fmt.Fprintln(out, f.String())
	}
	fmt.Fprintf(out, "%d asymmetric relationships\n", len(findings))
	return nil
}
