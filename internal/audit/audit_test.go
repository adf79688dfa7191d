package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

// TestPurpose: Validates that audit events reach the structured log with
// their identity fields and metadata intact, so operator actions stay
// traceable.
// Scope: Unit Test
// Expected: The log line carries audit_type, tenant_id, actor_id, the
// resource and the metadata group.
func TestSlogLogger_EmitsEvent(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	NewSlogLogger().Log(context.Background(), Event{
		Type:     TypePenaltyApplied,
		TenantID: "tenant-1",
		ActorID:  "mod-1",
		Resource: "bob",
		Metadata: map[string]any{"expires_at": "2026-01-23"},
	})

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("failed to parse log line: %v", err)
	}

	if line["msg"] != "AUDIT_EVENT" {
		t.Errorf("expected AUDIT_EVENT message, got %v", line["msg"])
	}
	if line["audit_type"] != TypePenaltyApplied {
		t.Errorf("expected audit_type %s, got %v", TypePenaltyApplied, line["audit_type"])
	}
	if line["tenant_id"] != "tenant-1" || line["actor_id"] != "mod-1" || line["resource"] != "bob" {
		t.Errorf("identity fields wrong: %v", line)
	}
	meta, ok := line["metadata"].(map[string]any)
	if !ok || meta["expires_at"] != "2026-01-23" {
		t.Errorf("expected metadata group, got %v", line["metadata"])
	}
}

func TestSlogLogger_FillsTimestamp(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	NewSlogLogger().Log(context.Background(), Event{Type: TypeWeeklyReset, TenantID: "tenant-1"})

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("failed to parse log line: %v", err)
	}
	ts, ok := line["timestamp"].(string)
	if !ok || ts == "" {
		t.Error("expected a non-zero timestamp to be filled in")
	}
}
