package audit

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/xraph/grantor"
	"github.com/xraph/grantor/grant"
	"github.com/xraph/grantor/id"
	"github.com/xraph/grantor/store/memory"
)

func newTestEngine(t *testing.T, buf *bytes.Buffer) *grantor.Engine {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	eng, err := grantor.NewEngine(
		grantor.WithStore(memory.New()),
		grantor.WithPlugin(New(logger)),
	)
	if err != nil {
		t.Fatal(err)
	}
	return eng
}

func TestAuditRecordsReason(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	eng := newTestEngine(t, &buf)

	perm, err := eng.Catalog().Create(ctx, &grantor.CreatePermissionInput{Name: "user.read", Resource: "user", Action: "read"})
	if err != nil {
		t.Fatal(err)
	}
	_, err = eng.Grants().AssignPermissions(ctx, "u1", &grantor.AssignPermissionsInput{
		PermissionIDs: []id.PermissionID{perm.ID},
		Effect:        grant.EffectDeny,
		Reason:        "ticket-42",
	})
	if err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{"user permissions replaced", "user_id=u1", "effect=deny", "reason=ticket-42"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in audit output, got: %s", want, out)
		}
	}
}

func TestAuditRecordsResolveSummary(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	eng := newTestEngine(t, &buf)

	if _, err := eng.Resolve(ctx, "u1"); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.Contains(out, "permissions resolved") || !strings.Contains(out, "summary.effective=0") {
		t.Fatalf("expected resolve summary in audit output, got: %s", out)
	}
}

func TestAuditRecordsBaseline(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	eng := newTestEngine(t, &buf)

	if _, err := eng.Seeder().EnsureSystemBaseline(ctx); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "grantor.audit") {
		t.Fatalf("expected audit component in output, got: %s", buf.String())
	}
}
