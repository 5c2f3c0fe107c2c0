package plugin

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/xraph/grantor/grant"
	"github.com/xraph/grantor/id"
	"github.com/xraph/grantor/role"
)

// testPlugin implements Plugin + RoleCreated + AfterResolve + UserRolesReplaced.
type testPlugin struct {
	roleCreatedCalled  bool
	afterResolveCalled bool
	replacedUser       string
	replacedCount      int
}

func (t *testPlugin) Name() string { return "test-plugin" }

func (t *testPlugin) OnRoleCreated(_ context.Context, _ *role.Role) error {
	t.roleCreatedCalled = true
	return nil
}

func (t *testPlugin) OnAfterResolve(_ context.Context, _ string, _ any, _ error, _ time.Duration) error {
	t.afterResolveCalled = true
	return nil
}

func (t *testPlugin) OnUserRolesReplaced(_ context.Context, userID string, assignments []*grant.UserRole) error {
	t.replacedUser = userID
	t.replacedCount = len(assignments)
	return nil
}

// minimalPlugin only implements Plugin (no hooks).
type minimalPlugin struct{}

func (m *minimalPlugin) Name() string { return "minimal" }

// failingPlugin returns an error from its only hook.
type failingPlugin struct{}

func (f *failingPlugin) Name() string { return "failing" }

func (f *failingPlugin) OnRoleDeleted(_ context.Context, _ id.RoleID) error {
	return errors.New("boom")
}

func TestRegistryDispatch(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(slog.Default())

	tp := &testPlugin{}
	reg.Register(tp)
	reg.Register(&minimalPlugin{})

	if len(reg.Plugins()) != 2 {
		t.Fatalf("expected 2 plugins, got %d", len(reg.Plugins()))
	}

	// Should dispatch RoleCreated to testPlugin only.
	reg.EmitRoleCreated(ctx, &role.Role{ID: id.NewRoleID(), Name: "admin"})
	if !tp.roleCreatedCalled {
		t.Fatal("OnRoleCreated was not called")
	}

	reg.EmitAfterResolve(ctx, "u1", nil, nil, time.Millisecond)
	if !tp.afterResolveCalled {
		t.Fatal("OnAfterResolve was not called")
	}

	reg.EmitUserRolesReplaced(ctx, "u1", []*grant.UserRole{{RoleID: id.NewRoleID()}})
	if tp.replacedUser != "u1" || tp.replacedCount != 1 {
		t.Fatalf("unexpected replace notification: %q/%d", tp.replacedUser, tp.replacedCount)
	}

	// Should not panic on hooks with no listeners.
	reg.EmitBeforeResolve(ctx, "u1")
	reg.EmitRoleDeleted(ctx, id.NewRoleID())
	reg.EmitBaselineEnsured(ctx, nil)
	reg.EmitShutdown(ctx)
}

func TestRegistryHookErrorIsLogged(t *testing.T) {
	var buf bytes.Buffer
	reg := NewRegistry(slog.New(slog.NewTextHandler(&buf, nil)))
	reg.Register(&failingPlugin{})

	reg.EmitRoleDeleted(context.Background(), id.NewRoleID())

	out := buf.String()
	if !strings.Contains(out, "plugin hook error") {
		t.Fatalf("expected warning to be logged, got %q", out)
	}
	if !strings.Contains(out, "plugin=failing") || !strings.Contains(out, "hook=OnRoleDeleted") {
		t.Fatalf("expected hook and plugin attributes, got %q", out)
	}
}
