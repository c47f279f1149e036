package models

import (
	"errors"
	"testing"
	"time"
)

func TestPermissionKey(t *testing.T) {
	p := Permission{Resource: "goals", Action: "approve"}
	if p.Key() != "goals:approve" {
		t.Fatalf("unexpected key %q", p.Key())
	}
}

func TestUserProfileActiveState(t *testing.T) {
	binding := UserProfile{UserID: 4, ProfileID: 2}
	if !binding.IsActive() {
		t.Fatal("expected binding without revocation to be active")
	}

	now := time.Now()
	binding.RevokedAt = &now
	if binding.IsActive() {
		t.Fatal("expected revoked binding to be inactive")
	}

	if key := ActiveBindingKey(4, 2); key != "4:2" {
		t.Fatalf("unexpected active key %q", key)
	}
}

func TestChangeKindTargetsUser(t *testing.T) {
	cases := map[ChangeKind]bool{
		ChangeAddPermission:    false,
		ChangeRemovePermission: false,
		ChangeAssignProfile:    true,
		ChangeRevokeProfile:    true,
	}
	for kind, want := range cases {
		if got := kind.TargetsUser(); got != want {
			t.Fatalf("%s: TargetsUser() = %v, want %v", kind, got, want)
		}
	}
}

func TestAccessAuditLogRejectsMutation(t *testing.T) {
	var entry AccessAuditLog
	if err := entry.BeforeUpdate(nil); !errors.Is(err, ErrAuditImmutable) {
		t.Fatalf("expected ErrAuditImmutable on update, got %v", err)
	}
	if err := entry.BeforeDelete(nil); !errors.Is(err, ErrAuditImmutable) {
		t.Fatalf("expected ErrAuditImmutable on delete, got %v", err)
	}
}

func TestChangeRequestPending(t *testing.T) {
	req := PermissionChangeRequest{Status: ChangeStatusPending}
	if !req.IsPending() {
		t.Fatal("expected pending request")
	}
	req.Status = ChangeStatusRejected
	if req.IsPending() {
		t.Fatal("expected resolved request")
	}
}
