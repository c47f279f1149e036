package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorIncludesInternal(t *testing.T) {
	internal := stdErrors.New("boom")
	err := Wrap(internal, "failed")

	if err.Error() != "failed: boom" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
}

func TestWithInternalCopies(t *testing.T) {
	base := New("TEST", "test", 400)
	with := base.WithInternal(stdErrors.New("oops"))

	if with == base {
		t.Fatal("expected WithInternal to return a copy")
	}

	if base.Internal != nil {
		t.Fatal("expected original error to remain unchanged")
	}

	if with.Internal == nil {
		t.Fatal("expected internal error to be set")
	}
}

func TestFromError(t *testing.T) {
	appErr := ErrNotFound
	if out := FromError(appErr); out != appErr {
		t.Fatal("expected FromError to return the same AppError instance")
	}

	raw := stdErrors.New("raw")
	out := FromError(raw)
	if out.Code != ErrInternalServer.Code {
		t.Fatalf("expected internal server code, got %s", out.Code)
	}
	if out.Internal == nil {
		t.Fatal("expected internal error to be attached")
	}
}

func TestNewBadRequest(t *testing.T) {
	err := NewBadRequest("invalid payload")
	if err.Code != ErrBadRequest.Code {
		t.Fatalf("expected %s, got %s", ErrBadRequest.Code, err.Code)
	}
	if err.Message != "invalid payload" {
		t.Fatalf("unexpected message: %s", err.Message)
	}
	if err.StatusCode != ErrBadRequest.StatusCode {
		t.Fatalf("unexpected status: %d", err.StatusCode)
	}
}

func TestKindConstructorsMatchSentinels(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		target *AppError
		status int
	}{
		{"not found", NotFound("profile", "7"), ErrNotFound, http.StatusNotFound},
		{"invalid input", InvalidInput("unknown permission", "99"), ErrInvalidInput, http.StatusBadRequest},
		{"already resolved", AlreadyResolved("3", "approved"), ErrAlreadyResolved, http.StatusConflict},
		{"self approval", SelfApprovalForbidden("3"), ErrSelfApprovalForbidden, http.StatusForbidden},
		{"store", StoreUnavailable("load profile", stdErrors.New("conn reset")), ErrStoreUnavailable, http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !stdErrors.Is(tc.err, tc.target) {
				t.Fatalf("expected %v to match %s", tc.err, tc.target.Code)
			}
			if FromError(tc.err).StatusCode != tc.status {
				t.Fatalf("unexpected status %d", FromError(tc.err).StatusCode)
			}
		})
	}
}

func TestKindsSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("approve: %w", SelfApprovalForbidden("12"))
	if !stdErrors.Is(err, ErrSelfApprovalForbidden) {
		t.Fatal("expected wrapped error to match sentinel")
	}
	if stdErrors.Is(err, ErrAlreadyResolved) {
		t.Fatal("did not expect a different kind to match")
	}

	appErr := FromError(err)
	if appErr.Subject != "12" {
		t.Fatalf("expected subject 12, got %q", appErr.Subject)
	}
}

func TestNotFoundCarriesSubject(t *testing.T) {
	err := NotFound("profile", "viewer")
	if err.Error() != "profile not found (viewer)" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
	if ErrNotFound.Subject != "" {
		t.Fatal("expected sentinel to remain untouched")
	}
}

func TestRetryableOnlyForStoreFailures(t *testing.T) {
	if !Retryable(StoreUnavailable("insert", stdErrors.New("timeout"))) {
		t.Fatal("expected store failures to be retryable")
	}
	if Retryable(SelfApprovalForbidden("1")) || Retryable(AlreadyResolved("1", "rejected")) {
		t.Fatal("business rule violations must not be retryable")
	}
	if StoreUnavailable("noop", nil) != nil {
		t.Fatal("expected nil for nil cause")
	}
	if got := StoreUnavailable("load", NotFound("profile", "1")); !stdErrors.Is(got, ErrNotFound) {
		t.Fatal("expected typed errors to pass through untouched")
	}
}
