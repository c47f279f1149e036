package services

import "context"

// PermissionChecker abstracts permission evaluation for callers outside the services package.
type PermissionChecker interface {
	HasPermission(ctx context.Context, userID uint, resource, action string) (bool, error)
}

// LoggedPermissionChecker evaluates a permission and records the decision in the audit log.
type LoggedPermissionChecker interface {
	PermissionChecker
	CheckAndLog(ctx context.Context, userID uint, resource, action string, fields map[string]any) (bool, error)
}

var _ LoggedPermissionChecker = (*Resolver)(nil)
