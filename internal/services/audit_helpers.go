package services

import (
	"context"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Resources and actions recorded for permission-lifecycle mutations.
const (
	auditResourceProfiles       = "profiles"
	auditResourceAssignments    = "assignments"
	auditResourceChangeRequests = "change_requests"

	auditActionCreate            = "create"
	auditActionSetActive         = "set_active"
	auditActionUpdatePermissions = "update_permissions"
	auditActionAssign            = "assign"
	auditActionRevoke            = "revoke"
	auditActionApprove           = "approve"
	auditActionReject            = "reject"
)

// recordFailure audits a refused or failed operation outside any transaction, so the attempt
// stays visible even though its writes were rolled back. The original error is returned,
// combined with the audit failure when the entry could not be written.
func recordFailure(ctx context.Context, audit *AuditService, log *zap.Logger, entry AuditEntry, cause error) error {
	entry.Allowed = false
	if entry.Context == nil {
		entry.Context = map[string]any{}
	}
	entry.Context["error"] = cause.Error()

	if err := audit.LogAccess(ctx, entry); err != nil {
		log.Warn("could not audit failed operation",
			zap.String("resource", entry.Resource),
			zap.String("action", entry.Action),
			zap.Error(err),
		)
		return multierr.Append(cause, err)
	}
	return cause
}
