package permissions

// Categories group permissions by the platform module they guard.
const (
	CategoryGoals         = "goals"
	CategoryEvaluations   = "evaluations"
	CategoryPDI           = "pdi"
	CategoryOrgChart      = "org_chart"
	CategoryTimeClock     = "time_clock"
	CategoryNotifications = "notifications"
	CategoryAccess        = "access"
	CategoryAudit         = "audit"
)

// Resources and actions guarding the access-control API itself.
const (
	ResourcePermissions    = "permissions"
	ResourceProfiles       = "profiles"
	ResourceAssignments    = "assignments"
	ResourceChangeRequests = "change_requests"
	ResourceAudit          = "audit"
	ResourceOpsLogs        = "ops_logs"

	ActionView    = "view"
	ActionManage  = "manage"
	ActionCreate  = "create"
	ActionApprove = "approve"
	ActionExport  = "export"
)

var builtin = []Definition{
	{Resource: "goals", Action: "view", Category: CategoryGoals, Description: "View goals and key results"},
	{Resource: "goals", Action: "create", Category: CategoryGoals, Description: "Create goals"},
	{Resource: "goals", Action: "edit", Category: CategoryGoals, Description: "Edit goals and record progress"},
	{Resource: "goals", Action: "approve", Category: CategoryGoals, Description: "Approve team goals"},
	{Resource: "goals", Action: "delete", Category: CategoryGoals, Description: "Delete goals"},

	{Resource: "evaluations", Action: "view", Category: CategoryEvaluations, Description: "View 360 evaluations"},
	{Resource: "evaluations", Action: "create", Category: CategoryEvaluations, Description: "Open evaluation cycles"},
	{Resource: "evaluations", Action: "submit", Category: CategoryEvaluations, Description: "Submit evaluation answers"},
	{Resource: "evaluations", Action: "calibrate", Category: CategoryEvaluations, Description: "Calibrate evaluation results"},

	{Resource: "pdi", Action: "view", Category: CategoryPDI, Description: "View individual development plans"},
	{Resource: "pdi", Action: "create", Category: CategoryPDI, Description: "Create development plans"},
	{Resource: "pdi", Action: "approve", Category: CategoryPDI, Description: "Approve development plans"},

	{Resource: "org_chart", Action: "view", Category: CategoryOrgChart, Description: "View the organisation chart"},
	{Resource: "org_chart", Action: "edit", Category: CategoryOrgChart, Description: "Edit reporting lines"},

	{Resource: "time_clock", Action: "view", Category: CategoryTimeClock, Description: "View time records"},
	{Resource: "time_clock", Action: "register", Category: CategoryTimeClock, Description: "Clock in and out"},
	{Resource: "time_clock", Action: "adjust", Category: CategoryTimeClock, Description: "Adjust time records of others"},

	{Resource: "notifications", Action: "view", Category: CategoryNotifications, Description: "View notifications"},
	{Resource: "notifications", Action: "send", Category: CategoryNotifications, Description: "Send broadcast notifications"},

	{Resource: ResourcePermissions, Action: ActionView, Category: CategoryAccess, Description: "View the permission catalogue"},
	{Resource: ResourceProfiles, Action: ActionView, Category: CategoryAccess, Description: "View profiles and their permissions"},
	{Resource: ResourceProfiles, Action: ActionManage, Category: CategoryAccess, Description: "Create profiles and change their permissions"},
	{Resource: ResourceAssignments, Action: ActionView, Category: CategoryAccess, Description: "View profile assignments"},
	{Resource: ResourceAssignments, Action: ActionManage, Category: CategoryAccess, Description: "Assign and revoke profiles"},
	{Resource: ResourceChangeRequests, Action: ActionView, Category: CategoryAccess, Description: "View permission change requests"},
	{Resource: ResourceChangeRequests, Action: ActionCreate, Category: CategoryAccess, Description: "Request permission changes"},
	{Resource: ResourceChangeRequests, Action: ActionApprove, Category: CategoryAccess, Description: "Approve or reject permission change requests"},

	{Resource: ResourceAudit, Action: ActionView, Category: CategoryAudit, Description: "View the access audit log"},
	{Resource: ResourceAudit, Action: ActionExport, Category: CategoryAudit, Description: "Export the access audit log"},
	{Resource: ResourceOpsLogs, Action: ActionView, Category: CategoryAudit, Description: "View recent operational log lines"},
}

// Definitions returns a copy of the built-in permission universe.
func Definitions() []Definition {
	out := make([]Definition, len(builtin))
	copy(out, builtin)
	return out
}

// Default builds a registry holding the built-in definitions.
func Default() (*Registry, error) {
	reg := NewRegistry()
	if err := reg.RegisterAll(builtin); err != nil {
		return nil, err
	}
	return reg, nil
}
