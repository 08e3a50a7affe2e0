package models

// Action identifies an operation gated by role-based access control.
type Action string

const (
	ActionCaseCreate      Action = "case:create"
	ActionCaseView        Action = "case:view"
	ActionCaseEdit        Action = "case:edit"
	ActionCaseAssign      Action = "case:assign"
	ActionCaseApprove     Action = "case:approve"
	ActionCaseClose       Action = "case:close"
	ActionEvidenceUpload  Action = "evidence:upload"
	ActionEvidenceView    Action = "evidence:view"
	ActionEvidenceVerify  Action = "evidence:verify"
	ActionCustodyManage   Action = "custody:manage"
	ActionStorageUnlock   Action = "custody:storage_unlock"
	ActionTransferRequest Action = "custody:transfer_request"
	ActionTransferApprove Action = "custody:transfer_approve"
	ActionAuditView       Action = "audit:view"
	ActionAuditExport     Action = "audit:export"
)

// capabilities maps each role to the set of actions it may perform. Relationship
// guards (creator, assigned investigator, current custodian) are enforced on top
// of this table by the services; this table answers only "can this role ever do
// this".
var capabilities = map[UserRole]map[Action]struct{}{
	RoleRegularUser: actionSet(
		ActionCaseCreate, ActionCaseView, ActionCaseEdit, ActionCaseAssign,
		ActionCaseClose, ActionEvidenceUpload, ActionEvidenceView,
		ActionStorageUnlock, ActionAuditView,
	),
	RoleInvestigator: actionSet(
		ActionCaseView, ActionCaseEdit, ActionCaseClose,
		ActionEvidenceUpload, ActionEvidenceView, ActionStorageUnlock,
		ActionTransferRequest, ActionAuditView,
	),
	RoleAnalyst: actionSet(
		ActionCaseView, ActionEvidenceUpload, ActionEvidenceView,
		ActionEvidenceVerify, ActionStorageUnlock, ActionTransferRequest,
		ActionAuditView,
	),
	RoleCustodian: actionSet(
		ActionCaseView, ActionEvidenceUpload, ActionEvidenceView,
		ActionCustodyManage, ActionStorageUnlock, ActionTransferRequest,
		ActionTransferApprove, ActionAuditView,
	),
	RoleAuditor: actionSet(
		ActionCaseView, ActionEvidenceView, ActionEvidenceVerify,
		ActionAuditView, ActionAuditExport, ActionCustodyManage,
	),
	RoleAdmin: actionSet(
		ActionCaseCreate, ActionCaseView, ActionCaseEdit, ActionCaseAssign,
		ActionCaseApprove, ActionCaseClose, ActionEvidenceUpload,
		ActionEvidenceView, ActionEvidenceVerify, ActionCustodyManage,
		ActionStorageUnlock, ActionTransferRequest, ActionTransferApprove,
		ActionAuditView, ActionAuditExport,
	),
}

// Allows is the single authorization check used across the services.
// Superusers bypass the table entirely.
func Allows(u *User, action Action) bool {
	if u == nil {
		return false
	}
	if u.IsSuperuser {
		return true
	}
	set, ok := capabilities[u.Role]
	if !ok {
		return false
	}
	_, ok = set[action]
	return ok
}

// RoleAllows checks the capability table for a bare role, used by route
// middleware where only JWT claims are available.
func RoleAllows(role UserRole, action Action) bool {
	set, ok := capabilities[role]
	if !ok {
		return false
	}
	_, ok = set[action]
	return ok
}

func actionSet(actions ...Action) map[Action]struct{} {
	set := make(map[Action]struct{}, len(actions))
	for _, a := range actions {
		set[a] = struct{}{}
	}
	return set
}
