package models

// ActionKey names an asynchronous user action whose request state is tracked
type ActionKey string

const (
	ActionSaveProfile     ActionKey = "save_profile"
	ActionDeleteMember    ActionKey = "delete_member"
	ActionInviteMember    ActionKey = "invite_member"
	ActionCreateExclusion ActionKey = "create_exclusion"
	ActionRemoveExclusion ActionKey = "remove_exclusion"
	ActionUpdatePlan      ActionKey = "update_plan"
	ActionExportReport    ActionKey = "export_report"
)

// RequestState is the UI request state of an action
type RequestState string

const (
	RequestIdle    RequestState = "idle"
	RequestLoading RequestState = "loading"
	RequestSuccess RequestState = "success"
	RequestError   RequestState = "error"
)

// IsValid returns true for the four defined request states
func (s RequestState) IsValid() bool {
	switch s {
	case RequestIdle, RequestLoading, RequestSuccess, RequestError:
		return true
	default:
		return false
	}
}
