package moderation

import "modbot/model"

// ApprovalResult is the outcome tag of AddApproval.
type ApprovalResult string

const (
	ApprovalNotPending      ApprovalResult = "not-pending"
	ApprovalAlreadyApproved ApprovalResult = "already-approved"
	ApprovalPartial         ApprovalResult = "partial"
	ApprovalFinal           ApprovalResult = "approved-final"
)

// DeclineResult is the outcome tag of DeclinePending.
type DeclineResult string

const (
	DeclineNotPending DeclineResult = "not-pending"
	DeclineDeclined   DeclineResult = "declined"
)

// TriggerOutcome describes what reaching the cap did to the pending ban ledger.
type TriggerOutcome string

const (
	TriggerNone           TriggerOutcome = "none"
	TriggerCreated        TriggerOutcome = "created"
	TriggerAlreadyPending TriggerOutcome = "already-pending"
)

// AddResult is returned by AddPoints.
type AddResult struct {
	Points     int
	// Added is the amount actually applied after clamping at the cap.
	Added      int
	ReachedCap bool
	Trigger    TriggerOutcome
	// Pending is set whenever the cap was reached, whether the record is new or pre-existing.
	Pending    *model.PendingBan
}

// ApprovalOutcome is returned by AddApproval. Ban is the record after the call, nil for not-pending.
type ApprovalOutcome struct {
	Result ApprovalResult
	Ban    *model.PendingBan
}

// DeclineOutcome is returned by DeclinePending.
type DeclineOutcome struct {
	Result DeclineResult
	Ban    *model.PendingBan
	Points     int
}
