package expense

import (
	"fmt"

	errors "github.com/frahmantamala/expense-assistant/internal"
)

type Action string

const (
	ActionSubmit  Action = "submit"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionEdit    Action = "edit"
)

// TransitionError reports an action that is not legal from the current status.
type TransitionError struct {
	From   Status
	Action Action
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s an expense in %s status", e.Action, e.From)
}

func (e *TransitionError) Is(target error) bool {
	return target == errors.ErrInvalidTransition
}

// AppError converts the transition failure into the 409 taxonomy entry.
func (e *TransitionError) AppError() *errors.AppError {
	appErr := errors.NewConflictError(e.Error(), errors.ErrCodeInvalidTransition)
	appErr.Cause = e
	return appErr
}

// Policy holds the lifecycle knobs. The zero value treats Approved and Rejected as terminal.
type Policy struct {
	AllowRejectedResubmission bool
}

// Transition is the single authority on status changes:
//
//	Draft     --submit-->  Submitted
//	Submitted --approve--> Approved
//	Submitted --reject-->  Rejected
//	Draft, Submitted --edit--> unchanged
//
// With AllowRejectedResubmission, Rejected --edit--> Draft and Rejected --submit--> Submitted.
func (p Policy) Transition(current Status, action Action) (Status, error) {
	switch action {
	case ActionSubmit:
		if current == StatusDraft || (current == StatusRejected && p.AllowRejectedResubmission) {
			return StatusSubmitted, nil
		}
	case ActionApprove:
		if current == StatusSubmitted {
			return StatusApproved, nil
		}
	case ActionReject:
		if current == StatusSubmitted {
			return StatusRejected, nil
		}
	case ActionEdit:
		switch {
		case current == StatusDraft, current == StatusSubmitted:
			return current, nil
		case current == StatusRejected && p.AllowRejectedResubmission:
			return StatusDraft, nil
		}
	}
	return current, &TransitionError{From: current, Action: action}
}

// Transition applies the default policy.
func Transition(current Status, action Action) (Status, error) {
	return Policy{}.Transition(current, action)
}

// ResolveUpdate decides the status an edit leaves the expense in. Keeping the current status, or
// moving to what an edit or a follow-up submit would produce, is allowed; anything else is a
// TransitionError.
func (p Policy) ResolveUpdate(current, requested Status) (Status, error) {
	edited, err := p.Transition(current, ActionEdit)
	if err != nil {
		return current, err
	}
	if requested == current || requested == edited {
		return edited, nil
	}
	if requested == StatusSubmitted {
		if next, err := p.Transition(edited, ActionSubmit); err == nil {
			return next, nil
		}
	}
	return current, &TransitionError{From: current, Action: Action("set status to " + string(requested))}
}

// CreationStatus returns the status a new expense starts in. Only Draft and Submitted are allowed.
func CreationStatus(statusID int64) (Status, *errors.AppError) {
	if statusID == 0 {
		return StatusDraft, nil
	}
	status, ok := StatusFromID(statusID)
	if !ok {
		return "", errors.NewValidationFieldError("statusId", "unknown status", errors.ErrCodeInvalidStatus)
	}
	if status != StatusDraft && status != StatusSubmitted {
		return "", errors.NewValidationFieldError("statusId", "new expenses must start as Draft or Submitted", errors.ErrCodeInvalidStatus)
	}
	return status, nil
}
