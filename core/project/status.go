package project

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/sumano/oms/core"
)

// Project lifecycle statuses. A project moves forward one step at a time,
// may step back to the previous status, and may be parked on hold from any
// non-completed status. A completed project may reopen to client review
// when post-delivery feedback comes in.
const (
	StatusLead         = "lead"
	StatusQuoted       = "quoted"
	StatusApproved     = "approved"
	StatusPlanning     = "planning"
	StatusDevelopment  = "development"
	StatusTesting      = "testing"
	StatusClientReview = "client_review"
	StatusCompleted    = "completed"
	StatusOnHold       = "on_hold"
)

var ErrInvalidTransition = errors.New("invalid status transition")

var validTransitions = map[string][]string{
	StatusLead:         {StatusQuoted, StatusOnHold},
	StatusQuoted:       {StatusApproved, StatusLead, StatusOnHold},
	StatusApproved:     {StatusPlanning, StatusQuoted, StatusOnHold},
	StatusPlanning:     {StatusDevelopment, StatusApproved, StatusOnHold},
	StatusDevelopment:  {StatusTesting, StatusPlanning, StatusOnHold},
	StatusTesting:      {StatusClientReview, StatusDevelopment, StatusOnHold},
	StatusClientReview: {StatusCompleted, StatusTesting, StatusOnHold},
	StatusCompleted:    {StatusClientReview},
	StatusOnHold: {
		StatusLead, StatusQuoted, StatusApproved, StatusPlanning,
		StatusDevelopment, StatusTesting, StatusClientReview,
	},
}

// statusProgress maps each status to its overall progress percentage.
// on_hold is absent: a parked project keeps its current progress.
var statusProgress = map[string]int{
	StatusLead:         0,
	StatusQuoted:       5,
	StatusApproved:     10,
	StatusPlanning:     20,
	StatusDevelopment:  50,
	StatusTesting:      80,
	StatusClientReview: 95,
	StatusCompleted:    100,
}

func IsValidStatus(status string) bool {
	_, ok := validTransitions[status]
	return ok
}

// CanTransition reports whether a project may move from one status to another.
// Keeping the current status is always allowed as a no-op.
func CanTransition(from, to string) bool {
	if from == to {
		return IsValidStatus(from)
	}
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the statuses a project in the given status may move to.
func AllowedTransitions(from string) []string {
	return validTransitions[from]
}

// ProgressFor returns the progress percentage for a status. For on_hold the
// current progress is returned unchanged.
func ProgressFor(status string, current int) int {
	if p, ok := statusProgress[status]; ok {
		return p
	}
	return current
}

func checkTransition(from, to string) error {
	if !CanTransition(from, to) {
		return core.NewValidationError(
			errors.Wrapf(ErrInvalidTransition, "%s -> %s", from, to),
			core.FieldError{
				Field: "status",
				Error: fmt.Sprintf("cannot transition from %q to %q", from, to),
			},
		)
	}
	return nil
}

var (
	statusTag  = "projectstatus"
	statusText = "unknown project status"
)

func init() {
	_ = core.Validate.RegisterValidation(statusTag, func(fl validator.FieldLevel) bool {
		return IsValidStatus(fl.Field().String())
	})
	core.RegisterCustomTranslation(statusTag, statusText)
}
