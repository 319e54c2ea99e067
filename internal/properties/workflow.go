package properties

import (
	"strings"

	"github.com/angelmondragon/propertyhub-backend/pkg/db/models"
	"github.com/angelmondragon/propertyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/propertyhub-backend/pkg/errors"
)

// Action is an approval workflow step.
type Action string

const (
	ActionSubmit         Action = "submit"
	ActionApprove        Action = "approve"
	ActionReject         Action = "reject"
	ActionRequestChanges Action = "request_changes"
	ActionArchive        Action = "archive"
	ActionRestore        Action = "restore"
)

type transition struct {
	from         []enums.ApprovalStatus
	to           enums.ApprovalStatus
	noteRequired bool
	reviewer     bool
}

var transitions = map[Action]transition{
	ActionSubmit: {
		from: []enums.ApprovalStatus{enums.ApprovalDraft, enums.ApprovalChangesRequested},
		to:   enums.ApprovalPendingReview,
	},
	ActionApprove: {
		from:     []enums.ApprovalStatus{enums.ApprovalPendingReview},
		to:       enums.ApprovalApproved,
		reviewer: true,
	},
	ActionReject: {
		from:         []enums.ApprovalStatus{enums.ApprovalPendingReview},
		to:           enums.ApprovalRejected,
		noteRequired: true,
		reviewer:     true,
	},
	ActionRequestChanges: {
		from:         []enums.ApprovalStatus{enums.ApprovalPendingReview},
		to:           enums.ApprovalChangesRequested,
		noteRequired: true,
		reviewer:     true,
	},
	ActionArchive: {
		from: []enums.ApprovalStatus{
			enums.ApprovalDraft, enums.ApprovalPendingReview, enums.ApprovalChangesRequested,
			enums.ApprovalApproved, enums.ApprovalRejected,
		},
		to:       enums.ApprovalArchived,
		reviewer: true,
	},
	ActionRestore: {
		from:     []enums.ApprovalStatus{enums.ApprovalArchived},
		to:       enums.ApprovalDraft,
		reviewer: true,
	},
}

// reviewOrder fixes the order AvailableActions reports.
var reviewOrder = []Action{ActionApprove, ActionRequestChanges, ActionReject, ActionArchive, ActionRestore}

// AvailableActions returns the admin review actions allowed from status.
func AvailableActions(status enums.ApprovalStatus) []Action {
	out := []Action{}
	for _, a := range reviewOrder {
		if allows(transitions[a], status) {
			out = append(out, a)
		}
	}
	return out
}

// ParseAction validates a raw action name.
func ParseAction(value string) (Action, error) {
	a := Action(strings.TrimSpace(value))
	if _, ok := transitions[a]; !ok {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "unknown action %q", value)
	}
	return a, nil
}

func allows(t transition, status enums.ApprovalStatus) bool {
	for _, s := range t.from {
		if s == status {
			return true
		}
	}
	return false
}

// nextStatus validates the action against the current status.
func nextStatus(action Action, current enums.ApprovalStatus, note string) (enums.ApprovalStatus, error) {
	t, ok := transitions[action]
	if !ok {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "unknown action %q", action)
	}
	if !allows(t, current) {
		return "", pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot %s a %s listing", action, current).
			WithDetails(map[string]any{"status": current, "available_actions": AvailableActions(current)})
	}
	if t.noteRequired && strings.TrimSpace(note) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "note is required").
			WithDetails(map[string]any{"field": "note"})
	}
	return t.to, nil
}

// readyForReview lists what a listing still lacks before it can be submitted.
func readyForReview(p *models.Property) []string {
	var missing []string
	if p.City == nil || strings.TrimSpace(*p.City) == "" {
		missing = append(missing, "city")
	}
	if p.OperationType.Supports(enums.DealSale) && (p.SalePrice == nil || !p.SalePrice.IsPositive()) {
		missing = append(missing, "sale_price")
	}
	if p.OperationType.Supports(enums.DealRent) && (p.MonthlyRent == nil || !p.MonthlyRent.IsPositive()) {
		missing = append(missing, "monthly_rent")
	}
	return missing
}
