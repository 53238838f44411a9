package orders

import (
	"time"

	"github.com/errandops/fulfillment/internal/auth"
	"github.com/errandops/fulfillment/internal/errs"
)

// ResolveAssignee decides who an assign call targets. Assistants may only
// claim for themselves; owners must name a target.
func ResolveAssignee(actor auth.Identity, requested *int64) (int64, error) {
	switch actor.Role {
	case auth.RoleAssistant:
		if requested != nil && *requested != actor.UserID {
			return 0, errs.Forbidden("assistants can only self-assign")
		}
		return actor.UserID, nil
	case auth.RoleOwner:
		if requested == nil {
			return 0, errs.Validation("user_id is required")
		}
		return *requested, nil
	}
	return 0, errs.Forbidden("role cannot assign orders")
}

// ValidateItem runs before any mutation; a failing item aborts the whole
// operation with nothing written.
func ValidateItem(in ItemInput) error {
	if in.ProductName == "" {
		return errs.Validation("product_name is required")
	}
	if in.Quantity <= 0 {
		return errs.Validation("quantity must be greater than zero")
	}
	if in.Status == "" {
		return errs.Validation("item status is required")
	}
	if in.EstimatedCost != nil && *in.EstimatedCost < 0 {
		return errs.Validation("estimated_cost must be non-negative")
	}
	if in.ActualCost != nil && *in.ActualCost < 0 {
		return errs.Validation("actual_cost must be non-negative")
	}
	return nil
}

// completedAt holds the invariant: set iff status is completed.
func completedAt(status string, now time.Time) *time.Time {
	if status == StatusCompleted {
		return &now
	}
	return nil
}
