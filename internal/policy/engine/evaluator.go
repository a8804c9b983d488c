package engine

import "context"

// TeamAction is a membership change subject to policy.
type TeamAction string

const (
	ActionChangeRole TeamAction = "change_role"
	ActionRemove     TeamAction = "remove"
)

// Deny reasons reported by the team policy.
const (
	ReasonNotAdmin     = "not_admin"
	ReasonOtherCompany = "other_company"
	ReasonSelfRemoval  = "self_removal"
	ReasonLastAdmin    = "last_admin"
)

// Member is the policy view of a user.
type Member struct {
	ID        string
	CompanyID string
	Role      string
}

// TeamInput is what the team policy decides on.
type TeamInput struct {
	Action TeamAction
	Actor  Member
	Target Member
	// NewRole is the requested role for ActionChangeRole.
	NewRole string
	// AdminCount is the number of admins currently in the target's company.
	AdminCount int
}

// Decision is the policy outcome. Reasons is empty when Allow is true.
type Decision struct {
	Allow   bool
	Reasons []string
}

// Has reports whether reason is among the deny reasons.
func (d Decision) Has(reason string) bool {
	for _, r := range d.Reasons {
		if r == reason {
			return true
		}
	}
	return false
}

// TeamEvaluator decides membership changes (role changes and removals).
type TeamEvaluator interface {
	DecideTeam(ctx context.Context, in TeamInput) (Decision, error)
}
