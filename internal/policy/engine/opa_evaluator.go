package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/open-policy-agent/opa/v1/rego"
)

const teamPolicyQuery = "data.ats.team.decision"

// teamRegoPolicy governs who may change a member's role or remove a member.
const teamRegoPolicy = `package ats.team

actor_is_admin if input.actor.role == "admin"

same_company if input.actor.company_id == input.target.company_id

leaves_no_admin if {
	input.target.role == "admin"
	input.company.admin_count <= 1
}

reasons contains "not_admin" if not actor_is_admin

reasons contains "other_company" if not same_company

reasons contains "self_removal" if {
	input.action == "remove"
	input.actor.id == input.target.id
}

reasons contains "last_admin" if {
	input.action == "remove"
	leaves_no_admin
}

reasons contains "last_admin" if {
	input.action == "change_role"
	input.new_role != "admin"
	leaves_no_admin
}

default allow := false

allow if count(reasons) == 0

decision := {"allow": allow, "reasons": reasons}
`

// OPAEvaluator evaluates the team policy using OPA Rego. The query is prepared once and reused.
type OPAEvaluator struct {
	query rego.PreparedEvalQuery
}

// NewOPAEvaluator compiles the team policy and returns an evaluator.
func NewOPAEvaluator(ctx context.Context) (*OPAEvaluator, error) {
	pq, err := rego.New(
		rego.Query(teamPolicyQuery),
		rego.Module("team.rego", teamRegoPolicy),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile team policy: %w", err)
	}
	return &OPAEvaluator{query: pq}, nil
}

// HealthCheck verifies that the prepared policy evaluates and denies a non-admin actor.
// Does not touch the database. Returns nil on success.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	d, err := e.DecideTeam(ctx, TeamInput{
		Action:     ActionRemove,
		Actor:      Member{ID: "health-actor", CompanyID: "health", Role: "recruiter"},
		Target:     Member{ID: "health-target", CompanyID: "health", Role: "recruiter"},
		AdminCount: 1,
	})
	if err != nil {
		return err
	}
	if d.Allow {
		return fmt.Errorf("team policy allowed a non-admin actor")
	}
	return nil
}

// DecideTeam evaluates in against the team policy. Evaluation failures deny.
func (e *OPAEvaluator) DecideTeam(ctx context.Context, in TeamInput) (Decision, error) {
	rs, err := e.query.Eval(ctx, rego.EvalInput(buildTeamInput(in)))
	if err != nil {
		return Decision{}, fmt.Errorf("eval team policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return Decision{}, fmt.Errorf("team policy returned no result")
	}
	obj, ok := rs[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return Decision{}, fmt.Errorf("team policy returned %T", rs[0].Expressions[0].Value)
	}
	var d Decision
	d.Allow, _ = obj["allow"].(bool)
	if list, ok := obj["reasons"].([]interface{}); ok {
		for _, r := range list {
			if s, ok := r.(string); ok {
				d.Reasons = append(d.Reasons, s)
			}
		}
	}
	sort.Strings(d.Reasons)
	if d.Allow && len(d.Reasons) > 0 {
		d.Allow = false
	}
	return d, nil
}

func buildTeamInput(in TeamInput) map[string]interface{} {
	return map[string]interface{}{
		"action": string(in.Action),
		"actor": map[string]interface{}{
			"id":         in.Actor.ID,
			"company_id": in.Actor.CompanyID,
			"role":       in.Actor.Role,
		},
		"target": map[string]interface{}{
			"id":         in.Target.ID,
			"company_id": in.Target.CompanyID,
			"role":       in.Target.Role,
		},
		"new_role": in.NewRole,
		"company": map[string]interface{}{
			"admin_count": in.AdminCount,
		},
	}
}
