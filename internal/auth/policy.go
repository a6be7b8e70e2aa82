package auth

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/open-policy-agent/opa/rego"

	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/models"
)

// Actions checked against the role policy.
const (
	ActionVenueWrite     = "venue:write"
	ActionEventWrite     = "event:write"
	ActionTicketWrite    = "ticket:write"
	ActionUserList       = "users:list"
	ActionBookingReadAny = "booking:read_any"
	ActionBookingCreate  = "booking:create"
	ActionProfile        = "profile"
)

//go:embed policy.rego
var policyModule string

// Policy evaluates the embedded Rego role policy in-process.
type Policy struct {
	query rego.PreparedEvalQuery
}

func NewPolicy(ctx context.Context) (*Policy, error) {
	query, err := rego.New(
		rego.Query("data.ticketsys.authz.allow"),
		rego.Module("policy.rego", policyModule),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile policy: %w", err)
	}
	return &Policy{query: query}, nil
}

// Allow reports whether a caller with role may perform action.
func (p *Policy) Allow(ctx context.Context, role models.Role, action string) (bool, error) {
	rs, err := p.query.Eval(ctx, rego.EvalInput(map[string]any{
		"role":   string(role),
		"action": action,
	}))
	if err != nil {
		return false, fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if len(rs) != 1 || len(rs[0].Expressions) != 1 {
		return false, nil
	}
	allowed, ok := rs[0].Expressions[0].Value.(bool)
	return ok && allowed, nil
}
