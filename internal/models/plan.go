package models

import "strings"

// Plan identifies the entitlement class of a user.
type Plan string

// Plan constants define the supported entitlement classes.
const (
	// PlanTrial is assigned at signup with a fixed question allowance.
	PlanTrial Plan = "trial"
	// PlanFree is the unpaid plan with a daily question ceiling.
	PlanFree Plan = "free"
	// PlanHobby is the entry paid plan.
	PlanHobby Plan = "hobby"
	// PlanOccasional is the mid paid plan.
	PlanOccasional Plan = "occasional"
	// PlanProfessional is the upper paid plan.
	PlanProfessional Plan = "professional"
	// PlanEnterprise is the top paid plan.
	PlanEnterprise Plan = "enterprise"
)

// planAliases maps legacy short codes and full names to plans.
var planAliases = map[string]Plan{
	"trial":        PlanTrial,
	"free":         PlanFree,
	"hobby":        PlanHobby,
	"occ":          PlanOccasional,
	"occasional":   PlanOccasional,
	"pro":          PlanProfessional,
	"professional": PlanProfessional,
	"ent":          PlanEnterprise,
	"enterprise":   PlanEnterprise,
}

// ParsePlan resolves a plan name or legacy short code.
func ParsePlan(raw string) (Plan, bool) {
	plan, ok := planAliases[strings.ToLower(strings.TrimSpace(raw))]
	return plan, ok
}

// Valid reports whether p is a known plan.
func (p Plan) Valid() bool {
	parsed, ok := planAliases[string(p)]
	return ok && parsed == p
}

// IsPaid reports whether p is one of the paid tiers.
func (p Plan) IsPaid() bool {
	switch p {
	case PlanHobby, PlanOccasional, PlanProfessional, PlanEnterprise:
		return true
	default:
		return false
	}
}

// IsUnpaid reports whether p is trial or free.
func (p Plan) IsUnpaid() bool {
	return p == PlanTrial || p == PlanFree
}
