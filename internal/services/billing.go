package services

import "strings"

// Plan is the read-only billing metadata consumed by organization lifecycle
// operations. Billing itself lives outside this service.
type Plan struct {
	Name       string
	Segment    string
	MaxMembers int
}

// PlanResolver supplies plan metadata for a plan identifier.
type PlanResolver interface {
	Resolve(plan string) (Plan, bool)
}

// StaticPlanResolver is a map-backed PlanResolver, typically populated from
// configuration at startup.
type StaticPlanResolver struct {
	plans map[string]Plan
}

// NewStaticPlanResolver builds a resolver over the supplied plans, keyed by
// lower-cased plan name.
func NewStaticPlanResolver(plans []Plan) *StaticPlanResolver {
	index := make(map[string]Plan, len(plans))
	for _, plan := range plans {
		name := strings.ToLower(strings.TrimSpace(plan.Name))
		if name == "" {
			continue
		}
		index[name] = plan
	}
	return &StaticPlanResolver{plans: index}
}

// Resolve returns the plan metadata for the given name.
func (r *StaticPlanResolver) Resolve(plan string) (Plan, bool) {
	if r == nil {
		return Plan{}, false
	}
	found, ok := r.plans[strings.ToLower(strings.TrimSpace(plan))]
	return found, ok
}

// DefaultPlans are the ceilings used when configuration supplies none.
func DefaultPlans() []Plan {
	return []Plan{
		{Name: "starter", Segment: "team", MaxMembers: 5},
		{Name: "growth", Segment: "team", MaxMembers: 25},
		{Name: "enterprise", Segment: "enterprise", MaxMembers: 100},
	}
}
