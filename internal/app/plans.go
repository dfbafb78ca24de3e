package app

import "github.com/ashack/portfolio-sub000/internal/services"

// PlanSet converts configured plans into the billing representation,
// falling back to the built-in ceilings when none are configured.
func (c *Config) PlanSet() []services.Plan {
	if len(c.Plans) == 0 {
		return services.DefaultPlans()
	}

	plans := make([]services.Plan, 0, len(c.Plans))
	for _, p := range c.Plans {
		plans = append(plans, services.Plan{
			Name:       p.Name,
			Segment:    p.Segment,
			MaxMembers: p.MaxMembers,
		})
	}
	return plans
}
