package promo

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Rule captures a promo code and the discount it grants.
type Rule struct {
	ID         uuid.UUID
	Code       string
	PercentBps int32
	ValidFrom  *time.Time
	ValidTo    *time.Time
	UsageLimit *int32
	UsedCount  int32
}

// Active reports whether the rule can still be redeemed at the given instant.
func (r Rule) Active(now time.Time) bool {
	if r.PercentBps <= 0 {
		return false
	}
	if r.ValidFrom != nil && now.Before(*r.ValidFrom) {
		return false
	}
	if r.ValidTo != nil && now.After(*r.ValidTo) {
		return false
	}
	if r.UsageLimit != nil && *r.UsageLimit >= 0 && r.UsedCount >= *r.UsageLimit {
		return false
	}
	return true
}

// Normalize canonicalises a user-supplied code for lookup. Matching is
// case-insensitive and ignores surrounding whitespace.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Resolver maps promo codes onto discount rates.
//
// Resolve is side-effect free: re-submitting an already applied code yields
// the same rate and never compounds. Tracking whether a code has been applied
// to a session belongs to the caller.
type Resolver struct {
	rules map[string]Rule
	Now   func() time.Time
}

// NewResolver builds a resolver over the provided rule table. Later entries
// with a duplicate code win.
func NewResolver(rules []Rule) *Resolver {
	table := make(map[string]Rule, len(rules))
	for _, rule := range rules {
		key := Normalize(rule.Code)
		if key == "" {
			continue
		}
		table[key] = rule
	}
	return &Resolver{rules: table}
}

// DefaultRules returns the seed rule table: the storefront's single
// well-known code granting 20% off the subtotal.
func DefaultRules() []Rule {
	return []Rule{{ID: uuid.New(), Code: "ARGAN20", PercentBps: 2000}}
}

func (r *Resolver) now() time.Time {
	if r != nil && r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Resolve returns the discount rate in basis points for the given code.
// Unknown, empty, expired or exhausted codes resolve to 0 and never error.
func (r *Resolver) Resolve(code string) int32 {
	if r == nil {
		return 0
	}
	key := Normalize(code)
	if key == "" {
		return 0
	}
	rule, ok := r.rules[key]
	if !ok || !rule.Active(r.now()) {
		return 0
	}
	return rule.PercentBps
}
