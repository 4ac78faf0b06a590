package lifecycle

import (
	"fmt"
	"slices"
)

// Rule is a single allowed edge in the lifecycle graph: who may move an
// account from one state to another.
type Rule struct {
	From   State
	To     State
	Actors []Actor
}

// allows reports whether the rule permits the given actor category.
func (r Rule) allows(actor Actor) bool {
	return slices.Contains(r.Actors, actor)
}

// transitionRules is the authoritative transition table. It is fixed by
// business policy, not configuration: the graph is mostly linear with two
// deliberate cycles (design_review <-> preview_ready for revision loops,
// live <-> support for the support loop). Self-loops and stage skipping are
// absent on purpose; any request not matching a row is rejected.
var transitionRules = []Rule{
	{From: StateIntake, To: StateDesignReview, Actors: []Actor{ActorCustomer}},

	{From: StateDesignReview, To: StatePreviewReady, Actors: []Actor{ActorAdmin}},
	// Admin sends the intake back to the client for edits.
	{From: StateDesignReview, To: StateIntake, Actors: []Actor{ActorAdmin}},

	// Client approves the preview and moves on to payment.
	{From: StatePreviewReady, To: StateActivation, Actors: []Actor{ActorCustomer}},
	// Client requests another revision round.
	{From: StatePreviewReady, To: StateDesignReview, Actors: []Actor{ActorCustomer}},

	// Payment success, delivered by the provider webhook or replayed by
	// internal automation when the webhook was missed.
	{From: StateActivation, To: StateFinalOnboarding, Actors: []Actor{ActorWebhook, ActorSystem}},

	{From: StateFinalOnboarding, To: StateLive, Actors: []Actor{ActorAdmin}},

	// Support loop: opened automatically or by the client, resolved by staff.
	{From: StateLive, To: StateSupport, Actors: []Actor{ActorSystem, ActorCustomer}},
	{From: StateSupport, To: StateLive, Actors: []Actor{ActorAdmin}},
}

// rulesByFrom indexes the table for O(1) lookup by source state,
// mirroring the nested-map layout used for transition lookup elsewhere
// in the module family.
var rulesByFrom = func() map[State][]Rule {
	idx := make(map[State][]Rule, len(AllStates))
	for _, r := range transitionRules {
		idx[r.From] = append(idx[r.From], r)
	}
	return idx
}()

// The rule set is static, so a malformed table is a programming error:
// fail at init rather than reject valid requests at runtime.
func init() {
	if err := validateRules(transitionRules); err != nil {
		panic(fmt.Sprintf("lifecycle: invalid transition table: %v", err))
	}
}

func validateRules(rules []Rule) error {
	for i, r := range rules {
		if !r.From.Valid() {
			return fmt.Errorf("rule %d: unknown from state %q", i, r.From)
		}
		if !r.To.Valid() {
			return fmt.Errorf("rule %d: unknown to state %q", i, r.To)
		}
		if r.From == r.To {
			return fmt.Errorf("rule %d: self-loop on %q", i, r.From)
		}
		if len(r.Actors) == 0 {
			return fmt.Errorf("rule %d: no actors for %q -> %q", i, r.From, r.To)
		}
		for _, a := range r.Actors {
			if !a.Valid() {
				return fmt.Errorf("rule %d: unknown actor %q", i, a)
			}
		}
	}
	return nil
}

// RulesFor returns the outbound rules for the given state. The returned slice
// is a copy; callers may not mutate the table.
func RulesFor(from State) []Rule {
	rules := rulesByFrom[from]
	out := make([]Rule, len(rules))
	for i, r := range rules {
		out[i] = Rule{From: r.From, To: r.To, Actors: slices.Clone(r.Actors)}
	}
	return out
}

// IsAllowed reports whether the given actor category may move an account from
// one state to another. This is the single authorization decision point; the
// Executor consults it before every write.
func IsAllowed(from, to State, actor Actor) bool {
	for _, r := range rulesByFrom[from] {
		if r.To == to && r.allows(actor) {
			return true
		}
	}
	return false
}

// ReachableStates returns every state the given actor category could legally
// move to from the given state. Presentation collaborators use this to render
// only the actions that would actually succeed.
func ReachableStates(from State, actor Actor) []State {
	var out []State
	for _, r := range rulesByFrom[from] {
		if r.allows(actor) && !slices.Contains(out, r.To) {
			out = append(out, r.To)
		}
	}
	return out
}
