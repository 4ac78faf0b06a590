package lifecycle

// State represents one discrete stage in a client account's production
// pipeline. The set is closed; adjacency between states is defined by the
// transition table in rules.go, not by declaration order.
type State string

const (
	// StateIntake is the initial stage: the client fills in business details.
	StateIntake State = "intake"
	// StateDesignReview means the submitted intake is being turned into a draft.
	StateDesignReview State = "design_review"
	// StatePreviewReady means a draft is available for the client to approve.
	StatePreviewReady State = "preview_ready"
	// StateActivation means the client approved and payment is pending.
	StateActivation State = "activation"
	// StateFinalOnboarding means payment cleared; final content is collected.
	StateFinalOnboarding State = "final_onboarding"
	// StateLive means the deliverable has been deployed.
	StateLive State = "live"
	// StateSupport means the account is in an open support loop.
	StateSupport State = "support"
)

// AllStates lists every state in pipeline order. Useful for exhaustive
// iteration; the order carries no authorization meaning.
var AllStates = []State{
	StateIntake,
	StateDesignReview,
	StatePreviewReady,
	StateActivation,
	StateFinalOnboarding,
	StateLive,
	StateSupport,
}

// Valid reports whether s is one of the seven known states.
func (s State) Valid() bool {
	switch s {
	case StateIntake, StateDesignReview, StatePreviewReady, StateActivation,
		StateFinalOnboarding, StateLive, StateSupport:
		return true
	}
	return false
}

func (s State) String() string {
	return string(s)
}

// ParseState converts a raw string (e.g. a database column or request field)
// into a State. Returns ErrUnknownState for anything outside the enumeration.
func ParseState(raw string) (State, error) {
	s := State(raw)
	if !s.Valid() {
		return "", ErrUnknownState
	}
	return s, nil
}

// Actor is the coarse permission class of whoever triggers a transition.
// It is not an identity; pass the concrete identity separately via
// WithActorID when executing a transition.
type Actor string

const (
	// ActorCustomer is the account owner acting through the client portal.
	ActorCustomer Actor = "customer"
	// ActorAdmin is a staff member acting through the admin surface.
	ActorAdmin Actor = "admin"
	// ActorSystem is internal automation (scheduled jobs, housekeeping).
	ActorSystem Actor = "system"
	// ActorWebhook is an external event callback, typically the payment
	// provider confirming a charge. Kept distinct from ActorSystem even though
	// their permissions overlap: the ledger must record which trigger fired.
	ActorWebhook Actor = "webhook"
)

// AllActors lists every actor category.
var AllActors = []Actor{ActorCustomer, ActorAdmin, ActorSystem, ActorWebhook}

// Valid reports whether a is one of the four known actor categories.
func (a Actor) Valid() bool {
	switch a {
	case ActorCustomer, ActorAdmin, ActorSystem, ActorWebhook:
		return true
	}
	return false
}

func (a Actor) String() string {
	return string(a)
}

// ParseActor converts a raw string into an Actor. Returns ErrUnknownActor for
// anything outside the enumeration.
func ParseActor(raw string) (Actor, error) {
	a := Actor(raw)
	if !a.Valid() {
		return "", ErrUnknownActor
	}
	return a, nil
}
