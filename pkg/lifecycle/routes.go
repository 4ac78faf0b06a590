package lifecycle

// Label carries the human-facing name and description for a state.
type Label struct {
	DisplayName string
	Description string
}

// routes maps each state to the portal destination a client in that state
// should land on. Presentation collaborators resolve destinations here so the
// mapping stays single-sourced next to the rule table.
var routes = map[State]string{
	StateIntake:          "/portal/intake",
	StateDesignReview:    "/portal/design-review",
	StatePreviewReady:    "/portal/preview",
	StateActivation:      "/portal/activate",
	StateFinalOnboarding: "/portal/onboarding",
	StateLive:            "/portal/dashboard",
	StateSupport:         "/portal/support",
}

var labels = map[State]Label{
	StateIntake:          {DisplayName: "Intake", Description: "Business details are being collected"},
	StateDesignReview:    {DisplayName: "Design review", Description: "The team is preparing a draft"},
	StatePreviewReady:    {DisplayName: "Preview ready", Description: "A preview is waiting for approval"},
	StateActivation:      {DisplayName: "Activation", Description: "Approved and awaiting payment"},
	StateFinalOnboarding: {DisplayName: "Final onboarding", Description: "Payment received, collecting final content"},
	StateLive:            {DisplayName: "Live", Description: "Deployed and running"},
	StateSupport:         {DisplayName: "Support", Description: "A support request is being handled"},
}

// RouteFor returns the portal destination for a state. Unknown states fall
// back to the intake route so presentation code never renders a dead link.
func RouteFor(state State) string {
	if route, ok := routes[state]; ok {
		return route
	}
	return routes[StateIntake]
}

// LabelFor returns the display name and description for a state. Unknown
// states fall back to the intake label.
func LabelFor(state State) Label {
	if label, ok := labels[state]; ok {
		return label
	}
	return labels[StateIntake]
}
