package entity

// ModelState is the lifecycle state of the model owned by this process
type ModelState string

const (
	ModelStateStarting     ModelState = "starting"
	ModelStateReady        ModelState = "ready"
	ModelStateFailed       ModelState = "failed"
	ModelStateShuttingDown ModelState = "shutting_down"
)

// AcceptsPredictions returns true if predict requests may be served
func (s ModelState) AcceptsPredictions() bool {
	return s == ModelStateReady
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next
func (s ModelState) CanTransitionTo(next ModelState) bool {
	switch s {
	case ModelStateStarting:
		return next == ModelStateReady || next == ModelStateFailed || next == ModelStateShuttingDown
	case ModelStateReady:
		return next == ModelStateShuttingDown
	default:
		return false
	}
}
