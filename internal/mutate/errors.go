package mutate

import "fmt"

type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// CycleError reports a move that would make a task its own ancestor. The UI
// rejects such drops before they get here; this is the store-side backstop
// for hosts that bypass the drag controller.
type CycleError struct {
	MovedID  string
	TargetID string
}

func (e CycleError) Error() string {
	return fmt.Sprintf("move would create a cycle: %s into %s", e.MovedID, e.TargetID)
}
