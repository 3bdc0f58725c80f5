package provision

import "github.com/flo-mic/absprovision/internal/logging"

// State is where an invocation is in its lifecycle.
type State int

const (
	Validating State = iota
	InFlight
	Reconciling
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Validating:
		return "validating"
	case InFlight:
		return "in-flight"
	case Reconciling:
		return "reconciling"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// invocation tracks the state of one Provision or Teardown call.
type invocation struct {
	op      string
	state   State
	observe func(State)
}

func (e *Engine) begin(op string) *invocation {
	inv := &invocation{op: op, state: Validating, observe: e.observe}
	logging.Debug("provision state", "op", op, "state", Validating)
	if inv.observe != nil {
		inv.observe(Validating)
	}
	return inv
}

func (inv *invocation) to(s State) {
	logging.Debug("provision state", "op", inv.op, "from", inv.state, "to", s)
	inv.state = s
	if inv.observe != nil {
		inv.observe(s)
	}
}

// fail moves to Failed and hands err back to the caller.
func (inv *invocation) fail(err error) error {
	inv.to(Failed)
	return err
}
