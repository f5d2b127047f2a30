package telnet

import (
	"fmt"
	"time"
)

// OptionState represents the state of a Telnet option in one direction
type OptionState int

const (
	OptionDisabled OptionState = iota
	OptionRequested
	OptionEnabled
	OptionRefused
)

func (s OptionState) String() string {
	switch s {
	case OptionRequested:
		return "requested"
	case OptionEnabled:
		return "enabled"
	case OptionRefused:
		return "refused"
	}
	return "disabled"
}

type optionEntry struct {
	state    OptionState
	want     bool // desired value while requested
	deadline time.Time
}

// Outcome is the result of applying one inbound negotiation.
type Outcome struct {
	Reply    Action
	HasReply bool
	Change   OptionChange
	Changed  bool
}

// Negotiator tracks local and remote state for all 256 options and decides
// the reply to each WILL/WONT/DO/DONT. A reply is only produced when the
// state actually changes, which keeps two engines from looping.
type Negotiator struct {
	options OptionTable
	timeout time.Duration
	local   [256]optionEntry
	remote  [256]optionEntry
}

func NewNegotiator(options OptionTable, timeout time.Duration) *Negotiator {
	return &Negotiator{
		options: options,
		timeout: timeout,
	}
}

func (n *Negotiator) entry(option byte, dir Direction) *optionEntry {
	if dir == Remote {
		return &n.remote[option]
	}
	return &n.local[option]
}

// State returns the current state of option in dir.
func (n *Negotiator) State(option byte, dir Direction) OptionState {
	return n.entry(option, dir).state
}

// Enabled reports whether option is enabled in dir.
func (n *Negotiator) Enabled(option byte, dir Direction) bool {
	return n.entry(option, dir).state == OptionEnabled
}

// Pending reports whether any request is awaiting a reply.
func (n *Negotiator) Pending() bool {
	_, ok := n.NextDeadline()
	return ok
}

// Apply runs one inbound negotiation command through the state machine.
func (n *Negotiator) Apply(verb, option byte) Outcome {
	var (
		dir      Direction
		positive bool
	)
	switch verb {
	case DO:
		dir, positive = Local, true
	case DONT:
		dir, positive = Local, false
	case WILL:
		dir, positive = Remote, true
	case WONT:
		dir, positive = Remote, false
	default:
		return Outcome{}
	}

	e := n.entry(option, dir)
	out := Outcome{Change: OptionChange{Option: option, Direction: dir}}

	if positive {
		switch e.state {
		case OptionEnabled:
			// Already on, a reply would start a loop.
		case OptionRequested:
			// The peer answered our request.
			if e.want {
				e.state = OptionEnabled
				out.Change.Enabled = true
			} else {
				e.state = OptionDisabled
			}
			out.Changed = true
		default:
			if n.options.Supports(option, dir) {
				e.state = OptionEnabled
				out.Reply, out.HasReply = Command(acceptVerb(dir), option), true
				out.Change.Enabled = true
				out.Changed = true
			} else {
				// Refusals are answers to requests, not announcements, so
				// they are sent every time.
				e.state = OptionDisabled
				out.Reply, out.HasReply = Command(refuseVerb(dir), option), true
			}
		}
		return out
	}

	switch e.state {
	case OptionEnabled:
		e.state = OptionDisabled
		out.Reply, out.HasReply = Command(refuseVerb(dir), option), true
		out.Changed = true
	case OptionRequested:
		if e.want {
			e.state = OptionRefused
		} else {
			e.state = OptionDisabled
		}
		out.Changed = true
	}
	return out
}

// Request starts a locally initiated negotiation. It returns the command to
// send, or ok=false when nothing needs to be sent.
func (n *Negotiator) Request(option byte, enable bool, dir Direction, now time.Time) (Action, bool, error) {
	e := n.entry(option, dir)

	if enable && !n.options.Supports(option, dir) {
		return Action{}, false, fmt.Errorf("%w: %s (%s)", ErrUnsupportedOption, OptionName(option), dir)
	}

	switch e.state {
	case OptionRequested:
		if e.want == enable {
			return Action{}, false, nil
		}
		return Action{}, false, fmt.Errorf("%w: %s (%s)", ErrRequestPending, OptionName(option), dir)
	case OptionEnabled:
		if enable {
			return Action{}, false, nil
		}
	default:
		if !enable {
			return Action{}, false, nil
		}
	}

	e.state = OptionRequested
	e.want = enable
	e.deadline = now.Add(n.timeout)

	if enable {
		return Command(acceptVerb(dir), option), true, nil
	}
	return Command(refuseVerb(dir), option), true, nil
}

// Expire resolves every request whose deadline has passed. Each resolved
// request yields exactly one disabled change.
func (n *Negotiator) Expire(now time.Time) []OptionChange {
	var changes []OptionChange
	for _, dir := range []Direction{Local, Remote} {
		for i := 0; i < 256; i++ {
			e := n.entry(byte(i), dir)
			if e.state != OptionRequested || now.Before(e.deadline) {
				continue
			}
			if e.want {
				e.state = OptionRefused
			} else {
				e.state = OptionDisabled
			}
			changes = append(changes, OptionChange{Option: byte(i), Direction: dir})
		}
	}
	return changes
}

// NextDeadline returns the earliest deadline among outstanding requests.
func (n *Negotiator) NextDeadline() (time.Time, bool) {
	var (
		next  time.Time
		found bool
	)
	for _, entries := range []*[256]optionEntry{&n.local, &n.remote} {
		for i := range entries {
			e := &entries[i]
			if e.state != OptionRequested {
				continue
			}
			if !found || e.deadline.Before(next) {
				next, found = e.deadline, true
			}
		}
	}
	return next, found
}

func acceptVerb(dir Direction) byte {
	if dir == Remote {
		return DO
	}
	return WILL
}

func refuseVerb(dir Direction) byte {
	if dir == Remote {
		return DONT
	}
	return WONT
}
