package telnet

import "fmt"

// EventKind tags a decoded Event.
type EventKind int

const (
	EventData EventKind = iota
	EventNegotiation
	EventSubnegotiation
	EventCommand
	EventFatal
)

// Event is one unit decoded from the inbound byte stream.
type Event struct {
	Kind   EventKind
	Verb   byte   // EventNegotiation and EventCommand
	Option byte   // EventNegotiation and EventSubnegotiation
	Data   []byte // EventData and EventSubnegotiation
	Err    error  // EventFatal
}

func (e Event) String() string {
	switch e.Kind {
	case EventData:
		return fmt.Sprintf("Data(%q)", e.Data)
	case EventNegotiation:
		return fmt.Sprintf("Negotiation(%s %s)", CommandName(e.Verb), OptionName(e.Option))
	case EventSubnegotiation:
		return fmt.Sprintf("Subnegotiation(%s %q)", OptionName(e.Option), e.Data)
	case EventCommand:
		return fmt.Sprintf("Command(%s)", CommandName(e.Verb))
	case EventFatal:
		return fmt.Sprintf("Fatal(%v)", e.Err)
	}
	return "Event(?)"
}

// ActionKind tags an outbound Action.
type ActionKind int

const (
	ActionRaw ActionKind = iota
	ActionCommand
)

// Action is a unit of outbound protocol traffic.
type Action struct {
	Kind   ActionKind
	Data   []byte // ActionRaw, already escaped
	Verb   byte   // ActionCommand
	Option byte   // ActionCommand
}

// Command builds an IAC <verb> <option> action.
func Command(verb, option byte) Action {
	return Action{Kind: ActionCommand, Verb: verb, Option: option}
}

// Bytes returns the wire form of the action.
func (a Action) Bytes() []byte {
	if a.Kind == ActionCommand {
		return []byte{IAC, a.Verb, a.Option}
	}
	return a.Data
}

// Direction tells which side of the connection an option applies to. Local
// options are performed by us (WILL/WONT), remote options by the peer
// (DO/DONT).
type Direction int

const (
	Local Direction = iota
	Remote
)

func (d Direction) String() string {
	if d == Remote {
		return "remote"
	}
	return "local"
}

// OptionChange reports that an option settled in a direction.
type OptionChange struct {
	Option    byte
	Direction Direction
	Enabled   bool
}
