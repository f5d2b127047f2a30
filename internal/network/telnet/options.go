package telnet

// Policy decides how the engine answers a peer asking for an option.
type Policy int

const (
	Refuse Policy = iota
	Accept
)

func (p Policy) String() string {
	if p == Accept {
		return "accept"
	}
	return "refuse"
}

// Support holds the per-direction policy of one option.
type Support struct {
	Local  Policy
	Remote Policy
}

// Supports reports whether the option is accepted in the given direction.
func (s Support) Supports(dir Direction) bool {
	if dir == Remote {
		return s.Remote == Accept
	}
	return s.Local == Accept
}

// OptionTable is the fixed 256-entry support table shared by all
// connections. It is a value: every Negotiator holds its own copy.
type OptionTable struct {
	entries [256]Support
}

// NewOptionTable builds a table from the given supported options; anything
// not listed is refused in both directions.
func NewOptionTable(supported map[byte]Support) OptionTable {
	var t OptionTable
	for option, s := range supported {
		t.entries[option] = s
	}
	return t
}

// DefaultOptions returns the table shipped with the engine.
func DefaultOptions() OptionTable {
	return NewOptionTable(map[byte]Support{
		Echo:           {Local: Accept},
		SGA:            {Local: Accept, Remote: Accept},
		Linemode:       {Remote: Accept},
		TransmitBinary: {Local: Accept, Remote: Accept},
		NAWS:           {Remote: Accept},
		TType:          {Remote: Accept},
	})
}

// Get returns the support entry of an option.
func (t OptionTable) Get(option byte) Support {
	return t.entries[option]
}

// Supports reports whether option is accepted in dir.
func (t OptionTable) Supports(option byte, dir Direction) bool {
	return t.entries[option].Supports(dir)
}

// Supported lists the options accepted in at least one direction.
func (t OptionTable) Supported() []byte {
	var out []byte
	for i, s := range t.entries {
		if s.Local == Accept || s.Remote == Accept {
			out = append(out, byte(i))
		}
	}
	return out
}
