package telnet

import (
	"bytes"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

// State is the lifecycle state of a connection session.
type State int

const (
	StateHandshaking State = iota
	StateEstablished
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateHandshaking:
		return "handshaking"
	case StateEstablished:
		return "established"
	case StateClosing:
		return "closing"
	}
	return "closed"
}

var transitions = map[State][]State{
	StateHandshaking: {StateEstablished, StateClosing, StateClosed},
	StateEstablished: {StateClosing, StateClosed},
	StateClosing:     {StateClosed},
	StateClosed:      {},
}

// UpdateKind tags an Update.
type UpdateKind int

const (
	UpdateData UpdateKind = iota
	UpdateOption
	UpdateFatal
)

// Update is what a session hands up to the application side.
type Update struct {
	Kind   UpdateKind
	Data   []byte
	Change OptionChange
	Err    error // UpdateFatal, or ErrNegotiationTimeout on an expired request
}

const (
	keyDelete = 0x7f
	keyCtrlU  = 0x15
)

// Session is the protocol state of one connection. It performs no I/O: bytes
// go in through Receive, outbound bytes are collected with Outbound. It is
// not safe for concurrent use; its owner runs everything on one goroutine.
type Session struct {
	id       uint64
	cfg      Config
	scanner  *Scanner
	table    *Negotiator
	state    State
	pending  bytes.Buffer
	writer   *Writer
	terminal TerminalInfo
	logger   *slog.Logger

	bytesIn  int64
	bytesOut int64
}

func NewSession(id uint64, cfg Config, logger *slog.Logger) *Session {
	s := &Session{
		id:      id,
		cfg:     cfg,
		scanner: NewScanner(cfg.MaxSubnegotiationSize, cfg.PassThroughCommands),
		table:   NewNegotiator(cfg.Options, cfg.NegotiationTimeout),
		state:   StateHandshaking,
		logger:  logger,
	}
	s.writer = NewWriter(&s.pending)
	return s
}

func (s *Session) ID() uint64 {
	return s.id
}

func (s *Session) State() State {
	return s.state
}

func (s *Session) TerminalInfo() TerminalInfo {
	return s.terminal
}

// OptionState returns the negotiation state of option in dir.
func (s *Session) OptionState(option byte, dir Direction) OptionState {
	return s.table.State(option, dir)
}

// Enabled reports whether option is enabled in dir.
func (s *Session) Enabled(option byte, dir Direction) bool {
	return s.table.Enabled(option, dir)
}

// BytesIn and BytesOut count wire bytes received and handed out.
func (s *Session) BytesIn() int64  { return s.bytesIn }
func (s *Session) BytesOut() int64 { return s.bytesOut }

func (s *Session) transition(to State) error {
	if s.state == to {
		return nil
	}
	if !slices.Contains(transitions[s.state], to) {
		return fmt.Errorf("%w: invalid transition %s -> %s", ErrProtocolViolation, s.state, to)
	}
	s.logger.Debug("Telnet session state", "from", s.state, "to", to)
	s.state = to
	return nil
}

// Start sends the configured initial requests.
func (s *Session) Start(now time.Time) {
	for _, req := range s.cfg.InitialRequests {
		if err := s.Request(req.Option, true, req.Direction, now); err != nil {
			s.logger.Warn("Telnet initial request skipped", "opt", OptionName(req.Option), "dir", req.Direction, "err", err)
		}
	}
	s.checkHandshake()
}

// Receive processes one inbound chunk.
func (s *Session) Receive(buf []byte, now time.Time) []Update {
	if s.state >= StateClosing {
		return nil
	}
	s.bytesIn += int64(len(buf))

	var updates []Update
	for _, ev := range s.scanner.Feed(buf) {
		switch ev.Kind {
		case EventData:
			updates = append(updates, Update{Kind: UpdateData, Data: ev.Data})

		case EventNegotiation:
			s.logCommand("IN", ev.Verb, ev.Option)
			out := s.table.Apply(ev.Verb, ev.Option)
			if out.HasReply {
				s.writeAction(out.Reply)
			}
			if out.Changed {
				updates = append(updates, Update{Kind: UpdateOption, Change: out.Change})
				s.afterChange(out.Change)
			}

		case EventSubnegotiation:
			s.logger.Debug("Telnet sub-negotiation [IN]", "opt", OptionName(ev.Option), "len", len(ev.Data))
			if s.terminal.applySubnegotiation(ev.Option, ev.Data) {
				s.logger.Debug("Telnet terminal info", "type", s.terminal.Type, "dims", fmt.Sprintf("%dx%d", s.terminal.Width, s.terminal.Height))
			}

		case EventCommand:
			if u, ok := s.command(ev.Verb); ok {
				updates = append(updates, u)
			}

		case EventFatal:
			s.logger.Warn("Telnet protocol violation", "err", ev.Err)
			if err := s.transition(StateClosing); err != nil {
				s.logger.Error("Telnet session", "err", err)
			}
			return append(updates, Update{Kind: UpdateFatal, Err: ev.Err})
		}
	}

	s.checkHandshake()
	return updates
}

func (s *Session) command(verb byte) (Update, bool) {
	s.logger.Debug("Telnet command [IN]", "cmd", CommandName(verb))

	switch verb {
	case AYT:
		// Are You There?
		s.writer.Write([]byte("\r\n[Yes]\r\n"))
	case EC:
		if s.cfg.TranslateEditCommands {
			return Update{Kind: UpdateData, Data: []byte{keyDelete}}, true
		}
	case EL:
		if s.cfg.TranslateEditCommands {
			return Update{Kind: UpdateData, Data: []byte{keyCtrlU}}, true
		}
	case IP, AO, BRK:
		s.logger.Info("Telnet command received", "cmd", CommandName(verb))
	}
	return Update{}, false
}

// afterChange sends the follow-up subnegotiations some options need once
// the peer agreed to them.
func (s *Session) afterChange(change OptionChange) {
	if !change.Enabled || change.Direction != Remote {
		return
	}
	switch change.Option {
	case TType:
		// We must explicitly ask for the terminal type
		s.writeSubnegotiation(TType, []byte{SEND})
	case Linemode:
		s.writeSubnegotiation(Linemode, []byte{LinemodeMode, ModeEdit})
	}
}

func (s *Session) checkHandshake() {
	if s.state != StateHandshaking || s.table.Pending() {
		return
	}
	if err := s.transition(StateEstablished); err != nil {
		s.logger.Error("Telnet session", "err", err)
		return
	}

	ttype := s.terminal.Type
	if ttype == "" {
		ttype = "UNKNOWN"
	}
	dims := fmt.Sprintf("%dx%d", s.terminal.Width, s.terminal.Height)
	if s.terminal.Width == 0 || s.terminal.Height == 0 {
		dims = "UNKNOWN"
	}
	s.logger.Info("Telnet connection established", "terminal", ttype, "window", dims)
}

// Send queues application data, escaping IAC bytes.
func (s *Session) Send(data []byte) error {
	if s.state >= StateClosing {
		return ErrClosed
	}
	_, err := s.writer.Write(data)
	return err
}

// SendSubnegotiation queues an IAC SB <option> ... IAC SE frame.
func (s *Session) SendSubnegotiation(option byte, payload []byte) error {
	if s.state >= StateClosing {
		return ErrClosed
	}
	s.writeSubnegotiation(option, payload)
	return nil
}

// Request starts a locally initiated negotiation.
func (s *Session) Request(option byte, enable bool, dir Direction, now time.Time) error {
	if s.state >= StateClosing {
		return ErrClosed
	}
	action, ok, err := s.table.Request(option, enable, dir, now)
	if err != nil {
		return err
	}
	if ok {
		s.writeAction(action)
	}
	return nil
}

// Tick resolves requests that timed out.
func (s *Session) Tick(now time.Time) []Update {
	if s.state >= StateClosing {
		return nil
	}
	var updates []Update
	for _, change := range s.table.Expire(now) {
		s.logger.Debug("Telnet negotiation timeout", "opt", OptionName(change.Option), "dir", change.Direction)
		updates = append(updates, Update{Kind: UpdateOption, Change: change, Err: ErrNegotiationTimeout})
	}
	s.checkHandshake()
	return updates
}

// NextDeadline returns when Tick should next be called.
func (s *Session) NextDeadline() (time.Time, bool) {
	if s.state >= StateClosing {
		return time.Time{}, false
	}
	return s.table.NextDeadline()
}

// Outbound returns and clears the bytes waiting to be written.
func (s *Session) Outbound() []byte {
	if s.pending.Len() == 0 {
		return nil
	}
	out := bytes.Clone(s.pending.Bytes())
	s.pending.Reset()
	s.bytesOut += int64(len(out))
	return out
}

// Close starts a graceful close; pending bytes are still handed out.
func (s *Session) Close() {
	if s.state < StateClosing {
		s.transition(StateClosing)
	}
}

// Finish marks a drained session closed.
func (s *Session) Finish() {
	s.transition(StateClosed)
}

// Abort closes the session at once and discards unsent bytes.
func (s *Session) Abort() {
	s.pending.Reset()
	s.transition(StateClosed)
}

func (s *Session) writeAction(a Action) {
	if a.Kind == ActionCommand {
		s.logCommand("OUT", a.Verb, a.Option)
	}
	s.writer.WriteAction(a)
}

func (s *Session) writeSubnegotiation(option byte, payload []byte) {
	s.logger.Debug("Telnet sub-negotiation [OUT]", "opt", OptionName(option), "len", len(payload))
	s.writer.WriteSubNegotiation(option, payload)
}

func (s *Session) logCommand(direction string, cmd, option byte) {
	s.logger.Debug(fmt.Sprintf("Telnet command [%s]", direction), "cmd", CommandName(cmd), "opt", OptionName(option))
}
