package config

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"telnetd/internal/network/telnet"
)

// TelnetConfig is the protocol section of the config file.
type TelnetConfig struct {
	NegotiationTimeout    time.Duration           `yaml:"negotiationTimeout"`
	WriteTimeout          time.Duration           `yaml:"writeTimeout"`
	MaxSubnegotiationSize int                     `yaml:"maxSubnegotiationSize"`
	PassThroughCommands   *bool                   `yaml:"passThroughCommands"`
	TranslateEditCommands *bool                   `yaml:"translateEditCommands"`
	Options               map[string]OptionPolicy `yaml:"options"`
	Initial               []InitialRequest        `yaml:"initial"`
}

// OptionPolicy is either a plain "accept"/"refuse" for both directions or a
// {local, remote} pair.
type OptionPolicy struct {
	Local  string `yaml:"local"`
	Remote string `yaml:"remote"`
}

// UnmarshalYAML implements custom unmarshaling for OptionPolicy to handle both string and object formats
func (p *OptionPolicy) UnmarshalYAML(value *yaml.Node) error {
	// Case 1: echo: accept
	if value.Kind == yaml.ScalarNode {
		p.Local = value.Value
		p.Remote = value.Value
		return nil
	}

	// Case 2: echo: { local: accept, remote: refuse }
	type plain OptionPolicy
	var tmp plain
	if err := value.Decode(&tmp); err != nil {
		return err
	}

	p.Local = tmp.Local
	p.Remote = tmp.Remote
	return nil
}

// InitialRequest is an option to ask for as soon as a client connects, such
// as "will echo" or "do naws".
type InitialRequest struct {
	Option    string `yaml:"option"`
	Direction string `yaml:"direction"`
}

// UnmarshalYAML accepts "do naws" / "will echo" shorthand as well as the
// {option, direction} form.
func (r *InitialRequest) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		fields := strings.Fields(value.Value)
		if len(fields) != 2 {
			return fmt.Errorf("line %d: expected \"will <option>\" or \"do <option>\", got %q", value.Line, value.Value)
		}
		switch strings.ToLower(fields[0]) {
		case "will":
			r.Direction = "local"
		case "do":
			r.Direction = "remote"
		default:
			return fmt.Errorf("line %d: unknown verb %q", value.Line, fields[0])
		}
		r.Option = fields[1]
		return nil
	}

	type plain InitialRequest
	var tmp plain
	if err := value.Decode(&tmp); err != nil {
		return err
	}
	*r = InitialRequest(tmp)
	return nil
}

// Protocol resolves the section into the immutable telnet.Config, falling
// back to telnet.DefaultConfig for anything left out.
func (c TelnetConfig) Protocol() (telnet.Config, error) {
	cfg := telnet.DefaultConfig()

	if c.NegotiationTimeout > 0 {
		cfg.NegotiationTimeout = c.NegotiationTimeout
	}
	if c.WriteTimeout > 0 {
		cfg.WriteTimeout = c.WriteTimeout
	}
	if c.MaxSubnegotiationSize > 0 {
		cfg.MaxSubnegotiationSize = c.MaxSubnegotiationSize
	}
	if c.PassThroughCommands != nil {
		cfg.PassThroughCommands = *c.PassThroughCommands
	}
	if c.TranslateEditCommands != nil {
		cfg.TranslateEditCommands = *c.TranslateEditCommands
	}

	if len(c.Options) > 0 {
		supported := make(map[byte]telnet.Support, len(c.Options))
		for name, policy := range c.Options {
			option, ok := telnet.LookupOption(name)
			if !ok {
				return telnet.Config{}, fmt.Errorf("unknown telnet option %q", name)
			}
			local, err := parsePolicy(policy.Local)
			if err != nil {
				return telnet.Config{}, fmt.Errorf("option %s: %w", name, err)
			}
			remote, err := parsePolicy(policy.Remote)
			if err != nil {
				return telnet.Config{}, fmt.Errorf("option %s: %w", name, err)
			}
			supported[option] = telnet.Support{Local: local, Remote: remote}
		}
		cfg.Options = telnet.NewOptionTable(supported)
	}

	if c.Initial != nil {
		cfg.InitialRequests = make([]telnet.InitialRequest, 0, len(c.Initial))
		for _, req := range c.Initial {
			option, ok := telnet.LookupOption(req.Option)
			if !ok {
				return telnet.Config{}, fmt.Errorf("unknown telnet option %q", req.Option)
			}
			dir, err := parseDirection(req.Direction)
			if err != nil {
				return telnet.Config{}, err
			}
			if !cfg.Options.Supports(option, dir) {
				return telnet.Config{}, fmt.Errorf("initial request %s (%s) is not an accepted option", req.Option, dir)
			}
			cfg.InitialRequests = append(cfg.InitialRequests, telnet.InitialRequest{Option: option, Direction: dir})
		}
	}

	return cfg, nil
}

func parsePolicy(s string) (telnet.Policy, error) {
	switch strings.ToLower(s) {
	case "accept", "yes", "true":
		return telnet.Accept, nil
	case "refuse", "no", "false", "":
		return telnet.Refuse, nil
	}
	return telnet.Refuse, fmt.Errorf("unknown policy %q", s)
}

func parseDirection(s string) (telnet.Direction, error) {
	switch strings.ToLower(s) {
	case "local", "will":
		return telnet.Local, nil
	case "remote", "do":
		return telnet.Remote, nil
	}
	return telnet.Local, fmt.Errorf("unknown direction %q", s)
}
