// Package config holds the command-line configuration and maps it onto
// engine options.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/oxyzenQ/zenlixem/internal/proc"
	"github.com/oxyzenQ/zenlixem/pkg/model"
)

const (
	EnvProcRoot = "WHOHOLDS_PROC_ROOT"
	EnvNoColor  = "NO_COLOR"
)

// ErrConflict is returned by Validate for mutually exclusive flags.
var ErrConflict = errors.New("conflicting options")

// Config holds the parsed command-line configuration.
type Config struct {
	// TCP and UDP narrow port targets; neither or both means both.
	TCP bool
	UDP bool
	// IPv4 and IPv6 narrow port targets to one address family.
	IPv4 bool
	IPv6 bool

	Listening   bool
	Established bool

	// Ports lists every socket instead of resolving a target.
	Ports bool

	JSON        bool
	Tree        bool
	NoColor     bool
	Verbose     bool
	Interactive bool

	// Workers bounds concurrent process inspection; 0 means CPU count.
	Workers int
	// ProcRoot is the procfs mount point.
	ProcRoot string
}

// Default returns the configuration before flags are applied, with
// environment overrides.
func Default() *Config {
	return FromEnv(os.LookupEnv)
}

// FromEnv is Default with an injectable environment lookup.
func FromEnv(lookup func(string) (string, bool)) *Config {
	cfg := &Config{ProcRoot: proc.DefaultRoot}
	if v, ok := lookup(EnvProcRoot); ok && v != "" {
		cfg.ProcRoot = v
	}
	// any value, even empty, disables color: https://no-color.org
	if _, ok := lookup(EnvNoColor); ok {
		cfg.NoColor = true
	}
	return cfg
}

// Validate checks flag combinations. args are the positional arguments.
func (c *Config) Validate(args []string) error {
	if c.Listening && c.Established {
		return fmt.Errorf("%w: --listening and --established", ErrConflict)
	}
	if c.IPv4 && c.IPv6 {
		return fmt.Errorf("%w: -4 and -6", ErrConflict)
	}
	if c.Workers < 0 {
		return fmt.Errorf("--workers must not be negative, got %d", c.Workers)
	}
	if c.ProcRoot == "" {
		return errors.New("--proc-root must not be empty")
	}
	if c.Tree && c.JSON {
		return fmt.Errorf("%w: --tree and --json", ErrConflict)
	}

	switch {
	case c.Interactive:
		if c.JSON {
			return fmt.Errorf("%w: --interactive and --json", ErrConflict)
		}
		if len(args) > 1 {
			return fmt.Errorf("expected at most one target, got %d", len(args))
		}
	case c.Ports:
		if len(args) > 0 {
			return fmt.Errorf("%w: --ports takes no target", ErrConflict)
		}
		if c.Tree {
			return fmt.Errorf("%w: --ports and --tree", ErrConflict)
		}
	default:
		if len(args) != 1 {
			return fmt.Errorf("expected exactly one target, got %d", len(args))
		}
	}
	return nil
}

// Options maps the configuration onto engine options.
func (c *Config) Options() model.Options {
	opts := model.Options{
		Protocol:      model.ProtocolBoth,
		Family:        model.FamilyAny,
		ListeningOnly: c.Listening,
		Established:   c.Established,
	}
	switch {
	case c.TCP && !c.UDP:
		opts.Protocol = model.ProtocolTCP
	case c.UDP && !c.TCP:
		opts.Protocol = model.ProtocolUDP
	}
	switch {
	case c.IPv4:
		opts.Family = model.FamilyV4
	case c.IPv6:
		opts.Family = model.FamilyV6
	}
	return opts
}
