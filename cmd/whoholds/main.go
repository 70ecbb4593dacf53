//go:build linux

// Package main is the CLI entry point for whoholds.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oxyzenQ/zenlixem/internal/config"
	"github.com/oxyzenQ/zenlixem/internal/logging"
	"github.com/oxyzenQ/zenlixem/internal/output"
	"github.com/oxyzenQ/zenlixem/internal/proc"
	"github.com/oxyzenQ/zenlixem/internal/process"
	"github.com/oxyzenQ/zenlixem/internal/resolve"
	"github.com/oxyzenQ/zenlixem/internal/tui"
	"github.com/oxyzenQ/zenlixem/pkg/model"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

// Exit codes.
const (
	exitOK       = 0
	exitInvalid  = 1
	exitFatal    = 2
	exitDegraded = 3
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

type app struct {
	cfg    *config.Config
	stdout io.Writer
	stderr io.Writer
	code   int
}

// execute runs the command line and returns the process exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	a := &app{cfg: config.Default(), stdout: stdout, stderr: stderr}

	root := a.rootCmd()
	if args == nil {
		// cobra falls back to os.Args on nil
		args = []string{}
	}
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		return a.fail(err)
	}
	return a.code
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoholds [flags] <path|port>",
		Short: "Show which processes hold a file or port",
		Long: `whoholds reports every running process that holds a file, directory,
device node or TCP/UDP port, and how it holds it: an open descriptor,
working directory, root directory, executable or memory mapping.

An all-digit argument is a port; use ./123 for a file named 123.
Without root, processes of other users cannot be inspected. Sockets they
own are reported by owner uid and the result is marked partial.

Exit codes: 0 ok, 1 invalid input, 2 fatal error, 3 partial result.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildTime),
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), args)
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	f := cmd.Flags()
	f.BoolVar(&a.cfg.TCP, "tcp", false, "only consider TCP sockets")
	f.BoolVar(&a.cfg.UDP, "udp", false, "only consider UDP sockets")
	f.BoolVarP(&a.cfg.IPv4, "ipv4", "4", false, "only consider IPv4 sockets")
	f.BoolVarP(&a.cfg.IPv6, "ipv6", "6", false, "only consider IPv6 sockets")
	f.BoolVar(&a.cfg.Listening, "listening", false, "only listening TCP and unconnected UDP sockets")
	f.BoolVar(&a.cfg.Established, "established", false, "only established TCP connections")
	f.BoolVar(&a.cfg.Ports, "ports", false, "list every port and its holders")
	f.BoolVar(&a.cfg.JSON, "json", false, "output as JSON")
	f.BoolVar(&a.cfg.Tree, "tree", false, "show the process ancestry of each holder")
	f.BoolVar(&a.cfg.NoColor, "no-color", a.cfg.NoColor, "disable colorized output")
	f.BoolVarP(&a.cfg.Verbose, "verbose", "v", false, "log diagnostics to stderr")
	f.BoolVarP(&a.cfg.Interactive, "interactive", "i", false, "interactive mode")
	f.IntVar(&a.cfg.Workers, "workers", 0, "concurrent process inspections (0: one per CPU)")
	f.StringVar(&a.cfg.ProcRoot, "proc-root", a.cfg.ProcRoot, "procfs mount point")
	_ = f.MarkHidden("proc-root")

	cmd.AddCommand(a.versionCmd())
	return cmd
}

func (a *app) versionCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if jsonOutput {
				_ = output.WriteJSON(a.stdout, map[string]string{
					"version":    Version,
					"commit":     Commit,
					"build_time": BuildTime,
				})
				return
			}
			fmt.Fprintf(a.stdout, "whoholds %s (commit: %s, built: %s)\n", Version, Commit, BuildTime)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output version info as JSON")
	return cmd
}

// usageError marks errors caused by the command line itself.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func (a *app) run(ctx context.Context, args []string) error {
	if err := a.cfg.Validate(args); err != nil {
		return usageError{err}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.New(a.cfg.Verbose)
	defer func() { _ = logger.Sync() }()

	fs := proc.New(a.cfg.ProcRoot)
	resolver := resolve.New(fs, logger, a.cfg.Workers)
	opts := a.cfg.Options()
	theme := output.NewTheme(!a.cfg.NoColor)

	logger.Debug("starting",
		zap.String("proc_root", fs.Root()),
		zap.Strings("args", args),
		zap.Bool("ports", a.cfg.Ports))

	switch {
	case a.cfg.Interactive:
		o := tui.Options{Options: opts}
		if len(args) == 1 {
			o.Target = args[0]
		}
		return tui.Run(resolver, fs, o)

	case a.cfg.Ports:
		listing, err := resolver.Ports(ctx, opts)
		if err != nil {
			return err
		}
		if a.cfg.JSON {
			if err := output.WriteJSON(a.stdout, output.PortsJSON(listing, opts)); err != nil {
				return err
			}
		} else {
			output.RenderPorts(a.stdout, listing, theme)
		}
		a.code = resultCode(listing.Degraded)
		return nil
	}

	res, err := resolver.Resolve(ctx, args[0], opts)
	if err != nil {
		return err
	}
	if a.cfg.JSON {
		if err := output.WriteJSON(a.stdout, output.ResultJSON(res)); err != nil {
			return err
		}
	} else {
		output.RenderHolders(a.stdout, res, theme)
		if a.cfg.Tree {
			fmt.Fprintln(a.stdout)
			output.RenderTrees(a.stdout, ancestries(fs, res.Holders), theme)
		}
	}
	a.code = resultCode(res.Degraded)
	return nil
}

func resultCode(degraded bool) int {
	if degraded {
		return exitDegraded
	}
	return exitOK
}

// ancestries builds one chain per distinct confirmed holder, in holder order.
func ancestries(src process.SnapshotSource, holders []model.HolderEvidence) []output.Ancestry {
	var out []output.Ancestry
	seen := make(map[int]bool)
	for _, h := range holders {
		if !h.Confirmed || seen[h.PID] {
			continue
		}
		seen[h.PID] = true
		chain, err := process.BuildAncestry(src, h.PID)
		a := output.Ancestry{PID: h.PID, Chain: chain, Err: err}
		if l, ok := process.DetectLauncher(chain); ok {
			a.Launcher = l.String()
		}
		out = append(out, a)
	}
	return out
}

// classify maps an error to its exit code and JSON kind.
func classify(err error) (int, string) {
	var usage usageError
	switch {
	case errors.As(err, &usage),
		errors.Is(err, resolve.ErrInvalidTarget),
		errors.Is(err, resolve.ErrTargetNotFound):
		return exitInvalid, "invalid_input"
	default:
		return exitFatal, "fatal"
	}
}

func (a *app) fail(err error) int {
	code, kind := classify(err)
	if a.cfg.JSON {
		_ = output.WriteJSON(a.stdout, output.ErrorJSON(kind, err))
		return code
	}
	output.PrintError(a.stderr, err)
	if code == exitInvalid {
		fmt.Fprintln(a.stderr, "For usage and options, run: whoholds --help")
	}
	return code
}
