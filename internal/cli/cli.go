package cli

import (
	"flag"
	"io"
)

// CLIArgs are the command-line arguments for the scan service.
type CLIArgs struct {
	// ListenAddr overrides the configured listen address when non-empty.
	ListenAddr string

	// ConfigPath is an optional YAML config file.
	ConfigPath string

	// Verbose enables debug logging.
	Verbose bool

	// RawArgs is the original args slice (useful for debugging/tests).
	RawArgs []string
}

// ParseArgs parses a slice of args and returns CLIArgs. Use in tests by
// passing arbitrary slices. The function is deterministic and does not read
// os.Args.
func ParseArgs(args []string) (*CLIArgs, error) {
	fs := flag.NewFlagSet("phishguard", flag.ContinueOnError)
	var (
		listen  = fs.String("listen", "", "Listen address, e.g. :8080 (overrides config)")
		cfgPath = fs.String("config", "", "Path to YAML config file")
		verbose = fs.Bool("verbose", false, "Enable debug logging")
	)

	fs.SetOutput(io.Discard)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return &CLIArgs{
		ListenAddr: *listen,
		ConfigPath: *cfgPath,
		Verbose:    *verbose,
		RawArgs:    args,
	}, nil
}
