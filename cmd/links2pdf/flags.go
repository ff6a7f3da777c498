package main

import (
	"io"

	flag "github.com/spf13/pflag"
)

// runFlags holds all flags for a conversion run.
type runFlags struct {
	config   string
	output   string
	workers  int
	retries  int
	logFile  string
	report   string
	quiet    bool
	verbose  bool
	noCrop   bool
	progress bool

	// Set when the flag appears on the command line, so that explicit
	// values equal to the default still override config and environment.
	workersSet bool
	retriesSet bool
	logFileSet bool
}

// newRunFlagSet registers every run flag on a new FlagSet.
// Shared by parseRunFlags and shell completion.
func newRunFlagSet(f *runFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("links2pdf", flag.ContinueOnError)

	// I/O
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.StringVarP(&f.output, "output", "o", "", "root directory for per-channel folders")
	fs.StringVar(&f.report, "report", "", "write a YAML run report to this file")
	fs.StringVar(&f.logFile, "log-file", "", "append logs to this file (\"\" = console only)")

	// Rendering
	fs.IntVarP(&f.workers, "max-workers", "w", 1, "concurrent browsers (0 = auto)")
	fs.IntVar(&f.retries, "retries", 0, "attempts per link (default from config: 3)")
	fs.BoolVar(&f.noCrop, "no-crop", false, "keep PDFs uncropped")

	// Output control
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show warnings and errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show debug output")
	fs.BoolVar(&f.progress, "progress", false, "show a progress bar on stderr")

	return fs
}

// parseRunFlags parses run flags and returns positional args.
// Usage goes to usageOut on -h or a parse error.
func parseRunFlags(args []string, usageOut io.Writer) (*runFlags, []string, error) {
	f := &runFlags{}
	fs := newRunFlagSet(f)
	fs.SetOutput(io.Discard)
	fs.Usage = func() { printRunUsage(usageOut) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	f.workersSet = fs.Changed("max-workers")
	f.retriesSet = fs.Changed("retries")
	f.logFileSet = fs.Changed("log-file")

	return f, fs.Args(), nil
}
