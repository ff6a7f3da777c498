package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	env := DefaultEnv()

	// Configure GOMAXPROCS before auto worker sizing reads it.
	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply and the program continues safely.
	if hasVerboseFlag(os.Args[1:]) {
		_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
			fmt.Fprintf(env.Stderr, format+"\n", args...)
		}))
	} else {
		_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))
	}

	os.Exit(runMain(os.Args, env))
}

// runMain dispatches subcommands and returns the process exit code.
func runMain(args []string, env *Environment) int {
	if len(args) < 2 {
		printUsage(env.Stderr)
		return ExitUsage
	}

	switch args[1] {
	case "version":
		printVersion(env.Stdout)
		return ExitSuccess
	case "help":
		return runHelp(args[2:], env)
	case "doctor":
		return runDoctorCmd(args[2:], env)
	case "completion":
		if err := runCompletion(args[2:], env); err != nil {
			fmt.Fprintln(env.Stderr, "error:", err)
			return exitCodeFor(err)
		}
		return ExitSuccess
	}

	flags, positional, err := parseRunFlags(args[1:], env.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return ExitSuccess
	}
	if err != nil {
		fmt.Fprintln(env.Stderr, "error:", err)
		return ExitUsage
	}
	if len(positional) != 1 {
		if len(positional) > 1 {
			fmt.Fprintf(env.Stderr, "error: expected one CSV file, got %d arguments\n", len(positional))
		}
		printUsage(env.Stderr)
		return ExitUsage
	}

	ctx, stop := interruptContext(context.Background())
	defer stop()

	if err := runBatch(ctx, positional[0], flags, env); err != nil {
		fmt.Fprintln(env.Stderr, "error:", err)
		return exitCodeFor(err)
	}
	return ExitSuccess
}

// hasVerboseFlag reports whether -v or --verbose appears before "--".
func hasVerboseFlag(args []string) bool {
	for _, arg := range args {
		switch arg {
		case "--":
			return false
		case "-v", "--verbose":
			return true
		}
	}
	return false
}

// printVersion writes the program name and build version.
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "links2pdf %s\n", Version)
}
