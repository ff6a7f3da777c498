package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: links2pdf [flags] <links.csv>")
	fmt.Fprintln(w, "       links2pdf <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Save every article linked from a CSV file as a PDF.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  doctor       Check Chrome, pdfCropMargins and the environment")
	fmt.Fprintln(w, "  completion   Generate shell completion script")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w, "  help         Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'links2pdf help run' for the list of flags.")
}

// printRunUsage prints usage for a conversion run.
func printRunUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: links2pdf [flags] <links.csv>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render each linked article with headless Chrome, crop its margins and")
	fmt.Fprintln(w, "save it as <output>/<channel>/<date>_<title>.pdf.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  links.csv    CSV with the columns 公众号, 标题, 链接, 日期")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Input/Output:")
	fmt.Fprintln(w, "  -o, --output <dir>        Root directory for per-channel folders")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "      --report <file>       Write a YAML run report")
	fmt.Fprintln(w, "      --log-file <file>     Append logs to file (default: pdf_processing.log)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Rendering:")
	fmt.Fprintln(w, "  -w, --max-workers <n>     Concurrent browsers (default 1, 0 = auto)")
	fmt.Fprintln(w, "      --retries <n>         Attempts per link (default 3)")
	fmt.Fprintln(w, "      --no-crop             Keep PDFs uncropped")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output Control:")
	fmt.Fprintln(w, "  -q, --quiet               Only show warnings and errors")
	fmt.Fprintln(w, "  -v, --verbose             Show debug output")
	fmt.Fprintln(w, "      --progress            Show a progress bar on stderr")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  LINKS2PDF_CONFIG, LINKS2PDF_OUTPUT_DIR, LINKS2PDF_WORKERS,")
	fmt.Fprintln(w, "  LINKS2PDF_RETRIES, LINKS2PDF_LOG_FILE, LINKS2PDF_LOG_LEVEL,")
	fmt.Fprintln(w, "  LINKS2PDF_REPORT, LINKS2PDF_BROWSER_BIN, LINKS2PDF_NO_CROP")
	fmt.Fprintln(w, "  Flags win over environment, environment wins over the config file.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Exit status:")
	fmt.Fprintln(w, "  0  Run finished, even if some links failed (see the log or --report)")
	fmt.Fprintln(w, "  1  Unexpected error")
	fmt.Fprintln(w, "  2  Usage, config or CSV column error")
	fmt.Fprintln(w, "  3  CSV file missing or unreadable")
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: links2pdf doctor [--json] [--output <dir>]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check that Chrome and pdfCropMargins can be found and that the")
	fmt.Fprintln(w, "output directory is writable.")
}

// runHelp prints help for a specific command and returns the exit code.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}

	switch args[0] {
	case "run":
		printRunUsage(env.Stdout)
	case "doctor":
		printDoctorUsage(env.Stdout)
	case "completion":
		printCompletionUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: links2pdf version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: links2pdf help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}
	return ExitSuccess
}
