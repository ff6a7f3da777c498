package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"
)

// Shell represents a supported shell for completion generation.
type Shell string

// Supported shells for completion.
const (
	ShellBash       Shell = "bash"
	ShellZsh        Shell = "zsh"
	ShellFish       Shell = "fish"
	ShellPowerShell Shell = "powershell"
)

// ErrUnsupportedShell is returned when an unknown shell is requested.
var ErrUnsupportedShell = errors.New("unsupported shell")

// flagType represents the completion type for a flag.
type flagType int

const (
	flagString flagType = iota // default
	flagBool
	flagInt
	flagFile // file with extension filter
	flagDir  // directory
)

// flagDef describes a flag for completion purposes.
type flagDef struct {
	Long  string   // --output
	Short string   // -o (empty if none)
	Type  flagType // completion type
	Desc  string   // help text
	Exts  []string // for file flags, without the dot
}

// takesValue reports whether the flag consumes the next word.
func (f flagDef) takesValue() bool {
	return f.Type != flagBool
}

// commandDef describes a subcommand for completion.
type commandDef struct {
	Name  string
	Desc  string
	Args  []string // fixed argument values
	Flags []flagDef
}

// completionMeta holds completion-specific metadata for flags.
// Flag names, types, and descriptions come from the FlagSet.
type completionMeta struct {
	Exts  []string // file extensions
	IsDir bool     // directory completion
}

// flagCompletionMeta maps flag names to their completion metadata.
var flagCompletionMeta = map[string]completionMeta{
	"config":   {Exts: []string{"yaml", "yml"}},
	"report":   {Exts: []string{"yaml", "yml"}},
	"log-file": {Exts: []string{"log"}},
	"output":   {IsDir: true},
}

// inputExts are the extensions offered for the positional CSV argument.
var inputExts = []string{"csv"}

// extractFlagsFromFlagSet extracts flag definitions from a pflag.FlagSet.
// Enriches with completion metadata from flagCompletionMeta.
func extractFlagsFromFlagSet(fs *flag.FlagSet) []flagDef {
	var flags []flagDef

	fs.VisitAll(func(f *flag.Flag) {
		fd := flagDef{
			Long:  f.Name,
			Short: f.Shorthand,
			Desc:  f.Usage,
		}

		switch f.Value.Type() {
		case "bool":
			fd.Type = flagBool
		case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64":
			fd.Type = flagInt
		default:
			fd.Type = flagString
		}

		if meta, ok := flagCompletionMeta[f.Name]; ok {
			if len(meta.Exts) > 0 {
				fd.Type = flagFile
				fd.Exts = meta.Exts
			} else if meta.IsDir {
				fd.Type = flagDir
			}
		}

		flags = append(flags, fd)
	})

	return flags
}

// runFlagDefs returns the flags of a conversion run.
// Extracted from the real FlagSet - single source of truth.
func runFlagDefs() []flagDef {
	return extractFlagsFromFlagSet(newRunFlagSet(&runFlags{}))
}

// getCommands returns the subcommand registry for completion.
func getCommands() []commandDef {
	return []commandDef{
		{
			Name: "doctor",
			Desc: "Check Chrome, pdfCropMargins and the environment",
			Flags: []flagDef{
				{Long: "json", Type: flagBool, Desc: "machine-readable output"},
				{Long: "output", Short: "o", Type: flagDir, Desc: "output directory to check"},
			},
		},
		{
			Name: "completion",
			Desc: "Generate shell completion script",
			Args: []string{string(ShellBash), string(ShellZsh), string(ShellFish), string(ShellPowerShell)},
		},
		{Name: "version", Desc: "Show version information"},
		{
			Name: "help",
			Desc: "Show help for a command",
			Args: []string{"run", "doctor", "completion", "version", "help"},
		},
	}
}

// commandNames lists subcommand names in registry order.
func commandNames() []string {
	cmds := getCommands()
	names := make([]string, len(cmds))
	for i, c := range cmds {
		names[i] = c.Name
	}
	return names
}

// GenerateCompletion writes shell completion script to w.
// Returns error if shell is unsupported or write fails.
func GenerateCompletion(w io.Writer, shell Shell) error {
	var script string
	switch shell {
	case ShellBash:
		script = generateBash()
	case ShellZsh:
		script = generateZsh()
	case ShellFish:
		script = generateFish()
	case ShellPowerShell:
		script = generatePowerShell()
	default:
		return fmt.Errorf("%w: %q (supported: bash, zsh, fish, powershell)", ErrUnsupportedShell, shell)
	}
	_, err := io.WriteString(w, script)
	return err
}

// generateBash renders a bash completion function.
func generateBash() string {
	var b strings.Builder
	flags := runFlagDefs()

	b.WriteString("# bash completion for links2pdf\n\n")
	b.WriteString("_links2pdf() {\n")
	b.WriteString("    local cur prev\n")
	b.WriteString("    cur=\"${COMP_WORDS[COMP_CWORD]}\"\n")
	b.WriteString("    prev=\"${COMP_WORDS[COMP_CWORD-1]}\"\n\n")

	// Subcommand arguments
	b.WriteString("    if [[ ${COMP_CWORD} -gt 1 ]]; then\n")
	b.WriteString("        case \"${COMP_WORDS[1]}\" in\n")
	for _, c := range getCommands() {
		if len(c.Args) == 0 && len(c.Flags) == 0 {
			continue
		}
		fmt.Fprintf(&b, "            %s)\n", c.Name)
		if len(c.Flags) > 0 {
			writeBashValueCases(&b, c.Flags, "                ")
		}
		words := append(append([]string(nil), c.Args...), bashFlagWords(c.Flags)...)
		fmt.Fprintf(&b, "                COMPREPLY=( $(compgen -W %q -- \"$cur\") )\n", strings.Join(words, " "))
		b.WriteString("                return\n                ;;\n")
	}
	b.WriteString("        esac\n")
	b.WriteString("    fi\n\n")

	writeBashValueCases(&b, flags, "    ")

	b.WriteString("    if [[ \"$cur\" == -* ]]; then\n")
	fmt.Fprintf(&b, "        COMPREPLY=( $(compgen -W %q -- \"$cur\") )\n", strings.Join(bashFlagWords(flags), " "))
	b.WriteString("        return\n    fi\n\n")

	b.WriteString("    COMPREPLY=(")
	b.WriteString(bashFileExpr(inputExts))
	b.WriteString(")\n")
	b.WriteString("    if [[ ${COMP_CWORD} -eq 1 ]]; then\n")
	fmt.Fprintf(&b, "        COMPREPLY+=( $(compgen -W %q -- \"$cur\") )\n", strings.Join(commandNames(), " "))
	b.WriteString("    fi\n")
	b.WriteString("}\n\n")
	b.WriteString("complete -o filenames -F _links2pdf links2pdf\n")
	return b.String()
}

// writeBashValueCases emits a case on $prev for flags that take a value.
func writeBashValueCases(b *strings.Builder, flags []flagDef, indent string) {
	fmt.Fprintf(b, "%scase \"$prev\" in\n", indent)
	for _, f := range flags {
		if !f.takesValue() {
			continue
		}
		fmt.Fprintf(b, "%s    %s)\n", indent, strings.Join(bashFlagNames(f), "|"))
		switch f.Type {
		case flagFile:
			fmt.Fprintf(b, "%s        COMPREPLY=(%s)\n", indent, bashFileExpr(f.Exts))
		case flagDir:
			fmt.Fprintf(b, "%s        COMPREPLY=( $(compgen -d -- \"$cur\") )\n", indent)
		default:
			fmt.Fprintf(b, "%s        COMPREPLY=()\n", indent)
		}
		fmt.Fprintf(b, "%s        return\n%s        ;;\n", indent, indent)
	}
	fmt.Fprintf(b, "%sesac\n\n", indent)
}

// bashFileExpr completes directories plus files with any of exts.
func bashFileExpr(exts []string) string {
	parts := []string{` $(compgen -d -- "$cur")`}
	for _, ext := range exts {
		parts = append(parts, fmt.Sprintf(` $(compgen -f -X '!*.%s' -- "$cur")`, ext))
	}
	return strings.Join(parts, "") + " "
}

func bashFlagNames(f flagDef) []string {
	names := []string{"--" + f.Long}
	if f.Short != "" {
		names = append([]string{"-" + f.Short}, names...)
	}
	return names
}

func bashFlagWords(flags []flagDef) []string {
	var words []string
	for _, f := range flags {
		words = append(words, bashFlagNames(f)...)
	}
	return words
}

// generateZsh renders a zsh completion function.
func generateZsh() string {
	var b strings.Builder

	b.WriteString("#compdef links2pdf\n\n")
	b.WriteString("_links2pdf() {\n")
	b.WriteString("    local -a commands\n")
	b.WriteString("    commands=(\n")
	for _, c := range getCommands() {
		fmt.Fprintf(&b, "        '%s:%s'\n", c.Name, zshEscape(c.Desc))
	}
	b.WriteString("    )\n\n")

	b.WriteString("    case $words[2] in\n")
	for _, c := range getCommands() {
		if len(c.Args) == 0 && len(c.Flags) == 0 {
			continue
		}
		fmt.Fprintf(&b, "        %s)\n", c.Name)
		if len(c.Args) > 0 {
			fmt.Fprintf(&b, "            _values '%s' %s\n", c.Name, strings.Join(c.Args, " "))
		} else {
			b.WriteString("            _arguments -s \\\n")
			for _, f := range c.Flags {
				fmt.Fprintf(&b, "                %s \\\n", zshFlagSpec(f))
			}
			b.WriteString("                && return\n")
		}
		b.WriteString("            return\n            ;;\n")
	}
	b.WriteString("    esac\n\n")

	b.WriteString("    if (( CURRENT == 2 )) && [[ $words[2] != -* ]]; then\n")
	b.WriteString("        _describe 'command' commands\n")
	b.WriteString("    fi\n\n")

	b.WriteString("    _arguments -s \\\n")
	for _, f := range runFlagDefs() {
		fmt.Fprintf(&b, "        %s \\\n", zshFlagSpec(f))
	}
	fmt.Fprintf(&b, "        '*:CSV file:%s'\n", zshFileAction(inputExts))
	b.WriteString("}\n\n")
	b.WriteString("compdef _links2pdf links2pdf\n")
	return b.String()
}

// zshFlagSpec formats one _arguments specification.
func zshFlagSpec(f flagDef) string {
	var action string
	switch f.Type {
	case flagBool:
		action = ""
	case flagFile:
		action = ":file:" + zshFileAction(f.Exts)
	case flagDir:
		action = ":directory:_files -/"
	case flagInt:
		action = ":number: "
	default:
		action = ":value: "
	}

	desc := "[" + zshEscape(f.Desc) + "]"
	if f.Short != "" {
		return fmt.Sprintf("'(-%s --%s)'{-%s,--%s}'%s%s'", f.Short, f.Long, f.Short, f.Long, desc, action)
	}
	return fmt.Sprintf("'--%s%s%s'", f.Long, desc, action)
}

func zshFileAction(exts []string) string {
	return fmt.Sprintf(`_files -g "*.(%s)"`, strings.Join(exts, "|"))
}

// zshEscape escapes text for a single-quoted _arguments description.
func zshEscape(s string) string {
	r := strings.NewReplacer(`'`, `'\''`, `[`, `\[`, `]`, `\]`, `:`, `\:`)
	return r.Replace(s)
}

// generateFish renders fish completion commands.
func generateFish() string {
	var b strings.Builder
	noSub := "not __fish_seen_subcommand_from " + strings.Join(commandNames(), " ")

	b.WriteString("# fish completion for links2pdf\n\n")
	b.WriteString("complete -c links2pdf -f\n\n")

	b.WriteString("# Commands\n")
	for _, c := range getCommands() {
		fmt.Fprintf(&b, "complete -c links2pdf -n '__fish_use_subcommand' -a %s -d '%s'\n", c.Name, fishEscape(c.Desc))
	}
	fmt.Fprintf(&b, "complete -c links2pdf -n '__fish_use_subcommand' -a '%s'\n", fishFileAction(inputExts))
	b.WriteString("\n")

	for _, c := range getCommands() {
		cond := "__fish_seen_subcommand_from " + c.Name
		if len(c.Args) > 0 {
			fmt.Fprintf(&b, "complete -c links2pdf -n '%s' -a '%s'\n", cond, strings.Join(c.Args, " "))
		}
		for _, f := range c.Flags {
			fmt.Fprintf(&b, "complete -c links2pdf -n '%s'%s\n", cond, fishFlagSpec(f))
		}
	}
	b.WriteString("\n# Run flags\n")
	for _, f := range runFlagDefs() {
		fmt.Fprintf(&b, "complete -c links2pdf -n '%s'%s\n", noSub, fishFlagSpec(f))
	}
	return b.String()
}

func fishFlagSpec(f flagDef) string {
	var b strings.Builder
	if f.Short != "" {
		fmt.Fprintf(&b, " -s %s", f.Short)
	}
	fmt.Fprintf(&b, " -l %s", f.Long)
	switch f.Type {
	case flagFile:
		fmt.Fprintf(&b, " -r -a '%s'", fishFileAction(f.Exts))
	case flagDir:
		b.WriteString(" -r -a '(__fish_complete_directories)'")
	case flagInt, flagString:
		b.WriteString(" -x")
	}
	fmt.Fprintf(&b, " -d '%s'", fishEscape(f.Desc))
	return b.String()
}

func fishFileAction(exts []string) string {
	parts := make([]string, len(exts))
	for i, ext := range exts {
		parts[i] = "(__fish_complete_suffix ." + ext + ")"
	}
	return strings.Join(parts, " ")
}

func fishEscape(s string) string {
	return strings.ReplaceAll(s, `'`, `\'`)
}

// generatePowerShell renders a native argument completer.
func generatePowerShell() string {
	var b strings.Builder

	b.WriteString("# powershell completion for links2pdf\n\n")
	b.WriteString("Register-ArgumentCompleter -Native -CommandName links2pdf -ScriptBlock {\n")
	b.WriteString("    param($wordToComplete, $commandAst, $cursorPosition)\n\n")
	b.WriteString("    $items = @(\n")

	var rows []string
	for _, c := range getCommands() {
		rows = append(rows, fmt.Sprintf("        @('%s', '%s')", c.Name, psEscape(c.Desc)))
	}
	for _, f := range runFlagDefs() {
		for _, name := range bashFlagNames(f) {
			rows = append(rows, fmt.Sprintf("        @('%s', '%s')", name, psEscape(f.Desc)))
		}
	}
	b.WriteString(strings.Join(rows, ",\n"))
	b.WriteString("\n    )\n\n")

	b.WriteString("    $items | Where-Object { $_[0] -like \"$wordToComplete*\" } | ForEach-Object {\n")
	b.WriteString("        [System.Management.Automation.CompletionResult]::new($_[0], $_[0], 'ParameterValue', $_[1])\n")
	b.WriteString("    }\n")
	b.WriteString("}\n")
	return b.String()
}

func psEscape(s string) string {
	return strings.ReplaceAll(s, `'`, `''`)
}

// runCompletion handles the completion command.
func runCompletion(args []string, env *Environment) error {
	if len(args) == 0 {
		printCompletionUsage(env.Stdout)
		return nil
	}

	return GenerateCompletion(env.Stdout, Shell(args[0]))
}

// printCompletionUsage prints help for the completion command.
func printCompletionUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: links2pdf completion <shell>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Generate shell completion script for the specified shell.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Supported shells:")
	fmt.Fprintln(w, "  bash        Bash completion script")
	fmt.Fprintln(w, "  zsh         Zsh completion script")
	fmt.Fprintln(w, "  fish        Fish completion script")
	fmt.Fprintln(w, "  powershell  PowerShell completion script")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Installation:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Bash:")
	fmt.Fprintln(w, "    # Add to ~/.bashrc:")
	fmt.Fprintln(w, "    eval \"$(links2pdf completion bash)\"")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Zsh:")
	fmt.Fprintln(w, "    # Add to ~/.zshrc (after compinit):")
	fmt.Fprintln(w, "    eval \"$(links2pdf completion zsh)\"")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Fish:")
	fmt.Fprintln(w, "    links2pdf completion fish > ~/.config/fish/completions/links2pdf.fish")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  PowerShell:")
	fmt.Fprintln(w, "    # Add to $PROFILE:")
	fmt.Fprintln(w, "    links2pdf completion powershell | Out-String | Invoke-Expression")
}
