package main

// Notes:
// - Scripts are checked for content, not executed: no shell is assumed to
//   be installed on the test machine.
// - Flags come from newRunFlagSet, so adding a flag without updating the
//   completion is caught by TestGenerateCompletion_AllFlags.

import (
	"errors"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestGenerateCompletion
// ---------------------------------------------------------------------------

func TestGenerateCompletion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		shell Shell
		want  []string
	}{
		{ShellBash, []string{
			"_links2pdf()",
			"complete -o filenames -F _links2pdf links2pdf",
			"-c|--config)",
			"compgen -f -X '!*.yaml'",
			"compgen -f -X '!*.csv'",
			"compgen -W \"bash zsh fish powershell\"",
		}},
		{ShellZsh, []string{
			"#compdef links2pdf",
			"compdef _links2pdf links2pdf",
			"'(-w --max-workers)'{-w,--max-workers}",
			`_files -g "*.(yaml|yml)"`,
			"'*:CSV file:_files -g \"*.(csv)\"'",
			"'--no-crop[keep PDFs uncropped]'",
		}},
		{ShellFish, []string{
			"complete -c links2pdf -f",
			"-s o -l output -r -a '(__fish_complete_directories)'",
			"-l retries -x",
			"(__fish_complete_suffix .csv)",
			"__fish_seen_subcommand_from completion' -a 'bash zsh fish powershell'",
		}},
		{ShellPowerShell, []string{
			"Register-ArgumentCompleter -Native -CommandName links2pdf",
			"@('--max-workers', 'concurrent browsers (0 = auto)')",
			"@('doctor',",
		}},
	}

	for _, tt := range tests {
		t.Run(string(tt.shell), func(t *testing.T) {
			t.Parallel()

			var out strings.Builder
			if err := GenerateCompletion(&out, tt.shell); err != nil {
				t.Fatalf("GenerateCompletion: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(out.String(), want) {
					t.Errorf("%s script missing %q:\n%s", tt.shell, want, out.String())
				}
			}
		})
	}
}

func TestGenerateCompletion_AllFlags(t *testing.T) {
	t.Parallel()

	for _, shell := range []Shell{ShellBash, ShellZsh, ShellFish, ShellPowerShell} {
		var out strings.Builder
		if err := GenerateCompletion(&out, shell); err != nil {
			t.Fatalf("%s: %v", shell, err)
		}
		for _, f := range runFlagDefs() {
			name := "--" + f.Long
			if shell == ShellFish {
				name = "-l " + f.Long
			}
			if !strings.Contains(out.String(), name) {
				t.Errorf("%s completion missing %s", shell, name)
			}
		}
	}
}

func TestGenerateCompletion_Unsupported(t *testing.T) {
	t.Parallel()

	var out strings.Builder
	err := GenerateCompletion(&out, Shell("tcsh"))
	if !errors.Is(err, ErrUnsupportedShell) {
		t.Fatalf("expected ErrUnsupportedShell, got %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("nothing should be written, got %q", out.String())
	}
}

// ---------------------------------------------------------------------------
// TestExtractFlagsFromFlagSet
// ---------------------------------------------------------------------------

func TestExtractFlagsFromFlagSet(t *testing.T) {
	t.Parallel()

	byName := map[string]flagDef{}
	for _, f := range runFlagDefs() {
		byName[f.Long] = f
	}

	tests := []struct {
		long  string
		short string
		typ   flagType
	}{
		{"config", "c", flagFile},
		{"output", "o", flagDir},
		{"max-workers", "w", flagInt},
		{"retries", "", flagInt},
		{"log-file", "", flagFile},
		{"report", "", flagFile},
		{"quiet", "q", flagBool},
		{"verbose", "v", flagBool},
		{"no-crop", "", flagBool},
		{"progress", "", flagBool},
	}

	if len(byName) != len(tests) {
		t.Errorf("got %d flags, want %d", len(byName), len(tests))
	}
	for _, tt := range tests {
		f, ok := byName[tt.long]
		if !ok {
			t.Errorf("flag --%s not extracted", tt.long)
			continue
		}
		if f.Short != tt.short || f.Type != tt.typ {
			t.Errorf("--%s = {Short: %q, Type: %d}, want {%q, %d}", tt.long, f.Short, f.Type, tt.short, tt.typ)
		}
		if f.Desc == "" {
			t.Errorf("--%s has no description", tt.long)
		}
	}
	if exts := byName["config"].Exts; len(exts) != 2 || exts[0] != "yaml" {
		t.Errorf("config Exts = %v", exts)
	}
}

// ---------------------------------------------------------------------------
// TestRunCompletion
// ---------------------------------------------------------------------------

func TestRunCompletion_NoArgsPrintsUsage(t *testing.T) {
	t.Parallel()

	env, stdout, _ := newTestEnv(&stubFactory{})
	if err := runCompletion(nil, env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout.String(), "Usage: links2pdf completion <shell>") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestZshEscape(t *testing.T) {
	t.Parallel()

	got := zshEscape(`it's [x]: y`)
	want := `it'\''s \[x\]\: y`
	if got != want {
		t.Errorf("zshEscape = %q, want %q", got, want)
	}
}
