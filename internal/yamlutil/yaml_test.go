package yamlutil_test

// Notes:
// - Marshal error branch: not tested because the YAML encoder only fails with
//   unmarshalable types (channels, functions), which never reach it.
// These are acceptable gaps: we test observable behavior, not implementation details.

import (
	"errors"
	"strings"
	"testing"

	"github.com/alnah/go-links2pdf/internal/yamlutil"
)

type testConfig struct {
	Name    string   `yaml:"name"`
	Workers int      `yaml:"workers"`
	Enabled bool     `yaml:"enabled"`
	Markers []string `yaml:"markers"`
}

// ---------------------------------------------------------------------------
// TestUnmarshalStrict - Strict decoding
// ---------------------------------------------------------------------------

func TestUnmarshalStrict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    []byte
		dest    any
		wantErr error
		anyErr  bool
		check   func(t *testing.T, v any)
	}{
		{
			name: "valid YAML",
			data: []byte("name: batch\nworkers: 2\nenabled: true\nmarkers: [a, b]"),
			dest: &testConfig{},
			check: func(t *testing.T, v any) {
				cfg := v.(*testConfig)
				if cfg.Name != "batch" {
					t.Errorf("Name = %q, want %q", cfg.Name, "batch")
				}
				if cfg.Workers != 2 {
					t.Errorf("Workers = %d, want 2", cfg.Workers)
				}
				if !cfg.Enabled {
					t.Error("Enabled = false, want true")
				}
				if len(cfg.Markers) != 2 {
					t.Errorf("Markers = %v, want 2 entries", cfg.Markers)
				}
			},
		},
		{
			name: "absent fields keep existing values",
			data: []byte("workers: 4"),
			dest: &testConfig{Name: "default", Enabled: true},
			check: func(t *testing.T, v any) {
				cfg := v.(*testConfig)
				if cfg.Name != "default" {
					t.Errorf("Name = %q, want %q", cfg.Name, "default")
				}
				if !cfg.Enabled {
					t.Error("Enabled was reset")
				}
				if cfg.Workers != 4 {
					t.Errorf("Workers = %d, want 4", cfg.Workers)
				}
			},
		},
		{
			name:   "unknown field rejected",
			data:   []byte("name: batch\nunknown: value"),
			dest:   &testConfig{},
			anyErr: true,
		},
		{
			name:   "type mismatch",
			data:   []byte("workers: many"),
			dest:   &testConfig{},
			anyErr: true,
		},
		{
			name:    "nil data",
			data:    nil,
			dest:    &testConfig{},
			wantErr: yamlutil.ErrNilData,
		},
		{
			name:    "empty data",
			data:    []byte{},
			dest:    &testConfig{},
			wantErr: yamlutil.ErrNilData,
		},
		{
			name:    "nil destination",
			data:    []byte("name: batch"),
			dest:    nil,
			wantErr: yamlutil.ErrNilDestination,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := yamlutil.UnmarshalStrict(tt.data, tt.dest)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("UnmarshalStrict() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if tt.anyErr {
				if err == nil {
					t.Fatal("UnmarshalStrict() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("UnmarshalStrict() unexpected error: %v", err)
			}
			if tt.check != nil {
				tt.check(t, tt.dest)
			}
		})
	}
}

func TestUnmarshalStrict_InputTooLarge(t *testing.T) {
	// Modifies package-level MaxInputSize: not parallel.
	orig := yamlutil.MaxInputSize
	defer func() { yamlutil.MaxInputSize = orig }()
	yamlutil.MaxInputSize = 8

	err := yamlutil.UnmarshalStrict([]byte("name: a-long-name"), &testConfig{})
	if !errors.Is(err, yamlutil.ErrInputTooLarge) {
		t.Errorf("UnmarshalStrict() error = %v, want ErrInputTooLarge", err)
	}
}

// ---------------------------------------------------------------------------
// TestMarshal - Encoding
// ---------------------------------------------------------------------------

func TestMarshal(t *testing.T) {
	t.Parallel()

	data, err := yamlutil.Marshal(testConfig{Name: "batch", Workers: 1, Markers: []string{"x"}})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	out := string(data)
	for _, want := range []string{"name: batch", "workers: 1", "markers:", "- x"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	t.Parallel()

	in := testConfig{Name: "公众号", Workers: 3, Enabled: true}
	data, err := yamlutil.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var out testConfig
	if err := yamlutil.UnmarshalStrict(data, &out); err != nil {
		t.Fatalf("UnmarshalStrict() error = %v", err)
	}
	if out.Name != in.Name || out.Workers != in.Workers || out.Enabled != in.Enabled {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
}
