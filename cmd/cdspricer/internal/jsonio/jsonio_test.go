package jsonio_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/meenmo/cdslib/cmd/cdspricer/internal/jsonio"
)

type request struct {
	X float64 `json:"x"`
}

type response struct {
	Double float64 `json:"double"`
}

func double(in request) (*response, error) {
	if in.X < 0 {
		return nil, errors.New("x must be non-negative")
	}
	return &response{Double: 2 * in.X}, nil
}

func TestRun(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "in.json")
	if err := os.WriteFile(path, []byte(`{"x": 1.5}`), 0o600); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	tests := []struct {
		name     string
		path     string
		stdin    string
		wantCode int
		wantOut  string
	}{
		{"stdin", "", `{"x": 2}`, 0, `"double": 4`},
		{"file", path, "", 0, `"double": 3`},
		{"calculation error", "", `{"x": -1}`, 1, `"error":"x must be non-negative"`},
		{"bad json", "", `{"x": `, 1, "failed to parse JSON input"},
		{"missing file", filepath.Join(t.TempDir(), "nope.json"), "", 1, "failed to read input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var out bytes.Buffer
			code := jsonio.Run(tt.path, strings.NewReader(tt.stdin), &out, double)
			if code != tt.wantCode {
				t.Fatalf("exit code: got %d want %d (output %s)", code, tt.wantCode, out.String())
			}
			if !strings.Contains(out.String(), tt.wantOut) {
				t.Fatalf("output: got %s, want it to contain %s", out.String(), tt.wantOut)
			}
			if code != 0 {
				var e jsonio.ErrorOutput
				if err := json.Unmarshal(out.Bytes(), &e); err != nil || e.Error == "" {
					t.Fatalf("error output not JSON: %s", out.String())
				}
			}
		})
	}
}
