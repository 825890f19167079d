// Package jsonio runs a calculation from a JSON request to a JSON response,
// the contract every cdspricer subcommand follows.
package jsonio

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrorOutput is written instead of the result when anything fails.
type ErrorOutput struct {
	Error string `json:"error"`
}

// Run reads In from path, or stdin when path is empty, applies calc and
// writes the result (or an ErrorOutput) to stdout. It returns the process
// exit code.
func Run[In, Out any](path string, stdin io.Reader, stdout io.Writer, calc func(In) (*Out, error)) int {
	inputBytes, err := readInput(stdin, strings.TrimSpace(path))
	if err != nil {
		return writeError(stdout, fmt.Sprintf("failed to read input: %v", err))
	}

	var input In
	if err := json.Unmarshal(inputBytes, &input); err != nil {
		return writeError(stdout, fmt.Sprintf("failed to parse JSON input: %v", err))
	}

	output, err := calc(input)
	if err != nil {
		return writeError(stdout, err.Error())
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(output); err != nil {
		return writeError(stdout, fmt.Sprintf("failed to encode output: %v", err))
	}
	return 0
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path != "" {
		return os.ReadFile(path)
	}
	return io.ReadAll(stdin)
}

func writeError(stdout io.Writer, msg string) int {
	outputBytes, _ := json.Marshal(ErrorOutput{Error: msg})
	fmt.Fprintln(stdout, string(outputBytes))
	return 1
}
