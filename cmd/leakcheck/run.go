// run.go implements the 'leakcheck run' and 'leakcheck check' commands.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/kolkov/leakdetector/cmd/leakcheck/runtime"
	"github.com/kolkov/leakdetector/internal/leak/options"
)

// runConfig carries everything needed to build and execute the program
// under test.
type runConfig struct {
	sourceFiles []string
	programArgs []string
	detectorOpt string // LEAKDETECTOR_OPTIONS value, "" keeps defaults
	exitCode    int    // leak exit code the verdict matches against
}

// runCommand implements the 'leakcheck run' command.
//
// This command builds the given sources, executes the resulting binary
// under the leak detector configuration, and exits with the program's
// exit code. It acts as a drop-in replacement for 'go run' for programs
// that link the detector runtime.
func runCommand(args []string) {
	config, err := parseRunArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	tempBinary, err := buildTemporary(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Build failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = os.Remove(tempBinary) }()

	os.Exit(executeBinary(tempBinary, config))
}

// checkCommand implements the 'leakcheck check' command.
//
// Like run, but the program's stdout is passed through and the exit
// code is turned into a verdict: the configured leak exit code means
// leaks were detected, zero means a clean run, anything else is the
// program's own failure.
func checkCommand(args []string) {
	config, err := parseRunArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	tempBinary, err := buildTemporary(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Build failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = os.Remove(tempBinary) }()

	status := executeBinary(tempBinary, config)
	switch verdict(status, config.exitCode) {
	case "leaks":
		fmt.Printf("FAIL: leaks detected (exit code %d)\n", status)
		os.Exit(1)
	case "clean":
		fmt.Println("PASS: no leaks detected")
	default:
		fmt.Printf("ERROR: program exited with code %d\n", status)
		os.Exit(status)
	}
}

// verdict classifies an exit status against the configured leak code.
func verdict(status, leakCode int) string {
	switch status {
	case 0:
		return "clean"
	case leakCode:
		return "leaks"
	default:
		return "error"
	}
}

// parseRunArgs separates tool flags and source files from program
// arguments.
//
// The accepted form is:
//
//	leakcheck run [-options k=v,...] file.go [file2.go ...] [arguments...]
//
// Tool flags come first, then one or more .go files, then everything
// after the last consecutive .go file belongs to the program.
func parseRunArgs(args []string) (*runConfig, error) {
	config := &runConfig{exitCode: options.Default().ExitCode}

	i := 0
	for ; i < len(args); i++ {
		if args[i] != "-options" {
			break
		}
		if i+1 >= len(args) {
			return nil, fmt.Errorf("flag -options: missing value")
		}
		i++
		config.detectorOpt = args[i]
	}

	// The detector option string decides which exit code means "leaks".
	if config.detectorOpt != "" {
		opts, err := options.Parse(options.Default(), config.detectorOpt)
		if err != nil {
			return nil, err
		}
		config.exitCode = opts.ExitCode
	}

	inProgramArgs := false
	for ; i < len(args); i++ {
		if !inProgramArgs && filepath.Ext(args[i]) == ".go" {
			config.sourceFiles = append(config.sourceFiles, args[i])
			continue
		}
		if len(config.sourceFiles) == 0 {
			return nil, fmt.Errorf("expected a .go file, got %q", args[i])
		}
		inProgramArgs = true
		config.programArgs = append(config.programArgs, args[i])
	}

	if len(config.sourceFiles) == 0 {
		return nil, fmt.Errorf("no Go source files specified")
	}
	return config, nil
}

// buildTemporary builds the sources to a temporary binary, wiring the
// detector runtime through a module overlay when running from a
// development tree.
func buildTemporary(config *runConfig) (string, error) {
	tempBinary, err := os.CreateTemp("", "leakcheck-run-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempBinary.Name()
	_ = tempBinary.Close()

	cwd, err := os.Getwd()
	if err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	buildArgs := []string{"build", "-o", tempPath}

	overlayDir, err := os.MkdirTemp("", "leakcheck-mod-*")
	if err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("failed to create overlay dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(overlayDir) }()

	overlay, err := runtime.ModFileOverlay(overlayDir, filepath.Dir(config.sourceFiles[0]))
	if err != nil {
		_ = os.Remove(tempPath)
		return "", err
	}
	if overlay != "" {
		buildArgs = append(buildArgs, "-modfile", overlay)
	}
	buildArgs = append(buildArgs, config.sourceFiles...)

	cmd := exec.Command("go", buildArgs...)
	cmd.Dir = cwd
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("go build: %w", err)
	}
	return tempPath, nil
}

// executeBinary runs the built binary with the detector configuration
// applied, forwarding the standard streams, and returns its exit code.
func executeBinary(binaryPath string, config *runConfig) int {
	cmd := exec.Command(binaryPath, config.programArgs...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = detectorEnv(os.Environ(), config.detectorOpt)

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode()
		}
		fmt.Fprintf(os.Stderr, "Error executing binary: %v\n", err)
		return 1
	}
	return 0
}

// detectorEnv returns env with the detector option string applied.
// An empty opt leaves any inherited configuration untouched.
func detectorEnv(env []string, opt string) []string {
	if opt == "" {
		return env
	}
	return append(env, options.EnvOptions+"="+opt)
}
