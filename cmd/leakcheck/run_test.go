// run_test.go tests the 'leakcheck run' command plumbing.
package main

import (
	"strings"
	"testing"
)

// TestParseRunArgs_SimpleFile tests parsing a single source file.
func TestParseRunArgs_SimpleFile(t *testing.T) {
	config, err := parseRunArgs([]string{"main.go"})
	if err != nil {
		t.Fatalf("parseRunArgs() error: %v", err)
	}

	if len(config.sourceFiles) != 1 || config.sourceFiles[0] != "main.go" {
		t.Errorf("Expected [main.go], got %v", config.sourceFiles)
	}
	if len(config.programArgs) != 0 {
		t.Errorf("Expected no program args, got %v", config.programArgs)
	}
	if config.exitCode != 23 {
		t.Errorf("Expected default leak exit code 23, got %d", config.exitCode)
	}
}

// TestParseRunArgs_FileWithArgs tests source file + program arguments.
func TestParseRunArgs_FileWithArgs(t *testing.T) {
	config, err := parseRunArgs([]string{"main.go", "arg1", "arg2", "--flag=value"})
	if err != nil {
		t.Fatalf("parseRunArgs() error: %v", err)
	}

	expected := []string{"arg1", "arg2", "--flag=value"}
	if len(config.programArgs) != len(expected) {
		t.Fatalf("Expected %d program args, got %d", len(expected), len(config.programArgs))
	}
	for i, want := range expected {
		if config.programArgs[i] != want {
			t.Errorf("Arg %d: expected %q, got %q", i, want, config.programArgs[i])
		}
	}
}

// TestParseRunArgs_MultipleFiles tests multiple source files.
func TestParseRunArgs_MultipleFiles(t *testing.T) {
	config, err := parseRunArgs([]string{"main.go", "util.go", "arg1"})
	if err != nil {
		t.Fatalf("parseRunArgs() error: %v", err)
	}

	if len(config.sourceFiles) != 2 {
		t.Errorf("Expected 2 source files, got %v", config.sourceFiles)
	}
	if len(config.programArgs) != 1 || config.programArgs[0] != "arg1" {
		t.Errorf("Expected [arg1], got %v", config.programArgs)
	}
}

// TestParseRunArgs_GoFileAfterArgs verifies a .go file among program
// arguments stays a program argument.
func TestParseRunArgs_GoFileAfterArgs(t *testing.T) {
	config, err := parseRunArgs([]string{"main.go", "arg1", "other.go"})
	if err != nil {
		t.Fatalf("parseRunArgs() error: %v", err)
	}

	if len(config.sourceFiles) != 1 {
		t.Errorf("Expected 1 source file, got %v", config.sourceFiles)
	}
	if len(config.programArgs) != 2 || config.programArgs[1] != "other.go" {
		t.Errorf("Expected other.go as program arg, got %v", config.programArgs)
	}
}

// TestParseRunArgs_DetectorOptions tests the -options flag.
func TestParseRunArgs_DetectorOptions(t *testing.T) {
	config, err := parseRunArgs([]string{"-options", "exitcode=42,verbosity=1", "main.go"})
	if err != nil {
		t.Fatalf("parseRunArgs() error: %v", err)
	}

	if config.detectorOpt != "exitcode=42,verbosity=1" {
		t.Errorf("Expected option string preserved, got %q", config.detectorOpt)
	}
	if config.exitCode != 42 {
		t.Errorf("Expected leak exit code 42, got %d", config.exitCode)
	}
}

// TestParseRunArgs_BadOptions rejects malformed option strings.
func TestParseRunArgs_BadOptions(t *testing.T) {
	_, err := parseRunArgs([]string{"-options", "nope=1", "main.go"})
	if err == nil {
		t.Fatal("Expected error for unknown option key")
	}
}

// TestParseRunArgs_NoFiles tests error on missing source files.
func TestParseRunArgs_NoFiles(t *testing.T) {
	if _, err := parseRunArgs([]string{}); err == nil {
		t.Error("Expected error for empty args")
	}
	if _, err := parseRunArgs([]string{"notgo.txt"}); err == nil {
		t.Error("Expected error for non-.go leading argument")
	}
}

// TestVerdict maps exit codes to verdicts.
func TestVerdict(t *testing.T) {
	cases := []struct {
		status, leakCode int
		want             string
	}{
		{0, 23, "clean"},
		{23, 23, "leaks"},
		{42, 42, "leaks"},
		{23, 42, "error"},
		{1, 23, "error"},
	}
	for _, c := range cases {
		if got := verdict(c.status, c.leakCode); got != c.want {
			t.Errorf("verdict(%d, %d) = %q, want %q", c.status, c.leakCode, got, c.want)
		}
	}
}

// TestDetectorEnv tests option-string propagation into the child env.
func TestDetectorEnv(t *testing.T) {
	base := []string{"PATH=/usr/bin"}

	if got := detectorEnv(base, ""); len(got) != 1 {
		t.Errorf("Empty option string must leave env unchanged, got %v", got)
	}

	got := detectorEnv(base, "exitcode=5")
	found := false
	for _, kv := range got {
		if strings.HasPrefix(kv, "LEAKDETECTOR_OPTIONS=") {
			found = true
			if kv != "LEAKDETECTOR_OPTIONS=exitcode=5" {
				t.Errorf("Unexpected env entry %q", kv)
			}
		}
	}
	if !found {
		t.Error("Expected LEAKDETECTOR_OPTIONS in child env")
	}
}
