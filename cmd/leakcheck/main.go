// Package main implements the leakcheck CLI tool.
//
// The leakcheck tool runs Go programs under the Pure-Go leak detector
// runtime and interprets the outcome. It works by:
//
//  1. Building the program with a module overlay that resolves the
//     detector runtime (local tree during development, published
//     module otherwise)
//  2. Executing the binary with the detector configured through
//     LEAKDETECTOR_OPTIONS
//  3. Mapping the leak exit code back to a human-readable verdict
//
// Usage:
//
//	leakcheck run main.go          # Run with leak detection
//	leakcheck check main.go        # Run and report a leak verdict
//
// Programs must link the detector runtime (the leak package) for the
// exit-code substitution to happen; leakcheck supplies the module
// wiring, not instrumentation.
//
// This is the CLI entry point for the standalone leak checker tool.
package main

import (
	"fmt"
	"os"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "run":
		runCommand(os.Args[2:])
	case "check":
		checkCommand(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("leakcheck version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`leakcheck - Pure-Go Leak Detector Tool

USAGE:
    leakcheck <command> [arguments]

COMMANDS:
    run        Run Go program under the leak detector
    check      Run Go program and print a leak verdict
    version    Show version information
    help       Show this help message

EXAMPLES:
    # Run a program under the leak detector
    leakcheck run main.go --flag=value

    # Run with detector options
    leakcheck run -options exitcode=42,verbosity=1 main.go

    # Get a pass/fail leak verdict
    leakcheck check main.go

ABOUT:
    leakcheck is a standalone tool that runs programs linked against the
    Pure-Go leak detector runtime. The runtime tracks every allocation
    made through its dispatch layer and substitutes a configurable exit
    code (default 23) when a successful exit leaves unreported leaks.

    leakcheck does not instrument code: the program under test imports
    github.com/kolkov/leakdetector/leak itself. The tool contributes the
    module wiring (resolving the runtime against a development tree when
    one is present), the detector configuration, and the verdict.

FOR MORE INFORMATION:
    Repository: https://github.com/kolkov/leakdetector
    Documentation: https://github.com/kolkov/leakdetector/blob/main/README.md
    Issues: https://github.com/kolkov/leakdetector/issues

`)
}
