// Package model defines the domain types and value objects for the
// patchqueue CLI.
//
// This package contains pure data structures with no external dependencies.
// QueueConfig is the in-memory form of patchqueue.yaml; RebaseOutcome and
// RebaseState describe a single run of the rebase coordinator.
//
// The package also defines exit codes (ExitCode), a custom error type
// (CLIError) that carries exit codes, and the tagged failures (VCSError,
// FSError, BuildError) the rest of the tool returns.
package model
