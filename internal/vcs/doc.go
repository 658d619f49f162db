// Package vcs runs the git commands the patch queue tooling needs.
//
// All Git operations are performed by invoking the git binary through a
// narrow Runner abstraction (argument list in, exit status out) rather than
// through a Git library like go-git. This keeps the exact behavior of the
// user's git installation and lets the rebase coordinator be tested
// against a fake Runner without touching a real repository.
//
// Git wraps a Runner and turns non-zero exit statuses into
// *model.VCSError values naming the command and its status.
package vcs
