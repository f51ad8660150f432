// Package executor runs the silent install/uninstall of software packages
// on the agent's host. It is the agent-side counterpart to the controller's
// file-transfer and INSTALL_SOFTWARE/UNINSTALL_SOFTWARE commands.
//
// Install dispatch is by file extension: .msi goes through msiexec, .exe
// runs directly (with a best-effort silent-flag guess when the caller
// supplied no arguments), .bat/.cmd go through the platform shell.
// Uninstall takes the stored uninstall command line, parses out the
// executable and its existing arguments, and ensures a silent flag is
// present before running it.
package executor

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// InstallTimeout bounds how long a silent install may run before it is
// killed and treated as a failure.
const InstallTimeout = 10 * time.Minute

// UninstallTimeout bounds how long a silent uninstall may run.
const UninstallTimeout = 5 * time.Minute

// uninstallAlreadyGoneExitCode is the Windows Installer exit code for
// "this product is not installed" — treated as a successful uninstall
// since the end state the caller wants (package gone) already holds.
const uninstallAlreadyGoneExitCode = 1605

// ErrUnsupportedInstaller is returned when the file extension has no
// known silent-install strategy.
var ErrUnsupportedInstaller = errors.New("executor: unsupported installer file type")

// Result is the outcome of an install or uninstall attempt.
type Result struct {
	Success bool
	Message string
}

// Executor runs installer/uninstaller subprocesses. The zero value is
// usable.
type Executor struct{}

// New returns a ready Executor.
func New() *Executor {
	return &Executor{}
}

// Install runs the silent installer at filePath with the given extra
// arguments and waits for it to complete or time out.
func (e *Executor) Install(ctx context.Context, filePath, args string) Result {
	ctx, cancel := context.WithTimeout(ctx, InstallTimeout)
	defer cancel()

	cmd, err := buildInstallCmd(ctx, filePath, args)
	if err != nil {
		return Result{Success: false, Message: err.Error()}
	}
	cmd.Cancel = func() error { return cmd.Process.Kill() }

	return runToResult(cmd, ctx, 0)
}

// Uninstall runs uninstallCmd (the stored command line reported by the
// inventory provider for this package) and waits for it to complete.
func (e *Executor) Uninstall(ctx context.Context, uninstallCmd string) Result {
	name, args, err := splitUninstallCommand(uninstallCmd)
	if err != nil {
		return Result{Success: false, Message: err.Error()}
	}
	args = ensureSilentFlags(name, args)

	cctx, cancel := context.WithTimeout(ctx, UninstallTimeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, name, args...)
	return runToResult(cmd, cctx, uninstallAlreadyGoneExitCode)
}

// buildInstallCmd dispatches on filePath's extension to build the silent
// install command line, following the original implementation's
// per-extension heuristics.
func buildInstallCmd(ctx context.Context, filePath, args string) (*exec.Cmd, error) {
	ext := strings.ToLower(strings.TrimPrefix(pathExt(filePath), "."))

	switch ext {
	case "msi":
		msiArgs := []string{"/i", filePath, "/quiet", "/norestart"}
		if args != "" {
			msiArgs = append(msiArgs, strings.Fields(args)...)
		}
		return exec.CommandContext(ctx, "msiexec", msiArgs...), nil

	case "exe":
		var exeArgs []string
		if args != "" {
			exeArgs = strings.Fields(args)
		} else {
			exeArgs = strings.Fields(guessSilentArgs(filePath))
		}
		return exec.CommandContext(ctx, filePath, exeArgs...), nil

	case "bat", "cmd":
		shellArgs := args
		if shellArgs == "" {
			shellArgs = "/S"
		}
		if runtime.GOOS == "windows" {
			return exec.CommandContext(ctx, "cmd", "/C", filePath, shellArgs), nil
		}
		return exec.CommandContext(ctx, "/bin/sh", filePath, shellArgs), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedInstaller, ext)
	}
}

// guessSilentArgs picks a best-effort silent-install flag set based on
// filename substrings, matching common installer toolchains' conventions.
func guessSilentArgs(filePath string) string {
	lower := strings.ToLower(filePath)
	switch {
	case strings.Contains(lower, "inno"), strings.Contains(lower, "setup"):
		return "/VERYSILENT /SUPPRESSMSGBOXES /NORESTART"
	case strings.Contains(lower, "nsis"):
		return "/S"
	case strings.Contains(lower, "installshield"):
		return `/s /v"/qn"`
	default:
		return "/S /silent /quiet"
	}
}

// knownSilentFlags are checked case-insensitively against an existing
// uninstall command line before a default flag is appended.
var knownSilentFlags = []string{"/s", "/silent", "/q", "/quiet", "-s", "-silent"}

// splitUninstallCommand parses a stored uninstall command line into an
// executable path and its argument list. The executable may be quoted
// (to allow spaces in the path) or unquoted (split on the first space).
func splitUninstallCommand(uninstallCmd string) (string, []string, error) {
	trimmed := strings.TrimSpace(uninstallCmd)
	if trimmed == "" {
		return "", nil, errors.New("executor: empty uninstall command")
	}

	if trimmed[0] == '"' {
		end := strings.Index(trimmed[1:], `"`)
		if end < 0 {
			return "", nil, errors.New("executor: unterminated quoted executable path")
		}
		name := trimmed[1 : end+1]
		rest := strings.TrimSpace(trimmed[end+2:])
		return name, splitArgsPreserveQuoted(rest), nil
	}

	fields := splitArgsPreserveQuoted(trimmed)
	return fields[0], fields[1:], nil
}

// splitArgsPreserveQuoted is a minimal whitespace tokenizer that keeps a
// double-quoted span together as one argument.
func splitArgsPreserveQuoted(s string) []string {
	var out []string
	var cur strings.Builder
	inQuotes := false
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ' ' && !inQuotes:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

// ensureSilentFlags appends a silent-uninstall flag to args if none of
// the known flags are already present, matching the original's
// msiexec-specific vs. generic handling.
func ensureSilentFlags(name string, args []string) []string {
	baseName := strings.ToLower(pathBase(name))

	hasSilent := false
	for _, a := range args {
		low := strings.ToLower(a)
		for _, known := range knownSilentFlags {
			if low == known {
				hasSilent = true
			}
		}
	}

	if !hasSilent && strings.Contains(baseName, "msiexec") {
		if !containsFlag(args, "/quiet") {
			args = append(args, "/quiet")
		}
		if !containsFlag(args, "/norestart") {
			args = append(args, "/norestart")
		}
		return args
	}

	if !hasSilent {
		args = append(args, "/S")
	}
	return args
}

func containsFlag(args []string, flag string) bool {
	for _, a := range args {
		if strings.EqualFold(a, flag) {
			return true
		}
	}
	return false
}

// runToResult runs cmd to completion and converts the outcome to a
// Result, treating extraSuccessExitCode (if non-zero) as success in
// addition to exit code 0.
func runToResult(cmd *exec.Cmd, ctx context.Context, extraSuccessExitCode int) Result {
	err := cmd.Run()
	if err == nil {
		return Result{Success: true}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if extraSuccessExitCode != 0 && code == extraSuccessExitCode {
			return Result{Success: true, Message: "package already uninstalled"}
		}
		return Result{Success: false, Message: fmt.Sprintf("exit code %d", code)}
	}

	if ctx.Err() != nil {
		return Result{Success: false, Message: "timed out: " + ctx.Err().Error()}
	}
	return Result{Success: false, Message: err.Error()}
}

func pathExt(p string) string {
	if i := strings.LastIndexByte(p, '.'); i >= 0 {
		return p[i:]
	}
	return ""
}

func pathBase(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}
