package util

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"

	"golang.org/x/sys/unix"
)

// ExitError reports a non-zero exit status together with the captured stderr.
type ExitError struct {
	Tool   string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Tool, e.Code)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// RunTool runs an external tool to completion and captures its output.
// A non-zero exit status is returned as *ExitError.
func RunTool(ctx context.Context, tool string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, tool, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.Bytes(), &ExitError{Tool: tool, Code: exitErr.ExitCode(), Stderr: stderr.String()}
		}
		return stdout.Bytes(), fmt.Errorf("failed to run %s: %w", tool, err)
	}
	return stdout.Bytes(), nil
}

// IsExecutable reports whether path names a regular file the current user may execute.
func IsExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return unix.Access(path, unix.X_OK) == nil
}

// LookExecutable resolves name the way a shell would: names containing a
// slash are used as-is, others are searched in PATH.
func LookExecutable(name string) (string, error) {
	if strings.Contains(name, "/") {
		if !IsExecutable(name) {
			return "", fmt.Errorf("%s: %w", name, os.ErrPermission)
		}
		return name, nil
	}
	return exec.LookPath(name)
}

// MergeEnv overlays overrides onto a KEY=VALUE environment list.
// Existing keys are replaced in place; new keys are appended in sorted order.
func MergeEnv(base []string, overrides map[string]string) []string {
	out := make([]string, 0, len(base)+len(overrides))
	applied := make(map[string]bool, len(overrides))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if v, ok := overrides[key]; ok {
			if !applied[key] {
				out = append(out, key+"="+v)
				applied[key] = true
			}
			continue
		}
		out = append(out, kv)
	}
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		if !applied[k] {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	for _, k := range keys {
		out = append(out, k+"="+overrides[k])
	}
	return out
}

// ExecReplace replaces the current process image with program.
// It only returns on failure.
func ExecReplace(program string, args []string, env []string) error {
	path, err := LookExecutable(program)
	if err != nil {
		return fmt.Errorf("cannot execute %s: %w", program, err)
	}
	argv := append([]string{program}, args...)
	if err := unix.Exec(path, argv, env); err != nil {
		return fmt.Errorf("exec %s: %w", path, err)
	}
	return nil
}
