// Package command adapts shell commands to the registry's Task interface.
package command

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Task runs a shell command line through "sh -c".
type Task struct {
	Command string
}

func New(cmdline string) *Task {
	return &Task{Command: strings.TrimSpace(cmdline)}
}

func (t *Task) Run(ctx context.Context) error {
	if t.Command == "" {
		return fmt.Errorf("empty command")
	}
	cmd := exec.CommandContext(ctx, "sh", "-c", t.Command)
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return fmt.Errorf("%w: %s", err, truncate(msg, 512))
		}
		return err
	}
	return nil
}

func (t *Task) String() string { return t.Command }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
