package assistant

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"strings"

	"github.com/zhouzirui/opencode-chat/internal/config"
)

// ErrShellDisabled is returned when /shell is not enabled.
var ErrShellDisabled = errors.New("shell commands are disabled")

const maxShellOutput = 16 * 1024

type shellRunner struct {
	cfg config.ShellConfig
}

func newShellRunner(cfg config.ShellConfig) *shellRunner {
	return &shellRunner{cfg: cfg}
}

// Run executes command with sh -c and renders the result as a tool
// execution block.
func (r *shellRunner) Run(ctx context.Context, command string) (string, error) {
	if !r.cfg.Enabled {
		return "", ErrShellDisabled
	}

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = r.cfg.WorkDir
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	runErr := cmd.Run()
	log.Printf("[chat] shell command %q finished: %v", command, runErr)

	return formatToolExecution("bash", command, truncate(output.String()), runErr), nil
}

func truncate(out string) string {
	if len(out) <= maxShellOutput {
		return out
	}
	return out[:maxShellOutput] + "\n... output truncated"
}

func formatToolExecution(tool, command, output string, runErr error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Tool Execution:** `%s`\n", tool)
	b.WriteString("```\n")
	if runErr != nil {
		b.WriteString("Status: Error\n")
		fmt.Fprintf(&b, "Error: %v\n", runErr)
	} else {
		b.WriteString("Status: Completed\n")
	}
	fmt.Fprintf(&b, "$ %s\n", command)
	if output != "" {
		b.WriteString(strings.TrimRight(output, "\n"))
		b.WriteString("\n")
	}
	b.WriteString("```")
	return b.String()
}
