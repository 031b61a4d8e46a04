package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/ktully/quill/assistantmsg"
)

// commandOutputLimit caps the characters of command output fed back to the
// model. Overflow is cut from the middle, keeping head and tail.
const commandOutputLimit = 30000

// ExecuteCommandTool runs a shell command in the working directory with a
// filtered environment and a hard timeout.
type ExecuteCommandTool struct {
	cwd            string
	timeoutSeconds int
}

func NewExecuteCommandTool(cwd string, timeoutSeconds int) *ExecuteCommandTool {
	return &ExecuteCommandTool{cwd: cwd, timeoutSeconds: timeoutSeconds}
}

func (t *ExecuteCommandTool) Name() assistantmsg.ToolName { return assistantmsg.ToolExecuteCommand }

func (t *ExecuteCommandTool) Execute(ctx context.Context, params Params) Result {
	command := strings.TrimSpace(params.Get(assistantmsg.ParamCommand))
	if command == "" {
		return failure("Missing required parameter: command")
	}
	if ra := strings.ToLower(params.Get(assistantmsg.ParamRequiresApproval)); ra != "" && ra != "true" && ra != "false" {
		return failure("Invalid parameters: requires_approval must be 'true' or 'false'")
	}

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(t.timeoutSeconds)*time.Second)
	defer cancel()

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(runCtx, "cmd", "/C", command)
	} else {
		cmd = exec.CommandContext(runCtx, "sh", "-c", command)
	}
	cmd.Dir = t.cwd
	cmd.Env = filterEnvironment()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	output := TruncateCommandOutput(stdout.String())

	if runCtx.Err() == context.DeadlineExceeded {
		return Result{
			Success:  false,
			Message:  fmt.Sprintf("Command timed out after %d seconds: %s", t.timeoutSeconds, command),
			Content:  output,
			TimedOut: true,
		}
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			detail := strings.TrimSpace(stderr.String())
			if detail == "" {
				detail = err.Error()
			}
			return Result{
				Success: false,
				Message: fmt.Sprintf("Command failed with exit code %d: %s", exitErr.ExitCode(), TruncateCommandOutput(detail)),
				Content: output,
			}
		}
		return failure("Error executing command: %v", err)
	}

	return Result{
		Success: true,
		Message: "Command executed successfully: " + command,
		Content: output,
	}
}

// TruncateCommandOutput keeps the head and tail of oversized output and notes
// how much was removed from the middle.
func TruncateCommandOutput(output string) string {
	if len(output) <= commandOutputLimit {
		return output
	}
	half := commandOutputLimit / 2
	removed := len(output) - commandOutputLimit
	return output[:half] +
		fmt.Sprintf("\n\n[%d characters of output removed from the middle. Re-run the command with more targeted arguments if you need the full output.]\n\n", removed) +
		output[len(output)-half:]
}

// sensitiveEnvSuffixes are case-insensitive name suffixes excluded from the
// environment handed to subprocesses.
var sensitiveEnvSuffixes = []string{
	"_API_KEY",
	"_SECRET",
	"_TOKEN",
	"_PASSWORD",
	"_CREDENTIAL",
}

// safeEnvVars are always passed through regardless of suffix filtering.
var safeEnvVars = map[string]bool{
	"PATH": true, "HOME": true, "USER": true, "SHELL": true,
	"LANG": true, "TERM": true, "TMPDIR": true,
	"GOPATH": true, "GOROOT": true, "CARGO_HOME": true,
	"NVM_DIR": true, "RUSTUP_HOME": true, "PYENV_ROOT": true,
	"XDG_CONFIG_HOME": true, "XDG_DATA_HOME": true, "XDG_CACHE_HOME": true,
}

func isSensitiveEnvVar(name string) bool {
	upper := strings.ToUpper(name)
	for _, suffix := range sensitiveEnvSuffixes {
		if strings.HasSuffix(upper, suffix) {
			return true
		}
	}
	return false
}

func filterEnvironment() []string {
	var filtered []string
	for _, env := range os.Environ() {
		name, _, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		if safeEnvVars[name] || !isSensitiveEnvVar(name) {
			filtered = append(filtered, env)
		}
	}
	return filtered
}
