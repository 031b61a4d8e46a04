package taskloop

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ktully/quill/assistantmsg"
	"github.com/ktully/quill/llmclient"
	"github.com/ktully/quill/tools"
)

// Run executes the task loop for a new task until a terminal tool result,
// three consecutive tool-free responses, or an abort.
func (t *Task) Run(ctx context.Context, taskText string) error {
	return t.run(ctx, []llmclient.ContentPart{llmclient.TextPart(wrapTask(taskText))})
}

// Continue picks up a resumed task, optionally carrying a new operator
// message into the first turn.
func (t *Task) Continue(ctx context.Context, message string) error {
	text := "[TASK RESUMPTION] This task was interrupted. The conversation so far is above; reassess the state of the work before continuing, since files and context may have changed."
	if message != "" {
		text += fmt.Sprintf("\n\nNew message from the user:\n<user_message>\n%s\n</user_message>", message)
	}
	return t.run(ctx, []llmclient.ContentPart{llmclient.TextPart(text)})
}

// run is the dispatch loop proper. The recursive "call again with next
// content" structure is flattened into an iterative loop so long tasks do not
// grow the stack.
func (t *Task) run(ctx context.Context, content []llmclient.ContentPart) (err error) {
	defer t.emitter.Close()
	t.emitter.Emit(EventTaskStart, nil)
	defer func() {
		data := map[string]interface{}{"total_cost": t.totalCost}
		if err != nil {
			data["error"] = err.Error()
		}
		t.emitter.Emit(EventTaskEnd, data)
	}()

	next := content
	for {
		terminal, nextContent, sawToolUse, err := t.turn(ctx, next)
		if err != nil {
			return err
		}
		if terminal {
			return nil
		}
		if sawToolUse {
			t.consecutiveMistakes = 0
			next = nextContent
		} else {
			t.consecutiveMistakes++
			next = []llmclient.ContentPart{llmclient.TextPart(formatNoToolsUsed())}
		}
	}
}

// turn performs one iteration: persist the incoming user content, request a
// completion over the truncated history view, then walk the parsed blocks in
// order dispatching tools under the approval policy.
func (t *Task) turn(ctx context.Context, content []llmclient.ContentPart) (terminal bool, next []llmclient.ContentPart, sawToolUse bool, err error) {
	if t.isAborted() || ctx.Err() != nil {
		return false, nil, false, ErrAborted
	}

	if t.consecutiveMistakes >= 3 {
		t.notify("Error", "quill is having trouble. Exiting task run.")
		guidance := "You seem to be having trouble. Please review the previous messages and try again."
		if feedback, askErr := t.opts.Operator.AskInput("quill is stuck. Add guidance for when the task is resumed (enter to skip):"); askErr == nil && strings.TrimSpace(feedback) != "" {
			guidance = strings.TrimSpace(feedback)
		}
		// Record the feedback turn so a resumed task starts from it.
		stop := formatTooManyMistakes(guidance)
		t.apiHistory = append(t.apiHistory, llmclient.Message{Role: llmclient.RoleUser, Content: []llmclient.ContentPart{llmclient.TextPart(stop)}})
		t.addUIMessage("error", stop)
		t.persist()
		return false, nil, false, ErrTooManyMistakes
	}

	maxRequests := t.opts.AutoApproval.MaxRequests
	if t.opts.AutoApproval.Enabled && t.consecutiveAutoApproved >= maxRequests {
		t.notify("Max Requests Reached", fmt.Sprintf("quill has auto-approved %d API requests.", maxRequests))
		ok, askErr := t.opts.Operator.Ask(fmt.Sprintf(
			"quill has auto-approved %d API requests. Would you like to reset the count and proceed with the task?", maxRequests))
		if askErr != nil || !ok {
			return false, nil, false, ErrAborted
		}
		t.consecutiveAutoApproved = 0
	}

	t.apiHistory = append(t.apiHistory, llmclient.Message{Role: llmclient.RoleUser, Content: content})
	t.persist()

	// Truncate the request view when the previous request's total usage
	// crossed the model's ceiling.
	maxAllowed := MaxAllowedTokens(t.opts.Client.Model().ContextWindow)
	if maxAllowed > 0 && t.lastRequestTokens >= maxAllowed {
		r := NextTruncationRange(len(t.apiHistory), t.deletedRange, chooseKeep(t.lastRequestTokens, maxAllowed))
		t.deletedRange = &r
		t.logger.Info("truncated conversation history",
			zap.Int("start", r.Start), zap.Int("end", r.End), zap.Int("history_len", len(t.apiHistory)))
		t.persist()
	}
	view := TruncatedView(t.apiHistory, t.deletedRange)

	requestID := uuid.NewString()
	resp, err := t.requestCompletion(ctx, requestID, SystemPrompt(t.opts.Cwd), view)
	if err != nil {
		return false, nil, false, err
	}
	t.recordUsage(requestID, resp.Usage)

	t.apiHistory = append(t.apiHistory, llmclient.AssistantMessage(resp.Text))
	t.persist()

	blocks := assistantmsg.Parse(resp.Text)
	for _, block := range blocks {
		if block.Kind == assistantmsg.BlockText {
			t.surfaceText(block)
			next = append(next, llmclient.TextPart(block.Text))
			continue
		}

		sawToolUse = true
		description := toolDescription(block)
		t.emitter.Emit(EventToolStart, map[string]interface{}{
			"tool":        string(block.Name),
			"description": description,
		})

		autoApproved := t.resolveApproval(block)
		if !autoApproved && needsApproval(block.Name) {
			t.notify("Approval Required", approvalPrompt(t.opts.Cwd, block))
			approved, askErr := t.opts.Operator.Ask(fmt.Sprintf("Approve %s?", block.Name))
			if askErr != nil {
				return false, nil, false, ErrAborted
			}
			if !approved {
				t.emitter.Emit(EventToolDenied, map[string]interface{}{"tool": string(block.Name)})
				denied := formatToolDenied()
				if feedback, inputErr := t.opts.Operator.AskInput("Add feedback for quill (enter to skip):"); inputErr == nil && strings.TrimSpace(feedback) != "" {
					denied = formatToolDeniedWithFeedback(strings.TrimSpace(feedback))
				}
				t.addUIMessage("tool_result", denied)
				next = append(next, llmclient.TextPart(denied))
				t.persist()
				return false, next, true, nil
			}
		}

		tool := t.opts.Registry.Get(block.Name)
		if tool == nil {
			msg := formatToolError(fmt.Sprintf("Unknown tool: %s", block.Name))
			t.addUIMessage("error", msg)
			next = append(next, llmclient.TextPart(msg))
			continue
		}

		if block.Name == assistantmsg.ToolExecuteCommand && autoApproved {
			t.watchLongRunningCommand()
		}

		result := executeTool(ctx, tool, tools.Params(block.Params))

		if !result.Success {
			msg := formatToolError(result.Message)
			t.emitter.Emit(EventError, map[string]interface{}{"tool": string(block.Name), "error": result.Message})
			t.addUIMessage("error", msg)
			next = append(next, llmclient.TextPart(msg))
			t.persist()
			if terminalCommand(block.Name, autoApproved, result) {
				return true, nil, true, nil
			}
			return false, next, true, nil
		}

		t.emitter.Emit(EventToolResult, map[string]interface{}{
			"tool":    string(block.Name),
			"message": result.Message,
		})
		t.addUIMessage("tool_result", fmt.Sprintf("%s %s", description, result.Message))

		next = append(next, llmclient.TextPart(formatToolResult(description, result.Message)))
		if result.Content != "" {
			next = append(next, llmclient.TextPart(result.Content))
		}
		t.persist()

		switch block.Name {
		case assistantmsg.ToolAttemptCompletion, assistantmsg.ToolAskFollowupQuestion:
			return true, nil, true, nil
		case assistantmsg.ToolExecuteCommand:
			if terminalCommand(block.Name, autoApproved, result) {
				return true, nil, true, nil
			}
		}
	}

	return false, next, sawToolUse, nil
}

// resolveApproval decides whether a tool runs without prompting, bumping the
// auto-approved counter when it does. execute_command's requires_approval
// parameter forces a prompt regardless of category policy.
func (t *Task) resolveApproval(block assistantmsg.ContentBlock) bool {
	auto := shouldAutoApprove(t.opts.AutoApproval, block.Name, t.consecutiveAutoApproved)
	if block.Name == assistantmsg.ToolExecuteCommand {
		requiresApproval := block.Param(assistantmsg.ParamRequiresApproval) != "false"
		auto = auto && !requiresApproval
	}
	if auto {
		t.consecutiveAutoApproved++
	}
	return auto
}

// terminalCommand reports whether an execute_command invocation ends the
// loop: only an auto-approved command that ran into its timeout does.
func terminalCommand(name assistantmsg.ToolName, autoApproved bool, result tools.Result) bool {
	return name == assistantmsg.ToolExecuteCommand && autoApproved && result.TimedOut
}

// watchLongRunningCommand arms a detached timer that notifies the operator if
// an auto-approved command is still running after the configured delay. It is
// fire-and-forget and never cancels the command.
func (t *Task) watchLongRunningCommand() {
	time.AfterFunc(t.opts.longRunningNotifyDelay, func() {
		t.notify("Command is still running",
			"An auto-approved command has been running for 30s, and may need your attention.")
	})
}

func (t *Task) surfaceText(block assistantmsg.ContentBlock) {
	if block.Thinking {
		t.emitter.Emit(EventAssistantThought, map[string]interface{}{"text": block.Text})
		t.addUIMessage("thinking", block.Text)
		return
	}
	t.emitter.Emit(EventAssistantText, map[string]interface{}{"text": block.Text})
	t.addUIMessage("text", block.Text)
}

// requestCompletion issues the model request with one automatic retry, then
// escalates repeated failures to the operator. Declining aborts the task.
func (t *Task) requestCompletion(ctx context.Context, requestID, systemPrompt string, view []llmclient.Message) (*llmclient.Response, error) {
	for {
		resp, err := llmclient.CreateMessageWithRetry(ctx, t.opts.Client, t.opts.RetryBackoff, systemPrompt, view)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil || t.isAborted() {
			return nil, ErrAborted
		}
		t.logger.Error("model request failed", zap.String("request_id", requestID), zap.Error(err))
		ok, askErr := t.opts.Operator.Ask(fmt.Sprintf("The model request failed: %v. Retry?", err))
		if askErr != nil || !ok {
			return nil, fmt.Errorf("model request failed (%v): %w", err, ErrAborted)
		}
	}
}

func (t *Task) recordUsage(requestID string, usage llmclient.Usage) {
	t.totalInputTokens += usage.InputTokens
	t.totalOutputTokens += usage.OutputTokens
	t.totalCacheWrites += usage.CacheWriteTokens
	t.totalCacheReads += usage.CacheReadTokens
	t.lastRequestTokens = usage.Total()

	cost := t.opts.Client.Model().Cost(usage.InputTokens, usage.OutputTokens, usage.CacheWriteTokens, usage.CacheReadTokens)
	t.totalCost += cost

	info, _ := json.Marshal(map[string]interface{}{
		"requestId":   requestID,
		"tokensIn":    usage.InputTokens,
		"tokensOut":   usage.OutputTokens,
		"cacheWrites": usage.CacheWriteTokens,
		"cacheReads":  usage.CacheReadTokens,
		"cost":        cost,
	})
	t.addUIMessage("api_req", string(info))
	t.emitter.Emit(EventAPIRequest, map[string]interface{}{
		"request_id": requestID,
		"tokens_in":  usage.InputTokens,
		"tokens_out": usage.OutputTokens,
		"cost":       cost,
	})
}

// executeTool never lets a tool panic propagate; a panic becomes a failed
// result surfaced to the model like any other tool error.
func executeTool(ctx context.Context, tool tools.Tool, params tools.Params) (result tools.Result) {
	defer func() {
		if r := recover(); r != nil {
			result = tools.Result{Success: false, Message: fmt.Sprintf("tool panicked: %v", r)}
		}
	}()
	return tool.Execute(ctx, params)
}
