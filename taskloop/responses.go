package taskloop

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ktully/quill/assistantmsg"
)

// Model-facing message templates. These strings become user-turn content, so
// their wording is part of the agent's behavior contract.

func wrapTask(task string) string {
	return fmt.Sprintf("<task>\n%s\n</task>", task)
}

func formatToolDenied() string {
	return "The user denied this operation."
}

func formatToolDeniedWithFeedback(feedback string) string {
	return fmt.Sprintf("The user denied this operation and provided the following feedback:\n<feedback>\n%s\n</feedback>", feedback)
}

func formatToolError(err string) string {
	return fmt.Sprintf("The tool execution failed with the following error:\n<error>\n%s\n</error>", err)
}

func formatTooManyMistakes(feedback string) string {
	return fmt.Sprintf("You seem to be having trouble proceeding. The user has provided the following feedback to help guide you:\n<feedback>\n%s\n</feedback>", feedback)
}

func formatNoToolsUsed() string {
	return fmt.Sprintf(`[ERROR] You did not use a tool in your previous response! Please retry with a tool use.

%s

# Next Steps

If you have completed the user's task, use the attempt_completion tool.
If you require additional information from the user, use the ask_followup_question tool.
Otherwise, if you have not completed the task and do not need additional information, then proceed with the next step of the task.
(This is an automated message, so do not respond to it conversationally.)`, toolUseInstructionsReminder)
}

func formatToolResult(description, message string) string {
	return fmt.Sprintf("%s Result: %s", description, message)
}

const toolUseInstructionsReminder = `# Reminder: Instructions for Tool Use

Tool uses are formatted using XML-style tags. The tool name is enclosed in opening and closing tags, and each parameter is similarly enclosed within its own set of tags. Here's the structure:

<tool_name>
<parameter1_name>value1</parameter1_name>
<parameter2_name>value2</parameter2_name>
...
</tool_name>

For example:

<attempt_completion>
<result>
I have completed the task...
</result>
</attempt_completion>

Always adhere to this format for all tool uses to ensure proper parsing and execution.`

// toolDescription renders a short tag identifying a tool invocation, shown to
// the model next to its result.
func toolDescription(block assistantmsg.ContentBlock) string {
	switch block.Name {
	case assistantmsg.ToolReadFile, assistantmsg.ToolWriteToFile, assistantmsg.ToolReplaceInFile,
		assistantmsg.ToolListFiles, assistantmsg.ToolListCodeDefinitionNames:
		return fmt.Sprintf("[%s for '%s']", block.Name, block.Param(assistantmsg.ParamPath))
	case assistantmsg.ToolSearchFiles:
		return fmt.Sprintf("[%s for '%s']", block.Name, block.Param(assistantmsg.ParamRegex))
	case assistantmsg.ToolExecuteCommand:
		return fmt.Sprintf("[%s for '%s']", block.Name, block.Param(assistantmsg.ParamCommand))
	case assistantmsg.ToolAskFollowupQuestion:
		return fmt.Sprintf("[%s for '%s']", block.Name, block.Param(assistantmsg.ParamQuestion))
	default:
		return fmt.Sprintf("[%s]", block.Name)
	}
}

// approvalPrompt describes a pending tool invocation to the operator.
func approvalPrompt(cwd string, block assistantmsg.ContentBlock) string {
	base := func(param assistantmsg.ParamName) string {
		return filepath.Base(block.Param(param))
	}
	switch block.Name {
	case assistantmsg.ToolWriteToFile:
		target := filepath.Join(cwd, block.Param(assistantmsg.ParamPath))
		verb := "create"
		if _, err := os.Stat(target); err == nil {
			verb = "edit"
		}
		return fmt.Sprintf("quill wants to %s %s", verb, base(assistantmsg.ParamPath))
	case assistantmsg.ToolReplaceInFile:
		return fmt.Sprintf("quill wants to edit %s", base(assistantmsg.ParamPath))
	case assistantmsg.ToolReadFile:
		return fmt.Sprintf("quill wants to read %s", base(assistantmsg.ParamPath))
	case assistantmsg.ToolListFiles:
		return fmt.Sprintf("quill wants to view directory %s/", base(assistantmsg.ParamPath))
	case assistantmsg.ToolSearchFiles:
		return fmt.Sprintf("quill wants to search files in %s/", base(assistantmsg.ParamPath))
	case assistantmsg.ToolExecuteCommand:
		return fmt.Sprintf("quill wants to execute a command: %s", strings.TrimSpace(block.Param(assistantmsg.ParamCommand)))
	default:
		return fmt.Sprintf("quill wants to use %s", block.Name)
	}
}
