package taskloop

import (
	"github.com/ktully/quill/assistantmsg"
	"github.com/ktully/quill/config"
)

// approvalCategory groups tools under one auto-approval switch.
type approvalCategory string

const (
	categoryReadFiles       approvalCategory = "read_files"
	categoryEditFiles       approvalCategory = "edit_files"
	categoryExecuteCommands approvalCategory = "execute_commands"
	categoryNone            approvalCategory = ""
)

func toolCategory(name assistantmsg.ToolName) approvalCategory {
	switch name {
	case assistantmsg.ToolReadFile, assistantmsg.ToolListFiles,
		assistantmsg.ToolListCodeDefinitionNames, assistantmsg.ToolSearchFiles:
		return categoryReadFiles
	case assistantmsg.ToolWriteToFile, assistantmsg.ToolReplaceInFile:
		return categoryEditFiles
	case assistantmsg.ToolExecuteCommand:
		return categoryExecuteCommands
	default:
		return categoryNone
	}
}

// shouldAutoApprove reports whether a tool may run without an explicit
// operator confirmation, given the settings and the running auto-approved
// count. Terminal and interaction tools never need approval and are handled
// separately by the loop.
func shouldAutoApprove(settings config.AutoApprovalSettings, name assistantmsg.ToolName, consecutiveAutoApproved int) bool {
	if !settings.Enabled {
		return false
	}
	if consecutiveAutoApproved >= settings.MaxRequests {
		return false
	}
	switch toolCategory(name) {
	case categoryReadFiles:
		return settings.ReadFiles
	case categoryEditFiles:
		return settings.EditFiles
	case categoryExecuteCommands:
		return settings.ExecuteCommands
	default:
		return false
	}
}

// needsApproval reports whether the loop must ask the operator before
// executing the given tool. Interaction tools carry no side effects and are
// exempt.
func needsApproval(name assistantmsg.ToolName) bool {
	switch name {
	case assistantmsg.ToolAttemptCompletion, assistantmsg.ToolAskFollowupQuestion,
		assistantmsg.ToolPlanModeResponse:
		return false
	default:
		return true
	}
}
