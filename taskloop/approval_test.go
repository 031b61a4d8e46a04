package taskloop

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ktully/quill/assistantmsg"
	"github.com/ktully/quill/config"
)

func TestToolCategories(t *testing.T) {
	assert.Equal(t, categoryReadFiles, toolCategory(assistantmsg.ToolReadFile))
	assert.Equal(t, categoryReadFiles, toolCategory(assistantmsg.ToolSearchFiles))
	assert.Equal(t, categoryEditFiles, toolCategory(assistantmsg.ToolWriteToFile))
	assert.Equal(t, categoryEditFiles, toolCategory(assistantmsg.ToolReplaceInFile))
	assert.Equal(t, categoryExecuteCommands, toolCategory(assistantmsg.ToolExecuteCommand))
	assert.Equal(t, categoryNone, toolCategory(assistantmsg.ToolAttemptCompletion))
}

func TestShouldAutoApproveDisabled(t *testing.T) {
	settings := config.AutoApprovalSettings{ReadFiles: true, MaxRequests: 10}
	assert.False(t, shouldAutoApprove(settings, assistantmsg.ToolReadFile, 0))
}

func TestShouldAutoApprovePerCategory(t *testing.T) {
	settings := config.AutoApprovalSettings{
		Enabled:     true,
		ReadFiles:   true,
		MaxRequests: 10,
	}
	assert.True(t, shouldAutoApprove(settings, assistantmsg.ToolReadFile, 0))
	assert.True(t, shouldAutoApprove(settings, assistantmsg.ToolListFiles, 0))
	assert.False(t, shouldAutoApprove(settings, assistantmsg.ToolWriteToFile, 0))
	assert.False(t, shouldAutoApprove(settings, assistantmsg.ToolExecuteCommand, 0))
}

func TestShouldAutoApproveCeiling(t *testing.T) {
	settings := config.AutoApprovalSettings{
		Enabled:     true,
		ReadFiles:   true,
		MaxRequests: 3,
	}
	assert.True(t, shouldAutoApprove(settings, assistantmsg.ToolReadFile, 2))
	assert.False(t, shouldAutoApprove(settings, assistantmsg.ToolReadFile, 3))
}

func TestNeedsApproval(t *testing.T) {
	assert.True(t, needsApproval(assistantmsg.ToolReadFile))
	assert.True(t, needsApproval(assistantmsg.ToolExecuteCommand))
	assert.False(t, needsApproval(assistantmsg.ToolAttemptCompletion))
	assert.False(t, needsApproval(assistantmsg.ToolAskFollowupQuestion))
	assert.False(t, needsApproval(assistantmsg.ToolPlanModeResponse))
}
