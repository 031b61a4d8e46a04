package tools

import (
	"context"

	"github.com/ktully/quill/assistantmsg"
)

// AttemptCompletionTool accepts the model's final result. It has no local
// side effects; the loop treats a successful invocation as terminal.
type AttemptCompletionTool struct{}

func NewAttemptCompletionTool() *AttemptCompletionTool { return &AttemptCompletionTool{} }

func (t *AttemptCompletionTool) Name() assistantmsg.ToolName {
	return assistantmsg.ToolAttemptCompletion
}

func (t *AttemptCompletionTool) Execute(_ context.Context, params Params) Result {
	result := params.Get(assistantmsg.ParamResult)
	if result == "" {
		return failure("Missing required parameter: result")
	}
	return Result{Success: true, Message: "Task completed", Content: result}
}

// AskFollowupQuestionTool surfaces a clarifying question to the operator.
// The loop is responsible for collecting the answer; execution only validates
// and echoes the question.
type AskFollowupQuestionTool struct{}

func NewAskFollowupQuestionTool() *AskFollowupQuestionTool { return &AskFollowupQuestionTool{} }

func (t *AskFollowupQuestionTool) Name() assistantmsg.ToolName {
	return assistantmsg.ToolAskFollowupQuestion
}

func (t *AskFollowupQuestionTool) Execute(_ context.Context, params Params) Result {
	question := params.Get(assistantmsg.ParamQuestion)
	if question == "" {
		return failure("Missing required parameter: question")
	}
	return Result{Success: true, Message: "Question posed", Content: question}
}

// PlanModeResponseTool relays a planning-phase response verbatim.
type PlanModeResponseTool struct{}

func NewPlanModeResponseTool() *PlanModeResponseTool { return &PlanModeResponseTool{} }

func (t *PlanModeResponseTool) Name() assistantmsg.ToolName {
	return assistantmsg.ToolPlanModeResponse
}

func (t *PlanModeResponseTool) Execute(_ context.Context, params Params) Result {
	response := params.Get(assistantmsg.ParamResponse)
	if response == "" {
		return failure("Missing required parameter: response")
	}
	return Result{Success: true, Message: "Plan response recorded", Content: response}
}
