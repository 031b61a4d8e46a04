// Package assistantmsg converts raw assistant responses into ordered content
// blocks.
//
// The model speaks a tag-delimited wire format: free text interleaved with
// tool invocations such as
//
//	<read_file>
//	<path>main.go</path>
//	</read_file>
//
// The vocabulary of tool names and parameter names is closed. The parser is
// deliberately not a strict XML parser: an unclosed tool tag means the
// response is still streaming, and the whole tail is kept as plain text so a
// caller can re-parse once more output arrives. Do not replace this with a
// grammar-based parser; the permissive fallback is load-bearing.
package assistantmsg

// ToolName identifies a tool the model may invoke.
type ToolName string

const (
	ToolExecuteCommand          ToolName = "execute_command"
	ToolReadFile                ToolName = "read_file"
	ToolWriteToFile             ToolName = "write_to_file"
	ToolReplaceInFile           ToolName = "replace_in_file"
	ToolSearchFiles             ToolName = "search_files"
	ToolListFiles               ToolName = "list_files"
	ToolListCodeDefinitionNames ToolName = "list_code_definition_names"
	ToolBrowserAction           ToolName = "browser_action"
	ToolUseMCPTool              ToolName = "use_mcp_tool"
	ToolAccessMCPResource       ToolName = "access_mcp_resource"
	ToolAskFollowupQuestion     ToolName = "ask_followup_question"
	ToolPlanModeResponse        ToolName = "plan_mode_response"
	ToolAttemptCompletion       ToolName = "attempt_completion"
)

// ToolNames is the closed set of recognized tool names, in scan order.
var ToolNames = []ToolName{
	ToolExecuteCommand,
	ToolReadFile,
	ToolWriteToFile,
	ToolReplaceInFile,
	ToolSearchFiles,
	ToolListFiles,
	ToolListCodeDefinitionNames,
	ToolBrowserAction,
	ToolUseMCPTool,
	ToolAccessMCPResource,
	ToolAskFollowupQuestion,
	ToolPlanModeResponse,
	ToolAttemptCompletion,
}

// ParamName identifies a parameter inside a tool block.
type ParamName string

const (
	ParamCommand          ParamName = "command"
	ParamRequiresApproval ParamName = "requires_approval"
	ParamPath             ParamName = "path"
	ParamContent          ParamName = "content"
	ParamDiff             ParamName = "diff"
	ParamRegex            ParamName = "regex"
	ParamFilePattern      ParamName = "file_pattern"
	ParamRecursive        ParamName = "recursive"
	ParamAction           ParamName = "action"
	ParamURL              ParamName = "url"
	ParamCoordinate       ParamName = "coordinate"
	ParamText             ParamName = "text"
	ParamServerName       ParamName = "server_name"
	ParamToolName         ParamName = "tool_name"
	ParamArguments        ParamName = "arguments"
	ParamURI              ParamName = "uri"
	ParamQuestion         ParamName = "question"
	ParamResponse         ParamName = "response"
	ParamResult           ParamName = "result"
)

// ParamNames is the closed set of recognized parameter names. Tags inside a
// tool block that are not in this set are ignored.
var ParamNames = []ParamName{
	ParamCommand,
	ParamRequiresApproval,
	ParamPath,
	ParamContent,
	ParamDiff,
	ParamRegex,
	ParamFilePattern,
	ParamRecursive,
	ParamAction,
	ParamURL,
	ParamCoordinate,
	ParamText,
	ParamServerName,
	ParamToolName,
	ParamArguments,
	ParamURI,
	ParamQuestion,
	ParamResponse,
	ParamResult,
}

// BlockKind discriminates between content block types.
type BlockKind string

const (
	BlockText    BlockKind = "text"
	BlockToolUse BlockKind = "tool_use"
)

// ContentBlock is one parsed piece of an assistant response. Blocks preserve
// source order. For BlockText, Thinking marks reasoning monologue that should
// be rendered distinctly but is still surfaced to the caller.
type ContentBlock struct {
	Kind     BlockKind
	Text     string
	Thinking bool
	Name     ToolName
	Params   map[ParamName]string
}

// TextBlock creates a plain text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Kind: BlockText, Text: text}
}

// ThinkingBlock creates a reasoning text content block.
func ThinkingBlock(text string) ContentBlock {
	return ContentBlock{Kind: BlockText, Text: text, Thinking: true}
}

// ToolUseBlock creates a tool invocation content block.
func ToolUseBlock(name ToolName, params map[ParamName]string) ContentBlock {
	if params == nil {
		params = make(map[ParamName]string)
	}
	return ContentBlock{Kind: BlockToolUse, Name: name, Params: params}
}

// Param returns the named parameter value, or "" if absent.
func (b ContentBlock) Param(name ParamName) string {
	return b.Params[name]
}

// HasParam reports whether the named parameter was present in the tool block.
func (b ContentBlock) HasParam(name ParamName) bool {
	_, ok := b.Params[name]
	return ok
}
