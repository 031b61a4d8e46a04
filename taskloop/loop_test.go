package taskloop

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ktully/quill/config"
	"github.com/ktully/quill/history"
	"github.com/ktully/quill/llmclient"
	"github.com/ktully/quill/tools"
)

type scriptedClient struct {
	responses []string
	err       error
	calls     int
	model     llmclient.ModelInfo
}

func (c *scriptedClient) CreateMessage(_ context.Context, _ string, _ []llmclient.Message) (*llmclient.Response, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	i := c.calls - 1
	if i >= len(c.responses) {
		i = len(c.responses) - 1
	}
	return &llmclient.Response{
		Text:  c.responses[i],
		Usage: llmclient.Usage{InputTokens: 100, OutputTokens: 50},
	}, nil
}

func (c *scriptedClient) Model() llmclient.ModelInfo {
	if c.model.ContextWindow == 0 {
		c.model = llmclient.ModelInfo{ID: "test-model", ContextWindow: 200_000}
	}
	return c.model
}

type scriptedOperator struct {
	answers  []bool
	inputs   []string
	asked    []string
	prompted []string
	notices  []string
}

func (o *scriptedOperator) Ask(question string) (bool, error) {
	o.asked = append(o.asked, question)
	if len(o.answers) == 0 {
		return false, nil
	}
	answer := o.answers[0]
	o.answers = o.answers[1:]
	return answer, nil
}

func (o *scriptedOperator) AskInput(prompt string) (string, error) {
	o.prompted = append(o.prompted, prompt)
	if len(o.inputs) == 0 {
		return "", nil
	}
	input := o.inputs[0]
	o.inputs = o.inputs[1:]
	return input, nil
}

func (o *scriptedOperator) Notify(subtitle, message string) {
	o.notices = append(o.notices, subtitle+": "+message)
}

type loopFixture struct {
	task     *Task
	client   *scriptedClient
	operator *scriptedOperator
	store    *history.Store
	cwd      string
}

func newLoopFixture(t *testing.T, client *scriptedClient, operator *scriptedOperator, autoApproval config.AutoApprovalSettings) *loopFixture {
	t.Helper()
	cwd := t.TempDir()
	store, err := history.NewStore(t.TempDir())
	require.NoError(t, err)

	task, err := New(Options{
		Client:       client,
		Registry:     tools.NewCoreRegistry(cwd, tools.CoreOptions{CommandTimeoutSeconds: 5}),
		Store:        store,
		Operator:     operator,
		AutoApproval: autoApproval,
		Cwd:          cwd,
		RetryBackoff: time.Millisecond,
	})
	require.NoError(t, err)
	return &loopFixture{task: task, client: client, operator: operator, store: store, cwd: cwd}
}

const completionResponse = "<attempt_completion>\n<result>\nAll done.\n</result>\n</attempt_completion>"

func TestRunTerminatesOnAttemptCompletion(t *testing.T) {
	f := newLoopFixture(t,
		&scriptedClient{responses: []string{"Finishing up. " + completionResponse}},
		&scriptedOperator{},
		config.AutoApprovalSettings{MaxRequests: 20},
	)

	require.NoError(t, f.task.Run(context.Background(), "say done"))
	assert.Equal(t, 1, f.client.calls)
	assert.Empty(t, f.operator.asked)

	saved, err := f.store.LoadAPIHistory(f.task.ID())
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Contains(t, saved[0].TextContent(), "<task>\nsay done\n</task>")
	assert.Contains(t, saved[1].TextContent(), "attempt_completion")
}

func TestRunTerminatesOnAskFollowupQuestion(t *testing.T) {
	f := newLoopFixture(t,
		&scriptedClient{responses: []string{"<ask_followup_question>\n<question>\nWhich port?\n</question>\n</ask_followup_question>"}},
		&scriptedOperator{},
		config.AutoApprovalSettings{MaxRequests: 20},
	)
	require.NoError(t, f.task.Run(context.Background(), "configure server"))
	assert.Equal(t, 1, f.client.calls)
}

func TestThreeToolFreeResponsesTerminate(t *testing.T) {
	f := newLoopFixture(t,
		&scriptedClient{responses: []string{"I think I'm done, probably."}},
		&scriptedOperator{},
		config.AutoApprovalSettings{MaxRequests: 20},
	)

	err := f.task.Run(context.Background(), "do something")
	require.ErrorIs(t, err, ErrTooManyMistakes)
	assert.Equal(t, 3, f.client.calls)

	// The corrective message was recorded for the turns after the first, and
	// the stall left a feedback turn for a later resume to start from.
	saved, loadErr := f.store.LoadAPIHistory(f.task.ID())
	require.NoError(t, loadErr)
	assert.Contains(t, saved[2].TextContent(), "You did not use a tool in your previous response")
	last := saved[len(saved)-1].TextContent()
	assert.Contains(t, last, "You seem to be having trouble proceeding.")
	assert.Contains(t, last, "Please review the previous messages and try again.")
}

func TestStalledTaskRecordsOperatorGuidance(t *testing.T) {
	f := newLoopFixture(t,
		&scriptedClient{responses: []string{"still just musing"}},
		&scriptedOperator{inputs: []string{"read README.md before anything else"}},
		config.AutoApprovalSettings{MaxRequests: 20},
	)

	err := f.task.Run(context.Background(), "do something")
	require.ErrorIs(t, err, ErrTooManyMistakes)

	saved, loadErr := f.store.LoadAPIHistory(f.task.ID())
	require.NoError(t, loadErr)
	last := saved[len(saved)-1].TextContent()
	assert.Contains(t, last, "<feedback>\nread README.md before anything else\n</feedback>")
}

func TestToolBearingResponseResetsMistakeCount(t *testing.T) {
	cwdClient := &scriptedClient{responses: []string{
		"thinking out loud, no tool",
		"<read_file>\n<path>a.txt</path>\n</read_file>",
		"still no tool",
		"no tool again",
		"and once more",
	}}
	f := newLoopFixture(t, cwdClient, &scriptedOperator{}, config.AutoApprovalSettings{
		Enabled:     true,
		ReadFiles:   true,
		MaxRequests: 20,
	})
	require.NoError(t, os.WriteFile(filepath.Join(f.cwd, "a.txt"), []byte("contents\n"), 0o644))

	err := f.task.Run(context.Background(), "read the file")
	require.ErrorIs(t, err, ErrTooManyMistakes)
	// One mistake, a reset by the tool-bearing turn, then three more.
	assert.Equal(t, 5, f.client.calls)
	assert.Empty(t, f.operator.asked)
}

func TestApprovalGatingDenialEndsTurn(t *testing.T) {
	f := newLoopFixture(t,
		&scriptedClient{responses: []string{
			"<read_file>\n<path>a.txt</path>\n</read_file>",
			completionResponse,
		}},
		&scriptedOperator{answers: []bool{false}},
		config.AutoApprovalSettings{MaxRequests: 20},
	)
	require.NoError(t, os.WriteFile(filepath.Join(f.cwd, "a.txt"), []byte("secret\n"), 0o644))

	require.NoError(t, f.task.Run(context.Background(), "read it"))
	require.Len(t, f.operator.asked, 1)
	assert.Equal(t, "Approve read_file?", f.operator.asked[0])

	saved, err := f.store.LoadAPIHistory(f.task.ID())
	require.NoError(t, err)
	// Denial became the next user turn; the file content never did.
	assert.Contains(t, saved[2].TextContent(), "The user denied this operation.")
	assert.NotContains(t, saved[2].TextContent(), "<feedback>")
	assert.NotContains(t, saved[2].TextContent(), "secret")
}

func TestDenialFeedbackReachesTheModel(t *testing.T) {
	f := newLoopFixture(t,
		&scriptedClient{responses: []string{
			"<read_file>\n<path>a.txt</path>\n</read_file>",
			completionResponse,
		}},
		&scriptedOperator{
			answers: []bool{false},
			inputs:  []string{"that file is generated, read a.tmpl instead"},
		},
		config.AutoApprovalSettings{MaxRequests: 20},
	)
	require.NoError(t, os.WriteFile(filepath.Join(f.cwd, "a.txt"), []byte("secret\n"), 0o644))

	require.NoError(t, f.task.Run(context.Background(), "read it"))

	saved, err := f.store.LoadAPIHistory(f.task.ID())
	require.NoError(t, err)
	turn := saved[2].TextContent()
	assert.Contains(t, turn, "The user denied this operation and provided the following feedback:")
	assert.Contains(t, turn, "<feedback>\nthat file is generated, read a.tmpl instead\n</feedback>")
	assert.NotContains(t, turn, "secret")
}

func TestApprovedToolExecutes(t *testing.T) {
	f := newLoopFixture(t,
		&scriptedClient{responses: []string{
			"<read_file>\n<path>a.txt</path>\n</read_file>",
			completionResponse,
		}},
		&scriptedOperator{answers: []bool{true}},
		config.AutoApprovalSettings{MaxRequests: 20},
	)
	require.NoError(t, os.WriteFile(filepath.Join(f.cwd, "a.txt"), []byte("hello tool\n"), 0o644))

	require.NoError(t, f.task.Run(context.Background(), "read it"))

	saved, err := f.store.LoadAPIHistory(f.task.ID())
	require.NoError(t, err)
	turn := saved[2].TextContent()
	assert.Contains(t, turn, "[read_file for 'a.txt'] Result:")
	assert.Contains(t, turn, "hello tool")
}

func TestExecuteCommandRequiresApprovalOverride(t *testing.T) {
	f := newLoopFixture(t,
		&scriptedClient{responses: []string{
			"<execute_command>\n<command>echo hi</command>\n<requires_approval>true</requires_approval>\n</execute_command>",
			completionResponse,
		}},
		&scriptedOperator{answers: []bool{true}},
		config.AutoApprovalSettings{
			Enabled:         true,
			ExecuteCommands: true,
			MaxRequests:     20,
		},
	)

	require.NoError(t, f.task.Run(context.Background(), "run it"))
	// Category auto-approval was on, but requires_approval forced a prompt.
	require.Len(t, f.operator.asked, 1)
	assert.Equal(t, "Approve execute_command?", f.operator.asked[0])
}

func TestAutoApprovalCeilingEscalates(t *testing.T) {
	f := newLoopFixture(t,
		&scriptedClient{responses: []string{
			"<read_file>\n<path>a.txt</path>\n</read_file>",
			"<read_file>\n<path>a.txt</path>\n</read_file>",
		}},
		&scriptedOperator{}, // declines the reset prompt
		config.AutoApprovalSettings{
			Enabled:     true,
			ReadFiles:   true,
			MaxRequests: 1,
		},
	)
	require.NoError(t, os.WriteFile(filepath.Join(f.cwd, "a.txt"), []byte("x\n"), 0o644))

	err := f.task.Run(context.Background(), "keep reading")
	require.ErrorIs(t, err, ErrAborted)
	require.Len(t, f.operator.asked, 1)
	assert.Contains(t, f.operator.asked[0], "auto-approved 1 API requests")
}

func TestToolFailureEndsTurnWithoutMistake(t *testing.T) {
	f := newLoopFixture(t,
		&scriptedClient{responses: []string{
			"<read_file>\n<path>missing.txt</path>\n</read_file>",
			completionResponse,
		}},
		&scriptedOperator{},
		config.AutoApprovalSettings{
			Enabled:     true,
			ReadFiles:   true,
			MaxRequests: 20,
		},
	)

	require.NoError(t, f.task.Run(context.Background(), "read something missing"))
	assert.Equal(t, 2, f.client.calls)

	saved, err := f.store.LoadAPIHistory(f.task.ID())
	require.NoError(t, err)
	turn := saved[2].TextContent()
	assert.Contains(t, turn, "The tool execution failed with the following error:")
	assert.Contains(t, turn, "missing.txt")
}

func TestAbortFailsFast(t *testing.T) {
	f := newLoopFixture(t,
		&scriptedClient{responses: []string{completionResponse}},
		&scriptedOperator{},
		config.AutoApprovalSettings{MaxRequests: 20},
	)
	f.task.Abort()

	err := f.task.Run(context.Background(), "never starts")
	require.ErrorIs(t, err, ErrAborted)
	assert.Equal(t, 0, f.client.calls)
}

func TestModelFailureEscalatesAndDeclineAborts(t *testing.T) {
	f := newLoopFixture(t,
		&scriptedClient{err: errors.New("provider exploded")},
		&scriptedOperator{}, // declines retry
		config.AutoApprovalSettings{MaxRequests: 20},
	)

	err := f.task.Run(context.Background(), "doomed")
	require.ErrorIs(t, err, ErrAborted)
	require.Len(t, f.operator.asked, 1)
	assert.Contains(t, f.operator.asked[0], "The model request failed")
}

func TestResumeContinuesStoredTask(t *testing.T) {
	store, err := history.NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.SaveAPIHistory("123", []llmclient.Message{
		llmclient.UserMessage(llmclient.TextPart("<task>\nearlier work\n</task>")),
		llmclient.AssistantMessage("partial progress"),
	}))

	cwd := t.TempDir()
	client := &scriptedClient{responses: []string{completionResponse}}
	task, err := Resume("123", Options{
		Client:       client,
		Registry:     tools.NewCoreRegistry(cwd, tools.CoreOptions{}),
		Store:        store,
		Operator:     &scriptedOperator{},
		AutoApproval: config.AutoApprovalSettings{MaxRequests: 20},
		Cwd:          cwd,
		RetryBackoff: time.Millisecond,
	})
	require.NoError(t, err)
	require.NoError(t, task.Continue(context.Background(), "please wrap up"))

	saved, err := store.LoadAPIHistory("123")
	require.NoError(t, err)
	require.Len(t, saved, 4)
	assert.Contains(t, saved[2].TextContent(), "[TASK RESUMPTION]")
	assert.Contains(t, saved[2].TextContent(), "please wrap up")
}

func TestResumeUnknownTaskFails(t *testing.T) {
	store, err := history.NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = Resume("nope", Options{
		Client:   &scriptedClient{responses: []string{"x"}},
		Registry: tools.NewCoreRegistry(t.TempDir(), tools.CoreOptions{}),
		Store:    store,
		Operator: &scriptedOperator{},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no stored history")
}

func TestTruncationTriggersAfterLargeUsage(t *testing.T) {
	// Small context window so the second request must truncate.
	client := &scriptedClient{
		responses: []string{
			"<read_file>\n<path>a.txt</path>\n</read_file>",
			completionResponse,
		},
		model: llmclient.ModelInfo{ID: "tiny", ContextWindow: 64_000},
	}
	f := newLoopFixture(t, client, &scriptedOperator{}, config.AutoApprovalSettings{
		Enabled:     true,
		ReadFiles:   true,
		MaxRequests: 20,
	})
	require.NoError(t, os.WriteFile(filepath.Join(f.cwd, "a.txt"), []byte("x\n"), 0o644))

	// Simulate a previous request that filled the window.
	f.task.lastRequestTokens = 50_000

	require.NoError(t, f.task.Run(context.Background(), "big history"))
	require.NotNil(t, f.task.deletedRange)
	assert.Equal(t, 0, f.task.deletedRange.Start)
}

func TestUsageAccounting(t *testing.T) {
	f := newLoopFixture(t,
		&scriptedClient{responses: []string{completionResponse}},
		&scriptedOperator{},
		config.AutoApprovalSettings{MaxRequests: 20},
	)

	require.NoError(t, f.task.Run(context.Background(), "done quickly"))
	in, out := f.task.TokenTotals()
	assert.Equal(t, 100, in)
	assert.Equal(t, 50, out)

	msgs, err := f.store.LoadUIMessages(f.task.ID())
	require.NoError(t, err)
	var kinds []string
	for _, m := range msgs {
		kinds = append(kinds, m.Kind)
	}
	assert.Contains(t, kinds, "api_req")
	assert.Contains(t, strings.Join(kinds, ","), "tool_result")
}
