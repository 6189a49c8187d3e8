package author

import (
	"context"
	"errors"
	"testing"

	"github.com/entrhq/proctor/pkg/llm"
	"github.com/entrhq/proctor/pkg/logging"
	"github.com/entrhq/proctor/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	reply    string
	err      error
	messages []llm.Message
	format   llm.ResponseFormat
}

func (f *fakeProvider) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	return f.reply, f.err
}

func (f *fakeProvider) CompleteStructured(ctx context.Context, messages []llm.Message, format llm.ResponseFormat) (string, error) {
	f.messages = messages
	f.format = format
	return f.reply, f.err
}

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	log, _ := logging.NewLogger("author-test")
	t.Cleanup(func() { log.Close() })
	return log
}

func TestAuthorReturnsPendingChecklist(t *testing.T) {
	provider := &fakeProvider{reply: `{"steps":[
		{"step_number":1,"step_instructions":"Open a web browser and navigate to the URL: https://shop.test","status":"pending"},
		{"step_number":2,"step_instructions":"Add a product to the cart.","status":""}
	]}`}

	agent := New(provider, testLogger(t))
	checklist, err := agent.Author(context.Background(), "test adding a product to the cart on https://shop.test")
	require.NoError(t, err)

	require.Len(t, checklist.Steps, 2)
	assert.Equal(t, types.StepPending, checklist.Steps[0].Status)
	assert.Equal(t, types.StepPending, checklist.Steps[1].Status)

	assert.Equal(t, "test_case", provider.format.Name)
	require.Len(t, provider.messages, 2)
	assert.Equal(t, llm.RoleSystem, provider.messages[0].Role)
	assert.Contains(t, provider.messages[0].Content, "does not require login")
}

func TestAuthorLoginFlowPrompt(t *testing.T) {
	provider := &fakeProvider{reply: `{"steps":[{"step_number":1,"step_instructions":"x","status":"pending"}]}`}

	agent := New(provider, testLogger(t), WithLoginFlow(true))
	_, err := agent.Author(context.Background(), "test the accounts tab")
	require.NoError(t, err)

	assert.Contains(t, provider.messages[0].Content, "navigate to the login URL")
	assert.NotContains(t, provider.messages[0].Content, "does not require login")
}

func TestAuthorErrors(t *testing.T) {
	t.Run("provider failure", func(t *testing.T) {
		agent := New(&fakeProvider{err: errors.New("rate limited")}, testLogger(t))
		_, err := agent.Author(context.Background(), "anything")
		require.Error(t, err)
	})

	t.Run("empty checklist", func(t *testing.T) {
		agent := New(&fakeProvider{reply: `{"steps":[]}`}, testLogger(t))
		_, err := agent.Author(context.Background(), "anything")
		require.Error(t, err)
	})
}
