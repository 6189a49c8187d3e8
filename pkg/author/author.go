// Package author turns free-form user instructions into a numbered test
// checklist.
package author

import (
	"context"
	"fmt"

	"github.com/entrhq/proctor/pkg/llm"
	"github.com/entrhq/proctor/pkg/logging"
	"github.com/entrhq/proctor/pkg/types"
)

const promptWithLogin = `You are a test case authoring agent. You will be given instructions by user on what they want to test.
Create test steps Step 1, Step 2, ... Return in JSON format { step_number: step_instructions: status: }
Provide all the steps in your response.

The first step is always:
1. Open the browser and navigate to the login URL.

Then add the actual test steps the user asked for.

SAMPLE RESPONSE:
{
  "steps": [
    { "step_number": 1, "step_instructions": "Open a web browser and navigate to the login URL: <login URL>", "status": "pending" },
    { "step_number": 2, "step_instructions": "From the home page, click the 'Accounts' tab.", "status": "pending" },
    { "step_number": 3, "step_instructions": "Click 'New' to create a new account.", "status": "pending" },
    { "step_number": 4, "step_instructions": "Fill the form with mock data (e.g., Account Name 'Test Account').", "status": "pending" },
    { "step_number": 5, "step_instructions": "Click 'Save' and confirm the account appears in the list.", "status": "pending" },
    { "step_number": 6, "step_instructions": "Take a screenshot to confirm the account was created.", "status": "pending" }
  ]
}`

const promptWithoutLogin = `You are a test case authoring agent. You will be given instructions by user on what they want to test.
Create test steps Step 1, Step 2, ... Return in JSON format { step_number: step_instructions: status: }
Provide all the steps in your response.

The first step is always:
1. Open the browser and navigate to the target URL.

Then add the actual test steps the user asked for. Do not include any login steps. This site does not require login.

SAMPLE RESPONSE:
{
  "steps": [
    { "step_number": 1, "step_instructions": "Open a web browser and navigate to the URL: <target URL>", "status": "pending" },
    { "step_number": 2, "step_instructions": "From the home page, click the 'Accounts' tab.", "status": "pending" },
    { "step_number": 3, "step_instructions": "Click 'New' to create a new account.", "status": "pending" },
    { "step_number": 4, "step_instructions": "Fill the form with mock data (e.g., Account Name 'Test Account').", "status": "pending" },
    { "step_number": 5, "step_instructions": "Click 'Save' and confirm the account appears in the list.", "status": "pending" },
    { "step_number": 6, "step_instructions": "Take a screenshot to confirm the account was created.", "status": "pending" }
  ]
}`

// Agent authors checklists from user instructions.
type Agent struct {
	provider      llm.Provider
	log           *logging.Logger
	loginRequired bool
}

// Option configures an Agent.
type Option func(*Agent)

// WithLoginFlow selects the authoring prompt that opens with a login step.
func WithLoginFlow(required bool) Option {
	return func(a *Agent) {
		a.loginRequired = required
	}
}

// New creates an authoring agent.
func New(provider llm.Provider, log *logging.Logger, opts ...Option) *Agent {
	a := &Agent{provider: provider, log: log}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Agent) format() llm.ResponseFormat {
	return llm.ResponseFormat{
		Name: "test_case",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"steps": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"step_number":       map[string]any{"type": "number"},
							"step_instructions": map[string]any{"type": "string"},
							"status":            map[string]any{"type": "string"},
						},
						"required":             []string{"step_number", "step_instructions", "status"},
						"additionalProperties": false,
					},
				},
			},
			"required":             []string{"steps"},
			"additionalProperties": false,
		},
	}
}

// Author generates the checklist for the given instruction. All steps start
// pending.
func (a *Agent) Author(ctx context.Context, instruction string) (types.Checklist, error) {
	a.log.Debugf("authoring test steps: login_required=%t", a.loginRequired)

	prompt := promptWithoutLogin
	if a.loginRequired {
		prompt = promptWithLogin
	}

	raw, err := a.provider.CompleteStructured(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: prompt},
		{Role: llm.RoleUser, Content: instruction},
	}, a.format())
	if err != nil {
		return types.Checklist{}, fmt.Errorf("failed to author test steps: %w", err)
	}

	checklist, err := types.ParseChecklist([]byte(raw))
	if err != nil {
		return types.Checklist{}, fmt.Errorf("authoring agent returned an invalid checklist: %w", err)
	}

	for i := range checklist.Steps {
		if checklist.Steps[i].Status == "" {
			checklist.Steps[i].Status = types.StepPending
		}
	}
	return checklist, nil
}
