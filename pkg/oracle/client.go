// Package oracle wraps the stateful computer-use decision oracle: given the
// current visual state of the browser it returns the next UI action, or a
// mark_done call when the task is complete.
package oracle

import (
	"context"
	"fmt"

	"github.com/entrhq/proctor/pkg/config"
	"github.com/entrhq/proctor/pkg/llm/responses"
	"github.com/entrhq/proctor/pkg/logging"
	"github.com/entrhq/proctor/pkg/types"
)

const systemPrompt = `You are a testing agent. You will be given a list of instructions with steps to test a web application.
You will need to navigate the web application and perform the actions described in the instructions.
Try to accomplish the provided task in the simplest way possible.
Once you believe you are done with all the tasks required or you are blocked and cannot progress
(for example, you have tried multiple times to accomplish a task but keep getting errors or blocked),
use the mark_done tool to let the user know you have finished the tasks.
You do not need to authenticate on the user's behalf, the user will authenticate and your flow starts after that.`

// Client drives one conversation with the decision oracle. Transport and
// schema errors propagate to the caller uncaught; the orchestration loop
// owns recovery policy.
type Client struct {
	api             *responses.Client
	log             *logging.Logger
	model           string
	displayWidth    int
	displayHeight   int
	envInstructions string
}

// Option configures a Client.
type Option func(*Client)

// WithModel overrides the decision model.
func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

// WithDisplaySize sets the viewport dimensions advertised to the oracle.
func WithDisplaySize(width, height int) Option {
	return func(c *Client) {
		c.displayWidth = width
		c.displayHeight = height
	}
}

// WithEnvInstructions adds environment-specific guidance to the system
// framing, e.g. platform key-combination differences.
func WithEnvInstructions(instructions string) Option {
	return func(c *Client) {
		c.envInstructions = instructions
	}
}

// New creates a decision oracle client.
func New(api *responses.Client, log *logging.Logger, opts ...Option) *Client {
	c := &Client{
		api:           api,
		log:           log,
		model:         "computer-use-preview",
		displayWidth:  config.DefaultDisplayWidth,
		displayHeight: config.DefaultDisplayHeight,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// tools returns the fixed tool surface: the generic UI-control capability
// and the mark_done function.
func (c *Client) tools() []responses.Tool {
	return []responses.Tool{
		{
			Type:          "computer_use_preview",
			DisplayWidth:  c.displayWidth,
			DisplayHeight: c.displayHeight,
			Environment:   "browser",
		},
		{
			Type:        "function",
			Name:        types.MarkDoneTool,
			Description: "Use this tool to let the user know you have finished the tasks.",
			Parameters:  map[string]any{},
		},
	}
}

func (c *Client) call(ctx context.Context, input []responses.InputItem, previousResponseID string) (*types.Decision, error) {
	req := responses.Request{
		Model:              c.model,
		Input:              input,
		Tools:              c.tools(),
		Reasoning:          &responses.ReasoningParams{GenerateSummary: "concise"},
		Truncation:         "auto",
		ToolChoice:         "required",
		PreviousResponseID: previousResponseID,
	}
	c.log.Debugf("calling decision oracle: model=%s inputs=%d previous=%q", c.model, len(input), previousResponseID)
	return c.api.Create(ctx, req)
}

// Start opens a new conversation with the system framing and the task
// instructions, returning the initial decision.
func (c *Client) Start(ctx context.Context, taskInstructions string) (*types.Decision, error) {
	framing := systemPrompt
	if c.envInstructions != "" {
		framing += "\nEnvironment specific instructions: " + c.envInstructions
	}
	input := []responses.InputItem{
		responses.SystemTurn(framing),
		responses.UserTurn("INSTRUCTIONS:\n" + taskInstructions),
	}
	return c.call(ctx, input, "")
}

// AdvanceInput carries one follow-up round. ScreenshotB64 paired with
// LastCallID reports the prior action's result; UserText appends a new user
// turn. Both, either, or neither may be set — a bare nudge with neither
// screenshot nor call id is valid when the prior round was a plain message.
type AdvanceInput struct {
	ScreenshotB64      string
	PreviousResponseID string
	LastCallID         string
	UserText           string
}

// Advance continues the conversation and returns the next decision.
func (c *Client) Advance(ctx context.Context, in AdvanceInput) (*types.Decision, error) {
	var input []responses.InputItem
	if in.LastCallID != "" {
		input = append(input, responses.ComputerCallOutput(in.LastCallID, responses.ImageDataURL(in.ScreenshotB64)))
	}
	if in.UserText != "" {
		input = append(input, responses.UserTurn(in.UserText))
	}
	if len(input) == 0 {
		return nil, fmt.Errorf("advance requires a call result or user text")
	}
	return c.call(ctx, input, in.PreviousResponseID)
}

// AcknowledgeStop reports the outcome of a mark_done invocation back to the
// oracle and returns its final decision.
func (c *Client) AcknowledgeStop(ctx context.Context, callID, previousResponseID string, payload string) (*types.Decision, error) {
	input := []responses.InputItem{
		responses.FunctionCallOutput(callID, payload),
	}
	return c.call(ctx, input, previousResponseID)
}
