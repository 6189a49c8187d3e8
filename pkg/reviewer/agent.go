// Package reviewer maintains a run's checklist through a stateful
// conversation with a visual-assessment oracle. Submissions are processed
// strictly one at a time so the oracle never receives overlapping turns for
// the same conversation.
package reviewer

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/entrhq/proctor/pkg/llm/responses"
	"github.com/entrhq/proctor/pkg/logging"
	"github.com/entrhq/proctor/pkg/types"
)

const reviewPrompt = `You are a test script review agent. You will be given a set of test cases and screenshots of the test results.

Reply with an updated steps array in JSON:
{
  "steps": [
    {
      "step_number": 1,
      "status": "pass | fail | pending",
      "step_reasoning": "explanation"
    },
    ...
  ]
}

Do not add or remove any steps. Do not modify any step that already has a "Pass" status or "Fail" status unless you are certain it is now changed. Keep 'pending' steps as needed.
Keep the same step_number order.`

// checklistSchema is the strict output schema every review response must
// satisfy.
func checklistSchema() *responses.OutputFormat {
	return &responses.OutputFormat{
		Type: "json_schema",
		Name: "test_script_output",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"steps": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"step_number":    map[string]any{"type": "number"},
							"status":         map[string]any{"type": "string", "enum": []string{"pending", "Pass", "Fail"}},
							"step_reasoning": map[string]any{"type": "string"},
						},
						"required":             []string{"step_number", "status", "step_reasoning"},
						"additionalProperties": false,
					},
				},
			},
			"required":             []string{"steps"},
			"additionalProperties": false,
		},
	}
}

// Result is the outcome of one queued review task.
type Result struct {
	// Checklist is the refreshed checklist as JSON, nil on error.
	Checklist []byte
	Err       error
}

type task struct {
	ctx         context.Context
	screenshot  []byte
	contextText string
	result      chan Result
}

// Agent reviews screenshots against the run's checklist. One background
// worker drains the task queue in arrival order, so at most one oracle call
// is in flight per agent.
type Agent struct {
	api   *responses.Client
	store EvidenceStore
	log   *logging.Logger
	model string

	// chainResponses threads every response id into the next call,
	// keeping full conversation context. Fixed at construction.
	chainResponses bool

	tasks     chan task
	closeOnce sync.Once

	mu                 sync.Mutex
	previousResponseID string
	checklist          *types.Checklist
	bucket             string
}

// Option configures an Agent.
type Option func(*Agent)

// WithModel overrides the review model.
func WithModel(model string) Option {
	return func(a *Agent) {
		a.model = model
	}
}

// WithChaining controls whether each response becomes the previous handle
// for the next call. Chaining on works best and is the default.
func WithChaining(enabled bool) Option {
	return func(a *Agent) {
		a.chainResponses = enabled
	}
}

// New creates an agent and starts its queue worker.
func New(api *responses.Client, store EvidenceStore, log *logging.Logger, opts ...Option) *Agent {
	a := &Agent{
		api:            api,
		store:          store,
		log:            log,
		model:          "gpt-4o",
		chainResponses: true,
		tasks:          make(chan task, 32),
	}
	for _, opt := range opts {
		opt(a)
	}
	go a.worker()
	return a
}

// Initialize creates the checklist from the authored instructions, opens the
// review conversation, and allocates the run's evidence bucket. Must be
// called once before Submit.
func (a *Agent) Initialize(ctx context.Context, instructions string) (types.Checklist, error) {
	a.log.Debugf("initializing review conversation")

	decision, err := a.api.Create(ctx, responses.Request{
		Model: a.model,
		Input: []responses.InputItem{
			responses.SystemTurn(reviewPrompt),
			responses.UserParts(responses.ContentPart{Type: "input_text", Text: "Instructions: " + instructions}),
		},
		Text: &responses.TextParams{Format: checklistSchema()},
	})
	if err != nil {
		return types.Checklist{}, fmt.Errorf("failed to initialize review agent: %w", err)
	}

	checklist, err := types.ParseChecklist([]byte(decision.OutputText()))
	if err != nil {
		return types.Checklist{}, fmt.Errorf("review agent returned an invalid checklist: %w", err)
	}

	bucket, err := a.store.CreateBucket()
	if err != nil {
		return types.Checklist{}, err
	}
	a.log.Debugf("evidence bucket allocated: %s", bucket)

	a.mu.Lock()
	a.previousResponseID = decision.ID
	a.checklist = &checklist
	a.bucket = bucket
	a.mu.Unlock()

	return checklist.Clone(), nil
}

// Submit enqueues a review of the given screenshot and returns a channel
// that receives the task's result once it has been processed. Tasks run in
// strict arrival order; a failing task rejects only its own result.
func (a *Agent) Submit(ctx context.Context, screenshot []byte, contextText string) <-chan Result {
	result := make(chan Result, 1)
	a.tasks <- task{ctx: ctx, screenshot: screenshot, contextText: contextText, result: result}
	return result
}

// Checklist returns a snapshot of the agent's current checklist.
func (a *Agent) Checklist() types.Checklist {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.checklist == nil {
		return types.Checklist{}
	}
	return a.checklist.Clone()
}

// Bucket returns the run's evidence bucket id, or "" before Initialize.
func (a *Agent) Bucket() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bucket
}

// Close stops the queue worker after draining already-enqueued tasks.
// Submit must not be called after Close.
func (a *Agent) Close() {
	a.closeOnce.Do(func() {
		close(a.tasks)
	})
}

func (a *Agent) worker() {
	for t := range a.tasks {
		t.result <- a.process(t)
	}
}

func (a *Agent) process(t task) Result {
	a.mu.Lock()
	previousID := a.previousResponseID
	bucket := a.bucket
	var previous *types.Checklist
	if a.checklist != nil {
		prev := a.checklist.Clone()
		previous = &prev
	}
	a.mu.Unlock()

	if previous == nil {
		return Result{Err: fmt.Errorf("review agent not initialized")}
	}

	parts := make([]responses.ContentPart, 0, 2)
	if t.contextText != "" {
		parts = append(parts, responses.ContentPart{Type: "input_text", Text: "Context: " + t.contextText})
	}
	parts = append(parts, responses.ContentPart{
		Type:     "input_image",
		ImageURL: responses.ImageDataURL(encodeImage(t.screenshot)),
		Detail:   "high",
	})

	decision, err := a.api.Create(t.ctx, responses.Request{
		Model: a.model,
		Input: []responses.InputItem{
			responses.SystemTurn(reviewPrompt),
			responses.UserParts(parts...),
		},
		PreviousResponseID: previousID,
		Text:               &responses.TextParams{Format: checklistSchema()},
	})
	if err != nil {
		return Result{Err: fmt.Errorf("review call failed: %w", err)}
	}

	refreshed, err := types.ParseChecklist([]byte(decision.OutputText()))
	if err != nil {
		return Result{Err: fmt.Errorf("review returned an invalid checklist: %w", err)}
	}
	if !previous.SameShape(&refreshed) {
		return Result{Err: fmt.Errorf("review changed the checklist's step set")}
	}

	a.applyEvidence(previous, &refreshed, bucket, t.screenshot)

	// Refreshed statuses overwrite reasoning but the authored instructions
	// never change; carry them forward.
	for i := range refreshed.Steps {
		if refreshed.Steps[i].Instructions == "" {
			if old := previous.Step(refreshed.Steps[i].Number); old != nil {
				refreshed.Steps[i].Instructions = old.Instructions
			}
		}
	}

	a.mu.Lock()
	a.checklist = &refreshed
	if a.chainResponses {
		a.previousResponseID = decision.ID
	}
	a.mu.Unlock()

	raw, err := refreshed.JSON()
	if err != nil {
		return Result{Err: err}
	}
	return Result{Checklist: raw}
}

func encodeImage(png []byte) string {
	return base64.StdEncoding.EncodeToString(png)
}

// applyEvidence persists the round's screenshot when at least one step
// transitioned from pending to a terminal status, attaching the reference
// to every transitioning step and carrying prior references forward
// everywhere else.
func (a *Agent) applyEvidence(previous, refreshed *types.Checklist, bucket string, screenshot []byte) {
	transitioned := func(number int) bool {
		old := previous.Step(number)
		now := refreshed.Step(number)
		return old != nil && now != nil && old.Status == types.StepPending && now.Status.Terminal()
	}

	anyTransition := false
	for _, step := range refreshed.Steps {
		if transitioned(step.Number) {
			anyTransition = true
			break
		}
	}

	ref := ""
	if anyTransition {
		saved, err := a.store.SaveImage(bucket, screenshot)
		if err != nil {
			a.log.Errorf("failed to save evidence image: %v", err)
		} else {
			ref = saved
			a.log.Debugf("evidence saved: %s", ref)
		}
	}

	for i := range refreshed.Steps {
		step := &refreshed.Steps[i]
		if ref != "" && transitioned(step.Number) {
			step.ImagePath = ref
			continue
		}
		if old := previous.Step(step.Number); old != nil && old.ImagePath != "" {
			step.ImagePath = old.ImagePath
		}
	}
}
