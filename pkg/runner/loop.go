package runner

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"time"

	"github.com/entrhq/proctor/pkg/browser"
	"github.com/entrhq/proctor/pkg/logging"
	"github.com/entrhq/proctor/pkg/oracle"
	"github.com/entrhq/proctor/pkg/reviewer"
	"github.com/entrhq/proctor/pkg/types"
)

// settleDelay is the pause after every executed action, giving the UI time
// to react before the follow-up screenshot.
var settleDelay = time.Second

// screenshotAttempts bounds the post-action capture retries.
const screenshotAttempts = 3

// DecisionOracle is the loop's view of the decision conversation.
type DecisionOracle interface {
	Start(ctx context.Context, taskInstructions string) (*types.Decision, error)
	Advance(ctx context.Context, in oracle.AdvanceInput) (*types.Decision, error)
	AcknowledgeStop(ctx context.Context, callID, previousResponseID, payload string) (*types.Decision, error)
}

// Reviewer is the loop's view of the verification agent.
type Reviewer interface {
	Submit(ctx context.Context, screenshot []byte, contextText string) <-chan reviewer.Result
}

// ActionExecutor applies one oracle action to a page.
type ActionExecutor interface {
	Execute(ctx context.Context, page browser.Page, action types.Action)
}

// Loop runs decision rounds against a page until the oracle stops, a safety
// check fires, or an external verdict lands on the session.
type Loop struct {
	oracle   DecisionOracle
	reviewer Reviewer
	exec     ActionExecutor
	emitter  types.Emitter
	log      *logging.Logger
	session  *Session

	displayWidth  int
	displayHeight int

	reviews sync.WaitGroup
}

// NewLoop creates a loop bound to a session.
func NewLoop(o DecisionOracle, rev Reviewer, exec ActionExecutor, emitter types.Emitter, log *logging.Logger, session *Session, width, height int) *Loop {
	return &Loop{
		oracle:        o,
		reviewer:      rev,
		exec:          exec,
		emitter:       emitter,
		log:           log,
		session:       session,
		displayWidth:  width,
		displayHeight: height,
	}
}

// Run processes decisions starting from the given one and returns the final
// decision of the conversation. It returns once the run reaches a terminal
// status or the oracle yields neither an action nor a message.
func (l *Loop) Run(ctx context.Context, page browser.Page, tabs browser.Tabs, decision *types.Decision) (*types.Decision, error) {
	defer l.reviews.Wait()

	for {
		switch l.session.Status() {
		case types.StatusFail:
			l.log.Debugf("test case failed, exiting the loop")
			return decision, nil
		case types.StatusPass:
			l.log.Debugf("test case passed, exiting the loop")
			return decision, nil
		}

		if done := decision.MarkDone(); done != nil {
			final, err := l.oracle.AcknowledgeStop(ctx, done.CallID, decision.ID, `{"status":"done"}`)
			l.emitter.Emit(types.NewMessageEvent("✅ Test case finished."))
			l.session.SetStatus(types.StatusPass)
			if err != nil {
				l.log.Errorf("failed to acknowledge stop: %v", err)
				return decision, nil
			}
			return final, nil
		}

		l.session.SetPreviousResponseID(decision.ID)

		call := decision.ComputerCall()
		if call == nil {
			if msg := decision.FirstMessage(); msg != nil {
				l.log.Debugf("round produced a plain message, nudging the oracle to continue")
				next, err := l.oracle.Advance(ctx, oracle.AdvanceInput{
					PreviousResponseID: decision.ID,
					UserText:           "continue",
				})
				if err != nil {
					return decision, err
				}
				decision = next
				continue
			}
			l.log.Debugf("round produced neither an action nor a message, returning")
			return decision, nil
		}

		for _, summary := range decision.ReasoningSummaries() {
			l.emitter.Emit(types.NewMessageEvent(summary))
			l.log.Debugf("oracle reasoning: %s", summary)
		}

		if check := call.FirstSafetyCheck(); check != nil {
			l.log.Errorf("safety check detected: %s", check.Message)
			l.emitter.Emit(types.NewMessageEvent("Safety check detected: " + check.Message))
			l.emitter.Emit(types.NewMessageEvent("Test case failed. Exiting the computer use loop."))
			l.session.SetStatus(types.StatusFail)
			return decision, nil
		}

		l.session.SetLastCallID(call.CallID)

		// State-changing actions trigger a checklist review against the
		// pre-action state, off the hot path.
		if call.Action.IsClickFamily() {
			if png, err := page.Screenshot(); err == nil {
				l.Review(ctx, png)
			} else {
				l.log.Errorf("failed to capture pre-action screenshot: %v", err)
			}
		}

		l.exec.Execute(ctx, page, call.Action)

		select {
		case <-time.After(settleDelay):
		case <-ctx.Done():
			return decision, ctx.Err()
		}

		if tabs != nil && tabs.PageCount() > 1 && l.session.FollowTabOnce() {
			l.log.Debugf("new tab detected, switching to it")
			next, err := l.followTab(ctx, tabs, decision.ID, call.CallID)
			if err != nil {
				return decision, err
			}
			page = tabs.LatestPage()
			decision = next
			continue
		}

		png, err := browser.CaptureWithRetry(ctx, page, l.log, screenshotAttempts)
		if err != nil {
			return decision, err
		}
		next, err := l.oracle.Advance(ctx, oracle.AdvanceInput{
			ScreenshotB64:      base64.StdEncoding.EncodeToString(png),
			PreviousResponseID: decision.ID,
			LastCallID:         call.CallID,
		})
		if err != nil {
			return decision, err
		}
		decision = next
	}
}

// followTab moves the conversation onto the newest page: the viewport is
// normalized and its screenshot reported as the action's result.
func (l *Loop) followTab(ctx context.Context, tabs browser.Tabs, previousResponseID, callID string) (*types.Decision, error) {
	page := tabs.LatestPage()
	if err := page.SetViewportSize(l.displayWidth, l.displayHeight); err != nil {
		l.log.Errorf("failed to reset viewport on new tab: %v", err)
	}
	png, err := page.Screenshot()
	if err != nil {
		return nil, err
	}
	return l.oracle.Advance(ctx, oracle.AdvanceInput{
		ScreenshotB64:      base64.StdEncoding.EncodeToString(png),
		PreviousResponseID: previousResponseID,
		LastCallID:         callID,
	})
}

// Review submits a screenshot to the verification agent without blocking
// the caller and emits the refreshed checklist when it lands.
func (l *Loop) Review(ctx context.Context, png []byte) {
	results := l.reviewer.Submit(ctx, png, "")
	l.reviews.Add(1)
	go func() {
		defer l.reviews.Done()
		result := <-results
		if result.Err != nil {
			l.log.Errorf("error during test script review: %v", result.Err)
			l.emitter.Emit(types.NewChecklistUpdateEvent(json.RawMessage(`{"error":"Review processing failed."}`)))
			return
		}
		l.emitter.Emit(types.NewChecklistUpdateEvent(result.Checklist))
	}()
}
