// Package server exposes test runs over a websocket: clients initiate runs,
// override verdicts, and send mid-run messages; the server streams run
// events back.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/entrhq/proctor/pkg/logging"
	"github.com/entrhq/proctor/pkg/types"
)

// Frame is the wire envelope in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Client-initiated event names.
const (
	eventTestCaseInitiated = "testcaseinitiated"
	eventTestCaseUpdate    = "testcaseupdate"
	eventUserMessage       = "message"
)

// StartRequest is the payload of a testcaseinitiated frame.
type StartRequest struct {
	TestCase      string `json:"testCase"`
	URL           string `json:"url"`
	UserName      string `json:"userName"`
	Password      string `json:"password"`
	UserInfo      string `json:"userInfo"`
	LoginRequired *bool  `json:"loginRequired"`
}

// Run is one live test execution the server controls.
type Run interface {
	Run(ctx context.Context, taskInstructions, url string) (types.RunStatus, error)
	Override(status string) bool
	ResumeWithMessage(ctx context.Context, message string) error
}

// Author turns user instructions into a checklist.
type Author interface {
	Author(ctx context.Context, instruction string) (types.Checklist, error)
}

// Initializer primes the verification conversation with the authored steps.
type Initializer interface {
	Initialize(ctx context.Context, instructions string) (types.Checklist, error)
}

// Deps wires the server to the rest of the system. NewSession builds a run
// bound to the connection's emitter; NewAuthor builds the authoring agent
// for the requested login flow.
type Deps struct {
	NewAuthor  func(loginRequired bool) Author
	NewSession func(emitter types.Emitter) (Run, Initializer, error)
}

// Server upgrades websocket connections and drives one run per connection.
type Server struct {
	deps     Deps
	log      *logging.Logger
	upgrader websocket.Upgrader
}

// New creates a server.
func New(deps Deps, log *logging.Logger) *Server {
	return &Server{
		deps: deps,
		log:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the server's HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorf("failed to upgrade websocket connection: %v", err)
		return
	}
	s.log.Infof("websocket connection established: %s", r.RemoteAddr)

	client := &client{conn: conn, server: s, log: s.log}
	client.readLoop()
}

// client is one websocket connection and the run it controls.
type client struct {
	conn   *websocket.Conn
	server *Server
	log    *logging.Logger

	writeMu sync.Mutex

	mu  sync.Mutex
	run Run
}

func (c *client) currentRun() Run {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.run
}

func (c *client) setRun(run Run) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.run = run
}

// Emit implements types.Emitter over the connection.
func (c *client) Emit(event types.RunEvent) {
	var data json.RawMessage
	switch event.Name {
	case types.EventMessage:
		encoded, err := json.Marshal(event.Text)
		if err != nil {
			return
		}
		data = encoded
	default:
		data = event.Checklist
	}
	c.send(Frame{Event: string(event.Name), Data: data})
}

func (c *client) send(frame Frame) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(frame); err != nil {
		c.log.Errorf("failed to write frame: %v", err)
	}
}

func (c *client) sendMessage(text string) {
	c.Emit(types.NewMessageEvent(text))
}

func (c *client) readLoop() {
	defer func() {
		_ = c.conn.Close()
		c.log.Infof("websocket connection closed")
	}()

	for {
		var frame Frame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Errorf("websocket read error: %v", err)
			}
			return
		}
		c.dispatch(frame)
	}
}

func (c *client) dispatch(frame Frame) {
	switch frame.Event {
	case eventTestCaseInitiated:
		var req StartRequest
		if err := json.Unmarshal(frame.Data, &req); err != nil {
			c.log.Errorf("invalid start request: %v", err)
			c.sendMessage("Error initiating test case.")
			return
		}
		go c.startRun(req)

	case eventTestCaseUpdate:
		status, err := decodeString(frame.Data)
		if err != nil {
			c.log.Errorf("invalid status update: %v", err)
			return
		}
		c.handleOverride(status)

	case eventUserMessage:
		text, err := decodeString(frame.Data)
		if err != nil {
			c.log.Errorf("invalid user message: %v", err)
			return
		}
		go c.handleUserMessage(text)

	default:
		c.log.Warnf("unknown event: %s", frame.Event)
	}
}

// startRun authors the checklist, primes the verification agent, and drives
// the run to completion.
func (c *client) startRun(req StartRequest) {
	ctx := context.Background()
	c.sendMessage("Received test case - working on creating test script...")

	loginRequired := true
	if req.LoginRequired != nil {
		loginRequired = *req.LoginRequired
	}

	instruction := fmt.Sprintf("%s URL: %s User Name: %s Password: *********\n USER INFO:\n%s",
		req.TestCase, req.URL, req.UserName, req.UserInfo)

	checklist, err := c.server.deps.NewAuthor(loginRequired).Author(ctx, instruction)
	if err != nil {
		c.log.Errorf("failed to author test case: %v", err)
		c.sendMessage("Error initiating test case.")
		return
	}
	checklistJSON, err := checklist.JSON()
	if err != nil {
		c.log.Errorf("failed to encode checklist: %v", err)
		c.sendMessage("Error initiating test case.")
		return
	}

	run, init, err := c.server.deps.NewSession(c)
	if err != nil {
		c.log.Errorf("failed to create run: %v", err)
		c.sendMessage("Error initiating test case.")
		return
	}
	c.setRun(run)

	if _, err := init.Initialize(ctx, "INSTRUCTIONS:\n"+string(checklistJSON)); err != nil {
		c.log.Errorf("failed to initialize review agent: %v", err)
		c.sendMessage("Error initiating test case.")
		return
	}
	c.sendMessage("Test script review agent initialized.")

	c.Emit(types.NewTestCasesEvent(checklistJSON))
	c.sendMessage("Task steps created.")

	if _, err := run.Run(ctx, checklistScript(checklist), req.URL); err != nil {
		c.log.Errorf("error during run: %v", err)
	}
}

// handleOverride applies an external verdict to the live run.
func (c *client) handleOverride(status string) {
	c.log.Debugf("received testcaseupdate with status: %s", status)
	run := c.currentRun()
	if run == nil {
		c.log.Warnf("status update with no run in progress")
		return
	}
	if !run.Override(status) {
		c.log.Warnf("ignoring unknown status: %s", status)
	}
}

// handleUserMessage resumes the conversation with the user's text.
func (c *client) handleUserMessage(text string) {
	c.log.Debugf("server received message: %s", text)
	run := c.currentRun()
	if run == nil {
		c.log.Warnf("user message with no run in progress")
		return
	}
	if err := run.ResumeWithMessage(context.Background(), text); err != nil {
		c.log.Errorf("failed to resume with message: %v", err)
	}
}

// checklistScript renders the authored steps as the oracle's task text.
func checklistScript(checklist types.Checklist) string {
	var sb strings.Builder
	for _, step := range checklist.Steps {
		fmt.Fprintf(&sb, "Step %d: %s\n", step.Number, step.Instructions)
	}
	return sb.String()
}

func decodeString(data json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s, nil
	}
	var obj struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return "", fmt.Errorf("expected string payload: %w", err)
	}
	if obj.Status != "" {
		return obj.Status, nil
	}
	return obj.Message, nil
}
