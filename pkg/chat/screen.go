// Package chat orchestrates a send: it appends the user message, runs the
// flow, and records the reply or the failure in the conversation store.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/flowchat/pkg/conversation"
	"github.com/papercomputeco/flowchat/pkg/flow"
)

// ErrorPrefix starts every bot message that reports a failed send.
const ErrorPrefix = "Sorry, there was an error: "

var (
	// ErrBusy is returned by Begin while a request is in flight.
	ErrBusy = errors.New("a request is already in flight")

	// ErrEmptyInput is returned by Begin for blank text.
	ErrEmptyInput = errors.New("message text is empty")
)

// State is the request state of a Screen.
type State int

const (
	Idle State = iota
	Awaiting
)

func (s State) String() string {
	if s == Awaiting {
		return "awaiting"
	}
	return "idle"
}

// Runner executes a flow and returns the reply text. *flow.Client satisfies it.
type Runner interface {
	Run(ctx context.Context, flowID, workspaceID, inputText string) (string, error)
}

// Config holds the fixed flow coordinates used for every send.
type Config struct {
	FlowID      string
	WorkspaceID string
}

// Request is an in-flight send returned by Begin.
type Request struct {
	ConversationID string
	Text           string
	ImageSrc       string

	// FirstExchange is true when the conversation had no messages before
	// this send; a successful reply then renames the conversation.
	FirstExchange bool

	// position is the index of the user message in the transcript.
	position int
}

// inTranscript reports whether conv still holds the user message of r.
// It does not once the conversation was cleared while r was pending.
func (r *Request) inTranscript(conv conversation.Conversation) bool {
	if r.position >= len(conv.Messages) {
		return false
	}
	msg := conv.Messages[r.position]
	return msg.Sender == conversation.User && msg.Text == r.Text
}

// Result is the outcome of Execute.
type Result struct {
	Request *Request
	Reply   string
	Err     error
}

// Screen owns the conversation store and the Idle/Awaiting state. It is not
// safe for concurrent use: Begin, Complete and the conversation intents must
// be called from a single goroutine (the UI event loop). Execute touches no
// state and may run anywhere.
type Screen struct {
	config Config
	runner Runner
	logger *zap.Logger

	store conversation.Store
	state State
}

// New creates a Screen. Both flow coordinates are required.
func New(runner Runner, config Config, store conversation.Store, logger *zap.Logger) (*Screen, error) {
	if runner == nil {
		return nil, flow.ConfigurationError{Field: "flow client"}
	}
	if config.FlowID == "" {
		return nil, flow.ConfigurationError{Field: "flow id"}
	}
	if config.WorkspaceID == "" {
		return nil, flow.ConfigurationError{Field: "workspace id"}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Screen{
		config: config,
		runner: runner,
		logger: logger,
		store:  store,
	}, nil
}

// Store returns the current conversation store.
func (s *Screen) Store() conversation.Store {
	return s.store
}

// State returns the current request state.
func (s *Screen) State() State {
	return s.state
}

// Loading reports whether a request is in flight.
func (s *Screen) Loading() bool {
	return s.state == Awaiting
}

// Begin moves Idle to Awaiting. It creates and activates a conversation when
// none is active, then appends the user message before any network call.
func (s *Screen) Begin(text, imageSrc string) (*Request, error) {
	if s.state == Awaiting {
		return nil, ErrBusy
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	active, ok := s.store.Active()
	if !ok {
		var id string
		s.store, id = s.store.Create()
		active, _ = s.store.Get(id)
		s.logger.Debug("created conversation for send", zap.String("conversation_id", id))
	}

	req := &Request{
		ConversationID: active.ID,
		Text:           text,
		ImageSrc:       imageSrc,
		FirstExchange:  len(active.Messages) == 0,
		position:       len(active.Messages),
	}

	s.store = s.store.Append(active.ID, conversation.Message{
		Text:     text,
		Sender:   conversation.User,
		ImageSrc: imageSrc,
	})
	s.state = Awaiting

	return req, nil
}

// Execute runs the flow for req. The image reference is not sent.
func (s *Screen) Execute(ctx context.Context, req *Request) (result Result) {
	result.Request = req

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("flow runner panicked", zap.Any("panic", r))
			result.Reply = ""
			result.Err = fmt.Errorf("unexpected failure: %v", r)
		}
	}()

	result.Reply, result.Err = s.runner.Run(ctx, s.config.FlowID, s.config.WorkspaceID, req.Text)
	return result
}

// Complete records the outcome of Execute and returns to Idle. A result for
// a conversation that no longer exists is dropped.
func (s *Screen) Complete(result Result) {
	defer func() { s.state = Idle }()

	req := result.Request
	if req == nil {
		return
	}

	conv, ok := s.store.Get(req.ConversationID)
	if !ok {
		s.logger.Info("dropping reply for removed conversation",
			zap.String("conversation_id", req.ConversationID),
			zap.Bool("failed", result.Err != nil),
		)
		return
	}
	if !req.inTranscript(conv) {
		s.logger.Info("dropping reply for cleared conversation",
			zap.String("conversation_id", req.ConversationID),
			zap.Bool("failed", result.Err != nil),
		)
		return
	}

	if result.Err != nil {
		s.logger.Error("failed to send message",
			zap.String("conversation_id", req.ConversationID),
			zap.Error(result.Err),
		)
		s.store = s.store.Append(req.ConversationID, conversation.Message{
			Text:   ErrorPrefix + result.Err.Error(),
			Sender: conversation.Bot,
		})
		return
	}

	s.store = s.store.Append(req.ConversationID, conversation.Message{
		Text:   result.Reply,
		Sender: conversation.Bot,
	})
	if req.FirstExchange {
		s.store = s.store.Rename(req.ConversationID, conversation.TitleFrom(req.Text))
	}
}

// Send runs a full exchange synchronously and returns the flow error, if
// any. The failure is also recorded in the transcript.
func (s *Screen) Send(ctx context.Context, text, imageSrc string) error {
	req, err := s.Begin(text, imageSrc)
	if err != nil {
		return err
	}

	result := Result{Request: req}
	defer func() { s.Complete(result) }()

	result = s.Execute(ctx, req)
	return result.Err
}

// NewConversation creates and activates an empty conversation.
func (s *Screen) NewConversation() string {
	var id string
	s.store, id = s.store.Create()
	return id
}

// SelectConversation activates id if it exists.
func (s *Screen) SelectConversation(id string) {
	s.store = s.store.Select(id)
}

// ClearConversation empties id's transcript.
func (s *Screen) ClearConversation(id string) {
	s.store = s.store.Clear(id)
}

// DeleteConversation removes id. An in-flight reply for it is dropped.
func (s *Screen) DeleteConversation(id string) {
	s.store = s.store.Delete(id)
}
