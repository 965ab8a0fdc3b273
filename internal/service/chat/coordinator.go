package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/zhouzirui/medic/backend/internal/analysis/urgency"
	"github.com/zhouzirui/medic/backend/internal/model/chat"
)

// Replier produces the assistant text for a new user message.
type Replier interface {
	Reply(ctx context.Context, history []chat.Turn, message string) (string, error)
}

// StreamReplier is a Replier that can also deliver the reply incrementally.
type StreamReplier interface {
	Replier
	Stream(ctx context.Context, history []chat.Turn, message string, onDelta func(string)) (string, error)
}

// Event is emitted after every submission and reset so the UI can
// re-render.
type Event struct {
	SessionID string
	State     chat.State
	Turns     int
	Err       error
}

// Options tunes a Coordinator.
type Options struct {
	// RetainContext sends the prior conversation with every message.
	// When false only the new message is sent.
	RetainContext bool
	// HistoryLimit caps the number of prior turns sent; 0 means no cap.
	HistoryLimit int
	OnChange     func(Event)
	Logger       *slog.Logger
}

var turnCounter = sync.OnceValue(func() metric.Int64Counter {
	counter, err := otel.Meter("github.com/zhouzirui/medic/backend/internal/service/chat").
		Int64Counter("medic.turns", metric.WithDescription("Turns appended to conversations"))
	if err != nil {
		return noop.Int64Counter{}
	}
	return counter
})

// Coordinator owns the turn-taking of one session: it appends the user
// turn, asks the agent for a reply and appends the reply on success. Only
// one submission may be outstanding at a time.
type Coordinator struct {
	sessionID string
	store     *Store
	agent     Replier
	opts      Options
	logger    *slog.Logger

	busy  atomic.Bool
	mu    sync.Mutex
	state chat.State
}

// NewCoordinator binds a store and an agent for one session.
func NewCoordinator(sessionID string, store *Store, agent Replier, opts Options) *Coordinator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		sessionID: sessionID,
		store:     store,
		agent:     agent,
		opts:      opts,
		logger:    logger.With("session", sessionID),
		state:     chat.StateIdle,
	}
}

// Store exposes the session's turn log.
func (c *Coordinator) Store() *Store {
	return c.store
}

// State returns the current turn-taking state.
func (c *Coordinator) State() chat.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Submit sends userText to the agent and returns the appended assistant
// turn. A failed reply leaves the user turn in place.
func (c *Coordinator) Submit(ctx context.Context, userText string) (chat.Turn, error) {
	return c.submit(ctx, userText, func(history []chat.Turn, text string) (string, error) {
		return c.agent.Reply(ctx, history, text)
	})
}

// SubmitStream is Submit with incremental delivery through onDelta. Agents
// that cannot stream deliver the whole reply as a single delta.
func (c *Coordinator) SubmitStream(ctx context.Context, userText string, onDelta func(string)) (chat.Turn, error) {
	streamer, ok := c.agent.(StreamReplier)
	return c.submit(ctx, userText, func(history []chat.Turn, text string) (string, error) {
		if ok {
			return streamer.Stream(ctx, history, text, onDelta)
		}
		reply, err := c.agent.Reply(ctx, history, text)
		if err == nil && onDelta != nil {
			onDelta(reply)
		}
		return reply, err
	})
}

func (c *Coordinator) submit(ctx context.Context, userText string, call func([]chat.Turn, string) (string, error)) (chat.Turn, error) {
	text := strings.TrimSpace(userText)
	if text == "" {
		return chat.Turn{}, chat.ErrEmptyMessage
	}

	if !c.busy.CompareAndSwap(false, true) {
		return chat.Turn{}, chat.ErrBusy
	}
	defer c.busy.Store(false)

	history := c.contextFor()
	if err := c.store.Append(chat.UserTurn(text)); err != nil {
		return chat.Turn{}, err
	}
	c.countTurn(ctx, chat.RoleUser)
	c.setState(chat.StateAwaitingReply)

	reply, err := call(history, text)
	if err != nil {
		if chat.KindOf(err) == chat.KindUnknown {
			err = chat.NewError(chat.KindNetwork, "model call failed", err)
		}
		c.logger.Warn("reply failed", "kind", chat.KindOf(err), "error", err)
		c.finish(chat.StateIdleWithError, err)
		return chat.Turn{}, err
	}

	assistant := chat.AssistantTurn(reply)
	decision := urgency.Analyze(text, reply)
	if decision.Label != urgency.None {
		assistant.Urgency = string(decision.Label)
	}
	if decision.RedFlag {
		c.logger.Warn("red-flag symptom reported", "urgency", decision.Label)
	}
	if err := c.store.Append(assistant); err != nil {
		err = chat.NewError(chat.KindEmptyResponse, "no response received from assistant", err)
		c.finish(chat.StateIdleWithError, err)
		return chat.Turn{}, err
	}
	c.countTurn(ctx, chat.RoleAssistant)

	c.finish(chat.StateIdle, nil)
	return assistant, nil
}

// Reset clears the conversation back to its seed.
func (c *Coordinator) Reset() error {
	if !c.busy.CompareAndSwap(false, true) {
		return chat.ErrBusy
	}
	defer c.busy.Store(false)

	c.store.Clear()
	c.logger.Info("conversation reset")
	c.finish(chat.StateIdle, nil)
	return nil
}

func (c *Coordinator) contextFor() []chat.Turn {
	if !c.opts.RetainContext {
		return nil
	}
	turns := c.store.All()
	if limit := c.opts.HistoryLimit; limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns
}

func (c *Coordinator) setState(state chat.State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

func (c *Coordinator) finish(state chat.State, err error) {
	c.setState(state)
	if c.opts.OnChange != nil {
		c.opts.OnChange(Event{SessionID: c.sessionID, State: state, Turns: c.store.Len(), Err: err})
	}
}

func (c *Coordinator) countTurn(ctx context.Context, role chat.Role) {
	turnCounter().Add(ctx, 1, metric.WithAttributes(attribute.String("role", string(role))))
}
