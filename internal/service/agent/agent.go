package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/zhouzirui/medic/backend/internal/config"
	"github.com/zhouzirui/medic/backend/internal/model/chat"
)

const instrumentationName = "github.com/zhouzirui/medic/backend/internal/service/agent"

// Session issues completion requests to the hosted model. The endpoint is
// treated as stateless: every call carries the system prompt, the supplied
// history and the new user message. Session holds no per-conversation state
// and is safe to share between conversations.
type Session struct {
	chain        compose.Runnable[map[string]any, *schema.Message]
	model        string
	systemPrompt string
	timeout      time.Duration
	stream       bool
	logger       *slog.Logger

	tracer   trace.Tracer
	failures metric.Int64Counter
	duration metric.Float64Histogram
}

// New validates cfg and builds a Session backed by the ark chat model.
// Configuration problems are reported before any network traffic.
func New(ctx context.Context, cfg config.AgentConfig, logger *slog.Logger) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, chat.NewError(chat.KindConfiguration, "failed to create chat model", err)
	}

	return NewWithModel(ctx, cfg, chatModel, logger)
}

// NewWithModel builds a Session around an existing chat model.
func NewWithModel(ctx context.Context, cfg config.AgentConfig, chatModel model.ChatModel, logger *slog.Logger) (*Session, error) {
	if chatModel == nil {
		return nil, chat.NewError(chat.KindConfiguration, "chat model is required", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	meter := otel.Meter(instrumentationName)
	failures, err := meter.Int64Counter("medic.reply.errors",
		metric.WithDescription("Failed model calls by error kind"))
	if err != nil {
		return nil, fmt.Errorf("failed to create reply error counter: %w", err)
	}
	duration, err := meter.Float64Histogram("medic.reply.duration",
		metric.WithDescription("Model call latency"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("failed to create reply duration histogram: %w", err)
	}

	return &Session{
		chain:        runnable,
		model:        cfg.Model,
		systemPrompt: systemPrompt(cfg.SystemPrompt),
		timeout:      timeout,
		stream:       cfg.Stream,
		logger:       logger.With("component", "agent"),
		tracer:       otel.Tracer(instrumentationName),
		failures:     failures,
		duration:     duration,
	}, nil
}

// StreamingEnabled 指示是否开启流式输出。
func (s *Session) StreamingEnabled() bool {
	return s.stream
}

// Model returns the configured model identifier.
func (s *Session) Model() string {
	return s.model
}

// Reply sends one completion request and returns the assistant text.
func (s *Session) Reply(ctx context.Context, history []chat.Turn, message string) (string, error) {
	ctx, cancel, span, started := s.begin(ctx, "agent.reply", len(history))
	defer cancel()
	defer span.End()

	response, err := s.chain.Invoke(ctx, s.buildChainInput(history, message))
	if err != nil {
		return "", s.fail(ctx, span, started, networkError(ctx, err))
	}

	if response == nil || strings.TrimSpace(response.Content) == "" {
		return "", s.fail(ctx, span, started, chat.NewError(chat.KindEmptyResponse, "no response received from assistant", nil))
	}

	s.succeed(ctx, span, started, len(response.Content))
	return response.Content, nil
}

// Stream is Reply with incremental delivery: onDelta receives each non-empty
// chunk as it arrives and the concatenated text is returned at the end.
func (s *Session) Stream(ctx context.Context, history []chat.Turn, message string, onDelta func(string)) (string, error) {
	ctx, cancel, span, started := s.begin(ctx, "agent.stream", len(history))
	defer cancel()
	defer span.End()

	stream, err := s.chain.Stream(ctx, s.buildChainInput(history, message))
	if err != nil {
		return "", s.fail(ctx, span, started, networkError(ctx, err))
	}
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", s.fail(ctx, span, started, networkError(ctx, recvErr))
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if chunk.Content != "" && onDelta != nil {
			onDelta(chunk.Content)
		}
	}

	if len(chunks) == 0 {
		return "", s.fail(ctx, span, started, chat.NewError(chat.KindEmptyResponse, "no response received from assistant", nil))
	}

	response, err := schema.ConcatMessages(chunks)
	if err != nil {
		return "", s.fail(ctx, span, started, chat.NewError(chat.KindEmptyResponse, "malformed streamed response", err))
	}
	if response == nil || strings.TrimSpace(response.Content) == "" {
		return "", s.fail(ctx, span, started, chat.NewError(chat.KindEmptyResponse, "no response received from assistant", nil))
	}

	s.succeed(ctx, span, started, len(response.Content))
	return response.Content, nil
}

// begin detaches the call from the caller's cancellation; only the timeout
// bounds a request once it is issued.
func (s *Session) begin(ctx context.Context, name string, historyLen int) (context.Context, context.CancelFunc, trace.Span, time.Time) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	ctx, span := s.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("llm.model", s.model),
		attribute.Int("chat.history_len", historyLen),
	))
	return ctx, cancel, span, time.Now()
}

func (s *Session) succeed(ctx context.Context, span trace.Span, started time.Time, length int) {
	elapsed := time.Since(started)
	s.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("outcome", "ok")))
	span.SetAttributes(attribute.Int("llm.response_len", length))
	s.logger.Info("generated response", "model", s.model, "length", length, "elapsed", elapsed)
}

func (s *Session) fail(ctx context.Context, span trace.Span, started time.Time, err *chat.Error) error {
	elapsed := time.Since(started)
	kind := attribute.String("kind", string(err.Kind))
	s.failures.Add(ctx, 1, metric.WithAttributes(kind))
	s.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("outcome", "error")))
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Message)
	s.logger.Warn("model call failed", "model", s.model, "kind", err.Kind, "elapsed", elapsed, "error", err)
	return err
}

func networkError(ctx context.Context, err error) *chat.Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return chat.NewError(chat.KindNetwork, "model call timed out", err)
	}
	return chat.NewError(chat.KindNetwork, "model call failed", err)
}

func (s *Session) buildChainInput(history []chat.Turn, message string) map[string]any {
	return map[string]any{
		"system":  s.systemPrompt,
		"history": buildHistoryMessages(history),
		"query":   message,
	}
}

func buildHistoryMessages(turns []chat.Turn) []*schema.Message {
	if len(turns) == 0 {
		return nil
	}

	history := make([]*schema.Message, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(turn.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(turn.Content, nil))
		}
	}

	return history
}
