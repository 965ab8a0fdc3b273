package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/medic/backend/internal/config"
	"github.com/zhouzirui/medic/backend/internal/model/chat"
)

func testConfig() config.AgentConfig {
	return config.AgentConfig{
		APIKey:      "test-key",
		Model:       "test-model",
		BaseURL:     "https://llm.example.test/v1",
		Temperature: 0.7,
		Timeout:     time.Second,
	}
}

func newTestSession(t *testing.T, fake *fakeModel, mutate ...func(*config.AgentConfig)) *Session {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	session, err := NewWithModel(context.Background(), cfg, fake, nil)
	require.NoError(t, err)
	return session
}

func TestNewMissingCredentialFailsFast(t *testing.T) {
	cfg := testConfig()
	cfg.APIKey = ""

	_, err := New(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Equal(t, chat.KindConfiguration, chat.KindOf(err))

	var chatErr *chat.Error
	require.True(t, errors.As(err, &chatErr))
	assert.Equal(t, "MEDIC_API_KEY is not set", chatErr.Message)
	assert.Nil(t, chatErr.Unwrap())
}

func TestReplySendsSystemPromptHistoryAndMessage(t *testing.T) {
	fake := &fakeModel{reply: "Try resting and hydrating."}
	session := newTestSession(t, fake)

	history := []chat.Turn{
		chat.AssistantTurn("Hello"),
		chat.UserTurn("I feel off"),
		chat.AssistantTurn("Tell me more"),
	}
	got, err := session.Reply(context.Background(), history, "I have a headache")
	require.NoError(t, err)
	assert.Equal(t, "Try resting and hydrating.", got)

	input := fake.LastInput()
	require.Len(t, input, 5)
	assert.Equal(t, schema.System, input[0].Role)
	assert.Equal(t, DefaultSystemPrompt, input[0].Content)
	assert.Equal(t, schema.Assistant, input[1].Role)
	assert.Equal(t, schema.User, input[2].Role)
	assert.Equal(t, schema.Assistant, input[3].Role)
	assert.Equal(t, schema.User, input[4].Role)
	assert.Equal(t, "I have a headache", input[4].Content)
}

func TestReplyWithoutHistory(t *testing.T) {
	fake := &fakeModel{reply: "ok"}
	session := newTestSession(t, fake, func(c *config.AgentConfig) { c.SystemPrompt = "be brief" })

	_, err := session.Reply(context.Background(), nil, "hi")
	require.NoError(t, err)

	input := fake.LastInput()
	require.Len(t, input, 2)
	assert.Equal(t, "be brief", input[0].Content)
	assert.Equal(t, "hi", input[1].Content)
}

func TestReplyNetworkError(t *testing.T) {
	fake := &fakeModel{err: errors.New("connection reset by peer")}
	session := newTestSession(t, fake)

	_, err := session.Reply(context.Background(), nil, "hi")
	require.Error(t, err)
	assert.Equal(t, chat.KindNetwork, chat.KindOf(err))
	assert.Equal(t, 1, fake.Calls(), "failed calls must not be retried")
}

func TestReplyTimeout(t *testing.T) {
	fake := &fakeModel{reply: "late", delay: 500 * time.Millisecond}
	session := newTestSession(t, fake, func(c *config.AgentConfig) { c.Timeout = 20 * time.Millisecond })

	_, err := session.Reply(context.Background(), nil, "hi")
	require.Error(t, err)
	assert.Equal(t, chat.KindNetwork, chat.KindOf(err))

	var chatErr *chat.Error
	require.True(t, errors.As(err, &chatErr))
	assert.Equal(t, "model call timed out", chatErr.Message)
}

func TestReplyIgnoresCallerCancellation(t *testing.T) {
	fake := &fakeModel{reply: "still here", delay: 20 * time.Millisecond}
	session := newTestSession(t, fake)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := session.Reply(ctx, nil, "hi")
	require.NoError(t, err)
	assert.Equal(t, "still here", got)
}

func TestReplyEmptyResponse(t *testing.T) {
	fake := &fakeModel{reply: "   "}
	session := newTestSession(t, fake)

	_, err := session.Reply(context.Background(), nil, "hi")
	require.Error(t, err)
	assert.Equal(t, chat.KindEmptyResponse, chat.KindOf(err))
}

func TestStreamDeliversDeltas(t *testing.T) {
	fake := &fakeModel{chunks: []string{"Try ", "resting ", "and hydrating."}}
	session := newTestSession(t, fake, func(c *config.AgentConfig) { c.Stream = true })
	require.True(t, session.StreamingEnabled())

	var deltas []string
	got, err := session.Stream(context.Background(), nil, "I have a headache", func(d string) {
		deltas = append(deltas, d)
	})
	require.NoError(t, err)
	assert.Equal(t, "Try resting and hydrating.", got)
	assert.Equal(t, []string{"Try ", "resting ", "and hydrating."}, deltas)
}

func TestStreamEmpty(t *testing.T) {
	fake := &fakeModel{}
	session := newTestSession(t, fake)

	_, err := session.Stream(context.Background(), nil, "hi", nil)
	require.Error(t, err)
	assert.Equal(t, chat.KindEmptyResponse, chat.KindOf(err))
}
