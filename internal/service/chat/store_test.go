package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/medic/backend/internal/model/chat"
)

func TestStoreSeedsGreeting(t *testing.T) {
	store := NewStore("Hello", "")
	turns := store.All()
	require.Len(t, turns, 1)
	assert.Equal(t, chat.RoleAssistant, turns[0].Role)
	assert.Equal(t, "Hello", turns[0].Content)
}

func TestStoreEmptySeed(t *testing.T) {
	store := NewStore("", "")
	assert.Equal(t, 0, store.Len())
	store.Clear()
	assert.Equal(t, 0, store.Len())
}

func TestStoreAppendKeepsOrderAndRejectsMalformed(t *testing.T) {
	store := NewStore("Hello", "")
	require.NoError(t, store.Append(chat.UserTurn("first")))
	require.NoError(t, store.Append(chat.AssistantTurn("second")))

	err := store.Append(chat.Turn{Role: chat.RoleUser, Content: "  "})
	require.Error(t, err)
	assert.Equal(t, chat.KindValidation, chat.KindOf(err))

	turns := store.All()
	require.Len(t, turns, 3)
	assert.Equal(t, "first", turns[1].Content)
	assert.Equal(t, "second", turns[2].Content)
	assert.False(t, turns[2].CreatedAt.IsZero())
}

func TestStoreAllReturnsCopy(t *testing.T) {
	store := NewStore("Hello", "")
	turns := store.All()
	turns[0].Content = "mutated"
	assert.Equal(t, "Hello", store.All()[0].Content)
}

func TestStoreClearRestoresResetSeed(t *testing.T) {
	store := NewStore("Hello", "How can I help?")
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(chat.UserTurn("q")))
	}

	store.Clear()
	turns := store.All()
	require.Len(t, turns, 1)
	assert.Equal(t, "How can I help?", turns[0].Content)
}
