package chat

import (
	"sync"
	"time"

	"github.com/zhouzirui/medic/backend/internal/model/chat"
)

// Store is the ordered turn log of one session. The first turn, when a
// greeting is configured, is that assistant greeting.
type Store struct {
	mu            sync.Mutex
	greeting      string
	resetGreeting string
	turns         []chat.Turn
}

// NewStore seeds a store with greeting. resetGreeting seeds the store after
// Clear; it falls back to greeting when empty. An empty greeting leaves the
// seed empty.
func NewStore(greeting, resetGreeting string) *Store {
	if resetGreeting == "" {
		resetGreeting = greeting
	}
	s := &Store{greeting: greeting, resetGreeting: resetGreeting}
	s.turns = seed(greeting)
	return s
}

func seed(greeting string) []chat.Turn {
	turns := make([]chat.Turn, 0, 16)
	if greeting != "" {
		turns = append(turns, chat.AssistantTurn(greeting))
	}
	return turns
}

// Append adds a well-formed turn to the end of the log.
func (s *Store) Append(turn chat.Turn) error {
	if !turn.WellFormed() {
		return chat.NewError(chat.KindValidation, "malformed turn", nil)
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	s.turns = append(s.turns, turn)
	s.mu.Unlock()
	return nil
}

// All returns a copy of the turns in chronological order.
func (s *Store) All() []chat.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]chat.Turn, len(s.turns))
	copy(copied, s.turns)
	return copied
}

// Len returns the number of stored turns.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// Clear restores the reset seed.
func (s *Store) Clear() {
	s.mu.Lock()
	s.turns = seed(s.resetGreeting)
	s.mu.Unlock()
}
