package topic

// Topic is a sidebar shortcut that pre-fills the chat input.
type Topic struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Icon   string `json:"icon,omitempty"`
	Prompt string `json:"prompt"`
}

// Seed provides the built-in quick topics.
func Seed() []Topic {
	return []Topic{
		{
			ID:     "headache",
			Label:  "Headache",
			Icon:   "🤕",
			Prompt: "I've had a headache since this morning. What could be causing it and what can I do?",
		},
		{
			ID:     "cold-flu",
			Label:  "Cold or flu",
			Icon:   "🤧",
			Prompt: "How can I tell whether I have a cold or the flu?",
		},
		{
			ID:     "sleep",
			Label:  "Sleep",
			Icon:   "😴",
			Prompt: "I keep waking up tired even after a full night's sleep. Any ideas why?",
		},
		{
			ID:     "stress",
			Label:  "Stress & anxiety",
			Icon:   "😟",
			Prompt: "I've been feeling stressed and anxious lately. What are some ways to cope?",
		},
		{
			ID:     "nutrition",
			Label:  "Nutrition",
			Icon:   "🥗",
			Prompt: "What does a balanced diet look like for an adult?",
		},
		{
			ID:     "fitness",
			Label:  "Exercise",
			Icon:   "🏃",
			Prompt: "How much exercise should I be getting each week?",
		},
	}
}
