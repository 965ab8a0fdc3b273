package urgency

import (
	"regexp"
	"strings"
)

// Label 表示助手回复中的紧急程度。
type Label string

const (
	None      Label = "none"
	Wellness  Label = "wellness"
	Routine   Label = "routine"
	Urgent    Label = "urgent"
	Emergency Label = "emergency"
)

var rank = map[Label]int{
	None:      0,
	Wellness:  1,
	Routine:   2,
	Urgent:    3,
	Emergency: 4,
}

// Decision is the outcome of classifying one exchange.
type Decision struct {
	Label   Label
	RedFlag bool
}

// Legend emoji are the strongest evidence, then headings that open a line,
// then advice phrases. Only the strongest tier that matches is consulted.
var (
	legendEmoji = map[Label]string{
		Emergency: "🚨",
		Urgent:    "⚠",
		Routine:   "📅",
		Wellness:  "🌱",
	}

	headings = map[Label]*regexp.Regexp{
		Emergency: heading("emergency"),
		Urgent:    heading("urgent"),
		Routine:   heading("routine"),
		Wellness:  heading("wellness"),
	}

	advicePhrases = map[Label][]string{
		Emergency: {"seek immediate care", "call emergency services", "go to the emergency room"},
		Urgent:    {"within 24-48 hours", "within 24 to 48 hours"},
		Routine:   {"schedule an appointment"},
	}
)

// heading matches word at the start of a line, after optional markdown list,
// quote, heading or bold markers, followed by a colon.
func heading(word string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^[\s>#*\-]*(?:\*\*)?` + word + `(?:\*\*)?\s*:`)
}

var redFlagPhrases = []string{
	"chest pain",
	"chest tightness",
	"difficulty breathing",
	"trouble breathing",
	"can't breathe",
	"cannot breathe",
	"shortness of breath",
	"sudden weakness",
	"face drooping",
	"slurred speech",
	"heavy bleeding",
	"bleeding heavily",
	"severe pain",
	"unconscious",
	"passed out",
	"suicidal",
}

var negators = map[string]bool{
	"no":      true,
	"not":     true,
	"never":   true,
	"without": true,
	"nor":     true,
	"denies":  true,
	"deny":    true,
	"don't":   true,
	"doesn't": true,
	"didn't":  true,
	"haven't": true,
	"hasn't":  true,
	"isn't":   true,
	"aren't":  true,
	"wasn't":  true,
	"weren't": true,
}

// negationWindow is how many words before a phrase may negate it.
const negationWindow = 4

// Classify returns the urgency label the reply commits to.
func Classify(reply string) Decision {
	normalized := normalize(reply)
	if strings.TrimSpace(normalized) == "" {
		return Decision{Label: None}
	}

	if label := strongest(func(l Label) bool {
		e, ok := legendEmoji[l]
		return ok && strings.Contains(reply, e)
	}); label != None {
		return Decision{Label: label}
	}
	if label := strongest(func(l Label) bool {
		re, ok := headings[l]
		return ok && re.MatchString(normalized)
	}); label != None {
		return Decision{Label: label}
	}
	return Decision{Label: strongest(func(l Label) bool {
		for _, phrase := range advicePhrases[l] {
			if mentions(normalized, phrase) {
				return true
			}
		}
		return false
	})}
}

func strongest(match func(Label) bool) Label {
	best := None
	for label := range rank {
		if label != None && rank[label] > rank[best] && match(label) {
			best = label
		}
	}
	return best
}

// RedFlags reports whether text mentions an emergency symptom that is not
// negated, as in "no chest pain" or "I don't have chest pain".
func RedFlags(text string) bool {
	normalized := normalize(text)
	for _, phrase := range redFlagPhrases {
		if mentions(normalized, phrase) {
			return true
		}
	}
	return false
}

// mentions reports whether phrase occurs in text at least once without a
// negation shortly before it in the same clause.
func mentions(text, phrase string) bool {
	offset := 0
	for {
		i := strings.Index(text[offset:], phrase)
		if i < 0 {
			return false
		}
		start := offset + i
		if !negated(text[:start]) {
			return true
		}
		offset = start + len(phrase)
	}
}

func negated(prefix string) bool {
	if cut := strings.LastIndexAny(prefix, ".!?;:\n"); cut >= 0 {
		prefix = prefix[cut+1:]
	}
	words := strings.FieldsFunc(prefix, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})
	for i := len(words) - 1; i >= 0; i-- {
		if words[i] == "but" || words[i] == "however" || words[i] == "although" {
			words = words[i+1:]
			break
		}
	}
	if len(words) > negationWindow {
		words = words[len(words)-negationWindow:]
	}
	for _, w := range words {
		if negators[w] {
			return true
		}
	}
	return false
}

func normalize(text string) string {
	return strings.ReplaceAll(strings.ToLower(text), "’", "'")
}

// Analyze 综合用户提问与助手回复给出紧急程度。回复未标注时，用户描述的危险症状会提升为 Emergency。
func Analyze(userText, reply string) Decision {
	decision := Classify(reply)
	decision.RedFlag = RedFlags(userText)
	if decision.Label == None && decision.RedFlag {
		decision.Label = Emergency
	}
	return decision
}
