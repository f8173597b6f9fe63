package prompt

import (
	"encoding/json"
	"strings"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversation turn in provider wire order.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	deepSearchInstruction = "Deep Search mode: analyze the question in more depth, structure your answer, and if necessary ask 1-2 clarifying questions before concluding. Do not invent external sources."
	reasonInstruction     = "Reason mode: give a structured answer and add only the key points of the reasoning (no detailed chain of thought)."

	filesBlockPrefix = "Here are the provided files:\n"
)

// ParseHistory decodes a raw history payload. Anything that does not parse as
// an ordered role/content sequence is kept as a single user turn so user input
// is never silently dropped.
func ParseHistory(raw string) []Message {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	var history []Message
	if err := json.Unmarshal([]byte(trimmed), &history); err != nil {
		return []Message{{Role: RoleUser, Content: trimmed}}
	}

	out := make([]Message, 0, len(history))
	for _, m := range history {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		if m.Role != RoleUser && m.Role != RoleAssistant && m.Role != RoleSystem {
			m.Role = RoleUser
		}
		out = append(out, m)
	}
	return out
}

// ModeInstructions returns one instruction paragraph per enabled mode flag.
func ModeInstructions(deepSearch, reason bool) []string {
	var out []string
	if deepSearch {
		out = append(out, deepSearchInstruction)
	}
	if reason {
		out = append(out, reasonInstruction)
	}
	return out
}

// MergeFileBlock folds extracted attachment text into the history: appended to
// the trailing user turn when there is one, otherwise added as a new user turn.
func MergeFileBlock(history []Message, fileBlock string) []Message {
	if strings.TrimSpace(fileBlock) == "" {
		return history
	}
	block := filesBlockPrefix + fileBlock
	if n := len(history); n > 0 && history[n-1].Role == RoleUser {
		out := make([]Message, n)
		copy(out, history)
		out[n-1].Content += "\n\n" + block
		return out
	}
	return append(append([]Message{}, history...), Message{Role: RoleUser, Content: block})
}
