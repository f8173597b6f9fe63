package prompt

import "unicode/utf8"

const (
	// systemTurnMaxChars caps any single system turn; system turns are
	// truncated rather than dropped.
	systemTurnMaxChars = 6000

	// TruncationMarker is appended to a turn that had to be cut to fit.
	TruncationMarker = "\n...\n[content truncated]"
)

// Build assembles the bounded message sequence for a completion call: base
// system prompt, an optional system turn carrying the mode instructions, then
// as much recent history as the budget allows. maxChars is a character-count
// proxy for the provider's token limit.
//
// Guarantees: system turns are always present (truncated, never dropped),
// surviving history keeps its chronological order, and the total output size
// stays within maxChars apart from the degenerate case where the system turns
// alone exceed it.
func Build(systemPrompt string, modeInstructions []string, history []Message, maxChars int) []Message {
	out := []Message{{Role: RoleSystem, Content: truncate(systemPrompt, systemTurnMaxChars, "")}}
	if len(modeInstructions) > 0 {
		joined := ""
		for i, ins := range modeInstructions {
			if i > 0 {
				joined += "\n"
			}
			joined += ins
		}
		out = append(out, Message{Role: RoleSystem, Content: truncate(joined, systemTurnMaxChars, "")})
	}

	remaining := maxChars
	for _, m := range out {
		remaining -= utf8.RuneCountInString(m.Content)
	}
	if remaining < 0 {
		remaining = 0
	}

	// Walk history newest to oldest; older turns are sacrificed first. The
	// boundary turn is truncated only when nothing newer fit, so the user
	// always gets at least a visible tail of the conversation.
	markerLen := utf8.RuneCountInString(TruncationMarker)
	var kept []Message
	for i := len(history) - 1; i >= 0; i-- {
		m := history[i]
		size := utf8.RuneCountInString(m.Content)
		if size <= remaining {
			kept = append(kept, m)
			remaining -= size
			continue
		}
		if len(kept) == 0 && remaining > 0 {
			marker := TruncationMarker
			if remaining <= markerLen {
				// Too tight for the marker; keep whatever raw tail fits.
				marker = ""
			}
			m.Content = truncate(m.Content, remaining, marker)
			kept = append(kept, m)
		}
		break
	}

	// kept is newest-first; restore chronological order.
	for i := len(kept) - 1; i >= 0; i-- {
		out = append(out, kept[i])
	}
	return out
}

// truncate cuts s to maxRunes characters including the marker, on rune
// boundaries.
func truncate(s string, maxRunes int, marker string) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	markerLen := utf8.RuneCountInString(marker)
	keep := maxRunes - markerLen
	if keep < 0 {
		keep = 0
	}
	runes := []rune(s)
	if keep > len(runes) {
		keep = len(runes)
	}
	return string(runes[:keep]) + marker
}
