package notes

import "strings"

// DirectiveMarker starts a memory directive line.
const DirectiveMarker = "SAVE_MEMORY:"

// Extraction is the result of scanning one reply for directives.
type Extraction struct {
	// Visible is the reply with every directive line removed.
	Visible string
	// Memories holds the non-empty directive payloads in reply order.
	Memories []string
}

// Extract splits a model reply into its visible text and directive payloads.
//
// Directive lines are removed even when their payload is blank. When at least
// one line was removed the remaining text is trimmed; otherwise the reply is
// returned untouched.
func Extract(reply string) Extraction {
	if !strings.Contains(reply, DirectiveMarker) {
		return Extraction{Visible: reply}
	}

	lines := strings.Split(reply, "\n")
	kept := make([]string, 0, len(lines))
	var memories []string
	for _, line := range lines {
		payload, found := strings.CutPrefix(line, DirectiveMarker)
		if !found {
			kept = append(kept, line)
			continue
		}
		if payload = strings.TrimSpace(payload); payload != "" {
			memories = append(memories, payload)
		}
	}
	if len(kept) == len(lines) {
		return Extraction{Visible: reply}
	}

	return Extraction{
		Visible:  strings.TrimSpace(strings.Join(kept, "\n")),
		Memories: memories,
	}
}
