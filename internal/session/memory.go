package session

import "strings"

var acknowledgments = []string{
	"Thank you.",
	"Got it, thanks.",
	"Okay, understood.",
	"Thanks for walking me through that.",
	"Alright, noted.",
	"Good, let's keep going.",
}

// Memory remembers interviewer phrasing within a session so follow-ups are
// not repeated word for word. The controller serializes access.
type Memory struct {
	said map[string]int
}

// NewMemory creates an empty memory.
func NewMemory() *Memory {
	return &Memory{said: make(map[string]int)}
}

// Said reports whether text was already spoken in this session.
func (m *Memory) Said(text string) bool {
	return m.said[normalize(text)] > 0
}

// Remember records text as spoken.
func (m *Memory) Remember(text string) {
	if k := normalize(text); k != "" {
		m.said[k]++
	}
}

// Acknowledge returns candidate unless it is empty or was already said, in
// which case the least used stock acknowledgment replaces it. The result is
// remembered.
func (m *Memory) Acknowledge(candidate string) string {
	candidate = strings.TrimSpace(candidate)
	if candidate != "" && !m.Said(candidate) {
		m.Remember(candidate)
		return candidate
	}
	best := acknowledgments[0]
	for _, a := range acknowledgments {
		if m.said[normalize(a)] < m.said[normalize(best)] {
			best = a
		}
	}
	m.Remember(best)
	return best
}

// Reset forgets everything.
func (m *Memory) Reset() {
	m.said = make(map[string]int)
}

func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
