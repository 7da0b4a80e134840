package entities

import "time"

// TranscriptRole represents the speaker of a transcript entry
type TranscriptRole string

const (
	TranscriptRoleUser      TranscriptRole = "user"
	TranscriptRoleAssistant TranscriptRole = "assistant"
)

// TranscriptEntry is one line of the live conversation transcript.
type TranscriptEntry struct {
	Role      TranscriptRole `json:"role"`
	Text      string         `json:"text"`
	Timestamp time.Time      `json:"timestamp"`
}

// Transcript accumulates the conversation shown in the assistant panel.
// Consecutive assistant deltas of one turn are coalesced into the last
// assistant entry instead of creating a new entry per delta.
type Transcript struct {
	entries []TranscriptEntry
}

// AppendUser starts a fresh entry for a completed user utterance.
func (t *Transcript) AppendUser(text string) {
	t.entries = append(t.entries, TranscriptEntry{
		Role:      TranscriptRoleUser,
		Text:      text,
		Timestamp: time.Now(),
	})
}

// AppendAssistantDelta folds an incremental assistant fragment into the last
// entry when that entry is an assistant one, otherwise it opens a new entry.
func (t *Transcript) AppendAssistantDelta(delta string) {
	if n := len(t.entries); n > 0 && t.entries[n-1].Role == TranscriptRoleAssistant {
		t.entries[n-1].Text += delta
		return
	}
	t.entries = append(t.entries, TranscriptEntry{
		Role:      TranscriptRoleAssistant,
		Text:      delta,
		Timestamp: time.Now(),
	})
}

// AppendAssistant adds a standalone assistant entry, bypassing coalescing.
// Used for tool execution notes.
func (t *Transcript) AppendAssistant(text string) {
	t.entries = append(t.entries, TranscriptEntry{
		Role:      TranscriptRoleAssistant,
		Text:      text,
		Timestamp: time.Now(),
	})
}

// Entries returns a copy of the transcript entries in order.
func (t *Transcript) Entries() []TranscriptEntry {
	out := make([]TranscriptEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of entries.
func (t *Transcript) Len() int {
	return len(t.entries)
}

// Reset clears the transcript wholesale.
func (t *Transcript) Reset() {
	t.entries = nil
}

// SessionStats tracks bookkeeping for one active voice session. Values are
// monotonic within a session and reset to zero when a new session starts.
type SessionStats struct {
	Messages        int `json:"messages"`
	TokensUsed      int `json:"tokensUsed"`
	DurationSeconds int `json:"duration"`
}

// AddUsage accumulates token usage reported by a completed response.
func (s *SessionStats) AddUsage(totalTokens int) {
	s.TokensUsed += totalTokens
}

// CountMessage records one completed assistant response.
func (s *SessionStats) CountMessage() {
	s.Messages++
}

// Reset zeroes the stats for a new session.
func (s *SessionStats) Reset() {
	*s = SessionStats{}
}
