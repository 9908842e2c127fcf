package session

// TitleLength is the number of characters of the first user message kept as
// a session title.
const TitleLength = 20

// Message represents a single chat message
type Message struct {
	Text  string `json:"text"`
	IsBot bool   `json:"isBot"`
}

// Session represents a saved conversation. ID is the creation time in Unix
// milliseconds and never changes.
type Session struct {
	ID      int64     `json:"id"`
	Title   string    `json:"title"`
	History []Message `json:"history"`
}

// List is the saved session list, most recently updated first.
type List []Session

// Title derives a session title from a transcript: the first TitleLength
// characters of the first user message.
func Title(history []Message) string {
	for _, msg := range history {
		if msg.IsBot {
			continue
		}
		runes := []rune(msg.Text)
		if len(runes) > TitleLength {
			runes = runes[:TitleLength]
		}
		return string(runes)
	}
	return ""
}

// Upsert returns a new list with s at the front and any previous entry with
// the same ID removed.
func (l List) Upsert(s Session) List {
	out := make(List, 0, len(l)+1)
	out = append(out, s)
	for _, existing := range l {
		if existing.ID != s.ID {
			out = append(out, existing)
		}
	}
	return out
}

// Remove returns a new list without the entry with the given ID.
func (l List) Remove(id int64) List {
	out := make(List, 0, len(l))
	for _, existing := range l {
		if existing.ID != id {
			out = append(out, existing)
		}
	}
	return out
}

// Find returns the entry with the given ID.
func (l List) Find(id int64) (Session, bool) {
	for _, s := range l {
		if s.ID == id {
			return s, true
		}
	}
	return Session{}, false
}

// Clone returns a deep copy so callers can't alias message slices.
func (l List) Clone() List {
	if l == nil {
		return nil
	}
	out := make(List, len(l))
	for i, s := range l {
		out[i] = s.Clone()
	}
	return out
}

// Clone returns a copy of s with its own history slice.
func (s Session) Clone() Session {
	s.History = cloneMessages(s.History)
	return s
}

func cloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}
