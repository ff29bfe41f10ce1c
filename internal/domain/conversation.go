package domain

// Turn is a single persisted conversation turn. The first turn for a user is
// always the system prompt; turns are append-only and replayed in order.
type Turn struct {
	PK      string
	SK      string
	UserID  string
	Role    string
	Content string
	TTL     int64
}

// ConversationMeta stores aggregate per-user conversation state.
type ConversationMeta struct {
	PK           string
	SK           string
	UserID       string
	LastActivity string
	Turns        int
	TTL          int64
}
