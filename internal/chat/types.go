package chat

import (
	"sort"
	"strings"
	"time"
)

// Role is the sender role recorded on users and stamped on every message at send time.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleDeveloper Role = "developer"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleDeveloper, RoleSystem:
		return true
	}
	return false
}

// CanModerate reports whether the role may delete foreign messages and block users.
func (r Role) CanModerate() bool {
	return r == RoleModerator || r == RoleDeveloper
}

// RequestStatus is the per-side state of a friend request.
// The requester's record holds "sent", the recipient's holds "pending".
type RequestStatus string

const (
	RequestSent    RequestStatus = "sent"
	RequestPending RequestStatus = "pending"
)

// User is a chat account. Username is the immutable identity, CustomName the
// display name shown next to messages.
type User struct {
	Username        string                   `json:"username"`
	CustomName      string                   `json:"customName"`
	Role            Role                     `json:"role"`
	ProfileImageURL string                   `json:"profileImageUrl,omitempty"`
	Friends         map[string]bool          `json:"friends,omitempty"`
	FriendRequests  map[string]RequestStatus `json:"friendRequests,omitempty"`
	IsBlocked       bool                     `json:"isBlocked,omitempty"`
	BlockExpires    int64                    `json:"blockExpires,omitempty"`
}

// BlockedAt reports whether the user's block is in force at the given instant.
// Expiry is lazy: a stale isBlocked flag with a past blockExpires counts as unblocked.
func (u *User) BlockedAt(now time.Time) bool {
	return u.IsBlocked && u.BlockExpires > now.UnixNano()/int64(time.Millisecond)
}

// ReplyRef is the quoted-message snapshot embedded in a reply.
type ReplyRef struct {
	MessageID  string `json:"messageId"`
	SenderName string `json:"senderName"`
	Text       string `json:"text,omitempty"`
	ImageURL   string `json:"imageUrl,omitempty"`
}

// Message is a single chat message. Exactly one of Text and ImageURL is set.
// Timestamp is server clock epoch milliseconds.
type Message struct {
	ID               string    `json:"id"`
	Text             string    `json:"text,omitempty"`
	ImageURL         string    `json:"imageUrl,omitempty"`
	SenderID         string    `json:"senderId"`
	SenderName       string    `json:"senderName"`
	SenderProfileURL string    `json:"senderProfileUrl,omitempty"`
	Role             Role      `json:"role"`
	Timestamp        int64     `json:"timestamp"`
	ReplyTo          *ReplyRef `json:"replyTo,omitempty"`
}

// PublicChannel is the channel name of the shared room. Private channels use
// the pair id of the two participants.
const PublicChannel = "public"

// PairID derives the deterministic private-channel id for two usernames.
// The id is order-independent: PairID(a, b) == PairID(b, a).
func PairID(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair[0] + "_" + pair[1]
}

// SplitPairID returns the two participants encoded in a pair id.
func SplitPairID(id string) (string, string, bool) {
	i := strings.Index(id, "_")
	if i <= 0 || i == len(id)-1 {
		return "", "", false
	}
	return id[:i], id[i+1:], true
}

// OtherParticipant returns the participant of a pair id that is not self.
func OtherParticipant(id, self string) (string, bool) {
	a, b, ok := SplitPairID(id)
	if !ok {
		return "", false
	}
	switch self {
	case a:
		return b, true
	case b:
		return a, true
	}
	return "", false
}

// Participant is the per-user slice of private chat metadata.
type Participant struct {
	CustomName      string `json:"customName"`
	ProfileImageURL string `json:"profileImageUrl"`
}

// PrivateChatMetadata is the conversation summary kept per pair id.
type PrivateChatMetadata struct {
	LastMessage  string                 `json:"lastMessage"`
	Timestamp    int64                  `json:"timestamp"`
	Participants map[string]Participant `json:"participants"`
}

// Report is an append-only abuse report referencing a message snapshot.
type Report struct {
	MessageID    string `json:"messageId"`
	Reporter     string `json:"reporter"`
	ReportedUser string `json:"reportedUser"`
	Message      string `json:"message"`
	Reason       string `json:"reason"`
	Timestamp    int64  `json:"timestamp"`
}

// Millis converts t to epoch milliseconds, the timestamp unit used on the wire.
func Millis(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}
