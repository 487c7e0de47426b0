// Package friends implements the friend-request workflow as a state machine
// over ordered user pairs. Transitions are emitted as multi-path update
// payloads so both sides of the mirrored relation are always written
// together; the storage layer applies a payload in a single transaction.
package friends

import (
	"errors"

	"github.com/uranetworks7-commits/Chat-pro/internal/chat"
)

var (
	ErrSelfRequest      = errors.New("cannot send a friend request to yourself")
	ErrAlreadyFriends   = errors.New("users are already friends")
	ErrDuplicateRequest = errors.New("friend request already exists")
	ErrNoRequest        = errors.New("no friend request from that user")
	ErrNotFriends       = errors.New("users are not friends")
)

// State is the relation between an ordered pair of users as seen from the
// first user's record.
type State string

const (
	StateNone    State = "none"
	StateSent    State = "sent"
	StatePending State = "pending"
	StateFriends State = "friends"
)

// Op is one write inside a multi-path update.
type Op int

const (
	SetRequest Op = iota
	ClearRequest
	SetFriend
	ClearFriend
)

// Write mutates one field on Owner's record: the friendRequests[Other] or
// friends[Other] entry depending on Op.
type Write struct {
	Op     Op
	Owner  string
	Other  string
	Status chat.RequestStatus // only for SetRequest
}

// Update is a multi-path payload. Every transition emits the writes for both
// sides of the pair in the same payload; applying it partially is not a
// defined operation.
type Update []Write

// StateFor returns the relation state recorded on u toward other.
func StateFor(u *chat.User, other string) State {
	if u.Friends[other] {
		return StateFriends
	}
	switch u.FriendRequests[other] {
	case chat.RequestSent:
		return StateSent
	case chat.RequestPending:
		return StatePending
	}
	return StateNone
}

// Request builds the payload sending a friend request from requester to
// recipient: "sent" on the requester's record mirrored by "pending" on the
// recipient's.
func Request(requester *chat.User, recipient string) (Update, error) {
	if requester.Username == recipient {
		return nil, ErrSelfRequest
	}
	switch StateFor(requester, recipient) {
	case StateFriends:
		return nil, ErrAlreadyFriends
	case StateSent, StatePending:
		return nil, ErrDuplicateRequest
	}

	return Update{
		{Op: SetRequest, Owner: requester.Username, Other: recipient, Status: chat.RequestSent},
		{Op: SetRequest, Owner: recipient, Other: requester.Username, Status: chat.RequestPending},
	}, nil
}

// Accept builds the payload accepting the pending request from requester on
// recipient's record: mutual friends entries plus clearing both request
// entries. The resulting relation is idempotent; re-applying the friend
// writes cannot diverge.
func Accept(recipient *chat.User, requester string) (Update, error) {
	if StateFor(recipient, requester) != StatePending {
		return nil, ErrNoRequest
	}

	return Update{
		{Op: ClearRequest, Owner: recipient.Username, Other: requester},
		{Op: ClearRequest, Owner: requester, Other: recipient.Username},
		{Op: SetFriend, Owner: recipient.Username, Other: requester},
		{Op: SetFriend, Owner: requester, Other: recipient.Username},
	}, nil
}

// Reject builds the payload dropping the pending request from requester:
// both request entries are cleared and the pair returns to none.
func Reject(recipient *chat.User, requester string) (Update, error) {
	if StateFor(recipient, requester) != StatePending {
		return nil, ErrNoRequest
	}

	return Update{
		{Op: ClearRequest, Owner: recipient.Username, Other: requester},
		{Op: ClearRequest, Owner: requester, Other: recipient.Username},
	}, nil
}

// Remove builds the payload dissolving an existing friendship on both sides.
func Remove(u *chat.User, friend string) (Update, error) {
	if StateFor(u, friend) != StateFriends {
		return nil, ErrNotFriends
	}

	return Update{
		{Op: ClearFriend, Owner: u.Username, Other: friend},
		{Op: ClearFriend, Owner: friend, Other: u.Username},
	}, nil
}

// Mirrored verifies the payload invariant: every write on one side of a pair
// is accompanied by the matching write on the other side.
func Mirrored(u Update) bool {
	type half struct {
		op           Op
		owner, other string
	}
	counts := make(map[half]int, len(u))
	for _, w := range u {
		counts[half{w.Op, w.Owner, w.Other}]++
	}
	for _, w := range u {
		// A request payload pairs "sent" with "pending" on the flipped pair,
		// still under the same op.
		if counts[half{w.Op, w.Other, w.Owner}] == 0 {
			return false
		}
	}
	return true
}

// Overview is the friends surface for one user: current friends plus
// incoming and outgoing requests.
type Overview struct {
	Friends  []string `json:"friends"`
	Incoming []string `json:"incomingRequests"`
	Outgoing []string `json:"outgoingRequests"`
}

// BuildOverview splits a user's record into the overview lists.
func BuildOverview(u *chat.User) Overview {
	var o Overview
	for name := range u.Friends {
		if u.Friends[name] {
			o.Friends = append(o.Friends, name)
		}
	}
	for name, status := range u.FriendRequests {
		switch status {
		case chat.RequestPending:
			o.Incoming = append(o.Incoming, name)
		case chat.RequestSent:
			o.Outgoing = append(o.Outgoing, name)
		}
	}
	return o
}
