package server

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uranetworks7-commits/Chat-pro/internal/chat"
	"github.com/uranetworks7-commits/Chat-pro/internal/session"
)

func TestChatSummary(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		m    chat.Message
		want string
	}{
		{
			name: "plain text",
			m:    chat.Message{Text: "hello there"},
			want: "hello there",
		},
		{
			name: "image message",
			m:    chat.Message{ImageURL: "https://cdn.example/pic.png"},
			want: "Media",
		},
		{
			name: "bare media link",
			m:    chat.Message{Text: "https://cdn.example/clip.mp4"},
			want: "Media",
		},
		{
			name: "media link inside text",
			m:    chat.Message{Text: "look at https://cdn.example/clip.mp4"},
			want: "look at https://cdn.example/clip.mp4",
		},
		{
			name: "generic link",
			m:    chat.Message{Text: "https://example.com/page"},
			want: "https://example.com/page",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			m := tc.m
			require.Equal(t, tc.want, chatSummary(&m))
		})
	}
}

func TestChannelVisible(t *testing.T) {
	t.Parallel()

	sess := session.Session{Username: "alice"}
	require.True(t, channelVisible(chat.PublicChannel, sess))
	require.True(t, channelVisible(chat.PairID("alice", "bob"), sess))
	require.False(t, channelVisible(chat.PairID("bob", "carol"), sess))
	require.False(t, channelVisible("not-a-pair", sess))
}
