package chat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyMedia(t *testing.T) {
	t.Parallel()

	cases := []struct {
		url      string
		expected MediaType
	}{
		{"http://example.com/pic.jpg", MediaImage},
		{"https://example.com/pic.JPEG", MediaImage},
		{"https://example.com/clip.mp4", MediaVideo},
		{"https://example.com/clip.webm?quality=hd", MediaVideo},
		{"https://example.com/song.mp3", MediaAudio},
		{"https://example.com/song.m4a", MediaAudio},
		{"https://example.com/page.html", MediaLink},
		{"https://example.com/", MediaLink},
		{"ftp://example.com/pic.jpg", MediaNone},
		{"not a url at all", MediaNone},
	}

	for _, c := range cases {
		require.Equal(t, c.expected, ClassifyMedia(c.url), "url: %s", c.url)
	}
}

func TestExtractMediaVideoNotGenericLink(t *testing.T) {
	t.Parallel()

	refs := ExtractMedia("visit http://evil.example/x.mp4")
	require.Len(t, refs, 1)
	require.Equal(t, MediaVideo, refs[0].Type)
	require.Equal(t, "http://evil.example/x.mp4", refs[0].URL)
}

func TestExtractMediaGenericLinkOnlyWithoutExtension(t *testing.T) {
	t.Parallel()

	refs := ExtractMedia("see https://example.com/docs and https://example.com/a.png")
	require.Len(t, refs, 2)
	require.Equal(t, MediaLink, refs[0].Type)
	require.Equal(t, MediaImage, refs[1].Type)
}

func TestExtractMediaNoURLs(t *testing.T) {
	t.Parallel()

	require.Nil(t, ExtractMedia("just plain text"))
}
