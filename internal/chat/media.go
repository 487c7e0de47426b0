package chat

import (
	"net/url"
	"regexp"
	"strings"
)

// MediaType classifies an URL found in a message by file extension only.
// There is no content-type probing: a .mp4 link is a video whatever the
// server behind it actually returns.
type MediaType int

const (
	MediaNone MediaType = iota
	MediaImage
	MediaVideo
	MediaAudio
	MediaLink
)

func (m MediaType) String() string {
	switch m {
	case MediaImage:
		return "image"
	case MediaVideo:
		return "video"
	case MediaAudio:
		return "audio"
	case MediaLink:
		return "link"
	}
	return "none"
}

var mediaExtensions = map[string]MediaType{
	"jpg": MediaImage, "jpeg": MediaImage, "png": MediaImage, "gif": MediaImage, "webp": MediaImage,
	"mp4": MediaVideo, "webm": MediaVideo, "mov": MediaVideo,
	"mp3": MediaAudio, "wav": MediaAudio, "ogg": MediaAudio, "m4a": MediaAudio,
}

var urlPattern = regexp.MustCompile(`https?://\S+`)

// ClassifyMedia classifies a single URL. Non-http(s) strings and unparsable
// URLs are MediaNone; URLs without a known media extension are MediaLink.
// The query string does not take part in extension matching.
func ClassifyMedia(raw string) MediaType {
	u, err := url.Parse(raw)
	if err != nil {
		return MediaNone
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return MediaNone
	}

	path := u.Path
	if i := strings.LastIndex(path, "."); i >= 0 {
		ext := strings.ToLower(path[i+1:])
		if mt, ok := mediaExtensions[ext]; ok {
			return mt
		}
	}
	return MediaLink
}

// MediaRef is one URL found inside message text, with its classification.
type MediaRef struct {
	URL  string
	Type MediaType
}

// ExtractMedia finds all http(s) URLs embedded in message text and classifies
// each. Renderers use this to decide between inline media and a generic link;
// the generic-link path only triggers when no media extension matched.
func ExtractMedia(text string) []MediaRef {
	matches := urlPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	refs := make([]MediaRef, 0, len(matches))
	for _, m := range matches {
		if mt := ClassifyMedia(m); mt != MediaNone {
			refs = append(refs, MediaRef{URL: m, Type: mt})
		}
	}
	return refs
}
