package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScannerCaseInsensitive(t *testing.T) {
	t.Parallel()

	s := NewScanner([]string{"scam"})
	require.True(t, s.Contains("this is a SCAM"))
	require.True(t, s.Contains("Scam alert"))
	require.False(t, s.Contains("perfectly fine message"))
}

func TestScannerSubstringNoWordBoundary(t *testing.T) {
	t.Parallel()

	// The match is a raw substring check: a blocked word inside an
	// unrelated longer word still hits.
	s := NewScanner([]string{"scam"})
	require.True(t, s.Contains("look at this scampi recipe"))
}

func TestScannerDefaultsAndBlanks(t *testing.T) {
	t.Parallel()

	s := NewScanner(nil)
	require.True(t, s.Contains("what a NOOB move"))

	s = NewScanner([]string{" ", "", "spam"})
	require.True(t, s.Contains("buy my spam"))
	require.False(t, s.Contains("hello there"))
}
