package sha256

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasherHashDeterministic(t *testing.T) {
	t.Parallel()

	h := New()
	got, err := h.Hash([]byte("hello world"))
	require.NoError(t, err)
	require.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", got)

	again, err := h.Hash([]byte("hello world"))
	require.NoError(t, err)
	require.Equal(t, got, again)
}

func TestHasherHashReaderMatchesHash(t *testing.T) {
	t.Parallel()

	h := New()
	body := strings.Repeat("Thank you all. ", 5000)
	want, err := h.Hash([]byte(body))
	require.NoError(t, err)
	got, err := h.HashReader(strings.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, want, got)
}
