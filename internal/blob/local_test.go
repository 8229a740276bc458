package blob

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalBackendRoundTrip(t *testing.T) {
	dir := t.TempDir()
	b, err := NewLocal(dir)
	require.NoError(t, err)

	content := []byte("Section 301 exclusion text")
	key := Key("csms", "CSMS#65794272", content, ".html")

	uri, err := b.Put(key, content, "text/html")
	require.NoError(t, err)
	require.Equal(t, "local://"+key, uri)
	require.True(t, b.Exists(uri))

	got, err := b.Get(uri)
	require.NoError(t, err)
	require.Equal(t, content, got)

	deleted, err := b.Delete(uri)
	require.NoError(t, err)
	require.True(t, deleted)
	require.False(t, b.Exists(uri))
}

func TestLocalBackendGetMissingReturnsError(t *testing.T) {
	dir := t.TempDir()
	b, err := NewLocal(dir)
	require.NoError(t, err)

	_, err = b.Get("local://does/not/exist.html")
	require.Error(t, err)
}

func TestKeyIsContentAddressedAndStable(t *testing.T) {
	content := []byte("identical content")
	k1 := Key("usitc", "ext-1", content, "csv")
	k2 := Key("usitc", "ext-1", content, "csv")
	require.Equal(t, k1, k2)
	require.Regexp(t, `^usitc/ext-1/[0-9a-f]{16}\.csv$`, k1)
}
