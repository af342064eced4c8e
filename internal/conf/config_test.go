package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	t.Run("rejects non-positive cache bound", func(t *testing.T) {
		t.Parallel()
		s := defaultSettings()
		s.Notification.MaxNotifications = 0
		assert.Error(t, validate(s))
	})

	t.Run("defaults a missing backend timeout", func(t *testing.T) {
		t.Parallel()
		s := defaultSettings()
		s.Backend.Timeout = 0
		require.NoError(t, validate(s))
		assert.Equal(t, 30*time.Second, s.Backend.Timeout)
	})
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	t.Run("inline token wins", func(t *testing.T) {
		t.Parallel()
		b := &BackendSettings{Token: "inline", TokenFile: "/nonexistent"}
		assert.Equal(t, "inline", b.BearerToken())
	})

	t.Run("token file fallback", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "token")
		require.NoError(t, os.WriteFile(path, []byte("  from-file\n"), 0o600))
		b := &BackendSettings{TokenFile: path}
		assert.Equal(t, "from-file", b.BearerToken(), "file contents are trimmed")
	})

	t.Run("unreadable token file means no session", func(t *testing.T) {
		t.Parallel()
		b := &BackendSettings{TokenFile: filepath.Join(t.TempDir(), "missing")}
		assert.Empty(t, b.BearerToken())
	})

	t.Run("nothing configured means no session", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, (&BackendSettings{}).BearerToken())
	})
}

func TestWriteDefaultConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "baseurl:")
	assert.Contains(t, string(data), "maxnotifications: 1000")
}

func TestSetTestSettings(t *testing.T) {
	s := defaultSettings()
	s.User.ID = "farmer-test"
	SetTestSettings(s)

	assert.Equal(t, "farmer-test", Setting().User.ID)
}
