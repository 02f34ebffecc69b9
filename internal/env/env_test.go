package env

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetters(t *testing.T) {
	t.Setenv("ENV_TEST_STR", "main")
	t.Setenv("ENV_TEST_INT", "42")
	t.Setenv("ENV_TEST_BAD_INT", "x")
	t.Setenv("ENV_TEST_BOOL", "true")
	t.Setenv("ENV_TEST_DUR", "90s")

	assert.Equal(t, "main", GetString("ENV_TEST_STR", "other"))
	assert.Equal(t, "other", GetString("ENV_TEST_MISSING", "other"))
	assert.Equal(t, 42, GetInt("ENV_TEST_INT", 1))
	assert.Equal(t, 1, GetInt("ENV_TEST_BAD_INT", 1))
	assert.True(t, GetBool("ENV_TEST_BOOL", false))
	assert.False(t, GetBool("ENV_TEST_MISSING", false))
	assert.Equal(t, 90*time.Second, GetDuration("ENV_TEST_DUR", time.Second))
	assert.Equal(t, time.Second, GetDuration("ENV_TEST_MISSING", time.Second))
}

func TestLoadDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("ENV_TEST_FILE_A=fromfile\nENV_TEST_FILE_B=fromfile\n"), 0o600))

	t.Setenv("ENV_TEST_FILE_A", "preset")
	t.Cleanup(func() { os.Unsetenv("ENV_TEST_FILE_B") })

	require.NoError(t, Load(path, filepath.Join(dir, "missing.env")))

	assert.Equal(t, "preset", os.Getenv("ENV_TEST_FILE_A"))
	assert.Equal(t, "fromfile", os.Getenv("ENV_TEST_FILE_B"))
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("ENV_TEST_BROKEN=\"unterminated\n"), 0o600))

	err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
	_, set := os.LookupEnv("ENV_TEST_BROKEN")
	assert.False(t, set)
}
