package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDedup(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Dedup([]string{"a", "b", "a", "c", "b"}))
	assert.Equal(t, []string{}, Dedup(nil))
}

func TestEnv(t *testing.T) {
	t.Setenv("UTILS_TEST_STR", "set")
	assert.Equal(t, "set", Env("UTILS_TEST_STR", "def"))
	assert.Equal(t, "def", Env("UTILS_TEST_UNSET", "def"))
}

func TestEnvInt(t *testing.T) {
	t.Setenv("UTILS_TEST_INT", "42")
	assert.Equal(t, 42, EnvInt("UTILS_TEST_INT", 7))

	t.Setenv("UTILS_TEST_INT", "garbage")
	assert.Equal(t, 7, EnvInt("UTILS_TEST_INT", 7))
	assert.Equal(t, 7, EnvInt("UTILS_TEST_UNSET", 7))
}

func TestEnvDuration(t *testing.T) {
	t.Setenv("UTILS_TEST_DUR", "90s")
	assert.Equal(t, 90*time.Second, EnvDuration("UTILS_TEST_DUR", time.Minute))

	t.Setenv("UTILS_TEST_DUR", "-5s")
	assert.Equal(t, time.Minute, EnvDuration("UTILS_TEST_DUR", time.Minute))
	assert.Equal(t, time.Minute, EnvDuration("UTILS_TEST_UNSET", time.Minute))
}
