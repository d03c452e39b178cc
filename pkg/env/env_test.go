package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("WA_TEST_STRING", "  value  ")
	t.Setenv("WA_TEST_BOOL", "true")
	t.Setenv("WA_TEST_INT", "0x10")
	t.Setenv("WA_TEST_NEGATIVE", "-4")
	t.Setenv("WA_TEST_DURATION", "45s")
	t.Setenv("WA_TEST_BAD_DURATION", "soon")

	assert.Equal(t, "value", GetEnvStringOrDefault("WA_TEST_STRING", "x"))
	assert.Equal(t, "x", GetEnvStringOrDefault("WA_TEST_MISSING", "x"))
	assert.True(t, GetEnvBoolOrDefault("WA_TEST_BOOL", false))
	assert.True(t, GetEnvBoolOrDefault("WA_TEST_STRING", true))
	assert.Equal(t, 16, GetEnvIntOrDefault("WA_TEST_INT", 3, 1))
	assert.Equal(t, 3, GetEnvIntOrDefault("WA_TEST_NEGATIVE", 3, 1))
	assert.Equal(t, 45*time.Second, GetEnvDurationOrDefault("WA_TEST_DURATION", time.Second))
	assert.Equal(t, time.Second, GetEnvDurationOrDefault("WA_TEST_BAD_DURATION", time.Second))
}

func TestMustGetEnvStringPanics(t *testing.T) {
	assert.Panics(t, func() { MustGetEnvString("WA_TEST_DEFINITELY_UNSET") })
}
