package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvBool(t *testing.T) {
	t.Setenv("FLAG_ON", "true")
	t.Setenv("FLAG_BAD", "sometimes")

	assert.True(t, GetEnvBool("FLAG_ON", false))
	assert.True(t, GetEnvBool("FLAG_BAD", true))
	assert.False(t, GetEnvBool("FLAG_UNSET", false))
}

func TestGetEnvPositiveInt(t *testing.T) {
	t.Setenv("LIMIT", " 25 ")
	t.Setenv("LIMIT_NEG", "-1")

	assert.Equal(t, 25, GetEnvPositiveInt("LIMIT", 100))
	assert.Equal(t, 100, GetEnvPositiveInt("LIMIT_NEG", 100))
	assert.Equal(t, 100, GetEnvPositiveInt("LIMIT_UNSET", 100))
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("TIMEOUT", "45s")
	t.Setenv("TIMEOUT_ZERO", "0s")

	assert.Equal(t, 45*time.Second, GetEnvDuration("TIMEOUT", time.Minute))
	assert.Equal(t, time.Minute, GetEnvDuration("TIMEOUT_ZERO", time.Minute))
	assert.Equal(t, time.Minute, GetEnvDuration("TIMEOUT_UNSET", time.Minute))
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("ORIGINS", " https://a.example, ,https://b.example ")

	assert.Equal(t, []string{"https://a.example", "https://b.example"}, GetEnvList("ORIGINS"))
	assert.Nil(t, GetEnvList("ORIGINS_UNSET"))
}

func TestOTelServiceName_Default(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "")

	assert.Equal(t, "clothiq-api", OTelServiceName())
}
