package logger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithoutSentry(t *testing.T) {
	log, err := New(Config{Debug: true, Service: "api"})
	require.NoError(t, err)
	assert.Nil(t, log.sentry)
	log.Info("hello")
	log.Close(time.Millisecond)
}

func TestNewWithInvalidDSN(t *testing.T) {
	_, err := New(Config{SentryDSN: "::not a dsn"})
	assert.Error(t, err)
}
