package redis

import (
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
)

func TestConfigAddr(t *testing.T) {
	assert.Equal(t, "localhost:6379", Config{Host: "localhost", Port: 6379}.Addr())
}

func TestNewClientUnreachable(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	_, err := NewClient(Config{Host: "127.0.0.1", Port: 1}, logger)
	assert.Error(t, err)
}

func TestNewLockerDefaultPrefix(t *testing.T) {
	assert.Equal(t, defaultKeyPrefix, NewLocker(nil, "").keyPrefix)
	assert.Equal(t, "custom:", NewLocker(nil, "custom:").keyPrefix)
}
