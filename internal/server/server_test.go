package server

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"tillbook/internal/config"
)

func TestNew_AppliesConfiguredTimeouts(t *testing.T) {
	srv := New(config.ServerConfig{
		Port:         8080,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  30 * time.Second,
	}, http.NewServeMux(), zap.NewNop())

	assert.Equal(t, ":8080", srv.httpServer.Addr)
	assert.Equal(t, 10*time.Second, srv.httpServer.ReadTimeout)
	assert.Equal(t, 15*time.Second, srv.httpServer.WriteTimeout)
	assert.Equal(t, 30*time.Second, srv.httpServer.IdleTimeout)
}
