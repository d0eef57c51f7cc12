package httptransport

import (
	"net/http"
	"testing"
	"time"
)

func TestNewServerAppliesDefaults(t *testing.T) {
	server := NewServer(ServerConfig{Address: ":8080"}, http.NewServeMux())

	if server.Addr != ":8080" {
		t.Errorf("addr = %q", server.Addr)
	}
	if server.ReadTimeout != DefaultReadTimeout {
		t.Errorf("read timeout = %v", server.ReadTimeout)
	}
	if server.WriteTimeout != DefaultWriteTimeout {
		t.Errorf("write timeout = %v", server.WriteTimeout)
	}
	if server.IdleTimeout != DefaultIdleTimeout {
		t.Errorf("idle timeout = %v", server.IdleTimeout)
	}
}

func TestNewServerKeepsExplicitTimeouts(t *testing.T) {
	server := NewServer(ServerConfig{
		Address:      ":8080",
		ReadTimeout:  time.Second,
		WriteTimeout: 2 * time.Second,
		IdleTimeout:  3 * time.Second,
	}, nil)

	if server.ReadTimeout != time.Second || server.WriteTimeout != 2*time.Second || server.IdleTimeout != 3*time.Second {
		t.Errorf("explicit timeouts overridden: %v %v %v", server.ReadTimeout, server.WriteTimeout, server.IdleTimeout)
	}
}
