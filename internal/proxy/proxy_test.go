package proxy

import (
	"net/http"
	"testing"
	"time"
)

func TestNewHTTPClient(t *testing.T) {
	c, err := NewHTTPClient("", time.Second)
	if err != nil || c.Timeout != time.Second || c.Transport != nil {
		t.Fatalf("direct client = %+v, %v", c, err)
	}

	c, err = NewHTTPClient("127.0.0.1:1080", 0)
	if err != nil {
		t.Fatalf("socks client: %v", err)
	}
	if _, ok := c.Transport.(*http.Transport); !ok || c.Timeout != 120*time.Second {
		t.Fatalf("socks client = %+v", c)
	}
}
