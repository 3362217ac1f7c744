package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestServer(t *testing.T, handler func(method string, params []any) (int, string)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
			Params []any  `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		status, body := handler(req.Method, req.Params)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPProvider_Call(t *testing.T) {
	srv := newTestServer(t, func(method string, params []any) (int, string) {
		if method != "eth_getTransactionCount" {
			t.Errorf("unexpected method %s", method)
		}
		if len(params) != 2 || params[1] != "pending" {
			t.Errorf("unexpected params %v", params)
		}
		return http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":"0xd"}`
	})

	p := NewHTTPProvider("test", srv.URL, 5*time.Second)
	result, err := p.Call(context.Background(), "eth_getTransactionCount", []any{"0xabc", "pending"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "0xd" {
		t.Errorf("expected 0xd, got %v", result)
	}
	if !p.GetHealth().Available {
		t.Error("provider should be available after success")
	}
}

func TestHTTPProvider_RPCError(t *testing.T) {
	srv := newTestServer(t, func(string, []any) (int, string) {
		return http.StatusOK, `{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"already known"}}`
	})

	p := NewHTTPProvider("test", srv.URL, 5*time.Second)
	_, err := p.Call(context.Background(), "eth_sendRawTransaction", []any{"0x01"})

	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected RPCError, got %v", err)
	}
	if rpcErr.Code != -32000 || rpcErr.Message != "already known" {
		t.Errorf("unexpected rpc error: %+v", rpcErr)
	}
}

func TestHTTPProvider_TransportErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"rate limited", http.StatusTooManyRequests, ""},
		{"server error", http.StatusBadGateway, "bad gateway"},
		{"malformed", http.StatusOK, "not json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, func(string, []any) (int, string) {
				return tt.status, tt.body
			})

			p := NewHTTPProvider("test", srv.URL, 5*time.Second)
			_, err := p.Call(context.Background(), "eth_gasPrice", nil)
			if err == nil {
				t.Fatal("expected error")
			}
			var rpcErr *RPCError
			if errors.As(err, &rpcErr) {
				t.Errorf("transport failure should not be an RPCError: %v", err)
			}
			if p.GetHealth().LastFailureAt.IsZero() {
				t.Error("failure should be recorded")
			}
		})
	}
}

func TestHTTPProvider_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := NewHTTPProvider("test", url, time.Second)
	if _, err := p.Call(context.Background(), "eth_chainId", nil); err == nil {
		t.Fatal("expected error for closed server")
	}
	if p.GetHealth().Available {
		t.Error("provider should be unavailable after only failures")
	}
}
