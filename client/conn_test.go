package client

import "testing"

func TestWebSocketURL(t *testing.T) {
	tests := []struct {
		server string
		want   string
	}{
		{"http://localhost:8080", "ws://localhost:8080/ws"},
		{"https://quiz.example.com/", "wss://quiz.example.com/ws"},
		{"https://example.com/live", "wss://example.com/live/ws"},
		{"ws://10.0.0.1:9000", "ws://10.0.0.1:9000/ws"},
	}
	for _, tt := range tests {
		got, err := WebSocketURL(tt.server)
		if err != nil {
			t.Errorf("WebSocketURL(%q): %v", tt.server, err)
			continue
		}
		if got != tt.want {
			t.Errorf("WebSocketURL(%q) = %q, want %q", tt.server, got, tt.want)
		}
	}

	if _, err := WebSocketURL("ftp://example.com"); err == nil {
		t.Error("ftp scheme accepted")
	}
}
