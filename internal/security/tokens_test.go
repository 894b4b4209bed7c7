package security

import "testing"

func TestNewSessionToken(t *testing.T) {
	a, err := NewSessionToken()
	if err != nil {
		t.Fatalf("NewSessionToken: %v", err)
	}
	if len(a) != sessionTokenBytes*2 {
		t.Errorf("token length = %d, want %d hex chars", len(a), sessionTokenBytes*2)
	}

	b, err := NewSessionToken()
	if err != nil {
		t.Fatalf("NewSessionToken: %v", err)
	}
	if a == b {
		t.Error("two tokens should not collide")
	}
}
