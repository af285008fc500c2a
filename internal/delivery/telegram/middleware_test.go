package telegram

import "testing"

func TestChatLimiter(t *testing.T) {
	l := newChatLimiter(0.001, 2)

	if !l.allow(1) || !l.allow(1) {
		t.Fatalf("burst must be accepted")
	}
	if l.allow(1) {
		t.Fatalf("update over the burst must be throttled")
	}
	if !l.allow(2) {
		t.Fatalf("chats must be throttled independently")
	}
}

func TestChatLimiter_Disabled(t *testing.T) {
	l := newChatLimiter(0, 0)
	for i := 0; i < 100; i++ {
		if !l.allow(1) {
			t.Fatalf("a non-positive rate must disable throttling")
		}
	}
}
