package responder

import (
	"math/rand"
	"testing"
)

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func TestReply_CoversEveryGroup(t *testing.T) {
	r := New(rand.New(rand.NewSource(1)))

	cases := []struct {
		name  string
		input string
		group int
	}{
		{"greeting", "hello", 0},
		{"status inquiry", "how are you doing", 1},
		{"farewell", "ok bye now", 2},
		{"gratitude", "thanks a lot", 3},
		{"help request", "i need help with something", 4},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := r.Reply(1, tc.input)
			if got == "" {
				t.Fatalf("empty reply for %q", tc.input)
			}
			if !contains(rules[tc.group].replies, got) {
				t.Fatalf("reply %q not in candidate set for group %d", got, tc.group)
			}
		})
	}
}

func TestReply_FallbackForUnmatchedInput(t *testing.T) {
	r := New(rand.New(rand.NewSource(2)))
	got := r.Reply(1, "the weather in ulaanbaatar")
	if got == "" {
		t.Fatal("empty fallback reply")
	}
	if !contains(fallbacks, got) {
		t.Fatalf("reply %q not in fallback set", got)
	}
}

func TestReply_MatchesCaseInsensitively(t *testing.T) {
	r := New(rand.New(rand.NewSource(3)))
	got := r.Reply(1, "HELLO THERE")
	if !contains(rules[0].replies, got) {
		t.Fatalf("reply %q not in greeting set", got)
	}
}

func TestReply_FirstGroupWins(t *testing.T) {
	// "hello" (group 0) and "thanks" (group 3) both occur; the ordered
	// scan must pick the greeting group.
	r := New(rand.New(rand.NewSource(4)))
	for i := 0; i < 20; i++ {
		got := r.Reply(1, "hello and thanks")
		if !contains(rules[0].replies, got) {
			t.Fatalf("reply %q not in greeting set", got)
		}
	}
}
