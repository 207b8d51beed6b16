package filtering_test

import (
	"testing"

	"feedmirror/internal/filtering"
)

func TestChannelMatcherNumericAndUsernameSpecifiers(t *testing.T) {
	matcher := filtering.NewChannelMatcher([]string{"-100123", "@MyChan"})

	cases := []struct {
		name      string
		channelID int64
		username  string
		want      bool
	}{
		{"numeric id match", -100123, "", true},
		{"numeric id match with unrelated username", -100123, "whatever", true},
		{"username match", 555, "mychan", true},
		{"username match with at sign", 555, "@MYCHAN", true},
		{"no match", 999, "otherchan", false},
		{"no username and no id match", 999, "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := matcher.IsAllowed(tc.channelID, tc.username); got != tc.want {
				t.Fatalf("IsAllowed(%d, %q) = %v, want %v", tc.channelID, tc.username, got, tc.want)
			}
		})
	}

	if matcher.Size() != 2 {
		t.Fatalf("Size = %d, want 2", matcher.Size())
	}
}

func TestChannelMatcherIgnoresEmptySpecifiers(t *testing.T) {
	matcher := filtering.NewChannelMatcher([]string{"", "  ", "@chan"})
	if matcher.Size() != 1 {
		t.Fatalf("Size = %d, want 1", matcher.Size())
	}
}

func TestNilChannelMatcherDeniesAll(t *testing.T) {
	var matcher *filtering.ChannelMatcher
	if matcher.IsAllowed(1, "any") {
		t.Fatal("nil matcher must deny everything")
	}
}

func TestNormalizeUsername(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"@MyChan", "mychan"},
		{"  MyChan  ", "mychan"},
		{"ＭｙＣｈａｎ", "mychan"},
	}
	for _, tc := range cases {
		if got := filtering.NormalizeUsername(tc.in); got != tc.want {
			t.Errorf("NormalizeUsername(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
