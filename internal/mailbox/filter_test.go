package mailbox

import (
	"testing"
	"time"

	"github.com/Iron-Ham/raven/internal/errors"
)

func TestSenderMatcher(t *testing.T) {
	tests := []struct {
		pattern string
		from    string
		want    bool
	}{
		{"", "10.0.0.7:51234", true},
		{"10.0.0.7", "10.0.0.7:51234", true},
		{"10.0.0.*", "10.0.0.7:51234", true},
		{"10.0.0.7:5123?", "10.0.0.7:51234", true},
		{"10.0.1.*", "10.0.0.7:51234", false},
		{"::1", "[::1]:40000", true},
		{"192.168.{1,2}.*", "192.168.2.9:1", true},
		{"192.168.{1,2}.*", "192.168.3.9:1", false},
		{"*", "not an address", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.from, func(t *testing.T) {
			match, err := SenderMatcher(tt.pattern)
			if err != nil {
				t.Fatalf("SenderMatcher(%q) error = %v", tt.pattern, err)
			}
			if got := match(tt.from); got != tt.want {
				t.Errorf("match(%q) = %v, want %v", tt.from, got, tt.want)
			}
		})
	}
}

func TestSenderMatcherInvalid(t *testing.T) {
	_, err := SenderMatcher("10.0.[")
	if err == nil {
		t.Fatal("expected an error for an unterminated class")
	}
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("error = %v, want a validation error", err)
	}
}

func TestFilter(t *testing.T) {
	t0 := time.Date(2024, 3, 9, 14, 30, 5, 0, time.UTC)
	m := &Mailbox{}
	m.AddMessage("10.0.0.7:1", t0, "a")
	m.AddMessage("10.0.0.8:1", t0, "b")
	m.AddMessage("10.0.0.7:2", t0, "c")
	m.AddFile("10.0.0.8:1", t0, "/data/x")

	match, err := SenderMatcher("10.0.0.7")
	if err != nil {
		t.Fatal(err)
	}
	got := Filter(m.List(false, false), match)

	if len(got) != 2 {
		t.Fatalf("got %d sections, want 2", len(got))
	}
	if n := len(got[0].Entries); n != 2 {
		t.Fatalf("messages = %d, want 2", n)
	}
	if got[0].Entries[0].Index != 0 || got[0].Entries[1].Index != 2 {
		t.Errorf("indices = %d, %d; want 0, 2", got[0].Entries[0].Index, got[0].Entries[1].Index)
	}
	if len(got[1].Entries) != 0 || got[1].Kind != KindFile {
		t.Errorf("files section = %+v", got[1])
	}
}

func TestDetail(t *testing.T) {
	t0 := time.Date(2024, 3, 9, 14, 30, 5, 0, time.UTC)

	msg := Message{From: "10.0.0.2:1", When: t0, Text: "hello\nworld"}
	if got, want := msg.Detail(), "Message from: 10.0.0.2:1\nWhen: 2024-03-09 14:30:05\nhello\nworld"; got != want {
		t.Errorf("Message.Detail() = %q, want %q", got, want)
	}

	f := File{From: "10.0.0.2:1", When: t0, Path: "/srv/raven/data/a.txt"}
	if got, want := f.Detail(), "File from: 10.0.0.2:1\nWhen: 2024-03-09 14:30:05\nFile: /srv/raven/data/a.txt"; got != want {
		t.Errorf("File.Detail() = %q, want %q", got, want)
	}
}
