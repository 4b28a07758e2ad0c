package notify

import (
	"bytes"
	"testing"
)

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	n := NewWriter(&buf)
	n.Notify("login failed")
	n.Notify("Failed to fetch marks")
	if got := buf.String(); got != "! login failed\n! Failed to fetch marks\n" {
		t.Fatalf("got %q", got)
	}
}

func TestRecorderCopies(t *testing.T) {
	var r Recorder
	r.Notify("a")
	msgs := r.Messages()
	msgs[0] = "changed"
	if r.Messages()[0] != "a" {
		t.Fatal("Messages must return a copy")
	}
}
