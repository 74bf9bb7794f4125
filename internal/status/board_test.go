package status

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Iron-Ham/taskpool/internal/taskpool"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		PoolID: "0123456789abcdef",
		Names:  []string{"resize_image", taskpool.IdleTaskName},
		Stats: taskpool.Stats{
			Workers:   2,
			Busy:      1,
			Queued:    3,
			Submitted: 6,
			Completed: 2,
		},
	}
}

func TestBoard_Render(t *testing.T) {
	var buf bytes.Buffer
	b := NewBoard(&buf, 0, false)

	out := b.Render(sampleSnapshot())

	for _, want := range []string{
		"pool 01234567",
		"workers 2 busy 1 queued 3",
		"#0  resize_image",
		"#1  [idle]",
		"submitted=6 completed=2 panicked=0 discarded=0 rejected=0",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Render() missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("Render() to a buffer should not contain escape codes: %q", out)
	}
	if buf.Len() != 0 {
		t.Error("Render() should not write")
	}
}

func TestBoard_RenderTruncatesNames(t *testing.T) {
	b := NewBoard(&bytes.Buffer{}, 20, false)
	s := sampleSnapshot()
	s.Names = []string{strings.Repeat("x", 40)}

	out := b.Render(s)
	if !strings.Contains(out, strings.Repeat("x", 11)+"...") {
		t.Errorf("long name should be cut to 14 columns:\n%s", out)
	}
	if strings.Contains(out, strings.Repeat("x", 15)) {
		t.Errorf("long name not truncated:\n%s", out)
	}
}

func TestBoard_Draw(t *testing.T) {
	t.Run("appends when not live", func(t *testing.T) {
		var buf bytes.Buffer
		b := NewBoard(&buf, 0, false)
		s := sampleSnapshot()

		if err := b.Draw(s); err != nil {
			t.Fatal(err)
		}
		if err := b.Draw(s); err != nil {
			t.Fatal(err)
		}
		if got := strings.Count(buf.String(), "pool 01234567"); got != 2 {
			t.Errorf("expected two frames, got %d", got)
		}
		if strings.Contains(buf.String(), "\x1b[") {
			t.Error("non-live board should not move the cursor")
		}
	})

	t.Run("redraws in place when live", func(t *testing.T) {
		var buf bytes.Buffer
		b := NewBoard(&buf, 0, true)
		s := sampleSnapshot()

		if err := b.Draw(s); err != nil {
			t.Fatal(err)
		}
		first := buf.Len()
		if err := b.Draw(s); err != nil {
			t.Fatal(err)
		}
		// header + two workers + counters
		if !strings.Contains(buf.String()[first:], "\x1b[4A") {
			t.Errorf("second frame should move up 4 lines: %q", buf.String()[first:])
		}
	})
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"anything", 3, "..."},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
