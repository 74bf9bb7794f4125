package status

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/Iron-Ham/taskpool/internal/taskpool"
)

// minNameWidth keeps task names legible on very narrow terminals.
const minNameWidth = 8

// Snapshot is what the board shows for one refresh.
type Snapshot struct {
	PoolID string
	Names  []string
	Stats  taskpool.Stats
}

// Board renders pool snapshots to a writer. When live is set each Draw
// overwrites the previous one in place.
type Board struct {
	w      io.Writer
	width  int
	live   bool
	lines  int
	styles styles
}

// NewBoard creates a board writing to w. A width of zero disables
// truncation.
func NewBoard(w io.Writer, width int, live bool) *Board {
	return &Board{
		w:      w,
		width:  width,
		live:   live,
		styles: newStyles(lipgloss.NewRenderer(w)),
	}
}

// Render formats a snapshot without writing it.
func (b *Board) Render(s Snapshot) string {
	var sb strings.Builder

	st := s.Stats
	sb.WriteString(b.styles.title.Render("pool " + shortID(s.PoolID)))
	fmt.Fprintf(&sb, " %s %d %s %d %s %d\n",
		b.styles.label.Render("workers"), st.Workers,
		b.styles.label.Render("busy"), st.Busy,
		b.styles.label.Render("queued"), st.Queued)

	nameWidth := 0
	if b.width > 0 {
		nameWidth = max(b.width-6, minNameWidth)
	}
	for i, name := range s.Names {
		style := b.styles.busy
		if name == taskpool.IdleTaskName {
			style = b.styles.idle
		}
		if nameWidth > 0 {
			name = Truncate(name, nameWidth)
		}
		fmt.Fprintf(&sb, "  #%-2d %s\n", i, style.Render(name))
	}

	fmt.Fprintf(&sb, "%s submitted=%d completed=%d ",
		b.styles.label.Render("tasks"), st.Submitted, st.Completed)
	sb.WriteString(b.count("panicked", st.Panicked, b.styles.errStyle))
	sb.WriteString(" ")
	sb.WriteString(b.count("discarded", st.Discarded, b.styles.warning))
	sb.WriteString(" ")
	sb.WriteString(b.count("rejected", st.Rejected, b.styles.warning))
	sb.WriteString("\n")

	return sb.String()
}

// count highlights non-zero failure counters.
func (b *Board) count(label string, n uint64, style lipgloss.Style) string {
	text := fmt.Sprintf("%s=%d", label, n)
	if n == 0 {
		return text
	}
	return style.Render(text)
}

// Draw renders s and writes it, erasing the previous frame in live mode.
func (b *Board) Draw(s Snapshot) error {
	frame := b.Render(s)

	var sb strings.Builder
	if b.live && b.lines > 0 {
		sb.WriteString(ansi.CursorUp(b.lines))
		sb.WriteString("\r")
		sb.WriteString(ansi.EraseScreenBelow)
	}
	sb.WriteString(frame)

	if _, err := io.WriteString(b.w, sb.String()); err != nil {
		return fmt.Errorf("failed to draw status: %w", err)
	}
	b.lines = strings.Count(frame, "\n")
	return nil
}

// Truncate shortens s to maxWidth terminal columns, adding "..." when it
// cuts. ANSI escape codes and wide characters are measured correctly.
func Truncate(s string, maxWidth int) string {
	if maxWidth <= 3 {
		return "..."
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	return ansi.Truncate(s, maxWidth, "...")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
