// Package waveform provides a TUI component for visualizing microphone loudness.
package waveform

import (
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alkime/scribe/internal/tui/style"
	"github.com/alkime/scribe/pkg/uictl"
)

// Block characters for level visualization (8 levels, bottom to top).
// Index 0 = empty (space), 1-8 = increasing fill levels.
const blockChars = " ▁▂▃▄▅▆▇█"

// TickMsg triggers a waveform redraw.
type TickMsg struct{}

// Model draws loudness levels in [0, 1] as vertical bars, oldest on the left.
type Model struct {
	levels uictl.Levels[float64]
	width  int
	height int
}

// New creates a waveform of width columns and height rows. Levels are
// bucketed to fit the width.
func New(levels uictl.Levels[float64], width, height int) Model {
	return Model{
		levels: levels,
		width:  max(width, 1),
		height: max(height, 1),
	}
}

// Init returns the initial tick command.
func (m Model) Init() tea.Cmd {
	return m.tick()
}

// Update handles tick messages for animation.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if _, ok := msg.(TickMsg); ok {
		return m, m.tick()
	}

	return m, nil
}

// SetWidth changes the number of columns.
func (m *Model) SetWidth(width int) {
	m.width = max(width, 1)
}

// View renders the waveform.
func (m Model) View() string {
	if m.levels == nil {
		return m.renderEmpty()
	}

	levels := m.levels.Read()
	if len(levels) == 0 {
		return m.renderEmpty()
	}

	return m.render(m.columns(levels))
}

// tick schedules the next redraw at ~20 FPS.
func (m Model) tick() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

func (m Model) render(cols []int) string {
	runes := []rune(blockChars)
	rows := make([]string, m.height)

	for row := range m.height {
		var sb strings.Builder
		for _, level := range cols {
			sb.WriteRune(runes[m.blockIndexForRow(level, row)])
		}
		rows[row] = style.Progress.Render(sb.String())
	}

	return strings.Join(rows, "\n")
}

// columns maps levels onto m.width columns of 0..height*8 eighths, taking
// the loudest level in each bucket.
func (m Model) columns(levels []float64) []int {
	cols := make([]int, m.width)
	bucket := max(1, len(levels)/m.width)
	top := m.height * 8

	for col := range cols {
		start := col * bucket
		if start >= len(levels) {
			break
		}
		end := min(start+bucket, len(levels))

		var peak float64
		for _, v := range levels[start:end] {
			peak = max(peak, v)
		}
		cols[col] = scale(peak, top)
	}

	return cols
}

// blockIndexForRow returns the block character index (0-8) for a column
// level at a row. Row 0 is the top.
func (m Model) blockIndexForRow(level, row int) int {
	base := (m.height - 1 - row) * 8
	fill := level - base

	switch {
	case fill <= 0:
		return 0
	case fill >= 8:
		return 8
	default:
		return fill
	}
}

// renderEmpty draws a flat baseline.
func (m Model) renderEmpty() string {
	rows := make([]string, m.height)
	for row := range m.height {
		ch := " "
		if row == m.height-1 {
			ch = "▁"
		}
		rows[row] = style.Muted.Render(strings.Repeat(ch, m.width))
	}

	return strings.Join(rows, "\n")
}

// scale maps a level in [0, 1] to 0..top. The square root keeps quiet
// speech visible.
func scale(v float64, top int) int {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}

	return min(int(math.Sqrt(min(v, 1))*float64(top)), top)
}
