// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"math"
	"strings"

	"audiowheel/internal/analysis"
	"audiowheel/internal/settings"
	"audiowheel/internal/visualizer"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Levels used for the top cell of a bar, one eighth of a cell each.
var barLevels = []rune(" ▁▂▃▄▅▆▇█")

// frameMsg is a frame copied out of the tick loop.
type frameMsg struct {
	sequence    uint64
	heights     []float64
	highlighted []bool
	normal      string
	highlight   string
	maxHeight   float64
	average     float64
	peak        analysis.Bin
	rotation    float64
	layout      settings.Restructure
}

func newFrameMsg(f visualizer.Frame, maxHeight float64) frameMsg {
	msg := frameMsg{
		sequence:    f.Sequence,
		heights:     make([]float64, len(f.Columns)),
		highlighted: make([]bool, len(f.Columns)),
		normal:      f.NormalColor.Hex(),
		highlight:   f.HighlightColor.Hex(),
		maxHeight:   maxHeight,
		average:     f.Average,
		peak:        f.Peak,
		rotation:    f.Rotation,
	}
	for i, c := range f.Columns {
		msg.heights[i] = c.Height
		msg.highlighted[i] = c.Highlighted
	}
	return msg
}

type wheelKeyMap struct {
	Rotation   key.Binding
	Reverse    key.Binding
	Columns    key.Binding
	Sections   key.Binding
	Smoothing  key.Binding
	Window     key.Binding
	Transition key.Binding
	Help       key.Binding
	Quit       key.Binding

	rotationUp, rotationDown   key.Binding
	columnsUp, columnsDown     key.Binding
	sectionsUp, sectionsDown   key.Binding
	smoothingUp, smoothingDown key.Binding
}

func newWheelKeyMap() wheelKeyMap {
	return wheelKeyMap{
		Rotation:   key.NewBinding(key.WithKeys("+", "-"), key.WithHelp("+/-", "rotation")),
		Reverse:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reverse")),
		Columns:    key.NewBinding(key.WithKeys("]", "["), key.WithHelp("[/]", "columns")),
		Sections:   key.NewBinding(key.WithKeys("}", "{"), key.WithHelp("{/}", "sections")),
		Smoothing:  key.NewBinding(key.WithKeys(".", ","), key.WithHelp(",/.", "smoothing")),
		Window:     key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "window")),
		Transition: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "color transition")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),

		rotationUp:    key.NewBinding(key.WithKeys("+")),
		rotationDown:  key.NewBinding(key.WithKeys("-")),
		columnsUp:     key.NewBinding(key.WithKeys("]")),
		columnsDown:   key.NewBinding(key.WithKeys("[")),
		sectionsUp:    key.NewBinding(key.WithKeys("}")),
		sectionsDown:  key.NewBinding(key.WithKeys("{")),
		smoothingUp:   key.NewBinding(key.WithKeys(".")),
		smoothingDown: key.NewBinding(key.WithKeys(",")),
	}
}

func (k wheelKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Rotation, k.Columns, k.Window, k.Help, k.Quit}
}

func (k wheelKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Rotation, k.Reverse, k.Columns, k.Sections},
		{k.Smoothing, k.Window, k.Transition},
		{k.Help, k.Quit},
	}
}

// WheelModel draws the wheel's columns unrolled into a bar chart and maps
// keys onto the live settings.
type WheelModel struct {
	store *settings.Store
	keys  wheelKeyMap
	help  help.Model

	width, height int
	frame         frameMsg
	layout        settings.Restructure
	status        string
}

// NewWheelModel creates the terminal view. store may be nil for a view
// without key bindings.
func NewWheelModel(store *settings.Store) WheelModel {
	m := WheelModel{
		store: store,
		keys:  newWheelKeyMap(),
		help:  help.New(),
	}
	if store != nil {
		s := store.Snapshot()
		m.layout = settings.Restructure{ColumnCount: s.ColumnCount, ColumnWidth: s.ColumnWidth}
	}
	return m
}

// Init implements tea.Model.
func (m WheelModel) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m WheelModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width

	case frameMsg:
		m.frame = msg
		if msg.layout.ColumnCount != 0 && msg.layout != m.layout {
			m.layout = msg.layout
			m.status = fmt.Sprintf("%d columns", m.layout.ColumnCount)
		}

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		if key.Matches(msg, m.keys.Help) {
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
		m.status = m.applyKey(msg)
	}
	return m, nil
}

// applyKey turns a key into a settings change and returns the status line.
func (m WheelModel) applyKey(msg tea.KeyMsg) string {
	if m.store == nil {
		return ""
	}

	var (
		change func(*settings.Spectrum)
		label  string
	)
	k := m.keys
	switch {
	case key.Matches(msg, k.rotationUp):
		change, label = func(s *settings.Spectrum) { s.RotationSpeed += 0.005 }, "rotation"
	case key.Matches(msg, k.rotationDown):
		change, label = func(s *settings.Spectrum) { s.RotationSpeed -= 0.005 }, "rotation"
	case key.Matches(msg, k.Reverse):
		change, label = func(s *settings.Spectrum) { s.RotationSpeed = -s.RotationSpeed }, "rotation"
	case key.Matches(msg, k.columnsUp):
		change, label = func(s *settings.Spectrum) { s.ColumnCountPowerOfTwo++ }, "columns"
	case key.Matches(msg, k.columnsDown):
		change, label = func(s *settings.Spectrum) { s.ColumnCountPowerOfTwo-- }, "columns"
	case key.Matches(msg, k.sectionsUp):
		change, label = func(s *settings.Spectrum) { s.SectionCount++ }, "sections"
	case key.Matches(msg, k.sectionsDown):
		change, label = func(s *settings.Spectrum) { s.SectionCount-- }, "sections"
	case key.Matches(msg, k.smoothingUp):
		change, label = func(s *settings.Spectrum) { s.SmoothingRange++ }, "smoothing"
	case key.Matches(msg, k.smoothingDown):
		change, label = func(s *settings.Spectrum) { s.SmoothingRange-- }, "smoothing"
	case key.Matches(msg, k.Window):
		change, label = func(s *settings.Spectrum) { s.WindowFunction = (s.WindowFunction + 1) % 3 }, "window"
	case key.Matches(msg, k.Transition):
		change, label = func(s *settings.Spectrum) {
			s.Normal.Transition = !s.Normal.Transition
			s.Highlight.Transition = s.Normal.Transition
		}, "transition"
	default:
		return m.status
	}

	next, err := m.store.Update(change)
	if err != nil {
		return "rejected: " + err.Error()
	}
	switch label {
	case "rotation":
		return fmt.Sprintf("rotation %.3f rad/tick", next.RotationSpeed)
	case "columns":
		return fmt.Sprintf("%d columns", next.ColumnCount)
	case "sections":
		return fmt.Sprintf("%d sections", next.SectionCount)
	case "smoothing":
		return fmt.Sprintf("smoothing %d", next.SmoothingRange)
	case "window":
		return "window " + next.WindowFunction.String()
	default:
		return fmt.Sprintf("color transition %v", next.Normal.Transition)
	}
}

// View implements tea.Model.
func (m WheelModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	header := titleStyle.Render("audiowheel") + " " + infoStyle.Render(fmt.Sprintf(
		"frame %d • %d columns • avg %.2f • peak %.0f Hz • rotation %.2f",
		m.frame.sequence, m.layout.ColumnCount, m.frame.average, m.frame.peak.Frequency, m.frame.rotation))
	footer := m.help.View(m.keys)
	if m.status != "" {
		footer = mutedStyle.Render(m.status) + "\n" + footer
	}

	rows := m.height - lipgloss.Height(header) - lipgloss.Height(footer) - 1
	return lipgloss.JoinVertical(lipgloss.Left, header, m.renderBars(m.width, rows), footer)
}

// renderBars draws the columns bottom-up, pooling neighbours with max when
// there are more columns than terminal cells.
func (m WheelModel) renderBars(width, rows int) string {
	if rows <= 0 || width <= 0 || len(m.frame.heights) == 0 {
		return strings.Repeat("\n", max(rows-1, 0))
	}

	heights, highlighted := pool(m.frame.heights, m.frame.highlighted, width)
	maxHeight := m.frame.maxHeight
	if maxHeight <= 0 {
		maxHeight = 1
	}

	normal := lipgloss.NewStyle().Foreground(lipgloss.Color(m.frame.normal))
	highlight := lipgloss.NewStyle().Foreground(lipgloss.Color(m.frame.highlight))

	lines := make([]string, rows)
	var run strings.Builder
	for r := range rows {
		floor := float64(rows-1-r) * 8 // eighths below this row
		var line strings.Builder
		runHighlighted := false
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if runHighlighted {
				line.WriteString(highlight.Render(run.String()))
			} else {
				line.WriteString(normal.Render(run.String()))
			}
			run.Reset()
		}

		for i, h := range heights {
			eighths := h / maxHeight * float64(rows) * 8
			level := int(math.Round(min(max(eighths-floor, 0), 8)))
			if highlighted[i] != runHighlighted {
				flush()
				runHighlighted = highlighted[i]
			}
			run.WriteRune(barLevels[level])
		}
		flush()
		lines[r] = line.String()
	}
	return strings.Join(lines, "\n")
}

// pool reduces heights to at most width cells.
func pool(heights []float64, highlighted []bool, width int) ([]float64, []bool) {
	if len(heights) <= width {
		return heights, highlighted
	}
	outH := make([]float64, width)
	outL := make([]bool, width)
	for i, h := range heights {
		j := i * width / len(heights)
		outH[j] = max(outH[j], h)
		outL[j] = outL[j] || highlighted[i]
	}
	return outH, outL
}
