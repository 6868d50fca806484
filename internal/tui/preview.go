package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Engine is the part of the frame engine the preview reads and controls.
type Engine interface {
	Width() int
	LatestInto(dst []float32) (uint64, error)
	Paused() bool
	TogglePause(ctx context.Context) (bool, error)
	Reset(ctx context.Context) error
}

var barChars = []rune(" ▁▂▃▄▅▆▇█")

const (
	defaultCols   = 80
	defaultRows   = 16
	chromeRows    = 5 // Title, status, help and spacing
	springFreq    = 8.0
	springDamping = 0.8
)

type keyMap struct {
	Pause  key.Binding
	Reset  key.Binding
	Smooth key.Binding
	Quit   key.Binding
}

var previewKeys = keyMap{
	Pause:  key.NewBinding(key.WithKeys(" ", "p"), key.WithHelp("space", "pause")),
	Reset:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
	Smooth: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "smoothing")),
	Quit:   key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) help() string {
	bindings := []key.Binding{k.Pause, k.Reset, k.Smooth, k.Quit}
	parts := make([]string, len(bindings))
	for i, b := range bindings {
		h := b.Help()
		parts[i] = h.Key + ": " + h.Desc
	}
	return strings.Join(parts, " • ")
}

type frameMsg time.Time

type pauseMsg struct {
	paused bool
	err    error
}

type resetMsg struct {
	err error
}

// PreviewModel renders the engine output as a bar chart in the terminal.
type PreviewModel struct {
	ctx      context.Context
	engine   Engine
	title    string
	interval time.Duration

	buf     []float32
	seq     uint64
	levels  []float64
	springs springField
	smooth  bool
	paused  bool

	width  int
	height int
	err    error
}

// NewPreviewModel creates a preview polling engine every interval.
func NewPreviewModel(ctx context.Context, engine Engine, title string, interval time.Duration) PreviewModel {
	if interval <= 0 {
		interval = time.Second / 60
	}
	fps := max(int(time.Second/interval), 1)

	return PreviewModel{
		ctx:      ctx,
		engine:   engine,
		title:    title,
		interval: interval,
		buf:      make([]float32, engine.Width()),
		springs:  newSpringField(fps, springFreq, springDamping),
		smooth:   true,
		width:    defaultCols,
		height:   defaultRows + chromeRows,
	}
}

func (m PreviewModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// Init starts the frame ticker.
func (m PreviewModel) Init() tea.Cmd {
	return m.tick()
}

func (m PreviewModel) togglePause() tea.Msg {
	paused, err := m.engine.TogglePause(m.ctx)
	return pauseMsg{paused: paused, err: err}
}

func (m PreviewModel) reset() tea.Msg {
	return resetMsg{err: m.engine.Reset(m.ctx)}
}

// Update handles frames, key presses and command results.
func (m PreviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case frameMsg:
		seq, err := m.engine.LatestInto(m.buf)
		if err != nil {
			m.err = err
			return m, tea.Quit
		}
		m.seq = seq
		m.paused = m.engine.Paused()
		m.updateLevels()
		return m, m.tick()

	case pauseMsg:
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			m.err = msg.err
		}
		m.paused = msg.paused

	case resetMsg:
		if msg.err != nil {
			m.err = msg.err
		}
		m.springs.reset()
		m.paused = false

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, previewKeys.Quit):
			return m, tea.Quit
		case key.Matches(msg, previewKeys.Pause):
			return m, m.togglePause
		case key.Matches(msg, previewKeys.Reset):
			return m, m.reset
		case key.Matches(msg, previewKeys.Smooth):
			m.smooth = !m.smooth
		}
	}

	return m, nil
}

// updateLevels folds the output buffer into one value per terminal column
// and eases the bars when smoothing is on.
func (m *PreviewModel) updateLevels() {
	cols := max(min(m.width, len(m.buf)), 1)
	if len(m.levels) != cols {
		m.levels = make([]float64, cols)
	}
	m.springs.resize(cols)

	downsample(m.levels, m.buf)
	if !m.smooth {
		return
	}
	for i, target := range m.levels {
		m.levels[i] = clamp01(m.springs.step(i, target))
	}
}

// downsample writes the maximum of each equal slice of src into dst.
func downsample(dst []float64, src []float32) {
	if len(src) == 0 {
		clear(dst)
		return
	}
	for c := range dst {
		lo := c * len(src) / len(dst)
		hi := max((c+1)*len(src)/len(dst), lo+1)

		var peak float32
		for _, v := range src[lo:min(hi, len(src))] {
			peak = max(peak, v)
		}
		dst[c] = float64(peak)
	}
}

// renderBars draws levels in [0, 1] as rows of block characters.
func renderBars(levels []float64, rows int) string {
	steps := float64(len(barChars) - 1)

	var sb strings.Builder
	for row := range rows {
		floor := float64(rows - 1 - row)
		for _, v := range levels {
			fill := clamp01(v*float64(rows) - floor)
			sb.WriteRune(barChars[int(fill*steps+0.5)])
		}
		if row < rows-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func clamp01(v float64) float64 {
	if !(v > 0) {
		return 0
	}
	return min(v, 1)
}

// View renders the bars with a status line and key help.
func (m PreviewModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n", m.err)
	}

	status := infoStyle.Render(fmt.Sprintf("frame %d • %d bins • smoothing %s",
		m.seq, len(m.buf), onOff(m.smooth)))
	if m.paused {
		status = pausedStyle.Render("PAUSED") + " " + status
	}

	bars := renderBars(m.levels, max(m.height-chromeRows, 1))
	if m.paused {
		bars = pausedBarStyle.Render(bars)
	} else {
		bars = barStyle.Render(bars)
	}

	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s",
		titleStyle.Render(m.title), status, bars, infoStyle.Render(previewKeys.help()))
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// RunPreview runs the preview until the user quits or ctx is cancelled.
func RunPreview(ctx context.Context, engine Engine, title string, interval time.Duration) error {
	p := tea.NewProgram(
		NewPreviewModel(ctx, engine, title, interval),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
