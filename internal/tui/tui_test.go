package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"visualizer/internal/source"

	tea "github.com/charmbracelet/bubbletea"
)

type fakeEngine struct {
	output  []float32
	seq     uint64
	paused  bool
	resets  int
	readErr error
}

func (f *fakeEngine) Width() int   { return len(f.output) }
func (f *fakeEngine) Paused() bool { return f.paused }

func (f *fakeEngine) LatestInto(dst []float32) (uint64, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	f.seq++
	copy(dst, f.output)
	return f.seq, nil
}

func (f *fakeEngine) TogglePause(context.Context) (bool, error) {
	f.paused = !f.paused
	return f.paused, nil
}

func (f *fakeEngine) Reset(context.Context) error {
	f.resets++
	f.paused = false
	return nil
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m tea.Model, msg tea.Msg) (tea.Model, tea.Cmd) {
	t.Helper()
	return m.Update(msg)
}

func TestDownsample(t *testing.T) {
	src := []float32{0, 0.2, 0.9, 0.1, 0.5, 0.4, 0, 1}
	dst := make([]float64, 4)
	downsample(dst, src)

	want := []float64{0.2, 0.9, 0.5, 1}
	for i := range want {
		if float32(dst[i]) != float32(want[i]) {
			t.Errorf("dst[%d] = %f, want %f", i, dst[i], want[i])
		}
	}

	wide := make([]float64, 3)
	downsample(wide, nil)
	for i, v := range wide {
		if v != 0 {
			t.Errorf("empty source dst[%d] = %f", i, v)
		}
	}
}

func TestRenderBars(t *testing.T) {
	out := renderBars([]float64{0, 0.5, 1}, 2)
	rows := strings.Split(out, "\n")
	if len(rows) != 2 {
		t.Fatalf("rendered %d rows, want 2", len(rows))
	}
	if rows[0] != "  █" {
		t.Errorf("top row = %q, want %q", rows[0], "  █")
	}
	if rows[1] != " ██" {
		t.Errorf("bottom row = %q, want %q", rows[1], " ██")
	}

	out = renderBars([]float64{-1, 2}, 1)
	if out != " █" {
		t.Errorf("clamped row = %q", out)
	}
}

func TestPreviewFrame(t *testing.T) {
	engine := &fakeEngine{output: []float32{0, 0.5, 1, 1, 0.5, 0}}
	m := NewPreviewModel(context.Background(), engine, "test", time.Millisecond)
	m.smooth = false

	next, cmd := update(t, m, tea.WindowSizeMsg{Width: 3, Height: 10})
	next, cmd = update(t, next, frameMsg(time.Now()))
	if cmd == nil {
		t.Fatal("frame should schedule the next tick")
	}

	pm := next.(PreviewModel)
	if pm.seq != 1 {
		t.Errorf("seq = %d, want 1", pm.seq)
	}
	want := []float64{0.5, 1, 0.5}
	if len(pm.levels) != len(want) {
		t.Fatalf("levels = %v, want %v", pm.levels, want)
	}
	for i := range want {
		if pm.levels[i] != want[i] {
			t.Errorf("levels[%d] = %f, want %f", i, pm.levels[i], want[i])
		}
	}

	view := pm.View()
	if !strings.Contains(view, "frame 1") || !strings.Contains(view, "█") {
		t.Errorf("view missing frame status or bars:\n%s", view)
	}
}

func TestPreviewSmoothingStaysInRange(t *testing.T) {
	engine := &fakeEngine{output: []float32{1, 1, 1, 1}}
	var model tea.Model = NewPreviewModel(context.Background(), engine, "test", 10*time.Millisecond)

	for range 100 {
		model, _ = update(t, model, frameMsg(time.Now()))
		for i, v := range model.(PreviewModel).levels {
			if v < 0 || v > 1 {
				t.Fatalf("level %d = %f out of range", i, v)
			}
		}
	}
	if lvl := model.(PreviewModel).levels[0]; lvl < 0.9 {
		t.Errorf("spring did not settle near target, level = %f", lvl)
	}
}

func TestPreviewKeys(t *testing.T) {
	engine := &fakeEngine{output: make([]float32, 8)}
	var model tea.Model = NewPreviewModel(context.Background(), engine, "test", time.Millisecond)

	model, cmd := update(t, model, keyPress(" "))
	if cmd == nil {
		t.Fatal("pause key should return a command")
	}
	model, _ = update(t, model, cmd())
	if !model.(PreviewModel).paused || !engine.paused {
		t.Error("pause key should pause the engine")
	}
	if !strings.Contains(model.View(), "PAUSED") {
		t.Error("view should show the paused badge")
	}

	model, cmd = update(t, model, keyPress("r"))
	model, _ = update(t, model, cmd())
	if engine.resets != 1 || model.(PreviewModel).paused {
		t.Errorf("reset key: resets=%d paused=%v", engine.resets, model.(PreviewModel).paused)
	}

	model, _ = update(t, model, keyPress("s"))
	if model.(PreviewModel).smooth {
		t.Error("s should turn smoothing off")
	}

	_, cmd = update(t, model, keyPress("q"))
	if cmd == nil {
		t.Fatal("quit key should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("quit key should quit")
	}
}

func TestPreviewQuitsOnEngineError(t *testing.T) {
	engine := &fakeEngine{output: make([]float32, 4), readErr: errors.New("engine closed")}
	m := NewPreviewModel(context.Background(), engine, "test", time.Millisecond)

	next, cmd := update(t, m, frameMsg(time.Now()))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("engine error should quit")
	}
	if !strings.Contains(next.View(), "engine closed") {
		t.Errorf("view should show the error, got %q", next.View())
	}
}

func testDevices() ([]source.Device, error) {
	return []source.Device{
		{ID: 0, Name: "Speakers", MaxOutputChannels: 2, DefaultSampleRate: 48000},
		{ID: 1, Name: "Microphone", MaxInputChannels: 1, DefaultSampleRate: 48000},
		{ID: 2, Name: "Interface", MaxInputChannels: 2, MaxOutputChannels: 2, DefaultSampleRate: 96000},
	}, nil
}

func TestDevicePickerFiltersInputs(t *testing.T) {
	m := NewDeviceListModel(testDevices)
	msg := m.fetchDevices()

	dm, ok := msg.(devicesMsg)
	if !ok {
		t.Fatalf("fetchDevices() = %T, want devicesMsg", msg)
	}
	if len(dm.devices) != 2 || dm.devices[0].Name != "Microphone" {
		t.Errorf("input devices = %+v", dm.devices)
	}
}

func TestDevicePickerSelection(t *testing.T) {
	var model tea.Model = NewDeviceListModel(testDevices)
	model, _ = update(t, model, tea.WindowSizeMsg{Width: 80, Height: 24})
	model, _ = update(t, model, model.(DeviceListModel).fetchDevices())

	if !strings.Contains(model.View(), "Microphone") {
		t.Errorf("device list view missing device:\n%s", model.View())
	}

	model, _ = update(t, model, keyPress("down"))
	model, _ = update(t, model, keyPress("enter"))

	dm := model.(DeviceListModel)
	if dm.activeScreen != ConfigScreen {
		t.Fatal("enter should open the configuration screen")
	}
	if dm.selectedSampleRate != 96000 {
		t.Errorf("preselected rate = %.0f, want 96000", dm.selectedSampleRate)
	}

	model, _ = update(t, model, keyPress("up"))
	model, cmd := update(t, model, keyPress("enter"))

	sel, ok := model.(DeviceListModel).Selection()
	if !ok {
		t.Fatal("expected a selection")
	}
	if sel.DeviceID != 2 || sel.SampleRate != 88200 {
		t.Errorf("selection = %+v", sel)
	}
	if cmd == nil {
		t.Fatal("confirming should quit the picker")
	}
}

func TestDevicePickerQuitWithoutSelection(t *testing.T) {
	var model tea.Model = NewDeviceListModel(testDevices)
	model, _ = update(t, model, keyPress("q"))

	if _, ok := model.(DeviceListModel).Selection(); ok {
		t.Error("quitting should not produce a selection")
	}
}

func TestDevicePickerError(t *testing.T) {
	var model tea.Model = NewDeviceListModel(func() ([]source.Device, error) {
		return nil, errors.New("no host")
	})
	model, _ = update(t, model, tea.WindowSizeMsg{Width: 80, Height: 24})
	model, _ = update(t, model, model.(DeviceListModel).fetchDevices())

	if !strings.Contains(model.View(), "no host") {
		t.Errorf("view should show the error:\n%s", model.View())
	}
}

func TestHelpText(t *testing.T) {
	h := previewKeys.help()
	for _, want := range []string{"space: pause", "r: reset", "q: quit"} {
		if !strings.Contains(h, want) {
			t.Errorf("help %q missing %q", h, want)
		}
	}
	if !utf8.ValidString(h) {
		t.Error("help is not valid UTF-8")
	}
}
