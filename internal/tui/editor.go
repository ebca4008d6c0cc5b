// SPDX-License-Identifier: MIT
package tui

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"forestric/internal/analysis"
	"forestric/internal/audio"
	"forestric/internal/crop"
	"forestric/internal/formats"
	"forestric/internal/input"
	applog "forestric/internal/log"
	"forestric/internal/pcm"
	"forestric/internal/studio"
	"forestric/internal/waveform"
)

// Screen is the active editor screen.
type Screen int

const (
	ImportScreen Screen = iota
	EditScreen
)

const (
	// DefaultWaveRows is the waveform height in terminal rows.
	DefaultWaveRows = 10
	// NudgeSeconds is how far the arrow keys move a crop edge.
	NudgeSeconds = 0.1

	waveTop       = 4 // title, blank, mode line, blank
	spectrumSteps = 2
	volumeCells   = 20
)

// Field indices of the start/end inputs.
const (
	startMinutes = iota
	startSeconds
	endMinutes
	endSeconds
	fieldCount
)

type (
	frameMsg   analysis.SpectrumFrame
	endedMsg   struct{}
	decodedMsg struct {
		name string
		buf  *pcm.Buffer
		err  error
	}
	exportedMsg struct {
		path string
		err  error
	}
)

// EditorOptions wires the editor to the rest of the program.
type EditorOptions struct {
	// ExportDir receives exported files; empty means the working directory.
	ExportDir string
	// Decode turns file bytes into PCM. Defaults to audio.Decode.
	Decode studio.DecodeFunc
	// Frames and Ended carry engine callbacks onto the UI goroutine.
	Frames <-chan analysis.SpectrumFrame
	Ended  <-chan struct{}
	// Path is loaded on start when set.
	Path     string
	WaveRows int
}

type keyMap struct {
	Play     key.Binding
	Mode     key.Binding
	VolUp    key.Binding
	VolDown  key.Binding
	Export   key.Binding
	Reset    key.Binding
	Open     key.Binding
	Fields   key.Binding
	StartFwd key.Binding
	StartBck key.Binding
	EndFwd   key.Binding
	EndBck   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Play, k.Mode, k.Export, k.Reset, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Play, k.Mode, k.VolUp, k.VolDown},
		{k.StartBck, k.StartFwd, k.EndBck, k.EndFwd, k.Fields},
		{k.Export, k.Reset, k.Open, k.Help, k.Quit},
	}
}

var defaultKeys = keyMap{
	Play:     key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "play/stop")),
	Mode:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "render mode")),
	VolUp:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "volume up")),
	VolDown:  key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "volume down")),
	Export:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export mp3")),
	Reset:    key.NewBinding(key.WithKeys("t", "delete"), key.WithHelp("t", "trash")),
	Open:     key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open file")),
	Fields:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "edit times")),
	StartBck: key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "start -0.1s")),
	StartFwd: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "start +0.1s")),
	EndBck:   key.NewBinding(key.WithKeys("shift+left", "H"), key.WithHelp("⇧←", "end -0.1s")),
	EndFwd:   key.NewBinding(key.WithKeys("shift+right", "L"), key.WithHelp("⇧→", "end +0.1s")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// Editor is the Bubble Tea model of the crop editor. It owns the studio:
// every studio call happens inside Update.
type Editor struct {
	studio  *studio.Studio
	opts    EditorOptions
	keys    keyMap
	help    help.Model
	spinner spinner.Model
	ctx     context.Context
	cancel  context.CancelFunc

	screen   Screen
	width    int
	waveRows int

	surface input.Surface
	drag    *input.CropDrag
	frame   *waveform.Frame

	path   textinput.Model
	fields [fieldCount]textinput.Model
	focus  int // -1 when no field has focus

	bins      []uint8
	position  float64
	loading   bool
	exporting bool
	status    string
	err       error
}

// NewEditor builds an editor around s.
func NewEditor(s *studio.Studio, opts EditorOptions) *Editor {
	if opts.Decode == nil {
		opts.Decode = audio.Decode
	}
	if opts.WaveRows <= 0 {
		opts.WaveRows = DefaultWaveRows
	}
	ctx, cancel := context.WithCancel(context.Background())

	e := &Editor{
		studio:   s,
		opts:     opts,
		keys:     defaultKeys,
		help:     help.New(),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(highlightStyle)),
		ctx:      ctx,
		cancel:   cancel,
		width:    80,
		waveRows: opts.WaveRows,
		focus:    -1,
	}

	e.path = textinput.New()
	e.path.Placeholder = "path/to/audio.mp3"
	e.path.Prompt = "File: "
	e.path.Width = 60
	e.path.SetValue(opts.Path)
	e.path.Focus()

	for i := range e.fields {
		f := textinput.New()
		f.Prompt = ""
		f.CharLimit = 6
		f.Width = 6
		if i == startMinutes || i == endMinutes {
			f.Placeholder = "m"
		} else {
			f.Placeholder = "ss.ss"
		}
		e.fields[i] = f
	}

	e.drag = input.NewCropDrag(s.Crop, func(crop.Range) {
		e.syncFields()
		e.reselect()
	})
	e.surface.Add(e.waveRegion(), e.drag)

	if s.Loaded() {
		e.screen = EditScreen
		e.redraw()
		e.syncFields()
	}
	return e
}

// Init starts listening for engine events and loads the initial path.
func (e *Editor) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, e.waitFrame(), e.waitEnded()}
	if e.opts.Path != "" && !e.studio.Loaded() {
		cmds = append(cmds, e.load(e.opts.Path))
	}
	return tea.Batch(cmds...)
}

func (e *Editor) waitFrame() tea.Cmd {
	ch := e.opts.Frames
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		f, ok := <-ch
		if !ok {
			return nil
		}
		return frameMsg(f)
	}
}

func (e *Editor) waitEnded() tea.Cmd {
	ch := e.opts.Ended
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return endedMsg{}
	}
}

func (e *Editor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		e.width = max(msg.Width, 1)
		e.help.Width = msg.Width
		if e.opts.WaveRows == DefaultWaveRows && msg.Height > 0 {
			e.waveRows = max(4, min(msg.Height-12, 3*DefaultWaveRows))
		}
		e.surface.Resize(e.drag, e.waveRegion())
		e.redraw()
		return e, nil

	case frameMsg:
		if e.studio.Playing() {
			e.bins = msg.Bins
			e.position = msg.Position
		}
		return e, e.waitFrame()

	case endedMsg:
		e.bins = nil
		e.status = "Preview finished"
		return e, e.waitEnded()

	case decodedMsg:
		e.loading = false
		return e, e.adopt(msg)

	case exportedMsg:
		e.exporting = false
		if msg.err != nil {
			e.fail(msg.err)
			return e, nil
		}
		e.err = nil
		e.status = "Saved " + msg.path
		return e, nil

	case spinner.TickMsg:
		if !e.exporting && !e.loading {
			return e, nil
		}
		var cmd tea.Cmd
		e.spinner, cmd = e.spinner.Update(msg)
		return e, cmd

	case tea.MouseMsg:
		e.mouse(msg)
		return e, nil

	case tea.KeyMsg:
		if key.Matches(msg, key.NewBinding(key.WithKeys("ctrl+c"))) {
			return e, e.quit()
		}
		if e.screen == ImportScreen {
			return e, e.importKey(msg)
		}
		return e, e.editKey(msg)
	}
	return e, nil
}

func (e *Editor) quit() tea.Cmd {
	e.studio.Stop()
	e.cancel()
	return tea.Quit
}

func (e *Editor) importKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEnter:
		return e.load(strings.TrimSpace(e.path.Value()))
	case tea.KeyEsc:
		if e.studio.Loaded() {
			e.screen = EditScreen
			return nil
		}
		return e.quit()
	}
	var cmd tea.Cmd
	e.path, cmd = e.path.Update(msg)
	return cmd
}

func (e *Editor) editKey(msg tea.KeyMsg) tea.Cmd {
	if e.focus >= 0 {
		return e.fieldKey(msg)
	}

	switch {
	case key.Matches(msg, e.keys.Quit):
		return e.quit()
	case key.Matches(msg, e.keys.Play):
		e.bins = nil
		if err := e.studio.Toggle(); err != nil {
			e.fail(err)
		} else if e.studio.Playing() {
			e.err = nil
			e.status = "Playing " + e.studio.Mode().Label()
		} else {
			e.status = "Stopped"
		}
	case key.Matches(msg, e.keys.Mode):
		m := e.studio.CycleMode()
		e.status = fmt.Sprintf("%s (%.1fx)", m.Label(), m.Rate())
	case key.Matches(msg, e.keys.VolUp):
		e.studio.NudgeVolume(1)
	case key.Matches(msg, e.keys.VolDown):
		e.studio.NudgeVolume(-1)
	case key.Matches(msg, e.keys.Export):
		return e.startExport()
	case key.Matches(msg, e.keys.Reset):
		e.surface.Cancel()
		e.studio.Reset()
		e.frame, e.bins = nil, nil
		e.screen = ImportScreen
		e.path.SetValue("")
		e.status = "Cleared"
		return e.path.Focus()
	case key.Matches(msg, e.keys.Open):
		e.screen = ImportScreen
		return e.path.Focus()
	case key.Matches(msg, e.keys.Fields):
		return e.focusField(startMinutes)
	case key.Matches(msg, e.keys.StartBck):
		e.nudge(crop.Start, -NudgeSeconds)
	case key.Matches(msg, e.keys.StartFwd):
		e.nudge(crop.Start, NudgeSeconds)
	case key.Matches(msg, e.keys.EndBck):
		e.nudge(crop.End, -NudgeSeconds)
	case key.Matches(msg, e.keys.EndFwd):
		e.nudge(crop.End, NudgeSeconds)
	case key.Matches(msg, e.keys.Help):
		e.help.ShowAll = !e.help.ShowAll
	}
	return nil
}

func (e *Editor) fieldKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyTab:
		return e.focusField((e.focus + 1) % fieldCount)
	case tea.KeyShiftTab:
		return e.focusField((e.focus + fieldCount - 1) % fieldCount)
	case tea.KeyEnter:
		e.applyFields()
		e.blurFields()
		return nil
	case tea.KeyEsc:
		e.blurFields()
		e.syncFields()
		return nil
	}
	var cmd tea.Cmd
	e.fields[e.focus], cmd = e.fields[e.focus].Update(msg)
	return cmd
}

func (e *Editor) focusField(i int) tea.Cmd {
	if !e.studio.Loaded() {
		return nil
	}
	e.blurFields()
	e.focus = i
	return e.fields[i].Focus()
}

func (e *Editor) blurFields() {
	for i := range e.fields {
		e.fields[i].Blur()
	}
	e.focus = -1
}

// applyFields commits the typed times as one range update.
func (e *Editor) applyFields() {
	m := e.studio.Crop()
	if m == nil {
		return
	}
	start := crop.FromMinutesSeconds(e.fields[startMinutes].Value(), e.fields[startSeconds].Value())
	end := crop.FromMinutesSeconds(e.fields[endMinutes].Value(), e.fields[endSeconds].Value())
	m.SetRange(start, end)
	e.syncFields()
	e.reselect()
}

// syncFields shows the current range in the inputs that are not being
// edited.
func (e *Editor) syncFields() {
	rng := e.studio.Range()
	values := [fieldCount]string{}
	sm, ss := crop.ToMinutesSeconds(rng.Start)
	em, es := crop.ToMinutesSeconds(rng.End)
	values[startMinutes] = fmt.Sprint(sm)
	values[startSeconds] = fmt.Sprintf("%.2f", ss)
	values[endMinutes] = fmt.Sprint(em)
	values[endSeconds] = fmt.Sprintf("%.2f", es)
	for i := range e.fields {
		if i != e.focus {
			e.fields[i].SetValue(values[i])
		}
	}
}

func (e *Editor) nudge(edge crop.Edge, delta float64) {
	m := e.studio.Crop()
	if m == nil {
		return
	}
	if edge == crop.Start {
		m.SetStart(m.Start() + delta)
	} else {
		m.SetEnd(m.End() + delta)
	}
	e.syncFields()
	e.reselect()
}

func (e *Editor) mouse(msg tea.MouseMsg) {
	if e.screen != EditScreen {
		return
	}
	ev := input.Event{X: float64(msg.X), Y: float64(msg.Y)}
	switch {
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		ev.Phase = input.Press
	case msg.Action == tea.MouseActionMotion:
		ev.Phase = input.Move
	case msg.Action == tea.MouseActionRelease:
		ev.Phase = input.Release
	default:
		return
	}
	e.surface.Dispatch(ev)
}

func (e *Editor) waveRegion() input.Region {
	return input.Region{
		X0: 0, Y0: waveTop,
		X1: float64(e.width), Y1: float64(waveTop + e.waveRows),
	}
}

// load reads and decodes path off the UI goroutine.
func (e *Editor) load(path string) tea.Cmd {
	if path == "" {
		e.fail(audio.ErrNoFile)
		return nil
	}
	name := filepath.Base(path)
	if !formats.LooksLikeAudio(name, mime.TypeByExtension(filepath.Ext(name))) {
		applog.Warnf("Editor: %s is outside the accepted types, trying anyway", name)
	}

	e.studio.Stop()
	e.loading = true
	e.err = nil
	e.status = "Decoding " + name

	ctx, decode := e.ctx, e.opts.Decode
	return tea.Batch(e.spinner.Tick, func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			return decodedMsg{name: name, err: &audio.DecodeError{Name: name, Err: err}}
		}
		buf, err := decode(ctx, name, data)
		return decodedMsg{name: name, buf: buf, err: err}
	})
}

func (e *Editor) adopt(msg decodedMsg) tea.Cmd {
	e.surface.Cancel()
	err := msg.err
	if err == nil {
		err = e.studio.SetTrack(msg.name, msg.buf)
	} else {
		e.studio.Reset()
	}
	if err != nil {
		e.frame, e.bins = nil, nil
		e.screen = ImportScreen
		e.fail(err)
		return e.path.Focus()
	}

	e.path.Blur()
	e.screen = EditScreen
	e.bins = nil
	e.blurFields()
	e.syncFields()
	e.redraw()
	e.status = fmt.Sprintf("Loaded %s (%s)", msg.name,
		crop.FormatMinutesSeconds(msg.buf.Duration()))
	return nil
}

func (e *Editor) startExport() tea.Cmd {
	req, ok := e.studio.ExportRequest()
	if !ok {
		return nil
	}
	if e.exporting || e.studio.Exporting() {
		e.status = "An export is already running"
		return nil
	}
	e.exporting = true
	e.err = nil
	e.status = "Exporting " + req.Mode.Label()

	ctx, dir, s := e.ctx, e.opts.ExportDir, e.studio
	return tea.Batch(e.spinner.Tick, func() tea.Msg {
		f, err := s.Export(ctx, req)
		if err != nil {
			return exportedMsg{err: err}
		}
		path, err := f.Save(dir)
		return exportedMsg{path: path, err: err}
	})
}

func (e *Editor) fail(err error) {
	applog.Errorf("Editor: %v", err)
	e.err = err
	e.status = ""
}

// redraw recomputes the waveform for the current size.
func (e *Editor) redraw() {
	t := e.studio.Track()
	if t == nil {
		e.frame = nil
		return
	}
	f, err := waveform.Render(t.Buffer, e.studio.Range(), e.width, e.waveRows*cellPixels)
	if err != nil {
		e.frame = nil
		return
	}
	e.frame = &f
}

// reselect moves the selection without rescanning the samples.
func (e *Editor) reselect() {
	if e.frame == nil {
		e.redraw()
		return
	}
	if m := e.studio.Crop(); m != nil {
		e.frame.Select(m.Range(), m.Duration())
	}
}

func (e *Editor) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("forestric"))
	if t := e.studio.Track(); t != nil && e.screen == EditScreen {
		sb.WriteString(" " + infoStyle.Render(t.Name) + " " +
			dimStyle.Render(crop.FormatMinutesSeconds(t.Buffer.Duration())))
	}
	sb.WriteString("\n\n")

	if e.screen == ImportScreen {
		sb.WriteString(e.importView())
	} else {
		sb.WriteString(e.editView())
	}

	sb.WriteString("\n")
	switch {
	case e.err != nil:
		sb.WriteString(errorStyle.Render("Error: " + e.err.Error()))
	case e.loading || e.exporting:
		sb.WriteString(e.spinner.View() + " " + e.status)
	default:
		sb.WriteString(dimStyle.Render(e.status))
	}
	sb.WriteString("\n\n")
	if e.screen == EditScreen {
		sb.WriteString(e.help.View(e.keys))
	} else {
		sb.WriteString(dimStyle.Render("enter: open • esc: back • ctrl+c: quit"))
	}
	return sb.String()
}

func (e *Editor) importView() string {
	var sb strings.Builder
	sb.WriteString(infoStyle.Render("Open an audio file (.mp3, .wav, .m4a, .ogg)"))
	sb.WriteString("\n\n")
	sb.WriteString(e.path.View())
	sb.WriteString("\n")
	return sb.String()
}

func (e *Editor) editView() string {
	var sb strings.Builder
	sb.WriteString(e.modeLine())
	sb.WriteString("\n\n")
	sb.WriteString(e.waveView())
	sb.WriteString("\n")
	sb.WriteString(e.fieldsLine())
	sb.WriteString("\n")
	sb.WriteString(e.volumeLine())
	sb.WriteString("\n")
	return sb.String()
}

func (e *Editor) modeLine() string {
	cur := e.studio.Mode()
	parts := make([]string, 0, len(audio.Modes)+1)
	for _, m := range audio.Modes {
		label := fmt.Sprintf(" %s ", m.Label())
		if m == cur {
			parts = append(parts, titleStyle.Render(label))
		} else {
			parts = append(parts, dimStyle.Render(label))
		}
	}
	parts = append(parts, fmt.Sprintf(" %.1fx (+%.1f st)  %s",
		cur.Rate(), cur.Semitones(), dimStyle.Render(cur.PitchHint())))
	return lipgloss.JoinHorizontal(lipgloss.Center, parts...)
}

func (e *Editor) waveView() string {
	if e.frame == nil {
		return strings.Repeat("\n", e.waveRows-1)
	}
	g := newWaveGrid(*e.frame, e.waveRows)
	if e.studio.Playing() {
		if len(e.bins) > 0 {
			p := waveform.Overlay(e.bins, e.frame.Width, e.frame.Height)
			g.plot(p.Points(spectrumSteps))
		}
		if d := e.studio.Crop().Duration(); d > 0 {
			g.playhead(int(e.position / d * float64(e.frame.Width)))
		}
	}
	return g.String()
}

func (e *Editor) fieldsLine() string {
	box := func(i int) string {
		if i == e.focus {
			return focusedFieldStyle.Render(e.fields[i].View())
		}
		return fieldStyle.Render(e.fields[i].View())
	}
	rng := e.studio.Range()
	out := rng.Span() / e.studio.Mode().Rate()
	summary := fmt.Sprintf("  Selection %s → Output %s",
		crop.FormatMinutesSeconds(rng.Span()), crop.FormatMinutesSeconds(out))

	return lipgloss.JoinHorizontal(lipgloss.Center,
		"Start ", box(startMinutes), ":", box(startSeconds),
		"   End ", box(endMinutes), ":", box(endSeconds),
		dimStyle.Render(summary),
	)
}

func (e *Editor) volumeLine() string {
	v := e.studio.Volume()
	filled := int(v/studio.MaxVolume*volumeCells + 0.5)
	bar := highlightStyle.Render(strings.Repeat("▮", filled)) +
		dimStyle.Render(strings.Repeat("▯", volumeCells-filled))
	return fmt.Sprintf("Volume %.2f %s", v, bar)
}

// RunEditor runs the editor full screen with mouse support until the user
// quits or ctx is cancelled.
func RunEditor(ctx context.Context, s *studio.Studio, opts EditorOptions) error {
	p := tea.NewProgram(
		NewEditor(s, opts),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
