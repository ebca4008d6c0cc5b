// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"forestric/internal/audio"
)

// ScreenType defines which picker screen is active
type ScreenType int

const (
	ListScreen ScreenType = iota
	ConfigScreen
)

// BufferSizes are the frames-per-buffer choices offered for a device.
var BufferSizes = []int{128, 256, 512, 1024, 2048}

// DeviceLister returns the host devices. audio.Context.HostDevices fits.
type DeviceLister func() ([]audio.Device, error)

// DeviceChoice is what the picker returns once a device is confirmed.
type DeviceChoice struct {
	DeviceID        int
	Name            string
	FramesPerBuffer int
}

// YAML renders the choice as a playback section for forestric.yaml.
func (c DeviceChoice) YAML() string {
	return fmt.Sprintf("playback:\n  output_device: %d # %s\n  frames_per_buffer: %d\n",
		c.DeviceID, c.Name, c.FramesPerBuffer)
}

// DeviceListModel lists output devices and lets the user choose one with
// a buffer size.
type DeviceListModel struct {
	list          DeviceLister
	devices       []audio.Device
	selectedIndex int
	viewport      viewport.Model
	ready         bool
	err           error
	activeScreen  ScreenType

	bufferIndex int
	choice      *DeviceChoice
}

type devicesMsg struct {
	devices []audio.Device
}

type errMsg struct {
	err error
}

// NewDeviceListModel creates a picker. framesPerBuffer preselects the
// nearest buffer size.
func NewDeviceListModel(list DeviceLister, framesPerBuffer int) DeviceListModel {
	m := DeviceListModel{list: list, activeScreen: ListScreen}
	for i, n := range BufferSizes {
		if n <= framesPerBuffer {
			m.bufferIndex = i
		}
	}
	return m
}

// Init fetches the device list
func (m DeviceListModel) Init() tea.Cmd {
	list := m.list
	return func() tea.Msg {
		devices, err := list()
		if err != nil {
			return errMsg{err}
		}
		out := devices[:0:0]
		for _, d := range devices {
			if d.MaxOutputChannels > 0 {
				out = append(out, d)
			}
		}
		return devicesMsg{out}
	}
}

// Choice returns the confirmed device, if any.
func (m DeviceListModel) Choice() (DeviceChoice, bool) {
	if m.choice == nil {
		return DeviceChoice{}, false
	}
	return *m.choice, true
}

func (m DeviceListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.viewport.Style = lipgloss.NewStyle()
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.refresh()

	case devicesMsg:
		m.devices = msg.devices
		for i, d := range m.devices {
			if d.IsDefaultOutput {
				m.selectedIndex = i
			}
		}
		m.refresh()

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		if key.Matches(msg, key.NewBinding(key.WithKeys("q", "ctrl+c"))) {
			return m, tea.Quit
		}
		if m.err != nil {
			return m, tea.Quit
		}

		if m.activeScreen == ListScreen {
			switch {
			case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
				if m.selectedIndex > 0 {
					m.selectedIndex--
				}
			case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
				if m.selectedIndex < len(m.devices)-1 {
					m.selectedIndex++
				}
			case key.Matches(msg, key.NewBinding(key.WithKeys("enter"))):
				if len(m.devices) > 0 {
					m.activeScreen = ConfigScreen
				}
			}
		} else {
			switch {
			case key.Matches(msg, key.NewBinding(key.WithKeys("esc"))):
				m.activeScreen = ListScreen
			case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
				if m.bufferIndex > 0 {
					m.bufferIndex--
				}
			case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
				if m.bufferIndex < len(BufferSizes)-1 {
					m.bufferIndex++
				}
			case key.Matches(msg, key.NewBinding(key.WithKeys("enter"))):
				d := m.devices[m.selectedIndex]
				m.choice = &DeviceChoice{
					DeviceID:        d.ID,
					Name:            d.Name,
					FramesPerBuffer: BufferSizes[m.bufferIndex],
				}
				return m, tea.Quit
			}
		}
		m.refresh()
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *DeviceListModel) refresh() {
	if !m.ready {
		return
	}
	if m.activeScreen == ConfigScreen && len(m.devices) > 0 {
		m.viewport.SetContent(m.renderDeviceConfig())
		return
	}
	m.viewport.SetContent(m.renderDevices())
}

// View renders the UI
func (m DeviceListModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress any key to exit.", m.err)
	}

	var title, help string

	if m.activeScreen == ListScreen {
		title = titleStyle.Render("Output Devices")
		help = infoStyle.Render("↑/↓: Navigate • Enter: Configure • q: Quit")
	} else {
		title = titleStyle.Render("Device Configuration")
		help = infoStyle.Render("↑/↓: Buffer Size • Enter: Use Device • Esc: Back • q: Quit")
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

func (m DeviceListModel) renderDevices() string {
	if len(m.devices) == 0 {
		return "No output devices found."
	}

	var sb strings.Builder
	for i, device := range m.devices {
		marker := ""
		if device.IsDefaultOutput {
			marker = " (default)"
		}
		deviceInfo := fmt.Sprintf("[%d] %s%s\n", device.ID, device.Name, marker)
		deviceInfo += fmt.Sprintf("    Output channels: %d\n", device.MaxOutputChannels)
		deviceInfo += fmt.Sprintf("    Default sample rate: %.0f Hz\n", device.DefaultSampleRate)

		if i == m.selectedIndex {
			deviceInfo = highlightStyle.Render(deviceInfo)
		}

		sb.WriteString(deviceInfo)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m DeviceListModel) renderDeviceConfig() string {
	var sb strings.Builder
	device := m.devices[m.selectedIndex]

	fmt.Fprintf(&sb, "Configure Device: %s\n\n", device.Name)
	fmt.Fprintf(&sb, "Latency: Low=%.2fms, High=%.2fms\n\n",
		device.LowOutputLatency*1000, device.HighOutputLatency*1000)
	sb.WriteString("Frames per buffer:\n")

	for i, n := range BufferSizes {
		cursor := " "
		if i == m.bufferIndex {
			cursor = "▶"
		}
		line := fmt.Sprintf("  %s %d (%.1f ms)\n", cursor, n,
			float64(n)/device.DefaultSampleRate*1000)
		if i == m.bufferIndex {
			line = highlightStyle.Render(line)
		}
		sb.WriteString(line)
	}
	return sb.String()
}

// RunDevicePicker launches the picker and returns the confirmed choice.
func RunDevicePicker(list DeviceLister, framesPerBuffer int) (DeviceChoice, bool, error) {
	p := tea.NewProgram(
		NewDeviceListModel(list, framesPerBuffer),
		tea.WithAltScreen(),
	)
	final, err := p.Run()
	if err != nil {
		return DeviceChoice{}, false, err
	}
	choice, ok := final.(DeviceListModel).Choice()
	return choice, ok, nil
}
