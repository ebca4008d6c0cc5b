// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"io"

	"github.com/gordonklaus/portaudio"
)

// DefaultDeviceID selects the host's default output device.
const DefaultDeviceID = -1

// Device describes one host audio device.
type Device struct {
	ID                int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	LowOutputLatency  float64 // seconds
	HighOutputLatency float64 // seconds
	IsDefaultOutput   bool
}

// Swappable for tests that must not touch the audio hardware.
var (
	paDevicesFunc       = portaudio.Devices
	paDefaultOutputFunc = portaudio.DefaultOutputDevice
)

// HostDevices lists every device PortAudio reports, starting the host on
// first use.
func (c *Context) HostDevices() ([]Device, error) {
	if err := c.EnsureHost(); err != nil {
		return nil, err
	}
	infos, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}
	def, _ := paDefaultOutputFunc()

	devices := make([]Device, len(infos))
	for i, info := range infos {
		devices[i] = Device{
			ID:                i,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			MaxOutputChannels: info.MaxOutputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
			LowOutputLatency:  info.DefaultLowOutputLatency.Seconds(),
			HighOutputLatency: info.DefaultHighOutputLatency.Seconds(),
			IsDefaultOutput:   def != nil && info == def,
		}
	}
	return devices, nil
}

// outputDevice resolves a device ID to a PortAudio device able to play.
func (c *Context) outputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	if err := c.EnsureHost(); err != nil {
		return nil, err
	}
	if deviceID == DefaultDeviceID {
		return paDefaultOutputFunc()
	}
	devices, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}
	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("invalid device ID: %d", deviceID)
	}
	if devices[deviceID].MaxOutputChannels == 0 {
		return nil, fmt.Errorf("device %d (%s) has no output channels", deviceID, devices[deviceID].Name)
	}
	return devices[deviceID], nil
}

// WriteDeviceList prints the devices able to play audio.
func WriteDeviceList(w io.Writer, devices []Device) {
	fmt.Fprintf(w, "\nAvailable Output Devices\n\n")
	for _, d := range devices {
		if d.MaxOutputChannels == 0 {
			continue
		}
		marker := ""
		if d.IsDefaultOutput {
			marker = " (default)"
		}
		fmt.Fprintf(w, "[%d] %s%s\n", d.ID, d.Name, marker)
		fmt.Fprintf(w, "    Output channels: %d\n", d.MaxOutputChannels)
		fmt.Fprintf(w, "    Default sample rate: %.0f Hz\n", d.DefaultSampleRate)
		fmt.Fprintf(w, "    Latency: Low=%.2fms, High=%.2fms\n\n",
			d.LowOutputLatency*1000, d.HighOutputLatency*1000)
	}
}
