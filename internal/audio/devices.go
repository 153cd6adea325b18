// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gordonklaus/portaudio"
)

// DefaultDeviceID selects the loop-back source when one exists, else the
// host's default input.
const DefaultDeviceID = -1

// ErrNoDevice means no usable input device exists. Nothing can be
// visualized, so callers treat it as fatal.
var ErrNoDevice = errors.New("no audio input device")

// Indirection over the PortAudio library so tests can inject failures.
var (
	paLibInitialize             = portaudio.Initialize
	paLibTerminate              = portaudio.Terminate
	paLibDevicesFunc            = portaudio.Devices
	paLibDefaultInputDeviceFunc = portaudio.DefaultInputDevice
	paDevicesFunc               = paDevices
)

// Name fragments that identify a source carrying the system's output.
var loopbackMarkers = []string{"monitor", "loopback", "stereo mix", "blackhole", "what u hear"}

// Initialize sets up the PortAudio subsystem.
// This must be called before any audio operations and paired with a Terminate() call.
func Initialize() error {
	if err := paLibInitialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate cleanly shuts down the PortAudio subsystem.
// This should be deferred immediately after Initialize().
func Terminate() error {
	if err := paLibTerminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// InputDevice retrieves the capture device for the given device ID.
//
// With DefaultDeviceID the first input whose name marks it as a loop-back
// or monitor source wins; failing that, the host's default input is used.
// ErrNoDevice is returned when neither exists.
func InputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	devices, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}

	if deviceID == DefaultDeviceID {
		if device := LoopbackDevice(devices); device != nil {
			return device, nil
		}
		device, err := paLibDefaultInputDeviceFunc()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoDevice, err)
		}
		if device == nil || device.MaxInputChannels == 0 {
			return nil, ErrNoDevice
		}
		return device, nil
	}

	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("invalid device ID: %d", deviceID)
	}
	if devices[deviceID].MaxInputChannels == 0 {
		return nil, fmt.Errorf("device %d (%s) does not support input", deviceID, devices[deviceID].Name)
	}
	return devices[deviceID], nil
}

// LoopbackDevice returns the first input device that captures the system
// output, or nil.
func LoopbackDevice(devices []*portaudio.DeviceInfo) *portaudio.DeviceInfo {
	for _, d := range devices {
		if d != nil && d.MaxInputChannels > 0 && IsLoopbackName(d.Name) {
			return d
		}
	}
	return nil
}

// IsLoopbackName reports whether a device name marks a loop-back source.
func IsLoopbackName(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range loopbackMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// HostDevices returns all available audio devices.
func HostDevices() ([]Device, error) {
	paDeviceInfos, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}

	devices := make([]Device, len(paDeviceInfos))
	for i, info := range paDeviceInfos {
		devices[i] = newDevice(i, info)
	}
	return devices, nil
}

// ListDevices writes information about all available audio devices.
// For each device, it shows:
// - Device ID and name
// - Device type (Input/Output/Input+Output) and loop-back marker
// - Channel count
// - Default sample rate
// - Latency ranges
func ListDevices(w io.Writer) error {
	devices, err := HostDevices()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\nAvailable Audio Devices\n\n")

	for _, device := range devices {
		fmt.Fprintf(w, "[%d] %s (%s)", device.ID, device.Name, device.Type())
		if device.Loopback {
			fmt.Fprint(w, " [loop-back]")
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "    Input channels: %d, Output channels: %d\n", device.MaxInputChannels, device.MaxOutputChannels)
		fmt.Fprintf(w, "    Default sample rate: %.0f Hz\n", device.DefaultSampleRate)
		fmt.Fprintf(w, "    Latency: Low=%.2fms, High=%.2fms\n",
			device.LowInputLatency.Seconds()*1000,
			device.HighInputLatency.Seconds()*1000)
		fmt.Fprintln(w)
	}

	return nil
}

// paDevices returns all available PortAudio devices, never a nil slice on
// success.
func paDevices() ([]*portaudio.DeviceInfo, error) {
	devices, err := paLibDevicesFunc()
	if err != nil {
		return nil, err
	}
	if devices == nil {
		devices = []*portaudio.DeviceInfo{}
	}
	return devices, nil
}
