package capture

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// Device is one capture-capable endpoint, as shown by `steno devices`.
type Device struct {
	Index    int
	Name     string
	Channels int
	Default  bool
}

// ListDevices reports every input-capable device the host API knows about.
func ListDevices() ([]Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("init portaudio: %w", err)
	}
	defer portaudio.Terminate()

	all, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	def, _ := portaudio.DefaultInputDevice()

	var out []Device
	for i, info := range all {
		if info.MaxInputChannels <= 0 {
			continue
		}
		out = append(out, Device{
			Index:    i,
			Name:     info.Name,
			Channels: info.MaxInputChannels,
			Default:  def != nil && info == def,
		})
	}
	return out, nil
}

// micInput owns the portaudio host lifetime along with the stream.
type micInput struct {
	stream *portaudio.Stream
	buf    []int16
}

// openInput opens the given device, or the system default for a negative
// index, at the relay's fixed format.
func openInput(device int) (Input, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("init portaudio: %w", err)
	}

	buf := make([]int16, FrameSamples)
	stream, err := openStream(device, buf)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("start input: %w", err)
	}
	return &micInput{stream: stream, buf: buf}, nil
}

func openStream(device int, buf []int16) (*portaudio.Stream, error) {
	if device < 0 {
		stream, err := portaudio.OpenDefaultStream(1, 0, float64(SampleRate), FrameSamples, buf)
		if err != nil {
			return nil, fmt.Errorf("open default input: %w", err)
		}
		return stream, nil
	}

	all, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	if device >= len(all) {
		return nil, fmt.Errorf("device index %d out of range", device)
	}
	params := portaudio.LowLatencyParameters(all[device], nil)
	params.Input.Channels = 1
	params.SampleRate = float64(SampleRate)
	params.FramesPerBuffer = FrameSamples

	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return nil, fmt.Errorf("open input %d: %w", device, err)
	}
	return stream, nil
}

func (in *micInput) Read() ([]int16, error) {
	// Overflow means we were late draining the ring buffer; take the frame
	// anyway, like the rest of the pipeline expects.
	if err := in.stream.Read(); err != nil && err != portaudio.InputOverflowed {
		return nil, err
	}
	frame := make([]int16, len(in.buf))
	copy(frame, in.buf)
	return frame, nil
}

func (in *micInput) Close() error {
	err := in.stream.Stop()
	if cerr := in.stream.Close(); err == nil {
		err = cerr
	}
	if terr := portaudio.Terminate(); err == nil {
		err = terr
	}
	return err
}
