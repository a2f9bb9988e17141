package audio

import (
	"sync"

	"github.com/gordonklaus/portaudio"

	apperrors "github.com/GriffinCanCode/league-vision/internal/errors"
)

const framesPerBuffer = 512

// Device plays through the default PortAudio output.
type Device struct {
	mu       sync.Mutex
	stream   *portaudio.Stream
	buf      []float32
	stopOnce sync.Once
}

// OpenDevice initializes PortAudio and opens a mono output stream.
func OpenDevice(sampleRate int) (*Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnavailable, "initialize audio")
	}

	d := &Device{buf: make([]float32, framesPerBuffer)}
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(sampleRate), framesPerBuffer, d.buf)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, apperrors.Wrap(err, apperrors.CodeUnavailable, "open audio output")
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		_ = portaudio.Terminate()
		return nil, apperrors.Wrap(err, apperrors.CodeUnavailable, "start audio output")
	}
	d.stream = stream
	return d, nil
}

// Play writes samples in buffer-sized frames, padding the last one with silence.
func (d *Device) Play(samples []float32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stream == nil {
		return apperrors.New(apperrors.CodeUnavailable, "audio device closed")
	}

	for off := 0; off < len(samples); off += len(d.buf) {
		n := copy(d.buf, samples[off:])
		clear(d.buf[n:])
		if err := d.stream.Write(); err != nil {
			return apperrors.Wrap(err, apperrors.CodeUnavailable, "write audio")
		}
	}
	return nil
}

// Close stops the stream and terminates PortAudio. Safe to call repeatedly.
func (d *Device) Close() error {
	var err error
	d.stopOnce.Do(func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.stream != nil {
			_ = d.stream.Stop()
			err = d.stream.Close()
			d.stream = nil
		}
		_ = portaudio.Terminate()
	})
	return err
}
