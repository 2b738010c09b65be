package assistant

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	FrameSamples     = 4096
	InputSampleRate  = 16000
	OutputSampleRate = 24000
)

// InputMIME tags outbound microphone frames.
var InputMIME = fmt.Sprintf("audio/pcm;rate=%d", InputSampleRate)

// EncodePCM16 converts [-1, 1] float samples to little-endian signed 16-bit PCM.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(math.Round(float64(s)*math.MaxInt16))))
	}
	return out
}

// DecodePCM16 converts little-endian signed 16-bit PCM to float samples.
// A trailing odd byte is ignored.
func DecodePCM16(data []byte) []float32 {
	out := make([]float32, len(data)/2)
	for i := range out {
		out[i] = float32(int16(binary.LittleEndian.Uint16(data[2*i:]))) / 32768
	}
	return out
}

// SampleRate reads the rate parameter of an "audio/pcm;rate=N" MIME type.
func SampleRate(mime string, fallback int) int {
	for _, param := range strings.Split(mime, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok || k != "rate" {
			continue
		}
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

// SamplesDuration is how long n samples play at rate.
func SamplesDuration(n, rate int) time.Duration {
	return time.Duration(n) * time.Second / time.Duration(rate)
}

// Framer cuts an arbitrary sample stream into fixed-size frames.
type Framer struct {
	size int
	buf  []float32
}

func NewFramer(size int) *Framer {
	return &Framer{size: size, buf: make([]float32, 0, size)}
}

// Push appends samples and returns every completed frame.
func (f *Framer) Push(samples []float32) [][]float32 {
	var frames [][]float32
	for len(samples) > 0 {
		n := f.size - len(f.buf)
		if n > len(samples) {
			n = len(samples)
		}
		f.buf = append(f.buf, samples[:n]...)
		samples = samples[n:]
		if len(f.buf) == f.size {
			frames = append(frames, f.buf)
			f.buf = make([]float32, 0, f.size)
		}
	}
	return frames
}

// PlayHandle is one scheduled output buffer.
type PlayHandle interface {
	Stop()
}

// AudioOutput is the playback side of a voice session.
type AudioOutput interface {
	// Now is the output clock, measured from when the output was opened.
	Now() time.Duration
	Play(samples []float32, sampleRate int, at time.Duration) (PlayHandle, error)
	Close() error
}

type scheduled struct {
	handle PlayHandle
	end    time.Duration
}

// Scheduler queues inbound audio back to back on an AudioOutput.
type Scheduler struct {
	out AudioOutput

	mu      sync.Mutex
	cursor  time.Duration
	playing []scheduled
}

func NewScheduler(out AudioOutput) *Scheduler {
	return &Scheduler{out: out}
}

// Schedule plays samples at max(cursor, now) and advances the cursor by
// their duration.
func (s *Scheduler) Schedule(samples []float32, rate int) (start, dur time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.out.Now()
	start = s.cursor
	if now > start {
		start = now
	}
	dur = SamplesDuration(len(samples), rate)

	h, err := s.out.Play(samples, rate, start)
	if err != nil {
		return 0, 0, err
	}

	live := s.playing[:0]
	for _, p := range s.playing {
		if p.end > now {
			live = append(live, p)
		}
	}
	s.playing = append(live, scheduled{handle: h, end: start + dur})
	s.cursor = start + dur
	return start, dur, nil
}

// Interrupt stops every buffer that may still be audible and rewinds the
// cursor to zero. It returns how many buffers were stopped.
func (s *Scheduler) Interrupt() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.playing)
	for _, p := range s.playing {
		p.handle.Stop()
	}
	s.playing = nil
	s.cursor = 0
	return n
}

func (s *Scheduler) Cursor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Pending is the number of buffers that may still be playing.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.playing)
}
