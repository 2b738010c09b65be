// README: Voice session state machine bridging microphone frames and provider audio over one live connection.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"nest/internal/ai"
	"nest/internal/logger"
	"nest/internal/metrics"
)

type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

var (
	ErrSessionUsed = errors.New("voice session already started")
	errClosedEarly = errors.New("voice session closed while connecting")
)

// AudioInput is a microphone stream. ReadSamples returns io.EOF when the
// stream ends.
type AudioInput interface {
	ReadSamples(ctx context.Context) ([]float32, error)
	Close() error
}

// Devices opens the audio endpoints of one session.
type Devices interface {
	OpenInput(ctx context.Context) (AudioInput, error)
	OpenOutput(ctx context.Context) (AudioOutput, error)
}

// Handlers are invoked from the session goroutines. They must not call
// Close synchronously.
type Handlers struct {
	OnState       func(State)
	OnInterrupted func(stopped int)
	OnText        func(string)
}

type VoiceConfig struct {
	// QueueSize bounds the outbound frame queue; frames beyond it are dropped.
	QueueSize int
	Handlers  Handlers
}

const DefaultQueueSize = 32

// VoiceSession owns one duplex audio connection. It is single use:
// Idle → Connecting → Open → Closed.
type VoiceSession struct {
	creds   ai.CredentialProvider
	factory ai.ClientFactory
	devices Devices
	log     logger.Logger
	cfg     VoiceConfig

	mu     sync.Mutex
	state  State
	in     AudioInput
	out    AudioOutput
	remote ai.LiveSession
	sched  *Scheduler
	cancel context.CancelFunc
	queue  chan []float32

	dropped   int
	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

func NewVoiceSession(creds ai.CredentialProvider, factory ai.ClientFactory, devices Devices, log logger.Logger, cfg VoiceConfig) *VoiceSession {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &VoiceSession{
		creds:   creds,
		factory: factory,
		devices: devices,
		log:     log,
		cfg:     cfg,
		done:    make(chan struct{}),
	}
}

func (v *VoiceSession) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Done is closed once the session has been torn down.
func (v *VoiceSession) Done() <-chan struct{} { return v.done }

// Dropped is the number of microphone frames discarded on a full queue.
func (v *VoiceSession) Dropped() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.dropped
}

// Scheduler exposes the playback scheduler of an open session, or nil.
func (v *VoiceSession) Scheduler() *Scheduler {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sched
}

func (v *VoiceSession) setState(s State) {
	v.mu.Lock()
	if v.state == StateClosed {
		v.mu.Unlock()
		return
	}
	v.state = s
	v.mu.Unlock()
	if v.cfg.Handlers.OnState != nil {
		v.cfg.Handlers.OnState(s)
	}
}

// Start acquires the audio endpoints, connects the live session and starts
// streaming. On failure everything acquired so far is released.
func (v *VoiceSession) Start(ctx context.Context) error {
	const op = "voice_connect"

	v.mu.Lock()
	if v.state != StateIdle {
		v.mu.Unlock()
		return ErrSessionUsed
	}
	v.mu.Unlock()
	v.setState(StateConnecting)

	fail := func(err error) error {
		_ = v.Close()
		return err
	}

	in, err := v.devices.OpenInput(ctx)
	if err != nil {
		return fail(fmt.Errorf("open microphone: %w", err))
	}
	v.mu.Lock()
	if v.state == StateClosed {
		v.mu.Unlock()
		_ = in.Close()
		return errClosedEarly
	}
	v.in = in
	v.mu.Unlock()

	out, err := v.devices.OpenOutput(ctx)
	if err != nil {
		return fail(fmt.Errorf("open audio output: %w", err))
	}
	v.mu.Lock()
	if v.state == StateClosed {
		v.mu.Unlock()
		_ = out.Close()
		return errClosedEarly
	}
	v.out = out
	v.sched = NewScheduler(out)
	v.mu.Unlock()

	client, _, err := ai.Connect(ctx, v.creds, v.factory, op)
	if err != nil {
		return fail(err)
	}
	remote, err := client.ConnectLive(ctx, ai.LiveConfig{
		Model:             ai.ModelLiveAudio,
		Voice:             VoiceName,
		SystemInstruction: VoiceInstruction,
	})
	if err != nil {
		return fail(&ai.ProviderError{Op: op, Err: err})
	}

	// Background loops outlive the Start call; Close cancels them.
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	v.mu.Lock()
	if v.state == StateClosed {
		v.mu.Unlock()
		cancel()
		_ = remote.Close()
		return errClosedEarly
	}
	v.remote = remote
	v.cancel = cancel
	v.queue = make(chan []float32, v.cfg.QueueSize)
	v.mu.Unlock()

	v.setState(StateOpen)
	metrics.VoiceSessionsActive.Inc()

	g, gctx := errgroup.WithContext(loopCtx)
	g.Go(func() error { return v.capture(gctx, in) })
	g.Go(func() error { return v.send(gctx, remote) })
	g.Go(func() error { return v.receive(gctx, remote) })
	// The first loop to stop tears everything down. Receive only unblocks
	// once the remote is closed, so Close cannot wait for the group.
	go func() {
		<-gctx.Done()
		_ = v.Close()
	}()
	go func() {
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
			v.log.Warn("voice session ended with error", map[string]interface{}{"error": err.Error()})
		}
	}()
	return nil
}

// capture segments microphone samples into frames and enqueues them without
// waiting. A full queue drops the frame.
func (v *VoiceSession) capture(ctx context.Context, in AudioInput) error {
	framer := NewFramer(FrameSamples)
	for {
		samples, err := in.ReadSamples(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		for _, frame := range framer.Push(samples) {
			v.Send(frame)
		}
	}
}

// Send enqueues one microphone frame. It never blocks.
func (v *VoiceSession) Send(frame []float32) bool {
	v.mu.Lock()
	q := v.queue
	open := v.state == StateOpen
	v.mu.Unlock()
	if !open || q == nil {
		return false
	}
	select {
	case q <- frame:
		return true
	default:
		v.mu.Lock()
		v.dropped++
		v.mu.Unlock()
		metrics.VoiceFramesDropped.Inc()
		return false
	}
}

func (v *VoiceSession) send(ctx context.Context, remote ai.LiveSession) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame := <-v.queue:
			if err := remote.SendAudio(ctx, ai.Blob{Data: EncodePCM16(frame), MIMEType: InputMIME}); err != nil {
				return fmt.Errorf("send audio: %w", err)
			}
		}
	}
}

// receive applies server events in arrival order: audio is scheduled before
// an interruption carried by the same event is handled.
func (v *VoiceSession) receive(ctx context.Context, remote ai.LiveSession) error {
	for {
		ev, err := remote.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("receive: %w", err)
		}
		v.handleEvent(ev)
	}
}

func (v *VoiceSession) handleEvent(ev *ai.LiveEvent) {
	sched := v.Scheduler()
	if sched == nil || ev == nil {
		return
	}
	for _, chunk := range ev.Audio {
		samples := DecodePCM16(chunk.Data)
		if len(samples) == 0 {
			continue
		}
		if _, _, err := sched.Schedule(samples, SampleRate(chunk.MIMEType, OutputSampleRate)); err != nil {
			v.log.Warn("schedule playback failed", map[string]interface{}{"error": err.Error()})
		}
	}
	if ev.Text != "" && v.cfg.Handlers.OnText != nil {
		v.cfg.Handlers.OnText(ev.Text)
	}
	if ev.Interrupted {
		stopped := sched.Interrupt()
		if v.cfg.Handlers.OnInterrupted != nil {
			v.cfg.Handlers.OnInterrupted(stopped)
		}
	}
}

// Close tears the session down: microphone, capture loop, audio output and
// remote channel, each if it was acquired. It is safe to call repeatedly.
func (v *VoiceSession) Close() error {
	v.closeOnce.Do(func() {
		v.mu.Lock()
		wasOpen := v.state == StateOpen
		v.state = StateClosed
		in, out, remote, cancel, sched := v.in, v.out, v.remote, v.cancel, v.sched
		v.mu.Unlock()

		var errs []error
		if in != nil {
			if err := in.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close microphone: %w", err))
			}
		}
		if cancel != nil {
			cancel()
		}
		if sched != nil {
			sched.Interrupt()
		}
		if out != nil {
			if err := out.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close audio output: %w", err))
			}
		}
		if remote != nil {
			if err := remote.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close live session: %w", err))
			}
		}
		if wasOpen {
			metrics.VoiceSessionsActive.Dec()
		}
		v.closeErr = errors.Join(errs...)
		close(v.done)
		if v.cfg.Handlers.OnState != nil {
			v.cfg.Handlers.OnState(StateClosed)
		}
	})
	return v.closeErr
}
