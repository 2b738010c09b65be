// README: Websocket bridge between a browser and a voice session.
package handlers

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"nest/internal/ai"
	"nest/internal/http/middleware"
	"nest/internal/logger"
	"nest/internal/modules/assistant"
)

// Client → server: binary frames of float32 LE samples at 16 kHz, or
// {"type":"stop"}. Server → client: a {"type":"schedule"} envelope followed
// by one binary frame of int16 PCM, plus state, text and interrupted events.
type voiceEnvelope struct {
	Type       string `json:"type"`
	State      string `json:"state,omitempty"`
	Text       string `json:"text,omitempty"`
	StartMS    int64  `json:"start,omitempty"`
	DurationMS int64  `json:"duration,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
	Stopped    int    `json:"stopped,omitempty"`
}

const voiceWriteWait = 5 * time.Second

// wsBridge adapts one websocket to the session's microphone and speaker.
// gorilla/websocket allows one concurrent writer, so writes are serialized.
type wsBridge struct {
	conn   *websocket.Conn
	opened time.Time

	wmu       sync.Mutex
	closeOnce sync.Once
}

func (b *wsBridge) writeJSON(v voiceEnvelope) error {
	b.wmu.Lock()
	defer b.wmu.Unlock()
	_ = b.conn.SetWriteDeadline(time.Now().Add(voiceWriteWait))
	return b.conn.WriteJSON(v)
}

func (b *wsBridge) writeAudio(env voiceEnvelope, pcm []byte) error {
	b.wmu.Lock()
	defer b.wmu.Unlock()
	_ = b.conn.SetWriteDeadline(time.Now().Add(voiceWriteWait))
	if err := b.conn.WriteJSON(env); err != nil {
		return err
	}
	return b.conn.WriteMessage(websocket.BinaryMessage, pcm)
}

func (b *wsBridge) close() error {
	var err error
	b.closeOnce.Do(func() {
		b.wmu.Lock()
		_ = b.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		b.wmu.Unlock()
		err = b.conn.Close()
	})
	return err
}

// decodeFloat32LE reads little-endian float32 samples; a trailing partial
// sample is ignored.
func decodeFloat32LE(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}

type wsInput struct{ b *wsBridge }

func (in wsInput) ReadSamples(ctx context.Context) ([]float32, error) {
	for {
		kind, data, err := in.b.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, io.EOF
			}
			return nil, err
		}
		switch kind {
		case websocket.BinaryMessage:
			if samples := decodeFloat32LE(data); len(samples) > 0 {
				return samples, nil
			}
		case websocket.TextMessage:
			var env voiceEnvelope
			if json.Unmarshal(data, &env) == nil && env.Type == "stop" {
				return nil, io.EOF
			}
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
}

// Close is a no-op; the handler owns the connection and closes it once the
// session is done, which also unblocks a pending read.
func (in wsInput) Close() error { return nil }

type wsHandle struct{}

// Stop is a no-op; the client drops its queue on the interrupted event.
func (wsHandle) Stop() {}

type wsOutput struct{ b *wsBridge }

func (o wsOutput) Now() time.Duration { return time.Since(o.b.opened) }

func (o wsOutput) Play(samples []float32, rate int, at time.Duration) (assistant.PlayHandle, error) {
	env := voiceEnvelope{
		Type:       "schedule",
		StartMS:    at.Milliseconds(),
		DurationMS: assistant.SamplesDuration(len(samples), rate).Milliseconds(),
		SampleRate: rate,
	}
	if err := o.b.writeAudio(env, assistant.EncodePCM16(samples)); err != nil {
		return nil, err
	}
	return wsHandle{}, nil
}

func (o wsOutput) Close() error { return nil }

type wsDevices struct{ b *wsBridge }

func (d wsDevices) OpenInput(context.Context) (assistant.AudioInput, error) {
	return wsInput(d), nil
}

func (d wsDevices) OpenOutput(context.Context) (assistant.AudioOutput, error) {
	return wsOutput(d), nil
}

type VoiceHandler struct {
	creds     ai.CredentialProvider
	factory   ai.ClientFactory
	log       logger.Logger
	queueSize int
	upgrader  websocket.Upgrader
}

func NewVoiceHandler(creds ai.CredentialProvider, factory ai.ClientFactory, log logger.Logger, queueSize int) *VoiceHandler {
	return &VoiceHandler{
		creds:     creds,
		factory:   factory,
		log:       log,
		queueSize: queueSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  32 << 10,
			WriteBufferSize: 32 << 10,
			// Auth already ran on the upgrade request.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Stream handles GET /api/ai/voice. It returns when the session closes.
func (h *VoiceHandler) Stream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already replied.
		h.log.Warn("voice upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}
	bridge := &wsBridge{conn: conn, opened: time.Now()}
	log := h.log.WithFields(map[string]interface{}{"uid": middleware.CallerUID(c)})

	session := assistant.NewVoiceSession(h.creds, h.factory, wsDevices{bridge}, log, assistant.VoiceConfig{
		QueueSize: h.queueSize,
		Handlers: assistant.Handlers{
			OnState: func(s assistant.State) {
				_ = bridge.writeJSON(voiceEnvelope{Type: "state", State: s.String()})
			},
			OnText: func(text string) {
				_ = bridge.writeJSON(voiceEnvelope{Type: "text", Text: text})
			},
			OnInterrupted: func(stopped int) {
				_ = bridge.writeJSON(voiceEnvelope{Type: "interrupted", Stopped: stopped})
			},
		},
	})

	if err := session.Start(c.Request.Context()); err != nil {
		outcome := ai.Classify(err).String()
		log.Warn("voice session failed to start", map[string]interface{}{"error": err.Error(), "outcome": outcome})
		_ = bridge.writeJSON(voiceEnvelope{Type: "error", Text: outcome})
		_ = bridge.close()
		return
	}
	<-session.Done()
	if err := bridge.close(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.Debug("closing voice socket", map[string]interface{}{"error": err.Error()})
	}
	log.Info("voice session ended", map[string]interface{}{"dropped_frames": session.Dropped()})
}
