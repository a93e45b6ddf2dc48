package voice

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"time"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/pkg/api/speak/v1/websocket/interfaces"
	clientinterfaces "github.com/deepgram/deepgram-go-sdk/pkg/client/interfaces/v1"
	"github.com/deepgram/deepgram-go-sdk/pkg/client/speak"
)

const defaultDeepgramVoice = "aura-2-thalia-en"

// DeepgramClient synthesizes speech through Deepgram Aura. The streaming
// speak connection is collected into a single audio buffer per sentence;
// the connection is closed once the audio stream goes idle.
type DeepgramClient struct {
	apiKey     string
	sampleRate int
	encoding   string
}

func NewDeepgramClient(apiKey string) *DeepgramClient {
	return &DeepgramClient{apiKey: apiKey, sampleRate: 24000, encoding: "linear16"}
}

// Synthesize converts text to audio bytes. voiceID selects the Aura model.
func (d *DeepgramClient) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if d.apiKey == "" {
		return nil, ErrNotConfigured
	}
	if text == "" {
		return nil, nil
	}
	if voiceID == "" {
		voiceID = defaultDeepgramVoice
	}

	options := &clientinterfaces.WSSpeakOptions{
		Model:      voiceID,
		Encoding:   d.encoding,
		SampleRate: d.sampleRate,
	}

	var (
		mu           sync.Mutex
		audio        bytes.Buffer
		lastRecvUnix int64
		seenAudio    int32
	)

	cb := &speakCollector{onBinary: func(data []byte) error {
		if len(data) == 0 {
			return nil
		}
		atomic.StoreInt64(&lastRecvUnix, time.Now().UnixNano())
		atomic.StoreInt32(&seenAudio, 1)
		mu.Lock()
		audio.Write(data)
		mu.Unlock()
		return nil
	}}

	dg, err := speak.NewWSUsingCallback(ctx, d.apiKey, &clientinterfaces.ClientOptions{}, options, cb)
	if err != nil {
		return nil, &SynthesisError{Backend: "deepgram", Message: "create ws client", Cause: err}
	}
	defer dg.Stop()

	if ok := dg.Connect(); !ok {
		return nil, &SynthesisError{Backend: "deepgram", Message: "connect failed"}
	}

	if err := dg.SpeakWithText(text); err != nil {
		return nil, &SynthesisError{Backend: "deepgram", Message: "speak text", Cause: err}
	}
	if err := dg.Flush(); err != nil {
		return nil, &SynthesisError{Backend: "deepgram", Message: "flush", Cause: err}
	}

	// Audio arrives as binary frames with no explicit end marker for this
	// one-shot use; treat an idle window after the first frame as complete.
	idleWindow := 400 * time.Millisecond
	deadline := time.Now().Add(12 * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, &SynthesisError{Backend: "deepgram", Message: "cancelled", Cause: ctx.Err()}
		case <-ticker.C:
			if atomic.LoadInt32(&seenAudio) == 1 {
				last := time.Unix(0, atomic.LoadInt64(&lastRecvUnix))
				if time.Since(last) > idleWindow {
					mu.Lock()
					out := append([]byte(nil), audio.Bytes()...)
					mu.Unlock()
					return out, nil
				}
			}
			if time.Now().After(deadline) {
				if atomic.LoadInt32(&seenAudio) == 0 {
					return nil, &SynthesisError{Backend: "deepgram", Message: "no audio received before deadline"}
				}
				mu.Lock()
				out := append([]byte(nil), audio.Bytes()...)
				mu.Unlock()
				return out, nil
			}
		}
	}
}

type speakCollector struct{ onBinary func([]byte) error }

func (s *speakCollector) Open(*msginterfaces.OpenResponse) error         { return nil }
func (s *speakCollector) Metadata(*msginterfaces.MetadataResponse) error { return nil }
func (s *speakCollector) Flush(*msginterfaces.FlushedResponse) error     { return nil }
func (s *speakCollector) Clear(*msginterfaces.ClearedResponse) error     { return nil }
func (s *speakCollector) Close(*msginterfaces.CloseResponse) error       { return nil }
func (s *speakCollector) Warning(*msginterfaces.WarningResponse) error   { return nil }
func (s *speakCollector) Error(*msginterfaces.ErrorResponse) error       { return nil }
func (s *speakCollector) UnhandledEvent([]byte) error                    { return nil }
func (s *speakCollector) Binary(msg []byte) error {
	if s.onBinary != nil {
		return s.onBinary(msg)
	}
	return nil
}
