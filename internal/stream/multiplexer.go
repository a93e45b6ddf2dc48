package stream

import (
	"context"
	"log"
	"strings"
	"time"
)

// Multiplexer converts the agent runtime's generation-event stream into the
// client-facing OutputEvent stream for a single request. Text deltas are
// forwarded the moment they arrive; completed sentences are synthesized by
// a single in-order worker so audio never stalls text delivery. The
// Multiplexer itself holds no per-request state, so one instance may serve
// concurrent requests; each Run owns its own segmenter and output channel.
type Multiplexer struct {
	synth   Synthesizer // nil when no speech backend is configured
	timeout time.Duration
}

// NewMultiplexer builds a multiplexer. synth may be nil, in which case no
// audio events are ever produced. synthTimeout bounds each synthesis call;
// zero means no per-call bound beyond the request context.
func NewMultiplexer(synth Synthesizer, synthTimeout time.Duration) *Multiplexer {
	return &Multiplexer{synth: synth, timeout: synthTimeout}
}

// Run consumes src and produces the ordered output stream. The returned
// channel is closed when the stream terminates: after a done event on
// success, or after a single error event when the source fails. Cancelling
// ctx stops the run promptly, including any in-flight synthesis call.
func (m *Multiplexer) Run(ctx context.Context, sessionID string, src Source, voiceID string) <-chan OutputEvent {
	out := make(chan OutputEvent, 16)
	go m.run(ctx, sessionID, src, voiceID, out)
	return out
}

func (m *Multiplexer) run(ctx context.Context, sessionID string, src Source, voiceID string, out chan<- OutputEvent) {
	defer close(out)

	emit := func(ev OutputEvent) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	if !emit(SessionEvent(sessionID)) {
		return
	}

	speak := m.synth != nil && voiceID != ""
	seg := NewSentenceSegmenter()
	queue := newSentenceQueue()

	synthCtx, stopSynth := context.WithCancel(ctx)
	defer stopSynth()

	workerDone := make(chan struct{})
	if speak {
		go func() {
			defer close(workerDone)
			queue.Drain(func(sentence string) bool {
				return m.speakSentence(synthCtx, sentence, voiceID, emit)
			})
		}()
	} else {
		close(workerDone)
	}
	// The worker must be stopped and drained before out closes, on every
	// exit path.
	defer func() {
		stopSynth()
		queue.Close()
		<-workerDone
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-src.Events():
			if !ok {
				if err := src.Err(); err != nil {
					// Pipeline failure: terminal error, no done, and no
					// further synthesis.
					stopSynth()
					queue.Close()
					<-workerDone
					emit(ErrorEvent(err.Error()))
					return
				}
				if speak {
					if rem, ok := seg.Flush(); ok {
						queue.Add(rem)
					}
				}
				queue.Close()
				select {
				case <-workerDone:
				case <-ctx.Done():
					return
				}
				emit(DoneEvent())
				return
			}

			switch ev.Type {
			case GenerationToolCall:
				if !emit(ToolCallEvent(ev.ToolName)) {
					return
				}
			case GenerationTextDelta:
				if !ev.Partial {
					// Finalized turn text duplicates the partial deltas
					// already forwarded; never re-emitted or re-segmented.
					continue
				}
				if !emit(ContentEvent(ev.Text)) {
					return
				}
				if speak {
					for _, sentence := range seg.Feed(ev.Text) {
						queue.Add(sentence)
					}
				}
			}
		}
	}
}

// speakSentence strips markup, synthesizes and emits one audio event.
// Synthesis failures are swallowed: one bad utterance must not abort the
// response. Returns false only when the run is being cancelled.
func (m *Multiplexer) speakSentence(ctx context.Context, sentence, voiceID string, emit func(OutputEvent) bool) bool {
	text := StripMarkdown(sentence)
	if strings.TrimSpace(text) == "" {
		return true
	}

	callCtx := ctx
	if m.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	audio, err := m.synth.Synthesize(callCtx, text, voiceID)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		log.Printf("[stream] synthesis failed for sentence (%d chars): %v", len(text), err)
		return true
	}
	if len(audio) == 0 {
		return true
	}
	return emit(AudioEvent(audio))
}
