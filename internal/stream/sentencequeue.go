package stream

import "sync"

// sentenceQueue hands completed sentences from the multiplexer loop to the
// synthesis worker without ever blocking the producer. Unbounded: the
// backlog is bounded in practice by the length of one response.
type sentenceQueue struct {
	mu        sync.Mutex
	cond      *sync.Cond
	sentences []string
	consumed  int
	closed    bool
}

func newSentenceQueue() *sentenceQueue {
	q := &sentenceQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Add enqueues a sentence. Never blocks.
func (q *sentenceQueue) Add(sentence string) {
	q.mu.Lock()
	q.sentences = append(q.sentences, sentence)
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Close marks the queue complete and wakes the consumer. Safe to call more
// than once.
func (q *sentenceQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Drain iterates sentences in arrival order, blocking until more arrive or
// the queue is closed. Usable with range-over-func.
func (q *sentenceQueue) Drain(yield func(string) bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		for q.consumed < len(q.sentences) {
			s := q.sentences[q.consumed]
			q.consumed++
			q.mu.Unlock()
			ok := yield(s)
			q.mu.Lock()
			if !ok {
				return
			}
		}
		if q.closed {
			return
		}
		q.cond.Wait()
	}
}
