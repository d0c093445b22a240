package notify

import (
	"context"
	"sync"
)

// Recorded одно записанное событие
type Recorded struct {
	Topic   string
	Event   string
	Payload any
}

// Recorder запоминает публикации вместо доставки, для тестов
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(ctx context.Context, topic, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Recorded{Topic: topic, Event: event, Payload: payload})
}

// Events возвращает копию записанных событий
func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Recorded, len(r.events))
	copy(out, r.events)
	return out
}

// Topics возвращает топики записанных событий в порядке публикации
func (r *Recorder) Topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	topics := make([]string, len(r.events))
	for i, e := range r.events {
		topics[i] = e.Topic
	}
	return topics
}

// Reset очищает записанные события
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
