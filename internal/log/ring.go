package log

import (
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
)

// Entry is one log line as served to the dashboard.
type Entry struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Logger  string         `json:"logger,omitempty"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// Ring is a zapcore.Core that keeps the most recent entries in memory and
// forwards each new one to subscribers.
type Ring struct {
	zapcore.LevelEnabler
	fields []zapcore.Field
	buf    *ringBuffer
}

type ringBuffer struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
	subs    map[int]func(Entry)
	nextSub int
}

// NewRing creates a ring holding up to size entries.
func NewRing(size int, enab zapcore.LevelEnabler) *Ring {
	if size <= 0 {
		size = 500
	}
	return &Ring{
		LevelEnabler: enab,
		buf: &ringBuffer{
			entries: make([]Entry, size),
			subs:    make(map[int]func(Entry)),
		},
	}
}

// With implements zapcore.Core.
func (r *Ring) With(fields []zapcore.Field) zapcore.Core {
	clone := *r
	clone.fields = append(append([]zapcore.Field(nil), r.fields...), fields...)
	return &clone
}

// Check implements zapcore.Core.
func (r *Ring) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if r.Enabled(ent.Level) {
		return ce.AddCore(ent, r)
	}
	return ce
}

// Write implements zapcore.Core.
func (r *Ring) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range r.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}

	e := Entry{
		Time:    ent.Time,
		Level:   ent.Level.String(),
		Logger:  ent.LoggerName,
		Message: ent.Message,
	}
	if len(enc.Fields) > 0 {
		e.Fields = enc.Fields
	}
	r.buf.add(e)
	return nil
}

// Sync implements zapcore.Core.
func (r *Ring) Sync() error { return nil }

// Recent returns up to n entries, oldest first. n <= 0 returns all of them.
func (r *Ring) Recent(n int) []Entry {
	b := r.buf
	b.mu.Lock()
	defer b.mu.Unlock()

	var all []Entry
	if b.full {
		all = append(all, b.entries[b.next:]...)
	}
	all = append(all, b.entries[:b.next]...)
	if n > 0 && n < len(all) {
		all = all[len(all)-n:]
	}
	return all
}

// Subscribe registers fn for every new entry and returns a cancel func.
// fn runs on the logging goroutine and must not block or log.
func (r *Ring) Subscribe(fn func(Entry)) func() {
	b := r.buf
	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

func (b *ringBuffer) add(e Entry) {
	b.mu.Lock()
	b.entries[b.next] = e
	b.next = (b.next + 1) % len(b.entries)
	if b.next == 0 {
		b.full = true
	}
	subs := make([]func(Entry), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.Unlock()

	for _, fn := range subs {
		fn(e)
	}
}
