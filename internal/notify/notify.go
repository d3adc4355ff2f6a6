// Package notify delivers operator-facing notices through an injected port.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level grades a notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a single message for store operators.
type Notice struct {
	ID        string            `json:"id"`
	Level     Level             `json:"level"`
	Title     string            `json:"title"`
	Body      string            `json:"body,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// NewNotice stamps a notice with a fresh id and the current time.
func NewNotice(level Level, title, body string) Notice {
	return Notice{
		ID:        uuid.NewString(),
		Level:     level,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
}

// Notifier delivers notices.
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, n Notice) error

// Notify calls f.
func (f Func) Notify(ctx context.Context, n Notice) error { return f(ctx, n) }

// Discard drops every notice.
var Discard Notifier = Func(func(context.Context, Notice) error { return nil })

// LogNotifier writes notices to a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify logs n at a level matching its severity.
func (l LogNotifier) Notify(ctx context.Context, n Notice) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelInfo
	switch n.Level {
	case LevelWarning:
		level = slog.LevelWarn
	case LevelError:
		level = slog.LevelError
	}
	attrs := []any{slog.String("notice_id", n.ID), slog.String("body", n.Body)}
	for k, v := range n.Meta {
		attrs = append(attrs, slog.String(k, v))
	}
	logger.Log(ctx, level, n.Title, attrs...)
	return nil
}

// Multi fans a notice out to every notifier and joins their errors.
type Multi []Notifier

// Notify delivers n to each notifier in order.
func (m Multi) Notify(ctx context.Context, n Notice) error {
	var errs []error
	for _, notifier := range m {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps delivered notices in memory.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

// Notify records n.
func (r *Recorder) Notify(_ context.Context, n Notice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
	return nil
}

// Notices returns a copy of everything recorded so far.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}
