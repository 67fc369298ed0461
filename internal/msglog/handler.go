package msglog

import (
	"context"
	"log/slog"
)

// Handler wraps a base slog.Handler and tees every record at or above
// minLevel into a Ring, mirroring the teacher's TeeHandler shape (same
// Enabled/Handle/WithAttrs/WithGroup delegation pattern) but feeding this
// package's bounded ring instead of a UI callback.
type Handler struct {
	base     slog.Handler
	ring     *Ring
	minLevel slog.Level
	group    string
}

// NewHandler creates a Handler delegating to base and logging every record
// whose level is >= minLevel into ring.
func NewHandler(base slog.Handler, ring *Ring, minLevel slog.Level) *Handler {
	return &Handler{base: base, ring: ring, minLevel: minLevel}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	err := h.base.Handle(ctx, record)
	if h.ring != nil && record.Level >= h.minLevel {
		h.ring.Push(record.Time.UnixNano(), record.Level.String(), h.group, record.Message)
	}
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return &Handler{base: h.base.WithAttrs(attrs), ring: h.ring, minLevel: h.minLevel, group: h.group}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}
	return &Handler{base: h.base.WithGroup(name), ring: h.ring, minLevel: h.minLevel, group: group}
}
