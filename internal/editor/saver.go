package editor

import (
	"context"
	"time"

	"github.com/debemdeboas/the-draftroom/internal/config"
)

// Serializer is implemented by embedded rich editors that own the
// authoritative copy of the document.
type Serializer interface {
	Serialize(ctx context.Context) ([]byte, error)
}

type SerializerFunc func(ctx context.Context) ([]byte, error)

func (f SerializerFunc) Serialize(ctx context.Context) ([]byte, error) {
	return f(ctx)
}

// Saver produces the bytes handed to the store for a save.
type Saver interface {
	Payload(ctx context.Context, draft []byte) ([]byte, error)
	Variant() string
}

// PlainSaver persists the draft as typed, after a short minimum latency so
// the saving state is visible.
type PlainSaver struct {
	Delay time.Duration
}

func (s PlainSaver) Payload(ctx context.Context, draft []byte) ([]byte, error) {
	if s.Delay > 0 {
		t := time.NewTimer(s.Delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return draft, nil
}

func (PlainSaver) Variant() string {
	return config.VariantPlain
}

// RichSaver asks the embedded widget for its content and ignores the draft.
type RichSaver struct {
	Widget Serializer
}

func (s RichSaver) Payload(ctx context.Context, _ []byte) ([]byte, error) {
	if s.Widget == nil {
		return nil, ErrNoSerializer
	}
	return s.Widget.Serialize(ctx)
}

func (RichSaver) Variant() string {
	return config.VariantRich
}
