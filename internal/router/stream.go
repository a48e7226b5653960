package router

import (
	"strings"
	"time"

	"github.com/renato0307/conduit/internal/conversation"
	"github.com/renato0307/conduit/internal/domain"
	"github.com/renato0307/conduit/internal/timer"
)

type joinMode int

const (
	// joinConcat appends deltas exactly as received
	joinConcat joinMode = iota
	// joinLines separates raw output chunks with newlines
	joinLines
)

// streamBuffer batches streamed text and flushes it into the tail message
// once per StreamFlushInterval
type streamBuffer struct {
	buf   strings.Builder
	mode  joinMode
	now   func() time.Time
	slot  *timer.Slot
	state *conversation.Holder
}

func newStreamBuffer(slot *timer.Slot, state *conversation.Holder, now func() time.Time) *streamBuffer {
	return &streamBuffer{now: now, slot: slot, state: state}
}

// add buffers text and arms the flush timer if it is idle
func (s *streamBuffer) add(text string, mode joinMode) {
	if text == "" {
		return
	}
	if s.buf.Len() > 0 && s.mode != mode {
		s.flush()
	}
	if s.buf.Len() > 0 && mode == joinLines {
		s.buf.WriteByte('\n')
	}
	s.mode = mode
	s.buf.WriteString(text)
	s.slot.ArmIfIdle(StreamFlushInterval, s.flush)
}

// flush moves buffered text into the streaming tail, opening one if needed
func (s *streamBuffer) flush() {
	s.slot.Cancel()
	if s.buf.Len() == 0 {
		return
	}
	text := s.buf.String()
	s.buf.Reset()

	tail := s.state.StreamingTail()
	if tail == nil {
		s.state.AppendMessage(domain.ChatMessage{
			Content:     text,
			IsStreaming: true,
			Kind:        domain.KindAssistant,
			Timestamp:   s.now(),
		})
		return
	}

	if s.mode == joinLines && tail.Content != "" {
		tail.Content += "\n" + text
	} else {
		tail.Content += text
	}
	s.state.Touch()
}

// close flushes any remaining text and ends the streaming tail
func (s *streamBuffer) close() {
	s.flush()
	if tail := s.state.StreamingTail(); tail != nil {
		tail.IsStreaming = false
		s.state.Touch()
	}
}

// replaceTail closes the stream with text as its final content, or appends
// text as a new message when no stream is open
func (s *streamBuffer) replaceTail(text string) {
	s.flush()
	if tail := s.state.StreamingTail(); tail != nil {
		if text != "" {
			tail.Content = text
		}
		tail.IsStreaming = false
		s.state.Touch()
		return
	}
	if text != "" {
		s.state.AppendMessage(domain.ChatMessage{
			Content:   text,
			Kind:      domain.KindAssistant,
			Timestamp: s.now(),
		})
	}
}
