package stream

import (
	"regexp"
	"strings"
	"time"
)

var wordChunk = regexp.MustCompile(`\S+\s+`)

// TextSink receives text deltas.
type TextSink interface {
	Text(delta string)
}

// Smoother re-chunks text deltas so they reach the client one word at a
// time. Concatenated output always equals concatenated input.
type Smoother struct {
	out   TextSink
	delay time.Duration
	sleep func(time.Duration)
	buf   strings.Builder
}

func NewSmoother(out TextSink, delay time.Duration) *Smoother {
	return &Smoother{out: out, delay: delay, sleep: time.Sleep}
}

func (s *Smoother) Write(delta string) {
	s.buf.WriteString(delta)
	pending := s.buf.String()
	for {
		loc := wordChunk.FindStringIndex(pending)
		if loc == nil {
			break
		}
		s.out.Text(pending[:loc[1]])
		pending = pending[loc[1]:]
		if s.delay > 0 {
			s.sleep(s.delay)
		}
	}
	s.buf.Reset()
	s.buf.WriteString(pending)
}

// Flush emits whatever is buffered. Call before any non-text frame.
func (s *Smoother) Flush() {
	if s.buf.Len() == 0 {
		return
	}
	s.out.Text(s.buf.String())
	s.buf.Reset()
}
