package stream

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type collectSink struct {
	chunks []string
}

func (c *collectSink) Text(delta string) { c.chunks = append(c.chunks, delta) }

func TestSmoother_EmitsWordByWord(t *testing.T) {
	sink := &collectSink{}
	s := NewSmoother(sink, 0)

	s.Write("The quick bro")
	s.Write("wn fox\njumps")
	s.Flush()

	assert.Equal(t, []string{"The ", "quick ", "brown ", "fox\n", "jumps"}, sink.chunks)
}

func TestSmoother_PreservesContent(t *testing.T) {
	sink := &collectSink{}
	s := NewSmoother(sink, 0)
	input := []string{"  leading", " space", "s and   gaps ", "", "end"}
	for _, in := range input {
		s.Write(in)
	}
	s.Flush()
	assert.Equal(t, strings.Join(input, ""), strings.Join(sink.chunks, ""))
}

func TestSmoother_SleepsBetweenWords(t *testing.T) {
	sink := &collectSink{}
	s := NewSmoother(sink, 5*time.Millisecond)
	var slept []time.Duration
	s.sleep = func(d time.Duration) { slept = append(slept, d) }

	s.Write("one two three")
	assert.Len(t, slept, 2)
	s.Flush()
	assert.Equal(t, []string{"one ", "two ", "three"}, sink.chunks)
}
