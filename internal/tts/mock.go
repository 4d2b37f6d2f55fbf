package tts

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/generators"
	"github.com/gopxl/beep/v2/wav"
)

const (
	mockSampleRate  = beep.SampleRate(8000)
	mockPerWord     = 300 * time.Millisecond
	mockMinDuration = time.Second
)

// Mock produces silent WAV audio whose length grows with the word count.
type Mock struct {
	mu    sync.Mutex
	err   error
	calls []string
}

// NewMock creates a mock synthesizer.
func NewMock() *Mock {
	return &Mock{}
}

// SetError makes subsequent calls fail with err.
func (m *Mock) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns the texts synthesized so far.
func (m *Mock) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// MockDuration returns the length of the audio Mock produces for text.
func MockDuration(text string) time.Duration {
	return max(time.Duration(len(strings.Fields(text)))*mockPerWord, mockMinDuration)
}

// Synthesize returns silent audio.
func (m *Mock) Synthesize(ctx context.Context, text string) (*Audio, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	m.mu.Lock()
	m.calls = append(m.calls, text)
	err := m.err
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var w memWriteSeeker
	format := beep.Format{SampleRate: mockSampleRate, NumChannels: 1, Precision: 2}
	silence := beep.Take(mockSampleRate.N(MockDuration(text)), generators.Silence(-1))
	if err := wav.Encode(&w, silence, format); err != nil {
		return nil, err
	}
	return &Audio{Data: w.buf, ContentType: "audio/wav", Ext: "wav"}, nil
}

// memWriteSeeker is an in-memory io.WriteSeeker; the WAV encoder seeks back
// to patch the header sizes.
type memWriteSeeker struct {
	buf []byte
	pos int
}

func (m *memWriteSeeker) Write(p []byte) (int, error) {
	if end := m.pos + len(p); end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	n := copy(m.buf[m.pos:], p)
	m.pos += n
	return n, nil
}

func (m *memWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = int64(m.pos) + offset
	case io.SeekEnd:
		pos = int64(len(m.buf)) + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if pos < 0 {
		return 0, errors.New("negative position")
	}
	m.pos = int(pos)
	return pos, nil
}
