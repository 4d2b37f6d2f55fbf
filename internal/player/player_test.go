package player

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/generators"
	"github.com/gopxl/beep/v2/wav"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/castdeck/internal/media"
)

const testRate = beep.SampleRate(8000)

// writeSilentWAV writes a mono 16-bit WAV of the given length and returns its path.
func writeSilentWAV(t *testing.T, d time.Duration) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "silence.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	format := beep.Format{SampleRate: testRate, NumChannels: 1, Precision: 2}
	require.NoError(t, wav.Encode(f, beep.Take(testRate.N(d), generators.Silence(-1)), format))
	return path
}

func newTestPlayer(t *testing.T) *Player {
	t.Helper()
	logger, _ := test.NewNullLogger()
	p := New(Config{Logger: logger, TickInterval: time.Hour})
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func waitEvent(t *testing.T, ch <-chan media.Event, kind media.EventKind) media.Event {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case e := <-ch:
			if e.Kind == kind {
				return e
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %v", kind)
		}
	}
}

func TestPlayer_LoadLocalEmitsMetadata(t *testing.T) {
	path := writeSilentWAV(t, 2*time.Second)
	p := newTestPlayer(t)

	events := make(chan media.Event, 8)
	p.Listen(func(e media.Event) { events <- e })

	require.NoError(t, p.Load(path))

	e := waitEvent(t, events, media.MetadataReady)
	assert.Equal(t, 2*time.Second, e.Value)
	waitEvent(t, events, media.Playable)

	d, ok := p.Duration()
	assert.True(t, ok)
	assert.Equal(t, 2*time.Second, d)
}

func TestPlayer_SetPosition(t *testing.T) {
	path := writeSilentWAV(t, 2*time.Second)
	p := newTestPlayer(t)

	assert.ErrorIs(t, p.SetPosition(time.Second), media.ErrNotSeekable, "not seekable before load")

	events := make(chan media.Event, 8)
	p.Listen(func(e media.Event) { events <- e })
	require.NoError(t, p.Load(path))
	waitEvent(t, events, media.Playable)

	require.NoError(t, p.SetPosition(time.Second))
	assert.Equal(t, time.Second, p.Position())
}

func TestPlayer_PlayBeforeLoad(t *testing.T) {
	p := newTestPlayer(t)

	err := p.Play(context.Background())

	assert.ErrorIs(t, err, media.ErrNotReady)
}

func TestPlayer_PlayCancelledContext(t *testing.T) {
	p := newTestPlayer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, p.Play(ctx), context.Canceled)
}

func TestPlayer_LoadEmptySource(t *testing.T) {
	p := newTestPlayer(t)
	assert.Error(t, p.Load(""))
}

func TestPlayer_UnlistenStopsDelivery(t *testing.T) {
	path := writeSilentWAV(t, time.Second)
	p := newTestPlayer(t)

	stale := make(chan media.Event, 8)
	unlisten := p.Listen(func(e media.Event) { stale <- e })
	unlisten()
	live := make(chan media.Event, 8)
	p.Listen(func(e media.Event) { live <- e })

	require.NoError(t, p.Load(path))
	waitEvent(t, live, media.Playable)

	assert.Empty(t, stale)
}

func TestPlayer_ReloadDropsQueuedEvents(t *testing.T) {
	path := writeSilentWAV(t, time.Second)
	p := newTestPlayer(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	events := make(chan media.Event, 16)
	var once sync.Once
	p.Listen(func(e media.Event) {
		once.Do(func() {
			close(entered)
			<-release
		})
		events <- e
	})

	p.mu.Lock()
	p.emitLocked(media.Event{Kind: media.Playable})
	p.emitLocked(media.Event{Kind: media.PositionAdvanced, Value: 90 * time.Second})
	p.emitLocked(media.Event{Kind: media.DurationChanged, Value: 600 * time.Second})
	p.mu.Unlock()

	<-entered
	require.NoError(t, p.Load(path))
	close(release)

	// Events are delivered in order, so anything stale precedes the new
	// source's metadata.
	var before []media.EventKind
	timeout := time.After(5 * time.Second)
	for {
		select {
		case e := <-events:
			if e.Kind == media.MetadataReady {
				assert.Equal(t, time.Second, e.Value)
				assert.NotContains(t, before, media.PositionAdvanced)
				assert.NotContains(t, before, media.DurationChanged)
				return
			}
			before = append(before, e.Kind)
		case <-timeout:
			t.Fatal("timed out waiting for metadata")
		}
	}
}

func TestPlayer_LoadRemote(t *testing.T) {
	path := writeSilentWAV(t, time.Second)
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/wav")
		http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(data))
	}))
	defer srv.Close()

	p := newTestPlayer(t)
	events := make(chan media.Event, 8)
	p.Listen(func(e media.Event) { events <- e })

	require.NoError(t, p.Load(srv.URL+"/api/audio/ep-1"))

	e := waitEvent(t, events, media.MetadataReady)
	assert.Equal(t, time.Second, e.Value)
}

func TestFetchSource_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing.wav":
			http.Error(w, "Audio not found", http.StatusNotFound)
		default:
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("hello"))
		}
	}))
	defer srv.Close()

	_, err := fetchSource(context.Background(), srv.Client(), srv.URL+"/missing.wav")
	assert.ErrorContains(t, err, "404")

	_, err = fetchSource(context.Background(), srv.Client(), srv.URL+"/text")
	assert.ErrorContains(t, err, "unknown audio format")
}

func TestProbe(t *testing.T) {
	data, err := os.ReadFile(writeSilentWAV(t, 1500*time.Millisecond))
	require.NoError(t, err)

	d, err := Probe(data, FormatWAV)
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, d)

	_, err = Probe(data, "ogg")
	assert.Error(t, err)
}

func TestFormatFromName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"episode.mp3", FormatMP3},
		{"/a/b/EPISODE.MP3", FormatMP3},
		{"take.flac", FormatFLAC},
		{"take.wav", FormatWAV},
		{"take.wave", FormatWAV},
		{"take.ogg", ""},
		{"noext", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatFromName(tt.name))
		})
	}
}

func TestFormatFromContentType(t *testing.T) {
	tests := []struct {
		ct   string
		want string
	}{
		{"audio/mpeg", FormatMP3},
		{"audio/wav", FormatWAV},
		{"audio/x-wav; charset=binary", FormatWAV},
		{"audio/flac", FormatFLAC},
		{"text/html", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.ct, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatFromContentType(tt.ct))
		})
	}
	assert.Equal(t, "audio/mpeg", ContentType(FormatMP3))
	assert.Equal(t, "application/octet-stream", ContentType("ogg"))
}

func TestSkipID3v2(t *testing.T) {
	tag := []byte{'I', 'D', '3', 4, 0, 0, 0, 0, 0, 5, 1, 2, 3, 4, 5}
	r := bytes.NewReader(append(tag, 'f', 'L', 'a', 'C'))
	require.NoError(t, skipID3v2(r))
	rest := make([]byte, 4)
	_, err := r.Read(rest)
	require.NoError(t, err)
	assert.Equal(t, "fLaC", string(rest))

	r = bytes.NewReader([]byte("fLaC"))
	require.NoError(t, skipID3v2(r))
	pos, _ := r.Seek(0, 1)
	assert.Zero(t, pos)
}

func TestLevelToVolume(t *testing.T) {
	assert.Equal(t, 0.0, levelToVolume(1))
	assert.Equal(t, -1.0, levelToVolume(0.5))
	assert.Equal(t, -10.0, levelToVolume(0))
	assert.Equal(t, 0.0, levelToVolume(2))
}

func TestPlayer_VolumeClamped(t *testing.T) {
	p := newTestPlayer(t)
	p.SetVolume(1.7)
	assert.Equal(t, 1.0, p.Volume())
	p.SetVolume(-1)
	assert.Equal(t, 0.0, p.Volume())
	p.SetMuted(true)
	assert.True(t, p.Muted())
}

func TestEventQueue_OrderAndClose(t *testing.T) {
	q := newEventQueue()
	q.push(queuedEvent{Event: media.Event{Kind: media.MetadataReady}})
	q.push(queuedEvent{gen: 1, Event: media.Event{Kind: media.Playable}})
	q.close()
	q.push(queuedEvent{Event: media.Event{Kind: media.Ended}})

	var got []media.EventKind
	for {
		e, ok := q.pop()
		if !ok {
			break
		}
		got = append(got, e.Kind)
	}
	assert.Equal(t, []media.EventKind{media.MetadataReady, media.Playable}, got)
}
