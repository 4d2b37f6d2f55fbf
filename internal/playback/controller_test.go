package playback

import (
	"context"
	"errors"
	"testing"
	"testing/synctest"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/castdeck/internal/media"
)

func secs(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

// polling reports whether a duration poll is active and its remaining budget.
func (c *Controller) polling() (bool, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.poll.phase == pollPolling, c.poll.attemptsLeft
}

// newTestController returns a controller whose duration poll never fires
// during the test.
func newTestController(t *testing.T) (*Controller, *media.Mock) {
	t.Helper()
	el := media.NewMock()
	logger, _ := test.NewNullLogger()
	c := New(el, Options{PollInterval: time.Hour, Logger: logger})
	t.Cleanup(func() { _ = c.Close() })
	return c, el
}

func TestScenarioA_MetadataThenPlay(t *testing.T) {
	c, el := newTestController(t)

	c.Attach("ep1.wav", 0)
	assert.Equal(t, time.Duration(0), c.Snapshot().Duration)
	assert.Equal(t, []string{"ep1.wav"}, el.LoadCalls())

	el.Emit(media.Event{Kind: media.MetadataReady, Value: secs(128.4)})
	assert.Equal(t, secs(128.4), c.Snapshot().Duration)

	c.TogglePlayPause(context.Background())
	assert.True(t, c.Snapshot().IsPlaying)

	el.Emit(media.Event{Kind: media.PositionAdvanced, Value: 5 * time.Second})
	assert.Equal(t, 5*time.Second, c.Snapshot().CurrentTime)
}

func TestScenarioB_SeekMasksPositionUpdates(t *testing.T) {
	c, el := newTestController(t)
	c.Attach("ep1.wav", 0)
	el.Emit(media.Event{Kind: media.MetadataReady, Value: secs(128.4)})
	c.TogglePlayPause(context.Background())
	el.Emit(media.Event{Kind: media.PositionAdvanced, Value: 5 * time.Second})

	c.BeginSeek()
	assert.True(t, c.Snapshot().IsSeeking)

	el.Emit(media.Event{Kind: media.PositionAdvanced, Value: secs(5.2)})
	assert.Equal(t, 5*time.Second, c.Snapshot().CurrentTime)

	c.PreviewSeek(60 * time.Second)
	assert.Equal(t, 60*time.Second, c.Snapshot().CurrentTime)
	assert.Empty(t, el.SeekCalls(), "preview must not move the element")

	c.CommitSeek(60 * time.Second)
	snap := c.Snapshot()
	assert.Equal(t, 60*time.Second, snap.CurrentTime)
	assert.False(t, snap.IsSeeking)
	assert.Equal(t, []time.Duration{60 * time.Second}, el.SeekCalls())
	assert.Equal(t, 60*time.Second, el.Position())

	el.Emit(media.Event{Kind: media.PositionAdvanced, Value: secs(60.25)})
	assert.Equal(t, secs(60.25), c.Snapshot().CurrentTime, "updates resume after commit")
}

func TestScenarioC_PlayRejected(t *testing.T) {
	c, el := newTestController(t)
	sub := c.Subscribe()
	c.Attach("ep1.wav", 0)
	before := c.Snapshot()

	el.SetPlayError(errors.New("NotAllowedError"))
	c.TogglePlayPause(context.Background())

	assert.False(t, c.Snapshot().IsPlaying)
	assert.Equal(t, before, c.Snapshot())
	assert.Equal(t, 1, el.PlayCalls(), "no automatic retry")

	select {
	case e := <-sub.Error:
		assert.Equal(t, OpPlay, e.Operation)
		assert.Equal(t, "ep1.wav", e.Source)
		assert.ErrorIs(t, e, ErrPlayRejected)
	default:
		t.Fatal("expected play-rejected error event")
	}
}

func TestScenarioD_EndedResets(t *testing.T) {
	c, el := newTestController(t)
	c.Attach("ep1.wav", 0)
	el.Emit(media.Event{Kind: media.MetadataReady, Value: 30 * time.Second})
	c.TogglePlayPause(context.Background())
	el.Emit(media.Event{Kind: media.PositionAdvanced, Value: 29 * time.Second})

	el.Emit(media.Event{Kind: media.Ended})

	snap := c.Snapshot()
	assert.False(t, snap.IsPlaying)
	assert.Equal(t, time.Duration(0), snap.CurrentTime)
	assert.Equal(t, 1, el.PlayCalls(), "no auto-replay")
}

func TestTogglePlayPause_PausesWhenPlaying(t *testing.T) {
	c, el := newTestController(t)
	c.Attach("ep1.wav", 0)

	c.TogglePlayPause(context.Background())
	c.TogglePlayPause(context.Background())

	assert.False(t, c.Snapshot().IsPlaying)
	assert.Equal(t, 1, el.PauseCalls())
}

func TestTogglePlayPause_ReconcilesPositionBeforePlay(t *testing.T) {
	tests := []struct {
		name      string
		elemPos   time.Duration
		wantSeeks []time.Duration
	}{
		{"within tolerance", secs(40.3), nil},
		{"behind", 10 * time.Second, []time.Duration{40 * time.Second}},
		{"ahead", 50 * time.Second, []time.Duration{40 * time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, el := newTestController(t)
			c.Attach("ep1.wav", 0)
			el.Emit(media.Event{Kind: media.MetadataReady, Value: 100 * time.Second})
			c.PreviewSeek(40 * time.Second)
			el.SetPositionValue(tt.elemPos)

			c.TogglePlayPause(context.Background())

			assert.Equal(t, tt.wantSeeks, el.SeekCalls())
			assert.True(t, c.Snapshot().IsPlaying)
		})
	}
}

func TestTogglePlayPause_DetachedIsNoop(t *testing.T) {
	c, el := newTestController(t)

	c.TogglePlayPause(context.Background())

	assert.Zero(t, el.PlayCalls())
	assert.False(t, c.Snapshot().IsPlaying)
}

func TestTogglePlayPause_IgnoredWhilePlayPending(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c, el := newTestController(t)
		defer c.Close()
		c.Attach("ep1.wav", 0)
		release := el.HoldPlay()

		go c.TogglePlayPause(context.Background())
		synctest.Wait()

		c.TogglePlayPause(context.Background())
		assert.Equal(t, 1, el.PlayCalls())

		release()
		synctest.Wait()
		assert.True(t, c.Snapshot().IsPlaying)
	})
}

func TestTogglePlayPause_ResultDroppedAfterSourceChange(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c, el := newTestController(t)
		defer c.Close()
		c.Attach("ep1.wav", 0)
		release := el.HoldPlay()

		go c.TogglePlayPause(context.Background())
		synctest.Wait()

		c.Attach("ep2.wav", 0)
		release()
		synctest.Wait()

		snap := c.Snapshot()
		assert.Equal(t, "ep2.wav", snap.Source)
		assert.False(t, snap.IsPlaying)
	})
}

func TestTogglePlayPause_ResultAfterDetachPausesElement(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		c, el := newTestController(t)
		defer c.Close()
		c.Attach("ep1.wav", 0)
		release := el.HoldPlay()

		go c.TogglePlayPause(context.Background())
		synctest.Wait()

		c.Detach()
		release()
		synctest.Wait()

		assert.False(t, c.Snapshot().IsPlaying)
		assert.Equal(t, 1, el.PauseCalls())
	})
}

func TestSeekMasking_ArbitraryNotifications(t *testing.T) {
	c, el := newTestController(t)
	c.Attach("ep1.wav", 0)
	el.Emit(media.Event{Kind: media.MetadataReady, Value: 100 * time.Second})
	el.Emit(media.Event{Kind: media.PositionAdvanced, Value: 12 * time.Second})

	c.BeginSeek()
	for _, v := range []time.Duration{0, 3 * time.Second, 99 * time.Second, 500 * time.Second, -time.Second} {
		el.Emit(media.Event{Kind: media.PositionAdvanced, Value: v})
		require.Equal(t, 12*time.Second, c.Snapshot().CurrentTime)
	}

	c.PreviewSeek(20 * time.Second)
	el.Emit(media.Event{Kind: media.PositionAdvanced, Value: 70 * time.Second})
	assert.Equal(t, 20*time.Second, c.Snapshot().CurrentTime)
}

func TestSeek_Clamping(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		target   time.Duration
		want     time.Duration
	}{
		{"negative", 60 * time.Second, -5 * time.Second, 0},
		{"past end", 60 * time.Second, 90 * time.Second, 60 * time.Second},
		{"in range", 60 * time.Second, 30 * time.Second, 30 * time.Second},
		{"unknown duration is unbounded", 0, 3 * time.Hour, 3 * time.Hour},
		{"unknown duration negative", 0, -time.Second, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, el := newTestController(t)
			c.Attach("ep1.wav", 0)
			if tt.duration > 0 {
				el.Emit(media.Event{Kind: media.MetadataReady, Value: tt.duration})
			}

			c.BeginSeek()
			c.PreviewSeek(tt.target)
			assert.Equal(t, tt.want, c.Snapshot().CurrentTime)

			c.CommitSeek(tt.target)
			assert.Equal(t, tt.want, c.Snapshot().CurrentTime)
			assert.Equal(t, []time.Duration{tt.want}, el.SeekCalls())
		})
	}
}

func TestCommitSeek_NotSeekableIsOptimistic(t *testing.T) {
	c, el := newTestController(t)
	sub := c.Subscribe()
	c.Attach("ep1.wav", 0)
	el.SetSeekable(false)

	c.BeginSeek()
	c.CommitSeek(42 * time.Second)

	snap := c.Snapshot()
	assert.Equal(t, 42*time.Second, snap.CurrentTime)
	assert.False(t, snap.IsSeeking)

	select {
	case e := <-sub.Error:
		assert.Equal(t, OpSeek, e.Operation)
		assert.ErrorIs(t, e, ErrSeekNotReady)
		assert.ErrorIs(t, e, media.ErrNotSeekable)
	default:
		t.Fatal("expected seek-not-ready error event")
	}

	el.Emit(media.Event{Kind: media.PositionAdvanced, Value: 0})
	assert.Equal(t, time.Duration(0), c.Snapshot().CurrentTime, "next notification corrects the position")
}

func TestPositionAdvanced_ClampedOnIngestion(t *testing.T) {
	c, el := newTestController(t)
	c.Attach("ep1.wav", 0)
	el.Emit(media.Event{Kind: media.MetadataReady, Value: 10 * time.Second})

	el.Emit(media.Event{Kind: media.PositionAdvanced, Value: secs(10.7)})
	assert.Equal(t, 10*time.Second, c.Snapshot().CurrentTime)

	el.Emit(media.Event{Kind: media.PositionAdvanced, Value: -time.Second})
	assert.Equal(t, time.Duration(0), c.Snapshot().CurrentTime)
}

func TestInvariant_PositionWithinBounds(t *testing.T) {
	c, el := newTestController(t)
	c.Attach("ep1.wav", 0)

	check := func(step string) {
		t.Helper()
		s := c.Snapshot()
		require.GreaterOrEqual(t, s.CurrentTime, time.Duration(0), step)
		if s.Duration > 0 {
			require.LessOrEqual(t, s.CurrentTime, s.Duration, step)
		}
	}

	c.PreviewSeek(5 * time.Minute)
	check("preview with unknown duration")
	el.Emit(media.Event{Kind: media.MetadataReady, Value: 2 * time.Minute})
	check("duration arrives below displayed position")
	c.CommitSeek(3 * time.Minute)
	check("commit past end")
	el.Emit(media.Event{Kind: media.PositionAdvanced, Value: 4 * time.Minute})
	check("advance past end")
	c.SetDurationHint(time.Second)
	check("hint after real duration")
	el.Emit(media.Event{Kind: media.Ended})
	check("ended")
}

func TestDetach_Idempotent(t *testing.T) {
	c, el := newTestController(t)
	sub := c.Subscribe()
	c.Attach("ep1.wav", 0)
	c.TogglePlayPause(context.Background())
	for len(sub.Changed) > 0 {
		<-sub.Changed
	}

	c.Detach()
	require.Equal(t, 0, el.ListenerCount())
	require.Equal(t, 1, el.PauseCalls())
	published := len(sub.Changed)

	assert.NotPanics(t, c.Detach)
	assert.Equal(t, 1, el.PauseCalls())
	assert.Equal(t, published, len(sub.Changed), "second detach publishes nothing")
	active, _ := c.polling()
	assert.False(t, active)
}

func TestDetach_DropsLaterNotifications(t *testing.T) {
	c, el := newTestController(t)
	c.Attach("ep1.wav", 0)
	c.Detach()

	el.EmitStale(media.Event{Kind: media.MetadataReady, Value: time.Minute})
	el.EmitStale(media.Event{Kind: media.PositionAdvanced, Value: 10 * time.Second})

	snap := c.Snapshot()
	assert.Equal(t, time.Duration(0), snap.Duration)
	assert.Equal(t, time.Duration(0), snap.CurrentTime)
}

func TestAttach_QueuedEventsFromPreviousSourceDropped(t *testing.T) {
	c, el := newTestController(t)
	c.Attach("ep1.wav", 0)
	el.Queue(media.Event{Kind: media.PositionAdvanced, Value: 90 * time.Second})
	el.Queue(media.Event{Kind: media.DurationChanged, Value: 600 * time.Second})

	c.Attach("ep2.wav", 30*time.Second)
	el.Flush()

	snap := c.Snapshot()
	assert.Equal(t, time.Duration(0), snap.CurrentTime)
	assert.Equal(t, 30*time.Second, snap.Duration)

	c.SetDurationHint(45 * time.Second)
	assert.Equal(t, 45*time.Second, c.Snapshot().Duration, "hint still applies")

	el.Queue(media.Event{Kind: media.MetadataReady, Value: time.Minute})
	el.Flush()
	assert.Equal(t, time.Minute, c.Snapshot().Duration)
}

func TestAttach_SourceSwitchResets(t *testing.T) {
	c, el := newTestController(t)
	c.Attach("ep1.wav", 0)
	el.Emit(media.Event{Kind: media.MetadataReady, Value: 300 * time.Second})
	c.TogglePlayPause(context.Background())
	el.Emit(media.Event{Kind: media.PositionAdvanced, Value: 45 * time.Second})
	c.BeginSeek()

	c.Attach("ep2.wav", 90*time.Second)

	snap := c.Snapshot()
	assert.Equal(t, "ep2.wav", snap.Source)
	assert.False(t, snap.IsPlaying)
	assert.False(t, snap.IsSeeking)
	assert.Equal(t, time.Duration(0), snap.CurrentTime)
	assert.Equal(t, 90*time.Second, snap.Duration)
	assert.Equal(t, 1, el.ListenerCount())

	el.EmitStale(media.Event{Kind: media.MetadataReady, Value: 300 * time.Second})
	el.EmitStale(media.Event{Kind: media.PositionAdvanced, Value: 46 * time.Second})
	el.EmitStale(media.Event{Kind: media.Ended})

	assert.Equal(t, snap, c.Snapshot(), "old resource notifications are dropped")
}

func TestDuration_MonotonicUntilReset(t *testing.T) {
	c, el := newTestController(t)
	c.Attach("ep1.wav", 0)
	el.Emit(media.Event{Kind: media.MetadataReady, Value: 120 * time.Second})

	c.SetDurationHint(60 * time.Second)
	assert.Equal(t, 120*time.Second, c.Snapshot().Duration)

	el.Emit(media.Event{Kind: media.DurationChanged, Value: 100 * time.Second})
	assert.Equal(t, 120*time.Second, c.Snapshot().Duration)

	el.Emit(media.Event{Kind: media.DurationChanged, Value: 130 * time.Second})
	assert.Equal(t, 130*time.Second, c.Snapshot().Duration)

	c.Attach("ep1.wav", 60*time.Second)
	assert.Equal(t, 60*time.Second, c.Snapshot().Duration)
}

func TestSetDurationHint_BeforeRealDuration(t *testing.T) {
	c, el := newTestController(t)
	c.Attach("ep1.wav", 30*time.Second)

	c.SetDurationHint(45 * time.Second)

	assert.Equal(t, 45*time.Second, c.Snapshot().Duration)
	assert.Len(t, el.LoadCalls(), 1, "hint change does not resync")
}

func TestDuration_IgnoresNonPositive(t *testing.T) {
	c, el := newTestController(t)
	c.Attach("ep1.wav", 20*time.Second)

	el.Emit(media.Event{Kind: media.MetadataReady, Value: 0})
	el.Emit(media.Event{Kind: media.DurationChanged, Value: -time.Second})

	assert.Equal(t, 20*time.Second, c.Snapshot().Duration)
}

func TestPlayable_ProbesElementDuration(t *testing.T) {
	c, el := newTestController(t)
	c.Attach("ep1.wav", 0)
	el.SetDuration(75 * time.Second)

	el.Emit(media.Event{Kind: media.Playable})

	assert.Equal(t, 75*time.Second, c.Snapshot().Duration)
}

func TestDurationPoll_FindsDuration(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		el := media.NewMock()
		logger, _ := test.NewNullLogger()
		c := New(el, Options{Logger: logger})
		defer c.Close()

		c.Attach("ep1.wav", 0)
		active, left := c.polling()
		require.True(t, active)
		require.Equal(t, defaultPollAttempts, left)

		time.Sleep(defaultPollInterval + time.Millisecond)
		synctest.Wait()
		_, left = c.polling()
		assert.Equal(t, defaultPollAttempts-1, left)

		el.SetDuration(95 * time.Second)
		time.Sleep(defaultPollInterval)
		synctest.Wait()

		active, _ = c.polling()
		assert.False(t, active)
		assert.Equal(t, 95*time.Second, c.Snapshot().Duration)
	})
}

func TestDurationPoll_ExhaustsBudget(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		el := media.NewMock()
		logger, hook := test.NewNullLogger()
		c := New(el, Options{Logger: logger})
		defer c.Close()
		sub := c.Subscribe()

		c.Attach("ep1.wav", 0)
		time.Sleep(defaultPollAttempts*defaultPollInterval + time.Millisecond)
		synctest.Wait()

		active, _ := c.polling()
		assert.False(t, active)
		assert.Equal(t, time.Duration(0), c.Snapshot().Duration)

		select {
		case e := <-sub.Error:
			assert.Equal(t, OpMetadata, e.Operation)
			assert.ErrorIs(t, e, ErrMetadataUnavailable)
		default:
			t.Fatal("expected metadata-unavailable error event")
		}
		require.NotNil(t, hook.LastEntry())
		assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)

		el.SetDuration(time.Minute)
		time.Sleep(10 * defaultPollInterval)
		synctest.Wait()
		assert.Equal(t, time.Duration(0), c.Snapshot().Duration, "no polling after exhaustion")
	})
}

func TestDurationPoll_StopsOnMetadata(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		el := media.NewMock()
		logger, _ := test.NewNullLogger()
		c := New(el, Options{Logger: logger})
		defer c.Close()

		c.Attach("ep1.wav", 0)
		el.Emit(media.Event{Kind: media.MetadataReady, Value: 50 * time.Second})

		active, _ := c.polling()
		assert.False(t, active)
	})
}

func TestDurationPoll_CancelledOnDetachAndSwitch(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		el := media.NewMock()
		logger, _ := test.NewNullLogger()
		c := New(el, Options{Logger: logger})
		defer c.Close()

		c.Attach("ep1.wav", 0)
		time.Sleep(2 * defaultPollInterval)
		synctest.Wait()

		c.Attach("ep2.wav", 0)
		_, left := c.polling()
		assert.Equal(t, defaultPollAttempts, left, "new source gets a fresh budget")

		c.Detach()
		active, _ := c.polling()
		assert.False(t, active)

		el.SetDuration(time.Minute)
		time.Sleep(20 * defaultPollInterval)
		synctest.Wait()
		assert.Equal(t, time.Duration(0), c.Snapshot().Duration)
	})
}

func TestSubscribe_PublishesEveryMutation(t *testing.T) {
	c, el := newTestController(t)
	sub := c.Subscribe()

	c.Attach("ep1.wav", 0)
	el.Emit(media.Event{Kind: media.MetadataReady, Value: time.Minute})
	c.BeginSeek()

	var got []Snapshot
	for len(sub.Changed) > 0 {
		got = append(got, <-sub.Changed)
	}
	require.Len(t, got, 3)
	assert.Equal(t, "ep1.wav", got[0].Source)
	assert.Equal(t, time.Minute, got[1].Duration)
	assert.True(t, got[2].IsSeeking)
}

func TestClose_EndsSubscriptions(t *testing.T) {
	c, _ := newTestController(t)
	sub := c.Subscribe()

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	select {
	case <-sub.Done:
	default:
		t.Fatal("Done not closed")
	}

	late := c.Subscribe()
	select {
	case <-late.Done:
	default:
		t.Fatal("subscription after Close should be done")
	}
}

func TestSnapshot_Status(t *testing.T) {
	tests := []struct {
		snap Snapshot
		want Status
	}{
		{Snapshot{}, StatusDetached},
		{Snapshot{Source: "a"}, StatusPaused},
		{Snapshot{Source: "a", IsPlaying: true}, StatusPlaying},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.snap.Status())
		})
	}
	assert.Equal(t, "Unknown", Status(99).String())
}

func TestSnapshot_Remaining(t *testing.T) {
	assert.Equal(t, time.Duration(0), Snapshot{CurrentTime: time.Second}.Remaining())
	assert.Equal(t, 40*time.Second, Snapshot{CurrentTime: 20 * time.Second, Duration: time.Minute}.Remaining())
	assert.Equal(t, time.Duration(0), Snapshot{CurrentTime: 2 * time.Minute, Duration: time.Minute}.Remaining())
}
