// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/pcmout/audio"
	"github.com/ik5/pcmout/formats/wav"
	"github.com/ik5/pcmout/internal/audiotest"
	"github.com/ik5/pcmout/output"
)

// recorder is a Listener that keeps every notification.
type recorder struct {
	mu       sync.Mutex
	events   []string
	terminal chan string
}

func newRecorder() *recorder {
	return &recorder{terminal: make(chan string, 32)}
}

func (r *recorder) add(ev string) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) OnPlaybackStarted() { r.add("started") }

func (r *recorder) OnPlaybackStopped() {
	r.add("stopped")
	r.terminal <- "stopped"
}

func (r *recorder) OnPlaybackError(reason string) {
	r.add("error: " + reason)
	r.terminal <- "error: " + reason
}

func (r *recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.events...)
}

func (r *recorder) waitTerminal(t *testing.T, timeout time.Duration) string {
	t.Helper()

	select {
	case ev := <-r.terminal:
		return ev
	case <-time.After(timeout):
		t.Fatalf("no terminal notification within %v (events %v)", timeout, r.Events())
		return ""
	}
}

// readers opens wave files and remembers them so tests can check they were
// all released.
type readers struct {
	mu   sync.Mutex
	list []audio.Reader
}

func (rs *readers) open(path string) (audio.Reader, error) {
	r, err := wav.Open(path)
	if err != nil {
		return nil, err
	}

	rs.mu.Lock()
	rs.list = append(rs.list, r)
	rs.mu.Unlock()

	return r, nil
}

func (rs *readers) openCount() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	n := 0
	for _, r := range rs.list {
		if r.IsOpen() {
			n++
		}
	}

	return n
}

type fixture struct {
	dev     *audiotest.Device
	rec     *recorder
	readers *readers
	eng     *Engine
}

func newFixture(t *testing.T, dev *audiotest.Device, path string, opts ...Option) *fixture {
	t.Helper()

	f := &fixture{dev: dev, rec: newRecorder(), readers: &readers{}}

	cfg := audio.DefaultConfiguration()
	cfg.AudioFilePath = path

	opts = append([]Option{
		WithListener(f.rec),
		WithReaderOpener(f.readers.open),
		WithConfiguration(cfg),
		WithStopTimeout(5 * time.Second),
	}, opts...)

	f.eng = New(dev, opts...)
	t.Cleanup(f.eng.Release)

	return f
}

func modes() []output.DataPath {
	return []output.DataPath{output.PullMode, output.PushMode}
}

func TestEngine_HappyPath(t *testing.T) {
	t.Parallel()

	for _, mode := range modes() {
		t.Run(mode.String(), func(t *testing.T) {
			t.Parallel()

			path := audiotest.WriteWAV(t, audiotest.S1)
			f := newFixture(t, audiotest.NewDevice(1), path, WithMode(mode))

			begin := time.Now()
			require.NoError(t, f.eng.Start())
			assert.Equal(t, Running, f.eng.State())

			assert.Equal(t, "stopped", f.rec.waitTerminal(t, 1200*time.Millisecond))
			assert.LessOrEqual(t, time.Since(begin), 1200*time.Millisecond)

			assert.Equal(t, []string{"started", "stopped"}, f.rec.Events())
			assert.Equal(t, Idle, f.eng.State())
			assert.Equal(t, 0, f.dev.OpenStreams())
			assert.Equal(t, 0, f.readers.openCount())

			burstBytes := int64(f.dev.Last().FramesPerBurst() * 4)
			accepted := f.dev.AcceptedBytes()
			assert.GreaterOrEqual(t, accepted, int64(192000))
			assert.LessOrEqual(t, accepted, int64(192000)+burstBytes)

			assert.Equal(t, int64(192000), f.eng.Stats().BytesDelivered)
		})
	}
}

func TestEngine_EarlyStop(t *testing.T) {
	t.Parallel()

	for _, mode := range modes() {
		t.Run(mode.String(), func(t *testing.T) {
			t.Parallel()

			path := audiotest.WriteWAV(t, audiotest.S1)
			f := newFixture(t, audiotest.NewDevice(1), path, WithMode(mode))

			require.NoError(t, f.eng.Start())
			time.Sleep(100 * time.Millisecond)

			begin := time.Now()
			f.eng.Stop()
			assert.Less(t, time.Since(begin), 5*time.Second)

			assert.Equal(t, "stopped", f.rec.waitTerminal(t, time.Second))
			assert.Equal(t, Idle, f.eng.State())
			assert.Equal(t, 0, f.dev.OpenStreams())
			assert.Equal(t, 0, f.readers.openCount())
			assert.Less(t, f.eng.Stats().BytesDelivered, int64(192000))

			// nothing else arrives
			time.Sleep(50 * time.Millisecond)
			assert.Equal(t, []string{"started", "stopped"}, f.rec.Events())

			require.NoError(t, f.eng.Start())
			f.eng.Stop()
			assert.Equal(t, "stopped", f.rec.waitTerminal(t, time.Second))
		})
	}
}

func TestEngine_MissingFile(t *testing.T) {
	t.Parallel()

	f := newFixture(t, audiotest.NewDevice(1), filepath.Join(t.TempDir(), "48k_2ch_16bit.wav"))

	err := f.eng.Start()
	require.Error(t, err)
	assert.ErrorIs(t, err, audio.ErrIO)
	assert.Equal(t, Idle, f.eng.State())
	assert.Equal(t, 0, f.dev.Opened())

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, f.rec.Events())
}

func TestEngine_BadHeader(t *testing.T) {
	t.Parallel()

	f := newFixture(t, audiotest.NewDevice(1), audiotest.WriteBadMagic(t))

	err := f.eng.Start()
	assert.ErrorIs(t, err, audio.ErrInvalidFormat)
	assert.Equal(t, Idle, f.eng.State())
	assert.Equal(t, 0, f.dev.Opened())

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, f.rec.Events())
}

func TestEngine_Float32(t *testing.T) {
	t.Parallel()

	for _, mode := range modes() {
		t.Run(mode.String(), func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, audiotest.NewDevice(10), audiotest.WriteWAV(t, audiotest.S5), WithMode(mode))

			require.NoError(t, f.eng.Start())
			assert.Equal(t, audio.FormatFloat32, f.dev.Last().Format())
			assert.Equal(t, 1, f.dev.Last().Channels())

			assert.Equal(t, "stopped", f.rec.waitTerminal(t, 2*time.Second))
			assert.GreaterOrEqual(t, f.dev.AcceptedBytes(), int64(192000))
		})
	}
}

func TestEngine_BackToBack(t *testing.T) {
	t.Parallel()

	for _, mode := range modes() {
		t.Run(mode.String(), func(t *testing.T) {
			t.Parallel()

			path := audiotest.WriteWAV(t, audiotest.S1)
			f := newFixture(t, audiotest.NewDevice(20), path, WithMode(mode))

			for i := range 10 {
				require.NoError(t, f.eng.Start(), "run %d", i)
				require.Equal(t, "stopped", f.rec.waitTerminal(t, 2*time.Second), "run %d", i)

				assert.LessOrEqual(t, f.dev.OpenStreams(), 1)
				assert.LessOrEqual(t, f.readers.openCount(), 1)
			}

			assert.Equal(t, 10, f.dev.Opened())
			assert.Equal(t, 0, f.dev.OpenStreams())
			assert.Equal(t, 0, f.readers.openCount())
			assert.Len(t, f.rec.Events(), 20)
		})
	}
}

func TestEngine_StopDuringStarting(t *testing.T) {
	t.Parallel()

	dev := audiotest.NewDevice(1)
	dev.StartDelay = 50 * time.Millisecond
	f := newFixture(t, dev, audiotest.WriteWAV(t, audiotest.S1))

	started := make(chan error, 1)
	go func() { started <- f.eng.Start() }()

	require.Eventually(t, func() bool { return f.eng.State() == Starting }, time.Second, time.Millisecond)
	f.eng.Stop()

	require.NoError(t, <-started)
	assert.Equal(t, Idle, f.eng.State())
	assert.Equal(t, 0, dev.OpenStreams())
	assert.Equal(t, 0, f.readers.openCount())
	assert.Equal(t, "stopped", f.rec.waitTerminal(t, time.Second))
}

func TestEngine_StartWhileRunning(t *testing.T) {
	t.Parallel()

	f := newFixture(t, audiotest.NewDevice(1), audiotest.WriteWAV(t, audiotest.S1))

	require.NoError(t, f.eng.Start())
	assert.ErrorIs(t, f.eng.Start(), ErrNotIdle)
	assert.Equal(t, 1, f.dev.Opened())

	f.eng.Stop()
	f.rec.waitTerminal(t, time.Second)
}

func TestEngine_StopWhenIdle(t *testing.T) {
	t.Parallel()

	f := newFixture(t, audiotest.NewDevice(1), audiotest.WriteWAV(t, audiotest.S1))

	f.eng.Stop()
	f.eng.Stop()

	assert.Equal(t, Idle, f.eng.State())
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, f.rec.Events())
}

func TestEngine_SetConfig(t *testing.T) {
	t.Parallel()

	path := audiotest.WriteWAV(t, audiotest.S1)
	f := newFixture(t, audiotest.NewDevice(1), path)

	cfg := audio.ParseConfiguration("GAME", "MOVIE", "POWER_SAVING", "EXCLUSIVE", path)
	require.NoError(t, f.eng.SetConfig(cfg))
	assert.Equal(t, cfg, f.eng.Config())

	require.NoError(t, f.eng.Start())
	assert.ErrorIs(t, f.eng.SetConfig(audio.DefaultConfiguration()), ErrNotIdle)

	req := f.dev.Requests()[0]
	assert.Equal(t, audio.UsageGame, req.Usage)
	assert.Equal(t, audio.SharingExclusive, req.SharingMode)
	assert.Equal(t, 4800, req.CapacityFrames)
	assert.Equal(t, 192*4, f.dev.Last().BufferSizeFrames())

	f.eng.Stop()
	f.rec.waitTerminal(t, time.Second)
	assert.Equal(t, cfg, f.eng.Config())
}

func TestEngine_StartFailuresRollBack(t *testing.T) {
	t.Parallel()

	platform := errors.New("AAUDIO_ERROR_UNAVAILABLE")

	tests := []struct {
		name string
		dev  *audiotest.Device
		want error
	}{
		{"builder", &audiotest.Device{BuilderErr: platform}, output.ErrBuilderCreateFailed},
		{"open", &audiotest.Device{OpenErr: platform}, output.ErrOpenFailed},
		{"request start", &audiotest.Device{StartErr: platform}, output.ErrRequestStartFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, tt.dev, audiotest.WriteWAV(t, audiotest.S1))

			err := f.eng.Start()
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, audio.ErrStreamOpenFailed)
			assert.ErrorIs(t, err, platform)

			assert.Equal(t, Idle, f.eng.State())
			assert.Equal(t, 0, tt.dev.OpenStreams())
			assert.Equal(t, 0, f.readers.openCount())

			time.Sleep(20 * time.Millisecond)
			assert.Empty(t, f.rec.Events())
		})
	}
}

func TestEngine_DeviceError(t *testing.T) {
	t.Parallel()

	for _, mode := range modes() {
		t.Run(mode.String(), func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, audiotest.NewDevice(1), audiotest.WriteWAV(t, audiotest.S1), WithMode(mode))

			require.NoError(t, f.eng.Start())
			time.Sleep(30 * time.Millisecond)
			f.dev.InjectError(errors.New("AAUDIO_ERROR_DISCONNECTED"))

			ev := f.rec.waitTerminal(t, time.Second)
			assert.Contains(t, ev, "error: output device error")

			assert.Equal(t, Idle, f.eng.State())
			assert.Equal(t, 0, f.dev.OpenStreams())
			assert.Equal(t, 0, f.readers.openCount())

			time.Sleep(20 * time.Millisecond)
			assert.Len(t, f.rec.Events(), 2)

			// no automatic restart, a fresh start works
			require.NoError(t, f.eng.Start())
			f.eng.Stop()
			assert.Equal(t, "stopped", f.rec.waitTerminal(t, time.Second))
		})
	}
}

func TestEngine_PushWriteError(t *testing.T) {
	t.Parallel()

	dev := audiotest.NewDevice(10)
	dev.WriteErr = errors.New("AAUDIO_ERROR_TIMEOUT")
	dev.WriteErrAfter = 5

	f := newFixture(t, dev, audiotest.WriteWAV(t, audiotest.S1), WithMode(output.PushMode))

	require.NoError(t, f.eng.Start())

	ev := f.rec.waitTerminal(t, time.Second)
	assert.Equal(t, "error: output device error: AAUDIO_ERROR_TIMEOUT", ev)
	assert.Equal(t, Idle, f.eng.State())
	assert.Equal(t, 0, dev.OpenStreams())
}

func TestEngine_Release(t *testing.T) {
	t.Parallel()

	f := newFixture(t, audiotest.NewDevice(1), audiotest.WriteWAV(t, audiotest.S1))

	require.NoError(t, f.eng.Start())
	f.eng.Release()

	assert.Equal(t, "stopped", f.rec.waitTerminal(t, time.Second))
	assert.Equal(t, 0, f.dev.OpenStreams())
	assert.ErrorIs(t, f.eng.Start(), ErrReleased)
	assert.ErrorIs(t, f.eng.SetConfig(audio.DefaultConfiguration()), ErrReleased)

	f.eng.Release()
}

func TestEngine_StopFromListener(t *testing.T) {
	t.Parallel()

	dev := audiotest.NewDevice(1)
	path := audiotest.WriteWAV(t, audiotest.S1)

	var eng *Engine
	stopped := make(chan struct{})
	eng = New(dev,
		WithConfiguration(audio.ParseConfiguration("", "", "", "", path)),
		WithListener(listenerFuncs{
			started: func() { eng.Stop() },
			stopped: func() { close(stopped) },
		}),
	)
	defer eng.Release()

	require.NoError(t, eng.Start())

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("stop issued from the listener did not complete")
	}
	assert.Equal(t, Idle, eng.State())
}

type listenerFuncs struct {
	started func()
	stopped func()
}

func (l listenerFuncs) OnPlaybackStarted() {
	if l.started != nil {
		l.started()
	}
}

func (l listenerFuncs) OnPlaybackStopped() {
	if l.stopped != nil {
		l.stopped()
	}
}

func (listenerFuncs) OnPlaybackError(string) {}
