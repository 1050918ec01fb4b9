package controller

import (
	"context"
	"testing"
	"time"

	"github.com/nvr-ai/vehicle-detect/common"
	"github.com/nvr-ai/vehicle-detect/config"
	"github.com/nvr-ai/vehicle-detect/detector"
	"github.com/nvr-ai/vehicle-detect/images"
	"github.com/nvr-ai/vehicle-detect/pipeline"
	"github.com/nvr-ai/vehicle-detect/video"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"
	"gocv.io/x/gocv"
)

// runnerFunc adapts a function to Runner.
type runnerFunc func(ctx context.Context, req pipeline.Request) (pipeline.Stats, error)

func (f runnerFunc) Run(ctx context.Context, req pipeline.Request) (pipeline.Stats, error) {
	return f(ctx, req)
}

func validParams() config.RunParams {
	return config.RunParams{SourcePath: "in.mp4", OutputPath: "out.mp4", Threshold: 0.5}
}

func nextEvent(t *testing.T, c *Controller) Event {
	t.Helper()
	select {
	case ev := <-c.Events():
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestStart_Finished(t *testing.T) {
	var got pipeline.Request
	c := New(runnerFunc(func(ctx context.Context, req pipeline.Request) (pipeline.Stats, error) {
		got = req
		return pipeline.Stats{RunID: req.RunID, Frames: 12, OutputPath: req.Params.OutputPath}, nil
	}), Options{})

	runID, err := c.Start(context.Background(), validParams())
	require.NoError(t, err)
	assert.NotEmpty(t, runID)

	started := nextEvent(t, c)
	assert.Equal(t, EventStarted, started.Kind)
	assert.Equal(t, runID, started.RunID)

	finished := nextEvent(t, c)
	assert.Equal(t, EventFinished, finished.Kind)
	assert.Equal(t, 12, finished.Stats.Frames)
	assert.Equal(t, "out.mp4", finished.Stats.OutputPath)
	assert.NoError(t, finished.Err)

	c.Wait()
	assert.False(t, c.Active())
	assert.Equal(t, runID, got.RunID)
	assert.Equal(t, runID, c.RunID())
}

func TestStart_Failed(t *testing.T) {
	boom := &pipeline.Error{Stage: pipeline.Opening, Frame: -1, Err: errors.New("no such file")}
	c := New(runnerFunc(func(context.Context, pipeline.Request) (pipeline.Stats, error) {
		return pipeline.Stats{}, boom
	}), Options{})

	_, err := c.Start(context.Background(), validParams())
	require.NoError(t, err)

	assert.Equal(t, EventStarted, nextEvent(t, c).Kind)
	failed := nextEvent(t, c)
	assert.Equal(t, EventFailed, failed.Kind)

	var perr *pipeline.Error
	require.ErrorAs(t, failed.Err, &perr)
	assert.Equal(t, pipeline.Opening, perr.Stage)
}

func TestStart_RejectsInvalidParams(t *testing.T) {
	c := New(runnerFunc(func(context.Context, pipeline.Request) (pipeline.Stats, error) {
		t.Fatal("runner must not be called")
		return pipeline.Stats{}, nil
	}), Options{})

	_, err := c.Start(context.Background(), config.RunParams{Threshold: 0.5})
	assert.ErrorIs(t, err, config.ErrInvalidParameter)

	p := validParams()
	p.Threshold = 2
	_, err = c.Start(context.Background(), p)
	assert.ErrorIs(t, err, config.ErrInvalidParameter)

	assert.False(t, c.Active())
	assert.Empty(t, c.Events())
}

func TestStart_RejectsConcurrentRun(t *testing.T) {
	release := make(chan struct{})
	c := New(runnerFunc(func(context.Context, pipeline.Request) (pipeline.Stats, error) {
		<-release
		return pipeline.Stats{}, nil
	}), Options{})

	_, err := c.Start(context.Background(), validParams())
	require.NoError(t, err)
	assert.True(t, c.Active())

	_, err = c.Start(context.Background(), validParams())
	assert.ErrorIs(t, err, ErrRunActive)

	close(release)
	c.Wait()

	// The slot is free again once the run has ended.
	_, err = c.Start(context.Background(), validParams())
	assert.NoError(t, err)
	c.Wait()
}

func TestStop(t *testing.T) {
	c := New(runnerFunc(func(ctx context.Context, req pipeline.Request) (pipeline.Stats, error) {
		<-ctx.Done()
		return pipeline.Stats{RunID: req.RunID, Cancelled: true}, nil
	}), Options{})

	_, err := c.Start(context.Background(), validParams())
	require.NoError(t, err)
	assert.Equal(t, EventStarted, nextEvent(t, c).Kind)

	c.Stop()
	c.Wait()

	ev := nextEvent(t, c)
	assert.Equal(t, EventFinished, ev.Kind)
	assert.True(t, ev.Stats.Cancelled)
}

func TestStop_NoRun(t *testing.T) {
	c := New(runnerFunc(func(context.Context, pipeline.Request) (pipeline.Stats, error) {
		return pipeline.Stats{}, nil
	}), Options{})

	c.Stop()
	c.Wait()
	assert.False(t, c.Active())
}

func TestEmit_DropsStartedKeepsTerminal(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	entered := make(chan struct{}, 2)
	c := New(runnerFunc(func(_ context.Context, req pipeline.Request) (pipeline.Stats, error) {
		entered <- struct{}{}
		return pipeline.Stats{RunID: req.RunID}, nil
	}), Options{EventBuffer: 1, Logger: zap.New(core).Sugar()})

	first, err := c.Start(context.Background(), validParams())
	require.NoError(t, err)
	assert.Equal(t, EventStarted, nextEvent(t, c).Kind)
	c.Wait()

	// The unread Finished event of the first run fills the buffer.
	second, err := c.Start(context.Background(), validParams())
	require.NoError(t, err)
	<-entered
	<-entered

	ev := nextEvent(t, c)
	assert.Equal(t, EventFinished, ev.Kind)
	assert.Equal(t, first, ev.RunID)

	ev = nextEvent(t, c)
	assert.Equal(t, EventFinished, ev.Kind)
	assert.Equal(t, second, ev.RunID)
	c.Wait()

	dropped := logs.FilterMessage("event dropped, channel full").All()
	require.Len(t, dropped, 1)
	assert.Equal(t, "started", dropped[0].ContextMap()["kind"])
}

func TestController_WithPipeline(t *testing.T) {
	frames := make([]gocv.Mat, 3)
	for i := range frames {
		frames[i] = gocv.NewMatWithSize(32, 32, gocv.MatTypeCV8UC3)
		defer frames[i].Close()
	}
	sink := video.NewMemorySink(video.Info{})
	defer sink.Release()

	p, err := pipeline.New(pipeline.Options{
		Detector: detector.Static(common.Detection{
			Label: "car", Confidence: 0.8, Box: images.Rect{X1: 2, Y1: 2, X2: 20, Y2: 20},
		}),
		OpenSource: func(string) (video.Source, error) { return video.NewMemorySource(frames, 30), nil },
		OpenSink: func(_ string, info video.Info) (video.Sink, error) {
			sink.Info = info
			return sink, nil
		},
	})
	require.NoError(t, err)

	c := New(p, Options{})
	_, err = c.Start(context.Background(), validParams())
	require.NoError(t, err)

	assert.Equal(t, EventStarted, nextEvent(t, c).Kind)
	ev := nextEvent(t, c)
	require.Equal(t, EventFinished, ev.Kind, "err: %v", ev.Err)
	assert.Equal(t, 3, ev.Stats.Frames)
	assert.Equal(t, 3, ev.Stats.Rendered)
	assert.Len(t, sink.Frames(), 3)
}

func TestEventKind_String(t *testing.T) {
	assert.Equal(t, "started", EventStarted.String())
	assert.Equal(t, "finished", EventFinished.String())
	assert.Equal(t, "failed", EventFailed.String())
}
