package profiler

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"
)

func TestStartOperation(t *testing.T) {
	mock := clock.NewMock()
	p := New(mock, 0)

	done := p.StartOperation(StageDetect)
	mock.Add(30 * time.Millisecond)
	done()

	done = p.StartOperation(StageDetect)
	mock.Add(10 * time.Millisecond)
	done()

	done = p.StartOperation(StageWrite)
	mock.Add(5 * time.Millisecond)
	done()

	stats := p.Snapshot()
	require.Len(t, stats, 2)

	assert.Equal(t, StageStats{
		Name:  StageDetect,
		Count: 2,
		Total: 40 * time.Millisecond,
		Avg:   20 * time.Millisecond,
		Min:   10 * time.Millisecond,
		Max:   30 * time.Millisecond,
	}, stats[0])
	assert.Equal(t, StageWrite, stats[1].Name)
	assert.Equal(t, int64(1), stats[1].Count)
}

func TestRecord_Window(t *testing.T) {
	p := New(nil, 2)

	p.Record(StageRead, 100*time.Millisecond)
	p.Record(StageRead, 2*time.Millisecond)
	p.Record(StageRead, 4*time.Millisecond)

	stats := p.Snapshot()
	require.Len(t, stats, 1)
	assert.Equal(t, int64(3), stats[0].Count)
	assert.Equal(t, 3*time.Millisecond, stats[0].Avg)
	assert.Equal(t, 100*time.Millisecond, stats[0].Max)
	assert.Equal(t, 2*time.Millisecond, stats[0].Min)
}

func TestRecord_Concurrent(t *testing.T) {
	p := New(nil, 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p.Record(StageAudit, time.Microsecond)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(800), p.Snapshot()[0].Count)
}

func TestReport(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	p := New(nil, 0)
	p.Record(StageFilter, time.Millisecond)
	p.Record(StageAnnotate, time.Millisecond)

	p.Report(zap.New(core).Sugar())

	assert.Equal(t, 2, logs.FilterMessage("stage timing").Len())
	assert.Equal(t, 1, logs.FilterMessage("runtime").Len())
}
