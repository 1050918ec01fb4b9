package preview

import (
	"image"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nvr-ai/vehicle-detect/video"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func solidMat(t *testing.T, rows, cols int, v float64) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(v, v, v, 0), rows, cols, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestSlot_OverwriteAndDrops(t *testing.T) {
	s := NewSlot(0, 0)

	f, fresh := s.Latest()
	assert.Nil(t, f)
	assert.False(t, fresh)

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	s.publish(0, img, time.Now())
	s.publish(1, img, time.Now())
	s.publish(2, img, time.Now())

	f, fresh = s.Latest()
	require.NotNil(t, f)
	assert.True(t, fresh)
	assert.Equal(t, 2, f.Index)
	assert.Equal(t, uint64(3), f.Seq)

	f, fresh = s.Latest()
	assert.False(t, fresh)
	assert.Equal(t, 2, f.Index)

	s.publish(3, img, time.Now())
	assert.Equal(t, Stats{Published: 4, Consumed: 1, Drops: 2}, s.Stats())
}

func TestSlot_PublishThumbnails(t *testing.T) {
	s := NewSlot(100, 100)
	frame := solidMat(t, 240, 320, 128)

	require.NoError(t, s.Publish(7, frame))

	f, fresh := s.Latest()
	require.True(t, fresh)
	assert.Equal(t, 7, f.Index)
	assert.Equal(t, image.Rect(0, 0, 100, 75), f.Image.Bounds())
}

func TestSlot_Close(t *testing.T) {
	s := NewSlot(0, 0)
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	s.publish(0, img, time.Now())
	s.Close()
	s.publish(1, img, time.Now())

	f, _ := s.Latest()
	assert.Equal(t, 0, f.Index)
	assert.Equal(t, uint64(1), s.Stats().Published)
}

func TestSlot_ConcurrentReaders(t *testing.T) {
	s := NewSlot(0, 0)
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			s.publish(i, img, time.Now())
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			s.Latest()
		}
	}()
	wg.Wait()

	stats := s.Stats()
	assert.Equal(t, uint64(500), stats.Published)
	assert.LessOrEqual(t, stats.Consumed+stats.Drops, stats.Published)
}

func TestFirstFrameThumbnail(t *testing.T) {
	first := solidMat(t, 720, 1280, 200)
	second := solidMat(t, 720, 1280, 10)
	src := video.NewMemorySource([]gocv.Mat{first, second}, 30)

	img, err := FirstFrameThumbnail(src, ThumbnailSize)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 300, 168), img.Bounds())

	r, _, _, _ := img.At(150, 84).RGBA()
	assert.InDelta(t, 200, r>>8, 2)

	path := filepath.Join(t.TempDir(), "preview.png")
	require.NoError(t, WriteImage(path, img))

	written := gocv.IMRead(path, gocv.IMReadColor)
	defer written.Close()
	assert.Equal(t, 300, written.Cols())
	assert.Equal(t, 168, written.Rows())
}

func TestFirstFrameThumbnail_Empty(t *testing.T) {
	src := video.NewMemorySource(nil, 30)
	_, err := FirstFrameThumbnail(src, ThumbnailSize)
	assert.Error(t, err)
}
