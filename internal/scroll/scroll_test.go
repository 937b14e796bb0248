package scroll

import (
	"context"
	"testing"
	"time"

	"cdptour/internal/page"
	"cdptour/internal/page/pagetest"
	"cdptour/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetCentersAndClamps(t *testing.T) {
	assert.Equal(t, 850.0, Target(1200, 100, 0, 800, 3000))
	assert.Equal(t, 0.0, Target(50, 20, 0, 800, 3000))
	assert.Equal(t, 2200.0, Target(2900, 100, 0, 800, 3000))
	// 文档比视口短
	assert.Equal(t, 0.0, Target(300, 100, 0, 800, 600))
}

func TestCenterOnRootIsNoop(t *testing.T) {
	p := pagetest.New(1280, 800, 3000)
	waited := false
	c := New(p, DefaultSettleDelay, func(context.Context, time.Duration) error {
		waited = true
		return nil
	})
	require.NoError(t, c.CenterOn(context.Background(), page.Root))
	assert.Zero(t, p.ScrollCount())
	assert.False(t, waited)
}

// 稳定等待只是时间上的近似，这里只验证先滚动再等待固定时长
func TestCenterOnScrollsThenWaitsSettleDelay(t *testing.T) {
	p := pagetest.New(1280, 800, 3000).AddElement("table", model.Rect{Top: 1200, Left: 0, Width: 900, Height: 100})
	var got time.Duration
	c := New(p, 250*time.Millisecond, func(_ context.Context, d time.Duration) error {
		assert.Equal(t, 1, p.ScrollCount(), "scroll must be requested before waiting")
		got = d
		return nil
	})
	require.NoError(t, c.CenterOn(context.Background(), page.Element{ID: "table"}))
	assert.Equal(t, []float64{850}, p.Scrolls)
	assert.Equal(t, 250*time.Millisecond, got)
}

func TestSleepHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))
}

func TestCenterOnDetachedElement(t *testing.T) {
	p := pagetest.New(1280, 800, 3000)
	c := New(p, DefaultSettleDelay, nil)
	assert.Error(t, c.CenterOn(context.Background(), page.Element{ID: "gone"}))
}
