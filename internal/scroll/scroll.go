package scroll

import (
	"context"
	"fmt"
	"time"

	"cdptour/internal/page"
)

// DefaultSettleDelay 平滑滚动后等待的固定时长。动画结束无法同步观测，这是近似值
const DefaultSettleDelay = 400 * time.Millisecond

// WaitFunc 等待指定时长或上下文取消
type WaitFunc func(ctx context.Context, d time.Duration) error

// Sleep 基于定时器的默认等待实现
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Coordinator 负责把目标元素滚动到视口垂直居中
type Coordinator struct {
	page   page.Page
	settle time.Duration
	wait   WaitFunc
}

// New 创建滚动协调器，wait 为空时使用 Sleep
func New(p page.Page, settle time.Duration, wait WaitFunc) *Coordinator {
	if wait == nil {
		wait = Sleep
	}
	return &Coordinator{page: p, settle: settle, wait: wait}
}

// Target 计算使元素垂直居中的滚动偏移，限制在 [0, 最大可滚动距离]
func Target(elTop, elHeight, scrollY, viewportHeight, docHeight float64) float64 {
	t := scrollY + elTop + elHeight/2 - viewportHeight/2
	maxScroll := docHeight - viewportHeight
	if t > maxScroll {
		t = maxScroll
	}
	if t < 0 {
		t = 0
	}
	return t
}

// RequestScroll 第一阶段：发起平滑滚动。根节点返回 false 表示无需等待
func (c *Coordinator) RequestScroll(ctx context.Context, el page.Element) (bool, error) {
	if el.IsRoot() {
		return false, nil
	}
	m, err := c.page.Metrics(ctx)
	if err != nil {
		return false, fmt.Errorf("reading viewport metrics: %w", err)
	}
	r, err := c.page.Rect(ctx, el)
	if err != nil {
		return false, fmt.Errorf("reading element rect: %w", err)
	}
	top := Target(r.Top, r.Height, m.ScrollY, m.ViewportHeight, m.DocumentHeight)
	if err := c.page.ScrollTo(ctx, top, true); err != nil {
		return false, fmt.Errorf("scrolling to %.0f: %w", top, err)
	}
	return true, nil
}

// Settled 第二阶段：等待固定的稳定时长
func (c *Coordinator) Settled(ctx context.Context) error {
	return c.wait(ctx, c.settle)
}

// CenterOn 滚动到目标并等待稳定
func (c *Coordinator) CenterOn(ctx context.Context, el page.Element) error {
	scrolled, err := c.RequestScroll(ctx, el)
	if err != nil || !scrolled {
		return err
	}
	return c.Settled(ctx)
}
