package geometry

import (
	"context"
	"errors"
	"testing"

	"cdptour/internal/page"
	"cdptour/internal/page/pagetest"
	"cdptour/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var viewport = model.Metrics{ViewportWidth: 1280, ViewportHeight: 800, DocumentHeight: 3000}

func TestHighlightRootIsZero(t *testing.T) {
	e := New(DefaultOptions())
	h := e.Highlight(model.Rect{Top: 10, Left: 10, Width: 50, Height: 50}, viewport, true)
	assert.True(t, h.Empty())
}

func TestHighlightAddsPaddingAndScroll(t *testing.T) {
	e := New(DefaultOptions())
	m := viewport
	m.ScrollX, m.ScrollY = 5, 300
	h := e.Highlight(model.Rect{Top: 100, Left: 40, Width: 200, Height: 50}, m, false)
	assert.Equal(t, model.HighlightBox{Top: 392, Left: 37, Width: 216, Height: 66}, h)
}

func TestPreferredPlacementHonored(t *testing.T) {
	e := New(DefaultOptions())
	r := model.Rect{Top: 350, Left: 540, Width: 200, Height: 100}
	for _, p := range []model.Placement{model.PlacementLeft, model.PlacementRight, model.PlacementTop, model.PlacementBottom} {
		assert.Equal(t, p, e.Position(r, viewport, false, p).Placement)
	}
}

func TestEmptyPreferredDefaultsToBottom(t *testing.T) {
	e := New(DefaultOptions())
	r := model.Rect{Top: 350, Left: 540, Width: 200, Height: 100}
	assert.Equal(t, model.PlacementBottom, e.Position(r, viewport, false, "").Placement)
}

func TestFallbackPicksLargestQualifyingSpace(t *testing.T) {
	e := New(DefaultOptions())

	// 宽元素贴住左上角：仅下方空间足够
	header := model.Rect{Top: 0, Left: 0, Width: 1000, Height: 60}
	for i := 0; i < 5; i++ {
		assert.Equal(t, model.PlacementBottom, e.Position(header, viewport, false, model.PlacementTop).Placement)
	}

	// 窄元素贴住左上角：右侧空间更大
	badge := model.Rect{Top: 0, Left: 0, Width: 100, Height: 60}
	assert.Equal(t, model.PlacementRight, e.Position(badge, viewport, false, model.PlacementTop).Placement)
}

func TestFallbackPrefersBottomWhenBottomAndRightFit(t *testing.T) {
	e := New(DefaultOptions())
	portrait := model.Metrics{ViewportWidth: 800, ViewportHeight: 1280, DocumentHeight: 3000}
	// 下方 1180、右侧 500，二者都够用
	r := model.Rect{Top: 0, Left: 0, Width: 300, Height: 100}
	space := Available(r, portrait)
	require.GreaterOrEqual(t, space.Right, 360.0)
	require.GreaterOrEqual(t, space.Bottom, 240.0)

	for _, preferred := range []model.Placement{model.PlacementTop, model.PlacementLeft} {
		assert.Equal(t, model.PlacementBottom, e.Position(r, portrait, false, preferred).Placement)
	}
}

func TestFallbackTieKeepsEnumerationOrder(t *testing.T) {
	e := New(DefaultOptions())
	// 上下空间相同且左右都不够
	r := model.Rect{Top: 300, Left: 0, Width: 1280, Height: 200}
	assert.Equal(t, model.PlacementBottom, e.ResolvePlacement(r, viewport, model.PlacementLeft))
}

func TestNoSpaceFallsBackToCenter(t *testing.T) {
	e := New(DefaultOptions())
	r := model.Rect{Top: -100, Left: -100, Width: 1500, Height: 1000}
	pos := e.Position(r, viewport, false, model.PlacementTop)
	assert.Equal(t, model.PlacementCenter, pos.Placement)
}

func TestRootIsCentered(t *testing.T) {
	e := New(DefaultOptions())
	m := viewport
	m.ScrollY = 1000
	pos := e.Position(model.Rect{}, m, true, model.PlacementLeft)
	assert.Equal(t, model.ModalPosition{Top: 1300, Left: 480, Placement: model.PlacementCenter}, pos)
}

func TestBottomPositionCoordinates(t *testing.T) {
	e := New(DefaultOptions())
	m := viewport
	m.ScrollY = 100
	pos := e.Position(model.Rect{Top: 350, Left: 540, Width: 200, Height: 100}, m, false, model.PlacementBottom)
	assert.Equal(t, model.ModalPosition{Top: 562, Left: 480, Placement: model.PlacementBottom}, pos)
}

func TestPositionAlwaysWithinViewport(t *testing.T) {
	o := DefaultOptions()
	e := New(o)
	sizes := []float64{0, 10, 300, 900, 3000}
	offsets := []float64{-2000, -50, 0, 120, 640, 1270, 4000}
	scrolls := []float64{0, 37, 1500}
	placements := []model.Placement{model.PlacementTop, model.PlacementBottom, model.PlacementLeft, model.PlacementRight, model.PlacementCenter}

	for _, w := range sizes {
		for _, h := range sizes {
			for _, x := range offsets {
				for _, y := range offsets {
					for _, s := range scrolls {
						m := viewport
						m.ScrollX, m.ScrollY = s/3, s
						r := model.Rect{Top: y, Left: x, Width: w, Height: h}
						for _, p := range placements {
							pos := e.Position(r, m, false, p)
							require.GreaterOrEqual(t, pos.Left, m.ScrollX+o.ViewportPadding)
							require.LessOrEqual(t, pos.Left, m.ScrollX+m.ViewportWidth-o.ModalWidth-o.ViewportPadding)
							require.GreaterOrEqual(t, pos.Top, m.ScrollY+o.ViewportPadding)
							require.LessOrEqual(t, pos.Top, m.ScrollY+m.ViewportHeight-o.ModalHeight-o.ViewportPadding)
						}
					}
				}
			}
		}
	}
}

func TestMeasureReadsPage(t *testing.T) {
	p := pagetest.New(1280, 800, 3000).AddElement("nav", model.Rect{Top: 1200, Left: 0, Width: 220, Height: 400})
	p.SetScroll(0, 1000)
	e := New(DefaultOptions())

	h, pos, err := e.Measure(context.Background(), p, page.Element{ID: "nav"}, model.PlacementRight)
	require.NoError(t, err)
	assert.Equal(t, 1192.0, h.Top)
	assert.Equal(t, model.PlacementRight, pos.Placement)
	assert.Equal(t, 220+12.0, pos.Left)
}

func TestMeasureDetachedElementDegrades(t *testing.T) {
	p := pagetest.New(1280, 800, 3000)
	e := New(DefaultOptions())

	h, pos, err := e.Measure(context.Background(), p, page.Element{ID: "gone"}, model.PlacementTop)
	assert.Error(t, err)
	assert.True(t, h.Empty())
	assert.Equal(t, model.PlacementCenter, pos.Placement)
}

type noMetrics struct{ *pagetest.Fake }

func (noMetrics) Metrics(context.Context) (model.Metrics, error) {
	return model.Metrics{}, errors.New("execution context was destroyed")
}

func TestMeasureWithoutMetricsPinsModalToViewport(t *testing.T) {
	p := pagetest.New(1280, 800, 3000).AddElement("nav", model.Rect{Top: 1200, Width: 220, Height: 400})
	p.SetScroll(0, 1000)
	e := New(DefaultOptions())

	h, pos, err := e.Measure(context.Background(), noMetrics{p}, page.Element{ID: "nav"}, model.PlacementRight)
	assert.Error(t, err)
	assert.True(t, h.Empty())
	assert.True(t, pos.Fixed)
	assert.Equal(t, model.PlacementCenter, pos.Placement)
}
