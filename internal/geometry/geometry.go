package geometry

import (
	"context"
	"fmt"

	"cdptour/internal/page"
	"cdptour/pkg/model"
)

// Options 几何参数（像素）
type Options struct {
	HighlightPadding float64 // 高亮框四周外扩
	ModalWidth       float64
	ModalHeight      float64
	ModalMargin      float64 // 判断空间是否足够时弹窗两侧各需的留白
	ArrowOffset      float64 // 弹窗与目标边缘的箭头间距
	ViewportPadding  float64 // 弹窗与视口边缘的最小距离
}

// DefaultOptions 默认几何参数
func DefaultOptions() Options {
	return Options{
		HighlightPadding: 8,
		ModalWidth:       320,
		ModalHeight:      200,
		ModalMargin:      20,
		ArrowOffset:      12,
		ViewportPadding:  16,
	}
}

// Engine 计算高亮框与弹窗位置，无内部状态
type Engine struct {
	opts Options
}

// New 创建几何引擎
func New(opts Options) *Engine {
	return &Engine{opts: opts}
}

// Options 返回当前参数
func (e *Engine) Options() Options { return e.opts }

// fallbackOrder 备选方位的固定枚举顺序，空间相同时靠前者优先
var fallbackOrder = []model.Placement{
	model.PlacementBottom,
	model.PlacementTop,
	model.PlacementRight,
	model.PlacementLeft,
}

// Highlight 计算页面坐标系下的高亮框，根节点返回零值
func (e *Engine) Highlight(r model.Rect, m model.Metrics, root bool) model.HighlightBox {
	if root {
		return model.HighlightBox{}
	}
	p := e.opts.HighlightPadding
	return model.HighlightBox{
		Top:    r.Top - p + m.ScrollY,
		Left:   r.Left - p + m.ScrollX,
		Width:  r.Width + 2*p,
		Height: r.Height + 2*p,
	}
}

// Space 目标元素四个方向的可用空间
type Space struct {
	Top, Bottom, Left, Right float64
}

func (s Space) of(p model.Placement) float64 {
	switch p {
	case model.PlacementTop:
		return s.Top
	case model.PlacementBottom:
		return s.Bottom
	case model.PlacementLeft:
		return s.Left
	case model.PlacementRight:
		return s.Right
	}
	return 0
}

// Available 计算视口内四个方向的可用空间
func Available(r model.Rect, m model.Metrics) Space {
	return Space{
		Top:    r.Top,
		Bottom: m.ViewportHeight - r.Bottom(),
		Left:   r.Left,
		Right:  m.ViewportWidth - r.Right(),
	}
}

// required 指定方位放下弹窗所需空间
func (e *Engine) required(p model.Placement) float64 {
	switch p {
	case model.PlacementTop, model.PlacementBottom:
		return e.opts.ModalHeight + 2*e.opts.ModalMargin
	case model.PlacementLeft, model.PlacementRight:
		return e.opts.ModalWidth + 2*e.opts.ModalMargin
	}
	return 0
}

// ResolvePlacement 选择最终方位：首选够用则采用；否则取够用方向中空间最大者；都不够则居中
func (e *Engine) ResolvePlacement(r model.Rect, m model.Metrics, preferred model.Placement) model.Placement {
	if preferred == "" {
		preferred = model.PlacementBottom
	}
	if preferred == model.PlacementCenter {
		return model.PlacementCenter
	}
	space := Available(r, m)
	if space.of(preferred) >= e.required(preferred) {
		return preferred
	}

	best := model.PlacementCenter
	bestSpace := 0.0
	for _, p := range fallbackOrder {
		s := space.of(p)
		if s < e.required(p) {
			continue
		}
		if best == model.PlacementCenter || s > bestSpace {
			best, bestSpace = p, s
		}
	}
	return best
}

// Position 计算弹窗位置，结果总是被限制在可见视口内
func (e *Engine) Position(r model.Rect, m model.Metrics, root bool, preferred model.Placement) model.ModalPosition {
	o := e.opts
	placement := model.PlacementCenter
	if !root {
		placement = e.ResolvePlacement(r, m, preferred)
	}

	var top, left float64
	switch placement {
	case model.PlacementTop:
		top = r.Top - o.ModalHeight - o.ArrowOffset
		left = r.Left + r.Width/2 - o.ModalWidth/2
	case model.PlacementBottom:
		top = r.Bottom() + o.ArrowOffset
		left = r.Left + r.Width/2 - o.ModalWidth/2
	case model.PlacementLeft:
		top = r.Top + r.Height/2 - o.ModalHeight/2
		left = r.Left - o.ModalWidth - o.ArrowOffset
	case model.PlacementRight:
		top = r.Top + r.Height/2 - o.ModalHeight/2
		left = r.Right() + o.ArrowOffset
	default:
		top = m.ViewportHeight/2 - o.ModalHeight/2
		left = m.ViewportWidth/2 - o.ModalWidth/2
	}

	top = clamp(top+m.ScrollY,
		m.ScrollY+o.ViewportPadding,
		m.ScrollY+m.ViewportHeight-o.ModalHeight-o.ViewportPadding)
	left = clamp(left+m.ScrollX,
		m.ScrollX+o.ViewportPadding,
		m.ScrollX+m.ViewportWidth-o.ModalWidth-o.ViewportPadding)

	return model.ModalPosition{Top: top, Left: left, Placement: placement}
}

// Unmeasured 视口信息读取失败时的弹窗位置：由渲染层固定在视口中央
func Unmeasured() model.ModalPosition {
	return model.ModalPosition{Placement: model.PlacementCenter, Fixed: true}
}

// Measure 读取元素矩形与视口信息并计算高亮框和弹窗位置。读取失败时降级为居中、无高亮
func (e *Engine) Measure(ctx context.Context, p page.Page, el page.Element, preferred model.Placement) (model.HighlightBox, model.ModalPosition, error) {
	m, err := p.Metrics(ctx)
	if err != nil {
		return model.HighlightBox{}, Unmeasured(), fmt.Errorf("reading viewport metrics: %w", err)
	}
	if el.IsRoot() {
		return e.Highlight(model.Rect{}, m, true), e.Position(model.Rect{}, m, true, preferred), nil
	}
	r, err := p.Rect(ctx, el)
	if err != nil {
		return e.Highlight(model.Rect{}, m, true), e.Position(model.Rect{}, m, true, preferred),
			fmt.Errorf("reading element rect: %w", err)
	}
	return e.Highlight(r, m, false), e.Position(r, m, false, preferred), nil
}

// MeasureHighlight 仅重新计算高亮框
func (e *Engine) MeasureHighlight(ctx context.Context, p page.Page, el page.Element) (model.HighlightBox, error) {
	if el.IsRoot() {
		return model.HighlightBox{}, nil
	}
	m, err := p.Metrics(ctx)
	if err != nil {
		return model.HighlightBox{}, fmt.Errorf("reading viewport metrics: %w", err)
	}
	r, err := p.Rect(ctx, el)
	if err != nil {
		return model.HighlightBox{}, fmt.Errorf("reading element rect: %w", err)
	}
	return e.Highlight(r, m, false), nil
}

// clamp 区间为空时取下界
func clamp(v, lo, hi float64) float64 {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
