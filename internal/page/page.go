// Package page 定义导览引擎所依赖的页面能力，具体实现由 CDP 适配层或测试替身提供。
package page

import (
	"context"

	"cdptour/pkg/model"
)

// Element 页面元素引用（不持有所有权），零值表示页面根节点
type Element struct {
	// ID 实现相关的句柄，例如 CDP RemoteObjectID
	ID string
	// Desc 调试用描述
	Desc string
}

// Root 页面根节点哨兵
var Root = Element{}

// IsRoot 是否为页面根节点
func (e Element) IsRoot() bool { return e.ID == "" }

// ViewportEvent 视口事件类型
type ViewportEvent string

const (
	EventResize ViewportEvent = "resize"
	EventScroll ViewportEvent = "scroll"
)

// Page 导览引擎访问页面所需的最小接口
type Page interface {
	// QuerySelector 按结构选择器查找元素
	QuerySelector(ctx context.Context, selector string) (Element, bool, error)
	// ElementByID 按裸 id 查找元素
	ElementByID(ctx context.Context, id string) (Element, bool, error)
	// ElementByAttribute 查找属性值完全相等的元素
	ElementByAttribute(ctx context.Context, name, value string) (Element, bool, error)
	// ElementByClassContains 查找 class 属性包含给定子串的元素
	ElementByClassContains(ctx context.Context, class string) (Element, bool, error)

	// Rect 元素在视口坐标系下的矩形
	Rect(ctx context.Context, el Element) (model.Rect, error)
	// Metrics 视口尺寸与滚动偏移
	Metrics(ctx context.Context) (model.Metrics, error)
	// ScrollTo 发起纵向滚动，smooth 为 true 时使用动画
	ScrollTo(ctx context.Context, top float64, smooth bool) error

	// AddViewportListener 注册窗口 resize/scroll 监听，返回的函数用于注销
	AddViewportListener(ctx context.Context, fn func(ViewportEvent)) (remove func(), err error)
}
