// Package pagetest 提供内存版 page.Page，用于不依赖浏览器的测试。
package pagetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"cdptour/internal/page"
	"cdptour/pkg/model"
)

// Fake 内存页面。元素矩形以页面坐标存储，Rect 返回时减去滚动偏移
type Fake struct {
	mu sync.Mutex

	selectors map[string]string
	ids       map[string]string
	attrs     map[string]string
	classes   map[string]string
	invalid   map[string]bool
	rects     map[string]model.Rect
	metrics   model.Metrics

	listeners map[int]func(page.ViewportEvent)
	nextID    int

	Scrolls []float64
	Adds    int
	Removes int
}

// New 创建指定视口尺寸与文档高度的页面
func New(width, height, docHeight float64) *Fake {
	return &Fake{
		selectors: map[string]string{},
		ids:       map[string]string{},
		attrs:     map[string]string{},
		classes:   map[string]string{},
		invalid:   map[string]bool{},
		rects:     map[string]model.Rect{},
		listeners: map[int]func(page.ViewportEvent){},
		metrics:   model.Metrics{ViewportWidth: width, ViewportHeight: height, DocumentHeight: docHeight},
	}
}

// AddElement 注册元素及其页面坐标矩形
func (f *Fake) AddElement(handle string, r model.Rect) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rects[handle] = r
	return f
}

// WithSelector 选择器命中
func (f *Fake) WithSelector(selector, handle string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selectors[selector] = handle
	return f
}

// WithID id 命中
func (f *Fake) WithID(id, handle string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids[id] = handle
	return f
}

// WithAttr 属性命中
func (f *Fake) WithAttr(name, value, handle string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attrs[name+"="+value] = handle
	return f
}

// WithClass 设置元素 class 属性
func (f *Fake) WithClass(handle, classAttr string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.classes[handle] = classAttr
	return f
}

// WithInvalidSelector 该选择器查询时返回语法错误
func (f *Fake) WithInvalidSelector(selector string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalid[selector] = true
	return f
}

// SetViewport 修改视口尺寸
func (f *Fake) SetViewport(width, height float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metrics.ViewportWidth = width
	f.metrics.ViewportHeight = height
}

// SetScroll 直接设置滚动偏移
func (f *Fake) SetScroll(x, y float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metrics.ScrollX = x
	f.metrics.ScrollY = y
}

// Fire 向所有监听者派发视口事件
func (f *Fake) Fire(ev page.ViewportEvent) {
	f.mu.Lock()
	fns := make([]func(page.ViewportEvent), 0, len(f.listeners))
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// ListenerCount 当前注册的监听者数量
func (f *Fake) ListenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

func (f *Fake) found(handle string) (page.Element, bool, error) {
	if handle == "" {
		return page.Root, false, nil
	}
	return page.Element{ID: handle, Desc: handle}, true, nil
}

func (f *Fake) QuerySelector(_ context.Context, selector string) (page.Element, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.invalid[selector] {
		return page.Root, false, fmt.Errorf("'%s' is not a valid selector", selector)
	}
	return f.found(f.selectors[selector])
}

func (f *Fake) ElementByID(_ context.Context, id string) (page.Element, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.found(f.ids[id])
}

func (f *Fake) ElementByAttribute(_ context.Context, name, value string) (page.Element, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.found(f.attrs[name+"="+value])
}

func (f *Fake) ElementByClassContains(_ context.Context, class string) (page.Element, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	handles := make([]string, 0, len(f.classes))
	for h := range f.classes {
		handles = append(handles, h)
	}
	sort.Strings(handles)
	for _, h := range handles {
		if strings.Contains(f.classes[h], class) {
			return f.found(h)
		}
	}
	return page.Root, false, nil
}

func (f *Fake) Rect(_ context.Context, el page.Element) (model.Rect, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rects[el.ID]
	if !ok {
		return model.Rect{}, fmt.Errorf("element %q detached", el.ID)
	}
	r.Top -= f.metrics.ScrollY
	r.Left -= f.metrics.ScrollX
	return r, nil
}

func (f *Fake) Metrics(_ context.Context) (model.Metrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.metrics, nil
}

// ScrollTo 立即生效，不模拟动画
func (f *Fake) ScrollTo(_ context.Context, top float64, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Scrolls = append(f.Scrolls, top)
	f.metrics.ScrollY = top
	return nil
}

func (f *Fake) AddViewportListener(_ context.Context, fn func(page.ViewportEvent)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = fn
	f.Adds++
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.listeners, id)
			f.Removes++
		})
	}, nil
}

// ScrollCount 已发起的滚动次数
func (f *Fake) ScrollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Scrolls)
}

// Counts 返回监听注册与注销次数
func (f *Fake) Counts() (adds, removes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Adds, f.Removes
}
