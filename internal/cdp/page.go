package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"cdptour/internal/logger"
	"cdptour/internal/page"
	"cdptour/pkg/model"

	"github.com/mafredri/cdp"
	"github.com/mafredri/cdp/protocol/runtime"
	"github.com/mafredri/cdp/rpcc"
	"github.com/tidwall/gjson"
)

// objectGroup 本工具创建的远程对象统一归组，关闭时一并释放
const objectGroup = "cdptour"

// Page 基于 CDP Runtime 域实现的 page.Page
type Page struct {
	target model.TargetID
	conn   *rpcc.Conn
	client *cdp.Client
	log    logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	onAction func(action string)
}

var _ page.Page = (*Page)(nil)

func newPage(target model.TargetID, conn *rpcc.Conn, client *cdp.Client, l logger.Logger) *Page {
	ctx, cancel := context.WithCancel(context.Background())
	return &Page{target: target, conn: conn, client: client, log: l, ctx: ctx, cancel: cancel}
}

// Target 页面 ID
func (p *Page) Target() model.TargetID { return p.target }

// SetActionHandler 设置遮罩按钮（next/prev/skip/close）的回调
func (p *Page) SetActionHandler(fn func(action string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onAction = fn
}

func (p *Page) actionHandler() func(string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.onAction
}

// Close 释放远程对象并断开连接
func (p *Page) Close() error {
	p.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = p.client.Runtime.ReleaseObjectGroup(ctx, runtime.NewReleaseObjectGroupArgs(objectGroup))
	return p.conn.Close()
}

func (p *Page) QuerySelector(ctx context.Context, selector string) (page.Element, bool, error) {
	return p.lookup(ctx, "document.querySelector("+jsString(selector)+")", selector)
}

func (p *Page) ElementByID(ctx context.Context, id string) (page.Element, bool, error) {
	return p.lookup(ctx, "document.getElementById("+jsString(id)+")", "#"+id)
}

func (p *Page) ElementByAttribute(ctx context.Context, name, value string) (page.Element, bool, error) {
	expr := fmt.Sprintf(`(function(n, v) {
	const all = document.querySelectorAll("[" + CSS.escape(n) + "]");
	for (const el of all) { if (el.getAttribute(n) === v) return el; }
	return null;
})(%s, %s)`, jsString(name), jsString(value))
	return p.lookup(ctx, expr, fmt.Sprintf("[%s=%q]", name, value))
}

func (p *Page) ElementByClassContains(ctx context.Context, class string) (page.Element, bool, error) {
	expr := fmt.Sprintf(`(function(c) {
	const all = document.querySelectorAll("[class]");
	for (const el of all) { if ((el.getAttribute("class") || "").includes(c)) return el; }
	return null;
})(%s)`, jsString(class))
	return p.lookup(ctx, expr, "."+class+"*")
}

func (p *Page) lookup(ctx context.Context, expr, desc string) (page.Element, bool, error) {
	obj, err := p.eval(ctx, expr, false)
	if err != nil {
		return page.Root, false, err
	}
	if obj.ObjectID == nil || (obj.Subtype != nil && *obj.Subtype == "null") {
		return page.Root, false, nil
	}
	return page.Element{ID: string(*obj.ObjectID), Desc: desc}, true, nil
}

const rectFunction = `function() {
	const r = this.getBoundingClientRect();
	return {top: r.top, left: r.left, width: r.width, height: r.height};
}`

func (p *Page) Rect(ctx context.Context, el page.Element) (model.Rect, error) {
	if el.IsRoot() {
		return model.Rect{}, fmt.Errorf("root element has no rect")
	}
	args := runtime.NewCallFunctionOnArgs(rectFunction).
		SetObjectID(runtime.RemoteObjectID(el.ID)).
		SetReturnByValue(true)
	reply, err := p.client.Runtime.CallFunctionOn(ctx, args)
	if err != nil {
		return model.Rect{}, err
	}
	if reply.ExceptionDetails != nil {
		return model.Rect{}, exceptionError(reply.ExceptionDetails)
	}
	return decodeRect(reply.Result.Value)
}

const metricsExpression = `({
	viewportWidth: window.innerWidth,
	viewportHeight: window.innerHeight,
	scrollX: window.scrollX,
	scrollY: window.scrollY,
	documentHeight: Math.max(document.documentElement.scrollHeight, document.body ? document.body.scrollHeight : 0)
})`

func (p *Page) Metrics(ctx context.Context) (model.Metrics, error) {
	obj, err := p.eval(ctx, metricsExpression, true)
	if err != nil {
		return model.Metrics{}, err
	}
	return decodeMetrics(obj.Value)
}

func (p *Page) ScrollTo(ctx context.Context, top float64, smooth bool) error {
	behavior := "auto"
	if smooth {
		behavior = "smooth"
	}
	_, err := p.eval(ctx, fmt.Sprintf(`window.scrollTo({top: %f, behavior: %q})`, top, behavior), true)
	return err
}

func (p *Page) eval(ctx context.Context, expr string, byValue bool) (runtime.RemoteObject, error) {
	args := runtime.NewEvaluateArgs(expr).
		SetReturnByValue(byValue).
		SetObjectGroup(objectGroup)
	reply, err := p.client.Runtime.Evaluate(ctx, args)
	if err != nil {
		return runtime.RemoteObject{}, err
	}
	if reply.ExceptionDetails != nil {
		return runtime.RemoteObject{}, exceptionError(reply.ExceptionDetails)
	}
	return reply.Result, nil
}

// decodeRect 解析 getBoundingClientRect 返回值
func decodeRect(raw json.RawMessage) (model.Rect, error) {
	if !gjson.ValidBytes(raw) {
		return model.Rect{}, fmt.Errorf("invalid rect payload %q", raw)
	}
	v := gjson.ParseBytes(raw)
	if !v.IsObject() {
		return model.Rect{}, fmt.Errorf("unexpected rect payload %s", v.Raw)
	}
	return model.Rect{
		Top:    v.Get("top").Float(),
		Left:   v.Get("left").Float(),
		Width:  v.Get("width").Float(),
		Height: v.Get("height").Float(),
	}, nil
}

// decodeMetrics 解析视口信息
func decodeMetrics(raw json.RawMessage) (model.Metrics, error) {
	if !gjson.ValidBytes(raw) {
		return model.Metrics{}, fmt.Errorf("invalid metrics payload %q", raw)
	}
	v := gjson.ParseBytes(raw)
	m := model.Metrics{
		ViewportWidth:  v.Get("viewportWidth").Float(),
		ViewportHeight: v.Get("viewportHeight").Float(),
		ScrollX:        v.Get("scrollX").Float(),
		ScrollY:        v.Get("scrollY").Float(),
		DocumentHeight: v.Get("documentHeight").Float(),
	}
	if m.ViewportWidth <= 0 || m.ViewportHeight <= 0 {
		return model.Metrics{}, fmt.Errorf("page reports empty viewport %s", v.Raw)
	}
	return m, nil
}

// exceptionError 将页面内异常转换为 error
func exceptionError(d *runtime.ExceptionDetails) error {
	msg := d.Text
	if d.Exception != nil && d.Exception.Description != nil {
		desc := *d.Exception.Description
		if i := strings.IndexByte(desc, '\n'); i >= 0 {
			desc = desc[:i]
		}
		msg = desc
	}
	return fmt.Errorf("page exception: %s", msg)
}

// jsString 生成安全的 JS 字符串字面量
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
