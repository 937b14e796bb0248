package cdp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cdptour/internal/page"

	"github.com/mafredri/cdp/protocol/runtime"
	"github.com/tidwall/gjson"
)

// bindingName 页面调用该函数把事件回传给 Go 侧
const bindingName = "__cdptourEmit"

// installListeners 注册 resize/scroll 监听，scroll 通过 requestAnimationFrame 合并
const installListeners = `(function() {
	if (window.__cdptourListeners) return;
	const emit = (msg) => { try { window.` + bindingName + `(JSON.stringify(msg)); } catch (e) {} };
	let pending = false;
	const onResize = () => emit({type: "resize"});
	const onScroll = () => {
		if (pending) return;
		pending = true;
		requestAnimationFrame(() => { pending = false; emit({type: "scroll"}); });
	};
	window.addEventListener("resize", onResize);
	window.addEventListener("scroll", onScroll, {passive: true});
	window.__cdptourListeners = {onResize, onScroll, emit};
})()`

const removeListeners = `(function() {
	const l = window.__cdptourListeners;
	if (!l) return;
	window.removeEventListener("resize", l.onResize);
	window.removeEventListener("scroll", l.onScroll);
	delete window.__cdptourListeners;
})()`

// bindingMessage 页面回传的消息
type bindingMessage struct {
	Type   string
	Action string
}

// parseBinding 解析 {"type":"resize"} / {"type":"action","action":"next"}
func parseBinding(payload string) (bindingMessage, error) {
	if !gjson.Valid(payload) {
		return bindingMessage{}, fmt.Errorf("invalid binding payload %q", payload)
	}
	v := gjson.Parse(payload)
	msg := bindingMessage{Type: v.Get("type").String(), Action: v.Get("action").String()}
	if msg.Type == "" {
		return bindingMessage{}, fmt.Errorf("binding payload without type: %s", payload)
	}
	return msg, nil
}

// AddViewportListener 通过 Runtime.addBinding 接收页面事件，返回的函数可重复调用
func (p *Page) AddViewportListener(ctx context.Context, fn func(page.ViewportEvent)) (func(), error) {
	if err := p.client.Runtime.AddBinding(ctx, runtime.NewAddBindingArgs(bindingName)); err != nil {
		return nil, fmt.Errorf("adding binding: %w", err)
	}

	sctx, stop := context.WithCancel(p.ctx)
	stream, err := p.client.Runtime.BindingCalled(sctx)
	if err != nil {
		stop()
		return nil, fmt.Errorf("subscribing binding events: %w", err)
	}
	if _, err := p.eval(ctx, installListeners, true); err != nil {
		stream.Close()
		stop()
		return nil, fmt.Errorf("installing listeners: %w", err)
	}

	go p.consumeBindings(stream, fn)

	var once sync.Once
	remove := func() {
		once.Do(func() {
			stop()
			rctx, cancel := context.WithTimeout(p.ctx, time.Second)
			defer cancel()
			if _, err := p.eval(rctx, removeListeners, true); err != nil {
				p.log.Debug("移除页面监听失败", "error", err)
			}
			if err := p.client.Runtime.RemoveBinding(rctx, runtime.NewRemoveBindingArgs(bindingName)); err != nil {
				p.log.Debug("移除绑定失败", "error", err)
			}
		})
	}
	return remove, nil
}

// consumeBindings 持续接收绑定调用直到流关闭
func (p *Page) consumeBindings(stream runtime.BindingCalledClient, fn func(page.ViewportEvent)) {
	defer stream.Close()
	for {
		ev, err := stream.Recv()
		if err != nil {
			p.log.Debug("页面事件流已关闭", "error", err)
			return
		}
		if ev.Name != bindingName {
			continue
		}
		msg, err := parseBinding(ev.Payload)
		if err != nil {
			p.log.Debug("忽略无法解析的页面事件", "error", err)
			continue
		}
		switch msg.Type {
		case string(page.EventResize), string(page.EventScroll):
			fn(page.ViewportEvent(msg.Type))
		case "action":
			if h := p.actionHandler(); h != nil {
				h(msg.Action)
			}
		}
	}
}
