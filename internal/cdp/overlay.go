package cdp

import (
	"context"
	"fmt"

	"cdptour/pkg/model"

	"github.com/tidwall/sjson"
)

const overlayID = "cdptour-overlay"

// renderScript 创建或更新遮罩。高亮框与弹窗均使用页面坐标绝对定位
const renderScript = `(function(v) {
	let root = document.getElementById("` + overlayID + `");
	if (!root) {
		root = document.createElement("div");
		root.id = "` + overlayID + `";
		root.style.cssText = "position:absolute;top:0;left:0;width:0;height:0;z-index:2147483000;";
		root.innerHTML =
			'<div data-part="highlight" style="position:absolute;border-radius:6px;box-shadow:0 0 0 9999px rgba(0,0,0,.45);pointer-events:none;transition:all .2s"></div>' +
			'<div data-part="modal" role="dialog" style="position:absolute;box-sizing:border-box;background:#fff;color:#1f2328;border-radius:8px;padding:16px;box-shadow:0 8px 24px rgba(0,0,0,.2);font:14px/1.5 system-ui,sans-serif">' +
			'<div data-part="counter" style="font-size:12px;color:#6e7781"></div>' +
			'<h3 data-part="title" style="margin:4px 0 8px;font-size:16px"></h3>' +
			'<p data-part="content" style="margin:0 0 12px"></p>' +
			'<div style="display:flex;gap:8px;justify-content:flex-end">' +
			'<button data-action="skip">Skip</button>' +
			'<button data-action="prev">Back</button>' +
			'<button data-action="next">Next</button>' +
			'</div></div>';
		root.addEventListener("click", (e) => {
			const a = e.target.closest("[data-action]");
			if (!a) return;
			try { window.` + bindingName + `(JSON.stringify({type: "action", action: a.dataset.action})); } catch (err) {}
		});
		document.body.appendChild(root);
	}
	root.style.display = v.visible ? "block" : "none";
	if (!v.visible) return;
	const part = (n) => root.querySelector('[data-part="' + n + '"]');
	const hl = part("highlight");
	hl.style.display = v.highlight.show ? "block" : "none";
	hl.style.top = v.highlight.top + "px";
	hl.style.left = v.highlight.left + "px";
	hl.style.width = v.highlight.width + "px";
	hl.style.height = v.highlight.height + "px";
	const modal = part("modal");
	modal.className = "cdptour-modal cdptour-arrow-" + v.placement;
	if (v.modal.fixed) {
		modal.style.position = "fixed";
		modal.style.top = "50%%";
		modal.style.left = "50%%";
		modal.style.transform = "translate(-50%%, -50%%)";
	} else {
		modal.style.position = "absolute";
		modal.style.top = v.modal.top + "px";
		modal.style.left = v.modal.left + "px";
		modal.style.transform = "";
	}
	modal.style.width = v.modal.width + "px";
	modal.style.minHeight = v.modal.height + "px";
	part("counter").textContent = v.step + " / " + v.total;
	part("title").textContent = v.title;
	part("content").textContent = v.content;
	root.querySelector('[data-action="prev"]').disabled = v.first;
	root.querySelector('[data-action="next"]').textContent = v.last ? "Done" : "Next";
})(%s)`

const clearScript = `(function() {
	const root = document.getElementById("` + overlayID + `");
	if (root) root.remove();
})()`

// Overlay 将控制器状态绘制到页面中
type Overlay struct {
	page        *Page
	modalWidth  float64
	modalHeight float64
}

// NewOverlay 创建遮罩渲染器，弹窗尺寸需与几何引擎参数一致
func NewOverlay(p *Page, modalWidth, modalHeight float64) *Overlay {
	return &Overlay{page: p, modalWidth: modalWidth, modalHeight: modalHeight}
}

// Render 实现 tour.Renderer
func (o *Overlay) Render(ctx context.Context, st model.RunState) error {
	payload, err := buildPayload(st, o.modalWidth, o.modalHeight)
	if err != nil {
		return err
	}
	_, err = o.page.eval(ctx, fmt.Sprintf(renderScript, payload), true)
	return err
}

// Clear 实现 tour.Renderer
func (o *Overlay) Clear(ctx context.Context) error {
	_, err := o.page.eval(ctx, clearScript, true)
	return err
}

// buildPayload 组装渲染脚本参数
func buildPayload(st model.RunState, modalWidth, modalHeight float64) (string, error) {
	fields := []struct {
		path  string
		value any
	}{
		{"visible", st.Visible},
		{"title", st.Step.Title},
		{"content", st.Step.Content},
		{"step", st.StepIndex + 1},
		{"total", st.TotalSteps},
		{"first", st.StepIndex == 0},
		{"last", st.StepIndex == st.TotalSteps-1},
		{"placement", string(st.Modal.Placement)},
		{"modal.top", st.Modal.Top},
		{"modal.left", st.Modal.Left},
		{"modal.fixed", st.Modal.Fixed},
		{"modal.width", modalWidth},
		{"modal.height", modalHeight},
		{"highlight.show", !st.Highlight.Empty()},
		{"highlight.top", st.Highlight.Top},
		{"highlight.left", st.Highlight.Left},
		{"highlight.width", st.Highlight.Width},
		{"highlight.height", st.Highlight.Height},
	}
	js := "{}"
	for _, f := range fields {
		var err error
		js, err = sjson.Set(js, f.path, f.value)
		if err != nil {
			return "", fmt.Errorf("building overlay payload %s: %w", f.path, err)
		}
	}
	return js, nil
}
