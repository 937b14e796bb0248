package cdp

import (
	"context"
	"fmt"

	"cdptour/internal/logger"
	"cdptour/pkg/model"

	"github.com/mafredri/cdp"
	"github.com/mafredri/cdp/devtool"
	"github.com/mafredri/cdp/rpcc"
)

// Manager 负责与浏览器 DevTools 端点交互：列出标签页并附加到指定页面
type Manager struct {
	devtoolsURL string
	log         logger.Logger
}

// New 创建 DevTools 管理器
func New(devtoolsURL string, l logger.Logger) *Manager {
	if l == nil {
		l = logger.NewNop()
	}
	return &Manager{devtoolsURL: devtoolsURL, log: l}
}

// ListTargets 列出可附加的页面
func (m *Manager) ListTargets(ctx context.Context) ([]model.TargetInfo, error) {
	dt := devtool.New(m.devtoolsURL)
	targets, err := dt.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing devtools targets: %w", err)
	}
	out := make([]model.TargetInfo, 0, len(targets))
	for _, t := range targets {
		if t.Type != devtool.Page {
			continue
		}
		out = append(out, model.TargetInfo{
			ID:    model.TargetID(t.ID),
			Type:  string(t.Type),
			URL:   t.URL,
			Title: t.Title,
		})
	}
	return out, nil
}

// Attach 连接指定页面，target 为空时选择第一个页面
func (m *Manager) Attach(ctx context.Context, target model.TargetID) (*Page, error) {
	dt := devtool.New(m.devtoolsURL)
	targets, err := dt.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing devtools targets: %w", err)
	}
	sel := pickTarget(targets, target)
	if sel == nil {
		return nil, fmt.Errorf("no page target %q", target)
	}

	conn, err := rpcc.DialContext(ctx, sel.WebSocketDebuggerURL)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", sel.WebSocketDebuggerURL, err)
	}
	client := cdp.NewClient(conn)
	if err := client.Runtime.Enable(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling runtime domain: %w", err)
	}

	m.log.Info("已附加浏览器页面", "target", sel.ID, "url", sel.URL)
	return newPage(model.TargetID(sel.ID), conn, client, m.log.With("target", sel.ID)), nil
}

// pickTarget 按 ID 选择页面，id 为空时取第一个页面
func pickTarget(targets []*devtool.Target, id model.TargetID) *devtool.Target {
	for _, t := range targets {
		if t.Type != devtool.Page {
			continue
		}
		if id == "" || t.ID == string(id) {
			return t
		}
	}
	return nil
}
