package tour

import (
	"context"
	"sync"
	"time"

	"cdptour/internal/geometry"
	"cdptour/internal/logger"
	"cdptour/internal/page"
	"cdptour/internal/resolver"
	"cdptour/internal/scroll"
	"cdptour/internal/steps"
	"cdptour/pkg/model"

	"github.com/google/uuid"
)

// ioTimeout 单次页面读写（重算几何、渲染）的超时
const ioTimeout = 3 * time.Second

// Renderer 展示层：将状态快照绘制到页面，Visible 为 false 时隐藏遮罩
type Renderer interface {
	Render(ctx context.Context, st model.RunState) error
	Clear(ctx context.Context) error
}

// Recorder 记录每次导览运行的结果
type Recorder interface {
	SaveRun(ctx context.Context, rec model.RunRecord) error
}

// Config 控制器依赖与回调
type Config struct {
	Page     page.Page
	Registry *steps.Registry
	Resolver *resolver.Resolver
	Scroller *scroll.Coordinator
	Geometry *geometry.Engine
	Renderer Renderer
	Recorder Recorder
	Logger   logger.Logger
	Role     string

	// OnStepChange 每次步骤索引成功变化后调用
	OnStepChange func(index int)
	// OnEnd 导览正常完成、跳过、关闭或被新导览替换时调用
	OnEnd func(rec model.RunRecord)
}

// Controller 导览状态机：Idle -> Positioning -> Visible
type Controller struct {
	page     page.Page
	registry *steps.Registry
	resolver *resolver.Resolver
	scroller *scroll.Coordinator
	geometry *geometry.Engine
	renderer Renderer
	recorder Recorder
	log      logger.Logger
	role     string

	onStepChange func(int)
	onEnd        func(model.RunRecord)

	mu        sync.Mutex
	running   bool
	phase     model.RunPhase
	runID     string
	tour      model.TourType
	steps     []model.StepDescriptor
	index     int
	target    page.Element
	highlight model.HighlightBox
	modal     model.ModalPosition
	startedAt time.Time

	// gen 每次进入新的定位或结束运行时递增，定位结果提交前必须比对
	gen    uint64
	cancel context.CancelFunc
	detach func()

	wg sync.WaitGroup
}

// New 创建控制器，未提供的协作者使用默认实现
func New(cfg Config) *Controller {
	l := cfg.Logger
	if l == nil {
		l = logger.NewNop()
	}
	c := &Controller{
		page:         cfg.Page,
		registry:     cfg.Registry,
		resolver:     cfg.Resolver,
		scroller:     cfg.Scroller,
		geometry:     cfg.Geometry,
		renderer:     cfg.Renderer,
		recorder:     cfg.Recorder,
		log:          l,
		role:         cfg.Role,
		onStepChange: cfg.OnStepChange,
		onEnd:        cfg.OnEnd,
		phase:        model.PhaseIdle,
	}
	if c.registry == nil {
		c.registry = steps.NewRegistry()
	}
	if c.resolver == nil {
		c.resolver = resolver.New(cfg.Page, "", l)
	}
	if c.scroller == nil {
		c.scroller = scroll.New(cfg.Page, scroll.DefaultSettleDelay, nil)
	}
	if c.geometry == nil {
		c.geometry = geometry.New(geometry.DefaultOptions())
	}
	return c
}

// endNotice 结束通知，在释放锁之后处理
type endNotice struct {
	record model.RunRecord
}

// Start 启动导览。步骤为空时不做任何事并返回 false；正在运行的导览会先被替换
func (c *Controller) Start(t model.TourType) bool {
	seq := c.registry.Steps(t)
	if len(seq) == 0 {
		c.log.Debug("导览无步骤，忽略启动", "tour", string(t))
		return false
	}

	c.mu.Lock()
	var replaced *endNotice
	if c.running {
		replaced = c.terminateLocked(model.OutcomeReplaced)
	}
	c.running = true
	c.runID = uuid.NewString()
	c.tour = t
	c.steps = seq
	c.index = 0
	c.startedAt = time.Now()
	c.attachLocked()
	c.beginPositioningLocked()
	c.log.Info("导览已启动", "tour", string(t), "runID", c.runID, "steps", len(seq))
	c.mu.Unlock()

	if replaced != nil {
		c.notifyEnd(replaced)
	}
	return true
}

// Next 前进一步；已是最后一步时结束导览
func (c *Controller) Next() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	if c.index >= len(c.steps)-1 {
		n := c.terminateLocked(model.OutcomeCompleted)
		c.mu.Unlock()
		c.notifyEnd(n)
		return
	}
	c.index++
	idx := c.index
	c.beginPositioningLocked()
	c.mu.Unlock()

	c.notifyStep(idx)
}

// Previous 后退一步；位于第一步时无操作
func (c *Controller) Previous() {
	c.mu.Lock()
	if !c.running || c.index == 0 {
		c.mu.Unlock()
		return
	}
	c.index--
	idx := c.index
	c.beginPositioningLocked()
	c.mu.Unlock()

	c.notifyStep(idx)
}

// GoTo 跳转到指定步骤，越界或与当前相同时无操作
func (c *Controller) GoTo(index int) bool {
	c.mu.Lock()
	if !c.running || index < 0 || index >= len(c.steps) || index == c.index {
		c.mu.Unlock()
		return false
	}
	c.index = index
	c.beginPositioningLocked()
	c.mu.Unlock()

	c.notifyStep(index)
	return true
}

// Skip 跳过剩余步骤
func (c *Controller) Skip() { c.end(model.OutcomeSkipped) }

// Close 关闭导览
func (c *Controller) Close() { c.end(model.OutcomeClosed) }

func (c *Controller) end(outcome model.Outcome) {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	n := c.terminateLocked(outcome)
	c.mu.Unlock()
	c.notifyEnd(n)
}

// OnResize 可见状态下重新计算高亮框与弹窗位置，不滚动也不换步
func (c *Controller) OnResize() {
	c.mu.Lock()
	if c.phase != model.PhaseVisible {
		c.mu.Unlock()
		return
	}
	gen, el, placement := c.gen, c.target, c.steps[c.index].Placement
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
	defer cancel()
	hl, pos, err := c.geometry.Measure(ctx, c.page, el, placement)
	if err != nil {
		c.log.Debug("窗口尺寸变化后重算位置失败", "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.phase != model.PhaseVisible {
		return
	}
	c.highlight = hl
	c.modal = pos
	c.renderLocked()
}

// OnScroll 可见状态下仅重算高亮框，弹窗位置保持不变以免抖动
func (c *Controller) OnScroll() {
	c.mu.Lock()
	if c.phase != model.PhaseVisible || c.target.IsRoot() {
		c.mu.Unlock()
		return
	}
	gen, el := c.gen, c.target
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
	defer cancel()
	hl, err := c.geometry.MeasureHighlight(ctx, c.page, el)
	if err != nil {
		c.log.Debug("页面滚动后重算高亮失败", "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.phase != model.PhaseVisible {
		return
	}
	c.highlight = hl
	c.renderLocked()
}

// Snapshot 返回当前状态快照
func (c *Controller) Snapshot() model.RunState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Wait 等待所有进行中的定位任务退出
func (c *Controller) Wait() { c.wg.Wait() }

func (c *Controller) snapshotLocked() model.RunState {
	st := model.RunState{
		RunID:      c.runID,
		Running:    c.running,
		Phase:      c.phase,
		TourType:   c.tour,
		StepIndex:  c.index,
		TotalSteps: len(c.steps),
		Visible:    c.phase == model.PhaseVisible,
		TargetRoot: c.target.IsRoot(),
		Highlight:  c.highlight,
		Modal:      c.modal,
	}
	if c.running {
		st.Step = c.steps[c.index]
	}
	return st
}

// beginPositioningLocked 作废旧的定位任务并为当前步骤启动新的定位
func (c *Controller) beginPositioningLocked() {
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	gen := c.gen
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.phase = model.PhasePositioning
	c.target = page.Root
	c.highlight = model.HighlightBox{}
	c.modal = model.ModalPosition{}
	c.renderLocked()

	step := c.steps[c.index]
	c.wg.Add(1)
	go c.position(ctx, gen, c.index, step)
}

// position 解析目标 -> 滚动居中 -> 等待稳定 -> 计算几何 -> 可见
func (c *Controller) position(ctx context.Context, gen uint64, index int, step model.StepDescriptor) {
	defer c.wg.Done()
	l := c.log.With("step", index, "target", step.Target)

	el := c.resolver.Resolve(ctx, step.Target)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		l.Debug("丢弃过期的目标解析结果")
		return
	}
	c.target = el
	c.mu.Unlock()

	if err := c.scroller.CenterOn(ctx, el); err != nil && ctx.Err() == nil {
		l.Warn("滚动到目标失败", "error", err)
	}

	hl, pos, err := c.geometry.Measure(ctx, c.page, el, step.Placement)
	if err != nil && ctx.Err() == nil {
		l.Warn("计算导览位置失败，降级为居中", "error", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || !c.running {
		l.Debug("丢弃过期的定位结果")
		return
	}
	c.highlight = hl
	c.modal = pos
	c.phase = model.PhaseVisible
	c.renderLocked()
	l.Debug("导览步骤已显示", "placement", string(pos.Placement))
}

// terminateLocked 进入 Idle：作废定位、注销监听、清除遮罩并重置状态
func (c *Controller) terminateLocked(outcome model.Outcome) *endNotice {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	c.detachLocked()

	n := &endNotice{
		record: model.RunRecord{
			RunID:      c.runID,
			Tour:       c.tour,
			Role:       c.role,
			Outcome:    outcome,
			LastStep:   c.index,
			TotalSteps: len(c.steps),
			StartedAt:  c.startedAt,
			EndedAt:    time.Now(),
		},
	}
	c.log.Info("导览已结束", "tour", string(c.tour), "runID", c.runID, "outcome", string(outcome), "step", c.index)

	c.running = false
	c.phase = model.PhaseIdle
	c.runID = ""
	c.tour = ""
	c.steps = nil
	c.index = 0
	c.target = page.Root
	c.highlight = model.HighlightBox{}
	c.modal = model.ModalPosition{}

	if c.renderer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
		defer cancel()
		if err := c.renderer.Clear(ctx); err != nil {
			c.log.Debug("清除导览遮罩失败", "error", err)
		}
	}
	return n
}

// attachLocked 每次运行只注册一次视口监听
func (c *Controller) attachLocked() {
	if c.detach != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
	defer cancel()
	remove, err := c.page.AddViewportListener(ctx, c.handleViewport)
	if err != nil {
		c.log.Warn("注册视口监听失败，窗口变化将不会重新定位", "error", err)
		return
	}
	c.detach = remove
}

func (c *Controller) detachLocked() {
	if c.detach == nil {
		return
	}
	c.detach()
	c.detach = nil
}

func (c *Controller) handleViewport(ev page.ViewportEvent) {
	switch ev {
	case page.EventResize:
		c.OnResize()
	case page.EventScroll:
		c.OnScroll()
	}
}

func (c *Controller) renderLocked() {
	if c.renderer == nil || !c.running {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
	defer cancel()
	if err := c.renderer.Render(ctx, c.snapshotLocked()); err != nil {
		c.log.Debug("渲染导览遮罩失败", "error", err)
	}
}

func (c *Controller) notifyStep(index int) {
	if c.onStepChange != nil {
		c.onStepChange(index)
	}
}

func (c *Controller) notifyEnd(n *endNotice) {
	if c.recorder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
		if err := c.recorder.SaveRun(ctx, n.record); err != nil {
			c.log.Err(err, "保存导览记录失败", "runID", n.record.RunID)
		}
		cancel()
	}
	if c.onEnd != nil {
		c.onEnd(n.record)
	}
}
