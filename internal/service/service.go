package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cdptour/internal/cdp"
	"cdptour/internal/config"
	"cdptour/internal/geometry"
	"cdptour/internal/launcher"
	"cdptour/internal/logger"
	"cdptour/internal/resolver"
	"cdptour/internal/scroll"
	"cdptour/internal/session"
	"cdptour/internal/steps"
	"cdptour/internal/storage"
	"cdptour/internal/tour"
	"cdptour/pkg/model"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrTourNotAvailable = errors.New("tour not available for role")
	ErrNoHistory        = errors.New("run history is disabled")
)

// eventBuffer 每个订阅者的事件缓冲
const eventBuffer = 64

// Connector 连接浏览器页面并返回对应的遮罩渲染器
type Connector interface {
	ListTargets(ctx context.Context, devtoolsURL string) ([]model.TargetInfo, error)
	Connect(ctx context.Context, devtoolsURL string, target model.TargetID) (session.Browser, tour.Renderer, error)
}

// cdpConnector 基于 CDP 的默认实现
type cdpConnector struct {
	log         logger.Logger
	modalWidth  float64
	modalHeight float64
}

func (c *cdpConnector) ListTargets(ctx context.Context, devtoolsURL string) ([]model.TargetInfo, error) {
	return cdp.New(devtoolsURL, c.log).ListTargets(ctx)
}

func (c *cdpConnector) Connect(ctx context.Context, devtoolsURL string, target model.TargetID) (session.Browser, tour.Renderer, error) {
	p, err := cdp.New(devtoolsURL, c.log).Attach(ctx, target)
	if err != nil {
		return nil, nil, err
	}
	return p, cdp.NewOverlay(p, c.modalWidth, c.modalHeight), nil
}

// Options 服务依赖
type Options struct {
	Config    *config.Config
	Logger    logger.Logger
	Registry  *steps.Registry
	Store     *storage.Store
	Connector Connector
}

// Service 管理多个浏览器会话上的导览
type Service struct {
	cfg       *config.Config
	log       logger.Logger
	sessions  *session.Manager
	registry  *steps.Registry
	launcher  *launcher.Launcher
	store     *storage.Store
	connector Connector

	subsMu sync.Mutex
	subs   map[model.SessionID][]chan model.Event
}

// New 使用给定依赖创建服务，缺省项使用默认实现
func New(opts Options) *Service {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.NewConfig()
	}
	l := opts.Logger
	if l == nil {
		l = logger.NewNop()
	}
	reg := opts.Registry
	if reg == nil {
		reg = steps.NewRegistry()
	}
	conn := opts.Connector
	if conn == nil {
		conn = &cdpConnector{log: l, modalWidth: cfg.Tour.ModalWidth, modalHeight: cfg.Tour.ModalHeight}
	}
	tours := make([]model.TourType, 0, len(cfg.Launcher.Tours))
	for _, t := range cfg.Launcher.Tours {
		tours = append(tours, model.TourType(t))
	}
	return &Service{
		cfg:       cfg,
		log:       l,
		sessions:  session.NewManager(l),
		registry:  reg,
		launcher:  launcher.New(tours, cfg.Launcher.AdminRole, model.TourType(cfg.Launcher.AdminTour)),
		store:     opts.Store,
		connector: conn,
		subs:      make(map[model.SessionID][]chan model.Event),
	}
}

// Open 按配置加载导览文件、打开历史库并创建服务
func Open(cfg *config.Config, l logger.Logger) (*Service, error) {
	if l == nil {
		l = logger.NewNop()
	}
	reg := steps.NewRegistry()
	if cfg.Tour.ToursFile != "" {
		r, err := steps.LoadFile(cfg.Tour.ToursFile)
		if err != nil {
			return nil, err
		}
		reg = r
	}
	store, err := storage.Open(cfg.Sqlite.Dsn, cfg.Sqlite.Prefix, l)
	if err != nil {
		return nil, err
	}
	return New(Options{Config: cfg, Logger: l, Registry: reg, Store: store}), nil
}

func (s *Service) connectTimeout() time.Duration {
	ms := s.cfg.Browser.ConnectTimeoutMS
	if ms <= 0 {
		ms = 5000
	}
	return time.Duration(ms) * time.Millisecond
}

func (s *Service) devtoolsURL(u string) string {
	if u == "" {
		return s.cfg.Browser.DevToolsURL
	}
	return u
}

// ListTargets 列出浏览器中的页面
func (s *Service) ListTargets(devtoolsURL string) ([]model.TargetInfo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.connectTimeout())
	defer cancel()
	return s.connector.ListTargets(ctx, s.devtoolsURL(devtoolsURL))
}

// StartSession 附加浏览器页面并创建导览控制器
func (s *Service) StartSession(sc model.SessionConfig) (model.SessionID, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.connectTimeout())
	defer cancel()

	browser, renderer, err := s.connector.Connect(ctx, s.devtoolsURL(sc.DevToolsURL), sc.Target)
	if err != nil {
		return "", fmt.Errorf("connecting browser: %w", err)
	}

	id := model.SessionID(uuid.NewString())
	l := s.log.With("sessionID", string(id))
	t := s.cfg.Tour

	var recorder tour.Recorder
	if s.store != nil {
		recorder = s.store
	}
	var ctrl *tour.Controller
	ctrl = tour.New(tour.Config{
		Page:     browser,
		Registry: s.registry,
		Resolver: resolver.New(browser, t.TestIDAttribute, l),
		Scroller: scroll.New(browser, time.Duration(t.SettleDelayMS)*time.Millisecond, nil),
		Geometry: geometry.New(geometry.Options{
			HighlightPadding: t.HighlightPadding,
			ModalWidth:       t.ModalWidth,
			ModalHeight:      t.ModalHeight,
			ModalMargin:      t.ModalMargin,
			ArrowOffset:      t.ArrowOffset,
			ViewportPadding:  t.ViewportPadding,
		}),
		Renderer: renderer,
		Recorder: recorder,
		Logger:   l,
		Role:     sc.Role,
		OnStepChange: func(index int) {
			st := ctrl.Snapshot()
			s.emit(model.Event{Type: "step_changed", Session: id, Tour: st.TourType, RunID: st.RunID, StepIndex: index})
		},
		OnEnd: func(rec model.RunRecord) {
			s.emit(model.Event{Type: "tour_ended", Session: id, Tour: rec.Tour, RunID: rec.RunID, StepIndex: rec.LastStep, Outcome: rec.Outcome})
		},
	})
	browser.SetActionHandler(func(action string) { dispatchAction(ctrl, action, l) })

	s.sessions.Add(session.New(id, sc.Target, sc.Role, browser, ctrl))
	return id, nil
}

// dispatchAction 处理遮罩按钮
func dispatchAction(c *tour.Controller, action string, l logger.Logger) {
	switch action {
	case "next":
		c.Next()
	case "prev":
		c.Previous()
	case "skip":
		c.Skip()
	case "close":
		c.Close()
	default:
		l.Debug("未知的遮罩操作", "action", action)
	}
}

// StopSession 结束导览并断开页面
func (s *Service) StopSession(id model.SessionID) error {
	sess, ok := s.sessions.Remove(id)
	if !ok {
		return ErrSessionNotFound
	}
	err := sess.Close()

	s.subsMu.Lock()
	for _, ch := range s.subs[id] {
		close(ch)
	}
	delete(s.subs, id)
	s.subsMu.Unlock()
	return err
}

func (s *Service) get(id model.SessionID) (*session.Session, error) {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// ListTours 列出角色可用的导览及完成情况
func (s *Service) ListTours(role string) ([]model.TourInfo, error) {
	done := map[model.TourType]bool{}
	if s.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		var err error
		if done, err = s.store.CompletedTours(ctx); err != nil {
			return nil, err
		}
	}
	avail := s.launcher.AvailableTours(role)
	out := make([]model.TourInfo, 0, len(avail))
	for _, t := range avail {
		out = append(out, model.TourInfo{Type: t, Steps: s.registry.Len(t), Completed: done[t]})
	}
	return out, nil
}

// StartTour 在会话上启动导览，角色无权时返回 ErrTourNotAvailable
func (s *Service) StartTour(id model.SessionID, t model.TourType) error {
	sess, err := s.get(id)
	if err != nil {
		return err
	}
	if !s.launcher.Allowed(sess.Role, t) {
		return fmt.Errorf("%w: %s", ErrTourNotAvailable, t)
	}
	if !sess.Controller.Start(t) {
		s.log.Info("导览没有步骤，未启动", "sessionID", string(id), "tour", string(t))
	}
	return nil
}

func (s *Service) control(id model.SessionID, fn func(c *tour.Controller)) error {
	sess, err := s.get(id)
	if err != nil {
		return err
	}
	fn(sess.Controller)
	return nil
}

func (s *Service) Next(id model.SessionID) error {
	return s.control(id, (*tour.Controller).Next)
}

func (s *Service) Previous(id model.SessionID) error {
	return s.control(id, (*tour.Controller).Previous)
}

func (s *Service) Skip(id model.SessionID) error {
	return s.control(id, (*tour.Controller).Skip)
}

func (s *Service) Close(id model.SessionID) error {
	return s.control(id, (*tour.Controller).Close)
}

// GoTo 跳转到指定步骤
func (s *Service) GoTo(id model.SessionID, index int) error {
	return s.control(id, func(c *tour.Controller) { c.GoTo(index) })
}

// State 当前导览状态
func (s *Service) State(id model.SessionID) (model.RunState, error) {
	sess, err := s.get(id)
	if err != nil {
		return model.RunState{}, err
	}
	return sess.Controller.Snapshot(), nil
}

// History 导览运行历史
func (s *Service) History(t model.TourType, limit int) ([]model.RunRecord, error) {
	if s.store == nil {
		return nil, ErrNoHistory
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return s.store.ListRuns(ctx, t, limit)
}

// SubscribeEvents 订阅会话事件，会话结束时通道关闭
func (s *Service) SubscribeEvents(id model.SessionID) (<-chan model.Event, error) {
	if _, err := s.get(id); err != nil {
		return nil, err
	}
	ch := make(chan model.Event, eventBuffer)
	s.subsMu.Lock()
	s.subs[id] = append(s.subs[id], ch)
	s.subsMu.Unlock()
	return ch, nil
}

// emit 非阻塞投递事件，订阅者处理不及时则丢弃
func (s *Service) emit(evt model.Event) {
	evt.Timestamp = time.Now().UnixMilli()
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs[evt.Session] {
		select {
		case ch <- evt:
		default:
			s.log.Warn("事件通道已满，丢弃事件", "sessionID", string(evt.Session), "type", evt.Type)
		}
	}
}

// Shutdown 关闭所有会话与历史库
func (s *Service) Shutdown() error {
	var errs []error
	for _, sess := range s.sessions.List() {
		if err := s.StopSession(sess.ID); err != nil {
			errs = append(errs, err)
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
