package model

import "time"

type SessionID string
type TargetID string
type TourType string

const (
	TourOverview    TourType = "overview"
	TourInvoices    TourType = "invoices"
	TourCommissions TourType = "commissions"
	TourReferrals   TourType = "referrals"
	TourAdmin       TourType = "admin"
)

// AllTours 所有已知导览类型（固定顺序）
var AllTours = []TourType{TourOverview, TourInvoices, TourCommissions, TourReferrals, TourAdmin}

// Valid 判断导览类型是否属于已知集合
func (t TourType) Valid() bool {
	for _, k := range AllTours {
		if k == t {
			return true
		}
	}
	return false
}

// Placement 弹窗相对目标元素的方位
type Placement string

const (
	PlacementTop    Placement = "top"
	PlacementBottom Placement = "bottom"
	PlacementLeft   Placement = "left"
	PlacementRight  Placement = "right"
	PlacementCenter Placement = "center"
)

// Valid 判断方位是否合法，空值视为合法（默认 bottom）
func (p Placement) Valid() bool {
	switch p {
	case "", PlacementTop, PlacementBottom, PlacementLeft, PlacementRight, PlacementCenter:
		return true
	}
	return false
}

// BodyTarget 表示"不指向具体元素"的定位符，步骤居中显示
const BodyTarget = "body"

// StepDescriptor 导览步骤描述
type StepDescriptor struct {
	Target    string    `json:"target" yaml:"target"`
	Title     string    `json:"title" yaml:"title"`
	Content   string    `json:"content" yaml:"content"`
	Placement Placement `json:"placement,omitempty" yaml:"placement,omitempty"`
}

// Normalize 填充默认方位
func (s StepDescriptor) Normalize() StepDescriptor {
	if s.Placement == "" {
		s.Placement = PlacementBottom
	}
	return s
}

// Rect 视口坐标系下的元素矩形
type Rect struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Bottom() float64 { return r.Top + r.Height }
func (r Rect) Right() float64  { return r.Left + r.Width }

// Metrics 视口与滚动信息
type Metrics struct {
	ViewportWidth  float64 `json:"viewportWidth"`
	ViewportHeight float64 `json:"viewportHeight"`
	ScrollX        float64 `json:"scrollX"`
	ScrollY        float64 `json:"scrollY"`
	DocumentHeight float64 `json:"documentHeight"`
}

// HighlightBox 页面坐标系下的高亮框，零面积表示不高亮
type HighlightBox struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Empty 是否为零面积
func (h HighlightBox) Empty() bool { return h.Width == 0 && h.Height == 0 }

// ModalPosition 页面坐标系下的弹窗位置及最终方位
type ModalPosition struct {
	Top       float64   `json:"top"`
	Left      float64   `json:"left"`
	Placement Placement `json:"placement"`
	// Fixed 视口信息不可用，Top/Left 无意义，弹窗按视口固定定位居中
	Fixed bool `json:"fixed,omitempty"`
}

// RunPhase 导览控制器状态
type RunPhase string

const (
	PhaseIdle        RunPhase = "idle"
	PhasePositioning RunPhase = "positioning"
	PhaseVisible     RunPhase = "visible"
)

// Outcome 导览结束原因
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeClosed    Outcome = "closed"
	OutcomeReplaced  Outcome = "replaced"
)

// RunState 控制器状态快照，供展示层使用
type RunState struct {
	RunID      string         `json:"runId"`
	Running    bool           `json:"running"`
	Phase      RunPhase       `json:"phase"`
	TourType   TourType       `json:"tourType"`
	StepIndex  int            `json:"stepIndex"`
	TotalSteps int            `json:"totalSteps"`
	Visible    bool           `json:"visible"`
	Step       StepDescriptor `json:"step"`
	TargetRoot bool           `json:"targetRoot"`
	Highlight  HighlightBox   `json:"highlight"`
	Modal      ModalPosition  `json:"modal"`
}

// RunRecord 一次导览运行的结果记录
type RunRecord struct {
	RunID      string    `json:"runId"`
	Tour       TourType  `json:"tour"`
	Role       string    `json:"role"`
	Outcome    Outcome   `json:"outcome"`
	LastStep   int       `json:"lastStep"`
	TotalSteps int       `json:"totalSteps"`
	StartedAt  time.Time `json:"startedAt"`
	EndedAt    time.Time `json:"endedAt"`
}

type SessionConfig struct {
	DevToolsURL string   `json:"devToolsURL"`
	Target      TargetID `json:"target"`
	Role        string   `json:"role"`
}

type TargetInfo struct {
	ID    TargetID `json:"id"`
	Type  string   `json:"type"`
	URL   string   `json:"url"`
	Title string   `json:"title"`
}

// TourInfo 可用导览信息
type TourInfo struct {
	Type      TourType `json:"type"`
	Steps     int      `json:"steps"`
	Completed bool     `json:"completed"`
}

// Event 导览事件
type Event struct {
	Type      string    `json:"type"` // step_changed / tour_ended
	Session   SessionID `json:"session"`
	Tour      TourType  `json:"tour"`
	RunID     string    `json:"runId"`
	StepIndex int       `json:"stepIndex"`
	Outcome   Outcome   `json:"outcome,omitempty"`
	Timestamp int64     `json:"timestamp"`
}
