package steps

import (
	"fmt"
	"os"

	"cdptour/pkg/model"

	"gopkg.in/yaml.v3"
)

// Registry 导览类型到步骤序列的静态映射，构建后只读
type Registry struct {
	tours map[model.TourType][]model.StepDescriptor
}

// NewRegistry 使用内置导览定义创建注册表
func NewRegistry() *Registry {
	r := &Registry{tours: make(map[model.TourType][]model.StepDescriptor, len(builtin))}
	for k, v := range builtin {
		r.tours[k] = normalize(v)
	}
	return r
}

// fileFormat 导览文件结构
type fileFormat struct {
	Tours map[string][]model.StepDescriptor `yaml:"tours"`
}

// LoadFile 在内置定义基础上加载 YAML 导览文件，同名导览整体覆盖
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tours file %s: %w", path, err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing tours file %s: %w", path, err)
	}
	r := NewRegistry()
	for name, seq := range f.Tours {
		tt := model.TourType(name)
		if !tt.Valid() {
			return nil, fmt.Errorf("unknown tour type %q", name)
		}
		for i, s := range seq {
			if !s.Placement.Valid() {
				return nil, fmt.Errorf("tour %s step %d: invalid placement %q", name, i, s.Placement)
			}
			if s.Target == "" {
				return nil, fmt.Errorf("tour %s step %d: empty target", name, i)
			}
		}
		r.tours[tt] = normalize(seq)
	}
	return r, nil
}

// Steps 返回导览步骤副本，未知类型返回 nil
func (r *Registry) Steps(t model.TourType) []model.StepDescriptor {
	seq, ok := r.tours[t]
	if !ok {
		return nil
	}
	out := make([]model.StepDescriptor, len(seq))
	copy(out, seq)
	return out
}

// Len 导览步骤数
func (r *Registry) Len(t model.TourType) int { return len(r.tours[t]) }

func normalize(seq []model.StepDescriptor) []model.StepDescriptor {
	out := make([]model.StepDescriptor, len(seq))
	for i, s := range seq {
		out[i] = s.Normalize()
	}
	return out
}

var builtin = map[model.TourType][]model.StepDescriptor{
	model.TourOverview: {
		{
			Target:    model.BodyTarget,
			Title:     "Welcome",
			Content:   "This short tour shows where invoices, commissions and partner referrals live.",
			Placement: model.PlacementCenter,
		},
		{
			Target:    "#main-nav",
			Title:     "Navigation",
			Content:   "Use the sidebar to switch between invoices, commissions and referral partners.",
			Placement: model.PlacementRight,
		},
		{
			Target:  "[data-testid='user-menu']",
			Title:   "Your account",
			Content: "Open the account menu to restart a tour or sign out.",
		},
	},
	model.TourInvoices: {
		{
			Target:    "#invoices-table",
			Title:     "Invoices",
			Content:   "Every invoice issued to or by a partner firm is listed here.",
			Placement: model.PlacementTop,
		},
		{
			Target:  "[data-testid='new-invoice-button']",
			Title:   "New invoice",
			Content: "Create an invoice and attach it to a partner.",
		},
		{
			Target:    ".invoice-filters",
			Title:     "Filters",
			Content:   "Narrow the list by status, partner or date range.",
			Placement: model.PlacementBottom,
		},
		{
			Target:    ".status-badge",
			Title:     "Status",
			Content:   "Paid, pending and overdue invoices are color coded.",
			Placement: model.PlacementLeft,
		},
	},
	model.TourCommissions: {
		{
			Target:    "#commissions-summary",
			Title:     "Commission summary",
			Content:   "Totals owed and received for the selected period.",
			Placement: model.PlacementBottom,
		},
		{
			Target:  "[data-testid='commission-rate']",
			Title:   "Rates",
			Content: "Commission rates are set per partner agreement.",
		},
		{
			Target:    "#commissions-table",
			Title:     "Commission entries",
			Content:   "Each entry links back to the invoice that generated it.",
			Placement: model.PlacementTop,
		},
	},
	model.TourReferrals: {
		{
			Target:    "#referrals-graph",
			Title:     "Referral network",
			Content:   "Which partner firms referred business to whom.",
			Placement: model.PlacementRight,
		},
		{
			Target:  "[data-testid='add-referral']",
			Title:   "Record a referral",
			Content: "Log a new referral between two partner firms.",
		},
	},
	model.TourAdmin: {
		{
			Target:    "#admin-users",
			Title:     "Users",
			Content:   "Invite colleagues and assign their roles.",
			Placement: model.PlacementBottom,
		},
		{
			Target:    "#admin-settings",
			Title:     "Settings",
			Content:   "Company details, currencies and default commission rates.",
			Placement: model.PlacementLeft,
		},
		{
			Target:    model.BodyTarget,
			Title:     "All set",
			Content:   "You can replay any tour from the account menu.",
			Placement: model.PlacementCenter,
		},
	},
}
