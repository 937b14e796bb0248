package launcher

import "cdptour/pkg/model"

// Launcher 按角色过滤可启动的导览
type Launcher struct {
	tours     []model.TourType
	adminRole string
	adminTour model.TourType
}

// New 创建导览入口，tours 为配置的导览顺序
func New(tours []model.TourType, adminRole string, adminTour model.TourType) *Launcher {
	cp := make([]model.TourType, len(tours))
	copy(cp, tours)
	return &Launcher{tours: cp, adminRole: adminRole, adminTour: adminTour}
}

// AvailableTours 非管理员角色移除管理导览，其余保持原有顺序
func (l *Launcher) AvailableTours(role string) []model.TourType {
	out := make([]model.TourType, 0, len(l.tours))
	for _, t := range l.tours {
		if t == l.adminTour && role != l.adminRole {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Allowed 判断角色能否启动指定导览
func (l *Launcher) Allowed(role string, t model.TourType) bool {
	for _, a := range l.AvailableTours(role) {
		if a == t {
			return true
		}
	}
	return false
}
