package api

import (
	"cdptour/internal/config"
	"cdptour/internal/logger"
	"cdptour/internal/service"
	"cdptour/pkg/model"
)

// Service 服务接口
type Service interface {
	// ListTargets 列出浏览器中的页面，devtoolsURL 为空时使用配置
	ListTargets(devtoolsURL string) ([]model.TargetInfo, error)

	// StartSession 附加页面并创建会话
	StartSession(cfg model.SessionConfig) (model.SessionID, error)

	// StopSession 停止会话
	StopSession(id model.SessionID) error

	// ListTours 列出角色可用的导览
	ListTours(role string) ([]model.TourInfo, error)

	// StartTour 启动导览
	StartTour(id model.SessionID, t model.TourType) error

	// Next 下一步
	Next(id model.SessionID) error

	// Previous 上一步
	Previous(id model.SessionID) error

	// GoTo 跳转到指定步骤
	GoTo(id model.SessionID, index int) error

	// Skip 跳过导览
	Skip(id model.SessionID) error

	// Close 关闭导览
	Close(id model.SessionID) error

	// State 获取导览状态
	State(id model.SessionID) (model.RunState, error)

	// History 获取导览运行历史
	History(t model.TourType, limit int) ([]model.RunRecord, error)

	// SubscribeEvents 订阅事件
	SubscribeEvents(id model.SessionID) (<-chan model.Event, error)

	// Shutdown 关闭所有会话并释放资源
	Shutdown() error
}

// NewService 创建并返回服务接口实现
func NewService(cfg *config.Config, l logger.Logger) (Service, error) {
	return service.Open(cfg, l)
}
