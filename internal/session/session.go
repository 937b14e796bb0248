package session

import (
	"time"

	"cdptour/internal/page"
	"cdptour/internal/tour"
	"cdptour/pkg/model"
)

// Browser 已附加的浏览器页面
type Browser interface {
	page.Page
	// SetActionHandler 遮罩按钮点击回调
	SetActionHandler(fn func(action string))
	Close() error
}

// Session 一个浏览器页面及其导览控制器
type Session struct {
	ID         model.SessionID
	Target     model.TargetID
	Role       string
	Browser    Browser
	Controller *tour.Controller
	CreatedAt  time.Time
}

// New 创建会话
func New(id model.SessionID, target model.TargetID, role string, b Browser, c *tour.Controller) *Session {
	return &Session{
		ID:         id,
		Target:     target,
		Role:       role,
		Browser:    b,
		Controller: c,
		CreatedAt:  time.Now(),
	}
}

// Close 关闭导览、等待定位任务退出并断开页面
func (s *Session) Close() error {
	s.Controller.Close()
	s.Controller.Wait()
	return s.Browser.Close()
}
