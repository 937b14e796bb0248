package session

import (
	"sort"
	"sync"

	"cdptour/internal/logger"
	"cdptour/pkg/model"
)

// Manager 全局会话管理器
type Manager struct {
	mu       sync.RWMutex
	sessions map[model.SessionID]*Session
	log      logger.Logger
}

// NewManager 创建会话管理器
func NewManager(l logger.Logger) *Manager {
	if l == nil {
		l = logger.NewNop()
	}
	return &Manager{
		sessions: make(map[model.SessionID]*Session),
		log:      l,
	}
}

// Add 注册会话
func (m *Manager) Add(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[s.ID] = s
	m.log.Info("创建导览会话", "sessionID", string(s.ID), "target", string(s.Target))
}

// Get 获取会话
func (m *Manager) Get(id model.SessionID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove 注销会话并返回它，调用方负责关闭
func (m *Manager) Remove(id model.SessionID) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
		m.log.Info("销毁导览会话", "sessionID", string(id))
	}
	return s, ok
}

// List 返回所有活动会话，按创建时间排序
func (m *Manager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list
}
