package session

import (
	"testing"
	"time"

	"cdptour/internal/page/pagetest"
	"cdptour/internal/tour"
	"cdptour/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBrowser struct {
	*pagetest.Fake
	closed int
}

func (b *fakeBrowser) SetActionHandler(func(string)) {}
func (b *fakeBrowser) Close() error {
	b.closed++
	return nil
}

func newSession(id model.SessionID, created time.Time) (*Session, *fakeBrowser) {
	b := &fakeBrowser{Fake: pagetest.New(1280, 800, 2000)}
	s := New(id, "tab", "member", b, tour.New(tour.Config{Page: b}))
	s.CreatedAt = created
	return s, b
}

func TestManagerLifecycle(t *testing.T) {
	m := NewManager(nil)
	now := time.Now()
	s1, _ := newSession("s1", now)
	s2, b2 := newSession("s2", now.Add(-time.Minute))
	m.Add(s1)
	m.Add(s2)

	got, ok := m.Get("s1")
	require.True(t, ok)
	assert.Same(t, s1, got)

	list := m.List()
	require.Len(t, list, 2)
	assert.Equal(t, model.SessionID("s2"), list[0].ID)

	removed, ok := m.Remove("s2")
	require.True(t, ok)
	require.NoError(t, removed.Close())
	assert.Equal(t, 1, b2.closed)

	_, ok = m.Get("s2")
	assert.False(t, ok)
	_, ok = m.Remove("s2")
	assert.False(t, ok)
}
