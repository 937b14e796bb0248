package resolver

import (
	"bytes"
	"context"
	"testing"

	"cdptour/internal/logger"
	"cdptour/internal/page"
	"cdptour/internal/page/pagetest"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestResolveBodyIsRoot(t *testing.T) {
	r := New(pagetest.New(1280, 800, 2000).WithSelector("body", "html-body"), "", nil)
	assert.True(t, r.Resolve(context.Background(), "body").IsRoot())
}

func TestResolveSelectorWinsFirst(t *testing.T) {
	p := pagetest.New(1280, 800, 2000).
		WithSelector("#main-nav", "by-selector").
		WithID("main-nav", "by-id")
	el := New(p, "", nil).Resolve(context.Background(), "#main-nav")
	assert.Equal(t, "by-selector", el.ID)
}

func TestResolveIDFallbackForUnparsableSelector(t *testing.T) {
	p := pagetest.New(1280, 800, 2000).
		WithInvalidSelector("#1:step").
		WithID("1:step", "by-id")
	el := New(p, "", nil).Resolve(context.Background(), "#1:step")
	assert.Equal(t, "by-id", el.ID)
}

func TestResolveTestIDStrategy(t *testing.T) {
	p := pagetest.New(1280, 800, 2000).
		WithAttr("data-testid", "new-invoice-button", "by-testid").
		WithClass("other", "new-invoice-button-wrapper")
	el := New(p, "", nil).Resolve(context.Background(), `["new-invoice-button"]`)
	assert.Equal(t, "by-testid", el.ID)
	assert.False(t, el.IsRoot())
}

func TestResolveCustomTestIDAttribute(t *testing.T) {
	p := pagetest.New(1280, 800, 2000).WithAttr("data-tour", "totals", "by-attr")
	el := New(p, "data-tour", nil).Resolve(context.Background(), "totals")
	assert.Equal(t, "by-attr", el.ID)
}

func TestResolveClassContains(t *testing.T) {
	p := pagetest.New(1280, 800, 2000).WithClass("filters", "card invoice-filters--compact")
	el := New(p, "", nil).Resolve(context.Background(), ".invoice-filters")
	assert.Equal(t, "filters", el.ID)
}

func TestResolveClassStrategyOnlyForClassLocators(t *testing.T) {
	p := pagetest.New(1280, 800, 2000).WithClass("filters", "invoice-filters")
	el := New(p, "", nil).Resolve(context.Background(), "invoice-filters")
	assert.True(t, el.IsRoot())
}

func TestResolveTotalMissFallsBackToRootAndWarns(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewWithWriter(&buf, zerolog.WarnLevel)
	p := pagetest.New(1280, 800, 2000).WithInvalidSelector("#nope")

	el := New(p, "", l).Resolve(context.Background(), "#nope")
	assert.Equal(t, page.Root, el)
	assert.Contains(t, buf.String(), "#nope")
}

// ctxPage 上下文取消后所有查找都失败，模拟 CDP 调用被中断
type ctxPage struct{ *pagetest.Fake }

func (p ctxPage) QuerySelector(ctx context.Context, s string) (page.Element, bool, error) {
	if err := ctx.Err(); err != nil {
		return page.Root, false, err
	}
	return p.Fake.QuerySelector(ctx, s)
}

func (p ctxPage) ElementByID(ctx context.Context, id string) (page.Element, bool, error) {
	if err := ctx.Err(); err != nil {
		return page.Root, false, err
	}
	return p.Fake.ElementByID(ctx, id)
}

func (p ctxPage) ElementByAttribute(ctx context.Context, n, v string) (page.Element, bool, error) {
	if err := ctx.Err(); err != nil {
		return page.Root, false, err
	}
	return p.Fake.ElementByAttribute(ctx, n, v)
}

func (p ctxPage) ElementByClassContains(ctx context.Context, c string) (page.Element, bool, error) {
	if err := ctx.Err(); err != nil {
		return page.Root, false, err
	}
	return p.Fake.ElementByClassContains(ctx, c)
}

func TestResolveCancelledDoesNotWarn(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewWithWriter(&buf, zerolog.WarnLevel)
	p := ctxPage{pagetest.New(1280, 800, 2000).WithSelector("#main-nav", "nav")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	el := New(p, "", l).Resolve(ctx, "#main-nav")
	assert.True(t, el.IsRoot())
	assert.Empty(t, buf.String())

	el = New(p, "", l).Resolve(context.Background(), "#main-nav")
	assert.Equal(t, "nav", el.ID)
}

func TestCleanLocator(t *testing.T) {
	assert.Equal(t, "data-testid=user-menu", CleanLocator(`[data-testid='user-menu']`))
	assert.Equal(t, "total", CleanLocator(`"total"`))
}
