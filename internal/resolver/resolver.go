package resolver

import (
	"context"
	"strings"

	"cdptour/internal/logger"
	"cdptour/internal/page"
	"cdptour/pkg/model"
)

// DefaultTestIDAttribute 默认测试标识属性
const DefaultTestIDAttribute = "data-testid"

// Resolver 按回退链将定位符解析为页面元素
type Resolver struct {
	page       page.Page
	testIDAttr string
	log        logger.Logger
}

// New 创建解析器
func New(p page.Page, testIDAttr string, l logger.Logger) *Resolver {
	if testIDAttr == "" {
		testIDAttr = DefaultTestIDAttribute
	}
	if l == nil {
		l = logger.NewNop()
	}
	return &Resolver{page: p, testIDAttr: testIDAttr, log: l}
}

type lookup struct {
	name string
	find func(ctx context.Context) (page.Element, bool, error)
}

// Resolve 解析定位符，永不失败：全部策略未命中时返回页面根节点
func (r *Resolver) Resolve(ctx context.Context, locator string) page.Element {
	if locator == model.BodyTarget || strings.TrimSpace(locator) == "" {
		return page.Root
	}

	for _, s := range r.strategies(locator) {
		el, ok, err := s.find(ctx)
		if ctx.Err() != nil {
			// 定位任务已作废，未命中不代表定位符有误
			return page.Root
		}
		if err != nil {
			r.log.Debug("定位策略执行失败", "strategy", s.name, "locator", locator, "error", err)
			continue
		}
		if ok && !el.IsRoot() {
			return el
		}
	}

	r.log.Warn("导览目标元素未找到，回退为居中显示", "locator", locator)
	return page.Root
}

// strategies 严格顺序：选择器、裸 id、测试标识属性、class 模糊匹配
func (r *Resolver) strategies(locator string) []lookup {
	list := []lookup{{
		name: "selector",
		find: func(ctx context.Context) (page.Element, bool, error) {
			return r.page.QuerySelector(ctx, locator)
		},
	}}
	if id, ok := strings.CutPrefix(locator, "#"); ok && id != "" {
		list = append(list, lookup{
			name: "id",
			find: func(ctx context.Context) (page.Element, bool, error) {
				return r.page.ElementByID(ctx, id)
			},
		})
	}
	if cleaned := CleanLocator(locator); cleaned != "" {
		list = append(list, lookup{
			name: "test-id",
			find: func(ctx context.Context) (page.Element, bool, error) {
				return r.page.ElementByAttribute(ctx, r.testIDAttr, cleaned)
			},
		})
	}
	if class, ok := strings.CutPrefix(locator, "."); ok && class != "" {
		list = append(list, lookup{
			name: "class-contains",
			find: func(ctx context.Context) (page.Element, bool, error) {
				return r.page.ElementByClassContains(ctx, class)
			},
		})
	}
	return list
}

var bracketQuotes = strings.NewReplacer("[", "", "]", "", `"`, "", "'", "")

// CleanLocator 去除方括号与引号字符
func CleanLocator(locator string) string {
	return bracketQuotes.Replace(locator)
}
