package provider

import (
	"github.com/John-Robertt/BOMC/internal/candidate"
	"github.com/John-Robertt/BOMC/internal/rating"
)

// Source 把“站点变化”限制在 provider 包内部；编排层只依赖统一接口。
//
// 约束：
// - Source 只描述 URL 与选择器，不做网络请求（请求、缓存、重试、限速统一由 infra 层实现）
// - Strategies/Locators 返回的链按优先级排列，先命中者胜
// - Localized=true 的来源负责提供本地化片名
type Source interface {
	Name() string
	// Label 是该来源评分在 CSV 中的列名。
	Label() string
	Localized() bool
	SearchURL(query string) string
	// DetailURL 把搜索结果中的引用（通常是相对 href）解析为详情页绝对 URL。
	DetailURL(searchURL, ref string) string
	Strategies() []candidate.Strategy
	Locators() []rating.Locator
}
