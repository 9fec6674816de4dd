// Package douban 描述豆瓣的搜索页与详情页结构。
package douban

import (
	"net/url"
	"strings"

	"github.com/John-Robertt/BOMC/internal/candidate"
	providerx "github.com/John-Robertt/BOMC/internal/provider"
	"github.com/John-Robertt/BOMC/internal/rating"
)

const defaultBaseURL = "https://www.douban.com"

// Source 实现豆瓣电影的 URL 构造与选择器链。
//
// 约束：
// - 搜索限定电影分类（cat=1002）
// - 搜索结果的链接是 /link2/?url=<真实详情页> 形式的跳转，需要解包
// - 候选片名即中文片名（Localized=true）
type Source struct {
	// BaseURL 为空时使用 https://www.douban.com。
	BaseURL string
}

func (Source) Name() string    { return "douban" }
func (Source) Label() string   { return "豆瓣评分" }
func (Source) Localized() bool { return true }

func (s Source) baseURL() string {
	u := strings.TrimSpace(s.BaseURL)
	if u == "" {
		return defaultBaseURL
	}
	return strings.TrimRight(u, "/")
}

// SearchURL: https://www.douban.com/search?cat=1002&q=<query>
func (s Source) SearchURL(query string) string {
	return s.baseURL() + "/search?cat=1002&q=" + url.QueryEscape(query)
}

func (s Source) DetailURL(searchURL, ref string) string {
	u := providerx.ResolveURL(s.baseURL()+"/", ref)
	if u == "" {
		return ""
	}
	return unwrapLink2(u)
}

func unwrapLink2(u string) string {
	pu, err := url.Parse(u)
	if err != nil || !strings.HasPrefix(pu.Path, "/link2") {
		return u
	}
	if target := strings.TrimSpace(pu.Query().Get("url")); target != "" {
		return target
	}
	return u
}

func (Source) Strategies() []candidate.Strategy {
	return []candidate.Strategy{
		candidate.ParenYearCells(".result-list .result .title"),
		candidate.SiblingYear(".result-list .result", "h3 a", "span.subject-cast"),
		candidate.ParenYearContainers(".item-root, .subject-item", "a"),
	}
}

func (Source) Locators() []rating.Locator {
	return []rating.Locator{
		rating.Text(`strong[property="v:average"]`),
		rating.Text("strong.rating_num"),
		rating.Text(".rating_self strong"),
		rating.Attr("[data-rating]", "data-rating"),
	}
}
