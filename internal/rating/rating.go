// Package rating 从详情页中抽取评分文本。
//
// 任何失败（请求失败、非 2xx、解析失败、无选择器命中）都返回 domain.NA，不向上传播错误。
package rating

import (
	"bytes"
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/BOMC/internal/domain"
)

var numberRe = regexp.MustCompile(`\d+\.?\d*`)

// Fetcher 获取页面原始字节。
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Locator 是一种评分元素的定位方式；找不到时返回空串。
type Locator struct {
	Name string
	Find func(doc *goquery.Document) string
}

// Text 取 selector 首个元素的文本。
func Text(selector string) Locator {
	return Locator{
		Name: selector,
		Find: func(doc *goquery.Document) string {
			return strings.TrimSpace(doc.Find(selector).First().Text())
		},
	}
}

// Attr 取 selector 首个元素的属性值。
func Attr(selector, attr string) Locator {
	return Locator{
		Name: selector + "@" + attr,
		Find: func(doc *goquery.Document) string {
			v, _ := doc.Find(selector).First().Attr(attr)
			return strings.TrimSpace(v)
		},
	}
}

// FromDocument 返回首个含数字文本的定位结果中的第一个数字（原样字符串）。
func FromDocument(doc *goquery.Document, locators []Locator) string {
	v, _ := Match(doc, locators)
	return v
}

// Match 同 FromDocument，但额外返回命中的定位器名（未命中为空串）。
func Match(doc *goquery.Document, locators []Locator) (string, string) {
	if doc == nil {
		return domain.NA, ""
	}
	for _, l := range locators {
		if l.Find == nil {
			continue
		}
		if m := numberRe.FindString(l.Find(doc)); m != "" {
			return m, l.Name
		}
	}
	return domain.NA, ""
}

// Resolve 获取详情页并抽取评分，同时返回命中的定位器名；所有失败折叠为 (domain.NA, "")。
func Resolve(ctx context.Context, f Fetcher, detailURL string, locators []Locator) (string, string) {
	if f == nil || strings.TrimSpace(detailURL) == "" {
		return domain.NA, ""
	}
	body, err := f.Fetch(ctx, detailURL)
	if err != nil {
		return domain.NA, ""
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return domain.NA, ""
	}
	return Match(doc, locators)
}
