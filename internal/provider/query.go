package provider

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var trailingParenRe = regexp.MustCompile(`\s*\([^()]*\)\s*$`)

// CleanQuery 把榜单片名整理为搜索关键词：
// 去掉末尾括注（如 "(2025 Re-release)"），去除变音符号，折叠空白。
func CleanQuery(title string) string {
	q := strings.TrimSpace(title)
	if stripped := strings.TrimSpace(trailingParenRe.ReplaceAllString(q, "")); stripped != "" {
		q = stripped
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(t, q); err == nil {
		q = out
	}
	return strings.Join(strings.Fields(q), " ")
}
