package normalize

import (
	"strconv"
	"strings"

	"github.com/John-Robertt/BOMC/internal/domain"
)

// Locale 是日期输出的目标区域。
type Locale string

const (
	LocaleZH Locale = "zh"
	LocaleJA Locale = "ja"
)

// 固定的 12 个月映射：缩写与全称都指向同一个数字月份。
var monthTable = map[string]int{
	"jan": 1, "january": 1,
	"feb": 2, "february": 2,
	"mar": 3, "march": 3,
	"apr": 4, "april": 4,
	"may": 5,
	"jun": 6, "june": 6,
	"jul": 7, "july": 7,
	"aug": 8, "august": 8,
	"sep": 9, "september": 9,
	"oct": 10, "october": 10,
	"nov": 11, "november": 11,
	"dec": 12, "december": 12,
}

// ParseLocale 规范化区域标识（"zh-CN" -> zh）；未知值原样返回。
func ParseLocale(s string) Locale {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexAny(s, "-_"); i > 0 {
		s = s[:i]
	}
	return Locale(s)
}

// Date 把 "May 23" 转换为 "5月23日"。
//
// 规则：
// - 空串或 "N/A" => "N/A"
// - 月份无法识别、日期形态异常、区域不支持 => 原样返回输入
func Date(text string, locale Locale) string {
	if strings.TrimSpace(text) == "" || strings.TrimSpace(text) == domain.NA {
		return domain.NA
	}

	parts := strings.Fields(text)
	if len(parts) < 2 {
		return text
	}

	month, ok := monthTable[strings.TrimSuffix(strings.ToLower(parts[0]), ".")]
	if !ok {
		return text
	}

	day := strings.TrimRight(parts[1], ",.;:")
	n, err := strconv.Atoi(day)
	if err != nil || n < 1 || n > 31 {
		return text
	}

	switch locale {
	case LocaleZH, LocaleJA:
		return strconv.Itoa(month) + "月" + strconv.Itoa(n) + "日"
	default:
		return text
	}
}
