// Package normalize 清洗票房页面上的自由文本字段（金额、日期）。
//
// 约束：这里的函数都不返回 error、也不会 panic；无法解析时给出固定的降级值。
package normalize

import (
	"math"
	"strconv"
	"strings"
)

var amountStripper = strings.NewReplacer(",", "", "$", "")

// Amount 把 "$1,234.50" 这类金额文本转换为浮点数；无法解析时返回 0。
func Amount(text string) float64 {
	s := strings.TrimSpace(amountStripper.Replace(text))
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
