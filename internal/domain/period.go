package domain

import (
	"fmt"
	"strings"
)

const (
	// MinYear / MaxYear 是允许抓取的年份范围（超出直接拒绝，不发任何请求）。
	MinYear = 1980
	MaxYear = 2030
)

var monthNames = [12]string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

// Period 表示一个 (年, 月) 抓取周期。
type Period struct {
	Year  int
	Month int
}

// PeriodError 表示周期参数不合法（月份/年份越界）。
type PeriodError struct {
	Year  int
	Month int
	Err   string
}

func (e *PeriodError) Error() string {
	return fmt.Sprintf("周期无效（year=%d month=%d）：%s", e.Year, e.Month, e.Err)
}

// NewPeriod 校验并构造 Period。
func NewPeriod(year, month int) (Period, error) {
	if _, ok := MonthName(month); !ok {
		return Period{}, &PeriodError{Year: year, Month: month, Err: "月份必须在 1-12 之间"}
	}
	if year < MinYear || year > MaxYear {
		return Period{}, &PeriodError{Year: year, Month: month, Err: fmt.Sprintf("年份必须在 %d-%d 之间", MinYear, MaxYear)}
	}
	return Period{Year: year, Month: month}, nil
}

// String 返回形如 "2025-05" 的稳定表示（也是 report 的排序键）。
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// MonthName 返回 1-12 对应的小写英文月份名；越界返回 false。
func MonthName(n int) (string, bool) {
	if n < 1 || n > 12 {
		return "", false
	}
	return monthNames[n-1], true
}

// MonthNumber 是 MonthName 的逆映射（大小写不敏感，只接受全称）。
func MonthNumber(name string) (int, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, m := range monthNames {
		if m == name {
			return i + 1, true
		}
	}
	return 0, false
}
