package run

import (
	"time"

	"github.com/John-Robertt/BOMC/internal/config"
	"github.com/John-Robertt/BOMC/internal/domain"
	"github.com/John-Robertt/BOMC/internal/enrich"
)

// Observer 用于把“运行进度/期间结果”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）
// - 事件严格按顺序在调用 Execute 的 goroutine 上发出
type Observer interface {
	// OnStart 在 Execute 开始时调用（应尽量早，保证用户 1 秒内看到输出）。
	OnStart(eff config.EffectiveConfig, runID string)
	// OnPeriodStart 在开始抓取某个期间时调用。
	OnPeriodStart(idx, total int, p domain.Period)
	// OnRowDone 在某一行补全完成时调用。
	OnRowDone(p domain.Period, idx, total int, row domain.EnrichedRow, trace enrich.Trace)
	// OnPeriodDone 在期间状态最终确定后调用（合并模式下在合并文件写入之后）。
	OnPeriodDone(res domain.PeriodResult, rows []domain.EnrichedRow, dur time.Duration)
}

type nopObserver struct{}

func (nopObserver) OnStart(config.EffectiveConfig, string) {}
func (nopObserver) OnPeriodStart(int, int, domain.Period) {}
func (nopObserver) OnRowDone(domain.Period, int, int, domain.EnrichedRow, enrich.Trace) {}
func (nopObserver) OnPeriodDone(domain.PeriodResult, []domain.EnrichedRow, time.Duration) {}
