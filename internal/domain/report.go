package domain

import (
	"sort"
	"time"
)

const (
	StatusWritten     = "written"
	StatusNoData      = "no_data"
	StatusFailed      = "failed"
	StatusInterrupted = "interrupted"
)

const (
	ErrCodeFetchFailed   = "fetch_failed"
	ErrCodeWriteFailed   = "write_failed"
	ErrCodeInterrupted   = "interrupted"
	ErrCodeConfigInvalid = "config_invalid"
	ErrCodeLocked        = "output_locked"
)

// RunReport 是对外稳定输出（stdout JSON）的结构。
type RunReport struct {
	RunID  string `json:"run_id"`
	OutDir string `json:"out_dir"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary  `json:"summary"`
	Periods []PeriodResult `json:"periods"`

	// CombinedFile 仅在合并输出模式下非空。
	CombinedFile string `json:"combined_file,omitempty"`

	// ErrorCode / ErrorMsg 仅在运行开始前失败（配置/参数错误）时非空，此时 periods 为空。
	ErrorCode string `json:"error_code,omitempty"`
	ErrorMsg  string `json:"error_msg,omitempty"`
}

type ReportSummary struct {
	Written     int `json:"written"`
	NoData      int `json:"no_data"`
	Failed      int `json:"failed"`
	Interrupted int `json:"interrupted"`
}

// PeriodResult 记录单个 (年, 月) 的处理结果。
type PeriodResult struct {
	Period string `json:"period"`
	Status string `json:"status"`
	File   string `json:"file"`

	Rows        int     `json:"rows"`
	SkippedRows int     `json:"skipped_rows"`
	GrossTotal  float64 `json:"gross_total"`

	// LiveHits / FallbackHits / Misses 按来源（imdb/douban）统计富化路径。
	LiveHits     map[string]int `json:"live_hits"`
	FallbackHits map[string]int `json:"fallback_hits"`
	Misses       map[string]int `json:"misses"`

	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC
// 2) periods 按 period 字典序稳定排序（"2025-05" 形式即时间序）
// 3) summary 由 periods 计算得出
func (r *RunReport) Finalize() {
	if r.Periods == nil {
		r.Periods = []PeriodResult{}
	}
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Periods, func(i, j int) bool {
		return r.Periods[i].Period < r.Periods[j].Period
	})

	var s ReportSummary
	for _, p := range r.Periods {
		switch p.Status {
		case StatusWritten:
			s.Written++
		case StatusNoData:
			s.NoData++
		case StatusFailed:
			s.Failed++
		case StatusInterrupted:
			s.Interrupted++
		}
	}
	r.Summary = s
}
