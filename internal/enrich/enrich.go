// Package enrich 为榜单行补全评分与本地化片名。
//
// 每个来源（lane）独立走：在线搜索 -> 候选按年份排序 -> 逐个详情页取评分（首个非 N/A 胜出）
// -> 失败则查回退表 -> 仍无结果则 N/A。
//
// 约束：
// - 输出行的 LocalizedTitle/Rating/SecondaryRating 永远非空（真实值或 N/A）
// - 严格串行；请求节奏由 Fetcher（infra/httpx.Getter）统一控制
// - ctx 取消后不再发起在线请求，但当前行仍会得到终值
package enrich

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/John-Robertt/BOMC/internal/domain"
	"github.com/John-Robertt/BOMC/internal/fallback"
	"github.com/John-Robertt/BOMC/internal/normalize"
	"github.com/John-Robertt/BOMC/internal/provider"
	"github.com/John-Robertt/BOMC/internal/rating"
)

// Fetcher 获取页面原始字节。
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Lane 是一个二级来源及其回退表。
type Lane struct {
	Source   provider.Source
	Fallback fallback.Table
	// Live=false 时跳过在线请求，只用回退表（离线模式/测试）。
	Live bool
}

// Options 配置编排器。Primary 填 Rating，Secondary 填 SecondaryRating；
// Localized 的来源提供 LocalizedTitle。
type Options struct {
	Primary   *Lane
	Secondary *Lane
	Locale    normalize.Locale
	Logger    *slog.Logger
}

// Outcome 是单个 lane 的解析结果来源。
type Outcome string

const (
	OutcomeLive     Outcome = "live"
	OutcomeFallback Outcome = "fallback"
	OutcomeNone     Outcome = "none"
)

// LaneTrace 记录单个 lane 的解析轨迹（用于报告与调试）。
type LaneTrace struct {
	Source     string
	Outcome    Outcome
	Strategy   string // 命中的候选抽取策略
	Locator    string // 命中的评分定位器
	Candidates int    // 候选数
	Tried      int    // 实际请求过的详情页数
	Chosen     *domain.Candidate
	Err        string // 在线路径的最后错误（若有）
}

// Trace 是一行的全部 lane 轨迹（Primary 在前）。
type Trace struct {
	Lanes []LaneTrace
}

// Orchestrator 串行执行每一行的补全。
type Orchestrator struct {
	fetcher   Fetcher
	primary   *Lane
	secondary *Lane
	locale    normalize.Locale
	log       *slog.Logger
}

func New(f Fetcher, opts Options) *Orchestrator {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	locale := opts.Locale
	if locale == "" {
		locale = normalize.LocaleZH
	}
	return &Orchestrator{
		fetcher:   f,
		primary:   opts.Primary,
		secondary: opts.Secondary,
		locale:    locale,
		log:       log,
	}
}

type laneResult struct {
	rating    string
	localized string // 仅在来源 Localized 时有意义
	trace     LaneTrace
}

// Enrich 补全一行。targetYear=0 表示不按年份消歧。
func (o *Orchestrator) Enrich(ctx context.Context, row domain.ListingRow, targetYear int) (domain.EnrichedRow, Trace) {
	out := domain.EnrichedRow{
		ListingRow:      row,
		LocalizedTitle:  domain.NA,
		Rating:          domain.NA,
		SecondaryRating: domain.NA,
		ReleaseDate:     normalize.Date(row.ReleaseDateRaw, o.locale),
		Gross:           normalize.Amount(row.GrossText),
	}
	var tr Trace

	localizedSet := false
	apply := func(lane *Lane, dst *string) {
		if lane == nil || lane.Source == nil {
			return
		}
		res := o.resolveLane(ctx, lane, row.Title, targetYear)
		*dst = res.rating
		if lane.Source.Localized() && !localizedSet {
			out.LocalizedTitle = res.localized
			localizedSet = true
		}
		tr.Lanes = append(tr.Lanes, res.trace)
	}
	apply(o.primary, &out.Rating)
	apply(o.secondary, &out.SecondaryRating)
	return out, tr
}

// EnrichAll 依次补全 rows。onRow（可为 nil）在每行完成后调用。
// ctx 取消后剩余行只走回退表，返回值长度始终等于 len(rows)。
func (o *Orchestrator) EnrichAll(ctx context.Context, rows []domain.ListingRow, targetYear int, onRow func(i int, r domain.EnrichedRow, t Trace)) ([]domain.EnrichedRow, []Trace) {
	out := make([]domain.EnrichedRow, 0, len(rows))
	traces := make([]Trace, 0, len(rows))
	for i, row := range rows {
		r, t := o.Enrich(ctx, row, targetYear)
		out = append(out, r)
		traces = append(traces, t)
		if onRow != nil {
			onRow(i, r, t)
		}
	}
	return out, traces
}

func (o *Orchestrator) resolveLane(ctx context.Context, lane *Lane, title string, year int) laneResult {
	name := strings.ToLower(lane.Source.Name())
	res := laneResult{
		rating:    domain.NA,
		localized: domain.NA,
		trace:     LaneTrace{Source: name, Outcome: OutcomeNone},
	}
	log := o.log.With("source", name, "title", title)

	if lane.Live && o.fetcher != nil && ctx.Err() == nil {
		if o.live(ctx, lane, title, year, &res) {
			return res
		}
	}

	if r, ok := lane.Fallback.Find(title, year); ok {
		loc, rt := lane.Fallback.Lookup(title, year)
		res.rating, res.localized = rt, loc
		res.trace.Outcome = OutcomeFallback
		log.Debug("使用回退数据", "year", r.Year, "rating", rt)
		return res
	}

	log.Debug("无可用评分")
	return res
}

func (o *Orchestrator) live(ctx context.Context, lane *Lane, title string, year int, res *laneResult) bool {
	log := o.log.With("source", res.trace.Source, "title", title)

	sr, err := provider.Search(ctx, o.fetcher, lane.Source, title, year)
	if err != nil {
		res.trace.Err = err.Error()
		log.Debug("搜索失败", "status", provider.StatusCode(err), "error", err)
		return false
	}
	res.trace.Strategy = sr.Strategy
	res.trace.Candidates = len(sr.Candidates)

	locators := lane.Source.Locators()
	for i := range sr.Candidates {
		if ctx.Err() != nil {
			res.trace.Err = ctx.Err().Error()
			return false
		}
		c := sr.Candidates[i]
		res.trace.Tried++
		r, loc := rating.Resolve(ctx, o.fetcher, c.DetailRef, locators)
		if r == domain.NA {
			continue
		}
		res.rating = r
		if t := strings.TrimSpace(c.Title); t != "" {
			res.localized = t
		}
		res.trace.Outcome = OutcomeLive
		res.trace.Locator = loc
		res.trace.Chosen = &c
		log.Debug("在线评分命中", "year", c.Year, "distance", c.YearDistance, "rating", r, "locator", loc)
		return true
	}
	return false
}
