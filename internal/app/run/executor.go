package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/John-Robertt/BOMC/internal/boxoffice"
	"github.com/John-Robertt/BOMC/internal/config"
	"github.com/John-Robertt/BOMC/internal/csvout"
	"github.com/John-Robertt/BOMC/internal/domain"
	"github.com/John-Robertt/BOMC/internal/enrich"
)

// executor 持有一次运行内跨期间共享的组件。
type executor struct {
	listing boxoffice.Client
	orch    *enrich.Orchestrator
	cols    csvout.Columns
	log     *slog.Logger
}

func newExecutor(eff config.EffectiveConfig, env Env, log *slog.Logger) (*executor, error) {
	if env.Fetcher == nil {
		return nil, errors.New("fetcher 不能为空")
	}

	primary, err := lane(env, eff.Primary, eff.Live)
	if err != nil {
		return nil, err
	}
	cols := csvout.Columns{Primary: primary.Source.Label(), Secondary: "次要评分"}

	var secondary *enrich.Lane
	if eff.Secondary != "" && eff.Secondary != config.SourceNone {
		secondary, err = lane(env, eff.Secondary, eff.Live)
		if err != nil {
			return nil, err
		}
		cols.Secondary = secondary.Source.Label()
	}

	orch := enrich.New(env.Fetcher, enrich.Options{
		Primary:   primary,
		Secondary: secondary,
		Locale:    eff.Locale,
		Logger:    log,
	})
	return &executor{
		listing: boxoffice.Client{Fetcher: env.Fetcher, URLTemplate: eff.ListingURL},
		orch:    orch,
		cols:    cols,
		log:     log,
	}, nil
}

func lane(env Env, name string, live bool) (*enrich.Lane, error) {
	src, ok := env.Registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("未知来源：%s（可选：%v）", name, env.Registry.Names())
	}
	return &enrich.Lane{
		Source:   src,
		Fallback: env.Fallback.Table(src.Name()),
		Live:     live,
	}, nil
}

// period 抓取并补全一个期间。返回 StatusWritten 表示已有待写入的行（尚未落盘）。
func (e *executor) period(ctx context.Context, p domain.Period, obs Observer) (domain.PeriodResult, []domain.EnrichedRow) {
	res := newResult(p)
	log := e.log.With("period", p.String())

	listing, err := e.listing.Fetch(ctx, p)
	if err != nil {
		if ctx.Err() != nil {
			return interruptedResult(p), nil
		}
		log.Warn("榜单抓取失败", "url", listing.URL, "error", err)
		res.Status = domain.StatusFailed
		res.ErrorCode = domain.ErrCodeFetchFailed
		res.ErrorMsg = err.Error()
		return res, nil
	}

	tbl := listing.Table
	res.SkippedRows = tbl.Skipped
	for _, rerr := range tbl.RowErrors {
		log.Debug("跳过榜单行", "error", rerr)
	}
	if len(tbl.Rows) == 0 {
		log.Info("榜单无有效数据", "url", listing.URL, "table_found", tbl.Found)
		res.Status = domain.StatusNoData
		return res, nil
	}
	log.Info("榜单已抽取", "url", listing.URL, "strategy", tbl.Strategy, "rows", len(tbl.Rows), "skipped", tbl.Skipped)

	n := len(tbl.Rows)
	rows, traces := e.orch.EnrichAll(ctx, tbl.Rows, p.Year, func(i int, r domain.EnrichedRow, t enrich.Trace) {
		obs.OnRowDone(p, i, n, r, t)
	})
	if ctx.Err() != nil {
		return interruptedResult(p), nil
	}

	for i, r := range rows {
		res.GrossTotal += r.Gross
		for _, lt := range traces[i].Lanes {
			switch lt.Outcome {
			case enrich.OutcomeLive:
				res.LiveHits[lt.Source]++
			case enrich.OutcomeFallback:
				res.FallbackHits[lt.Source]++
			default:
				res.Misses[lt.Source]++
			}
		}
	}
	res.Rows = len(rows)
	res.Status = domain.StatusWritten
	return res, rows
}

func (e *executor) write(path string, res domain.PeriodResult, rows []domain.EnrichedRow) domain.PeriodResult {
	if _, err := csvout.Write(path, rows, e.cols); err != nil {
		e.log.Error("写入 CSV 失败", "period", res.Period, "file", path, "error", err)
		res.Status = domain.StatusFailed
		res.ErrorCode = domain.ErrCodeWriteFailed
		res.ErrorMsg = err.Error()
		return res
	}
	e.log.Info("CSV 已写入", "period", res.Period, "file", path, "rows", len(rows))
	res.File = path
	return res
}

func newResult(p domain.Period) domain.PeriodResult {
	return domain.PeriodResult{
		Period:       p.String(),
		LiveHits:     map[string]int{},
		FallbackHits: map[string]int{},
		Misses:       map[string]int{},
	}
}

func interruptedResult(p domain.Period) domain.PeriodResult {
	res := newResult(p)
	res.Status = domain.StatusInterrupted
	res.ErrorCode = domain.ErrCodeInterrupted
	res.ErrorMsg = "运行被中断"
	return res
}
