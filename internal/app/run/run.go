package run

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/John-Robertt/BOMC/internal/config"
	"github.com/John-Robertt/BOMC/internal/csvout"
	"github.com/John-Robertt/BOMC/internal/domain"
	"github.com/John-Robertt/BOMC/internal/infra/httpx"
	"github.com/John-Robertt/BOMC/internal/logging"
)

// LockFileName 是输出目录下的运行锁文件名。
const LockFileName = ".bomc.lock"

// Execute 串行处理 eff.Periods，并返回对外稳定的 RunReport。
// 单个期间的失败只影响该期间；ctx 取消后当前及剩余期间均标记为 interrupted，且不写入半成品文件。
func Execute(ctx context.Context, eff config.EffectiveConfig, env Env, obs Observer) domain.RunReport {
	if obs == nil {
		obs = nopObserver{}
	}
	log := env.Logger
	if log == nil {
		log = logging.Discard()
	}

	rr := domain.RunReport{
		RunID:     uuid.NewString(),
		OutDir:    eff.OutDir,
		StartedAt: time.Now().UTC(),
		Periods:   make([]domain.PeriodResult, 0, len(eff.Periods)),
	}
	log = log.With("run_id", rr.RunID)
	obs.OnStart(eff, rr.RunID)

	finish := func() domain.RunReport {
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		args := []any{
			"written", rr.Summary.Written,
			"no_data", rr.Summary.NoData,
			"failed", rr.Summary.Failed,
			"interrupted", rr.Summary.Interrupted,
		}
		if g, ok := env.Fetcher.(*httpx.Getter); ok && g != nil {
			args = append(args,
				"requests", g.Stats.Network,
				"cache_hits", g.Stats.CacheHits,
				"request_failures", g.Stats.Failures,
			)
		}
		log.Info("运行结束", args...)
		return rr
	}
	failAll := func(code, msg string) domain.RunReport {
		for _, p := range eff.Periods {
			res := newResult(p)
			res.Status = domain.StatusFailed
			res.ErrorCode = code
			res.ErrorMsg = msg
			rr.Periods = append(rr.Periods, res)
			obs.OnPeriodDone(res, nil, 0)
		}
		return finish()
	}

	ex, err := newExecutor(eff, env, log)
	if err != nil {
		return failAll(domain.ErrCodeConfigInvalid, err.Error())
	}

	if err := os.MkdirAll(eff.OutDir, 0o755); err != nil {
		return failAll(domain.ErrCodeWriteFailed, fmt.Sprintf("创建输出目录失败：%v", err))
	}
	lock := flock.New(filepath.Join(eff.OutDir, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return failAll(domain.ErrCodeLocked, fmt.Sprintf("获取输出目录锁失败：%v", err))
	}
	if !locked {
		return failAll(domain.ErrCodeLocked, fmt.Sprintf("输出目录正被另一个运行占用：%s", eff.OutDir))
	}
	defer func() { _ = lock.Unlock() }()

	combine := eff.Combine && len(eff.Periods) > 1

	type collected struct {
		p    domain.Period
		res  domain.PeriodResult
		rows []domain.EnrichedRow
		dur  time.Duration
	}
	var pending []collected
	var combined []domain.EnrichedRow

	total := len(eff.Periods)
	for i, p := range eff.Periods {
		if ctx.Err() != nil {
			for _, rest := range eff.Periods[i:] {
				res := interruptedResult(rest)
				rr.Periods = append(rr.Periods, res)
				obs.OnPeriodDone(res, nil, 0)
			}
			break
		}

		obs.OnPeriodStart(i, total, p)
		started := time.Now()
		res, rows := ex.period(ctx, p, obs)
		if res.Status == domain.StatusInterrupted {
			rr.Periods = append(rr.Periods, res)
			obs.OnPeriodDone(res, nil, time.Since(started))
			continue
		}

		if !combine || res.Status != domain.StatusWritten {
			if res.Status == domain.StatusWritten {
				path := eff.Output
				if path == "" {
					path = csvout.PeriodPath(eff.OutDir, p)
				}
				res = ex.write(path, res, rows)
			}
			rr.Periods = append(rr.Periods, res)
			obs.OnPeriodDone(res, rows, time.Since(started))
			continue
		}

		pending = append(pending, collected{p: p, res: res, rows: rows, dur: time.Since(started)})
		combined = append(combined, rows...)
	}

	if combine && len(pending) > 0 {
		interrupted := ctx.Err() != nil
		var path string
		var werr error
		if !interrupted {
			first, last := eff.Periods[0], eff.Periods[len(eff.Periods)-1]
			path = eff.Output
			if path == "" {
				path = csvout.CombinedPath(eff.OutDir, first.Year, first.Month, last.Month)
			}
			_, werr = csvout.Write(path, combined, ex.cols)
			if werr == nil {
				rr.CombinedFile = path
				log.Info("合并文件已写入", "file", path, "rows", len(combined))
			}
		}
		for _, c := range pending {
			res := c.res
			switch {
			case interrupted:
				res = interruptedResult(c.p)
			case werr != nil:
				res.Status = domain.StatusFailed
				res.ErrorCode = domain.ErrCodeWriteFailed
				res.ErrorMsg = werr.Error()
			default:
				res.File = path
			}
			rr.Periods = append(rr.Periods, res)
			obs.OnPeriodDone(res, c.rows, c.dur)
		}
	}

	return finish()
}
