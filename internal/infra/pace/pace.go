// Package pace 为对外请求提供统一的节奏控制。
//
// 等待发生在请求之前：第一次请求立即放行，之后每次至少间隔 interval；
// 批次中最后一次请求之后不会再有额外等待。
package pace

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer 是并发安全的请求节奏器。nil 或 interval<=0 时不限速。
type Pacer struct {
	interval time.Duration
	lim      *rate.Limiter
}

func New(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{lim: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Pacer{interval: interval, lim: rate.NewLimiter(rate.Every(interval), 1)}
}

// Interval 返回请求最小间隔；0 表示不限速。
func (p *Pacer) Interval() time.Duration {
	if p == nil {
		return 0
	}
	return p.interval
}

// Wait 阻塞到允许下一次请求或 ctx 结束。
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.lim == nil {
		return ctx.Err()
	}
	return p.lim.Wait(ctx)
}
