package main

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/fang"
)

var version = "0.1.0"

func main() {
	root := newRootCmd(newCLI())

	// fang 负责 --version、补全与 Ctrl-C：收到 SIGINT 时取消 ctx，run 把剩余期间标记为 interrupted。
	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(exitCode(err))
	}
}

const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

// exitError 携带进程退出码；其余错误（cobra 参数解析等）都按用法错误处理。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUsage
}
