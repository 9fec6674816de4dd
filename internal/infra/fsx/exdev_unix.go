//go:build unix

package fsx

import (
	"errors"
	"syscall"
)

// isEXDEV 识别 rename 返回的 EXDEV（*os.LinkError 包装的也算）。
func isEXDEV(err error) bool { return errors.Is(err, syscall.EXDEV) }
