// Package fsx 原子替换输出文件：同目录临时文件写满并 fsync 后 rename 到目标。
//
// CSV 与页面缓存都经由这里落盘，读者只会看到旧内容或完整的新内容。
package fsx

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
)

// 测试替换它来模拟 rename 失败。
var renameFunc = os.Rename

// NotRegularError 表示目标已存在但不是普通文件（目录、符号链接、设备等）。
type NotRegularError struct {
	Path string
	Mode fs.FileMode
}

func (e *NotRegularError) Error() string {
	return fmt.Sprintf("目标不是普通文件：%q（%s）", e.Path, e.Mode.Type())
}

// CrossDeviceError 表示 rename 跨越文件系统（EXDEV）。
type CrossDeviceError struct {
	Src, Dst string
	Err      error
}

func (e *CrossDeviceError) Error() string {
	return fmt.Sprintf("rename 跨文件系统：%q -> %q：%v", e.Src, e.Dst, e.Err)
}

func (e *CrossDeviceError) Unwrap() error { return e.Err }

// WriteFile 以 perm 原子写入 path，已存在的普通文件被替换，缺失的父目录会被创建。
// 目标不是普通文件时返回 *NotRegularError 且不做任何写入。
func WriteFile(path string, data []byte, perm fs.FileMode) error {
	path = filepath.Clean(path)
	if fi, err := os.Lstat(path); err == nil {
		if !fi.Mode().IsRegular() {
			return &NotRegularError{Path: path, Mode: fi.Mode()}
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := rename(tmp.Name(), path); err != nil {
		return err
	}
	committed = true

	syncDir(dir)
	return nil
}

func rename(src, dst string) error {
	err := renameFunc(src, dst)
	if err != nil && isEXDEV(err) {
		return &CrossDeviceError{Src: src, Dst: dst, Err: err}
	}
	return err
}

// syncDir 持久化目录项；失败不影响已完成的 rename。
func syncDir(dir string) {
	if runtime.GOOS == "windows" {
		return
	}
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
}
