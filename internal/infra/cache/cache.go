// Package cache 提供页面 HTML 的文件缓存。
package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/John-Robertt/BOMC/internal/infra/fsx"
)

// Store 提供 <root>/pages/<namespace>/<sha1(url)>.html 的读写。
//
// 约束：
// - namespace 取 URL 的主机名（小写，非法字符替换为 _），避免路径穿越
// - ReadOnly=true 时只读（--cache-read-only：只回放已有页面，不新增缓存）
type Store struct {
	Root     string
	ReadOnly bool
}

var ErrReadOnly = errors.New("cache: read-only")

func New(root string, readOnly bool) Store {
	return Store{
		Root:     filepath.Clean(strings.TrimSpace(root)),
		ReadOnly: readOnly,
	}
}

// PagePath 返回 URL 对应缓存文件的路径。
func (s Store) PagePath(pageURL string) (string, error) {
	ns, err := namespace(pageURL)
	if err != nil {
		return "", err
	}
	sum := sha1.Sum([]byte(strings.TrimSpace(pageURL)))
	return filepath.Join(s.Root, "pages", ns, hex.EncodeToString(sum[:])+".html"), nil
}

func (s Store) ReadPage(pageURL string) ([]byte, bool, error) {
	path, err := s.PagePath(pageURL)
	if err != nil {
		return nil, false, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (s Store) WritePage(pageURL string, html []byte) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	path, err := s.PagePath(pageURL)
	if err != nil {
		return err
	}
	return fsx.WriteFile(path, html, 0o644)
}

var unsafeNameRE = regexp.MustCompile(`[^a-z0-9_.-]`)

func namespace(pageURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil {
		return "", fmt.Errorf("非法 URL：%w", err)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("URL 缺少主机名：%q", pageURL)
	}
	host = unsafeNameRE.ReplaceAllString(host, "_")
	if host == "." || host == ".." {
		return "", fmt.Errorf("非法主机名：%q", host)
	}
	return host, nil
}
