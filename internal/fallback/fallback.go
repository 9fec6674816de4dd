// Package fallback 提供静态的 片名 -> [(本地化片名, 评分, 年份)] 查找表，
// 在线解析拿不到可用评分时使用。
//
// 约束：
// - Table 构造后只读（构造时复制输入），可在多处共享
// - 键匹配：精确匹配优先，其次大小写不敏感的双向子串匹配，按声明顺序首个命中
// - 年份感知：同一键下取 |year - target| 最小者，距离相同取先声明者
package fallback

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/John-Robertt/BOMC/internal/domain"
)

//go:embed default.yaml
var defaultYAML []byte

// Release 是同名作品的一个版本。
type Release struct {
	Localized string `yaml:"localized"`
	Rating    string `yaml:"rating"`
	Year      int    `yaml:"year"`
}

// Entry 是某个英文片名键下的全部版本（顺序即声明顺序）。
type Entry struct {
	Title    string    `yaml:"title"`
	Releases []Release `yaml:"releases"`
}

// Table 是只读查找表。零值可用（永远不命中）。
type Table struct {
	entries []Entry
	folded  []string
}

var folder = cases.Fold()

// New 复制 entries 构造查找表；空片名或无版本的条目被忽略。
func New(entries []Entry) Table {
	t := Table{}
	for _, e := range entries {
		title := strings.TrimSpace(e.Title)
		if title == "" || len(e.Releases) == 0 {
			continue
		}
		rs := make([]Release, len(e.Releases))
		copy(rs, e.Releases)
		t.entries = append(t.entries, Entry{Title: title, Releases: rs})
		t.folded = append(t.folded, folder.String(title))
	}
	return t
}

// Len 返回键数量。
func (t Table) Len() int { return len(t.entries) }

// Entries 返回条目副本。
func (t Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	for i, e := range t.entries {
		rs := make([]Release, len(e.Releases))
		copy(rs, e.Releases)
		out[i] = Entry{Title: e.Title, Releases: rs}
	}
	return out
}

// Lookup 查找本地化片名与评分；targetYear=0 表示不考虑年份。未命中返回 (N/A, N/A)。
func (t Table) Lookup(title string, targetYear int) (string, string) {
	r, ok := t.Find(title, targetYear)
	if !ok {
		return domain.NA, domain.NA
	}
	return orNA(r.Localized), orNA(r.Rating)
}

// Find 返回命中的版本。
func (t Table) Find(title string, targetYear int) (Release, bool) {
	idx := t.keyIndex(title)
	if idx < 0 {
		return Release{}, false
	}
	rs := t.entries[idx].Releases
	if targetYear <= 0 {
		return rs[0], true
	}
	best := 0
	bestDist := absInt(rs[0].Year - targetYear)
	for i := 1; i < len(rs); i++ {
		if d := absInt(rs[i].Year - targetYear); d < bestDist {
			best, bestDist = i, d
		}
	}
	return rs[best], true
}

func (t Table) keyIndex(title string) int {
	title = strings.TrimSpace(title)
	if title == "" {
		return -1
	}
	for i, e := range t.entries {
		if e.Title == title {
			return i
		}
	}
	q := folder.String(title)
	for i, k := range t.folded {
		if strings.Contains(q, k) || strings.Contains(k, q) {
			return i
		}
	}
	return -1
}

// Set 以来源名（小写）索引多张查找表。
type Set map[string]Table

// Table 返回来源对应的查找表；不存在时返回零值表。
func (s Set) Table(source string) Table {
	if s == nil {
		return Table{}
	}
	return s[strings.ToLower(strings.TrimSpace(source))]
}

// With 返回新的 Set：o 中出现的来源整表替换 s 中的同名来源。
func (s Set) With(o Set) Set {
	out := make(Set, len(s)+len(o))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range o {
		out[k] = v
	}
	return out
}

// Load 从 YAML 读取：顶层键为来源名，值为 Entry 列表。
func Load(r io.Reader) (Set, error) {
	var raw map[string][]Entry
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		if err == io.EOF {
			return Set{}, nil
		}
		return nil, fmt.Errorf("解析回退数据失败：%w", err)
	}
	out := make(Set, len(raw))
	for name, entries := range raw {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			return nil, fmt.Errorf("回退数据存在空来源名")
		}
		out[key] = New(entries)
	}
	return out, nil
}

// Default 返回内置回退数据。
func Default() Set {
	s, err := Load(bytes.NewReader(defaultYAML))
	if err != nil {
		panic(fmt.Sprintf("内置回退数据无效：%v", err))
	}
	return s
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return domain.NA
	}
	return s
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
