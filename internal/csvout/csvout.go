// Package csvout 把补全后的榜单写成 UTF-8（带 BOM）CSV。
//
// 列顺序固定：排名, 英文片名, 中文片名, 累计票房, 首映日期, <primary 评分列>, <secondary 评分列>。
package csvout

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/John-Robertt/BOMC/internal/domain"
	"github.com/John-Robertt/BOMC/internal/infra/fsx"
)

// BOM 让 Excel 等工具按 UTF-8 识别中文。
const BOM = "\uFEFF"

// Columns 是评分列的列名；为空时使用默认列名。
type Columns struct {
	Primary   string
	Secondary string
}

func (c Columns) header() []string {
	p := strings.TrimSpace(c.Primary)
	if p == "" {
		p = "IMDb评分"
	}
	s := strings.TrimSpace(c.Secondary)
	if s == "" {
		s = "豆瓣评分"
	}
	return []string{"排名", "英文片名", "中文片名", "累计票房", "首映日期", p, s}
}

// Encode 把 rows 编码为 CSV 字节（含 BOM 与表头）。
func Encode(rows []domain.EnrichedRow, cols Columns) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(BOM)
	w := csv.NewWriter(&buf)
	if err := w.Write(cols.header()); err != nil {
		return nil, err
	}
	for _, r := range rows {
		rec := []string{
			strconv.Itoa(r.Rank),
			r.Title,
			orNA(r.LocalizedTitle),
			r.GrossText,
			orNA(r.ReleaseDate),
			orNA(r.Rating),
			orNA(r.SecondaryRating),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write 原子写入 path（覆盖已存在文件）。rows 为空时不写文件并返回 false。
func Write(path string, rows []domain.EnrichedRow, cols Columns) (bool, error) {
	if len(rows) == 0 {
		return false, nil
	}
	b, err := Encode(rows, cols)
	if err != nil {
		return false, err
	}
	if err := fsx.WriteFile(path, b, 0o644); err != nil {
		return false, err
	}
	return true, nil
}

// PeriodPath 返回单月输出文件路径：<outDir>/boxoffice_<YYYY>_<MM>.csv。
func PeriodPath(outDir string, p domain.Period) string {
	return filepath.Join(outDir, fmt.Sprintf("boxoffice_%04d_%02d.csv", p.Year, p.Month))
}

// CombinedPath 返回合并输出文件路径：<outDir>/batch_boxoffice_<YYYY>_<MM>_to_<MM>.csv。
func CombinedPath(outDir string, year, from, to int) string {
	return filepath.Join(outDir, fmt.Sprintf("batch_boxoffice_%04d_%02d_to_%02d.csv", year, from, to))
}

func orNA(s string) string {
	if s == "" {
		return domain.NA
	}
	return s
}
