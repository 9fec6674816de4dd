package fallback

import (
	"strings"
	"testing"
)

func batmanTable() Table {
	return New([]Entry{
		{Title: "Batman", Releases: []Release{
			{Localized: "蝙蝠侠", Rating: "7.5", Year: 1989},
			{Localized: "蝙蝠侠：侠影之谜", Rating: "8.4", Year: 2005},
			{Localized: "蝙蝠侠：黑暗骑士", Rating: "9.3", Year: 2008},
			{Localized: "蝙蝠侠大战超人", Rating: "6.4", Year: 2016},
		}},
		{Title: "Avatar", Releases: []Release{{Localized: "阿凡达", Rating: "8.8", Year: 2009}}},
	})
}

func TestLookup_YearAwareExact(t *testing.T) {
	loc, r := batmanTable().Lookup("Batman", 2008)
	if loc != "蝙蝠侠：黑暗骑士" || r != "9.3" {
		t.Fatalf("期望 2008 版本，实际 %q %q", loc, r)
	}
}

func TestLookup_YearUnawareReturnsFirst(t *testing.T) {
	loc, r := batmanTable().Lookup("Batman", 0)
	if loc != "蝙蝠侠" || r != "7.5" {
		t.Fatalf("期望首个版本，实际 %q %q", loc, r)
	}
}

func TestLookup_TieGoesToFirstDeclared(t *testing.T) {
	tbl := New([]Entry{{Title: "X", Releases: []Release{
		{Localized: "早", Rating: "1", Year: 2000},
		{Localized: "晚", Rating: "2", Year: 2010},
	}}})
	if loc, _ := tbl.Lookup("X", 2005); loc != "早" {
		t.Fatalf("同距离应取先声明者，实际 %q", loc)
	}
}

func TestLookup_SubstringBothDirections(t *testing.T) {
	tbl := batmanTable()
	if loc, _ := tbl.Lookup("batman returns", 1992); loc != "蝙蝠侠" {
		t.Fatalf("标题包含键应命中，实际 %q", loc)
	}
	if loc, _ := tbl.Lookup("avat", 0); loc != "阿凡达" {
		t.Fatalf("键包含标题应命中，实际 %q", loc)
	}
}

func TestLookup_NoMatch(t *testing.T) {
	tbl := batmanTable()
	for _, title := range []string{"Unknown Movie", "", "   "} {
		loc, r := tbl.Lookup(title, 2008)
		if loc != "N/A" || r != "N/A" {
			t.Fatalf("%q 期望 (N/A, N/A)，实际 (%q, %q)", title, loc, r)
		}
	}
	var zero Table
	if loc, r := zero.Lookup("Batman", 0); loc != "N/A" || r != "N/A" {
		t.Fatalf("零值表期望 (N/A, N/A)")
	}
}

func TestLookup_EmptyLocalizedIsNA(t *testing.T) {
	tbl := New([]Entry{{Title: "Avatar", Releases: []Release{{Rating: "7.9", Year: 2009}}}})
	loc, r := tbl.Lookup("Avatar", 2009)
	if loc != "N/A" || r != "7.9" {
		t.Fatalf("期望 (N/A, 7.9)，实际 (%q, %q)", loc, r)
	}
}

func TestNew_CopiesInput(t *testing.T) {
	in := []Entry{{Title: "A", Releases: []Release{{Localized: "甲", Rating: "1", Year: 2000}}}}
	tbl := New(in)
	in[0].Releases[0].Localized = "乙"
	if loc, _ := tbl.Lookup("A", 0); loc != "甲" {
		t.Fatalf("构造后修改输入不应影响查找表，实际 %q", loc)
	}
	out := tbl.Entries()
	out[0].Releases[0].Rating = "9"
	if _, r := tbl.Lookup("A", 0); r != "1" {
		t.Fatalf("修改 Entries 副本不应影响查找表，实际 %q", r)
	}
}

func TestLoad(t *testing.T) {
	set, err := Load(strings.NewReader(`
Douban:
  - title: Frozen
    releases:
      - { localized: 冰雪奇缘, rating: "8.5", year: 2013 }
`))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if loc, _ := set.Table("douban").Lookup("Frozen", 2013); loc != "冰雪奇缘" {
		t.Fatalf("期望 冰雪奇缘，实际 %q", loc)
	}
	if set.Table("imdb").Len() != 0 {
		t.Fatalf("缺失来源应返回空表")
	}

	if _, err := Load(strings.NewReader("douban:\n  - titel: x\n")); err == nil {
		t.Fatalf("期望未知字段报错")
	}
}

func TestDefault(t *testing.T) {
	set := Default()
	if loc, r := set.Table("douban").Lookup("Batman", 2008); loc != "蝙蝠侠：黑暗骑士" || r != "9.3" {
		t.Fatalf("内置 douban 数据不符合预期：%q %q", loc, r)
	}
	if loc, _ := set.Table("douban").Lookup("The Lion King", 2019); loc != "狮子王" {
		t.Fatalf("内置 douban 数据不符合预期：%q", loc)
	}
	if _, r := set.Table("imdb").Lookup("The Lion King", 2010); r != "6.8" {
		t.Fatalf("内置 imdb 数据不符合预期：%q", r)
	}
}

func TestSet_WithReplacesWholeSource(t *testing.T) {
	base := Default()
	override := Set{"douban": New([]Entry{{Title: "Custom", Releases: []Release{{Localized: "自定义", Rating: "1.0", Year: 2020}}}})}
	merged := base.With(override)

	if loc, _ := merged.Table("douban").Lookup("Custom", 0); loc != "自定义" {
		t.Fatalf("覆盖表未生效：%q", loc)
	}
	if loc, _ := merged.Table("douban").Lookup("Batman", 2008); loc != "N/A" {
		t.Fatalf("同名来源应整表替换，实际仍命中 %q", loc)
	}
	if _, r := merged.Table("imdb").Lookup("Batman", 2008); r != "9.0" {
		t.Fatalf("未覆盖的来源应保留，实际 %q", r)
	}
	if _, r := base.Table("douban").Lookup("Batman", 2008); r != "9.3" {
		t.Fatalf("With 不应修改原 Set")
	}
}
