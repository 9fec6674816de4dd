package domain

// NA 是“已尝试解析，但没有可用值”的哨兵。
// 与空串区分：空串表示“未尝试”，完成的行里不允许出现空串。
const NA = "N/A"

// ListingRow 是月度票房榜上的一行（由表格抽取产生，构造后只读）。
//
// 说明：来源页面可能重复/缺失排名，这里不强制 Rank 唯一。
type ListingRow struct {
	Rank           int
	Title          string
	GrossText      string
	ReleaseDateRaw string
}

// Candidate 是某个搜索结果里的一个同名候选（按年份距离排序后用于详情页解析）。
type Candidate struct {
	Title        string
	Year         int // 0 表示未知
	DetailRef    string
	YearDistance int // 未提供目标年份时恒为 0
}

// EnrichedRow 是 ListingRow 加上富化字段后的完整结果。
//
// 不变量：LocalizedTitle / Rating / SecondaryRating 在行完成时必须非空
// （真实值或 NA），不存在“只填了一半”的行。
type EnrichedRow struct {
	ListingRow

	LocalizedTitle  string
	Rating          string
	SecondaryRating string

	ReleaseDate string  // 本地化后的首映日期
	Gross       float64 // GrossText 规范化后的数值（无法解析时为 0）
}

// Complete 判断富化字段是否全部落定。
func (r EnrichedRow) Complete() bool {
	return r.LocalizedTitle != "" && r.Rating != "" && r.SecondaryRating != ""
}
