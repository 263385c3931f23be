package render

import (
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01",
	"2006/01/02",
	"01/02/2006",
	"January 2006",
	"Jan 2006",
	"2006",
}

// FormatDate 把日期字符串格式化为 "Jan 2006"。
// 空字符串返回空；无法解析时原样返回，不报错。
func FormatDate(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("Jan 2006")
		}
	}
	return raw
}

// DateRange 格式化起止日期，两者都为空时返回空字符串。
// ongoing 为 true 时，只有开始日期的条目显示为 "start - Present"。
func DateRange(start, end string, ongoing bool) string {
	from, to := FormatDate(start), FormatDate(end)
	switch {
	case from == "" && to == "":
		return ""
	case from == "":
		return to
	case to == "" && ongoing:
		return from + " - Present"
	case to == "":
		return from
	default:
		return from + " - " + to
	}
}
