// Package slug 从显示名称生成 URL 安全的标识。
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Make 规则：去除变音符号 → 小写 → 删除字母数字、空白、连字符以外的字符
// → 连续空白/连字符折叠为单个连字符 → 去掉首尾连字符。
//
//	Make("Sales & Marketing") == "sales-marketing"
func Make(name string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		name,
	)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingSep := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingSep = false
			b.WriteRune(r)
		case r == '-' || unicode.IsSpace(r):
			pendingSep = true
		}
	}
	return b.String()
}

// OrFromName slug 为空白时从 name 推导，否则规范化用户填写的值
func OrFromName(slug, name string) string {
	if s := Make(slug); s != "" {
		return s
	}
	return Make(name)
}
