package i18n

import (
	"strings"
	"sync/atomic"
)

// Translator retrieves localized messages for Issue codes.
// data provides optional values to embed in the message (for example,
// "expected" or "key"); placeholders are written {name}.
type Translator interface {
	Message(code string, data map[string]string) string
}

var en = map[string]string{
	"invalid_type":          "expected {expected}",
	"required":              "required property missing",
	"unknown_key":           "unknown key",
	"invalid_key":           "key does not match {pattern}",
	"too_short":             "too short",
	"too_long":              "too long",
	"too_small":             "too small",
	"too_big":               "too big",
	"pattern":               "does not match pattern",
	"invalid_format":        "invalid {format}",
	"unknown_format":        "unknown format {format}",
	"invalid_literal":       "expected literal {expected}",
	"not_multiple_of":       "not a multiple of {multipleOf}",
	"not_unique":            "items are not unique",
	"invalid_union":         "no union variant matched",
	"discriminator_missing": "discriminator {key} missing",
	"discriminator_unknown": "unknown discriminator value",
	"never":                 "no value is accepted",
	"unresolved_ref":        "unresolved reference {ref}",
	"opaque":                "rejected by {dialect} schema",
	"transform":             "transform failed",
	"parse_error":           "parse error",
	"duplicate_key":         "duplicate key {key}",
}

var ja = map[string]string{
	"invalid_type":          "型が不正です ({expected})",
	"required":              "必須プロパティが不足しています",
	"unknown_key":           "未知のキーです",
	"invalid_key":           "キーがパターン {pattern} に一致しません",
	"too_short":             "短すぎます",
	"too_long":              "長すぎます",
	"too_small":             "小さすぎます",
	"too_big":               "大きすぎます",
	"pattern":               "パターンに一致しません",
	"invalid_format":        "{format} 形式ではありません",
	"unknown_format":        "未知のフォーマット {format} です",
	"invalid_literal":       "{expected} である必要があります",
	"not_multiple_of":       "{multipleOf} の倍数ではありません",
	"not_unique":            "要素が重複しています",
	"invalid_union":         "どの候補にも一致しません",
	"discriminator_missing": "識別キー {key} がありません",
	"discriminator_unknown": "識別キーの値が不明です",
	"never":                 "値は受け付けられません",
	"unresolved_ref":        "参照 {ref} を解決できません",
	"opaque":                "{dialect} スキーマで拒否されました",
	"transform":             "変換に失敗しました",
	"parse_error":           "解析エラー",
	"duplicate_key":         "キー {key} が重複しています",
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	dict := en
	if t.lang == "ja" {
		dict = ja
	}
	msg, ok := dict[code]
	if !ok {
		return code
	}
	return fill(msg, data)
}

// fill substitutes {name} placeholders. Placeholders without data render as
// their bare name.
func fill(msg string, data map[string]string) string {
	b := &strings.Builder{}
	for {
		i := strings.IndexByte(msg, '{')
		j := strings.IndexByte(msg, '}')
		if i < 0 || j < i {
			b.WriteString(msg)
			return b.String()
		}
		b.WriteString(msg[:i])
		name := msg[i+1 : j]
		if val, ok := data[name]; ok {
			b.WriteString(val)
		} else {
			b.WriteString(name)
		}
		msg = msg[j+1:]
	}
}

type holder struct{ tr Translator }

var current atomic.Pointer[holder]

func init() { current.Store(&holder{dictTranslator{lang: "en"}}) }

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	current.Store(&holder{dictTranslator{lang: lang}})
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		tr = dictTranslator{lang: "en"}
	}
	current.Store(&holder{tr})
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string { return current.Load().tr.Message(code, data) }
