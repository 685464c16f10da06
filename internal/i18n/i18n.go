package i18n

import "strings"

type Lang string

const (
	EN Lang = "EN"
	RU Lang = "RU"
	CZ Lang = "CZ"
	UA Lang = "UA"
)

// Default is used whenever a user has no stored language.
const Default = EN

func Parse(s string) Lang {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "RU":
		return RU
	case "CZ":
		return CZ
	case "UA":
		return UA
	default:
		return EN
	}
}

// FromLanguageCode maps a chat-client language code (ru-RU, cs, uk, ...) to a
// supported language.
func FromLanguageCode(code string) Lang {
	code = strings.ToLower(strings.TrimSpace(code))
	switch {
	case strings.HasPrefix(code, "ru"):
		return RU
	case strings.HasPrefix(code, "cs"):
		return CZ
	case strings.HasPrefix(code, "uk"):
		return UA
	default:
		return EN
	}
}

// Text looks up a message template for the language and substitutes
// {placeholder} arguments. Missing languages and keys fall back to English,
// so a partial catalog degrades to readable text, never to an empty message.
func Text(lang Lang, key string, args map[string]string) string {
	table, ok := catalog[lang]
	if !ok {
		table = catalog[EN]
	}
	tmpl, ok := table[key]
	if !ok {
		tmpl, ok = catalog[EN][key]
		if !ok {
			return key
		}
	}
	if len(args) == 0 {
		return tmpl
	}
	pairs := make([]string, 0, len(args)*2)
	for name, value := range args {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
