package delivery

import (
	"strings"

	"golang.org/x/text/language"
)

// DefaultLocale is used when nothing else matches.
const DefaultLocale = "en"

var (
	supportedLocales = []language.Tag{language.English, language.Japanese}
	localeMatcher    = language.NewMatcher(supportedLocales)
)

// localeEnv lists environment variables in POSIX precedence order.
var localeEnv = []string{"LC_ALL", "LC_MESSAGES", "LANG"}

// ResolveLocale picks the first supported locale from the explicit override
// and then the environment, defaulting to English.
func ResolveLocale(override string, getenv func(string) string) string {
	candidates := []string{override}
	if getenv != nil {
		for _, key := range localeEnv {
			candidates = append(candidates, getenv(key))
		}
	}

	for _, raw := range candidates {
		tag, ok := parseLocale(raw)
		if !ok {
			continue
		}
		_, idx, conf := localeMatcher.Match(tag)
		if conf == language.No {
			continue
		}
		return supportedLocales[idx].String()
	}
	return DefaultLocale
}

// parseLocale accepts BCP 47 tags and POSIX forms such as ja_JP.UTF-8.
func parseLocale(raw string) (language.Tag, bool) {
	s := strings.TrimSpace(raw)
	if i := strings.IndexAny(s, ".@"); i >= 0 {
		s = s[:i]
	}
	if s == "" || s == "C" || s == "POSIX" {
		return language.Und, false
	}
	tag, err := language.Parse(strings.ReplaceAll(s, "_", "-"))
	if err != nil {
		return language.Und, false
	}
	return tag, true
}
