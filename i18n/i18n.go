package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

//go:embed locales/*.json
var locales embed.FS

var (
	loadOnce     sync.Once
	loadErr      error
	translations = make(map[string]map[string]string)
)

var DefaultLang = "en"

var languages = []string{"en", "fr"}

// LoadTranslations parses the embedded locale files. It is safe to call more than once.
func LoadTranslations() error {
	loadOnce.Do(func() {
		for _, lang := range languages {
			data, err := locales.ReadFile(fmt.Sprintf("locales/%s.json", lang))
			if err != nil {
				loadErr = err
				return
			}
			var t map[string]string
			if err := json.Unmarshal(data, &t); err != nil {
				loadErr = fmt.Errorf("%s: %w", lang, err)
				return
			}
			translations[lang] = t
		}
	})
	return loadErr
}

// T looks key up in lang, then in DefaultLang. Unknown keys come back unchanged.
func T(lang, key string) string {
	for _, l := range []string{lang, DefaultLang} {
		if val, ok := translations[l][key]; ok {
			return val
		}
	}
	return key
}

// DetectLanguage picks the first Accept-Language entry with a loaded locale,
// matching on the primary subtag only.
func DetectLanguage(r *http.Request) string {
	for _, tag := range strings.Split(r.Header.Get("Accept-Language"), ",") {
		primary, _, _ := strings.Cut(strings.TrimSpace(tag), ";")
		primary, _, _ = strings.Cut(primary, "-")
		primary = strings.ToLower(primary)
		if _, ok := translations[primary]; ok {
			return primary
		}
	}
	return DefaultLang
}
