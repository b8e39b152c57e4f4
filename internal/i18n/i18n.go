package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
)

const (
	LangHE = "he"
	LangEN = "en"
)

// EncouragementCount is the size of the weekly reminder message rotation.
const EncouragementCount = 10

//go:embed locales/*.json
var embeddedLocales embed.FS

// Manager serves localized notification text. Hebrew is used for clients whose
// stored language is "he"; every other language falls back to English.
type Manager struct {
	locales   map[string]map[string]string
	supported []string
}

func NewManager() (*Manager, error) {
	return NewManagerFromFS(embeddedLocales, "locales")
}

func NewManagerFromFS(fsys fs.FS, dir string) (*Manager, error) {
	manager := &Manager{
		locales: map[string]map[string]string{},
	}

	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read locales dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".json" {
			continue
		}

		language := strings.TrimSuffix(strings.ToLower(entry.Name()), path.Ext(entry.Name()))
		content, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", language, err)
		}

		messages := map[string]string{}
		if err := json.Unmarshal(content, &messages); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", language, err)
		}
		if len(messages) == 0 {
			return nil, fmt.Errorf("locale %s is empty", language)
		}

		manager.locales[language] = messages
		manager.supported = append(manager.supported, language)
	}

	for _, required := range []string{LangHE, LangEN} {
		if _, ok := manager.locales[required]; !ok {
			return nil, fmt.Errorf("required locale %q missing", required)
		}
	}
	for index := 0; index < EncouragementCount; index++ {
		key := encouragementKey(index)
		if strings.TrimSpace(manager.locales[LangEN][key]) == "" {
			return nil, fmt.Errorf("locale %q missing %s", LangEN, key)
		}
	}

	sort.Strings(manager.supported)
	return manager, nil
}

func (manager *Manager) SupportedLanguages() []string {
	result := make([]string, len(manager.supported))
	copy(result, manager.supported)
	return result
}

// ResolveLanguage maps a stored client language to the catalog used for it.
func (manager *Manager) ResolveLanguage(raw string) string {
	if normalizeLanguageTag(raw) == LangHE {
		return LangHE
	}
	return LangEN
}

func (manager *Manager) Translate(language string, key string) string {
	target := manager.locales[manager.ResolveLanguage(language)]
	if value, ok := target[key]; ok && strings.TrimSpace(value) != "" {
		return value
	}
	if value, ok := manager.locales[LangEN][key]; ok && strings.TrimSpace(value) != "" {
		return value
	}
	return key
}

func (manager *Manager) Translatef(language string, key string, args ...any) string {
	return fmt.Sprintf(manager.Translate(language, key), args...)
}

// Encouragements returns the ordered weekly reminder catalog for language.
func (manager *Manager) Encouragements(language string) []string {
	catalog := make([]string, 0, EncouragementCount)
	for index := 0; index < EncouragementCount; index++ {
		catalog = append(catalog, manager.Translate(language, encouragementKey(index)))
	}
	return catalog
}

// WeekdayNames returns short weekday names indexed 0=Sunday..6=Saturday.
func (manager *Manager) WeekdayNames(language string) []string {
	names := make([]string, 0, 7)
	for index := 0; index < 7; index++ {
		names = append(names, manager.Translate(language, "weekday.short."+strconv.Itoa(index)))
	}
	return names
}

func encouragementKey(index int) string {
	return "reminder.encouragement." + strconv.Itoa(index)
}

func normalizeLanguageTag(raw string) string {
	language := strings.ToLower(strings.TrimSpace(raw))
	if language == "" {
		return ""
	}
	language = strings.ReplaceAll(language, "_", "-")
	if separator := strings.Index(language, "-"); separator >= 0 {
		language = language[:separator]
	}
	return language
}
