// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package i18n provides locale matching, message translation and the pure
// date formatting used for article dates and edit annotations.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/language"
)

//go:embed locales
var localesFS embed.FS

// Message represents a single translatable message.
type Message struct {
	ID          string `json:"id"`
	Message     string `json:"message"`
	Translation string `json:"translation"`
}

// MessageFile represents the structure of a messages JSON file.
type MessageFile struct {
	Language string    `json:"language"`
	Messages []Message `json:"messages"`
}

// Catalog holds all translations for all supported languages.
type Catalog struct {
	mu           sync.RWMutex
	translations map[string]map[string]string // lang -> key -> translation
	matcher      language.Matcher
	supported    []language.Tag
	defaultLang  string
	logger       *slog.Logger
}

// DefaultLanguage is used when Init receives no usable default.
const DefaultLanguage = "pt-BR"

// SupportedLanguages lists the languages with embedded translations.
var SupportedLanguages = []string{"pt-BR", "en"}

var catalog *Catalog

// Init loads the embedded translations. defaultLang must be supported; an
// empty value selects DefaultLanguage.
func Init(defaultLang string, logger *slog.Logger) error {
	if defaultLang == "" {
		defaultLang = DefaultLanguage
	}
	if !IsSupported(defaultLang) {
		return fmt.Errorf("unsupported default language %q", defaultLang)
	}

	c := &Catalog{
		translations: make(map[string]map[string]string),
		logger:       logger,
	}

	// The default language goes first so the matcher falls back to it.
	ordered := []string{canonical(defaultLang)}
	for _, lang := range SupportedLanguages {
		if lang != ordered[0] {
			ordered = append(ordered, lang)
		}
	}
	c.defaultLang = ordered[0]

	c.supported = make([]language.Tag, 0, len(ordered))
	for _, lang := range ordered {
		c.supported = append(c.supported, language.MustParse(lang))
		if err := c.loadLanguage(lang); err != nil {
			return fmt.Errorf("failed to load language %s: %w", lang, err)
		}
	}
	c.matcher = language.NewMatcher(c.supported)

	catalog = c
	if logger != nil {
		logger.Info("i18n initialized", "languages", ordered, "default", c.defaultLang)
	}
	return nil
}

func (c *Catalog) loadLanguage(lang string) error {
	path := fmt.Sprintf("locales/%s/messages.json", lang)
	data, err := localesFS.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var msgFile MessageFile
	if err := json.Unmarshal(data, &msgFile); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.translations[lang] = make(map[string]string, len(msgFile.Messages))
	for _, msg := range msgFile.Messages {
		c.translations[lang][msg.ID] = msg.Translation
	}
	return nil
}

// T translates key into lang, falling back to the default language and then
// to the key itself. Arguments are applied with fmt.Sprintf.
func T(lang, key string, args ...any) string {
	if catalog == nil {
		return key
	}

	catalog.mu.RLock()
	translation, ok := catalog.translations[canonical(lang)][key]
	if !ok {
		translation, ok = catalog.translations[catalog.defaultLang][key]
	}
	catalog.mu.RUnlock()

	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(translation, args...)
	}
	return translation
}

// MatchLanguage returns the supported language best matching an
// Accept-Language header or a single language code.
func MatchLanguage(acceptLang string) string {
	if catalog == nil {
		return DefaultLanguage
	}
	if strings.TrimSpace(acceptLang) == "" {
		return catalog.defaultLang
	}

	tags, _, err := language.ParseAcceptLanguage(acceptLang)
	if err != nil || len(tags) == 0 {
		tag, err := language.Parse(acceptLang)
		if err != nil {
			return catalog.defaultLang
		}
		tags = []language.Tag{tag}
	}

	_, idx, confidence := catalog.matcher.Match(tags...)
	if confidence == language.No || idx < 0 || idx >= len(catalog.supported) {
		return catalog.defaultLang
	}
	return catalog.supported[idx].String()
}

// IsSupported reports whether lang has embedded translations.
func IsSupported(lang string) bool {
	for _, supported := range SupportedLanguages {
		if strings.EqualFold(supported, lang) {
			return true
		}
	}
	return false
}

func canonical(lang string) string {
	for _, supported := range SupportedLanguages {
		if strings.EqualFold(supported, lang) {
			return supported
		}
	}
	return lang
}

// FormatDate renders the calendar date of t in lang, e.g. "25 mar 2021" for
// pt-BR. It depends only on its arguments and the embedded catalog.
func FormatDate(t time.Time, lang string) string {
	months := strings.Split(T(lang, "date.months"), ",")
	month := t.Month().String()[:3]
	if len(months) == 12 {
		month = months[t.Month()-1]
	}

	return strings.NewReplacer(
		"{day}", fmt.Sprintf("%02d", t.Day()),
		"{month}", month,
		"{year}", strconv.Itoa(t.Year()),
	).Replace(T(lang, "date.pattern"))
}

// FormatTime renders the wall-clock time of t in lang.
func FormatTime(t time.Time, lang string) string {
	return strings.NewReplacer(
		"{hour}", fmt.Sprintf("%02d", t.Hour()),
		"{minute}", fmt.Sprintf("%02d", t.Minute()),
	).Replace(T(lang, "date.time_pattern"))
}

// EditedAnnotation renders the "edited on" line for an article last modified at t.
func EditedAnnotation(t time.Time, lang string) string {
	return T(lang, "article.edited", FormatDate(t, lang), FormatTime(t, lang))
}

// ReadingTime renders a reading time in minutes.
func ReadingTime(minutes int, lang string) string {
	return T(lang, "article.reading_time", minutes)
}
