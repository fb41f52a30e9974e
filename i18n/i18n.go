// Package i18n localizes API error messages. Locale files are embedded;
// the locale travels on the request context.
package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

var (
	mu            sync.RWMutex
	bundle        *i18n.Bundle
	matcher       language.Matcher
	supported     []string
	defaultLocale = "en"
)

type ctxKey struct{}

// Init loads all locale files and sets the default locale.
func Init(defLocale string) error {
	b := i18n.NewBundle(language.English)
	b.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return fmt.Errorf("i18n: read locales dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + e.Name())
		if err != nil {
			return fmt.Errorf("i18n: read %s: %w", e.Name(), err)
		}
		if _, err := b.ParseMessageFileBytes(data, e.Name()); err != nil {
			return fmt.Errorf("i18n: parse %s: %w", e.Name(), err)
		}
	}

	tags := b.LanguageTags()
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.String()
	}

	mu.Lock()
	defer mu.Unlock()
	bundle = b
	matcher = language.NewMatcher(tags)
	supported = names
	if defLocale != "" {
		defaultLocale = defLocale
	}
	slog.Info("i18n: locales loaded", "count", len(entries), "default", defaultLocale)
	return nil
}

// Supported returns the loaded locales. The first entry is the fallback.
func Supported() []string {
	mu.RLock()
	defer mu.RUnlock()
	return append([]string(nil), supported...)
}

// Match picks the best loaded locale for an Accept-Language header value.
// An empty or unmatched header yields the default locale.
func Match(acceptLanguage string) string {
	mu.RLock()
	defer mu.RUnlock()
	if matcher == nil || acceptLanguage == "" {
		return defaultLocale
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return defaultLocale
	}
	tag, _, conf := matcher.Match(tags...)
	if conf == language.No {
		return defaultLocale
	}
	base, _ := tag.Base()
	return base.String()
}

// WithLocale returns a new context carrying the given locale (e.g. "es", "en").
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, ctxKey{}, locale)
}

// LocaleFromContext returns the default locale if none is set.
func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKey{}).(string); ok && v != "" {
		return v
	}
	mu.RLock()
	defer mu.RUnlock()
	return defaultLocale
}

// T translates messageID for the locale on ctx. Unknown IDs, or a call
// before Init, return messageID unchanged.
func T(ctx context.Context, messageID string, templateData ...map[string]any) string {
	lang := LocaleFromContext(ctx)

	mu.RLock()
	b := bundle
	mu.RUnlock()
	if b == nil {
		return messageID
	}

	cfg := &i18n.LocalizeConfig{MessageID: messageID}
	if len(templateData) > 0 && templateData[0] != nil {
		cfg.TemplateData = templateData[0]
	}

	msg, err := i18n.NewLocalizer(b, lang).Localize(cfg)
	if err != nil {
		return messageID
	}
	return msg
}
