// Package preferences holds the rider's display settings: theme and
// language. Settings are read once at startup and change only through the
// setters on Context.
package preferences

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/goroute-booking/internal/common/logger"
)

type Theme string

const (
	ThemeDark   Theme = "dark"
	ThemeLight  Theme = "light"
	ThemeSystem Theme = "system"
)

func (t Theme) Valid() bool {
	return t == ThemeDark || t == ThemeLight || t == ThemeSystem
}

type Language string

const (
	LanguageEnglish Language = "en"
	LanguageHindi   Language = "hi"
	LanguageMarathi Language = "mr"
)

func (l Language) Valid() bool {
	return l == LanguageEnglish || l == LanguageHindi || l == LanguageMarathi
}

func ParseTheme(s string) (Theme, error) {
	t := Theme(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown theme %q", s)
	}
	return t, nil
}

func ParseLanguage(s string) (Language, error) {
	l := Language(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("unknown language %q", s)
	}
	return l, nil
}

type Settings struct {
	Theme    Theme    `json:"theme"`
	Language Language `json:"language"`
}

func Defaults() Settings {
	return Settings{Theme: ThemeSystem, Language: LanguageEnglish}
}

// Store persists one Settings record per storage key. Load reports false
// when nothing has been stored under key.
type Store interface {
	Load(ctx context.Context, key string) (Settings, bool, error)
	Save(ctx context.Context, key string, s Settings) error
}

// Context is the process-wide settings holder handed to whatever needs
// the theme or language.
type Context struct {
	mu       sync.RWMutex
	store    Store
	key      string
	settings Settings
	logger   logger.Logger
}

// Init reads the stored record for key. A missing or unreadable record
// falls back to defaults, field by field; a broken store never stops the
// client from starting.
func Init(ctx context.Context, store Store, key string, defaults Settings, log logger.Logger) *Context {
	if log == nil {
		log = logger.Nop()
	}
	if !defaults.Theme.Valid() {
		defaults.Theme = ThemeSystem
	}
	if !defaults.Language.Valid() {
		defaults.Language = LanguageEnglish
	}

	c := &Context{
		store:    store,
		key:      key,
		settings: defaults,
		logger:   log.With("component", "preferences", "key", key),
	}

	stored, ok, err := store.Load(ctx, key)
	switch {
	case err != nil:
		c.logger.Warn("Could not read stored preferences, using defaults", "error", err)
	case !ok:
		c.logger.Debug("No stored preferences, using defaults")
	default:
		if stored.Theme.Valid() {
			c.settings.Theme = stored.Theme
		} else if stored.Theme != "" {
			c.logger.Warn("Ignoring stored theme", "theme", stored.Theme)
		}
		if stored.Language.Valid() {
			c.settings.Language = stored.Language
		} else if stored.Language != "" {
			c.logger.Warn("Ignoring stored language", "language", stored.Language)
		}
	}
	return c
}

func (c *Context) Settings() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

func (c *Context) Theme() Theme {
	return c.Settings().Theme
}

func (c *Context) Language() Language {
	return c.Settings().Language
}

// SetTheme persists t and then applies it. On a store error the current
// theme is kept.
func (c *Context) SetTheme(ctx context.Context, t Theme) error {
	if !t.Valid() {
		return fmt.Errorf("unknown theme %q", t)
	}
	return c.update(ctx, func(s *Settings) { s.Theme = t })
}

func (c *Context) SetLanguage(ctx context.Context, l Language) error {
	if !l.Valid() {
		return fmt.Errorf("unknown language %q", l)
	}
	return c.update(ctx, func(s *Settings) { s.Language = l })
}

func (c *Context) update(ctx context.Context, apply func(*Settings)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.settings
	apply(&next)
	if err := c.store.Save(ctx, c.key, next); err != nil {
		c.logger.Error("Error saving preferences", "error", err)
		return fmt.Errorf("saving preferences: %w", err)
	}
	c.settings = next
	c.logger.Info("Preferences updated", "theme", next.Theme, "language", next.Language)
	return nil
}
