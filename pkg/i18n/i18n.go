// Package i18n holds widget translation maps and the fallback lookup both
// template engines use.
package i18n

import (
	"errors"
	"maps"
	"strings"

	"golang.org/x/text/language"
)

// DefaultLanguage is tried after the requested language.
const DefaultLanguage = "en"

// Secondary fallbacks used by the template engines after DefaultLanguage.
const (
	MustacheFallback = "ca"
	EJSFallback      = "es"
)

// ErrMissingTranslation is returned by Translate when no language in the
// chain has the key.
var ErrMissingTranslation = errors.New("i18n: missing translation")

// Translations maps a key to its texts by language code.
type Translations map[string]map[string]string

// Translator resolves a key for a locale.
type Translator interface {
	Translate(locale, key string) (string, error)
}

// MissingTranslationHandler decides what to render when a key has no text in
// any language of the chain. The default returns the key.
type MissingTranslationHandler func(locale, key string, err error) string

func missingTranslationDefault(_ string, key string, _ error) string {
	return key
}

// Chain returns the languages tried for lang: the requested language, its
// base language when lang carries a region, DefaultLanguage and then the
// fallbacks. Duplicates and empty codes are dropped.
func Chain(lang string, fallbacks ...string) []string {
	chain := make([]string, 0, 3+len(fallbacks))
	seen := map[string]struct{}{}
	add := func(code string) {
		code = strings.TrimSpace(code)
		if code == "" {
			return
		}
		if _, ok := seen[code]; ok {
			return
		}
		seen[code] = struct{}{}
		chain = append(chain, code)
	}

	add(lang)
	if tag, err := language.Parse(strings.TrimSpace(lang)); err == nil {
		if base, conf := tag.Base(); conf != language.No {
			add(base.String())
		}
	}
	add(DefaultLanguage)
	for _, fb := range fallbacks {
		add(fb)
	}
	return chain
}

// Find returns the text for key in the first language of the chain that has
// one.
func (t Translations) Find(key, lang string, fallbacks ...string) (string, bool) {
	texts, ok := t[key]
	if !ok {
		return "", false
	}
	for _, code := range Chain(lang, fallbacks...) {
		if text, ok := texts[code]; ok {
			return text, true
		}
	}
	return "", false
}

// Lookup resolves key for lang and never fails: when no language in the
// chain has the key, the key itself is returned.
func (t Translations) Lookup(key, lang string, fallbacks ...string) string {
	if text, ok := t.Find(key, lang, fallbacks...); ok {
		return text
	}
	return key
}

// Translate implements Translator using DefaultLanguage as the only
// fallback.
func (t Translations) Translate(locale, key string) (string, error) {
	if text, ok := t.Find(key, locale); ok {
		return text, nil
	}
	return "", ErrMissingTranslation
}

// Merge returns a new map with the entries of over layered on top of t.
// Languages are merged per key.
func (t Translations) Merge(over Translations) Translations {
	out := make(Translations, len(t)+len(over))
	for key, texts := range t {
		out[key] = maps.Clone(texts)
	}
	for key, texts := range over {
		if out[key] == nil {
			out[key] = map[string]string{}
		}
		maps.Copy(out[key], texts)
	}
	return out
}

// Keys lists the translation keys.
func (t Translations) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	return keys
}

// Resolver binds a translation map to a language and fallback chain.
// Its zero value resolves every key to itself.
type Resolver struct {
	Translations Translations
	Lang         string
	Fallbacks    []string
	OnMissing    MissingTranslationHandler
}

// Resolve returns the text for key.
func (r Resolver) Resolve(key string) string {
	if text, ok := r.Translations.Find(key, r.Lang, r.Fallbacks...); ok {
		return text
	}
	onMissing := r.OnMissing
	if onMissing == nil {
		onMissing = missingTranslationDefault
	}
	return onMissing(r.Lang, key, ErrMissingTranslation)
}

// Get makes a Resolver usable as an expression value, so templates can
// write I18n.key or I18n["some key"]. It never reports a missing member.
func (r Resolver) Get(name string) (any, bool) {
	return r.Resolve(name), true
}

func (r Resolver) String() string { return "[object I18n]" }
