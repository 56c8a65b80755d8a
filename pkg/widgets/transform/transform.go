// Package transform implements the named string transforms widget
// parameters apply to their values, written as a pipe separated list such
// as "trim|lower".
package transform

import (
	"errors"
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	xtransform "golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/goliatone/go-widgets/pkg/expr"
)

// ErrUnknown reports a transform name that is not registered.
var ErrUnknown = errors.New("transform: unknown transform")

// Func transforms one value.
type Func func(string) string

var (
	upper = cases.Upper(language.Und)
	lower = cases.Lower(language.Und)
	title = cases.Title(language.Und)

	stripPolicy = bluemonday.StrictPolicy()

	slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

	youtubeRe   = regexp.MustCompile(`(?:youtube(?:-nocookie)?\.com/(?:watch\?(?:.*&)?v=|embed/|shorts/|live/|v/)|youtu\.be/)([A-Za-z0-9_-]{11})`)
	youtubeIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	vimeoRe     = regexp.MustCompile(`vimeo\.com/(?:.*?/)?(\d+)`)
	vimeoIDRe   = regexp.MustCompile(`^\d+$`)
)

var builtin = map[string]Func{
	"trim":       strings.TrimSpace,
	"lower":      func(s string) string { return lower.String(s) },
	"upper":      func(s string) string { return upper.String(s) },
	"title":      func(s string) string { return title.String(s) },
	"capitalize": Capitalize,
	"escape":     html.EscapeString,
	"url":        expr.EncodeURIComponent,
	"striptags":  StripTags,
	"slug":       Slug,
	"ytid":       YouTubeID,
	"vmid":       VimeoID,
}

// Names lists the available transforms.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the transform called name.
func Lookup(name string) (Func, bool) {
	fn, ok := builtin[strings.ToLower(strings.TrimSpace(name))]
	return fn, ok
}

// Validate checks that every name in pipeline exists.
func Validate(pipeline string) error {
	_, err := compile(pipeline)
	return err
}

// Apply runs value through pipeline, left to right.
func Apply(pipeline, value string) (string, error) {
	fns, err := compile(pipeline)
	if err != nil {
		return "", err
	}
	for _, fn := range fns {
		value = fn(value)
	}
	return value, nil
}

func compile(pipeline string) ([]Func, error) {
	var fns []Func
	for _, name := range strings.Split(pipeline, "|") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		fn, ok := Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
		}
		fns = append(fns, fn)
	}
	return fns, nil
}

// Capitalize upper-cases the first letter and leaves the rest untouched.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return upper.String(string(r)) + s[size:]
}

// StripTags removes markup and returns the plain text.
func StripTags(s string) string {
	return html.UnescapeString(stripPolicy.Sanitize(s))
}

// Slug lower-cases s, strips diacritics and joins the remaining
// alphanumeric runs with dashes.
func Slug(s string) string {
	folded, _, err := xtransform.String(xtransform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}
	return strings.Trim(slugInvalid.ReplaceAllString(lower.String(folded), "-"), "-")
}

// YouTubeID extracts the video id from a YouTube URL. A bare id is returned
// as is; anything else is returned unchanged.
func YouTubeID(s string) string {
	s = strings.TrimSpace(s)
	if youtubeIDRe.MatchString(s) {
		return s
	}
	if m := youtubeRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// VimeoID extracts the numeric video id from a Vimeo URL. A bare id is
// returned as is; anything else is returned unchanged.
func VimeoID(s string) string {
	s = strings.TrimSpace(s)
	if vimeoIDRe.MatchString(s) {
		return s
	}
	if m := vimeoRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}
