// Package canonical derives the deterministic identity of a question.
package canonical

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// GenericPart replaces an absent platform or version.
const GenericPart = "generic"

const keySeparator = ":"

// Slug lower-cases s, drops diacritics and every character outside
// [A-Za-z0-9], and joins the remaining words with single hyphens.
func Slug(s string) string {
	stripped, _, errTransform := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if errTransform != nil {
		stripped = s
	}

	var b strings.Builder
	b.Grow(len(stripped))
	pendingSep := false
	for _, r := range stripped {
		switch {
		case r == '-' || unicode.IsSpace(r):
			pendingSep = b.Len() > 0
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if pendingSep {
				b.WriteByte('-')
				pendingSep = false
			}
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// PlatformSlug returns the slug of platform, or "generic" when nothing remains.
func PlatformSlug(platform string) string {
	if slug := Slug(platform); slug != "" {
		return slug
	}
	return GenericPart
}

// VersionSlug returns the slug of version, or "generic" when nothing remains.
func VersionSlug(version string) string {
	if slug := Slug(version); slug != "" {
		return slug
	}
	return GenericPart
}

// Key returns platformSlug:versionSlug:questionSlug.
func Key(question, platform, version string) string {
	return PlatformSlug(platform) + keySeparator + VersionSlug(version) + keySeparator + Slug(question)
}

// Parse splits a key produced by Key into its parts.
func Parse(key string) (platform, version, question string, ok bool) {
	parts := strings.SplitN(key, keySeparator, 3)
	if len(parts) != 3 {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

// PublicPath returns the catalog path segment for a published answer.
func PublicPath(question, platform, version string) string {
	return PlatformSlug(platform) + "/" + VersionSlug(version) + "/" + Slug(question)
}
