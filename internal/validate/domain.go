// Package validate provides shared input validation helpers.
package validate

import (
	"regexp"
	"strings"
)

// domainRegexp validates RFC-compliant hostnames. Punycode TLDs are accepted.
var domainRegexp = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?\.)+([a-zA-Z]{2,}|xn--[a-zA-Z0-9\-]+)$`)

// basicEmailRegexp is the canonical local@domain-with-a-dot shape.
var basicEmailRegexp = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// extractionRegexp finds address-like tokens inside free text.
// The "|" inside the TLD class is kept for compatibility with exports
// produced by earlier versions of the service.
var extractionRegexp = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)

// artifactIDRegexp accepts only opaque ids safe to embed in a file name.
var artifactIDRegexp = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)

// IsDomain reports whether s is a valid RFC-compliant hostname.
func IsDomain(s string) bool {
	return len(s) <= 253 && domainRegexp.MatchString(s)
}

// IsEmailFormat reports whether s has the basic local@domain.tld shape.
// It does not normalise s.
func IsEmailFormat(s string) bool {
	return basicEmailRegexp.MatchString(s)
}

// FindEmails returns every address-like token in text, in order of appearance.
func FindEmails(text string) []string {
	return extractionRegexp.FindAllString(text, -1)
}

// IsCandidate reports whether a normalised address survives the extraction filter.
func IsCandidate(s string) bool {
	return len(s) > 5 &&
		strings.Contains(s, "@") &&
		IsEmailFormat(s) &&
		!strings.Contains(s, "..") &&
		!strings.HasPrefix(s, "@") &&
		!strings.HasSuffix(s, "@")
}

// IsArtifactID reports whether id is safe to use as a blob store key.
func IsArtifactID(id string) bool {
	return artifactIDRegexp.MatchString(id)
}
