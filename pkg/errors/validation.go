package errors

import (
	"net/url"
	"regexp"
	"strings"
)

// maxPackageIDLength is the gallery's limit on package id length.
const maxPackageIDLength = 100

var packageIDPattern = regexp.MustCompile(`^[A-Za-z0-9_]+([.-][A-Za-z0-9_]+)*$`)

// ValidateNuGetPackageID rejects ids that the gallery would not accept:
// empty, longer than 100 characters, or anything other than runs of
// letters, digits and underscores joined by single dots or dashes. The id is
// spliced into flat-container paths, so the pattern also rules out slashes,
// "..", control characters and whitespace.
func ValidateNuGetPackageID(id string) error {
	switch {
	case id == "":
		return New(ErrCodeInvalidPackage, "package id cannot be empty")
	case len(id) > maxPackageIDLength:
		return New(ErrCodeInvalidPackage, "package id longer than %d characters: %.20q...", maxPackageIDLength, id)
	case !packageIDPattern.MatchString(id):
		return New(ErrCodeInvalidPackage, "invalid package id %q", id)
	}
	return nil
}

// ValidateURL accepts absolute http(s) URLs with a host.
func ValidateURL(raw string) error {
	if raw == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Wrap(ErrCodeInvalidInput, err, "parse URL")
	}
	if scheme := strings.ToLower(u.Scheme); scheme != "http" && scheme != "https" {
		return New(ErrCodeInvalidInput, "URL %q must use http or https", raw)
	}
	if u.Host == "" {
		return New(ErrCodeInvalidInput, "URL %q has no host", raw)
	}
	return nil
}
