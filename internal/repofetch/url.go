package repofetch

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gitsight/go-vcsurl"
)

// ErrMalformedURL marks repository references that cannot be resolved to
// a cloneable URL.
var ErrMalformedURL = errors.New("malformed repository reference")

var shorthandRe = regexp.MustCompile(`^[\w.-]+/[\w.-]+$`)

// Normalize resolves a user-supplied repository reference to a full
// HTTPS clone URL. Accepts full URLs and the `owner/repo` GitHub
// shorthand.
func Normalize(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: empty reference", ErrMalformedURL)
	}

	if shorthandRe.MatchString(ref) {
		ref = "https://github.com/" + ref
	}

	info, err := vcsurl.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}

	remote, err := info.Remote(vcsurl.HTTPS)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}
	if !strings.HasSuffix(remote, ".git") {
		remote += ".git"
	}
	return remote, nil
}
