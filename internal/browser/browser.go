// Package browser opens run pages in the user's web browser.
package browser

import (
	"errors"
	"io"
	"os"

	"github.com/cli/go-gh/v2/pkg/browser"
)

// Opener launches URLs. The launcher follows gh's resolution: an explicit
// command, then GH_BROWSER, the gh config and BROWSER, then the OS default.
type Opener struct {
	b *browser.Browser
}

// New creates an Opener. An empty launcher uses gh's resolution order.
func New(launcher string, stdout, stderr io.Writer) *Opener {
	return &Opener{b: browser.New(launcher, stdout, stderr)}
}

// Open launches url.
func (o *Opener) Open(url string) error {
	if url == "" {
		return errors.New("no URL to open")
	}
	return o.b.Browse(url)
}

// Open launches url with the default launcher.
func Open(url string) error {
	return New("", os.Stdout, os.Stderr).Open(url)
}
