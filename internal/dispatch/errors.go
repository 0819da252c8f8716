package dispatch

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kyleking/gh-lazyqa/internal/github"
	"github.com/kyleking/gh-lazyqa/internal/resolve"
)

// Kind classifies why a dispatch request did not reach Done.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindAmbiguous
	KindUnsupportedTrigger
	KindDispatchRejected
	KindRunIDUnavailable
	KindCatalogUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindAmbiguous:
		return "ambiguous"
	case KindUnsupportedTrigger:
		return "unsupported_trigger"
	case KindDispatchRejected:
		return "dispatch_rejected"
	case KindRunIDUnavailable:
		return "run_id_unavailable"
	case KindCatalogUnavailable:
		return "catalog_unavailable"
	default:
		return "unknown"
	}
}

// Error is a failed dispatch request. Message is written for the operator.
type Error struct {
	Kind        Kind
	Message     string
	Remediation string
	// Available holds every workflow name in the catalog for NotFound and
	// Ambiguous, so the caller can correct the reference.
	Available   []string
	Suggestions []string
	StatusCode  int
	Err         error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err if it is a dispatch *Error.
func KindOf(err error) (Kind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return 0, false
}

func catalogError(repo string, err error) *Error {
	return &Error{
		Kind:        KindCatalogUnavailable,
		Message:     fmt.Sprintf("could not list workflows for %s: %v", repo, err),
		Remediation: "Check the repository name and that the token can read Actions workflows",
		StatusCode:  github.StatusCode(err),
		Err:         err,
	}
}

func resolutionError(repo string, err error, catalog resolve.Catalog) *Error {
	e := &Error{
		Available:   catalog.Names(),
		Suggestions: resolve.NearMisses(err),
		Err:         err,
	}
	if errors.Is(err, resolve.ErrAmbiguous) {
		e.Kind = KindAmbiguous
		e.Remediation = "Use the exact workflow name or file path"
	} else {
		e.Kind = KindNotFound
		e.Remediation = "Pick one of the available workflows"
	}

	var b strings.Builder
	b.WriteString(err.Error())
	fmt.Fprintf(&b, " in %s", repo)
	if catalog.Partial {
		b.WriteString(" (the workflow listing was incomplete)")
	}
	e.Message = b.String()
	return e
}

func unsupportedTriggerError(w resolve.Workflow, err error) *Error {
	return &Error{
		Kind: KindUnsupportedTrigger,
		Message: fmt.Sprintf("workflow %q cannot be triggered on demand: %s has no workflow_dispatch trigger",
			w.Name, w.Path),
		Remediation: "Add a 'workflow_dispatch:' entry under 'on:' in the workflow file",
		StatusCode:  github.StatusCode(err),
		Err:         err,
	}
}

// rejectionError explains a failed trigger call. GitHub answers 422 both
// for workflows without a dispatch trigger and for inputs the workflow does
// not declare; the two get distinct messages.
func rejectionError(w resolve.Workflow, ref string, declared []string, err error) *Error {
	var se *github.HTTPStatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusUnprocessableEntity {
		if se.Mentions("workflow_dispatch") {
			return unsupportedTriggerError(w, err)
		}
		if len(declared) == 0 || se.Mentions("unexpected inputs") {
			return &Error{
				Kind: KindDispatchRejected,
				Message: fmt.Sprintf("GitHub rejected the inputs for %q on %s: the workflow declares no matching inputs on that ref",
					w.Name, ref),
				Remediation: "Check the workflow's inputs on the target branch, or dispatch without inputs",
				StatusCode:  se.StatusCode,
				Err:         err,
			}
		}
	}

	e := &Error{
		Kind:        KindDispatchRejected,
		Message:     fmt.Sprintf("GitHub rejected the dispatch of %q on %s: %v", w.Name, ref, err),
		Remediation: "Fix the request and retry the dispatch",
		StatusCode:  github.StatusCode(err),
		Err:         err,
	}
	if se != nil && se.Remediation != "" {
		e.Remediation = se.Remediation
	}
	return e
}

func runIDError(w resolve.Workflow, waited time.Duration, err error) *Error {
	return &Error{
		Kind: KindRunIDUnavailable,
		Message: fmt.Sprintf("workflow %q was dispatched but its run did not appear within %s",
			w.Name, waited.Round(time.Second)),
		Remediation: "Do not retry yet; check the repository's Actions tab for the new run",
		Err:         err,
	}
}
