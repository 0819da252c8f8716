package resolve

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound  = errors.New("workflow not found")
	ErrAmbiguous = errors.New("workflow reference is ambiguous")
)

// NotFoundError is returned when no tier produced a candidate.
type NotFoundError struct {
	Query       string
	Suggestions []string
	Rejected    []string
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("no workflow matches %q", e.Query)
	if len(e.Suggestions) > 0 {
		msg += "; did you mean: " + strings.Join(e.Suggestions, ", ")
	}
	return msg
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AmbiguousError is returned when a tier produced several survivors, or
// when its single survivor failed the final exclusion check.
type AmbiguousError struct {
	Query      string
	Tier       Tier
	Candidates []string
	Rejected   []string
}

func (e *AmbiguousError) Error() string {
	if len(e.Candidates) == 0 {
		return fmt.Sprintf("workflow reference %q only matched excluded suites: %s",
			e.Query, strings.Join(e.Rejected, ", "))
	}
	return fmt.Sprintf("workflow reference %q matches %d workflows: %s",
		e.Query, len(e.Candidates), strings.Join(e.Candidates, ", "))
}

func (e *AmbiguousError) Is(target error) bool {
	return target == ErrAmbiguous
}

// NearMisses returns the names a caller can offer as "did you mean" hints.
func NearMisses(err error) []string {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return nf.Suggestions
	}
	var amb *AmbiguousError
	if errors.As(err, &amb) {
		if len(amb.Candidates) > 0 {
			return amb.Candidates
		}
		return amb.Rejected
	}
	return nil
}
