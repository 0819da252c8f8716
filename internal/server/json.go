package server

import (
	"errors"
	"net/http"

	"github.com/kyleking/gh-lazyqa/internal/dispatch"
	"github.com/kyleking/gh-lazyqa/internal/github"
	"github.com/kyleking/gh-lazyqa/internal/observability"
	"github.com/kyleking/gh-lazyqa/internal/resolve"
	"github.com/kyleking/gh-lazyqa/internal/service"
)

type workflowJSON struct {
	ID             int64    `json:"id"`
	Name           string   `json:"name"`
	Path           string   `json:"path"`
	State          string   `json:"state,omitempty"`
	DeclaredInputs []string `json:"declared_inputs,omitempty"`
}

func toWorkflowJSON(w resolve.Workflow) workflowJSON {
	return workflowJSON{
		ID:             w.ID,
		Name:           w.Name,
		Path:           w.Path,
		State:          string(w.State),
		DeclaredInputs: w.DeclaredInputs,
	}
}

type resolutionJSON struct {
	Workflow workflowJSON `json:"workflow"`
	Tier     string       `json:"tier"`
	Rejected []string     `json:"rejected,omitempty"`
	Disabled bool         `json:"disabled"`
}

type runJSON struct {
	ID  int64  `json:"id"`
	URL string `json:"url"`
}

type outcomeJSON struct {
	RequestID      string            `json:"request_id,omitempty"`
	State          string            `json:"state"`
	Transitions    []string          `json:"transitions"`
	Workflow       *workflowJSON     `json:"workflow,omitempty"`
	Tier           string            `json:"tier,omitempty"`
	Ref            string            `json:"ref,omitempty"`
	Inputs         map[string]string `json:"inputs,omitempty"`
	DroppedInputs  []string          `json:"dropped_inputs,omitempty"`
	Run            *runJSON          `json:"run,omitempty"`
	Dispatched     bool              `json:"dispatched"`
	PartialCatalog bool              `json:"partial_catalog,omitempty"`
	Warnings       []string          `json:"warnings,omitempty"`
}

func toOutcomeJSON(o dispatch.Outcome) outcomeJSON {
	out := outcomeJSON{
		RequestID:      o.RequestID,
		State:          string(o.State),
		Transitions:    make([]string, len(o.Transitions)),
		Ref:            o.Ref,
		Inputs:         o.Inputs,
		DroppedInputs:  o.DroppedInputs,
		Dispatched:     o.Dispatched,
		PartialCatalog: o.PartialCatalog,
		Warnings:       o.Warnings,
	}
	for i, s := range o.Transitions {
		out.Transitions[i] = string(s)
	}
	if o.Workflow.ID != 0 || o.Workflow.Name != "" {
		w := toWorkflowJSON(o.Workflow)
		out.Workflow = &w
		out.Tier = o.Tier.String()
	}
	if o.Run != nil {
		out.Run = &runJSON{ID: o.Run.ID, URL: o.Run.HTMLURL}
	}
	return out
}

type errorJSON struct {
	Kind        string   `json:"kind,omitempty"`
	Message     string   `json:"message"`
	Remediation string   `json:"remediation,omitempty"`
	Available   []string `json:"available,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// errorPayload maps err to a status code and body. Dispatch errors keep
// their kind so clients can branch on it.
func errorPayload(err error) (int, errorJSON) {
	var de *dispatch.Error
	if errors.As(err, &de) {
		return statusForKind(de.Kind), errorJSON{
			Kind:        de.Kind.String(),
			Message:     observability.RedactToken(de.Message),
			Remediation: de.Remediation,
			Available:   de.Available,
			Suggestions: de.Suggestions,
		}
	}

	body := errorJSON{Message: observability.RedactToken(err.Error())}
	switch {
	case errors.Is(err, service.ErrNoRepo), errors.Is(err, service.ErrInvalidRepo):
		return http.StatusBadRequest, body
	case github.StatusCode(err) != 0:
		return http.StatusBadGateway, body
	default:
		return http.StatusInternalServerError, body
	}
}

func statusForKind(k dispatch.Kind) int {
	switch k {
	case dispatch.KindNotFound:
		return http.StatusNotFound
	case dispatch.KindAmbiguous:
		return http.StatusConflict
	case dispatch.KindUnsupportedTrigger, dispatch.KindDispatchRejected:
		return http.StatusUnprocessableEntity
	case dispatch.KindRunIDUnavailable:
		return http.StatusAccepted
	case dispatch.KindCatalogUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
