package resolve

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func coreUXCatalog() []Workflow {
	return []Workflow{
		{ID: 101, Name: "QA US - CORE UX REGRESSION", Path: ".github/workflows/qa-us-core-ux-regression.yml", State: StateActive},
		{ID: 102, Name: "QA US - CORE UX SMOKE E2E", Path: ".github/workflows/qa-us-core-ux-smoke.yml", State: StateActive},
	}
}

func mixedCatalog() []Workflow {
	return []Workflow{
		{ID: 1, Name: "QA US - CORE UX REGRESSION", Path: ".github/workflows/core-regression.yml", State: StateActive},
		{ID: 2, Name: "QA US - CORE UX SMOKE E2E", Path: ".github/workflows/core-smoke.yml", State: StateActive},
		{ID: 3, Name: "Nightly", Path: ".github/workflows/payments_api_suite.yml", State: StateActive},
		{ID: 4, Name: "QA EU - Checkout Regression", Path: ".github/workflows/eu-checkout.yml", State: StateDisabled},
		{ID: 5, Name: "Deploy  Preview", Path: ".github/workflows/preview.yml", State: StateActive},
	}
}

func TestResolve_ExactIsReflexive(t *testing.T) {
	catalog := mixedCatalog()
	r := New()

	for _, want := range catalog {
		t.Run(want.Name, func(t *testing.T) {
			got, err := r.Resolve(want.Name, catalog)
			if err != nil {
				t.Fatalf("Resolve(%q) error: %v", want.Name, err)
			}
			if diff := cmp.Diff(want, got.Workflow); diff != "" {
				t.Errorf("workflow mismatch (-want +got):\n%s", diff)
			}
			if got.Tier != TierExact {
				t.Errorf("tier: got %v, want %v", got.Tier, TierExact)
			}
		})
	}
}

func TestResolve_Tiers(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		catalog  []Workflow
		wantID   int64
		wantTier Tier
	}{
		{"exact name", "QA US - CORE UX REGRESSION", coreUXCatalog(), 101, TierExact},
		{"exact id", "102", coreUXCatalog(), 102, TierExact},
		{"exact path", ".github/workflows/qa-us-core-ux-smoke.yml", coreUXCatalog(), 102, TierExact},
		{"normalized name", "  qa us -   core ux regression ", coreUXCatalog(), 101, TierNormalized},
		{"scrambled tokens", "core ux regression us", coreUXCatalog(), 101, TierTokenOverlap},
		{"partial tokens", "ux smoke", coreUXCatalog(), 102, TierTokenOverlap},
		{"path slug", "payments api suite", mixedCatalog(), 3, TierTokenOverlap},
		{"collapsed whitespace", "deploy preview", mixedCatalog(), 5, TierNormalized},
		{"alias table", "sanity", coreUXCatalog(), 102, TierAlias},
		{
			"keyword category", "please run qa eu regression now",
			[]Workflow{
				{ID: 7, Name: "QA EU - Checkout Regression"},
				{ID: 8, Name: "QA US - Checkout Regression"},
				{ID: 9, Name: "QA EU - Checkout Smoke"},
			},
			7, TierKeyword,
		},
	}

	r := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.query, tt.catalog)
			if err != nil {
				t.Fatalf("Resolve(%q) error: %v", tt.query, err)
			}
			if got.Workflow.ID != tt.wantID {
				t.Errorf("workflow id: got %d, want %d", got.Workflow.ID, tt.wantID)
			}
			if got.Tier != tt.wantTier {
				t.Errorf("tier: got %v, want %v", got.Tier, tt.wantTier)
			}
		})
	}
}

func TestResolve_RegressionNeverMatchesSmoke(t *testing.T) {
	smokeOnly := []Workflow{{ID: 2, Name: "QA US - CORE UX SMOKE E2E"}}

	queries := []string{
		"QA US - CORE UX REGRESSION",
		"core ux regression",
		"regression",
		"qa us regression e2e",
	}
	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			got, err := Resolve(q, smokeOnly)
			if err == nil {
				t.Fatalf("Resolve(%q) resolved to %q, want failure", q, got.Workflow.Name)
			}
			if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrAmbiguous) {
				t.Errorf("unexpected error type %T: %v", err, err)
			}
		})
	}
}

func TestResolve_GuardVetoesSubstringMatch(t *testing.T) {
	catalog := []Workflow{{ID: 1, Name: "Core UX", Path: ".github/workflows/core-ux-smoke.yml"}}

	_, err := Resolve("core ux regression", catalog)

	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error: got %v, want *NotFoundError", err)
	}
	if diff := cmp.Diff([]string{"Core UX"}, nf.Rejected); diff != "" {
		t.Errorf("rejected mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_GuardPrefersNameOverPath(t *testing.T) {
	renamed := Workflow{ID: 7, Name: "QA US - CORE UX SMOKE", Path: ".github/workflows/regression-legacy.yml"}
	tests := []struct {
		name         string
		query        string
		catalog      []Workflow
		wantAmbig    bool
		wantRejected []string
	}{
		{"token overlap through path slug", "regression legacy", []Workflow{renamed}, false, []string{renamed.Name}},
		{"keyword tier through path tokens", "core ux regression", []Workflow{renamed}, false, []string{renamed.Name}},
		{
			"alias tier through path", "full regression",
			[]Workflow{{ID: 8, Name: "Nightly Smoke", Path: ".github/workflows/regression-full.yml"}},
			false, []string{"Nightly Smoke"},
		},
		{"sole exact survivor rechecked", ".github/workflows/regression-legacy.yml", []Workflow{renamed}, true, []string{renamed.Name}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.query, tt.catalog)
			if err == nil {
				t.Fatalf("Resolve(%q) resolved to %q, want failure", tt.query, got.Workflow.Name)
			}
			if tt.wantAmbig {
				var amb *AmbiguousError
				if !errors.As(err, &amb) {
					t.Fatalf("error: got %v, want *AmbiguousError", err)
				}
				if diff := cmp.Diff(tt.wantRejected, amb.Rejected); diff != "" {
					t.Errorf("rejected mismatch (-want +got):\n%s", diff)
				}
				return
			}
			var nf *NotFoundError
			if !errors.As(err, &nf) {
				t.Fatalf("error: got %v, want *NotFoundError", err)
			}
			if diff := cmp.Diff(tt.wantRejected, nf.Rejected); diff != "" {
				t.Errorf("rejected mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolve_NameKeywordOutranksStalePath(t *testing.T) {
	catalog := []Workflow{{ID: 9, Name: "QA US - Core UX Regression", Path: ".github/workflows/smoke-legacy.yml"}}

	got, err := Resolve("core ux regression", catalog)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Workflow.ID != 9 {
		t.Errorf("workflow id: got %d, want 9", got.Workflow.ID)
	}
	if got.Tier != TierTokenOverlap {
		t.Errorf("tier: got %v, want %v", got.Tier, TierTokenOverlap)
	}
}

func TestResolve_CustomExclusiveGroups(t *testing.T) {
	catalog := []Workflow{{ID: 1, Name: "Checkout", Path: "checkout-staging.yml"}}

	if _, err := New().Resolve("checkout prod", catalog); err != nil {
		t.Fatalf("default groups: unexpected error %v", err)
	}

	r := New(WithExclusiveGroups(ExclusiveGroup{"regression", "smoke"}, ExclusiveGroup{"prod", "staging"}))
	if _, err := r.Resolve("checkout prod", catalog); !errors.Is(err, ErrNotFound) {
		t.Errorf("custom groups: got %v, want ErrNotFound", err)
	}
}

func TestResolve_Ambiguous(t *testing.T) {
	catalog := []Workflow{
		{ID: 1, Name: "Core UX Regression US"},
		{ID: 2, Name: "Core UX Regression EU"},
	}

	_, err := Resolve("core ux regression", catalog)

	var amb *AmbiguousError
	if !errors.As(err, &amb) {
		t.Fatalf("error: got %v, want *AmbiguousError", err)
	}
	if amb.Tier != TierTokenOverlap {
		t.Errorf("tier: got %v, want %v", amb.Tier, TierTokenOverlap)
	}
	want := []string{"Core UX Regression US", "Core UX Regression EU"}
	if diff := cmp.Diff(want, NearMisses(err)); diff != "" {
		t.Errorf("near misses (-want +got):\n%s", diff)
	}
}

func TestResolve_KeywordTierNeedsTwoKeywords(t *testing.T) {
	catalog := []Workflow{{ID: 1, Name: "QA EU - Checkout Regression"}}

	if _, err := Resolve("regression stuff", catalog); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestResolve_DisabledIsFlagged(t *testing.T) {
	got, err := Resolve("qa eu - checkout regression", mixedCatalog())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Disabled {
		t.Error("expected disabled workflow to be flagged")
	}
	if got.Workflow.ID != 4 {
		t.Errorf("workflow id: got %d, want 4", got.Workflow.ID)
	}
}

func TestResolve_NotFound(t *testing.T) {
	catalog := []Workflow{
		{ID: 1, Name: "Checkout Regression"},
		{ID: 2, Name: "Login Smoke"},
	}

	tests := []struct {
		name            string
		query           string
		catalog         []Workflow
		wantSuggestions []string
	}{
		{"empty query", "   ", catalog, nil},
		{"empty catalog", "checkout", nil, nil},
		{"token suggestion", "checkout flow", catalog, []string{"Checkout Regression"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.query, tt.catalog)
			var nf *NotFoundError
			if !errors.As(err, &nf) {
				t.Fatalf("error: got %v, want *NotFoundError", err)
			}
			if tt.wantSuggestions != nil {
				if diff := cmp.Diff(tt.wantSuggestions, nf.Suggestions); diff != "" {
					t.Errorf("suggestions (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  QA  US -  Core\tUX ", "qa us - core ux"},
		{"", ""},
		{"Regression", "regression"},
	}

	for _, tt := range tests {
		if got := Normalize(tt.input); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestTierString(t *testing.T) {
	if TierTokenOverlap.String() != "token-overlap" {
		t.Errorf("got %q", TierTokenOverlap.String())
	}
	if Tier(99).String() != "none" {
		t.Errorf("got %q", Tier(99).String())
	}
}
