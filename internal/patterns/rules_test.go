package patterns

import "testing"

func TestLibrary(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"**Timeout**: waiting for locator X", "Timeout waiting for locator"},
		{"TimeoutError: locator.click: Timeout 30000ms exceeded.\nCall log:\n  - waiting for locator('#submit')", "Timeout waiting for locator"},
		{"Time-out waiting for locator('#pay')", "Timeout waiting for locator"},
		{"Element not found: button Y", "Element not found"},
		{"NoSuchElementException: no such element: Unable to locate element", "Element not found"},
		{"Element #cart is not visible", "Element not visible"},
		{"Error: net::ERR_CONNECTION_REFUSED at https://qa.example.com", "Network error"},
		{"AssertionError: expected 'Checkout' to equal 'Cart'", "Assertion failed"},
		{"Invalid selector: //div[@class=", "Invalid selector"},
		{"page.goto: Timeout 30000ms exceeded", "Page load timeout"},
		{"Navigation time-out after 30s", "Page load timeout"},
		{"Failed to click the Save button", "Click or fill action failed"},
		{"stale element reference: element is not attached to the page document", "Stale element reference"},
		{"Uncaught TypeError: cannot read properties of undefined", "Script error"},
		{"Login failed for user qa-bot", "Authentication failure"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, ok := matchLibrary(tt.text)
			if !ok {
				t.Fatalf("matchLibrary(%q) found nothing, want %q", tt.text, tt.want)
			}
			if got != tt.want {
				t.Errorf("matchLibrary(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestRules_Individually(t *testing.T) {
	rules := map[string]Rule{}
	for _, r := range Rules() {
		rules[r.Name] = r
	}

	tests := []struct {
		rule   string
		text   string
		want   string
		wantOK bool
	}{
		{"heading", "## Checkout Flow Broken: cart never loads", "Checkout Flow Broken", true},
		{"heading", "**Payment Gateway Rejected**: card declined", "Payment Gateway Rejected", true},
		{"heading", "**Possible Causes**: a, b\n**Payment Gateway Rejected:** declined", "Payment Gateway Rejected", true},
		{"heading", "**Summary**: nothing to see", "", false},
		{"heading", "plain text without labels", "", false},
		{"heading", "**Root Cause:** payments returned HTTP 500", "", false},
		{"heading", "**Analysis:** the flag was off", "", false},
		{"heading", "### Overview: checkout broke", "", false},
		{"heading", "**Failure Details**: see log", "", false},
		{"keyword-label", "Build error: missing module foo", "Build error", true},
		{"keyword-label", "- Deploy issue: quota exceeded", "Deploy issue", true},
		{"keyword-label", "Note: all good", "", false},
		{"keyword-label", "Failure details: see log", "", false},
		{"numbered-heading", "1. **Cart Service Unavailable**\nThe service returned 503", "Cart Service Unavailable", true},
		{"numbered-heading", "1. **Next steps**", "", false},
		{"keyword-line", "The deploy step failed. Retrying did not help.", "The deploy step failed", true},
		{"keyword-line", "All tests passed on retry", "", false},
		{"keyword-line", "**Root Cause:** The checkout test failed with HTTP 500.", "The checkout test failed with HTTP 500", true},
		{"keyword-line", "### Overview: Checkout timed out after the redirect.", "Checkout timed out after the redirect", true},
	}

	for _, tt := range tests {
		t.Run(tt.rule+"/"+tt.text, func(t *testing.T) {
			r, ok := rules[tt.rule]
			if !ok {
				t.Fatalf("rule %q not registered", tt.rule)
			}
			got, gotOK := r.Extract(tt.text)
			if gotOK != tt.wantOK {
				t.Fatalf("ok: got %v, want %v", gotOK, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassify_Cascade(t *testing.T) {
	tests := []struct {
		text     string
		wantName string
		wantRule string
		wantOK   bool
	}{
		{"**Timeout**: waiting for locator X", "Timeout waiting for locator", "library", true},
		{"### Checkout Totals Mismatch: 10 vs 12", "Checkout Totals Mismatch", "heading", true},
		{"Setup problem: docker daemon missing", "Setup problem", "keyword-label", true},
		{"1. **Cart Service Unavailable**\nreturned 503", "Cart Service Unavailable", "numbered-heading", true},
		{"Something went wrong with an exception somewhere! Then more.", "Something went wrong with an exception somewhere", "keyword-line", true},
		{"**Analysis:** The login step failed after the redirect.", "The login step failed after the redirect", "keyword-line", true},
		{"Run was green on retry", "", "", false},
		{"   ", "", "", false},
		{"", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			name, rule, ok := Classify(tt.text)
			if ok != tt.wantOK || name != tt.wantName || rule != tt.wantRule {
				t.Errorf("Classify(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.text, name, rule, ok, tt.wantName, tt.wantRule, tt.wantOK)
			}
		})
	}
}

func TestKeywordLine_Bounded(t *testing.T) {
	long := "error "
	for i := 0; i < 40; i++ {
		long += "word "
	}
	got, ok := extractKeywordLine(long)
	if !ok {
		t.Fatal("expected a key")
	}
	if n := len([]rune(got)); n > maxKeyRunes {
		t.Errorf("key length %d exceeds %d", n, maxKeyRunes)
	}
}
