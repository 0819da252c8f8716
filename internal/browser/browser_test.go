package browser

import (
	"bytes"
	"os/exec"
	"strings"
	"testing"
)

func TestOpener_UsesLauncher(t *testing.T) {
	if _, err := exec.LookPath("echo"); err != nil {
		t.Skip("echo not available")
	}

	var stdout, stderr bytes.Buffer
	o := New("echo", &stdout, &stderr)

	url := "https://github.com/acme/web/actions/runs/42"
	if err := o.Open(url); err != nil {
		t.Fatalf("Open failed: %v (stderr: %s)", err, stderr.String())
	}
	if got := strings.TrimSpace(stdout.String()); got != url {
		t.Errorf("launcher output: got %q, want %q", got, url)
	}
}

func TestOpener_EmptyURL(t *testing.T) {
	o := New("echo", &bytes.Buffer{}, &bytes.Buffer{})
	if err := o.Open(""); err == nil {
		t.Error("expected error for empty URL")
	}
}
