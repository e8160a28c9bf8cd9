package main

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/osmatelier/osmatelier/pkg/osm"
)

func resetInputs() {
	city = ""
	radiusKm = 1.0
	output = ""
	styleName = "minimalist"
}

func TestPromptForInputs(t *testing.T) {
	resetInputs()

	in := strings.NewReader("Austin, Texas\n2.5\n\nblueprint\n")
	if err := promptForInputs(in); err != nil {
		t.Fatalf("promptForInputs() error = %v", err)
	}

	if city != "Austin, Texas" {
		t.Errorf("city = %q", city)
	}
	if radiusKm != 2.5 {
		t.Errorf("radiusKm = %v, want 2.5", radiusKm)
	}
	// Empty output answer keeps the derived default.
	if output != "" {
		t.Errorf("output = %q, want empty", output)
	}
	if styleName != "blueprint" {
		t.Errorf("styleName = %q", styleName)
	}
}

func TestPromptForInputsCustomOutput(t *testing.T) {
	resetInputs()

	in := strings.NewReader("Paris\n\nposter.pdf\n\n")
	if err := promptForInputs(in); err != nil {
		t.Fatalf("promptForInputs() error = %v", err)
	}

	if output != "poster.pdf" {
		t.Errorf("output = %q, want poster.pdf", output)
	}
	if radiusKm != 1.0 {
		t.Errorf("radiusKm = %v, empty answer should keep the default", radiusKm)
	}
}

func TestPromptForInputsRequiresCity(t *testing.T) {
	resetInputs()

	if err := promptForInputs(strings.NewReader("\n")); err == nil {
		t.Error("expected error for blank city name")
	}
}

func TestDefaultOutputName(t *testing.T) {
	tests := []struct {
		city string
		want string
	}{
		{"Austin", "austin.svg"},
		{"Austin, Texas", "austin_texas.svg"},
		{"New York City", "new_york_city.svg"},
	}

	for _, tt := range tests {
		if got := defaultOutputName(tt.city); got != tt.want {
			t.Errorf("defaultOutputName(%q) = %q, want %q", tt.city, got, tt.want)
		}
	}
}

func TestPreflight(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer down.Close()

	oldNominatim, oldOverpass := osm.NominatimBaseURL, osm.OverpassBaseURL
	defer func() {
		osm.NominatimBaseURL, osm.OverpassBaseURL = oldNominatim, oldOverpass
	}()

	osm.NominatimBaseURL = healthy.URL
	osm.OverpassBaseURL = healthy.URL
	if err := preflight(slog.Default(), true); err != nil {
		t.Errorf("preflight() error = %v", err)
	}

	osm.NominatimBaseURL = down.URL
	if err := preflight(slog.Default(), false); err == nil {
		t.Error("expected error when nominatim is down")
	}
}
