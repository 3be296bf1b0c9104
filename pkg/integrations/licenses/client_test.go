package licenses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stackaudit/stackaudit/pkg/aggregator"
	"github.com/stackaudit/stackaudit/pkg/integrations"
)

func TestStackLicense(t *testing.T) {
	var gotPath string
	var gotBody scoringRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"status":        "Successful",
			"stack_license": "MIT",
			"packages": []map[string]any{
				{"package": "express", "version": "4.0.0", "license_analysis": map[string]any{"status": "Successful"}},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL + "/")

	payload := []aggregator.LicenseScoringInput{
		{Package: "express", Version: "4.0.0", Licenses: []string{"MIT"}},
	}
	resp, err := client.StackLicense(context.Background(), payload)
	if err != nil {
		t.Fatalf("StackLicense() error: %v", err)
	}

	if gotPath != "/api/v1/stack_license" {
		t.Errorf("path = %q, want /api/v1/stack_license", gotPath)
	}
	if len(gotBody.Packages) != 1 || gotBody.Packages[0].Package != "express" {
		t.Errorf("request payload = %+v", gotBody)
	}
	if resp.StackLicense == nil || *resp.StackLicense != "MIT" {
		t.Errorf("StackLicense = %v, want MIT", resp.StackLicense)
	}
	if resp.Status == nil || *resp.Status != "Successful" {
		t.Errorf("Status = %v, want Successful", resp.Status)
	}
	if len(resp.Packages) != 1 || resp.Packages[0].Package != "express" {
		t.Errorf("Packages = %+v", resp.Packages)
	}
}

func TestStackLicenseRetriesTransientFailures(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"status": "Successful", "stack_license": "MIT"})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	resp, err := client.StackLicense(context.Background(), nil)
	if err != nil {
		t.Fatalf("StackLicense() error: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	if resp.StackLicense == nil || *resp.StackLicense != "MIT" {
		t.Errorf("StackLicense = %v after retry, want MIT", resp.StackLicense)
	}
}

func TestStackLicensePermanentFailure(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	_, err := client.StackLicense(context.Background(), nil)
	if !errors.Is(err, integrations.ErrNetwork) {
		t.Errorf("StackLicense() error = %v, want ErrNetwork", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 for permanent failure", attempts)
	}
}
