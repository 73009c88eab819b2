package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"whatsthedamage/internal/core"
)

func TestClassifier_Categorize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/classify" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req classifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(classifyResponse{Category: "Grocery", Confidence: 0.93})
	}))
	defer srv.Close()

	got, err := NewClassifier(srv.URL).Categorize(context.Background(), core.Row{Partner: "TESCO"})
	if err != nil {
		t.Fatalf("Categorize() unexpected error: %v", err)
	}
	if got != "Grocery" {
		t.Errorf("Categorize() = %q, want %q", got, "Grocery")
	}
}

func TestClassifier_CategorizeAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/classify/batch" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]classifyResponse{
			{Category: "Grocery", Confidence: 0.9},
			{Category: "", Confidence: 0.1}, // low-confidence empty label
		})
	}))
	defer srv.Close()

	rows := []core.Row{
		{Partner: "TESCO", Amount: "-50.0"},
		{Partner: "employer", Amount: "2000.0"},
	}

	labeled, err := NewClassifier(srv.URL).CategorizeAll(context.Background(), rows)
	if err != nil {
		t.Fatalf("CategorizeAll() unexpected error: %v", err)
	}
	if labeled[0].Category != "Grocery" {
		t.Errorf("row 0 category = %q, want Grocery", labeled[0].Category)
	}
	// Empty service label falls back by amount sign.
	if labeled[1].Category != core.CategoryDeposit {
		t.Errorf("row 1 category = %q, want %q", labeled[1].Category, core.CategoryDeposit)
	}
}

func TestEnricher_Apply_UsesBatchEndpoint(t *testing.T) {
	var singleCalls, batchCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/classify":
			singleCalls++
			json.NewEncoder(w).Encode(classifyResponse{Category: "Grocery"})
		case "/classify/batch":
			batchCalls++
			json.NewEncoder(w).Encode([]classifyResponse{
				{Category: "Grocery", Confidence: 0.9},
				{Category: "Utilities", Confidence: 0.8},
			})
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer srv.Close()

	rows := []core.Row{
		{Partner: "TESCO", Amount: "-50.0"},
		{Partner: "POWER CO", Amount: "-120.0"},
	}

	out, err := New(NewClassifier(srv.URL)).Apply(context.Background(), rows)
	if err != nil {
		t.Fatalf("Apply() unexpected error: %v", err)
	}
	if batchCalls != 1 || singleCalls != 0 {
		t.Errorf("got %d batch and %d single calls, want one batch call only", batchCalls, singleCalls)
	}
	if out[0].Category != "Grocery" || out[1].Category != "Utilities" {
		t.Errorf("categories = %q, %q", out[0].Category, out[1].Category)
	}
}

func TestClassifier_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := NewClassifier(srv.URL).Categorize(context.Background(), core.Row{}); err == nil {
		t.Fatal("Categorize() should surface non-200 responses as errors")
	}
}

func TestClassifier_LengthMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]classifyResponse{{Category: "Grocery"}})
	}))
	defer srv.Close()

	rows := []core.Row{{}, {}}
	if _, err := NewClassifier(srv.URL).CategorizeAll(context.Background(), rows); err == nil {
		t.Fatal("CategorizeAll() should fail when label count differs from row count")
	}
}
