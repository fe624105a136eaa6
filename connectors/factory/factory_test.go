package factory

import (
	"testing"
	"time"

	wholesalemarket "github.com/kilianp07/ess-scheduler/connectors/clients/wholesaleMarket"
)

func TestNewRTEClient(t *testing.T) {
	tests := []struct {
		id          string
		expectedErr bool
	}{
		{IDWholesaleMarket, false},
		{"unknown_id", true},
	}

	for _, tt := range tests {
		client, err := NewRTEClient(tt.id, "")
		if tt.expectedErr {
			if err == nil {
				t.Errorf("expected error for id %s, got nil", tt.id)
			}
		} else {
			if err != nil {
				t.Errorf("did not expect error for id %s, got %v", tt.id, err)
			}
			if client == nil {
				t.Errorf("expected non-nil client for id %s", tt.id)
			}
		}
	}
}

func TestNewRTEClientBaseURL(t *testing.T) {
	client, err := NewRTEClient(IDWholesaleMarket, "http://localhost:9999/prices")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wm, ok := client.(*wholesalemarket.Client)
	if !ok || wm.BaseURL != "http://localhost:9999/prices" {
		t.Fatalf("base url not applied: %#v", client)
	}
}

func TestPriceOptions(t *testing.T) {
	opts, err := PriceOptions(IDWholesaleMarket)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	client, _ := NewRTEClient(IDWholesaleMarket, "")
	for _, o := range opts(start, start.AddDate(0, 0, 1)) {
		if err := o(client); err != nil {
			t.Fatalf("option: %v", err)
		}
	}
	if _, err := PriceOptions("unknown_id"); err == nil {
		t.Fatalf("expected error for unknown id")
	}
}
