package space

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/pricingops/space-go/internal/cache"
)

func testContract(userID string) *Contract {
	return &Contract{
		UserContact: UserContact{UserID: userID, Username: userID},
		BillingPeriod: BillingPeriod{
			AutoRenew:   true,
			RenewalDays: 30,
		},
		Subscription: Subscription{
			ContractedServices: map[string]string{"tomatometer": "1.0.0"},
			SubscriptionPlans:  map[string]string{"tomatometer": "PRO"},
		},
	}
}

func TestGetContract_PopulatesCacheOnMiss(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(testContract("u1"))
	}))

	ctx := context.Background()

	first, err := client.GetContract(ctx, "u1")
	if err != nil {
		t.Fatalf("GetContract failed: %v", err)
	}
	second, err := client.GetContract(ctx, "u1")
	if err != nil {
		t.Fatalf("second GetContract failed: %v", err)
	}

	if calls.Load() != 1 {
		t.Fatalf("expected one remote call, got %d", calls.Load())
	}
	if first.UserID() != "u1" || second.UserID() != "u1" {
		t.Fatal("unexpected contract content")
	}
	if !client.Cache().Has(ctx, cache.ContractKey("u1")) {
		t.Fatal("expected contract cached")
	}
}

func TestGetContract_UncachedWhenDisabled(t *testing.T) {
	var calls atomic.Int32
	srv := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(testContract("u1"))
	})
	client, _ := newTestClient(t, srv)
	client.cache.Close() // degrade to "no cache"

	ctx := context.Background()
	client.GetContract(ctx, "u1")
	client.GetContract(ctx, "u1")

	if calls.Load() != 2 {
		t.Fatalf("expected two remote calls without cache, got %d", calls.Load())
	}
}

func TestAddContract_InvalidatesThenPopulates(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/contracts" {
			http.NotFound(w, r)
			return
		}
		var c Contract
		json.NewDecoder(r.Body).Decode(&c)
		json.NewEncoder(w).Encode(&c)
	}))

	ctx := context.Background()

	// Stale pre-creation state that must be wiped by the create.
	client.Cache().Set(ctx, cache.FeatureKey("u1", "login"), "stale", 0)
	client.Cache().Set(ctx, cache.PricingTokenKey("u1"), "stale", 0)

	created, err := client.AddContract(ctx, testContract("u1"))
	if err != nil {
		t.Fatalf("AddContract failed: %v", err)
	}
	if created.UserID() != "u1" {
		t.Fatalf("unexpected created contract: %+v", created)
	}

	if client.Cache().Has(ctx, cache.FeatureKey("u1", "login")) {
		t.Fatal("expected stale feature entry invalidated")
	}
	if client.Cache().Has(ctx, cache.PricingTokenKey("u1")) {
		t.Fatal("expected stale token entry invalidated")
	}
	var cached Contract
	if !client.Cache().Get(ctx, cache.ContractKey("u1"), &cached) {
		t.Fatal("expected fresh contract cached after create")
	}
	if cached.UserID() != "u1" {
		t.Fatalf("unexpected cached contract: %+v", cached)
	}
}

func TestUpdateSubscription_InvalidatesThenPopulates(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/v1/contracts/u1/subscription" {
			http.NotFound(w, r)
			return
		}
		updated := testContract("u1")
		updated.SubscriptionPlans["tomatometer"] = "ENTERPRISE"
		json.NewEncoder(w).Encode(updated)
	}))

	ctx := context.Background()
	client.Cache().Set(ctx, cache.FeatureKey("u1", "export"), "stale", 0)

	updated, err := client.UpdateSubscription(ctx, "u1", &Subscription{
		ContractedServices: map[string]string{"tomatometer": "1.0.0"},
		SubscriptionPlans:  map[string]string{"tomatometer": "ENTERPRISE"},
	})
	if err != nil {
		t.Fatalf("UpdateSubscription failed: %v", err)
	}
	if updated.SubscriptionPlans["tomatometer"] != "ENTERPRISE" {
		t.Fatalf("unexpected updated contract: %+v", updated)
	}

	if client.Cache().Has(ctx, cache.FeatureKey("u1", "export")) {
		t.Fatal("expected stale feature entry invalidated")
	}
	var cached Contract
	if !client.Cache().Get(ctx, cache.ContractKey("u1"), &cached) {
		t.Fatal("expected updated contract cached")
	}
	if cached.SubscriptionPlans["tomatometer"] != "ENTERPRISE" {
		t.Fatalf("cached contract is stale: %+v", cached)
	}
}

func TestAddContract_RemoteFailureLeavesCacheAlone(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	ctx := context.Background()
	client.Cache().Set(ctx, cache.FeatureKey("u1", "login"), "kept", 0)

	if _, err := client.AddContract(ctx, testContract("u1")); err == nil {
		t.Fatal("expected remote failure")
	}

	// Invalidation only runs after a successful remote call.
	if !client.Cache().Has(ctx, cache.FeatureKey("u1", "login")) {
		t.Fatal("failed create must not mutate cache state")
	}
}
