package space

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/pricingops/space-go/internal/cache"
)

// UserContact identifies the user a contract belongs to.
type UserContact struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// BillingPeriod describes the contract's renewal cycle.
type BillingPeriod struct {
	AutoRenew   bool `json:"autoRenew"`
	RenewalDays int  `json:"renewalDays"`
}

// Subscription is the mutable subscription state of a contract: which
// services are contracted at which pricing version, the plan per service
// and any add-on quantities.
type Subscription struct {
	ContractedServices map[string]string         `json:"contractedServices"`
	SubscriptionPlans  map[string]string         `json:"subscriptionPlans"`
	SubscriptionAddOns map[string]map[string]int `json:"subscriptionAddOns,omitempty"`
}

// Contract is a user's contract as the platform sees it, including current
// usage levels per service and feature.
type Contract struct {
	UserContact   UserContact   `json:"userContact"`
	BillingPeriod BillingPeriod `json:"billingPeriod"`
	Subscription
	UsageLevels map[string]map[string]float64 `json:"usageLevels,omitempty"`
}

// UserID returns the contract owner's id.
func (c *Contract) UserID() string { return c.UserContact.UserID }

// GetContract fetches a user's contract, serving from cache when a live
// entry exists and populating the cache with the default TTL on a miss.
func (c *Client) GetContract(ctx context.Context, userID string) (*Contract, error) {
	if userID == "" {
		return nil, fmt.Errorf("space: userID must not be empty")
	}
	key := cache.ContractKey(userID)

	var cached Contract
	if c.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	raw, err := c.get(ctx, "/contracts/"+url.PathEscape(userID))
	if err != nil {
		return nil, err
	}
	var contract Contract
	if err := json.Unmarshal(raw, &contract); err != nil {
		return nil, fmt.Errorf("decode contract: %w", err)
	}

	c.cache.Set(ctx, key, &contract, c.cache.DefaultTTL())
	return &contract, nil
}

// AddContract creates a contract. After a successful create every cache
// entry for the user is invalidated and the contract key is repopulated
// with the created contract, so the cache starts from a fresh, consistent
// state rather than stale pre-creation data.
func (c *Client) AddContract(ctx context.Context, contract *Contract) (*Contract, error) {
	if contract == nil || contract.UserID() == "" {
		return nil, fmt.Errorf("space: contract with a userId is required")
	}

	raw, err := c.post(ctx, "/contracts", contract)
	if err != nil {
		return nil, err
	}
	var created Contract
	if err := json.Unmarshal(raw, &created); err != nil {
		return nil, fmt.Errorf("decode contract: %w", err)
	}

	userID := created.UserID()
	c.cache.InvalidateUser(ctx, userID)
	c.cache.Set(ctx, cache.ContractKey(userID), &created, c.cache.DefaultTTL())
	return &created, nil
}

// UpdateSubscription replaces a user's subscription state. After a
// successful update the user's cache entries are invalidated and the
// contract key repopulated with the updated contract.
func (c *Client) UpdateSubscription(ctx context.Context, userID string, sub *Subscription) (*Contract, error) {
	if userID == "" {
		return nil, fmt.Errorf("space: userID must not be empty")
	}
	if sub == nil {
		return nil, fmt.Errorf("space: subscription must not be nil")
	}

	raw, err := c.put(ctx, "/contracts/"+url.PathEscape(userID)+"/subscription", sub)
	if err != nil {
		return nil, err
	}
	var updated Contract
	if err := json.Unmarshal(raw, &updated); err != nil {
		return nil, fmt.Errorf("decode contract: %w", err)
	}

	c.cache.InvalidateUser(ctx, userID)
	c.cache.Set(ctx, cache.ContractKey(userID), &updated, c.cache.DefaultTTL())
	return &updated, nil
}
