package space

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/pricingops/space-go/internal/cache"
)

// FeatureEvaluation is the platform's verdict on one feature access check.
type FeatureEvaluation struct {
	Eval  bool                   `json:"eval"`
	Used  map[string]float64     `json:"used,omitempty"`
	Limit map[string]float64     `json:"limit,omitempty"`
	Error map[string]interface{} `json:"error,omitempty"`
}

type evaluationRequest struct {
	ExpectedConsumption map[string]float64 `json:"expectedConsumption,omitempty"`
	Revert              bool               `json:"revert,omitempty"`
}

// EvaluateFeature performs a read-only evaluation: it reports no
// consumption, so the result is cacheable. Cached results use a short TTL,
// deliberately below the default, because usage state moves quickly.
func (c *Client) EvaluateFeature(ctx context.Context, userID, featureID string) (*FeatureEvaluation, error) {
	if userID == "" || featureID == "" {
		return nil, fmt.Errorf("space: userID and featureID must not be empty")
	}
	key := cache.FeatureKey(userID, featureID)

	var cached FeatureEvaluation
	if c.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	eval, err := c.evaluate(ctx, userID, featureID, evaluationRequest{})
	if err != nil {
		return nil, err
	}

	c.cache.Set(ctx, key, eval, c.cache.ShortTTL())
	return eval, nil
}

// EvaluateFeatureWithConsumption evaluates a feature while reporting
// expected consumption. This mutates usage levels on the platform, so the
// result is never read from or written to the cache; instead the feature,
// contract and pricing-token entries for the user are invalidated, since
// usage affects all three.
func (c *Client) EvaluateFeatureWithConsumption(ctx context.Context, userID, featureID string, consumption map[string]float64) (*FeatureEvaluation, error) {
	if userID == "" || featureID == "" {
		return nil, fmt.Errorf("space: userID and featureID must not be empty")
	}
	if len(consumption) == 0 {
		return c.EvaluateFeature(ctx, userID, featureID)
	}

	eval, err := c.evaluate(ctx, userID, featureID, evaluationRequest{ExpectedConsumption: consumption})
	if err != nil {
		return nil, err
	}

	c.invalidateUsageState(ctx, userID, featureID)
	return eval, nil
}

// RevertEvaluation undoes a prior consumption-reporting evaluation. It
// mirrors the write-evaluation invalidation, since a revert is itself a
// usage mutation.
func (c *Client) RevertEvaluation(ctx context.Context, userID, featureID string) error {
	if userID == "" || featureID == "" {
		return fmt.Errorf("space: userID and featureID must not be empty")
	}

	if _, err := c.evaluate(ctx, userID, featureID, evaluationRequest{Revert: true}); err != nil {
		return err
	}

	c.invalidateUsageState(ctx, userID, featureID)
	return nil
}

// GeneratePricingToken returns a signed token carrying the user's current
// pricing state, cached with the default TTL.
func (c *Client) GeneratePricingToken(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("space: userID must not be empty")
	}
	key := cache.PricingTokenKey(userID)

	var cached string
	if c.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	raw, err := c.post(ctx, "/features/"+url.PathEscape(userID)+"/pricing-token", nil)
	if err != nil {
		return "", err
	}
	var resp struct {
		PricingToken string `json:"pricingToken"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decode pricing token: %w", err)
	}

	c.cache.Set(ctx, key, resp.PricingToken, c.cache.DefaultTTL())
	return resp.PricingToken, nil
}

func (c *Client) evaluate(ctx context.Context, userID, featureID string, req evaluationRequest) (*FeatureEvaluation, error) {
	raw, err := c.post(ctx, "/features/"+url.PathEscape(userID)+"/"+url.PathEscape(featureID), req)
	if err != nil {
		return nil, err
	}
	var eval FeatureEvaluation
	if err := json.Unmarshal(raw, &eval); err != nil {
		return nil, fmt.Errorf("decode evaluation: %w", err)
	}
	return &eval, nil
}

// invalidateUsageState drops the cache entries a usage mutation can
// affect: the evaluated feature, the contract and the pricing token.
func (c *Client) invalidateUsageState(ctx context.Context, userID, featureID string) {
	c.cache.Delete(ctx, cache.FeatureKey(userID, featureID))
	c.cache.Delete(ctx, cache.ContractKey(userID))
	c.cache.Delete(ctx, cache.PricingTokenKey(userID))
}
