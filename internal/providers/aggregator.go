// internal/providers/aggregator.go
package providers

import (
	"context"
	"sync"

	"opportunity-research/internal/models"
)

// SearchAll fans out one search per known platform concurrently and waits
// for every call to settle. Because Search contains each provider's
// failures, the returned map always carries one entry per known platform
// with the provider's own result ranking preserved.
//
// If the caller's context is cancelled, the partial results are discarded
// and the context error is returned: the contract is a complete mapping
// or nothing.
func (c *Client) SearchAll(ctx context.Context, query string) (models.PlatformResults, error) {
	results := models.NewPlatformResults()

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, platform := range models.AllPlatforms() {
		wg.Add(1)
		go func(platform models.Platform) {
			defer wg.Done()
			products := c.Search(ctx, platform, query)
			mu.Lock()
			results[platform] = products
			mu.Unlock()
		}(platform)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
