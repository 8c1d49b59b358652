package domainapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

var apiClient = &http.Client{Timeout: 10 * time.Second}

func getJSON(ctx context.Context, endpoint string, headers map[string]string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "webpeel/1.0 (+https://github.com/use-agent/webpeel)")
	for k, val := range headers {
		req.Header.Set(k, val)
	}

	resp, err := apiClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("domainapi: %s returned status %d", endpoint, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
