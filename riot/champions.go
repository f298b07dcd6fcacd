package riot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DataDragonURL is the public static data CDN.
const DataDragonURL = "https://ddragon.leagueoflegends.com"

// Champions maps numeric champion ids to display names using Data Dragon.
// It loads lazily on first lookup and retries the load on later lookups if it failed.
type Champions struct {
	httpClient *http.Client
	logger     *slog.Logger
	names      map[int]string
	baseURL    string
	mu         sync.RWMutex
}

// NewChampions creates a registry reading from baseURL (normally DataDragonURL).
func NewChampions(baseURL string, logger *slog.Logger) *Champions {
	return &Champions{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the champion name for id, or "Champion <id>" when unknown.
func (r *Champions) Name(ctx context.Context, id int) string {
	r.mu.RLock()
	loaded := r.names != nil
	name, ok := r.names[id]
	r.mu.RUnlock()

	if !loaded {
		if err := r.Load(ctx); err != nil {
			r.logger.Warn("Failed to load champion data", "error", err)
		} else {
			r.mu.RLock()
			name, ok = r.names[id]
			r.mu.RUnlock()
		}
	}
	if ok {
		return name
	}
	return fmt.Sprintf("Champion %d", id)
}

// Load fetches the latest champion list.
func (r *Champions) Load(ctx context.Context) error {
	var versions []string
	if err := r.fetch(ctx, r.baseURL+"/api/versions.json", &versions); err != nil {
		return fmt.Errorf("fetch versions: %w", err)
	}
	if len(versions) == 0 {
		return errors.New("no Data Dragon versions available")
	}
	latest := versions[0]

	var data struct {
		Data map[string]struct {
			Key  string `json:"key"`
			Name string `json:"name"`
		} `json:"data"`
	}
	if err := r.fetch(ctx, fmt.Sprintf("%s/cdn/%s/data/en_US/champion.json", r.baseURL, latest), &data); err != nil {
		return fmt.Errorf("fetch champions: %w", err)
	}

	names := make(map[int]string, len(data.Data))
	for _, champ := range data.Data {
		key, err := strconv.Atoi(champ.Key)
		if err != nil {
			continue
		}
		names[key] = champ.Name
	}

	r.mu.Lock()
	r.names = names
	r.mu.Unlock()

	r.logger.Info("Loaded champion data", "count", len(names), "version", latest)
	return nil
}

func (r *Champions) fetch(ctx context.Context, u string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			r.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
