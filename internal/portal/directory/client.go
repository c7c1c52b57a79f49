// Package directory wraps the registry's read-only user listing with a
// small Redis cache so repeated available-user computations don't hammer
// the registry. Only the raw user list is cached; derived sets such as
// "available users for project X" are always recomputed from it.
package directory

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/orgboard/portal-backend/internal/apperr"
	"github.com/orgboard/portal-backend/internal/portal/domain"
)

const usersCacheKey = "portal:directory:users"

type Client struct {
	baseURL    string
	httpClient *http.Client
	rdb        *redis.Client
	ttl        time.Duration
}

// NewClient builds a directory client. rdb may be nil, in which case every
// call goes straight to the registry.
func NewClient(baseURL string, timeout time.Duration, rdb *redis.Client, ttl time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		rdb:        rdb,
		ttl:        ttl,
	}
}

// ListUsers returns the full user directory, served from cache when fresh.
func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	if c.rdb != nil {
		data, err := c.rdb.Get(ctx, usersCacheKey).Result()
		if err == nil {
			var users []domain.User
			if jerr := json.Unmarshal([]byte(data), &users); jerr == nil {
				return users, nil
			}
			// Corrupt cache entry; fall through to a fresh fetch.
			_ = c.rdb.Del(ctx, usersCacheKey).Err()
		} else if err != redis.Nil {
			log.Printf("[directory] cache read failed: %v", err)
		}
	}

	users, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}

	if c.rdb != nil {
		if data, jerr := json.Marshal(users); jerr == nil {
			if err := c.rdb.Set(ctx, usersCacheKey, data, c.ttl).Err(); err != nil {
				log.Printf("[directory] cache write failed: %v", err)
			}
		}
	}
	return users, nil
}

// Invalidate drops the cached listing, e.g. after the board edits users.
func (c *Client) Invalidate(ctx context.Context) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, usersCacheKey).Err(); err != nil {
		log.Printf("[directory] cache invalidate failed: %v", err)
	}
}

func (c *Client) fetch(ctx context.Context) ([]domain.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/users", nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "build request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Network("call user directory", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Network("read directory response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.FromStatus(resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out struct {
		Users []domain.User `json:"users"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, apperr.Wrap(apperr.KindUnknown, "unmarshal directory response", err)
	}
	return out.Users, nil
}
