package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Mr-wang007s/personal-accounting-sub000/models"
	"github.com/go-resty/resty/v2"
)

// HTTPClientConfig carries the settings needed to construct the HTTP gateway.
type HTTPClientConfig struct {
	BaseURL  string
	Token    string
	DeviceID string
	Timeout  time.Duration
}

type httpSyncGateway struct {
	client   *resty.Client
	deviceID string

	mu    sync.RWMutex
	token string
}

// NewHTTPSyncGateway builds a [SyncGateway] speaking the JSON/HTTP sync
// protocol. The device id is attached to every request as X-Device-ID so the
// server can tell concurrent devices of the same user apart in its logs.
func NewHTTPSyncGateway(cfg HTTPClientConfig) SyncGateway {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout)

	g := &httpSyncGateway{client: cli, deviceID: cfg.DeviceID}
	g.SetToken(cfg.Token)
	return g
}

func (h *httpSyncGateway) SetToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = strings.TrimSpace(token)
}

func (h *httpSyncGateway) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

func (h *httpSyncGateway) Ping(ctx context.Context) error {
	resp, err := h.client.R().SetContext(ctx).Get("/discovery/ping")
	if err != nil {
		return fmt.Errorf("%w: ping request: %v", ErrNetwork, err)
	}

	return mapHTTPError(resp)
}

func (h *httpSyncGateway) Pull(ctx context.Context, lastSyncVersion int64) (models.PullResponse, error) {
	resp, err := h.authedRequest(ctx).
		SetQueryParam("lastSyncVersion", strconv.FormatInt(lastSyncVersion, 10)).
		Get("/api/sync/pull")
	if err != nil {
		return models.PullResponse{}, fmt.Errorf("%w: pull request: %v", ErrNetwork, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.PullResponse{}, err
	}

	var pr models.PullResponse
	if err = json.Unmarshal(resp.Body(), &pr); err != nil {
		return models.PullResponse{}, fmt.Errorf("decode pull response: %w", err)
	}

	return pr, nil
}

func (h *httpSyncGateway) Push(ctx context.Context, req models.PushRequest) (models.PushResponse, error) {
	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/api/sync/push")
	if err != nil {
		return models.PushResponse{}, fmt.Errorf("%w: push request: %v", ErrNetwork, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.PushResponse{}, err
	}

	var pr models.PushResponse
	if err = json.Unmarshal(resp.Body(), &pr); err != nil {
		return models.PushResponse{}, fmt.Errorf("decode push response: %w", err)
	}

	return pr, nil
}

func (h *httpSyncGateway) FullSync(ctx context.Context) (models.FullSyncResponse, error) {
	resp, err := h.authedRequest(ctx).Get("/api/sync/full")
	if err != nil {
		return models.FullSyncResponse{}, fmt.Errorf("%w: full sync request: %v", ErrNetwork, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.FullSyncResponse{}, err
	}

	var fr models.FullSyncResponse
	if err = json.Unmarshal(resp.Body(), &fr); err != nil {
		return models.FullSyncResponse{}, fmt.Errorf("decode full sync response: %w", err)
	}

	return fr, nil
}

func (h *httpSyncGateway) authedRequest(ctx context.Context) *resty.Request {
	req := h.client.R().SetContext(ctx)
	if token := h.Token(); token != "" {
		req.SetHeader("Authorization", "Bearer "+token)
	}
	if h.deviceID != "" {
		req.SetHeader("X-Device-ID", h.deviceID)
	}
	return req
}
