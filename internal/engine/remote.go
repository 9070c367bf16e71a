package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/vk/sweepgridgo/internal/mesh"
)

// Remote talks JSON-over-HTTP to a model server. One Remote holds one
// logical engine connection; sessions map to server-side model handles.
type Remote struct {
	BaseURL string
	// FallbackURL, when set, is tried once if loading against BaseURL
	// fails (engine servers historically listen on an alternate port).
	FallbackURL string
	APIKey      string
	Client      *http.Client
}

// NewRemote builds a Remote engine client with a sane request timeout.
func NewRemote(baseURL, fallbackURL, apiKey string) *Remote {
	return &Remote{
		BaseURL:     baseURL,
		FallbackURL: fallbackURL,
		APIKey:      apiKey,
		Client:      &http.Client{Timeout: 5 * time.Minute},
	}
}

// Ping verifies the server is reachable before the batch loop starts.
func (r *Remote) Ping(ctx context.Context) error {
	if err := r.doJSON(ctx, http.MethodGet, r.BaseURL+"/health", nil, nil); err != nil {
		if r.FallbackURL == "" {
			return fmt.Errorf("engine unreachable at %s: %w", r.BaseURL, err)
		}
		if ferr := r.doJSON(ctx, http.MethodGet, r.FallbackURL+"/health", nil, nil); ferr != nil {
			return fmt.Errorf("engine unreachable at %s and %s: %w", r.BaseURL, r.FallbackURL, ferr)
		}
	}
	return nil
}

type loadRequest struct {
	Template string `json:"template"`
}

type loadResponse struct {
	ID string `json:"id"`
}

// Load asks the server to open the template, retrying once against the
// fallback address when the primary refuses.
func (r *Remote) Load(ctx context.Context, template string) (Session, error) {
	base := r.BaseURL
	var resp loadResponse
	err := r.doJSON(ctx, http.MethodPost, base+"/models", loadRequest{Template: template}, &resp)
	if err != nil && r.FallbackURL != "" {
		base = r.FallbackURL
		err = r.doJSON(ctx, http.MethodPost, base+"/models", loadRequest{Template: template}, &resp)
	}
	if err != nil {
		return nil, fmt.Errorf("load template %s: %w", template, err)
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("load template %s: server returned no model id", template)
	}
	return &remoteSession{engine: r, base: base, id: resp.ID, ctx: ctx}, nil
}

// Close implements Engine.
func (r *Remote) Close() error {
	r.Client.CloseIdleConnections()
	return nil
}

type remoteSession struct {
	engine *Remote
	base   string
	id     string
	// ctx is the context the session was loaded under. Session calls
	// without a context of their own run under it, so cancelling the run
	// also cancels in-flight parameter and cleanup requests.
	ctx context.Context
}

type parameterPayload struct {
	Value string `json:"value"`
}

func (s *remoteSession) SetParameter(name, value string) error {
	u := s.modelURL("parameters", name)
	err := s.engine.doJSON(s.ctx, http.MethodPut, u, parameterPayload{Value: value}, nil)
	if isStatus(err, http.StatusNotFound) {
		return fmt.Errorf("%s: %w", name, ErrUnknownParameter)
	}
	return err
}

func (s *remoteSession) Parameter(name string) (string, error) {
	var resp parameterPayload
	err := s.engine.doJSON(s.ctx, http.MethodGet, s.modelURL("parameters", name), nil, &resp)
	if isStatus(err, http.StatusNotFound) {
		return "", fmt.Errorf("%s: %w", name, ErrUnknownParameter)
	}
	return resp.Value, err
}

func (s *remoteSession) RunMesh(ctx context.Context, params mesh.Params) error {
	return s.engine.doJSON(ctx, http.MethodPost, s.modelURL("mesh"), params, nil)
}

type saveRequest struct {
	Path string `json:"path"`
}

func (s *remoteSession) Save(ctx context.Context, path string) error {
	return s.engine.doJSON(ctx, http.MethodPost, s.modelURL("save"), saveRequest{Path: path}, nil)
}

func (s *remoteSession) Close() error {
	return s.engine.doJSON(s.ctx, http.MethodDelete, s.modelURL(), nil, nil)
}

func (s *remoteSession) modelURL(parts ...string) string {
	u := s.base + "/models/" + url.PathEscape(s.id)
	for _, p := range parts {
		u += "/" + url.PathEscape(p)
	}
	return u
}

// statusError preserves the HTTP status of a failed engine call so
// callers can distinguish unknown parameters from transport faults.
type statusError struct {
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("engine returned %d: %s", e.Status, e.Body)
}

func isStatus(err error, status int) bool {
	var se *statusError
	return errors.As(err, &se) && se.Status == status
}

func (r *Remote) doJSON(ctx context.Context, method, u string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.APIKey)
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &statusError{Status: resp.StatusCode, Body: string(bytes.TrimSpace(raw))}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
