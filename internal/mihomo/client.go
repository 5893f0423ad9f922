package mihomo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/btnalit/clash-cfg-edit/internal/logger"
)

// callTimeout bounds every control-API call; a slow daemon surfaces as a
// timeout error instead of hanging the request.
const callTimeout = 10 * time.Second

// APIError is a non-2xx response from the daemon's control API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mihomo api error: %d %s", e.Status, e.Body)
}

// Client issues requests against a mihomo external controller. The
// controller address and secret come with each call since the editor can
// talk to several daemons.
type Client struct {
	l  *logger.Logger
	hc *http.Client
}

func (c *Client) do(ctx context.Context, method, addr, endpoint, secret string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, "http://"+addr+endpoint, reader)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("Authorization", "Bearer "+secret)
	}

	response, err := c.hc.Do(req)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer func() { _ = response.Body.Close() }()

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, &APIError{Status: response.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	return data, nil
}

func (c *Client) Get(ctx context.Context, addr, endpoint, secret string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, addr, endpoint, secret, nil)
}

func (c *Client) Patch(ctx context.Context, addr, endpoint, secret string, body any) ([]byte, error) {
	return c.do(ctx, http.MethodPatch, addr, endpoint, secret, body)
}

func (c *Client) Put(ctx context.Context, addr, endpoint, secret string, body any) ([]byte, error) {
	return c.do(ctx, http.MethodPut, addr, endpoint, secret, body)
}

// Version checks reachability and returns the daemon version string.
func (c *Client) Version(ctx context.Context, addr, secret string) (string, error) {
	data, err := c.Get(ctx, addr, "/version", secret)
	if err != nil {
		return "", err
	}

	var v struct {
		Version string `json:"version"`
	}
	if err = json.Unmarshal(data, &v); err != nil {
		return "", errors.Wrap(err, "mihomo: cannot read version response")
	}
	if v.Version == "" {
		return "unknown", nil
	}
	return v.Version, nil
}

// Conn binds the client to one controller address and secret, giving the
// synthesizer a single runtime view to fan out over.
func (c *Client) Conn(addr, secret string) *Conn {
	return &Conn{c: c, addr: addr, secret: secret}
}

type Conn struct {
	c      *Client
	addr   string
	secret string
}

func (cn *Conn) BaseConfig(ctx context.Context) (map[string]any, error) {
	return cn.getMap(ctx, "/configs")
}

func (cn *Conn) DNS(ctx context.Context) (map[string]any, error) {
	return cn.getMap(ctx, "/dns")
}

func (cn *Conn) Proxies(ctx context.Context) ([]ProxyEntry, error) {
	data, err := cn.c.Get(ctx, cn.addr, "/proxies", cn.secret)
	if err != nil {
		return nil, err
	}
	return decodeProxies(data)
}

func (cn *Conn) Rules(ctx context.Context) ([]RuleEntry, error) {
	data, err := cn.c.Get(ctx, cn.addr, "/rules", cn.secret)
	if err != nil {
		return nil, err
	}

	var response rulesResponse
	if err = json.Unmarshal(data, &response); err != nil {
		return nil, errors.Wrap(err, "mihomo: cannot read rules response")
	}
	return response.Rules, nil
}

func (cn *Conn) getMap(ctx context.Context, endpoint string) (map[string]any, error) {
	data, err := cn.c.Get(ctx, cn.addr, endpoint, cn.secret)
	if err != nil {
		return nil, err
	}

	var m map[string]any
	if err = json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, "mihomo: cannot read %s response", endpoint)
	}
	return m, nil
}

func NewClient(l *logger.Logger) *Client {
	return &Client{
		l:  l,
		hc: &http.Client{Timeout: callTimeout},
	}
}
