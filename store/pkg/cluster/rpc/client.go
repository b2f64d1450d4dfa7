package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	rpcPathPrefix   = "/rpc/"
	requestIDHeader = "X-Request-Id"
)

const (
	CodeInvalidArgument = "invalid_argument"
	CodeNotLeader       = "not_leader"
	CodeInternal        = "internal"
	CodeUnimplemented   = "unimplemented"
)

// StatusError is a non-2xx reply from a peer.
type StatusError struct {
	HTTPStatus int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("rpc status %d %s: %s", e.HTTPStatus, e.Code, e.Message)
}

func IsInvalidArgument(err error) bool {
	return statusCode(err) == CodeInvalidArgument
}

func IsNotLeader(err error) bool {
	return statusCode(err) == CodeNotLeader
}

func statusCode(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// Client is one outbound handle to a peer. A handle is used by at most one
// call at a time.
type Client interface {
	Call(ctx context.Context, method string, req, resp interface{}) error
	Addr() string
	Close() error
}

// Dialer opens a new handle to addr.
type Dialer func(ctx context.Context, addr string) (Client, error)

type httpClient struct {
	addr    string
	baseURL string
	client  *http.Client
	tr      *http.Transport
}

// DialHTTP returns a Dialer whose handles own a dedicated http.Transport, so
// closing a handle closes its sockets.
func DialHTTP(connectTimeout time.Duration) Dialer {
	return func(ctx context.Context, addr string) (Client, error) {
		if addr == "" {
			return nil, fmt.Errorf("dial: empty address")
		}
		dialer := &net.Dialer{Timeout: connectTimeout, KeepAlive: 30 * time.Second}
		tr := &http.Transport{
			DialContext:         dialer.DialContext,
			MaxIdleConns:        1,
			MaxIdleConnsPerHost: 1,
			IdleConnTimeout:     90 * time.Second,
		}
		return &httpClient{
			addr:    addr,
			baseURL: baseURL(addr),
			client:  &http.Client{Transport: tr},
			tr:      tr,
		}, nil
	}
}

func baseURL(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return strings.TrimSuffix(addr, "/")
	}
	return "http://" + addr
}

func (c *httpClient) Addr() string {
	return c.addr
}

func (c *httpClient) Call(ctx context.Context, method string, req, resp interface{}) error {
	b, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", method, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+rpcPathPrefix+method, bytes.NewReader(b))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(requestIDHeader, uuid.NewString())

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 300 {
		st := StatusPb{}
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 64<<10))
		if json.Unmarshal(body, &st) != nil || st.Code == "" {
			st = StatusPb{Code: CodeInternal, Message: strings.TrimSpace(string(body))}
		}
		return &StatusError{HTTPStatus: httpResp.StatusCode, Code: st.Code, Message: st.Message}
	}
	if resp != nil {
		return json.NewDecoder(httpResp.Body).Decode(resp)
	}
	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, httpResp.Body)
	return nil
}

func (c *httpClient) Close() error {
	c.tr.CloseIdleConnections()
	return nil
}
