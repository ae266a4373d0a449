package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/hms/hms/internal/platform/record"
)

const tracerName = "github.com/hms/hms/internal/platform/recordstore"

// HTTPConfig configures the remote record store client.
type HTTPConfig struct {
	BaseURL string
	// Secret signs the short-lived service token sent with every call.
	// Empty disables the Authorization header.
	Secret  string
	Issuer  string
	Timeout time.Duration
	Client  *http.Client
}

// HTTPClient talks to the remote record store's JSON API.
type HTTPClient struct {
	base    string
	secret  []byte
	issuer  string
	timeout time.Duration
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	tracer  trace.Tracer
	now     func() time.Time
}

// NewHTTPClient builds a client for cfg.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("record store base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid record store base URL: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "hms-server"
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}

	c := &HTTPClient{
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		secret:  []byte(cfg.Secret),
		issuer:  cfg.Issuer,
		timeout: cfg.Timeout,
		client:  client,
		tracer:  otel.Tracer(tracerName),
		now:     time.Now,
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "record-store",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// Only availability problems should open the circuit.
			return err == nil || !errors.Is(err, ErrUnavailable)
		},
	})
	return c, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Results []Result        `json:"results"`
}

func (c *HTTPClient) FetchAll(ctx context.Context, entity string, q Query) ([]record.Record, error) {
	env, err := c.call(ctx, "fetch", entity, http.MethodPost, c.entityURL(entity)+"/fetch", q)
	if err != nil {
		return nil, err
	}
	var recs []record.Record
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := decodeJSON(env.Data, &recs); err != nil {
			return nil, unavailable("fetch "+entity, fmt.Errorf("decoding records: %w", err))
		}
	}
	return recs, nil
}

func (c *HTTPClient) FetchByID(ctx context.Context, entity string, id int64, fields []string) (record.Record, error) {
	u := c.entityURL(entity) + "/" + strconv.FormatInt(id, 10)
	if len(fields) > 0 {
		u += "?fields=" + url.QueryEscape(strings.Join(fields, ","))
	}
	env, err := c.call(ctx, "get", entity, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	var rec record.Record
	if err := decodeJSON(env.Data, &rec); err != nil || rec == nil {
		return nil, fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
	}
	return rec, nil
}

func (c *HTTPClient) CreateRecords(ctx context.Context, entity string, recs []record.Record) ([]Result, error) {
	env, err := c.call(ctx, "create", entity, http.MethodPost, c.entityURL(entity), map[string]any{"records": recs})
	if err != nil {
		return nil, err
	}
	return env.Results, nil
}

func (c *HTTPClient) UpdateRecords(ctx context.Context, entity string, recs []record.Record) ([]Result, error) {
	env, err := c.call(ctx, "update", entity, http.MethodPut, c.entityURL(entity), map[string]any{"records": recs})
	if err != nil {
		return nil, err
	}
	return env.Results, nil
}

func (c *HTTPClient) DeleteRecords(ctx context.Context, entity string, ids []int64) ([]Result, error) {
	env, err := c.call(ctx, "delete", entity, http.MethodDelete, c.entityURL(entity), map[string]any{"ids": ids})
	if err != nil {
		return nil, err
	}
	return env.Results, nil
}

func (c *HTTPClient) entityURL(entity string) string {
	return c.base + "/records/" + url.PathEscape(entity)
}

func (c *HTTPClient) call(ctx context.Context, op, entity, method, u string, body any) (*envelope, error) {
	ctx, span := c.tracer.Start(ctx, "recordstore."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("record.entity", entity),
			attribute.String("http.request.method", method),
		))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, op+" "+entity, method, u, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = unavailable(op+" "+entity, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var env envelope
	if err := decodeJSON(raw, &env); err != nil {
		err = unavailable(op+" "+entity, fmt.Errorf("decoding response: %w", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !env.Success {
		err := unavailable(op+" "+entity, fmt.Errorf("store refused call: %s", env.Message))
		span.SetStatus(codes.Error, env.Message)
		return nil, err
	}
	return &env, nil
}

func (c *HTTPClient) do(ctx context.Context, op, method, u string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: encoding request: %w", op, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: building request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if len(c.secret) > 0 {
		token, err := c.token()
		if err != nil {
			return nil, fmt.Errorf("%s: signing service token: %w", op, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, unavailable(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, unavailable(op, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	case resp.StatusCode >= 500, resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, unavailable(op, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		var env envelope
		_ = json.Unmarshal(raw, &env)
		return nil, &RejectedError{Message: fmt.Sprintf("status %d: %s", resp.StatusCode, env.Message)}
	}
	return raw, nil
}

func (c *HTTPClient) token() (string, error) {
	now := c.now()
	claims := jwt.RegisteredClaims{
		Issuer:    c.issuer,
		Subject:   "record-store",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		ID:        uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

func decodeJSON(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}
