package lms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const maxResponseBytes = 8 << 20

var requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "studyflow",
	Subsystem: "lms",
	Name:      "requests_total",
	Help:      "Requests issued to external learning-management systems.",
}, []string{"source", "outcome"})

// statusError reports a non-200 answer.
type statusError struct {
	URL    string
	Status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("lms: %s answered %d", e.URL, e.Status)
}

type jsonClient struct {
	http   *http.Client
	token  string
	source string
}

func (c *jsonClient) newRequest(ctx context.Context, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if strings.TrimSpace(c.token) != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// status issues a GET and returns only the status code.
func (c *jsonClient) status(ctx context.Context, url string) (int, error) {
	req, err := c.newRequest(ctx, url)
	if err != nil {
		return 0, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues(c.source, "error").Inc()
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	requestsTotal.WithLabelValues(c.source, outcome(resp.StatusCode)).Inc()
	return resp.StatusCode, nil
}

// getJSON decodes a 200 response into target; anything else is an error.
func (c *jsonClient) getJSON(ctx context.Context, url string, target interface{}) error {
	req, err := c.newRequest(ctx, url)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues(c.source, "error").Inc()
		return err
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(c.source, outcome(resp.StatusCode)).Inc()
	if resp.StatusCode != http.StatusOK {
		return &statusError{URL: url, Status: resp.StatusCode}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(target); err != nil {
		return fmt.Errorf("lms: decode %s: %w", url, err)
	}
	return nil
}

func outcome(status int) string {
	if status == http.StatusOK {
		return "ok"
	}
	return "status_" + http.StatusText(status)
}

// flexibleID accepts identifiers sent either as JSON strings or numbers.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*f = flexibleID(strings.TrimSpace(text))
		return nil
	}

	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return fmt.Errorf("lms: invalid identifier %s", string(data))
	}
	*f = flexibleID(number.String())
	return nil
}

type course struct {
	ID   flexibleID `json:"id"`
	Name string     `json:"name"`
}

func joinURL(base string, path string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/") + path
}
