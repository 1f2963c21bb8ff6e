package judge0

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rhuss/judgeide/pkg/debug"
)

// RegionHeader carries the routing region between submit and poll.
const RegionHeader = "X-Judge0-Region"

// Client talks to the Judge0 REST API of both flavors.
type Client struct {
	cfg Config

	// onProbe is invoked after every status probe. May be nil.
	onProbe func(h Handle, probe int, status Status)
}

// NewClient creates a Judge0 client. Zero-value fields of cfg are defaulted.
func NewClient(cfg Config) *Client {
	cfg.applyDefaults()
	return &Client{cfg: cfg}
}

// OnProbe registers a callback invoked after every status probe.
func (c *Client) OnProbe(fn func(h Handle, probe int, status Status)) {
	c.onProbe = fn
}

// Config returns the effective client configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// Submit posts an encoded request to the authenticated endpoint of its flavor
// with wait=false and returns the handle used for polling. Failures are not
// retried.
func (c *Client) Submit(ctx context.Context, flavor Flavor, payload *SubmissionPayload) (*Handle, error) {
	ep, err := c.cfg.Endpoint(flavor)
	if err != nil {
		return nil, &ValidationError{Field: "flavor", Message: err.Error()}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	u := ep.AuthURL + "/submissions?base64_encoded=true&wait=false"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	apiKey := apiKeyFromContext(ctx)
	if apiKey == "" {
		apiKey = ep.APIKey
	}
	if apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	}

	debug.Log("judge0", "submit", "flavor", flavor.String(), "language_id", payload.LanguageID, "url", u)
	debug.Trace("judge0", "submit body", "body", debug.Truncate(string(body), 2048))

	resp, err := c.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, networkError(ctx, "submit", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, httpError("submit", resp)
	}

	var created struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, &TransportError{Op: "submit", StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if created.Token == "" {
		return nil, &TransportError{Op: "submit", StatusCode: resp.StatusCode, Err: fmt.Errorf("response carried no token")}
	}

	h := &Handle{
		Token:  created.Token,
		Flavor: flavor,
		Region: resp.Header.Get(RegionHeader),
	}
	debug.Log("judge0", "submitted", "token", h.Token, "region", h.Region)
	return h, nil
}

// Poll probes the status of a submission until it reaches a terminal status.
//
// The first probe is issued after InitialDelay; every non-terminal answer
// schedules the next probe after Delay(probe). Probes are strictly
// sequential. After MaxProbes non-terminal answers Poll returns
// ErrProbeLimitExceeded without issuing further requests. Any transport
// error aborts immediately.
func (c *Client) Poll(ctx context.Context, h *Handle) (*Result, error) {
	return c.poll(ctx, h, nil)
}

func (c *Client) poll(ctx context.Context, h *Handle, onProbe func(Handle, int, Status)) (*Result, error) {
	ep, err := c.cfg.Endpoint(h.Flavor)
	if err != nil {
		return nil, &ValidationError{Field: "flavor", Message: err.Error()}
	}

	wait := c.cfg.InitialDelay
	for probe := 1; probe <= c.cfg.MaxProbes; probe++ {
		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}

		sub, err := c.fetchSubmission(ctx, ep, h)
		if err != nil {
			return nil, err
		}

		debug.Log("judge0", "probe", "token", h.Token, "probe", probe, "status", sub.Status.Description)
		if c.onProbe != nil {
			c.onProbe(*h, probe, sub.Status)
		}
		if onProbe != nil {
			onProbe(*h, probe, sub.Status)
		}

		if sub.Status.Terminal() {
			return sub.result(h.Token), nil
		}
		wait = c.cfg.Delay(probe)
	}

	return nil, ErrProbeLimitExceeded
}

// submissionStatus is the JSON body of GET /submissions/{token}.
type submissionStatus struct {
	Token         string   `json:"token"`
	Status        Status   `json:"status"`
	Stdout        *string  `json:"stdout"`
	CompileOutput *string  `json:"compile_output"`
	Time          *seconds `json:"time"`
	Memory        *int64   `json:"memory"`
}

func (s *submissionStatus) result(token string) *Result {
	r := &Result{
		Token:  token,
		Status: s.Status,
		Memory: s.Memory,
	}
	if s.Stdout != nil {
		r.Stdout = Decode(*s.Stdout)
	}
	if s.CompileOutput != nil {
		r.CompileOutput = Decode(*s.CompileOutput)
	}
	if s.Time != nil {
		r.Time = string(*s.Time)
	}
	return r
}

// seconds accepts the time field both as a JSON string and as a number.
type seconds string

func (s *seconds) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = seconds(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = seconds(n.String())
	return nil
}

func (c *Client) fetchSubmission(ctx context.Context, ep Endpoint, h *Handle) (*submissionStatus, error) {
	u := ep.UnauthURL + "/submissions/" + url.PathEscape(h.Token) + "?base64_encoded=true"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if h.Region != "" {
		httpReq.Header.Set(RegionHeader, h.Region)
	}

	resp, err := c.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, networkError(ctx, "poll", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, httpError("poll", resp)
	}

	var sub submissionStatus
	if err := json.NewDecoder(resp.Body).Decode(&sub); err != nil {
		return nil, &TransportError{Op: "poll", StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return &sub, nil
}

// ListLanguages returns the languages offered by a flavor.
func (c *Client) ListLanguages(ctx context.Context, flavor Flavor) ([]Language, error) {
	ep, err := c.cfg.Endpoint(flavor)
	if err != nil {
		return nil, err
	}

	var langs []Language
	if err := c.getJSON(ctx, "languages", ep.UnauthURL+"/languages", &langs); err != nil {
		return nil, err
	}
	for i := range langs {
		langs[i].Flavor = flavor
	}
	return langs, nil
}

// GetLanguage returns the details of one language, including its source
// file name.
func (c *Client) GetLanguage(ctx context.Context, flavor Flavor, id int) (*Language, error) {
	ep, err := c.cfg.Endpoint(flavor)
	if err != nil {
		return nil, err
	}

	var lang Language
	if err := c.getJSON(ctx, "language", ep.UnauthURL+"/languages/"+strconv.Itoa(id), &lang); err != nil {
		return nil, err
	}
	lang.Flavor = flavor
	return &lang, nil
}

func (c *Client) getJSON(ctx context.Context, op, u string, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return networkError(ctx, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpError(op, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// networkError wraps a failed round trip. A cancelled context is returned
// as-is so callers can tell abandonment from failure.
func networkError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return &TransportError{Op: op, Err: err}
}

// httpError converts a non-2xx response into a TransportError.
func httpError(op string, resp *http.Response) *TransportError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &TransportError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Body:       string(bytes.TrimSpace(data)),
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
