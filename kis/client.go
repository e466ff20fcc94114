package kis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rustyeddy/dca/broker"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	// RealURL is the production Open API gateway.
	RealURL = "https://openapi.koreainvestment.com:9443"
	// PaperURL is the paper-trading (모의투자) gateway.
	PaperURL = "https://openapivts.koreainvestment.com:29443"
)

// Mode selects the real or paper trading environment.
type Mode string

const (
	Real  Mode = "real"
	Paper Mode = "paper"
)

func (m Mode) Valid() bool { return m == Real || m == Paper }

// Requests per second the gateway tolerates per app key.
func (m Mode) defaultRate() rate.Limit {
	if m == Paper {
		return 1
	}
	return 5
}

func (m Mode) baseURL() string {
	if m == Paper {
		return PaperURL
	}
	return RealURL
}

// Credentials identify the app and the brokerage account.
type Credentials struct {
	AppKey    string
	AppSecret string
	AccountNo string // 10 digits: 8 digit CANO + 2 digit product code
}

// Options configures a Client.
type Options struct {
	Mode        Mode
	Credentials Credentials
	BaseURL     string        // overrides the per-mode gateway
	TokenCache  string        // optional token side-file
	Timeout     time.Duration // per request, default 30s
	RateLimit   float64       // requests per second, default per mode
	Logger      logrus.FieldLogger
}

// Client is a Korea Investment & Securities Open API client. It implements
// broker.Broker and broker.HistoricalPrices.
type Client struct {
	baseURL    string
	mode       Mode
	creds      Credentials
	httpClient *http.Client
	limiter    *rate.Limiter
	log        logrus.FieldLogger
	tokenPath  string
	now        func() time.Time

	mu    sync.Mutex
	token accessToken
}

var (
	_ broker.Broker           = (*Client)(nil)
	_ broker.HistoricalPrices = (*Client)(nil)
)

// NewClient validates opts and returns a client. No request is made until
// the first call.
func NewClient(opts Options) (*Client, error) {
	if !opts.Mode.Valid() {
		return nil, fmt.Errorf("kis: unknown mode %q", opts.Mode)
	}
	if opts.Credentials.AppKey == "" || opts.Credentials.AppSecret == "" {
		return nil, fmt.Errorf("kis: app key and secret are required")
	}
	acct := strings.ReplaceAll(opts.Credentials.AccountNo, "-", "")
	if len(acct) < 9 {
		return nil, fmt.Errorf("kis: account number %q is too short", opts.Credentials.AccountNo)
	}
	opts.Credentials.AccountNo = acct

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = opts.Mode.baseURL()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Limit(opts.RateLimit)
	if opts.RateLimit <= 0 {
		limit = opts.Mode.defaultRate()
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		mode:       opts.Mode,
		creds:      opts.Credentials,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
		log:        log.WithField("broker", "kis").WithField("mode", string(opts.Mode)),
		tokenPath:  opts.TokenCache,
		now:        time.Now,
	}, nil
}

func (c *Client) Mode() Mode { return c.mode }

// cano and productCode split the account number the way the gateway wants.
func (c *Client) cano() string        { return c.creds.AccountNo[:8] }
func (c *Client) productCode() string { return c.creds.AccountNo[8:] }

// envelope is the status block every trading endpoint returns.
type envelope struct {
	RtCd  string `json:"rt_cd"`
	MsgCd string `json:"msg_cd"`
	Msg1  string `json:"msg1"`
}

// do sends one authenticated request and decodes the body into out.
func (c *Client) do(ctx context.Context, method, path, trID string, query url.Values, body any, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	apiURL := c.baseURL + path
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("appkey", c.creds.AppKey)
	req.Header.Set("appsecret", c.creds.AppSecret)
	req.Header.Set("tr_id", trID)
	req.Header.Set("custtype", "P")

	data, status, err := c.send(req)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		if status != http.StatusOK {
			return &APIError{Status: status, Message: string(data)}
		}
		return fmt.Errorf("%w: decode %s: %w", broker.ErrTransport, path, err)
	}
	if status != http.StatusOK || (env.RtCd != "" && env.RtCd != "0") {
		return &APIError{Status: status, Code: env.MsgCd, Message: env.Msg1}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", broker.ErrTransport, path, err)
	}
	return nil
}

// send waits for a rate-limit slot, executes req and reads the body.
func (c *Client) send(req *http.Request) ([]byte, int, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, 0, fmt.Errorf("rate limit: %w", err)
	}

	c.log.WithField("method", req.Method).WithField("path", req.URL.Path).
		WithField("tr_id", req.Header.Get("tr_id")).Debug("kis request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s %s: %w", broker.ErrTransport, req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read body: %w", broker.ErrTransport, err)
	}
	return data, resp.StatusCode, nil
}
