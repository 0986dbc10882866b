// Package alert delivers out-of-band notifications through the Telegram
// Bot API.  Nothing in the traffic engine depends on it.
package alert

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/net/proxy"

	ncerr "netprobe/internal/errors"
	"netprobe/internal/retry"
	"netprobe/util"
)

// DefaultBaseURL is the public Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// maxResponse bounds how much of an API reply is read.
const maxResponse = 1 << 20

// Notifier sends a text message somewhere an operator will see it.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Options configures a Telegram client.
type Options struct {
	Token   string
	ChatID  string
	BaseURL string        // default DefaultBaseURL
	Timeout time.Duration // per request, default 10s
	Proxy   string        // optional socks5://[user:pass@]host:port

	Backoff *retry.Backoff // default retry.DefaultBackoff()
	Breaker *retry.Breaker // default 3 failures, 30s cooldown
	Logger  *util.Logger
}

// Telegram posts messages with the sendMessage method.  Server errors
// and network failures are retried; a 4xx reply (bad token, unknown
// chat) is returned at once.
type Telegram struct {
	opts   Options
	client *http.Client
}

// apiResponse is the envelope of every Bot API reply.
type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// NewTelegram validates opts and builds the HTTP client.
func NewTelegram(opts Options) (*Telegram, error) {
	if opts.Token == "" || opts.ChatID == "" {
		return nil, ncerr.ErrAlertNotConfigured
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Backoff == nil {
		opts.Backoff = retry.DefaultBackoff()
	}
	if opts.Breaker == nil {
		opts.Breaker = retry.NewBreaker(3, 30*time.Second)
	}
	if opts.Logger == nil {
		opts.Logger = util.NewLogger(0)
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   opts.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: opts.Timeout,
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConns:        2,
	}
	if opts.Proxy != "" {
		dial, err := socksDialer(opts.Proxy)
		if err != nil {
			return nil, err
		}
		transport.DialContext = dial
	}

	return &Telegram{
		opts:   opts,
		client: &http.Client{Transport: transport, Timeout: opts.Timeout},
	}, nil
}

// Send delivers text to the configured chat.
func (t *Telegram) Send(ctx context.Context, text string) error {
	backoff := *t.opts.Backoff
	backoff.OnRetry = func(attempt int, err error, wait time.Duration) {
		t.opts.Logger.Verbose("telegram attempt %d failed: %v (retrying in %v)", attempt, err, wait.Round(time.Millisecond))
	}

	return backoff.Do(ctx, func(ctx context.Context, _ int) error {
		err := t.opts.Breaker.Execute(func() error { return t.post(ctx, text) })
		if ncerr.Is(err, ncerr.ErrCircuitOpen) {
			return retry.Permanent(err)
		}
		return err
	})
}

// post performs one sendMessage request.
func (t *Telegram) post(ctx context.Context, text string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.opts.BaseURL, t.opts.Token)
	form := url.Values{"chat_id": {t.opts.ChatID}, "text": {text}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		// The URL embeds the token; never let it reach a log line.
		return ncerr.Wrap("telegram", t.opts.BaseURL, redact(err, t.opts.Token))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse))
	if err != nil {
		return ncerr.Wrap("telegram", t.opts.BaseURL, err)
	}

	var reply apiResponse
	if err := sonic.Unmarshal(body, &reply); err != nil {
		reply = apiResponse{}
	}
	if resp.StatusCode == http.StatusOK && reply.OK {
		return nil
	}

	failure := fmt.Errorf("telegram: %s", describe(resp.StatusCode, reply))
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return failure
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return retry.Permanent(failure)
	default:
		return failure
	}
}

func describe(status int, reply apiResponse) string {
	if reply.Description != "" {
		return fmt.Sprintf("%d %s", status, reply.Description)
	}
	return fmt.Sprintf("%d %s", status, http.StatusText(status))
}

// redact strips the bot token from errors that quote the request URL.
// A *url.Error keeps its cause so timeouts are still recognisable.
func redact(err error, token string) error {
	if token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	var uerr *url.Error
	if ncerr.As(err, &uerr) && !strings.Contains(uerr.Err.Error(), token) {
		clean := *uerr
		clean.URL = strings.ReplaceAll(clean.URL, token, "<token>")
		return &clean
	}
	return ncerr.New(strings.ReplaceAll(err.Error(), token, "<token>"))
}

// socksDialer routes API connections through a SOCKS5 proxy.
func socksDialer(raw string) (func(ctx context.Context, network, addr string) (net.Conn, error), error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL %q: %w", raw, err)
	}
	if u.Scheme != "socks5" && u.Scheme != "socks5h" {
		return nil, fmt.Errorf("unsupported proxy scheme %q: only socks5 is supported", u.Scheme)
	}

	var auth *proxy.Auth
	if u.User != nil {
		password, _ := u.User.Password()
		auth = &proxy.Auth{User: u.User.Username(), Password: password}
	}

	d, err := proxy.SOCKS5("tcp", u.Host, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("proxy %s: %w", u.Host, err)
	}
	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("proxy %s: dialer does not support contexts", u.Host)
	}
	return cd.DialContext, nil
}
