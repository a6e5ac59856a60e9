// Package transport is the thin HTTP session the submission pipeline talks
// through: form-encoded POSTs with the captured session cookie and the
// browser-like header set the upstream expects, each request under its own
// short timeout.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/140.0.0.0 Safari/537.36"

// FormPoster is what the pipeline needs from a session: send one form, get
// the response body as text.
type FormPoster interface {
	PostForm(ctx context.Context, path string, form url.Values) (string, error)
}

// Session posts forms to one upstream base URL on behalf of one captured
// browser session.
type Session struct {
	hc        *http.Client
	base      string
	cookie    string
	referer   string
	userAgent string
}

// Options tune a Session; zero values fall back to upstream defaults.
type Options struct {
	Timeout   time.Duration
	Referer   string
	UserAgent string
}

// NewSession builds a session against base (scheme://host) authenticated by
// cookie (e.g. "JSESSIONID=...").
func NewSession(base, cookie string, opts Options) *Session {
	base = strings.TrimRight(base, "/")
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Referer == "" {
		opts.Referer = base + "/user/tennis/tennisReservation.do?menu=d&menuFlag=T"
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	return &Session{
		hc:        &http.Client{Timeout: opts.Timeout},
		base:      base,
		cookie:    cookie,
		referer:   opts.Referer,
		userAgent: opts.UserAgent,
	}
}

// PostForm sends one form-encoded POST to base+path and returns the body as
// text. A non-nil error always means a transport-level failure; HTTP error
// statuses are reported as errors too since the upstream answers its
// AJAX endpoints with 200 plus an envelope.
func (s *Session) PostForm(ctx context.Context, path string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.base+path, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Cookie", s.cookie)
	req.Header.Set("caller_id", "GMFMC_AJAX")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Origin", s.base)
	req.Header.Set("Referer", s.referer)

	res, err := s.hc.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	if res.StatusCode >= 400 {
		return string(b), fmt.Errorf("upstream status %d for %s", res.StatusCode, path)
	}
	return string(b), nil
}
