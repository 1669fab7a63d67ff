package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"
	"postharvest/pkg/config"
	"postharvest/pkg/logger"
)

// fetchJS runs a credentialed GET inside the page and never throws; transport
// failures come back as status 0.
const fetchJS = `async (url) => {
	try {
		const res = await fetch(url, {
			credentials: "include",
			headers: {
				"Accept": "application/json, text/plain, */*",
				"Content-Type": "application/json"
			}
		});
		const body = await res.text();
		return { status: res.status, body: body, error: "" };
	} catch (e) {
		return { status: 0, body: "", error: String(e) };
	}
}`

// Session owns a Chrome process with a persistent profile and the tab the
// harvester works in.
type Session struct {
	browser *rod.Browser
	page    *rod.Page
	logger  logger.Logger

	handlers handlerSet

	listenMu     sync.Mutex
	stopListener context.CancelFunc
}

// Launch starts Chrome with the configured profile directory and opens a tab
func Launch(cfg config.BrowserConfig, log logger.Logger) (*Session, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	l := launcher.New().
		UserDataDir(cfg.UserDataDir).
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox).
		Set("disable-blink-features", "AutomationControlled").
		Set("start-maximized")
	if cfg.BinPath != "" {
		l = l.Bin(cfg.BinPath)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	log.WithFields(map[string]interface{}{
		"control_url":   controlURL,
		"user_data_dir": cfg.UserDataDir,
		"headless":      cfg.Headless,
	}).Info("Browser launched")

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	if cfg.Stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			log.WithError(err).Warn("Stealth injection failed, continuing without it")
		}
	}

	if err := (proto.NetworkEnable{}).Call(page); err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("failed to enable network domain: %w", err)
	}

	_ = proto.NetworkSetExtraHTTPHeaders{
		Headers: proto.NetworkHeaders{"Accept-Language": gson.New("en-US,en;q=0.9")},
	}.Call(page)

	return &Session{browser: b, page: page, logger: log}, nil
}

// SetUserAgent overrides the tab's user agent
func (s *Session) SetUserAgent(ua string) error {
	if ua == "" {
		return nil
	}
	return s.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua})
}

// Navigate loads url in the tab
func (s *Session) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return err
	}
	return p.WaitLoad()
}

// Title returns the current document title
func (s *Session) Title(ctx context.Context) (string, error) {
	info, err := s.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.Title, nil
}

// Has reports whether selector matches any element right now
func (s *Session) Has(ctx context.Context, selector string) (bool, error) {
	has, _, err := s.page.Context(ctx).Has(selector)
	return has, err
}

// Fetch runs fetchJS with url and decodes its result
func (s *Session) Fetch(ctx context.Context, url string) (FetchResult, error) {
	res, err := s.page.Context(ctx).Eval(fetchJS, url)
	if err != nil {
		return FetchResult{}, err
	}
	return FetchResult{
		Status: res.Value.Get("status").Int(),
		Body:   []byte(res.Value.Get("body").Str()),
		Error:  res.Value.Get("error").Str(),
	}, nil
}

// MoveMouse glides the pointer to a point in a few steps
func (s *Session) MoveMouse(ctx context.Context, to Point) error {
	return s.page.Context(ctx).Mouse.MoveLinear(proto.Point{X: to.X, Y: to.Y}, 5)
}

// Reload performs a full page reload
func (s *Session) Reload(ctx context.Context) error {
	return s.page.Context(ctx).Reload()
}

// OnResponse registers a handler and starts the network event pump on first use
func (s *Session) OnResponse(match func(string) bool, handler func(Response)) func() {
	detach := s.handlers.add(match, handler)
	s.ensureListening()
	return func() {
		detach()
		if s.handlers.empty() {
			s.stopListening()
		}
	}
}

func (s *Session) ensureListening() {
	s.listenMu.Lock()
	defer s.listenMu.Unlock()
	if s.stopListener != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stopListener = cancel

	var mu sync.Mutex
	pending := make(map[proto.NetworkRequestID]Response)

	p := s.page.Context(ctx)
	go p.EachEvent(func(e *proto.NetworkResponseReceived) {
		if len(s.handlers.matching(e.Response.URL)) == 0 {
			return
		}
		mu.Lock()
		pending[e.RequestID] = Response{URL: e.Response.URL, Status: e.Response.Status}
		mu.Unlock()
	}, func(e *proto.NetworkLoadingFinished) {
		mu.Lock()
		resp, ok := pending[e.RequestID]
		delete(pending, e.RequestID)
		mu.Unlock()
		if !ok {
			return
		}
		// CDP calls must not block the event loop
		go s.deliver(p, e.RequestID, resp)
	}, func(e *proto.NetworkLoadingFailed) {
		mu.Lock()
		delete(pending, e.RequestID)
		mu.Unlock()
	})()
}

func (s *Session) deliver(p *rod.Page, id proto.NetworkRequestID, resp Response) {
	body, err := proto.NetworkGetResponseBody{RequestID: id}.Call(p)
	if err != nil {
		s.logger.WithError(err).Debug("Could not read response body")
		return
	}

	if body.Base64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body.Body)
		if err != nil {
			s.logger.WithError(err).Debug("Could not decode response body")
			return
		}
		resp.Body = decoded
	} else {
		resp.Body = []byte(body.Body)
	}

	for _, h := range s.handlers.matching(resp.URL) {
		h(resp)
	}
}

func (s *Session) stopListening() {
	s.listenMu.Lock()
	defer s.listenMu.Unlock()
	if s.stopListener != nil {
		s.stopListener()
		s.stopListener = nil
	}
}

// SetCookies injects cookies into the browser
func (s *Session) SetCookies(ctx context.Context, cookies []Cookie) error {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		path := c.Path
		if path == "" {
			path = "/"
		}
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		})
	}
	return s.browser.Context(ctx).SetCookies(params)
}

// Cookies exports the cookies visible to urls (all cookies for the tab when empty)
func (s *Session) Cookies(ctx context.Context, urls ...string) ([]Cookie, error) {
	raw, err := s.page.Context(ctx).Cookies(urls)
	if err != nil {
		return nil, err
	}
	out := make([]Cookie, 0, len(raw))
	for _, c := range raw {
		out = append(out, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		})
	}
	return out, nil
}

// Close stops the event pump and shuts Chrome down
func (s *Session) Close() error {
	s.stopListening()
	return s.browser.Close()
}

var (
	_ Page      = (*Session)(nil)
	_ CookieJar = (*Session)(nil)
	_ Page      = (*FakePage)(nil)
	_ CookieJar = (*FakePage)(nil)
)
