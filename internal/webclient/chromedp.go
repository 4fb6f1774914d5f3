package webclient

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/phishguard/phishguard/internal/logging"
)

// ChromeDPClient renders pages in a headless browser before returning their
// HTML. Used for targets whose content only exists after JavaScript runs.
type ChromeDPClient struct {
	cfg       Config
	logger    logging.Logger
	idleAfter time.Duration
}

// NewChromeDPClient builds the rendered-fetch backend.
func NewChromeDPClient(cfg Config, logger logging.Logger) (*ChromeDPClient, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ChromeDPClient{
		cfg:       cfg,
		logger:    logger.With(logging.Field{Key: "component", Value: "webclient-chromedp"}),
		idleAfter: 2 * time.Second,
	}, nil
}

// waitNetworkIdle signals once no network request has been in flight for
// idleAfter. The returned channel is closed at most once.
func waitNetworkIdle(ctx context.Context, idleAfter time.Duration) <-chan struct{} {
	idleChan := make(chan struct{})
	var activeReqs int32
	var timerMu sync.Mutex
	var timer *time.Timer
	var once sync.Once

	startTimer := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(idleAfter, func() {
			if atomic.LoadInt32(&activeReqs) == 0 {
				once.Do(func() { close(idleChan) })
			}
		})
	}

	chromedp.ListenTarget(ctx, func(ev any) {
		switch ev.(type) {
		case *network.EventRequestWillBeSent:
			atomic.AddInt32(&activeReqs, 1)
		case *network.EventLoadingFinished, *network.EventLoadingFailed:
			if atomic.AddInt32(&activeReqs, -1) <= 0 {
				startTimer()
			}
		}
	})

	// Arm the timer so pages with zero subresources still go idle.
	startTimer()

	return idleChan
}

// Do navigates to req.URL, waits for network idle and returns the rendered
// outer HTML. Only GET-style navigation is supported.
func (cdc *ChromeDPClient) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}

	tabCtx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	var statusCode int64
	chromedp.ListenTarget(tabCtx, func(ev any) {
		if e, ok := ev.(*network.EventResponseReceived); ok {
			if e.Type == network.ResourceTypeDocument && statusCode == 0 {
				statusCode = e.Response.Status
			}
		}
	})

	idle := waitNetworkIdle(tabCtx, cdc.idleAfter)

	if err := chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.Navigate(req.URL),
	); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", req.URL, err)
	}

	select {
	case <-idle:
	case <-tabCtx.Done():
		return nil, fmt.Errorf("waiting for network idle: %w", tabCtx.Err())
	}

	var html string
	if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html)); err != nil {
		return nil, fmt.Errorf("extract html: %w", err)
	}

	body := []byte(html)
	if cdc.cfg.MaxBodyBytes > 0 && int64(len(body)) > cdc.cfg.MaxBodyBytes {
		body = body[:cdc.cfg.MaxBodyBytes]
	}

	status := int(statusCode)
	if status == 0 {
		status = http.StatusOK
	}

	return &Response{
		Request:    req,
		Body:       body,
		Headers:    http.Header{},
		StatusCode: status,
		FinalURL:   req.URL,
		FetchedAt:  time.Now(),
	}, nil
}

// Get fetches url with a rendered navigation.
func (cdc *ChromeDPClient) Get(ctx context.Context, url string) (*Response, error) {
	return cdc.Do(ctx, &Request{Method: http.MethodGet, URL: url})
}

func (cdc *ChromeDPClient) Close() error {
	cdc.logger.Debug("closing chromedp webclient")
	return nil
}
