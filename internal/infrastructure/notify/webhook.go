package notify

import (
	"context"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/sourcegraph/conc"
	"github.com/valyala/fasthttp"

	"github.com/ozfantasy/trade-window/internal/platform/logging"
	"github.com/ozfantasy/trade-window/internal/platform/resilience"
	"github.com/ozfantasy/trade-window/internal/usecase"
)

type WebhookConfig struct {
	URL            string
	Token          string
	Timeout        time.Duration
	CircuitBreaker resilience.CircuitBreakerConfig
}

// WebhookNotifier delivers trade events to a league-configured webhook.
// Delivery is fire-and-forget: NotifyTrade returns immediately and failures
// are logged, never surfaced to the trade path.
type WebhookNotifier struct {
	client         *fasthttp.Client
	url            string
	token          string
	timeout        time.Duration
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	inflight       conc.WaitGroup
}

func NewWebhookNotifier(cfg WebhookConfig, logger *logging.Logger) *WebhookNotifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &WebhookNotifier{
		client:         &fasthttp.Client{MaxIdleConnDuration: time.Minute},
		url:            strings.TrimSpace(cfg.URL),
		token:          strings.TrimSpace(cfg.Token),
		timeout:        timeout,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

func (n *WebhookNotifier) NotifyTrade(ctx context.Context, event usecase.TradeEvent) {
	if n.url == "" {
		return
	}

	n.inflight.Go(func() {
		if err := n.deliver(event); err != nil {
			n.logger.WarnContext(ctx, "trade webhook delivery failed",
				"trade_id", event.TradeID, "league_id", event.LeagueID, "error", err)
			return
		}
		n.logger.DebugContext(ctx, "trade webhook delivered", "trade_id", event.TradeID)
	})
}

// Close waits for in-flight deliveries to finish.
func (n *WebhookNotifier) Close() {
	n.inflight.Wait()
}

func (n *WebhookNotifier) deliver(event usecase.TradeEvent) error {
	if n.circuitEnabled {
		if err := n.breaker.Allow(); err != nil {
			return crerr.Wrap(err, "webhook circuit open")
		}
	}

	body, err := sonic.Marshal(event)
	if err != nil {
		return crerr.Wrap(err, "marshal trade event")
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(n.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}
	req.SetBody(body)

	if err := n.client.DoTimeout(req, resp, n.timeout); err != nil {
		n.recordFailure()
		return crerr.Wrap(err, "post trade event")
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		n.recordFailure()
		return crerr.Newf("webhook responded %d", status)
	}

	if n.circuitEnabled {
		n.breaker.RecordSuccess()
	}
	return nil
}

func (n *WebhookNotifier) recordFailure() {
	if n.circuitEnabled {
		n.breaker.RecordFailure()
	}
}
