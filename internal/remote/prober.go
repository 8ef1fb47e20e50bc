package remote

import (
	"context"
	"net/http"
	"time"

	"github.com/knockerapp/fieldsync/pkg/config"
	pkgerrors "github.com/knockerapp/fieldsync/pkg/errors"
	"github.com/knockerapp/fieldsync/pkg/logger"
)

// Prober answers the single question the sync coordinator asks before a
// cycle: can we reach the API right now. It deliberately issues a cheap
// HEAD request with its own short timeout instead of reusing the full
// request timeout, so an offline device fails fast.
type Prober struct {
	probeURL   string
	httpClient *http.Client
	log        *logger.Logger
}

// ProberParams carries the dependencies for NewProber.
type ProberParams struct {
	Config config.RemoteConfig
	Log    *logger.Logger

	HTTPClient *http.Client
}

// NewProber validates params and builds a Prober.
func NewProber(params ProberParams) (*Prober, error) {
	if params.Config.ProbeURL() == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "remote: probe URL is required")
	}
	if params.Log == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "remote: Log is required")
	}
	httpClient := params.HTTPClient
	if httpClient == nil {
		timeout := params.Config.ReachabilityTimeout
		if timeout <= 0 {
			timeout = 3 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Prober{
		probeURL:   params.Config.ProbeURL(),
		httpClient: httpClient,
		log:        params.Log,
	}, nil
}

// Reachable reports whether the remote answered the probe at all. Any
// HTTP status counts as reachable; only transport failures mean offline.
func (p *Prober) Reachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.probeURL, nil)
	if err != nil {
		return false
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.log.Debug(ctx, "reachability probe failed, treating as offline")
		return false
	}
	resp.Body.Close()
	return true
}
