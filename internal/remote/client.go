// Package remote talks to the hosted CRM API on behalf of the sync
// subsystem. It is the only package that issues outbound HTTP; everything
// above it sees domain types and coded errors.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/knockerapp/fieldsync/internal/valuesets"
	"github.com/knockerapp/fieldsync/pkg/config"
	"github.com/knockerapp/fieldsync/pkg/enums"
	pkgerrors "github.com/knockerapp/fieldsync/pkg/errors"
	"github.com/knockerapp/fieldsync/pkg/logger"
)

// PushRequest is one queued mutation to replay against the remote API.
type PushRequest struct {
	EntityType enums.EntityKind
	EntityID   string
	Action     enums.SyncAction
	Payload    json.RawMessage
}

// PushResult reports what the remote assigned. ServerID is set only for
// creates, where the remote mints the canonical identifier.
type PushResult struct {
	ServerID string
}

// ClientParams carries the dependencies for NewClient.
type ClientParams struct {
	Config config.RemoteConfig
	Log    *logger.Logger

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Client is the HTTP client for the CRM API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient validates params and builds a Client.
func NewClient(params ClientParams) (*Client, error) {
	if params.Config.BaseURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "remote: BaseURL is required")
	}
	if params.Log == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "remote: Log is required")
	}
	httpClient := params.HTTPClient
	if httpClient == nil {
		timeout := params.Config.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(params.Config.BaseURL, "/"),
		httpClient: httpClient,
		log:        params.Log,
	}, nil
}

// entityPaths maps entity kinds to their collection path on the API.
var entityPaths = map[enums.EntityKind]string{
	enums.EntityProperty: "properties",
	enums.EntityEvent:    "events",
	enums.EntityLead:     "leads",
}

// PushAction replays one queued mutation. Creates POST to the collection,
// updates PATCH the resource, deletes DELETE it. The error code carries
// retryability: transport failures and 5xx responses are retryable,
// definitive 4xx rejections are not.
func (c *Client) PushAction(ctx context.Context, req PushRequest) (PushResult, error) {
	path, ok := entityPaths[req.EntityType]
	if !ok {
		return PushResult{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown entity type %q", req.EntityType))
	}

	var (
		method   string
		endpoint string
		body     io.Reader
	)
	switch req.Action {
	case enums.ActionCreate:
		method = http.MethodPost
		endpoint = c.baseURL + "/" + path
		body = bytes.NewReader(req.Payload)
	case enums.ActionUpdate:
		method = http.MethodPatch
		endpoint = c.baseURL + "/" + path + "/" + url.PathEscape(req.EntityID)
		body = bytes.NewReader(req.Payload)
	case enums.ActionDelete:
		method = http.MethodDelete
		endpoint = c.baseURL + "/" + path + "/" + url.PathEscape(req.EntityID)
	default:
		return PushResult{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown sync action %q", req.Action))
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return PushResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building sync request")
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return PushResult{}, pkgerrors.Wrap(pkgerrors.CodeNetwork, err, "pushing "+string(req.Action))
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return PushResult{}, err
	}

	if req.Action != enums.ActionCreate {
		return PushResult{}, nil
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return PushResult{}, pkgerrors.Wrap(pkgerrors.CodeRemote, err, "decoding create response")
	}
	if created.ID == "" {
		return PushResult{}, pkgerrors.New(pkgerrors.CodeRemote, "create response missing id")
	}
	return PushResult{ServerID: created.ID}, nil
}

// FetchValueSet retrieves a reference picklist from the CRM.
func (c *Client) FetchValueSet(ctx context.Context, name string) ([]valuesets.Entry, error) {
	endpoint := c.baseURL + "/valuesets/" + url.PathEscape(name)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building value set request")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNetwork, err, "fetching value set "+name)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return nil, err
	}

	var payload struct {
		Values []valuesets.Entry `json:"values"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeRemote, err, "decoding value set "+name)
	}
	return payload.Values, nil
}

// classifyStatus turns a non-2xx response into a coded error. The body is
// read for operator context but truncated so a misbehaving server cannot
// flood logs.
func classifyStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := fmt.Sprintf("remote returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return pkgerrors.New(pkgerrors.CodeRemote, msg)
	case resp.StatusCode == http.StatusConflict:
		return pkgerrors.New(pkgerrors.CodeConflict, msg)
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, msg)
	}
}
