package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/blacktop/fbpost/internal/fbpost"
	"github.com/blacktop/fbpost/internal/logutil"
)

const (
	// DefaultAPIVersion is the Graph API version used when none is configured.
	DefaultAPIVersion = "v18.0"
	// DefaultBaseURL is the Graph API host.
	DefaultBaseURL = "https://graph.facebook.com"

	requestTimeout = 30 * time.Second
)

// Config holds the page credentials used to publish.
type Config struct {
	PageID      string
	AccessToken string
	APIVersion  string
}

// Client publishes to a Facebook Page through the Graph API.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL points the client at another Graph API host. It must use https.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(base, "/")
	}
}

// New constructs a Client. Credentials are not validated until a call needs them.
func New(cfg Config, opts ...Option) *Client {
	cfg.PageID = strings.TrimSpace(cfg.PageID)
	cfg.AccessToken = strings.TrimSpace(cfg.AccessToken)
	cfg.APIVersion = strings.TrimSpace(cfg.APIVersion)
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}

	c := &Client{
		cfg:        cfg,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Post publishes a single message. An image that does not exist on disk is
// ignored and the message is posted as text.
func (c *Client) Post(ctx context.Context, msg fbpost.Message) (fbpost.Response, error) {
	if err := c.requireCredentials(true); err != nil {
		return nil, err
	}
	return c.Publish(ctx, NewPlan(msg))
}

// PostMany combines msgs into one post: their texts joined by a blank line
// and their existing images attached in order.
func (c *Client) PostMany(ctx context.Context, msgs []fbpost.Message) (fbpost.Response, error) {
	if err := c.requireCredentials(true); err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, fbpost.InvalidArgumentError{Reason: "at least one message is required"}
	}
	return c.Publish(ctx, NewPlan(msgs...))
}

// Publish executes a prepared plan.
func (c *Client) Publish(ctx context.Context, plan Plan) (fbpost.Response, error) {
	if err := c.requireCredentials(true); err != nil {
		return nil, err
	}
	for _, path := range plan.Skipped {
		logutil.Debugf("image not found, posting without it: path=%s", path)
	}

	switch plan.Kind {
	case KindText:
		return c.postText(ctx, plan.Message)
	case KindPhoto:
		if len(plan.Images) != 1 {
			return nil, fbpost.InvalidArgumentError{Reason: fmt.Sprintf("photo post needs exactly one image, got %d", len(plan.Images))}
		}
		return c.postPhoto(ctx, plan.Message, plan.Images[0])
	case KindMultiPhoto:
		return c.postPhotos(ctx, plan.Message, plan.Images)
	}
	return nil, fbpost.InvalidArgumentError{Reason: fmt.Sprintf("unknown post kind %d", plan.Kind)}
}

// Me fetches the id and name of the actor owning the access token.
func (c *Client) Me(ctx context.Context) (*fbpost.Me, error) {
	if err := c.requireCredentials(false); err != nil {
		return nil, err
	}

	endpoint, err := c.endpoint("me")
	if err != nil {
		return nil, err
	}
	req, err := c.newGetRequest(ctx, endpoint, url.Values{
		"access_token": {c.cfg.AccessToken},
		"fields":       {"id,name"},
	})
	if err != nil {
		return nil, err
	}

	var identity fbpost.Identity
	if err := c.do(req, &identity); err != nil {
		return nil, err
	}
	return &fbpost.Me{Data: identity}, nil
}

func (c *Client) postText(ctx context.Context, message string) (fbpost.Response, error) {
	endpoint, err := c.endpoint(c.cfg.PageID, "feed")
	if err != nil {
		return nil, err
	}
	req, err := c.newFormRequest(ctx, endpoint, url.Values{
		"message":      {message},
		"access_token": {c.cfg.AccessToken},
	})
	if err != nil {
		return nil, err
	}

	var res fbpost.Response
	if err := c.do(req, &res); err != nil {
		return nil, err
	}
	logutil.Debugf("text post created: id=%s", res.ID())
	return res, nil
}

func (c *Client) postPhoto(ctx context.Context, message, imagePath string) (fbpost.Response, error) {
	endpoint, err := c.endpoint(c.cfg.PageID, "photos")
	if err != nil {
		return nil, err
	}
	req, err := c.newMultipartRequest(ctx, endpoint, url.Values{
		"message":      {message},
		"access_token": {c.cfg.AccessToken},
	}, imagePath)
	if err != nil {
		return nil, err
	}

	var res fbpost.Response
	if err := c.do(req, &res); err != nil {
		return nil, err
	}
	logutil.Debugf("photo post created: id=%s", res.ID())
	return res, nil
}

type attachedMedia struct {
	MediaFBID string `json:"media_fbid"`
}

// postPhotos uploads each image unpublished, one after another, then attaches
// the returned ids to a single feed post. Uploads that return no id are
// skipped; the post fails only when none succeeded.
func (c *Client) postPhotos(ctx context.Context, message string, imagePaths []string) (fbpost.Response, error) {
	media := make([]attachedMedia, 0, len(imagePaths))
	for i, path := range imagePaths {
		logutil.Debugf("uploading unpublished photo %d/%d: path=%s", i+1, len(imagePaths), path)
		res, err := c.uploadUnpublished(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("upload photo %q: %w", path, err)
		}
		id := res.ID()
		if id == "" {
			logutil.Warnf("photo upload returned no id, skipping: path=%s", path)
			continue
		}
		media = append(media, attachedMedia{MediaFBID: id})
	}
	if len(media) == 0 {
		return nil, fbpost.RemoteAPIError{Message: "Failed to upload photos"}
	}

	attached, err := json.Marshal(media)
	if err != nil {
		return nil, fmt.Errorf("encode attached media: %w", err)
	}

	endpoint, err := c.endpoint(c.cfg.PageID, "feed")
	if err != nil {
		return nil, err
	}
	req, err := c.newFormRequest(ctx, endpoint, url.Values{
		"message":        {message},
		"access_token":   {c.cfg.AccessToken},
		"attached_media": {string(attached)},
	})
	if err != nil {
		return nil, err
	}

	var res fbpost.Response
	if err := c.do(req, &res); err != nil {
		return nil, err
	}
	logutil.Debugf("multi-photo post created: id=%s media_count=%d", res.ID(), len(media))
	return res, nil
}

func (c *Client) uploadUnpublished(ctx context.Context, imagePath string) (fbpost.Response, error) {
	endpoint, err := c.endpoint(c.cfg.PageID, "photos")
	if err != nil {
		return nil, err
	}
	req, err := c.newMultipartRequest(ctx, endpoint, url.Values{
		"access_token": {c.cfg.AccessToken},
		"published":    {"false"},
	}, imagePath)
	if err != nil {
		return nil, err
	}

	var res fbpost.Response
	if err := c.do(req, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// requireCredentials checks the configuration a call needs before any
// request is built.
func (c *Client) requireCredentials(needPage bool) error {
	var missing []string
	if needPage && c.cfg.PageID == "" {
		missing = append(missing, "page id")
	}
	if c.cfg.AccessToken == "" {
		missing = append(missing, "access token")
	}
	if len(missing) > 0 {
		return fbpost.ConfigurationError{Missing: missing}
	}

	u, err := url.Parse(c.baseURL)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return fbpost.ConfigurationError{Reason: fmt.Sprintf("graph API base URL %q must be an https URL", c.baseURL)}
	}
	return nil
}

func (c *Client) endpoint(elem ...string) (string, error) {
	endpoint, err := url.JoinPath(c.baseURL, append([]string{c.cfg.APIVersion}, elem...)...)
	if err != nil {
		return "", fbpost.ConfigurationError{Reason: fmt.Sprintf("build endpoint: %v", err)}
	}
	return endpoint, nil
}
