package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sambabib/depfresh/pkg/logger"
)

const (
	DefaultNpmRegistryURL = "https://registry.npmjs.org"
	DefaultRequestTimeout = 10 * time.Second

	// metadata documents for large packages run to tens of megabytes
	maxMetadataBytes = 64 << 20
)

// FetchErrorKind classifies a failed registry lookup.
type FetchErrorKind int

const (
	FetchTransport FetchErrorKind = iota
	FetchNotFound
	FetchMalformed
)

func (k FetchErrorKind) String() string {
	switch k {
	case FetchNotFound:
		return "not found"
	case FetchMalformed:
		return "malformed response"
	default:
		return "fetch failed"
	}
}

// FetchError is returned by NpmRegistry.FetchLatest.
type FetchError struct {
	Kind       FetchErrorKind
	Package    string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Package, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a FetchError for a package missing from the registry.
func IsNotFound(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == FetchNotFound
}

// RegistryOptions configures an NpmRegistry.
type RegistryOptions struct {
	URL       string        // registry base URL, DefaultNpmRegistryURL when empty
	Timeout   time.Duration // per request, DefaultRequestTimeout when zero
	UserAgent string
	Client    *http.Client // optional, for tests
}

// NpmRegistry looks up dist-tags in an npm compatible registry.
type NpmRegistry struct {
	baseURL   string
	timeout   time.Duration
	userAgent string
	client    *http.Client
}

// NewNpmRegistry validates the options and builds a registry client.
func NewNpmRegistry(opts RegistryOptions) (*NpmRegistry, error) {
	base := strings.TrimSpace(opts.URL)
	if base == "" {
		base = DefaultNpmRegistryURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse registry url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("registry url %q must use http or https", base)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("registry url %q has no host", base)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultRequestTimeout
	}
	client := opts.Client
	if client == nil {
		transport := &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: opts.Timeout, KeepAlive: 30 * time.Second}).DialContext,
			TLSHandshakeTimeout:   opts.Timeout,
			MaxIdleConnsPerHost:   32,
			IdleConnTimeout:       90 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}
		client = &http.Client{Transport: transport}
	}
	return &NpmRegistry{
		baseURL:   strings.TrimRight(base, "/"),
		timeout:   opts.Timeout,
		userAgent: opts.UserAgent,
		client:    client,
	}, nil
}

// URL returns the registry base URL.
func (r *NpmRegistry) URL() string {
	return r.baseURL
}

// PackageURL returns the metadata endpoint for name. Scoped names keep their
// leading "@" and have the slash escaped, as the npm registry expects.
func (r *NpmRegistry) PackageURL(name string) string {
	return r.baseURL + "/" + url.PathEscape(name)
}

type packageInfo struct {
	DistTags map[string]string `json:"dist-tags"`
}

// FetchLatest returns the "latest" dist-tag of name. It issues exactly one
// request and does not retry.
func (r *NpmRegistry) FetchLatest(ctx context.Context, name string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	endpoint := r.PackageURL(name)
	logger.Debugf("[npm] GET %s", endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", &FetchError{Kind: FetchTransport, Package: name, Err: err}
	}
	// the abbreviated document is enough for dist-tags and much smaller
	req.Header.Set("Accept", "application/vnd.npm.install-v1+json; q=1.0, application/json; q=0.8")
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", &FetchError{Kind: FetchTransport, Package: name, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", &FetchError{Kind: FetchNotFound, Package: name, StatusCode: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", &FetchError{Kind: FetchTransport, Package: name, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMetadataBytes))
	if err != nil {
		return "", &FetchError{Kind: FetchTransport, Package: name, StatusCode: resp.StatusCode, Err: err}
	}
	var info packageInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return "", &FetchError{Kind: FetchMalformed, Package: name, StatusCode: resp.StatusCode, Err: err}
	}
	latest := strings.TrimSpace(info.DistTags["latest"])
	if latest == "" {
		return "", &FetchError{Kind: FetchMalformed, Package: name, StatusCode: resp.StatusCode, Err: errors.New("no dist-tags.latest in response")}
	}
	return latest, nil
}
