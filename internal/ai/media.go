// README: MediaAsset (remote URL or inline blob) and the conversions between URL, bytes and data URIs.
package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"
)

// DefaultImageMIME is assumed when an image's type cannot be detected.
const DefaultImageMIME = "image/jpeg"

var ErrInvalidDataURI = errors.New("invalid data uri")

// MediaAsset is either a remote URL or an inline payload.
type MediaAsset struct {
	URL    string `json:"url,omitempty"`
	Inline *Blob  `json:"-"`
}

func AssetFromURL(u string) MediaAsset { return MediaAsset{URL: u} }

func AssetFromBlob(b Blob) MediaAsset { return MediaAsset{Inline: &b} }

// IsInline reports whether the asset carries its bytes.
func (a MediaAsset) IsInline() bool { return a.Inline != nil }

// String renders the asset for storage or display: the URL, or a data URI.
func (a MediaAsset) String() string {
	if a.Inline != nil {
		return a.Inline.DataURI()
	}
	return a.URL
}

// ParseAsset interprets a stored value. Data URIs become inline assets,
// http(s) values stay remote, anything else is treated as bare base64 of
// DefaultImageMIME.
func ParseAsset(v string) (MediaAsset, error) {
	v = strings.TrimSpace(v)
	switch {
	case strings.HasPrefix(v, "data:"):
		b, err := ParseDataURI(v)
		if err != nil {
			return MediaAsset{}, err
		}
		return AssetFromBlob(b), nil
	case strings.HasPrefix(v, "http://"), strings.HasPrefix(v, "https://"):
		return AssetFromURL(v), nil
	default:
		data, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return MediaAsset{}, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
		}
		return AssetFromBlob(Blob{Data: data, MIMEType: DefaultImageMIME}), nil
	}
}

// DataURI encodes the blob as data:<mime>;base64,<payload>.
func (b Blob) DataURI() string {
	mime := b.MIMEType
	if mime == "" {
		mime = "application/octet-stream"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(b.Data)
}

// ParseDataURI decodes a base64 data URI. A missing MIME type defaults to
// DefaultImageMIME.
func ParseDataURI(s string) (Blob, error) {
	if !strings.HasPrefix(s, "data:") {
		return Blob{}, ErrInvalidDataURI
	}
	header, payload, ok := strings.Cut(s[len("data:"):], ",")
	if !ok {
		return Blob{}, ErrInvalidDataURI
	}
	mime, params, _ := strings.Cut(header, ";")
	if !strings.Contains(params, "base64") {
		return Blob{}, fmt.Errorf("%w: only base64 payloads are supported", ErrInvalidDataURI)
	}
	if mime == "" {
		mime = DefaultImageMIME
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Blob{}, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	return Blob{Data: data, MIMEType: mime}, nil
}

// DefaultMaxMediaBytes caps a single download.
const DefaultMaxMediaBytes = 64 << 20

var (
	ErrMediaTooLarge  = errors.New("media exceeds size limit")
	ErrDisallowedHost = errors.New("media host is not publicly routable")
	ErrUnsupportedURL = errors.New("media url must be http or https")
)

// Fetcher downloads remote media. HTTP serves provider file downloads.
// Public serves user-supplied URLs; when nil, a client that refuses
// loopback, private and link-local destinations is used.
type Fetcher struct {
	HTTP     *http.Client
	Public   *http.Client
	MaxBytes int64
}

// NewFetcher uses a client with a 2 minute timeout; ctx cancellation still applies.
func NewFetcher() *Fetcher {
	return &Fetcher{HTTP: &http.Client{Timeout: 2 * time.Minute}}
}

var publicClient = &http.Client{
	Timeout: 2 * time.Minute,
	Transport: &http.Transport{
		// no proxy: the dial check must see the real destination
		Proxy: nil,
		DialContext: (&net.Dialer{
			Timeout: 10 * time.Second,
			Control: func(_, address string, _ syscall.RawConn) error {
				host, _, err := net.SplitHostPort(address)
				if err != nil {
					return err
				}
				return publicHost(host)
			},
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}

// publicHost rejects literal addresses that are not globally routable.
// Names pass here and are checked again on dial.
func publicHost(host string) error {
	if strings.EqualFold(host, "localhost") {
		return ErrDisallowedHost
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return nil
	}
	ip = ip.Unmap()
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast() {
		return fmt.Errorf("%w: %s", ErrDisallowedHost, ip)
	}
	return nil
}

func (f *Fetcher) limit() int64 {
	if f.MaxBytes > 0 {
		return f.MaxBytes
	}
	return DefaultMaxMediaBytes
}

// Fetch GETs rawURL and returns its body. When key is non-empty it is sent as
// the "key" query parameter, which is how provider file URIs authenticate.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, key string) (*Blob, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse media url: %w", err)
	}
	if key != "" {
		q := u.Query()
		q.Set("key", key)
		u.RawQuery = q.Encode()
	}
	client := f.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	return f.get(ctx, client, u)
}

// Resolve returns the asset's bytes. Remote assets are user input: they are
// fetched without a key and only from public hosts.
func (f *Fetcher) Resolve(ctx context.Context, a MediaAsset) (*Blob, error) {
	if a.Inline != nil {
		return a.Inline, nil
	}
	if a.URL == "" {
		return nil, errors.New("empty media asset")
	}
	u, err := url.Parse(a.URL)
	if err != nil {
		return nil, fmt.Errorf("parse media url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, ErrUnsupportedURL
	}
	client := f.Public
	if client == nil {
		if err := publicHost(u.Hostname()); err != nil {
			return nil, err
		}
		client = publicClient
	}
	return f.get(ctx, client, u)
}

func (f *Fetcher) get(ctx context.Context, client *http.Client, u *url.URL) (*Blob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build media request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch media: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch media: unexpected status %d", resp.StatusCode)
	}

	capBytes := f.limit()
	if resp.ContentLength > capBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrMediaTooLarge, resp.ContentLength)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, capBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read media: %w", err)
	}
	if int64(len(data)) > capBytes {
		return nil, fmt.Errorf("%w: over %d bytes", ErrMediaTooLarge, capBytes)
	}
	mime := resp.Header.Get("Content-Type")
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return &Blob{Data: data, MIMEType: mime}, nil
}
