package auth

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"unicode"

	"google.golang.org/grpc/metadata"
)

// Credentials is the (scheme, payload) pair taken from one header value.
type Credentials struct {
	// Scheme is the resolved authentication scheme.
	Scheme Scheme

	// Label is the scheme label exactly as sent by the client.
	Label string

	// Value is the credentials payload.
	Value string
}

// ParseAuthorization splits an Authorization header value into its scheme
// and credentials payload.
//
// The split happens at the first whitespace run, by position, so a payload
// that happens to contain the scheme word is never altered.
func ParseAuthorization(header string) (*Credentials, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, ErrMissingCredentials
	}

	label, payload := header, ""
	if i := strings.IndexFunc(header, unicode.IsSpace); i >= 0 {
		label = header[:i]
		payload = strings.TrimSpace(header[i:])
	}

	scheme, ok := ParseScheme(label)
	if !ok {
		return nil, ErrUnsupportedScheme
	}

	if payload == "" {
		return nil, ErrMalformedHeader
	}

	return &Credentials{
		Scheme: scheme,
		Label:  label,
		Value:  payload,
	}, nil
}

// DecodeCredentials returns a copy of c with its payload base64-decoded.
// Both padded and unpadded standard encodings are accepted.
func DecodeCredentials(c *Credentials) (*Credentials, error) {
	if c == nil {
		return nil, ErrMissingCredentials
	}

	decoded, err := base64.StdEncoding.DecodeString(c.Value)
	if err != nil {
		decoded, err = base64.RawStdEncoding.DecodeString(c.Value)
		if err != nil {
			return nil, NewAuthErrorWithCause(c.Scheme.String(), "credentials are not base64", ErrMalformedHeader)
		}
	}

	return &Credentials{
		Scheme: c.Scheme,
		Label:  c.Label,
		Value:  string(decoded),
	}, nil
}

// Extractor extracts credentials from requests.
type Extractor interface {
	// Extract extracts credentials from an HTTP request.
	Extract(r *http.Request) (*Credentials, error)

	// ExtractFromGRPC extracts credentials from incoming gRPC metadata.
	ExtractFromGRPC(ctx context.Context) (*Credentials, error)
}

// extractor implements the Extractor interface.
type extractor struct {
	config *ExtractionConfig
}

// NewExtractor creates a new credential extractor.
func NewExtractor(config *ExtractionConfig) Extractor {
	if config == nil {
		config = &ExtractionConfig{}
	}
	cfg := *config
	if cfg.Header == "" {
		cfg.Header = HeaderAuthorization
	}
	return &extractor{config: &cfg}
}

// Extract extracts credentials from an HTTP request.
func (e *extractor) Extract(r *http.Request) (*Credentials, error) {
	return e.parse(r.Header.Get(e.config.Header))
}

// ExtractFromGRPC extracts credentials from incoming gRPC metadata.
func (e *extractor) ExtractFromGRPC(ctx context.Context) (*Credentials, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, ErrMissingCredentials
	}

	values := md.Get(strings.ToLower(e.config.Header))
	if len(values) == 0 {
		return nil, ErrMissingCredentials
	}

	return e.parse(values[0])
}

func (e *extractor) parse(header string) (*Credentials, error) {
	creds, err := ParseAuthorization(header)
	if err != nil {
		return nil, err
	}
	if e.config.DecodeBase64 {
		return DecodeCredentials(creds)
	}
	return creds, nil
}

// Ensure extractor implements Extractor.
var _ Extractor = (*extractor)(nil)
