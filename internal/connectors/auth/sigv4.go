package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/streetvisit/carbon-recycling-platform/internal/connectors/connector"
)

const (
	defaultSigV4Session = time.Hour
	emptyPayloadHash    = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
)

// SigV4 signs requests with an AWS access key pair. Authenticate resolves the
// key pair into a signing session recorded as access_token / expires_at.
type SigV4 struct {
	Service string
	// Region is used when the credentials carry no region field.
	Region  string
	Session time.Duration
	Now     func() time.Time
	// LoadConfig defaults to config.LoadDefaultConfig.
	LoadConfig func(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error)
}

func (s *SigV4) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *SigV4) region(creds *connector.Credentials) string {
	if r := creds.Get(FieldRegion); r != "" {
		return r
	}
	return s.Region
}

func (s *SigV4) Scheme() connector.AuthScheme { return connector.AuthSigV4 }

func (s *SigV4) RequiredFields() []string {
	return []string{FieldAccessKeyID, FieldSecretAccessKey}
}

func (s *SigV4) IsAuthenticated(creds *connector.Credentials, now time.Time) bool {
	return creds.HasValidToken(now) && creds.HasAll(s.RequiredFields())
}

func (s *SigV4) Authenticate(ctx context.Context, creds *connector.Credentials) error {
	if err := requireFields(creds, s.RequiredFields()...); err != nil {
		return err
	}
	region := s.region(creds)
	if region == "" {
		return fmt.Errorf("%w: %s", connector.ErrMissingCredentials, FieldRegion)
	}

	load := s.LoadConfig
	if load == nil {
		load = config.LoadDefaultConfig
	}
	cfg, err := load(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			creds.Get(FieldAccessKeyID),
			creds.Get(FieldSecretAccessKey),
			creds.Get(FieldSessionToken),
		)),
	)
	if err != nil {
		return fmt.Errorf("aws config: %w", err)
	}
	resolved, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", connector.ErrInvalidCredentials, err)
	}
	if !resolved.HasKeys() {
		return fmt.Errorf("%w: empty aws key pair", connector.ErrInvalidCredentials)
	}

	session := s.Session
	if session <= 0 {
		session = defaultSigV4Session
	}
	expiresAt := s.now().Add(session)
	if resolved.CanExpire && resolved.Expires.Before(expiresAt) {
		expiresAt = resolved.Expires
	}
	creds.SetToken(resolved.AccessKeyID, expiresAt)
	return nil
}

func (s *SigV4) Apply(ctx context.Context, req *http.Request, creds *connector.Credentials) error {
	if err := requireFields(creds, s.RequiredFields()...); err != nil {
		return err
	}
	if s.Service == "" {
		return errors.New("sigv4 service name is required")
	}
	payloadHash, err := hashBody(req)
	if err != nil {
		return err
	}
	req.Header.Set("X-Amz-Content-Sha256", payloadHash)
	return v4.NewSigner().SignHTTP(ctx, aws.Credentials{
		AccessKeyID:     creds.Get(FieldAccessKeyID),
		SecretAccessKey: creds.Get(FieldSecretAccessKey),
		SessionToken:    creds.Get(FieldSessionToken),
	}, req, payloadHash, s.Service, s.region(creds), s.now())
}

func hashBody(req *http.Request) (string, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return emptyPayloadHash, nil
	}
	if req.GetBody == nil {
		return "", errors.New("sigv4 requires a replayable request body")
	}
	body, err := req.GetBody()
	if err != nil {
		return "", err
	}
	defer body.Close()
	h := sha256.New()
	if _, err := io.Copy(h, body); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
