package check

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mailscope/mailscope/internal/parse"
	"github.com/mailscope/mailscope/types"
)

// DefaultGravatarBase is the public avatar endpoint.
const DefaultGravatarBase = "https://www.gravatar.com/avatar"

// defaultImageHash is the md5 of the stock default image some
// mirrors serve with status 200 instead of honoring d=404.
const defaultImageHash = "d5fe5cbcc31cff5f8ac010db72eb000c"

// GravatarConfig configures the avatar presence check.
type GravatarConfig struct {
	// Base is the endpoint prefix, default DefaultGravatarBase.
	Base string
	// Timeout bounds the HTTP request, default 10s.
	Timeout time.Duration
}

// GravatarChecker probes a hash-keyed avatar endpoint for a mailbox
// image. Presence of an avatar is weak evidence that a human owns the
// address.
type GravatarChecker struct {
	cfg    GravatarConfig
	client *http.Client
}

func NewGravatarChecker(cfg GravatarConfig) *GravatarChecker {
	if cfg.Base == "" {
		cfg.Base = DefaultGravatarBase
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &GravatarChecker{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Check hashes the address with the plus-tag removed and asks the
// endpoint for the avatar, requesting a 404 for default images.
// It returns the avatar URL and whether one exists. A non-404 HTTP
// failure is a *types.ConnectionError.
func (c *GravatarChecker) Check(ctx context.Context, addr parse.Address) (string, bool, error) {
	sum := md5.Sum([]byte(strings.ToLower(addr.String())))
	hash := hex.EncodeToString(sum[:])
	avatarURL := fmt.Sprintf("%s/%s", c.cfg.Base, hash)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, avatarURL+"?d=404", nil)
	if err != nil {
		return "", false, &types.ConnectionError{Op: "build avatar request", Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", false, &types.ConnectionError{Op: "avatar lookup for " + addr.String(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", false, &types.ConnectionError{Op: "read avatar response", Err: err}
		}
		bodySum := md5.Sum(body)
		if hex.EncodeToString(bodySum[:]) == defaultImageHash {
			return "", false, nil
		}
		return avatarURL, true, nil
	case resp.StatusCode == http.StatusNotFound:
		return "", false, nil
	default:
		return "", false, &types.ConnectionError{
			Op: fmt.Sprintf("avatar lookup for %s: unexpected status %d", addr.String(), resp.StatusCode),
		}
	}
}
