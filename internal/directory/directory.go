// Package directory resolves internal user ids to the external
// identities that realtime channels are keyed by. The lookup is a
// single best-effort read; dispatch treats a failure as a skipped
// delivery, never as a fatal error.
package directory

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"gorm.io/gorm"

	"mentorloop-backend/internal/models"
)

type Directory interface {
	ResolveIdentity(ctx context.Context, userID string) (string, error)
}

// HTTPDirectory resolves identities against an external user directory
// over HTTP.
type HTTPDirectory struct {
	baseURL string
	client  *http.Client
}

func NewHTTPDirectory(baseURL string) *HTTPDirectory {
	return &HTTPDirectory{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (d *HTTPDirectory) ResolveIdentity(ctx context.Context, userID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/users/%s", d.baseURL, userID), nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("directory returned status %d for user %s", resp.StatusCode, userID)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	externalID := gjson.GetBytes(body, "external_id")
	if !externalID.Exists() || externalID.String() == "" {
		return "", fmt.Errorf("directory response has no external_id for user %s", userID)
	}
	return externalID.String(), nil
}

// LocalDirectory is the fallback when no external directory is
// configured: the user's own id is the identity, checked for existence.
type LocalDirectory struct {
	db *gorm.DB
}

func NewLocalDirectory(db *gorm.DB) *LocalDirectory {
	return &LocalDirectory{db: db}
}

func (d *LocalDirectory) ResolveIdentity(ctx context.Context, userID string) (string, error) {
	user, err := models.GetUserByID(d.db.WithContext(ctx), userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", fmt.Errorf("user %s not found", userID)
	}
	return user.ID, nil
}
