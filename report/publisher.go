package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
)

// Publisher uploads reports to a collection endpoint.
type Publisher interface {
	// Publish posts d and returns the round-trip duration.
	Publish(ctx context.Context, d *Document) (time.Duration, error)
}

// publisher implements Publisher.
type publisher struct {
	log        logrus.FieldLogger
	httpClient *http.Client
	endpoint   string
	jwtSecret  []byte
}

// NewPublisher creates a publisher posting to endpoint. With a non-empty
// secret every request carries an HS256 bearer token.
func NewPublisher(log logrus.FieldLogger, endpoint string, jwtSecret []byte) Publisher {
	return &publisher{
		log:        log.WithField("component", "report-publisher"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		endpoint:   endpoint,
		jwtSecret:  jwtSecret,
	}
}

func (p *publisher) generateJWT(runID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iat": time.Now().Unix(),
		"sub": runID,
	})
	return token.SignedString(p.jwtSecret)
}

// Publish posts d as JSON.
func (p *publisher) Publish(ctx context.Context, d *Document) (time.Duration, error) {
	body, err := json.Marshal(d)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if len(p.jwtSecret) > 0 {
		token, err := p.generateJWT(d.RunID)
		if err != nil {
			return 0, fmt.Errorf("failed to generate JWT: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		return duration, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return duration, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return duration, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(respBody))
	}

	p.log.WithFields(logrus.Fields{
		"runID":    d.RunID,
		"endpoint": p.endpoint,
		"duration": duration,
		"bytes":    len(body),
	}).Info("Report published")

	return duration, nil
}

// Verify interface compliance.
var _ Publisher = (*publisher)(nil)
