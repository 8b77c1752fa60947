package attendance

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPMatcher calls an external face recognition service. The service takes
// a base64 frame and answers with the enrolled label (an employee email) and
// a confidence score.
type HTTPMatcher struct {
	endpoint string
	client   *http.Client
}

// NewHTTPMatcher points the matcher at a recognition endpoint.
func NewHTTPMatcher(endpoint string) *HTTPMatcher {
	return &HTTPMatcher{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type matchRequest struct {
	Image string `json:"image"`
}

type matchResponse struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

func (m *HTTPMatcher) MatchFace(ctx context.Context, frame []byte) (Match, error) {
	if len(frame) == 0 {
		return Match{}, ErrInvalidInput
	}
	body, err := json.Marshal(matchRequest{Image: base64.StdEncoding.EncodeToString(frame)})
	if err != nil {
		return Match{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return Match{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return Match{}, fmt.Errorf("face match: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Match{}, ErrNoMatch
	case resp.StatusCode != http.StatusOK:
		return Match{}, fmt.Errorf("face match: unexpected status %d", resp.StatusCode)
	}

	var out matchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return Match{}, fmt.Errorf("face match: decode: %w", err)
	}
	if out.Label == "" {
		return Match{}, ErrNoMatch
	}
	return Match{Label: out.Label, Confidence: out.Confidence}, nil
}
