package recognition

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	visionEndpoint = "https://vision.googleapis.com/v1/images:annotate"
	visionScope    = "https://www.googleapis.com/auth/cloud-vision"
)

// VisionBackend calls the Cloud Vision document text detection API.
type VisionBackend struct {
	client   *http.Client
	endpoint string
}

// NewVisionBackend accepts either the service account JSON itself or a path
// to it. The backend reports unavailable when neither yields credentials.
func NewVisionBackend(ctx context.Context, credentials string) *VisionBackend {
	creds, err := parseCredentials(ctx, credentials)
	if err != nil {
		slog.Warn("cloud vision disabled", "error", err)
		return &VisionBackend{endpoint: visionEndpoint}
	}
	return &VisionBackend{
		client:   oauth2.NewClient(ctx, creds.TokenSource),
		endpoint: visionEndpoint,
	}
}

func parseCredentials(ctx context.Context, blob string) (*google.Credentials, error) {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return nil, fmt.Errorf("no credentials configured")
	}
	if !strings.HasPrefix(blob, "{") {
		data, err := os.ReadFile(blob)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		blob = string(data)
	}
	creds, err := google.CredentialsFromJSON(ctx, []byte(blob), visionScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	return creds, nil
}

func (v *VisionBackend) Name() string { return "cloud-vision" }

func (v *VisionBackend) Available() bool { return v.client != nil }

func (v *VisionBackend) Modes() []Mode { return []Mode{ModeDefault} }

type visionRequest struct {
	Requests []visionImageRequest `json:"requests"`
}

type visionImageRequest struct {
	Image    visionImage     `json:"image"`
	Features []visionFeature `json:"features"`
}

type visionImage struct {
	Content string `json:"content"`
}

type visionFeature struct {
	Type string `json:"type"`
}

type visionResponse struct {
	Responses []struct {
		FullTextAnnotation *struct {
			Text string `json:"text"`
		} `json:"fullTextAnnotation"`
		TextAnnotations []struct {
			Description string `json:"description"`
		} `json:"textAnnotations"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"responses"`
}

func (v *VisionBackend) Recognize(ctx context.Context, img image.Image, _ Mode) (string, error) {
	if !v.Available() {
		return "", ErrBackendUnavailable
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}
	body, err := json.Marshal(visionRequest{Requests: []visionImageRequest{{
		Image:    visionImage{Content: base64.StdEncoding.EncodeToString(buf.Bytes())},
		Features: []visionFeature{{Type: "DOCUMENT_TEXT_DETECTION"}},
	}}})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("vision request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("vision returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed visionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode vision response: %w", err)
	}
	if len(parsed.Responses) == 0 {
		return "", nil
	}
	r := parsed.Responses[0]
	if r.Error != nil && r.Error.Message != "" {
		return "", fmt.Errorf("vision error %d: %s", r.Error.Code, r.Error.Message)
	}
	if r.FullTextAnnotation != nil && r.FullTextAnnotation.Text != "" {
		return r.FullTextAnnotation.Text, nil
	}
	if len(r.TextAnnotations) > 0 {
		return r.TextAnnotations[0].Description, nil
	}
	return "", nil
}
