package classifier

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"

	"github.com/elum-utils/toxicity/models"
)

const (
	defaultBaseURL   = "http://localhost:5000"
	defaultTextPath  = "/api/detect/text"
	defaultImagePath = "/api/detect/image"
	defaultTimeout   = 15 * time.Second
	minTextLength    = 3
)

// ErrTextTooShort is returned for texts the model service cannot evaluate.
var ErrTextTooShort = errors.New("classifier: text too short")

// HTTPClassifier calls an external model service exposing text and image
// detection endpoints. It implements both interfaces.TextClassifier and
// interfaces.ImageClassifier.
type HTTPClassifier struct {
	name      string
	client    *resty.Client
	textPath  string
	imagePath string
}

// Options configures the adapter.
type Options struct {
	Name      string
	BaseURL   string
	APIKey    string
	TextPath  string
	ImagePath string
	Timeout   time.Duration
}

// New creates the adapter. Only BaseURL is really needed; everything else
// has defaults.
func New(opt Options) (*HTTPClassifier, error) {
	if strings.TrimSpace(opt.BaseURL) == "" {
		opt.BaseURL = defaultBaseURL
	}
	if !strings.HasPrefix(opt.BaseURL, "http://") && !strings.HasPrefix(opt.BaseURL, "https://") {
		return nil, fmt.Errorf("classifier: invalid base URL %q", opt.BaseURL)
	}
	if strings.TrimSpace(opt.Name) == "" {
		opt.Name = "http"
	}
	if strings.TrimSpace(opt.TextPath) == "" {
		opt.TextPath = defaultTextPath
	}
	if strings.TrimSpace(opt.ImagePath) == "" {
		opt.ImagePath = defaultImagePath
	}
	if opt.Timeout <= 0 {
		opt.Timeout = defaultTimeout
	}

	client := resty.New().
		SetTimeout(opt.Timeout).
		SetBaseURL(strings.TrimRight(opt.BaseURL, "/")).
		SetHeader("Content-Type", "application/json")
	if opt.APIKey != "" {
		client.SetAuthToken(opt.APIKey)
	}
	return &HTTPClassifier{
		name:      opt.Name,
		client:    client,
		textPath:  opt.TextPath,
		imagePath: opt.ImagePath,
	}, nil
}

func (c *HTTPClassifier) Name() string { return c.name }

// ClassifyText scores text with the remote text model.
func (c *HTTPClassifier) ClassifyText(ctx context.Context, text string) (models.Verdict, error) {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < minTextLength {
		return models.Verdict{}, ErrTextTooShort
	}
	return c.post(ctx, c.textPath, map[string]string{"text": text})
}

// ClassifyImage scores raw image bytes with the remote image model.
func (c *HTTPClassifier) ClassifyImage(ctx context.Context, image []byte) (models.Verdict, error) {
	if len(image) == 0 {
		return models.Verdict{}, errors.New("classifier: image is empty")
	}
	return c.post(ctx, c.imagePath, map[string]string{"image": base64.StdEncoding.EncodeToString(image)})
}

type detectResponse struct {
	Success         bool     `json:"success"`
	IsCyberbullying bool     `json:"isCyberbullying"`
	Score           *float64 `json:"score"`
	Confidence      *float64 `json:"confidence"`
	Prediction      string   `json:"prediction"`
	Model           string   `json:"model"`
	Error           string   `json:"error"`
}

func (c *HTTPClassifier) post(ctx context.Context, path string, body any) (models.Verdict, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(path)
	if err != nil {
		return models.Verdict{}, err
	}
	if resp.StatusCode() >= http.StatusMultipleChoices {
		return models.Verdict{}, fmt.Errorf("classifier: status %d: %s", resp.StatusCode(), models.Excerpt(resp.String(), 200))
	}
	return parseVerdict(resp.Body())
}

func parseVerdict(body []byte) (models.Verdict, error) {
	var r detectResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return models.Verdict{}, fmt.Errorf("classifier: decode response: %w", err)
	}
	if r.Error != "" {
		return models.Verdict{}, fmt.Errorf("classifier: %s", r.Error)
	}
	score := r.Score
	if score == nil {
		score = r.Confidence
	}
	if score == nil {
		return models.Verdict{}, errors.New("classifier: response has no score")
	}
	if *score < 0 || *score > 1 {
		return models.Verdict{}, fmt.Errorf("classifier: score %v outside [0,1]", *score)
	}
	prediction := r.Prediction
	if prediction == "" {
		prediction = "non_cyberbullying"
		if r.IsCyberbullying {
			prediction = "cyberbullying"
		}
	}
	return models.Verdict{
		Toxic:      r.IsCyberbullying,
		Score:      *score,
		Prediction: prediction,
		Model:      r.Model,
	}, nil
}
