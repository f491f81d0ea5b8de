// Package questions fetches multiple-choice trivia from the Open Trivia
// Database. It owns the collaborator duties the game engine refuses:
// HTML-entity decoding and fixing the option order before broadcast.
package questions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/battleiq/quiz-battle-backend/internal/engine"
)

const DefaultBaseURL = "https://opentdb.com"

var ErrSourceUnavailable = errors.New("question source unavailable")
var ErrNoResults = errors.New("question source returned no results")

type Client struct {
	httpc   *http.Client
	baseURL string
	log     *zap.Logger
}

func NewClient(baseURL string, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpc:   &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		log:     log,
	}
}

type apiResponse struct {
	ResponseCode int           `json:"response_code"`
	Results      []apiQuestion `json:"results"`
}

type apiQuestion struct {
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

// Fetch retrieves amount questions, optionally restricted to a category.
// All failures wrap ErrSourceUnavailable so callers can report a single
// retryable fetch-error without touching room state.
func (c *Client) Fetch(ctx context.Context, amount, category int) ([]engine.Question, error) {
	q := url.Values{}
	q.Set("amount", strconv.Itoa(amount))
	q.Set("type", "multiple")
	if category > 0 {
		q.Set("category", strconv.Itoa(category))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api.php?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrSourceUnavailable, resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if body.ResponseCode != 0 {
		return nil, fmt.Errorf("%w: response_code %d", ErrSourceUnavailable, body.ResponseCode)
	}
	if len(body.Results) == 0 {
		return nil, ErrNoResults
	}

	out := make([]engine.Question, 0, len(body.Results))
	for _, r := range body.Results {
		correct := html.UnescapeString(r.CorrectAnswer)
		options := make([]string, 0, len(r.IncorrectAnswers)+1)
		for _, a := range r.IncorrectAnswers {
			options = append(options, html.UnescapeString(a))
		}
		options = append(options, correct)
		// Fixed, deterministic order at broadcast time.
		slices.Sort(options)

		out = append(out, engine.Question{
			Prompt:        html.UnescapeString(r.Question),
			Options:       options,
			CorrectAnswer: correct,
		})
	}

	c.log.Debug("fetched questions", zap.Int("count", len(out)), zap.Int("category", category))
	return out, nil
}
