package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/chxlky/forum-trello-sync/internal/apperr"
	"github.com/chxlky/forum-trello-sync/internal/models"
	"go.uber.org/zap"
)

const DefaultTrelloURL = "https://api.trello.com/1"

type TrelloClient struct {
	Client   *http.Client
	BaseURL  string
	APIKey   string
	APIToken string
	// Attempts bounds retries of transient failures; 1 disables retrying.
	Attempts   uint
	RetryDelay time.Duration
}

func NewTrelloClient(key, token string) *TrelloClient {
	return &TrelloClient{
		Client:     &http.Client{Timeout: 30 * time.Second},
		BaseURL:    DefaultTrelloURL,
		APIKey:     key,
		APIToken:   token,
		Attempts:   3,
		RetryDelay: 500 * time.Millisecond,
	}
}

// NewTrelloFactory returns a BoardClientFactory using the application key and
// each server's own token.
func NewTrelloFactory(key string, attempts uint) BoardClientFactory {
	return func(server models.ServerBoardLink) (BoardGateway, error) {
		if !server.HasCredential() {
			return nil, apperr.ErrAccountNotLinked
		}
		tc := NewTrelloClient(key, *server.APIToken)
		if attempts > 0 {
			tc.Attempts = attempts
		}
		return tc, nil
	}
}

type trelloError struct {
	kind   error
	status string
	body   string
}

func (e *trelloError) Error() string {
	return fmt.Sprintf("trello API returned %s, body: %s", e.status, e.body)
}

func (e *trelloError) Unwrap() error { return e.kind }

func classifyStatus(code int) error {
	switch {
	case code == http.StatusNotFound, code == http.StatusUnauthorized, code == http.StatusForbidden:
		return ErrNotFound
	case code == http.StatusTooManyRequests, code >= 500:
		return ErrTransient
	}
	return nil
}

// do sends one request, retrying transient failures, and decodes the JSON body
// into out when out is non-nil.
func (tc *TrelloClient) do(ctx context.Context, method, path string, form url.Values, out any) error {
	attempts := tc.Attempts
	if attempts == 0 {
		attempts = 1
	}

	return retry.Do(
		func() error { return tc.doOnce(ctx, method, path, form, out) },
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(tc.RetryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return errors.Is(err, ErrTransient) }),
		retry.OnRetry(func(n uint, err error) {
			zap.L().Debug("Retrying Trello request",
				zap.String("method", method), zap.String("path", path), zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
}

func (tc *TrelloClient) doOnce(ctx context.Context, method, path string, form url.Values, out any) error {
	query := url.Values{}
	query.Set("key", tc.APIKey)
	query.Set("token", tc.APIToken)

	apiURL := tc.BaseURL + path + "?" + query.Encode()

	var body io.Reader
	if form != nil {
		body = bytes.NewBufferString(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, body)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %v", method, err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := tc.Client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: failed to send %s request: %v", ErrTransient, method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		kind := classifyStatus(resp.StatusCode)
		if kind == nil {
			return fmt.Errorf("trello API returned non-200 status: %s, body: %s", resp.Status, string(bodyBytes))
		}
		return &trelloError{kind: kind, status: resp.Status, body: string(bodyBytes)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode Trello response: %v", err)
	}
	return nil
}

func (tc *TrelloClient) Boards(ctx context.Context) ([]models.Board, error) {
	var boards []models.Board
	if err := tc.do(ctx, http.MethodGet, "/members/me/boards", nil, &boards); err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	return boards, nil
}

func (tc *TrelloClient) Lists(ctx context.Context, boardID string) ([]models.List, error) {
	var lists []models.List
	if err := tc.do(ctx, http.MethodGet, "/boards/"+url.PathEscape(boardID)+"/lists", nil, &lists); err != nil {
		return nil, fmt.Errorf("list lists of board %s: %w", boardID, err)
	}
	return lists, nil
}

func (tc *TrelloClient) Labels(ctx context.Context, boardID string) ([]models.Label, error) {
	var labels []models.Label
	if err := tc.do(ctx, http.MethodGet, "/boards/"+url.PathEscape(boardID)+"/labels", nil, &labels); err != nil {
		return nil, fmt.Errorf("list labels of board %s: %w", boardID, err)
	}
	return labels, nil
}

func (tc *TrelloClient) Cards(ctx context.Context, listID string) ([]models.Card, error) {
	var cards []models.Card
	if err := tc.do(ctx, http.MethodGet, "/lists/"+url.PathEscape(listID)+"/cards", nil, &cards); err != nil {
		return nil, fmt.Errorf("list cards of list %s: %w", listID, err)
	}
	return cards, nil
}

func (tc *TrelloClient) CreateLabel(ctx context.Context, spec models.LabelCreate) (models.Label, error) {
	formData := url.Values{}
	formData.Set("name", spec.Name)
	formData.Set("color", spec.Color)
	formData.Set("idBoard", spec.BoardID)

	var label models.Label
	if err := tc.do(ctx, http.MethodPost, "/labels", formData, &label); err != nil {
		return models.Label{}, fmt.Errorf("create label %q: %w", spec.Name, err)
	}
	return label, nil
}

func (tc *TrelloClient) UpdateLabel(ctx context.Context, spec models.LabelUpdate) error {
	formData := url.Values{}
	formData.Set("name", spec.Name)
	if spec.Color != "" {
		formData.Set("color", spec.Color)
	}

	if err := tc.do(ctx, http.MethodPut, "/labels/"+url.PathEscape(spec.ID), formData, nil); err != nil {
		return fmt.Errorf("update label %s: %w", spec.ID, err)
	}
	return nil
}

func (tc *TrelloClient) DeleteLabel(ctx context.Context, labelID string) error {
	if err := tc.do(ctx, http.MethodDelete, "/labels/"+url.PathEscape(labelID), nil, nil); err != nil {
		return fmt.Errorf("delete label %s: %w", labelID, err)
	}
	return nil
}

func (tc *TrelloClient) CreateCard(ctx context.Context, spec models.CardCreate) (models.Card, error) {
	formData := url.Values{}
	formData.Set("idList", spec.ListID)
	formData.Set("name", spec.Name)
	formData.Set("desc", spec.Description)
	formData.Set("idLabels", strings.Join(spec.LabelIDs, ","))

	var card models.Card
	if err := tc.do(ctx, http.MethodPost, "/cards", formData, &card); err != nil {
		return models.Card{}, fmt.Errorf("create card %q: %w", spec.Name, err)
	}
	return card, nil
}

func (tc *TrelloClient) UpdateCard(ctx context.Context, spec models.CardUpdate) error {
	formData := url.Values{}
	formData.Set("idList", spec.ListID)
	formData.Set("name", spec.Name)
	formData.Set("desc", spec.Description)
	formData.Set("idLabels", strings.Join(spec.LabelIDs, ","))

	if err := tc.do(ctx, http.MethodPut, "/cards/"+url.PathEscape(spec.ID), formData, nil); err != nil {
		return fmt.Errorf("update card %s: %w", spec.ID, err)
	}
	return nil
}
