package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"affirmation_fetcher/internal/domain"
)

// SourcePlatform identifies records ingested through this client.
const SourcePlatform = "telegram"

// Config holds Telegram source configuration.
type Config struct {
	BotToken       string
	ChannelID      string // numeric ID ("-1001234") or handle ("@channel")
	BaseURL        string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Source fetches channel messages through the Telegram Bot API.
// Read-only: it never mutates channel state.
type Source struct {
	httpClient     *http.Client
	baseURL        string
	botToken       string
	channelID      string
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

// New creates a Telegram source. Missing credentials are a
// configuration error; a sync run must never start without them.
func New(cfg Config, logger *slog.Logger) (*Source, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("%w: bot token is required", domain.ErrSourceConfig)
	}
	if cfg.ChannelID == "" {
		return nil, fmt.Errorf("%w: channel id is required", domain.ErrSourceConfig)
	}

	return &Source{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:        strings.TrimSuffix(cfg.BaseURL, "/"),
		botToken:       cfg.BotToken,
		channelID:      cfg.ChannelID,
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.With("source", SourcePlatform),
	}, nil
}

// Platform returns the source platform identifier.
func (s *Source) Platform() string {
	return SourcePlatform
}

// FetchMessages retrieves up to limit messages posted to the
// configured channel, newest first. Items without text and items from
// other chats are dropped.
func (s *Source) FetchMessages(ctx context.Context, limit int) ([]domain.RawMessage, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("allowed_updates", `["message","channel_post"]`)

	var updates []Update
	if err := s.call(ctx, "getUpdates", query, &updates); err != nil {
		return nil, fmt.Errorf("fetch updates: %w", err)
	}

	messages := s.filter(updates)

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].PostedAt.After(messages[j].PostedAt)
	})

	s.logger.Debug("fetched messages",
		"updates", len(updates),
		"matched", len(messages),
	)

	return messages, nil
}

// GetBotInfo returns the bot identity (getMe). Diagnostics only.
func (s *Source) GetBotInfo(ctx context.Context) (*BotInfo, error) {
	var info BotInfo
	if err := s.call(ctx, "getMe", nil, &info); err != nil {
		return nil, fmt.Errorf("get bot info: %w", err)
	}
	return &info, nil
}

// GetChatInfo returns metadata for the configured channel (getChat).
// Diagnostics only.
func (s *Source) GetChatInfo(ctx context.Context) (*ChatInfo, error) {
	query := url.Values{}
	query.Set("chat_id", s.channelID)

	var info ChatInfo
	if err := s.call(ctx, "getChat", query, &info); err != nil {
		return nil, fmt.Errorf("get chat info: %w", err)
	}
	return &info, nil
}

func (s *Source) filter(updates []Update) []domain.RawMessage {
	messages := make([]domain.RawMessage, 0, len(updates))

	for _, update := range updates {
		msg := update.Message
		if msg == nil {
			msg = update.ChannelPost
		}
		if msg == nil || msg.Text == "" {
			continue
		}
		if !s.matchesChannel(msg.Chat) {
			continue
		}

		author := "channel"
		if update.Message != nil && update.Message.From != nil {
			if from := update.Message.From; from.Username != "" {
				author = from.Username
			} else if from.FirstName != "" {
				author = from.FirstName
			}
		}

		messages = append(messages, domain.RawMessage{
			SourceMessageID: strconv.FormatInt(msg.MessageID, 10),
			Text:            msg.Text,
			PostedAt:        time.Unix(msg.Date, 0).UTC(),
			Author:          author,
		})
	}

	return messages
}

// matchesChannel accepts both identity forms the API may report: the
// numeric chat ID and the public handle.
func (s *Source) matchesChannel(chat Chat) bool {
	target := strings.TrimPrefix(s.channelID, "@")
	id := strconv.FormatInt(chat.ID, 10)
	return chat.Username == target || id == target || id == s.channelID
}

func (s *Source) call(ctx context.Context, method string, query url.Values, result any) error {
	endpoint := fmt.Sprintf("%s/bot%s/%s", s.baseURL, s.botToken, method)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err = s.doRequest(ctx, endpoint, result)
		if err == nil {
			return nil
		}

		if attempt == s.maxAttempts {
			break
		}

		backoff := s.calculateBackoff(attempt)
		s.logger.Warn("request failed, retrying",
			"method", method,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return s.classify(ctx.Err())
		case <-time.After(backoff):
		}
	}

	return fmt.Errorf("after %d attempts: %w", s.maxAttempts, s.classify(err))
}

func (s *Source) doRequest(ctx context.Context, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "AffirmationFetcher/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var apiResp APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if !apiResp.OK {
		return fmt.Errorf("telegram api error %d: %s", apiResp.ErrorCode, apiResp.Description)
	}

	if err := json.Unmarshal(apiResp.Result, result); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}

	return nil
}

// classify maps a transport failure onto the error taxonomy so
// callers can tell "source is slow" from "source is down".
func (s *Source) classify(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", domain.ErrSourceTimeout, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
}

func (s *Source) calculateBackoff(attempt int) time.Duration {
	backoff := s.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > s.maxBackoff {
		backoff = s.maxBackoff
	}
	return backoff
}
