// Package news はダッシュボードのお知らせ欄に表示する運営フィードの取得機能を提供する。
// 運営者が設定したフィードURLをSSRF防止付きクライアントで取得し、
// パース・サニタイズ・抜粋生成を行う。
package news

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"

	"github.com/haffnet/portal/internal/security"
)

const (
	// fetchTimeout はフィード取得のタイムアウト。
	fetchTimeout = 10 * time.Second
	// maxResponseSize はフィードレスポンスの最大サイズ。
	maxResponseSize = 5 * 1024 * 1024
	// maxItems はAPIが返すお知らせの最大件数。
	maxItems = 10
	// excerptRunes は抜粋の最大文字数。
	excerptRunes = 200
	// cacheTTL は取得結果のキャッシュ有効期間。
	cacheTTL = 5 * time.Minute
)

// Item はお知らせ1件。
type Item struct {
	Title       string `json:"title"`
	Link        string `json:"link,omitempty"`
	Excerpt     string `json:"excerpt,omitempty"`
	ContentHTML string `json:"contentHtml,omitempty"` // サニタイズ済み
	PublishedAt int64  `json:"publishedAt,omitempty"` // エポックミリ秒
}

// Service はお知らせフィードの取得・整形を行う。
// フィードURL未設定の場合は常に空のリストを返す（機能無効）。
type Service struct {
	guard     security.SSRFGuardService
	sanitizer security.ContentSanitizerService
	logger    *slog.Logger
	feedURL   string

	mu        sync.Mutex
	cached    []Item
	fetchedAt time.Time

	// now はキャッシュ判定用のクロック。テストで差し替える。
	now func() time.Time
}

// NewService はServiceを生成する。
// feedURLが空の場合、お知らせ機能は無効として扱う。
func NewService(guard security.SSRFGuardService, sanitizer security.ContentSanitizerService, logger *slog.Logger, feedURL string) *Service {
	return &Service{
		guard:     guard,
		sanitizer: sanitizer,
		logger:    logger,
		feedURL:   feedURL,
		now:       time.Now,
	}
}

// Enabled はお知らせ機能が有効かを返す。
func (s *Service) Enabled() bool {
	return s.feedURL != ""
}

// Latest は最新のお知らせを返す。
// 結果は5分間キャッシュし、取得失敗時はキャッシュ済みの前回値を返す。
func (s *Service) Latest(ctx context.Context) ([]Item, error) {
	if !s.Enabled() {
		return []Item{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && s.now().Sub(s.fetchedAt) < cacheTTL {
		return s.cached, nil
	}

	items, err := s.fetch(ctx)
	if err != nil {
		if s.cached != nil {
			// 前回値を維持する
			s.logger.Warn("news fetch failed, serving cached items",
				slog.String("error", err.Error()),
			)
			return s.cached, nil
		}
		return nil, err
	}

	s.cached = items
	s.fetchedAt = s.now()
	return items, nil
}

// fetch はフィードを取得してお知らせリストへ変換する。
func (s *Service) fetch(ctx context.Context) ([]Item, error) {
	if err := s.guard.ValidateURL(s.feedURL); err != nil {
		return nil, fmt.Errorf("news feed URL rejected: %w", err)
	}

	parser := gofeed.NewParser()
	parser.Client = s.guard.NewSafeClient(fetchTimeout, maxResponseSize)

	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	feed, err := parser.ParseURLWithContext(s.feedURL, fetchCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch news feed: %w", err)
	}

	items := make([]Item, 0, maxItems)
	for _, entry := range feed.Items {
		if len(items) >= maxItems {
			break
		}

		content := entry.Content
		if content == "" {
			content = entry.Description
		}
		sanitized := s.sanitizer.Sanitize(content)

		item := Item{
			Title:       strings.TrimSpace(entry.Title),
			Link:        entry.Link,
			ContentHTML: sanitized,
			Excerpt:     Excerpt(sanitized, excerptRunes),
		}
		if entry.PublishedParsed != nil {
			item.PublishedAt = entry.PublishedParsed.UnixMilli()
		}

		items = append(items, item)
	}

	return items, nil
}

// Excerpt はHTMLからテキストのみを抽出し、指定文字数で切り詰めた抜粋を返す。
// 切り詰めた場合は末尾に「…」を付与する。
func Excerpt(htmlContent string, limit int) string {
	if htmlContent == "" {
		return ""
	}

	var b strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(htmlContent))
	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt == html.TextToken {
			b.WriteString(tokenizer.Token().Data)
			b.WriteString(" ")
		}
	}

	text := strings.Join(strings.Fields(b.String()), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}
