// Package auth はフロントエンド向けの認証ビジネスロジックを提供する。
// メール+パスワード登録/ログイン、OAuthトークン検証、セッション発行・検証・破棄を含む。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/haffnet/portal/internal/model"
	"github.com/haffnet/portal/internal/repository"
)

// RegisterInput はメール+パスワード登録の入力。
type RegisterInput struct {
	Email     string
	Password  string
	FirstName *string
	LastName  *string
	Phone     *string
}

// OAuthInput はOAuthトークン検証の入力。
// provider/oauthID/emailの組は上流のIdP検証済みとして信頼する。
type OAuthInput struct {
	Provider  string
	OAuthID   string
	Email     string
	FirstName *string
	LastName  *string
}

// AuthOutcome はregister/login/oauth verifyの結果。
// 業務上の失敗（登録済みメール、認証失敗）はエラーではなくFailureで表現する。
type AuthOutcome struct {
	Success      bool
	SessionToken string
	User         model.PublicUser
	Failure      *model.APIError
}

// SessionStatus はセッション検証の結果。
type SessionStatus struct {
	Valid bool
	User  model.PublicUser

	// ErrorCode はValid=falseのときの失敗種別。
	// SESSION_NOT_FOUND / SESSION_EXPIRED / CONTACT_NOT_FOUND のいずれか。
	ErrorCode string
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	contacts repository.ContactRepository
	sessions repository.SessionRepository

	// now はテストで時刻を注入するためのクロック。
	now func() time.Time
}

// NewService はServiceを生成する。
func NewService(contacts repository.ContactRepository, sessions repository.SessionRepository) *Service {
	return &Service{
		contacts: contacts,
		sessions: sessions,
		now:      time.Now,
	}
}

// WithClock はクロックを差し替えたServiceを返す。テスト用。
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// NormalizeEmail はメールアドレスを小文字・前後空白なしに正規化する。
// 検索・保存の前に必ず適用し、大文字小文字違いの重複登録を防ぐ。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register はメール+パスワードで新規コンタクトを登録し、セッションを発行する。
// 登録済みメールアドレスの場合はUSER_EXISTSを返す。
// 事前チェックと挿入の間の同時登録はDBの一意制約で検出し、同じくUSER_EXISTSにする。
func (s *Service) Register(ctx context.Context, input RegisterInput) (*AuthOutcome, error) {
	email := NormalizeEmail(input.Email)
	now := s.now()

	// 1. 既存チェック（高速パス）
	existing, err := s.contacts.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing contact: %w", err)
	}
	if existing != nil {
		return &AuthOutcome{Failure: model.NewUserExistsError()}, nil
	}

	// 2. パスワードをハッシュ化して新規コンタクトを作成
	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	contact := &model.Contact{
		ID:           uuid.New().String(),
		Email:        email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Phone:        input.Phone,
		PasswordHash: &hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.contacts.Create(ctx, contact); err != nil {
		if errors.Is(err, model.ErrDuplicateEmail) {
			// チェックと挿入の間に他のリクエストが登録を完了した
			return &AuthOutcome{Failure: model.NewUserExistsError()}, nil
		}
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}

	// 3. セッションを発行
	session, err := s.issueSession(ctx, contact.ID, now)
	if err != nil {
		return nil, err
	}

	slog.Info("new contact registered",
		slog.String("contact_id", contact.ID),
	)

	return &AuthOutcome{
		Success:      true,
		SessionToken: session.Token,
		User:         contact.PublicProjection(),
	}, nil
}

// Login はメール+パスワードでログインし、新しいセッションを発行する。
// メールアドレス不明とパスワード不一致は区別せずINVALID_CREDENTIALSを返す。
// 既存セッションはそれぞれの期限まで有効なまま残る（ログインごとに新規発行）。
func (s *Service) Login(ctx context.Context, email, password string) (*AuthOutcome, error) {
	contact, err := s.contacts.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to find contact: %w", err)
	}
	if contact == nil {
		return &AuthOutcome{Failure: model.NewInvalidCredentialsError()}, nil
	}

	// OAuth専用コンタクト（パスワード未設定）はパスワードログイン不可
	if contact.PasswordHash == nil || !VerifyPassword(*contact.PasswordHash, password) {
		return &AuthOutcome{Failure: model.NewInvalidCredentialsError()}, nil
	}

	session, err := s.issueSession(ctx, contact.ID, s.now())
	if err != nil {
		return nil, err
	}

	slog.Info("contact logged in",
		slog.String("contact_id", contact.ID),
	)

	return &AuthOutcome{
		Success:      true,
		SessionToken: session.Token,
		User:         contact.PublicProjection(),
	}, nil
}

// VerifyOAuthToken はIdP検証済みの(provider, oauthID, email)からコンタクトを
// 解決または作成し、セッションを発行する。
// 解決順: (provider, oauthID) → メールアドレス → 新規作成。
// 既存コンタクトが見つかった場合はOAuth紐付けを上書きしupdated_atを更新する。
// 返却するユーザープロジェクションは入力引数から構築する（保存値の再読込はしない）。
func (s *Service) VerifyOAuthToken(ctx context.Context, input OAuthInput) (*AuthOutcome, error) {
	email := NormalizeEmail(input.Email)
	now := s.now()

	contact, err := s.contacts.FindByOAuth(ctx, input.Provider, input.OAuthID)
	if err != nil {
		return nil, fmt.Errorf("failed to find contact by oauth: %w", err)
	}

	if contact == nil {
		// パスワード登録済みの同一メールアドレスに紐付けるフォールバック
		contact, err = s.contacts.FindByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("failed to find contact by email: %w", err)
		}
	}

	var contactID string
	var orgID *string

	if contact != nil {
		contactID = contact.ID
		orgID = contact.OrganizationID
		if err := s.contacts.PatchOAuthLink(ctx, contactID, input.Provider, input.OAuthID, now); err != nil {
			return nil, fmt.Errorf("failed to link oauth identity: %w", err)
		}
		slog.Info("oauth identity linked",
			slog.String("contact_id", contactID),
			slog.String("provider", input.Provider),
		)
	} else {
		newContact := &model.Contact{
			ID:            uuid.New().String(),
			Email:         email,
			FirstName:     input.FirstName,
			LastName:      input.LastName,
			OAuthProvider: &input.Provider,
			OAuthID:       &input.OAuthID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.contacts.Create(ctx, newContact); err != nil {
			return nil, fmt.Errorf("failed to create oauth contact: %w", err)
		}
		contactID = newContact.ID
		slog.Info("new oauth contact created",
			slog.String("contact_id", contactID),
			slog.String("provider", input.Provider),
		)
	}

	session, err := s.issueSession(ctx, contactID, now)
	if err != nil {
		return nil, err
	}

	return &AuthOutcome{
		Success:      true,
		SessionToken: session.Token,
		User: model.PublicUser{
			UserID:         contactID,
			Email:          email,
			FirstName:      input.FirstName,
			LastName:       input.LastName,
			OrganizationID: orgID,
		},
	}, nil
}

// VerifySession はセッショントークンを検証する。
// 順に検査し、それぞれ異なる失敗コードで短絡する:
//  1. トークン未登録 → SESSION_NOT_FOUND
//  2. 期限切れ → SESSION_EXPIRED（行は削除しない。削除はログアウトの責務）
//  3. コンタクト不在 → CONTACT_NOT_FOUND（フェイルクローズ）
//
// 副作用のない読み取り専用クエリであり、任意の頻度で呼んでよい。
func (s *Service) VerifySession(ctx context.Context, token string) (*SessionStatus, error) {
	session, err := s.sessions.FindByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return &SessionStatus{ErrorCode: model.ErrCodeSessionNotFound}, nil
	}

	if session.Expired(s.now()) {
		return &SessionStatus{ErrorCode: model.ErrCodeSessionExpired}, nil
	}

	contact, err := s.contacts.FindByID(ctx, session.ContactID)
	if err != nil {
		return nil, fmt.Errorf("failed to find contact: %w", err)
	}
	if contact == nil {
		return &SessionStatus{ErrorCode: model.ErrCodeContactNotFound}, nil
	}

	return &SessionStatus{
		Valid: true,
		User:  contact.PublicProjection(),
	}, nil
}

// Logout はセッションを破棄する。
// トークンが既に存在しなくても成功として扱う（冪等）。
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.sessions.DeleteByToken(ctx, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// issueSession はセッションを生成し永続化する。
// 有効期限は発行時刻+30日に固定し、以後スライドしない。
func (s *Service) issueSession(ctx context.Context, contactID string, now time.Time) (*model.Session, error) {
	token, err := generateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	session := &model.Session{
		Token:     token,
		ContactID: contactID,
		ExpiresAt: now.Add(model.SessionTTL),
		CreatedAt: now,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionToken は暗号的に安全なセッショントークンを生成する。
// 256ビットのエントロピーが衝突に対する唯一かつ十分な防御であり、
// 一意性のリトライループは設けない。
func generateSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
