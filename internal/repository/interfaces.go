// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/haffnet/portal/internal/model"
)

// ContactRepository はコンタクト（受講者）データの永続化インターフェース。
type ContactRepository interface {
	// FindByID は指定IDのコンタクトを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Contact, error)

	// FindByEmail は正規化済みメールアドレスでコンタクトを検索する。
	// 見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Contact, error)

	// FindByOAuth は(provider, oauthID)の複合キーでコンタクトを検索する。
	// 見つからない場合はnilを返す。
	FindByOAuth(ctx context.Context, provider, oauthID string) (*model.Contact, error)

	// Create はコンタクトを作成する。
	// メールアドレスの一意制約違反の場合はmodel.ErrDuplicateEmailを返す。
	Create(ctx context.Context, contact *model.Contact) error

	// PatchOAuthLink は既存コンタクトにOAuth紐付けを設定し、updated_atを更新する。
	// 他のフィールドは変更しない。
	PatchOAuthLink(ctx context.Context, id, provider, oauthID string, updatedAt time.Time) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error

	// FindByToken は指定トークンのセッションを取得する。見つからない場合はnilを返す。
	// 期限切れ判定は呼び出し側（検証器）が行うため、期限切れの行もそのまま返す。
	FindByToken(ctx context.Context, token string) (*model.Session, error)

	// DeleteByToken は指定トークンのセッションを削除する。
	// 該当行がなくてもエラーにしない（冪等）。
	DeleteByToken(ctx context.Context, token string) error

	// DeleteExpiredBefore はcutoffより前に期限切れになったセッションを削除し、
	// 削除件数を返す。正確性はこの掃除に依存しない（検証時に期限を判定する）。
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// OrganizationRepository は組織データの参照インターフェース。
// このサブシステムは組織を作成・更新しない。
type OrganizationRepository interface {
	// FindByID は指定IDの組織を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Organization, error)
}
