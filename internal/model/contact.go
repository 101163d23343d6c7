// Package model はドメインモデルを定義する。
package model

import "time"

// Contact はCME受講者（CRM上のコンタクト）を表す。
// メールアドレス、または(OAuthProvider, OAuthID)の組で一意に特定できる。
// 任意項目はポインタで表現し、未設定（NULL）と空文字列を区別する。
type Contact struct {
	ID        string
	Email     string
	FirstName *string
	LastName  *string
	Phone     *string

	// OrganizationID は所属組織への弱参照。参照整合性は検索時にのみ確認する。
	OrganizationID *string

	// OAuthProvider と OAuthID は外部IdPとの紐付けキー。常に対で設定される。
	OAuthProvider *string
	OAuthID       *string

	// PasswordHash はbcryptハッシュ。OAuth経由で作成されたコンタクトではNULL。
	PasswordHash *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PublicUser はクライアントに返してよいコンタクトの公開プロジェクション。
// PasswordHashやOAuth紐付けなどの内部フィールドは決して含めない。
type PublicUser struct {
	UserID         string  `json:"userId"`
	Email          string  `json:"email"`
	FirstName      *string `json:"firstName,omitempty"`
	LastName       *string `json:"lastName,omitempty"`
	OrganizationID *string `json:"organizationId,omitempty"`
}

// PublicProjection はContactから公開プロジェクションを生成する。
func (c *Contact) PublicProjection() PublicUser {
	return PublicUser{
		UserID:         c.ID,
		Email:          c.Email,
		FirstName:      c.FirstName,
		LastName:       c.LastName,
		OrganizationID: c.OrganizationID,
	}
}
