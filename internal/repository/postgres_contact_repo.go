package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/haffnet/portal/internal/model"
)

// uniqueViolation はPostgreSQLのunique制約違反のエラーコード。
const uniqueViolation = "23505"

// PostgresContactRepo はPostgreSQLを使用したコンタクトリポジトリ。
type PostgresContactRepo struct {
	db *sql.DB
}

// NewPostgresContactRepo はPostgresContactRepoを生成する。
func NewPostgresContactRepo(db *sql.DB) *PostgresContactRepo {
	return &PostgresContactRepo{db: db}
}

const contactColumns = `id, email, first_name, last_name, phone, organization_id,
	 oauth_provider, oauth_id, password_hash, created_at, updated_at`

// scanContact は1行分のコンタクトをスキャンする。
func scanContact(row *sql.Row) (*model.Contact, error) {
	contact := &model.Contact{}
	err := row.Scan(
		&contact.ID, &contact.Email,
		&contact.FirstName, &contact.LastName, &contact.Phone,
		&contact.OrganizationID,
		&contact.OAuthProvider, &contact.OAuthID,
		&contact.PasswordHash,
		&contact.CreatedAt, &contact.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return contact, nil
}

// FindByID は指定IDのコンタクトを取得する。見つからない場合はnilを返す。
func (r *PostgresContactRepo) FindByID(ctx context.Context, id string) (*model.Contact, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = $1`,
		id,
	)
	contact, err := scanContact(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find contact by ID: %w", err)
	}
	return contact, nil
}

// FindByEmail は正規化済みメールアドレスでコンタクトを検索する。
// 見つからない場合はnilを返す。
func (r *PostgresContactRepo) FindByEmail(ctx context.Context, email string) (*model.Contact, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE email = $1`,
		email,
	)
	contact, err := scanContact(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find contact by email: %w", err)
	}
	return contact, nil
}

// FindByOAuth は(provider, oauthID)の複合キーでコンタクトを検索する。
// 見つからない場合はnilを返す。
func (r *PostgresContactRepo) FindByOAuth(ctx context.Context, provider, oauthID string) (*model.Contact, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts
		 WHERE oauth_provider = $1 AND oauth_id = $2`,
		provider, oauthID,
	)
	contact, err := scanContact(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find contact by oauth: %w", err)
	}
	return contact, nil
}

// Create はコンタクトを作成する。
// contacts_email_uniqueインデックスの違反はmodel.ErrDuplicateEmailに変換する。
// 事前の存在チェックをすり抜けた同時登録はここで確実に止まる。
func (r *PostgresContactRepo) Create(ctx context.Context, contact *model.Contact) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO contacts
		 (id, email, first_name, last_name, phone, organization_id,
		  oauth_provider, oauth_id, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		contact.ID, contact.Email,
		contact.FirstName, contact.LastName, contact.Phone,
		contact.OrganizationID,
		contact.OAuthProvider, contact.OAuthID,
		contact.PasswordHash,
		contact.CreatedAt, contact.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return model.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to insert contact: %w", err)
	}
	return nil
}

// PatchOAuthLink は既存コンタクトにOAuth紐付けを設定し、updated_atを更新する。
// 他のフィールドは変更しない。
func (r *PostgresContactRepo) PatchOAuthLink(ctx context.Context, id, provider, oauthID string, updatedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE contacts
		 SET oauth_provider = $2, oauth_id = $3, updated_at = $4
		 WHERE id = $1`,
		id, provider, oauthID, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to patch oauth link: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("contact not found: %s", id)
	}
	return nil
}

// compile-time interface check
var _ ContactRepository = (*PostgresContactRepo)(nil)
