package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"

	"github.com/haffnet/portal/internal/model"
)

// 各PostgresリポジトリがインターフェースをみたすことをDB接続なしで検証
func TestPostgresRepos_ImplementInterfaces(t *testing.T) {
	var _ ContactRepository = (*PostgresContactRepo)(nil)
	var _ SessionRepository = (*PostgresSessionRepo)(nil)
	var _ OrganizationRepository = (*PostgresOrganizationRepo)(nil)
}

func TestNewPostgresContactRepo_Initializes(t *testing.T) {
	repo := NewPostgresContactRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

func TestNewPostgresSessionRepo_Initializes(t *testing.T) {
	repo := NewPostgresSessionRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

func TestNewPostgresOrganizationRepo_Initializes(t *testing.T) {
	repo := NewPostgresOrganizationRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// 一意制約違反のpqエラーがErrDuplicateEmailとして扱われる前提の検証
func TestUniqueViolation_MapsToDuplicateEmail(t *testing.T) {
	pqErr := &pq.Error{Code: pq.ErrorCode(uniqueViolation)}

	var target *pq.Error
	if !errors.As(error(pqErr), &target) {
		t.Fatal("errors.As should match *pq.Error")
	}
	if string(target.Code) != "23505" {
		t.Errorf("code = %q, want 23505", target.Code)
	}
}

// FindByTokenが期限切れ行をそのまま返す設計であることのコンセプト検証。
// 期限判定は検証器の責務で、リポジトリは行を隠さない。
func TestSessionRepo_ExpiryIsCallerConcern(t *testing.T) {
	session := &model.Session{
		Token:     "expired-token",
		ContactID: "contact-1",
		ExpiresAt: time.Now().Add(-1 * time.Hour),
	}

	if !session.Expired(time.Now()) {
		t.Error("expected session to be expired")
	}
	// 期限切れでもセッション自体のデータは完全なまま
	if session.Token == "" || session.ContactID == "" {
		t.Error("expired session should retain its data")
	}
}
