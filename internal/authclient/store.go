// Package authclient はポータルAPIを呼び出すクライアント側の認証アダプターを提供する。
// 認証状態の3状態マシン、トークンのローカル永続化、描画サイクルごとの再検証を含む。
package authclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/haffnet/portal/internal/model"
)

// Credentials はローカルに永続化する認証情報。
// あくまでヒントであり、信頼できる状態は常にサーバー検証で再取得する。
type Credentials struct {
	Token string           `json:"token"`
	User  model.PublicUser `json:"user"`
}

// CredentialsStore は認証情報をファイルに永続化する。
// ページ再読み込み（プロセス再起動）をまたいで状態を維持するために使う。
type CredentialsStore struct {
	path string
}

// NewCredentialsStore はpathを保存先とするCredentialsStoreを生成する。
func NewCredentialsStore(path string) *CredentialsStore {
	return &CredentialsStore{path: path}
}

// Load は保存済みの認証情報を読み込む。
// ファイルが存在しない場合は(nil, nil)を返す。
func (s *CredentialsStore) Load() (*Credentials, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		// 壊れたキャッシュは未ログインとして扱う
		return nil, nil
	}
	if creds.Token == "" {
		return nil, nil
	}
	return &creds, nil
}

// Save は認証情報を保存する。所有者のみ読み書き可能なパーミッションで書き込む。
func (s *CredentialsStore) Save(creds *Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create credentials directory: %w", err)
		}
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}

// Clear は保存済みの認証情報を削除する。存在しなくてもエラーにしない（冪等）。
func (s *CredentialsStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	return nil
}
