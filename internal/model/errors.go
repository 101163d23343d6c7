package model

import (
	"errors"
	"fmt"
)

// ErrDuplicateEmail はメールアドレスの一意制約違反を表すセンチネルエラー。
// リポジトリ層がDBのunique violationをこのエラーに変換し、
// 認証サービスがUSER_EXISTSとして報告する。
var ErrDuplicateEmail = errors.New("email already registered")

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, checkout, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード。
// セッション検証の3つの失敗コードは呼び出し側では等しく「未ログイン扱い」だが、
// テレメトリ上は区別する。
const (
	ErrCodeUserExists         = "USER_EXISTS"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeSessionNotFound    = "SESSION_NOT_FOUND"
	ErrCodeSessionExpired     = "SESSION_EXPIRED"
	ErrCodeContactNotFound    = "CONTACT_NOT_FOUND"
	ErrCodeNetworkError       = "NETWORK_ERROR"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeEventNotFound      = "EVENT_NOT_FOUND"
	ErrCodePaymentFailed      = "PAYMENT_FAILED"
	ErrCodeValidationError    = "VALIDATION_ERROR"
)

// NewValidationError はリクエスト入力の検証エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationError,
		Message:  message,
		Category: "validation",
		Action:   "Correct the request and try again.",
	}
}

// NewUserExistsError は登録済みメールアドレスでの再登録エラーを生成する。
func NewUserExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeUserExists,
		Message:  "A user with this email already exists",
		Category: "auth",
		Action:   "Log in instead, or use a different email address.",
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
// メールアドレス不明とパスワード不一致を区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Invalid email or password",
		Category: "auth",
		Action:   "Check your email address and password, then try again.",
	}
}

// NewEventNotFoundError はイベント未検出エラーを生成する。
func NewEventNotFoundError(eventID string) *APIError {
	return &APIError{
		Code:     ErrCodeEventNotFound,
		Message:  fmt.Sprintf("Event not found: %s", eventID),
		Category: "validation",
		Action:   "Check the event ID.",
	}
}

// NewPaymentFailedError は決済確定失敗エラーを生成する。
func NewPaymentFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodePaymentFailed,
		Message:  fmt.Sprintf("Payment confirmation failed: %s", reason),
		Category: "checkout",
		Action:   "Check your payment details and try again.",
	}
}
