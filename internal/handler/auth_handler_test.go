package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/haffnet/portal/internal/auth"
	"github.com/haffnet/portal/internal/model"
)

// fakeAuthService は各操作を関数フィールドで差し替え可能なモック。
type fakeAuthService struct {
	registerFn    func(ctx context.Context, input auth.RegisterInput) (*auth.AuthOutcome, error)
	loginFn       func(ctx context.Context, email, password string) (*auth.AuthOutcome, error)
	verifyOAuthFn func(ctx context.Context, input auth.OAuthInput) (*auth.AuthOutcome, error)
	verifyFn      func(ctx context.Context, token string) (*auth.SessionStatus, error)
	logoutFn      func(ctx context.Context, token string) error
}

func (f *fakeAuthService) Register(ctx context.Context, input auth.RegisterInput) (*auth.AuthOutcome, error) {
	return f.registerFn(ctx, input)
}

func (f *fakeAuthService) Login(ctx context.Context, email, password string) (*auth.AuthOutcome, error) {
	return f.loginFn(ctx, email, password)
}

func (f *fakeAuthService) VerifyOAuthToken(ctx context.Context, input auth.OAuthInput) (*auth.AuthOutcome, error) {
	return f.verifyOAuthFn(ctx, input)
}

func (f *fakeAuthService) VerifySession(ctx context.Context, token string) (*auth.SessionStatus, error) {
	return f.verifyFn(ctx, token)
}

func (f *fakeAuthService) Logout(ctx context.Context, token string) error {
	return f.logoutFn(ctx, token)
}

var _ AuthServiceInterface = (*fakeAuthService)(nil)

// recordingMetrics は記録された操作と結果を保持するモック。
type recordingMetrics struct {
	outcomes map[string]string
	verifies []string
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{outcomes: make(map[string]string)}
}

func (m *recordingMetrics) RecordAuthOutcome(operation, result string) {
	m.outcomes[operation] = result
}

func (m *recordingMetrics) RecordVerifyResult(result string) {
	m.verifies = append(m.verifies, result)
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, r)
	return w
}

func TestRegister_Success(t *testing.T) {
	first := "Anna"
	service := &fakeAuthService{
		registerFn: func(_ context.Context, input auth.RegisterInput) (*auth.AuthOutcome, error) {
			if input.Email != "anna@example.com" {
				t.Errorf("email = %q", input.Email)
			}
			return &auth.AuthOutcome{
				Success:      true,
				SessionToken: "tok-1",
				User: model.PublicUser{
					UserID:    "contact-1",
					Email:     "anna@example.com",
					FirstName: &first,
				},
			}, nil
		},
	}
	metrics := newRecordingMetrics()
	h := NewAuthHandler(service, metrics)

	w := postJSON(t, h.Register, "/auth/register",
		`{"email":"anna@example.com","password":"geheim123","firstName":"Anna"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp authSuccessResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.SessionToken != "tok-1" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.User.UserID != "contact-1" {
		t.Errorf("userId = %q", resp.User.UserID)
	}
	if metrics.outcomes["register"] != "success" {
		t.Errorf("recorded outcome = %q", metrics.outcomes["register"])
	}
}

func TestRegister_DuplicateEmailReturns409(t *testing.T) {
	service := &fakeAuthService{
		registerFn: func(_ context.Context, _ auth.RegisterInput) (*auth.AuthOutcome, error) {
			return &auth.AuthOutcome{Failure: model.NewUserExistsError()}, nil
		},
	}
	metrics := newRecordingMetrics()
	h := NewAuthHandler(service, metrics)

	w := postJSON(t, h.Register, "/auth/register",
		`{"email":"anna@example.com","password":"geheim123"}`)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}

	var resp map[string]any
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["success"] != false {
		t.Error("success should be false")
	}
	if resp["error"] != model.ErrCodeUserExists {
		t.Errorf("error = %v, want USER_EXISTS", resp["error"])
	}
	if metrics.outcomes["register"] != model.ErrCodeUserExists {
		t.Errorf("recorded outcome = %q", metrics.outcomes["register"])
	}
}

func TestRegister_InvalidBodyReturns400(t *testing.T) {
	h := NewAuthHandler(&fakeAuthService{}, newRecordingMetrics())

	tests := []struct {
		name string
		body string
	}{
		{"malformed JSON", `{not json`},
		{"missing email", `{"password":"x"}`},
		{"malformed email", `{"email":"nope","password":"x"}`},
		{"missing password", `{"email":"a@b.de"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, h.Register, "/auth/register", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestLogin_InvalidCredentialsReturns401(t *testing.T) {
	service := &fakeAuthService{
		loginFn: func(_ context.Context, _, _ string) (*auth.AuthOutcome, error) {
			return &auth.AuthOutcome{Failure: model.NewInvalidCredentialsError()}, nil
		},
	}
	metrics := newRecordingMetrics()
	h := NewAuthHandler(service, metrics)

	w := postJSON(t, h.Login, "/auth/login",
		`{"email":"anna@example.com","password":"falsch"}`)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if metrics.outcomes["login"] != model.ErrCodeInvalidCredentials {
		t.Errorf("recorded outcome = %q", metrics.outcomes["login"])
	}
}

func TestLogin_StorageFailureReturns500(t *testing.T) {
	service := &fakeAuthService{
		loginFn: func(_ context.Context, _, _ string) (*auth.AuthOutcome, error) {
			return nil, context.DeadlineExceeded
		},
	}
	metrics := newRecordingMetrics()
	h := NewAuthHandler(service, metrics)

	w := postJSON(t, h.Login, "/auth/login",
		`{"email":"anna@example.com","password":"geheim123"}`)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}

	var resp map[string]any
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["error"] != model.ErrCodeInternalError {
		t.Errorf("error = %v, want INTERNAL_ERROR", resp["error"])
	}
}

func TestVerifyOAuth_Success(t *testing.T) {
	service := &fakeAuthService{
		verifyOAuthFn: func(_ context.Context, input auth.OAuthInput) (*auth.AuthOutcome, error) {
			if input.Provider != "google" || input.OAuthID != "g-123" {
				t.Errorf("unexpected input: %+v", input)
			}
			return &auth.AuthOutcome{
				Success:      true,
				SessionToken: "tok-oauth",
				User:         model.PublicUser{UserID: "contact-2", Email: input.Email},
			}, nil
		},
	}
	h := NewAuthHandler(service, newRecordingMetrics())

	w := postJSON(t, h.VerifyOAuth, "/auth/oauth/verify",
		`{"provider":"google","oauthId":"g-123","email":"bernd@example.com"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
}

func TestVerifyOAuth_MissingFieldsReturns400(t *testing.T) {
	h := NewAuthHandler(&fakeAuthService{}, newRecordingMetrics())

	w := postJSON(t, h.VerifyOAuth, "/auth/oauth/verify",
		`{"provider":"google","email":"bernd@example.com"}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSession_ValidToken(t *testing.T) {
	service := &fakeAuthService{
		verifyFn: func(_ context.Context, token string) (*auth.SessionStatus, error) {
			if token != "tok-1" {
				t.Errorf("token = %q", token)
			}
			return &auth.SessionStatus{
				Valid: true,
				User:  model.PublicUser{UserID: "contact-1", Email: "anna@example.com"},
			}, nil
		},
	}
	metrics := newRecordingMetrics()
	h := NewAuthHandler(service, metrics)

	r := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	r.Header.Set("Authorization", "Bearer tok-1")
	w := httptest.NewRecorder()
	h.Session(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp sessionStatusResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Valid || resp.User == nil || resp.User.UserID != "contact-1" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if len(metrics.verifies) != 1 || metrics.verifies[0] != "valid" {
		t.Errorf("recorded verifies = %v", metrics.verifies)
	}
}

func TestSession_InvalidTokenStill200(t *testing.T) {
	for _, code := range []string{
		model.ErrCodeSessionNotFound,
		model.ErrCodeSessionExpired,
		model.ErrCodeContactNotFound,
	} {
		t.Run(code, func(t *testing.T) {
			service := &fakeAuthService{
				verifyFn: func(_ context.Context, _ string) (*auth.SessionStatus, error) {
					return &auth.SessionStatus{Valid: false, ErrorCode: code}, nil
				},
			}
			h := NewAuthHandler(service, newRecordingMetrics())

			r := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
			r.Header.Set("Authorization", "Bearer tok-x")
			w := httptest.NewRecorder()
			h.Session(w, r)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", w.Code)
			}

			var resp sessionStatusResponse
			json.NewDecoder(w.Body).Decode(&resp)
			if resp.Valid {
				t.Error("valid should be false")
			}
			if resp.Error != code {
				t.Errorf("error = %q, want %q", resp.Error, code)
			}
		})
	}
}

func TestSession_MissingTokenIsNotFound(t *testing.T) {
	h := NewAuthHandler(&fakeAuthService{}, newRecordingMetrics())

	w := httptest.NewRecorder()
	h.Session(w, httptest.NewRequest(http.MethodGet, "/auth/session", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp sessionStatusResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Valid || resp.Error != model.ErrCodeSessionNotFound {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestLogout_AlwaysSucceeds(t *testing.T) {
	var deleted string
	service := &fakeAuthService{
		logoutFn: func(_ context.Context, token string) error {
			deleted = token
			return nil
		},
	}
	h := NewAuthHandler(service, newRecordingMetrics())

	r := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	r.Header.Set("Authorization", "Bearer tok-1")
	w := httptest.NewRecorder()
	h.Logout(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if deleted != "tok-1" {
		t.Errorf("deleted token = %q", deleted)
	}

	var resp map[string]bool
	json.NewDecoder(w.Body).Decode(&resp)
	if !resp["success"] {
		t.Error("success should be true")
	}
}

func TestLogout_BodyFallback(t *testing.T) {
	var deleted string
	service := &fakeAuthService{
		logoutFn: func(_ context.Context, token string) error {
			deleted = token
			return nil
		},
	}
	h := NewAuthHandler(service, newRecordingMetrics())

	w := postJSON(t, h.Logout, "/auth/logout", `{"sessionToken":"tok-body"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if deleted != "tok-body" {
		t.Errorf("deleted token = %q", deleted)
	}
}

func TestLogout_NoTokenStillSucceeds(t *testing.T) {
	service := &fakeAuthService{
		logoutFn: func(_ context.Context, _ string) error {
			t.Fatal("logout should not be called without a token")
			return nil
		},
	}
	h := NewAuthHandler(service, newRecordingMetrics())

	w := postJSON(t, h.Logout, "/auth/logout", `{}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}
