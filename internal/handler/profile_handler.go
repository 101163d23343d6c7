package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/haffnet/portal/internal/middleware"
	"github.com/haffnet/portal/internal/model"
)

// OrganizationLookup はプロフィール表示が必要とする組織参照のインターフェース。
type OrganizationLookup interface {
	FindByID(ctx context.Context, id string) (*model.Organization, error)
}

// ProfileHandler はログイン中コンタクトのプロフィール取得を担当する。
type ProfileHandler struct {
	organizations OrganizationLookup
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(organizations OrganizationLookup) *ProfileHandler {
	return &ProfileHandler{organizations: organizations}
}

type organizationResponse struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Email   *string `json:"email,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Website *string `json:"website,omitempty"`
}

type profileResponse struct {
	User model.PublicUser `json:"user"`
	// Organization は所属組織。未所属または参照先が存在しない場合はnull。
	Organization *organizationResponse `json:"organization"`
}

// Me はGET /api/me を処理する。
// コンタクトの組織参照は弱参照のため、参照先が消えていてもエラーにせず
// organizationをnullで返す。
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	resp := profileResponse{User: user}

	if user.OrganizationID != nil && h.organizations != nil {
		org, err := h.organizations.FindByID(r.Context(), *user.OrganizationID)
		if err != nil {
			slog.Error("failed to look up organization",
				slog.String("organization_id", *user.OrganizationID),
				slog.String("error", err.Error()),
			)
			middleware.WriteInternalServerError(w)
			return
		}
		if org != nil {
			resp.Organization = &organizationResponse{
				ID:      org.ID,
				Name:    org.Name,
				Email:   org.Email,
				Phone:   org.Phone,
				Website: org.Website,
			}
		}
	}

	middleware.WriteJSON(w, http.StatusOK, resp)
}
