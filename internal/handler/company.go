package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/savora-food/api/internal/database"
)

// CompanyStore defines the database methods needed by company profile handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CompanyStore interface {
	GetCompanyProfile(ctx context.Context) (database.CompanyProfile, error)
	UpsertCompanyProfile(ctx context.Context, arg database.UpsertCompanyProfileParams) (database.CompanyProfile, error)
}

// CompanyHandler serves the single company profile shown on the storefront.
type CompanyHandler struct {
	store CompanyStore
}

// NewCompanyHandler creates a new CompanyHandler.
func NewCompanyHandler(store CompanyStore) *CompanyHandler {
	return &CompanyHandler{store: store}
}

// RegisterRoutes registers the public read.
func (h *CompanyHandler) RegisterRoutes(r chi.Router) {
	r.Get("/company", h.Get)
}

// RegisterSuperAdminRoutes registers the profile update. Mount behind
// RequireSuperAdmin.
func (h *CompanyHandler) RegisterSuperAdminRoutes(r chi.Router) {
	r.Put("/company", h.Update)
}

type companyProfileBody struct {
	Name         string `json:"name"`
	Tagline      string `json:"tagline"`
	Description  string `json:"description"`
	Address      string `json:"address"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	LogoURL      string `json:"logo_url"`
	OpeningHours string `json:"opening_hours"`
	FacebookURL  string `json:"facebook_url"`
	InstagramURL string `json:"instagram_url"`
	TwitterURL   string `json:"twitter_url"`
}

type companyProfileResponse struct {
	companyProfileBody
	UpdatedAt *time.Time `json:"updated_at"`
}

func toCompanyResponse(c database.CompanyProfile) companyProfileResponse {
	resp := companyProfileResponse{companyProfileBody: companyProfileBody{
		Name:         c.Name,
		Tagline:      c.Tagline,
		Description:  c.Description,
		Address:      c.Address,
		Phone:        c.Phone,
		Email:        c.Email,
		LogoURL:      c.LogoUrl,
		OpeningHours: c.OpeningHours,
		FacebookURL:  c.FacebookUrl,
		InstagramURL: c.InstagramUrl,
		TwitterURL:   c.TwitterUrl,
	}}
	if !c.UpdatedAt.IsZero() {
		resp.UpdatedAt = &c.UpdatedAt
	}
	return resp
}

// Get handles GET /company. Before the profile is first saved an empty
// profile is returned.
func (h *CompanyHandler) Get(w http.ResponseWriter, r *http.Request) {
	profile, err := h.store.GetCompanyProfile(r.Context())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeData(w, http.StatusOK, toCompanyResponse(database.CompanyProfile{}))
			return
		}
		writeInternalError(w, "get company profile", err)
		return
	}
	writeData(w, http.StatusOK, toCompanyResponse(profile))
}

// Update handles PUT /company.
func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req companyProfileBody
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	profile, err := h.store.UpsertCompanyProfile(r.Context(), database.UpsertCompanyProfileParams{
		Name:         req.Name,
		Tagline:      strings.TrimSpace(req.Tagline),
		Description:  strings.TrimSpace(req.Description),
		Address:      strings.TrimSpace(req.Address),
		Phone:        strings.TrimSpace(req.Phone),
		Email:        strings.TrimSpace(req.Email),
		LogoUrl:      strings.TrimSpace(req.LogoURL),
		OpeningHours: strings.TrimSpace(req.OpeningHours),
		FacebookUrl:  strings.TrimSpace(req.FacebookURL),
		InstagramUrl: strings.TrimSpace(req.InstagramURL),
		TwitterUrl:   strings.TrimSpace(req.TwitterURL),
	})
	if err != nil {
		writeInternalError(w, "upsert company profile", err)
		return
	}
	writeData(w, http.StatusOK, toCompanyResponse(profile))
}
