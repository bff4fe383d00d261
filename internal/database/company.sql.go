package database

import "context"

const companyColumns = `id, name, tagline, description, address, phone, email, logo_url,
    opening_hours, facebook_url, instagram_url, twitter_url, updated_at`

const getCompanyProfile = `-- name: GetCompanyProfile :one
SELECT ` + companyColumns + ` FROM company_profile WHERE id = 1`

func (q *Queries) GetCompanyProfile(ctx context.Context) (CompanyProfile, error) {
	row := q.db.QueryRow(ctx, getCompanyProfile)
	var i CompanyProfile
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Tagline,
		&i.Description,
		&i.Address,
		&i.Phone,
		&i.Email,
		&i.LogoUrl,
		&i.OpeningHours,
		&i.FacebookUrl,
		&i.InstagramUrl,
		&i.TwitterUrl,
		&i.UpdatedAt,
	)
	return i, err
}

const upsertCompanyProfile = `-- name: UpsertCompanyProfile :one
INSERT INTO company_profile (id, name, tagline, description, address, phone, email, logo_url,
    opening_hours, facebook_url, instagram_url, twitter_url)
VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name, tagline = EXCLUDED.tagline, description = EXCLUDED.description,
    address = EXCLUDED.address, phone = EXCLUDED.phone, email = EXCLUDED.email,
    logo_url = EXCLUDED.logo_url, opening_hours = EXCLUDED.opening_hours,
    facebook_url = EXCLUDED.facebook_url, instagram_url = EXCLUDED.instagram_url,
    twitter_url = EXCLUDED.twitter_url, updated_at = now()
RETURNING ` + companyColumns

type UpsertCompanyProfileParams struct {
	Name         string `json:"name"`
	Tagline      string `json:"tagline"`
	Description  string `json:"description"`
	Address      string `json:"address"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	LogoUrl      string `json:"logo_url"`
	OpeningHours string `json:"opening_hours"`
	FacebookUrl  string `json:"facebook_url"`
	InstagramUrl string `json:"instagram_url"`
	TwitterUrl   string `json:"twitter_url"`
}

func (q *Queries) UpsertCompanyProfile(ctx context.Context, arg UpsertCompanyProfileParams) (CompanyProfile, error) {
	row := q.db.QueryRow(ctx, upsertCompanyProfile,
		arg.Name,
		arg.Tagline,
		arg.Description,
		arg.Address,
		arg.Phone,
		arg.Email,
		arg.LogoUrl,
		arg.OpeningHours,
		arg.FacebookUrl,
		arg.InstagramUrl,
		arg.TwitterUrl,
	)
	var i CompanyProfile
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Tagline,
		&i.Description,
		&i.Address,
		&i.Phone,
		&i.Email,
		&i.LogoUrl,
		&i.OpeningHours,
		&i.FacebookUrl,
		&i.InstagramUrl,
		&i.TwitterUrl,
		&i.UpdatedAt,
	)
	return i, err
}
