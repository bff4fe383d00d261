package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Admin struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"hashed_password"`
	Role           string    `json:"role"`
	Status         string    `json:"status"`
	RestaurantName string    `json:"restaurant_name"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Customer struct {
	ID             uuid.UUID   `json:"id"`
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	HashedPassword string      `json:"hashed_password"`
	Role           string      `json:"role"`
	Phone          pgtype.Text `json:"phone"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

type MenuItem struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Price       pgtype.Numeric `json:"price"`
	Category    string         `json:"category"`
	ImageUrl    pgtype.Text    `json:"image_url"`
	IsAvailable bool           `json:"is_available"`
	Rating      pgtype.Numeric `json:"rating"`
	NumReviews  int32          `json:"num_reviews"`
	CreatedBy   uuid.UUID      `json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type MenuItemReview struct {
	ID           uuid.UUID `json:"id"`
	MenuItemID   uuid.UUID `json:"menu_item_id"`
	CustomerID   uuid.UUID `json:"customer_id"`
	CustomerName string    `json:"customer_name"`
	Rating       int32     `json:"rating"`
	Comment      string    `json:"comment"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Chef struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Specialty string      `json:"specialty"`
	Bio       string      `json:"bio"`
	ImageUrl  pgtype.Text `json:"image_url"`
	CreatedBy uuid.UUID   `json:"created_by"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type Order struct {
	ID                      uuid.UUID          `json:"id"`
	UserID                  uuid.UUID          `json:"user_id"`
	RestaurantID            uuid.UUID          `json:"restaurant_id"`
	ShippingAddress         string             `json:"shipping_address"`
	ShippingCity            string             `json:"shipping_city"`
	ShippingPostalCode      string             `json:"shipping_postal_code"`
	ShippingCountry         string             `json:"shipping_country"`
	PaymentMethod           string             `json:"payment_method"`
	ItemsPrice              pgtype.Numeric     `json:"items_price"`
	TaxPrice                pgtype.Numeric     `json:"tax_price"`
	ShippingPrice           pgtype.Numeric     `json:"shipping_price"`
	TotalPrice              pgtype.Numeric     `json:"total_price"`
	IsPaid                  bool               `json:"is_paid"`
	PaidAt                  pgtype.Timestamptz `json:"paid_at"`
	PaymentResultID         pgtype.Text        `json:"payment_result_id"`
	PaymentResultStatus     pgtype.Text        `json:"payment_result_status"`
	PaymentResultUpdateTime pgtype.Text        `json:"payment_result_update_time"`
	PaymentResultEmail      pgtype.Text        `json:"payment_result_email"`
	IsDelivered             bool               `json:"is_delivered"`
	DeliveredAt             pgtype.Timestamptz `json:"delivered_at"`
	Status                  string             `json:"status"`
	CardLast4               pgtype.Text        `json:"card_last4"`
	CardBrand               pgtype.Text        `json:"card_brand"`
	CreatedAt               time.Time          `json:"created_at"`
	UpdatedAt               time.Time          `json:"updated_at"`
}

type OrderItem struct {
	ID         uuid.UUID      `json:"id"`
	OrderID    uuid.UUID      `json:"order_id"`
	Position   int32          `json:"position"`
	MenuItemID uuid.UUID      `json:"menu_item_id"`
	Name       string         `json:"name"`
	Price      pgtype.Numeric `json:"price"`
	Quantity   int32          `json:"quantity"`
}

type Payment struct {
	ID                     uuid.UUID      `json:"id"`
	OrderID                uuid.UUID      `json:"order_id"`
	UserID                 uuid.UUID      `json:"user_id"`
	PaymentMethod          string         `json:"payment_method"`
	Amount                 pgtype.Numeric `json:"amount"`
	Currency               string         `json:"currency"`
	Status                 string         `json:"status"`
	GatewayPaymentIntentID pgtype.Text    `json:"gateway_payment_intent_id"`
	GatewayCustomerID      pgtype.Text    `json:"gateway_customer_id"`
	CardLast4              pgtype.Text    `json:"card_last4"`
	CardBrand              pgtype.Text    `json:"card_brand"`
	CardExpMonth           pgtype.Int4    `json:"card_exp_month"`
	CardExpYear            pgtype.Int4    `json:"card_exp_year"`
	CardHolderName         pgtype.Text    `json:"card_holder_name"`
	CreatedAt              time.Time      `json:"created_at"`
	UpdatedAt              time.Time      `json:"updated_at"`
}

type CompanyProfile struct {
	ID           int16     `json:"id"`
	Name         string    `json:"name"`
	Tagline      string    `json:"tagline"`
	Description  string    `json:"description"`
	Address      string    `json:"address"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email"`
	LogoUrl      string    `json:"logo_url"`
	OpeningHours string    `json:"opening_hours"`
	FacebookUrl  string    `json:"facebook_url"`
	InstagramUrl string    `json:"instagram_url"`
	TwitterUrl   string    `json:"twitter_url"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type ContactMessage struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}
