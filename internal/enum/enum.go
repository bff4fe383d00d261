package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending       = "Pending"
	OrderStatusInProcess     = "In Process"
	OrderStatusOutOfDelivery = "Out of Delivery"
	OrderStatusDelivered     = "Delivered"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

const (
	AdminStatusPending  = "pending"
	AdminStatusApproved = "approved"
	AdminStatusRejected = "rejected"
)

// ── Group B: Principals (CHECK constrained in DB) ──

const (
	AdminRoleAdmin      = "admin"
	AdminRoleSuperAdmin = "super-admin"
)

// Customer roles. "admin" on a customer account is a legacy value and grants
// nothing on the restaurant side.
const (
	CustomerRoleUser  = "user"
	CustomerRoleAdmin = "admin"
)

const (
	PrincipalCustomer = "customer"
	PrincipalAdmin    = "admin"
)

// ── Group C: Payment methods ──

// Order-level payment method chosen at checkout.
const (
	OrderPaymentCard           = "Card"
	OrderPaymentCashOnDelivery = "Cash on Delivery"
	OrderPaymentOther          = "Other"
)

// Payment record methods. Stripe is the only gateway-backed method.
const (
	PaymentMethodStripe         = "Stripe"
	PaymentMethodCashOnDelivery = "Cash on Delivery"
	PaymentMethodCard           = "Card"
	PaymentMethodPayPal         = "PayPal"
	PaymentMethodOther          = "Other"
)

// ── Group D: Menu categories (no DB constraint) ──

const (
	CategoryAppetizer  = "appetizer"
	CategoryMainCourse = "main-course"
	CategoryDessert    = "dessert"
	CategoryBeverage   = "beverage"
	CategorySideDish   = "side-dish"
	CategorySalad      = "salad"
	CategorySoup       = "soup"
)

// Categories lists every accepted menu category.
var Categories = []string{
	CategoryAppetizer,
	CategoryMainCourse,
	CategoryDessert,
	CategoryBeverage,
	CategorySideDish,
	CategorySalad,
	CategorySoup,
}

// IsOrderStatus reports whether s is one of the four order states.
func IsOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusInProcess, OrderStatusOutOfDelivery, OrderStatusDelivered:
		return true
	}
	return false
}

func IsOrderPaymentMethod(s string) bool {
	switch s {
	case OrderPaymentCard, OrderPaymentCashOnDelivery, OrderPaymentOther:
		return true
	}
	return false
}

func IsPaymentMethod(s string) bool {
	switch s {
	case PaymentMethodStripe, PaymentMethodCashOnDelivery, PaymentMethodCard,
		PaymentMethodPayPal, PaymentMethodOther:
		return true
	}
	return false
}

func IsAdminStatus(s string) bool {
	switch s {
	case AdminStatusPending, AdminStatusApproved, AdminStatusRejected:
		return true
	}
	return false
}

func IsCategory(s string) bool {
	for _, c := range Categories {
		if c == s {
			return true
		}
	}
	return false
}
