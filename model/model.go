package model

import (
	"time"

	"gorm.io/datatypes"
)

var ALL_MARKETPLACE_TABLES []interface{} = []interface{}{
	Business{}, Product{}, Ad{}, AdProduct{}, Order{}, User{}, PromotionalCode{},
}

// Business OwnerId may hold a numeric id or a Firebase UID string.
type Business struct {
	ID                uint           `json:"id" gorm:"auto_increment;primary_key"`
	Name              string         `json:"name" gorm:"index;not null"`
	Description       *string        `json:"description,omitempty"`
	OwnerId           string         `json:"owner_id" gorm:"index;not null"`
	LogoUrl           *string        `json:"logo_url,omitempty"`
	BannerUrl         *string        `json:"banner_url,omitempty"`
	ImageUrl          *string        `json:"image_url,omitempty"`
	Address           *string        `json:"address,omitempty"`
	Phone             *string        `json:"phone,omitempty"`
	Email             *string        `json:"email,omitempty"`
	Website           *string        `json:"website,omitempty"`
	Categories        datatypes.JSON `json:"categories,omitempty"`
	IsActive          bool           `json:"is_active" gorm:"index"`
	DeliveryOptions   *string        `json:"delivery_options,omitempty"`
	PaymentMethods    datatypes.JSON `json:"payment_methods,omitempty"`
	DeliveryFee       *float64       `json:"delivery_fee,omitempty" gorm:"type:decimal(10,2)"`
	MinimumOrder      *float64       `json:"minimum_order,omitempty" gorm:"type:decimal(10,2)"`
	DeliveryTime      *string        `json:"delivery_time,omitempty"`
	Rating            *float64       `json:"rating,omitempty" gorm:"type:decimal(3,2)"`
	SpinWheelEnabled  bool           `json:"spin_wheel_enabled"`
	SpinDiscountType  *string        `json:"spin_discount_type,omitempty"`
	SpinDiscountValue *float64       `json:"spin_discount_value,omitempty" gorm:"type:decimal(10,2)"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// Product AdOnly items never show up in the storefront listing, only inside ads/offers.
type Product struct {
	ID                 uint           `json:"id" gorm:"auto_increment;primary_key"`
	BusinessId         uint           `json:"business_id" gorm:"index;not null"`
	Name               string         `json:"name" gorm:"index;not null"`
	Description        *string        `json:"description,omitempty"`
	Price              float64        `json:"price" gorm:"type:decimal(10,2);not null"`
	OriginalPrice      *float64       `json:"original_price,omitempty" gorm:"type:decimal(10,2)"`
	Category           string         `json:"category"`
	ImageUrl           *string        `json:"image_url,omitempty"`
	Images             datatypes.JSON `json:"images,omitempty"`
	Video              *string        `json:"video,omitempty"`
	StockQuantity      int            `json:"stock_quantity"`
	Stock              int            `json:"stock"`
	InStock            bool           `json:"in_stock"`
	IsActive           bool           `json:"is_active" gorm:"index"`
	IsFeatured         bool           `json:"is_featured"`
	Promotional        bool           `json:"promotional"`
	AdOnly             bool           `json:"ad_only"`
	DiscountPercentage float64        `json:"discount_percentage"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

type Ad struct {
	ID           uint       `json:"id" gorm:"auto_increment;primary_key"`
	BusinessId   uint       `json:"business_id" gorm:"index;not null"`
	Title        string     `json:"title" gorm:"not null"`
	Description  *string    `json:"description,omitempty"`
	DiscountText *string    `json:"discount_text,omitempty"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	IsActive     bool       `json:"is_active" gorm:"index"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type AdProduct struct {
	ID         uint      `json:"id" gorm:"auto_increment;primary_key"`
	AdId       uint      `json:"ad_id" gorm:"index;not null"`
	ProductId  uint      `json:"product_id" gorm:"index;not null"`
	SpecialTag *string   `json:"special_tag,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Order Items holds the cart snapshot taken at creation time, later product
// edits never touch it.
type Order struct {
	ID              uint           `json:"id" gorm:"auto_increment;primary_key"`
	OrderNumber     string         `json:"order_number" gorm:"index;not null"`
	UserId          string         `json:"user_id" gorm:"index;not null"`
	BusinessId      uint           `json:"business_id" gorm:"index;not null"`
	Items           datatypes.JSON `json:"items"`
	TotalAmount     float64        `json:"total_amount" gorm:"type:decimal(10,2);not null"`
	Subtotal        float64        `json:"subtotal" gorm:"type:decimal(10,2)"`
	ShippingFee     float64        `json:"shipping_fee" gorm:"type:decimal(10,2)"`
	DiscountAmount  float64        `json:"discount_amount" gorm:"type:decimal(10,2)"`
	DeliveryType    *string        `json:"delivery_type,omitempty"`
	DeliveryAddress *string        `json:"delivery_address,omitempty"`
	PaymentMethod   *string        `json:"payment_method,omitempty"`
	CustomerName    *string        `json:"customer_name,omitempty"`
	CustomerEmail   *string        `json:"customer_email,omitempty"`
	CustomerPhone   *string        `json:"customer_phone,omitempty"`
	DiscountCode    *string        `json:"discount_code,omitempty"`
	Notes           *string        `json:"notes,omitempty"`
	Status          string         `json:"status" gorm:"index"`
	TrackingNumber  *string        `json:"tracking_number,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// OrderItem is one line of an order's items snapshot.
type OrderItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Image    *string `json:"image,omitempty"`
}

// User Email and FirebaseUid are alternate identities; lookups prefer the UID.
type User struct {
	ID             uint      `json:"id" gorm:"auto_increment;primary_key"`
	Email          string    `json:"email" gorm:"index;unique;not null"`
	FirebaseUid    *string   `json:"firebase_uid,omitempty" gorm:"index"`
	Name           *string   `json:"name,omitempty"`
	Phone          *string   `json:"phone,omitempty"`
	Address        *string   `json:"address,omitempty"`
	City           *string   `json:"city,omitempty"`
	State          *string   `json:"state,omitempty"`
	PostalCode     *string   `json:"postal_code,omitempty"`
	PhotoUrl       *string   `json:"photo_url,omitempty"`
	Type           string    `json:"type"`
	IsBusinessUser bool      `json:"is_business_user"`
	PushToken      *string   `json:"push_token,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type PromotionalCode struct {
	ID             uint       `json:"id" gorm:"auto_increment;primary_key"`
	Code           string     `json:"code" gorm:"index;not null"`
	BusinessId     uint       `json:"business_id" gorm:"index"`
	DiscountType   *string    `json:"discount_type,omitempty"`
	DiscountValue  float64    `json:"discount_value" gorm:"type:decimal(10,2)"`
	UsageLimit     *int       `json:"usage_limit,omitempty"`
	UsedCount      int        `json:"used_count"`
	MaxUsesPerUser *int       `json:"max_uses_per_user,omitempty"`
	ValidFrom      *time.Time `json:"valid_from,omitempty"`
	ValidUntil     *time.Time `json:"valid_until,omitempty"`
	IsActive       bool       `json:"is_active" gorm:"index"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
