package models

// CheckoutRequest - модель для создания бронирования с оплатой
type CheckoutRequest struct {
	CheckIn        string `json:"check_in" form:"check_in" binding:"required"`
	CheckOut       string `json:"check_out" form:"check_out" binding:"required"`
	Guests         int    `json:"guests" form:"guests" binding:"required"`
	GuestName      string `json:"guest_name" form:"guest_name"`
	GuestEmail     string `json:"guest_email" form:"guest_email"`
	GuestPhone     string `json:"guest_phone" form:"guest_phone"`
	CompanyName    string `json:"company_name" form:"company_name"`
	CompanyAddress string `json:"company_address" form:"company_address"`
	GuestNotes     string `json:"guest_notes" form:"guest_notes"`
}

// CheckoutResponse - модель ответа при создании бронирования
type CheckoutResponse struct {
	BookingID  int64  `json:"booking_id"`
	PaymentURL string `json:"payment_url"`
}

// PaymentReturnResponse - результат возврата пользователя с платежной страницы.
// Warning is set when the payment went through but a downstream side effect
// (receipt generation or email delivery) failed.
type PaymentReturnResponse struct {
	BookingID   int64  `json:"booking_id"`
	Status      string `json:"status"`
	ReceiptSent bool   `json:"receipt_sent"`
	Warning     string `json:"warning,omitempty"`
}

// CheckoutEventPayload - модель для webhook уведомлений от платежного шлюза
type CheckoutEventPayload struct {
	Event     string `json:"event"`
	SessionID string `json:"sessionId"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Timestamp string `json:"timestamp"`
}

// Webhook event types the payment gateway delivers
const (
	CheckoutEventCompleted = "checkout.completed"
	CheckoutEventExpired   = "checkout.expired"
)

// PropertyRequest - модель для создания и редактирования объекта
type PropertyRequest struct {
	Title                 string `json:"title" binding:"required"`
	ShortDescription      string `json:"short_description"`
	Description           string `json:"description"`
	ImageURL              string `json:"image_url"`
	PriceFrom             int64  `json:"price_from" binding:"required"`
	CleaningFee           int64  `json:"cleaning_fee"`
	Beds                  int    `json:"beds" binding:"required"`
	Baths                 int    `json:"baths" binding:"required"`
	Capacity              int    `json:"capacity" binding:"required"`
	Parking               bool   `json:"parking"`
	DistanceToStadiumMins int    `json:"distance_to_stadium_mins"`
	Tags                  string `json:"tags"`
	Keywords              string `json:"keywords"`
	ChannelListingID      string `json:"channel_listing_id"`
	IsFeatured            bool   `json:"is_featured"`
}

// PropertyFilter - параметры поиска объектов
type PropertyFilter struct {
	Query    string
	Guests   int
	Beds     int
	Featured bool
	Page     int
	PageSize int
}

// PropertyDetailResponse - объект плюс похожие объекты
type PropertyDetailResponse struct {
	Property *Property  `json:"property"`
	Similar  []Property `json:"similar_properties"`
}

// SignupRequest - модель регистрации пользователя
type SignupRequest struct {
	Email          string `json:"email" binding:"required"`
	Password       string `json:"password" binding:"required"`
	FirstName      string `json:"first_name" binding:"required"`
	Surname        string `json:"surname" binding:"required"`
	PhoneNumber    string `json:"phone_number"`
	BookingPurpose string `json:"booking_purpose"`
	CompanyName    string `json:"company_name"`
	CompanyAddress string `json:"company_address"`
}

// SignupResponse - модель ответа при регистрации
type SignupResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// ListBookingsResponseItem - элемент списка бронирований пользователя
type ListBookingsResponseItem struct {
	ID         int64  `json:"id"`
	PropertyID int64  `json:"property_id"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	Guests     int    `json:"guests"`
	Status     string `json:"status"`
	TotalPrice *int64 `json:"total_price,omitempty"`
	HasReceipt bool   `json:"has_receipt"`
}
