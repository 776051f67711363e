package dto

type RegisterInput struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type LoginInput struct {
	Credential string `json:"credential"`
	Password   string `json:"password"`
}

type ConfirmResetInput struct {
	UID         string `json:"-"`
	Token       string `json:"-"`
	NewPassword string `json:"new_password"`
}

type ChangePasswordInput struct {
	UserID      string `json:"-"`
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// UpdateProfileInput carries a partial update. Nil fields are left alone.
// Flag changes are honoured only for callers allowed to make them.
type UpdateProfileInput struct {
	ID          string  `json:"-"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	IsActive    *bool   `json:"is_active"`
	IsStaff     *bool   `json:"is_staff"`
	IsSuperuser *bool   `json:"is_superuser"`

	// Partial is false for full replacement, where every name and contact
	// field is required.
	Partial           bool `json:"-"`
	CallerIsStaff     bool `json:"-"`
	CallerIsSuperuser bool `json:"-"`
}

type CreateUserInput struct {
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	Password    string
	IsStaff     bool
	IsSuperuser bool
}

type PaymentMethodInput struct {
	UserID           string `json:"-"`
	Name             string `json:"name"`
	MpesaPhoneNumber string `json:"mpesa_phone_number"`
}
