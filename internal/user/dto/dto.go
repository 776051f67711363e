package dto

import (
	"time"

	"github.com/agriconnectke/marketplace-service/internal/model"
)

type UserFilters struct {
	Search   string
	IsActive *bool
	Page     int
	PageSize int
}

type AuthResult struct {
	User   *model.User
	Token  string
	Expiry *time.Time
}

type ProfileResponse struct {
	ID             string     `json:"id"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	FullName       string     `json:"full_name"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone"`
	ProfilePicture *string    `json:"profile_picture"`
	IsNew          bool       `json:"is_new"`
	IsActive       *bool      `json:"is_active,omitempty"`
	IsStaff        *bool      `json:"is_staff,omitempty"`
	IsSuperuser    *bool      `json:"is_superuser,omitempty"`
	LastLogin      *time.Time `json:"last_login"`
	CreatedOn      time.Time  `json:"created_on"`
}

// NewProfileResponse hides account flags the viewer may not see.
func NewProfileResponse(u *model.User, pictureURL func(string) string, viewerStaff, viewerSuperuser bool, now time.Time) ProfileResponse {
	resp := ProfileResponse{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		FullName:  u.FullName(),
		Email:     u.Email,
		Phone:     u.Phone,
		IsNew:     u.IsNew(now),
		LastLogin: u.LastLogin,
		CreatedOn: u.CreatedAt,
	}
	if u.ProfilePicture != nil && pictureURL != nil {
		url := pictureURL(*u.ProfilePicture)
		resp.ProfilePicture = &url
	}
	if viewerStaff {
		active := u.IsActive
		resp.IsActive = &active
	}
	if viewerSuperuser {
		staff, super := u.IsStaff, u.IsSuperuser
		resp.IsStaff = &staff
		resp.IsSuperuser = &super
	}
	return resp
}

type UserListItem struct {
	ID        string     `json:"id"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	CreatedOn time.Time  `json:"created_on"`
	LastLogin *time.Time `json:"last_login"`
}

type PaymentMethodResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	MpesaPhoneNumber string    `json:"mpesa_phone_number"`
	CreatedAt        time.Time `json:"created_at"`
}
