package dto

import (
	"time"

	"github.com/agriconnectke/marketplace-service/internal/model"
)

type SubscriptionFilters struct {
	UserID   string
	Active   *bool
	Page     int
	PageSize int
}

type PackageResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Duration    int       `json:"duration"`
	Pricing     string    `json:"pricing"`
	Offerings   []string  `json:"offerings"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewPackageResponse(p *model.SubscriptionPackage) PackageResponse {
	resp := PackageResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Duration:    p.Duration,
		Pricing:     p.Pricing.StringFixed(2),
		Offerings:   make([]string, len(p.Offerings)),
		CreatedAt:   p.CreatedAt,
	}
	for i, o := range p.Offerings {
		resp.Offerings[i] = o.Offering
	}
	return resp
}

func NewPackageList(pkgs []model.SubscriptionPackage) []PackageResponse {
	out := make([]PackageResponse, len(pkgs))
	for i := range pkgs {
		out[i] = NewPackageResponse(&pkgs[i])
	}
	return out
}

type SubscriptionResponse struct {
	ID          string    `json:"id"`
	User        string    `json:"user"`
	Package     string    `json:"package"`
	PackageName string    `json:"package_name"`
	Payment     string    `json:"payment"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewSubscriptionResponse(s *model.Subscription) SubscriptionResponse {
	return SubscriptionResponse{
		ID:          s.ID,
		User:        s.UserID,
		Package:     s.PackageID,
		PackageName: s.PackageName,
		Payment:     s.PaymentID,
		StartDate:   s.StartDate.Format(time.DateOnly),
		EndDate:     s.EndDate.Format(time.DateOnly),
		Active:      s.Active,
		CreatedAt:   s.CreatedAt,
	}
}

func NewSubscriptionList(subs []model.Subscription) []SubscriptionResponse {
	out := make([]SubscriptionResponse, len(subs))
	for i := range subs {
		out[i] = NewSubscriptionResponse(&subs[i])
	}
	return out
}

// SubscribeResponse tells the client which STK prompt to wait for.
type SubscribeResponse struct {
	SubscriptionResponse
	CheckoutRequestID string `json:"checkout_request_id"`
	InvoiceNumber     string `json:"invoice_number"`
	Amount            string `json:"amount"`
	Status            string `json:"payment_status"`
}

func NewSubscribeResponse(s *model.Subscription, p *model.Payment) SubscribeResponse {
	resp := SubscribeResponse{
		SubscriptionResponse: NewSubscriptionResponse(s),
		InvoiceNumber:        p.InvoiceNumber,
		Amount:               p.TransAmount.StringFixed(2),
		Status:               p.Status,
	}
	if p.CheckoutRequestID != nil {
		resp.CheckoutRequestID = *p.CheckoutRequestID
	}
	return resp
}

type FeaturedResponse struct {
	ID            string    `json:"id"`
	Subscription  string    `json:"subscription"`
	Advertisement string    `json:"advertisement"`
	CreatedAt     time.Time `json:"created_at"`
}

func NewFeaturedResponse(f *model.FeaturedAdvertisement) FeaturedResponse {
	return FeaturedResponse{
		ID:            f.ID,
		Subscription:  f.SubscriptionID,
		Advertisement: f.AdvertisementID,
		CreatedAt:     f.CreatedAt,
	}
}
