package handler

import (
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/agriconnectke/marketplace-service/internal/auth"
	"github.com/agriconnectke/marketplace-service/internal/mail"
	"github.com/agriconnectke/marketplace-service/internal/mail/dto"
	"github.com/agriconnectke/marketplace-service/internal/pkg/apperror"
	"github.com/agriconnectke/marketplace-service/internal/pkg/httpx"
	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
	"github.com/agriconnectke/marketplace-service/internal/pkg/storage"
	"github.com/gorilla/mux"
)

const (
	msgSent         = "Mail sent successfully"
	msgPartial      = "Mail sent with some failures"
	msgCreatedOnly  = "Mail created successfully but not sent"
	msgInvalidBool  = "Must be a valid boolean."
	attachmentField = "attachments"
)

type MailHandler struct {
	uc     mail.UseCase
	urlFor func(string) string
	logger logger.ZapLogger
}

func NewMailHandler(uc mail.UseCase, urlFor func(string) string, log logger.ZapLogger) *MailHandler {
	return &MailHandler{uc: uc, urlFor: urlFor, logger: log}
}

func (h *MailHandler) Register(r *mux.Router, mw *auth.Middleware) {
	r.Handle("/mail", mw.RequireStaff(http.HandlerFunc(h.List))).Methods(http.MethodGet).Name("mail-list")
	r.Handle("/mail", mw.RequireStaff(http.HandlerFunc(h.Create))).Methods(http.MethodPost)
	r.Handle("/mail/requirements", mw.RequireStaff(http.HandlerFunc(h.Requirements))).Methods(http.MethodGet).Name("mail-requirements")
	r.Handle("/mail/example", mw.RequireStaff(http.HandlerFunc(h.Example))).Methods(http.MethodGet).Name("mail-example")
	r.Handle("/mail/{id}", mw.RequireStaff(http.HandlerFunc(h.Get))).Methods(http.MethodGet).Name("mail-detail")
	r.Handle("/mail/{id}/send", mw.RequireStaff(http.HandlerFunc(h.Send))).Methods(http.MethodPost).Name("mail-send")
}

func (h *MailHandler) List(w http.ResponseWriter, r *http.Request) {
	mails, err := h.uc.ListMails(r.Context(), auth.GetUserID(r.Context()))
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	out := make([]dto.MailSummary, len(mails))
	for i := range mails {
		out[i] = dto.NewMailSummary(&mails[i])
	}
	httpx.JSON(w, http.StatusOK, out)
}

func openAttachments(fields *httpx.Fields) ([]*storage.Upload, func(), error) {
	var uploads []*storage.Upload
	var files []multipart.File
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}
	for _, fh := range fields.Files(attachmentField) {
		upload, file, err := httpx.OpenUpload(fh)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		uploads = append(uploads, upload)
		files = append(files, file)
	}
	return uploads, closeAll, nil
}

func (h *MailHandler) Create(w http.ResponseWriter, r *http.Request) {
	fields, err := httpx.ReadFields(r, httpx.DefaultMaxMemory)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	sendNow := true
	if v, _ := fields.Lookup("send_now"); v != nil {
		b, err := strconv.ParseBool(*v)
		if err != nil {
			ve := apperror.NewValidation()
			ve.Add("send_now", msgInvalidBool)
			httpx.Error(w, r, h.logger, ve.Err())
			return
		}
		sendNow = b
	}

	attachments, closeAttachments, err := openAttachments(fields)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	defer closeAttachments()

	d, err := h.uc.CreateMail(r.Context(), &dto.CreateMailInput{
		SenderID:    auth.GetUserID(r.Context()),
		Kind:        fields.String("mail_type"),
		Recipient:   fields.String("recipient"),
		Audience:    fields.String("recipients"),
		Subject:     fields.String("subject"),
		Message:     fields.String("message"),
		SendNow:     sendNow,
		Attachments: attachments,
	})
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	if !d.Attempted {
		httpx.JSON(w, http.StatusCreated, dto.DeliveryResponse{ID: d.Mail.ID, Message: msgCreatedOnly})
		return
	}
	h.respondDelivery(w, http.StatusCreated, d)
}

func (h *MailHandler) respondDelivery(w http.ResponseWriter, okStatus int, d *dto.Delivery) {
	if len(d.FailedRecipients) > 0 {
		httpx.JSON(w, http.StatusMultiStatus, dto.DeliveryResponse{
			ID:               d.Mail.ID,
			Message:          msgPartial,
			FailedRecipients: d.FailedRecipients,
		})
		return
	}
	httpx.JSON(w, okStatus, dto.DeliveryResponse{ID: d.Mail.ID, Message: msgSent})
}

func (h *MailHandler) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.uc.GetMail(r.Context(), mux.Vars(r)["id"], auth.GetUserID(r.Context()))
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dto.NewMailResponse(m, h.urlFor))
}

func (h *MailHandler) Send(w http.ResponseWriter, r *http.Request) {
	d, err := h.uc.SendMail(r.Context(), mux.Vars(r)["id"], auth.GetUserID(r.Context()))
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	h.respondDelivery(w, http.StatusOK, d)
}

func (h *MailHandler) Requirements(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]dto.FieldHelp{
		"individual": {
			MailType:    "Required. Must be 'individual'.",
			Recipient:   "Required. A valid email address.",
			Subject:     "Required. At most 255 characters.",
			Message:     "Required. Plain text body.",
			Attachments: "Optional. Files sent as multipart 'attachments', 10 MB each at most.",
			SendNow:     "Optional. Defaults to true.",
		},
		"bulk": {
			MailType:    "Required. Must be 'bulk'.",
			Recipients:  "Required. One of 'staff', 'clients' or 'all'.",
			Subject:     "Required. At most 255 characters.",
			Message:     "Required. Plain text body.",
			Attachments: "Optional. Files sent as multipart 'attachments', 10 MB each at most.",
			SendNow:     "Optional. Defaults to true.",
		},
	})
}

func (h *MailHandler) Example(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]dto.Example{
		"individual": {
			MailType:    "individual",
			Recipient:   "farmer@example.com",
			Subject:     "Your advert is live",
			Message:     "Hello, your maize advert has been approved.",
			Attachments: []string{},
			SendNow:     true,
		},
		"bulk": {
			MailType:    "bulk",
			Recipients:  "clients",
			Subject:     "Planting season offers",
			Message:     "Certified seed and fertiliser packages are now available.",
			Attachments: []string{},
			SendNow:     false,
		},
	})
}
