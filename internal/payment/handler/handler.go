package handler

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/agriconnectke/marketplace-service/internal/auth"
	"github.com/agriconnectke/marketplace-service/internal/payment"
	"github.com/agriconnectke/marketplace-service/internal/payment/dto"
	"github.com/agriconnectke/marketplace-service/internal/pkg/apperror"
	"github.com/agriconnectke/marketplace-service/internal/pkg/httpx"
	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
	"github.com/agriconnectke/marketplace-service/internal/pkg/mpesa"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const callbackTokenHeader = "X-Callback-Token"

type PaymentHandler struct {
	uc            payment.UseCase
	callbackToken string
	logger        logger.ZapLogger
}

// NewPaymentHandler builds the payment routes. When callbackToken is set the
// M-Pesa callback must carry it as ?token= or in X-Callback-Token.
func NewPaymentHandler(uc payment.UseCase, callbackToken string, log logger.ZapLogger) *PaymentHandler {
	return &PaymentHandler{uc: uc, callbackToken: callbackToken, logger: log}
}

func (h *PaymentHandler) Register(r *mux.Router, mw *auth.Middleware) {
	r.HandleFunc("/mpesa/callback", h.Callback).Methods(http.MethodPost).Name("mpesa-callback")
	r.Handle("/payments", mw.RequireStaff(http.HandlerFunc(h.List))).Methods(http.MethodGet).Name("payment-list")
	r.Handle("/payments", mw.RequireStaff(http.HandlerFunc(h.Record))).Methods(http.MethodPost).Name("payment-record")
	r.Handle("/payments/{id}", mw.RequireAuth(http.HandlerFunc(h.Get))).Methods(http.MethodGet).Name("payment-detail")
	r.Handle("/payments/{id}/refresh", mw.RequireAuth(http.HandlerFunc(h.Refresh))).Methods(http.MethodPost).Name("payment-refresh")
}

func (h *PaymentHandler) authorizedCallback(r *http.Request) bool {
	if h.callbackToken == "" {
		return true
	}
	got := r.URL.Query().Get("token")
	if got == "" {
		got = r.Header.Get(callbackTokenHeader)
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.callbackToken)) == 1
}

func (h *PaymentHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if !h.authorizedCallback(r) {
		h.logger.Warn("callback rejected", zap.String("remote_addr", r.RemoteAddr))
		httpx.Error(w, r, h.logger, apperror.ErrInvalidCallbackToken)
		return
	}
	cb, err := mpesa.ParseCallback(r.Body)
	if err != nil {
		if errors.Is(err, mpesa.ErrMalformedCallback) {
			err = apperror.ErrMalformedCallback
		}
		httpx.Error(w, r, h.logger, err)
		return
	}
	if err := h.uc.HandleCallback(r.Context(), cb); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dto.CallbackAck{ResultCode: 0, ResultDesc: "Accepted"})
}

func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	p := httpx.ParsePage(r)
	q := r.URL.Query()
	payments, count, err := h.uc.ListPayments(r.Context(), &dto.PaymentFilters{
		UserID:   q.Get("user"),
		Status:   q.Get("status"),
		Page:     p.Page,
		PageSize: p.PageSize,
	})
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.NewPage(r, dto.NewPaymentList(payments), count, p))
}

func (h *PaymentHandler) Record(w http.ResponseWriter, r *http.Request) {
	var input dto.RecordPaymentInput
	if err := httpx.Decode(r, &input); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	p, err := h.uc.RecordPayment(r.Context(), &input)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, dto.NewPaymentResponse(p))
}

func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.uc.GetPayment(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dto.NewPaymentResponse(p))
}

func (h *PaymentHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	p, err := h.uc.RefreshStatus(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dto.NewPaymentResponse(p))
}
