package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/agriconnectke/marketplace-service/internal/auth"
	"github.com/agriconnectke/marketplace-service/internal/model"
	"github.com/agriconnectke/marketplace-service/internal/pkg/apperror"
	"github.com/agriconnectke/marketplace-service/internal/pkg/httpx"
	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
	"github.com/agriconnectke/marketplace-service/internal/user"
	"github.com/agriconnectke/marketplace-service/internal/user/dto"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
)

const maxPictureSize = 5 << 20

var errPictureRequired = apperror.New(codes.InvalidArgument, "profile_picture_required", "A profile_picture file is required.")

type UserHandler struct {
	uc     user.UseCase
	urlFor func(key string) string
	logger logger.ZapLogger
}

func NewUserHandler(uc user.UseCase, urlFor func(string) string, log logger.ZapLogger) *UserHandler {
	return &UserHandler{
		uc:     uc,
		urlFor: urlFor,
		logger: log,
	}
}

// Register mounts the account routes on the /api subrouter.
func (h *UserHandler) Register(r *mux.Router, mw *auth.Middleware) {
	r.HandleFunc("/accounts/signup", h.Signup).Methods(http.MethodPost).Name("signup")
	r.HandleFunc("/accounts/login", h.Login).Methods(http.MethodPost).Name("login")
	r.Handle("/accounts/logout", mw.RequireAuth(http.HandlerFunc(h.Logout))).Methods(http.MethodPost).Name("logout")
	r.Handle("/accounts/logout-all", mw.RequireAuth(http.HandlerFunc(h.LogoutAll))).Methods(http.MethodPost).Name("logout-all")
	r.HandleFunc("/accounts/password-reset", h.RequestPasswordReset).Methods(http.MethodPost).Name("password-reset")
	r.HandleFunc("/accounts/password-reset/{uid}/{token}", h.ConfirmPasswordReset).Methods(http.MethodPost).Name("password-reset-confirm")

	r.Handle("/users/list", mw.RequireStaff(http.HandlerFunc(h.ListUsers))).Methods(http.MethodGet).Name("user-list")
	r.Handle("/user", mw.RequireAuth(http.HandlerFunc(h.Me))).
		Methods(http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete).Name("user")
	r.Handle("/user/change-password", mw.RequireAuth(http.HandlerFunc(h.ChangePassword))).
		Methods(http.MethodPost, http.MethodPut, http.MethodPatch).Name("change-password")
	r.Handle("/user/profile-picture", mw.RequireAuth(http.HandlerFunc(h.UploadProfilePicture))).
		Methods(http.MethodPost).Name("profile-picture")
	r.Handle("/user/payment-methods", mw.RequireAuth(http.HandlerFunc(h.PaymentMethods))).
		Methods(http.MethodGet, http.MethodPost).Name("payment-methods")
	r.Handle("/user/payment-methods/{id}", mw.RequireAuth(http.HandlerFunc(h.DeletePaymentMethod))).
		Methods(http.MethodDelete).Name("payment-method-detail")
}

func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var input dto.RegisterInput
	if err := httpx.Decode(r, &input); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	res, err := h.uc.Register(r.Context(), &input)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, map[string]interface{}{
		"user":    map[string]string{"first_name": res.User.FirstName},
		"token":   res.Token,
		"expiry":  res.Expiry,
		"message": "User created and Signed in successfully",
		"result":  "success",
	})
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input dto.LoginInput
	if err := httpx.Decode(r, &input); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	res, err := h.uc.Login(r.Context(), &input)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]interface{}{
		"user":   map[string]bool{"staff": res.User.IsStaff},
		"token":  res.Token,
		"expiry": res.Expiry,
		"result": "success",
	})
}

func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.uc.Logout(r.Context(), auth.TokenFromRequest(r)); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"result": "success"})
}

func (h *UserHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	if err := h.uc.LogoutAll(r.Context(), auth.GetUserID(r.Context())); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"result": "success"})
}

func (h *UserHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email string `json:"email"`
	}
	if err := httpx.Decode(r, &input); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	if err := h.uc.RequestPasswordReset(r.Context(), input.Email); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]string{
		"message": "If a user with this email exists, a password reset email has been sent.",
		"result":  "success",
	})
}

func (h *UserHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	input := dto.ConfirmResetInput{UID: vars["uid"], Token: vars["token"]}
	if err := httpx.Decode(r, &input); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	if err := h.uc.ConfirmPasswordReset(r.Context(), &input); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]string{
		"message": "Password has been reset successfully.",
		"result":  "success",
	})
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	input := dto.ChangePasswordInput{UserID: auth.GetUserID(r.Context())}
	if err := httpx.Decode(r, &input); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	if err := h.uc.ChangePassword(r.Context(), &input); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"detail": "Password changed successfully."})
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.UserFromContext(r.Context())

	switch r.Method {
	case http.MethodGet:
		h.writeProfile(w, caller, caller)

	case http.MethodPut, http.MethodPatch:
		input := dto.UpdateProfileInput{
			ID:                caller.ID,
			Partial:           r.Method == http.MethodPatch,
			CallerIsStaff:     caller.IsStaff,
			CallerIsSuperuser: caller.IsSuperuser,
		}
		if err := httpx.Decode(r, &input); err != nil {
			httpx.Error(w, r, h.logger, err)
			return
		}
		updated, err := h.uc.UpdateProfile(r.Context(), &input)
		if err != nil {
			httpx.Error(w, r, h.logger, err)
			return
		}
		h.writeProfile(w, updated, caller)

	case http.MethodDelete:
		if err := h.uc.Deactivate(r.Context(), caller.ID); err != nil {
			httpx.Error(w, r, h.logger, err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"detail": "User deactivated successfully."})
	}
}

func (h *UserHandler) writeProfile(w http.ResponseWriter, u, viewer *model.User) {
	httpx.JSON(w, http.StatusOK, dto.NewProfileResponse(u, h.urlFor, viewer.IsStaff, viewer.IsSuperuser, time.Now()))
}

func (h *UserHandler) UploadProfilePicture(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.UserFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxPictureSize+1<<20)
	file, header, err := r.FormFile("profile_picture")
	if err != nil {
		httpx.Error(w, r, h.logger, errPictureRequired)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		ve := apperror.NewValidation()
		ve.Add("profile_picture", "Upload a valid image.")
		httpx.Error(w, r, h.logger, ve)
		return
	}

	updated, err := h.uc.UploadProfilePicture(r.Context(), caller.ID, header.Filename, contentType, file)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	h.logger.Info("profile picture updated", zap.String("user_id", caller.ID))
	h.writeProfile(w, updated, caller)
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page := httpx.ParsePage(r)
	filters := &dto.UserFilters{
		Search:   r.URL.Query().Get("search"),
		Page:     page.Page,
		PageSize: page.PageSize,
	}

	users, count, err := h.uc.ListUsers(r.Context(), filters)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	items := make([]dto.UserListItem, len(users))
	for i, u := range users {
		items[i] = dto.UserListItem{
			ID:        u.ID,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Email:     u.Email,
			Phone:     u.Phone,
			CreatedOn: u.CreatedAt,
			LastLogin: u.LastLogin,
		}
	}
	httpx.JSON(w, http.StatusOK, httpx.NewPage(r, items, count, page))
}

func (h *UserHandler) PaymentMethods(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())

	if r.Method == http.MethodPost {
		input := dto.PaymentMethodInput{UserID: userID}
		if err := httpx.Decode(r, &input); err != nil {
			httpx.Error(w, r, h.logger, err)
			return
		}
		pm, err := h.uc.AddPaymentMethod(r.Context(), &input)
		if err != nil {
			httpx.Error(w, r, h.logger, err)
			return
		}
		httpx.JSON(w, http.StatusCreated, mapPaymentMethod(pm))
		return
	}

	methods, err := h.uc.ListPaymentMethods(r.Context(), userID)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	out := make([]dto.PaymentMethodResponse, len(methods))
	for i := range methods {
		out[i] = mapPaymentMethod(&methods[i])
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *UserHandler) DeletePaymentMethod(w http.ResponseWriter, r *http.Request) {
	if err := h.uc.DeletePaymentMethod(r.Context(), auth.GetUserID(r.Context()), mux.Vars(r)["id"]); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.NoContent(w)
}

func mapPaymentMethod(pm *model.PaymentMethod) dto.PaymentMethodResponse {
	return dto.PaymentMethodResponse{
		ID:               pm.ID,
		Name:             pm.Name,
		MpesaPhoneNumber: pm.MpesaPhoneNumber,
		CreatedAt:        pm.CreatedAt,
	}
}
