package handler

import (
	"mime/multipart"
	"net/http"
	"time"

	"github.com/agriconnectke/marketplace-service/internal/advertisement"
	"github.com/agriconnectke/marketplace-service/internal/advertisement/dto"
	"github.com/agriconnectke/marketplace-service/internal/auth"
	"github.com/agriconnectke/marketplace-service/internal/model"
	"github.com/agriconnectke/marketplace-service/internal/pkg/httpx"
	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
	"github.com/agriconnectke/marketplace-service/internal/pkg/storage"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type AdvertisementHandler struct {
	uc     advertisement.UseCase
	urlFor func(string) string
	logger logger.ZapLogger
}

func NewAdvertisementHandler(uc advertisement.UseCase, urlFor func(string) string, log logger.ZapLogger) *AdvertisementHandler {
	return &AdvertisementHandler{
		uc:     uc,
		urlFor: urlFor,
		logger: log,
	}
}

var classificationRoutes = []struct {
	path, name, classification string
}{
	{"/ads/produce", "produce-ads", model.ClassificationFarmProduce},
	{"/ads/inputs", "input-ads", model.ClassificationFarmInput},
	{"/ads/services", "service-ads", model.ClassificationService},
}

func (h *AdvertisementHandler) Register(r *mux.Router, mw *auth.Middleware) {
	r.Handle("/ads", mw.RequireAuth(http.HandlerFunc(h.List))).Methods(http.MethodGet).Name("ads")
	r.Handle("/ads/user/list", mw.RequireAuth(http.HandlerFunc(h.ListMine))).Methods(http.MethodGet).Name("user-ads")
	r.Handle("/ads/new", mw.RequireAuth(http.HandlerFunc(h.Create))).Methods(http.MethodPost).Name("new-ad")
	r.HandleFunc("/ads/search", h.Search).Methods(http.MethodGet).Name("search-ads")
	r.HandleFunc("/ads/featured", h.Featured).Methods(http.MethodGet).Name("featured-ads")

	r.Handle("/ads/detail/{id}", mw.RequireAuth(http.HandlerFunc(h.Get))).Methods(http.MethodGet).Name("ad-detail")
	r.Handle("/ads/detail/{id}", mw.RequireAuth(http.HandlerFunc(h.Update))).Methods(http.MethodPut, http.MethodPatch)
	r.Handle("/ads/detail/{id}", mw.RequireAuth(http.HandlerFunc(h.Delete))).Methods(http.MethodDelete)
	r.Handle("/ads/detail/{id}/photos", mw.RequireAuth(http.HandlerFunc(h.AddPhotos))).Methods(http.MethodPost).Name("ad-photos")
	r.Handle("/ads/detail/{id}/photos/{photo_id}", mw.RequireAuth(http.HandlerFunc(h.DeletePhoto))).Methods(http.MethodDelete).Name("ad-photo-detail")

	for _, cr := range classificationRoutes {
		r.HandleFunc(cr.path, h.listByClassification(cr.classification)).Methods(http.MethodGet).Name(cr.name)
		r.HandleFunc(cr.path+"/top", h.top(cr.classification)).Methods(http.MethodGet).Name("top-" + cr.name)
	}
}

func (h *AdvertisementHandler) respondPage(w http.ResponseWriter, r *http.Request, filters *dto.AdvertisementFilters) {
	page := httpx.ParsePage(r)
	filters.Page = page.Page
	filters.PageSize = page.PageSize

	ads, count, err := h.uc.ListAdvertisements(r.Context(), filters)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	results := dto.NewAdvertisementList(ads, h.urlFor, time.Now())
	httpx.JSON(w, http.StatusOK, httpx.NewPage(r, results, count, page))
}

func queryFilters(r *http.Request) *dto.AdvertisementFilters {
	q := r.URL.Query()
	search := q.Get("search")
	if search == "" {
		search = q.Get("q")
	}
	return &dto.AdvertisementFilters{
		CategoryID:     q.Get("category"),
		Classification: q.Get("classification"),
		County:         q.Get("county"),
		UserID:         q.Get("user"),
		Search:         search,
	}
}

func (h *AdvertisementHandler) List(w http.ResponseWriter, r *http.Request) {
	h.respondPage(w, r, queryFilters(r))
}

func (h *AdvertisementHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	filters := queryFilters(r)
	filters.UserID = auth.GetUserID(r.Context())
	h.respondPage(w, r, filters)
}

func (h *AdvertisementHandler) Search(w http.ResponseWriter, r *http.Request) {
	h.respondPage(w, r, queryFilters(r))
}

func (h *AdvertisementHandler) listByClassification(classification string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters := queryFilters(r)
		filters.Classification = classification
		h.respondPage(w, r, filters)
	}
}

func (h *AdvertisementHandler) top(classification string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ads, err := h.uc.TopAdvertisements(r.Context(), classification)
		if err != nil {
			httpx.Error(w, r, h.logger, err)
			return
		}
		httpx.JSON(w, http.StatusOK, dto.NewAdvertisementList(ads, h.urlFor, time.Now()))
	}
}

func (h *AdvertisementHandler) Featured(w http.ResponseWriter, r *http.Request) {
	ads, err := h.uc.FeaturedAdvertisements(r.Context())
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dto.NewAdvertisementList(ads, h.urlFor, time.Now()))
}

// openPhotos opens every "photos" part. The returned closer releases them.
func openPhotos(fields *httpx.Fields) ([]*storage.Upload, func(), error) {
	var uploads []*storage.Upload
	var files []multipart.File
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}
	for _, fh := range fields.Files("photos") {
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

func (h *AdvertisementHandler) Create(w http.ResponseWriter, r *http.Request) {
	fields, err := httpx.ReadFields(r, httpx.DefaultMaxMemory)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	photos, closePhotos, err := openPhotos(fields)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	defer closePhotos()

	geo, _ := fields.Lookup("geo_location")
	ad, err := h.uc.CreateAdvertisement(r.Context(), &dto.CreateAdvertisementInput{
		UserID:      auth.GetUserID(r.Context()),
		CategoryID:  fields.String("category"),
		Title:       fields.String("title"),
		Description: fields.String("description"),
		County:      fields.String("county"),
		SubCounty:   fields.String("sub_county"),
		GeoLocation: geo,
		Photos:      photos,
	})
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	h.logger.Info("advertisement created", zap.String("id", ad.ID), zap.String("user_id", ad.UserID))
	httpx.JSON(w, http.StatusCreated, dto.NewAdvertisementResponse(ad, h.urlFor, time.Now()))
}

func (h *AdvertisementHandler) Get(w http.ResponseWriter, r *http.Request) {
	ad, err := h.uc.ViewAdvertisement(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dto.NewAdvertisementResponse(ad, h.urlFor, time.Now()))
}

func (h *AdvertisementHandler) Update(w http.ResponseWriter, r *http.Request) {
	fields, err := httpx.ReadFields(r, httpx.DefaultMaxMemory)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	photos, closePhotos, err := openPhotos(fields)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	defer closePhotos()

	input := &dto.UpdateAdvertisementInput{
		ID:      mux.Vars(r)["id"],
		Partial: r.Method == http.MethodPatch,
		Photos:  photos,
	}
	input.CategoryID, _ = fields.Lookup("category")
	input.Title, _ = fields.Lookup("title")
	input.Description, _ = fields.Lookup("description")
	input.County, _ = fields.Lookup("county")
	input.SubCounty, _ = fields.Lookup("sub_county")
	input.GeoLocation, input.GeoLocationSet = fields.Lookup("geo_location")

	ad, err := h.uc.UpdateAdvertisement(r.Context(), input)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dto.NewAdvertisementResponse(ad, h.urlFor, time.Now()))
}

func (h *AdvertisementHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.uc.DeleteAdvertisement(r.Context(), mux.Vars(r)["id"]); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.NoContent(w)
}

func (h *AdvertisementHandler) AddPhotos(w http.ResponseWriter, r *http.Request) {
	fields, err := httpx.ReadFields(r, httpx.DefaultMaxMemory)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	photos, closePhotos, err := openPhotos(fields)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	defer closePhotos()

	ad, err := h.uc.AddPhotos(r.Context(), mux.Vars(r)["id"], photos)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, dto.NewAdvertisementResponse(ad, h.urlFor, time.Now()))
}

func (h *AdvertisementHandler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.uc.DeletePhoto(r.Context(), vars["id"], vars["photo_id"]); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.NoContent(w)
}
