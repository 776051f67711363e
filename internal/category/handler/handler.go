package handler

import (
	"net/http"

	"github.com/agriconnectke/marketplace-service/internal/auth"
	"github.com/agriconnectke/marketplace-service/internal/category"
	"github.com/agriconnectke/marketplace-service/internal/category/dto"
	"github.com/agriconnectke/marketplace-service/internal/model"
	"github.com/agriconnectke/marketplace-service/internal/pkg/httpx"
	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type CategoryHandler struct {
	uc     category.UseCase
	urlFor func(string) string
	logger logger.ZapLogger
}

func NewCategoryHandler(uc category.UseCase, urlFor func(string) string, log logger.ZapLogger) *CategoryHandler {
	return &CategoryHandler{
		uc:     uc,
		urlFor: urlFor,
		logger: log,
	}
}

func (h *CategoryHandler) Register(r *mux.Router, mw *auth.Middleware) {
	r.HandleFunc("/classifications", h.ListClassifications).Methods(http.MethodGet).Name("classifications")
	r.HandleFunc("/categories", h.ListCategories).Methods(http.MethodGet).Name("categories")
	r.Handle("/categories/new", mw.RequireStaff(http.HandlerFunc(h.CreateCategory))).Methods(http.MethodPost).Name("new-category")
	r.HandleFunc("/category/{id}", h.GetCategory).Methods(http.MethodGet).Name("category-detail")
	r.Handle("/category/{id}", mw.RequireStaff(http.HandlerFunc(h.UpdateCategory))).Methods(http.MethodPut, http.MethodPatch)
	r.Handle("/category/{id}", mw.RequireStaff(http.HandlerFunc(h.DeleteCategory))).Methods(http.MethodDelete)

	r.Handle("/category-relations", mw.RequireStaff(http.HandlerFunc(h.ListRelations))).Methods(http.MethodGet).Name("category-relations")
	r.Handle("/category-relations", mw.RequireStaff(http.HandlerFunc(h.CreateRelation))).Methods(http.MethodPost)
	r.Handle("/category-relations/{id}", mw.RequireStaff(http.HandlerFunc(h.RelationDetail))).
		Methods(http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete).Name("category-relation-detail")
}

func (h *CategoryHandler) ListClassifications(w http.ResponseWriter, r *http.Request) {
	out := make([]dto.ClassificationResponse, len(model.Classifications))
	for i, c := range model.Classifications {
		out[i] = dto.ClassificationResponse{Value: c, Label: model.ClassificationLabel(c)}
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	roots, err := h.uc.ListRootCategories(r.Context())
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	out := make([]dto.CategoryResponse, len(roots))
	for i := range roots {
		out[i] = dto.NewCategoryResponse(&roots[i], h.urlFor)
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	fields, err := httpx.ReadFields(r, httpx.DefaultMaxMemory)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	input := &dto.CreateCategoryInput{
		Name:           fields.String("name"),
		Classification: fields.String("classification"),
	}
	if parent, _ := fields.Lookup("parent"); parent != nil {
		input.ParentID = parent
	}
	if fh := fields.File("image"); fh != nil {
		upload, file, err := httpx.OpenUpload(fh)
		if err != nil {
			httpx.Error(w, r, h.logger, err)
			return
		}
		defer file.Close()
		input.Image = upload
	}

	cat, err := h.uc.CreateCategory(r.Context(), input)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	h.logger.Info("category created", zap.String("id", cat.ID), zap.String("name", cat.Name))
	httpx.JSON(w, http.StatusCreated, dto.NewCategoryResponse(cat, h.urlFor))
}

func (h *CategoryHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	cat, err := h.uc.GetCategory(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dto.NewCategoryResponse(cat, h.urlFor))
}

func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	fields, err := httpx.ReadFields(r, httpx.DefaultMaxMemory)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	input := &dto.UpdateCategoryInput{ID: mux.Vars(r)["id"]}
	if v, ok := fields.Lookup("name"); ok && v != nil {
		input.Name = v
	}
	if v, ok := fields.Lookup("classification"); ok && v != nil {
		input.Classification = v
	}
	input.ParentID, input.ParentSet = fields.Lookup("parent")

	if fh := fields.File("image"); fh != nil {
		upload, file, err := httpx.OpenUpload(fh)
		if err != nil {
			httpx.Error(w, r, h.logger, err)
			return
		}
		defer file.Close()
		input.Image = upload
	} else if v, ok := fields.Lookup("image"); ok && v == nil {
		input.ClearImage = true
	}

	cat, err := h.uc.UpdateCategory(r.Context(), input)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dto.NewCategoryResponse(cat, h.urlFor))
}

func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.uc.DeleteCategory(r.Context(), mux.Vars(r)["id"]); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.NoContent(w)
}

func (h *CategoryHandler) ListRelations(w http.ResponseWriter, r *http.Request) {
	rels, err := h.uc.ListRelations(r.Context())
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	out := make([]dto.RelationResponse, len(rels))
	for i := range rels {
		out[i] = mapRelation(&rels[i])
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *CategoryHandler) CreateRelation(w http.ResponseWriter, r *http.Request) {
	var input dto.RelationInput
	if err := httpx.Decode(r, &input); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	rel, err := h.uc.CreateRelation(r.Context(), &input)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, mapRelation(rel))
}

func (h *CategoryHandler) RelationDetail(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	switch r.Method {
	case http.MethodGet:
		rel, err := h.uc.GetRelation(r.Context(), id)
		if err != nil {
			httpx.Error(w, r, h.logger, err)
			return
		}
		httpx.JSON(w, http.StatusOK, mapRelation(rel))

	case http.MethodPut, http.MethodPatch:
		input := dto.RelationInput{ID: id}
		if err := httpx.Decode(r, &input); err != nil {
			httpx.Error(w, r, h.logger, err)
			return
		}
		rel, err := h.uc.UpdateRelation(r.Context(), &input)
		if err != nil {
			httpx.Error(w, r, h.logger, err)
			return
		}
		httpx.JSON(w, http.StatusOK, mapRelation(rel))

	case http.MethodDelete:
		if err := h.uc.DeleteRelation(r.Context(), id); err != nil {
			httpx.Error(w, r, h.logger, err)
			return
		}
		httpx.NoContent(w)
	}
}

func mapRelation(rel *model.CategoryRelation) dto.RelationResponse {
	return dto.RelationResponse{ID: rel.ID, Parent: rel.ParentID, Child: rel.ChildID}
}
