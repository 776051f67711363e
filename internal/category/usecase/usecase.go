package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/agriconnectke/marketplace-service/internal/category"
	"github.com/agriconnectke/marketplace-service/internal/category/dto"
	"github.com/agriconnectke/marketplace-service/internal/model"
	"github.com/agriconnectke/marketplace-service/internal/pkg/apperror"
	"github.com/agriconnectke/marketplace-service/internal/pkg/cache"
	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
	"github.com/agriconnectke/marketplace-service/internal/pkg/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	treeCacheKey  = "categories:tree"
	cachePattern  = "categories:*"
	treeCacheTTL  = time.Hour
	maxNameLength = 50
	imagePrefix   = "categories"
)

type categoryUseCase struct {
	repo   category.Repository
	cache  cache.Store
	files  storage.Store
	logger logger.ZapLogger
}

func NewCategoryUseCase(repo category.Repository, cache cache.Store, files storage.Store, log logger.ZapLogger) category.UseCase {
	return &categoryUseCase{
		repo:   repo,
		cache:  cache,
		files:  files,
		logger: log,
	}
}

func (uc *categoryUseCase) CreateCategory(ctx context.Context, input *dto.CreateCategoryInput) (*model.Category, error) {
	ve := apperror.NewValidation()
	name := strings.TrimSpace(input.Name)
	if err := uc.validateName(ctx, ve, name, ""); err != nil {
		return nil, err
	}

	classification := input.Classification
	if classification == "" {
		classification = model.ClassificationFarmProduce
	}
	if !model.ValidClassification(classification) {
		ve.Add("classification", invalidChoice(classification))
	}

	parentID := input.ParentID
	if parentID != nil && *parentID == "" {
		parentID = nil
	}
	if parentID != nil {
		parent, err := uc.repo.FindByID(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			ve.Add("parent", invalidPK(*parentID))
		}
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}

	now := model.Now()
	cat := &model.Category{
		BaseModel:      model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		Name:           name,
		Classification: classification,
		ParentID:       parentID,
	}

	if input.Image != nil {
		key, err := uc.files.Save(ctx, imagePrefix, input.Image.Filename, input.Image.ContentType, input.Image.Body)
		if err != nil {
			return nil, err
		}
		cat.Image = &key
	}

	if err := uc.repo.Create(ctx, cat); err != nil {
		if cat.Image != nil {
			_ = uc.files.Delete(ctx, *cat.Image)
		}
		return nil, err
	}

	uc.invalidateCache(ctx)

	f, err := uc.loadForest(ctx)
	if err != nil {
		return nil, err
	}
	cat.HierarchyLevel = f.level(cat.ID)
	return cat, nil
}

func (uc *categoryUseCase) validateName(ctx context.Context, ve *apperror.ValidationError, name, excludeID string) error {
	switch {
	case name == "":
		ve.Add("name", "This field may not be blank.")
	case len([]rune(name)) > maxNameLength:
		ve.Add("name", "Ensure this field has no more than 50 characters.")
	default:
		taken, err := uc.repo.IsNameTaken(ctx, name, excludeID)
		if err != nil {
			return err
		}
		if taken {
			ve.Add("name", "Advertisement Category with this Name already exists.")
		}
	}
	return nil
}

func invalidChoice(v string) string {
	return `"` + v + `" is not a valid choice.`
}

func invalidPK(id string) string {
	return `Invalid pk "` + id + `" - object does not exist.`
}

func (uc *categoryUseCase) GetCategory(ctx context.Context, id string) (*model.Category, error) {
	f, err := uc.loadForest(ctx)
	if err != nil {
		return nil, err
	}
	cat, ok := f.subtree(id)
	if !ok {
		return nil, apperror.ErrCategoryNotFound
	}
	return cat, nil
}

func (uc *categoryUseCase) ListRootCategories(ctx context.Context) ([]model.Category, error) {
	if uc.cache != nil {
		if val, err := uc.cache.Get(ctx, treeCacheKey); err == nil {
			var roots []model.Category
			if err := json.Unmarshal(val, &roots); err == nil {
				return roots, nil
			}
		} else if !errors.Is(err, cache.ErrMiss) {
			uc.logger.Warn("category cache read failed", zap.Error(err))
		}
	}

	f, err := uc.loadForest(ctx)
	if err != nil {
		return nil, err
	}
	roots := f.roots()

	if uc.cache != nil {
		if data, err := json.Marshal(roots); err == nil {
			if err := uc.cache.Set(ctx, treeCacheKey, data, treeCacheTTL); err != nil {
				uc.logger.Warn("category cache write failed", zap.Error(err))
			}
		}
	}
	return roots, nil
}

func (uc *categoryUseCase) UpdateCategory(ctx context.Context, input *dto.UpdateCategoryInput) (*model.Category, error) {
	cat, err := uc.repo.FindByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, apperror.ErrCategoryNotFound
	}

	ve := apperror.NewValidation()
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if err := uc.validateName(ctx, ve, name, cat.ID); err != nil {
			return nil, err
		}
		cat.Name = name
	}
	if input.Classification != nil {
		if !model.ValidClassification(*input.Classification) {
			ve.Add("classification", invalidChoice(*input.Classification))
		}
		cat.Classification = *input.Classification
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}

	if input.ParentSet {
		parentID := input.ParentID
		if parentID != nil && *parentID == "" {
			parentID = nil
		}
		if parentID != nil {
			if err := uc.checkParent(ctx, cat.ID, *parentID); err != nil {
				return nil, err
			}
		}
		cat.ParentID = parentID
	}

	oldImage := cat.Image
	replaced := false
	if input.Image != nil {
		key, err := uc.files.Save(ctx, imagePrefix, input.Image.Filename, input.Image.ContentType, input.Image.Body)
		if err != nil {
			return nil, err
		}
		cat.Image = &key
		replaced = true
	} else if input.ClearImage {
		cat.Image = nil
		replaced = true
	}

	cat.UpdatedAt = model.Now()
	if err := uc.repo.Update(ctx, cat); err != nil {
		return nil, err
	}
	if replaced && oldImage != nil {
		if err := uc.files.Delete(ctx, *oldImage); err != nil {
			uc.logger.Warn("failed to delete category image", zap.String("key", *oldImage), zap.Error(err))
		}
	}

	uc.invalidateCache(ctx)
	return uc.GetCategory(ctx, cat.ID)
}

// checkParent rejects parents that would make id its own ancestor.
func (uc *categoryUseCase) checkParent(ctx context.Context, id, parentID string) error {
	if parentID == id {
		return apperror.ErrCategorySelfParent
	}
	f, err := uc.loadForest(ctx)
	if err != nil {
		return err
	}
	if _, ok := f.byID[parentID]; !ok {
		ve := apperror.NewValidation()
		ve.Add("parent", invalidPK(parentID))
		return ve
	}
	if f.hasAncestor(parentID, id) {
		return apperror.ErrCategoryCycle
	}
	return nil
}

func (uc *categoryUseCase) DeleteCategory(ctx context.Context, id string) error {
	cat, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if cat == nil {
		return apperror.ErrCategoryNotFound
	}
	hasChildren, err := uc.repo.HasChildren(ctx, id)
	if err != nil {
		return err
	}
	if hasChildren {
		return apperror.ErrCategoryHasChildren
	}
	inUse, err := uc.repo.HasAdvertisements(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		return apperror.ErrCategoryInUse
	}

	if err := uc.repo.Delete(ctx, id); err != nil {
		return err
	}
	if cat.Image != nil {
		if err := uc.files.Delete(ctx, *cat.Image); err != nil {
			uc.logger.Warn("failed to delete category image", zap.String("key", *cat.Image), zap.Error(err))
		}
	}
	uc.invalidateCache(ctx)
	return nil
}

func (uc *categoryUseCase) CreateRelation(ctx context.Context, input *dto.RelationInput) (*model.CategoryRelation, error) {
	if err := uc.validateRelation(ctx, input); err != nil {
		return nil, err
	}
	rel := &model.CategoryRelation{
		ID:        uuid.New().String(),
		ParentID:  input.ParentID,
		ChildID:   input.ChildID,
		CreatedAt: model.Now(),
	}
	if err := uc.repo.CreateRelation(ctx, rel); err != nil {
		return nil, err
	}
	return rel, nil
}

func (uc *categoryUseCase) validateRelation(ctx context.Context, input *dto.RelationInput) error {
	ve := apperror.NewValidation()
	if input.ParentID == "" {
		ve.Add("parent", "This field is required.")
	}
	if input.ChildID == "" {
		ve.Add("child", "This field is required.")
	}
	if err := ve.Err(); err != nil {
		return err
	}
	if input.ParentID == input.ChildID {
		return apperror.ErrCategorySelfParent
	}

	exists, err := uc.repo.RelationExists(ctx, input.ParentID, input.ChildID, input.ID)
	if err != nil {
		return err
	}
	if exists {
		return apperror.ErrRelationExists
	}

	f, err := uc.loadForest(ctx)
	if err != nil {
		return err
	}
	if _, ok := f.byID[input.ParentID]; !ok {
		ve.Add("parent", invalidPK(input.ParentID))
	}
	if _, ok := f.byID[input.ChildID]; !ok {
		ve.Add("child", invalidPK(input.ChildID))
	}
	if err := ve.Err(); err != nil {
		return err
	}
	if f.hasAncestor(input.ParentID, input.ChildID) {
		return apperror.ErrCategoryCycle
	}
	return nil
}

func (uc *categoryUseCase) GetRelation(ctx context.Context, id string) (*model.CategoryRelation, error) {
	rel, err := uc.repo.FindRelation(ctx, id)
	if err != nil {
		return nil, err
	}
	if rel == nil {
		return nil, apperror.ErrCategoryRelationNotFound
	}
	return rel, nil
}

func (uc *categoryUseCase) ListRelations(ctx context.Context) ([]model.CategoryRelation, error) {
	return uc.repo.ListRelations(ctx)
}

func (uc *categoryUseCase) UpdateRelation(ctx context.Context, input *dto.RelationInput) (*model.CategoryRelation, error) {
	rel, err := uc.GetRelation(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if input.ParentID == "" {
		input.ParentID = rel.ParentID
	}
	if input.ChildID == "" {
		input.ChildID = rel.ChildID
	}
	if err := uc.validateRelation(ctx, input); err != nil {
		return nil, err
	}
	rel.ParentID = input.ParentID
	rel.ChildID = input.ChildID
	if err := uc.repo.UpdateRelation(ctx, rel); err != nil {
		return nil, err
	}
	return rel, nil
}

func (uc *categoryUseCase) DeleteRelation(ctx context.Context, id string) error {
	if _, err := uc.GetRelation(ctx, id); err != nil {
		return err
	}
	return uc.repo.DeleteRelation(ctx, id)
}

func (uc *categoryUseCase) invalidateCache(ctx context.Context) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.DeletePattern(ctx, cachePattern); err != nil {
		uc.logger.Warn("failed to invalidate category cache", zap.Error(err))
	}
}

func (uc *categoryUseCase) loadForest(ctx context.Context) (*forest, error) {
	all, err := uc.repo.FindAll(ctx, &dto.CategoryFilters{})
	if err != nil {
		return nil, err
	}
	return newForest(all), nil
}
