package category

import (
	"context"

	"github.com/agriconnectke/marketplace-service/internal/category/dto"
	"github.com/agriconnectke/marketplace-service/internal/model"
)

type UseCase interface {
	CreateCategory(ctx context.Context, input *dto.CreateCategoryInput) (*model.Category, error)
	GetCategory(ctx context.Context, id string) (*model.Category, error)
	ListRootCategories(ctx context.Context) ([]model.Category, error)
	UpdateCategory(ctx context.Context, input *dto.UpdateCategoryInput) (*model.Category, error)
	DeleteCategory(ctx context.Context, id string) error

	CreateRelation(ctx context.Context, input *dto.RelationInput) (*model.CategoryRelation, error)
	GetRelation(ctx context.Context, id string) (*model.CategoryRelation, error)
	ListRelations(ctx context.Context) ([]model.CategoryRelation, error)
	UpdateRelation(ctx context.Context, input *dto.RelationInput) (*model.CategoryRelation, error)
	DeleteRelation(ctx context.Context, id string) error
}
