package category

import (
	"context"

	"github.com/agriconnectke/marketplace-service/internal/category/dto"
	"github.com/agriconnectke/marketplace-service/internal/model"
)

type Repository interface {
	Create(ctx context.Context, category *model.Category) error
	FindByID(ctx context.Context, id string) (*model.Category, error)
	FindAll(ctx context.Context, filters *dto.CategoryFilters) ([]model.Category, error)
	Update(ctx context.Context, category *model.Category) error
	Delete(ctx context.Context, id string) error
	HasChildren(ctx context.Context, id string) (bool, error)
	HasAdvertisements(ctx context.Context, id string) (bool, error)
	IsNameTaken(ctx context.Context, name, excludeID string) (bool, error)

	CreateRelation(ctx context.Context, rel *model.CategoryRelation) error
	FindRelation(ctx context.Context, id string) (*model.CategoryRelation, error)
	RelationExists(ctx context.Context, parentID, childID, excludeID string) (bool, error)
	ListRelations(ctx context.Context) ([]model.CategoryRelation, error)
	UpdateRelation(ctx context.Context, rel *model.CategoryRelation) error
	DeleteRelation(ctx context.Context, id string) error
}
