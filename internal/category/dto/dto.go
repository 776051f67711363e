package dto

import "github.com/agriconnectke/marketplace-service/internal/model"

type CategoryFilters struct {
	ParentID       *string // nil means any parent, "" means root categories
	Classification string
}

type CategoryResponse struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Classification string             `json:"classification"`
	Image          *string            `json:"image"`
	Parent         *string            `json:"parent"`
	SubCategories  []CategoryResponse `json:"sub_categories"`
	HierarchyLevel int                `json:"hierarchy_level"`
}

func NewCategoryResponse(c *model.Category, urlFor func(string) string) CategoryResponse {
	resp := CategoryResponse{
		ID:             c.ID,
		Name:           c.Name,
		Classification: c.Classification,
		Parent:         c.ParentID,
		SubCategories:  make([]CategoryResponse, len(c.Children)),
		HierarchyLevel: c.HierarchyLevel,
	}
	if c.Image != nil && urlFor != nil {
		u := urlFor(*c.Image)
		resp.Image = &u
	}
	for i := range c.Children {
		resp.SubCategories[i] = NewCategoryResponse(&c.Children[i], urlFor)
	}
	return resp
}

type RelationResponse struct {
	ID     string `json:"id"`
	Parent string `json:"parent"`
	Child  string `json:"child"`
}

type ClassificationResponse struct {
	Value string `json:"value"`
	Label string `json:"label"`
}
