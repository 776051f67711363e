package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/agriconnectke/marketplace-service/internal/category/dto"
	"github.com/agriconnectke/marketplace-service/internal/model"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

const categoryColumns = `id, name, image, classification, parent_id, created_at, updated_at`

func (r *PGRepository) Create(ctx context.Context, c *model.Category) error {
	query := `
        INSERT INTO categories (id, name, image, classification, parent_id, created_at, updated_at)
        VALUES (:id, :name, :image, :classification, :parent_id, :created_at, :updated_at)
    `
	_, err := r.DB.NamedExecContext(ctx, query, c)
	return err
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.Category, error) {
	var category model.Category
	query := r.DB.Rebind(`SELECT ` + categoryColumns + ` FROM categories WHERE id = ? LIMIT 1`)
	err := r.DB.GetContext(ctx, &category, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &category, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.CategoryFilters) ([]model.Category, error) {
	categories := []model.Category{}

	conditions := []string{}
	args := []interface{}{}

	if f.ParentID != nil {
		if *f.ParentID == "" {
			conditions = append(conditions, "parent_id IS NULL")
		} else {
			conditions = append(conditions, "parent_id = ?")
			args = append(args, *f.ParentID)
		}
	}
	if f.Classification != "" {
		conditions = append(conditions, "classification = ?")
		args = append(args, f.Classification)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	query := "SELECT " + categoryColumns + " FROM categories" + whereClause + " ORDER BY name DESC"
	if err := r.DB.SelectContext(ctx, &categories, r.DB.Rebind(query), args...); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *PGRepository) Update(ctx context.Context, c *model.Category) error {
	query := `
        UPDATE categories
        SET name = :name,
            image = :image,
            classification = :classification,
            parent_id = :parent_id,
            updated_at = :updated_at
        WHERE id = :id
    `
	_, err := r.DB.NamedExecContext(ctx, query, c)
	return err
}

func (r *PGRepository) Delete(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind("DELETE FROM categories WHERE id = ?"), id)
	return err
}

func (r *PGRepository) HasChildren(ctx context.Context, id string) (bool, error) {
	var count int
	err := r.DB.GetContext(ctx, &count, r.DB.Rebind("SELECT count(*) FROM categories WHERE parent_id = ?"), id)
	return count > 0, err
}

func (r *PGRepository) HasAdvertisements(ctx context.Context, id string) (bool, error) {
	var count int
	err := r.DB.GetContext(ctx, &count, r.DB.Rebind("SELECT count(*) FROM advertisements WHERE category_id = ?"), id)
	return count > 0, err
}

func (r *PGRepository) IsNameTaken(ctx context.Context, name, excludeID string) (bool, error) {
	var count int
	query := "SELECT count(*) FROM categories WHERE LOWER(name) = LOWER(?)"
	args := []interface{}{name}
	if excludeID != "" {
		query += " AND id != ?"
		args = append(args, excludeID)
	}
	if err := r.DB.GetContext(ctx, &count, r.DB.Rebind(query), args...); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PGRepository) CreateRelation(ctx context.Context, rel *model.CategoryRelation) error {
	query := `
        INSERT INTO category_relations (id, parent_id, child_id, created_at)
        VALUES (:id, :parent_id, :child_id, :created_at)
    `
	_, err := r.DB.NamedExecContext(ctx, query, rel)
	return err
}

func (r *PGRepository) FindRelation(ctx context.Context, id string) (*model.CategoryRelation, error) {
	var rel model.CategoryRelation
	query := r.DB.Rebind(`SELECT id, parent_id, child_id, created_at FROM category_relations WHERE id = ?`)
	if err := r.DB.GetContext(ctx, &rel, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rel, nil
}

func (r *PGRepository) RelationExists(ctx context.Context, parentID, childID, excludeID string) (bool, error) {
	var count int
	query := "SELECT count(*) FROM category_relations WHERE parent_id = ? AND child_id = ?"
	args := []interface{}{parentID, childID}
	if excludeID != "" {
		query += " AND id != ?"
		args = append(args, excludeID)
	}
	if err := r.DB.GetContext(ctx, &count, r.DB.Rebind(query), args...); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PGRepository) ListRelations(ctx context.Context) ([]model.CategoryRelation, error) {
	rels := []model.CategoryRelation{}
	err := r.DB.SelectContext(ctx, &rels, `SELECT id, parent_id, child_id, created_at FROM category_relations ORDER BY parent_id, child_id`)
	return rels, err
}

func (r *PGRepository) UpdateRelation(ctx context.Context, rel *model.CategoryRelation) error {
	_, err := r.DB.NamedExecContext(ctx,
		`UPDATE category_relations SET parent_id = :parent_id, child_id = :child_id WHERE id = :id`, rel)
	return err
}

func (r *PGRepository) DeleteRelation(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind("DELETE FROM category_relations WHERE id = ?"), id)
	return err
}
