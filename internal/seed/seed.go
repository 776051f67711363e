// Package seed loads reference data (the category tree and subscription
// packages) from a YAML file. Entries that already exist are skipped, so a
// seed file can be applied repeatedly.
package seed

import (
	"context"
	"fmt"
	"io"

	"github.com/agriconnectke/marketplace-service/internal/category"
	catdto "github.com/agriconnectke/marketplace-service/internal/category/dto"
	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
	"github.com/agriconnectke/marketplace-service/internal/subscription"
	subdto "github.com/agriconnectke/marketplace-service/internal/subscription/dto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type File struct {
	Categories []Category `yaml:"categories"`
	Packages   []Package  `yaml:"packages"`
}

type Category struct {
	Name           string     `yaml:"name"`
	Classification string     `yaml:"classification"`
	Children       []Category `yaml:"children"`
}

type Package struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Duration    *int     `yaml:"duration"`
	Pricing     string   `yaml:"pricing"`
	Offerings   []string `yaml:"offerings"`
}

type Report struct {
	Categories int
	Packages   int
	Skipped    int
}

// Parse decodes a seed file, rejecting unknown keys.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &f, nil
}

type Seeder struct {
	categories    category.UseCase
	categoryRepo  category.Repository
	subscriptions subscription.UseCase
	packageRepo   subscription.Repository
	logger        logger.ZapLogger
}

func NewSeeder(categories category.UseCase, categoryRepo category.Repository, subscriptions subscription.UseCase, packageRepo subscription.Repository, log logger.ZapLogger) *Seeder {
	return &Seeder{
		categories:    categories,
		categoryRepo:  categoryRepo,
		subscriptions: subscriptions,
		packageRepo:   packageRepo,
		logger:        log,
	}
}

func (s *Seeder) Apply(ctx context.Context, f *File) (*Report, error) {
	existing, err := s.categoryRepo.FindAll(ctx, &catdto.CategoryFilters{})
	if err != nil {
		return nil, err
	}
	ids := make(map[string]string, len(existing))
	for _, c := range existing {
		ids[c.Name] = c.ID
	}

	report := &Report{}
	for _, c := range f.Categories {
		if err := s.category(ctx, c, nil, ids, report); err != nil {
			return report, err
		}
	}
	for _, p := range f.Packages {
		if err := s.pkg(ctx, p, report); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (s *Seeder) category(ctx context.Context, c Category, parentID *string, ids map[string]string, report *Report) error {
	id, ok := ids[c.Name]
	if ok {
		report.Skipped++
	} else {
		created, err := s.categories.CreateCategory(ctx, &catdto.CreateCategoryInput{
			Name:           c.Name,
			Classification: c.Classification,
			ParentID:       parentID,
		})
		if err != nil {
			return fmt.Errorf("category %q: %w", c.Name, err)
		}
		id = created.ID
		ids[c.Name] = id
		report.Categories++
		s.logger.Info("Seeded category", zap.String("name", c.Name), zap.String("id", id))
	}
	for _, child := range c.Children {
		if err := s.category(ctx, child, &id, ids, report); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) pkg(ctx context.Context, p Package, report *Report) error {
	found, err := s.packageRepo.FindPackageByName(ctx, p.Name)
	if err != nil {
		return err
	}
	if found != nil {
		report.Skipped++
		return nil
	}

	in := &subdto.PackageInput{
		Name:        p.Name,
		Description: p.Description,
		Duration:    p.Duration,
		Offerings:   p.Offerings,
	}
	if p.Pricing != "" {
		price, err := decimal.NewFromString(p.Pricing)
		if err != nil {
			return fmt.Errorf("package %q: invalid pricing %q", p.Name, p.Pricing)
		}
		in.Pricing = &price
	}
	created, err := s.subscriptions.CreatePackage(ctx, in)
	if err != nil {
		return fmt.Errorf("package %q: %w", p.Name, err)
	}
	report.Packages++
	s.logger.Info("Seeded package", zap.String("name", created.Name), zap.String("id", created.ID))
	return nil
}
