package seed

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/agriconnectke/marketplace-service/internal/category/dto"
	catrepo "github.com/agriconnectke/marketplace-service/internal/category/repository"
	catuc "github.com/agriconnectke/marketplace-service/internal/category/usecase"
	"github.com/agriconnectke/marketplace-service/internal/pkg/cache"
	"github.com/agriconnectke/marketplace-service/internal/pkg/database/dbtest"
	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
	subrepo "github.com/agriconnectke/marketplace-service/internal/subscription/repository"
	subuc "github.com/agriconnectke/marketplace-service/internal/subscription/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
categories:
  - name: Cereals
    children:
      - name: Maize
      - name: Sorghum
  - name: Farm Services
    classification: SL
packages:
  - name: Basic
    duration: 7
    pricing: "100.00"
    offerings: [One featured advert]
`

type fixture struct {
	seeder  *Seeder
	catRepo *catrepo.PGRepository
	subRepo *subrepo.PGRepository
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)
	log := logger.NewNop()
	c := cache.NewMemory()

	cr := catrepo.NewPGRepository(db)
	sr := subrepo.NewPGRepository(db)
	return &fixture{
		seeder: NewSeeder(
			catuc.NewCategoryUseCase(cr, c, nil, log), cr,
			subuc.NewSubscriptionUseCase(sr, nil, nil, c, log), sr,
			log,
		),
		catRepo: cr,
		subRepo: sr,
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	file, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	report, err := f.seeder.Apply(ctx, file)
	require.NoError(t, err)
	assert.Equal(t, &Report{Categories: 4, Packages: 1}, report)

	report, err = f.seeder.Apply(ctx, file)
	require.NoError(t, err)
	assert.Equal(t, &Report{Skipped: 5}, report)

	all, err := f.catRepo.FindAll(ctx, &dto.CategoryFilters{})
	require.NoError(t, err)
	require.Len(t, all, 4)

	byName := map[string]string{}
	parents := map[string]string{}
	for _, c := range all {
		byName[c.Name] = c.ID
		if c.ParentID != nil {
			parents[c.Name] = *c.ParentID
		}
	}
	assert.Equal(t, byName["Cereals"], parents["Maize"])
	assert.Equal(t, byName["Cereals"], parents["Sorghum"])
	assert.NotContains(t, parents, "Farm Services")

	pkg, err := f.subRepo.FindPackageByName(ctx, "basic")
	require.NoError(t, err)
	require.NotNil(t, pkg)
	assert.Equal(t, 7, pkg.Duration)
	assert.Equal(t, "100.00", pkg.Pricing.StringFixed(2))
}

func TestApplyAddsChildrenToExistingParent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, err := Parse(strings.NewReader("categories:\n  - name: Cereals\n"))
	require.NoError(t, err)
	_, err = f.seeder.Apply(ctx, first)
	require.NoError(t, err)

	second, err := Parse(strings.NewReader("categories:\n  - name: Cereals\n    children:\n      - name: Millet\n"))
	require.NoError(t, err)
	report, err := f.seeder.Apply(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, &Report{Categories: 1, Skipped: 1}, report)
}

func TestApplyReportsInvalidEntries(t *testing.T) {
	f := setup(t)

	file, err := Parse(strings.NewReader("packages:\n  - name: Broken\n    pricing: lots\n"))
	require.NoError(t, err)
	_, err = f.seeder.Apply(context.Background(), file)
	assert.ErrorContains(t, err, `invalid pricing "lots"`)

	file, err = Parse(strings.NewReader("categories:\n  - name: Tubers\n    classification: XX\n"))
	require.NoError(t, err)
	_, err = f.seeder.Apply(context.Background(), file)
	assert.ErrorContains(t, err, `category "Tubers"`)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse(strings.NewReader("categoriez: []\n"))
	assert.Error(t, err)

	f, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, f.Categories)
}

func TestBundledSeedFile(t *testing.T) {
	r, err := os.Open("../../seed.yaml")
	require.NoError(t, err)
	defer r.Close()

	file, err := Parse(r)
	require.NoError(t, err)
	assert.NotEmpty(t, file.Categories)
	assert.Len(t, file.Packages, 3)

	f := setup(t)
	_, err = f.seeder.Apply(context.Background(), file)
	require.NoError(t, err)
}
