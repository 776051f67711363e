package usecase

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/agriconnectke/marketplace-service/internal/advertisement"
	"github.com/agriconnectke/marketplace-service/internal/advertisement/dto"
	"github.com/agriconnectke/marketplace-service/internal/auth"
	"github.com/agriconnectke/marketplace-service/internal/model"
	"github.com/agriconnectke/marketplace-service/internal/pkg/apperror"
	"github.com/agriconnectke/marketplace-service/internal/pkg/cache"
	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
	"github.com/agriconnectke/marketplace-service/internal/pkg/search"
	"github.com/agriconnectke/marketplace-service/internal/pkg/storage"
	"github.com/agriconnectke/marketplace-service/internal/pkg/worker"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	indexName    = "advertisements"
	listCacheTTL = 5 * time.Minute
	cachePattern = "ads:*"
	photoPrefix  = "ad-images"
	topLimit     = 10
)

const indexMapping = `{
	"mappings": {
		"properties": {
			"user_id": { "type": "keyword" },
			"category_id": { "type": "keyword" },
			"classification": { "type": "keyword" },
			"title": { "type": "text" },
			"description": { "type": "text" },
			"county": { "type": "text", "fields": { "raw": { "type": "keyword" } } },
			"sub_county": { "type": "text" },
			"views": { "type": "integer" },
			"created_at": { "type": "date" }
		}
	}
}`

type advertDocument struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	CategoryID     string    `json:"category_id"`
	Classification string    `json:"classification"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	County         string    `json:"county"`
	SubCounty      string    `json:"sub_county"`
	Views          int       `json:"views"`
	CreatedAt      time.Time `json:"created_at"`
}

type advertisementUseCase struct {
	repo      advertisement.Repository
	cache     cache.Store
	es        search.Engine
	files     storage.Store
	runner    worker.Runner
	logger    logger.ZapLogger
	now       func() time.Time
	indexOnce sync.Once
}

// NewAdvertisementUseCase wires the advert use case. es may be nil, in which
// case search falls back to SQL.
func NewAdvertisementUseCase(repo advertisement.Repository, cache cache.Store, es search.Engine, files storage.Store, runner worker.Runner, log logger.ZapLogger) advertisement.UseCase {
	return &advertisementUseCase{
		repo:   repo,
		cache:  cache,
		es:     es,
		files:  files,
		runner: runner,
		logger: log,
		now:    time.Now,
	}
}

func (uc *advertisementUseCase) CreateAdvertisement(ctx context.Context, input *dto.CreateAdvertisementInput) (*model.Advertisement, error) {
	ad := &model.Advertisement{
		UserID:      input.UserID,
		CategoryID:  strings.TrimSpace(input.CategoryID),
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		County:      strings.TrimSpace(input.County),
		SubCounty:   strings.TrimSpace(input.SubCounty),
		GeoLocation: blankToNil(input.GeoLocation),
	}
	if err := uc.validate(ctx, ad); err != nil {
		return nil, err
	}

	now := model.Now()
	ad.ID = uuid.New().String()
	ad.CreatedAt = now
	ad.UpdatedAt = now

	if err := uc.repo.Create(ctx, ad); err != nil {
		return nil, err
	}
	if err := uc.savePhotos(ctx, ad.ID, input.Photos); err != nil {
		return nil, err
	}

	uc.invalidateCache(ctx)
	return uc.reload(ctx, ad.ID)
}

func (uc *advertisementUseCase) validate(ctx context.Context, ad *model.Advertisement) error {
	ve := apperror.NewValidation()
	required := func(field, value string, max int) {
		switch {
		case value == "":
			ve.Add(field, "This field may not be blank.")
		case max > 0 && len([]rune(value)) > max:
			ve.Add(field, fmt.Sprintf("Ensure this field has no more than %d characters.", max))
		}
	}
	required("title", ad.Title, 100)
	required("description", ad.Description, 0)
	required("county", ad.County, 50)
	required("sub_county", ad.SubCounty, 50)

	if ad.GeoLocation != nil {
		switch {
		case len(*ad.GeoLocation) > 1000:
			ve.Add("geo_location", "Ensure this field has no more than 1000 characters.")
		case !validURL(*ad.GeoLocation):
			ve.Add("geo_location", "Enter a valid URL.")
		}
	}

	if ad.CategoryID == "" {
		ve.Add("category", "This field is required.")
	} else {
		ok, err := uc.repo.CategoryExists(ctx, ad.CategoryID)
		if err != nil {
			return err
		}
		if !ok {
			ve.Add("category", `Invalid pk "`+ad.CategoryID+`" - object does not exist.`)
		}
	}
	return ve.Err()
}

func validURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func (uc *advertisementUseCase) savePhotos(ctx context.Context, adID string, photos []*storage.Upload) error {
	for _, p := range photos {
		key, err := uc.files.Save(ctx, photoPrefix, p.Filename, p.ContentType, p.Body)
		if err != nil {
			return err
		}
		photo := &model.AdvertisementPhoto{
			ID:              uuid.New().String(),
			AdvertisementID: adID,
			Photo:           key,
			CreatedAt:       model.Now(),
		}
		if err := uc.repo.AddPhoto(ctx, photo); err != nil {
			_ = uc.files.Delete(ctx, key)
			return err
		}
	}
	return nil
}

// reload fetches the stored advert and schedules it for indexing.
func (uc *advertisementUseCase) reload(ctx context.Context, id string) (*model.Advertisement, error) {
	ad, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ad == nil {
		return nil, apperror.ErrAdvertisementNotFound
	}
	doc := toDocument(ad)
	uc.runner.Go(func() { uc.syncToElastic(context.Background(), doc) })
	return ad, nil
}

func toDocument(ad *model.Advertisement) advertDocument {
	return advertDocument{
		ID:             ad.ID,
		UserID:         ad.UserID,
		CategoryID:     ad.CategoryID,
		Classification: ad.Classification,
		Title:          ad.Title,
		Description:    ad.Description,
		County:         ad.County,
		SubCounty:      ad.SubCounty,
		Views:          ad.Views,
		CreatedAt:      ad.CreatedAt,
	}
}

func (uc *advertisementUseCase) syncToElastic(ctx context.Context, doc advertDocument) {
	if uc.es == nil {
		return
	}
	uc.indexOnce.Do(func() {
		if err := uc.es.CreateIndex(ctx, indexName, indexMapping); err != nil {
			uc.logger.Warn("failed to create advertisement index", zap.Error(err))
		}
	})
	if err := uc.es.Index(ctx, indexName, doc.ID, doc); err != nil {
		uc.logger.Error("failed to index advertisement", zap.String("id", doc.ID), zap.Error(err))
	}
}

func (uc *advertisementUseCase) GetAdvertisement(ctx context.Context, id string) (*model.Advertisement, error) {
	ad, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ad == nil {
		return nil, apperror.ErrAdvertisementNotFound
	}
	return ad, nil
}

// ViewAdvertisement counts a view and returns the advert with the new count.
func (uc *advertisementUseCase) ViewAdvertisement(ctx context.Context, id string) (*model.Advertisement, error) {
	if err := uc.repo.IncrementViews(ctx, id); err != nil {
		return nil, err
	}
	return uc.GetAdvertisement(ctx, id)
}

func (uc *advertisementUseCase) ListAdvertisements(ctx context.Context, filters *dto.AdvertisementFilters) ([]model.Advertisement, int, error) {
	cacheKey, err := uc.generateCacheKey(filters)
	if err == nil && uc.cache != nil {
		val, err := uc.cache.Get(ctx, cacheKey)
		if err == nil {
			var result struct {
				Advertisements []model.Advertisement
				Count          int
			}
			if err := json.Unmarshal(val, &result); err == nil {
				return result.Advertisements, result.Count, nil
			}
		} else if !errors.Is(err, cache.ErrMiss) {
			uc.logger.Warn("advertisement cache read failed", zap.Error(err))
		}
	}

	if filters.Search != "" && uc.es != nil {
		ads, count, err := uc.searchElastic(ctx, filters)
		if err == nil {
			return ads, count, nil
		}
		uc.logger.Error("ES search failed, falling back to DB", zap.Error(err))
	}

	ads, count, err := uc.repo.FindAll(ctx, filters)
	if err != nil {
		return nil, 0, err
	}

	if cacheKey != "" && uc.cache != nil {
		cacheData := struct {
			Advertisements []model.Advertisement
			Count          int
		}{
			Advertisements: ads,
			Count:          count,
		}
		if data, err := json.Marshal(cacheData); err == nil {
			if err := uc.cache.Set(ctx, cacheKey, data, listCacheTTL); err != nil {
				uc.logger.Warn("advertisement cache write failed", zap.Error(err))
			}
		}
	}
	return ads, count, nil
}

func (uc *advertisementUseCase) searchElastic(ctx context.Context, f *dto.AdvertisementFilters) ([]model.Advertisement, int, error) {
	filter := []map[string]interface{}{}
	term := func(field, value string) {
		if value != "" {
			filter = append(filter, map[string]interface{}{"term": map[string]interface{}{field: value}})
		}
	}
	term("category_id", f.CategoryID)
	term("classification", f.Classification)
	term("county.raw", f.County)
	term("user_id", f.UserID)

	q := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []map[string]interface{}{
					{
						"multi_match": map[string]interface{}{
							"query":     f.Search,
							"fields":    []string{"title^3", "description", "county", "sub_county"},
							"fuzziness": "AUTO",
						},
					},
				},
				"filter": filter,
			},
		},
		"_source": false,
	}
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		q["from"] = (page - 1) * f.PageSize
		q["size"] = f.PageSize
	}

	res, err := uc.es.Search(ctx, indexName, q)
	if err != nil {
		return nil, 0, err
	}
	ids := make([]string, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		ids = append(ids, hit.ID)
	}
	ads, err := uc.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	return ads, res.Hits.Total.Value, nil
}

func (uc *advertisementUseCase) generateCacheKey(filters *dto.AdvertisementFilters) (string, error) {
	data, err := json.Marshal(filters)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ads:list:%x", md5.Sum(data)), nil
}

func (uc *advertisementUseCase) invalidateCache(ctx context.Context) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.DeletePattern(ctx, cachePattern); err != nil {
		uc.logger.Warn("failed to invalidate advertisement cache", zap.Error(err))
	}
}

func (uc *advertisementUseCase) TopAdvertisements(ctx context.Context, classification string) ([]model.Advertisement, error) {
	if !model.ValidClassification(classification) {
		ve := apperror.NewValidation()
		ve.Add("classification", `"`+classification+`" is not a valid choice.`)
		return nil, ve
	}
	return uc.repo.FindTop(ctx, classification, topLimit)
}

func (uc *advertisementUseCase) FeaturedAdvertisements(ctx context.Context) ([]model.Advertisement, error) {
	return uc.repo.FindFeatured(ctx, uc.now())
}

// ownedAdvert loads id and checks the caller may change it.
func (uc *advertisementUseCase) ownedAdvert(ctx context.Context, id string) (*model.Advertisement, error) {
	ad, err := uc.GetAdvertisement(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.CanModify(ctx, ad.UserID) {
		return nil, apperror.ErrPermissionDenied
	}
	return ad, nil
}

func (uc *advertisementUseCase) UpdateAdvertisement(ctx context.Context, input *dto.UpdateAdvertisementInput) (*model.Advertisement, error) {
	ad, err := uc.ownedAdvert(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	if !input.Partial {
		ve := apperror.NewValidation()
		for field, v := range map[string]*string{
			"category":    input.CategoryID,
			"title":       input.Title,
			"description": input.Description,
			"county":      input.County,
			"sub_county":  input.SubCounty,
		} {
			if v == nil {
				ve.Add(field, "This field is required.")
			}
		}
		if err := ve.Err(); err != nil {
			return nil, err
		}
	}

	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&ad.CategoryID, input.CategoryID)
	set(&ad.Title, input.Title)
	set(&ad.Description, input.Description)
	set(&ad.County, input.County)
	set(&ad.SubCounty, input.SubCounty)
	if input.GeoLocationSet || !input.Partial {
		ad.GeoLocation = blankToNil(input.GeoLocation)
	}

	if err := uc.validate(ctx, ad); err != nil {
		return nil, err
	}

	ad.UpdatedAt = model.Now()
	if err := uc.repo.Update(ctx, ad); err != nil {
		return nil, err
	}
	if err := uc.savePhotos(ctx, ad.ID, input.Photos); err != nil {
		return nil, err
	}

	uc.invalidateCache(ctx)
	return uc.reload(ctx, ad.ID)
}

func (uc *advertisementUseCase) DeleteAdvertisement(ctx context.Context, id string) error {
	ad, err := uc.ownedAdvert(ctx, id)
	if err != nil {
		return err
	}
	if err := uc.repo.Delete(ctx, id); err != nil {
		return err
	}
	for _, p := range ad.Photos {
		if err := uc.files.Delete(ctx, p.Photo); err != nil {
			uc.logger.Warn("failed to delete advertisement photo", zap.String("key", p.Photo), zap.Error(err))
		}
	}

	uc.invalidateCache(ctx)
	if uc.es != nil {
		uc.runner.Go(func() {
			if err := uc.es.Delete(context.Background(), indexName, id); err != nil {
				uc.logger.Error("failed to delete advertisement from ES", zap.String("id", id), zap.Error(err))
			}
		})
	}
	return nil
}

func (uc *advertisementUseCase) AddPhotos(ctx context.Context, advertisementID string, photos []*storage.Upload) (*model.Advertisement, error) {
	if _, err := uc.ownedAdvert(ctx, advertisementID); err != nil {
		return nil, err
	}
	if len(photos) == 0 {
		ve := apperror.NewValidation()
		ve.Add("photos", "No file was submitted.")
		return nil, ve
	}
	if err := uc.savePhotos(ctx, advertisementID, photos); err != nil {
		return nil, err
	}
	uc.invalidateCache(ctx)
	return uc.GetAdvertisement(ctx, advertisementID)
}

func (uc *advertisementUseCase) DeletePhoto(ctx context.Context, advertisementID, photoID string) error {
	if _, err := uc.ownedAdvert(ctx, advertisementID); err != nil {
		return err
	}
	photo, err := uc.repo.FindPhoto(ctx, photoID)
	if err != nil {
		return err
	}
	if photo == nil || photo.AdvertisementID != advertisementID {
		return apperror.ErrPhotoNotFound
	}
	if err := uc.repo.DeletePhoto(ctx, photoID); err != nil {
		return err
	}
	if err := uc.files.Delete(ctx, photo.Photo); err != nil {
		uc.logger.Warn("failed to delete advertisement photo", zap.String("key", photo.Photo), zap.Error(err))
	}
	uc.invalidateCache(ctx)
	return nil
}
