package service

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"threadline/internal/domain"
	"threadline/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Mock repositories for testing

type mockProductRepository struct {
	products map[primitive.ObjectID]*domain.Product
	order    []primitive.ObjectID

	findByCategoryErr error
	transactionCalls  int
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{
		products: make(map[primitive.ObjectID]*domain.Product),
	}
}

func (m *mockProductRepository) add(product *domain.Product) *domain.Product {
	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	m.products[product.ID] = product
	m.order = append(m.order, product.ID)
	return product
}

func (m *mockProductRepository) all() []*domain.Product {
	out := make([]*domain.Product, 0, len(m.order))
	for _, id := range m.order {
		if p, ok := m.products[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	for _, existing := range m.products {
		if existing.Slug == product.Slug {
			return repository.ErrProductSlugTaken
		}
	}
	product.CreatedAt = time.Now()
	product.UpdatedAt = product.CreatedAt
	m.add(product)
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	if _, ok := m.products[product.ID]; !ok {
		return repository.ErrProductNotFound
	}
	product.UpdatedAt = time.Now()
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Product, error) {
	product, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return product, nil
}

func (m *mockProductRepository) FindBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	for _, product := range m.all() {
		if product.Slug == slug {
			return product, nil
		}
	}
	return nil, repository.ErrProductNotFound
}

func (m *mockProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, error) {
	out := []*domain.Product{}
	for _, product := range m.all() {
		if filter.CategoryID != nil && product.CategoryID != *filter.CategoryID {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(product.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, product)
	}
	return out, nil
}

func (m *mockProductRepository) FindByCategory(ctx context.Context, categoryID, exclude primitive.ObjectID, limit int64) ([]*domain.Product, error) {
	if m.findByCategoryErr != nil {
		return nil, m.findByCategoryErr
	}
	out := []*domain.Product{}
	for _, product := range m.all() {
		if product.ID == exclude || product.CategoryID != categoryID {
			continue
		}
		out = append(out, product)
		if int64(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

func (m *mockProductRepository) FindOutsideCategory(ctx context.Context, categoryID, exclude primitive.ObjectID, limit int64) ([]*domain.Product, error) {
	out := []*domain.Product{}
	for _, product := range m.all() {
		if product.ID == exclude || product.CategoryID == categoryID {
			continue
		}
		out = append(out, product)
		if int64(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

func (m *mockProductRepository) SearchByPattern(ctx context.Context, pattern string, limit int64) ([]*domain.Product, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, err
	}
	out := []*domain.Product{}
	for _, product := range m.all() {
		if re.MatchString(product.Name) || re.MatchString(product.Description) ||
			re.MatchString(product.Material) || re.MatchString(product.Fit) {
			out = append(out, product)
			if int64(len(out)) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *mockProductRepository) SuggestByName(ctx context.Context, pattern string, limit int64) ([]*domain.Product, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, err
	}
	out := []*domain.Product{}
	for _, product := range m.all() {
		if re.MatchString(product.Name) {
			out = append(out, product)
			if int64(len(out)) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *mockProductRepository) Trending(ctx context.Context, limit int64) ([]*domain.TrendingProduct, error) {
	now := time.Now()
	out := []*domain.TrendingProduct{}
	for _, product := range m.all() {
		score := float64(product.Purchases*5 + product.CartAdditions*3 + product.Views)
		if product.LastViewed != nil && now.Sub(*product.LastViewed) <= 7*24*time.Hour {
			score += 10
		}
		out = append(out, &domain.TrendingProduct{
			ID:            product.ID,
			Name:          product.Name,
			Slug:          product.Slug,
			Price:         product.Price,
			ImageURL:      product.ImageURL,
			Views:         product.Views,
			Purchases:     product.Purchases,
			CartAdditions: product.CartAdditions,
			FinalScore:    score,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FinalScore > out[j].FinalScore })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockProductRepository) RecordView(ctx context.Context, id primitive.ObjectID) (*domain.Product, error) {
	product, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	now := time.Now()
	product.Views++
	product.LastViewed = &now
	return product, nil
}

func (m *mockProductRepository) AddCartAdditions(ctx context.Context, id primitive.ObjectID, delta int64) (*domain.Product, error) {
	product, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	product.CartAdditions += delta
	return product, nil
}

func (m *mockProductRepository) AddPurchases(ctx context.Context, ids []primitive.ObjectID, delta int64) (int64, int64, error) {
	var matched, modified int64
	for _, id := range ids {
		product, ok := m.products[id]
		if !ok {
			continue
		}
		matched++
		if delta != 0 {
			product.Purchases += delta
			modified++
		}
	}
	return matched, modified, nil
}

func (m *mockProductRepository) SetRatings(ctx context.Context, id primitive.ObjectID, ratings *domain.Ratings) error {
	product, ok := m.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	product.Ratings = ratings
	return nil
}

func (m *mockProductRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.transactionCalls++
	return fn(ctx)
}

type mockCategoryRepository struct {
	categories map[primitive.ObjectID]*domain.Category
	order      []primitive.ObjectID
}

func newMockCategoryRepository() *mockCategoryRepository {
	return &mockCategoryRepository{
		categories: make(map[primitive.ObjectID]*domain.Category),
	}
}

func (m *mockCategoryRepository) add(category *domain.Category) *domain.Category {
	if category.ID.IsZero() {
		category.ID = primitive.NewObjectID()
	}
	m.categories[category.ID] = category
	m.order = append(m.order, category.ID)
	return category
}

func (m *mockCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	for _, existing := range m.categories {
		if existing.Slug == category.Slug {
			return repository.ErrCategorySlugTaken
		}
	}
	category.CreatedAt = time.Now()
	if category.Filters == nil {
		category.Filters = []domain.Filter{}
	}
	m.add(category)
	return nil
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	out := make([]*domain.Category, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.categories[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockCategoryRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Category, error) {
	category, ok := m.categories[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	return category, nil
}

func (m *mockCategoryRepository) FindBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	for _, id := range m.order {
		if m.categories[id].Slug == slug {
			return m.categories[id], nil
		}
	}
	return nil, repository.ErrCategoryNotFound
}

func (m *mockCategoryRepository) SearchByName(ctx context.Context, pattern string, limit int64) ([]*domain.Category, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, err
	}
	out := []*domain.Category{}
	for _, id := range m.order {
		if re.MatchString(m.categories[id].Name) {
			out = append(out, m.categories[id])
			if int64(len(out)) >= limit {
				break
			}
		}
	}
	return out, nil
}

type mockInteractionRepository struct {
	interactions []*domain.Interaction
	products     map[primitive.ObjectID]*domain.Product
	popularErr   error
}

func newMockInteractionRepository() *mockInteractionRepository {
	return &mockInteractionRepository{
		products: make(map[primitive.ObjectID]*domain.Product),
	}
}

func (m *mockInteractionRepository) Create(ctx context.Context, interaction *domain.Interaction) error {
	if interaction.CreatedAt.IsZero() {
		interaction.CreatedAt = time.Now()
	}
	if interaction.ID.IsZero() {
		interaction.ID = primitive.NewObjectID()
	}
	m.interactions = append(m.interactions, interaction)
	return nil
}

func (m *mockInteractionRepository) PopularProducts(ctx context.Context, since time.Time, limit int64) ([]*domain.Product, error) {
	if m.popularErr != nil {
		return nil, m.popularErr
	}

	counts := make(map[primitive.ObjectID]int)
	order := []primitive.ObjectID{}
	for _, interaction := range m.interactions {
		if interaction.Type != domain.InteractionView && interaction.Type != domain.InteractionPurchase {
			continue
		}
		if !interaction.CreatedAt.After(since) {
			continue
		}
		if _, seen := counts[interaction.ProductID]; !seen {
			order = append(order, interaction.ProductID)
		}
		counts[interaction.ProductID]++
	}

	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if int64(len(order)) > limit {
		order = order[:limit]
	}

	out := []*domain.Product{}
	for _, id := range order {
		if product, ok := m.products[id]; ok {
			out = append(out, product)
		}
	}
	return out, nil
}
