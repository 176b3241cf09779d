package service

import (
	"context"
	"errors"
	"strings"

	"threadline/internal/domain"
	"threadline/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrParentCategoryNotFound = errors.New("parent category not found")

// CreateCategoryInput carries the fields of a category creation. ParentSlug
// of "" or "none" creates a root category.
type CreateCategoryInput struct {
	Name       string
	Slug       string
	ParentSlug string
	Filters    []domain.Filter
}

// CategoryNode is a category with its resolved subcategories, as served by
// the tree endpoint.
type CategoryNode struct {
	ID            primitive.ObjectID `json:"id"`
	Name          string             `json:"name"`
	Slug          string             `json:"slug"`
	ParentSlug    string             `json:"parent_slug,omitempty"`
	Filters       []domain.Filter    `json:"filters"`
	Subcategories []*CategoryNode    `json:"subcategories"`
}

// CategoryService defines the interface for category business logic
type CategoryService interface {
	Create(ctx context.Context, input CreateCategoryInput) (*domain.Category, error)
	Tree(ctx context.Context) ([]*CategoryNode, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Category, error)
	ProductsIn(ctx context.Context, slug string) ([]*domain.Product, error)
}

type categoryService struct {
	categories repository.CategoryRepository
	products   repository.ProductRepository
}

// NewCategoryService creates a new instance of CategoryService
func NewCategoryService(categories repository.CategoryRepository, products repository.ProductRepository) CategoryService {
	return &categoryService{categories: categories, products: products}
}

// Create inserts a category, resolving the parent by slug when one is named.
func (s *categoryService) Create(ctx context.Context, input CreateCategoryInput) (*domain.Category, error) {
	category := &domain.Category{
		Name:    input.Name,
		Slug:    strings.ToLower(input.Slug),
		Filters: input.Filters,
	}

	if input.ParentSlug != "" && input.ParentSlug != "none" {
		parent, err := s.categories.FindBySlug(ctx, input.ParentSlug)
		if err != nil {
			if err == repository.ErrCategoryNotFound {
				return nil, ErrParentCategoryNotFound
			}
			return nil, err
		}
		category.ParentID = &parent.ID
		category.ParentSlug = parent.Slug
	}

	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// Tree fetches every category in one query and assembles the hierarchy in
// memory. The traversal tracks visited nodes, so a parent cycle introduced
// outside this service degrades to a partial tree instead of recursing
// forever.
func (s *categoryService) Tree(ctx context.Context) ([]*CategoryNode, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}

	children := make(map[primitive.ObjectID][]*domain.Category)
	roots := []*domain.Category{}
	for _, category := range categories {
		if category.ParentID == nil {
			roots = append(roots, category)
			continue
		}
		children[*category.ParentID] = append(children[*category.ParentID], category)
	}

	visited := make(map[primitive.ObjectID]bool, len(categories))
	var build func(category *domain.Category) *CategoryNode
	build = func(category *domain.Category) *CategoryNode {
		visited[category.ID] = true
		node := &CategoryNode{
			ID:            category.ID,
			Name:          category.Name,
			Slug:          category.Slug,
			ParentSlug:    category.ParentSlug,
			Filters:       category.Filters,
			Subcategories: []*CategoryNode{},
		}
		for _, child := range children[category.ID] {
			if visited[child.ID] {
				continue
			}
			node.Subcategories = append(node.Subcategories, build(child))
		}
		return node
	}

	tree := make([]*CategoryNode, 0, len(roots))
	for _, root := range roots {
		tree = append(tree, build(root))
	}
	return tree, nil
}

// GetBySlug retrieves a category by slug
func (s *categoryService) GetBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	return s.categories.FindBySlug(ctx, slug)
}

// ProductsIn lists the products belonging to the category with this slug.
func (s *categoryService) ProductsIn(ctx context.Context, slug string) ([]*domain.Product, error) {
	category, err := s.categories.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.products.List(ctx, repository.ProductFilter{CategoryID: &category.ID})
}
