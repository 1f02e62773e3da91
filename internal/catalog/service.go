// Package catalog is the administration service for categories and products.
package catalog

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/example/vereinskasse/internal/domain"
	"github.com/example/vereinskasse/internal/state"
)

// MaxImageBytes limits uploaded product images to 2 MiB of decoded data.
const MaxImageBytes = 2 * 1024 * 1024

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrInvalidName      = errors.New("name is required")
	ErrInvalidPrice     = errors.New("price must not be negative")
	ErrUnknownCategory  = errors.New("product must reference an existing category")
	ErrImageTooLarge    = errors.New("image is larger than 2MB")
)

// ProductInput carries the editable fields of a product.
type ProductInput struct {
	Name       string          `json:"name" validate:"required"`
	Price      decimal.Decimal `json:"price"`
	CategoryID string          `json:"categoryId" validate:"required"`
	Image      string          `json:"image,omitempty"`
}

type Service struct {
	state    *state.State
	validate *validator.Validate
	log      logrus.FieldLogger
}

func NewService(st *state.State, log logrus.FieldLogger) *Service {
	return &Service{
		state:    st,
		validate: validator.New(),
		log:      log,
	}
}

// Categories returns the catalog's categories in insertion order.
func (s *Service) Categories() []domain.Category {
	s.state.Lock()
	defer s.state.Unlock()
	return s.state.Categories.Get()
}

// Products returns the catalog's products in insertion order.
func (s *Service) Products() []domain.Product {
	s.state.Lock()
	defer s.state.Unlock()
	return s.state.Products.Get()
}

func (s *Service) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidName
	}

	s.state.Lock()
	defer s.state.Unlock()

	cat := domain.Category{ID: uuid.New().String(), Name: name}
	cats := append(s.state.Categories.Get(), cat)
	if err := s.state.Categories.Set(ctx, cats); err != nil {
		return nil, err
	}
	return &cat, nil
}

func (s *Service) RenameCategory(ctx context.Context, id, name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidName
	}

	s.state.Lock()
	defer s.state.Unlock()

	cats := s.state.Categories.Get()
	updated := make([]domain.Category, 0, len(cats))
	found := false
	for _, c := range cats {
		if c.ID == id {
			c.Name = name
			found = true
		}
		updated = append(updated, c)
	}
	if !found {
		return ErrCategoryNotFound
	}
	return s.state.Categories.Set(ctx, updated)
}

// DeleteCategory removes the category and cascades to every product
// referencing it. Recorded transactions keep their item snapshots untouched.
// The category and product cells are written in sequence behind this one
// call; a crash between the two writes can leave products referencing a
// deleted category, which downstream derivation tolerates.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	s.state.Lock()
	defer s.state.Unlock()

	cats := s.state.Categories.Get()
	remaining := make([]domain.Category, 0, len(cats))
	found := false
	for _, c := range cats {
		if c.ID == id {
			found = true
			continue
		}
		remaining = append(remaining, c)
	}
	if !found {
		return ErrCategoryNotFound
	}
	if err := s.state.Categories.Set(ctx, remaining); err != nil {
		return err
	}

	prods := s.state.Products.Get()
	surviving := make([]domain.Product, 0, len(prods))
	for _, p := range prods {
		if p.CategoryID != id {
			surviving = append(surviving, p)
		}
	}
	return s.state.Products.Set(ctx, surviving)
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	if err := s.checkProductInput(in); err != nil {
		return nil, err
	}

	s.state.Lock()
	defer s.state.Unlock()

	if !s.categoryExists(in.CategoryID) {
		return nil, ErrUnknownCategory
	}

	p := domain.Product{
		ID:         uuid.New().String(),
		Name:       in.Name,
		Price:      in.Price,
		CategoryID: in.CategoryID,
		Image:      in.Image,
	}
	prods := append(s.state.Products.Get(), p)
	if err := s.state.Products.Set(ctx, prods); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, in ProductInput) error {
	if err := s.checkProductInput(in); err != nil {
		return err
	}

	s.state.Lock()
	defer s.state.Unlock()

	if !s.categoryExists(in.CategoryID) {
		return ErrUnknownCategory
	}

	prods := s.state.Products.Get()
	updated := make([]domain.Product, 0, len(prods))
	found := false
	for _, p := range prods {
		if p.ID == id {
			p.Name = in.Name
			p.Price = in.Price
			p.CategoryID = in.CategoryID
			p.Image = in.Image
			found = true
		}
		updated = append(updated, p)
	}
	if !found {
		return ErrProductNotFound
	}
	return s.state.Products.Set(ctx, updated)
}

// DeleteProduct removes the product from the catalog only. Assignment sets
// keep the now-stale id (derivation filters it out) and transactions keep
// their snapshots.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	s.state.Lock()
	defer s.state.Unlock()

	prods := s.state.Products.Get()
	remaining := make([]domain.Product, 0, len(prods))
	found := false
	for _, p := range prods {
		if p.ID == id {
			found = true
			continue
		}
		remaining = append(remaining, p)
	}
	if !found {
		return ErrProductNotFound
	}
	return s.state.Products.Set(ctx, remaining)
}

func (s *Service) checkProductInput(in ProductInput) error {
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			switch verrs[0].Field() {
			case "Name":
				return ErrInvalidName
			case "CategoryID":
				return ErrUnknownCategory
			}
		}
		return err
	}
	if in.Price.IsNegative() {
		return ErrInvalidPrice
	}
	if imageSize(in.Image) > MaxImageBytes {
		return ErrImageTooLarge
	}
	return nil
}

func (s *Service) categoryExists(id string) bool {
	for _, c := range s.state.Categories.Get() {
		if c.ID == id {
			return true
		}
	}
	return false
}

// imageSize estimates the decoded byte size of a base64 data URL.
func imageSize(image string) int {
	if image == "" {
		return 0
	}
	payload := image
	if i := strings.Index(image, ","); i >= 0 {
		payload = image[i+1:]
	}
	return base64.StdEncoding.DecodedLen(len(payload))
}
