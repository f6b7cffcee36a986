package app

import (
	"context"
	"errors"
	"testing"

	"github.com/dwikikusuma/storefront-cart/internal/catalog/domain"
)

type fakeRepo struct {
	gotCategory string
	gotLimit    int
}

func (r *fakeRepo) Get(ctx context.Context, id int64) (domain.Product, error) {
	return domain.Product{ID: id}, nil
}

func (r *fakeRepo) List(ctx context.Context, category string, limit int) ([]domain.Product, error) {
	r.gotCategory, r.gotLimit = category, limit
	return nil, nil
}

func TestGetProductValidation(t *testing.T) {
	svc := NewService(&fakeRepo{})

	t.Run("zero id -> invalid", func(t *testing.T) {
		_, err := svc.GetProduct(context.Background(), 0)
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("negative id -> invalid", func(t *testing.T) {
		_, err := svc.GetProduct(context.Background(), -1)
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("positive id -> delegated", func(t *testing.T) {
		p, err := svc.GetProduct(context.Background(), 3)
		if err != nil || p.ID != 3 {
			t.Fatalf("got (%+v, %v)", p, err)
		}
	})
}

func TestListProductsClampsLimit(t *testing.T) {
	cases := []struct {
		name  string
		limit int
		want  int
	}{
		{"zero -> default", 0, 20},
		{"negative -> default", -4, 20},
		{"within range", 50, 50},
		{"above max", 500, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeRepo{}
			svc := NewService(repo)
			if _, err := svc.ListProducts(context.Background(), " jewelery ", tc.limit); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if repo.gotLimit != tc.want {
				t.Fatalf("expected limit %d, got %d", tc.want, repo.gotLimit)
			}
			if repo.gotCategory != "jewelery" {
				t.Fatalf("expected trimmed category, got %q", repo.gotCategory)
			}
		})
	}
}
