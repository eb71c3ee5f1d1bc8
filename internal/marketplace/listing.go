// Package marketplace filters and orders listings in memory.
package marketplace

import (
	"sort"
	"strings"

	"github.com/linkupcampus/linkup/internal/domain"
	"golang.org/x/text/cases"
)

func fold(s string) string {
	return cases.Fold().String(s)
}

// Filter keeps services matching every criterion. The input is not modified.
func Filter(services []domain.Service, c Criteria) []domain.Service {
	query := fold(strings.TrimSpace(c.Query))
	category := strings.TrimSpace(c.Category)
	if strings.EqualFold(category, AllCategories) {
		category = ""
	}

	out := make([]domain.Service, 0, len(services))
	for _, s := range services {
		if query != "" && !matchesQuery(s, query) {
			continue
		}
		if category != "" && s.Category() != category {
			continue
		}
		if !c.Price.Contains(s.Price) {
			continue
		}
		if c.Seller != "" && s.Name != c.Seller {
			continue
		}
		out = append(out, s)
	}
	return out
}

func matchesQuery(s domain.Service, query string) bool {
	return strings.Contains(fold(s.Title), query) ||
		strings.Contains(fold(s.Description), query) ||
		strings.Contains(fold(s.Name), query)
}

// Sort orders services in place by key. Equal elements keep their order.
func Sort(services []domain.Service, key SortKey) {
	var less func(a, b domain.Service) bool
	switch key {
	case SortPriceAsc:
		less = func(a, b domain.Service) bool { return a.Price < b.Price }
	case SortPriceDesc:
		less = func(a, b domain.Service) bool { return a.Price > b.Price }
	case SortRating:
		less = func(a, b domain.Service) bool { return a.MeanRating() > b.MeanRating() }
	default:
		less = func(a, b domain.Service) bool { return a.NumReviews() > b.NumReviews() }
	}
	sort.SliceStable(services, func(i, j int) bool {
		return less(services[i], services[j])
	})
}

// Apply filters then sorts.
func Apply(services []domain.Service, c Criteria) []domain.Service {
	out := Filter(services, c)
	Sort(out, c.Sort)
	return out
}

// Categories returns distinct categories in first-seen order.
func Categories(services []domain.Service) []string {
	seen := make(map[string]struct{}, len(services))
	var out []string
	for _, s := range services {
		c := s.Category()
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Page returns the 1-based page of size perPage.
func Page(services []domain.Service, page, perPage int) []domain.Service {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		return services
	}
	start := (page - 1) * perPage
	if start >= len(services) {
		return []domain.Service{}
	}
	end := start + perPage
	if end > len(services) {
		end = len(services)
	}
	return services[start:end]
}
