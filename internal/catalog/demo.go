package catalog

import (
	"context"
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"
)

type demoEntry struct {
	name, description, price string
	category             Category
}

var demoEntries = []demoEntry{
	{"Classic White T-Shirt", "Comfortable cotton t-shirt perfect for everyday wear", "29.99", CategoryMen},
	{"Denim Jeans", "Classic fit denim jeans with a modern touch", "79.99", CategoryMen},
	{"Hoodie", "Warm and cozy hoodie for casual days", "59.99", CategoryMen},
	{"Dress Shirt", "Crisp button-down shirt for the office", "49.99", CategoryMen},
	{"Sneakers", "Lightweight sneakers for all-day comfort", "89.99", CategoryMen},
	{"Winter Jacket", "Insulated jacket built for cold weather", "129.99", CategoryMen},
	{"Polo Shirt", "Breathable polo with a classic collar", "39.99", CategoryMen},
	{"Summer Dress", "Light floral dress for warm days", "69.99", CategoryWomen},
	{"Skinny Jeans", "Stretch denim with a slim silhouette", "79.99", CategoryWomen},
	{"Blouse", "Soft blouse that pairs with anything", "54.99", CategoryWomen},
	{"Cardigan", "Knit cardigan for layering", "64.99", CategoryWomen},
	{"High Heels", "Elegant heels for special occasions", "99.99", CategoryWomen},
	{"Tank Top", "Simple tank top for the gym or the beach", "24.99", CategoryWomen},
	{"Maxi Dress", "Flowing maxi dress for evenings out", "89.99", CategoryWomen},
	{"Kids T-Shirt", "Durable tee made for play", "19.99", CategoryKids},
	{"Kids Jeans", "Reinforced jeans for active kids", "34.99", CategoryKids},
}

// DemoDrafts is the starter catalog loaded by cmd/seed and the memory driver.
func DemoDrafts() []Draft {
	out := make([]Draft, 0, len(demoEntries))
	for _, e := range demoEntries {
		name, desc, cat := e.name, e.description, string(e.category)
		price := decimal.RequireFromString(e.price)
		img := fmt.Sprintf("https://via.placeholder.com/300x300?text=%s", url.QueryEscape(e.name))
		out = append(out, Draft{
			Name:        &name,
			Description: &desc,
			Price:       &price,
			ImageURL:    &img,
			Category:    &cat,
		})
	}
	return out
}

// SeedDemo loads DemoDrafts into an empty catalog and reports how many
// entries it created. A catalog that already has products is left alone.
func (s *Service) SeedDemo(ctx context.Context) (int, error) {
	_, total, err := s.store.List(ctx, ListQuery{Sort: DefaultSort, Page: 1, Limit: 1})
	if err != nil {
		return 0, err
	}
	if total > 0 {
		return 0, nil
	}
	n := 0
	for _, d := range DemoDrafts() {
		if _, err := s.Create(ctx, d); err != nil {
			return n, fmt.Errorf("seed %s: %w", *d.Name, err)
		}
		n++
	}
	return n, nil
}
