package guest

import (
	"sort"
	"strings"
	"time"

	"github.com/atlasargan/backend-store/internal/pricing"
)

// Order is a raw guest order record, identified only by its customer email.
type Order struct {
	Email       string
	Name        string
	Phone       string
	City        string
	Total       pricing.Money
	OrderNumber string
	CreatedAt   time.Time
}

// Profile is a synthesized, non-persisted customer record built by folding a
// guest's orders together.
type Profile struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Email       string        `json:"email"`
	Phone       string        `json:"phone"`
	City        string        `json:"city"`
	TotalSpent  pricing.Money `json:"totalSpent"`
	TotalOrders int           `json:"totalOrders"`
	LastOrder   string        `json:"lastOrder"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// NormalizeEmail canonicalises an email for identity purposes.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Aggregate folds guest orders into one profile per distinct normalized email.
//
// The input is sorted by CreatedAt descending before folding, so the most
// recent order is always the one whose display fields (name, phone, city) and
// order number end up on the profile; input ordering carries no meaning.
// Every order counts toward TotalSpent and TotalOrders regardless of its
// status. Output preserves the order profiles were first seen in, i.e. most
// recently active guests first.
func Aggregate(orders []Order) []Profile {
	sorted := make([]Order, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	index := make(map[string]int, len(sorted))
	profiles := make([]Profile, 0, len(sorted))
	for _, order := range sorted {
		email := NormalizeEmail(order.Email)
		if email == "" {
			continue
		}
		at, ok := index[email]
		if !ok {
			index[email] = len(profiles)
			profiles = append(profiles, Profile{
				ID:        "guest-" + email,
				Name:      order.Name,
				Email:     email,
				Phone:     order.Phone,
				City:      order.City,
				LastOrder: order.OrderNumber,
				CreatedAt: order.CreatedAt,
			})
			at = len(profiles) - 1
		}
		profiles[at].TotalSpent += order.Total
		profiles[at].TotalOrders++
	}
	return profiles
}

// SortBySpend reorders profiles for the "top spenders" view, highest total
// spend first.
func SortBySpend(profiles []Profile) {
	sort.SliceStable(profiles, func(i, j int) bool {
		return profiles[i].TotalSpent > profiles[j].TotalSpent
	})
}
