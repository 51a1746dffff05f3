package session

import (
	"sort"

	"github.com/dishcovery/api/internal/model"
)

// CategoryOrder ranks categories for display. Categories not in the list
// keep their first-seen order after the ranked ones.
type CategoryOrder []string

func (o CategoryOrder) rank(category string) int {
	for i, c := range o {
		if c == category {
			return i
		}
	}
	return len(o)
}

// Course orderings per cuisine. These drive how the UI groups slots; an
// unknown cuisine falls back to first-seen order.
var cuisineOrders = map[model.CuisineType]CategoryOrder{
	model.CuisineChinese:  {"Appetizer", "Soup", "Main Course", "Rice & Noodles", "Dessert", "Drink"},
	model.CuisineThai:     {"Appetizer", "Salad", "Soup", "Curry", "Main Course", "Rice & Noodles", "Dessert", "Drink"},
	model.CuisineJapanese: {"Appetizer", "Sashimi", "Sushi", "Grilled", "Noodles", "Rice", "Dessert", "Drink"},
	model.CuisineItalian:  {"Antipasto", "Primo", "Secondo", "Contorno", "Dolce", "Drink"},
	model.CuisineIndian:   {"Appetizer", "Curry", "Tandoor", "Bread", "Rice", "Dessert", "Drink"},
	model.CuisineKorean:   {"Appetizer", "Soup", "Grilled", "Main Course", "Rice & Noodles", "Dessert", "Drink"},
}

// CategoryOrderFor returns the course ordering for a cuisine. Nil means
// first-seen order.
func CategoryOrderFor(cuisine model.CuisineType) CategoryOrder {
	return cuisineOrders[cuisine]
}

func sortGroups(groups []CategoryGroup, order CategoryOrder) {
	if len(order) == 0 {
		return
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return order.rank(groups[i].Category) < order.rank(groups[j].Category)
	})
}
