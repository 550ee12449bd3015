package storage

import (
	"context"
	"strings"
)

// Product is the part of a catalogue item the chat reads.
type Product struct {
	Id          string  `bson:"-" json:"id"`
	Name        string  `bson:"name" json:"name"`
	Price       float64 `bson:"price" json:"price"`
	Stock       int     `bson:"stock" json:"stock"`
	Category    string  `bson:"category,omitempty" json:"category,omitempty"`
	Description string  `bson:"description,omitempty" json:"description,omitempty"`
	StoreId     string  `bson:"store,omitempty" json:"store_id,omitempty"`
}

// Catalog finds products by a fragment of their name.
type Catalog interface {
	// FindByNameFragment returns the first product, ordered by name and then
	// id, whose name contains fragment case-insensitively, or nil.
	FindByNameFragment(ctx context.Context, fragment string) (*Product, error)
	Close() error
}

func nameContains(name, fragment string) bool {
	return strings.Contains(strings.ToLower(name), strings.ToLower(fragment))
}

// productLess is the tie-break order shared by all catalog implementations.
func productLess(a, b Product) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.Id < b.Id
}

// SampleProducts is a starter catalogue for a neighbourhood Kirana store.
func SampleProducts() []Product {
	return []Product{
		{Name: "Amul Taaza Milk (500ml)", Price: 28, Category: "Dairy", Stock: 50, Description: "Fresh homogenized toned milk"},
		{Name: "Amul Butter (100g)", Price: 60, Category: "Dairy", Stock: 30, Description: "Utterly butterly delicious"},
		{Name: "Mother Dairy Curd (400g)", Price: 35, Category: "Dairy", Stock: 25, Description: "Fresh and creamy curd"},
		{Name: "Britannia Bread (400g)", Price: 40, Category: "Bakery", Stock: 40, Description: "Soft white bread"},
		{Name: "Tata Salt (1kg)", Price: 22, Category: "Staples", Stock: 100, Description: "Iodized salt"},
		{Name: "Fortune Sunflower Oil (1L)", Price: 150, Category: "Staples", Stock: 40, Description: "Refined sunflower oil"},
		{Name: "India Gate Basmati Rice (1kg)", Price: 120, Category: "Staples", Stock: 60, Description: "Premium basmati rice"},
		{Name: "Toor Dal (1kg)", Price: 140, Category: "Staples", Stock: 50, Description: "Arhar dal"},
		{Name: "Aashirvaad Atta (5kg)", Price: 280, Category: "Staples", Stock: 35, Description: "Whole wheat flour"},
		{Name: "Parle-G Biscuits (200g)", Price: 25, Category: "Snacks", Stock: 80, Description: "Glucose biscuits"},
		{Name: "Lays Chips (50g)", Price: 20, Category: "Snacks", Stock: 60, Description: "Classic salted chips"},
		{Name: "Maggi Noodles (70g)", Price: 14, Category: "Snacks", Stock: 100, Description: "2-minute noodles"},
		{Name: "Coca Cola (600ml)", Price: 40, Category: "Beverages", Stock: 45, Description: "Chilled soft drink"},
		{Name: "Bru Coffee (50g)", Price: 95, Category: "Beverages", Stock: 30, Description: "Instant coffee"},
		{Name: "Tata Tea Gold (250g)", Price: 150, Category: "Beverages", Stock: 40, Description: "Premium tea leaves"},
		{Name: "Colgate Toothpaste (200g)", Price: 110, Category: "Personal Care", Stock: 35, Description: "Dental care"},
		{Name: "Lux Soap (125g)", Price: 45, Category: "Personal Care", Stock: 50, Description: "Beauty soap"},
		{Name: "Clinic Plus Shampoo (180ml)", Price: 95, Category: "Personal Care", Stock: 30, Description: "Hair shampoo"},
		{Name: "Vim Bar (200g)", Price: 25, Category: "Household", Stock: 40, Description: "Dishwash bar"},
		{Name: "Surf Excel (1kg)", Price: 180, Category: "Household", Stock: 30, Description: "Detergent powder"},
		{Name: "Lizol Floor Cleaner (500ml)", Price: 110, Category: "Household", Stock: 25, Description: "Disinfectant cleaner"},
		{Name: "MDH Chilli Powder (100g)", Price: 70, Category: "Spices", Stock: 40, Description: "Red chilli powder"},
		{Name: "Everest Turmeric Powder (100g)", Price: 50, Category: "Spices", Stock: 40, Description: "Haldi powder"},
	}
}
