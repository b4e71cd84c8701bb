package entity

// Vehicle categories offered in the booking dialogue. CarroPequeno is the
// base class and the default when the customer's choice is unrecognized.
const (
	CategoryCarroPequeno = "CARRO_PEQUENO"
	CategoryCarroGrande  = "CARRO_GRANDE"
	CategoryMoto         = "MOTO"
)

// DefaultCategory is used when category selection cannot be interpreted,
// so an odd reply never blocks the flow.
const DefaultCategory = CategoryCarroPequeno

// VehicleRate is the fare table row for one category. Prices in BRL.
type VehicleRate struct {
	Category      string
	Label         string
	BaseFare      float64
	PerKmRate     float64
	PerMinuteRate float64
	MinimumFare   float64
}

// CategoryLabel returns the customer-facing name for a category.
func CategoryLabel(category string) string {
	switch category {
	case CategoryCarroPequeno:
		return "Carro Pequeno"
	case CategoryCarroGrande:
		return "Carro Grande"
	case CategoryMoto:
		return "Moto"
	}
	return category
}

// AllCategories lists the categories in menu order.
func AllCategories() []string {
	return []string{CategoryCarroPequeno, CategoryCarroGrande, CategoryMoto}
}
