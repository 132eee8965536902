package validation

import (
	"reflect"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator with the struct-level rules registered.
// Field names in errors use the json tag names.
func New() *validatorv10.Validate {
	v := validatorv10.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterStructValidation(createOrderStructValidation, CreateOrderRequest{})
	v.RegisterStructValidation(createProductStructValidation, CreateProductRequest{})

	return v
}

// createOrderStructValidation rejects a product id listed twice. Stock for a
// repeated id would be decremented from the same snapshot once per line.
func createOrderStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CreateOrderRequest)

	seen := make(map[string]struct{}, len(req.Products))
	for _, p := range req.Products {
		if _, dup := seen[p.ID]; dup {
			sl.ReportError(req.Products, "products", "Products", "unique_products", p.ID)
			return
		}
		seen[p.ID] = struct{}{}
	}
}

func createProductStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CreateProductRequest)
	if !req.Price.IsPositive() {
		sl.ReportError(req.Price, "price", "Price", "gt", "0")
	}
}
