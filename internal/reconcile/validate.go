package reconcile

import (
	"fmt"
	"strings"

	"github.com/dukerupert/basket/internal/api"
	"github.com/dukerupert/basket/internal/model"
)

const (
	msgRequired     = "This field is required."
	msgBlank        = "This field may not be blank."
	msgPositive     = "Ensure this value is greater than 0."
	msgNonNegative  = "Ensure this value is greater than or equal to 0."
	msgInvalidState = "Not a valid status."
)

func validateItemInput(ve *api.ValidationError, prefix string, in model.ItemInput) {
	if strings.TrimSpace(in.ProductName) == "" {
		ve.Add(prefix+"product_name", msgRequired)
	}
	if !in.Quantity.IsPositive() {
		ve.Add(prefix+"quantity", msgPositive)
	}
	if in.EstimatedPrice != nil && in.EstimatedPrice.IsNegative() {
		ve.Add(prefix+"estimated_price", msgNonNegative)
	}
}

func validateItemPatch(patch model.ItemPatch) error {
	ve := api.NewValidationError()
	if patch.ProductName != nil && strings.TrimSpace(*patch.ProductName) == "" {
		ve.Add("product_name", msgBlank)
	}
	if patch.Quantity != nil && !patch.Quantity.IsPositive() {
		ve.Add("quantity", msgPositive)
	}
	if patch.EstimatedPrice != nil && patch.EstimatedPrice.IsNegative() {
		ve.Add("estimated_price", msgNonNegative)
	}
	if patch.Position != nil && *patch.Position < 0 {
		ve.Add("position", msgNonNegative)
	}
	return result(ve)
}

func validateListPatch(patch model.ListPatch) error {
	ve := api.NewValidationError()
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		ve.Add("name", msgBlank)
	}
	if patch.Status != nil && !patch.Status.Valid() {
		ve.Add("status", msgInvalidState)
	}
	return result(ve)
}

func validateListInput(in model.ListInput) error {
	ve := api.NewValidationError()
	if strings.TrimSpace(in.Name) == "" {
		ve.Add("name", msgRequired)
	}
	if in.Status != "" && !in.Status.Valid() {
		ve.Add("status", msgInvalidState)
	}
	return result(ve)
}

func validateOrders(list model.ShoppingList, orders []model.ItemOrder) error {
	ve := api.NewValidationError()
	if len(orders) == 0 {
		ve.Add("item_orders", msgRequired)
	}
	for i, o := range orders {
		if list.ItemIndex(o.ItemID) < 0 {
			ve.Add(fmt.Sprintf("item_orders.%d.item_id", i), fmt.Sprintf("Item %d is not on this list.", o.ItemID))
		}
		if o.Position < 0 {
			ve.Add(fmt.Sprintf("item_orders.%d.position", i), msgNonNegative)
		}
	}
	return result(ve)
}

func result(ve *api.ValidationError) error {
	if ve.Empty() {
		return nil
	}
	return ve
}
