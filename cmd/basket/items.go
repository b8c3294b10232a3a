package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/dukerupert/basket/internal/model"
)

// itemFlags are shared by add and edit-item.
type itemFlags struct {
	quantity string
	unit     string
	price    string
	notes    string
	product  int64
}

func (f *itemFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.quantity, "qty", "q", "", "quantity")
	cmd.Flags().StringVarP(&f.unit, "unit", "u", "", "unit (kg, each, ...)")
	cmd.Flags().StringVarP(&f.price, "price", "p", "", "estimated unit price")
	cmd.Flags().StringVar(&f.notes, "notes", "", "item notes")
	cmd.Flags().Int64Var(&f.product, "product", 0, "catalog product id")
}

func parseDecimal(s, name string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", name, s)
	}
	return &d, nil
}

func itemCommands(a *app) []*cobra.Command {
	var addFlags itemFlags
	add := &cobra.Command{
		Use:   "add LIST NAME",
		Short: "Add an item, optionally linked to a catalog product",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := loadList(cmd, a, args[0])
			if err != nil {
				return err
			}
			in := model.ItemInput{ProductName: args[1], Quantity: decimal.NewFromInt(1), Unit: addFlags.unit, Notes: addFlags.notes}
			if addFlags.product > 0 {
				in.ProductID = &addFlags.product
			}
			qty, err := parseDecimal(addFlags.quantity, "quantity")
			if err != nil {
				return err
			}
			if qty != nil {
				in.Quantity = *qty
			}
			if in.EstimatedPrice, err = parseDecimal(addFlags.price, "price"); err != nil {
				return err
			}

			l, item, err := a.lists.AddItem(cmd.Context(), l, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (#%d)\n\n", item.ProductName, item.ID)
			printList(cmd.OutOrStdout(), l)
			return nil
		},
	}
	addFlags.register(add)

	var editFlags itemFlags
	var editName string
	var unlink, clearPrice bool
	editItem := &cobra.Command{
		Use:   "edit-item LIST ITEM",
		Short: "Change an item's fields",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := loadList(cmd, a, args[0])
			if err != nil {
				return err
			}
			itemID, err := parseID(args[1], "item")
			if err != nil {
				return err
			}

			var patch model.ItemPatch
			flags := cmd.Flags()
			if flags.Changed("name") {
				patch.ProductName = &editName
			}
			if patch.Quantity, err = parseDecimal(editFlags.quantity, "quantity"); err != nil {
				return err
			}
			if patch.EstimatedPrice, err = parseDecimal(editFlags.price, "price"); err != nil {
				return err
			}
			if flags.Changed("unit") {
				patch.Unit = &editFlags.unit
			}
			if flags.Changed("notes") {
				patch.Notes = &editFlags.notes
			}
			if flags.Changed("product") {
				patch.ProductID = &editFlags.product
			}
			patch.ClearProduct = unlink
			patch.ClearEstimatedPrice = clearPrice

			l, _, err = a.lists.UpdateItem(cmd.Context(), l, itemID, patch)
			if err != nil {
				return err
			}
			printList(cmd.OutOrStdout(), l)
			return nil
		},
	}
	editFlags.register(editItem)
	editItem.Flags().StringVar(&editName, "name", "", "item name")
	editItem.Flags().BoolVar(&unlink, "unlink", false, "remove the catalog product link")
	editItem.Flags().BoolVar(&clearPrice, "clear-price", false, "remove the estimated price")
	editItem.MarkFlagsMutuallyExclusive("product", "unlink")
	editItem.MarkFlagsMutuallyExclusive("price", "clear-price")

	toggle := &cobra.Command{
		Use:   "toggle LIST ITEM",
		Short: "Check or uncheck an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := loadList(cmd, a, args[0])
			if err != nil {
				return err
			}
			itemID, err := parseID(args[1], "item")
			if err != nil {
				return err
			}
			l, _, err = a.lists.ToggleItem(cmd.Context(), l, itemID)
			if err != nil {
				return err
			}
			printList(cmd.OutOrStdout(), l)
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "item LIST ITEM",
		Short: "Show one item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			listID, err := parseID(args[0], "list")
			if err != nil {
				return err
			}
			itemID, err := parseID(args[1], "item")
			if err != nil {
				return err
			}
			item, err := a.client.GetItem(cmd.Context(), listID, itemID)
			if err != nil {
				return err
			}
			printItem(cmd.OutOrStdout(), item)
			return nil
		},
	}

	rm := &cobra.Command{
		Use:   "rm LIST ITEM",
		Short: "Remove an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := loadList(cmd, a, args[0])
			if err != nil {
				return err
			}
			itemID, err := parseID(args[1], "item")
			if err != nil {
				return err
			}
			l, err = a.lists.DeleteItem(cmd.Context(), l, itemID)
			if err != nil {
				return err
			}
			printList(cmd.OutOrStdout(), l)
			return nil
		},
	}

	clearChecked := &cobra.Command{
		Use:   "clear LIST",
		Short: "Remove every checked item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := loadList(cmd, a, args[0])
			if err != nil {
				return err
			}
			l, n, err := a.lists.ClearCheckedItems(cmd.Context(), l)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d checked items\n\n", n)
			printList(cmd.OutOrStdout(), l)
			return nil
		},
	}

	reorder := &cobra.Command{
		Use:   "reorder LIST ITEM...",
		Short: "Put items in the given order",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := loadList(cmd, a, args[0])
			if err != nil {
				return err
			}
			orders := make([]model.ItemOrder, 0, len(args)-1)
			for pos, arg := range args[1:] {
				itemID, err := parseID(arg, "item")
				if err != nil {
					return err
				}
				orders = append(orders, model.ItemOrder{ItemID: itemID, Position: pos})
			}
			l, err = a.lists.ReorderItems(cmd.Context(), l, orders)
			if err != nil {
				return err
			}
			printList(cmd.OutOrStdout(), l)
			return nil
		},
	}

	return []*cobra.Command{add, editItem, show, toggle, rm, clearChecked, reorder}
}
