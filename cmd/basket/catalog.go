package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/dukerupert/basket/internal/model"
)

func catalogCommands(a *app) []*cobra.Command {
	stores := &cobra.Command{
		Use:   "stores",
		Short: "List stores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ss, err := a.client.Stores(cmd.Context())
			if err != nil {
				return err
			}
			printStores(cmd.OutOrStdout(), ss)
			return nil
		},
	}

	var location string
	storeAdd := &cobra.Command{
		Use:   "store-add NAME",
		Short: "Add a store (staff only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.client.CreateStore(cmd.Context(), model.StoreInput{Name: args[0], Location: location})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created store #%d %s\n", st.ID, st.Name)
			return nil
		},
	}
	storeAdd.Flags().StringVar(&location, "location", "", "where the store is")

	var page int
	products := &cobra.Command{
		Use:   "products [QUERY]",
		Short: "Search the product catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var query string
			if len(args) == 1 {
				query = args[0]
			}
			p, err := a.client.SearchProducts(cmd.Context(), query, page)
			if err != nil {
				return err
			}
			printProducts(cmd.OutOrStdout(), p)
			return nil
		},
	}
	products.Flags().IntVar(&page, "page", 0, "page number")

	var product model.ProductInput
	var barcode string
	productAdd := &cobra.Command{
		Use:   "product-add NAME",
		Short: "Add a catalog product (staff only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			product.Name = args[0]
			if barcode != "" {
				product.Barcode = &barcode
			}
			p, err := a.client.CreateProduct(cmd.Context(), product)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created product #%d %s (%s)\n", p.ID, p.Name, p.Category)
			return nil
		},
	}
	productAdd.Flags().StringVar(&product.Category, "category", "", "category; guessed from the name when empty")
	productAdd.Flags().StringVar(&product.Brand, "brand", "", "brand")
	productAdd.Flags().StringVar(&product.Unit, "unit", "", "unit (kg, each, ...)")
	productAdd.Flags().StringVar(&barcode, "barcode", "", "barcode")

	prices := &cobra.Command{
		Use:   "prices PRODUCT",
		Short: "Show current prices for a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := parseID(args[0], "product")
			if err != nil {
				return err
			}
			ps, err := a.client.ProductPrices(cmd.Context(), productID)
			if err != nil {
				return err
			}
			printPrices(cmd.OutOrStdout(), ps)
			return nil
		},
	}

	var priceIn model.PriceInput
	var priceStr string
	priceAdd := &cobra.Command{
		Use:   "price-add",
		Short: "Record a product's price at a store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := decimal.NewFromString(priceStr)
			if err != nil {
				return fmt.Errorf("invalid price %q", priceStr)
			}
			priceIn.Price = d
			p, err := a.client.RecordPrice(cmd.Context(), priceIn)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s at %s\n", money(p.Price), p.StoreName)
			return nil
		},
	}
	priceAdd.Flags().Int64Var(&priceIn.ProductID, "product", 0, "product id")
	priceAdd.Flags().Int64Var(&priceIn.StoreID, "store", 0, "store id")
	priceAdd.Flags().StringVar(&priceStr, "price", "", "unit price")
	priceAdd.MarkFlagRequired("product")
	priceAdd.MarkFlagRequired("store")
	priceAdd.MarkFlagRequired("price")

	compareProduct := &cobra.Command{
		Use:   "compare-product PRODUCT",
		Short: "Compare one product's prices across stores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := parseID(args[0], "product")
			if err != nil {
				return err
			}
			c, err := a.client.CompareProduct(cmd.Context(), productID)
			if err != nil {
				return err
			}
			printProductComparison(cmd.OutOrStdout(), c)
			return nil
		},
	}

	compareProducts := &cobra.Command{
		Use:   "compare-products PRODUCT...",
		Short: "Compare several products' prices across stores",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := parseID(arg, "product")
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			results, err := a.client.CompareProducts(cmd.Context(), ids)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintln(out, "No prices available for these products")
				return nil
			}
			for i, c := range results {
				if i > 0 {
					fmt.Fprintln(out)
				}
				printProductComparison(out, c)
			}
			return nil
		},
	}

	preferred := &cobra.Command{
		Use:   "preferred",
		Short: "List your preferred stores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ps, err := a.client.PreferredStores(cmd.Context())
			if err != nil {
				return err
			}
			printPreferredStores(cmd.OutOrStdout(), ps)
			return nil
		},
	}

	prefer := &cobra.Command{
		Use:   "prefer STORE",
		Short: "Add a store to your preferred stores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			storeID, err := parseID(args[0], "store")
			if err != nil {
				return err
			}
			ps, err := a.client.AddPreferredStore(cmd.Context(), storeID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s to preferred stores\n", ps.StoreName)
			return nil
		},
	}

	unprefer := &cobra.Command{
		Use:   "unprefer STORE",
		Short: "Remove a store from your preferred stores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			storeID, err := parseID(args[0], "store")
			if err != nil {
				return err
			}
			if err := a.client.RemovePreferredStore(cmd.Context(), storeID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed store #%d from preferred stores\n", storeID)
			return nil
		},
	}

	return []*cobra.Command{
		stores, storeAdd, products, productAdd, prices, priceAdd,
		compareProduct, compareProducts, preferred, prefer, unprefer,
	}
}
