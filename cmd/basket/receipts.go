package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukerupert/basket/internal/model"
)

func receiptCommands(a *app) []*cobra.Command {
	var filter model.ReceiptFilter
	var status string
	var page int
	receipts := &cobra.Command{
		Use:   "receipts",
		Short: "List your receipts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter.Status = model.ReceiptStatus(status)
			p, err := a.client.ListReceipts(cmd.Context(), filter, page)
			if err != nil {
				return err
			}
			printReceipts(cmd.OutOrStdout(), p)
			return nil
		},
	}
	receipts.Flags().StringVar(&status, "status", "", "pending, processing, completed or failed")
	receipts.Flags().StringVar(&filter.Store, "store", "", "store name contains")
	receipts.Flags().StringVar(&filter.StartDate, "from", "", "purchased on or after (YYYY-MM-DD)")
	receipts.Flags().StringVar(&filter.EndDate, "to", "", "purchased on or before (YYYY-MM-DD)")
	receipts.Flags().IntVar(&page, "page", 0, "page number")

	receipt := &cobra.Command{
		Use:   "receipt RECEIPT",
		Short: "Show a receipt and its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			receiptID, err := parseID(args[0], "receipt")
			if err != nil {
				return err
			}
			rc, err := a.client.GetReceipt(cmd.Context(), receiptID)
			if err != nil {
				return err
			}
			printReceipt(cmd.OutOrStdout(), rc)
			return nil
		},
	}

	var in model.ReceiptInput
	var date, tax, receiptStatus string
	receiptAdd := &cobra.Command{
		Use:   "receipt-add STORE",
		Short: "Record a purchase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.StoreName = args[0]
			in.Status = model.ReceiptStatus(receiptStatus)
			if date != "" {
				in.PurchaseDate = &date
			}
			t, err := parseDecimal(tax, "tax")
			if err != nil {
				return err
			}
			in.TaxAmount = t
			rc, err := a.client.CreateReceipt(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created receipt #%d at %s\n", rc.ID, rc.StoreName)
			return nil
		},
	}
	receiptAdd.Flags().StringVar(&in.StoreLocation, "location", "", "store location")
	receiptAdd.Flags().StringVar(&date, "date", "", "purchase date (YYYY-MM-DD)")
	receiptAdd.Flags().StringVar(&tax, "tax", "", "tax paid")
	receiptAdd.Flags().StringVar(&receiptStatus, "status", "", "receipt status; completed when empty")

	var qty, price, total string
	var product int64
	itemAdd := &cobra.Command{
		Use:   "receipt-item-add RECEIPT NAME",
		Short: "Add a line to a receipt",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			receiptID, err := parseID(args[0], "receipt")
			if err != nil {
				return err
			}
			line := model.ReceiptItemInput{ProductName: args[1]}
			if line.Quantity, err = parseDecimal(qty, "quantity"); err != nil {
				return err
			}
			if line.UnitPrice, err = parseDecimal(price, "price"); err != nil {
				return err
			}
			if line.TotalPrice, err = parseDecimal(total, "total"); err != nil {
				return err
			}
			if product != 0 {
				line.ProductID = &product
			}
			item, err := a.client.AddReceiptItem(cmd.Context(), receiptID, line)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added #%d %s %s\n", item.ID, item.ProductName, money(item.TotalPrice))
			return nil
		},
	}
	itemAdd.Flags().StringVarP(&qty, "qty", "q", "", "quantity; 1 when empty")
	itemAdd.Flags().StringVarP(&price, "price", "p", "", "unit price")
	itemAdd.Flags().StringVar(&total, "total", "", "line total; quantity * price when empty")
	itemAdd.Flags().Int64Var(&product, "product", 0, "catalog product id")
	itemAdd.MarkFlagRequired("price")

	receiptDelete := &cobra.Command{
		Use:   "receipt-delete RECEIPT",
		Short: "Delete a receipt and its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			receiptID, err := parseID(args[0], "receipt")
			if err != nil {
				return err
			}
			if err := a.client.DeleteReceipt(cmd.Context(), receiptID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted receipt #%d\n", receiptID)
			return nil
		},
	}

	var monthly bool
	stats := &cobra.Command{
		Use:   "receipt-stats",
		Short: "Summarize your spending",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if monthly {
				months, err := a.client.MonthlySpending(cmd.Context())
				if err != nil {
					return err
				}
				printMonthlySpending(cmd.OutOrStdout(), months)
				return nil
			}
			s, err := a.client.ReceiptStats(cmd.Context())
			if err != nil {
				return err
			}
			printReceiptStats(cmd.OutOrStdout(), s)
			return nil
		},
	}
	stats.Flags().BoolVar(&monthly, "monthly", false, "spending per month over the last year")

	var listName string
	fromReceipt := &cobra.Command{
		Use:   "list-from-receipt RECEIPT",
		Short: "Start a shopping list from a receipt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			receiptID, err := parseID(args[0], "receipt")
			if err != nil {
				return err
			}
			l, err := a.client.GenerateListFromReceipt(cmd.Context(), model.GenerateListInput{ReceiptID: receiptID, ListName: listName})
			if err != nil {
				return err
			}
			printList(cmd.OutOrStdout(), l)
			return nil
		},
	}
	fromReceipt.Flags().StringVar(&listName, "name", "", "list name")

	return []*cobra.Command{receipts, receipt, receiptAdd, itemAdd, receiptDelete, stats, fromReceipt}
}
