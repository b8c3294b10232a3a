package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/basket/internal/compare"
	"github.com/dukerupert/basket/internal/model"
)

func money(d decimal.Decimal) string {
	return "$" + humanize.FormatFloat("#,###.##", d.Round(2).InexactFloat64())
}

func ago(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func formatFieldErrors(fields map[string][]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s: %s\n", k, strings.Join(fields[k], " "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func printSummaries(w io.Writer, page model.Page[model.ShoppingListSummary]) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tITEMS\tDONE\tTOTAL\tUPDATED")
	for _, l := range page.Results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d%%\t%s\t%s\n",
			l.ID, l.Name, l.Status, l.ItemsCount, l.ProgressPercentage, money(l.EstimatedTotal), ago(l.UpdatedAt))
	}
	tw.Flush()
	if page.Next != nil {
		fmt.Fprintf(w, "(%d lists, more with --page)\n", page.Count)
	}
}

func printList(w io.Writer, l model.ShoppingList) {
	fmt.Fprintf(w, "%s  [%s]  #%d\n", l.Name, l.Status, l.ID)
	if l.Notes != "" {
		fmt.Fprintf(w, "  %s\n", l.Notes)
	}
	fmt.Fprintf(w, "%d/%d checked (%d%%), estimated %s\n\n",
		l.CheckedItemsCount, l.ItemsCount, l.ProgressPercentage, money(l.EstimatedTotal))

	if len(l.Items) == 0 {
		fmt.Fprintln(w, "  (no items)")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, item := range l.Items {
		mark := "[ ]"
		if item.IsChecked {
			mark = "[x]"
		}
		qty := item.Quantity.String()
		if item.Unit != "" {
			qty += " " + item.Unit
		}
		price := "-"
		if lt, ok := item.LineTotal(); ok {
			price = money(lt)
		}
		fmt.Fprintf(tw, "  %s\t%d\t%s\t%s\t%s\n", mark, item.ID, item.ProductName, qty, price)
	}
	tw.Flush()
}

func printComparison(w io.Writer, c model.PriceComparison, view compare.View) {
	if view.NoData {
		msg := view.Message
		if msg == "" {
			msg = compare.NoLinkedItemsMessage
		}
		fmt.Fprintln(w, msg)
		return
	}

	fmt.Fprintf(w, "%s: %d items priced\n\n", c.ListName, len(c.Items))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tSTORE\tTOTAL")
	for i, r := range view.Ranked {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, r.Store, money(r.Total))
	}
	tw.Flush()

	if s, ok := view.Summary(); ok {
		fmt.Fprintf(w, "\nShop at %s and save %s compared to %s.\n", s.BestStore, money(s.PotentialSavings), s.WorstStore)
	}
	for _, d := range view.Disagreements {
		fmt.Fprintf(w, "warning: %s\n", d)
	}
}

func printStores(w io.Writer, stores []model.Store) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tLOCATION")
	for _, s := range stores {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", s.ID, s.Name, s.Location)
	}
	tw.Flush()
}

func printProducts(w io.Writer, page model.Page[model.Product]) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tBRAND\tLOWEST")
	for _, p := range page.Results {
		lowest := "-"
		if p.LowestPrice != nil {
			lowest = money(*p.LowestPrice)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Category, p.Brand, lowest)
	}
	tw.Flush()
	fmt.Fprintf(w, "%s products\n", humanize.Comma(int64(page.Count)))
}

func printPrices(w io.Writer, prices []model.Price) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STORE\tPRICE\tRECORDED")
	for _, p := range prices {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.StoreName, money(p.Price), ago(p.DateRecorded))
	}
	tw.Flush()
}

func printItem(w io.Writer, item model.ShoppingListItem) {
	mark := "[ ]"
	if item.IsChecked {
		mark = "[x]"
	}
	fmt.Fprintf(w, "%s %s  #%d\n", mark, item.ProductName, item.ID)
	qty := item.Quantity.String()
	if item.Unit != "" {
		qty += " " + item.Unit
	}
	fmt.Fprintf(w, "  quantity: %s\n", qty)
	if item.EstimatedPrice != nil {
		fmt.Fprintf(w, "  price:    %s\n", money(*item.EstimatedPrice))
	}
	if item.ProductID != nil {
		fmt.Fprintf(w, "  product:  #%d\n", *item.ProductID)
	}
	if item.Notes != "" {
		fmt.Fprintf(w, "  notes:    %s\n", item.Notes)
	}
}

func printProductComparison(w io.Writer, c model.ProductComparison) {
	name := c.ProductName
	if c.Brand != "" {
		name += " (" + c.Brand + ")"
	}
	fmt.Fprintf(w, "%s  #%d\n", name, c.ProductID)
	if c.LowestPrice == nil {
		msg := c.Message
		if msg == "" {
			msg = compare.NoPricesMessage
		}
		fmt.Fprintln(w, msg)
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STORE\tPRICE\tRECORDED")
	for _, p := range c.Prices {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.StoreName, money(p.Price), ago(p.DateRecorded))
	}
	tw.Flush()
	if c.PriceDifference != nil && c.PriceDifference.IsPositive() {
		fmt.Fprintf(w, "Save %s (%s%%) buying at the cheapest store.\n", money(*c.PriceDifference), c.SavingsPercentage.StringFixed(2))
	}
}

func printPreferredStores(w io.Writer, stores []model.PreferredStore) {
	if len(stores) == 0 {
		fmt.Fprintln(w, "(no preferred stores)")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STORE\tNAME\tLOCATION\tADDED")
	for _, s := range stores {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.StoreID, s.StoreName, s.StoreLocation, ago(s.AddedAt))
	}
	tw.Flush()
}

func purchaseDate(d *string) string {
	if d == nil || *d == "" {
		return "-"
	}
	return *d
}

func printReceipts(w io.Writer, page model.Page[model.ReceiptSummary]) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTORE\tDATE\tSTATUS\tITEMS\tTOTAL")
	for _, rc := range page.Results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n",
			rc.ID, rc.StoreName, purchaseDate(rc.PurchaseDate), rc.Status, rc.ItemsCount, money(rc.TotalAmount))
	}
	tw.Flush()
	if page.Next != nil {
		fmt.Fprintf(w, "(%d receipts, more with --page)\n", page.Count)
	}
}

func printReceipt(w io.Writer, rc model.Receipt) {
	fmt.Fprintf(w, "%s  [%s]  #%d\n", rc.StoreName, rc.Status, rc.ID)
	if rc.StoreLocation != "" {
		fmt.Fprintf(w, "  %s\n", rc.StoreLocation)
	}
	fmt.Fprintf(w, "purchased %s, total %s", purchaseDate(rc.PurchaseDate), money(rc.TotalAmount))
	if rc.TaxAmount != nil {
		fmt.Fprintf(w, " (tax %s)", money(*rc.TaxAmount))
	}
	fmt.Fprint(w, "\n\n")

	if len(rc.Items) == 0 {
		fmt.Fprintln(w, "  (no items)")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, item := range rc.Items {
		fmt.Fprintf(tw, "  %d\t%s\t%s x %s\t%s\n",
			item.ID, item.ProductName, item.Quantity.String(), money(item.UnitPrice), money(item.TotalPrice))
	}
	tw.Flush()
}

func printReceiptStats(w io.Writer, s model.ReceiptStats) {
	fmt.Fprintf(w, "%s receipts, %s spent\n", humanize.Comma(int64(s.TotalReceipts)), money(s.TotalSpent))
	fmt.Fprintf(w, "This month: %d receipts, %s spent\n", s.ReceiptsThisMonth, money(s.SpentThisMonth))
	if len(s.TopStores) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STORE\tRECEIPTS\tSPENT")
	for _, st := range s.TopStores {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", st.StoreName, st.ReceiptCount, money(st.TotalSpent))
	}
	tw.Flush()
}

func printMonthlySpending(w io.Writer, months []model.MonthlySpending) {
	if len(months) == 0 {
		fmt.Fprintln(w, "(no completed receipts in the last year)")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MONTH\tRECEIPTS\tSPENT")
	for _, m := range months {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", m.Month, m.Count, money(m.Total))
	}
	tw.Flush()
}
