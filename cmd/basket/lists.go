package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukerupert/basket/internal/model"
)

func listCommands(a *app) []*cobra.Command {
	var status string
	var page int
	lists := &cobra.Command{
		Use:   "lists",
		Short: "Show your shopping lists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.client.ListLists(cmd.Context(), model.ListStatus(status), page)
			if err != nil {
				return err
			}
			printSummaries(cmd.OutOrStdout(), p)
			return nil
		},
	}
	lists.Flags().StringVar(&status, "status", "", "only lists with this status (active, completed, archived)")
	lists.Flags().IntVar(&page, "page", 0, "page number")

	show := &cobra.Command{
		Use:   "show LIST",
		Short: "Show a list and its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			listID, err := parseID(args[0], "list")
			if err != nil {
				return err
			}
			l, err := a.lists.Load(cmd.Context(), listID)
			if err != nil {
				return err
			}
			printList(cmd.OutOrStdout(), l)
			return nil
		},
	}

	var notes string
	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a shopping list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.lists.CreateList(cmd.Context(), model.ListInput{Name: args[0], Notes: notes})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created list #%d %s\n", l.ID, l.Name)
			return nil
		},
	}
	create.Flags().StringVar(&notes, "notes", "", "list notes")

	var editName, editNotes, editStatus string
	edit := &cobra.Command{
		Use:   "edit LIST",
		Short: "Change a list's name, notes or status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := loadList(cmd, a, args[0])
			if err != nil {
				return err
			}
			var patch model.ListPatch
			if cmd.Flags().Changed("name") {
				patch.Name = &editName
			}
			if cmd.Flags().Changed("notes") {
				patch.Notes = &editNotes
			}
			if cmd.Flags().Changed("status") {
				s := model.ListStatus(editStatus)
				patch.Status = &s
			}
			l, err = a.lists.UpdateListMetadata(cmd.Context(), l, patch)
			if err != nil {
				return err
			}
			printList(cmd.OutOrStdout(), l)
			return nil
		},
	}
	edit.Flags().StringVar(&editName, "name", "", "new name")
	edit.Flags().StringVar(&editNotes, "notes", "", "new notes")
	edit.Flags().StringVar(&editStatus, "status", "", "new status")

	complete := &cobra.Command{
		Use:   "complete LIST",
		Short: "Mark an active list completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := loadList(cmd, a, args[0])
			if err != nil {
				return err
			}
			l, err = a.lists.MarkComplete(cmd.Context(), l)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is %s\n", l.Name, l.Status)
			return nil
		},
	}

	duplicate := &cobra.Command{
		Use:   "duplicate LIST",
		Short: "Copy a list with all items unchecked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			listID, err := parseID(args[0], "list")
			if err != nil {
				return err
			}
			l, err := a.lists.DuplicateList(cmd.Context(), listID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created list #%d %s\n", l.ID, l.Name)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete LIST",
		Short: "Delete a list and its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			listID, err := parseID(args[0], "list")
			if err != nil {
				return err
			}
			if err := a.lists.DeleteList(cmd.Context(), listID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted list #%d\n", listID)
			return nil
		},
	}

	estimate := &cobra.Command{
		Use:   "estimate LIST",
		Short: "Fill missing item prices from the catalog's lowest prices",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := loadList(cmd, a, args[0])
			if err != nil {
				return err
			}
			l, res, err := a.lists.AutoEstimate(cmd.Context(), l)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n", res.Message)
			printList(cmd.OutOrStdout(), l)
			return nil
		},
	}

	var asJSON bool
	comparePrices := &cobra.Command{
		Use:   "compare LIST",
		Short: "Rank stores by the cost of the list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			listID, err := parseID(args[0], "list")
			if err != nil {
				return err
			}
			c, view, err := a.lists.Compare(cmd.Context(), listID)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			}
			printComparison(cmd.OutOrStdout(), c, view)
			return nil
		},
	}
	comparePrices.Flags().BoolVar(&asJSON, "json", false, "print the ranked view as JSON")

	return []*cobra.Command{lists, show, create, edit, complete, duplicate, del, estimate, comparePrices}
}

func loadList(cmd *cobra.Command, a *app, arg string) (model.ShoppingList, error) {
	listID, err := parseID(arg, "list")
	if err != nil {
		return model.ShoppingList{}, err
	}
	return a.lists.Load(cmd.Context(), listID)
}
