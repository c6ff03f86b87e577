package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage expense categories",
		Long:  `List, add, update, and delete the categories used to classify transactions.`,
	}

	cmd.AddCommand(listCategoriesCmd())
	cmd.AddCommand(addCategoryCmd())
	cmd.AddCommand(updateCategoryCmd())
	cmd.AddCommand(parentCategoryCmd())
	cmd.AddCommand(deleteCategoryCmd())

	return cmd
}

func listCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			categories, err := store.ListCategories(ctx)
			if err != nil {
				return fmt.Errorf("failed to list categories: %w", err)
			}

			if len(categories) == 0 {
				fmt.Println("No categories found. Use 'basis categories add' to create one.")
				return nil
			}

			names := make(map[int64]string, len(categories))
			for _, c := range categories {
				names[c.ID] = c.Name
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintln(w, "ID\tName\tParent\tDescription")
			for _, c := range categories {
				parent := ""
				if c.ParentID != nil {
					parent = names[*c.ParentID]
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", c.ID, c.Name, parent, c.Description)
			}
			return nil
		},
	}
}

func addCategoryCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			category, err := store.CreateCategory(ctx, args[0], description)
			if err != nil {
				return fmt.Errorf("failed to create category: %w", err)
			}

			fmt.Printf("Created category %q (id %d)\n", category.Name, category.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "category description")
	return cmd
}

func updateCategoryCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "update <id> <name>",
		Short: "Rename a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid category id %q: %w", args[0], err)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.UpdateCategory(ctx, id, args[1], description); err != nil {
				return fmt.Errorf("failed to update category %d: %w", id, err)
			}

			fmt.Printf("Updated category %d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "category description")
	return cmd
}

func parentCategoryCmd() *cobra.Command {
	var clear bool

	cmd := &cobra.Command{
		Use:   "parent <id> [parent-id]",
		Short: "Set or clear a category's parent",
		Long: `Assign a parent category to build a hierarchy, or clear it with --clear.
Assignments that would create a cycle are rejected.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid category id %q: %w", args[0], err)
			}

			var parentID *int64
			switch {
			case clear:
			case len(args) == 2:
				parsed, err := strconv.ParseInt(args[1], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid parent id %q: %w", args[1], err)
				}
				parentID = &parsed
			default:
				return fmt.Errorf("either a parent id or --clear is required")
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.SetCategoryParent(ctx, id, parentID); err != nil {
				return fmt.Errorf("failed to set parent for category %d: %w", id, err)
			}

			if parentID == nil {
				fmt.Printf("Cleared parent of category %d\n", id)
			} else {
				fmt.Printf("Set parent of category %d to %d\n", id, *parentID)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&clear, "clear", false, "clear the parent assignment")
	return cmd
}

func deleteCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid category id %q: %w", args[0], err)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteCategory(ctx, id); err != nil {
				return fmt.Errorf("failed to delete category %d: %w", id, err)
			}

			fmt.Printf("Deleted category %d\n", id)
			return nil
		},
	}
}
