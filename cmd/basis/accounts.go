package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mkellner/basis/internal/ingest"
)

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage accounts",
		Long:  `List, add, and delete the accounts that statement files are ingested into.`,
	}

	cmd.AddCommand(listAccountsCmd())
	cmd.AddCommand(addAccountCmd())
	cmd.AddCommand(deleteAccountCmd())

	return cmd
}

func listAccountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			accounts, err := store.ListAccounts(ctx)
			if err != nil {
				return fmt.Errorf("failed to list accounts: %w", err)
			}

			if len(accounts) == 0 {
				fmt.Println("No accounts found. Use 'basis accounts add' to create one.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintln(w, "ID\tName\tType\tDescription")
			for _, account := range accounts {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", account.ID, account.Name, account.Type, account.Description)
			}
			return nil
		},
	}
}

func addAccountCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "add <name> <type>",
		Short: "Add a new account",
		Long: `Create a new account. The type selects which statement parser is used
when ingesting files for this account. Available types: ` + strings.Join(ingest.Available(), ", ") + `.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name, accountType := args[0], args[1]

			if _, err := ingest.Lookup(accountType); err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			account, err := store.CreateAccount(ctx, name, accountType, description)
			if err != nil {
				return fmt.Errorf("failed to create account: %w", err)
			}

			fmt.Printf("Created account %q (id %d, type %s)\n", account.Name, account.ID, account.Type)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "account description")
	return cmd
}

func deleteAccountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid account id %q: %w", args[0], err)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteAccount(ctx, id); err != nil {
				return fmt.Errorf("failed to delete account %d: %w", id, err)
			}

			fmt.Printf("Deleted account %d\n", id)
			return nil
		},
	}
}
