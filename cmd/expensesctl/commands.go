package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"expenses/internal/seed"
	"expenses/internal/storage"
	"expenses/internal/suggest"
)

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.sqlitePath()
			repo, err := storage.NewSQLiteRepository(path)
			if err != nil {
				return err
			}
			if err := repo.Close(); err != nil {
				return err
			}

			v, dirty, err := storage.MigrationVersion(storage.DSN(path))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema at version %d (dirty: %t)\n", v, dirty)
			return nil
		},
	}
}

func newSeedCmd(opts *options) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load categories, subcategories and examples into an empty database",
		Long: `Load seed data into the database. Without --file the built-in categories
and examples are used. Nothing is written when categories already exist.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := seed.LoadFile(file)
			if err != nil {
				return err
			}
			repo, err := opts.openStore()
			if err != nil {
				return err
			}
			defer repo.Close()

			n, err := seed.Apply(cmd.Context(), repo, data)
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Categories already present, nothing seeded")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d categories\n", n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Seed YAML file (default: built-in data)")
	return cmd
}

func newSuggestCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "suggest <description...>",
		Short:   "Show category suggestions for a transaction description",
		Example: `  expensesctl suggest "REWE Markt Berlin"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc := strings.TrimSpace(strings.Join(args, " "))
			if desc == "" {
				return errors.New("description is required")
			}

			repo, err := opts.openStore()
			if err != nil {
				return err
			}
			defer repo.Close()

			suggestions, err := suggest.NewEngine(repo).Suggest(cmd.Context(), desc)
			if err != nil {
				return err
			}
			if len(suggestions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No suggestions")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CONFIDENCE\tCATEGORY\tSUBCATEGORY\tNOTES")
			for _, s := range suggestions {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Confidence, s.CategoryName, s.SubcategoryName, s.DefaultNotes)
			}
			return tw.Flush()
		},
	}
}

func newCategoriesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List categories with their subcategories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := opts.openStore()
			if err != nil {
				return err
			}
			defer repo.Close()

			cats, err := repo.ListCategories(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCOLOR\tSUBCATEGORIES")
			for _, c := range cats {
				subs := make([]string, 0, len(c.Subcategories))
				for _, s := range c.Subcategories {
					subs = append(subs, s.Name)
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", c.ID, c.Name, c.Color, strings.Join(subs, ", "))
			}
			return tw.Flush()
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "expensesctl %s\n", version)
		},
	}
}
