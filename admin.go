package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"medvault-server/internal/auth"
	"medvault-server/internal/storage"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func runUsers(cmd *cobra.Command, _ []string) error {
	cfg, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	users, err := auth.NewService(db, &cfg.JWT).ListUsers(cmd.Context())
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Email", "Name", "Preferences", "Joined"})
	for _, u := range users {
		prefs := make([]string, 0, len(u.Preferences))
		for k, v := range u.Preferences {
			prefs = append(prefs, k+"="+v)
		}
		sort.Strings(prefs)
		table.Append([]string{u.ID, u.Email, u.Name, strings.Join(prefs, ", "), humanize.Time(u.CreatedAt)})
	}
	table.Render()
	return nil
}

func treeCommand() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print a user's drive as a tree",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, db, err := setup()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			u, err := auth.NewService(db, &cfg.JWT).FindByEmail(ctx, email)
			if err != nil {
				return fmt.Errorf("find %s: %w", email, err)
			}

			// Sizes come from the entry rows, so no blob store connection is needed.
			files := newDrive(cfg, db, storage.NewMemory())
			out, err := files.Render(auth.WithIdentity(ctx, auth.Identity{UserID: u.ID}), u.Email)
			if err != nil {
				return err
			}
			fmt.Fprint(os.Stdout, out)

			usage, err := files.Usage(auth.WithIdentity(ctx, auth.Identity{UserID: u.ID}))
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "%s of %s used (%.1f%%)\n", usage.Used, usage.Limit, usage.Percentage)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.MarkFlagRequired("email")
	return cmd
}
