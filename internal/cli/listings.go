package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bryan-buckman/hearth/internal/model"
)

func newListingsCmd(load loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listings",
		Short: "Inspect and moderate listings",
	}
	cmd.AddCommand(newListingsListCmd(load), newListingsVerifyCmd(load))
	return cmd
}

func newListingsListCmd(load loader) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all listings, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			listings, err := store.ListListings(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if listings == nil {
					listings = []model.Listing{}
				}
				return enc.Encode(listings)
			}
			return printListings(cmd.OutOrStdout(), listings)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func printListings(w io.Writer, listings []model.Listing) error {
	if len(listings) == 0 {
		yellow.Fprintln(w, "No listings.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tPRICE\tCARD\tSTATUS\tCREATED")
	for _, l := range listings {
		price := "-"
		if amount, ok := l.FirstPrice(); ok {
			price = fmt.Sprintf("%.0f", amount)
		}
		status := "pending"
		if l.Verified {
			status = "verified"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			l.ID, truncate(l.Title, 40), price, l.CardType, status, l.CreatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}

func newListingsVerifyCmd(load loader) *cobra.Command {
	var revoke bool
	cmd := &cobra.Command{
		Use:   "verify <id>",
		Short: "Mark a listing as verified",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.SetListingVerified(cmd.Context(), args[0], !revoke); err != nil {
				return fmt.Errorf("listing %s: %w", args[0], err)
			}
			if revoke {
				yellow.Fprintf(cmd.OutOrStdout(), "✓ verification revoked for %s\n", args[0])
			} else {
				green.Fprintf(cmd.OutOrStdout(), "✓ listing %s verified\n", args[0])
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&revoke, "revoke", false, "remove the verified badge instead")
	return cmd
}
