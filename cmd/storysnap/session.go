package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"storysnap/pkg/ui"
	"storysnap/pkg/vault"
)

// sessionCmd represents the session command
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect or clear saved Instagram cookies",
	Long: `After every successful run the Instagram cookies of the browser profile are
saved to the system keychain (or an encrypted file) and seeded into the next run.`,
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List saved cookie sets with masked values",
	Args:  cobra.NoArgs,
	Run:   runSessionShow,
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear [account]",
	Short: "Delete saved cookies",
	Long:  `Delete the saved cookies of one account, or of every account with --all.`,
	Args:  cobra.MaximumNArgs(1),
	Run:   runSessionClear,
}

var clearAll bool

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionClearCmd)

	sessionClearCmd.Flags().BoolVar(&clearAll, "all", false, "delete every saved account")
}

func openVault() *vault.Manager {
	v, err := vault.NewManager("")
	if err != nil {
		ui.PrintError("Failed to open cookie vault", err)
		os.Exit(1)
	}
	return v
}

func runSessionShow(cmd *cobra.Command, args []string) {
	records, err := openVault().List()
	if err != nil {
		ui.PrintError("Failed to list saved cookies", err)
		os.Exit(1)
	}
	if len(records) == 0 {
		ui.PrintWarning("No saved cookies")
		return
	}

	now := time.Now()
	for _, r := range records {
		status := "valid"
		if r.Expired(now) {
			status = "expired"
		}
		ui.PrintInfo(r.Account, fmt.Sprintf("%d cookies, saved %s (%s)", len(r.Cookies), r.SavedAt.Format(time.RFC822), status))
		for _, c := range vault.Sanitize(r).Cookies {
			fmt.Printf("    %-12s %s\n", c.Name, c.Value)
		}
	}
}

func runSessionClear(cmd *cobra.Command, args []string) {
	v := openVault()

	var accounts []string
	switch {
	case clearAll:
		records, err := v.List()
		if err != nil {
			ui.PrintError("Failed to list saved cookies", err)
			os.Exit(1)
		}
		for _, r := range records {
			accounts = append(accounts, r.Account)
		}
	case len(args) == 1:
		accounts = []string{args[0]}
	default:
		accounts = []string{"default"}
	}

	for _, name := range accounts {
		if err := v.Delete(name); err != nil {
			ui.PrintError("Failed to delete cookies of "+name, err)
			os.Exit(1)
		}
		ui.PrintSuccess("Deleted cookies of " + name)
	}
}
