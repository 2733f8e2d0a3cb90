// Command mecanoctl runs operator tasks against the Mecano database.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mecanomotors/mecano/internal/auth"
	"github.com/mecanomotors/mecano/internal/config"
	"github.com/mecanomotors/mecano/internal/db"
	"github.com/mecanomotors/mecano/internal/logging"
	"github.com/mecanomotors/mecano/internal/session"
)

var (
	cfg config.Config

	promoteEmail string
	promoteRole  string
	seedFile     string
	seedPassword string

	rootCmd = &cobra.Command{
		Use:           "mecanoctl",
		Short:         "Operator tasks for the Mecano Motors API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if cfg, err = config.Load(); err != nil {
				return err
			}
			if _, err := logging.New(cfg.Development()); err != nil {
				return err
			}
			return db.Init(cmd.Context(), cfg.DSN())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			db.Close()
			_ = zap.L().Sync()
		},
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(*cobra.Command, []string) error {
			// The schema is ensured when the connection opens.
			fmt.Println("schema is up to date")
			return nil
		},
	}

	promoteCmd = &cobra.Command{
		Use:   "promote",
		Short: "Change the role of an existing user",
		RunE:  runPromote,
	}

	seedCmd = &cobra.Command{
		Use:   "seed",
		Short: "Load users, mechanic profiles and products from a YAML file",
		RunE:  runSeed,
	}
)

func init() {
	promoteCmd.Flags().StringVar(&promoteEmail, "email", "", "email of the user to promote")
	promoteCmd.Flags().StringVar(&promoteRole, "role", session.RoleAdmin, "role to grant (client, mechanic, vendor, admin)")
	_ = promoteCmd.MarkFlagRequired("email")

	seedCmd.Flags().StringVar(&seedFile, "file", "", "seed file (defaults to CATALOG_FILE)")
	seedCmd.Flags().StringVar(&seedPassword, "password", "mecano2024", "password for seeded users without one")

	rootCmd.AddCommand(migrateCmd, promoteCmd, seedCmd)
}

func runPromote(cmd *cobra.Command, _ []string) error {
	role, ok := session.NormalizeRole(promoteRole)
	if !ok {
		return fmt.Errorf("unknown role %q", promoteRole)
	}
	if err := auth.NewPostgres(db.Conn).SetRole(cmd.Context(), promoteEmail, role); err != nil {
		return fmt.Errorf("promote %s: %w", promoteEmail, err)
	}
	fmt.Printf("User %s is now %s.\n", promoteEmail, role)
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "mecanoctl:", err)
		os.Exit(1)
	}
}
