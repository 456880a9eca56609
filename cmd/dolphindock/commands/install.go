package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ecairns22/DolphinDock/internal/archive"
	"github.com/ecairns22/DolphinDock/internal/creds"
	"github.com/ecairns22/DolphinDock/internal/orchestrator"
)

func installCmd(g *globalFlags) *cobra.Command {
	var (
		archivePath       string
		dir               string
		port              string
		password          string
		generatePassword  bool
		configurePath     bool
		allowPortConflict bool
		revealPassword    bool
		saveCredential    string
	)

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install MySQL from a zip archive and register it as a service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(g)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()
			w := cmd.OutOrStdout()

			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			archivePath, err = archive.Find(archivePath, wd, a.cfg.Install.ArchiveCandidates)
			if err != nil {
				return err
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if port == "" {
				next, err := a.portChecker(store).Next(ctx, a.cfg.Install.DefaultPort, a.cfg.Install.PortRangeEnd)
				if err != nil {
					return err
				}
				port = strconv.Itoa(next)
				fmt.Fprintf(w, "Using port %s\n", port)
			}

			switch {
			case password != "":
			case generatePassword:
				if password, err = creds.Generate(a.cfg.Install.PasswordLength); err != nil {
					return err
				}
			default:
				if password, err = promptPassword(); err != nil {
					return err
				}
			}

			if dir == "" {
				dir = filepath.Join(wd, "mysql-"+port)
			}
			req, err := orchestrator.NewInstallRequest(orchestrator.RequestParams{
				ArchivePath:       archivePath,
				InstallDir:        dir,
				RootPassword:      password,
				Port:              port,
				ConfigureEnv:      configurePath,
				AllowPortConflict: allowPortConflict,
			})
			if err != nil {
				return err
			}

			orc := a.orchestrator(store)
			result, err := orc.Install(ctx, req, orchestrator.Options{RevealCredential: revealPassword}, newConsole(w))
			if err != nil {
				return fmt.Errorf("install failed (completed steps were not undone): %w", err)
			}

			if saveCredential != "" {
				err := creds.WriteConnectionFile(saveCredential, creds.Connection{
					Host:     a.cfg.Engine.AdminHost,
					Port:     result.Port,
					User:     a.cfg.Engine.AdminUser,
					Password: password,
					Service:  result.ServiceName,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "Connection details written to %s\n", saveCredential)
			}
			if generatePassword && !revealPassword && saveCredential == "" {
				fmt.Fprintln(w, "The generated password was not shown; rerun with --reveal-password or --save-credential to keep it.")
			}
			if result.Status == orchestrator.Partial {
				fmt.Fprintln(w, "Install finished with warnings; review the log above.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&archivePath, "archive", "", "MySQL zip archive (default: mysql.zip or resources\\installer\\mysql.zip)")
	cmd.Flags().StringVar(&dir, "dir", "", "Install directory (default: .\\mysql-<port>)")
	cmd.Flags().StringVarP(&port, "port", "p", "", "TCP port (default: first free port from install.default_port)")
	cmd.Flags().StringVar(&password, "password", "", "Root password (prompted when omitted)")
	cmd.Flags().BoolVar(&generatePassword, "generate-password", false, "Generate a random root password")
	cmd.Flags().BoolVar(&configurePath, "configure-path", false, "Add the bin directory to the machine PATH")
	cmd.Flags().BoolVar(&allowPortConflict, "allow-port-conflict", false, "Continue when the port is already claimed")
	cmd.Flags().BoolVar(&revealPassword, "reveal-password", false, "Show the root password in the summary")
	cmd.Flags().StringVar(&saveCredential, "save-credential", "", "Write connection details including the password to this TOML file")
	cmd.MarkFlagsMutuallyExclusive("password", "generate-password")

	return cmd
}
