package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/patient-directory/internal/config"
	"github.com/jwalitptl/patient-directory/internal/model"
	"github.com/jwalitptl/patient-directory/internal/remote"
	patientService "github.com/jwalitptl/patient-directory/internal/service/patient"
	"github.com/jwalitptl/patient-directory/pkg/dateutil"
	apperrors "github.com/jwalitptl/patient-directory/pkg/errors"
)

func fetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch patients from the remote API and print them",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, _ := cmd.Flags().GetString("filter")

			cfg, err := config.Load(configPaths(cmd)...)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			client := remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.Timeout)
			patients, err := client.FetchPatients(cmd.Context())
			if err != nil {
				return apperrors.LoadFailure(err)
			}

			visible := patientService.Derive(patients, filter, model.SortByDate)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCREATED\tWEBSITE")
			for _, p := range visible {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Name, dateutil.FormatDate(p.CreatedAt), p.Website)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "%d of %d patients\n", len(visible), len(patients))
			return nil
		},
	}
	cmd.Flags().String("filter", "", "Only show patients whose name or description contains this text")
	return cmd
}
