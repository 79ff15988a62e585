package main

import (
	"github.com/spf13/cobra"

	"github.com/YasminGarcia1210/ripsgen/internal/jobstore"
)

func runsCmd(state *appState) *cobra.Command {
	var (
		limit int
		runID string
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Lista los lotes persistidos y sus pares",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := jobstore.Open(ctx, state.cfg.Store, state.logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if runID != "" {
				pairs, err := store.ListPairs(ctx, runID)
				if err != nil {
					return err
				}
				printf(cmd, "%-16s %-10s %-24s %7s %7s\n", "PAR", "ESTADO", "MOTIVO", "ERR", "ADV")
				for _, p := range pairs {
					printf(cmd, "%-16s %-10s %-24s %7d %7d\n",
						p.PairID, string(p.Status), p.Reason, p.Errors, p.Warnings)
				}
				return nil
			}

			runs, err := store.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
			printf(cmd, "%-36s %-20s %6s %6s %6s %6s\n", "LOTE", "INICIO", "TOTAL", "OK", "PEND", "FALL")
			for _, r := range runs {
				printf(cmd, "%-36s %-20s %6d %6d %6d %6d\n",
					r.ID, r.StartedAt.Format("2006-01-02 15:04:05"),
					r.Total, r.Completed, r.Pending, r.Failed)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "máximo de lotes a listar")
	cmd.Flags().StringVar(&runID, "run", "", "muestra los pares de un lote específico")
	return cmd
}
