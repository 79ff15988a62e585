package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/YasminGarcia1210/ripsgen/internal/batch"
	"github.com/YasminGarcia1210/ripsgen/internal/jobstore"
	"github.com/YasminGarcia1210/ripsgen/internal/pipeline"
)

func batchCmd(state *appState) *cobra.Command {
	var (
		inputDir     string
		historiesDir string
		outDir       string
		workers      int
		flatFiles    bool
		xlsx         bool
		reportXLSX   bool
		noStore      bool
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Procesa en lote todos los paquetes FERO* de un directorio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			var store jobstore.Store
			if !noStore {
				s, err := jobstore.Open(ctx, state.cfg.Store, state.logger)
				if err != nil {
					return err
				}
				defer func() { _ = s.Close() }()
				store = s
			}

			if workers <= 0 {
				workers = state.cfg.Batch.Workers
			}
			proc := pipeline.NewProcessor(state.cfg, state.logger)
			opts := []batch.Option{
				batch.WithWorkers(workers),
				batch.WithQueueSize(state.cfg.Batch.QueueSize),
			}
			if store != nil {
				opts = append(opts, batch.WithStore(store))
			}
			runner := batch.NewRunner(proc, state.logger, opts...)
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				runner.Shutdown(sctx)
			}()

			summary, err := runner.Run(ctx, batch.RunOptions{
				InputDir:     inputDir,
				HistoriesDir: historiesDir,
				OutputDir:    outDir,
				FlatFiles:    flatFiles,
				XLSX:         xlsx,
				ReportXLSX:   reportXLSX,
			})
			if err != nil {
				return err
			}

			printf(cmd, "Lote %s: %d facturas -> %d completadas, %d pendientes, %d fallidas\n",
				summary.RunID, summary.Totals.Total, summary.Totals.Completed,
				summary.Totals.Pending, summary.Totals.Failed)
			return nil
		},
	}

	cmd.Flags().StringVar(&inputDir, "input", "", "directorio con los paquetes FERO*")
	cmd.Flags().StringVar(&historiesDir, "histories", "", "directorio raíz de historias clínicas")
	cmd.Flags().StringVar(&outDir, "out", "", "directorio base de salida")
	cmd.Flags().IntVar(&workers, "workers", 0, "número de trabajadores (por defecto, batch.workers)")
	cmd.Flags().BoolVar(&flatFiles, "flat-files", false, "genera archivos planos por factura")
	cmd.Flags().BoolVar(&xlsx, "xlsx", false, "genera el XLSX de revisión por factura")
	cmd.Flags().BoolVar(&reportXLSX, "report-xlsx", false, "genera el XLSX resumen del lote")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "no persiste el lote en la base de datos")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
