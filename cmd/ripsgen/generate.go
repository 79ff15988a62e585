package main

import (
	"github.com/spf13/cobra"

	"github.com/YasminGarcia1210/ripsgen/constants"
	"github.com/YasminGarcia1210/ripsgen/internal/pipeline"
)

func generateCmd(state *appState) *cobra.Command {
	var (
		invoicePath string
		historyPath string
		annexPath   string
		outDir      string
		flatFiles   bool
		xlsx        bool
		nlpDetails  bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Procesa un par factura/historia y genera los registros RIPS",
		RunE: func(cmd *cobra.Command, _ []string) error {
			proc := pipeline.NewProcessor(state.cfg, state.logger)
			res, err := proc.Run(cmd.Context(), pipeline.PairInput{
				InvoicePath: invoicePath,
				HistoryPath: historyPath,
				AnnexPath:   annexPath,
				OutputDir:   outDir,
				FlatFiles:   flatFiles,
				XLSX:        xlsx,
				NLPDetails:  nlpDetails,
			})

			switch res.Status {
			case constants.PairStatusCompleted:
				printf(cmd, "[OK] Factura %s procesada: %s\n", res.InvoiceID, res.OutputPath)
				printf(cmd, "Validación -> %d errores, %d advertencias\n", res.Errors, res.Warnings)
				return nil
			case constants.PairStatusPending:
				printf(cmd, "[PENDIENTE] %s\n", res.Reason)
				return nil
			default:
				printf(cmd, "[ERROR] %s\n", res.Reason)
				return err
			}
		},
	}

	cmd.Flags().StringVar(&invoicePath, "invoice", "", "PDF de la factura electrónica")
	cmd.Flags().StringVar(&historyPath, "history", "", "PDF de la historia clínica")
	cmd.Flags().StringVar(&annexPath, "annex", "", "JSON del anexo RIPS (opcional)")
	cmd.Flags().StringVar(&outDir, "out", "", "directorio de salida")
	cmd.Flags().BoolVar(&flatFiles, "flat-files", false, "genera también los archivos planos AF/US/AP/AC/AM/AT")
	cmd.Flags().BoolVar(&xlsx, "xlsx", false, "genera también el libro XLSX de revisión")
	cmd.Flags().BoolVar(&nlpDetails, "nlp-details", false, "incluye entidades clínicas del extractor de apoyo en el JSON")
	_ = cmd.MarkFlagRequired("invoice")
	_ = cmd.MarkFlagRequired("history")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
