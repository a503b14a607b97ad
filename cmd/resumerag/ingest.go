package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"resumerag/internal/domain"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest file [file...]",
	Short: "Index resume files without starting the server",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		for _, arg := range args {
			matches, _ := filepath.Glob(arg)
			if matches == nil {
				matches = []string{arg}
			}
			for _, m := range matches {
				data, err := os.ReadFile(m)
				if err != nil {
					return err
				}
				path, err := a.uploads.Save(filepath.Base(m), data)
				if err != nil {
					return err
				}
				res, err := a.svc.Ingest(cmd.Context(), domain.IngestRequest{
					Path:  path,
					Pages: []string{string(data)},
				})
				if err != nil {
					return err
				}
				fmt.Printf("indexed %s (%d chunks)\n", filepath.Base(m), res.Chunks)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
