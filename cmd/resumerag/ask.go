package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"resumerag/internal/tui"
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Open an interactive console for questions against the index",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		m := tui.New(a.svc)
		_, err = tea.NewProgram(m).Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}
