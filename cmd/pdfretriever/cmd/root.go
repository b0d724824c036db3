package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/pdfretriever/pdfretriever/internal/app"
	"github.com/pdfretriever/pdfretriever/internal/config"
	"github.com/pdfretriever/pdfretriever/internal/logging"
	"github.com/pdfretriever/pdfretriever/internal/tui"
)

var (
	cfgFile string
	debug   bool
)

var (
	pdfApp    *app.App
	logCloser io.Closer
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Faint(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

var rootCmd = &cobra.Command{
	Use:   "pdfretriever",
	Short: "Chat with your PDF documents from the terminal",
	Long: `PDF Retriever uploads PDF documents to an analysis server and lets you
ask questions about them.

Usage:
  pdfretriever                       # Start the interactive interface
  pdfretriever login alice           # Sign in
  pdfretriever upload report.pdf     # Analyse a document
  pdfretriever ask <chat-id> "..."   # Ask about an analysed document`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile, debug)
		if err != nil {
			return err
		}

		logger, closer, err := logging.Setup(cfg.Log.Level, cfg.Log.File, cfg.Debug)
		if err != nil {
			return fmt.Errorf("failed to setup logging: %w", err)
		}
		logCloser = closer

		pdfApp, err = app.NewApp(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return tui.Run(cmd.Context(), pdfApp)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default $HOME/.pdfretriever.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging to stderr")
}

// cleanup releases what PersistentPreRunE opened
func cleanup() {
	if pdfApp != nil {
		if err := pdfApp.Close(); err != nil {
			pdfApp.Logger.Warn("close failed", "err", err)
		}
		pdfApp = nil
	}
	if logCloser != nil {
		logCloser.Close()
		logCloser = nil
	}
}

// Execute runs the command line. Interrupts cancel the running operation.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	cleanup()

	if err != nil {
		fmt.Fprintln(os.Stderr, lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render("Error: ")+err.Error())
		os.Exit(1)
	}
}

// requireLogin restores the session or explains how to start one
func requireLogin(ctx context.Context) error {
	if !pdfApp.Authenticated() {
		return errors.New("not logged in, run `pdfretriever login` first")
	}
	return pdfApp.Bootstrap(ctx)
}

// requireKey fails when no model provider key has been stored
func requireKey() error {
	if pdfApp.Session.APIKey() == "" {
		return errors.New("no API key set, run `pdfretriever key set` first")
	}
	return nil
}
