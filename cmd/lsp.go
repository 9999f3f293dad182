package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/atomicobject/moxide/pkg/config"
	"github.com/atomicobject/moxide/pkg/lspserver"
	"github.com/spf13/cobra"
)

func runLSP(cmd *cobra.Command, args []string) error {
	if err := requireVaultPath(); err != nil {
		return err
	}
	cfg, err := config.Load(vaultPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if debug {
		fmt.Fprintf(os.Stderr, "moxide: serving LSP for vault %s\n", vaultPath)
	}
	ctx, cancel := signalContext()
	defer cancel()
	return lspserver.New(vaultPath, cfg).Run(ctx)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
