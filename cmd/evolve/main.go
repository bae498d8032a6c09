package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	evolvecmd "github.com/louisbranch/evolving.space/internal/cmd/evolve"
	apperrors "github.com/louisbranch/evolving.space/internal/platform/errors"
	"github.com/louisbranch/evolving.space/internal/platform/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := evolvecmd.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	switch {
	case err == nil:
	case errors.Is(err, evolvecmd.ErrVerificationFailed):
		stop()
		os.Exit(2)
	case errors.Is(err, evolvecmd.ErrReported):
		stop()
		os.Exit(1)
	case apperrors.GetCode(err) != apperrors.CodeUnknown:
		config.Exitf("%s (%v)", apperrors.UserMessage(err, os.Getenv("EVOLVE_LOCALE")), err)
	default:
		config.Exitf("evolve: %v", err)
	}
}
