package commands

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"syscall"

	"revisionaid/internal/config"
	"revisionaid/internal/di"
	"revisionaid/internal/models"
	"revisionaid/internal/observability"
	contextutils "revisionaid/internal/utils"

	"golang.org/x/term"
)

// Env is what every admin command needs: configuration and a logger. The
// service container is only opened by commands that touch the store.
type Env struct {
	Config *config.Config
	Logger *observability.Logger
}

// openContainer opens the store and wires the services without seeding.
func (e *Env) openContainer(ctx context.Context) (*di.ServiceContainer, error) {
	cfg := *e.Config
	cfg.Quiz.SeedOnStartup = false
	if cfg.Server.JWTSecret == "" {
		// Admin commands never issue tokens
		cfg.Server.JWTSecret = "adm"
	}
	container := di.NewServiceContainer(&cfg, e.Logger)
	if err := container.Initialize(ctx); err != nil {
		return nil, err
	}
	return container, nil
}

// maskDatabaseURL hides credentials in a database URL for display
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = url.UserPassword("***", "***")
	return u.String()
}

// readPassword prompts twice for a password without echo
func readPassword(out io.Writer, who string) (string, error) {
	fmt.Fprintf(out, "Enter %s password: ", who)
	first, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(out)
	if err != nil {
		return "", contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to read %s password: %v", who, err)
	}

	fmt.Fprintf(out, "Confirm %s password: ", who)
	second, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(out)
	if err != nil {
		return "", contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to read %s password confirmation: %v", who, err)
	}

	if string(first) != string(second) {
		return "", contextutils.ErrorWithContextf("%s passwords do not match", who)
	}
	return string(first), nil
}

// printStats writes a student's stats as a table
func printStats(out io.Writer, stats *models.Stats) {
	fmt.Fprintf(out, "Stats for %s\n", stats.UserEmail)
	fmt.Fprintf(out, "Correct: %d  Wrong: %d  I don't know: %d\n\n",
		stats.Totals.Correct, stats.Totals.Wrong, stats.Totals.Unknown)

	fmt.Fprintf(out, "%-8s %-40s %8s\n", "Topic", "Name", "Accuracy")
	fmt.Fprintln(out, strings.Repeat("-", 58))
	for _, t := range stats.Topics {
		fmt.Fprintf(out, "%-8s %-40s %7.2f%%\n", t.TopicID, t.TopicName, t.Accuracy)
	}
}
