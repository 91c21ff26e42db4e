package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/voicecal/internal/profile"
	"github.com/hrygo/voicecal/server"
	"github.com/hrygo/voicecal/server/auth"
	"github.com/hrygo/voicecal/store"
	"github.com/hrygo/voicecal/store/db"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:     "voicecal",
		Short:   "Korean voice schedule extraction and briefing server",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return v.BindPFlags(cmd.Flags())
		},
	}

	bindConfig(rootCmd, v)

	rootCmd.AddCommand(newServeCommand(v), newTokenCommand(v), newVersionCommand())
	return rootCmd
}

// bindConfig registers the persistent flags of cmd and binds them, with VOICECAL_* variables, into v.
func bindConfig(cmd *cobra.Command, v *viper.Viper) {
	flags := cmd.PersistentFlags()
	flags.String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	flags.String("addr", "", "address of server")
	flags.Int("port", 8081, "port of server")
	flags.String("data", "", "data directory")
	flags.String("driver", "sqlite", "database driver")
	flags.String("dsn", "", "database source name")
	flags.String("timezone", profile.DefaultTimezone, "IANA timezone used to resolve relative dates")
	flags.String("secret", "", "HMAC secret for bearer tokens")
	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}

	v.SetEnvPrefix("voicecal")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// loadProfile builds the profile from flags and VOICECAL_* variables.
func loadProfile(v *viper.Viper) (*profile.Profile, error) {
	prof := &profile.Profile{
		Mode:     v.GetString("mode"),
		Addr:     v.GetString("addr"),
		Port:     v.GetInt("port"),
		Data:     v.GetString("data"),
		Driver:   v.GetString("driver"),
		DSN:      v.GetString("dsn"),
		Timezone: v.GetString("timezone"),
		Secret:   v.GetString("secret"),
		Version:  Version,
	}
	prof.FromEnv()
	if err := prof.Validate(); err != nil {
		return nil, err
	}
	return prof, nil
}

func newServeCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			prof, err := loadProfile(v)
			if err != nil {
				return err
			}
			setupLogger(prof)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			driver, err := db.NewDBDriver(prof)
			if err != nil {
				return err
			}
			st := store.New(driver, prof)

			s, err := server.NewServer(ctx, prof, st)
			if err != nil {
				_ = st.Close()
				return err
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return s.Start(gctx)
			})
			g.Go(func() error {
				<-gctx.Done()
				s.Shutdown(context.Background())
				return nil
			})
			return g.Wait()
		},
	}
}

func newTokenCommand(v *viper.Viper) *cobra.Command {
	var (
		userID int32
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a user id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			prof, err := loadProfile(v)
			if err != nil {
				return err
			}
			token, expiresAt, err := auth.NewTokenManager(prof.Secret).GenerateAccessToken(userID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().Int32Var(&userID, "user", 1, "user id the token is issued for")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTokenTTL, "token lifetime")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
}

func setupLogger(prof *profile.Profile) {
	level := slog.LevelInfo
	if prof.IsDev() {
		level = slog.LevelDebug
	}
	var handler slog.Handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	if prof.Mode == "dev" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(server.NewLogHandler(handler)))
}
