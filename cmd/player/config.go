package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	server   string
	nickname string
	qr       bool
	rounds   int
	verbose  bool
}

func (c *Config) validate(needNickname bool) error {
	if c.server == "" {
		return errors.New("--server must not be empty")
	}
	if needNickname && strings.TrimSpace(c.nickname) == "" {
		return errors.New("--nickname is required")
	}
	return nil
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("VGMGUESS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "vgmguess-player",
		Short:         "Play a video game music guessing room from the terminal.",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	pfs := root.PersistentFlags()
	pfs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	pfs.StringVarP(&cfg.server, "server", "s", "http://localhost:8080", "room server base URL (env: VGMGUESS_SERVER)")
	pfs.StringVarP(&cfg.nickname, "nickname", "n", "", "your nickname in the room (env: VGMGUESS_NICKNAME)")
	pfs.BoolVarP(&cfg.verbose, "verbose", "v", false, "log polling details (env: VGMGUESS_VERBOSE)")

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a room and print its code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(true); err != nil {
				return err
			}
			return runCreate(cmd.Context(), cmd.OutOrStdout(), cfg)
		},
	}
	create.Flags().BoolVar(&cfg.qr, "qr", false, "also print the join link as a QR code (env: VGMGUESS_QR)")

	watch := &cobra.Command{
		Use:   "watch ROOM",
		Short: "Follow a room without joining it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(false); err != nil {
				return err
			}
			return runWatch(cmd.Context(), cmd.OutOrStdout(), cfg, args[0])
		},
	}

	play := &cobra.Command{
		Use:   "play ROOM",
		Short: "Join a room and guess from standard input",
		Long: "Join ROOM and play. Each line typed is a guess, except for the commands\n" +
			"/skip, /next, /start [rounds], /reset and /leave.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(true); err != nil {
				return err
			}
			return runPlay(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), cfg, args[0])
		},
	}
	play.Flags().IntVar(&cfg.rounds, "rounds", 0, "rounds to play when you start the game (env: VGMGUESS_ROUNDS)")

	root.AddCommand(create, watch, play)

	for _, cmd := range []*cobra.Command{root, create, play} {
		fs := cmd.Flags()
		if cmd == root {
			fs = cmd.PersistentFlags()
		}
		fs.VisitAll(func(f *pflag.Flag) {
			_ = v.BindPFlag(f.Name, f)
			_ = v.BindEnv(f.Name)
			if !f.Changed && v.IsSet(f.Name) {
				_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
			}
		})
	}

	root.CompletionOptions.HiddenDefaultCmd = true
	root.SetHelpCommand(&cobra.Command{Hidden: true})

	return root
}
