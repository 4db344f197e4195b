package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pkt.systems/procstream"
	"pkt.systems/procstream/internal/appconfig"
	"pkt.systems/procstream/internal/logx"
	"pkt.systems/procstream/internal/render"
	"pkt.systems/procstream/schema"
)

func newRunCmd(cfgPath *string) *cobra.Command {
	var (
		format    string
		expected  int
		usePTY    bool
		dir       string
		extraEnv  []string
		encoding  string
		bufSize   int
		killGrace int
	)
	cmd := &cobra.Command{
		Use:   "run [flags] -- <command> [args...]",
		Short: "Run a command and render its output events",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := logx.Ctx(ctx)

			cfg, err := appconfig.Load(*cfgPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("format") {
				cfg.Output.Format = format
			}
			if flags.Changed("expect") {
				cfg.Process.ExpectedExitCode = expected
			}
			if flags.Changed("pty") {
				cfg.Process.PTY = usePTY
			}
			if flags.Changed("dir") {
				cfg.Process.Dir = dir
			}
			if flags.Changed("encoding") {
				cfg.Reader.Encoding = encoding
			}
			if flags.Changed("buffer-size") {
				cfg.Reader.BufferSize = bufSize
			}
			if flags.Changed("kill-grace") {
				cfg.Process.KillGraceSeconds = killGrace
			}
			cfg.Process.Env = append(cfg.Process.Env, extraEnv...)

			runner, err := procstream.NewRunnerFromConfig(cfg)
			if err != nil {
				return err
			}
			renderer, err := render.New(cmd.OutOrStdout(), cfg.Output.Format)
			if err != nil {
				return err
			}
			command := procstream.CommandFromConfig(cfg, args[0], args[1:]...)
			command.Stdin = cmd.InOrStdin()

			result, err := runner.RunExpect(ctx, command, renderer.OnOutput, cfg.Process.ExpectedExitCode)
			if rerr := renderer.Err(); rerr != nil {
				logger.Warn("render output failed", "err", rerr)
			}
			if err != nil {
				var perr *schema.ProcessError
				if errors.As(err, &perr) && perr.Kind == schema.ProcessErrorExitCode {
					code := result.ExitCode
					if code <= 0 {
						code = 1
					}
					logger.Error("process exit code mismatch", "process", result.Name, "exit_code", result.ExitCode, "expected", cfg.Process.ExpectedExitCode)
					return &exitCodeError{code: code, err: err}
				}
				return err
			}
			logger.Debug("process succeeded", "process", result.Name, "exit_code", result.ExitCode, "elapsed", result.Elapsed)
			return nil
		},
	}
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().StringVarP(&format, "format", "f", appconfig.FormatConsole, "output format ("+strings.Join([]string{appconfig.FormatConsole, appconfig.FormatPlain, appconfig.FormatJSONL}, "|")+")")
	cmd.Flags().IntVar(&expected, "expect", 0, "expected exit code")
	cmd.Flags().BoolVar(&usePTY, "pty", false, "attach the command to a pseudo terminal")
	cmd.Flags().StringVar(&dir, "dir", "", "working directory")
	cmd.Flags().StringArrayVar(&extraEnv, "env", nil, "extra environment (repeatable KEY=VAL)")
	cmd.Flags().StringVar(&encoding, "encoding", "", "output encoding of the command")
	cmd.Flags().IntVar(&bufSize, "buffer-size", 0, "read size per stream")
	cmd.Flags().IntVar(&killGrace, "kill-grace", 0, fmt.Sprintf("seconds between terminate and kill (default %d)", appconfig.DefaultConfig().Process.KillGraceSeconds))
	return cmd
}
