package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var paddleDirections = map[string]int{
	"up":   1,
	"stop": 0,
	"down": -1,
}

func newMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Commands for the match you are playing",
	}

	cmd.AddCommand(newMatchGetCmd())
	cmd.AddCommand(newMatchPaddleCmd())
	cmd.AddCommand(newMatchReadyCmd())
	cmd.AddCommand(newMatchRuleCmd())
	cmd.AddCommand(newMatchAbandonCmd())

	return cmd
}

func newMatchGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show the current match",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Game
			if err := client.Get("/api/v1/match", &result); err != nil {
				return err
			}

			NewOutput(cmd.OutOrStdout(), cfg.Output).Print(result)
			return nil
		},
	}
}

func newMatchPaddleCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "paddle <up|stop|down>",
		Short:     "Move your paddle",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"up", "stop", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction, ok := paddleDirections[args[0]]
			if !ok {
				return fmt.Errorf("direction must be up, stop or down, got %q", args[0])
			}

			if err := client.Post("/api/v1/match/paddle", map[string]int{"direction": direction}, nil); err != nil {
				return err
			}

			NewOutput(cmd.OutOrStdout(), cfg.Output).PrintMessage("Paddle: " + args[0])
			return nil
		},
	}
}

func newMatchReadyCmd() *cobra.Command {
	var notReady bool

	cmd := &cobra.Command{
		Use:   "ready",
		Short: "Mark yourself ready to start early",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Post("/api/v1/match/ready", map[string]bool{"is_ready": !notReady}, nil); err != nil {
				return err
			}

			msg := "Ready"
			if notReady {
				msg = "Not ready"
			}
			NewOutput(cmd.OutOrStdout(), cfg.Output).PrintMessage(msg)
			return nil
		},
	}

	cmd.Flags().BoolVar(&notReady, "not", false, "Withdraw readiness")

	return cmd
}

func newMatchRuleCmd() *cobra.Command {
	var rules ruleFlags

	cmd := &cobra.Command{
		Use:   "rule",
		Short: "Change the rules during warm-up",
		RunE: func(cmd *cobra.Command, args []string) error {
			body := rules.body(cmd)
			delete(body, "is_rank_game")
			if len(body) == 0 {
				return fmt.Errorf("at least one of --paddle-size, --ball-speed, --match-score is required")
			}

			var result Rule
			if err := client.Patch("/api/v1/match/rule", body, &result); err != nil {
				return err
			}

			NewOutput(cmd.OutOrStdout(), cfg.Output).Print(result)
			return nil
		},
	}

	rules.register(cmd)
	_ = cmd.Flags().MarkHidden("ranked")

	return cmd
}

func newMatchAbandonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "abandon",
		Short: "Forfeit the current match",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Post("/api/v1/match/abandon", nil, nil); err != nil {
				return err
			}

			NewOutput(cmd.OutOrStdout(), cfg.Output).PrintMessage("Match abandoned")
			return nil
		},
	}
}
