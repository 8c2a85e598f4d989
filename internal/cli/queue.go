package cli

import (
	"github.com/spf13/cobra"
)

// ruleFlags collects the rule overrides shared by queue join and leave
type ruleFlags struct {
	paddleSize float64
	ballSpeed  float64
	matchScore int
	ranked     bool
}

func (f *ruleFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.paddleSize, "paddle-size", 0, "Paddle size multiplier (default: server default)")
	cmd.Flags().Float64Var(&f.ballSpeed, "ball-speed", 0, "Ball speed multiplier (default: server default)")
	cmd.Flags().IntVar(&f.matchScore, "match-score", 0, "Points needed to win (default: server default)")
	cmd.Flags().BoolVar(&f.ranked, "ranked", false, "Queue for a ranked match")
}

// body returns the rule request, leaving unset flags to the server
func (f *ruleFlags) body(cmd *cobra.Command) map[string]any {
	body := map[string]any{"is_rank_game": f.ranked}
	if cmd.Flags().Changed("paddle-size") {
		body["paddle_size"] = f.paddleSize
	}
	if cmd.Flags().Changed("ball-speed") {
		body["ball_speed"] = f.ballSpeed
	}
	if cmd.Flags().Changed("match-score") {
		body["match_score"] = f.matchScore
	}
	return body
}

func newQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Matchmaking queue commands",
		Long: `Matchmaking queue commands.

Players are paired with the oldest waiting player who asked for exactly
the same rules.`,
	}

	cmd.AddCommand(newQueueJoinCmd())
	cmd.AddCommand(newQueueLeaveCmd())

	return cmd
}

func newQueueJoinCmd() *cobra.Command {
	var rules ruleFlags

	cmd := &cobra.Command{
		Use:   "join",
		Short: "Join the queue for a rule set",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result QueueResult
			if err := client.Post("/api/v1/queue", rules.body(cmd), &result); err != nil {
				return err
			}

			NewOutput(cmd.OutOrStdout(), cfg.Output).Print(result)
			return nil
		},
	}

	rules.register(cmd)

	return cmd
}

func newQueueLeaveCmd() *cobra.Command {
	var rules ruleFlags

	cmd := &cobra.Command{
		Use:   "leave",
		Short: "Leave the queue for a rule set",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result DequeueResult
			if err := client.Delete("/api/v1/queue", rules.body(cmd), &result); err != nil {
				return err
			}

			out := NewOutput(cmd.OutOrStdout(), cfg.Output)
			if result.Removed {
				out.PrintMessage("Left the queue")
			} else {
				out.PrintMessage("Not queued for those rules")
			}
			return nil
		},
	}

	rules.register(cmd)

	return cmd
}
