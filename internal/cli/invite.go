package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newInviteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Challenge other players directly",
	}

	cmd.AddCommand(newInviteSendCmd())
	cmd.AddCommand(newInviteListCmd())
	cmd.AddCommand(newInviteAcceptCmd())

	return cmd
}

func newInviteSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <user_id>",
		Short: "Invite an online player to a casual match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid user id %q", args[0])
			}

			var result Invitation
			if err := client.Post("/api/v1/invitations", map[string]int64{"user_id": userID}, &result); err != nil {
				return err
			}

			NewOutput(cmd.OutOrStdout(), cfg.Output).Print(result)
			return nil
		},
	}
}

func newInviteListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List invitations addressed to you",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result InvitationList
			if err := client.Get("/api/v1/invitations", &result); err != nil {
				return err
			}

			NewOutput(cmd.OutOrStdout(), cfg.Output).Print(result)
			return nil
		},
	}
}

func newInviteAcceptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accept <invitation_id>",
		Short: "Accept an invitation and start the match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Game
			if err := client.Post("/api/v1/invitations/"+args[0]+"/accept", nil, &result); err != nil {
				return err
			}

			NewOutput(cmd.OutOrStdout(), cfg.Output).Print(result)
			return nil
		},
	}
}
