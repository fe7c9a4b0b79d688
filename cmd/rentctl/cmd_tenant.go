package main

import (
	"github.com/spf13/cobra"

	"github.com/R3E-Network/rentals/internal/catalog"
	"github.com/R3E-Network/rentals/internal/domain"
	"github.com/R3E-Network/rentals/internal/messaging"
)

func (a *app) catalogCmd() *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Browse available properties, twelve per page",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _, err := a.authed(cmd.Context())
			if err != nil {
				return err
			}
			p, err := catalog.NewReader(a.repo).Page(ctx, page)
			if err != nil {
				return err
			}
			return a.emit(p, func() { a.renderCatalog(p) })
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "Page index, starting at 0")
	return cmd
}

func (a *app) messagesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "messages", Aliases: []string{"message"}, Short: "Contact landlords or read your inbox"}

	var draft domain.MessageDraft
	send := &cobra.Command{
		Use:   "send <text>",
		Short: "Send a message to the landlord of a property",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				draft.Message = args[0]
			}
			ctx, userID, err := a.authed(cmd.Context())
			if err != nil {
				return err
			}
			msg, err := messaging.NewComposer(a.repo, a.bus, a.logger).Send(ctx, userID, draft)
			if err != nil {
				return err
			}
			return a.emit(msg, func() { a.success("Message sent successfully!") })
		},
	}
	send.Flags().StringVar(&draft.PropertyID, "property", "", "Property ID")
	send.Flags().StringVar(&draft.LandlordID, "landlord", "", "Landlord ID (shown in the catalog)")

	inbox := &cobra.Command{
		Use:   "inbox",
		Short: "List messages sent to you as a landlord",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, userID, err := a.landlordCtx(cmd.Context())
			if err != nil {
				return err
			}
			msgs, err := messaging.NewInbox(a.repo).List(ctx, userID)
			if err != nil {
				return err
			}
			return a.emit(msgs, func() { a.renderMessages(msgs) })
		},
	}

	cmd.AddCommand(send, inbox)
	return cmd
}
