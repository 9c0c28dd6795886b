package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/blnkfinance/recordlist"
	"github.com/blnkfinance/recordlist/describe"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var errBatchFailed = errors.New("batch failed")

func printFeed(w io.Writer, list *recordlist.RecordList, formatter *describe.Formatter) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tDATE\tNAME\tDESCRIPTION\tAMOUNT\tMEMO")
	for i, r := range list.Records() {
		date := ""
		if !r.ValidFrom().IsZero() {
			date = r.ValidFrom().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", i, date, r.Name(), formatter.Describe(r), formatter.Amount(r), r.Memo())
	}
	return tw.Flush()
}

// feedCommands populates the list once and prints it, newest first.
func feedCommands(b *listInstance) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "print the activity feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := b.list.Populate(cmd.Context()); err != nil {
				return err
			}
			formatter := describe.NewFormatter(b.cnf.View.Language, b.cnf.View.Precision)
			if !asJSON {
				return printFeed(cmd.OutOrStdout(), b.list, formatter)
			}

			views := make([]describe.View, 0, b.list.Size())
			for i, r := range b.list.Records() {
				views = append(views, formatter.View(i, r))
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(views)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")
	return cmd
}

// batchOutcome turns a batch code into the command result.
func batchOutcome(cmd *cobra.Command, code int) error {
	switch code {
	case recordlist.CodeSuccess:
		fmt.Fprintln(cmd.OutOrStdout(), "done")
		return nil
	case recordlist.CodeNoop:
		fmt.Fprintln(cmd.OutOrStdout(), "nothing to do")
		return nil
	}
	return errBatchFailed
}

func acceptInboxCommands(b *listInstance) *cobra.Command {
	var accountID, indices, itemType string
	cmd := &cobra.Command{
		Use:   "accept-inbox",
		Short: "accept receipts and transfers from an account inbox",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := recordlist.ParseInboxItemType(itemType)
			if err != nil {
				return err
			}
			code := b.list.AcceptFromInbox(cmd.Context(), accountID, indices, kind)
			return batchOutcome(cmd, code)
		},
	}
	cmd.Flags().StringVar(&accountID, "account", "", "account whose inbox is accepted")
	cmd.Flags().StringVar(&indices, "indices", "", `comma separated inbox indices, or "all"`)
	cmd.Flags().StringVar(&itemType, "type", "all", "receipts, transfers or all")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func acceptPaymentsCommands(b *listInstance) *cobra.Command {
	var accountID, indices, paymentType string
	cmd := &cobra.Command{
		Use:   "accept-payments",
		Short: "accept incoming instruments from the payment inbox into an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := recordlist.ParsePaymentType(paymentType)
			if err != nil {
				return err
			}
			code := b.list.AcceptFromPaymentBox(cmd.Context(), accountID, indices, kind)
			return batchOutcome(cmd, code)
		},
	}
	cmd.Flags().StringVar(&accountID, "account", "", "account the payments are deposited into")
	cmd.Flags().StringVar(&indices, "indices", "", `comma separated payment inbox indices, or "all"`)
	cmd.Flags().StringVar(&paymentType, "type", "", "cheque, voucher, invoice, purse, paymentPlan; empty for any")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

// autoAcceptCommands populates, runs the auto-accept policies and prints the report.
func autoAcceptCommands(b *listInstance) *cobra.Command {
	return &cobra.Command{
		Use:   "auto-accept",
		Short: "accept whatever the auto_accept policies allow",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := b.list.Populate(ctx); err != nil {
				return err
			}
			ok := b.list.PerformAutoAccept(ctx)
			report := b.list.LastAutoAcceptReport()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			if !ok || report.Partial() {
				logrus.Warn("auto-accept finished with failures")
			}
			return nil
		},
	}
}
