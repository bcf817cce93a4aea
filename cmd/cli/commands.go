package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/iho/gosettle/internal/adapter/http/dto"
	"github.com/iho/gosettle/internal/domain"
	"github.com/iho/gosettle/internal/ledger"
)

func loginCmd(opts *options) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and print a bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.AuthResponse
			err := newAPIClient(opts).do(cmd.Context(), http.MethodPost, "/api/v1/auth/login",
				dto.LoginRequest{Email: email, Password: password}, &resp)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Token)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Member email")
	cmd.Flags().StringVar(&password, "password", "", "Member password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func optimizeCmd(opts *options) *cobra.Command {
	var groupID string
	var accept bool

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Show the minimal set of transfers that settles a group",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(opts)

			var opt dto.OptimizationResponse
			if err := client.do(cmd.Context(), http.MethodPost, "/api/v1/settlements/optimize",
				dto.GroupRequest{GroupID: groupID}, &opt); err != nil {
				return err
			}
			printOptimization(cmd.OutOrStdout(), &opt)

			if !accept {
				return nil
			}

			var created []dto.SettlementResponse
			if err := client.do(cmd.Context(), http.MethodPost, "/api/v1/settlements/optimize/accept",
				dto.GroupRequest{GroupID: groupID}, &created); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nCreated %d pending settlements\n", len(created))
			printSettlements(cmd.OutOrStdout(), created)
			return nil
		},
	}

	cmd.Flags().StringVar(&groupID, "group", "", "Group ID")
	cmd.Flags().BoolVar(&accept, "accept", false, "Record the suggested transfers as pending settlements")
	_ = cmd.MarkFlagRequired("group")

	return cmd
}

func balanceCmd(opts *options) *cobra.Command {
	var groupID string

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show what you owe and are owed",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/settlements/balance"
			if groupID != "" {
				path += "?groupId=" + url.QueryEscape(groupID)
			}

			var bal dto.BalanceResponse
			if err := newAPIClient(opts).do(cmd.Context(), http.MethodGet, path, nil, &bal); err != nil {
				return err
			}
			printBalance(cmd.OutOrStdout(), &bal)
			return nil
		},
	}

	cmd.Flags().StringVar(&groupID, "group", "", "Limit to one group")

	return cmd
}

func settleCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settle",
		Short: "Settlement lifecycle operations",
	}

	cmd.AddCommand(
		settlementActionCmd(opts, "complete", "Mark a pending settlement as paid"),
		settlementActionCmd(opts, "cancel", "Cancel a pending settlement"),
	)

	return cmd
}

func settlementActionCmd(opts *options, action, short string) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   action,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			var s dto.SettlementResponse
			if err := newAPIClient(opts).do(cmd.Context(), http.MethodPatch, "/api/v1/settlements/"+action,
				dto.SettlementActionRequest{SettlementID: id}, &s); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Settlement %s is now %s\n", s.ID, s.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Settlement ID")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func simulateCmd() *cobra.Command {
	var file, currency string

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the optimizer locally on net positions from a JSON file",
		Long: `Reads {"memberId": amount, ...} net positions (positive means owed money)
and prints the transfers that settle them. No server is involved.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("open positions: %w", err)
				}
				defer f.Close()
				r = f
			}
			return simulate(r, cmd.OutOrStdout(), currency)
		},
	}

	cmd.Flags().StringVar(&file, "file", "-", "Positions file, - for stdin")
	cmd.Flags().StringVar(&currency, "currency", "USD", "Currency of the amounts")

	return cmd
}

func simulate(r io.Reader, w io.Writer, currency string) error {
	var raw map[string]dto.Amount
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return fmt.Errorf("decode positions: %w", err)
	}

	currency = domain.NormalizeCurrency(currency)
	positions := make(map[string]int64, len(raw))
	for id, amount := range raw {
		units, err := domain.ToMinorUnits(amount.Decimal, currency)
		if err != nil {
			return fmt.Errorf("position %s: %w", id, err)
		}
		positions[id] = units
	}

	result, err := ledger.Optimize(positions)
	if err != nil {
		var unbalanced *domain.UnbalancedInputError
		if errors.As(err, &unbalanced) {
			return fmt.Errorf("positions do not balance: off by %s %s",
				domain.FromMinorUnits(unbalanced.Residual, currency), currency)
		}
		return err
	}

	opt := &dto.OptimizationResponse{
		Currency:              currency,
		OriginalTransactions:  result.OriginalTransactionCount,
		OptimizedTransactions: result.OptimizedTransactionCount,
		Savings:               result.Savings,
	}
	for _, t := range result.Transfers {
		opt.Transactions = append(opt.Transactions, dto.TransferResponse{
			From:   dto.PartyResponse{ID: t.From},
			To:     dto.PartyResponse{ID: t.To},
			Amount: dto.NewAmount(domain.FromMinorUnits(t.Amount, currency)),
		})
	}

	printOptimization(w, opt)
	return nil
}

func printOptimization(w io.Writer, opt *dto.OptimizationResponse) {
	if len(opt.Transactions) == 0 {
		fmt.Fprintln(w, "Everyone is settled up.")
	} else {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "FROM\tTO\tAMOUNT")
		for _, t := range opt.Transactions {
			fmt.Fprintf(tw, "%s\t%s\t%s %s\n", party(t.From), party(t.To), t.Amount.StringFixed(amountPlaces(opt.Currency)), opt.Currency)
		}
		tw.Flush()
	}

	fmt.Fprintf(w, "Original: %d  Optimized: %d  Savings: %d\n",
		opt.OriginalTransactions, opt.OptimizedTransactions, opt.Savings)
}

func printBalance(w io.Writer, bal *dto.BalanceResponse) {
	places := amountPlaces(bal.Currency)

	fmt.Fprintf(w, "Owed to you: %s %s\n", bal.TotalOwed.StringFixed(places), bal.Currency)
	fmt.Fprintf(w, "You owe:     %s %s\n", bal.TotalOwing.StringFixed(places), bal.Currency)
	fmt.Fprintf(w, "Net:         %s %s\n", bal.NetBalance.StringFixed(places), bal.Currency)

	if len(bal.Relationships) == 0 {
		return
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MEMBER\tYOU OWE\tOWES YOU")
	for _, r := range bal.Relationships {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.User.Name, r.YouOwe.StringFixed(places), r.OwesYou.StringFixed(places))
	}
	tw.Flush()
}

func printSettlements(w io.Writer, settlements []dto.SettlementResponse) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPAYER\tPAYEE\tAMOUNT\tSTATUS")
	for _, s := range settlements {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s %s\t%s\n", s.ID, s.PayerID, s.PayeeID,
			s.Amount.StringFixed(amountPlaces(s.Currency)), s.Currency, s.Status)
	}
	tw.Flush()
}

func party(p dto.PartyResponse) string {
	if p.Name == "" {
		return p.ID
	}
	return p.Name
}

func amountPlaces(currency string) int32 {
	return domain.CurrencyExponent(currency)
}
