package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"loan-approval/internal/evaluation"
	"loan-approval/internal/models"
)

type evaluateOptions struct {
	record models.ApplicantRecord
	output string
}

func newEvaluateCmd(root *rootOptions) *cobra.Command {
	opts := &evaluateOptions{}
	var reason, status, sector, lender string

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate one applicant given as flags (category codes)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.record.Reason = models.Reason(reason)
			opts.record.EmploymentStatus = models.EmploymentStatus(status)
			opts.record.EmploymentSector = models.EmploymentSector(sector)
			opts.record.Lender = models.Lender(lender)

			svc, model, err := root.loadService()
			if err != nil {
				return err
			}
			defer model.Close()

			result, err := svc.EvaluateRequest(cmd.Context(), evaluation.Request{
				Channel: models.ChannelCLI,
				Record:  opts.record,
			})
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), result, opts.output)
		},
	}

	f := cmd.Flags()
	f.Float64Var(&opts.record.LoanAmount, "loan-amount", 10_000, "requested loan amount")
	f.IntVar(&opts.record.FICOScore, "fico", 700, "FICO score (300-850)")
	f.Float64Var(&opts.record.MonthlyIncome, "income", 5_000, "monthly gross income")
	f.Float64Var(&opts.record.MonthlyHousingPayment, "housing", 1_500, "monthly housing payment")
	f.BoolVar(&opts.record.EverBankruptOrForeclose, "bankrupt", false, "ever bankrupt or foreclosed")
	f.StringVar(&reason, "reason", string(models.ReasonCreditCardRefinancing), "reason for the loan")
	f.StringVar(&status, "employment-status", string(models.EmploymentFullTime), "employment status")
	f.StringVar(&sector, "employment-sector", string(models.SectorConsumerDiscretionary), "employment sector")
	f.StringVar(&lender, "lender", string(models.LenderA), "lender: A, B or C")
	f.StringVarP(&opts.output, "output", "o", "text", "output format: text or json")

	return cmd
}

func printResult(w io.Writer, result *evaluation.Result, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintf(w, "Housing-to-income ratio: %.2f\n", result.HousingToIncomeRatio)
	fmt.Fprintln(w, result.Message)
	return nil
}
