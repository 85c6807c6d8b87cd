package main

import (
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"loan-approval/internal/evaluation"
	"loan-approval/internal/intake"
	"loan-approval/internal/models"
)

// asker collects one field value.
type asker interface {
	Select(f intake.Field) (string, error)
	Number(f intake.Field) (float64, error)
}

type promptAsker struct{}

func (promptAsker) Select(f intake.Field) (string, error) {
	p := promptui.Select{
		Label:     f.Label,
		Items:     f.Options,
		CursorPos: indexOf(f.Options, fmt.Sprint(f.Default)),
	}
	_, v, err := p.Run()
	return v, err
}

func (promptAsker) Number(f intake.Field) (float64, error) {
	p := promptui.Prompt{
		Label:    f.Label,
		Default:  fmt.Sprint(f.Default),
		Validate: numberValidator(f),
	}
	raw, err := p.Run()
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(raw, 64)
}

func numberValidator(f intake.Field) promptui.ValidateFunc {
	return func(input string) error {
		v, err := strconv.ParseFloat(input, 64)
		if err != nil {
			return fmt.Errorf("not a number")
		}
		if f.Min != nil && v < *f.Min {
			return fmt.Errorf("must be at least %v", *f.Min)
		}
		if f.Max != nil && v > *f.Max {
			return fmt.Errorf("must be at most %v", *f.Max)
		}
		return nil
	}
}

func indexOf(items []string, v string) int {
	for i, it := range items {
		if it == v {
			return i
		}
	}
	return 0
}

// collect walks the form in order and fills FormValues.
func collect(form intake.Form, a asker) (intake.FormValues, error) {
	values := intake.DefaultFormValues()

	for _, f := range form.Fields {
		if f.Kind == intake.KindSelect {
			v, err := a.Select(f)
			if err != nil {
				return values, err
			}
			switch f.Name {
			case models.FieldEverBankruptOrForeclose:
				values.EverBankruptOrForeclose = v
			case models.FieldReason:
				values.Reason = v
			case models.FieldEmploymentStatus:
				values.EmploymentStatus = v
			case models.FieldEmploymentSector:
				values.EmploymentSector = v
			case models.FieldLender:
				values.Lender = v
			}
			continue
		}

		v, err := a.Number(f)
		if err != nil {
			return values, err
		}
		switch f.Name {
		case models.FieldLoanAmount:
			values.LoanAmount = v
		case models.FieldFICOScore:
			values.FICOScore = v
		case models.FieldMonthlyIncome:
			values.MonthlyIncome = v
		case models.FieldMonthlyHousingPayment:
			values.MonthlyHousingPayment = v
		}
	}
	return values, nil
}

func newFormCmd(root *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "form",
		Short: "Fill in the applicant form interactively and evaluate it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, model, err := root.loadService()
			if err != nil {
				return err
			}
			defer model.Close()

			schema := svc.Schema()
			form := intake.FormDefinition(schema)
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n\n", form.Title, form.Subtitle)

			values, err := collect(form, promptAsker{})
			if err != nil {
				return err
			}
			record, err := values.Record(intake.NewLabels(schema))
			if err != nil {
				return err
			}

			result, err := svc.EvaluateRequest(cmd.Context(), evaluation.Request{
				Channel: models.ChannelForm,
				Record:  record,
			})
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), result, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")
	return cmd
}
