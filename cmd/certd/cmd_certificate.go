package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/certificate"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/types"

	"github.com/spf13/cobra"
)

var (
	userPrincipal string
	contactID     string
	submitEmail   string
)

var precheckCmd = &cobra.Command{
	Use:   "precheck [document-number]",
	Short: "Run the submission pre-checks for a certificate",
	Args:  cobra.ExactArgs(1),
	RunE:  runPreCheck,
}

var submitCmd = &cobra.Command{
	Use:   "submit [document-number]",
	Short: "Submit a certificate and wait for background work to finish",
	Long: `Runs the same pre-check and submission as the API. Offline submissions are
validated before the command returns, since the process waits for its background tasks.`,
	Args: cobra.ExactArgs(1),
	RunE: runSubmit,
}

func init() {
	for _, c := range []*cobra.Command{precheckCmd, submitCmd} {
		c.Flags().StringVar(&userPrincipal, "user", "", "User principal owning the document")
		c.Flags().StringVar(&contactID, "contact", "", "Contact id owning the document")
		_ = c.MarkFlagRequired("user")
		_ = c.MarkFlagRequired("contact")
	}
	submitCmd.Flags().StringVar(&submitEmail, "email", "", "Email address for the offline verdict")
	_ = submitCmd.MarkFlagRequired("email")
}

func refFromArgs(args []string) types.DocumentRef {
	return types.DocumentRef{UserPrincipal: userPrincipal, DocumentNumber: args[0], ContactID: contactID}
}

func runPreCheck(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	outcome, err := a.orchestrator.PreCheck(cmd.Context(), refFromArgs(args))
	if err != nil {
		return err
	}
	return printOutcome(cmd.OutOrStdout(), args[0], outcome)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	outcome, err := a.orchestrator.Create(cmd.Context(), refFromArgs(args), submitEmail)
	if err != nil {
		return err
	}
	return printOutcome(cmd.OutOrStdout(), args[0], outcome)
}

// printOutcome writes the outcome as indented JSON. A nil outcome means the checks passed.
func printOutcome(w io.Writer, documentNumber string, outcome *certificate.Outcome) error {
	var v interface{} = outcome
	if outcome == nil {
		v = map[string]string{"status": "ok", "documentNumber": documentNumber}
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
