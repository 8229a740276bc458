package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tariffstack/internal/ingestion"
	"tariffstack/internal/model"
)

var (
	verifyHTS      string
	verifyProgram  string
	verifyMaterial string
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Run the Reader/Validator/Write-Gate pipeline for one HTS code and program",
	Long: `verify --hts 7326.90.8688 --program section_232_steel [--material steel]
discovers Tier-A evidence for the given HTS code, runs it through the
Reader and Validator, and either admits a VerifiedAssertion or files a
needs-review entry. Exits 2 if no Tier-A evidence was found at all
(nothing to verify against).`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyHTS, "hts", "", "HTS code to verify (required)")
	verifyCmd.Flags().StringVar(&verifyProgram, "program", "", "program ID to verify scope against (required)")
	verifyCmd.Flags().StringVar(&verifyMaterial, "material", "", "material, for Section-232 scope questions")
	verifyCmd.MarkFlagRequired("hts")
	verifyCmd.MarkFlagRequired("program")
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, resolvedConfigPath())
	if err != nil {
		return infraErr(err)
	}
	defer a.close()

	result, err := a.ingestion.Verify(ctx, ingestion.VerifyRequest{
		HTSCode:   verifyHTS,
		ProgramID: model.ProgramID(verifyProgram),
		Material:  verifyMaterial,
	})
	if err != nil {
		return infraErr(err)
	}

	switch result.Outcome {
	case ingestion.VerifyNoEvidence:
		fmt.Fprintf(cmd.OutOrStdout(), "no Tier-A evidence found for hts=%s\n", verifyHTS)
		return validationErr(fmt.Errorf("no evidence for hts %s", verifyHTS))
	case ingestion.VerifyReviewed:
		fmt.Fprintf(cmd.OutOrStdout(), "write gate failed, filed for review: review_id=%s\n", result.ReviewID)
		for _, e := range result.Gate.Errors {
			fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", e)
		}
		return nil
	case ingestion.VerifyAdmitted:
		fmt.Fprintf(cmd.OutOrStdout(), "admitted: assertion_id=%s type=%s claim=%s disclaim=%s\n",
			result.Assertion.ID, result.Assertion.AssertionType, result.Assertion.ClaimCode, result.Assertion.DisclaimCode)
		return nil
	}
	return nil
}
