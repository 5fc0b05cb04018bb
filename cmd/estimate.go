package cmd

import (
	"context"
	"os"
	"unicode/utf8"

	"github.com/spigell/resume-scorer/internal/document"
	"github.com/spigell/resume-scorer/internal/estimate"
	"github.com/spigell/resume-scorer/internal/scoring"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var estimateFlags sourceFlags

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate how many tokens scoring the documents will use",
	Run: func(cmd *cobra.Command, _ []string) {
		runEstimate(cmd)
	},
}

func init() {
	rootCmd.AddCommand(estimateCmd)

	estimateCmd.Flags().StringVarP(&estimateFlags.resumePath, "resume", "r", "", "resume file")
	estimateCmd.Flags().StringVar(&estimateFlags.resumeText, "resume-text", "", "resume as plain text, only with --local")
	estimateCmd.Flags().StringVar(&estimateFlags.jdPath, "jd", "", "job description file")
	estimateCmd.Flags().StringVar(&estimateFlags.jdText, "jd-text", "", "job description as plain text, only with --local")
	estimateCmd.Flags().Bool("local", false, "estimate from the local text without calling the service")
}

func runEstimate(cmd *cobra.Command) {
	ctx := context.Background()
	logger, config := setup()

	resume, jd, err := estimateFlags.load(ctx, config.MaxUploadBytes)
	if err != nil {
		logger.Fatal("loading documents", zap.Error(err))
	}

	var result *scoring.TokenEstimate

	if local, _ := cmd.Flags().GetBool("local"); local {
		result, err = localEstimate(resume, jd)
		if err != nil {
			logger.Fatal("estimating locally", zap.Error(err))
		}
	} else {
		if !estimate.Eligible(resume, jd) {
			logger.Fatal("the service only estimates files", zap.String("hint", "pass --resume and --jd or use --local"))
		}

		client, err := newClient(config, logger)
		if err != nil {
			logger.Fatal("creating scoring client", zap.Error(err))
		}

		ctx, cancel := withTimeout(ctx, config.Estimate.Timeout)
		defer cancel()

		result, err = client.Estimate(ctx, resume, jd)
		if err != nil {
			logger.Fatal("estimating", zap.String("reason", scoring.Describe(err)), zap.Error(err))
		}
	}

	if err := writeJSON(os.Stdout, result); err != nil {
		logger.Fatal("writing json", zap.Error(err))
	}
}

// localEstimate applies the service's rule of thumb to the text extracted here.
// PDF extraction differs from the service's, so counts are approximate.
func localEstimate(resume, jd document.Source) (*scoring.TokenEstimate, error) {
	resumeText, err := resume.PlainText()
	if err != nil {
		return nil, err
	}
	jdText, err := jd.PlainText()
	if err != nil {
		return nil, err
	}

	return &scoring.TokenEstimate{
		ResumeTextLength:    utf8.RuneCountInString(resumeText),
		JDTextLength:        utf8.RuneCountInString(jdText),
		ResumeTokenEstimate: scoring.EstimateTokens(resumeText),
		JDTokenEstimate:     scoring.EstimateTokens(jdText),
	}, nil
}
