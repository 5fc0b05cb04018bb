package cmd

import (
	"context"
	"os"

	"github.com/spigell/resume-scorer/internal/results"
	"github.com/spigell/resume-scorer/internal/session"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var scoreFlags sourceFlags

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a resume against a job description and print the analysis",
	Run: func(cmd *cobra.Command, _ []string) {
		score(cmd)
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringVarP(&scoreFlags.resumePath, "resume", "r", "", "resume file (pdf, docx or txt)")
	scoreCmd.Flags().StringVar(&scoreFlags.resumeText, "resume-text", "", "resume as plain text, used when --resume is not set")
	scoreCmd.Flags().StringVar(&scoreFlags.jdPath, "jd", "", "job description file (pdf, docx or txt)")
	scoreCmd.Flags().StringVar(&scoreFlags.jdText, "jd-text", "", "job description as plain text, used when --jd is not set")
	scoreCmd.Flags().StringP("output", "o", "text", "output format: text or json")
	scoreCmd.Flags().StringP("category", "c", results.All, "show only questions of this category")
	scoreCmd.Flags().Bool("plain", false, "do not use colors, mark evidence with [[#id ...]]")
}

func score(cmd *cobra.Command) {
	ctx := context.Background()
	logger, config := setup()

	output, _ := cmd.Flags().GetString("output")
	if output != "text" && output != "json" {
		logger.Fatal("unknown output format", zap.String("output", output))
	}

	category, _ := cmd.Flags().GetString("category")
	filter, err := results.ParseCategory(category)
	if err != nil {
		logger.Fatal("parsing category", zap.Error(err))
	}

	client, err := newClient(config, logger)
	if err != nil {
		logger.Fatal("creating scoring client", zap.Error(err))
	}

	resume, jd, err := scoreFlags.load(ctx, config.MaxUploadBytes)
	if err != nil {
		logger.Fatal("loading documents", zap.Error(err))
	}

	s := session.New(session.Options{Scorer: client, Logger: logger})
	if err := s.Begin(); err != nil {
		logger.Fatal("starting session", zap.Error(err))
	}
	if err := s.SetDocument(resume); err != nil {
		logger.Fatal("setting resume", zap.Error(err))
	}
	if err := s.SetDocument(jd); err != nil {
		logger.Fatal("setting job description", zap.Error(err))
	}

	logger.Info("scoring, this can take a few minutes", zap.String("api_url", client.APIURL))
	if err := s.Submit(ctx); err != nil {
		logger.Fatal("scoring", zap.String("reason", s.View().Message), zap.Error(err))
	}

	view := s.View()
	analysis := results.NewView(view.Result).WithFilter(filter)

	if output == "json" {
		if err := writeJSON(os.Stdout, newAnalysisReport(analysis, view.ResumeText)); err != nil {
			logger.Fatal("writing json", zap.Error(err))
		}
		return
	}

	plain, _ := cmd.Flags().GetBool("plain")
	renderer{w: os.Stdout, plain: plain}.view(analysis, view.ResumeText)
}
