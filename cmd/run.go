package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spigell/resume-scorer/internal/document"
	"github.com/spigell/resume-scorer/internal/estimate"
	"github.com/spigell/resume-scorer/internal/results"
	"github.com/spigell/resume-scorer/internal/scoring"
	"github.com/spigell/resume-scorer/internal/session"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	PromptBegin            = "Begin"
	PromptExit             = "Exit"
	PromptResumeFile       = "Choose resume file"
	PromptResumeText       = "Paste resume text"
	PromptJDFile           = "Choose job description file"
	PromptJDText           = "Paste job description text"
	PromptRefresh          = "Refresh"
	PromptScore            = "Score"
	PromptStartOver        = "Start over"
	PromptShowAll          = "Show questions"
	PromptFilter           = "Filter by category"
	PromptSelectQuestion   = "Select a question"
	PromptReportByCategory = "Report by category"
	PromptAnalysisToFile   = "Dump analysis to file"
	PromptBack             = "back"
)

var errExit = errors.New("exit requested")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an interactive scoring session",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("plain", false, "do not use colors, mark evidence with [[#id ...]]")
}

// run is the interactive command. Each loop iteration shows the screen of the
// current stage.
func run(cmd *cobra.Command) {
	ctx := context.Background()
	logger, config := setup()

	plain, _ := cmd.Flags().GetBool("plain")
	out := renderer{w: os.Stdout, plain: plain}

	client, err := newClient(config, logger)
	if err != nil {
		logger.Fatal("creating scoring client", zap.Error(err))
	}

	logger.Info("starting the resume-scorer", zap.String("version", resolveVersion()), zap.String("api_url", client.APIURL))

	s := session.New(session.Options{
		Scorer:          client,
		Estimator:       client,
		Logger:          logger,
		Debounce:        config.Estimate.Debounce,
		EstimateTimeout: config.Estimate.Timeout,
		OnEstimate: func(state estimate.State) {
			if state.Estimate != nil || state.Message != "" {
				logger.Info("token estimate", zap.String("estimate", out.estimate(state)))
			}
		},
	})

	for {
		var err error
		switch stage := s.Stage(); stage {
		case session.StageLanding:
			err = landing(s)
		case session.StageInput:
			err = input(ctx, s, config, logger, out)
		case session.StageAnalysis:
			err = analysis(s, logger, out)
		default:
			err = fmt.Errorf("unexpected stage %s", stage)
		}

		if err != nil {
			if errors.Is(err, errExit) || errors.Is(err, promptui.ErrInterrupt) {
				logger.Info("exiting", zap.String("reason", "requested by user"))
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func landing(s *session.Session) error {
	prompt := promptui.Select{
		Label: "Score a resume against a job description",
		Items: []string{PromptBegin, PromptExit},
	}

	_, action, err := prompt.Run()
	if err != nil {
		return err
	}

	if action == PromptExit {
		return errExit
	}
	return s.Begin()
}

func input(ctx context.Context, s *session.Session, config *Config, logger *zap.Logger, out renderer) error {
	view := s.View()

	label := fmt.Sprintf("resume: %s | job description: %s | %s",
		view.Resume.Label(), view.JobDescription.Label(), out.estimate(view.Estimate))
	if view.Message != "" {
		label = view.Message + " | " + label
	}

	prompt := promptui.Select{
		Label: label,
		Items: []string{PromptResumeFile, PromptResumeText, PromptJDFile, PromptJDText, PromptRefresh, PromptScore, PromptStartOver, PromptExit},
		Size:  8,
	}

	_, action, err := prompt.Run()
	if err != nil {
		return err
	}

	switch action {
	case PromptResumeFile:
		return setFile(s, document.RoleResume, config.MaxUploadBytes, logger)
	case PromptResumeText:
		return setText(s, document.RoleResume, logger)
	case PromptJDFile:
		return setFile(s, document.RoleJobDescription, config.MaxUploadBytes, logger)
	case PromptJDText:
		return setText(s, document.RoleJobDescription, logger)
	case PromptRefresh:
		return nil
	case PromptScore:
		return submit(ctx, s, logger)
	case PromptStartOver:
		s.Reset()
		return nil
	case PromptExit:
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func setFile(s *session.Session, role document.Role, maxBytes int64, logger *zap.Logger) error {
	prompt := promptui.Prompt{
		Label: fmt.Sprintf("Path to the %s file", role),
		Validate: func(path string) error {
			_, err := os.Stat(strings.TrimSpace(path))
			return err
		},
	}

	path, err := prompt.Run()
	if err != nil {
		return err
	}

	src, err := document.FromPath(role, path, maxBytes)
	if err != nil {
		// a bad file is not fatal, the user can pick another one
		logger.Warn("loading document", zap.Error(err))
		return nil
	}

	return s.SetDocument(src)
}

func setText(s *session.Session, role document.Role, logger *zap.Logger) error {
	prompt := promptui.Prompt{
		Label: fmt.Sprintf("Paste the %s text", role),
	}

	text, err := prompt.Run()
	if err != nil {
		return err
	}

	src := document.FromText(role, text)
	if !src.HasData() {
		logger.Warn("ignoring empty text", zap.String("role", string(role)))
		return nil
	}

	return s.SetDocument(src)
}

func submit(ctx context.Context, s *session.Session, logger *zap.Logger) error {
	logger.Info("scoring, this can take a few minutes")

	err := s.Submit(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrNotReady), errors.Is(err, session.ErrInFlight):
		logger.Warn("cannot score yet", zap.String("reason", err.Error()))
		return nil
	case errors.Is(err, scoring.ErrScoringFailed), errors.Is(err, session.ErrDiscarded):
		// the session is back in input and shows the message
		logger.Warn("scoring failed", zap.String("reason", s.View().Message))
		return nil
	default:
		if s.Stage() == session.StageInput {
			logger.Warn("scoring failed", zap.String("reason", s.View().Message), zap.Error(err))
			return nil
		}
		return err
	}
}

func analysis(s *session.Session, logger *zap.Logger, out renderer) error {
	view := s.View()
	if view.Result == nil {
		return errors.New("analysis without a result")
	}

	av := results.NewView(view.Result)
	out.summary(view.Result)

	for {
		prompt := promptui.Select{
			Label: fmt.Sprintf("%d questions, filter: %s", av.Len(), av.Filter()),
			Items: []string{PromptShowAll, PromptFilter, PromptSelectQuestion, PromptReportByCategory, PromptAnalysisToFile, PromptStartOver, PromptExit},
			Size:  7,
		}

		_, action, err := prompt.Run()
		if err != nil {
			return err
		}

		switch action {
		case PromptShowAll:
			out.view(av, view.ResumeText)
		case PromptFilter:
			av, err = chooseFilter(av)
			if err != nil {
				return err
			}
			logger.Info("filter applied", zap.String("filter", av.Filter()), zap.Int("questions", av.Len()))
		case PromptSelectQuestion:
			av, err = chooseQuestion(av)
			if err != nil {
				return err
			}
			if q, ok := av.Selected(); ok {
				out.question(av.SelectedIndex(), q, view.ResumeText)
			}
		case PromptReportByCategory:
			pretty, _ := json.MarshalIndent(results.ReportByCategory(view.Result), "", "  ")
			logger.Info(string(pretty), zap.Int("questions count", len(view.Result.Questions)))
		case PromptAnalysisToFile:
			filename, err := results.DumpToTmpFile(view.Result)
			if err != nil {
				return fmt.Errorf("dump analysis to file: %w", err)
			}
			logger.Info("dumping analysis to file", zap.String("filename", filename))
		case PromptStartOver:
			s.Reset()
			return nil
		case PromptExit:
			return errExit
		default:
			return fmt.Errorf("invalid action: %s", action)
		}
	}
}

func chooseFilter(av results.View) (results.View, error) {
	counts := av.Counts()

	items := []string{results.All}
	labels := []string{fmt.Sprintf("%s (%d)", results.All, len(av.Result().Questions))}
	for _, c := range scoring.AllCategories {
		items = append(items, string(c))
		labels = append(labels, fmt.Sprintf("%s (%d)", c, counts[c]))
	}

	prompt := promptui.Select{
		Label: "Category",
		Items: labels,
	}

	idx, _, err := prompt.Run()
	if err != nil {
		return av, err
	}

	return av.WithFilter(items[idx]), nil
}

func chooseQuestion(av results.View) (results.View, error) {
	questions := av.Questions()
	if len(questions) == 0 {
		return av, nil
	}

	items := make([]string, 0, len(questions)+1)
	for i, q := range questions {
		items = append(items, fmt.Sprintf("%d. [%s] %s (%s)", i+1, q.Category, q.Question, results.FormatScore(q.Score)))
	}

	prompt := promptui.Select{
		Label:     "Choose a question and press ENTER",
		Items:     append(items, PromptBack),
		CursorPos: av.SelectedIndex(),
		Size:      10,
	}

	idx, selected, err := prompt.Run()
	if err != nil {
		return av, err
	}
	if selected == PromptBack {
		return av, nil
	}

	return av.Select(idx), nil
}
