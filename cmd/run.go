package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hiresense/internal/agents"
	"github.com/spigell/hiresense/internal/hiring"
	"github.com/spigell/hiresense/internal/logger"
)

const (
	PromptTop         = "Show top candidates"
	PromptReport      = "Report by score"
	PromptReview      = "Review candidates"
	PromptDumpToFile  = "Dump candidates to file"
	PromptExport      = "Export candidates"
	PromptExit        = "Exit"
	PromptBack        = "back"
	PromptReject      = "Reject candidate"
	defaultTopN       = 5
	defaultExportName = "hiresense_candidates"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptTop, PromptReport, PromptReview, PromptDumpToFile, PromptExport, PromptExit},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the hiring pipeline over a folder of CVs",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("jobs-file", "", "csv file with 'Job Title' and 'Job Description' columns")
	runCmd.Flags().String("title", "", "job title, used together with --description instead of --jobs-file")
	runCmd.Flags().String("description", "", "job description text")
	runCmd.Flags().String("cv-folder", "", "folder with PDF and TXT CVs")
	runCmd.Flags().StringP("output-dir", "o", ".", "directory for per-agent CSV results")
	runCmd.Flags().Bool("no-artifacts", false, "do not write per-agent CSV results")
	runCmd.Flags().Float64("threshold", 0, "minimum updated score kept by the memory agent")
	runCmd.Flags().String("notes-file", "", "yaml file mapping candidate ids to recruiter notes")
	runCmd.Flags().IntP("top", "n", defaultTopN, "number of top candidates to show")
	runCmd.Flags().BoolP("auto-approve", "y", false, "print the top candidates and exit without the interactive menu")

	viper.BindPFlag("jobs-file", runCmd.Flags().Lookup("jobs-file"))
	viper.BindPFlag("pipeline.cv-folder", runCmd.Flags().Lookup("cv-folder"))
	viper.BindPFlag("pipeline.output-dir", runCmd.Flags().Lookup("output-dir"))
	viper.BindPFlag("pipeline.selection-threshold", runCmd.Flags().Lookup("threshold"))
	viper.BindPFlag("pipeline.notes-file", runCmd.Flags().Lookup("notes-file"))
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		logger.Fatal("config is required")
	}

	logger.Info("starting the hiresense", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	jds, err := jobDescriptions(cmd, config)
	if err != nil {
		logger.Fatal("loading job descriptions", zap.Error(err),
			zap.String("hint", "pass --jobs-file or both --title and --description"),
		)
	}

	applyRunFlags(cmd, config)

	if strings.TrimSpace(config.Pipeline.CVFolder) == "" {
		logger.Fatal("cv folder is required", zap.String("hint", "pass --cv-folder or set pipeline.cv-folder"))
	}

	p, err := buildPipeline(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing the pipeline", zap.Error(err))
	}
	defer p.Close()

	for _, status := range agents.Describe(p.supervisor.Agents()) {
		logger.Debug("agent configured",
			zap.String("agent", status.Name),
			zap.Bool("enabled", status.Enabled),
			zap.String("reason", status.Reason),
			zap.Any("details", status.Details),
		)
	}

	result, err := p.supervisor.Run(ctx, jds, nil)
	if err != nil {
		fatalStage(logger, err)
	}

	selected := result.Selected
	top, _ := cmd.Flags().GetInt("top")

	logger.Info("pipeline finished",
		zap.String("run_id", result.RunID),
		zap.Int("scored", result.Scored.Len()),
		zap.Int("selected", selected.Len()),
	)

	if selected.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no candidates reached the selection threshold"))
		return
	}

	fmt.Println(renderScorecards(selected.Top(top).Scorecards()))

	if cmd.Flag("auto-approve").Value.String() == "true" {
		return
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(action, logger, selected, top); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(action string, logger *zap.Logger, candidates *hiring.Candidates, top int) error {
	switch action {
	case PromptTop:
		fmt.Println(renderScorecards(candidates.Top(top).Scorecards()))
		return nil
	case PromptReport:
		pretty, _ := json.MarshalIndent(candidates.ReportByScore(), "", "  ")
		logger.Info(string(pretty), zap.Int("candidates count", candidates.Len()))
		return nil
	case PromptReview:
		return review(logger, candidates)
	case PromptDumpToFile:
		filename, err := candidates.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptExport:
		return export(logger, candidates)
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func review(logger *zap.Logger, candidates *hiring.Candidates) error {
	for {
		items := make([]string, 0, candidates.Len()+1)
		for _, c := range candidates.Items {
			items = append(items, fmt.Sprintf("%s / %.2f", c.ID, c.UpdatedScore))
		}

		candidatePrompt := promptui.Select{
			Label: "Choose a candidate and press ENTER",
			Items: append(items, PromptBack),
		}

		_, selected, err := candidatePrompt.Run()
		if err != nil {
			return err
		}
		if selected == PromptBack {
			return nil
		}

		id := strings.Split(selected, " / ")[0]
		candidate := candidates.FindByID(id)
		if candidate == nil {
			return fmt.Errorf("there is no such candidate id %s", id)
		}

		fmt.Println(renderCandidate(candidate))

		actionPrompt := promptui.Select{
			Label: "Candidate " + id,
			Items: []string{PromptBack, PromptReject},
		}
		_, action, err := actionPrompt.Run()
		if err != nil {
			return err
		}

		if action == PromptReject {
			removed := candidates.Exclude(hiring.CandidateIDField, []string{id})
			logger.Info("candidate rejected", zap.Strings("removed", removed), zap.Int("left", candidates.Len()))
		}
	}
}

func export(logger *zap.Logger, candidates *hiring.Candidates) error {
	formatPrompt := promptui.Select{
		Label: "Export format",
		Items: []hiring.Format{hiring.FormatCSV, hiring.FormatJSON, hiring.FormatYAML},
	}
	_, format, err := formatPrompt.Run()
	if err != nil {
		return err
	}

	pathPrompt := promptui.Prompt{
		Label:   "File",
		Default: defaultExportName + "." + format,
	}
	path, err := pathPrompt.Run()
	if err != nil {
		return err
	}

	if err := hiring.WriteFile(path, func(w io.Writer) error {
		return hiring.Export(w, hiring.Format(format), candidates)
	}); err != nil {
		return fmt.Errorf("export candidates: %w", err)
	}

	logger.Info("candidates exported", zap.String("filename", path), zap.String("format", format))
	return nil
}

func jobDescriptions(cmd *cobra.Command, config *Config) ([]*hiring.JobDescription, error) {
	title, _ := cmd.Flags().GetString("title")
	description, _ := cmd.Flags().GetString("description")

	if strings.TrimSpace(title) != "" || strings.TrimSpace(description) != "" {
		if strings.TrimSpace(title) == "" || strings.TrimSpace(description) == "" {
			return nil, errors.New("both --title and --description are required")
		}
		return []*hiring.JobDescription{{Title: title, Description: description}}, nil
	}

	if strings.TrimSpace(config.JobsFile) == "" {
		return nil, errors.New("no job description given")
	}
	return hiring.ReadJobDescriptionsFile(config.JobsFile)
}

// applyRunFlags folds flags that have no config key into config.
func applyRunFlags(cmd *cobra.Command, config *Config) {
	if off, _ := cmd.Flags().GetBool("no-artifacts"); off {
		config.Pipeline.OutputDir = ""
	}
}

// fatalStage logs a pipeline failure with the failing agent and its stack.
func fatalStage(logger *zap.Logger, err error) {
	var stageErr *agents.StageError
	if errors.As(err, &stageErr) {
		logger.Debug("failure stack", zap.ByteString("stack", stageErr.StackTrace()))
		logger.Fatal("pipeline failed", zap.String("agent", stageErr.Agent), zap.Error(stageErr.Err))
	}
	logger.Fatal("pipeline failed", zap.Error(err))
}

// redacted returns a copy of config safe for logging.
func redacted(config *Config) Config {
	out := *config
	if config.AI != nil && config.AI.Gemini != nil {
		ai := *config.AI
		gemini := *config.AI.Gemini
		if gemini.APIKey != "" {
			gemini.APIKey = "***"
		}
		ai.Gemini = &gemini
		out.AI = &ai
	}
	if out.Notify.Token != "" {
		out.Notify.Token = "***"
	}
	return out
}
