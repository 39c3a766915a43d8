package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/caseload/internal/batch"
	"github.com/pavelanni/caseload/internal/client"
	appI18n "github.com/pavelanni/caseload/internal/i18n"
	"github.com/pavelanni/caseload/internal/model"
	"github.com/pavelanni/caseload/internal/plan"
	"github.com/pavelanni/caseload/internal/transcript"
	"github.com/pavelanni/caseload/internal/wizard"
)

func addClientFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("api-url", "http://localhost:8080", "Caseload API base URL")
	f.String("token", "", "Bearer token (or set CASELOAD_TOKEN)")
	f.String("username", "", "Username to log in with when no token is set")
	f.String("password", "", "Password to log in with when no token is set")
	f.Duration("timeout", 30*time.Second, "Per-request timeout")
	f.StringP("lang", "l", "en", "Language for messages (en, es)")
	addLogFlags(cmd)
}

func logCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Log sessions from a manual plan file through the selection wizard",
		RunE:  runLog,
	}
	cmd.Flags().StringP("plan", "p", "", "Manual plan YAML file (required)")
	addClientFlags(cmd)
	_ = cmd.MarkFlagRequired("plan")
	return cmd
}

func transcriptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcript",
		Short: "Analyze session notes and log one entry per parsed session",
		RunE:  runTranscript,
	}
	f := cmd.Flags()
	f.StringP("file", "f", "", "Transcript text file, - for stdin (required)")
	f.StringP("plan", "p", "", "Optional overrides YAML file")
	f.Bool("dry-run", false, "Print the resolved sessions without submitting")
	addClientFlags(cmd)
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// session bundles what a client command needs: a logged-in API client and a context
// carrying the localizer.
type session struct {
	ctx    context.Context
	api    *client.Client
	out    io.Writer
	cancel context.CancelFunc
}

func openSession(cmd *cobra.Command, v *viper.Viper) (*session, error) {
	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return nil, fmt.Errorf("init i18n: %w", err)
	}
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	ctx = appI18n.WithLocalizer(ctx, appI18n.NewLocalizer(lang))

	api, err := client.New(client.Options{
		BaseURL: v.GetString("api-url"),
		Token:   v.GetString("token"),
		Timeout: v.GetDuration("timeout"),
	})
	if err != nil {
		cancel()
		return nil, err
	}
	if api.Token() == "" {
		user := v.GetString("username")
		if user == "" {
			cancel()
			return nil, errors.New("set --token or --username/--password")
		}
		if _, err := api.Login(ctx, user, v.GetString("password")); err != nil {
			cancel()
			return nil, err
		}
		slog.Debug("logged in", "username", user)
	}
	return &session{ctx: ctx, api: api, out: cmd.OutOrStdout(), cancel: cancel}, nil
}

// notice prints the localized message for err and returns err for cobra.
func (s *session) notice(err error) error {
	fmt.Fprintln(s.out, appI18n.Notice(s.ctx, err))
	return err
}

func runLog(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	m, err := plan.LoadManual(v.GetString("plan"))
	if err != nil {
		return err
	}
	s, err := openSession(cmd, v)
	if err != nil {
		return err
	}
	defer s.cancel()

	roster, err := s.api.Students(s.ctx)
	if err != nil {
		return err
	}
	w := wizard.NewController(s.ctx, s.api, wizard.WithFetchErrorHandler(func(fe *wizard.FetchError) {
		fmt.Fprintln(s.out, appI18n.Notice(s.ctx, fe))
	}))
	if err := m.Apply(w, roster); err != nil {
		return s.notice(err)
	}

	state := w.State()
	fmt.Fprintln(s.out, appI18n.ObjectivesFilled(s.ctx, state.Summary()))
	printSelection(s.out, state)
	objectives := make(map[int64]model.Objective)
	for _, sel := range state.Selection() {
		objectives[sel.Objective.ID] = sel.Objective
	}

	res, err := batch.New(s.api).SubmitManual(s.ctx, w)
	if err != nil {
		return s.notice(err)
	}
	s.report(res, objectives)
	return nil
}

func runTranscript(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	text, err := readInput(cmd, v.GetString("file"))
	if err != nil {
		return err
	}
	var overrides plan.Overrides
	if p := v.GetString("plan"); p != "" {
		if overrides, err = plan.LoadOverrides(p); err != nil {
			return err
		}
	}
	s, err := openSession(cmd, v)
	if err != nil {
		return err
	}
	defer s.cancel()

	sessions, err := s.api.AnalyzeTranscript(s.ctx, text)
	if err != nil {
		return err
	}
	r := transcript.New(sessions)
	if err := overrides.Review(r, slog.Default()); err != nil {
		return s.notice(err)
	}

	fmt.Fprintln(s.out, appI18n.SessionsResolved(s.ctx, r.Resolved(), r.Len()))
	objectives := make(map[int64]model.Objective)
	for i, ps := range r.Sessions() {
		c, _ := r.Choice(ps.ID)
		res, err := r.Resolve(ps.ID)
		if err != nil {
			fmt.Fprintf(s.out, "%d. %s\n", i+1, appI18n.Notice(s.ctx, err))
		} else {
			objectives[res.Objective.ID] = res.Objective
			fmt.Fprintf(s.out, "%d. %s: %s\n", i+1, res.Student.Name, res.Objective.Description)
		}
		printCandidates(s.out, ps, c)
	}
	if v.GetBool("dry-run") {
		return nil
	}

	res, err := batch.New(s.api).SubmitTranscript(s.ctx, r)
	if err != nil {
		return s.notice(err)
	}
	s.report(res, objectives)
	return nil
}

// report prints the logged count and whether each entry reached its objective's target.
func (s *session) report(res batch.Result, objectives map[int64]model.Objective) {
	fmt.Fprintln(s.out, appI18n.Tp(s.ctx, "SubmissionOK", len(res.Entries)))
	for _, e := range res.Entries {
		o, ok := objectives[e.ObjectiveID]
		if !ok {
			continue
		}
		verdict := appI18n.T(s.ctx, "BelowTarget")
		if o.MeetsTarget(e.ObjectiveProgress) {
			verdict = appI18n.T(s.ctx, "MetTarget")
		}
		fmt.Fprintf(s.out, "  #%d %s: %d/%d, %s\n", e.StudentID, o.Description,
			e.ObjectiveProgress.TrialsCompleted, e.ObjectiveProgress.TrialsTotal, verdict)
	}
}

func readInput(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	return string(data), nil
}
