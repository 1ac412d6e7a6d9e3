package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"permitnorm/internal/config"
	"permitnorm/internal/connectors"
	gmailconnector "permitnorm/internal/connectors/gmail"
	imapconnector "permitnorm/internal/connectors/imap"
	"permitnorm/internal/intake"
	"permitnorm/internal/listener"
	"permitnorm/internal/runner"
)

var (
	intakeProvider  string
	intakeLabel     string
	intakeMax       int
	intakeBatch     int
	intakeAHJ       string
	intakeMessageID string
	intakeOnce      bool
)

var intakeCmd = &cobra.Command{
	Use:   "intake",
	Short: "Pull AHJ exports from a mailbox",
}

var intakeFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch emails with attachments into the local store",
	RunE:  runIntakeFetch,
}

var intakeProcessCmd = &cobra.Command{
	Use:   "process",
	Short: "Save export attachments of fetched emails under RAW_DIR/<AHJ>",
	RunE:  runIntakeProcess,
}

var intakeListenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Poll the mailbox: fetch, save exports and normalize touched AHJs",
	RunE:  runIntakeListen,
}

func init() {
	for _, c := range []*cobra.Command{intakeFetchCmd, intakeProcessCmd} {
		c.Flags().StringVar(&intakeProvider, "provider", "", "gmail|imap (defaults to INTAKE_PROVIDER)")
	}
	intakeFetchCmd.Flags().StringVar(&intakeLabel, "label", "", "mailbox or label (defaults to INTAKE_LABEL)")
	intakeFetchCmd.Flags().IntVar(&intakeMax, "max", 50, "maximum messages")
	intakeProcessCmd.Flags().IntVar(&intakeBatch, "batch", 20, "maximum emails to process")
	intakeProcessCmd.Flags().StringVar(&intakeAHJ, "ahj", "", "file every export under this AHJ (defaults to the mailbox name)")
	intakeProcessCmd.Flags().StringVar(&intakeMessageID, "message-id", "", "process one specific message")
	intakeListenCmd.Flags().BoolVar(&intakeOnce, "once", false, "run a single cycle and exit")

	intakeCmd.AddCommand(intakeFetchCmd, intakeProcessCmd, intakeListenCmd)
}

func provider(cfg config.Config) string {
	if intakeProvider != "" {
		return strings.ToLower(intakeProvider)
	}
	return strings.ToLower(cfg.IntakeProvider)
}

func makeConnector(cfg config.Config, provider string) (connectors.MailConnector, error) {
	switch provider {
	case "gmail":
		return gmailconnector.NewConnector(cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func runIntakeFetch(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	p := provider(a.cfg)
	conn, err := makeConnector(a.cfg, p)
	if err != nil {
		return err
	}
	label := intakeLabel
	if label == "" {
		label = a.cfg.IntakeLabel
	}
	ctx, cancel := signalContext()
	defer cancel()
	result, err := connectors.NewFetchService(a.db, a.cfg.RawMailDir, conn, a.logger).FetchAndStore(ctx, label, intakeMax)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "fetch done provider=%s label=%s fetched=%d stored=%d\n", p, label, result.Fetched, result.Stored)
	return nil
}

func runIntakeProcess(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	ahj := intakeAHJ
	if ahj == "" {
		ahj = a.cfg.IntakeAHJ
	}
	processor := intake.NewProcessingService(a.db, a.cfg.RawDir, ahj, a.logger)
	out := cmd.OutOrStdout()
	if strings.TrimSpace(intakeMessageID) != "" {
		res, err := processor.ProcessByProviderMessageID(provider(a.cfg), intakeMessageID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "email id=%d status=%s ahj=%s files=%d\n", res.EmailID, res.Status, res.AHJ, res.Saved)
		return nil
	}
	res, err := processor.ProcessPending(intakeBatch, intakeProvider)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "processed emails=%d files=%d failed=%d ahjs=%s\n", res.Emails, res.Saved, res.Failed, strings.Join(res.AHJs, ","))
	return nil
}

func runIntakeListen(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	svc := listener.NewService(a.db, a.cfg, runner.New(a.cfg, a.db, a.vocab, a.logger), a.logger)
	ctx, cancel := signalContext()
	defer cancel()
	if intakeOnce {
		res, err := svc.RunOnce(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "fetched=%d emails=%d files=%d normalized=%s\n", res.Fetched, res.Emails, res.Saved, strings.Join(res.Normalized, ","))
		return nil
	}
	return svc.Run(ctx)
}
