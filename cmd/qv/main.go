package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"queueview/internal/config"
	"queueview/internal/db"
	"queueview/internal/domain"
	"queueview/internal/engine"
	"queueview/internal/genesys"
	"queueview/internal/history"
	"queueview/internal/logging"
	"queueview/internal/mta"
	"queueview/internal/presence"
	"queueview/internal/server"
	"queueview/internal/tickets"
)

var rootCmd = &cobra.Command{
	Use:   "qv",
	Short: "Queueview CLI",
	Long: `Queueview joins ticket ownership to live agent presence.
It fetches a routing queue's roster and presence from the contact-center
cloud, the open tickets from the MTA backend, and correlates the two by
normalized owner name so you can see at a glance whether the person a
ticket is waiting on is actually at their desk.`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("QUEUEVIEW")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(presenceCmd())
	rootCmd.AddCommand(ticketsCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(serveCmd())
}

func reportCmd() *cobra.Command {
	var queue string
	var statuses []string
	var save bool
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Unified ticket and presence report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()
			if err := errors.Join(cfg.ValidateGenesys(), cfg.ValidateMTA()); err != nil {
				return err
			}
			queue, statuses = applyReportDefaults(cfg, queue, statuses)
			if queue == "" {
				return cfg.ValidateQueue()
			}

			e := buildEngine(cfg, log)
			rows, err := e.BuildReport(cmd.Context(), queue, statuses)
			if err != nil {
				return err
			}
			if save {
				snap, err := saveSnapshot(cmd.Context(), queue, rows)
				if err != nil {
					return err
				}
				log.Info("snapshot saved", zap.String("id", snap.ID))
			}
			if viper.GetBool("json") {
				return printJSON(rows)
			}
			renderReport(queue, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&queue, "queue", "", "routing queue name (default from config)")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "ticket statuses to include (default from config)")
	cmd.Flags().BoolVar(&save, "save", false, "persist this run to the workspace history")
	return cmd
}

func presenceCmd() *cobra.Command {
	var queue string
	cmd := &cobra.Command{
		Use:   "presence",
		Short: "Live presence for a queue's agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()
			if err := cfg.ValidateGenesys(); err != nil {
				return err
			}
			if queue == "" {
				queue = cfg.Report.Queue
			}
			if queue == "" {
				return cfg.ValidateQueue()
			}

			src := &presence.Source{Backend: newGenesysClient(cfg), Log: log}
			agents, err := src.Agents(cmd.Context(), queue)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(agents)
			}
			renderPresence(queue, agents)
			return nil
		},
	}
	cmd.Flags().StringVar(&queue, "queue", "", "routing queue name (default from config)")
	return cmd
}

func ticketsCmd() *cobra.Command {
	var statuses []string
	cmd := &cobra.Command{
		Use:   "tickets",
		Short: "Filtered ticket list",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()
			if err := cfg.ValidateMTA(); err != nil {
				return err
			}
			if len(statuses) == 0 {
				statuses = cfg.Report.Statuses
			}

			src := &tickets.Source{Backend: mta.New(cfg.MTA.TicketURL, cfg.MTA.BearerToken), Log: log}
			list, err := src.Fetch(cmd.Context())
			if err != nil {
				return err
			}
			filtered := tickets.FilterByStatus(list, statuses)
			if viper.GetBool("json") {
				return printJSON(filtered)
			}
			renderTickets(filtered)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "ticket statuses to include (default from config)")
	return cmd
}

func historyCmd() *cobra.Command {
	hist := &cobra.Command{Use: "history", Short: "Saved report snapshots"}
	hist.AddCommand(historyListCmd())
	hist.AddCommand(historyShowCmd())
	return hist
}

func historyListCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(store history.Store) error {
				items, err := store.List(cmd.Context(), n)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Queue", "Created"})
				for _, s := range items {
					tw.AppendRow(table.Row{s.ID, s.Queue, s.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of snapshots")
	return cmd
}

func historyShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(store history.Store) error {
				snap, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(snap)
				}
				fmt.Printf("Snapshot %s (queue %s, %s)\n", snap.ID, snap.Queue, snap.CreatedAt)
				renderReport(snap.Queue, snap.Rows)
				return nil
			})
		},
	}
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the report over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()
			if err := errors.Join(cfg.ValidateGenesys(), cfg.ValidateMTA(), cfg.ValidateServer()); err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if basePath != "" {
				cfg.Server.BasePath = basePath
			}

			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()

			handler, err := server.New(server.Config{
				Engine:   buildEngine(cfg, log),
				History:  &history.Store{DB: conn},
				Defaults: cfg.Report,
				BasePath: cfg.Server.BasePath,
				Auth:     server.AuthConfig{JWTSecret: cfg.Server.JWTSecret},
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: cfg.Server.Addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			log.Info("serving queueview API",
				zap.String("addr", cfg.Server.Addr),
				zap.String("base_path", cfg.Server.BasePath))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (default from config)")
	return cmd
}

// --- helpers ---

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(viper.GetString("workspace"))
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func newGenesysClient(cfg *config.Config) *genesys.Client {
	return genesys.New(cfg.Genesys.ClientID, cfg.Genesys.ClientSecret, cfg.Genesys.Region)
}

func buildEngine(cfg *config.Config, log *zap.Logger) engine.Engine {
	return engine.New(
		&presence.Source{Backend: newGenesysClient(cfg), Log: log},
		&tickets.Source{Backend: mta.New(cfg.MTA.TicketURL, cfg.MTA.BearerToken), Log: log},
		log,
	)
}

func applyReportDefaults(cfg *config.Config, queue string, statuses []string) (string, []string) {
	if queue == "" {
		queue = cfg.Report.Queue
	}
	if len(statuses) == 0 {
		statuses = cfg.Report.Statuses
	}
	return queue, statuses
}

func withStore(fn func(history.Store) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(history.Store{DB: conn})
}

func saveSnapshot(ctx context.Context, queue string, rows []domain.CorrelatedRow) (domain.ReportSnapshot, error) {
	var snap domain.ReportSnapshot
	err := withStore(func(store history.Store) error {
		var err error
		snap, err = store.Save(ctx, queue, rows)
		return err
	})
	return snap, err
}

func renderReport(queue string, rows []domain.CorrelatedRow) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetTitle("Queue %s", queue)
	tw.AppendHeader(table.Row{"Ticket ID", "Customer", "Title", "Owner", "Owner Presence", "Status", "Severity"})
	for _, r := range rows {
		tw.AppendRow(table.Row{
			r.Ticket.TicketID,
			r.Ticket.Customer,
			r.Ticket.Title,
			r.Ticket.OwnerFullName,
			presenceCell(r.OwnerPresence),
			r.Ticket.Status,
			r.Ticket.Severity,
		})
	}
	tw.Render()
}

func renderPresence(queue string, agents []domain.AgentPresence) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetTitle("Current status for queue %s", queue)
	tw.AppendHeader(table.Row{"Agent", "Status"})
	for _, a := range agents {
		tw.AppendRow(table.Row{a.DisplayName, presenceCell(a.State)})
	}
	tw.Render()
}

func renderTickets(list []domain.Ticket) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Ticket ID", "Customer", "Title", "Owner", "Status", "Severity"})
	for _, t := range list {
		tw.AppendRow(table.Row{t.TicketID, t.Customer, t.Title, t.OwnerFullName, t.Status, t.Severity})
	}
	tw.Render()
}

func presenceCell(state domain.PresenceState) string {
	switch state {
	case domain.PresenceOnline:
		return text.FgGreen.Sprint(state)
	case domain.PresenceOffline:
		return text.FgRed.Sprint(state)
	case domain.PresenceBusy, domain.PresenceAway, domain.PresenceMeal:
		return text.FgYellow.Sprint(state)
	default:
		return string(state)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
