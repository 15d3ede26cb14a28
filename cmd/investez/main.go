// InvestEz — conversational investment research assistant for Indian markets.
//
// Main CLI entrypoint using the cobra command framework.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/seenimoa/investez/api"
	"github.com/seenimoa/investez/internal/agent"
	"github.com/seenimoa/investez/internal/broker"
	"github.com/seenimoa/investez/internal/config"
	"github.com/seenimoa/investez/internal/datasource"
	"github.com/seenimoa/investez/internal/logging"
	"github.com/seenimoa/investez/internal/portfolio"
	"github.com/seenimoa/investez/internal/store"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var (
	cfg    *config.Config
	logger zerolog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "investez",
	Short: "InvestEz — your investment research assistant",
	Long: `InvestEz is a conversational assistant for Indian markets: stock
fundamentals from Screener.in, mutual fund NAVs from AMFI, market news,
and a consolidated portfolio across Zerodha Kite and Groww.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		var err error
		if configFile, _ := cmd.Flags().GetString("config"); configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := cfg.Logging.Level
		if override, _ := cmd.Flags().GetString("log-level"); override != "" {
			level = override
		}
		logger = logging.NewWithConfig(logging.Config{
			Level:      level,
			Console:    false, // keep stdout clean for conversation output
			File:       cfg.Logging.File,
			FilePath:   cfg.Logging.Path,
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     30,
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(portfolioCmd)
	rootCmd.AddCommand(fundsCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(credentialsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
}

// ── Shared wiring ──

// deps builds the data sources, brokers and agents the commands share.
type deps struct {
	screener *datasource.Screener
	amfi     *datasource.AMFI
	mfapi    *datasource.MFAPI
	news     *datasource.GoogleNews
	kite     *broker.Kite
	groww    *broker.Groww
}

func buildDeps() *deps {
	return &deps{
		screener: datasource.NewScreener(),
		amfi:     datasource.NewAMFI(),
		mfapi:    datasource.NewMFAPI(),
		news:     datasource.NewGoogleNews(),
		kite: broker.NewKite(broker.KiteConfig{
			APIKey:    cfg.Brokers.Kite.APIKey,
			APISecret: cfg.Brokers.Kite.APISecret,
			TokenPath: cfg.Brokers.Kite.TokenPath,
		}),
		groww: broker.NewGroww(broker.GrowwConfig{
			AccessToken: cfg.Brokers.Groww.AccessToken,
		}),
	}
}

func (d *deps) stockAgent() *agent.StockAgent {
	var quotes agent.QuoteSource
	if d.kite.IsConnected() {
		quotes = d.kite
	}
	return agent.NewStockAgent(d.screener, quotes, d.news, logger)
}

func (d *deps) mfAgent() *agent.MFAgent {
	return agent.NewMFAgent(d.amfi, d.mfapi, d.news, logger)
}

func (d *deps) newsAgent() *agent.NewsAgent {
	return agent.NewNewsAgent(d.news, logger)
}

func (d *deps) aggregator() *portfolio.Aggregator {
	cfgP := portfolio.Config{
		Kite:         d.kite,
		Fundamentals: d.screener,
		Concurrency:  cfg.Data.EnrichConcurrency,
		Logger:       logger,
	}
	if d.groww.IsConnected() {
		cfgP.Groww = d.groww
	}
	return portfolio.New(cfgP)
}

func conversationStore() (*store.ConversationStore, error) {
	return store.NewConversationStore(cfg.Store.ConversationsDir)
}

func credentialStore() (*store.CredentialStore, error) {
	if cfg.Store.EncryptionKey == "" {
		return nil, fmt.Errorf("store.encryption_key is not set; run 'investez credentials generate-key' and add it to the config or INVESTEZ_STORE_ENCRYPTION_KEY")
	}
	return store.NewCredentialStore(cfg.Store.DatabasePath, cfg.Store.EncryptionKey)
}

// ── Version Command ──

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("InvestEz %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// ── Serve Command ──

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		d := buildDeps()

		sessions, err := conversationStore()
		if err != nil {
			return err
		}

		api.Version = version
		srv := api.NewServer(api.ServerConfig{
			Config:    cfg,
			Stock:     d.stockAgent(),
			MF:        d.mfAgent(),
			News:      d.newsAgent(),
			Portfolio: d.aggregator(),
			Funds:     d.amfi,
			Sessions:  sessions,
			Logger:    logger,
		})

		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		fmt.Printf("🌐 InvestEz API server listening on %s\n", addr)
		return srv.ListenAndServe(addr)
	},
}

// ── Login Command ──

var loginCmd = &cobra.Command{
	Use:   "login [request_token]",
	Short: "Authenticate the Kite broker session",
	Long: `Authenticate with Zerodha Kite Connect.

Without arguments, prints the login URL to open in a browser. After
logging in, Zerodha redirects with a request_token; pass it back here
to complete the session:

  investez login
  investez login <request_token>`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Brokers.Kite.APIKey == "" {
			return fmt.Errorf("kite api_key is not configured")
		}

		d := buildDeps()
		if len(args) == 0 {
			fmt.Println("Open this URL in a browser to log in to Kite:")
			fmt.Println("  " + d.kite.LoginURL())
			fmt.Println("\nThen run: investez login <request_token>")
			return nil
		}

		if err := d.kite.CompleteLogin(args[0]); err != nil {
			return fmt.Errorf("kite login failed: %w", err)
		}
		fmt.Println("✅ Kite session saved. Valid until the next market-day expiry.")
		return nil
	},
}

// ── Credentials Commands ──

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage stored broker credentials",
}

var credentialsGenerateKeyCmd = &cobra.Command{
	Use:   "generate-key",
	Short: "Generate a new encryption key for the credential store",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := store.GenerateEncryptionKey()
		if err != nil {
			return err
		}
		fmt.Println(key)
		fmt.Fprintln(os.Stderr, "\nAdd this as store.encryption_key in the config file, or set INVESTEZ_STORE_ENCRYPTION_KEY.")
		return nil
	},
}

var credentialsSetCmd = &cobra.Command{
	Use:   "set [broker]",
	Short: "Store a broker's API key and secret (encrypted at rest)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		apiKey, _ := cmd.Flags().GetString("api-key")
		apiSecret, _ := cmd.Flags().GetString("api-secret")
		if apiKey == "" || apiSecret == "" {
			return fmt.Errorf("--api-key and --api-secret are required")
		}

		cs, err := credentialStore()
		if err != nil {
			return err
		}
		defer cs.Close()

		if err := cs.SaveCredentials(args[0], apiKey, apiSecret); err != nil {
			return err
		}
		fmt.Printf("✅ Credentials stored for %s\n", args[0])
		return nil
	},
}

var credentialsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List brokers with stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		cs, err := credentialStore()
		if err != nil {
			return err
		}
		defer cs.Close()

		statuses, err := cs.List()
		if err != nil {
			return err
		}
		if len(statuses) == 0 {
			fmt.Println("No stored credentials.")
			return nil
		}
		for b, status := range statuses {
			fmt.Printf("  %-10s %s\n", b, status)
		}
		return nil
	},
}

func init() {
	credentialsSetCmd.Flags().String("api-key", "", "broker API key")
	credentialsSetCmd.Flags().String("api-secret", "", "broker API secret")

	credentialsCmd.AddCommand(credentialsGenerateKeyCmd)
	credentialsCmd.AddCommand(credentialsSetCmd)
	credentialsCmd.AddCommand(credentialsListCmd)
}

// ── Status Command ──

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		d := buildDeps()

		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  InvestEz — System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:        %s (%s)\n", version, commit)
		fmt.Println()

		fmt.Println("  Configuration:")
		fmt.Printf("    Conversations: %s\n", cfg.Store.ConversationsDir)
		fmt.Printf("    Database:      %s\n", cfg.Store.DatabasePath)
		fmt.Printf("    API Server:    %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Println()

		fmt.Println("  Brokers:")
		kiteStatus := "❌ not connected (run 'investez login')"
		if d.kite.IsConnected() {
			kiteStatus = "✅ connected"
		}
		growwStatus := "❌ not configured"
		if d.groww.IsConnected() {
			growwStatus = "✅ configured"
		}
		fmt.Printf("    Kite:          %s\n", kiteStatus)
		fmt.Printf("    Groww:         %s\n", growwStatus)
		fmt.Println()

		fmt.Println("  Credentials:")
		for _, c := range config.CheckCredentials(cfg) {
			status := "❌ not set"
			if c.IsSet {
				status = fmt.Sprintf("✅ set (%s)", c.Masked)
			}
			fmt.Printf("    %-20s %s\n", c.Name+":", status)
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
