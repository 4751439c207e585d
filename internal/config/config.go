package config

import (
	"github.com/spf13/viper"
)

// Lists holds the display names of the Trello lists the dashboard reads and
// writes. Names must match the board exactly (emoji included); the board
// client only trims surrounding whitespace.
type Lists struct {
	Requests     string
	Reserved     string
	Ongoing      string
	Done         string
	Canceled     string
	Vehicles     string
	Clients      string
	InvoicesOpen string
	InvoicesPaid string
	Expenses     string
}

// Lessor identifies the rental company on generated contracts.
type Lessor struct {
	Name    string
	Phone   string
	Address string
}

type Config struct {
	Port          string
	SessionSecret string

	AdminPassword string
	AgentPassword string

	TrelloKey   string
	TrelloToken string
	BoardRef    string // 24-hex id, shortLink, or board URL

	Lists  Lists
	Lessor Lessor

	ContractsDB string
}

// Load reads an optional config.toml from the working directory, then lets
// environment variables override everything. Every list name has a default so
// a fresh board bootstrapped with the standard labels works out of the box.
func Load() *Config {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // missing file is fine, env vars carry the rest

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.session_secret", "change-me")
	v.SetDefault("contracts.db_path", "contracts.db")

	v.SetDefault("lists.requests", "📥 DEMANDES")
	v.SetDefault("lists.reserved", "📅 RÉSERVÉES")
	v.SetDefault("lists.ongoing", "🔑 EN COURS")
	v.SetDefault("lists.done", "✅ TERMINÉES")
	v.SetDefault("lists.canceled", "❌ ANNULÉES")
	v.SetDefault("lists.vehicles", "🚗 VÉHICULES")
	v.SetDefault("lists.clients", "👤 CLIENTS")
	v.SetDefault("lists.invoices_open", "🧾 FACTURES - OUVERTES")
	v.SetDefault("lists.invoices_paid", "💰 FACTURES - PAYÉES")
	v.SetDefault("lists.expenses", "💸 DÉPENSES")

	v.SetDefault("lessor.name", "")
	v.SetDefault("lessor.phone", "")
	v.SetDefault("lessor.address", "")

	bind := func(key, env string) {
		_ = v.BindEnv(key, env)
	}
	bind("server.port", "PORT")
	bind("server.session_secret", "SESSION_SECRET")
	bind("auth.admin_password", "ADMIN_PASSWORD")
	bind("auth.agent_password", "AGENT_PASSWORD")
	bind("trello.key", "TRELLO_KEY")
	bind("trello.token", "TRELLO_TOKEN")
	bind("trello.board", "TRELLO_BOARD")
	bind("contracts.db_path", "CONTRACTS_DB")
	bind("lists.requests", "LIST_DEMANDES")
	bind("lists.reserved", "LIST_RESERVED")
	bind("lists.ongoing", "LIST_ONGOING")
	bind("lists.done", "LIST_DONE")
	bind("lists.canceled", "LIST_CANCELED")
	bind("lists.vehicles", "LIST_VEHICLES")
	bind("lists.clients", "LIST_CLIENTS")
	bind("lists.invoices_open", "LIST_INVOICES_OPEN")
	bind("lists.invoices_paid", "LIST_INVOICES_PAID")
	bind("lists.expenses", "LIST_EXPENSES")
	bind("lessor.name", "LESSOR_NAME")
	bind("lessor.phone", "LESSOR_PHONE")
	bind("lessor.address", "LESSOR_ADDRESS")

	return &Config{
		Port:          v.GetString("server.port"),
		SessionSecret: v.GetString("server.session_secret"),
		AdminPassword: v.GetString("auth.admin_password"),
		AgentPassword: v.GetString("auth.agent_password"),
		TrelloKey:     v.GetString("trello.key"),
		TrelloToken:   v.GetString("trello.token"),
		BoardRef:      v.GetString("trello.board"),
		Lists: Lists{
			Requests:     v.GetString("lists.requests"),
			Reserved:     v.GetString("lists.reserved"),
			Ongoing:      v.GetString("lists.ongoing"),
			Done:         v.GetString("lists.done"),
			Canceled:     v.GetString("lists.canceled"),
			Vehicles:     v.GetString("lists.vehicles"),
			Clients:      v.GetString("lists.clients"),
			InvoicesOpen: v.GetString("lists.invoices_open"),
			InvoicesPaid: v.GetString("lists.invoices_paid"),
			Expenses:     v.GetString("lists.expenses"),
		},
		Lessor: Lessor{
			Name:    v.GetString("lessor.name"),
			Phone:   v.GetString("lessor.phone"),
			Address: v.GetString("lessor.address"),
		},
		ContractsDB: v.GetString("contracts.db_path"),
	}
}
