package config

import (
	"time"

	"github.com/spf13/viper"
)

type Solana struct {
	// JSON-RPC endpoint of the Solana node
	NodeUrl string

	// Websocket endpoint used for log subscriptions
	WsUrl string

	// Address of the lending protocol program
	ProgramAddress string

	// Path to the admin/deployer keypair file (Solana CLI JSON format)
	KeypairPath string

	// Commitment level used for queries and confirmations
	Commitment string

	// HTTP client configuration
	RequestTimeout       time.Duration
	DialerTimeout        time.Duration
	DialerKeepAlive      time.Duration
	IdleConnTimeout      time.Duration
	TLSHandshakeTimeout  time.Duration
	LimiterBurstSize     int
	LimiterRequestsLimit float64

	// How often transaction confirmation is polled
	ConfirmationPollInterval time.Duration

	// Max time to wait for a submitted transaction to confirm
	ConfirmationTimeout time.Duration
}

func setSolanaDefaults() {
	viper.SetDefault("Solana.NodeUrl", "http://127.0.0.1:8899")
	viper.SetDefault("Solana.WsUrl", "ws://127.0.0.1:8900")
	viper.SetDefault("Solana.ProgramAddress", "Count3AcZucFDPSFBAeHkQ6AvttieKUkyJ8HiQGhQwe")
	viper.SetDefault("Solana.KeypairPath", "./keypair.json")
	viper.SetDefault("Solana.Commitment", "confirmed")
	viper.SetDefault("Solana.RequestTimeout", "30s")
	viper.SetDefault("Solana.DialerTimeout", "30s")
	viper.SetDefault("Solana.DialerKeepAlive", "15s")
	viper.SetDefault("Solana.IdleConnTimeout", "31s")
	viper.SetDefault("Solana.TLSHandshakeTimeout", "10s")
	viper.SetDefault("Solana.LimiterBurstSize", "10")
	viper.SetDefault("Solana.LimiterRequestsLimit", "10")
	viper.SetDefault("Solana.ConfirmationPollInterval", "2s")
	viper.SetDefault("Solana.ConfirmationTimeout", "90s")
}
