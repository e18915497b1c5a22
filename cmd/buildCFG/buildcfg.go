package buildCFG

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"
)

type ServerConfig struct {
	Port string
}

type RabbitConfig struct {
	Url      string
	Exchange string
	Queue    string
}

type MailConfig struct {
	Host     string
	Port     string
	From     string
	Password string
}

// AccessConfig carries the admission policy knobs: the default allocation cap
// used by lazy provisioning, the per-call store timeout, and the bounded read
// retry strategy.
type AccessConfig struct {
	DefaultCap    int
	LazyProvision bool
	StoreTimeout  time.Duration
	ReadRetry     retry.Strategy
}

func BuildServerConfig(cfg *config.Config, log *zerolog.Logger) ServerConfig {
	port := cfg.GetString("server.port")
	if port == "" {
		port = "8080"
		log.Warn().Msg("server.port not set, defaulting to 8080")
	}
	return ServerConfig{Port: port}
}

func BuildDBConfig(cfg *config.Config, log *zerolog.Logger) (string, []string, *dbpg.Options, error) {
	masterDSN := cfg.GetString("database.master_dsn")
	if masterDSN == "" {
		return "", nil, nil, fmt.Errorf("database.master_dsn is required")
	}

	var slaveDSNs []string
	if slave := cfg.GetString("database.slave_dsn"); slave != "" {
		slaveDSNs = append(slaveDSNs, slave)
	}

	opts := &dbpg.Options{
		MaxOpenConns:    cfg.GetInt("database.max_open_conns"),
		MaxIdleConns:    cfg.GetInt("database.max_idle_conns"),
		ConnMaxLifetime: time.Duration(cfg.GetInt("database.conn_max_lifetime_seconds")) * time.Second,
	}

	log.Info().Int("slaves", len(slaveDSNs)).Msg("database config assembled")
	return masterDSN, slaveDSNs, opts, nil
}

func BuildRabbitConfig(cfg *config.Config, log *zerolog.Logger) (RabbitConfig, error) {
	rc := RabbitConfig{
		Url:      cfg.GetString("rabbit.url"),
		Exchange: cfg.GetString("rabbit.exchange"),
		Queue:    cfg.GetString("rabbit.queue"),
	}
	if rc.Url == "" {
		return rc, fmt.Errorf("rabbit.url is required")
	}
	if rc.Exchange == "" {
		rc.Exchange = "scan_events"
	}
	if rc.Queue == "" {
		rc.Queue = "scan_events_notifications"
	}
	log.Info().Str("exchange", rc.Exchange).Str("queue", rc.Queue).Msg("rabbit config assembled")
	return rc, nil
}

func BuildMailConfig(cfg *config.Config) MailConfig {
	return MailConfig{
		Host:     cfg.GetString("mail.host"),
		Port:     cfg.GetString("mail.port"),
		From:     cfg.GetString("mail.from"),
		Password: cfg.GetString("mail.password"),
	}
}

func BuildAccessConfig(cfg *config.Config, log *zerolog.Logger) AccessConfig {
	ac := AccessConfig{
		DefaultCap:    cfg.GetInt("access.default_cap"),
		LazyProvision: cfg.GetInt("access.lazy_provision") != 0,
		StoreTimeout:  time.Duration(cfg.GetInt("access.store_timeout_ms")) * time.Millisecond,
		ReadRetry: retry.Strategy{
			Attempts: cfg.GetInt("access.read_retry_attempts"),
			Delay:    time.Duration(cfg.GetInt("access.read_retry_delay_ms")) * time.Millisecond,
			Backoff:  2,
		},
	}
	if ac.DefaultCap <= 0 {
		ac.DefaultCap = 10000
		log.Warn().Msg("access.default_cap not set, defaulting to 10000")
	}
	if ac.StoreTimeout <= 0 {
		ac.StoreTimeout = 5 * time.Second
	}
	if ac.ReadRetry.Attempts <= 0 {
		ac.ReadRetry = retry.Strategy{Attempts: 3, Delay: 100 * time.Millisecond, Backoff: 2}
	}
	return ac
}
