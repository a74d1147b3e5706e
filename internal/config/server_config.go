package config

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

const envPrefix = "KEYLESS"

type LoggerServer struct {
	Level              zerolog.Level
	RequestLevel       zerolog.Level
	LogRequestBody     bool
	PrettyPrintConsole bool
}

type EchoServer struct {
	Debug         bool
	ListenAddress string
	// AuthToken is the bearer token of /rpc and /api/v1. Empty disables the check.
	AuthToken string `json:"-"`
	// PinAttemptsPerMinute and PinAttemptsBurst bound the requests carrying a PIN.
	PinAttemptsPerMinute float64
	PinAttemptsBurst     int
}

// CloudServer points at the identity/vault cloud.
type CloudServer struct {
	AuthURL string
	APIURL  string
	Timeout time.Duration
}

// SessionServer selects where the persisted session lives.
type SessionServer struct {
	Backend       string // memory, file or redis
	FilePath      string
	Secret        string `json:"-"`
	RedisAddr     string
	RedisPassword string `json:"-"`
	RedisDB       int
	RedisKey      string
}

type ChainsServer struct {
	File           string
	DefaultChainID int64
	RPCOverrides   map[int64]string
}

type BroadcastServer struct {
	PollInterval  time.Duration
	Confirmations uint64
}

type ManagementServer struct {
	EnableMetrics bool
}

type Server struct {
	Logger     LoggerServer
	Echo       EchoServer
	Cloud      CloudServer
	Session    SessionServer
	Chains     ChainsServer
	Broadcast  BroadcastServer
	Management ManagementServer
}

// DefaultServiceConfigFromEnv returns the server config as parsed from environment variables
// and their respective defaults defined below.
// A .env file in the working directory is loaded first if present.
func DefaultServiceConfigFromEnv() Server {
	if err := gotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Failed to load .env file")
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	v.SetDefault("LOGGER_LEVEL", "info")
	v.SetDefault("LOGGER_REQUEST_LEVEL", "debug")
	v.SetDefault("LOGGER_LOG_REQUEST_BODY", false)
	v.SetDefault("LOGGER_PRETTY_PRINT_CONSOLE", false)
	v.SetDefault("SERVER_DEBUG", false)
	v.SetDefault("SERVER_LISTEN_ADDRESS", "127.0.0.1:8080")
	v.SetDefault("SERVER_AUTH_TOKEN", "")
	v.SetDefault("SERVER_PIN_ATTEMPTS_PER_MINUTE", 6)
	v.SetDefault("SERVER_PIN_ATTEMPTS_BURST", 5)
	v.SetDefault("CLOUD_AUTH_URL", "https://auth.getsafle.com")
	v.SetDefault("CLOUD_API_URL", "https://api.getsafle.com")
	v.SetDefault("CLOUD_TIMEOUT", 10*time.Second)
	v.SetDefault("SESSION_BACKEND", "memory")
	v.SetDefault("SESSION_FILE_PATH", defaultSessionPath())
	v.SetDefault("SESSION_SECRET", "")
	v.SetDefault("SESSION_REDIS_ADDR", "127.0.0.1:6379")
	v.SetDefault("SESSION_REDIS_PASSWORD", "")
	v.SetDefault("SESSION_REDIS_DB", 0)
	v.SetDefault("SESSION_REDIS_KEY", "keyless:session")
	v.SetDefault("CHAINS_FILE", "")
	v.SetDefault("CHAINS_DEFAULT_CHAIN_ID", 1)
	v.SetDefault("CHAINS_RPC_OVERRIDES", "")
	v.SetDefault("BROADCAST_POLL_INTERVAL", 2*time.Second)
	v.SetDefault("BROADCAST_CONFIRMATIONS", 3)
	v.SetDefault("MANAGEMENT_ENABLE_METRICS", true)

	return Server{
		Logger: LoggerServer{
			Level:              parseLevel(v.GetString("LOGGER_LEVEL"), zerolog.InfoLevel),
			RequestLevel:       parseLevel(v.GetString("LOGGER_REQUEST_LEVEL"), zerolog.DebugLevel),
			LogRequestBody:     v.GetBool("LOGGER_LOG_REQUEST_BODY"),
			PrettyPrintConsole: v.GetBool("LOGGER_PRETTY_PRINT_CONSOLE"),
		},
		Echo: EchoServer{
			Debug:                v.GetBool("SERVER_DEBUG"),
			ListenAddress:        v.GetString("SERVER_LISTEN_ADDRESS"),
			AuthToken:            v.GetString("SERVER_AUTH_TOKEN"),
			PinAttemptsPerMinute: v.GetFloat64("SERVER_PIN_ATTEMPTS_PER_MINUTE"),
			PinAttemptsBurst:     v.GetInt("SERVER_PIN_ATTEMPTS_BURST"),
		},
		Cloud: CloudServer{
			AuthURL: strings.TrimRight(v.GetString("CLOUD_AUTH_URL"), "/"),
			APIURL:  strings.TrimRight(v.GetString("CLOUD_API_URL"), "/"),
			Timeout: v.GetDuration("CLOUD_TIMEOUT"),
		},
		Session: SessionServer{
			Backend:       strings.ToLower(v.GetString("SESSION_BACKEND")),
			FilePath:      v.GetString("SESSION_FILE_PATH"),
			Secret:        v.GetString("SESSION_SECRET"),
			RedisAddr:     v.GetString("SESSION_REDIS_ADDR"),
			RedisPassword: v.GetString("SESSION_REDIS_PASSWORD"),
			RedisDB:       v.GetInt("SESSION_REDIS_DB"),
			RedisKey:      v.GetString("SESSION_REDIS_KEY"),
		},
		Chains: ChainsServer{
			File:           v.GetString("CHAINS_FILE"),
			DefaultChainID: v.GetInt64("CHAINS_DEFAULT_CHAIN_ID"),
			RPCOverrides:   ParseRPCOverrides(v.GetString("CHAINS_RPC_OVERRIDES")),
		},
		Broadcast: BroadcastServer{
			PollInterval:  v.GetDuration("BROADCAST_POLL_INTERVAL"),
			Confirmations: v.GetUint64("BROADCAST_CONFIRMATIONS"),
		},
		Management: ManagementServer{
			EnableMetrics: v.GetBool("MANAGEMENT_ENABLE_METRICS"),
		},
	}
}

// ParseRPCOverrides parses "1=https://a,137=https://b" into a chain id keyed map.
// Malformed entries are skipped.
func ParseRPCOverrides(raw string) map[int64]string {
	overrides := make(map[int64]string)

	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		id, url, ok := strings.Cut(entry, "=")
		if !ok {
			log.Warn().Str("entry", entry).Msg("Ignoring malformed RPC override")
			continue
		}

		chainID, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
		if err != nil || strings.TrimSpace(url) == "" {
			log.Warn().Str("entry", entry).Msg("Ignoring malformed RPC override")
			continue
		}

		overrides[chainID] = strings.TrimSpace(url)
	}

	return overrides
}

func parseLevel(raw string, fallback zerolog.Level) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(raw))
	if err != nil || raw == "" {
		return fallback
	}

	return level
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".keyless/session.json"
	}

	return dir + "/keyless/session.json"
}

// ErrUnguardedListen is returned for a non loopback listen address without an auth token.
var ErrUnguardedListen = errors.New("refusing to listen on a non loopback address without KEYLESS_SERVER_AUTH_TOKEN")

// Validate checks that the management API is not exposed beyond localhost unauthenticated.
func (e EchoServer) Validate() error {
	if e.AuthToken != "" {
		return nil
	}

	host, _, err := net.SplitHostPort(e.ListenAddress)
	if err != nil {
		return errors.Wrapf(err, "invalid listen address %q", e.ListenAddress)
	}

	if host == "localhost" {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return nil
	}

	return errors.Wrap(ErrUnguardedListen, e.ListenAddress)
}
