package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/viper"
)

type Config struct {
	Datadir       string
	HTTPPort      uint32
	LogLevel      uint32
	DbType        string
	RpcUrls       map[string]string
	SwapContracts map[string]string
	WalletURL     string
	SessionSecret string
	SessionTTL    time.Duration
	SyncInterval  time.Duration
	SentryDSN     string
}

var (
	Datadir       = "DATADIR"
	HTTPPort      = "HTTP_PORT"
	LogLevel      = "LOG_LEVEL"
	DbType        = "DB_TYPE"
	RpcUrls       = "RPC_URLS"
	SwapContracts = "SWAP_CONTRACTS"
	WalletURL     = "WALLET_URL"
	SessionSecret = "SESSION_SECRET"
	SessionTTL    = "SESSION_TTL"
	SyncInterval  = "SYNC_INTERVAL"
	SentryDSN     = "SENTRY_DSN"

	defaultDatadir      = appDatadir("swaplink")
	defaultHTTPPort     = 7100
	defaultLogLevel     = 4
	defaultDbType       = "badger"
	defaultSessionTTL   = 24 * time.Hour
	defaultSyncInterval = time.Minute
)

func LoadConfig() (*Config, error) {
	viper.SetEnvPrefix("SWAPLINK")
	viper.AutomaticEnv()

	viper.SetDefault(Datadir, defaultDatadir)
	viper.SetDefault(HTTPPort, defaultHTTPPort)
	viper.SetDefault(LogLevel, defaultLogLevel)
	viper.SetDefault(DbType, defaultDbType)
	viper.SetDefault(SessionTTL, defaultSessionTTL)
	viper.SetDefault(SyncInterval, defaultSyncInterval)

	if err := initDatadir(); err != nil {
		return nil, fmt.Errorf("error while creating datadir: %s", err)
	}

	rpcUrls, err := parsePairs(viper.GetString(RpcUrls))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %s", RpcUrls, err)
	}
	swapContracts, err := parsePairs(viper.GetString(SwapContracts))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %s", SwapContracts, err)
	}

	config := &Config{
		Datadir:       viper.GetString(Datadir),
		HTTPPort:      viper.GetUint32(HTTPPort),
		LogLevel:      viper.GetUint32(LogLevel),
		DbType:        viper.GetString(DbType),
		RpcUrls:       rpcUrls,
		SwapContracts: swapContracts,
		WalletURL:     viper.GetString(WalletURL),
		SessionSecret: viper.GetString(SessionSecret),
		SessionTTL:    viper.GetDuration(SessionTTL),
		SyncInterval:  viper.GetDuration(SyncInterval),
		SentryDSN:     viper.GetString(SentryDSN),
	}

	if config.WalletURL == "" {
		return nil, fmt.Errorf("missing %s", WalletURL)
	}
	if config.SessionSecret == "" {
		return nil, fmt.Errorf("missing %s", SessionSecret)
	}
	if len(config.RpcUrls) == 0 {
		return nil, fmt.Errorf("missing %s", RpcUrls)
	}
	for network := range config.RpcUrls {
		if _, ok := config.SwapContracts[network]; !ok {
			return nil, fmt.Errorf("missing swap contract address for network %s", network)
		}
	}

	return config, nil
}

// parsePairs decodes "NETWORK=value,NETWORK=value" lists used for per-network
// settings.
func parsePairs(raw string) (map[string]string, error) {
	pairs := make(map[string]string)
	if raw == "" {
		return pairs, nil
	}
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(entry), "=", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("malformed entry %q, expected NETWORK=value", entry)
		}
		pairs[strings.ToUpper(parts[0])] = parts[1]
	}
	return pairs, nil
}

func initDatadir() error {
	datadir := viper.GetString(Datadir)
	return makeDirectoryIfNotExists(datadir)
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

// appDatadir returns an operating system specific directory for storing
// application data.
func appDatadir(appName string) string {
	if appName == "" || appName == "." {
		return "."
	}

	appName = strings.TrimPrefix(appName, ".")
	appNameUpper := string(unicode.ToUpper(rune(appName[0]))) + appName[1:]
	appNameLower := string(unicode.ToLower(rune(appName[0]))) + appName[1:]

	var homeDir string
	usr, err := user.Current()
	if err == nil {
		homeDir = usr.HomeDir
	}
	if err != nil || homeDir == "" {
		homeDir = os.Getenv("HOME")
	}

	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("LOCALAPPDATA")
		if appData == "" {
			appData = os.Getenv("APPDATA")
		}
		if appData != "" {
			return filepath.Join(appData, appNameUpper)
		}
	case "darwin":
		if homeDir != "" {
			return filepath.Join(homeDir, "Library", "Application Support", appNameUpper)
		}
	default:
		if homeDir != "" {
			return filepath.Join(homeDir, "."+appNameLower)
		}
	}

	return "."
}
