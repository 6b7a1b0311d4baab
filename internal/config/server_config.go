package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Keys of every setting. The environment variable of a key is SIGNER_ + the key upper cased
// with dots replaced by underscores, e.g. SIGNER_BSIM_TRANSPORT.
const (
	envPrefix = "SIGNER"

	CfgDotEnvPath = "dotenv"

	CfgLoggerLevel              = "logger.level"
	CfgLoggerPrettyPrintConsole = "logger.prettyPrintConsole"

	CfgBSIMTransport     = "bsim.transport"
	CfgBSIMAID           = "bsim.aid"
	CfgBSIMPCSCDaemon    = "bsim.pcscDaemon"
	CfgBSIMReader        = "bsim.reader"
	CfgBSIMSimStatePath  = "bsim.simStatePath"
	CfgBSIMSimMnemonic   = "bsim.simMnemonic"
	CfgBSIMSimPassphrase = "bsim.simPassphrase"
	CfgBSIMAccountLimit  = "bsim.accountLimit"

	CfgVaultDir         = "vault.dir"
	CfgVaultLightScrypt = "vault.lightScrypt"

	CfgMetricsEnabled = "metrics.enabled"
)

const (
	BSIMTransportSim  = "sim"
	BSIMTransportPCSC = "pcsc"
)

type LoggerServer struct {
	Level              zerolog.Level
	PrettyPrintConsole bool
}

type BSIM struct {
	// Transport selects the card: "sim" for the software card, "pcsc" for a reader
	Transport     string
	AID           string
	PCSCDaemon    string
	Reader        string
	SimStatePath  string
	SimMnemonic   string `json:"-"`
	SimPassphrase string `json:"-"`
	AccountLimit  int
}

type Vault struct {
	Dir         string
	LightScrypt bool
}

type Metrics struct {
	Enabled bool
}

type Server struct {
	Logger  LoggerServer
	BSIM    BSIM
	Vault   Vault
	Metrics Metrics
}

// NewViper returns a viper instance reading SIGNER_* environment variables on top of the defaults
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dataDir := filepath.Join(home, ".go-signer")

	v.SetDefault(CfgDotEnvPath, ".env")

	v.SetDefault(CfgLoggerLevel, zerolog.InfoLevel.String())
	v.SetDefault(CfgLoggerPrettyPrintConsole, true)

	v.SetDefault(CfgBSIMTransport, BSIMTransportSim)
	v.SetDefault(CfgBSIMAID, "A000000533C000FF860000000000054D")
	v.SetDefault(CfgBSIMPCSCDaemon, "")
	v.SetDefault(CfgBSIMReader, "")
	v.SetDefault(CfgBSIMSimStatePath, filepath.Join(dataDir, "simcard.toml"))
	v.SetDefault(CfgBSIMSimMnemonic, "")
	v.SetDefault(CfgBSIMSimPassphrase, "")
	v.SetDefault(CfgBSIMAccountLimit, 25)

	v.SetDefault(CfgVaultDir, filepath.Join(dataDir, "vaults"))
	v.SetDefault(CfgVaultLightScrypt, false)

	v.SetDefault(CfgMetricsEnabled, true)

	return v
}

// LoadDotEnv loads path into the process environment without overriding variables already set.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}

	if err := gotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return errors.Wrapf(err, "failed to load %s", path)
	}

	return nil
}

// DefaultServiceConfigFromEnv returns the server config as parsed from environment variables
// and their respective defaults defined in NewViper
func DefaultServiceConfigFromEnv() Server {
	dotEnv := NewViper().GetString(CfgDotEnvPath)
	if err := LoadDotEnv(dotEnv); err != nil {
		log.Warn().Err(err).Str("path", dotEnv).Msg("Ignoring .env file")
	}

	return ServiceConfigFrom(NewViper())
}

// ServiceConfigFrom builds the server config from v
func ServiceConfigFrom(v *viper.Viper) Server {
	level, err := zerolog.ParseLevel(v.GetString(CfgLoggerLevel))
	if err != nil {
		log.Warn().Err(err).Str("level", v.GetString(CfgLoggerLevel)).Msg("Invalid log level, using info")
		level = zerolog.InfoLevel
	}

	return Server{
		Logger: LoggerServer{
			Level:              level,
			PrettyPrintConsole: v.GetBool(CfgLoggerPrettyPrintConsole),
		},
		BSIM: BSIM{
			Transport:     strings.ToLower(v.GetString(CfgBSIMTransport)),
			AID:           v.GetString(CfgBSIMAID),
			PCSCDaemon:    v.GetString(CfgBSIMPCSCDaemon),
			Reader:        v.GetString(CfgBSIMReader),
			SimStatePath:  v.GetString(CfgBSIMSimStatePath),
			SimMnemonic:   v.GetString(CfgBSIMSimMnemonic),
			SimPassphrase: v.GetString(CfgBSIMSimPassphrase),
			AccountLimit:  v.GetInt(CfgBSIMAccountLimit),
		},
		Vault: Vault{
			Dir:         v.GetString(CfgVaultDir),
			LightScrypt: v.GetBool(CfgVaultLightScrypt),
		},
		Metrics: Metrics{
			Enabled: v.GetBool(CfgMetricsEnabled),
		},
	}
}
