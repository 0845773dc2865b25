package config

import (
	"os/user"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/wal-g/tracelog"
)

const (
	LogLevelSetting             = "SENDSTREAM_LOG_LEVEL"
	ThreadsSetting              = "SENDSTREAM_THREADS"
	CompressionSetting          = "SENDSTREAM_COMPRESSION"
	ArtifactCompressionSetting  = "SENDSTREAM_ARTIFACT_COMPRESSION"
	ChecksumAlgoSetting         = "SENDSTREAM_CHECKSUM_ALGO"
	TargetVersionSetting        = "SENDSTREAM_TARGET_VERSION"
	MaxBatchedExtentSizeSetting = "SENDSTREAM_MAX_BATCHED_EXTENT_SIZE"
	ReadBufferSizeSetting       = "SENDSTREAM_READ_BUFFER_SIZE"
	BufferPoolSizeSetting       = "SENDSTREAM_BUFFER_POOL_SIZE"
	InFlightLimitSetting        = "SENDSTREAM_IN_FLIGHT_LIMIT"
	CheckoutTimeoutSetting      = "SENDSTREAM_CHECKOUT_TIMEOUT"
	ReadRateLimitSetting        = "SENDSTREAM_READ_RATE_LIMIT"
	TimeoutSetting              = "SENDSTREAM_TIMEOUT"

	GoMaxProcsSetting = "GOMAXPROCS"

	ProfileSamplingRatio = "PROFILE_SAMPLING_RATIO"
	ProfileMode          = "PROFILE_MODE"
	ProfilePath          = "PROFILE_PATH"
)

var (
	// CfgFile is set by the --config root flag before InitConfig runs.
	CfgFile string

	AllowedSettings = map[string]bool{
		LogLevelSetting:             true,
		ThreadsSetting:              true,
		CompressionSetting:          true,
		ArtifactCompressionSetting:  true,
		ChecksumAlgoSetting:         true,
		TargetVersionSetting:        true,
		MaxBatchedExtentSizeSetting: true,
		ReadBufferSizeSetting:       true,
		BufferPoolSizeSetting:       true,
		InFlightLimitSetting:        true,
		CheckoutTimeoutSetting:      true,
		ReadRateLimitSetting:        true,
		TimeoutSetting:              true,
		GoMaxProcsSetting:           true,
		ProfileSamplingRatio:        true,
		ProfileMode:                 true,
		ProfilePath:                 true,
	}

	defaultConfigValues = map[string]string{
		LogLevelSetting:             tracelog.NormalLogLevel,
		CompressionSetting:          "zstd:3",
		ArtifactCompressionSetting:  "none",
		ChecksumAlgoSetting:         "none",
		TargetVersionSetting:        "2",
		MaxBatchedExtentSizeSetting: "131072",
		ReadBufferSizeSetting:       "8192",
		BufferPoolSizeSetting:       "32",
		InFlightLimitSetting:        "64",
		CheckoutTimeoutSetting:      "0",
		ReadRateLimitSetting:        "0",
		TimeoutSetting:              "0",
	}
)

// InitConfig reads config file and ENV variables if set.
func InitConfig() {
	globalViper := viper.GetViper()
	globalViper.AutomaticEnv()
	SetDefaultValues(globalViper)
	SetGoMaxProcs(globalViper)
	ReadConfigFromFile(globalViper, CfgFile)
	CheckAllowedSettings(globalViper)
}

// SetDefaultValues set default settings to the viper instance
func SetDefaultValues(config *viper.Viper) {
	for setting, value := range defaultConfigValues {
		config.SetDefault(setting, value)
	}
}

func SetGoMaxProcs(config *viper.Viper) {
	gomaxprocs := config.GetInt(GoMaxProcsSetting)
	if gomaxprocs > 0 {
		runtime.GOMAXPROCS(gomaxprocs)
	}
}

// ReadConfigFromFile read config to the viper instance
func ReadConfigFromFile(config *viper.Viper, configFile string) {
	if configFile != "" {
		config.SetConfigFile(configFile)
	} else {
		usr, err := user.Current()
		if err != nil {
			return
		}
		config.AddConfigPath(usr.HomeDir)
		config.SetConfigName(".sendstream")
	}

	err := config.ReadInConfig()
	if err == nil {
		tracelog.DebugLogger.Println("Using config file:", config.ConfigFileUsed())
	} else if config.ConfigFileUsed() != "" {
		tracelog.WarningLogger.Printf("Failed to parse config file %s. %s.", config.ConfigFileUsed(), err)
	}
}

// CheckAllowedSettings warnings if a viper instance's setting not allowed
func CheckAllowedSettings(config *viper.Viper) {
	for k := range config.AllSettings() {
		k = strings.ToUpper(k)
		if !AllowedSettings[k] {
			tracelog.WarningLogger.Println(k + " is unknown")
		}
	}
}

// AddConfigFlags exposes every allowed setting as a hidden string flag so
// any SENDSTREAM_* variable can also be passed on the command line.
func AddConfigFlags(cmd *cobra.Command) {
	cfgFlags := &pflag.FlagSet{}
	for k := range AllowedSettings {
		flagName := toFlagName(k)
		cfgFlags.String(flagName, "", "")
		_ = viper.BindPFlag(k, cfgFlags.Lookup(flagName))
	}
	cfgFlags.VisitAll(func(f *pflag.Flag) {
		f.Hidden = true
	})
	cmd.PersistentFlags().AddFlagSet(cfgFlags)
}

// ConfigureLogging applies SENDSTREAM_LOG_LEVEL to the tracelog loggers.
func ConfigureLogging() error {
	if viper.IsSet(LogLevelSetting) {
		return tracelog.UpdateLogLevel(viper.GetString(LogLevelSetting))
	}
	return nil
}

func toFlagName(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), "_", "-")
}
