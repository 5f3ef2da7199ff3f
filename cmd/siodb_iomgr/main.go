package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/siodb/siodb/pkg/cipher"
	"github.com/siodb/siodb/pkg/config"
	"github.com/siodb/siodb/pkg/instance"
	"github.com/siodb/siodb/pkg/logging"
	"github.com/siodb/siodb/pkg/metrics"
)

// Version is set via ldflags during build.
var Version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "siodb_iomgr",
	Short:   "Siodb storage engine process",
	Version: Version,
	RunE:    runIomgr,
}

func init() {
	rootCmd.Flags().String("instance", "", "instance name (falls back to SIODB_INSTANCE)")
	rootCmd.Flags().String("config", "", "path to the instance config file (defaults to /etc/siodb/instances/<name>/config)")
	rootCmd.Flags().String("data-dir", "", "override the data directory from the config file")
	rootCmd.Flags().String("metrics-addr", "127.0.0.1:9060", "address metrics and health endpoints listen on")
}

func runIomgr(cmd *cobra.Command, args []string) error {
	flagInstance, _ := cmd.Flags().GetString("instance")
	flagConfig, _ := cmd.Flags().GetString("config")
	flagDataDir, _ := cmd.Flags().GetString("data-dir")

	instanceName, err := config.ResolveInstanceName(flagInstance)
	if err != nil {
		return err
	}

	configPath := flagConfig
	if configPath == "" {
		configPath = config.ConfigPath(instanceName)
	}
	opts, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if flagDataDir != "" {
		opts.DataDir = flagDataDir
	}

	logging.Init(logging.Config{Level: logging.Level(opts.LogLevel)})

	instanceDir := filepath.Dir(configPath)
	masterCipher, err := loadMasterCipher(instanceDir, opts.CipherID)
	if err != nil {
		return fmt.Errorf("siodb_iomgr: load master cipher: %w", err)
	}
	initialAccessKey, err := readOptionalFile(filepath.Join(instanceDir, "initial_access_key"))
	if err != nil {
		return fmt.Errorf("siodb_iomgr: read initial access key: %w", err)
	}

	metrics.SetVersion(Version)

	inst, err := instance.Open(instance.Options{
		Name:                      instanceName,
		DataDir:                   opts.DataDir,
		MasterCipher:              masterCipher,
		DefaultDatabaseCipherID:   opts.CipherID,
		SuperUserInitialAccessKey: initialAccessKey,
		DatabaseCacheSize:         opts.MaxColumnCacheSize,
	})
	if err != nil {
		return fmt.Errorf("siodb_iomgr: open instance %q: %w", instanceName, err)
	}
	defer inst.Close()

	if err := writeInitFlag(opts.DataDir); err != nil {
		return fmt.Errorf("siodb_iomgr: write init flag: %w", err)
	}

	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	go func() {
		http.Handle("/metrics", metrics.Handler())
		http.Handle("/health", metrics.HealthHandler())
		http.Handle("/ready", metrics.ReadyHandler())
		http.Handle("/live", metrics.LivenessHandler())
		if err := http.ListenAndServe(metricsAddr, nil); err != nil {
			logging.WithComponent("siodb_iomgr").Error().Err(err).Msg("metrics server stopped")
		}
	}()

	logging.WithComponent("siodb_iomgr").Info().
		Str("instance", instanceName).
		Str("metricsAddr", metricsAddr).
		Msg("ready")
	select {}
}

// loadMasterCipher reads the instance's master key file, if any, and
// builds the cipher context every per-database key is envelope-encrypted
// under. A missing file means the master cipher is "none".
func loadMasterCipher(instanceDir, cipherID string) (*cipher.Context, error) {
	key, err := readOptionalFile(filepath.Join(instanceDir, "system_db_key"))
	if err != nil {
		return nil, err
	}
	if key == "" {
		cipherID = cipher.None.ID
	}
	desc, err := cipher.Lookup(cipherID)
	if err != nil {
		return nil, err
	}
	return cipher.NewContext(desc, []byte(key))
}

func readOptionalFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// writeInitFlag marks the iomgr process ready, the signal the listener
// process (siodb) waits on before routing traffic to this instance.
func writeInitFlag(dataDir string) error {
	return os.WriteFile(filepath.Join(dataDir, ".initialized"), nil, 0600)
}
