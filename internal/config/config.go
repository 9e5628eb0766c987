package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// AppConfig application configuration
type AppConfig struct {
	Server     ServerConfig  `toml:"server"`
	Data       DataConfig    `toml:"data"`
	AI         AIConfig      `toml:"ai"`
	Storage    StorageConfig `toml:"storage"`
	OCR        OCRConfig     `toml:"ocr"`
	MatrixPath string        `toml:"matrix_path"`
}

// ServerConfig HTTP server
type ServerConfig struct {
	Port    int  `toml:"port"`
	DevMode bool `toml:"dev_mode"`
}

// DataConfig data directories, relative paths resolve against the executable
type DataConfig struct {
	DataDir       string `toml:"data_dir"`
	InboxDir      string `toml:"inbox_dir"`
	AggregatedDir string `toml:"aggregated_dir"`
}

// AIConfig semantic analyzer and LLM provider
type AIConfig struct {
	Enabled            bool    `toml:"enabled"`
	Provider           string  `toml:"provider"`
	APIKey             string  `toml:"api_key"`
	Model              string  `toml:"model"`
	BaseURL            string  `toml:"base_url"`
	Mode               string  `toml:"mode"`
	MinConfForAICall   float64 `toml:"min_conf_for_ai_call"`
	MinConfForFill     float64 `toml:"min_conf_for_fill"`
	MinConfForOverride float64 `toml:"min_conf_for_override"`
	Temperature        float64 `toml:"temperature"`
	MaxTokens          int     `toml:"max_tokens"`
	TimeoutSeconds     int     `toml:"timeout_seconds"`
}

// StorageConfig artifact backend: "fs" or "minio"
type StorageConfig struct {
	Backend string      `toml:"backend"`
	MinIO   MinIOConfig `toml:"minio"`
}

// MinIOConfig object storage connection
type MinIOConfig struct {
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Bucket    string `toml:"bucket"`
	Prefix    string `toml:"prefix"`
	UseSSL    bool   `toml:"use_ssl"`
}

// OCRConfig remote OCR service, empty endpoint disables PDF extraction
type OCRConfig struct {
	Endpoint       string `toml:"endpoint"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Retries        int    `toml:"retries"`
}

// Storage backends
const (
	BackendFS    = "fs"
	BackendMinIO = "minio"
)

// Semantic modes
const (
	ModeOff    = "off"
	ModeAssist = "assist"
	ModeStrict = "strict"
)

// LoadConfigInfo load metadata
type LoadConfigInfo struct {
	PortSpecified bool
	Path          string
}

// DefaultConfig default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port: 20261,
		},
		Data: DataConfig{
			DataDir:       "data",
			InboxDir:      "inbox",
			AggregatedDir: "aggregated",
		},
		AI: AIConfig{
			Provider:           "openai",
			Mode:               ModeAssist,
			MinConfForAICall:   0.6,
			MinConfForFill:     0.6,
			MinConfForOverride: 0.8,
			Temperature:        0.1,
			MaxTokens:          1200,
			TimeoutSeconds:     60,
		},
		Storage: StorageConfig{
			Backend: BackendFS,
			MinIO: MinIOConfig{
				Bucket: "energy-passport",
			},
		},
		OCR: OCRConfig{
			TimeoutSeconds: 120,
			Retries:        2,
		},
	}
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverAny, ok := raw["server"]
	if !ok {
		return false
	}

	serverMap, ok := serverAny.(map[string]any)
	if !ok {
		return false
	}

	_, ok = serverMap["port"]
	return ok
}

// GetExeDir directory of the running executable
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// LoadConfigWithInfo loads config.toml next to the executable, then applies
// environment overrides
func LoadConfigWithInfo() (*AppConfig, LoadConfigInfo, error) {
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}
	return LoadConfigFrom(filepath.Join(exeDir, "config.toml"), os.Getenv)
}

// LoadConfigFrom a missing file yields defaults
func LoadConfigFrom(path string, getenv func(string) string) (*AppConfig, LoadConfigInfo, error) {
	info := LoadConfigInfo{Path: path}
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		info.PortSpecified = isPortSpecifiedInToml(data)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, info, err
		}
	case !os.IsNotExist(err):
		return nil, info, err
	}

	if getenv != nil {
		applyEnv(config, getenv)
	}
	config.AI.Mode = normalizeMode(config.AI.Mode)
	return config, info, nil
}

// LoadConfig loads config.toml next to the executable
func LoadConfig() (*AppConfig, error) {
	config, _, err := LoadConfigWithInfo()
	return config, err
}

// SaveConfig writes config.toml next to the executable
func SaveConfig(config *AppConfig) error {
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}

	configPath := filepath.Join(exeDir, "config.toml")

	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

func applyEnv(c *AppConfig, getenv func(string) string) {
	defaults := DefaultConfig()

	if v := getenv("AI_ENABLED"); v != "" {
		c.AI.Enabled = parseBool(v, c.AI.Enabled)
	}
	if v := getenv("AI_PROVIDER"); v != "" {
		c.AI.Provider = strings.ToLower(strings.TrimSpace(v))
	}
	if v := getenv("AI_API_KEY"); v != "" {
		c.AI.APIKey = v
	} else if v := getenv("OPENAI_API_KEY"); v != "" && c.AI.APIKey == "" {
		c.AI.APIKey = v
	}
	if v := getenv("AI_MODEL"); v != "" {
		c.AI.Model = v
	}
	if v := getenv("AI_BASE_URL"); v != "" {
		c.AI.BaseURL = v
	}
	if v := getenv("EXCEL_SEMANTIC_AI_MODE"); v != "" {
		c.AI.Mode = v
	}
	c.AI.MinConfForAICall = envFloat(getenv, "AI_EXCEL_MIN_CONF_FOR_AI_CALL", c.AI.MinConfForAICall, defaults.AI.MinConfForAICall)
	c.AI.MinConfForFill = envFloat(getenv, "AI_EXCEL_MIN_CONF_FOR_FILL", c.AI.MinConfForFill, defaults.AI.MinConfForFill)
	c.AI.MinConfForOverride = envFloat(getenv, "AI_EXCEL_MIN_CONF_FOR_OVERRIDE", c.AI.MinConfForOverride, defaults.AI.MinConfForOverride)
	c.AI.Temperature = envFloat(getenv, "AI_EXCEL_TEMPERATURE", c.AI.Temperature, defaults.AI.Temperature)
	c.AI.MaxTokens = envInt(getenv, "AI_EXCEL_MAX_TOKENS", c.AI.MaxTokens, defaults.AI.MaxTokens)

	if v := getenv("INBOX_DIR"); v != "" {
		c.Data.InboxDir = v
	}
	if v := getenv("AGGREGATED_DIR"); v != "" {
		c.Data.AggregatedDir = v
	}
	if v := getenv("MATRIX_PATH"); v != "" {
		c.MatrixPath = v
	}

	if v := getenv("OCR_ENDPOINT"); v != "" {
		c.OCR.Endpoint = v
	}
	if v := getenv("OCR_API_KEY"); v != "" {
		c.OCR.APIKey = v
	}

	if v := getenv("MINIO_ENDPOINT"); v != "" {
		c.Storage.MinIO.Endpoint = v
		c.Storage.Backend = BackendMinIO
	}
	if v := getenv("MINIO_ACCESS_KEY"); v != "" {
		c.Storage.MinIO.AccessKey = v
	}
	if v := getenv("MINIO_SECRET_KEY"); v != "" {
		c.Storage.MinIO.SecretKey = v
	}
	if v := getenv("MINIO_BUCKET"); v != "" {
		c.Storage.MinIO.Bucket = v
	}
	if v := getenv("MINIO_USE_SSL"); v != "" {
		c.Storage.MinIO.UseSSL = parseBool(v, c.Storage.MinIO.UseSSL)
	}
}

// envFloat an unset variable keeps current, an unparsable one resets to fallback
func envFloat(getenv func(string) string, key string, current, fallback float64) float64 {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return current
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envInt(getenv func(string) string, key string, current, fallback int) int {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return current
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseBool(v string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return fallback
}

func normalizeMode(m string) string {
	switch strings.ToLower(strings.TrimSpace(m)) {
	case ModeOff:
		return ModeOff
	case ModeStrict:
		return ModeStrict
	default:
		return ModeAssist
	}
}

// DataDirs resolved data directories
type DataDirs struct {
	Root       string
	Inbox      string
	Aggregated string
	Exports    string
}

// EnsureDataDir creates the data directory and its subdirectories next to the
// executable
func EnsureDataDir(config *AppConfig) (DataDirs, error) {
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}
	return EnsureDataDirAt(exeDir, config)
}

// EnsureDataDirAt like EnsureDataDir with an explicit base directory
func EnsureDataDirAt(base string, config *AppConfig) (DataDirs, error) {
	root := resolve(base, config.Data.DataDir)
	dirs := DataDirs{
		Root:       root,
		Inbox:      resolve(root, config.Data.InboxDir),
		Aggregated: resolve(root, config.Data.AggregatedDir),
		Exports:    filepath.Join(root, "exports"),
	}

	for _, path := range []string{dirs.Root, dirs.Inbox, dirs.Aggregated, dirs.Exports} {
		if err := os.MkdirAll(path, 0755); err != nil {
			return DataDirs{}, err
		}
	}
	return dirs, nil
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
