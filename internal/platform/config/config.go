// internal/platform/config/config.go
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"proxylens/internal/platform/validator"
)

// EnvPrefix prefijo de las variables de entorno.
const EnvPrefix = "PROXYLENS_"

// ErrInvalidConfig envuelve todos los errores de Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	// App
	ConfigFile   string `yaml:"-" json:"-"`
	Proxy        string `yaml:"proxy" json:"-"`
	File         string `yaml:"file" json:"file,omitempty"`
	JSON         bool   `yaml:"json" json:"json"`
	Verbose      bool   `yaml:"verbose" json:"verbose"`
	TimeoutS     int    `yaml:"timeout" json:"timeout_s"` // segundos (0 = sin límite global)
	PrintVersion bool   `yaml:"-" json:"-"`
	ShowHelp     bool   `yaml:"-" json:"-"`

	Session   Session   `yaml:"session" json:"session"`
	Transport Transport `yaml:"transport" json:"transport"`
	Geo       Geo       `yaml:"geo" json:"geo"`
	Intel     Intel     `yaml:"intel" json:"intel"`
	Bulk      Bulk      `yaml:"bulk" json:"bulk"`
	Output    Output    `yaml:"output" json:"output"`
	Logging   Logging   `yaml:"logging" json:"logging"`
}

type Session struct {
	Engine   string `yaml:"engine" json:"engine"`     // URL base del motor
	Browser  string `yaml:"browser" json:"browser"`   // perfil de navegador
	Profiles string `yaml:"profiles" json:"profiles"` // YAML con perfiles extra
	Timezone string `yaml:"timezone" json:"timezone"` // override de zona IANA

	WSRounds        int           `yaml:"ws_rounds" json:"ws_rounds"`
	ProbeTimeout    time.Duration `yaml:"probe_timeout" json:"probe_timeout"`
	WSRecvTimeout   time.Duration `yaml:"ws_recv_timeout" json:"ws_recv_timeout"`
	ConfigAttempts  int           `yaml:"config_attempts" json:"config_attempts"`
	SubmitAttempts  int           `yaml:"submit_attempts" json:"submit_attempts"`
	TelemetryJitter time.Duration `yaml:"telemetry_jitter" json:"telemetry_jitter"`

	// Seal "plain" o "aead"; aead requiere SealSecret
	Seal       string `yaml:"seal" json:"seal"`
	SealSecret string `yaml:"seal_secret" json:"-"`
}

type Transport struct {
	Timeout            time.Duration `yaml:"timeout" json:"timeout"`
	DialTimeout        time.Duration `yaml:"dial_timeout" json:"dial_timeout"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify" json:"insecure_skip_verify"`
}

type Geo struct {
	DB       string        `yaml:"db" json:"db,omitempty"` // base de datos MaxMind City
	Online   bool          `yaml:"online" json:"online"`   // consulta ip-api.com
	IPAPIURL string        `yaml:"ipapi_url" json:"ipapi_url,omitempty"`
	CacheTTL time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
}

type Intel struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	URL     string `yaml:"url" json:"url,omitempty"`
}

type Bulk struct {
	Concurrency   int           `yaml:"concurrency" json:"concurrency"`
	Stagger       time.Duration `yaml:"stagger" json:"stagger"`
	MaxFraudScore float64       `yaml:"max_fraud_score" json:"max_fraud_score"`
	Clean         bool          `yaml:"clean" json:"clean"`
}

type Output struct {
	CSV   string `yaml:"csv" json:"csv,omitempty"`
	JSONL string `yaml:"jsonl" json:"jsonl,omitempty"`
	DB    string `yaml:"db" json:"db,omitempty"` // SQLite
}

type Logging struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file,omitempty"`
	JSON  bool   `yaml:"json" json:"json"`
}

// DefaultConfig retorna una configuración por defecto.
func DefaultConfig() Config {
	return Config{
		TimeoutS: 0,

		Session: Session{
			Engine:          "https://proxydetect.live",
			Browser:         "chrome-143",
			WSRounds:        5,
			ProbeTimeout:    10 * time.Second,
			WSRecvTimeout:   5 * time.Second,
			ConfigAttempts:  3,
			SubmitAttempts:  4,
			TelemetryJitter: 350 * time.Millisecond,
			Seal:            "plain",
		},

		Transport: Transport{
			Timeout:     30 * time.Second,
			DialTimeout: 10 * time.Second,
		},

		Geo: Geo{
			Online:   true,
			CacheTTL: 6 * time.Hour,
		},

		Bulk: Bulk{
			Concurrency: 200,
			Stagger:     100 * time.Millisecond,
		},

		Output: Output{
			CSV: "results.csv",
		},

		Logging: Logging{
			Level: "info",
		},
	}
}

// Load resuelve la configuración en orden: defaults, .env, fichero YAML,
// variables PROXYLENS_*, flags. Las flags tienen prioridad.
func Load(args []string) (Config, error) {
	// primera pasada solo para conocer --config y --help
	probe := DefaultConfig()
	pre := newFlagSet(&probe)
	if err := pre.Parse(args); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	cfg := DefaultConfig()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	path := probe.ConfigFile
	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}
	if path != "" {
		if err := loadFromFile(&cfg, path); err != nil {
			return Config{}, err
		}
		cfg.ConfigFile = path
	}

	loadFromEnv(&cfg)

	flags := newFlagSet(&cfg)
	if err := flags.Parse(args); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	normalize(&cfg, flags)

	if cfg.ShowHelp || cfg.PrintVersion {
		return cfg, nil
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// loadFromFile aplica un fichero YAML sobre cfg.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, path, err)
	}
	return nil
}

// loadFromEnv carga configuración desde variables de entorno.
func loadFromEnv(cfg *Config) {
	str := func(key string, dst *string) {
		if v := getenv(EnvPrefix+key, ""); v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v := getenv(EnvPrefix+key, ""); v != "" {
			*dst = parseBool(v)
		}
	}
	integer := func(key string, dst *int) {
		if v := getenv(EnvPrefix+key, ""); v != "" {
			*dst = parseInt(v, *dst)
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v := getenv(EnvPrefix+key, ""); v != "" {
			*dst = parseDuration(v, *dst)
		}
	}

	str("PROXY", &cfg.Proxy)
	str("FILE", &cfg.File)
	boolean("JSON", &cfg.JSON)
	boolean("VERBOSE", &cfg.Verbose)
	integer("TIMEOUT", &cfg.TimeoutS)

	str("ENGINE", &cfg.Session.Engine)
	str("BROWSER", &cfg.Session.Browser)
	str("PROFILES", &cfg.Session.Profiles)
	str("TIMEZONE", &cfg.Session.Timezone)
	integer("WS_ROUNDS", &cfg.Session.WSRounds)
	duration("PROBE_TIMEOUT", &cfg.Session.ProbeTimeout)
	str("SEAL", &cfg.Session.Seal)
	str("SEAL_SECRET", &cfg.Session.SealSecret)

	duration("TRANSPORT_TIMEOUT", &cfg.Transport.Timeout)
	boolean("INSECURE", &cfg.Transport.InsecureSkipVerify)

	str("GEOIP_DB", &cfg.Geo.DB)
	boolean("GEO_ONLINE", &cfg.Geo.Online)

	boolean("INTEL", &cfg.Intel.Enabled)

	integer("CONCURRENCY", &cfg.Bulk.Concurrency)
	if v := getenv(EnvPrefix+"MAX_FRAUD_SCORE", ""); v != "" {
		cfg.Bulk.MaxFraudScore = parseFloat(v, cfg.Bulk.MaxFraudScore)
	}
	boolean("CLEAN", &cfg.Bulk.Clean)

	str("OUTPUT", &cfg.Output.CSV)
	str("JSONL", &cfg.Output.JSONL)
	str("DB", &cfg.Output.DB)

	str("LOG_LEVEL", &cfg.Logging.Level)
	str("LOG_FILE", &cfg.Logging.File)
	boolean("LOG_JSON", &cfg.Logging.JSON)
}

// newFlagSet define las flags de CLI sobre cfg; los valores actuales de cfg
// son los defaults mostrados.
func newFlagSet(cfg *Config) *pflag.FlagSet {
	f := pflag.NewFlagSet("proxylens", pflag.ContinueOnError)
	f.SetOutput(io.Discard)
	f.SortFlags = false

	f.StringVarP(&cfg.ConfigFile, "config", "c", cfg.ConfigFile, "YAML config file")
	f.StringVarP(&cfg.Proxy, "proxy", "p", cfg.Proxy, "Proxy to route the session through")
	f.StringVarP(&cfg.File, "file", "f", cfg.File, "Bulk mode: file with one proxy per line")
	f.BoolVar(&cfg.JSON, "json", cfg.JSON, "Print the result as JSON")
	f.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output (debug logging)")
	f.IntVarP(&cfg.TimeoutS, "timeout", "T", cfg.TimeoutS, "Global deadline in seconds (0 = none)")

	f.StringVar(&cfg.Session.Engine, "engine", cfg.Session.Engine, "Detection engine base URL")
	f.StringVarP(&cfg.Session.Browser, "browser", "b", cfg.Session.Browser, "Browser profile to emulate")
	f.StringVar(&cfg.Session.Profiles, "profiles", cfg.Session.Profiles, "YAML file with extra browser profiles")
	f.StringVar(&cfg.Session.Timezone, "timezone", cfg.Session.Timezone, "IANA timezone override")
	f.IntVar(&cfg.Session.WSRounds, "ws-rounds", cfg.Session.WSRounds, "WebSocket echo rounds")
	f.StringVar(&cfg.Session.Seal, "seal", cfg.Session.Seal, "Telemetry sealer: plain or aead")
	f.StringVar(&cfg.Session.SealSecret, "seal-secret", cfg.Session.SealSecret, "Secret for the aead sealer")

	f.BoolVar(&cfg.Transport.InsecureSkipVerify, "insecure", cfg.Transport.InsecureSkipVerify, "Skip TLS verification (lab engines)")

	f.StringVar(&cfg.Geo.DB, "geoip-db", cfg.Geo.DB, "MaxMind City database for exit-IP timezone")
	f.BoolVar(&cfg.Geo.Online, "geo-online", cfg.Geo.Online, "Resolve exit-IP timezone with ip-api.com")

	f.BoolVar(&cfg.Intel.Enabled, "intel", cfg.Intel.Enabled, "Enrich results with ipapi.is through the proxy")

	f.IntVar(&cfg.Bulk.Concurrency, "concurrency", cfg.Bulk.Concurrency, "Bulk concurrency")
	f.Float64Var(&cfg.Bulk.MaxFraudScore, "max-fraud-score", cfg.Bulk.MaxFraudScore, "Filter results above this abuser score (implies --intel)")
	f.BoolVar(&cfg.Bulk.Clean, "clean", cfg.Bulk.Clean, "Keep clean results only (implies --intel)")

	f.StringVarP(&cfg.Output.CSV, "output", "o", cfg.Output.CSV, "Bulk CSV output path")
	f.StringVar(&cfg.Output.JSONL, "jsonl", cfg.Output.JSONL, "Bulk JSON lines output path")
	f.StringVar(&cfg.Output.DB, "db", cfg.Output.DB, "SQLite results database")

	f.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "Log level: debug, info, warn, error")
	f.StringVar(&cfg.Logging.File, "log-file", cfg.Logging.File, "Rotating log file")

	f.BoolVarP(&cfg.ShowHelp, "help", "h", false, "Show help and exit")
	f.BoolVar(&cfg.PrintVersion, "version", false, "Print version and exit")
	return f
}

func normalize(c *Config, flags *pflag.FlagSet) {
	c.Proxy = strings.TrimSpace(c.Proxy)
	c.Session.Engine = strings.TrimRight(strings.TrimSpace(c.Session.Engine), "/")
	c.Session.Browser = strings.ToLower(strings.TrimSpace(c.Session.Browser))
	c.Session.Seal = strings.ToLower(strings.TrimSpace(c.Session.Seal))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	if c.TimeoutS < 0 {
		c.TimeoutS = 0
	}
	if c.Bulk.Concurrency < 1 {
		c.Bulk.Concurrency = 1
	}
	if c.Session.WSRounds < 1 {
		c.Session.WSRounds = 1
	}

	// los filtros de fraude necesitan la consulta de reputación
	if c.Bulk.MaxFraudScore > 0 || c.Bulk.Clean {
		c.Intel.Enabled = true
	}
	// --verbose sube el nivel salvo que se haya pedido uno explícito
	if c.Verbose && (flags == nil || !flags.Changed("log-level")) {
		c.Logging.Level = "debug"
	}
}

// Validate verifica la configuración resuelta.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Proxy != "" && c.File != "" {
		add("--proxy and --file are mutually exclusive")
	}
	if !validator.IsURLWithScheme(c.Session.Engine, "http", "https") {
		add("engine %q is not an http(s) URL", c.Session.Engine)
	}
	if c.Session.Browser == "" {
		add("browser profile is required")
	}
	switch c.Session.Seal {
	case "plain":
	case "aead":
		if c.Session.SealSecret == "" {
			add("--seal aead requires --seal-secret")
		}
	default:
		add("unknown sealer %q (plain, aead)", c.Session.Seal)
	}
	if c.Bulk.MaxFraudScore < 0 || c.Bulk.MaxFraudScore > 1 {
		add("max fraud score %.4f outside [0,1]", c.Bulk.MaxFraudScore)
	}
	if c.Session.ProbeTimeout <= 0 || c.Transport.Timeout <= 0 {
		add("timeouts must be positive")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		add("unknown log level %q", c.Logging.Level)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// BulkMode indica si se escanea una lista de proxies.
func (c Config) BulkMode() bool {
	return c.File != ""
}

// Timeout devuelve el límite global como time.Duration (0 = sin límite).
func (c Config) Timeout() time.Duration {
	if c.TimeoutS <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutS) * time.Second
}

// Helpers

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "t", "true", "y", "yes", "on":
		return true
	default:
		return false
	}
}

func parseInt(v string, def int) int {
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return i
}

func parseFloat(v string, def float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return def
	}
	return f
}

// parseDuration acepta "10s" o segundos enteros.
func parseDuration(v string, def time.Duration) time.Duration {
	v = strings.TrimSpace(v)
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if s, err := strconv.Atoi(v); err == nil {
		return time.Duration(s) * time.Second
	}
	return def
}
