package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/vestsk/tippebot/internal/platform/logging"
	"github.com/vestsk/tippebot/internal/platform/resilience"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

const (
	defaultESPNScoreboardURL = "https://site.api.espn.com/apis/site/v2/sports/football/nfl/scoreboard"
	defaultESPNFantasyURL    = "https://lm-api-reads.fantasy.espn.com/apis/v3/games/ffl"
)

var defaultPPRPlayers = []string{"Kristoffer", "Arild", "Knut", "Einar", "Torstein", "Peter", "Edvard H", "Tor"}

var defaultTeamNames = map[string]string{
	"Kristoffer": "Stavanger Unge Gutter",
	"Arild":      "Wergeland Vipers",
	"Knut":       "Storhaug Javeeelins",
	"Einar":      "Hamburg Hurricanes",
	"Torstein":   "Madla Lard Lads",
	"Peter":      "Bjørgvin Latskap",
	"Edvard H":   "Bergaluf Hvidings",
	"Tor":        "Møhlenpris Bondelag",
}

// Config stores runtime configuration for the bot and the CLI.
type Config struct {
	AppEnv         string         `validate:"oneof=dev stage prod"`
	ServiceName    string         `validate:"required"`
	ServiceVersion string         `validate:"required"`
	LogLevel       logging.Level
	HTTPAddr       string         `validate:"required"`
	PprofEnabled   bool
	Location       *time.Location `validate:"required"`

	Discord DiscordConfig

	GoogleCredentialsFile  string
	SheetsTimeout          time.Duration `validate:"gt=0"`
	TippingSpreadsheetID   string
	TippingSpreadsheetName string `validate:"required_without=TippingSpreadsheetID"`
	TippingWorksheet       string
	PPRSpreadsheetID       string
	PPRSpreadsheetName     string            `validate:"required_without=PPRSpreadsheetID"`
	PPRSeason              int               `validate:"gt=0"`
	PPRPlayers             []string          `validate:"min=1,dive,required"`
	TeamNames              map[string]string `validate:"dive,keys,required,endkeys,required"`

	ESPNScoreboardURL string `validate:"required,url"`
	ESPNFantasyURL    string `validate:"required,url"`
	ESPNLeagueID      int    `validate:"required_if=AutoPostEnabled true"`
	ESPNYear          int    `validate:"gt=0"`
	ESPNS2            string
	ESPNSWID          string
	ESPNTimeout       time.Duration `validate:"gt=0"`
	ESPNRetryDelay    time.Duration `validate:"gt=0"`
	ESPNWeekTTL       time.Duration `validate:"gt=0"`
	ESPNCircuit       resilience.CircuitBreakerConfig

	AutoPostEnabled  bool
	AutoPostInterval time.Duration `validate:"gt=0"`
	RemindersEnabled bool
	WaiversEnabled   bool

	UptraceEnabled     bool
	UptraceDSN         string `validate:"required_if=UptraceEnabled true"`
	UptraceLogsEnabled bool

	PyroscopeEnabled           bool
	PyroscopeServerAddress     string `validate:"required_if=PyroscopeEnabled true"`
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration `validate:"gt=0"`
}

// DiscordConfig is only required by commands that talk to the chat platform.
type DiscordConfig struct {
	Token            string `validate:"required"`
	AdminIDs         []string
	TippingChannelID string `validate:"required"`
	ChatterChannelID string `validate:"required"`
	AdminChannelID   string
	CommandPrefix    string        `validate:"required"`
	CommandCooldown  time.Duration `validate:"gt=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads .env (when present) and the environment. The Discord section
// is parsed but not validated; see RequireDiscord.
func Load() (Config, error) {
	return load(".env", time.Now)
}

// RequireDiscord reports missing chat platform settings.
func (c Config) RequireDiscord() error {
	if err := validate.Struct(c.Discord); err != nil {
		return fmt.Errorf("invalid discord config: %w", err)
	}
	return nil
}

func load(envFile string, now func() time.Time) (Config, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	appEnv := strings.ToLower(strings.TrimSpace(getEnv("APP_ENV", EnvDev)))

	location, err := time.LoadLocation(getEnv("TIMEZONE", "Europe/Oslo"))
	if err != nil {
		return Config{}, fmt.Errorf("parse TIMEZONE: %w", err)
	}

	season := seasonOf(now().In(location))
	cfg := Config{
		AppEnv:         appEnv,
		ServiceName:    getEnv("SERVICE_NAME", "tippebot"),
		ServiceVersion: getEnv("SERVICE_VERSION", "dev"),
		LogLevel:       logging.ParseLevel(getEnv("LOG_LEVEL", "info")),
		HTTPAddr:       strings.TrimSpace(getEnv("HTTP_ADDR", ":8080")),
		Location:       location,

		Discord: DiscordConfig{
			Token:            strings.TrimSpace(getEnv("DISCORD_TOKEN", "")),
			AdminIDs:         splitCSV(getEnv("ADMIN_IDS", "")),
			TippingChannelID: strings.TrimSpace(getEnv("VESTSK_CHANNEL_ID", "")),
			ChatterChannelID: strings.TrimSpace(getEnv("CHATTER_CHANNEL_ID", "")),
			AdminChannelID:   strings.TrimSpace(getEnv("ADMIN_CHANNEL_ID", "")),
			CommandPrefix:    getEnv("COMMAND_PREFIX", "!"),
		},

		GoogleCredentialsFile:  strings.TrimSpace(getEnv("GOOGLE_CREDENTIALS_FILE", "credentials.json")),
		TippingSpreadsheetID:   strings.TrimSpace(getEnv("TIPPING_SPREADSHEET_ID", "")),
		TippingSpreadsheetName: strings.TrimSpace(getEnv("TIPPING_SPREADSHEET_NAME", "Vestsk Tipping")),
		TippingWorksheet:       strings.TrimSpace(getEnv("TIPPING_WORKSHEET", "")),
		PPRSpreadsheetID:       strings.TrimSpace(getEnv("PPR_SPREADSHEET_ID", "")),
		PPRSpreadsheetName:     strings.TrimSpace(getEnv("PPR_SPREADSHEET_NAME", "Fest i Vest")),
		PPRPlayers:             defaultPPRPlayers,
		TeamNames:              defaultTeamNames,

		ESPNScoreboardURL: strings.TrimSpace(getEnv("ESPN_SCOREBOARD_URL", defaultESPNScoreboardURL)),
		ESPNFantasyURL:    strings.TrimSpace(getEnv("ESPN_FANTASY_URL", defaultESPNFantasyURL)),
		ESPNS2:            strings.TrimSpace(getEnv("ESPN_S2", "")),
		ESPNSWID:          strings.TrimSpace(getEnv("ESPN_SWID", "")),

		UptraceDSN:                 strings.TrimSpace(getEnv("UPTRACE_DSN", "")),
		PyroscopeServerAddress:     strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", "")),
		PyroscopeAppName:           getEnv("PYROSCOPE_APP_NAME", "tippebot"),
		PyroscopeAuthToken:         getEnv("PYROSCOPE_AUTH_TOKEN", ""),
		PyroscopeBasicAuthUser:     getEnv("PYROSCOPE_BASIC_AUTH_USER", ""),
		PyroscopeBasicAuthPassword: getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", ""),
	}

	if players := splitCSV(getEnv("PPR_PLAYERS", "")); len(players) > 0 {
		cfg.PPRPlayers = players
	}
	if raw := getEnv("TEAM_NAMES", ""); raw != "" {
		if cfg.TeamNames, err = parseNameMap(raw); err != nil {
			return Config{}, fmt.Errorf("parse TEAM_NAMES: %w", err)
		}
	}

	if cfg.PPRSeason, err = getEnvAsInt("PPR_SEASON", season); err != nil {
		return Config{}, fmt.Errorf("parse PPR_SEASON: %w", err)
	}
	if cfg.ESPNLeagueID, err = getEnvAsInt("ESPN_LEAGUE_ID", 0); err != nil {
		return Config{}, fmt.Errorf("parse ESPN_LEAGUE_ID: %w", err)
	}
	if cfg.ESPNYear, err = getEnvAsInt("ESPN_YEAR", season); err != nil {
		return Config{}, fmt.Errorf("parse ESPN_YEAR: %w", err)
	}

	durations := []struct {
		key      string
		fallback string
		target   *time.Duration
	}{
		{"COMMAND_COOLDOWN", "5s", &cfg.Discord.CommandCooldown},
		{"SHEETS_TIMEOUT", "10s", &cfg.SheetsTimeout},
		{"ESPN_TIMEOUT", "10s", &cfg.ESPNTimeout},
		{"ESPN_RETRY_DELAY", "5s", &cfg.ESPNRetryDelay},
		{"ESPN_WEEK_TTL", "30s", &cfg.ESPNWeekTTL},
		{"AUTOPOST_INTERVAL", "1h", &cfg.AutoPostInterval},
		{"PYROSCOPE_UPLOAD_RATE", "15s", &cfg.PyroscopeUploadRate},
	}
	for _, d := range durations {
		if *d.target, err = time.ParseDuration(getEnv(d.key, d.fallback)); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
	}

	flags := []struct {
		key      string
		fallback string
		target   *bool
	}{
		{"PPROF_ENABLED", "false", &cfg.PprofEnabled},
		{"AUTOPOST_ENABLED", "true", &cfg.AutoPostEnabled},
		{"REMINDERS_ENABLED", "true", &cfg.RemindersEnabled},
		{"WAIVERS_ENABLED", "true", &cfg.WaiversEnabled},
		{"UPTRACE_ENABLED", "false", &cfg.UptraceEnabled},
		{"UPTRACE_LOGS_ENABLED", "true", &cfg.UptraceLogsEnabled},
		{"PYROSCOPE_ENABLED", "false", &cfg.PyroscopeEnabled},
	}
	for _, f := range flags {
		if *f.target, err = strconv.ParseBool(getEnv(f.key, f.fallback)); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", f.key, err)
		}
	}

	if cfg.ESPNCircuit, err = loadCircuit("ESPN_CIRCUIT"); err != nil {
		return Config{}, err
	}

	if err := validate.StructExcept(cfg, "Discord"); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadCircuit(prefix string) (resilience.CircuitBreakerConfig, error) {
	cfg := resilience.DefaultCircuitBreakerConfig()

	enabled, err := strconv.ParseBool(getEnv(prefix+"_ENABLED", strconv.FormatBool(cfg.Enabled)))
	if err != nil {
		return cfg, fmt.Errorf("parse %s_ENABLED: %w", prefix, err)
	}
	cfg.Enabled = enabled

	if cfg.FailureThreshold, err = getEnvAsInt(prefix+"_FAILURE_COUNT", cfg.FailureThreshold); err != nil {
		return cfg, fmt.Errorf("parse %s_FAILURE_COUNT: %w", prefix, err)
	}
	if cfg.FailureThreshold < 1 {
		return cfg, fmt.Errorf("%s_FAILURE_COUNT must be >= 1", prefix)
	}

	if cfg.OpenTimeout, err = time.ParseDuration(getEnv(prefix+"_OPEN_TIMEOUT", cfg.OpenTimeout.String())); err != nil {
		return cfg, fmt.Errorf("parse %s_OPEN_TIMEOUT: %w", prefix, err)
	}
	if cfg.OpenTimeout <= 0 {
		return cfg, fmt.Errorf("%s_OPEN_TIMEOUT must be > 0", prefix)
	}

	if cfg.HalfOpenMaxReq, err = getEnvAsInt(prefix+"_HALF_OPEN_MAX_REQ", cfg.HalfOpenMaxReq); err != nil {
		return cfg, fmt.Errorf("parse %s_HALF_OPEN_MAX_REQ: %w", prefix, err)
	}
	if cfg.HalfOpenMaxReq < 1 {
		return cfg, fmt.Errorf("%s_HALF_OPEN_MAX_REQ must be >= 1", prefix)
	}
	return cfg, nil
}

// seasonOf matches the scoreboard's season rule: January and February
// belong to the previous year's season.
func seasonOf(t time.Time) int {
	if t.Month() >= time.March {
		return t.Year()
	}
	return t.Year() - 1
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

// parseNameMap reads "owner:team" pairs separated by commas.
func parseNameMap(raw string) (map[string]string, error) {
	out := make(map[string]string)
	for _, item := range splitCSV(raw) {
		segments := strings.SplitN(item, ":", 2)
		if len(segments) != 2 {
			return nil, fmt.Errorf("invalid map item %q, expected owner:team", item)
		}
		owner := strings.TrimSpace(segments[0])
		teamName := strings.TrimSpace(segments[1])
		if owner == "" || teamName == "" {
			return nil, fmt.Errorf("empty owner or team in item %q", item)
		}
		out[owner] = teamName
	}
	return out, nil
}
