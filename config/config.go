package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"directory-scraper/models"
)

// Persist modes for the listing pass.
const (
	PersistIncremental = "incremental"
	PersistBuffered    = "buffered"
)

// Browser backends.
const (
	BrowserChrome = "chrome"
	BrowserStatic = "static"
)

// DefaultSeedURLs are the directory searches crawled when SEED_URLS is unset.
var DefaultSeedURLs = []string{
	"https://pro.restorationindustry.org/directory-search?combine=&field_ams_geofield_proximity%5Bvalue%5D=100&field_ams_geofield_proximity%5Bsource_configuration%5D%5Borigin_address%5D=Connecticut+US%2C+United+States",
	"https://pro.restorationindustry.org/directory-search?combine=&field_ams_geofield_proximity%5Bvalue%5D=100&field_ams_geofield_proximity%5Bsource_configuration%5D%5Borigin_address%5D=Maine+US%2C+United+States",
	"https://pro.restorationindustry.org/directory-search?combine=&field_ams_geofield_proximity%5Bvalue%5D=100&field_ams_geofield_proximity%5Bsource_configuration%5D%5Borigin_address%5D=New+hampshire+US%2C+United+States",
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresEnabled  bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	SeedURLs        []string
	ListingsCSV     string
	EnrichedCSV     string
	SelectorVersion string
	JoinKey         string
	PersistMode     string

	Browser   string
	Headless  bool
	ChromeBin string
	SearchURL string

	ElementTimeout     time.Duration
	SeedSettle         time.Duration
	PageSettle         time.Duration
	SearchSettle       time.Duration
	ClickSettle        time.Duration
	ListingDelay       time.Duration
	EnrichDelay        time.Duration
	MinRequestInterval time.Duration
	MaxPages           int
	MaxRetries         int

	Debug bool
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	return LoadFile("")
}

// LoadFile is Load with an explicit env file. An empty path means ".env".
func LoadFile(path string) *Config {
	var err error
	if path == "" {
		err = godotenv.Load()
	} else {
		err = godotenv.Load(path)
	}
	if err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresEnabled:  getEnvBool("POSTGRES_ENABLED", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "directory_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		SeedURLs:        getEnvList("SEED_URLS", DefaultSeedURLs),
		ListingsCSV:     getEnv("LISTINGS_CSV", "restoration_listings.csv"),
		EnrichedCSV:     getEnv("ENRICHED_CSV", "restoration_listings_with_reviews.csv"),
		SelectorVersion: getEnv("SELECTOR_VERSION", "v2"),
		JoinKey:         getEnv("JOIN_KEY", string(models.JoinByURL)),
		PersistMode:     getEnv("PERSIST_MODE", PersistIncremental),

		Browser:   getEnv("BROWSER", BrowserChrome),
		Headless:  getEnvBool("HEADLESS", true),
		ChromeBin: getEnv("CHROME_BIN", ""),
		SearchURL: getEnv("SEARCH_URL", "https://www.google.com"),

		ElementTimeout:     getEnvMs("ELEMENT_TIMEOUT_MS", 0),
		SeedSettle:         getEnvMs("SEED_SETTLE_MS", 3000),
		PageSettle:         getEnvMs("PAGE_SETTLE_MS", 2000),
		SearchSettle:       getEnvMs("SEARCH_SETTLE_MS", 3000),
		ClickSettle:        getEnvMs("CLICK_SETTLE_MS", 2000),
		ListingDelay:       getEnvMs("LISTING_DELAY_MS", 1000),
		EnrichDelay:        getEnvMs("ENRICH_DELAY_MS", 2000),
		MinRequestInterval: getEnvMs("MIN_REQUEST_INTERVAL_MS", 0),
		MaxPages:           getEnvInt("MAX_PAGES", 0),
		MaxRetries:         getEnvInt("MAX_RETRIES", 3),

		Debug: getEnvBool("DEBUG", false),
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if len(c.SeedURLs) == 0 {
		return fmt.Errorf("config: no seed URLs")
	}
	if c.ListingsCSV == "" || c.EnrichedCSV == "" {
		return fmt.Errorf("config: LISTINGS_CSV and ENRICHED_CSV must be set")
	}
	if c.ListingsCSV == c.EnrichedCSV {
		return fmt.Errorf("config: LISTINGS_CSV and ENRICHED_CSV must differ")
	}
	switch c.PersistMode {
	case PersistIncremental, PersistBuffered:
	default:
		return fmt.Errorf("config: unknown PERSIST_MODE %q", c.PersistMode)
	}
	switch c.Browser {
	case BrowserChrome, BrowserStatic:
	default:
		return fmt.Errorf("config: unknown BROWSER %q", c.Browser)
	}
	if _, err := models.ParseJoinKey(c.JoinKey); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.MaxPages < 0 {
		return fmt.Errorf("config: MAX_PAGES must not be negative")
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvMs(key string, fallbackMs int) time.Duration {
	return time.Duration(getEnvInt(key, fallbackMs)) * time.Millisecond
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

// getEnvList splits on commas and newlines. Seed URLs contain %2C rather than
// raw commas, so splitting on ',' is safe.
func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return append([]string(nil), fallback...)
	}
	var out []string
	for _, part := range strings.FieldsFunc(val, func(r rune) bool { return r == ',' || r == '\n' }) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
