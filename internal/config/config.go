package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Cal      CalConfig
	Notion   NotionConfig
	ZAPI     ZAPIConfig
	Sales    SalesConfig
	OpenAI   OpenAIConfig
	Reminder ReminderConfig
	Display  DisplayConfig
	LeadForm LeadFormConfig
	Mail     MailConfig
	RabbitMQ RabbitMQConfig
	Redis    RedisConfig
	Sentry   SentryConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type CalConfig struct {
	Secret           string
	MeetingLink      string
	PlacementTestURL string
	IntroVideoURL    string
}

type NotionConfig struct {
	Token      string
	DatabaseID string
	BaseURL    string
	Version    string
	IDProperty string
}

// ZAPIMode diz como a URL da Z-API foi informada.
type ZAPIMode int

const (
	ZAPIModeDisabled ZAPIMode = iota
	ZAPIModeInstance
	ZAPIModeFullURL
)

func (m ZAPIMode) String() string {
	switch m {
	case ZAPIModeInstance:
		return "instance"
	case ZAPIModeFullURL:
		return "full_url"
	default:
		return "disabled"
	}
}

// ZAPIConfig já vem resolvida: BaseURL termina antes de /send-text.
type ZAPIConfig struct {
	Mode        ZAPIMode
	BaseURL     string
	ClientToken string
}

type SalesConfig struct {
	TeamPhones []string
	AdminPhone string
}

type OpenAIConfig struct {
	APIKey          string
	Model           string
	BaseURL         string
	ClassifyTimeout time.Duration
}

func (c OpenAIConfig) Enabled() bool {
	return c.APIKey != ""
}

type ReminderConfig struct {
	Offset time.Duration
}

type DisplayConfig struct {
	Location    *time.Location
	PhoneRegion string
}

type LeadFormConfig struct {
	RequireEmail  bool
	RatePerMinute int
}

type MailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

func (c MailConfig) Enabled() bool {
	return c.Host != ""
}

type RabbitMQConfig struct {
	URL string
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

type SentryConfig struct {
	DSN string
}

const zapiDefaultHost = "https://api.z-api.io"

func LoadAll() (*Config, error) {
	var errs []error

	loc, err := time.LoadLocation(getEnv("DISPLAY_TIMEZONE", "UTC"))
	if err != nil {
		errs = append(errs, fmt.Errorf("DISPLAY_TIMEZONE: %w", err))
		loc = time.UTC
	}

	zapi, err := resolveZAPI(
		os.Getenv("ZAPI_URL"),
		os.Getenv("ZAPI_INSTANCE"),
		os.Getenv("ZAPI_TOKEN"),
		os.Getenv("ZAPI_CLIENT_TOKEN"),
	)
	if err != nil {
		errs = append(errs, err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8000"),
			Env:  getEnv("APP_ENV", "production"),
		},
		Cal: CalConfig{
			Secret:           os.Getenv("CAL_SECRET"),
			MeetingLink:      os.Getenv("MEETING_LINK"),
			PlacementTestURL: getEnv("PLACEMENT_TEST_URL", "https://student.flexge.com/v2/placement/karollinyeloica"),
			IntroVideoURL:    getEnv("INTRO_VIDEO_URL", "https://www.youtube.com/watch?v=gjNVofHX6gg"),
		},
		Notion: NotionConfig{
			Token:      os.Getenv("NOTION_TOKEN"),
			DatabaseID: os.Getenv("NOTION_DB"),
			BaseURL:    getEnv("NOTION_BASE_URL", "https://api.notion.com/v1"),
			Version:    getEnv("NOTION_VERSION", "2022-06-28"),
			IDProperty: getEnv("NOTION_ID_PROPERTY", "ID Agendamento"),
		},
		ZAPI: zapi,
		Sales: SalesConfig{
			TeamPhones: splitList(os.Getenv("SALES_TEAM_PHONES")),
			AdminPhone: os.Getenv("ADMIN_PHONE"),
		},
		OpenAI: OpenAIConfig{
			APIKey:          os.Getenv("OPENAI_API_KEY"),
			Model:           getEnv("OPENAI_MODEL", "gpt-4"),
			BaseURL:         getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			ClassifyTimeout: time.Duration(getEnvInt("OPENAI_CLASSIFY_TIMEOUT_MS", 5000, &errs)) * time.Millisecond,
		},
		Reminder: ReminderConfig{
			Offset: time.Duration(getEnvInt("REMINDER_OFFSET_MINUTES", 60, &errs)) * time.Minute,
		},
		Display: DisplayConfig{
			Location:    loc,
			PhoneRegion: getEnv("PHONE_REGION", "BR"),
		},
		LeadForm: LeadFormConfig{
			RequireEmail:  getEnvBool("LEAD_FORM_REQUIRE_EMAIL", false, &errs),
			RatePerMinute: getEnvInt("LEAD_FORM_RATE_PER_MINUTE", 10, &errs),
		},
		Mail: MailConfig{
			Host:     os.Getenv("MAIL_HOST"),
			Port:     getEnvInt("MAIL_PORT", 587, &errs),
			User:     os.Getenv("MAIL_USER"),
			Password: os.Getenv("MAIL_PASS"),
			From:     getEnv("MAIL_FROM", "nao-responda@example.com"),
		},
		RabbitMQ: RabbitMQConfig{
			URL: os.Getenv("RABBITMQ_URL"),
		},
		Redis:  loadRedisConfig(&errs),
		Sentry: SentryConfig{DSN: os.Getenv("SENTRY_DSN")},
	}

	errs = append(errs, validate(cfg)...)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func loadRedisConfig(errs *[]error) RedisConfig {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return RedisConfig{Enabled: false}
	}

	return RedisConfig{
		Enabled:  true,
		Address:  addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       getEnvInt("REDIS_DB", 0, errs),
		TTL:      time.Duration(getEnvInt("REDIS_TTL_SECONDS", 86400, errs)) * time.Second,
	}
}

// resolveZAPI decide o modo uma única vez. ZAPI_URL (URL completa do send-text)
// tem precedência sobre instância + token.
func resolveZAPI(fullURL, instance, token, clientToken string) (ZAPIConfig, error) {
	fullURL = strings.TrimSpace(fullURL)
	if fullURL != "" {
		u, err := url.Parse(fullURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return ZAPIConfig{}, fmt.Errorf("ZAPI_URL inválida: %q", fullURL)
		}
		base := strings.TrimRight(fullURL, "/")
		base = strings.TrimSuffix(base, "/send-text")
		return ZAPIConfig{Mode: ZAPIModeFullURL, BaseURL: base, ClientToken: clientToken}, nil
	}

	if instance != "" && token != "" {
		return ZAPIConfig{
			Mode:        ZAPIModeInstance,
			BaseURL:     fmt.Sprintf("%s/instances/%s/token/%s", zapiDefaultHost, instance, token),
			ClientToken: clientToken,
		}, nil
	}

	if instance != "" || token != "" {
		return ZAPIConfig{}, errors.New("ZAPI_INSTANCE e ZAPI_TOKEN devem ser informados juntos")
	}

	return ZAPIConfig{Mode: ZAPIModeDisabled, ClientToken: clientToken}, nil
}

func validate(cfg *Config) []error {
	var errs []error
	if cfg.Cal.Secret == "" {
		errs = append(errs, errors.New("missing required env var: CAL_SECRET"))
	}
	if cfg.Notion.Token == "" {
		errs = append(errs, errors.New("missing required env var: NOTION_TOKEN"))
	}
	if cfg.Notion.DatabaseID == "" {
		errs = append(errs, errors.New("missing required env var: NOTION_DB"))
	}
	if cfg.Reminder.Offset <= 0 {
		errs = append(errs, errors.New("REMINDER_OFFSET_MINUTES must be > 0"))
	}
	if cfg.OpenAI.ClassifyTimeout <= 0 {
		errs = append(errs, errors.New("OPENAI_CLASSIFY_TIMEOUT_MS must be > 0"))
	}
	if cfg.LeadForm.RatePerMinute <= 0 {
		errs = append(errs, errors.New("LEAD_FORM_RATE_PER_MINUTE must be > 0"))
	}
	return errs
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid int for env %s: %s", key, v))
		return def
	}
	return i
}

func getEnvBool(key string, def bool, errs *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid bool for env %s: %s", key, v))
		return def
	}
	return b
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
