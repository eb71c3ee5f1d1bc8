package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/gommon/bytes"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// SysConfig system settings
type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Debug    bool   `yaml:"debug"`
}

// WebConfig web server settings
type WebConfig struct {
	Host         string   `yaml:"host"`
	Port         int      `yaml:"port"`
	Secret       string   `yaml:"secret"`    // HMAC key for session tokens
	TokenTTL     string   `yaml:"token_ttl"` // e.g. "72h"
	AllowOrigins []string `yaml:"allow_origins"`
	BodyLimit    string   `yaml:"body_limit"`
}

// AirtableConfig tabular store settings
type AirtableConfig struct {
	BaseURL       string  `yaml:"base_url"`
	BaseID        string  `yaml:"base_id"`
	Token         string  `yaml:"token"`
	UsersTable    string  `yaml:"users_table"`
	ServicesTable string  `yaml:"services_table"`
	RateLimit     float64 `yaml:"rate_limit"` // requests per second
	Timeout       int     `yaml:"timeout"`    // seconds
}

// CloudinaryConfig media host settings
type CloudinaryConfig struct {
	BaseURL       string `yaml:"base_url"`
	CloudName     string `yaml:"cloud_name"`
	APIKey        string `yaml:"api_key"`
	APISecret     string `yaml:"api_secret"`
	Folder        string `yaml:"folder"`
	MaxUploadSize string `yaml:"max_upload_size"` // e.g. "5MiB"
	MaxImages     int    `yaml:"max_images"`
	Timeout       int    `yaml:"timeout"` // seconds
}

// DBConfig optional audit database
type DBConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Type     string `yaml:"type"` // postgres
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
	Debug    bool   `yaml:"debug"`
}

// LogConfig logger settings
type LogConfig struct {
	Mode       string `yaml:"mode"` // development | production
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

// MailConfig outgoing mail settings
type MailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// JobConfig background job schedules
type JobConfig struct {
	CacheRefresh string `yaml:"cache_refresh"` // cron spec, e.g. "@every 5m"
	AuditKeepDay int    `yaml:"audit_keep_day"`
	WorkerPool   int    `yaml:"worker_pool"`
}

type AppConfig struct {
	System     SysConfig        `yaml:"system"`
	Web        WebConfig        `yaml:"web"`
	Airtable   AirtableConfig   `yaml:"airtable"`
	Cloudinary CloudinaryConfig `yaml:"cloudinary"`
	Database   DBConfig         `yaml:"database"`
	Logger     LogConfig        `yaml:"logger"`
	Mail       MailConfig       `yaml:"mail"`
	Job        JobConfig        `yaml:"job"`
}

// GetLogDir returns the log directory under the workdir
func (c *AppConfig) GetLogDir() string {
	return filepath.Join(c.System.Workdir, "logs")
}

// LogFile is logger.filename, defaulting to linkup.log in the log directory.
func (c *AppConfig) LogFile() string {
	if c.Logger.Filename != "" {
		return c.Logger.Filename
	}
	return filepath.Join(c.GetLogDir(), "linkup.log")
}

// TokenTTL parses web.token_ttl, falling back to 72h.
func (c *AppConfig) TokenTTL() time.Duration {
	d, err := time.ParseDuration(c.Web.TokenTTL)
	if err != nil || d <= 0 {
		return 72 * time.Hour
	}
	return d
}

// MaxUploadBytes parses cloudinary.max_upload_size, falling back to 5MiB.
func (c *AppConfig) MaxUploadBytes() int64 {
	n, err := bytes.Parse(c.Cloudinary.MaxUploadSize)
	if err != nil || n <= 0 {
		return 5 * bytes.MiB
	}
	return n
}

// Validate checks the settings required to reach the upstream services.
func (c *AppConfig) Validate() error {
	var missing []string
	if c.Airtable.BaseID == "" {
		missing = append(missing, "airtable.base_id")
	}
	if c.Airtable.Token == "" {
		missing = append(missing, "airtable.token")
	}
	if c.Web.Secret == "" {
		missing = append(missing, "web.secret")
	}
	if len(missing) > 0 {
		return errors.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	return nil
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "LinkUp",
		Location: "Africa/Lagos",
		Workdir:  "/var/linkup",
		Debug:    false,
	},
	Web: WebConfig{
		Host:      "0.0.0.0",
		Port:      3000,
		TokenTTL:  "72h",
		BodyLimit: "12M",
	},
	Airtable: AirtableConfig{
		BaseURL:       "https://api.airtable.com/v0",
		UsersTable:    "User table",
		ServicesTable: "Talent",
		RateLimit:     5,
		Timeout:       30,
	},
	Cloudinary: CloudinaryConfig{
		BaseURL:       "https://api.cloudinary.com/v1_1",
		Folder:        "linkup-marketplace",
		MaxUploadSize: "5MiB",
		MaxImages:     5,
		Timeout:       60,
	},
	Database: DBConfig{
		Enabled:  false,
		Type:     "postgres",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "linkup",
		User:     "postgres",
		MaxConn:  20,
		IdleConn: 5,
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: false,
	},
	Mail: MailConfig{
		Port: 587,
	},
	Job: JobConfig{
		CacheRefresh: "@every 5m",
		AuditKeepDay: 365,
		WorkerPool:   16,
	},
}

// LoadConfig reads the YAML file (if it exists), applies defaults for
// unset values and then environment overrides.
func LoadConfig(cfile string) (*AppConfig, error) {
	cfg := *DefaultAppConfig
	if cfile == "" {
		cfile = "linkup.yml"
	}
	data, err := os.ReadFile(cfile)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", cfile)
		}
	case os.IsNotExist(err):
		// env-only configuration
	default:
		return nil, errors.Wrapf(err, "read config %s", cfile)
	}
	applyDefaults(&cfg)
	applyEnv(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	d := DefaultAppConfig
	if cfg.Airtable.BaseURL == "" {
		cfg.Airtable.BaseURL = d.Airtable.BaseURL
	}
	if cfg.Airtable.UsersTable == "" {
		cfg.Airtable.UsersTable = d.Airtable.UsersTable
	}
	if cfg.Airtable.ServicesTable == "" {
		cfg.Airtable.ServicesTable = d.Airtable.ServicesTable
	}
	if cfg.Airtable.RateLimit <= 0 {
		cfg.Airtable.RateLimit = d.Airtable.RateLimit
	}
	if cfg.Airtable.Timeout <= 0 {
		cfg.Airtable.Timeout = d.Airtable.Timeout
	}
	if cfg.Cloudinary.BaseURL == "" {
		cfg.Cloudinary.BaseURL = d.Cloudinary.BaseURL
	}
	if cfg.Cloudinary.Folder == "" {
		cfg.Cloudinary.Folder = d.Cloudinary.Folder
	}
	if cfg.Cloudinary.MaxImages <= 0 {
		cfg.Cloudinary.MaxImages = d.Cloudinary.MaxImages
	}
	if cfg.Cloudinary.Timeout <= 0 {
		cfg.Cloudinary.Timeout = d.Cloudinary.Timeout
	}
	if cfg.Web.Port == 0 {
		cfg.Web.Port = d.Web.Port
	}
	if cfg.Job.CacheRefresh == "" {
		cfg.Job.CacheRefresh = d.Job.CacheRefresh
	}
	if cfg.Job.WorkerPool <= 0 {
		cfg.Job.WorkerPool = d.Job.WorkerPool
	}
}

func setEnvValue(name string, val *string) {
	if v := os.Getenv(name); v != "" {
		*val = v
	}
}

func setEnvBoolValue(name string, val *bool) {
	if v := os.Getenv(name); v != "" {
		*val = cast.ToBool(v)
	}
}

func setEnvIntValue(name string, val *int) {
	if v := os.Getenv(name); v != "" {
		*val = cast.ToInt(v)
	}
}

func setEnvFloatValue(name string, val *float64) {
	if v := os.Getenv(name); v != "" {
		*val = cast.ToFloat64(v)
	}
}

func applyEnv(cfg *AppConfig) {
	setEnvValue("LINKUP_SYSTEM_WORKER_DIR", &cfg.System.Workdir)
	setEnvValue("LINKUP_SYSTEM_LOCATION", &cfg.System.Location)
	setEnvBoolValue("LINKUP_SYSTEM_DEBUG", &cfg.System.Debug)

	setEnvValue("LINKUP_WEB_HOST", &cfg.Web.Host)
	setEnvIntValue("LINKUP_WEB_PORT", &cfg.Web.Port)
	setEnvValue("LINKUP_WEB_SECRET", &cfg.Web.Secret)
	setEnvValue("LINKUP_WEB_TOKEN_TTL", &cfg.Web.TokenTTL)
	if v := os.Getenv("LINKUP_WEB_ALLOW_ORIGINS"); v != "" {
		cfg.Web.AllowOrigins = strings.Split(v, ",")
	}

	// the original deployment's variable names keep working
	setEnvValue("AIRTABLE_PAT", &cfg.Airtable.Token)
	setEnvValue("AIRTABLE_BASE_ID", &cfg.Airtable.BaseID)
	setEnvValue("AIRTABLE_SERVICES_TABLE", &cfg.Airtable.ServicesTable)
	setEnvValue("LINKUP_AIRTABLE_TOKEN", &cfg.Airtable.Token)
	setEnvValue("LINKUP_AIRTABLE_BASE_ID", &cfg.Airtable.BaseID)
	setEnvValue("LINKUP_AIRTABLE_BASE_URL", &cfg.Airtable.BaseURL)
	setEnvFloatValue("LINKUP_AIRTABLE_RATE_LIMIT", &cfg.Airtable.RateLimit)

	setEnvValue("NEXT_PUBLIC_CLOUDINARY_CLOUD_NAME", &cfg.Cloudinary.CloudName)
	setEnvValue("CLOUDINARY_API_KEY", &cfg.Cloudinary.APIKey)
	setEnvValue("CLOUDINARY_API_SECRET", &cfg.Cloudinary.APISecret)
	setEnvValue("LINKUP_CLOUDINARY_CLOUD_NAME", &cfg.Cloudinary.CloudName)
	setEnvValue("LINKUP_CLOUDINARY_FOLDER", &cfg.Cloudinary.Folder)
	setEnvValue("LINKUP_CLOUDINARY_MAX_UPLOAD_SIZE", &cfg.Cloudinary.MaxUploadSize)

	setEnvBoolValue("LINKUP_DB_ENABLED", &cfg.Database.Enabled)
	setEnvValue("LINKUP_DB_TYPE", &cfg.Database.Type)
	setEnvValue("LINKUP_DB_HOST", &cfg.Database.Host)
	setEnvIntValue("LINKUP_DB_PORT", &cfg.Database.Port)
	setEnvValue("LINKUP_DB_NAME", &cfg.Database.Name)
	setEnvValue("LINKUP_DB_USER", &cfg.Database.User)
	setEnvValue("LINKUP_DB_PWD", &cfg.Database.Passwd)
	setEnvBoolValue("LINKUP_DB_DEBUG", &cfg.Database.Debug)

	setEnvValue("LINKUP_LOGGER_MODE", &cfg.Logger.Mode)
	setEnvBoolValue("LINKUP_LOGGER_FILE_ENABLE", &cfg.Logger.FileEnable)
	setEnvValue("LINKUP_LOGGER_FILENAME", &cfg.Logger.Filename)

	setEnvBoolValue("LINKUP_MAIL_ENABLED", &cfg.Mail.Enabled)
	setEnvValue("LINKUP_MAIL_HOST", &cfg.Mail.Host)
	setEnvIntValue("LINKUP_MAIL_PORT", &cfg.Mail.Port)
	setEnvValue("LINKUP_MAIL_USERNAME", &cfg.Mail.Username)
	setEnvValue("LINKUP_MAIL_PASSWORD", &cfg.Mail.Password)
	setEnvValue("LINKUP_MAIL_FROM", &cfg.Mail.From)

	setEnvValue("LINKUP_JOB_CACHE_REFRESH", &cfg.Job.CacheRefresh)
	setEnvIntValue("LINKUP_JOB_AUDIT_KEEP_DAY", &cfg.Job.AuditKeepDay)
}
