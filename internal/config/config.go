package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration. It is constructed once by
// Load and passed into component constructors; nothing reads it ambiently.
type Config struct {
	Paths     PathsConfig     `yaml:"paths" mapstructure:"paths"`
	Retriever RetrieverConfig `yaml:"retriever" mapstructure:"retriever"`
	Credit    CreditConfig    `yaml:"credit" mapstructure:"credit"`
	Report    ReportConfig    `yaml:"report" mapstructure:"report"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// PathsConfig locates inputs and outputs on disk.
type PathsConfig struct {
	Templates  string `yaml:"templates" mapstructure:"templates"`
	Images     string `yaml:"images" mapstructure:"images"`
	Output     string `yaml:"output" mapstructure:"output"`
	LoanJSON   string `yaml:"loan_json" mapstructure:"loan_json"`
	CreditXLSX string `yaml:"credit_xlsx" mapstructure:"credit_xlsx"`
}

// RetrieverConfig holds origination-API access settings.
type RetrieverConfig struct {
	APIServer    string   `yaml:"api_server" mapstructure:"api_server"`
	Username     string   `yaml:"username" mapstructure:"username"`
	Password     string   `yaml:"password" mapstructure:"password"`
	ClientID     string   `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret string   `yaml:"client_secret" mapstructure:"client_secret"`
	Folders      []string `yaml:"folders" mapstructure:"folders"`
	FieldIDs     []string `yaml:"field_ids" mapstructure:"field_ids"`
	DateFields   []string `yaml:"date_fields" mapstructure:"date_fields"`
	// ClosedFolder is the folder whose loans are filtered to last month's
	// fundings at retrieval time.
	ClosedFolder string  `yaml:"closed_folder" mapstructure:"closed_folder"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// CreditConfig describes the credit-bureau export shape.
type CreditConfig struct {
	SheetName string `yaml:"sheet_name" mapstructure:"sheet_name"`
}

// ReportConfig holds report-wide metrics plus the enumerated variants.
type ReportConfig struct {
	// FullWidthInches / HalfWidthInches are the two standard image widths.
	FullWidthInches float64                  `yaml:"full_width_inches" mapstructure:"full_width_inches"`
	HalfWidthInches float64                  `yaml:"half_width_inches" mapstructure:"half_width_inches"`
	Variants        map[string]VariantConfig `yaml:"variants" mapstructure:"variants"`
}

// VariantConfig is the explicit per-report-variant configuration record:
// title template, filters, template id, and image layout rules. Validated at
// load time instead of resolved dynamically at render time.
type VariantConfig struct {
	Number      int    `yaml:"number" mapstructure:"number"`
	Version     string `yaml:"version" mapstructure:"version"`
	Title       string `yaml:"title" mapstructure:"title"`
	StatusLabel string `yaml:"status_label" mapstructure:"status_label"`
	Folder      string `yaml:"folder" mapstructure:"folder"`
	Template    string `yaml:"template" mapstructure:"template"`
	Layout      Layout `yaml:"layout" mapstructure:"layout"`
}

// Layout maps image identifiers to widths. An image key appearing in none of
// the three rules is a configuration error for that report variant.
type Layout struct {
	FullWidth    []string           `yaml:"full_width" mapstructure:"full_width"`
	HalfWidth    []string           `yaml:"half_width" mapstructure:"half_width"`
	CustomInches map[string]float64 `yaml:"custom_inches" mapstructure:"custom_inches"`
}

// StoreConfig configures the run ledger.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("REPORTCLI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("paths.templates", "data/templates")
	v.SetDefault("paths.images", "data/images")
	v.SetDefault("paths.output", "data/output")
	v.SetDefault("paths.loan_json", "data/input/loan_data.json")
	v.SetDefault("paths.credit_xlsx", "data/input/credit_pulls.xlsx")
	v.SetDefault("retriever.folders", []string{"Active Pipeline", "Closed 2025"})
	v.SetDefault("retriever.closed_folder", "Closed 2025")
	v.SetDefault("retriever.field_ids", []string{
		"2", "14", "317", "411", "1401", "1997", "2626", "ORGID",
		"LoanTeamMember.Name.Underwriter",
		"LoanTeamMember.Name.Branch Processor",
		"Log.MS.Date.Submittal",
		"Log.MS.Date.Clear to Close",
		"Log.MS.Date.Sent to Branch LP",
	})
	v.SetDefault("retriever.date_fields", []string{
		"1997",
		"Log.MS.Date.Submittal",
		"Log.MS.Date.Clear to Close",
		"Log.MS.Date.Sent to Branch LP",
	})
	v.SetDefault("retriever.rate_limit", 10.0)
	v.SetDefault("retriever.timeout_secs", 30)
	v.SetDefault("credit.sheet_name", "Sheet0")
	v.SetDefault("report.full_width_inches", 6.5)
	v.SetDefault("report.half_width_inches", 3.2)
	v.SetDefault("store.path", "data/report_runs.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if len(cfg.Report.Variants) == 0 {
		cfg.Report.Variants = DefaultVariants()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the variant registry shape at load time so a bad layout
// rule fails fast instead of mid-render.
func (c *Config) Validate() error {
	if len(c.Report.Variants) == 0 {
		return eris.New("config: no report variants configured")
	}

	seen := make(map[int]string)
	for name, variant := range c.Report.Variants {
		if variant.Number < 1 || variant.Number > 5 {
			return eris.Errorf("config: variant %s: number %d out of range 1-5", name, variant.Number)
		}
		if prev, dup := seen[variant.Number]; dup {
			return eris.Errorf("config: variants %s and %s share number %d", prev, name, variant.Number)
		}
		seen[variant.Number] = name

		if variant.Template == "" {
			return eris.Errorf("config: variant %s: missing template", name)
		}
		for img, inches := range variant.Layout.CustomInches {
			if inches <= 0 {
				return eris.Errorf("config: variant %s: image %s: non-positive width", name, img)
			}
		}
	}

	if c.Report.FullWidthInches <= 0 || c.Report.HalfWidthInches <= 0 {
		return eris.New("config: image width metrics must be positive")
	}

	return nil
}

// Variant looks up a variant by report number.
func (c *Config) Variant(number int) (string, VariantConfig, bool) {
	for name, variant := range c.Report.Variants {
		if variant.Number == number {
			return name, variant, true
		}
	}
	return "", VariantConfig{}, false
}

// DefaultVariants returns the built-in registry for reports 1-5.
func DefaultVariants() map[string]VariantConfig {
	return map[string]VariantConfig{
		"report_1": {
			Number:      1,
			Version:     "1.0",
			Title:       "{time_label} {status_label} Pipeline",
			StatusLabel: "Active",
			Template:    "report_1.tmpl",
			Layout: Layout{
				FullWidth: []string{"volume_by_state_active_img", "volume_by_branch_active_img", "pareto_loan_officer_active_img"},
				HalfWidth: []string{"projected_closings_active_img"},
				CustomInches: map[string]float64{
					"final_chart_active_retail_img": 4.5,
					"final_table_active_retail_img": 5.5,
				},
			},
		},
		"report_2": {
			Number:      2,
			Version:     "1.0",
			Title:       "Monthly Closed Volume",
			StatusLabel: "Closed",
			Template:    "report_2.tmpl",
			Layout: Layout{
				FullWidth: []string{"volume_by_state_closed_img", "volume_by_branch_closed_img", "pareto_loan_officer_closed_img"},
				CustomInches: map[string]float64{
					"final_chart_closed_retail_img": 4.5,
					"final_table_closed_retail_img": 5.5,
				},
			},
		},
		"report_3": {
			Number:   3,
			Version:  "1.0",
			Title:    "Loan Officer Efficiency",
			Folder:   "Closed 2025",
			Template: "report_3.tmpl",
			Layout: Layout{
				FullWidth: []string{"loan_officer_by_efficiency_img", "closed_pulls_top30_img"},
				HalfWidth: []string{"closed_pulls_by_branch_img"},
			},
		},
		"report_4": {
			Number:   4,
			Version:  "1.0",
			Title:    "Underwriting Turn Times",
			Folder:   "Closed 2025",
			Template: "report_4.tmpl",
			Layout: Layout{
				FullWidth: []string{"volume_by_underwriter_img"},
				HalfWidth: []string{"days_to_close_by_underwriter_img"},
			},
		},
		"report_5": {
			Number:   5,
			Version:  "1.0",
			Title:    "Branch Processing Turn Times",
			Folder:   "Closed 2025",
			Template: "report_5.tmpl",
			Layout: Layout{
				FullWidth: []string{"volume_by_processor_img"},
				HalfWidth: []string{"days_to_close_by_processor_img"},
			},
		},
	}
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
