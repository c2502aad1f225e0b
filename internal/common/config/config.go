package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Backend struct {
	URL     string        `yaml:"url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

type DB struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Pass     string `yaml:"password"`
	Name     string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int    `yaml:"max_conns"`
}

// DSN prefers an explicit URL and otherwise builds one from the parts.
func (d DB) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d",
		d.User, d.Pass, d.Host, d.Port, d.Name, d.SSLMode, d.MaxConns)
}

func (d DB) Configured() bool { return d.URL != "" || (d.Host != "" && d.User != "" && d.Name != "") }

type MQ struct {
	URL   string `yaml:"url"`
	Host  string `yaml:"host"`
	Port  int    `yaml:"port"`
	User  string `yaml:"user"`
	Pass  string `yaml:"password"`
	VHost string `yaml:"vhost"`
	TLS   bool   `yaml:"tls"`
}

func (m MQ) Configured() bool { return m.URL != "" || m.Host != "" }

type Pricing struct {
	TaxRate     string `yaml:"tax_rate"`
	ServiceRate string `yaml:"service_rate"`
	DeliveryFee string `yaml:"delivery_fee"`
}

type Feed struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	OrderLimit   int           `yaml:"order_limit"`
}

type Alert struct {
	Enabled bool          `yaml:"enabled"`
	Repeat  time.Duration `yaml:"repeat"`
	Timeout time.Duration `yaml:"timeout"`
}

type KDS struct {
	Station      string        `yaml:"station"`
	PollInterval time.Duration `yaml:"poll_interval"`
	UrgentAfter  time.Duration `yaml:"urgent_after"`
}

type Queue struct {
	DrainInterval time.Duration `yaml:"drain_interval"`
}

type Printer struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	IP      string `yaml:"ip"`
	Port    int    `yaml:"port"`
	Channel string `yaml:"channel"`
	Enabled bool   `yaml:"enabled"`
	Drawer  bool   `yaml:"cash_drawer"`
}

type Receipt struct {
	NameEn   string `yaml:"name_en"`
	NameAr   string `yaml:"name_ar"`
	Subtitle string `yaml:"subtitle"`
	Footer   string `yaml:"footer"`
}

type HTTP struct {
	Port int `yaml:"port"`
}

type Log struct {
	Level string `yaml:"level"`
}

type App struct {
	Backend  Backend   `yaml:"backend"`
	Database DB        `yaml:"database"`
	Rabbit   MQ        `yaml:"rabbitmq"`
	Pricing  Pricing   `yaml:"pricing"`
	Feed     Feed      `yaml:"feed"`
	Alert    Alert     `yaml:"alert"`
	KDS      KDS       `yaml:"kds"`
	Queue    Queue     `yaml:"queue"`
	Printers []Printer `yaml:"printers"`
	Receipt  Receipt   `yaml:"receipt"`
	HTTP     HTTP      `yaml:"http"`
	Log      Log       `yaml:"log"`
}

func Defaults() App {
	return App{
		Backend:  Backend{Timeout: 10 * time.Second},
		Database: DB{Port: 5432, SSLMode: "disable", MaxConns: 10},
		Rabbit:   MQ{Port: 5672, VHost: "/"},
		Pricing:  Pricing{TaxRate: "0.05", ServiceRate: "0.10", DeliveryFee: "1.500"},
		Feed:     Feed{PollInterval: 7 * time.Second, OrderLimit: 100},
		Alert:    Alert{Enabled: true, Repeat: time.Second, Timeout: 15 * time.Second},
		KDS:      KDS{Station: "all", PollInterval: 7 * time.Second, UrgentAfter: 10 * time.Minute},
		Queue:    Queue{DrainInterval: 30 * time.Second},
		Receipt: Receipt{
			NameEn:   "Al-Katem & Al-Bukhari",
			NameAr:   "الكاتم والبخاري",
			Subtitle: "Maboos Grills",
			Footer:   "Powered by RIWA POS",
		},
		HTTP: HTTP{Port: 3000},
		Log:  Log{Level: "info"},
	}
}

// Load reads the yaml file at path over the defaults, then applies .env and
// process environment overrides. An empty path skips the file.
func Load(path string) (App, error) {
	a := Defaults()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return App{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &a); err != nil {
			return App{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	// missing .env is fine; real deployments set variables directly
	_ = godotenv.Load()
	applyEnv(&a)
	if err := a.Validate(); err != nil {
		return App{}, err
	}
	return a, nil
}

func applyEnv(a *App) {
	set := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	set(&a.Backend.URL, "RIWA_API_URL")
	set(&a.Backend.Token, "RIWA_API_TOKEN")
	set(&a.Database.URL, "DATABASE_URL")
	set(&a.Rabbit.URL, "RABBITMQ_URL")
	set(&a.Log.Level, "LOG_LEVEL")
	set(&a.KDS.Station, "KDS_STATION")
}

func (a App) Validate() error {
	var missing []string
	if a.Backend.URL == "" {
		missing = append(missing, "backend.url")
	}
	if a.Feed.PollInterval <= 0 {
		missing = append(missing, "feed.poll_interval")
	}
	if a.Alert.Repeat <= 0 || a.Alert.Timeout <= 0 {
		missing = append(missing, "alert.repeat/alert.timeout")
	}
	for i, p := range a.Printers {
		if p.IP == "" {
			missing = append(missing, fmt.Sprintf("printers[%d].ip", i))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("invalid config: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

func FindConfig() (string, error) {
	candidates := []string{"config.yaml", "config.yml", "deploy/config.example.yaml"}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fs.ErrNotExist
}

// IsNotFound reports whether FindConfig found nothing.
func IsNotFound(err error) bool { return errors.Is(err, fs.ErrNotExist) }
