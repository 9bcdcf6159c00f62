package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kat-co/vala"
	"github.com/spf13/viper"
)

// Conf is the application-wide configuration. It is set by NewConfig.
var Conf *Config

type (
	ServerConfig struct {
		Host                      string
		Port                      int
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          int
		DisableTLS    bool
	}

	OpenLibraryConfig struct {
		BaseURL string
		Timeout time.Duration
	}

	Config struct {
		AppName                   string
		Env                       string // DEV (local; default), TEST, QA, PROD
		Debug                     bool
		TestMode                  bool
		Build                     string
		WorkDir                   string
		SecretKey                 []byte
		FrontendBaseURL           string
		DefaultFromName           string
		DefaultFromAddr           string
		AdminEmail                string
		SendgridApiKey            string
		RollbarToken              string
		PasswordResetTimeoutDelta time.Duration

		Server      ServerConfig
		Database    DatabaseConfig
		OpenLibrary OpenLibraryConfig
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Soma")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", "h^$cegm2emy-poq5(wer)enb$+57=dz&uoxh2(h!x)#*c2#yg4")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromName", "Soma")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("adminEmail", "admin@localhost")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverPort", 8080)
	v.SetDefault("serverDebugHost", "localhost:4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)

	v.SetDefault("databaseEngine", "postgres")
	v.SetDefault("databaseName", "soma")
	v.SetDefault("databaseUser", "soma")
	v.SetDefault("databasePassword", "")
	v.SetDefault("databaseAdminUser", "")
	v.SetDefault("databaseAdminPassword", "")
	v.SetDefault("databaseHost", "localhost")
	v.SetDefault("databasePort", 5432)
	v.SetDefault("databaseDisableTLS", true)

	v.SetDefault("openLibraryBaseURL", "https://openlibrary.org")
	v.SetDefault("openLibraryTimeout", 10*time.Second)

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		AppName:                   v.GetString("appName"),
		Env:                       env,
		Debug:                     v.GetBool("debug"),
		TestMode:                  env == "TEST",
		Build:                     v.GetString("build"),
		WorkDir:                   wd,
		SecretKey:                 []byte(v.GetString("secretKey")),
		FrontendBaseURL:           v.GetString("frontendBaseURL"),
		DefaultFromName:           v.GetString("defaultFromName"),
		DefaultFromAddr:           v.GetString("defaultFromEmail"),
		AdminEmail:                v.GetString("adminEmail"),
		SendgridApiKey:            v.GetString("sendgridApiKey"),
		RollbarToken:              v.GetString("rollbarToken"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			Port:                      v.GetInt("serverPort"),
			DebugHost:                 v.GetString("serverDebugHost"),
			ShutdownTimeout:           v.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("databaseEngine"),
			Name:          v.GetString("databaseName"),
			User:          v.GetString("databaseUser"),
			Password:      v.GetString("databasePassword"),
			AdminUser:     v.GetString("databaseAdminUser"),
			AdminPassword: v.GetString("databaseAdminPassword"),
			Host:          v.GetString("databaseHost"),
			Port:          v.GetInt("databasePort"),
			DisableTLS:    v.GetBool("databaseDisableTLS"),
		},
		OpenLibrary: OpenLibraryConfig{
			BaseURL: v.GetString("openLibraryBaseURL"),
			Timeout: v.GetDuration("openLibraryTimeout"),
		},
	}

	if err := conf.validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	Conf = conf
	return conf
}

// validate enforces settings that must be present outside DEV/TEST.
func (conf *Config) validate() error {
	if conf.Debug || conf.TestMode {
		return nil
	}
	return vala.BeginValidation().Validate(
		vala.StringNotEmpty(string(conf.SecretKey), "secretKey"),
		vala.StringNotEmpty(conf.SendgridApiKey, "sendgridApiKey"),
		vala.StringNotEmpty(conf.RollbarToken, "rollbarToken"),
		vala.StringNotEmpty(conf.Database.Password, "databasePassword"),
	).Check()
}

func (conf *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", conf.Server.Host, conf.Server.Port)
}

func (conf *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: conf.DefaultFromName, Address: conf.DefaultFromAddr}
}

func (conf *Config) AdminEmails() []mail.Address {
	return []mail.Address{{Address: conf.AdminEmail}}
}

func (dc DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", dc.Host, dc.Port)
}
