package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

const envPrefix = "AGENDLY_"

type Application struct {
	Host      string    `koanf:"host"`
	Server    Server    `koanf:"server"`
	Database  Database  `koanf:"db"`
	Reminders Reminders `koanf:"reminders"`
	Email     Email     `koanf:"email"`
	Messaging Messaging `koanf:"messaging"`
}

type Server struct {
	Addr            string        `koanf:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdowntimeout"`
}

type Database struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
}

type Reminders struct {
	Enabled                bool          `koanf:"enabled"`
	ScanInterval           time.Duration `koanf:"scaninterval"`
	GraceWindow            time.Duration `koanf:"gracewindow"`
	MaxExpansionIterations int           `koanf:"maxexpansioniterations"`
}

type EmailProvider string

const (
	EmailProviderSMTP EmailProvider = "smtp"
	EmailProviderLog  EmailProvider = "log"
)

type Email struct {
	Provider EmailProvider `koanf:"provider"`
	Host     string        `koanf:"host"`
	Port     int           `koanf:"port"`
	Username string        `koanf:"username"`
	Password string        `koanf:"password"`
	From     string        `koanf:"from"`
	StartTLS bool          `koanf:"starttls"`
	Timeout  time.Duration `koanf:"timeout"`
}

type Messaging struct {
	LinkBase string `koanf:"linkbase"`
}

func Defaults() Application {
	return Application{
		Host: "http://localhost:3000",
		Server: Server{
			Addr:            ":8181",
			ShutdownTimeout: 30 * time.Second,
		},
		Database: Database{
			Host:   "localhost",
			Port:   5432,
			User:   "agendly",
			Pass:   "",
			Name:   "agendly",
			Schema: "agendly",
		},
		Reminders: Reminders{
			Enabled:                true,
			ScanInterval:           60 * time.Second,
			GraceWindow:            5 * time.Minute,
			MaxExpansionIterations: 10000,
		},
		Email: Email{
			Provider: EmailProviderLog,
			Port:     587,
			From:     "reminders@agendly.local",
			StartTLS: true,
			Timeout:  15 * time.Second,
		},
		Messaging: Messaging{
			LinkBase: "https://wa.me/",
		},
	}
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Defaults(), "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(k, v string) (string, any) {
			// AGENDLY_REMINDERS_GRACEWINDOW -> reminders.gracewindow
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, envPrefix)), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	return app, nil
}
