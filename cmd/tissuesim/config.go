package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
)

// RunConfig holds the command configuration.
type RunConfig struct {
	ScenarioFile string
	Steps        int
	Dt           float64
	Seed         int64
	LogLevel     string
	Listen       string
	WebhookURL   string
	ReportEvery  int
}

// configResolver defines how to resolve a single configuration value
type configResolver struct {
	flagName    string
	envVarName  string
	defaultVal  string
	description string
	setter      func(*RunConfig, string) error
}

func resolvers() []configResolver {
	return []configResolver{
		{
			flagName:    "scenario",
			envVarName:  "TISSUESIM_SCENARIO",
			description: "path to a JSON or YAML scenario file (required)",
			setter:      func(c *RunConfig, v string) error { c.ScenarioFile = v; return nil },
		},
		{
			flagName:    "steps",
			envVarName:  "TISSUESIM_STEPS",
			defaultVal:  "100",
			description: "number of steps to run",
			setter: func(c *RunConfig, v string) (err error) {
				c.Steps, err = strconv.Atoi(v)
				return err
			},
		},
		{
			flagName:    "dt",
			envVarName:  "TISSUESIM_DT",
			defaultVal:  "0.01",
			description: "step size",
			setter: func(c *RunConfig, v string) (err error) {
				c.Dt, err = strconv.ParseFloat(v, 64)
				return err
			},
		},
		{
			flagName:    "seed",
			envVarName:  "TISSUESIM_SEED",
			defaultVal:  "1",
			description: "seed for random cell placement",
			setter: func(c *RunConfig, v string) (err error) {
				c.Seed, err = strconv.ParseInt(v, 10, 64)
				return err
			},
		},
		{
			flagName:    "log-level",
			envVarName:  "TISSUESIM_LOG_LEVEL",
			defaultVal:  "info",
			description: "Log level: debug, info, warn, error",
			setter:      func(c *RunConfig, v string) error { c.LogLevel = v; return nil },
		},
		{
			flagName:    "listen",
			envVarName:  "TISSUESIM_LISTEN",
			description: "optional HTTP address serving /healthz, /snapshot and the /ws event stream",
			setter:      func(c *RunConfig, v string) error { c.Listen = v; return nil },
		},
		{
			flagName:    "webhook",
			envVarName:  "TISSUESIM_WEBHOOK",
			description: "optional URL receiving step events as JSON POSTs",
			setter:      func(c *RunConfig, v string) error { c.WebhookURL = v; return nil },
		},
		{
			flagName:    "report-every",
			envVarName:  "TISSUESIM_REPORT_EVERY",
			defaultVal:  "10",
			description: "publish a step event every N steps; 0 disables events",
			setter: func(c *RunConfig, v string) (err error) {
				c.ReportEvery, err = strconv.Atoi(v)
				return err
			},
		},
	}
}

// loadRunConfig resolves every option from, in order of precedence, the
// command line, the TISSUESIM_* environment and the built-in default.
func loadRunConfig(fs *flag.FlagSet, args []string, getenv func(string) string) (RunConfig, error) {
	cfg := RunConfig{}
	rs := resolvers()

	flagVars := make(map[string]*string, len(rs))
	for _, r := range rs {
		flagVars[r.flagName] = fs.String(r.flagName, "", r.description)
	}
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	for _, r := range rs {
		value := r.defaultVal
		if v := *flagVars[r.flagName]; v != "" {
			value = v
		} else if v := getenv(r.envVarName); v != "" {
			value = v
		}
		if err := r.setter(&cfg, value); err != nil {
			return cfg, fmt.Errorf("invalid value for %s: %q", r.flagName, value)
		}
	}

	switch {
	case cfg.ScenarioFile == "":
		return cfg, fmt.Errorf("a scenario file is required (-scenario or TISSUESIM_SCENARIO)")
	case cfg.Steps < 0:
		return cfg, fmt.Errorf("steps must be non-negative")
	case !(cfg.Dt > 0):
		return cfg, fmt.Errorf("dt must be positive")
	case cfg.ReportEvery < 0:
		return cfg, fmt.Errorf("report-every must be non-negative")
	}
	return cfg, nil
}

func loadRunConfigFromOS() (RunConfig, error) {
	return loadRunConfig(flag.CommandLine, os.Args[1:], os.Getenv)
}
