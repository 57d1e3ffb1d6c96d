package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage vibe-enhancer configuration",
		Long:  "Show, get, or set configuration values. Config is stored in ~/.vibe-enhancer.yaml.",
		Example: `  vibe-enhancer config                              # show all config
  vibe-enhancer config set correlation.cutoff 0.5   # default |rho| cutoff
  vibe-enhancer config get correlation.cutoff       # get a value`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(a)
		},
	}

	cmd.AddCommand(newConfigSetCmd(a))
	cmd.AddCommand(newConfigGetCmd(a))

	return cmd
}

func newConfigSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(a, args[0], args[1])
		},
	}
}

func newConfigGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(a, args[0])
		},
	}
}

func runConfigShow(a *app) error {
	settings := a.v.AllSettings()
	if len(settings) == 0 {
		fmt.Fprintln(a.stdout, "# No configuration set. Config file: ~/"+configName+".yaml")
		return nil
	}

	out, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Fprint(a.stdout, string(out))
	return nil
}

func runConfigSet(a *app, key, value string) error {
	// Store numbers and booleans typed so the YAML stays readable.
	switch value {
	case "true", "yes", "on":
		a.v.Set(key, true)
	case "false", "no", "off":
		a.v.Set(key, false)
	default:
		if i, err := strconv.Atoi(value); err == nil {
			a.v.Set(key, i)
		} else if f, err := strconv.ParseFloat(value, 64); err == nil {
			a.v.Set(key, f)
		} else {
			a.v.Set(key, value)
		}
	}

	cfgFile, err := a.configPath()
	if err != nil {
		return err
	}
	if err := a.v.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(a.stdout, "Set %s = %s in %s\n", key, value, cfgFile)
	return nil
}

func runConfigGet(a *app, key string) error {
	val := a.v.Get(key)
	if val == nil {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Fprintln(a.stdout, val)
	return nil
}
