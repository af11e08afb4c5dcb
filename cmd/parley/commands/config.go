package commands

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/haivivi/parley/cmd/parley/internal/config"
	"github.com/haivivi/parley/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage contexts and service configurations.

A context is a named directory holding per-service YAML files. The voice
session reads realtime.yaml. Nested keys use dots.

Examples:
  parley config list-contexts
  parley config add-context office
  parley config use-context office
  parley config current-context
  parley config set office realtime voice verse
  parley config set office realtime vad.silence_duration_ms 700
  parley config get office realtime voice
  parley config show`,
}

var configListContextsCmd = &cobra.Command{
	Use:     "list-contexts",
	Aliases: []string{"ls"},
	Short:   "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		names, err := cfg.ListContexts()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(names) == 0 {
			fmt.Fprintln(out, "No contexts configured.")
			fmt.Fprintln(out, "Create one with: parley config add-context <name>")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CURRENT\tNAME\tSERVICES")
		for _, name := range names {
			current := ""
			if name == cfg.CurrentContext {
				current = "*"
			}
			services, _ := config.ListServices(cfg.ContextDir(name))
			fmt.Fprintf(w, "%s\t%s\t%s\n", current, name, strings.Join(services, ", "))
		}
		return w.Flush()
	},
}

var configAddContextCmd = &cobra.Command{
	Use:   "add-context <name>",
	Short: "Create a new context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		name := args[0]
		if err := cfg.AddContext(name); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Context %q created.\n", name)
		fmt.Fprintf(cmd.OutOrStdout(), "Configure it with: parley config set %s realtime <key> <value>\n", name)
		return nil
	},
}

var configDeleteContextCmd = &cobra.Command{
	Use:   "delete-context <name>",
	Short: "Delete a context and all its service configs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if err := cfg.DeleteContext(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Context %q deleted.\n", args[0])
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if err := cfg.UseContext(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Switched to context %q.\n", args[0])
		return nil
	},
}

var configCurrentContextCmd = &cobra.Command{
	Use:   "current-context",
	Short: "Display the current context name",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if cfg.CurrentContext == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "No current context set.")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), cfg.CurrentContext)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <context> <service> <key> <value>",
	Short: "Set a service config value",
	Long: `Set a key in a service's YAML file. The value is parsed as YAML, so
numbers, booleans and lists keep their type.

Examples:
  parley config set home realtime api_key sk-xxxx
  parley config set home realtime transport websocket
  parley config set home realtime quiet_tools '[checkTimer]'`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		ctxName, service, key, value := args[0], args[1], args[2], args[3]
		contextDir, err := existingContextDir(cfg, ctxName, service)
		if err != nil {
			return err
		}

		m, err := loadServiceMap(contextDir, service)
		if err != nil {
			return err
		}
		var v any
		if err := yaml.Unmarshal([]byte(value), &v); err != nil {
			v = value
		}
		if err := setPath(m, strings.Split(key, "."), v); err != nil {
			return err
		}
		if service == config.RealtimeService {
			if err := validateRealtime(m); err != nil {
				return err
			}
		}
		if err := config.SaveService(contextDir, service, &m); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s.%s = %s (context: %s)\n", service, key, value, ctxName)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <context> <service> <key>",
	Short: "Get a service config value",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		ctxName, service, key := args[0], args[1], args[2]
		contextDir, err := existingContextDir(cfg, ctxName, service)
		if err != nil {
			return err
		}
		m, err := config.LoadService[map[string]any](contextDir, service)
		if err != nil {
			return err
		}
		var cur any = *m
		for _, part := range strings.Split(key, ".") {
			mm, ok := cur.(map[string]any)
			if !ok {
				return fmt.Errorf("key %q not found in %s config", key, service)
			}
			if cur, ok = mm[part]; !ok {
				return fmt.Errorf("key %q not found in %s config", key, service)
			}
		}
		if _, isMap := cur.(map[string]any); !isMap {
			fmt.Fprintln(cmd.OutOrStdout(), cur)
			return nil
		}
		return cli.Output(cmd.OutOrStdout(), cli.FormatYAML, cur)
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective realtime settings of the selected context",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRealtime()
		if err != nil {
			return err
		}
		shown := *rt
		if shown.APIKey != "" {
			shown.APIKey = maskSecret(shown.APIKey)
		}
		return cli.Output(cmd.OutOrStdout(), cli.FormatYAML, &shown)
	},
}

func existingContextDir(cfg *config.Config, ctxName, service string) (string, error) {
	if err := config.ValidateContextName(ctxName); err != nil {
		return "", err
	}
	if err := config.ValidateServiceName(service); err != nil {
		return "", err
	}
	return cfg.ResolveContext(ctxName)
}

func loadServiceMap(contextDir, service string) (map[string]any, error) {
	existing, err := config.LoadService[map[string]any](contextDir, service)
	if errors.Is(err, config.ErrServiceNotFound) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read existing %s config: %w", service, err)
	}
	// Empty YAML files unmarshal to a nil map.
	if *existing == nil {
		return map[string]any{}, nil
	}
	return *existing, nil
}

// setPath assigns v at a dotted key, creating intermediate maps.
func setPath(m map[string]any, path []string, v any) error {
	for i, part := range path {
		if part == "" {
			return fmt.Errorf("invalid key %q", strings.Join(path, "."))
		}
		if i == len(path)-1 {
			m[part] = v
			return nil
		}
		next, ok := m[part].(map[string]any)
		if !ok {
			if _, exists := m[part]; exists {
				return fmt.Errorf("key %q is not a map", strings.Join(path[:i+1], "."))
			}
			next = map[string]any{}
			m[part] = next
		}
		m = next
	}
	return nil
}

func validateRealtime(m map[string]any) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	var rt config.Realtime
	if err := yaml.UnmarshalWithOptions(data, &rt, yaml.DisallowUnknownField()); err != nil {
		return fmt.Errorf("invalid realtime config: %w", err)
	}
	return rt.Validate()
}

func maskSecret(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

func init() {
	configCmd.AddCommand(configListContextsCmd)
	configCmd.AddCommand(configAddContextCmd)
	configCmd.AddCommand(configDeleteContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configCurrentContextCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configShowCmd)

	rootCmd.AddCommand(configCmd)
}
