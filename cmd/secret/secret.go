// Package secret implements the credential management CLI commands
package secret

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/paularlott/cli"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/druroland/myriad/internal/config"
)

func secretsFileFlag() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:         "secrets",
			Usage:        "Path to the secrets TOML file",
			DefaultValue: "secrets.toml",
			EnvVars:      []string{"MYRIAD_SECRETS_FILE"},
		},
	}
}

// Commands returns the secret subcommands
func Commands() []*cli.Command {
	return []*cli.Command{
		SetCommand(),
		ListCommand(),
	}
}

// SetCommand stores credentials for an integration reference
func SetCommand() *cli.Command {
	return &cli.Command{
		Name:        "set",
		Usage:       "Store credentials for an integration",
		Description: "Prompt for the credentials behind a reference like opnsense.home and write them to the secrets file. Input is not echoed.",
		Flags: append(secretsFileFlag(),
			&cli.StringFlag{
				Name:     "ref",
				Usage:    "Credential reference in <family>.<key> form (families: opnsense, proxmox, snmp)",
				Required: true,
			},
		),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			ref := cmd.GetString("ref")
			family, key, err := splitRef(ref)
			if err != nil {
				return err
			}

			values := make(map[string]string)
			switch family {
			case "opnsense":
				if values["api_key"], err = promptSecret("API key"); err != nil {
					return err
				}
				if values["api_secret"], err = promptSecret("API secret"); err != nil {
					return err
				}
			case "proxmox":
				if values["token_id"], err = promptSecret("Token ID (user@realm!name)"); err != nil {
					return err
				}
				if values["token_secret"], err = promptSecret("Token secret"); err != nil {
					return err
				}
			case "snmp":
				if values["community"], err = promptSecret("Community string"); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown credential family: %s", family)
			}

			path := cmd.GetString("secrets")
			if err := writeSecrets(path, family, key, values); err != nil {
				return err
			}

			fmt.Printf("Credentials stored for %s in %s\n", ref, path)
			return nil
		},
	}
}

// ListCommand prints the configured credential references
func ListCommand() *cli.Command {
	return &cli.Command{
		Name:        "list",
		Usage:       "List stored credential references",
		Description: "Show which credential references exist in the secrets file. Secret values are never printed.",
		Flags:       secretsFileFlag(),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.GetString("secrets")
			secrets, err := config.LoadSecrets(path)
			if err != nil {
				return err
			}

			var refs []string
			for key := range secrets.OPNsense {
				refs = append(refs, "opnsense."+key)
			}
			for key := range secrets.Proxmox {
				refs = append(refs, "proxmox."+key)
			}
			for key := range secrets.SNMP {
				refs = append(refs, "snmp."+key)
			}

			if len(refs) == 0 {
				fmt.Println("No credentials stored")
				return nil
			}

			sort.Strings(refs)
			for _, ref := range refs {
				fmt.Println(ref)
			}
			return nil
		},
	}
}

func splitRef(ref string) (string, string, error) {
	parts := strings.SplitN(ref, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid credential reference %q, expected <family>.<key>", ref)
	}
	return parts[0], parts[1], nil
}

// promptSecret reads a value from the terminal without echoing it
func promptSecret(label string) (string, error) {
	fmt.Printf("%s: ", label)
	value, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(value) == 0 {
		return "", fmt.Errorf("%s must not be empty", label)
	}
	return string(value), nil
}

// writeSecrets merges the new credentials into the secrets file,
// preserving entries for other references
func writeSecrets(path, family, key string, values map[string]string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("error reading secrets file: %w", err)
		}
	}

	for field, value := range values {
		v.Set(family+"."+key+"."+field, value)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("error writing secrets file: %w", err)
	}

	// Secrets should not be world readable
	return os.Chmod(path, 0o600)
}
