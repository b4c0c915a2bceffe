package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmporch/musings/internal/config"
	"github.com/jmporch/musings/internal/token"
)

var tokenSecret string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the server's credential list",
	Long: `Commands to issue and revoke bearer credentials. Only salted hashes are
persisted; revocation replaces an entry with the REVOKED sentinel in place,
so list positions never shift.`,
}

var tokenAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Issue a new credential and persist its hash",
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, err := readSecret()
		if err != nil {
			return err
		}

		entry, err := token.Issue(secret)
		if err != nil {
			return err
		}

		cfg.Auth.Tokens = append(cfg.Auth.Tokens, entry)
		if err := config.Save(cfgPath, cfg); err != nil {
			return err
		}

		fmt.Println(okStyle.Render("Stored credential entry ") +
			dimStyle.Render(fmt.Sprintf("(position %d)", len(cfg.Auth.Tokens)-1)))
		fmt.Println(entry)
		return nil
	},
}

var tokenRevokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Revoke every credential matching a secret",
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, err := readSecret()
		if err != nil {
			return err
		}

		before := countRevoked(cfg.Auth.Tokens)
		cfg.Auth.Tokens = token.Revoke(cfg.Auth.Tokens, secret)
		revoked := countRevoked(cfg.Auth.Tokens) - before

		if revoked == 0 {
			fmt.Println(dimStyle.Render("No matching credentials"))
			return nil
		}

		if err := config.Save(cfgPath, cfg); err != nil {
			return err
		}
		fmt.Println(okStyle.Render(fmt.Sprintf("Revoked %d credential(s)", revoked)))
		return nil
	},
}

// readSecret takes the plaintext from --secret or, failing that, the first
// line of stdin so the secret stays out of shell history.
func readSecret() (string, error) {
	if tokenSecret != "" {
		return tokenSecret, nil
	}

	fmt.Fprint(os.Stderr, "Secret: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	secret := strings.TrimRight(line, "\r\n")
	if secret == "" {
		return "", fmt.Errorf("secret must not be empty")
	}
	return secret, nil
}

func countRevoked(entries []string) int {
	n := 0
	for _, entry := range entries {
		if entry == token.Revoked {
			n++
		}
	}
	return n
}

func init() {
	for _, c := range []*cobra.Command{tokenAddCmd, tokenRevokeCmd} {
		c.Flags().StringVar(&tokenSecret, "secret", "", "Plaintext secret (read from stdin when omitted)")
	}

	tokenCmd.AddCommand(tokenAddCmd, tokenRevokeCmd)
	rootCmd.AddCommand(tokenCmd)
}
