package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/upb/realm-guard/app"
	"github.com/upb/realm-guard/config"
	"github.com/upb/realm-guard/keycloak"
	"go.uber.org/zap"
)

var (
	inspectUnverified bool
	inspectRoles      []string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [token]",
	Short: "Verify a token and print its auth context",
	Long: `Verify a bearer token against the configured realm and print the projected
auth context. Reads the token from stdin when no argument is given.

--unverified skips signature and claim checks; it only works outside
production with AUTH_ALLOW_UNVERIFIED_DECODE=true.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		token, err := readToken(args, cmd.InOrStdin())
		if err != nil {
			return err
		}

		opts := inspectOptions{Unverified: inspectUnverified, Roles: inspectRoles}
		return runInspect(cmd.Context(), cfg, logger, token, opts, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().BoolVar(&inspectUnverified, "unverified", false, "Decode without verification (development only)")
	inspectCmd.Flags().StringSliceVar(&inspectRoles, "roles", nil, "Report whether the token satisfies any of these roles")
}

type inspectOptions struct {
	Unverified bool
	Roles      []string
}

// InspectReport is printed by the inspect command
type InspectReport struct {
	Verified   bool                 `json:"verified"`
	Context    keycloak.AuthContext `json:"context"`
	NearExpiry bool                 `json:"near_expiry"`
	Permitted  *bool                `json:"permitted,omitempty"`
}

func runInspect(ctx context.Context, cfg *config.Config, logger *zap.Logger, token string, opts inspectOptions, out io.Writer) error {
	var (
		claims keycloak.RawClaims
		err    error
	)

	if opts.Unverified {
		decoder, derr := keycloak.NewInsecureDecoder(keycloak.InsecureDecoderConfig{
			Allow:      cfg.Keycloak.AllowUnverifiedDecode,
			Production: cfg.IsProduction(),
		}, logger)
		if derr != nil {
			return derr
		}
		claims, err = decoder.DecodeUnverified(token)
	} else {
		stack, serr := app.NewAuthStack(cfg.Keycloak, nil, logger)
		if serr != nil {
			return serr
		}
		claims, err = stack.Verifier.Verify(ctx, token, cfg.Keycloak.Audience)
	}
	if err != nil {
		if kind, ok := keycloak.KindOf(err); ok {
			return fmt.Errorf("token rejected (%s): %w", kind, err)
		}
		return err
	}

	report := InspectReport{
		Verified:   !opts.Unverified,
		Context:    keycloak.Project(claims),
		NearExpiry: keycloak.NewExpiryAdvisor(cfg.Keycloak.RefreshThreshold, nil).NearExpiry(claims),
	}
	if len(opts.Roles) > 0 {
		permitted := keycloak.Permitted(report.Context, opts.Roles)
		report.Permitted = &permitted
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func readToken(args []string, in io.Reader) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return stripBearer(args[0]), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	token := stripBearer(strings.TrimSpace(line))
	if token == "" {
		return "", errors.New("no token given")
	}
	return token, nil
}

// stripBearer accepts a pasted Authorization header value as well as a bare token
func stripBearer(s string) string {
	if token, ok := keycloak.ExtractBearerToken(s); ok {
		return token
	}
	return strings.TrimSpace(s)
}
