// Command stratadrivectl runs maintenance tasks against a StrataDrive
// deployment: garbage collection, role assignment, approval listings and
// key material for the identity integration.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dalemusser/stratadrive/internal/app/bootstrap"
	"github.com/dalemusser/stratadrive/internal/app/system/auth"
	"github.com/dalemusser/stratadrive/internal/app/system/inputval"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var configPath string

// session is an opened deployment. The caller must defer close.
type session struct {
	cfg   bootstrap.AppConfig
	deps  bootstrap.DBDeps
	svcs  bootstrap.Services
	log   *zap.Logger
	close func()
}

func openSession(ctx context.Context) (*session, error) {
	cc, err := readCtlConfig(configPath)
	if err != nil {
		return nil, err
	}
	appCfg, err := cc.appConfig()
	if err != nil {
		return nil, err
	}
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	deps, err := bootstrap.ConnectDB(ctx, nil, appCfg, logger)
	if err != nil {
		return nil, err
	}
	return &session{
		cfg:  appCfg,
		deps: deps,
		svcs: bootstrap.BuildServices(appCfg, deps, logger),
		log:  logger,
		close: func() {
			if deps.MongoClient != nil {
				_ = deps.MongoClient.Disconnect(context.Background())
			}
			_ = logger.Sync()
		},
	}, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var rootCmd = &cobra.Command{
	Use:          "stratadrivectl",
	Short:        "StrataDrive maintenance tool",
	SilenceUsage: true,
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove files flagged for deletion",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
		defer cancel()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.close()

		res, err := s.svcs.GC.Sweep(ctx)
		if err != nil {
			return fmt.Errorf("sweep: %w", err)
		}
		if res.Deleted > 0 || res.Failed > 0 {
			s.svcs.Audit.FilesSwept(ctx, res.Deleted, res.Failed)
		}
		return printJSON(res)
	},
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage users",
}

var usersSetRoleCmd = &cobra.Command{
	Use:   "set-role <user-id> <role>",
	Short: "Assign member, admin or super-admin",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := inputval.ParseObjectID(args[0], "user id")
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.close()

		before, err := s.svcs.Identity.AssignRole(ctx, id, args[1])
		if err != nil {
			return err
		}
		after, err := s.svcs.Identity.Users.GetByID(ctx, id)
		if err != nil {
			return err
		}
		// No acting user: the change comes from the operator.
		s.svcs.Audit.RoleChanged(ctx, nil, primitive.NilObjectID, *after, before.Role)
		fmt.Printf("%s: %s -> %s\n", after.Name, before.Role, after.Role)
		return nil
	},
}

var approvalsCmd = &cobra.Command{
	Use:   "approvals",
	Short: "Inspect approval requests",
}

var approvalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List approval requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		tenant, _ := cmd.Flags().GetString("tenant")
		if status != "" && !models.IsValidApprovalStatus(status) {
			return fmt.Errorf("unknown status %q", status)
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.close()

		list, err := s.deps.Stores.Approvals.List(ctx, models.ApprovalQuery{Status: status, TenantID: tenant})
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("No approval requests.")
			return nil
		}
		for _, a := range list {
			fmt.Printf("%s  %-8s %-8s %s  %s (%s)\n",
				a.ID.Hex(), a.Status, a.Type, a.RequestedAt.Format(time.RFC3339), a.FileName, a.RequestedBy.Name)
		}
		return nil
	},
}

var hashKeyCmd = &cobra.Command{
	Use:   "hash-key <key>",
	Short: "Print the bcrypt hash for internal_api_key_hash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := hashKey(args[0])
		if err != nil {
			return err
		}
		fmt.Println(h)
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token <token-identifier>",
	Short: "Issue a bearer identity token (development)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ttl, _ := cmd.Flags().GetDuration("ttl")
		cc, err := readCtlConfig(configPath)
		if err != nil {
			return err
		}
		if cc.IdentityJWTSecret == "" {
			return fmt.Errorf("identity_jwt_secret is not set in %s", configPath)
		}
		raw, err := auth.IssueToken(cc.IdentityJWTSecret, cc.IdentityJWTIssuer, args[0], ttl)
		if err != nil {
			return err
		}
		fmt.Println(raw)
		return nil
	},
}

func hashKey(key string) (string, error) {
	if len(key) < 16 {
		return "", fmt.Errorf("key must be at least 16 characters")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "stratadrivectl.toml", "path to the operator config file")

	usersCmd.AddCommand(usersSetRoleCmd)

	approvalsListCmd.Flags().String("status", "", "filter by status (pending, accepted, rejected)")
	approvalsListCmd.Flags().String("tenant", "", "filter by tenant")
	approvalsCmd.AddCommand(approvalsListCmd)

	tokenCmd.Flags().Duration("ttl", time.Hour, "token lifetime")

	rootCmd.AddCommand(sweepCmd, usersCmd, approvalsCmd, hashKeyCmd, tokenCmd)
}
