package cli

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/terraincognita07/mealplans/internal/models"
	"github.com/terraincognita07/mealplans/internal/security"
	"github.com/terraincognita07/mealplans/internal/services"
)

const temporaryPasswordLength = 12

var errDietitianExists = errors.New("dietitian already exists")

type dietitianStore interface {
	FindByNormalizedEmail(ctx context.Context, email string) (models.Dietitian, bool, error)
	Create(ctx context.Context, dietitian *models.Dietitian) error
	UpdatePassword(ctx context.Context, dietitianID uint, passwordHash string, mustChangePassword bool) error
}

func newAuthService(rt *runtime) *services.AuthService {
	return services.NewAuthService(rt.repos.Dietitians, rt.cfg.SecretKey, services.DefaultSessionTTL)
}

func newResetPasswordCmd(options *rootOptions) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Issue a temporary password for a dietitian",
		Long: `Replace a dietitian's password with a random temporary one. The
dietitian must choose a new password on next login.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(options)
			if err != nil {
				return err
			}
			defer rt.Close()

			temporary, err := resetDietitianPassword(cmd.Context(), rt.repos.Dietitians, email)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, "Password reset successful")
			_, _ = fmt.Fprintf(out, "Temporary password: %s\n", temporary)
			_, _ = fmt.Fprintln(out, "The dietitian must change it on next login.")
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email of the dietitian")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newAddDietitianCmd(options *rootOptions) *cobra.Command {
	var email string
	var displayName string

	cmd := &cobra.Command{
		Use:   "add-dietitian",
		Short: "Create a dietitian account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(options)
			if err != nil {
				return err
			}
			defer rt.Close()

			prompt := newPasswordPrompt(cmd.OutOrStdout(), os.Stdin)
			password, err := prompt.ask("Password: ")
			if err != nil {
				return err
			}
			confirm, err := prompt.ask("Confirm password: ")
			if err != nil {
				return err
			}
			if password != confirm {
				return services.ErrPasswordMismatch
			}

			dietitian, err := createDietitian(cmd.Context(), rt.repos.Dietitians, email, displayName, password)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created dietitian %d (%s)\n", dietitian.ID, dietitian.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Login email")
	cmd.Flags().StringVar(&displayName, "name", "", "Display name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func parseEmail(raw string) (string, error) {
	email := services.NormalizeEmail(raw)
	if email == "" {
		return "", errors.New("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("invalid email address: %w", err)
	}
	return email, nil
}

// resetDietitianPassword stores a fresh temporary password and flags the
// account for a forced change. The plain password is returned once.
func resetDietitianPassword(ctx context.Context, store dietitianStore, rawEmail string) (string, error) {
	email, err := parseEmail(rawEmail)
	if err != nil {
		return "", err
	}
	dietitian, found, err := store.FindByNormalizedEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("load dietitian: %w", err)
	}
	if !found {
		return "", fmt.Errorf("dietitian %s not found", email)
	}

	temporary, err := security.TemporaryPassword(temporaryPasswordLength)
	if err != nil {
		return "", fmt.Errorf("generate temporary password: %w", err)
	}
	hash, err := services.HashPassword(temporary)
	if err != nil {
		return "", fmt.Errorf("hash temporary password: %w", err)
	}
	if err := store.UpdatePassword(ctx, dietitian.ID, hash, true); err != nil {
		return "", fmt.Errorf("update dietitian password: %w", err)
	}
	return temporary, nil
}

func createDietitian(ctx context.Context, store dietitianStore, rawEmail string, displayName string, password string) (models.Dietitian, error) {
	email, err := parseEmail(rawEmail)
	if err != nil {
		return models.Dietitian{}, err
	}
	if err := services.ValidatePasswordStrength(password); err != nil {
		return models.Dietitian{}, err
	}
	_, exists, err := store.FindByNormalizedEmail(ctx, email)
	if err != nil {
		return models.Dietitian{}, fmt.Errorf("load dietitian: %w", err)
	}
	if exists {
		return models.Dietitian{}, fmt.Errorf("%w: %s", errDietitianExists, email)
	}

	hash, err := services.HashPassword(password)
	if err != nil {
		return models.Dietitian{}, fmt.Errorf("hash password: %w", err)
	}
	dietitian := models.Dietitian{
		Email:        email,
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(displayName),
	}
	if err := store.Create(ctx, &dietitian); err != nil {
		return models.Dietitian{}, fmt.Errorf("create dietitian: %w", err)
	}
	return dietitian, nil
}
