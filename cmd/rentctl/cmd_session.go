package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/R3E-Network/rentals/internal/domain"
	apperrors "github.com/R3E-Network/rentals/internal/errors"
	"github.com/R3E-Network/rentals/internal/session"
	"github.com/R3E-Network/rentals/supabase/client"
)

func (a *app) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if email == "" {
				if email, err = a.prompt("Email"); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = a.prompt("Password"); err != nil {
					return err
				}
			}
			s, err := a.mgr.SignIn(cmd.Context(), strings.TrimSpace(email), password)
			if err != nil {
				return apperrors.InvalidToken(err).WithDetails("email", email)
			}

			ctx, userID, err := a.authed(cmd.Context())
			if err != nil {
				return err
			}
			role, err := session.NewRoleResolver(a.repo).Resolve(ctx, userID)
			if err != nil {
				a.logger.WithError(err).Warn("role resolution failed")
			}
			a.success(fmt.Sprintf("Signed in as %s (%s)", s.User.Email, describeRole(role)))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted when omitted)")
	return cmd
}

func (a *app) signupCmd() *cobra.Command {
	var email, password, fullName, phone, role string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create a landlord or tenant account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if r := domain.Role(role); !r.Valid() {
				return apperrors.Validation(apperrors.FieldError{Field: "role", Message: "must be landlord or tenant"})
			}
			if email == "" || password == "" {
				return apperrors.Validation(apperrors.FieldError{Field: "email/password", Message: "are required"})
			}
			user, sess, err := a.signUp.SignUp(cmd.Context(), email, password, client.SignUpOptions{
				Data: map[string]any{"full_name": fullName, "phone": phone, "role": role},
			})
			if err != nil {
				return apperrors.Persistence("Sign-up failed.", err)
			}
			if sess == nil {
				a.success(fmt.Sprintf("Account created for %s. Confirm your email, then run `rentctl login`.", user.Email))
				return nil
			}
			a.success(fmt.Sprintf("Account created for %s. Run `rentctl login` to start.", user.Email))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	cmd.Flags().StringVar(&fullName, "full-name", "", "Full name")
	cmd.Flags().StringVar(&phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&role, "role", "tenant", "landlord or tenant")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.mgr.Current() == nil {
				if err := a.mgr.Restore(cmd.Context()); err != nil {
					a.success("Already signed out")
					return nil
				}
			}
			if err := a.mgr.SignOut(cmd.Context()); err != nil {
				a.logger.WithError(err).Warn("remote sign-out failed; local session removed")
			}
			a.success("Signed out")
			return nil
		},
	}
}

type whoami struct {
	UserID string       `json:"user_id"`
	Email  string       `json:"email"`
	Role   domain.Role  `json:"role"`
	View   session.View `json:"view"`
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in identity and role",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, userID, err := a.authed(cmd.Context())
			if err != nil {
				return err
			}
			role, err := session.NewRoleResolver(a.repo).Resolve(ctx, userID)
			if err != nil {
				return apperrors.Persistence("Failed to resolve your role.", err)
			}
			w := whoami{UserID: userID, Role: role, View: session.Gate(role)}
			if s := a.mgr.Current(); s != nil && s.User != nil {
				w.Email = s.User.Email
			}
			return a.emit(w, func() {
				fmt.Fprintf(a.out, "%s\n  id:   %s\n  role: %s\n", w.Email, w.UserID, describeRole(w.Role))
			})
		},
	}
}

func describeRole(r domain.Role) string {
	if r.Valid() {
		return string(r)
	}
	return "no role assigned"
}
