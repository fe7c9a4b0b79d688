package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/R3E-Network/rentals/internal/config"
	"github.com/R3E-Network/rentals/internal/database"
	"github.com/R3E-Network/rentals/internal/domain"
	apperrors "github.com/R3E-Network/rentals/internal/errors"
	"github.com/R3E-Network/rentals/internal/events"
	"github.com/R3E-Network/rentals/internal/landlord"
	"github.com/R3E-Network/rentals/internal/logging"
	"github.com/R3E-Network/rentals/internal/session"
	"github.com/R3E-Network/rentals/supabase/client"
)

// signUpper creates accounts.
type signUpper interface {
	SignUp(ctx context.Context, email, password string, opts client.SignUpOptions) (*client.User, *client.Session, error)
}

// app carries the state shared by every command.
type app struct {
	configPath  string
	envPath     string
	sessionPath string
	jsonOut     bool
	assumeYes   bool

	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer

	cfg      *config.Config
	logger   *logging.Logger
	sb       *client.Client
	signUp   signUpper
	repo     database.RepositoryInterface
	mgr      *session.Manager
	bus      *events.Bus
	managers *landlord.Managers
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	return &app{in: bufio.NewReader(in), out: out, errOut: errOut}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rentctl",
		Short:         "Manage rental properties, leases and payments from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to YAML config file")
	root.PersistentFlags().StringVar(&a.envPath, "env", ".env", "Path to .env file")
	root.PersistentFlags().StringVar(&a.sessionPath, "session", "", "Session file (default: user config dir)")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "Print JSON instead of tables")

	root.AddCommand(
		a.loginCmd(),
		a.signupCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.dashboardCmd(),
		a.catalogCmd(),
		a.propertiesCmd(),
		a.leasesCmd(),
		a.paymentsCmd(),
		a.statsCmd(),
		a.messagesCmd(),
	)
	return root
}

// setup builds the clients once. Dependencies that are already set are kept.
func (a *app) setup() error {
	if a.cfg == nil {
		cfg, err := config.Load(a.configPath, a.envPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}
	if a.logger == nil {
		a.logger = logging.New("rentctl", a.cfg.Log.Level, "text")
		a.logger.SetOutput(a.errOut)
	}
	if a.bus == nil {
		a.bus = events.NewBus()
	}
	if a.repo == nil || a.mgr == nil {
		if err := a.cfg.ValidateSupabase(); err != nil {
			return err
		}
		sb, err := client.New(client.Config{
			URL:     a.cfg.Supabase.URL,
			APIKey:  a.cfg.Supabase.AnonKey,
			Breaker: client.BreakerConfig{Name: "rentctl"},
		})
		if err != nil {
			return err
		}
		a.sb = sb

		path := a.sessionPath
		if path == "" {
			if path, err = session.DefaultSessionPath(); err != nil {
				return err
			}
		}
		a.repo = database.NewRepository(sb)
		a.mgr = session.NewManager(sb.Auth(), session.NewFileStore(path))
		a.signUp = sb.Auth()
	}
	a.managers = landlord.New(a.repo, a.bus, a.logger)
	return nil
}

// authed returns a context carrying the user's access token, restoring the
// persisted session on first use.
func (a *app) authed(ctx context.Context) (context.Context, string, error) {
	if a.mgr.Current() == nil {
		if err := a.mgr.Restore(ctx); err != nil {
			if errors.Is(err, session.ErrNoSession) {
				return nil, "", a.signInRequired()
			}
			return nil, "", err
		}
	}
	token, err := a.mgr.AccessToken(ctx)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return nil, "", a.signInRequired()
		}
		return nil, "", err
	}
	userID, err := a.mgr.UserID()
	if err != nil {
		return nil, "", a.signInRequired()
	}
	return database.WithAccessToken(ctx, token), userID, nil
}

func (a *app) signInRequired() error {
	return apperrors.Unauthorized(fmt.Sprintf("Not signed in. Run `rentctl login` or sign in at %s.", a.cfg.Server.SignInURL))
}

// requireRole resolves the caller's role and rejects the command when it
// does not match.
func (a *app) requireRole(ctx context.Context, userID string, want domain.Role) error {
	role, err := session.NewRoleResolver(a.repo).Resolve(ctx, userID)
	if err != nil {
		return apperrors.Persistence("Failed to resolve your role.", err)
	}
	if role != want {
		return apperrors.PermissionDenied(fmt.Sprintf("This command is only available to %ss.", want), nil)
	}
	return nil
}

// landlordCtx is authed plus the landlord role check.
func (a *app) landlordCtx(ctx context.Context) (context.Context, string, error) {
	ctx, userID, err := a.authed(ctx)
	if err != nil {
		return nil, "", err
	}
	if err := a.requireRole(ctx, userID, domain.RoleLandlord); err != nil {
		return nil, "", err
	}
	return ctx, userID, nil
}

// confirmer asks on the terminal unless --yes was given.
func (a *app) confirmer() landlord.Confirmer {
	if a.assumeYes {
		return landlord.Preconfirmed(true)
	}
	return landlord.ConfirmFunc(func(ctx context.Context, prompt string) (bool, error) {
		fmt.Fprintf(a.out, "%s [y/N]: ", prompt)
		line, err := a.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	})
}

// prompt reads one line from the terminal.
func (a *app) prompt(label string) (string, error) {
	fmt.Fprintf(a.out, "%s: ", label)
	line, err := a.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// describeError renders err for the terminal.
func (a *app) describeError(err error) string {
	se := apperrors.GetServiceError(err)
	if se == nil {
		return styles.Error.Render("Error: ") + err.Error()
	}
	if se.Code == apperrors.CodeNotConfirmed {
		return styles.Muted.Render("Cancelled.")
	}
	var b strings.Builder
	b.WriteString(styles.Error.Render("Error: "))
	b.WriteString(se.Message)
	for _, f := range se.Fields {
		fmt.Fprintf(&b, "\n  %s %s %s", styles.Error.Render("•"), f.Field, f.Message)
	}
	return b.String()
}
