package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"questlog/internal/api"
	"questlog/internal/collection"
	"questlog/internal/config"
	"questlog/internal/credential"
	"questlog/internal/db"
	"questlog/internal/devserver"
	"questlog/internal/domain"
	"questlog/internal/logger"
	"questlog/internal/migrate"
	"questlog/internal/session"
)

var rootCmd = &cobra.Command{
	Use:   "ql",
	Short: "Questlog CLI",
	Long: `Questlog is a gamified study tracker client.
Register tasks under skills, earn XP and coins for completing them,
level up, and spend coins on avatars and self-defined rewards.
State lives server-side; this client signs in, keeps a local session,
and mirrors your collections from the API.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("QUESTLOG")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides questlog.yml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "verbose logging")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("api-url", rootCmd.PersistentFlags().Lookup("api-url"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(registerCmd())
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(logoutCmd())
	rootCmd.AddCommand(whoamiCmd())
	rootCmd.AddCommand(profileCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(skillCmd())
	rootCmd.AddCommand(rewardCmd())
	rootCmd.AddCommand(avatarCmd())
	rootCmd.AddCommand(serveCmd())
}

// appCtx bundles the service objects built once per invocation and
// passed explicitly to command handlers.
type appCtx struct {
	Creds   *credential.Store
	Client  *api.Client
	Session *session.Session
	Log     *zap.Logger
}

func newLogger() *zap.Logger {
	level := zapcore.WarnLevel
	if viper.GetBool("verbose") {
		level = zapcore.InfoLevel
	}
	return logger.New(level)
}

// resolveBaseURL prefers the flag/env value over the workspace config.
func resolveBaseURL(cfg *config.Config) string {
	if url := viper.GetString("api-url"); url != "" {
		return url
	}
	if cfg != nil {
		return cfg.API.BaseURL
	}
	return config.Default("").API.BaseURL
}

func withApp(ctx context.Context, fn func(context.Context, *appCtx) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return err
	}
	log := newLogger()
	defer log.Sync()
	creds := credential.NewStore(conn)
	client := api.New(resolveBaseURL(cfg), creds)
	if cfg != nil && cfg.API.TimeoutSeconds > 0 {
		client.Timeout = time.Duration(cfg.API.TimeoutSeconds) * time.Second
	}
	app := &appCtx{
		Creds:   creds,
		Client:  client,
		Session: session.New(client, creds, log),
		Log:     log,
	}
	return fn(ctx, app)
}

// withUser restores the session and requires a resolved identity.
func withUser(ctx context.Context, fn func(context.Context, *appCtx, domain.User) error) error {
	return withApp(ctx, func(ctx context.Context, app *appCtx) error {
		if err := app.Session.Restore(ctx); err != nil {
			return fmt.Errorf("session expired, log in again: %w", err)
		}
		u, ok := app.Session.User()
		if !ok {
			return session.ErrNotAuthenticated
		}
		return fn(ctx, app, u)
	})
}

func initCmd() *cobra.Command {
	var apiURL string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write questlog.yml for this workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			cfg := config.Default(apiURL)
			if err := cfg.Write(workspace); err != nil {
				return err
			}
			fmt.Printf("Wrote %s (api: %s)\n", config.Path(workspace), cfg.API.BaseURL)
			return nil
		},
	}
	cmd.Flags().StringVar(&apiURL, "api-url", "", "API base URL")
	return cmd
}

func registerCmd() *cobra.Command {
	var name, nickname, email string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" || nickname == "" || email == "" {
				return fmt.Errorf("--name, --nickname and --email are required")
			}
			password, err := promptPassword("Password: ")
			if err != nil {
				return err
			}
			confirm, err := promptPassword("Confirm password: ")
			if err != nil {
				return err
			}
			if err := checkPasswordsMatch(password, confirm); err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, app *appCtx) error {
				err := app.Session.Register(ctx, domain.UserCreateRequest{
					Name:     name,
					Nickname: nickname,
					Email:    email,
					Password: password,
				})
				if api.IsStatus(err, http.StatusConflict) {
					return fmt.Errorf("email or nickname already registered")
				}
				if err != nil {
					return err
				}
				fmt.Println("Account created. Log in with: ql login", nickname)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&nickname, "nickname", "", "nickname")
	cmd.Flags().StringVar(&email, "email", "", "email")
	return cmd
}

func loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Authenticate and start a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := promptPassword("Password: ")
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, app *appCtx) error {
				if err := app.Session.Login(ctx, args[0], password); err != nil {
					return fmt.Errorf("login failed: %w", err)
				}
				u, _ := app.Session.User()
				fmt.Printf("Welcome back, %s %s (level %d, %d coins)\n",
					u.CurrentAvatarIcon, u.Nickname, u.Level, u.TotalCoins)
				return nil
			})
		},
	}
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, app *appCtx) error {
				if err := app.Session.Logout(ctx); err != nil {
					return err
				}
				fmt.Println("Logged out.")
				return nil
			})
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(cmd.Context(), func(ctx context.Context, app *appCtx, u domain.User) error {
				if viper.GetBool("json") {
					return printJSON(u)
				}
				fmt.Printf("%s %s (%s)\n", u.CurrentAvatarIcon, u.Name, u.Nickname)
				fmt.Printf("  email:  %s\n", u.Email)
				fmt.Printf("  level:  %d (%d/%d XP, %d%%)\n", u.Level, u.TotalXP, u.XPToNextLevel, u.LevelPercentage)
				fmt.Printf("  coins:  %d\n", u.TotalCoins)
				fmt.Printf("  member since: %s\n", u.CreatedAt)
				return nil
			})
		},
	}
}

func profileCmd() *cobra.Command {
	profile := &cobra.Command{Use: "profile", Short: "Manage the profile"}
	profile.AddCommand(profileUpdateCmd())
	profile.AddCommand(profilePasswdCmd())
	return profile
}

func profileUpdateCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update profile fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			return withUser(cmd.Context(), func(ctx context.Context, app *appCtx, u domain.User) error {
				if err := app.Client.UpdateUser(ctx, u.ID, domain.UserUpdateRequest{Name: name}); err != nil {
					return err
				}
				if err := app.Session.Refresh(ctx); err != nil {
					app.Log.Warn("profile refresh after update failed", zap.Error(err))
				}
				fmt.Println("Profile updated.")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	return cmd
}

func profilePasswdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "passwd",
		Short: "Change password",
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := promptPassword("Current password: ")
			if err != nil {
				return err
			}
			next, err := promptPassword("New password: ")
			if err != nil {
				return err
			}
			confirm, err := promptPassword("Confirm new password: ")
			if err != nil {
				return err
			}
			if err := checkPasswordsMatch(next, confirm); err != nil {
				return err
			}
			return withUser(cmd.Context(), func(ctx context.Context, app *appCtx, u domain.User) error {
				err := app.Client.ChangePassword(ctx, u.ID, domain.ChangePasswordRequest{
					CurrentPassword: current,
					NewPassword:     next,
				})
				if api.IsStatus(err, http.StatusBadRequest) {
					return fmt.Errorf("new password must differ from the current one")
				}
				if err != nil {
					return err
				}
				fmt.Println("Password changed.")
				return nil
			})
		},
	}
}

func taskCmd() *cobra.Command {
	task := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
		Long:  "Tasks are study quests tied to a skill. Completing one earns its XP and coins; blocked tasks wait until unblocked.",
	}
	task.AddCommand(taskListCmd())
	task.AddCommand(taskCreateCmd())
	task.AddCommand(taskCompleteCmd())
	task.AddCommand(taskBlockCmd())
	task.AddCommand(taskDeleteCmd())
	return task
}

func taskListCmd() *cobra.Command {
	var all, completed bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(cmd.Context(), func(ctx context.Context, app *appCtx, u domain.User) error {
				cols := collection.NewSet(app.Client, u.ID, app.Log)
				if err := cols.Tasks.Refresh(ctx); err != nil {
					return err
				}
				tasks := cols.Tasks.Items()
				switch {
				case completed:
					tasks = collection.CompletedTasks(tasks)
				case !all:
					tasks = collection.PendingTasks(tasks)
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Skill", "Status", "XP", "Coins"})
				for _, t := range tasks {
					tw.AppendRow(table.Row{t.ID, t.Title, t.SkillName, t.Status, t.TaskXP, t.TaskCoins})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include completed tasks")
	cmd.Flags().BoolVar(&completed, "completed", false, "only completed tasks")
	return cmd
}

func taskCreateCmd() *cobra.Command {
	var req domain.TaskCreateRequest
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Title == "" || req.Difficulty == "" || req.SkillName == "" {
				return fmt.Errorf("--title, --difficulty and --skill are required")
			}
			switch req.Difficulty {
			case domain.DifficultyEasy, domain.DifficultyMedium, domain.DifficultyHard:
			default:
				return fmt.Errorf("difficulty must be easy, medium or hard")
			}
			return withUser(cmd.Context(), func(ctx context.Context, app *appCtx, u domain.User) error {
				t, err := app.Client.CreateTask(ctx, req)
				if err != nil {
					return err
				}
				fmt.Printf("Task %d created: %s (+%d XP, +%d coins on completion)\n",
					t.ID, t.Title, t.TaskXP, t.TaskCoins)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.Title, "title", "", "title")
	cmd.Flags().StringVar(&req.Description, "description", "", "description")
	cmd.Flags().StringVar(&req.Difficulty, "difficulty", "", "easy (+20 XP), medium (+30 XP), hard (+50 XP)")
	cmd.Flags().StringVar(&req.SkillName, "skill", "", "owning skill name")
	return cmd
}

func taskCompleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complete <id>",
		Short: "Complete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withUser(cmd.Context(), func(ctx context.Context, app *appCtx, u domain.User) error {
				cols := collection.NewSet(app.Client, u.ID, app.Log)
				if err := cols.Tasks.Refresh(ctx); err != nil {
					return err
				}
				t, ok := findTask(cols.Tasks.Items(), id)
				if !ok {
					return fmt.Errorf("task %d not found", id)
				}
				if t.Status == domain.TaskStatusCompleted {
					fmt.Println("Task already completed.")
					return nil
				}
				if err := app.Client.CompleteTask(ctx, id); err != nil {
					return err
				}
				// The XP notice uses the task's stored value; the refreshed
				// profile is authoritative for totals.
				if err := cols.Tasks.Refresh(ctx); err != nil {
					app.Log.Warn("task refresh after completion failed", zap.Error(err))
				}
				if err := app.Session.Refresh(ctx); err != nil {
					app.Log.Warn("profile refresh after completion failed", zap.Error(err))
				}
				fmt.Printf("Quest complete! %s +%d XP, +%d coins\n", t.Title, t.TaskXP, t.TaskCoins)
				if fresh, ok := app.Session.User(); ok {
					fmt.Printf("Level %d, %d/%d XP, %d coins\n",
						fresh.Level, fresh.TotalXP, fresh.XPToNextLevel, fresh.TotalCoins)
				}
				return nil
			})
		},
	}
	return cmd
}

func taskBlockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "block <id>",
		Short: "Toggle a task between blocked and pending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withUser(cmd.Context(), func(ctx context.Context, app *appCtx, u domain.User) error {
				if err := app.Client.BlockTask(ctx, id); err != nil {
					return err
				}
				cols := collection.NewSet(app.Client, u.ID, app.Log)
				if err := cols.Tasks.Refresh(ctx); err != nil {
					app.Log.Warn("task refresh after block failed", zap.Error(err))
					fmt.Println("Task updated.")
					return nil
				}
				if t, ok := findTask(cols.Tasks.Items(), id); ok {
					if t.Status == domain.TaskStatusBlocked {
						fmt.Println("Task blocked.")
					} else {
						fmt.Println("Task unblocked.")
					}
				}
				return nil
			})
		},
	}
}

func taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withUser(cmd.Context(), func(ctx context.Context, app *appCtx, u domain.User) error {
				if err := app.Client.DeleteTask(ctx, id); err != nil {
					return err
				}
				fmt.Println("Task deleted.")
				return nil
			})
		},
	}
}

func skillCmd() *cobra.Command {
	skill := &cobra.Command{
		Use:   "skill",
		Short: "Manage skills",
		Long:  "Skills group tasks and level up as their tasks complete. Leveling is computed server-side and observed through refresh.",
	}
	skill.AddCommand(skillListCmd())
	skill.AddCommand(skillCreateCmd())
	return skill
}

func skillListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List skills",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(cmd.Context(), func(ctx context.Context, app *appCtx, u domain.User) error {
				cols := collection.NewSet(app.Client, u.ID, app.Log)
				if err := cols.Skills.Refresh(ctx); err != nil {
					return err
				}
				skills := cols.Skills.Items()
				if viper.GetBool("json") {
					return printJSON(skills)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Skill", "Level", "Progress", "Total XP", "Tasks"})
				for _, s := range skills {
					progress := fmt.Sprintf("%d%% (%d XP to next)", s.LevelPercentage, s.XPToNextLevel)
					tw.AppendRow(table.Row{s.ID, s.Icon + " " + s.Name, s.Level, progress, s.TotalXP, s.TotalTasks})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func skillCreateCmd() *cobra.Command {
	var name, icon string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a skill",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			return withUser(cmd.Context(), func(ctx context.Context, app *appCtx, u domain.User) error {
				s, err := app.Client.CreateSkill(ctx, domain.SkillCreateRequest{Name: name, Icon: icon})
				if err != nil {
					return err
				}
				fmt.Printf("Skill %d created: %s %s\n", s.ID, s.Icon, s.Name)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "skill name")
	cmd.Flags().StringVar(&icon, "icon", "", "icon glyph")
	return cmd
}

func rewardCmd() *cobra.Command {
	reward := &cobra.Command{
		Use:   "reward",
		Short: "Manage rewards",
		Long:  "Rewards are self-defined treats priced server-side from a 1-5 like level. Claim one to spend your coins on it.",
	}
	reward.AddCommand(rewardListCmd())
	reward.AddCommand(rewardCreateCmd())
	reward.AddCommand(rewardClaimCmd())
	return reward
}

func rewardListCmd() *cobra.Command {
	var claimed bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rewards",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(cmd.Context(), func(ctx context.Context, app *appCtx, u domain.User) error {
				cols := collection.NewSet(app.Client, u.ID, app.Log)
				if err := cols.Rewards.Refresh(ctx); err != nil {
					return err
				}
				rewards := cols.Rewards.Items()
				if claimed {
					rewards = collection.ClaimedRewards(rewards)
				} else {
					rewards = collection.AvailableRewards(rewards)
				}
				if viper.GetBool("json") {
					return printJSON(rewards)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Price", "Status"})
				for _, r := range rewards {
					tw.AppendRow(table.Row{r.ID, r.Title, r.Price, r.Status})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&claimed, "claimed", false, "only claimed rewards")
	return cmd
}

func rewardCreateCmd() *cobra.Command {
	var title, description string
	var likeLevel int
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a reward",
		RunE: func(cmd *cobra.Command, args []string) error {
			if title == "" {
				return fmt.Errorf("--title is required")
			}
			if likeLevel < 1 || likeLevel > 5 {
				return fmt.Errorf("--like-level must be between 1 and 5")
			}
			return withUser(cmd.Context(), func(ctx context.Context, app *appCtx, u domain.User) error {
				fmt.Printf("Estimated cost: %d coins\n", domain.RewardCost(likeLevel))
				r, err := app.Client.CreateReward(ctx, domain.RewardCreateRequest{
					Title:       title,
					Description: description,
					LikeLevel:   likeLevel,
				})
				if err != nil {
					return err
				}
				fmt.Printf("Reward %d created: %s (%d coins, %s)\n", r.ID, r.Title, r.Price, r.Status)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().IntVar(&likeLevel, "like-level", 1, "how much you want it, 1-5")
	return cmd
}

func rewardClaimCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "claim <id>",
		Short: "Claim a reward",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withUser(cmd.Context(), func(ctx context.Context, app *appCtx, u domain.User) error {
				cols := collection.NewSet(app.Client, u.ID, app.Log)
				if err := cols.Rewards.Refresh(ctx); err != nil {
					return err
				}
				var target *domain.Reward
				for _, r := range cols.Rewards.Items() {
					if r.ID == id {
						target = &r
						break
					}
				}
				if target == nil {
					return fmt.Errorf("reward %d not found", id)
				}
				if err := checkRewardClaim(u, *target); err != nil {
					return err
				}
				if err := app.Client.BuyReward(ctx, id); err != nil {
					return err
				}
				if err := cols.Rewards.Refresh(ctx); err != nil {
					app.Log.Warn("reward refresh after claim failed", zap.Error(err))
				}
				if err := app.Session.Refresh(ctx); err != nil {
					app.Log.Warn("profile refresh after claim failed", zap.Error(err))
				}
				fmt.Printf("Reward claimed! %s -%d coins\n", target.Title, target.Price)
				return nil
			})
		},
	}
}

func avatarCmd() *cobra.Command {
	avatar := &cobra.Command{
		Use:   "avatar",
		Short: "Browse and buy avatars",
		Long:  "Avatars are cosmetics from the global catalog. Buy one with coins, then equip it on your profile.",
	}
	avatar.AddCommand(avatarListCmd())
	avatar.AddCommand(avatarBuyCmd())
	avatar.AddCommand(avatarEquipCmd())
	return avatar
}

func avatarListCmd() *cobra.Command {
	var owned bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the avatar catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(cmd.Context(), func(ctx context.Context, app *appCtx, u domain.User) error {
				cols := collection.NewSet(app.Client, u.ID, app.Log)
				if err := cols.Avatars.Refresh(ctx); err != nil {
					return err
				}
				avatars := cols.Avatars.Items()
				if owned {
					avatars = collection.OwnedAvatars(avatars)
				}
				if viper.GetBool("json") {
					return printJSON(avatars)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Avatar", "Price", "Owned", "Equipped"})
				for _, a := range avatars {
					tw.AppendRow(table.Row{a.ID, a.Icon + " " + a.Title, a.Price, a.Owned, a.IconName == u.CurrentAvatarName})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&owned, "owned", false, "only owned avatars")
	return cmd
}

func avatarBuyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "buy <id>",
		Short: "Buy an avatar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withUser(cmd.Context(), func(ctx context.Context, app *appCtx, u domain.User) error {
				cols := collection.NewSet(app.Client, u.ID, app.Log)
				if err := cols.Avatars.Refresh(ctx); err != nil {
					return err
				}
				var target *domain.Avatar
				for _, a := range cols.Avatars.Items() {
					if a.ID == id {
						target = &a
						break
					}
				}
				if target == nil {
					return fmt.Errorf("avatar %d not found", id)
				}
				if err := checkAvatarPurchase(u, *target); err != nil {
					if errors.Is(err, errAvatarOwned) {
						fmt.Println("You already own this avatar.")
						return nil
					}
					return err
				}
				// Predicted balance on a local copy; the refresh below is
				// authoritative either way.
				predicted := u.TotalCoins - target.Price
				if err := app.Client.BuyAvatar(ctx, id); err != nil {
					return err
				}
				fmt.Printf("%s %s acquired! ~%d coins left\n", target.Icon, target.Title, predicted)
				if err := app.Session.Refresh(ctx); err != nil {
					app.Log.Warn("profile refresh after purchase failed", zap.Error(err))
				}
				if err := cols.Avatars.Refresh(ctx); err != nil {
					app.Log.Warn("avatar refresh after purchase failed", zap.Error(err))
				}
				return nil
			})
		},
	}
}

func avatarEquipCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "equip <icon-name>",
		Short: "Equip an owned avatar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			return withUser(cmd.Context(), func(ctx context.Context, app *appCtx, u domain.User) error {
				if u.CurrentAvatarName == name {
					fmt.Println("Already equipped.")
					return nil
				}
				if err := app.Client.SelectAvatar(ctx, name); err != nil {
					return err
				}
				if err := app.Session.Refresh(ctx); err != nil {
					app.Log.Warn("profile refresh after equip failed", zap.Error(err))
				}
				if fresh, ok := app.Session.User(); ok {
					fmt.Printf("Equipped %s %s\n", fresh.CurrentAvatarIcon, fresh.CurrentAvatarName)
				}
				return nil
			})
		},
	}
}

func serveCmd() *cobra.Command {
	var addr, basePath, secret string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local development API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv("QUESTLOG_JWT_SECRET")
			}
			if secret == "" {
				return fmt.Errorf("--secret or QUESTLOG_JWT_SECRET is required")
			}
			handler, err := devserver.New(devserver.Config{
				BasePath:  basePath,
				JWTSecret: secret,
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Questlog dev API on http://%s%s\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/api", "API base path")
	cmd.Flags().StringVar(&secret, "secret", "", "JWT signing secret")
	return cmd
}

// --- helpers ---

func findTask(tasks []domain.Task, id int64) (domain.Task, bool) {
	for _, t := range tasks {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Task{}, false
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	if term.IsTerminal(int(syscall.Stdin)) {
		b, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	// Non-interactive stdin (tests, pipes).
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
