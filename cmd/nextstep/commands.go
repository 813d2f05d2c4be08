package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kalambet/nextstep/internal/api"
	"github.com/kalambet/nextstep/internal/config"
	"github.com/kalambet/nextstep/internal/profile"
	"github.com/kalambet/nextstep/internal/progress"
	"github.com/kalambet/nextstep/internal/roadmap"
)

// runWithClient builds an API client and passes it to fn.
func runWithClient(fn func(ctx context.Context, c *apiClient) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return fn(cmd.Context(), client)
	}
}

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or rename the profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current profile as JSON",
	RunE: runWithClient(func(ctx context.Context, c *apiClient) error {
		var p profile.UserProfile
		if err := c.call(ctx, http.MethodGet, "/profile", nil, &p); err != nil {
			return err
		}
		return printJSON(os.Stdout, p)
	}),
}

var profileSetNameCmd = &cobra.Command{
	Use:   "set-name <name>",
	Short: "Change the display name (empty resets it)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		p, err := setName(cmd.Context(), client, args[0])
		if err != nil {
			return err
		}
		printSuccess("Name set to %s", p.Name)
		return nil
	},
}

func setName(ctx context.Context, c *apiClient, name string) (profile.UserProfile, error) {
	var p profile.UserProfile
	err := c.call(ctx, http.MethodPatch, "/profile/name", map[string]string{"name": name}, &p)
	return p, err
}

func init() {
	profileCmd.AddCommand(profileShowCmd, profileSetNameCmd)
}

// --- onboarding ---

var onboardingCmd = &cobra.Command{
	Use:   "onboarding",
	Short: "Work on the onboarding wizard draft",
}

var onboardingShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current draft",
	RunE: runWithClient(func(ctx context.Context, c *apiClient) error {
		var d profile.OnboardingData
		if err := c.call(ctx, http.MethodGet, "/onboarding", nil, &d); err != nil {
			return err
		}
		return printJSON(os.Stdout, d)
	}),
}

var onboardingSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change draft fields",
	Long: `Change draft fields. Only the flags given are changed.

Examples:
  nextstep onboarding set --degree B.Tech --branch "Computer Science"
  nextstep onboarding set --topics "Data Structures,Algorithms,DBMS" --step 3
  nextstep onboarding set --interests technology,data --goal "Data Scientist"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		patch, err := onboardingPatchFromFlags(cmd.Flags())
		if err != nil {
			return err
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var d profile.OnboardingData
		if err := client.call(cmd.Context(), http.MethodPatch, "/onboarding", patch, &d); err != nil {
			return err
		}
		printSuccess("Draft updated (step %d)", d.Step)
		return nil
	},
}

var onboardingCompleteCmd = &cobra.Command{
	Use:   "complete",
	Short: "Validate the draft and create the profile",
	RunE: runWithClient(func(ctx context.Context, c *apiClient) error {
		var res struct {
			Profile   profile.UserProfile `json:"profile"`
			NewBadges []profile.Badge     `json:"newBadges"`
		}
		if err := c.call(ctx, http.MethodPost, "/onboarding/complete", nil, &res); err != nil {
			return err
		}
		printSuccess("Welcome, %s! Your roadmap is ready.", res.Profile.Name)
		printBadges(res.NewBadges)
		return nil
	}),
}

var onboardingEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Seed the draft from the profile for editing",
	RunE: func(cmd *cobra.Command, args []string) error {
		step, _ := cmd.Flags().GetInt("step")
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var d profile.OnboardingData
		if err := client.call(cmd.Context(), http.MethodPost, "/onboarding/edit", map[string]int{"step": step}, &d); err != nil {
			return err
		}
		return printJSON(os.Stdout, d)
	},
}

var onboardingApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Validate the draft and merge it onto the profile",
	RunE: runWithClient(func(ctx context.Context, c *apiClient) error {
		var p profile.UserProfile
		if err := c.call(ctx, http.MethodPost, "/onboarding/apply", nil, &p); err != nil {
			return err
		}
		printSuccess("Profile updated")
		return nil
	}),
}

func splitList(raw string) []string {
	parts := lo.Map(strings.Split(raw, ","), func(s string, _ int) string { return strings.TrimSpace(s) })
	return lo.Compact(parts)
}

func onboardingPatchFromFlags(fs *pflag.FlagSet) (profile.OnboardingPatch, error) {
	var patch profile.OnboardingPatch
	if fs.Changed("step") {
		v, _ := fs.GetInt("step")
		patch.Step = &v
	}
	if fs.Changed("degree") {
		v, _ := fs.GetString("degree")
		patch.Degree = &v
	}
	if fs.Changed("branch") {
		v, _ := fs.GetString("branch")
		patch.Branch = &v
	}
	if fs.Changed("topics") {
		v, _ := fs.GetString("topics")
		patch.SyllabusTopics = splitList(v)
	}
	if fs.Changed("interests") {
		v, _ := fs.GetString("interests")
		list := splitList(v)
		if bad := lo.Reject(list, func(i string, _ int) bool { return profile.IsInterest(i) }); len(bad) > 0 {
			return patch, fmt.Errorf("unknown interests %s (choose from %s)",
				strings.Join(bad, ", "), strings.Join(lo.Map(profile.Interests(), func(i profile.Interest, _ int) string { return string(i) }), ", "))
		}
		patch.Interests = list
	}
	if fs.Changed("goal") {
		v, _ := fs.GetString("goal")
		patch.CareerGoal = &v
	}
	if fs.Changed("knows-goal") {
		v, _ := fs.GetBool("knows-goal")
		patch.KnowsCareerGoal = &v
	}
	if patchEmpty(patch) {
		return patch, fmt.Errorf("nothing to change; pass at least one flag")
	}
	return patch, nil
}

func patchEmpty(p profile.OnboardingPatch) bool {
	return p.Step == nil && p.Degree == nil && p.Branch == nil &&
		p.SyllabusTopics == nil && p.Interests == nil &&
		p.CareerGoal == nil && p.KnowsCareerGoal == nil
}

func init() {
	f := onboardingSetCmd.Flags()
	f.Int("step", 1, "wizard step (1-4)")
	f.String("degree", "", "degree, e.g. B.Tech")
	f.String("branch", "", "branch or major")
	f.String("topics", "", "comma-separated syllabus topics (replaces the list)")
	f.String("interests", "", "comma-separated interests (replaces the list)")
	f.String("goal", "", "career goal")
	f.Bool("knows-goal", true, "whether you already know your career goal")

	onboardingEditCmd.Flags().Int("step", 1, "wizard step to open")

	onboardingCmd.AddCommand(onboardingShowCmd, onboardingSetCmd, onboardingCompleteCmd, onboardingEditCmd, onboardingApplyCmd)
}

// --- xp ---

var xpCmd = &cobra.Command{
	Use:   "xp",
	Short: "Manage experience points",
}

var xpAddCmd = &cobra.Command{
	Use:   "add <amount>",
	Short: "Add experience points",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.Atoi(args[0])
		if err != nil || amount < 0 {
			return fmt.Errorf("amount must be a non-negative integer, got %q", args[0])
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var pr progress.Progress
		if err := client.call(cmd.Context(), http.MethodPost, "/xp", map[string]int{"amount": amount}, &pr); err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, formatProgress(pr))
		return nil
	},
}

func init() {
	xpCmd.AddCommand(xpAddCmd)
}

// --- skills / roadmap ---

var skillCmd = &cobra.Command{
	Use:   "skill",
	Short: "Work with roadmap skills",
}

var skillCompleteCmd = &cobra.Command{
	Use:   "complete <skill-id>",
	Short: "Mark an unlocked skill as completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		res, err := completeSkill(cmd.Context(), client, args[0])
		if err != nil {
			return err
		}
		if !res.Applied {
			printWarning("%s not completed: %s", args[0], reasonText(res.Reason))
			return nil
		}
		printSuccess("Completed %s (+%d XP)", args[0], res.XPAwarded)
		printBadges(res.NewBadges)
		fmt.Fprintln(os.Stdout, formatProgress(res.Progress))
		return nil
	},
}

func completeSkill(ctx context.Context, c *apiClient, id string) (roadmap.Result, error) {
	var res roadmap.Result
	err := c.call(ctx, http.MethodPost, "/skills/"+url.PathEscape(id)+"/complete", nil, &res)
	return res, err
}

var roadmapCmd = &cobra.Command{
	Use:   "roadmap",
	Short: "Show the skill roadmap",
	RunE: runWithClient(func(ctx context.Context, c *apiClient) error {
		var rm roadmap.Roadmap
		if err := c.call(ctx, http.MethodGet, "/roadmap", nil, &rm); err != nil {
			return err
		}
		renderRoadmap(os.Stdout, rm)
		return nil
	}),
}

func init() {
	skillCmd.AddCommand(skillCompleteCmd)
}

// --- badges ---

var badgeCmd = &cobra.Command{
	Use:   "badge",
	Short: "List or award badges",
}

var badgeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List earned badges",
	RunE: runWithClient(func(ctx context.Context, c *apiClient) error {
		var badges []profile.Badge
		if err := c.call(ctx, http.MethodGet, "/badges", nil, &badges); err != nil {
			return err
		}
		if len(badges) == 0 {
			fmt.Fprintln(os.Stdout, "No badges yet")
			return nil
		}
		for _, b := range badges {
			earned := ""
			if b.EarnedAt != nil {
				earned = b.EarnedAt.Local().Format("2006-01-02")
			}
			fmt.Fprintf(os.Stdout, "%s %-20s %-30s %s\n", b.Icon, b.Name, b.Description, earned)
		}
		return nil
	}),
}

var badgeAchievementsCmd = &cobra.Command{
	Use:   "achievements",
	Short: "List the badges the roadmap awards and which are earned",
	RunE: runWithClient(func(ctx context.Context, c *apiClient) error {
		var list []roadmap.AchievementStatus
		if err := c.call(ctx, http.MethodGet, "/achievements", nil, &list); err != nil {
			return err
		}
		renderAchievements(os.Stdout, list)
		return nil
	}),
}

var badgeEarnCmd = &cobra.Command{
	Use:   "earn <id>",
	Short: "Award a badge (once per id)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		desc, _ := cmd.Flags().GetString("description")
		icon, _ := cmd.Flags().GetString("icon")
		if name == "" {
			name = args[0]
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		b := profile.Badge{ID: args[0], Name: name, Description: desc, Icon: icon}
		var badges []profile.Badge
		if err := client.call(cmd.Context(), http.MethodPost, "/badges", b, &badges); err != nil {
			return err
		}
		printSuccess("%d badges earned", len(badges))
		return nil
	},
}

func init() {
	badgeEarnCmd.Flags().String("name", "", "badge name (default: id)")
	badgeEarnCmd.Flags().String("description", "", "badge description")
	badgeEarnCmd.Flags().String("icon", "🏅", "badge icon")
	badgeCmd.AddCommand(badgeListCmd, badgeAchievementsCmd, badgeEarnCmd)
}

// --- reset ---

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the profile and onboarding draft (log out)",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will delete your profile, XP and badges. Use --confirm to proceed.")
			return nil
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if err := client.call(cmd.Context(), http.MethodPost, "/reset", nil, nil); err != nil {
			return err
		}
		printSuccess("Profile reset")
		return nil
	},
}

func init() {
	resetCmd.Flags().Bool("confirm", false, "confirm the reset")
}

// --- account ---

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Show or change username and subscription plan",
}

var accountShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the account",
	RunE: runWithClient(func(ctx context.Context, c *apiClient) error {
		var a api.Account
		if err := c.call(ctx, http.MethodGet, "/account", nil, &a); err != nil {
			return err
		}
		printStatus("Username", "%s", lo.Ternary(a.Username == "", "(not set)", a.Username))
		printStatus("Plan", "%s", lo.Ternary(a.Plan == "", api.PlanFree, a.Plan))
		return nil
	}),
}

var accountSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change username or plan",
	RunE: func(cmd *cobra.Command, args []string) error {
		body := map[string]string{}
		if cmd.Flags().Changed("username") {
			body["username"], _ = cmd.Flags().GetString("username")
		}
		if cmd.Flags().Changed("plan") {
			body["plan"], _ = cmd.Flags().GetString("plan")
		}
		if len(body) == 0 {
			return fmt.Errorf("nothing to change; pass --username or --plan")
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var a api.Account
		if err := client.call(cmd.Context(), http.MethodPut, "/account", body, &a); err != nil {
			return err
		}
		printSuccess("Account updated")
		return nil
	},
}

var accountClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget the username and plan (the profile is kept)",
	RunE: runWithClient(func(ctx context.Context, c *apiClient) error {
		if err := clearAccount(ctx, c); err != nil {
			return err
		}
		printSuccess("Account cleared")
		return nil
	}),
}

func clearAccount(ctx context.Context, c *apiClient) error {
	return c.call(ctx, http.MethodDelete, "/account", nil, nil)
}

func init() {
	accountSetCmd.Flags().String("username", "", "login name")
	accountSetCmd.Flags().String("plan", "", "subscription plan (Free, ProjectChart, MentorPlus)")
	accountCmd.AddCommand(accountShowCmd, accountSetCmd, accountClearCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configRotateTokenCmd = &cobra.Command{
	Use:   "rotate-token",
	Short: "Generate a new API token (restart the server to apply)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := config.RotateAPIToken(); err != nil {
			return err
		}
		printSuccess("API token rotated; restart nextstep to apply")
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a configuration value so its default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

func init() {
	configSetCmd.Long = "Set a configuration value.\n\nValid keys: " + strings.Join(config.ValidKeys(), ", ")
	configCmd.AddCommand(configShowCmd, configSetCmd, configUnsetCmd, configRotateTokenCmd)
}
