package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kalambet/nextstep/internal/profile"
	"github.com/kalambet/nextstep/internal/progress"
	"github.com/kalambet/nextstep/internal/roadmap"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorDim    = "\033[2m"
	colorBold   = "\033[1m"
)

// Messages go to stderr so stdout stays clean for --json output.
var msgOut io.Writer = os.Stderr

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printMark(color, mark, format string, args ...any) {
	fmt.Fprintln(msgOut, colorize(color, mark+" "+fmt.Sprintf(format, args...)))
}

func printSuccess(format string, args ...any) { printMark(colorGreen, "✓", format, args...) }
func printError(format string, args ...any)   { printMark(colorRed, "✗", format, args...) }
func printWarning(format string, args ...any) { printMark(colorYellow, "⚠", format, args...) }
func printStep(format string, args ...any)    { printMark(colorCyan, "→", format, args...) }

func printStatus(label string, format string, args ...any) {
	fmt.Fprintf(msgOut, "  %s %s\n", colorize(colorBold, label+":"), fmt.Sprintf(format, args...))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatProgress(pr progress.Progress) string {
	return fmt.Sprintf("Level %d (%s): %d/%d XP, %d to next level (%d XP total)",
		pr.Level, pr.Tier, pr.CurrentLevelXP, pr.XPPerLevel, pr.XPToNextLevel, pr.XP)
}

func reasonText(reason string) string {
	switch reason {
	case roadmap.ReasonUnknownSkill:
		return "no such skill"
	case roadmap.ReasonNoProfile:
		return "complete onboarding first"
	case roadmap.ReasonLocked:
		return "prerequisites are not completed yet"
	case roadmap.ReasonAlreadyCompleted:
		return "already completed"
	default:
		return reason
	}
}

func skillMarker(n roadmap.Node) string {
	switch {
	case n.IsCompleted:
		return colorize(colorGreen, "✓")
	case n.IsUnlocked:
		return colorize(colorCyan, "○")
	default:
		return colorize(colorDim, "🔒")
	}
}

func renderRoadmap(w io.Writer, rm roadmap.Roadmap) {
	if rm.CareerGoal != "" {
		fmt.Fprintf(w, "%s %s\n", colorize(colorBold, "Goal:"), rm.CareerGoal)
	}
	fmt.Fprintf(w, "%s %d/%d skills (%d%%)\n", colorize(colorBold, "Progress:"), rm.Completed, rm.Total, rm.Percent)
	for _, n := range rm.Nodes {
		line := fmt.Sprintf("  %s %-16s %s", skillMarker(n), n.ID, n.Name)
		if n.EstimatedHours > 0 {
			line += fmt.Sprintf(" (%dh)", n.EstimatedHours)
		}
		if !n.IsUnlocked && len(n.Prerequisites) > 0 {
			line += colorize(colorDim, " needs "+strings.Join(n.Prerequisites, ", "))
		}
		fmt.Fprintln(w, line)
	}
}

func renderAchievements(w io.Writer, list []roadmap.AchievementStatus) {
	for _, a := range list {
		mark := colorize(colorDim, "○")
		if a.Earned {
			mark = colorize(colorGreen, "✓")
		}
		fmt.Fprintf(w, "%s %s %-20s %s\n", mark, a.Icon, a.Name, a.Description)
	}
}

func printBadges(badges []profile.Badge) {
	for _, b := range badges {
		printSuccess("Badge earned: %s %s (%s)", b.Icon, b.Name, b.Description)
	}
}

func printStateSummary(st stateSummary) {
	if st.Profile == nil {
		printStatus("Profile", "not onboarded (wizard at step %d)", st.Onboarding.Step)
		return
	}
	printStatus("Profile", "%s", st.Profile.Name)
	if st.Progress != nil {
		printStatus("Level", "%d (%d/%d XP)", st.Progress.Level, st.Progress.CurrentLevelXP, st.Progress.XPPerLevel)
	}
	printStatus("Skills", "%d completed", len(st.Profile.CompletedSkills))
	printStatus("Badges", "%d earned", len(st.Profile.Badges))
}
