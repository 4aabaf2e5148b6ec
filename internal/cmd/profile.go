package cmd

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/Iron-Ham/negotiator/internal/config"
	"github.com/Iron-Ham/negotiator/internal/offer"
	"github.com/Iron-Ham/negotiator/internal/profile"
	"github.com/Iron-Ham/negotiator/internal/styles"
	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Inspect ethics profiles",
	Long: `Inspect the ethics profiles in profiles.file and see which one a context
selects.

Without a subcommand, lists the known profiles.`,
	RunE: runProfileList,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles and mark the one the context selects",
	RunE:  runProfileList,
}

var profileShowCmd = &cobra.Command{
	Use:   "show [label]",
	Short: "Show the weights of a profile (default: the active one)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProfileShow,
}

var profileRankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank the offer catalog by the active profile",
	Long: `Print the offers from offers.file in the order the agent would make them
under the profile the context selects.`,
	RunE: runProfileRank,
}

var profileContext string

func init() {
	profileCmd.PersistentFlags().StringVar(&profileContext, "context", "", "Context used to select the active profile (default: profiles.context)")
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileRankCmd)
}

// loadProfiles builds a manager from the configured file and activates the
// profile selected by --context, falling back to profiles.context.
func loadProfiles(cfg *config.Config) (*profile.Manager, error) {
	if cfg.Profiles.File == "" {
		return nil, fmt.Errorf("no profile file configured (set profiles.file)")
	}
	m := profile.NewManager(
		profile.WithDefault(cfg.Profiles.Default),
		profile.WithContextRules(cfg.Profiles.ContextRules),
	)
	if err := m.LoadFile(cfg.Profiles.File); err != nil {
		return nil, err
	}
	ctx := profileContext
	if ctx == "" {
		ctx = cfg.Profiles.Context
	}
	if m.Resolve(ctx) != "" {
		if err := m.SetContext(ctx); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func runProfileList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	m, err := loadProfiles(cfg)
	if err != nil {
		return err
	}

	active := ""
	if p, err := m.Active(); err == nil {
		active = p.Label
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, styles.Title.Render("Profiles"))
	if ctx := m.Context(); ctx != "" {
		fmt.Fprintln(out, styles.Subtitle.Render("Context: "+ctx))
	}
	for _, label := range m.Labels() {
		if label == active {
			fmt.Fprintf(out, "%s %s\n", styles.Secondary.Render("●"), styles.Label.Render(label))
			continue
		}
		fmt.Fprintf(out, "%s %s\n", styles.Muted.Render("○"), label)
	}
	if active == "" {
		fmt.Fprintln(out, styles.Warning.Render("No profile selected; set profiles.default or a context rule"))
	}
	return nil
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	m, err := loadProfiles(cfg)
	if err != nil {
		return err
	}

	var p profile.Profile
	if len(args) == 1 {
		var ok bool
		if p, ok = m.Get(args[0]); !ok {
			return fmt.Errorf("profile %q not found (known: %s)", args[0], strings.Join(m.Labels(), ", "))
		}
	} else if p, err = m.Active(); err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", styles.Label.Render("Tasks"))
	writeWeights(&b, p.Tasks)
	fmt.Fprintf(&b, "%s\n", styles.Label.Render("Conditions"))
	writeWeights(&b, p.Conditions)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, styles.Title.Render("Profile "+p.Label))
	fmt.Fprintln(out, styles.ContentBox.Render(strings.TrimRight(b.String(), "\n")))
	return nil
}

func writeWeights(b *strings.Builder, weights map[string]float64) {
	if len(weights) == 0 {
		fmt.Fprintf(b, "  %s\n", styles.Muted.Render("(none)"))
		return
	}
	for _, k := range slices.Sorted(maps.Keys(weights)) {
		fmt.Fprintf(b, "  %-16s %+.2f\n", k, weights[k])
	}
}

func runProfileRank(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Offers.File == "" {
		return fmt.Errorf("no offer catalog configured (set offers.file)")
	}
	m, err := loadProfiles(cfg)
	if err != nil {
		return err
	}
	active, err := m.Active()
	if err != nil {
		return err
	}
	catalog, err := offer.LoadCatalog(cfg.Offers.File)
	if err != nil {
		return err
	}

	q := offer.NewQueue(catalog.Offers, active.Value)
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, styles.Title.Render(fmt.Sprintf("Offers ranked by %s", active.Label)))
	for i := 1; q.HasNext(); i++ {
		o := q.Next()
		fmt.Fprintf(out, "%s %-32s %s\n", styles.Muted.Render(fmt.Sprintf("%2d.", i)), formatOffer(o),
			styles.Primary.Render(fmt.Sprintf("%+.2f", active.Value(o))))
	}
	return nil
}

func formatOffer(o offer.Offer) string {
	if len(o.Conditions) == 0 {
		return o.Task
	}
	return o.Task + ":" + strings.Join(o.Conditions, ",")
}
