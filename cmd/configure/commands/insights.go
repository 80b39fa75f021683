package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/benvon/moodhome/internal/analytics"
	"github.com/benvon/moodhome/internal/database"
	"github.com/benvon/moodhome/internal/models"
	"github.com/benvon/moodhome/internal/suggestions"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Insights is what the insights command reports for one user.
type Insights struct {
	UserID      uuid.UUID            `json:"user_id"`
	Email       string               `json:"email"`
	Name        string               `json:"name"`
	Mood        *analytics.Summary   `json:"mood"`
	Rejected    int                  `json:"rejected"`
	Suggestions *suggestions.Summary `json:"suggestions"`
}

// NewInsightsCmd creates the insights command
func NewInsightsCmd() *cobra.Command {
	var window, top int
	var format string

	cmd := &cobra.Command{
		Use:   "insights <user-id|email>",
		Short: "Show a user's mood analytics and ranked suggestions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "text", "json", "yaml":
			default:
				return fmt.Errorf("--format must be text, json or yaml")
			}

			db, cfg, closeDB, err := openStore(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeDB()
			if window <= 0 {
				window = cfg.MoodWindow
			}
			if top <= 0 {
				top = cfg.SuggestionTopN
			}

			ctx := context.Background()
			user, err := lookupUser(ctx, database.NewUserRepository(db), args[0])
			if err != nil {
				return err
			}
			recent, err := database.NewCheckInRepository(db).ListRecent(ctx, user.ID, window)
			if err != nil {
				return err
			}
			active, err := database.NewSuggestionRepository(db).ListActive(ctx, user.ID, 0)
			if err != nil {
				return err
			}

			mood := analytics.NewEngine(window).Analyze(recent)
			in := &Insights{
				UserID:      user.ID,
				Email:       user.Email,
			Name:        user.DisplayName(),
				Mood:        mood,
				Rejected:    len(mood.Rejected),
				Suggestions: suggestions.Summarize(active, top),
			}
			return writeInsights(cmd.OutOrStdout(), format, in)
		},
	}

	cmd.Flags().IntVar(&window, "window", 0, "Number of recent check-ins to analyse (default MOOD_WINDOW)")
	cmd.Flags().IntVar(&top, "top", 0, "Number of suggestions to show (default SUGGESTION_TOP_N)")
	cmd.Flags().StringVarP(&format, "format", "o", "text", "Output format: text, json or yaml")

	return cmd
}

func lookupUser(ctx context.Context, users *database.UserRepository, ref string) (*models.User, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return users.GetByID(ctx, id)
	}
	return users.GetByEmail(ctx, strings.TrimSpace(ref))
}

func writeInsights(w io.Writer, format string, in *Insights) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(in)
	case "yaml":
		// Round-trip through JSON so both formats share field names.
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	}

	fmt.Fprintf(w, "User: %s <%s> (%s)\n\n", in.Name, in.Email, in.UserID)
	m := in.Mood
	fmt.Fprintf(w, "Mood over %d check-ins (window %d)\n", m.CheckIns, m.Window)
	for _, s := range analytics.Sentiments {
		fmt.Fprintf(w, "  %-9s %d\n", s, m.Sentiment[s])
	}
	fmt.Fprintf(w, "  Top emotion: %s %s\n", m.TopEmotion.Glyph, m.TopEmotion.Emotion)
	fmt.Fprintf(w, "  %s\n", m.TopEmotion.Message)
	if in.Rejected > 0 {
		fmt.Fprintf(w, "  Skipped %d malformed records\n", in.Rejected)
	}

	s := in.Suggestions
	fmt.Fprintf(w, "\nActive suggestions: %d", s.ActiveCount)
	if s.Headline != nil {
		fmt.Fprintf(w, " (headline priority: %s)", *s.Headline)
	}
	fmt.Fprintln(w)
	for i, sg := range s.Top {
		fmt.Fprintf(w, "  %d. [%s] %s (%s)\n", i+1, sg.Priority, sg.Title, sg.Type)
	}
	return nil
}
