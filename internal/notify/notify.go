// Package notify delivers analysis results to external channels. Delivery
// is best effort; a failed channel never fails the analysis that produced
// the result.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ochestra-tech/cloudoptimizer/internal/cost"
)

// Notifier delivers a finished recommendation set to one channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, set *cost.RecommendationSet) error
}

// LogNotifier writes a one-line summary to the process log.
type LogNotifier struct{}

func (LogNotifier) Name() string { return "log" }

func (LogNotifier) Notify(_ context.Context, set *cost.RecommendationSet) error {
	log.Printf("analysis %s: %d recommendations, potential savings %s %s/month",
		set.RunID, len(set.Recommendations), set.TotalSavings.String(), set.Currency)
	return nil
}

// SlackNotifier posts a summary message to an incoming webhook.
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *SlackNotifier) Name() string { return "slack" }

func (n *SlackNotifier) Notify(ctx context.Context, set *cost.RecommendationSet) error {
	payload := map[string]string{"text": formatSummary(set)}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post slack message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// formatSummary renders the top recommendations as a Slack text message.
func formatSummary(set *cost.RecommendationSet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Cloud cost analysis* (%s)\n", set.GeneratedAt.Format("2006-01-02 15:04 UTC"))
	fmt.Fprintf(&b, "Potential savings: *%s %s/month* across %d recommendations\n",
		set.TotalSavings.String(), set.Currency, len(set.Recommendations))

	limit := 5
	if len(set.Recommendations) < limit {
		limit = len(set.Recommendations)
	}
	for _, rec := range set.Recommendations[:limit] {
		fmt.Fprintf(&b, "• [%s] %s: %s (%s %s/month, confidence %.0f%%)\n",
			rec.Provider, rec.ResourceID, rec.Action,
			rec.MonthlySavings.String(), set.Currency, rec.Confidence*100)
	}
	if len(set.Recommendations) > limit {
		fmt.Fprintf(&b, "… and %d more\n", len(set.Recommendations)-limit)
	}
	return b.String()
}

// Broadcast sends the set to every notifier, logging failures instead of
// propagating them.
func Broadcast(ctx context.Context, notifiers []Notifier, set *cost.RecommendationSet) {
	for _, n := range notifiers {
		if err := n.Notify(ctx, set); err != nil {
			log.Printf("notify via %s failed: %v", n.Name(), err)
		}
	}
}
