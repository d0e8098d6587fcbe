package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conversa/conversa-backend/internal/repository"
)

func historyWithCosts(costs ...int) []repository.Message {
	history := make([]repository.Message, len(costs))
	for i, cost := range costs {
		history[i] = repository.Message{
			ID:         fmt.Sprintf("msg-%d", i+1),
			SessionID:  "session-1",
			Role:       repository.RoleUser,
			Content:    fmt.Sprintf("message %d", i+1),
			TokenCount: cost,
		}
	}
	return history
}

func windowCost(window []repository.Message) int {
	total := 0
	for _, m := range window {
		total += m.TokenCount
	}
	return total
}

func TestBuildWindow_EmptyHistory(t *testing.T) {
	window := BuildWindow(nil, nil, 4000)
	assert.Empty(t, window)
}

func TestBuildWindow_AllMessagesFit(t *testing.T) {
	history := historyWithCosts(10, 20, 30)

	window := BuildWindow(history, nil, 100)

	assert.Equal(t, history, window)
}

func TestBuildWindow_ExactFitIncluded(t *testing.T) {
	history := historyWithCosts(50, 50)

	// 100 exactly fills the budget; both messages are included.
	window := BuildWindow(history, nil, 100)

	assert.Len(t, window, 2)
	assert.Equal(t, 100, windowCost(window))
}

func TestBuildWindow_NewestAloneOverBudget(t *testing.T) {
	history := historyWithCosts(10, 5000)

	window := BuildWindow(history, nil, 4000)

	assert.Empty(t, window)
}

func TestBuildWindow_SummaryReservesBudgetFirst(t *testing.T) {
	history := historyWithCosts(100, 100)
	summary := &repository.ConversationSummary{
		ID:         "summary-1",
		SessionID:  "session-1",
		Content:    "earlier conversation",
		TokenCount: 3900,
	}

	window := BuildWindow(history, summary, 4000)

	// 100 remains after the reservation; only the newest message fits.
	assert.Len(t, window, 1)
	assert.Equal(t, "msg-2", window[0].ID)
}

func TestBuildWindow_SummaryConsumingWholeBudget(t *testing.T) {
	history := historyWithCosts(1, 1, 1)
	summary := &repository.ConversationSummary{TokenCount: 4000}

	window := BuildWindow(history, summary, 4000)

	assert.Empty(t, window)
}

func TestBuildWindow_ScriptedScenario(t *testing.T) {
	// Costs [50, 80, 4000] against budget 4000: the newest message exactly
	// fills the budget, so the scan stops before the 80-cost message and the
	// window is exactly the final message.
	history := historyWithCosts(50, 80, 4000)

	window := BuildWindow(history, nil, 4000)

	require.Len(t, window, 1)
	assert.Equal(t, "msg-3", window[0].ID)
	assert.Equal(t, "message 3", window[0].Content)
	assert.Equal(t, 4000, window[0].TokenCount)
}

func TestBuildWindow_TrailingContiguousSuffix(t *testing.T) {
	tests := []struct {
		name    string
		costs   []int
		summary int
		budget  int
	}{
		{name: "Everything fits", costs: []int{5, 5, 5}, budget: 100},
		{name: "Partial fit", costs: []int{40, 40, 40, 40}, budget: 100},
		{name: "Nothing fits", costs: []int{200, 300}, budget: 100},
		{name: "Summary squeezes window", costs: []int{30, 30, 30}, summary: 60, budget: 100},
		{name: "Zero budget", costs: []int{1, 1}, budget: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history := historyWithCosts(tt.costs...)
			var summary *repository.ConversationSummary
			if tt.summary > 0 {
				summary = &repository.ConversationSummary{TokenCount: tt.summary}
			}

			window := BuildWindow(history, summary, tt.budget)

			// The window is always the trailing run of the input, in order.
			require.LessOrEqual(t, len(window), len(history))
			assert.Equal(t, history[len(history)-len(window):], window)

			// Window cost plus the summary reservation never exceeds budget.
			assert.LessOrEqual(t, windowCost(window)+tt.summary, tt.budget)
		})
	}
}

func TestBuildWindow_DoesNotMutateHistory(t *testing.T) {
	history := historyWithCosts(10, 20, 30)
	original := historyWithCosts(10, 20, 30)

	window := BuildWindow(history, nil, 25)

	assert.Equal(t, original, history)
	require.Len(t, window, 1)
	window[0].Content = "changed"
	assert.Equal(t, "message 3", history[2].Content)
}
