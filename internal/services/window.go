package services

import "github.com/conversa/conversa-backend/internal/repository"

// BuildWindow selects the maximal trailing contiguous run of history that
// fits the token budget. History is oldest first; the returned window keeps
// that order. The summary's token cost, when present, is reserved from the
// budget before any message is considered.
//
// Messages are whole or absent: a message that would push the running total
// past the budget is excluded, one that exactly fills it is included.
// Windowing is a read-time selection; it never mutates stored costs.
func BuildWindow(history []repository.Message, summary *repository.ConversationSummary, budget int) []repository.Message {
	used := 0
	if summary != nil {
		used = summary.TokenCount
	}

	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		if used+history[i].TokenCount > budget {
			break
		}
		used += history[i].TokenCount
		start = i
	}

	window := make([]repository.Message, len(history)-start)
	copy(window, history[start:])
	return window
}
