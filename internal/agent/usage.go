package agent

// UsageSignal is the remote-reported consumption metadata accompanying a
// reply. The remote agent reports usage in one of a small closed set of
// shapes; each variant knows how to normalize itself, so callers never probe
// fields reflectively.
type UsageSignal interface {
	usageSignal()
}

// ChatUsage is the chat-completions shape: token counts reported as plain
// integers with a direct total field.
type ChatUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

func (ChatUsage) usageSignal() {}

// RunUsage is the assistant-run shape. The API reports these as wide
// integers, so the totals are carried as int64 until normalization.
type RunUsage struct {
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
}

func (RunUsage) usageSignal() {}

// ExtractTokenCost normalizes any recognized usage shape to a single
// non-negative token count. A nil or unrecognized signal yields zero;
// absence of usage data is not an error.
func ExtractTokenCost(usage UsageSignal) int {
	switch u := usage.(type) {
	case ChatUsage:
		if u.TotalTokens > 0 {
			return u.TotalTokens
		}
	case RunUsage:
		if u.TotalTokens > 0 {
			return int(u.TotalTokens)
		}
	}
	return 0
}
