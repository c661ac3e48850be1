package domain

// AccountKind identifies one monitored vendor login.
type AccountKind string

const (
	AccountClaude AccountKind = "claude"
	AccountCodex  AccountKind = "codex"
)

// Kinds lists all known account kinds in display order.
func Kinds() []AccountKind {
	return []AccountKind{AccountClaude, AccountCodex}
}

func (k AccountKind) DisplayName() string {
	switch k {
	case AccountClaude:
		return "Claude Code"
	case AccountCodex:
		return "Codex"
	default:
		return string(k)
	}
}

func (k AccountKind) DashboardURL() string {
	switch k {
	case AccountClaude:
		return "https://console.anthropic.com/"
	case AccountCodex:
		return "https://chatgpt.com/"
	default:
		return ""
	}
}
