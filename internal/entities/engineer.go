// Package entities contains core business entities.
package entities

// AliasMap resolves a tool-specific account (GitHub login, Atlassian email,
// Zoom address) to the engineer's full name used as a ledger row label.
type AliasMap map[string]string

// Resolve returns the full name for an account, or "" when the account is
// not one of ours (bots, externals).
func (m AliasMap) Resolve(account string) string { return m[account] }

// Names returns the distinct full names, the row universe for the
// per-engineer sheets.
func (m AliasMap) Names() []string {
	seen := make(map[string]struct{}, len(m))
	names := make([]string, 0, len(m))
	for _, n := range m {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		names = append(names, n)
	}
	return names
}
