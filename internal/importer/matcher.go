package importer

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"

	"github.com/angelmondragon/propertyhub-backend/pkg/slug"
)

// MaxNameDistance is the largest edit distance accepted for a fuzzy owner match.
const MaxNameDistance = 2

// Owner is a candidate account a row can be attributed to.
type Owner struct {
	ID    uuid.UUID
	Email string
	Name  string
}

// MatchKind records which rule resolved a row's owner.
type MatchKind string

const (
	MatchEmail MatchKind = "email"
	MatchAlias MatchKind = "alias"
	MatchExact MatchKind = "exact_name"
	MatchFuzzy MatchKind = "fuzzy_name"
)

// LoadAliases reads the mapping file: a JSON object of spreadsheet owner
// names to canonical account emails.
func LoadAliases(r io.Reader) (map[string]string, error) {
	var raw map[string]string
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode alias mapping: %w", err)
	}
	out := make(map[string]string, len(raw))
	for alias, email := range raw {
		out[slug.NormalizeName(alias)] = strings.ToLower(strings.TrimSpace(email))
	}
	return out, nil
}

// Matcher resolves spreadsheet owner names to accounts.
type Matcher struct {
	byEmail map[string]Owner
	byName  map[string][]Owner
	owners  []normalizedOwner
	aliases map[string]string
}

type normalizedOwner struct {
	owner Owner
	name  string
}

func NewMatcher(owners []Owner, aliases map[string]string) *Matcher {
	m := &Matcher{
		byEmail: make(map[string]Owner, len(owners)),
		byName:  make(map[string][]Owner, len(owners)),
		aliases: aliases,
	}
	for _, o := range owners {
		name := slug.NormalizeName(o.Name)
		m.byEmail[strings.ToLower(o.Email)] = o
		m.byName[name] = append(m.byName[name], o)
		m.owners = append(m.owners, normalizedOwner{owner: o, name: name})
	}
	return m
}

// Match tries, in order: the row email, the alias mapping, an exact
// normalized name, then the unique closest name within MaxNameDistance.
func (m *Matcher) Match(row Row) (Owner, MatchKind, error) {
	if row.OwnerEmail != "" {
		if o, ok := m.byEmail[row.OwnerEmail]; ok {
			return o, MatchEmail, nil
		}
	}
	name := slug.NormalizeName(row.OwnerName)
	if email, ok := m.aliases[name]; ok {
		o, found := m.byEmail[email]
		if !found {
			return Owner{}, "", fmt.Errorf("alias %q points to unknown account %s", row.OwnerName, email)
		}
		return o, MatchAlias, nil
	}
	if name == "" {
		if row.OwnerEmail != "" {
			return Owner{}, "", fmt.Errorf("owner email %q not found and no owner name given", row.OwnerEmail)
		}
		return Owner{}, "", fmt.Errorf("owner name missing")
	}
	switch exact := m.byName[name]; len(exact) {
	case 1:
		return exact[0], MatchExact, nil
	case 0:
	default:
		return Owner{}, "", fmt.Errorf("owner %q is ambiguous", row.OwnerName)
	}

	best, bestDist, ties := Owner{}, MaxNameDistance+1, 0
	for _, candidate := range m.owners {
		d := levenshtein.ComputeDistance(name, candidate.name)
		switch {
		case d < bestDist:
			best, bestDist, ties = candidate.owner, d, 1
		case d == bestDist:
			ties++
		}
	}
	if bestDist > MaxNameDistance {
		return Owner{}, "", fmt.Errorf("owner %q not found", row.OwnerName)
	}
	if ties > 1 {
		return Owner{}, "", fmt.Errorf("owner %q is ambiguous", row.OwnerName)
	}
	return best, MatchFuzzy, nil
}
