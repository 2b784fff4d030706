package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"stickermap/internal/tokenize"
)

// FeatureID is the stable identifier of a canonical feature, derived from its
// display name. Decisions and stored reports are keyed by it.
type FeatureID string

// CanonicalFeature is one entry in the target checkbox taxonomy.
type CanonicalFeature struct {
	ID       FeatureID
	Name     string
	Category string
	Aliases  []string // raw configured variants, in file order
}

type ErrorKind string

const (
	DuplicateAlias ErrorKind = "duplicate_alias"
	EmptyCategory  ErrorKind = "empty_category"
	MalformedEntry ErrorKind = "malformed_entry"
)

// CatalogError is fatal at process start: the engine must not run against a
// catalog where a wrong alias would silently toggle a wrong checkbox.
type CatalogError struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *CatalogError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("catalog invalid (%s): %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("catalog invalid (%s): %s", e.Kind, e.Detail)
}

func (e *CatalogError) Unwrap() error { return e.Err }

// IsCatalogError reports whether err is a CatalogError of the given kind.
func IsCatalogError(err error, kind ErrorKind) bool {
	var ce *CatalogError
	return errors.As(err, &ce) && ce.Kind == kind
}

// Catalog is the immutable alias table. Loaded once, shared read-only by all
// concurrent matching runs; there is no writer after load.
type Catalog struct {
	features []CanonicalFeature
	byID     map[FeatureID]int
}

// catalogFile mirrors the configuration shape: feature name -> category ->
// ordered alias list, plus aliases explicitly allowed to repeat across
// categories.
type catalogFile struct {
	AmbiguousAliases []string                       `json:"ambiguous_aliases,omitempty"`
	Features         map[string]map[string][]string `json:"features"`
}

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse validates catalog JSON structurally (schema) and semantically
// (duplicates, empty categories) and builds the immutable table.
// Feature order is lexicographic by display name so reports are deterministic
// regardless of map iteration order.
func Parse(data []byte) (*Catalog, error) {
	if err := validateCatalogJSON(data); err != nil {
		return nil, &CatalogError{Kind: MalformedEntry, Detail: "catalog does not match schema", Err: err}
	}

	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, &CatalogError{Kind: MalformedEntry, Detail: "catalog is not valid JSON", Err: err}
	}

	ambiguous := make(map[string]struct{}, len(file.AmbiguousAliases))
	for _, a := range file.AmbiguousAliases {
		ambiguous[tokenize.NormalizePhrase(a)] = struct{}{}
	}

	names := make([]string, 0, len(file.Features))
	for name := range file.Features {
		names = append(names, name)
	}
	sort.Strings(names)

	type aliasOwner struct {
		feature  string
		category string
	}
	seen := make(map[string]aliasOwner)

	c := &Catalog{byID: make(map[FeatureID]int, len(names))}
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			return nil, &CatalogError{Kind: MalformedEntry, Detail: "feature with blank name"}
		}

		categories := file.Features[name]
		// schema enforces exactly one category per feature
		for category, aliases := range categories {
			if strings.TrimSpace(category) == "" {
				return nil, &CatalogError{Kind: MalformedEntry, Detail: fmt.Sprintf("feature %q has a blank category", name)}
			}
			if len(aliases) == 0 {
				return nil, &CatalogError{Kind: EmptyCategory, Detail: fmt.Sprintf("feature %q category %q has no aliases", name, category)}
			}

			kept := make([]string, 0, len(aliases))
			for _, alias := range aliases {
				if strings.TrimSpace(alias) == "" {
					return nil, &CatalogError{Kind: MalformedEntry, Detail: fmt.Sprintf("feature %q has a blank alias", name)}
				}
				norm := tokenize.NormalizePhrase(alias)
				if norm == "" {
					return nil, &CatalogError{Kind: MalformedEntry, Detail: fmt.Sprintf("alias %q of feature %q normalizes to nothing", alias, name)}
				}
				if owner, dup := seen[norm]; dup {
					if owner.feature == name {
						// redundant spelling of the same feature, harmless
						kept = append(kept, alias)
						continue
					}
					if owner.category == category {
						return nil, &CatalogError{
							Kind:   DuplicateAlias,
							Detail: fmt.Sprintf("alias %q appears under both %q and %q in category %q", alias, owner.feature, name, category),
						}
					}
					if _, ok := ambiguous[norm]; !ok {
						return nil, &CatalogError{
							Kind:   DuplicateAlias,
							Detail: fmt.Sprintf("alias %q appears under %q (%s) and %q (%s) without being marked ambiguous", alias, owner.feature, owner.category, name, category),
						}
					}
				} else {
					seen[norm] = aliasOwner{feature: name, category: category}
				}
				kept = append(kept, alias)
			}

			id := slugID(name)
			if _, exists := c.byID[id]; exists {
				return nil, &CatalogError{Kind: MalformedEntry, Detail: fmt.Sprintf("feature names %q collapse to the same identifier %q", name, id)}
			}
			c.byID[id] = len(c.features)
			c.features = append(c.features, CanonicalFeature{
				ID:       id,
				Name:     name,
				Category: category,
				Aliases:  kept,
			})
		}
	}

	if len(c.features) == 0 {
		return nil, &CatalogError{Kind: MalformedEntry, Detail: "catalog has no features"}
	}
	return c, nil
}

// Features returns all canonical features in catalog order. The slice is
// shared; callers must not mutate it.
func (c *Catalog) Features() []CanonicalFeature { return c.features }

// Get looks a feature up by identifier.
func (c *Catalog) Get(id FeatureID) (CanonicalFeature, bool) {
	i, ok := c.byID[id]
	if !ok {
		return CanonicalFeature{}, false
	}
	return c.features[i], true
}

// Variants returns the accepted alias strings of a feature.
func (c *Catalog) Variants(id FeatureID) []string {
	f, ok := c.Get(id)
	if !ok {
		return nil
	}
	return f.Aliases
}

// Len is the number of canonical features.
func (c *Catalog) Len() int { return len(c.features) }

// slugID derives a stable identifier from a display name.
func slugID(name string) FeatureID {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return FeatureID(strings.TrimSuffix(b.String(), "_"))
}
