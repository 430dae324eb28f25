// Package clusterset validates the --cluster argument against the enumerated
// set of clusters the operator has declared in configuration. The tool never
// talks to a cluster that is not in the set.
package clusterset

import (
	"fmt"
	"sort"
	"strings"
)

// Cluster is one known cluster, optionally pinned to a region.
type Cluster struct {
	Name   string
	Region string
}

// Set is the enumerated collection of known clusters.
type Set struct {
	order    []string
	clusters map[string]Cluster
}

// UnknownError reports a cluster name outside the known set.
type UnknownError struct {
	Name  string
	Known []string
}

func (e *UnknownError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("unknown cluster %q (no clusters configured; set ECSENV_CLUSTERS or add clusters to the config file)", e.Name)
	}
	return fmt.Sprintf("unknown cluster %q (known: %s)", e.Name, strings.Join(e.Known, ", "))
}

// Parse builds a Set from configured entries. Each entry is either a bare
// cluster name or name=region; entries may themselves be comma-separated so
// the set can come from a single environment variable. Duplicate names are
// rejected.
func Parse(entries []string) (Set, error) {
	set := Set{clusters: map[string]Cluster{}}
	for _, entry := range entries {
		for _, raw := range strings.Split(entry, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			name, region, _ := strings.Cut(raw, "=")
			name = strings.TrimSpace(name)
			region = strings.TrimSpace(region)
			if name == "" {
				return Set{}, fmt.Errorf("cluster entry %q is missing a name", raw)
			}
			if _, ok := set.clusters[name]; ok {
				return Set{}, fmt.Errorf("cluster %q is declared twice", name)
			}
			set.order = append(set.order, name)
			set.clusters[name] = Cluster{Name: name, Region: region}
		}
	}
	return set, nil
}

// Empty reports whether no clusters are configured.
func (s Set) Empty() bool {
	return len(s.order) == 0
}

// Names returns the known cluster names sorted for display.
func (s Set) Names() []string {
	out := append([]string(nil), s.order...)
	sort.Strings(out)
	return out
}

// Resolve returns the cluster for name, or an *UnknownError naming the
// known set.
func (s Set) Resolve(name string) (Cluster, error) {
	name = strings.TrimSpace(name)
	if c, ok := s.clusters[name]; ok {
		return c, nil
	}
	return Cluster{}, &UnknownError{Name: name, Known: s.Names()}
}
