package genome

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"swarmdyn/internal/logging"
)

// Archive persists genomes as one JSON file per id under a directory.
// It is a non-essential writer: corrupt files are skipped with a warning and
// listing failures degrade to an empty result.
type Archive struct {
	dir string
}

// NewArchive creates the archive directory if needed.
func NewArchive(dir string) (*Archive, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create genome archive directory: %w", err)
	}
	return &Archive{dir: dir}, nil
}

// Dir returns the archive directory.
func (a *Archive) Dir() string {
	return a.dir
}

func (a *Archive) pathFor(id string) string {
	return filepath.Join(a.dir, id+".json")
}

// Save writes a genome to the archive keyed by its id.
func (a *Archive) Save(g Genome) error {
	if g.GenomeID == "" {
		return fmt.Errorf("cannot archive genome without id")
	}
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal genome %s: %w", g.GenomeID, err)
	}
	if err := os.WriteFile(a.pathFor(g.GenomeID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write genome %s: %w", g.GenomeID, err)
	}
	return nil
}

// Load reads one genome by id.
func (a *Archive) Load(id string) (Genome, error) {
	data, err := os.ReadFile(a.pathFor(id))
	if err != nil {
		return Genome{}, fmt.Errorf("failed to read genome %s: %w", id, err)
	}
	var g Genome
	if err := json.Unmarshal(data, &g); err != nil {
		return Genome{}, fmt.Errorf("malformed genome %s: %w", id, err)
	}
	return g, nil
}

// List returns all readable genomes sorted by id. Corrupt files are logged
// and skipped, never fatal.
func (a *Archive) List() []Genome {
	log := logging.Get(logging.CategoryGenome)

	entries, err := os.ReadDir(a.dir)
	if err != nil {
		log.Warnw("failed to list genome archive", "dir", a.dir, "error", err)
		return nil
	}

	var out []Genome
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		g, err := a.Load(id)
		if err != nil {
			log.Warnw("skipping unreadable genome", "id", id, "error", err)
			continue
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GenomeID < out[j].GenomeID })
	return out
}

// Lineage walks the parent chain starting at id, most recent first. The walk
// stops at the first missing ancestor or after maxDepth hops as a cycle
// guard.
func (a *Archive) Lineage(id string) []Genome {
	const maxDepth = 64

	var chain []Genome
	seen := make(map[string]bool)
	for current := id; current != "" && !seen[current] && len(chain) < maxDepth; {
		seen[current] = true
		g, err := a.Load(current)
		if err != nil {
			break
		}
		chain = append(chain, g)
		current = g.ParentID
	}
	return chain
}
