package collection

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Seed is the on-disk YAML shape used to bootstrap a Collection plus its
// Folder/Request tree in one file — a convenience for local development
// and fixtures, not the production storage format (that's the
// repository interfaces in internal/repository).
type Seed struct {
	Name       string            `yaml:"name"`
	TeamID     string            `yaml:"team_id"`
	PreScript  string            `yaml:"pre_script,omitempty"`
	PostScript string            `yaml:"post_script,omitempty"`
	Variables  map[string]string `yaml:"variables,omitempty"`
	Items      []SeedItem        `yaml:"items"`
}

// SeedItem is a union type: either a folder or a request.
type SeedItem struct {
	Folder  *SeedFolder  `yaml:"folder,omitempty"`
	Request *SeedRequest `yaml:"request,omitempty"`
}

// SeedFolder mirrors Folder plus nested children.
type SeedFolder struct {
	Name       string     `yaml:"name"`
	PreScript  string     `yaml:"pre_script,omitempty"`
	PostScript string     `yaml:"post_script,omitempty"`
	Items      []SeedItem `yaml:"items,omitempty"`
}

// SeedRequest mirrors Request in flat YAML form.
type SeedRequest struct {
	Name       string   `yaml:"name"`
	Method     string   `yaml:"method"`
	URL        string   `yaml:"url"`
	SortOrder  int      `yaml:"sort_order"`
	Headers    []KVPair `yaml:"headers,omitempty"`
	Params     []KVPair `yaml:"params,omitempty"`
	BodyType   string   `yaml:"body_type,omitempty"`
	BodyRaw    string   `yaml:"body,omitempty"`
	PreScript  string   `yaml:"pre_script,omitempty"`
	PostScript string   `yaml:"post_script,omitempty"`
}

// LoadSeedFile reads a Seed from a YAML file and flattens it into a
// Collection, Folders, and Requests ready for repository.Save calls.
func LoadSeedFile(path string) (*Collection, []Folder, []Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("reading seed file: %w", err)
	}
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, nil, nil, fmt.Errorf("parsing seed file: %w", err)
	}
	return flattenSeed(&s)
}

// flattenSeed converts a parsed Seed into flat rows, assigning fresh IDs.
func flattenSeed(s *Seed) (*Collection, []Folder, []Request, error) {
	col := &Collection{
		ID:         uuid.New().String(),
		TeamID:     s.TeamID,
		Name:       s.Name,
		PreScript:  s.PreScript,
		PostScript: s.PostScript,
		Variables:  s.Variables,
	}

	var folders []Folder
	var requests []Request
	var walk func(items []SeedItem, parentFolderID string)
	walk = func(items []SeedItem, parentFolderID string) {
		for _, item := range items {
			if item.Folder != nil {
				f := Folder{
					ID:           uuid.New().String(),
					CollectionID: col.ID,
					ParentID:     parentFolderID,
					Name:         item.Folder.Name,
					PreScript:    item.Folder.PreScript,
					PostScript:   item.Folder.PostScript,
				}
				folders = append(folders, f)
				walk(item.Folder.Items, f.ID)
			}
			if item.Request != nil {
				sr := item.Request
				req := Request{
					ID:        uuid.New().String(),
					FolderID:  parentFolderID,
					Name:      sr.Name,
					Method:    Method(sr.Method),
					URL:       sr.URL,
					SortOrder: sr.SortOrder,
					Headers:   sr.Headers,
					Params:    sr.Params,
					Scripts:   map[ScriptType]string{},
				}
				if sr.BodyType != "" {
					req.Body = &Body{Type: BodyType(sr.BodyType), Raw: sr.BodyRaw}
				}
				if sr.PreScript != "" {
					req.Scripts[PreRequest] = sr.PreScript
				}
				if sr.PostScript != "" {
					req.Scripts[PostResponse] = sr.PostScript
				}
				requests = append(requests, req)
			}
		}
	}
	walk(s.Items, "")

	if _, err := BuildTree(folders, requests); err != nil {
		return nil, nil, nil, err
	}
	return col, folders, requests, nil
}
