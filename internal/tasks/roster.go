package tasks

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/desertthunder/trendrank/internal/models"
	"github.com/desertthunder/trendrank/internal/shared"
)

// rosterFile is the on-disk roster format:
//
//	[[artists]]
//	group_id = "g1"
//	name = "Alpha"
//	spotify_id = "0abc..."
type rosterFile struct {
	Artists []models.ArtistIdentity `toml:"artists"`
}

// LoadRoster reads and validates a roster file.
func LoadRoster(path string) ([]models.ArtistIdentity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster file: %w", err)
	}
	return ParseRoster(data)
}

// ParseRoster decodes roster TOML. Every entry needs a group id and a catalog id; an empty
// name falls back to the group id.
func ParseRoster(data []byte) ([]models.ArtistIdentity, error) {
	var file rosterFile
	if _, err := toml.Decode(string(data), &file); err != nil {
		return nil, fmt.Errorf("%w: failed to parse roster: %v", shared.ErrInvalidInput, err)
	}
	if len(file.Artists) == 0 {
		return nil, fmt.Errorf("%w: roster has no artists", shared.ErrNoRecords)
	}

	seen := make(map[string]string, len(file.Artists))
	identities := make([]models.ArtistIdentity, 0, len(file.Artists))
	for i, a := range file.Artists {
		a.GroupID = strings.TrimSpace(a.GroupID)
		a.SpotifyID = strings.TrimSpace(a.SpotifyID)
		a.Name = strings.TrimSpace(a.Name)

		if a.GroupID == "" || a.SpotifyID == "" {
			return nil, fmt.Errorf("%w: roster entry %d needs group_id and spotify_id", shared.ErrInvalidInput, i+1)
		}
		if other, ok := seen[a.SpotifyID]; ok && other != a.GroupID {
			return nil, fmt.Errorf("%w: spotify_id %s listed for %s and %s", shared.ErrInvalidInput, a.SpotifyID, other, a.GroupID)
		}
		seen[a.SpotifyID] = a.GroupID

		if a.Name == "" {
			a.Name = a.GroupID
		}
		identities = append(identities, a)
	}
	return identities, nil
}
