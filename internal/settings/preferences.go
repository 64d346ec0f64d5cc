package settings

const (
	FolderIDKey        = "speedDialFolderId"
	PreferencesKey     = "dialPreferences"
	LocalPrefsKey      = "uiPreferences"
	PreferencesVersion = 1

	DefaultTheme    = "system"
	DefaultAccent   = "cobalt"
	DefaultGradient = "aurora"

	BackgroundGradient = "gradient"
	BackgroundCustom   = "custom"
)

// FolderSelection remembers which folders the sidebar shows and expands
type FolderSelection struct {
	SelectedIDs []string `json:"selectedIds"`
	ExpandedIDs []string `json:"expandedIds"`
}

// Background is either a named gradient or a custom image
type Background struct {
	Mode       string `json:"mode"`
	GradientID string `json:"gradientId"`
}

// Preferences is the appearance and layout state shared across machines
type Preferences struct {
	Theme           string          `json:"theme"`
	Accent          string          `json:"accent"`
	Background      *Background     `json:"background,omitempty"`
	FolderSelection FolderSelection `json:"folderSelection"`
	Version         int             `json:"version"`
}

// LoadPreferences prefers the local copy and falls back to the synced one
func (s *Store) LoadPreferences() (Preferences, error) {
	var p Preferences
	found, err := s.Get(Local, LocalPrefsKey, &p)
	if err != nil {
		return Preferences{}, err
	}
	if !found {
		if _, err := s.Get(Sync, PreferencesKey, &p); err != nil {
			return Preferences{}, err
		}
	}
	return withDefaults(p), nil
}

// SavePreferences writes p to both tiers
func (s *Store) SavePreferences(p Preferences) error {
	if err := s.Set(Sync, PreferencesKey, p); err != nil {
		return err
	}
	return s.Set(Local, LocalPrefsKey, p)
}

// SeedPreferences fills in missing defaults and makes sure folderID is among
// the selected folders. Calling it again with the same id changes nothing.
func (s *Store) SeedPreferences(folderID string) error {
	var p Preferences
	if _, err := s.Get(Sync, PreferencesKey, &p); err != nil {
		return err
	}
	p = withDefaults(p)
	if !contains(p.FolderSelection.SelectedIDs, folderID) {
		p.FolderSelection.SelectedIDs = append(p.FolderSelection.SelectedIDs, folderID)
	}
	return s.Set(Sync, PreferencesKey, p)
}

func withDefaults(p Preferences) Preferences {
	if p.FolderSelection.SelectedIDs == nil {
		p.FolderSelection.SelectedIDs = []string{}
	}
	if p.FolderSelection.ExpandedIDs == nil {
		p.FolderSelection.ExpandedIDs = []string{}
	}
	if p.Theme == "" {
		p.Theme = DefaultTheme
	}
	if p.Accent == "" {
		p.Accent = DefaultAccent
	}
	if p.Background == nil {
		p.Background = &Background{Mode: BackgroundGradient, GradientID: DefaultGradient}
	} else {
		bg := *p.Background
		if bg.Mode != BackgroundCustom {
			bg.Mode = BackgroundGradient
		}
		if bg.GradientID == "" {
			bg.GradientID = DefaultGradient
		}
		p.Background = &bg
	}
	if p.Version == 0 {
		p.Version = PreferencesVersion
	}
	return p
}

// FolderID returns the stored dial folder id, or "" when none is stored
func (s *Store) FolderID() (string, error) {
	var id string
	if _, err := s.Get(Sync, FolderIDKey, &id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) SetFolderID(id string) error {
	return s.Set(Sync, FolderIDKey, id)
}

func (s *Store) ClearFolderID() error {
	return s.Remove(Sync, FolderIDKey)
}

func contains(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}
